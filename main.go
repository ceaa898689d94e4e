package main

import "web-scraper-app/cmd"

func main() {
	cmd.Execute()
}
