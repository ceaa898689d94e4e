package storage

import "web-scraper-app/models"

// TableLoader is what the dashboard needs from storage.
type TableLoader interface {
	Load(path string) (*models.Table, error)
}

// TableWriter persists a whole table, replacing any previous content.
type TableWriter interface {
	Write(path string, t *models.Table) error
}

// Files is the uncached file-backed TableLoader and TableWriter.
type Files struct{}

func (Files) Load(path string) (*models.Table, error)    { return ReadCSV(path) }
func (Files) Write(path string, t *models.Table) error { return WriteCSV(path, t) }

// TableStore both loads and writes tables.
type TableStore interface {
	TableLoader
	TableWriter
}
