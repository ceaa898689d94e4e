package models

import "fmt"

// MissingFileError reports that a raw or cleaned table file does not exist.
type MissingFileError struct {
	Path string
}

func (e *MissingFileError) Error() string {
	return fmt.Sprintf("file %q not found", e.Path)
}

// MissingColumnError reports that an expected column is absent from a table.
type MissingColumnError struct {
	Column string
}

func (e *MissingColumnError) Error() string {
	return fmt.Sprintf("column %q not found", e.Column)
}
