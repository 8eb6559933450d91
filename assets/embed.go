// Package assets embeds the static data files the server ships with:
// the parts catalog and the default crossword seed set.
package assets

import (
	"embed"
)

//go:embed catalog.yaml puzzles.yaml
var FS embed.FS

// Catalog returns the default parts catalog document.
func Catalog() ([]byte, error) {
	return FS.ReadFile("catalog.yaml")
}

// Puzzles returns the default crossword seed document.
func Puzzles() ([]byte, error) {
	return FS.ReadFile("puzzles.yaml")
}
