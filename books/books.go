// Package books carries the static catalog used to seed an empty library.
package books

import (
	_ "embed"
	"encoding/json"

	"librarycatalog/model"
)

//go:embed books.json
var raw []byte

// All returns the bundled catalog entries.
func All() ([]model.BookInput, error) {
	var entries []model.BookInput
	if err := json.Unmarshal(raw, &entries); err != nil {
		return nil, err
	}
	return entries, nil
}
