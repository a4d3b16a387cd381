// model/book.go
package model

// Book is the catalog entry plus its inventory counters. Available is
// mutated only through the borrow/return paths and must stay within
// [0, Copies].
type Book struct {
	ID          int64    `json:"id"`
	Title       string   `json:"title"`
	Category    string   `json:"category"`
	Genres      []string `json:"genres"`
	Authors     []string `json:"authors"`
	URL         string   `json:"url,omitempty"`
	Description []string `json:"description,omitempty"`
	Pages       int      `json:"pages,omitempty"`
	Copies      int64    `json:"copies"`
	Available   int64    `json:"available"`
}

// Borrowed is the number of copies currently out on loan.
func (b *Book) Borrowed() int64 { return b.Copies - b.Available }

// BookInput carries the fields for creating or seeding a catalog entry.
// swagger:model BookInput
type BookInput struct {
	Title       string   `json:"title" validate:"required"`
	Category    string   `json:"category" validate:"required"`
	Genres      []string `json:"genres" validate:"required,min=1"`
	Authors     []string `json:"authors" validate:"required,min=1"`
	URL         string   `json:"url"`
	Description []string `json:"description"`
	Pages       int      `json:"pages" validate:"gte=0"`
	Copies      int64    `json:"copies" validate:"gte=0"`
}
