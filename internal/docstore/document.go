package docstore

import (
	"time"
)

// A Document is a stored remote document.
type Document struct {
	Key        string `storm:"id"`
	Collection string `storm:"index"`
	DocID      string
	Data       map[string]any
	CreatedAt  time.Time
	UpdatedAt  time.Time
}

func key(collection, id string) string {
	return collection + "/" + id
}
