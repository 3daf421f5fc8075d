// Package remote defines the client side view of the remote document database.
//
// Documents are schemaless maps addressed by collection and id. Collections are
// slash separated paths such as "users/{uid}/items".
package remote

import (
	"context"
	"strings"

	"github.com/gofrs/uuid"
)

// Collections.
const (
	PreferencesCollection = "userPreferences"
	SharedListsCollection = "sharedLists"
)

// ItemsCollection returns the collection of the given user's items.
func ItemsCollection(userID string) string {
	return "users/" + userID + "/items"
}

// DaysCollection returns the collection of the given user's days.
func DaysCollection(userID string) string {
	return "users/" + userID + "/days"
}

// CollectionOwner returns the user id scoping the collection, or an empty string for top level collections.
func CollectionOwner(collection string) string {
	parts := strings.Split(collection, "/")
	if len(parts) == 3 && parts[0] == "users" {
		return parts[1]
	}
	return ""
}

type (
	// A Store issues CRUD and query operations against the remote document database.
	// It carries no business policy.
	Store interface {
		// NewID returns a fresh document id for the given collection.
		NewID(collection string) string
		// Get returns the document identified by collection and id.
		Get(ctx context.Context, collection, id string) (*Document, error)
		// Set creates or replaces the document.
		Set(ctx context.Context, collection, id string, data map[string]any) error
		// Add creates a document with a generated id and returns that id.
		Add(ctx context.Context, collection string, data map[string]any) (string, error)
		// Update applies the field operations on an existing document.
		Update(ctx context.Context, collection, id string, ops ...Op) error
		// Delete removes the document. Deleting a missing document is not an error.
		Delete(ctx context.Context, collection, id string) error
		// Query returns the documents matching the query.
		Query(ctx context.Context, q Query) ([]*Document, error)
	}

	// A Document is a remote record.
	Document struct {
		ID   string         `json:"id"`
		Data map[string]any `json:"data"`
	}
)

// NewID returns a random document id.
func NewID() string {
	return strings.ReplaceAll(uuid.Must(uuid.NewV4()).String(), "-", "")
}

//
// Field operations
//

// An OpKind is the kind of a field operation.
type OpKind string

// Supported field operations.
const (
	OpSet        OpKind = "set"
	OpArrayUnion OpKind = "arrayUnion"
	OpMapSet     OpKind = "mapSet"
)

// An Op is a field operation applied by Update.
type Op struct {
	Kind   OpKind `json:"op"`
	Path   string `json:"path"`
	Key    string `json:"key,omitempty"`
	Value  any    `json:"value,omitempty"`
	Values []any  `json:"values,omitempty"`
}

// SetField sets the field at path.
func SetField(path string, v any) Op {
	return Op{Kind: OpSet, Path: path, Value: v}
}

// ArrayUnion appends the values missing from the array at path.
func ArrayUnion(path string, vs ...any) Op {
	return Op{Kind: OpArrayUnion, Path: path, Values: vs}
}

// MapSet sets the entry key of the map at path.
func MapSet(path, key string, v any) Op {
	return Op{Kind: OpMapSet, Path: path, Key: key, Value: v}
}

//
// Queries
//

// An Operator is a query filter operator.
type Operator string

// Supported filter operators.
const (
	Equal         Operator = "=="
	ArrayContains Operator = "array-contains"
)

type (
	// A Filter restricts the documents returned by a query.
	Filter struct {
		Field    string   `json:"field"`
		Operator Operator `json:"operator"`
		Value    any      `json:"value"`
	}

	// A Query selects documents of a collection.
	Query struct {
		Collection string   `json:"collection"`
		Where      []Filter `json:"where,omitempty"`
		OrderBy    string   `json:"order_by,omitempty"`
		Descending bool     `json:"descending,omitempty"`
		Limit      int      `json:"limit,omitempty"`
	}
)

// From starts a query on the given collection.
func From(collection string) Query {
	return Query{Collection: collection}
}

// WhereEqual adds an equality filter.
func (q Query) WhereEqual(field string, v any) Query {
	q.Where = append(q.Where, Filter{Field: field, Operator: Equal, Value: v})
	return q
}

// WhereArrayContains adds a membership filter.
func (q Query) WhereArrayContains(field string, v any) Query {
	q.Where = append(q.Where, Filter{Field: field, Operator: ArrayContains, Value: v})
	return q
}

// Order sorts the results by the given field.
func (q Query) Order(field string, descending bool) Query {
	q.OrderBy = field
	q.Descending = descending
	return q
}

// Take limits the number of results.
func (q Query) Take(n int) Query {
	q.Limit = n
	return q
}
