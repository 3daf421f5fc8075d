package remote

import (
	"context"

	"github.com/mdouchement/starving/internal/apperror"
)

// A Backend is a document database acting on behalf of a caller.
type Backend interface {
	Get(caller, collection, id string) (*Document, error)
	Set(caller, collection, id string, data map[string]any) error
	Add(caller, collection, id string, data map[string]any) error
	Update(caller, collection, id string, ops []Op) error
	Delete(caller, collection, id string) error
	Query(caller string, q Query) ([]*Document, error)
}

// A Local is an in-process Store bound to a user.
type Local struct {
	backend Backend
	userID  string
}

// NewLocal returns a Store acting as userID directly on the backend.
func NewLocal(backend Backend, userID string) *Local {
	return &Local{
		backend: backend,
		userID:  userID,
	}
}

// NewID returns a fresh document id.
func (s *Local) NewID(string) string {
	return NewID()
}

// Get returns the document identified by collection and id.
func (s *Local) Get(ctx context.Context, collection, id string) (*Document, error) {
	if err := ctx.Err(); err != nil {
		return nil, apperror.Connectivity(err)
	}
	return s.backend.Get(s.userID, collection, id)
}

// Set creates or replaces the document.
func (s *Local) Set(ctx context.Context, collection, id string, data map[string]any) error {
	if err := ctx.Err(); err != nil {
		return apperror.Connectivity(err)
	}
	return s.backend.Set(s.userID, collection, id, data)
}

// Add creates a document with a generated id.
func (s *Local) Add(ctx context.Context, collection string, data map[string]any) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", apperror.Connectivity(err)
	}

	id := NewID()
	return id, s.backend.Add(s.userID, collection, id, data)
}

// Update applies the field operations on an existing document.
func (s *Local) Update(ctx context.Context, collection, id string, ops ...Op) error {
	if err := ctx.Err(); err != nil {
		return apperror.Connectivity(err)
	}
	return s.backend.Update(s.userID, collection, id, ops)
}

// Delete removes the document.
func (s *Local) Delete(ctx context.Context, collection, id string) error {
	if err := ctx.Err(); err != nil {
		return apperror.Connectivity(err)
	}
	return s.backend.Delete(s.userID, collection, id)
}

// Query returns the documents matching the query.
func (s *Local) Query(ctx context.Context, q Query) ([]*Document, error) {
	if err := ctx.Err(); err != nil {
		return nil, apperror.Connectivity(err)
	}
	return s.backend.Query(s.userID, q)
}
