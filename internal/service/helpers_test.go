package service_test

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/mdouchement/starving/internal/database"
	"github.com/mdouchement/starving/internal/docstore"
	"github.com/mdouchement/starving/internal/remote"
	"github.com/stretchr/testify/require"
)

func newDocstore(t *testing.T, policy docstore.Policy) *docstore.Store {
	store, err := docstore.Open(filepath.Join(t.TempDir(), "documents.db"), policy, nil)
	require.NoError(t, err)
	t.Cleanup(func() { store.Close() })
	return store
}

func newLocal(t *testing.T) database.Client {
	db, err := database.StormOpen(filepath.Join(t.TempDir(), "local.db"))
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })
	return db
}

// flaky fails the configured operations with err.
type flaky struct {
	remote.Store
	err  error
	fail map[string]bool
}

func (f *flaky) Get(ctx context.Context, collection, id string) (*remote.Document, error) {
	if f.fail["get"] {
		return nil, f.err
	}
	return f.Store.Get(ctx, collection, id)
}

func (f *flaky) Set(ctx context.Context, collection, id string, data map[string]any) error {
	if f.fail["set"] {
		return f.err
	}
	return f.Store.Set(ctx, collection, id, data)
}

func (f *flaky) Update(ctx context.Context, collection, id string, ops ...remote.Op) error {
	if f.fail["update"] {
		return f.err
	}
	return f.Store.Update(ctx, collection, id, ops...)
}

func (f *flaky) Query(ctx context.Context, q remote.Query) ([]*remote.Document, error) {
	if f.fail["query"] {
		return nil, f.err
	}
	return f.Store.Query(ctx, q)
}
