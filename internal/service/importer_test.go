package service_test

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/mdouchement/starving/internal/apperror"
	"github.com/mdouchement/starving/internal/database"
	"github.com/mdouchement/starving/internal/docstore"
	"github.com/mdouchement/starving/internal/model"
	"github.com/mdouchement/starving/internal/remote"
	"github.com/mdouchement/starving/internal/service"
	"github.com/mdouchement/starving/pkg/deeplink"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type importFixture struct {
	docs     *docstore.Store
	db       database.Client
	resolver *service.ImportResolver
	listID   string
}

func newImportFixture(t *testing.T, policy docstore.Policy) *importFixture {
	ctx := context.Background()
	docs := newDocstore(t, policy)

	alice := service.NewSharingService(docs.As("alice"), service.StaticUser("alice"), "", nil)
	list, err := alice.CreateSharedList(ctx, "Weekly", "", items("Milk", "Eggs", "Bread"), "Alice", "https://example.com/alice.png")
	require.NoError(t, err)

	return &importFixture{
		docs:     docs,
		db:       newLocal(t),
		resolver: resolver(docs.As("bob"), nil),
		listID:   list.ID,
	}
}

func resolver(store remote.Store, db database.Client) *service.ImportResolver {
	sharing := service.NewSharingService(store, service.StaticUser("bob"), "", nil)
	return service.NewImportResolver(db, store, service.StaticUser("bob"), sharing, nil)
}

func failure(t *testing.T, err error) *service.ImportFailure {
	t.Helper()

	require.Error(t, err)
	f, ok := service.AsImportFailure(err)
	require.True(t, ok, "expected an import failure, got %T", err)
	return f
}

func TestImport(t *testing.T) {
	f := newImportFixture(t, docstore.Policy{RecipientWrites: true})
	r := resolver(f.docs.As("bob"), f.db)

	result, err := r.Resolve(context.Background(), "starving://share/"+f.listID)
	require.NoError(t, err)
	assert.Equal(t, 3, result.Count)
	assert.Equal(t, f.listID, result.ListID)
	assert.False(t, result.Registration.IsDegraded())
	assert.Equal(t, "3 items have been added to your grocery list.", service.ImportedMessage(result.Count))

	saved, err := f.db.FindItemsBySharedList(f.listID)
	require.NoError(t, err)
	require.Len(t, saved, 3)
	for _, item := range saved {
		require.NotNil(t, item.Provenance)
		assert.Equal(t, "alice", item.Provenance.SharerID)
		assert.Equal(t, "Alice", item.Provenance.SharerName)
		assert.Equal(t, "https://example.com/alice.png", item.Provenance.SharerAvatar)
		assert.False(t, item.Hidden)
		assert.False(t, item.Completed)
	}

	doc, err := f.docs.Get("alice", remote.SharedListsCollection, f.listID)
	require.NoError(t, err)
	list, err := remote.DecodeSharedList(doc)
	require.NoError(t, err)
	assert.Equal(t, []string{"bob"}, list.RecipientIDs)
	assert.True(t, model.FromUnixMillisecond(list.CreatedAt).Equal(result.SharedAt))

	// Importing again keeps the same local items, the registration is not written twice.
	store := &flaky{Store: f.docs.As("bob"), err: assert.AnError, fail: map[string]bool{"update": true}}
	result, err = resolver(store, f.db).Resolve(context.Background(), "starving://import/"+f.listID)
	require.NoError(t, err)
	assert.Equal(t, 3, result.Count)
	assert.False(t, result.Registration.IsDegraded())

	all, err := f.db.FindItems(true)
	require.NoError(t, err)
	assert.Len(t, all, 3)
}

func TestImport_RegistrationRejected(t *testing.T) {
	f := newImportFixture(t, docstore.Policy{})
	r := resolver(f.docs.As("bob"), f.db)

	result, err := r.ResolveList(context.Background(), f.listID)
	require.NoError(t, err)
	assert.Equal(t, 3, result.Count)
	assert.True(t, result.Registration.IsDegraded())
	assert.True(t, apperror.Is(result.Registration.Err, apperror.KindPermission))
}

func TestImport_InvalidLink(t *testing.T) {
	f := newImportFixture(t, docstore.Policy{})
	r := resolver(f.docs.As("bob"), f.db)

	_, err := r.Resolve(context.Background(), "https://example.com/share/x")
	assert.Equal(t, service.ReasonInvalidLink, failure(t, err).Reason)

	all, err := f.db.FindItems(true)
	require.NoError(t, err)
	assert.Empty(t, all)
}

func TestImport_NotFound(t *testing.T) {
	f := newImportFixture(t, docstore.Policy{})
	r := resolver(f.docs.As("bob"), f.db)

	_, err := r.Resolve(context.Background(), "starving://share/unknown")
	fail := failure(t, err)
	assert.Equal(t, service.ReasonInvalidOrExpired, fail.Reason)
	assert.Equal(t, service.MessageInvalidOrExpired, fail.Message())
}

func TestImport_MissingOwner(t *testing.T) {
	f := newImportFixture(t, docstore.Policy{})
	require.NoError(t, f.docs.Set("mallory", remote.SharedListsCollection, "L2", map[string]any{
		remote.FieldOwnerID: "mallory",
		"itemTitles":        []any{"Milk"},
	}))
	r := resolver(f.docs.As("bob"), f.db)

	_, err := r.ResolveList(context.Background(), "L2")
	assert.Equal(t, service.ReasonInvalidOrExpired, failure(t, err).Reason)

	all, err := f.db.FindItems(true)
	require.NoError(t, err)
	assert.Empty(t, all)
}

func TestImport_Connectivity(t *testing.T) {
	f := newImportFixture(t, docstore.Policy{})
	store := &flaky{
		Store: f.docs.As("bob"),
		err:   apperror.Connectivity(errors.New("connection refused")),
		fail:  map[string]bool{"get": true},
	}
	r := resolver(store, f.db)

	_, err := r.ResolveList(context.Background(), f.listID)
	fail := failure(t, err)
	assert.Equal(t, service.ReasonConnectivity, fail.Reason)
	assert.Equal(t, service.MessageConnectivity, fail.Message())

	all, err := f.db.FindItems(true)
	require.NoError(t, err)
	assert.Empty(t, all)
}

func TestImport_SaveFailed(t *testing.T) {
	f := newImportFixture(t, docstore.Policy{})
	db, err := database.StormOpen(filepath.Join(t.TempDir(), "closed.db"))
	require.NoError(t, err)
	require.NoError(t, db.Close())
	r := resolver(f.docs.As("bob"), db)

	_, err = r.ResolveList(context.Background(), f.listID)
	fail := failure(t, err)
	assert.Equal(t, service.ReasonSaveFailed, fail.Reason)
	assert.NotEmpty(t, fail.Detail)
	assert.Contains(t, fail.Error(), "save-failed: ")
	assert.Contains(t, fail.Message(), "Failed to import shared list: ")
}

func TestImport_File(t *testing.T) {
	f := newImportFixture(t, docstore.Policy{})
	r := resolver(f.docs.As("bob"), f.db)

	p := &deeplink.Payload{
		Items:     []string{"Apples", " ", "Pears"},
		OwnerID:   "carol",
		OwnerName: "Carol",
		SharedAt:  "2024-02-10T10:00:00Z",
	}
	data, err := p.Encode()
	require.NoError(t, err)
	filename := filepath.Join(t.TempDir(), "weekly.grocerylist")
	require.NoError(t, os.WriteFile(filename, data, 0o600))

	result, err := r.ResolveFile(context.Background(), filename)
	require.NoError(t, err)
	assert.Equal(t, 2, result.Count)
	assert.NotEmpty(t, result.ListID)
	assert.True(t, result.Registration.IsDegraded())
	assert.True(t, time.Date(2024, 2, 10, 10, 0, 0, 0, time.UTC).Equal(result.SharedAt))
	assert.Equal(t, "1 item has been added to your grocery list.", service.ImportedMessage(1))

	saved, err := f.db.FindItemsBySharedList(result.ListID)
	require.NoError(t, err)
	assert.Len(t, saved, 2)

	_, err = r.ResolveFile(context.Background(), filepath.Join(t.TempDir(), "notes.txt"))
	assert.Equal(t, service.ReasonInvalidLink, failure(t, err).Reason)
}
