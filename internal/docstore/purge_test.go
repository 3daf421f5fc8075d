package docstore_test

import (
	"testing"

	"github.com/mdouchement/starving/internal/apperror"
	"github.com/mdouchement/starving/internal/docstore"
	"github.com/mdouchement/starving/internal/remote"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPurge(t *testing.T) {
	store, cleanup := setup(t, docstore.Policy{})
	defer cleanup()

	require.NoError(t, store.Set("u1", remote.ItemsCollection("u1"), "i1", map[string]any{"title": "Milk"}))
	require.NoError(t, store.Set("u1", remote.ItemsCollection("u1"), "i2", map[string]any{"title": "Eggs"}))
	require.NoError(t, store.Set("u1", remote.DaysCollection("u1"), "d1", map[string]any{"itemIds": []any{"i1"}}))
	require.NoError(t, store.Set("u1", remote.PreferencesCollection, "u1", map[string]any{"cloudSyncEnabled": true}))
	require.NoError(t, store.Set("u1", remote.SharedListsCollection, "l1", list("u1", "u2")))
	require.NoError(t, store.Set("u2", remote.ItemsCollection("u2"), "i1", map[string]any{"title": "Bread"}))

	received := list("u2", "u1", "u3")
	received["completionStatus"] = map[string]any{"u1": true, "u3": false}
	require.NoError(t, store.Set("u2", remote.SharedListsCollection, "l2", received))

	report, err := store.Purge("u1")
	require.NoError(t, err)
	assert.Equal(t, docstore.PurgeReport{Documents: 4, SharedLists: 1, Memberships: 1}, report)

	_, err = store.Get("u1", remote.ItemsCollection("u1"), "i1")
	assert.True(t, apperror.Is(err, apperror.KindNotFound))
	_, err = store.Get("u1", remote.PreferencesCollection, "u1")
	assert.True(t, apperror.Is(err, apperror.KindNotFound))
	_, err = store.Get("u2", remote.SharedListsCollection, "l1")
	assert.True(t, apperror.Is(err, apperror.KindNotFound))

	doc, err := store.Get("u2", remote.ItemsCollection("u2"), "i1")
	require.NoError(t, err)
	assert.Equal(t, "Bread", doc.Data["title"])

	doc, err = store.Get("u2", remote.SharedListsCollection, "l2")
	require.NoError(t, err)
	assert.Equal(t, []any{"u3"}, doc.Data["recipientIds"])
	assert.Equal(t, map[string]any{"u3": false}, doc.Data["completionStatus"])

	_, err = store.Purge("")
	assert.True(t, apperror.Is(err, apperror.KindValidation))
}
