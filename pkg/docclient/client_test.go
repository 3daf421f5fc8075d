package docclient_test

import (
	"context"
	"net/http"
	"net/http/httptest"
	"os"
	"testing"
	"time"

	"github.com/mdouchement/starving/internal/apperror"
	"github.com/mdouchement/starving/internal/docstore"
	"github.com/mdouchement/starving/internal/remote"
	"github.com/mdouchement/starving/internal/server"
	"github.com/mdouchement/starving/pkg/docclient"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var _ remote.Store = (*docclient.Client)(nil)

func setup(t *testing.T) (endpoint string, signingKey []byte, cleanup func()) {
	tmpfile, err := os.CreateTemp("", "starving.*.db")
	require.NoError(t, err)
	filename := tmpfile.Name()
	tmpfile.Close()

	store, err := docstore.Open(filename, docstore.Policy{}, nil)
	require.NoError(t, err)

	signingKey = []byte("secret")
	engine := server.EchoEngine(server.Controller{
		Version:    "test",
		Store:      store,
		SigningKey: signingKey,
	})
	ts := httptest.NewServer(engine)

	return ts.URL, signingKey, func() {
		ts.Close()
		store.Close()
		os.RemoveAll(filename)
	}
}

func client(t *testing.T, endpoint string, signingKey []byte, userID string) *docclient.Client {
	token, err := server.CreateJWT(signingKey, userID, time.Hour)
	require.NoError(t, err)

	c, err := docclient.NewDefaultClient(endpoint, token)
	require.NoError(t, err)
	return c
}

func TestClient(t *testing.T) {
	endpoint, key, cleanup := setup(t)
	defer cleanup()
	ctx := context.Background()

	alice := client(t, endpoint, key, "alice")

	version, err := alice.Version(ctx)
	require.NoError(t, err)
	assert.Equal(t, "test", version)

	me, err := alice.Me(ctx)
	require.NoError(t, err)
	assert.Equal(t, "alice", me)

	items := remote.ItemsCollection("alice")
	require.NoError(t, alice.Set(ctx, items, "i1", map[string]any{"title": "Milk", "lastUpdated": 10}))

	doc, err := alice.Get(ctx, items, "i1")
	require.NoError(t, err)
	assert.Equal(t, "Milk", doc.Data["title"])

	id, err := alice.Add(ctx, items, map[string]any{"title": "Eggs", "lastUpdated": 20})
	require.NoError(t, err)
	assert.NotEmpty(t, id)

	require.NoError(t, alice.Update(ctx, items, id, remote.SetField("isHidden", true)))

	docs, err := alice.Query(ctx, remote.From(items).Order("lastUpdated", true))
	require.NoError(t, err)
	require.Len(t, docs, 2)
	assert.Equal(t, id, docs[0].ID)
	assert.Equal(t, true, docs[0].Data["isHidden"])

	require.NoError(t, alice.Delete(ctx, items, "i1"))
	_, err = alice.Get(ctx, items, "i1")
	assert.True(t, apperror.Is(err, apperror.KindNotFound))
}

func TestClientErrors(t *testing.T) {
	endpoint, key, cleanup := setup(t)
	defer cleanup()
	ctx := context.Background()

	bob := client(t, endpoint, key, "bob")
	err := bob.Set(ctx, remote.ItemsCollection("alice"), "i1", map[string]any{"title": "Milk"})
	assert.True(t, apperror.Is(err, apperror.KindPermission))
	assert.Equal(t, apperror.TagPermissionDenied, err.(*apperror.Error).Tag())

	anonymous, err := docclient.NewDefaultClient(endpoint, "")
	require.NoError(t, err)
	_, err = anonymous.Me(ctx)
	assert.True(t, apperror.Is(err, apperror.KindPermission))
	assert.Equal(t, http.StatusUnauthorized, apperror.StatusCode(err))

	offline, err := docclient.NewDefaultClient("http://127.0.0.1:1", "token")
	require.NoError(t, err)
	_, err = offline.Get(ctx, remote.SharedListsCollection, "L1")
	assert.True(t, apperror.Is(err, apperror.KindConnectivity))
}
