package hybrid_test

import (
	"context"
	"errors"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/mdouchement/starving/internal/apperror"
	"github.com/mdouchement/starving/internal/database"
	"github.com/mdouchement/starving/internal/docstore"
	"github.com/mdouchement/starving/internal/hybrid"
	"github.com/mdouchement/starving/internal/remote"
	"github.com/mdouchement/starving/internal/service"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fixture struct {
	docs  *docstore.Store
	db    database.Client
	user  *service.CurrentUser
	store *switchable
	m     *hybrid.Manager
}

func setup(t *testing.T, policy docstore.Policy, userID string) *fixture {
	docs, err := docstore.Open(filepath.Join(t.TempDir(), "documents.db"), policy, nil)
	require.NoError(t, err)
	t.Cleanup(func() { docs.Close() })

	return newDevice(t, docs, userID, true)
}

// newDevice returns a device holding the credentials of userID, signed in when signedIn is true.
func newDevice(t *testing.T, docs *docstore.Store, userID string, signedIn bool) *fixture {
	db, err := database.StormOpen(filepath.Join(t.TempDir(), "local.db"))
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })

	user := service.NewCurrentUser("")
	if signedIn {
		user.SignIn(userID)
	}
	store := &switchable{Store: docs.As(userID)}
	m := hybrid.New(db, store, user, hybrid.Options{
		StatusResetDelay: time.Hour,
		OwnerName:        "Alice",
	})
	return &fixture{docs: docs, db: db, user: user, store: store, m: m}
}

// switchable fails every write once broken.
type switchable struct {
	remote.Store
	broken bool
}

func (s *switchable) Set(ctx context.Context, collection, id string, data map[string]any) error {
	if s.broken {
		return apperror.Connectivity(errors.New("connection refused"))
	}
	return s.Store.Set(ctx, collection, id, data)
}

func next(t *testing.T, events <-chan hybrid.Event) hybrid.Event {
	t.Helper()

	select {
	case ev := <-events:
		return ev
	case <-time.After(5 * time.Second):
		t.Fatal("no event received")
		return nil
	}
}

func TestManager_LocalFirst(t *testing.T) {
	ctx := context.Background()
	f := setup(t, docstore.Policy{}, "alice")

	_, err := f.m.AddItem(ctx, "  ")
	assert.True(t, apperror.Is(err, apperror.KindValidation))

	milk, err := f.m.AddItem(ctx, "Milk")
	require.NoError(t, err)
	f.m.Wait()

	_, err = f.docs.Get("alice", remote.ItemsCollection("alice"), milk.ID)
	assert.True(t, apperror.Is(err, apperror.KindNotFound), "nothing is mirrored while sync is disabled")

	report, err := f.m.EnableCloudSync(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, report.Pushed)

	eggs, err := f.m.AddItem(ctx, "Eggs")
	require.NoError(t, err)
	_, err = f.m.UpdateItem(ctx, milk.ID, "Whole milk")
	require.NoError(t, err)
	f.m.Wait()

	doc, err := f.docs.Get("alice", remote.ItemsCollection("alice"), eggs.ID)
	require.NoError(t, err)
	assert.Equal(t, "Eggs", doc.Data["title"])

	doc, err = f.docs.Get("alice", remote.ItemsCollection("alice"), milk.ID)
	require.NoError(t, err)
	assert.Equal(t, "Whole milk", doc.Data["title"])

	_, err = f.m.UpdateItem(ctx, "unknown", "Bread")
	assert.True(t, apperror.Is(err, apperror.KindNotFound))
}

func TestManager_MirrorFailure(t *testing.T) {
	ctx := context.Background()
	f := setup(t, docstore.Policy{}, "alice")

	_, err := f.m.EnableCloudSync(ctx)
	require.NoError(t, err)
	f.store.broken = true

	events, cancel := f.m.Subscribe()
	defer cancel()

	item, err := f.m.AddItem(ctx, "Milk")
	require.NoError(t, err, "local mutation succeeds while the remote is unreachable")
	f.m.Wait()

	stored, err := f.db.FindItem(item.ID)
	require.NoError(t, err)
	assert.Equal(t, "Milk", stored.Title)

	ev := next(t, events).(hybrid.SyncStatusChanged)
	assert.Equal(t, service.StateError, ev.Status.State)
	assert.Contains(t, ev.Status.Message, "could not mirror item")
	assert.Equal(t, service.StateError, f.m.SyncStatus().State)
}

func TestManager_SyncStatusEvents(t *testing.T) {
	ctx := context.Background()
	f := setup(t, docstore.Policy{}, "alice")

	_, err := f.m.AddItem(ctx, "Milk")
	require.NoError(t, err)

	events, cancel := f.m.Subscribe()
	defer cancel()

	_, err = f.m.EnableCloudSync(ctx)
	require.NoError(t, err)

	assert.Equal(t, hybrid.SyncStatusChanged{Status: service.SyncStatus{State: service.StateSyncing}}, next(t, events))
	assert.Equal(t, hybrid.SyncStatusChanged{Status: service.SyncStatus{State: service.StateSuccess}}, next(t, events))
	assert.Equal(t, service.StateSuccess, f.m.SyncStatus().State)
}

func TestManager_Today(t *testing.T) {
	ctx := context.Background()
	f := setup(t, docstore.Policy{}, "alice")
	_, err := f.m.EnableCloudSync(ctx)
	require.NoError(t, err)

	milk, err := f.m.AddItem(ctx, "Milk")
	require.NoError(t, err)
	eggs, err := f.m.AddItem(ctx, "Eggs")
	require.NoError(t, err)

	_, err = f.m.AddToToday(ctx, milk.ID)
	require.NoError(t, err)
	_, err = f.m.AddToToday(ctx, eggs.ID)
	require.NoError(t, err)
	_, err = f.m.AddToToday(ctx, "unknown")
	assert.True(t, apperror.Is(err, apperror.KindNotFound))

	day, items, err := f.m.Today(ctx)
	require.NoError(t, err)
	assert.Equal(t, []string{milk.ID, eggs.ID}, day.ItemIDs)
	assert.Len(t, items, 2)

	day, err = f.m.RemoveFromToday(ctx, eggs.ID)
	require.NoError(t, err)
	assert.Equal(t, []string{milk.ID}, day.ItemIDs)
	_, err = f.db.FindItem(eggs.ID)
	assert.NoError(t, err, "removing from today keeps the item")

	require.NoError(t, f.m.DeleteItem(ctx, milk.ID))
	f.m.Wait()

	day, items, err = f.m.Today(ctx)
	require.NoError(t, err)
	assert.Empty(t, day.ItemIDs)
	assert.Empty(t, items)

	_, err = f.docs.Get("alice", remote.ItemsCollection("alice"), milk.ID)
	assert.True(t, apperror.Is(err, apperror.KindNotFound))

	docs, err := f.docs.Query("alice", remote.From(remote.DaysCollection("alice")))
	require.NoError(t, err)
	require.Len(t, docs, 1)
	assert.Empty(t, docs[0].Data["itemIds"])

	assert.True(t, apperror.Is(f.m.DeleteItem(ctx, milk.ID), apperror.KindNotFound))
}

func TestManager_HideAndComplete(t *testing.T) {
	ctx := context.Background()
	f := setup(t, docstore.Policy{}, "alice")

	milk, err := f.m.AddItem(ctx, "Milk")
	require.NoError(t, err)

	_, err = f.m.SetHidden(ctx, milk.ID, true)
	require.NoError(t, err)
	visible, err := f.m.Items(false)
	require.NoError(t, err)
	assert.Empty(t, visible)

	item, err := f.m.SetCompleted(ctx, milk.ID, true)
	require.NoError(t, err)
	assert.True(t, item.Completed)
	assert.True(t, item.Hidden)
}

func TestManager_ShareAndJoin(t *testing.T) {
	ctx := context.Background()
	alice := setup(t, docstore.Policy{RecipientWrites: true}, "alice")

	var ids []string
	for _, title := range []string{"Milk", "Eggs", "Bread"} {
		item, err := alice.m.AddItem(ctx, title)
		require.NoError(t, err)
		ids = append(ids, item.ID)
	}

	list, err := alice.m.CreateSharedList(ctx, "Weekly", "", ids)
	require.NoError(t, err)
	assert.Equal(t, "Alice", list.OwnerName)

	bob := newDevice(t, alice.docs, "bob", false)
	events, cancel := bob.m.Subscribe()
	defer cancel()

	_, err = bob.m.JoinSharedList(ctx, "starving://share/unknown")
	assert.ErrorIs(t, err, hybrid.ErrAuthenticationRequired)
	_, err = bob.m.JoinSharedList(ctx, list.ShareLink)
	assert.ErrorIs(t, err, hybrid.ErrAuthenticationRequired)
	assert.Equal(t, list.ShareLink, bob.m.Pending(), "most recent link wins")

	result, err := bob.m.Authenticated(ctx, "bob")
	require.NoError(t, err)
	require.NotNil(t, result)
	assert.Equal(t, 3, result.Count)
	assert.Empty(t, bob.m.Pending())

	assert.Equal(t, hybrid.ImportSucceeded{
		ListID:  list.ID,
		Count:   3,
		Message: "3 items have been added to your grocery list.",
	}, next(t, events))

	// Replayed once.
	result, err = bob.m.Authenticated(ctx, "bob")
	require.NoError(t, err)
	assert.Nil(t, result)

	lists, err := bob.m.LoadSharedLists(ctx)
	require.NoError(t, err)
	require.Len(t, lists, 1)
	assert.Equal(t, list.ID, lists[0].ID)

	lists, err = bob.m.ReceivedSharedLists(ctx)
	require.NoError(t, err)
	require.Len(t, lists, 1)
	assert.Equal(t, list.ID, lists[0].ID)

	lists, err = alice.m.ReceivedSharedLists(ctx)
	require.NoError(t, err)
	assert.Empty(t, lists, "owned lists are not received lists")

	// Completing every imported item reports the progress to the owner.
	imported, err := bob.db.FindItemsBySharedList(list.ID)
	require.NoError(t, err)
	for _, item := range imported {
		_, err = bob.m.SetCompleted(ctx, item.ID, true)
		require.NoError(t, err)
	}
	bob.m.Wait()

	list, err = alice.m.SharedList(ctx, list.ID)
	require.NoError(t, err)
	assert.Equal(t, map[string]bool{"bob": true}, list.CompletionStatus)
	assert.True(t, list.Completed())

	assert.False(t, bob.m.SetCompletion(ctx, list.ID, false).IsDegraded())
}

func TestManager_ImportFailures(t *testing.T) {
	ctx := context.Background()
	f := setup(t, docstore.Policy{}, "bob")

	events, cancel := f.m.Subscribe()
	defer cancel()

	_, err := f.m.JoinSharedList(ctx, "https://example.com/share/L1")
	require.Error(t, err)
	assert.Equal(t, hybrid.ImportFailed{
		Reason:  service.ReasonInvalidLink,
		Failure: "invalid-link",
		Message: service.MessageInvalidOrExpired,
	}, next(t, events))

	_, err = f.m.JoinSharedList(ctx, "starving://import/unknown")
	require.Error(t, err)
	assert.Equal(t, hybrid.ImportFailed{
		Reason:  service.ReasonInvalidOrExpired,
		Failure: "invalid-or-expired",
		Message: service.MessageInvalidOrExpired,
	}, next(t, events))

	_, err = f.m.ImportFile(ctx, filepath.Join(t.TempDir(), "missing.grocerylist"))
	require.Error(t, err)
	assert.Equal(t, service.ReasonInvalidLink, next(t, events).(hybrid.ImportFailed).Reason)

	// Commit failure carries its detail.
	alice := newDevice(t, f.docs, "alice", true)
	milk, err := alice.m.AddItem(ctx, "Milk")
	require.NoError(t, err)
	list, err := alice.m.CreateSharedList(ctx, "Weekly", "", []string{milk.ID})
	require.NoError(t, err)

	require.NoError(t, f.db.Close())
	_, err = f.m.JoinSharedList(ctx, list.ShareLink)
	require.Error(t, err)

	failed := next(t, events).(hybrid.ImportFailed)
	assert.Equal(t, service.ReasonSaveFailed, failed.Reason)
	require.True(t, strings.HasPrefix(failed.Failure, "save-failed: "), failed.Failure)
	detail := strings.TrimPrefix(failed.Failure, "save-failed: ")
	assert.NotEmpty(t, detail)
	assert.Equal(t, "Failed to import shared list: "+detail, failed.Message)
}
