package database_test

import (
	"os"
	"testing"
	"time"

	"github.com/mdouchement/starving/internal/database"
	"github.com/mdouchement/starving/internal/model"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func setup(t *testing.T) (db database.Client, cleanup func()) {
	tmpfile, err := os.CreateTemp("", "starving.*.db")
	require.NoError(t, err)
	filename := tmpfile.Name()
	tmpfile.Close()

	db, err = database.StormOpen(filename)
	require.NoError(t, err)

	return db, func() {
		db.Close()
		os.RemoveAll(filename)
	}
}

func TestSave(t *testing.T) {
	db, cleanup := setup(t)
	defer cleanup()

	item := model.NewItem("Milk")
	require.NoError(t, db.Save(item))
	assert.NotEmpty(t, item.ID)
	assert.NotNil(t, item.CreatedAt)
	assert.NotNil(t, item.UpdatedAt)

	found, err := db.FindItem(item.ID)
	require.NoError(t, err)
	assert.Equal(t, "Milk", found.Title)
	assert.Equal(t, item.LastUpdated(), found.LastUpdated())
}

func TestPut_KeepsTimestamps(t *testing.T) {
	db, cleanup := setup(t)
	defer cleanup()

	ts := time.Date(2020, 1, 2, 3, 4, 5, 6000000, time.UTC)
	item := model.NewItem("Bread")
	item.ID = "item-1"
	item.SetUpdatedAt(ts)

	require.NoError(t, db.Put(item))

	found, err := db.FindItem("item-1")
	require.NoError(t, err)
	assert.True(t, ts.Equal(*found.UpdatedAt))
}

func TestFindItems(t *testing.T) {
	db, cleanup := setup(t)
	defer cleanup()

	visible := model.NewItem("Eggs")
	hidden := model.NewItem("Flour")
	hidden.Hidden = true
	require.NoError(t, db.Save(visible))
	require.NoError(t, db.Save(hidden))

	items, err := db.FindItems(false)
	require.NoError(t, err)
	require.Len(t, items, 1)
	assert.Equal(t, "Eggs", items[0].Title)

	items, err = db.FindItems(true)
	require.NoError(t, err)
	assert.Len(t, items, 2)
}

func TestFindItemsBySharedList(t *testing.T) {
	db, cleanup := setup(t)
	defer cleanup()

	shared := model.NewItem("Rice")
	shared.Provenance = &model.ShareProvenance{SharerID: "alice", SharerName: "Alice", ListID: "L1"}
	other := model.NewItem("Pasta")
	other.Provenance = &model.ShareProvenance{SharerID: "bob", ListID: "L2"}
	require.NoError(t, db.SaveAll(shared, other, model.NewItem("Salt")))

	items, err := db.FindItemsBySharedList("L1")
	require.NoError(t, err)
	require.Len(t, items, 1)
	assert.Equal(t, "Rice", items[0].Title)
	assert.True(t, items[0].IsShared())
}

func TestDeleteItem_RemovesFromDays(t *testing.T) {
	db, cleanup := setup(t)
	defer cleanup()

	item := model.NewItem("Butter")
	require.NoError(t, db.Save(item))

	day, err := db.TodayOrCreate(time.Now())
	require.NoError(t, err)
	day.Add(item.ID)
	require.NoError(t, db.Save(day))

	require.NoError(t, db.DeleteItem(item.ID))

	_, err = db.FindItem(item.ID)
	assert.True(t, db.IsNotFound(err))

	day, err = db.FindDay(day.ID)
	require.NoError(t, err)
	assert.False(t, day.Contains(item.ID))
}

func TestTodayOrCreate(t *testing.T) {
	db, cleanup := setup(t)
	defer cleanup()

	morning := time.Date(2021, 5, 6, 8, 0, 0, 0, time.Local)
	evening := time.Date(2021, 5, 6, 21, 30, 0, 0, time.Local)

	d1, err := db.TodayOrCreate(morning)
	require.NoError(t, err)
	d2, err := db.TodayOrCreate(evening)
	require.NoError(t, err)
	assert.Equal(t, d1.ID, d2.ID)

	_, err = db.TodayOrCreate(morning.AddDate(0, 0, 1))
	require.NoError(t, err)

	days, err := db.FindDays()
	require.NoError(t, err)
	require.Len(t, days, 2)
	assert.True(t, days[0].Date.After(days[1].Date))

	// One day per date.
	err = db.Put(model.NewDay(evening))
	assert.True(t, db.IsAlreadyExists(err))
	assert.False(t, db.IsAlreadyExists(nil))
}

func TestFindPreferences(t *testing.T) {
	db, cleanup := setup(t)
	defer cleanup()

	_, err := db.FindPreferences("u1")
	assert.True(t, db.IsNotFound(err))

	prefs := model.NewUserPreferences("u1")
	prefs.CloudSyncEnabled = true
	require.NoError(t, db.Save(prefs))

	found, err := db.FindPreferences("u1")
	require.NoError(t, err)
	assert.True(t, found.CloudSyncEnabled)
	assert.Equal(t, model.SyncDaily, found.SyncFrequency)
}
