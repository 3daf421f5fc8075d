package model_test

import (
	"testing"
	"time"

	"github.com/mdouchement/starving/internal/model"
	"github.com/stretchr/testify/assert"
)

func TestUnixMillisecond(t *testing.T) {
	ts := time.Date(2022, 3, 4, 5, 6, 7, 891234567, time.UTC)
	ms := model.UnixMillisecond(ts)

	assert.Equal(t, int64(1646370367891), ms)
	assert.Equal(t, model.Truncate(ts), model.FromUnixMillisecond(ms))
}

func TestDay(t *testing.T) {
	day := model.NewDay(time.Date(2022, 3, 4, 15, 0, 0, 0, time.UTC))
	assert.Equal(t, time.Date(2022, 3, 4, 0, 0, 0, 0, time.UTC), day.Date)

	assert.True(t, day.Add("a"))
	assert.False(t, day.Add("a"))
	assert.True(t, day.Add("b"))
	assert.Equal(t, []string{"a", "b"}, day.ItemIDs)

	assert.True(t, day.Remove("a"))
	assert.False(t, day.Remove("a"))
	assert.Equal(t, []string{"b"}, day.ItemIDs)
}

func TestSyncFrequency(t *testing.T) {
	assert.True(t, model.SyncHourly.Valid())
	assert.False(t, model.SyncFrequency("weekly").Valid())
	assert.Equal(t, "Wi-Fi only", model.SyncWifiOnly.DisplayName())
	assert.Equal(t, model.SyncDaily, model.NewUserPreferences("u").SyncFrequency)
}

func TestItem(t *testing.T) {
	item := model.NewItem("Milk")
	assert.False(t, item.IsShared())
	assert.Empty(t, item.SharedListID())

	item.Provenance = &model.ShareProvenance{ListID: "L1"}
	assert.True(t, item.IsShared())
	assert.Equal(t, "L1", item.SharedListID())
}
