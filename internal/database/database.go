package database

import (
	"time"

	"github.com/mdouchement/starving/internal/model"
)

type (
	// A Client can interacts with the local database.
	Client interface {
		// Save inserts or updates the entry in database with the given model.
		// It refreshes the model's last update date.
		Save(m model.Model) error
		// Put inserts or updates the entry in database with the given model
		// and keeps the model's dates (used when a remote copy wins).
		Put(m model.Model) error
		// SaveAll inserts or updates all the given models in a single transaction.
		// Models without last update date are stamped.
		SaveAll(ms ...model.Model) error
		// Delete deletes the entry in database with the given model.
		Delete(m model.Model) error
		// Close the database.
		Close() error
		// Select runs a SQL SELECT statement over the items, days or preferences.
		// Columns are named after the JSON fields of the records.
		Select(sql string) ([]map[string]any, error)
		// IsNotFound returns true if err is a not found error.
		IsNotFound(err error) bool
		// IsAlreadyExists returns true if err is a unique constraint error.
		IsAlreadyExists(err error) bool

		ItemInteraction
		DayInteraction
		PreferencesInteraction
	}

	// An ItemInteraction defines all the methods used to interact with item records.
	ItemInteraction interface {
		// FindItem returns the item for the given id.
		FindItem(id string) (*model.Item, error)
		// FindItems returns all the items, hidden ones are included when includeHidden is true.
		FindItems(includeHidden bool) ([]*model.Item, error)
		// FindItemsByIDs returns the items matching the given ids, unknown ids are ignored.
		FindItemsByIDs(ids []string) ([]*model.Item, error)
		// FindItemsBySharedList returns the items imported from the given shared list.
		FindItemsBySharedList(listID string) ([]*model.Item, error)
		// DeleteItem deletes the item and removes it from every day referencing it.
		DeleteItem(id string) error
	}

	// A DayInteraction defines all the methods used to interact with day records.
	DayInteraction interface {
		// FindDay returns the day for the given id.
		FindDay(id string) (*model.Day, error)
		// FindDayByDate returns the day of the calendar date of t.
		FindDayByDate(t time.Time) (*model.Day, error)
		// FindDays returns all the days, most recent first.
		FindDays() ([]*model.Day, error)
		// TodayOrCreate returns the day of now, creating it on first access.
		TodayOrCreate(now time.Time) (*model.Day, error)
	}

	// A PreferencesInteraction defines all the methods used to interact with the preferences record.
	PreferencesInteraction interface {
		// FindPreferences returns the preferences of the given user.
		FindPreferences(userID string) (*model.UserPreferences, error)
	}
)
