package database

import (
	"time"

	"github.com/asdine/storm/v3"
	"github.com/asdine/storm/v3/codec/msgpack"
	"github.com/asdine/storm/v3/q"
	"github.com/gofrs/uuid"
	"github.com/mdouchement/starving/internal/model"
	"github.com/pkg/errors"
)

type strm struct {
	db  *storm.DB
	now func() time.Time
}

// StormCodec is the format used to store data in the database.
var StormCodec = storm.Codec(msgpack.Codec)

// StormInit initializes Storm database.
func StormInit(database string) error {
	db, err := storm.Open(database, StormCodec)
	if err != nil {
		return errors.Wrap(err, "could not get database connection")
	}
	defer db.Close()

	return errors.Wrap(initBuckets(db), "could not init indexes")
}

// StormReIndex reindex Storm database.
func StormReIndex(database string) error {
	db, err := storm.Open(database, StormCodec)
	if err != nil {
		return errors.Wrap(err, "could not get database connection")
	}
	defer db.Close()

	if err := db.ReIndex(&model.Item{}); err != nil {
		return errors.Wrap(err, "could not ReIndex items")
	}

	err = db.ReIndex(&model.Day{})
	return errors.Wrap(err, "could not ReIndex days")
}

// StormOpen returns a new Storm database connection.
func StormOpen(database string) (Client, error) {
	db, err := storm.Open(database, StormCodec)
	if err != nil {
		return nil, errors.Wrap(err, "could not get database connection")
	}

	if err = initBuckets(db); err != nil {
		db.Close()
		return nil, errors.Wrap(err, "could not init indexes")
	}

	return &strm{
		db:  db,
		now: time.Now,
	}, nil
}

func initBuckets(db *storm.DB) error {
	if err := db.Init(&model.Item{}); err != nil {
		return errors.Wrap(err, "could not init item index")
	}
	if err := db.Init(&model.Day{}); err != nil {
		return errors.Wrap(err, "could not init day index")
	}
	return errors.Wrap(db.Init(&model.UserPreferences{}), "could not init preferences index")
}

// Save inserts or updates the entry in database with the given model.
func (c *strm) Save(m model.Model) error {
	t := c.now()
	m.SetUpdatedAt(t)
	c.identify(m, t)

	return errors.Wrap(c.db.Save(m), "could not save the model")
}

// Put inserts or updates the entry in database and keeps the model's dates.
func (c *strm) Put(m model.Model) error {
	t := c.now()
	if m.GetUpdatedAt() == nil {
		m.SetUpdatedAt(t)
	}
	c.identify(m, t)

	return errors.Wrap(c.db.Save(m), "could not put the model")
}

// SaveAll inserts or updates all the given models in a single transaction.
func (c *strm) SaveAll(ms ...model.Model) error {
	tx, err := c.db.Begin(true)
	if err != nil {
		return errors.Wrap(err, "could not begin transaction")
	}
	defer tx.Rollback() // nolint:errcheck

	t := c.now()
	for _, m := range ms {
		if m.GetUpdatedAt() == nil {
			m.SetUpdatedAt(t)
		}
		c.identify(m, t)

		if err = tx.Save(m); err != nil {
			return errors.Wrap(err, "could not save the model")
		}
	}

	return errors.Wrap(tx.Commit(), "could not commit transaction")
}

func (c *strm) identify(m model.Model, t time.Time) {
	if m.GetID() == "" {
		m.SetID(uuid.Must(uuid.NewV4()).String())
	}
	if m.GetCreatedAt() == nil {
		m.SetCreatedAt(t)
	}
}

// Delete deletes the entry in database with the given model.
func (c *strm) Delete(m model.Model) error {
	return errors.Wrap(c.db.DeleteStruct(m), "could not delete the model")
}

// Close the database.
func (c *strm) Close() error {
	return c.db.Close()
}

// IsNotFound returns true if err is nil or a not found error.
func (c *strm) IsNotFound(err error) bool {
	return errors.Cause(err) == storm.ErrNotFound
}

// IsAlreadyExists returns true if err is a unique constraint error.
func (c *strm) IsAlreadyExists(err error) bool {
	return errors.Cause(err) == storm.ErrAlreadyExists
}

//
// Items
//

// FindItem returns the item for the given id.
func (c *strm) FindItem(id string) (*model.Item, error) {
	var item model.Item
	if err := c.db.One("ID", id, &item); err != nil {
		return nil, errors.Wrap(err, "could not find item")
	}
	return &item, nil
}

// FindItems returns all the items, oldest first.
func (c *strm) FindItems(includeHidden bool) ([]*model.Item, error) {
	items := make([]*model.Item, 0)

	var err error
	if includeHidden {
		err = c.db.AllByIndex("CreatedAt", &items)
	} else {
		err = c.db.Select(q.Eq("Hidden", false)).OrderBy("CreatedAt").Find(&items)
	}
	if err != nil && !c.IsNotFound(err) {
		return nil, errors.Wrap(err, "could not find items")
	}
	return items, nil
}

// FindItemsByIDs returns the items matching the given ids, in the given order.
func (c *strm) FindItemsByIDs(ids []string) ([]*model.Item, error) {
	items := make([]*model.Item, 0, len(ids))
	for _, id := range ids {
		item, err := c.FindItem(id)
		if err != nil {
			if c.IsNotFound(err) {
				continue
			}
			return nil, err
		}
		items = append(items, item)
	}
	return items, nil
}

// FindItemsBySharedList returns the items imported from the given shared list.
func (c *strm) FindItemsBySharedList(listID string) ([]*model.Item, error) {
	items := make([]*model.Item, 0)
	err := c.db.Select(q.NewFieldMatcher("Provenance", provenanceMatcher(listID))).OrderBy("CreatedAt").Find(&items)
	if err != nil && !c.IsNotFound(err) {
		return nil, errors.Wrap(err, "could not find items by shared list")
	}
	return items, nil
}

// DeleteItem deletes the item and removes it from every day referencing it.
func (c *strm) DeleteItem(id string) error {
	tx, err := c.db.Begin(true)
	if err != nil {
		return errors.Wrap(err, "could not begin transaction")
	}
	defer tx.Rollback() // nolint:errcheck

	var item model.Item
	if err = tx.One("ID", id, &item); err != nil {
		return errors.Wrap(err, "could not find item")
	}

	days := make([]*model.Day, 0)
	if err = tx.All(&days); err != nil && !c.IsNotFound(err) {
		return errors.Wrap(err, "could not find days")
	}
	t := c.now()
	for _, day := range days {
		if !day.Remove(id) {
			continue
		}
		day.SetUpdatedAt(t)
		if err = tx.Save(day); err != nil {
			return errors.Wrap(err, "could not update day")
		}
	}

	if err = tx.DeleteStruct(&item); err != nil {
		return errors.Wrap(err, "could not delete item")
	}
	return errors.Wrap(tx.Commit(), "could not commit transaction")
}

//
// Days
//

// FindDay returns the day for the given id.
func (c *strm) FindDay(id string) (*model.Day, error) {
	var day model.Day
	if err := c.db.One("ID", id, &day); err != nil {
		return nil, errors.Wrap(err, "could not find day")
	}
	return &day, nil
}

// FindDayByDate returns the day of the calendar date of t.
func (c *strm) FindDayByDate(t time.Time) (*model.Day, error) {
	var day model.Day
	if err := c.db.One("Date", model.StartOfDay(t), &day); err != nil {
		return nil, errors.Wrap(err, "could not find day by date")
	}
	return &day, nil
}

// FindDays returns all the days, most recent first.
func (c *strm) FindDays() ([]*model.Day, error) {
	days := make([]*model.Day, 0)
	err := c.db.AllByIndex("Date", &days, storm.Reverse())
	if err != nil && !c.IsNotFound(err) {
		return nil, errors.Wrap(err, "could not find days")
	}
	return days, nil
}

// TodayOrCreate returns the day of now, creating it on first access.
func (c *strm) TodayOrCreate(now time.Time) (*model.Day, error) {
	day, err := c.FindDayByDate(now)
	if err == nil {
		return day, nil
	}
	if !c.IsNotFound(err) {
		return nil, err
	}

	day = model.NewDay(now)
	if err = c.Save(day); err != nil {
		if c.IsAlreadyExists(err) {
			// Created meanwhile by another writer.
			return c.FindDayByDate(now)
		}
		return nil, errors.Wrap(err, "could not create day")
	}
	return day, nil
}

//
// Preferences
//

// FindPreferences returns the preferences of the given user.
func (c *strm) FindPreferences(userID string) (*model.UserPreferences, error) {
	var prefs model.UserPreferences
	if err := c.db.One("ID", userID, &prefs); err != nil {
		return nil, errors.Wrap(err, "could not find preferences")
	}
	return &prefs, nil
}

//
// Matchers
//

type provenanceMatcher string

func (m provenanceMatcher) MatchField(v any) (bool, error) {
	p, ok := v.(*model.ShareProvenance)
	if !ok || p == nil {
		return false, nil
	}
	return p.ListID == string(m), nil
}
