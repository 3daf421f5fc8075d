package model

import "time"

// A Day is the dated working list of the day.
// It references items by membership, items can exist without belonging to any Day.
type Day struct {
	Base `msgpack:",inline" storm:"inline"`

	Date    time.Time `json:"date"     msgpack:"date"     storm:"unique"`
	ItemIDs []string  `json:"item_ids" msgpack:"item_ids"`

	// RemoteID is the remote document holding this calendar day when it differs from ID.
	RemoteID string `json:"remote_id,omitempty" msgpack:"remote_id,omitempty"`
}

// NewDay returns a Day for the calendar day of t.
func NewDay(t time.Time) *Day {
	return &Day{
		Date:    StartOfDay(t),
		ItemIDs: []string{},
	}
}

// RemoteKey returns the id of the remote document of the day.
func (d *Day) RemoteKey() string {
	if d.RemoteID != "" {
		return d.RemoteID
	}
	return d.ID
}

// Contains returns true if the item belongs to the day.
func (d *Day) Contains(itemID string) bool {
	for _, id := range d.ItemIDs {
		if id == itemID {
			return true
		}
	}
	return false
}

// Add appends the item to the day, it returns false if it was already there.
func (d *Day) Add(itemID string) bool {
	if d.Contains(itemID) {
		return false
	}
	d.ItemIDs = append(d.ItemIDs, itemID)
	return true
}

// Remove removes the item from the day, it returns false if it was not there.
func (d *Day) Remove(itemID string) bool {
	for i, id := range d.ItemIDs {
		if id == itemID {
			d.ItemIDs = append(d.ItemIDs[:i], d.ItemIDs[i+1:]...)
			return true
		}
	}
	return false
}
