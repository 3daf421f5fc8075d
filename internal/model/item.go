package model

type (
	// An Item is a purchasable entry of the grocery list.
	Item struct {
		Base `msgpack:",inline" storm:"inline"`

		Title     string `json:"title"     msgpack:"title"`
		Hidden    bool   `json:"hidden"    msgpack:"hidden"    storm:"index"`
		Completed bool   `json:"completed" msgpack:"completed"`
		// Provenance is set when the item has been imported from a shared list.
		Provenance *ShareProvenance `json:"provenance,omitempty" msgpack:"provenance,omitempty"`
	}

	// A ShareProvenance tells who shared an item and from which list.
	ShareProvenance struct {
		SharerID     string `json:"sharer_id"     msgpack:"sharer_id"`
		SharerName   string `json:"sharer_name"   msgpack:"sharer_name"`
		SharerAvatar string `json:"sharer_avatar" msgpack:"sharer_avatar,omitempty"`
		ListID       string `json:"list_id"       msgpack:"list_id"`
	}
)

// NewItem returns a new visible item with the given title.
func NewItem(title string) *Item {
	return &Item{Title: title}
}

// IsShared returns true if the item comes from a shared list.
func (i *Item) IsShared() bool {
	return i.Provenance != nil
}

// SharedListID returns the originating shared list id, or an empty string.
func (i *Item) SharedListID() string {
	if i.Provenance == nil {
		return ""
	}
	return i.Provenance.ListID
}
