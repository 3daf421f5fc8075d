package remote

import (
	"encoding/json"

	"github.com/mdouchement/starving/internal/model"
	"github.com/pkg/errors"
)

type (
	// An Item is the remote shape of a user's item.
	Item struct {
		Title            string `json:"title"`
		LastUpdated      int64  `json:"lastUpdated"`
		IsHidden         bool   `json:"isHidden"`
		IsCompleted      bool   `json:"isCompleted"`
		UserID           string `json:"userId"`
		LocalID          string `json:"localId,omitempty"`
		SharedByID       string `json:"sharedById,omitempty"`
		SharedByName     string `json:"sharedByName,omitempty"`
		SharedByPhotoURL string `json:"sharedByPhotoURL,omitempty"`
		SharedListID     string `json:"sharedListId,omitempty"`
	}

	// A Day is the remote shape of a user's day.
	Day struct {
		Date        int64    `json:"date"`
		ItemIDs     []string `json:"itemIds"`
		UserID      string   `json:"userId"`
		LocalID     string   `json:"localId,omitempty"`
		LastUpdated int64    `json:"lastUpdated"`
	}

	// Preferences is the remote shape of the user preferences.
	Preferences struct {
		UserID           string              `json:"userId"`
		CloudSyncEnabled bool                `json:"cloudSyncEnabled"`
		SyncFrequency    model.SyncFrequency `json:"syncFrequency"`
		LastSyncDate     int64               `json:"lastSyncDate,omitempty"`
		ShareEnabled     bool                `json:"shareEnabled"`
		LastUpdated      int64               `json:"lastUpdated"`
	}

	// A SharedList is a remote only list shared by its owner to recipients.
	// Recipients are never removed and completion entries are never deleted.
	SharedList struct {
		ID               string          `json:"-"`
		Name             string          `json:"name"`
		Description      string          `json:"description,omitempty"`
		ItemIDs          []string        `json:"itemIds"`
		ItemTitles       []string        `json:"itemTitles"`
		OwnerID          string          `json:"ownerId"`
		OwnerName        string          `json:"ownerName"`
		OwnerPhotoURL    string          `json:"ownerPhotoURL,omitempty"`
		RecipientIDs     []string        `json:"recipientIds"`
		CompletionStatus map[string]bool `json:"completionStatus"`
		CreatedAt        int64           `json:"createdAt"`
		LastUpdated      int64           `json:"lastUpdated"`
		ShareLink        string          `json:"shareLink,omitempty"`
	}
)

// SharedList fields used by queries and updates.
const (
	FieldOwnerID          = "ownerId"
	FieldRecipientIDs     = "recipientIds"
	FieldCompletionStatus = "completionStatus"
	FieldLastUpdated      = "lastUpdated"
	FieldCreatedAt        = "createdAt"
	FieldLocalID          = "localId"
	FieldUserID           = "userId"
)

// Encode converts v to document data.
func Encode(v any) (map[string]any, error) {
	payload, err := json.Marshal(v)
	if err != nil {
		return nil, errors.Wrap(err, "could not encode document")
	}

	var data map[string]any
	err = json.Unmarshal(payload, &data)
	return data, errors.Wrap(err, "could not encode document")
}

// Decode fills v with the document data.
func Decode(data map[string]any, v any) error {
	payload, err := json.Marshal(data)
	if err != nil {
		return errors.Wrap(err, "could not decode document")
	}
	return errors.Wrap(json.Unmarshal(payload, v), "could not decode document")
}

// Normalize converts data to its JSON representation (numbers become float64).
func Normalize(data map[string]any) (map[string]any, error) {
	if data == nil {
		return map[string]any{}, nil
	}
	return Encode(data)
}

//
// Conversions
//

// NewItem returns the remote shape of the given item.
func NewItem(userID string, item *model.Item) *Item {
	r := &Item{
		Title:       item.Title,
		LastUpdated: item.LastUpdated(),
		IsHidden:    item.Hidden,
		IsCompleted: item.Completed,
		UserID:      userID,
		LocalID:     item.ID,
	}
	if p := item.Provenance; p != nil {
		r.SharedByID = p.SharerID
		r.SharedByName = p.SharerName
		r.SharedByPhotoURL = p.SharerAvatar
		r.SharedListID = p.ListID
	}
	return r
}

// Apply overwrites the local item fields with the remote ones.
func (r *Item) Apply(item *model.Item) {
	item.Title = r.Title
	item.Hidden = r.IsHidden
	item.Completed = r.IsCompleted
	item.Provenance = nil
	if r.SharedListID != "" {
		item.Provenance = &model.ShareProvenance{
			SharerID:     r.SharedByID,
			SharerName:   r.SharedByName,
			SharerAvatar: r.SharedByPhotoURL,
			ListID:       r.SharedListID,
		}
	}
	item.SetUpdatedAt(model.FromUnixMillisecond(r.LastUpdated))
}

// Model returns a new local item built from the remote one.
func (r *Item) Model(documentID string) *model.Item {
	item := &model.Item{}
	item.ID = r.LocalID
	if item.ID == "" {
		item.ID = documentID
	}
	r.Apply(item)
	return item
}

// NewDay returns the remote shape of the given day.
func NewDay(userID string, day *model.Day) *Day {
	ids := make([]string, len(day.ItemIDs))
	copy(ids, day.ItemIDs)

	return &Day{
		Date:        model.UnixMillisecond(day.Date),
		ItemIDs:     ids,
		UserID:      userID,
		LocalID:     day.ID,
		LastUpdated: day.LastUpdated(),
	}
}

// Apply overwrites the local day membership with the remote one.
func (r *Day) Apply(day *model.Day) {
	day.ItemIDs = make([]string, len(r.ItemIDs))
	copy(day.ItemIDs, r.ItemIDs)
	day.SetUpdatedAt(model.FromUnixMillisecond(r.LastUpdated))
}

// Model returns a new local day built from the remote one.
func (r *Day) Model(documentID string) *model.Day {
	day := model.NewDay(model.FromUnixMillisecond(r.Date).Local())
	day.ID = r.LocalID
	if day.ID == "" {
		day.ID = documentID
	}
	if day.ID != documentID {
		day.RemoteID = documentID
	}
	r.Apply(day)
	return day
}

// NewPreferences returns the remote shape of the given preferences.
func NewPreferences(prefs *model.UserPreferences) *Preferences {
	r := &Preferences{
		UserID:           prefs.ID,
		CloudSyncEnabled: prefs.CloudSyncEnabled,
		SyncFrequency:    prefs.SyncFrequency,
		ShareEnabled:     prefs.ShareEnabled,
		LastUpdated:      prefs.LastUpdated(),
	}
	if prefs.LastSyncDate != nil {
		r.LastSyncDate = model.UnixMillisecond(*prefs.LastSyncDate)
	}
	return r
}

// Apply overwrites the local preferences with the remote ones.
func (r *Preferences) Apply(prefs *model.UserPreferences) {
	prefs.CloudSyncEnabled = r.CloudSyncEnabled
	prefs.SyncFrequency = r.SyncFrequency
	if !prefs.SyncFrequency.Valid() {
		prefs.SyncFrequency = model.SyncDaily
	}
	prefs.ShareEnabled = r.ShareEnabled
	prefs.LastSyncDate = nil
	if r.LastSyncDate > 0 {
		t := model.FromUnixMillisecond(r.LastSyncDate)
		prefs.LastSyncDate = &t
	}
	if r.LastUpdated > 0 {
		prefs.SetUpdatedAt(model.FromUnixMillisecond(r.LastUpdated))
	}
}

// DecodeSharedList returns the shared list stored in the given document.
func DecodeSharedList(doc *Document) (*SharedList, error) {
	var list SharedList
	if err := Decode(doc.Data, &list); err != nil {
		return nil, err
	}
	list.ID = doc.ID
	if list.CompletionStatus == nil {
		list.CompletionStatus = map[string]bool{}
	}
	return &list, nil
}

// HasRecipient returns true if the user has joined the list.
func (l *SharedList) HasRecipient(userID string) bool {
	for _, id := range l.RecipientIDs {
		if id == userID {
			return true
		}
	}
	return false
}

// Completed returns true when every recipient marked the list as completed.
func (l *SharedList) Completed() bool {
	if len(l.RecipientIDs) == 0 {
		return false
	}
	for _, id := range l.RecipientIDs {
		if !l.CompletionStatus[id] {
			return false
		}
	}
	return true
}
