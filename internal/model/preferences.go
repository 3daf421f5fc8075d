package model

import "time"

// A SyncFrequency defines how often a device wants to sync.
type SyncFrequency string

// Supported frequencies.
const (
	SyncRealTime SyncFrequency = "realTime"
	SyncHourly   SyncFrequency = "hourly"
	SyncDaily    SyncFrequency = "daily"
	SyncWifiOnly SyncFrequency = "wifiOnly"
	SyncManual   SyncFrequency = "manual"
)

// SyncFrequencies lists all the supported frequencies.
var SyncFrequencies = []SyncFrequency{SyncRealTime, SyncHourly, SyncDaily, SyncWifiOnly, SyncManual}

// DisplayName returns a human readable frequency.
func (f SyncFrequency) DisplayName() string {
	switch f {
	case SyncRealTime:
		return "Real-time"
	case SyncHourly:
		return "Every hour"
	case SyncDaily:
		return "Daily"
	case SyncWifiOnly:
		return "Wi-Fi only"
	case SyncManual:
		return "Manual"
	default:
		return string(f)
	}
}

// Valid returns true for a known frequency.
func (f SyncFrequency) Valid() bool {
	for _, v := range SyncFrequencies {
		if v == f {
			return true
		}
	}
	return false
}

// UserPreferences holds the sync settings of a user. Its ID is the user id.
type UserPreferences struct {
	Base `msgpack:",inline" storm:"inline"`

	CloudSyncEnabled bool          `json:"cloud_sync_enabled" msgpack:"cloud_sync_enabled"`
	SyncFrequency    SyncFrequency `json:"sync_frequency"     msgpack:"sync_frequency"`
	LastSyncDate     *time.Time    `json:"last_sync_date"     msgpack:"last_sync_date"`
	ShareEnabled     bool          `json:"share_enabled"      msgpack:"share_enabled"`
}

// NewUserPreferences returns the default preferences of the given user, sync is disabled.
func NewUserPreferences(userID string) *UserPreferences {
	return &UserPreferences{
		Base:          Base{ID: userID},
		SyncFrequency: SyncDaily,
	}
}
