package deeplink

import (
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/araddon/dateparse"
	"github.com/pkg/errors"
	"github.com/valyala/fastjson"
)

// Extensions of the offline transfer files.
var Extensions = []string{".grocerylist", ".json"}

// ErrUnsupportedFile is returned for files that are not offline transfer files.
var ErrUnsupportedFile = errors.New("unsupported file")

// A Payload is the offline equivalent of a shared list.
type Payload struct {
	ListID        string   `json:"listId"`
	Items         []string `json:"items"`
	OwnerID       string   `json:"ownerId"`
	OwnerName     string   `json:"ownerName"`
	OwnerPhotoURL string   `json:"ownerPhotoURL,omitempty"`
	SharedAt      string   `json:"sharedAt,omitempty"`
}

// Supported returns true if the file has an offline transfer extension.
func Supported(filename string) bool {
	ext := strings.ToLower(filepath.Ext(filename))
	for _, e := range Extensions {
		if ext == e {
			return true
		}
	}
	return false
}

// ReadFile reads an offline transfer file.
func ReadFile(filename string) (*Payload, error) {
	if !Supported(filename) {
		return nil, errors.Wrap(ErrUnsupportedFile, filepath.Base(filename))
	}

	data, err := os.ReadFile(filename)
	if err != nil {
		return nil, errors.Wrap(err, "could not read file")
	}
	return ParsePayload(data)
}

// ParsePayload parses the content of an offline transfer file.
// Unknown fields are ignored, items must be strings.
func ParsePayload(data []byte) (*Payload, error) {
	v, err := fastjson.ParseBytes(data)
	if err != nil {
		return nil, errors.Wrap(err, "could not parse payload")
	}
	if v.Type() != fastjson.TypeObject {
		return nil, errors.New("payload must be an object")
	}

	p := &Payload{
		ListID:        string(v.GetStringBytes("listId")),
		OwnerID:       string(v.GetStringBytes("ownerId")),
		OwnerName:     string(v.GetStringBytes("ownerName")),
		OwnerPhotoURL: string(v.GetStringBytes("ownerPhotoURL")),
		SharedAt:      string(v.GetStringBytes("sharedAt")),
	}

	for i, item := range v.GetArray("items") {
		title, err := item.StringBytes()
		if err != nil {
			return nil, errors.Wrapf(err, "item %d", i)
		}
		p.Items = append(p.Items, string(title))
	}
	return p, nil
}

// SharedTime returns the share date, zero when absent or unreadable.
func (p *Payload) SharedTime() time.Time {
	if p.SharedAt == "" {
		return time.Time{}
	}
	t, err := dateparse.ParseAny(p.SharedAt)
	if err != nil {
		return time.Time{}
	}
	return t
}

// Encode returns the file content of the payload.
func (p *Payload) Encode() ([]byte, error) {
	data, err := json.MarshalIndent(p, "", "  ")
	return data, errors.Wrap(err, "could not encode payload")
}
