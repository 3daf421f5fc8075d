// Package deeplink parses and renders the links and files used to transfer shared lists.
//
// Supported link forms:
//
//	starving://import/{listId}
//	starving://share/{listId}
//	starving:///import/{listId}
//	starving:import/{listId}
//	starving://import?id={listId}
package deeplink

import (
	"net/url"
	"regexp"
	"strconv"
	"strings"

	"github.com/pkg/errors"
)

// DefaultScheme is the application scheme.
const DefaultScheme = "starving"

// Link actions.
const (
	ActionImport = "import"
	ActionShare  = "share"
)

// ErrInvalidLink is returned when a link can not be parsed.
var ErrInvalidLink = errors.New("invalid link")

var identifier = regexp.MustCompile(`^[A-Za-z0-9_-]{1,128}$`)

// A Link is a parsed deep link.
type Link struct {
	Scheme string
	Action string
	ListID string
}

// String returns the canonical form of the link.
func (l Link) String() string {
	return l.Scheme + "://" + l.Action + "/" + l.ListID
}

// Parse parses a link of the default scheme.
func Parse(raw string) (Link, error) {
	return ParseFor(DefaultScheme, raw)
}

// ParseFor parses a link of the given scheme.
func ParseFor(scheme, raw string) (Link, error) {
	u, err := url.Parse(strings.TrimSpace(raw))
	if err != nil {
		return Link{}, errors.Wrap(ErrInvalidLink, err.Error())
	}
	if !strings.EqualFold(u.Scheme, scheme) {
		return Link{}, errors.Wrapf(ErrInvalidLink, "unexpected scheme %q", u.Scheme)
	}

	var segments []string
	switch {
	case u.Opaque != "":
		segments = split(u.Opaque)
	case u.Host != "":
		segments = append([]string{u.Host}, split(u.Path)...)
	default:
		segments = split(u.Path)
	}

	if len(segments) == 0 {
		return Link{}, errors.Wrap(ErrInvalidLink, "missing action")
	}

	link := Link{
		Scheme: scheme,
		Action: strings.ToLower(segments[0]),
	}
	if link.Action != ActionImport && link.Action != ActionShare {
		return Link{}, errors.Wrapf(ErrInvalidLink, "unknown action %q", segments[0])
	}

	switch len(segments) {
	case 1:
		link.ListID = u.Query().Get("id")
		if link.ListID == "" {
			link.ListID = u.Query().Get("listId")
		}
	case 2:
		link.ListID = segments[1]
	default:
		return Link{}, errors.Wrap(ErrInvalidLink, "too many path segments")
	}

	if !identifier.MatchString(link.ListID) {
		return Link{}, errors.Wrap(ErrInvalidLink, "invalid list id")
	}
	return link, nil
}

func split(path string) []string {
	var segments []string
	for _, s := range strings.Split(path, "/") {
		if s != "" {
			segments = append(segments, s)
		}
	}
	return segments
}

// ShareLink returns the link stored in a shared list.
func ShareLink(scheme, listID string) string {
	return Link{Scheme: scheme, Action: ActionShare, ListID: listID}.String()
}

// ImportLink returns the link sent to recipients.
func ImportLink(scheme, listID string) string {
	return Link{Scheme: scheme, Action: ActionImport, ListID: listID}.String()
}

// ShareText renders the message sent along a shared list.
func ShareText(ownerName string, titles []string, link string) string {
	if ownerName == "" {
		ownerName = "Anonymous"
	}

	var b strings.Builder
	b.WriteString("🛒 " + ownerName + " shared " + strconv.Itoa(len(titles)) + " grocery items with you!\n\n")
	b.WriteString("📝 Items:\n")
	for _, title := range titles {
		b.WriteString("  • " + title + "\n")
	}
	b.WriteString("\n👆 Tap this link to open in Starving:\n")
	b.WriteString(link + "\n\n")
	b.WriteString("✨ Items will be added automatically!")
	return b.String()
}
