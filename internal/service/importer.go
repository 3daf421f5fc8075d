package service

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/gofrs/uuid"
	"github.com/mdouchement/starving/internal/apperror"
	"github.com/mdouchement/starving/internal/database"
	"github.com/mdouchement/starving/internal/model"
	"github.com/mdouchement/starving/internal/remote"
	"github.com/mdouchement/starving/pkg/deeplink"
	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"
)

// An ImportReason classifies an import failure.
type ImportReason string

// Import failure reasons.
const (
	ReasonInvalidLink      ImportReason = "invalid-link"
	ReasonConnectivity     ImportReason = "connectivity"
	ReasonInvalidOrExpired ImportReason = "invalid-or-expired"
	ReasonSaveFailed       ImportReason = "save-failed"
)

// User facing import messages.
const (
	MessageInvalidOrExpired = "Could not load shared list. The link may be invalid or expired."
	MessageConnectivity     = "Could not reach the server. Check your connection and try again."
)

// ImportedMessage returns the message displayed after a successful import.
func ImportedMessage(count int) string {
	if count == 1 {
		return "1 item has been added to your grocery list."
	}
	return fmt.Sprintf("%d items have been added to your grocery list.", count)
}

type (
	// An ImportResult describes a successful import.
	ImportResult struct {
		ListID string
		Count  int
		Items  []*model.Item
		// SharedAt is the share date, zero when unknown.
		SharedAt time.Time
		// Registration is the outcome of the recipient registration.
		Registration Outcome
	}

	// An ImportFailure is the terminal error of an import.
	ImportFailure struct {
		Reason ImportReason
		Detail string
		Err    error
	}
)

func (e *ImportFailure) Error() string {
	if e.Reason == ReasonSaveFailed {
		return string(e.Reason) + ": " + e.Detail
	}
	return string(e.Reason)
}

// Unwrap returns the underlying error.
func (e *ImportFailure) Unwrap() error {
	return e.Err
}

// Message returns the message displayed to the user.
func (e *ImportFailure) Message() string {
	switch e.Reason {
	case ReasonConnectivity:
		return MessageConnectivity
	case ReasonSaveFailed:
		return "Failed to import shared list: " + e.Detail
	default:
		return MessageInvalidOrExpired
	}
}

// AsImportFailure returns the ImportFailure wrapped by err.
func AsImportFailure(err error) (*ImportFailure, bool) {
	f, ok := err.(*ImportFailure)
	return f, ok
}

func fail(reason ImportReason, err error) *ImportFailure {
	f := &ImportFailure{Reason: reason, Err: err}
	if err != nil {
		f.Detail = err.Error()
	}
	return f
}

// An ImportResolver materializes shared lists into the local store.
// Steps run in order: parse, fetch, validate, register, materialize, commit.
type ImportResolver struct {
	db      database.Client
	remote  remote.Store
	user    UserProvider
	sharing *SharingService
	logger  logrus.FieldLogger
}

// NewImportResolver instantiates a new ImportResolver.
func NewImportResolver(db database.Client, store remote.Store, user UserProvider, sharing *SharingService, logger logrus.FieldLogger) *ImportResolver {
	if logger == nil {
		logger = logrus.StandardLogger()
	}

	return &ImportResolver{
		db:      db,
		remote:  store,
		user:    user,
		sharing: sharing,
		logger:  logger,
	}
}

// Resolve imports the shared list referenced by the deep link.
// The returned error is always an *ImportFailure.
func (r *ImportResolver) Resolve(ctx context.Context, rawLink string) (*ImportResult, error) {
	link, err := deeplink.ParseFor(r.sharing.Scheme(), rawLink)
	if err != nil {
		return nil, fail(ReasonInvalidLink, err)
	}
	return r.ResolveList(ctx, link.ListID)
}

// ResolveList imports the shared list identified by listID.
// The returned error is always an *ImportFailure.
func (r *ImportResolver) ResolveList(ctx context.Context, listID string) (*ImportResult, error) {
	logger := r.logger.WithField("list_id", listID)

	//
	// Fetch
	doc, err := r.remote.Get(ctx, remote.SharedListsCollection, listID)
	if err != nil {
		switch apperror.KindOf(err) {
		case apperror.KindNotFound, apperror.KindPermission, apperror.KindValidation:
			logger.WithError(err).Info("shared list not available")
			return nil, fail(ReasonInvalidOrExpired, err)
		default:
			logger.WithError(err).Warn("could not fetch shared list")
			return nil, fail(ReasonConnectivity, err)
		}
	}

	list, err := remote.DecodeSharedList(doc)
	if err != nil {
		return nil, fail(ReasonInvalidOrExpired, err)
	}

	//
	// Validate
	if err = validate(list.ItemTitles, list.OwnerID, list.OwnerName); err != nil {
		logger.WithError(err).Info("invalid shared list")
		return nil, fail(ReasonInvalidOrExpired, err)
	}

	registration := OK()
	if userID, ok := r.user.UserID(); !ok || !list.HasRecipient(userID) {
		registration = r.register(ctx, list.ID, list.OwnerID)
	}

	result, err := r.commit(list.ID, list.ItemIDs, list.ItemTitles, model.ShareProvenance{
		SharerID:     list.OwnerID,
		SharerName:   list.OwnerName,
		SharerAvatar: list.OwnerPhotoURL,
		ListID:       list.ID,
	}, registration)
	if err != nil {
		return nil, err
	}
	if list.CreatedAt > 0 {
		result.SharedAt = model.FromUnixMillisecond(list.CreatedAt)
	}
	return result, nil
}

// ResolveFile imports an offline transfer file.
// The returned error is always an *ImportFailure.
func (r *ImportResolver) ResolveFile(ctx context.Context, filename string) (*ImportResult, error) {
	p, err := deeplink.ReadFile(filename)
	if err != nil {
		return nil, fail(ReasonInvalidLink, err)
	}
	return r.ResolvePayload(ctx, p)
}

// ResolvePayload imports an offline transfer payload.
// The returned error is always an *ImportFailure.
func (r *ImportResolver) ResolvePayload(ctx context.Context, p *deeplink.Payload) (*ImportResult, error) {
	if err := validate(p.Items, p.OwnerID, p.OwnerName); err != nil {
		return nil, fail(ReasonInvalidOrExpired, err)
	}

	listID := p.ListID
	registration := Degraded(errors.New("no remote shared list"))
	if listID != "" {
		registration = r.register(ctx, listID, p.OwnerID)
	} else {
		listID = uuid.Must(uuid.NewV4()).String()
	}

	result, err := r.commit(listID, nil, p.Items, model.ShareProvenance{
		SharerID:     p.OwnerID,
		SharerName:   p.OwnerName,
		SharerAvatar: p.OwnerPhotoURL,
		ListID:       listID,
	}, registration)
	if err != nil {
		return nil, err
	}
	result.SharedAt = p.SharedTime()
	return result, nil
}

func validate(titles []string, ownerID, ownerName string) error {
	if ownerID == "" {
		return apperror.New(apperror.KindValidation, apperror.TagInvalidOrExpired, "missing owner id")
	}
	if ownerName == "" {
		return apperror.New(apperror.KindValidation, apperror.TagInvalidOrExpired, "missing owner name")
	}
	for _, title := range titles {
		if strings.TrimSpace(title) != "" {
			return nil
		}
	}
	return apperror.New(apperror.KindValidation, apperror.TagInvalidOrExpired, "no items")
}

// register adds the signed in user to the recipients, failures are swallowed.
func (r *ImportResolver) register(ctx context.Context, listID, ownerID string) Outcome {
	userID, ok := r.user.UserID()
	if !ok {
		return Degraded(apperror.New(apperror.KindPermission, apperror.TagInvalidAuth, "no authenticated user"))
	}
	if userID == ownerID {
		return OK()
	}
	return r.sharing.AddRecipient(ctx, listID, userID)
}

// commit materializes the items and saves them at once.
func (r *ImportResolver) commit(listID string, ids, titles []string, provenance model.ShareProvenance, registration Outcome) (*ImportResult, error) {
	items, err := r.materialize(ids, titles, provenance)
	if err != nil {
		return nil, fail(ReasonSaveFailed, err)
	}

	models := make([]model.Model, 0, len(items))
	for _, item := range items {
		models = append(models, item)
	}
	if err = r.db.SaveAll(models...); err != nil {
		r.logger.WithError(err).WithField("list_id", listID).Error("could not save imported items")
		return nil, fail(ReasonSaveFailed, errors.Cause(err))
	}

	r.logger.WithFields(logrus.Fields{
		"list_id": listID,
		"count":   len(items),
	}).Info("shared list imported")

	return &ImportResult{
		ListID:       listID,
		Count:        len(items),
		Items:        items,
		Registration: registration,
	}, nil
}

// materialize pairs titles with the source ids positionally.
// A source id is reused unless it clashes with a local item that does not come from the same list.
func (r *ImportResolver) materialize(ids, titles []string, provenance model.ShareProvenance) ([]*model.Item, error) {
	items := make([]*model.Item, 0, len(titles))
	seen := map[string]bool{}

	for i, title := range titles {
		title = strings.TrimSpace(title)
		if title == "" {
			continue
		}

		var id string
		if i < len(ids) && ids[i] != "" && !seen[ids[i]] {
			existing, err := r.db.FindItem(ids[i])
			switch {
			case err == nil && existing.SharedListID() == provenance.ListID:
				id = ids[i]
			case err != nil && r.db.IsNotFound(err):
				id = ids[i]
			case err != nil:
				return nil, err
			}
		}
		if id == "" {
			id = uuid.Must(uuid.NewV4()).String()
		}
		seen[id] = true

		p := provenance
		item := model.NewItem(title)
		item.ID = id
		item.Provenance = &p
		items = append(items, item)
	}
	return items, nil
}
