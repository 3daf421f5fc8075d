package service

import (
	"context"
	"strings"
	"time"

	"github.com/mdouchement/starving/internal/apperror"
	"github.com/mdouchement/starving/internal/model"
	"github.com/mdouchement/starving/internal/remote"
	"github.com/mdouchement/starving/pkg/deeplink"
	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"
)

// A SharingService manages the shared lists of the signed in user.
type SharingService struct {
	remote remote.Store
	user   UserProvider
	scheme string
	logger logrus.FieldLogger
	now    func() time.Time
}

// NewSharingService instantiates a new Sharing service.
func NewSharingService(store remote.Store, user UserProvider, scheme string, logger logrus.FieldLogger) *SharingService {
	if scheme == "" {
		scheme = deeplink.DefaultScheme
	}
	if logger == nil {
		logger = logrus.StandardLogger()
	}

	return &SharingService{
		remote: store,
		user:   user,
		scheme: scheme,
		logger: logger,
		now:    time.Now,
	}
}

// Scheme returns the scheme used by generated links.
func (s *SharingService) Scheme() string {
	return s.scheme
}

func (s *SharingService) userID() (string, error) {
	userID, ok := s.user.UserID()
	if !ok {
		return "", apperror.New(apperror.KindPermission, apperror.TagInvalidAuth, "no authenticated user")
	}
	return userID, nil
}

// CreateSharedList snapshots the given items into a new shared list owned by the signed in user.
// The document and its share link are written at once.
func (s *SharingService) CreateSharedList(ctx context.Context, name, description string, items []*model.Item, ownerName, ownerAvatar string) (*remote.SharedList, error) {
	userID, err := s.userID()
	if err != nil {
		return nil, err
	}
	if len(items) == 0 {
		return nil, apperror.New(apperror.KindValidation, apperror.TagInvalidParameters, "a shared list needs at least one item")
	}

	name = strings.TrimSpace(name)
	if name == "" {
		name = "Shared Items - " + s.now().Format("Jan 2, 2006 at 3:04 PM")
	}
	if ownerName == "" {
		ownerName = "Anonymous"
	}

	now := model.UnixMillisecond(s.now())
	list := &remote.SharedList{
		ID:               s.remote.NewID(remote.SharedListsCollection),
		Name:             name,
		Description:      strings.TrimSpace(description),
		ItemIDs:          make([]string, 0, len(items)),
		ItemTitles:       make([]string, 0, len(items)),
		OwnerID:          userID,
		OwnerName:        ownerName,
		OwnerPhotoURL:    ownerAvatar,
		RecipientIDs:     []string{},
		CompletionStatus: map[string]bool{},
		CreatedAt:        now,
		LastUpdated:      now,
	}
	for _, item := range items {
		list.ItemIDs = append(list.ItemIDs, item.ID)
		list.ItemTitles = append(list.ItemTitles, item.Title)
	}
	list.ShareLink = deeplink.ShareLink(s.scheme, list.ID)

	data, err := remote.Encode(list)
	if err != nil {
		return nil, err
	}
	if err = s.remote.Set(ctx, remote.SharedListsCollection, list.ID, data); err != nil {
		return nil, errors.Wrap(err, "could not create shared list")
	}

	s.logger.WithFields(logrus.Fields{
		"list_id": list.ID,
		"items":   len(items),
	}).Info("shared list created")
	return list, nil
}

// GetSharedList returns the shared list identified by listID.
func (s *SharingService) GetSharedList(ctx context.Context, listID string) (*remote.SharedList, error) {
	doc, err := s.remote.Get(ctx, remote.SharedListsCollection, listID)
	if err != nil {
		return nil, err
	}
	return remote.DecodeSharedList(doc)
}

// LoadSharedLists returns the lists owned by the signed in user followed by the lists shared with them.
func (s *SharingService) LoadSharedLists(ctx context.Context) ([]*remote.SharedList, error) {
	userID, err := s.userID()
	if err != nil {
		return nil, err
	}

	owned, err := s.query(ctx, remote.From(remote.SharedListsCollection).WhereEqual(remote.FieldOwnerID, userID))
	if err != nil {
		return nil, errors.Wrap(err, "could not load owned lists")
	}

	received, err := s.query(ctx, remote.From(remote.SharedListsCollection).WhereArrayContains(remote.FieldRecipientIDs, userID))
	if err != nil {
		return nil, errors.Wrap(err, "could not load received lists")
	}

	lists := owned
	for _, list := range received {
		// Only possible when the owner shared with themself.
		if list.OwnerID == userID {
			continue
		}
		lists = append(lists, list)
	}
	return lists, nil
}

// ReceivedSharedLists returns the lists shared with the signed in user, most recent first.
func (s *SharingService) ReceivedSharedLists(ctx context.Context) ([]*remote.SharedList, error) {
	userID, err := s.userID()
	if err != nil {
		return nil, err
	}

	q := remote.From(remote.SharedListsCollection).
		WhereArrayContains(remote.FieldRecipientIDs, userID).
		Order(remote.FieldCreatedAt, true)
	return s.query(ctx, q)
}

func (s *SharingService) query(ctx context.Context, q remote.Query) ([]*remote.SharedList, error) {
	docs, err := s.remote.Query(ctx, q)
	if err != nil {
		return nil, err
	}

	lists := make([]*remote.SharedList, 0, len(docs))
	for _, doc := range docs {
		list, err := remote.DecodeSharedList(doc)
		if err != nil {
			s.logger.WithError(err).WithField("list_id", doc.ID).Warn("skipping unreadable shared list")
			continue
		}
		lists = append(lists, list)
	}
	return lists, nil
}

// AddRecipient adds recipientID to the recipients of the list. Adding a known recipient is a no-op.
// It is a best effort step.
func (s *SharingService) AddRecipient(ctx context.Context, listID, recipientID string) Outcome {
	if recipientID == "" {
		return Degraded(apperror.New(apperror.KindValidation, apperror.TagInvalidParameters, "missing recipient"))
	}

	err := s.remote.Update(ctx, remote.SharedListsCollection, listID,
		remote.ArrayUnion(remote.FieldRecipientIDs, recipientID),
		remote.SetField(remote.FieldLastUpdated, model.UnixMillisecond(s.now())),
	)
	if err != nil {
		s.logger.WithError(err).WithFields(logrus.Fields{
			"list_id":      listID,
			"recipient_id": recipientID,
		}).Warn("could not add recipient")
		return Degraded(err)
	}
	return OK()
}

// UpdateCompletionStatus records the shopping progress of the signed in user on the list.
// It is a best effort step.
func (s *SharingService) UpdateCompletionStatus(ctx context.Context, listID string, completed bool) Outcome {
	userID, err := s.userID()
	if err != nil {
		return Degraded(err)
	}

	err = s.remote.Update(ctx, remote.SharedListsCollection, listID,
		remote.MapSet(remote.FieldCompletionStatus, userID, completed),
		remote.SetField(remote.FieldLastUpdated, model.UnixMillisecond(s.now())),
	)
	if err != nil {
		s.logger.WithError(err).WithField("list_id", listID).Warn("could not update completion status")
		return Degraded(err)
	}
	return OK()
}

// ShareText renders the message sent to recipients.
func (s *SharingService) ShareText(list *remote.SharedList) string {
	return deeplink.ShareText(list.OwnerName, list.ItemTitles, deeplink.ImportLink(s.scheme, list.ID))
}

// ExportFile renders the offline transfer file of the list.
func (s *SharingService) ExportFile(list *remote.SharedList) ([]byte, error) {
	p := &deeplink.Payload{
		ListID:        list.ID,
		Items:         list.ItemTitles,
		OwnerID:       list.OwnerID,
		OwnerName:     list.OwnerName,
		OwnerPhotoURL: list.OwnerPhotoURL,
		SharedAt:      model.FromUnixMillisecond(list.CreatedAt).Format(time.RFC3339),
	}
	return p.Encode()
}
