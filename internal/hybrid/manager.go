package hybrid

import (
	"context"
	"strings"
	"sync"
	"time"

	"github.com/mdouchement/starving/internal/apperror"
	"github.com/mdouchement/starving/internal/database"
	"github.com/mdouchement/starving/internal/model"
	"github.com/mdouchement/starving/internal/remote"
	"github.com/mdouchement/starving/internal/service"
	"github.com/mdouchement/starving/pkg/deeplink"
	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"
)

// ErrAuthenticationRequired is returned when a deep link is kept until someone signs in.
var ErrAuthenticationRequired = errors.New("authentication required")

type (
	// Options configures a Manager.
	Options struct {
		// Scheme is the deep link scheme, deeplink.DefaultScheme when empty.
		Scheme string
		// StatusResetDelay is the delay before a terminal sync status reverts to idle.
		StatusResetDelay time.Duration
		// OwnerName and OwnerAvatar are attached to the lists shared by the user.
		OwnerName   string
		OwnerAvatar string
		Logger      logrus.FieldLogger
	}

	// A Manager is the entry point of the presentation layer.
	// Local mutations are synchronous, their remote mirror runs in background when cloud sync is enabled.
	Manager struct {
		db       database.Client
		user     service.UserProvider
		status   *service.StatusIndicator
		sync     *service.SyncService
		sharing  *service.SharingService
		importer *service.ImportResolver
		options  Options
		logger   logrus.FieldLogger
		now      func() time.Time

		events emitter
		wg     sync.WaitGroup
		// serializes background writes so the last one carries the latest local state.
		backgroundMu sync.Mutex

		mu      sync.Mutex
		pending string
	}

	// A signer is a UserProvider updated on authentication.
	signer interface {
		SignIn(id string)
	}
)

// New returns a Manager over the given local and remote stores.
func New(db database.Client, store remote.Store, user service.UserProvider, options Options) *Manager {
	if options.Scheme == "" {
		options.Scheme = deeplink.DefaultScheme
	}
	if options.Logger == nil {
		options.Logger = logrus.StandardLogger()
	}

	m := &Manager{
		db:      db,
		user:    user,
		status:  service.NewStatusIndicator(options.StatusResetDelay),
		options: options,
		logger:  options.Logger,
		now:     time.Now,
	}
	m.sync = service.NewSyncService(db, store, user, m.status, options.Logger)
	m.sharing = service.NewSharingService(store, user, options.Scheme, options.Logger)
	m.importer = service.NewImportResolver(db, store, user, m.sharing, options.Logger)

	m.status.Observe(func(status service.SyncStatus) {
		m.events.emit(SyncStatusChanged{Status: status})
	})
	return m
}

// Subscribe returns a channel receiving the events of the manager and a function closing it.
// A subscriber that does not keep up misses events.
func (m *Manager) Subscribe() (<-chan Event, func()) {
	return m.events.subscribe(DefaultEventBuffer)
}

// SyncStatus returns the current sync status.
func (m *Manager) SyncStatus() service.SyncStatus {
	return m.status.Status()
}

// Sharing returns the sharing engine.
func (m *Manager) Sharing() *service.SharingService {
	return m.sharing
}

// Wait blocks until every background mirror is done.
func (m *Manager) Wait() {
	m.wg.Wait()
}

func (m *Manager) background(fn func(ctx context.Context)) {
	m.wg.Add(1)
	go func() {
		defer m.wg.Done()

		m.backgroundMu.Lock()
		defer m.backgroundMu.Unlock()
		fn(context.Background())
	}()
}

// mirror runs fn in background when cloud sync is enabled, failures only reach the status indicator.
func (m *Manager) mirror(name string, fn func(ctx context.Context) error) {
	if _, ok := m.sync.Enabled(); !ok {
		return
	}

	m.background(func(ctx context.Context) {
		if err := fn(ctx); err != nil {
			m.logger.WithError(err).WithField("mirror", name).Warn("remote mirror failed")
			m.status.Fail(err.Error())
		}
	})
}

// mirrorItem mirrors the local state of the item at the time the mirror runs.
func (m *Manager) mirrorItem(id string) {
	m.mirror("item", func(ctx context.Context) error {
		item, err := m.db.FindItem(id)
		if err != nil {
			if m.db.IsNotFound(err) {
				return nil
			}
			return errors.Wrap(err, "could not read item")
		}
		return m.sync.MirrorItem(ctx, item)
	})
}

// mirrorDay mirrors the local state of the day at the time the mirror runs.
func (m *Manager) mirrorDay(id string) {
	m.mirror("day", func(ctx context.Context) error {
		day, err := m.db.FindDay(id)
		if err != nil {
			if m.db.IsNotFound(err) {
				return nil
			}
			return errors.Wrap(err, "could not read day")
		}
		return m.sync.MirrorDay(ctx, day)
	})
}

//
// Items
//

// Items returns the local items.
func (m *Manager) Items(includeHidden bool) ([]*model.Item, error) {
	return m.db.FindItems(includeHidden)
}

// AddItem creates a new item.
func (m *Manager) AddItem(ctx context.Context, title string) (*model.Item, error) {
	title = strings.TrimSpace(title)
	if title == "" {
		return nil, apperror.New(apperror.KindValidation, apperror.TagInvalidParameters, "missing title")
	}

	item := model.NewItem(title)
	if err := m.db.Save(item); err != nil {
		return nil, errors.Wrap(err, "could not save item")
	}

	m.mirrorItem(item.ID)
	return item, nil
}

// UpdateItem renames an item.
func (m *Manager) UpdateItem(ctx context.Context, id, title string) (*model.Item, error) {
	title = strings.TrimSpace(title)
	if title == "" {
		return nil, apperror.New(apperror.KindValidation, apperror.TagInvalidParameters, "missing title")
	}

	return m.updateItem(id, func(item *model.Item) {
		item.Title = title
	})
}

// SetHidden hides or restores an item.
func (m *Manager) SetHidden(ctx context.Context, id string, hidden bool) (*model.Item, error) {
	return m.updateItem(id, func(item *model.Item) {
		item.Hidden = hidden
	})
}

// SetCompleted toggles the completion of an item.
// The shopping progress of an imported item is reported to its shared list.
func (m *Manager) SetCompleted(ctx context.Context, id string, completed bool) (*model.Item, error) {
	item, err := m.updateItem(id, func(item *model.Item) {
		item.Completed = completed
	})
	if err != nil {
		return nil, err
	}

	if listID := item.SharedListID(); listID != "" {
		m.reportProgress(listID)
	}
	return item, nil
}

func (m *Manager) updateItem(id string, fn func(item *model.Item)) (*model.Item, error) {
	item, err := m.db.FindItem(id)
	if err != nil {
		return nil, m.notFound(err, "item", id)
	}

	fn(item)
	if err = m.db.Save(item); err != nil {
		return nil, errors.Wrap(err, "could not save item")
	}

	m.mirrorItem(item.ID)
	return item, nil
}

// reportProgress tells the shared list whether every item imported from it is completed.
func (m *Manager) reportProgress(listID string) {
	m.background(func(ctx context.Context) {
		items, err := m.db.FindItemsBySharedList(listID)
		if err != nil {
			m.logger.WithError(err).WithField("list_id", listID).Warn("could not read shared items")
			return
		}

		completed := len(items) > 0
		for _, item := range items {
			completed = completed && item.Completed
		}
		m.sharing.UpdateCompletionStatus(ctx, listID, completed)
	})
}

// DeleteItem removes an item and its membership in every day.
func (m *Manager) DeleteItem(ctx context.Context, id string) error {
	days, err := m.db.FindDays()
	if err != nil {
		return errors.Wrap(err, "could not read days")
	}

	if err = m.db.DeleteItem(id); err != nil {
		return m.notFound(err, "item", id)
	}

	m.mirror("delete", func(ctx context.Context) error {
		return m.sync.MirrorDelete(ctx, id)
	})
	for _, day := range days {
		if day.Contains(id) {
			m.mirrorDay(day.ID)
		}
	}
	return nil
}

//
// Today
//

// Today returns the day of today and its items.
func (m *Manager) Today(ctx context.Context) (*model.Day, []*model.Item, error) {
	day, err := m.db.TodayOrCreate(m.now())
	if err != nil {
		return nil, nil, errors.Wrap(err, "could not load today")
	}

	items, err := m.db.FindItemsByIDs(day.ItemIDs)
	if err != nil {
		return nil, nil, errors.Wrap(err, "could not load today items")
	}
	return day, items, nil
}

// AddToToday adds an existing item to the day of today.
func (m *Manager) AddToToday(ctx context.Context, itemID string) (*model.Day, error) {
	if _, err := m.db.FindItem(itemID); err != nil {
		return nil, m.notFound(err, "item", itemID)
	}

	return m.updateToday(func(day *model.Day) bool {
		return day.Add(itemID)
	})
}

// RemoveFromToday removes an item from the day of today, the item is kept.
func (m *Manager) RemoveFromToday(ctx context.Context, itemID string) (*model.Day, error) {
	return m.updateToday(func(day *model.Day) bool {
		return day.Remove(itemID)
	})
}

func (m *Manager) updateToday(fn func(day *model.Day) bool) (*model.Day, error) {
	day, err := m.db.TodayOrCreate(m.now())
	if err != nil {
		return nil, errors.Wrap(err, "could not load today")
	}
	if !fn(day) {
		return day, nil
	}

	if err = m.db.Save(day); err != nil {
		return nil, errors.Wrap(err, "could not save today")
	}

	m.mirrorDay(day.ID)
	return day, nil
}

//
// Sync
//

// Preferences returns the preferences of the signed in user.
func (m *Manager) Preferences(ctx context.Context) (*model.UserPreferences, error) {
	return m.sync.LoadPreferences(ctx)
}

// EnableCloudSync turns sync on and pushes the local records.
func (m *Manager) EnableCloudSync(ctx context.Context) (service.SyncReport, error) {
	return m.sync.EnableCloudSync(ctx)
}

// DisableCloudSync turns sync off, remote records are kept.
func (m *Manager) DisableCloudSync(ctx context.Context) error {
	return m.sync.DisableCloudSync(ctx)
}

// SetSyncFrequency changes the sync frequency of the signed in user.
func (m *Manager) SetSyncFrequency(ctx context.Context, frequency model.SyncFrequency) error {
	return m.sync.SetSyncFrequency(ctx, frequency)
}

// Sync runs a push pass followed by a pull pass.
func (m *Manager) Sync(ctx context.Context) (service.SyncReport, error) {
	return m.sync.Bidirectional(ctx)
}

// Push runs a push pass.
func (m *Manager) Push(ctx context.Context) (service.SyncReport, error) {
	return m.sync.PushAll(ctx)
}

// Pull runs a pull pass.
func (m *Manager) Pull(ctx context.Context) (service.SyncReport, error) {
	return m.sync.PullAll(ctx)
}

//
// Sharing
//

// CreateSharedList shares the given local items.
func (m *Manager) CreateSharedList(ctx context.Context, name, description string, itemIDs []string) (*remote.SharedList, error) {
	items, err := m.db.FindItemsByIDs(itemIDs)
	if err != nil {
		return nil, errors.Wrap(err, "could not read items")
	}
	return m.sharing.CreateSharedList(ctx, name, description, items, m.options.OwnerName, m.options.OwnerAvatar)
}

// LoadSharedLists returns the lists owned by or shared with the signed in user.
func (m *Manager) LoadSharedLists(ctx context.Context) ([]*remote.SharedList, error) {
	return m.sharing.LoadSharedLists(ctx)
}

// ReceivedSharedLists returns the lists shared with the signed in user, most recent first.
func (m *Manager) ReceivedSharedLists(ctx context.Context) ([]*remote.SharedList, error) {
	return m.sharing.ReceivedSharedLists(ctx)
}

// SharedList returns a shared list by its id.
func (m *Manager) SharedList(ctx context.Context, listID string) (*remote.SharedList, error) {
	return m.sharing.GetSharedList(ctx, listID)
}

// SetCompletion reports the shopping progress of the signed in user on a received list.
func (m *Manager) SetCompletion(ctx context.Context, listID string, completed bool) service.Outcome {
	return m.sharing.UpdateCompletionStatus(ctx, listID, completed)
}

// JoinSharedList imports the list referenced by a deep link.
// When nobody is signed in, the link replaces the pending one and ErrAuthenticationRequired is returned.
func (m *Manager) JoinSharedList(ctx context.Context, link string) (*service.ImportResult, error) {
	if _, err := deeplink.ParseFor(m.options.Scheme, link); err != nil {
		return m.imported(m.importer.Resolve(ctx, link))
	}

	if _, ok := m.user.UserID(); !ok {
		m.mu.Lock()
		m.pending = link
		m.mu.Unlock()

		m.logger.Info("deep link kept until authentication")
		return nil, ErrAuthenticationRequired
	}
	return m.imported(m.importer.Resolve(ctx, link))
}

// ImportFile imports an offline transfer file.
func (m *Manager) ImportFile(ctx context.Context, filename string) (*service.ImportResult, error) {
	return m.imported(m.importer.ResolveFile(ctx, filename))
}

// Pending returns the deep link waiting for authentication.
func (m *Manager) Pending() string {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.pending
}

// Authenticated signs userID in, restores its preferences and replays the pending deep link once.
func (m *Manager) Authenticated(ctx context.Context, userID string) (*service.ImportResult, error) {
	if s, ok := m.user.(signer); ok {
		s.SignIn(userID)
	}

	if _, err := m.sync.LoadPreferences(ctx); err != nil {
		m.logger.WithError(err).Warn("could not load preferences")
	}

	m.mu.Lock()
	link := m.pending
	m.pending = ""
	m.mu.Unlock()

	if link == "" {
		return nil, nil
	}
	return m.JoinSharedList(ctx, link)
}

func (m *Manager) imported(result *service.ImportResult, err error) (*service.ImportResult, error) {
	if err != nil {
		ev := ImportFailed{
			Reason:  service.ReasonSaveFailed,
			Failure: string(service.ReasonSaveFailed) + ": " + err.Error(),
			Message: err.Error(),
		}
		if f, ok := service.AsImportFailure(err); ok {
			ev = ImportFailed{Reason: f.Reason, Failure: f.Error(), Message: f.Message()}
		}
		m.events.emit(ev)
		return nil, err
	}

	m.events.emit(ImportSucceeded{
		ListID:  result.ListID,
		Count:   result.Count,
		Message: service.ImportedMessage(result.Count),
	})
	return result, nil
}

func (m *Manager) notFound(err error, kind, id string) error {
	if m.db.IsNotFound(err) {
		return apperror.Newf(apperror.KindNotFound, apperror.TagNotFound, "%s %s not found", kind, id)
	}
	return err
}
