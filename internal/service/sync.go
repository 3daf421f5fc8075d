package service

import (
	"context"
	"fmt"
	"time"

	"github.com/mdouchement/starving/internal/apperror"
	"github.com/mdouchement/starving/internal/database"
	"github.com/mdouchement/starving/internal/model"
	"github.com/mdouchement/starving/internal/remote"
	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"
)

type (
	// A SyncService reconciles the local store with the remote store.
	// Every pass is a no-op when cloud sync is disabled or nobody is signed in.
	SyncService struct {
		db     database.Client
		remote remote.Store
		user   UserProvider
		status *StatusIndicator
		logger logrus.FieldLogger
		now    func() time.Time
	}

	// A SyncReport counts what a pass did.
	SyncReport struct {
		Skipped    bool `json:"skipped"`
		Pushed     int  `json:"pushed"`
		PushFailed int  `json:"push_failed"`
		Inserted   int  `json:"inserted"`
		Updated    int  `json:"updated"`
		Unchanged  int  `json:"unchanged"`
		PullFailed int  `json:"pull_failed"`
	}
)

// NewSyncService instantiates a new Sync service.
func NewSyncService(db database.Client, store remote.Store, user UserProvider, status *StatusIndicator, logger logrus.FieldLogger) *SyncService {
	if status == nil {
		status = NewStatusIndicator(DefaultStatusResetDelay)
	}
	if logger == nil {
		logger = logrus.StandardLogger()
	}

	return &SyncService{
		db:     db,
		remote: store,
		user:   user,
		status: status,
		logger: logger,
		now:    time.Now,
	}
}

// Status returns the sync status indicator.
func (s *SyncService) Status() *StatusIndicator {
	return s.status
}

// Enabled returns the signed in user when cloud sync is enabled.
func (s *SyncService) Enabled() (string, bool) {
	userID, ok := s.user.UserID()
	if !ok {
		return "", false
	}

	prefs, err := s.db.FindPreferences(userID)
	if err != nil {
		if !s.db.IsNotFound(err) {
			s.logger.WithError(err).Warn("could not read preferences")
		}
		return "", false
	}
	return userID, prefs.CloudSyncEnabled
}

//
// Preferences
//

// LoadPreferences returns the preferences of the signed in user.
// They are restored from the remote store on a fresh device and created with sync disabled otherwise.
func (s *SyncService) LoadPreferences(ctx context.Context) (*model.UserPreferences, error) {
	userID, ok := s.user.UserID()
	if !ok {
		return nil, apperror.New(apperror.KindPermission, apperror.TagInvalidAuth, "no authenticated user")
	}

	prefs, err := s.db.FindPreferences(userID)
	if err == nil {
		return prefs, nil
	}
	if !s.db.IsNotFound(err) {
		return nil, errors.Wrap(err, "could not load preferences")
	}

	prefs = model.NewUserPreferences(userID)
	doc, err := s.remote.Get(ctx, remote.PreferencesCollection, userID)
	switch {
	case err == nil:
		var r remote.Preferences
		if err = remote.Decode(doc.Data, &r); err != nil {
			s.logger.WithError(err).Warn("could not decode remote preferences")
			break
		}
		r.Apply(prefs)
	case apperror.Is(err, apperror.KindNotFound):
	default:
		s.logger.WithError(err).Warn("could not fetch remote preferences")
	}

	if err = s.db.Save(prefs); err != nil {
		return nil, errors.Wrap(err, "could not save preferences")
	}
	return prefs, nil
}

// EnableCloudSync turns sync on and seeds the remote store with one push pass.
func (s *SyncService) EnableCloudSync(ctx context.Context) (SyncReport, error) {
	prefs, err := s.LoadPreferences(ctx)
	if err != nil {
		return SyncReport{Skipped: true}, err
	}

	prefs.CloudSyncEnabled = true
	if err = s.savePreferences(ctx, prefs); err != nil {
		return SyncReport{Skipped: true}, err
	}
	return s.PushAll(ctx)
}

// DisableCloudSync turns sync off. Remote data is left untouched.
func (s *SyncService) DisableCloudSync(ctx context.Context) error {
	prefs, err := s.LoadPreferences(ctx)
	if err != nil {
		return err
	}

	prefs.CloudSyncEnabled = false
	return s.savePreferences(ctx, prefs)
}

// SetSyncFrequency changes the preferred sync frequency.
func (s *SyncService) SetSyncFrequency(ctx context.Context, frequency model.SyncFrequency) error {
	if !frequency.Valid() {
		return apperror.Newf(apperror.KindValidation, apperror.TagInvalidParameters, "unknown sync frequency %q", frequency)
	}

	prefs, err := s.LoadPreferences(ctx)
	if err != nil {
		return err
	}

	prefs.SyncFrequency = frequency
	return s.savePreferences(ctx, prefs)
}

// savePreferences saves locally and mirrors remotely, the remote write is best effort.
func (s *SyncService) savePreferences(ctx context.Context, prefs *model.UserPreferences) error {
	if err := s.db.Save(prefs); err != nil {
		return errors.Wrap(err, "could not save preferences")
	}

	if o := s.mirrorPreferences(ctx, prefs); o.IsDegraded() {
		s.logger.WithError(o.Err).Warn("could not mirror preferences")
	}
	return nil
}

func (s *SyncService) mirrorPreferences(ctx context.Context, prefs *model.UserPreferences) Outcome {
	data, err := remote.Encode(remote.NewPreferences(prefs))
	if err != nil {
		return Degraded(err)
	}
	if err = s.remote.Set(ctx, remote.PreferencesCollection, prefs.ID, data); err != nil {
		return Degraded(err)
	}
	return OK()
}

//
// Push
//

// PushAll writes to the remote store every local item and day newer than its remote copy.
// Per record failures are logged and skipped.
func (s *SyncService) PushAll(ctx context.Context) (SyncReport, error) {
	userID, ok := s.Enabled()
	if !ok {
		return SyncReport{Skipped: true}, nil
	}

	s.status.Syncing()
	report, err := s.push(ctx, userID)
	if err != nil {
		s.status.Fail(err.Error())
		return report, err
	}
	s.finish(report)
	return report, nil
}

func (s *SyncService) push(ctx context.Context, userID string) (SyncReport, error) {
	var report SyncReport

	remoteItems, err := s.versions(ctx, remote.ItemsCollection(userID))
	if err != nil {
		return report, errors.Wrap(err, "could not fetch remote items")
	}
	remoteDays, err := s.versions(ctx, remote.DaysCollection(userID))
	if err != nil {
		return report, errors.Wrap(err, "could not fetch remote days")
	}

	items, err := s.db.FindItems(true)
	if err != nil {
		return report, errors.Wrap(err, "could not read local items")
	}
	for _, item := range items {
		if v, ok := remoteItems[item.ID]; ok && v.LastUpdated >= item.LastUpdated() {
			continue
		}

		if err = s.setItem(ctx, userID, item); err != nil {
			s.logger.WithError(err).WithField("item_id", item.ID).Error("could not push item")
			report.PushFailed++
			continue
		}
		report.Pushed++
	}

	days, err := s.db.FindDays()
	if err != nil {
		return report, errors.Wrap(err, "could not read local days")
	}
	dated := make(map[int64]bool, len(remoteDays))
	for _, v := range remoteDays {
		dated[v.Date] = true
	}
	for _, day := range days {
		v, ok := remoteDays[day.RemoteKey()]
		if ok && v.LastUpdated >= day.LastUpdated() {
			continue
		}
		if !ok && dated[model.UnixMillisecond(day.Date)] {
			// Another device holds this calendar day remotely, it is merged by the pull.
			continue
		}

		if err = s.setDay(ctx, userID, day); err != nil {
			s.logger.WithError(err).WithField("day_id", day.ID).Error("could not push day")
			report.PushFailed++
			continue
		}
		report.Pushed++
	}

	if report.PushFailed == 0 {
		s.touchLastSync(ctx, userID)
	}

	s.logger.WithFields(logrus.Fields{
		"pushed": report.Pushed,
		"failed": report.PushFailed,
	}).Info("push done")
	return report, nil
}

type version struct {
	LastUpdated int64 `json:"lastUpdated"`
	Date        int64 `json:"date"`
}

// versions returns the lastUpdated of the remote documents indexed by document id.
// A remote copy at least as recent as the local one is not overwritten.
func (s *SyncService) versions(ctx context.Context, collection string) (map[string]version, error) {
	docs, err := s.remote.Query(ctx, remote.From(collection))
	if err != nil {
		return nil, err
	}

	versions := make(map[string]version, len(docs))
	for _, doc := range docs {
		var v version
		if err = remote.Decode(doc.Data, &v); err != nil {
			continue
		}
		versions[doc.ID] = v
	}
	return versions, nil
}

func (s *SyncService) touchLastSync(ctx context.Context, userID string) {
	prefs, err := s.db.FindPreferences(userID)
	if err != nil {
		s.logger.WithError(err).Warn("could not read preferences")
		return
	}

	t := model.Truncate(s.now())
	prefs.LastSyncDate = &t
	if err = s.savePreferences(ctx, prefs); err != nil {
		s.logger.WithError(err).Warn("could not update last sync date")
	}
}

func (s *SyncService) setItem(ctx context.Context, userID string, item *model.Item) error {
	data, err := remote.Encode(remote.NewItem(userID, item))
	if err != nil {
		return err
	}
	return s.remote.Set(ctx, remote.ItemsCollection(userID), item.ID, data)
}

func (s *SyncService) setDay(ctx context.Context, userID string, day *model.Day) error {
	data, err := remote.Encode(remote.NewDay(userID, day))
	if err != nil {
		return err
	}
	return s.remote.Set(ctx, remote.DaysCollection(userID), day.RemoteKey(), data)
}

//
// Pull
//

// PullAll fetches every remote item and day of the user and merges them into the local store.
// A remote record overwrites the local one only when it is strictly newer.
func (s *SyncService) PullAll(ctx context.Context) (SyncReport, error) {
	userID, ok := s.Enabled()
	if !ok {
		return SyncReport{Skipped: true}, nil
	}

	s.status.Syncing()
	report, err := s.pull(ctx, userID)
	if err != nil {
		s.status.Fail(err.Error())
		return report, err
	}
	s.finish(report)
	return report, nil
}

func (s *SyncService) pull(ctx context.Context, userID string) (SyncReport, error) {
	var report SyncReport

	docs, err := s.remote.Query(ctx, remote.From(remote.ItemsCollection(userID)))
	if err != nil {
		return report, errors.Wrap(err, "could not fetch remote items")
	}
	for _, doc := range docs {
		if err = s.pullItem(doc, &report); err != nil {
			s.logger.WithError(err).WithField("document_id", doc.ID).Error("could not pull item")
			report.PullFailed++
		}
	}

	docs, err = s.remote.Query(ctx, remote.From(remote.DaysCollection(userID)))
	if err != nil {
		return report, errors.Wrap(err, "could not fetch remote days")
	}
	merged := map[string]bool{}
	for _, doc := range docs {
		if merged[doc.ID] {
			continue
		}
		if err = s.pullDay(ctx, userID, doc, merged, &report); err != nil {
			s.logger.WithError(err).WithField("document_id", doc.ID).Error("could not pull day")
			report.PullFailed++
		}
	}

	s.logger.WithFields(logrus.Fields{
		"inserted":  report.Inserted,
		"updated":   report.Updated,
		"unchanged": report.Unchanged,
		"failed":    report.PullFailed,
	}).Info("pull done")
	return report, nil
}

func (s *SyncService) pullItem(doc *remote.Document, report *SyncReport) error {
	var r remote.Item
	if err := remote.Decode(doc.Data, &r); err != nil {
		return err
	}

	id := r.LocalID
	if id == "" {
		id = doc.ID
	}

	item, err := s.db.FindItem(id)
	if err != nil {
		if !s.db.IsNotFound(err) {
			return err
		}

		if err = s.db.Put(r.Model(doc.ID)); err != nil {
			return err
		}
		report.Inserted++
		return nil
	}

	if r.LastUpdated <= item.LastUpdated() {
		report.Unchanged++
		return nil
	}

	r.Apply(item)
	if err = s.db.Put(item); err != nil {
		return err
	}
	report.Updated++
	return nil
}

func (s *SyncService) pullDay(ctx context.Context, userID string, doc *remote.Document, merged map[string]bool, report *SyncReport) error {
	var r remote.Day
	if err := remote.Decode(doc.Data, &r); err != nil {
		return err
	}

	id := r.LocalID
	if id == "" {
		id = doc.ID
	}

	day, err := s.db.FindDay(id)
	if s.db.IsNotFound(err) {
		// Another device may have created the same calendar day.
		day, err = s.db.FindDayByDate(model.FromUnixMillisecond(r.Date).Local())
	}
	if err != nil {
		if !s.db.IsNotFound(err) {
			return err
		}

		if err = s.db.Put(r.Model(doc.ID)); err != nil {
			return err
		}
		report.Inserted++
		return nil
	}

	if day.RemoteKey() != doc.ID {
		return s.mergeDay(ctx, userID, day, doc.ID, &r, merged, report)
	}

	if r.LastUpdated <= day.LastUpdated() {
		report.Unchanged++
		return nil
	}

	r.Apply(day)
	if err = s.db.Put(day); err != nil {
		return err
	}
	report.Updated++
	return nil
}

// mergeDay reconciles two remote documents holding the same calendar day.
// Every device keeps the smallest document id, the other document is deleted.
func (s *SyncService) mergeDay(ctx context.Context, userID string, day *model.Day, documentID string, r *remote.Day, merged map[string]bool, report *SyncReport) error {
	kept, stale := day.RemoteKey(), documentID
	if documentID < kept {
		kept, stale = documentID, kept
	}

	if r.LastUpdated > day.LastUpdated() {
		r.Apply(day)
		report.Updated++
	} else {
		report.Unchanged++
	}

	day.RemoteID = kept
	if kept == day.ID {
		day.RemoteID = ""
	}
	if err := s.db.Put(day); err != nil {
		return err
	}

	if err := s.setDay(ctx, userID, day); err != nil {
		return err
	}
	merged[kept] = true
	merged[stale] = true

	s.logger.WithFields(logrus.Fields{
		"day_id":      day.ID,
		"document_id": kept,
		"removed_id":  stale,
	}).Info("calendar day merged")
	return s.remote.Delete(ctx, remote.DaysCollection(userID), stale)
}

// Bidirectional runs a push pass followed by a pull pass.
func (s *SyncService) Bidirectional(ctx context.Context) (SyncReport, error) {
	userID, ok := s.Enabled()
	if !ok {
		return SyncReport{Skipped: true}, nil
	}

	s.status.Syncing()
	report, err := s.push(ctx, userID)
	if err != nil {
		s.status.Fail(err.Error())
		return report, err
	}

	pulled, err := s.pull(ctx, userID)
	report.Inserted = pulled.Inserted
	report.Updated = pulled.Updated
	report.Unchanged = pulled.Unchanged
	report.PullFailed = pulled.PullFailed
	if err != nil {
		s.status.Fail(err.Error())
		return report, err
	}
	s.finish(report)
	return report, nil
}

func (s *SyncService) finish(report SyncReport) {
	if failed := report.PushFailed + report.PullFailed; failed > 0 {
		s.status.Fail(fmt.Sprintf("%d record(s) could not be synced", failed))
		return
	}
	s.status.Succeed()
}

//
// Mirroring
//

// MirrorItem writes the item to the remote store when sync is enabled.
func (s *SyncService) MirrorItem(ctx context.Context, item *model.Item) error {
	userID, ok := s.Enabled()
	if !ok {
		return nil
	}
	return errors.Wrap(s.setItem(ctx, userID, item), "could not mirror item")
}

// MirrorDay writes the day to the remote store when sync is enabled.
func (s *SyncService) MirrorDay(ctx context.Context, day *model.Day) error {
	userID, ok := s.Enabled()
	if !ok {
		return nil
	}
	return errors.Wrap(s.setDay(ctx, userID, day), "could not mirror day")
}

// MirrorDelete removes the item from the remote store when sync is enabled.
func (s *SyncService) MirrorDelete(ctx context.Context, itemID string) error {
	userID, ok := s.Enabled()
	if !ok {
		return nil
	}
	return errors.Wrap(s.remote.Delete(ctx, remote.ItemsCollection(userID), itemID), "could not mirror deletion")
}
