package docstore

import (
	"github.com/asdine/storm/v3"
	"github.com/asdine/storm/v3/q"
	"github.com/mdouchement/starving/internal/apperror"
	"github.com/mdouchement/starving/internal/remote"
	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"
)

// A PurgeReport counts what Purge removed.
type PurgeReport struct {
	Documents   int
	SharedLists int
	Memberships int
}

// Purge removes every document of the given user: items, days, preferences and owned shared lists.
// The user is also withdrawn from the shared lists it received.
func (s *Store) Purge(userID string) (PurgeReport, error) {
	var report PurgeReport
	if userID == "" {
		return report, apperror.New(apperror.KindValidation, apperror.TagInvalidParameters, "missing user id")
	}

	tx, err := s.db.Begin(true)
	if err != nil {
		return report, errors.Wrap(err, "could not begin transaction")
	}
	defer tx.Rollback() // nolint:errcheck

	// Private collections
	private := []string{remote.ItemsCollection(userID), remote.DaysCollection(userID)}
	var docs []*Document
	err = tx.Select(q.In("Collection", private)).Find(&docs)
	if err != nil && errors.Cause(err) != storm.ErrNotFound {
		return report, errors.Wrap(err, "could not find documents")
	}

	var prefs Document
	err = tx.One("Key", key(remote.PreferencesCollection, userID), &prefs)
	if err == nil {
		docs = append(docs, &prefs)
	} else if errors.Cause(err) != storm.ErrNotFound {
		return report, errors.Wrap(err, "could not find preferences")
	}

	for _, doc := range docs {
		if err = tx.DeleteStruct(doc); err != nil {
			return report, errors.Wrap(err, "could not delete document")
		}
		report.Documents++
	}

	// Shared lists
	var lists []*Document
	err = tx.Select(q.Eq("Collection", remote.SharedListsCollection)).Find(&lists)
	if err != nil && errors.Cause(err) != storm.ErrNotFound {
		return report, errors.Wrap(err, "could not find shared lists")
	}

	for _, doc := range lists {
		if doc.Data[remote.FieldOwnerID] == userID {
			if err = tx.DeleteStruct(doc); err != nil {
				return report, errors.Wrap(err, "could not delete shared list")
			}
			report.SharedLists++
			continue
		}

		if !withdraw(doc.Data, userID) {
			continue
		}
		doc.UpdatedAt = s.now()
		if err = tx.Save(doc); err != nil {
			return report, errors.Wrap(err, "could not save shared list")
		}
		report.Memberships++
	}

	if err = tx.Commit(); err != nil {
		return report, errors.Wrap(err, "could not commit transaction")
	}

	s.logger.WithFields(logrus.Fields{
		"user_id":      userID,
		"documents":    report.Documents,
		"shared_lists": report.SharedLists,
		"memberships":  report.Memberships,
	}).Info("user purged")
	return report, nil
}

// withdraw removes the user from the recipients and the completion status of the list data.
func withdraw(data map[string]any, userID string) bool {
	recipients, _ := data[remote.FieldRecipientIDs].([]any)
	if !contains(recipients, userID) {
		return false
	}

	kept := make([]any, 0, len(recipients))
	for _, r := range recipients {
		if r != userID {
			kept = append(kept, r)
		}
	}
	data[remote.FieldRecipientIDs] = kept

	if status, ok := data[remote.FieldCompletionStatus].(map[string]any); ok {
		delete(status, userID)
	}
	return true
}
