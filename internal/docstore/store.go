// Package docstore implements the remote document database backing the sync and sharing features.
package docstore

import (
	"sort"
	"time"

	"github.com/asdine/storm/v3"
	"github.com/asdine/storm/v3/q"
	"github.com/mdouchement/starving/internal/apperror"
	"github.com/mdouchement/starving/internal/remote"
	"github.com/mdouchement/starving/pkg/stormcbor"
	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"
)

// A Store is a storm backed document database enforcing the access policy of every caller.
type Store struct {
	db     *storm.DB
	policy Policy
	logger logrus.FieldLogger
	now    func() time.Time
}

var codec = storm.Codec(stormcbor.Codec)

// Init initializes the document database.
func Init(database string) error {
	db, err := storm.Open(database, codec)
	if err != nil {
		return errors.Wrap(err, "could not get database connection")
	}
	defer db.Close()

	return errors.Wrap(db.Init(&Document{}), "could not init indexes")
}

// ReIndex reindexes the document database.
func ReIndex(database string) error {
	db, err := storm.Open(database, codec)
	if err != nil {
		return errors.Wrap(err, "could not get database connection")
	}
	defer db.Close()

	return errors.Wrap(db.ReIndex(&Document{}), "could not ReIndex documents")
}

// Open returns a new document database.
func Open(database string, policy Policy, logger logrus.FieldLogger) (*Store, error) {
	db, err := storm.Open(database, codec)
	if err != nil {
		return nil, errors.Wrap(err, "could not get database connection")
	}

	if err = db.Init(&Document{}); err != nil {
		db.Close()
		return nil, errors.Wrap(err, "could not init indexes")
	}

	if logger == nil {
		logger = logrus.StandardLogger()
	}

	return &Store{
		db:     db,
		policy: policy,
		logger: logger,
		now:    time.Now,
	}, nil
}

// Close the database.
func (s *Store) Close() error {
	return s.db.Close()
}

// As returns a Store client acting as the given user.
func (s *Store) As(userID string) remote.Store {
	return remote.NewLocal(s, userID)
}

func (s *Store) authorize(caller, collection, id string) error {
	if caller == "" {
		return errUnauthenticated
	}
	if err := validateCollection(collection); err != nil {
		return err
	}
	if id != "" {
		if err := validateID(id); err != nil {
			return err
		}
	}
	if collection == remote.SharedListsCollection {
		return nil
	}
	return canAccessPrivate(caller, collection, id)
}

// Get returns the document identified by collection and id.
func (s *Store) Get(caller, collection, id string) (*remote.Document, error) {
	if err := s.authorize(caller, collection, id); err != nil {
		return nil, err
	}

	var doc Document
	if err := s.db.One("Key", key(collection, id), &doc); err != nil {
		if errors.Cause(err) == storm.ErrNotFound {
			return nil, errNotFound
		}
		return nil, errors.Wrap(err, "could not find document")
	}
	return &remote.Document{ID: doc.DocID, Data: doc.Data}, nil
}

// Set creates or replaces the document.
func (s *Store) Set(caller, collection, id string, data map[string]any) error {
	return s.put(caller, collection, id, data, false)
}

// Add creates the document, it fails if the document already exists.
func (s *Store) Add(caller, collection, id string, data map[string]any) error {
	return s.put(caller, collection, id, data, true)
}

func (s *Store) put(caller, collection, id string, data map[string]any, create bool) error {
	if err := s.authorize(caller, collection, id); err != nil {
		return err
	}

	data, err := remote.Normalize(data)
	if err != nil {
		return apperror.New(apperror.KindValidation, apperror.TagInvalidParameters, errors.Cause(err).Error())
	}

	tx, err := s.db.Begin(true)
	if err != nil {
		return errors.Wrap(err, "could not begin transaction")
	}
	defer tx.Rollback() // nolint:errcheck

	var doc Document
	err = tx.One("Key", key(collection, id), &doc)
	exists := err == nil
	if err != nil && errors.Cause(err) != storm.ErrNotFound {
		return errors.Wrap(err, "could not find document")
	}
	if exists && create {
		return apperror.New(apperror.KindValidation, apperror.TagInvalidParameters, "document already exists")
	}

	if collection == remote.SharedListsCollection {
		var current map[string]any
		if exists {
			current = doc.Data
		}
		if err = s.policy.canWriteList(caller, current, data); err != nil {
			return err
		}
	}

	now := s.now()
	if !exists {
		doc = Document{
			Key:        key(collection, id),
			Collection: collection,
			DocID:      id,
			CreatedAt:  now,
		}
	}
	doc.Data = data
	doc.UpdatedAt = now

	if err = tx.Save(&doc); err != nil {
		return errors.Wrap(err, "could not save document")
	}
	return errors.Wrap(tx.Commit(), "could not commit transaction")
}

// Update applies the field operations on an existing document.
func (s *Store) Update(caller, collection, id string, ops []remote.Op) error {
	if err := s.authorize(caller, collection, id); err != nil {
		return err
	}

	tx, err := s.db.Begin(true)
	if err != nil {
		return errors.Wrap(err, "could not begin transaction")
	}
	defer tx.Rollback() // nolint:errcheck

	var doc Document
	if err = tx.One("Key", key(collection, id), &doc); err != nil {
		if errors.Cause(err) == storm.ErrNotFound {
			return errNotFound
		}
		return errors.Wrap(err, "could not find document")
	}

	if collection == remote.SharedListsCollection {
		if err = s.policy.canUpdateList(caller, doc.Data, ops); err != nil {
			return err
		}
	}

	current := doc.Data
	if doc.Data, err = remote.Normalize(doc.Data); err != nil {
		return errors.Wrap(err, "could not read document")
	}
	if err = apply(doc.Data, ops); err != nil {
		return err
	}
	if collection == remote.SharedListsCollection {
		if doc.Data[remote.FieldOwnerID] != current[remote.FieldOwnerID] {
			return errPermission
		}
		if err = keepsMembership(current, doc.Data); err != nil {
			return err
		}
	}
	doc.UpdatedAt = s.now()

	if err = tx.Save(&doc); err != nil {
		return errors.Wrap(err, "could not save document")
	}
	return errors.Wrap(tx.Commit(), "could not commit transaction")
}

// Delete removes the document.
func (s *Store) Delete(caller, collection, id string) error {
	if err := s.authorize(caller, collection, id); err != nil {
		return err
	}

	var doc Document
	if err := s.db.One("Key", key(collection, id), &doc); err != nil {
		if errors.Cause(err) == storm.ErrNotFound {
			return nil
		}
		return errors.Wrap(err, "could not find document")
	}

	if collection == remote.SharedListsCollection && doc.Data[remote.FieldOwnerID] != caller {
		return errPermission
	}

	return errors.Wrap(s.db.DeleteStruct(&doc), "could not delete document")
}

// Query returns the documents matching the query.
func (s *Store) Query(caller string, query remote.Query) ([]*remote.Document, error) {
	if caller == "" {
		return nil, errUnauthenticated
	}
	if err := validateCollection(query.Collection); err != nil {
		return nil, err
	}

	query.Where = append([]remote.Filter(nil), query.Where...)
	for i, f := range query.Where {
		if f.Operator != remote.Equal && f.Operator != remote.ArrayContains {
			return nil, apperror.Newf(apperror.KindValidation, apperror.TagInvalidParameters, "unsupported operator %q", f.Operator)
		}
		v, err := normalize(f.Value)
		if err != nil {
			return nil, err
		}
		query.Where[i].Value = v
	}
	if err := s.policy.canQuery(caller, query); err != nil {
		return nil, err
	}

	matchers := []q.Matcher{q.Eq("Collection", query.Collection)}
	for _, f := range query.Where {
		matchers = append(matchers, q.NewFieldMatcher("Data", filter(f)))
	}

	docs := make([]*Document, 0)
	err := s.db.Select(matchers...).Find(&docs)
	if err != nil && errors.Cause(err) != storm.ErrNotFound {
		return nil, errors.Wrap(err, "could not query documents")
	}

	if query.OrderBy != "" {
		sort.SliceStable(docs, func(i, j int) bool {
			a, b := lookup(docs[i].Data, query.OrderBy), lookup(docs[j].Data, query.OrderBy)
			if query.Descending {
				return less(b, a)
			}
			return less(a, b)
		})
	}
	if query.Limit > 0 && len(docs) > query.Limit {
		docs = docs[:query.Limit]
	}

	s.logger.WithFields(logrus.Fields{
		"collection": query.Collection,
		"count":      len(docs),
	}).Debug("documents queried")

	results := make([]*remote.Document, 0, len(docs))
	for _, doc := range docs {
		results = append(results, &remote.Document{ID: doc.DocID, Data: doc.Data})
	}
	return results, nil
}

type filter remote.Filter

func (f filter) MatchField(v any) (bool, error) {
	data, ok := v.(map[string]any)
	if !ok {
		return false, nil
	}
	return match(data, remote.Filter(f)), nil
}
