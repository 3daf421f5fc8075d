package docstore

import (
	"strings"

	"github.com/mdouchement/starving/internal/apperror"
	"github.com/mdouchement/starving/internal/remote"
)

// A Policy configures the access rules of shared lists.
type Policy struct {
	// RecipientWrites lets a non-owner register itself as recipient and flip its own completion entry.
	RecipientWrites bool
}

var (
	errUnauthenticated = apperror.New(apperror.KindPermission, apperror.TagInvalidAuth, "authentication required")
	errPermission      = apperror.New(apperror.KindPermission, apperror.TagPermissionDenied, "missing or insufficient permissions")
	errNotFound        = apperror.New(apperror.KindNotFound, apperror.TagNotFound, "document not found")
)

func validateCollection(collection string) error {
	switch collection {
	case remote.PreferencesCollection, remote.SharedListsCollection:
		return nil
	}

	parts := strings.Split(collection, "/")
	if len(parts) == 3 && parts[0] == "users" && parts[1] != "" && (parts[2] == "items" || parts[2] == "days") {
		return nil
	}
	return apperror.Newf(apperror.KindValidation, apperror.TagInvalidParameters, "unknown collection %q", collection)
}

func validateID(id string) error {
	if id == "" || strings.Contains(id, "/") {
		return apperror.New(apperror.KindValidation, apperror.TagInvalidParameters, "invalid document id")
	}
	return nil
}

// canAccessPrivate checks the caller against the user scoped collections.
func canAccessPrivate(caller, collection, id string) error {
	if collection == remote.PreferencesCollection {
		if id != caller {
			return errPermission
		}
		return nil
	}
	if remote.CollectionOwner(collection) != caller {
		return errPermission
	}
	return nil
}

func (p Policy) canQuery(caller string, q remote.Query) error {
	switch q.Collection {
	case remote.SharedListsCollection:
		for _, f := range q.Where {
			if f.Field == remote.FieldOwnerID && f.Operator == remote.Equal && f.Value == caller {
				return nil
			}
			if f.Field == remote.FieldRecipientIDs && f.Operator == remote.ArrayContains && f.Value == caller {
				return nil
			}
		}
		return errPermission
	case remote.PreferencesCollection:
		for _, f := range q.Where {
			if f.Field == remote.FieldUserID && f.Operator == remote.Equal && f.Value == caller {
				return nil
			}
		}
		return errPermission
	default:
		return canAccessPrivate(caller, q.Collection, "")
	}
}

// canWriteList checks a full document write on a shared list.
func (p Policy) canWriteList(caller string, current, next map[string]any) error {
	if next[remote.FieldOwnerID] != caller {
		return errPermission
	}
	if current == nil {
		return nil
	}
	if current[remote.FieldOwnerID] != caller {
		return errPermission
	}
	return keepsMembership(current, next)
}

// canUpdateList checks field operations on a shared list.
func (p Policy) canUpdateList(caller string, current map[string]any, ops []remote.Op) error {
	if current[remote.FieldOwnerID] == caller {
		return nil
	}
	if !p.RecipientWrites {
		return errPermission
	}

	for _, op := range ops {
		switch {
		case op.Kind == remote.OpArrayUnion && op.Path == remote.FieldRecipientIDs:
			for _, v := range op.Values {
				if v != caller {
					return errPermission
				}
			}
		case op.Kind == remote.OpMapSet && op.Path == remote.FieldCompletionStatus:
			if op.Key != caller {
				return errPermission
			}
		case op.Kind == remote.OpSet && op.Path == remote.FieldLastUpdated:
		default:
			return errPermission
		}
	}
	return nil
}

// keepsMembership rejects writes dropping recipients or completion entries.
func keepsMembership(current, next map[string]any) error {
	recipients, _ := next[remote.FieldRecipientIDs].([]any)
	for _, id := range asSlice(current[remote.FieldRecipientIDs]) {
		if !contains(recipients, id) {
			return apperror.New(apperror.KindValidation, apperror.TagInvalidParameters, "recipients can not be removed")
		}
	}

	completion, _ := next[remote.FieldCompletionStatus].(map[string]any)
	for k := range asMap(current[remote.FieldCompletionStatus]) {
		if _, ok := completion[k]; !ok {
			return apperror.New(apperror.KindValidation, apperror.TagInvalidParameters, "completion entries can not be removed")
		}
	}
	return nil
}
