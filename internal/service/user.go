package service

import "sync"

type (
	// A UserProvider returns the authenticated user id, if any.
	UserProvider interface {
		UserID() (string, bool)
	}

	// A StaticUser is a UserProvider always returning the same user.
	StaticUser string

	// A CurrentUser is a UserProvider updated on sign in and sign out.
	CurrentUser struct {
		mu sync.RWMutex
		id string
	}
)

// UserID implements UserProvider.
func (u StaticUser) UserID() (string, bool) {
	return string(u), u != ""
}

// NewCurrentUser returns a CurrentUser signed in as id, or signed out when id is empty.
func NewCurrentUser(id string) *CurrentUser {
	return &CurrentUser{id: id}
}

// UserID implements UserProvider.
func (u *CurrentUser) UserID() (string, bool) {
	u.mu.RLock()
	defer u.mu.RUnlock()
	return u.id, u.id != ""
}

// SignIn sets the authenticated user.
func (u *CurrentUser) SignIn(id string) {
	u.mu.Lock()
	u.id = id
	u.mu.Unlock()
}

// SignOut clears the authenticated user.
func (u *CurrentUser) SignOut() {
	u.SignIn("")
}
