package client

import (
	"os"

	"github.com/pkg/errors"
)

// Logout forgets the stored credentials, local data is kept.
func Logout(filename string) error {
	if _, err := os.Stat(filename); err != nil {
		return errors.Wrap(err, "not logged in")
	}
	return errors.Wrap(Remove(filename), "could not remove credentials file")
}
