package client

import (
	"github.com/mdouchement/starving/internal/database"
	"github.com/mdouchement/starving/internal/docstore"
	"github.com/mdouchement/starving/internal/hybrid"
	"github.com/mdouchement/starving/internal/remote"
	"github.com/mdouchement/starving/internal/service"
	"github.com/mdouchement/starving/pkg/docclient"
	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"
)

// An App wires the local store, the remote store and the manager of a device.
type App struct {
	Settings Settings
	DB       database.Client
	Remote   remote.Store
	User     *service.CurrentUser
	Manager  *hybrid.Manager

	closers []func() error
}

// Open opens the local store and connects the remote store.
// In embedded mode the document database is opened in-process as settings.UserID,
// otherwise the sealed credentials are used and a missing credentials file leaves the device signed out.
func Open(settings Settings, logger logrus.FieldLogger) (*App, error) {
	if logger == nil {
		logger = logrus.StandardLogger()
	}

	db, err := database.StormOpen(settings.DatabasePath)
	if err != nil {
		return nil, errors.Wrap(err, "could not open local database")
	}

	app := &App{
		Settings: settings,
		DB:       db,
		User:     service.NewCurrentUser(""),
		closers:  []func() error{db.Close},
	}

	switch {
	case settings.Embedded != "":
		docs, err := docstore.Open(settings.Embedded, docstore.Policy{RecipientWrites: settings.RecipientWrites}, logger)
		if err != nil {
			app.Close()
			return nil, errors.Wrap(err, "could not open embedded document database")
		}
		app.closers = append(app.closers, docs.Close)
		app.Remote = docs.As(settings.UserID)
		app.User.SignIn(settings.UserID)
	default:
		creds, err := Load(settings.Credentials)
		if err != nil {
			logger.WithError(err).Info("no credentials, working offline")
			creds = Credentials{Endpoint: settings.Endpoint}
		}
		client, err := docclient.NewDefaultClient(creds.Endpoint, creds.BearerToken)
		if err != nil {
			app.Close()
			return nil, err
		}
		app.Remote = client
		app.User.SignIn(creds.UserID)
	}

	app.Manager = hybrid.New(app.DB, app.Remote, app.User, hybrid.Options{
		Scheme:           settings.Scheme,
		StatusResetDelay: settings.StatusResetDelay,
		OwnerName:        settings.UserName,
		OwnerAvatar:      settings.UserAvatar,
		Logger:           logger,
	})
	return app, nil
}

// Close waits for the background mirrors and closes the stores.
func (a *App) Close() error {
	if a.Manager != nil {
		a.Manager.Wait()
	}

	var errs []error
	for i := len(a.closers) - 1; i >= 0; i-- {
		if err := a.closers[i](); err != nil {
			errs = append(errs, err)
		}
	}
	if len(errs) > 0 {
		return errors.Wrap(errs[0], "could not close app")
	}
	return nil
}
