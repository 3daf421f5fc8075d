package client

import (
	"context"
	"strings"

	"github.com/chzyer/readline"
	"github.com/mdouchement/starving/pkg/docclient"
	"github.com/pkg/errors"
)

// Login checks the given token against the document server and stores the credentials.
// Missing endpoint or token are prompted.
func Login(ctx context.Context, filename, endpoint, token string) (Credentials, error) {
	var err error
	creds := Credentials{}

	if endpoint == "" {
		endpoint, err = readline.Line("Endpoint: ")
		if err != nil {
			return creds, errors.Wrap(err, "could not read endpoint from stdin")
		}
	}
	creds.Endpoint = strings.TrimSpace(endpoint)

	if token == "" {
		secret, err := readline.Password("Token: ")
		if err != nil {
			return creds, errors.Wrap(err, "could not read token from stdin")
		}
		token = string(secret)
	}
	creds.BearerToken = strings.TrimSpace(token)

	client, err := docclient.NewDefaultClient(creds.Endpoint, creds.BearerToken)
	if err != nil {
		return creds, errors.Wrap(err, "could not reach given endpoint")
	}

	creds.UserID, err = client.Me(ctx)
	if err != nil {
		return creds, errors.Wrap(err, "could not login")
	}

	return creds, Save(filename, creds)
}
