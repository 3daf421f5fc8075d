// Package docclient is an HTTP client of the starving document server.
package docclient

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/url"
	"path"

	"github.com/mdouchement/starving/internal/apperror"
	"github.com/mdouchement/starving/internal/remote"
	"github.com/pkg/errors"
)

type (
	// A Client is a remote.Store backed by a document server.
	Client struct {
		http     *http.Client
		endpoint string
		bearer   string
	}

	p map[string]any
)

// NewDefaultClient returns a new Client with default HTTP client.
func NewDefaultClient(endpoint, bearer string) (*Client, error) {
	return NewClient(http.DefaultClient, endpoint, bearer)
}

// NewClient returns a new Client.
func NewClient(c *http.Client, endpoint, bearer string) (*Client, error) {
	_, err := url.Parse(endpoint)
	return &Client{http: c, endpoint: endpoint, bearer: bearer}, errors.Wrap(err, "could not parse endpoint")
}

// BearerToken returns the authentication used for requests sent to the server.
func (c *Client) BearerToken() string {
	return c.bearer
}

// SetBearerToken sets the authentication used for requests sent to the server.
func (c *Client) SetBearerToken(token string) {
	c.bearer = token
}

// Version returns the version of the server.
func (c *Client) Version(ctx context.Context) (string, error) {
	var v struct {
		Version string `json:"version"`
	}
	err := c.do(ctx, http.MethodGet, "/version", nil, &v)
	return v.Version, err
}

// Me returns the user id authenticated by the bearer token.
func (c *Client) Me(ctx context.Context) (string, error) {
	var v struct {
		UserID string `json:"user_id"`
	}
	err := c.do(ctx, http.MethodGet, "/me", nil, &v)
	return v.UserID, err
}

// NewID returns a fresh document id.
func (c *Client) NewID(string) string {
	return remote.NewID()
}

// Get returns the document identified by collection and id.
func (c *Client) Get(ctx context.Context, collection, id string) (*remote.Document, error) {
	var doc remote.Document
	err := c.do(ctx, http.MethodPost, "/documents/get", p{"collection": collection, "id": id}, &doc)
	if err != nil {
		return nil, err
	}
	return &doc, nil
}

// Set creates or replaces the document.
func (c *Client) Set(ctx context.Context, collection, id string, data map[string]any) error {
	return c.do(ctx, http.MethodPost, "/documents/set", p{"collection": collection, "id": id, "data": data}, nil)
}

// Add creates a document with a generated id.
func (c *Client) Add(ctx context.Context, collection string, data map[string]any) (string, error) {
	var v struct {
		ID string `json:"id"`
	}
	err := c.do(ctx, http.MethodPost, "/documents/add", p{"collection": collection, "data": data}, &v)
	return v.ID, err
}

// Update applies the field operations on an existing document.
func (c *Client) Update(ctx context.Context, collection, id string, ops ...remote.Op) error {
	return c.do(ctx, http.MethodPost, "/documents/update", p{"collection": collection, "id": id, "ops": ops}, nil)
}

// Delete removes the document.
func (c *Client) Delete(ctx context.Context, collection, id string) error {
	return c.do(ctx, http.MethodPost, "/documents/delete", p{"collection": collection, "id": id}, nil)
}

// Query returns the documents matching the query.
func (c *Client) Query(ctx context.Context, q remote.Query) ([]*remote.Document, error) {
	var v struct {
		Documents []*remote.Document `json:"documents"`
	}
	if err := c.do(ctx, http.MethodPost, "/documents/query", q, &v); err != nil {
		return nil, err
	}
	if v.Documents == nil {
		v.Documents = []*remote.Document{}
	}
	return v.Documents, nil
}

func (c *Client) do(ctx context.Context, method, route string, payload, result any) error {
	u, err := url.Parse(c.endpoint)
	if err != nil {
		return errors.Wrap(err, "could not parse endpoint")
	}
	u.Path = path.Join(u.Path, route)

	//
	// Build request
	var body io.Reader
	if payload != nil {
		b, err := json.Marshal(payload)
		if err != nil {
			return errors.Wrap(err, "could not serialize payload")
		}
		body = bytes.NewReader(b)
	}

	req, err := http.NewRequestWithContext(ctx, method, u.String(), body)
	if err != nil {
		return errors.Wrap(err, "could not build request")
	}
	req.Close = true
	req.Header.Add("Content-Type", "application/json")
	req.Header.Add("Accept", "application/json")
	if c.bearer != "" {
		req.Header.Add("Authorization", "Bearer "+c.bearer)
	}

	//
	// Perform request
	res, err := c.http.Do(req)
	if err != nil {
		return apperror.Connectivity(errors.Wrap(err, "could not perform request"))
	}
	defer res.Body.Close()

	if res.StatusCode >= 400 {
		return parseError(res.Body, res.StatusCode)
	}

	//
	// Process response
	if result == nil || res.StatusCode == http.StatusNoContent {
		return nil
	}
	dec := json.NewDecoder(res.Body)
	return errors.Wrap(dec.Decode(result), "could not parse response")
}

func parseError(r io.Reader, code int) error {
	var payload struct {
		Error struct {
			Tag     string `json:"tag"`
			Message string `json:"message"`
		} `json:"error"`
	}
	if err := json.NewDecoder(r).Decode(&payload); err != nil || payload.Error.Message == "" {
		return apperror.FromResponse(code, "", http.StatusText(code))
	}
	return apperror.FromResponse(code, payload.Error.Tag, payload.Error.Message)
}
