package server

import (
	"net/http"

	"github.com/labstack/echo/v4"
	"github.com/mdouchement/starving/internal/apperror"
	"github.com/mdouchement/starving/internal/remote"
	"github.com/sirupsen/logrus"
)

// document contains all document handlers.
type document struct {
	store  remote.Backend
	logger logrus.FieldLogger
}

type documentParams struct {
	Collection string         `json:"collection"`
	ID         string         `json:"id"`
	Data       map[string]any `json:"data"`
	Ops        []remote.Op    `json:"ops"`
}

func (h *document) bind(c echo.Context) (documentParams, error) {
	var params documentParams
	if err := c.Bind(&params); err != nil {
		return params, apperror.New(apperror.KindValidation, apperror.TagInvalidParameters, "Could not get document params.")
	}
	if params.Collection == "" {
		return params, apperror.New(apperror.KindValidation, apperror.TagInvalidParameters, "Missing collection.")
	}
	return params, nil
}

// Me returns the authenticated user.
func (h *document) Me(c echo.Context) error {
	return c.JSON(http.StatusOK, echo.Map{
		"user_id": currentUser(c),
	})
}

// Get returns a document.
func (h *document) Get(c echo.Context) error {
	params, err := h.bind(c)
	if err != nil {
		return err
	}

	doc, err := h.store.Get(currentUser(c), params.Collection, params.ID)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, doc)
}

// Set creates or replaces a document.
func (h *document) Set(c echo.Context) error {
	params, err := h.bind(c)
	if err != nil {
		return err
	}

	if err = h.store.Set(currentUser(c), params.Collection, params.ID, params.Data); err != nil {
		return err
	}
	return c.NoContent(http.StatusNoContent)
}

// Add creates a document, the id is generated when omitted.
func (h *document) Add(c echo.Context) error {
	params, err := h.bind(c)
	if err != nil {
		return err
	}
	if params.ID == "" {
		params.ID = remote.NewID()
	}

	if err = h.store.Add(currentUser(c), params.Collection, params.ID, params.Data); err != nil {
		return err
	}
	return c.JSON(http.StatusCreated, echo.Map{
		"id": params.ID,
	})
}

// Update applies field operations on a document.
func (h *document) Update(c echo.Context) error {
	params, err := h.bind(c)
	if err != nil {
		return err
	}
	if len(params.Ops) == 0 {
		return apperror.New(apperror.KindValidation, apperror.TagInvalidParameters, "Missing operations.")
	}

	if err = h.store.Update(currentUser(c), params.Collection, params.ID, params.Ops); err != nil {
		return err
	}
	return c.NoContent(http.StatusNoContent)
}

// Delete removes a document.
func (h *document) Delete(c echo.Context) error {
	params, err := h.bind(c)
	if err != nil {
		return err
	}

	if err = h.store.Delete(currentUser(c), params.Collection, params.ID); err != nil {
		return err
	}
	return c.NoContent(http.StatusNoContent)
}

// Query returns the documents matching the given query.
func (h *document) Query(c echo.Context) error {
	var query remote.Query
	if err := c.Bind(&query); err != nil {
		return apperror.New(apperror.KindValidation, apperror.TagInvalidParameters, "Could not get query params.")
	}

	docs, err := h.store.Query(currentUser(c), query)
	if err != nil {
		return err
	}

	h.logger.WithFields(logrus.Fields{
		"user_id":    currentUser(c),
		"collection": query.Collection,
		"count":      len(docs),
	}).Debug("query")

	return c.JSON(http.StatusOK, echo.Map{
		"documents": docs,
	})
}
