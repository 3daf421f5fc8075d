package server_test

import (
	"encoding/json"
	"net/http"
	"os"
	"testing"
	"time"

	"github.com/appleboy/gofight/v2"
	"github.com/labstack/echo/v4"
	"github.com/mdouchement/starving/internal/docstore"
	"github.com/mdouchement/starving/internal/server"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRequestHome(t *testing.T) {
	engine, _, r, cleanup := setup()
	defer cleanup()

	r.GET("/").Run(engine, func(r gofight.HTTPResponse, rq gofight.HTTPRequest) {
		assert.Equal(t, http.StatusOK, r.Code)
		assert.JSONEq(t, `{"version":"test"}`, r.Body.String())
	})
}

func TestRequestVersion(t *testing.T) {
	engine, _, r, cleanup := setup()
	defer cleanup()

	r.GET("/version").Run(engine, func(r gofight.HTTPResponse, rq gofight.HTTPRequest) {
		assert.Equal(t, http.StatusOK, r.Code)
		assert.JSONEq(t, `{"version":"test"}`, r.Body.String())
	})
}

func TestAuthentication(t *testing.T) {
	engine, ctrl, r, cleanup := setup()
	defer cleanup()

	r.GET("/me").Run(engine, func(r gofight.HTTPResponse, rq gofight.HTTPRequest) {
		assert.Equal(t, http.StatusUnauthorized, r.Code)
		assert.JSONEq(t, `{"error":{"tag":"invalid-auth", "message":"Invalid login credentials."}}`, r.Body.String())
	})

	r.GET("/me").SetHeader(gofight.H{"Authorization": "Bearer garbage"}).Run(engine, func(r gofight.HTTPResponse, rq gofight.HTTPRequest) {
		assert.Equal(t, http.StatusUnauthorized, r.Code)
	})

	expired, err := server.CreateJWT(ctrl.SigningKey, "alice", -time.Minute)
	require.NoError(t, err)
	r.GET("/me").SetHeader(bearer(expired)).Run(engine, func(r gofight.HTTPResponse, rq gofight.HTTPRequest) {
		assert.Equal(t, http.StatusUnauthorized, r.Code)
	})

	jwt, err := server.CreateJWT(ctrl.SigningKey, "alice", time.Hour)
	require.NoError(t, err)
	r.GET("/me").SetHeader(bearer(jwt)).Run(engine, func(r gofight.HTTPResponse, rq gofight.HTTPRequest) {
		assert.Equal(t, http.StatusOK, r.Code)
		assert.JSONEq(t, `{"user_id":"alice"}`, r.Body.String())
	})

	paseto, err := server.CreatePASETO(ctrl.SessionSecret, "bob", time.Hour)
	require.NoError(t, err)
	r.GET("/me").SetHeader(bearer(paseto)).Run(engine, func(r gofight.HTTPResponse, rq gofight.HTTPRequest) {
		assert.Equal(t, http.StatusOK, r.Code)
		assert.JSONEq(t, `{"user_id":"bob"}`, r.Body.String())
	})
}

func TestRequestDocuments(t *testing.T) {
	engine, ctrl, r, cleanup := setup()
	defer cleanup()

	alice := token(t, ctrl, "alice")
	bob := token(t, ctrl, "bob")

	r.POST("/documents/set").SetHeader(alice).Run(engine, func(r gofight.HTTPResponse, rq gofight.HTTPRequest) {
		assert.Equal(t, http.StatusBadRequest, r.Code)
		assert.JSONEq(t, `{"error":{"tag":"invalid-parameters","message":"Could not get document params."}}`, r.Body.String())
	})

	r.POST("/documents/add").SetHeader(alice).SetJSON(gofight.D{
		"collection": "sharedLists",
		"data": gofight.D{
			"name":         "Weekly",
			"ownerId":      "alice",
			"ownerName":    "Alice",
			"itemTitles":   []string{"Milk"},
			"recipientIds": []string{},
		},
	}).Run(engine, func(r gofight.HTTPResponse, rq gofight.HTTPRequest) {
		assert.Equal(t, http.StatusCreated, r.Code)
	})

	r.POST("/documents/set").SetHeader(alice).SetJSON(gofight.D{
		"collection": "sharedLists",
		"id":         "L1",
		"data": gofight.D{
			"name":         "Weekly",
			"ownerId":      "alice",
			"ownerName":    "Alice",
			"itemTitles":   []string{"Milk"},
			"recipientIds": []string{},
		},
	}).Run(engine, func(r gofight.HTTPResponse, rq gofight.HTTPRequest) {
		assert.Equal(t, http.StatusNoContent, r.Code)
	})

	r.POST("/documents/get").SetHeader(bob).SetJSON(gofight.D{
		"collection": "sharedLists",
		"id":         "L1",
	}).Run(engine, func(r gofight.HTTPResponse, rq gofight.HTTPRequest) {
		assert.Equal(t, http.StatusOK, r.Code)

		var doc struct {
			ID   string         `json:"id"`
			Data map[string]any `json:"data"`
		}
		require.NoError(t, json.Unmarshal(r.Body.Bytes(), &doc))
		assert.Equal(t, "L1", doc.ID)
		assert.Equal(t, "Weekly", doc.Data["name"])
	})

	r.POST("/documents/update").SetHeader(bob).SetJSON(gofight.D{
		"collection": "sharedLists",
		"id":         "L1",
		"ops": []gofight.D{
			{"op": "arrayUnion", "path": "recipientIds", "values": []string{"bob"}},
		},
	}).Run(engine, func(r gofight.HTTPResponse, rq gofight.HTTPRequest) {
		assert.Equal(t, http.StatusForbidden, r.Code)
		assert.JSONEq(t, `{"error":{"tag":"permission-denied","message":"missing or insufficient permissions"}}`, r.Body.String())
	})

	r.POST("/documents/get").SetHeader(bob).SetJSON(gofight.D{
		"collection": "sharedLists",
		"id":         "unknown",
	}).Run(engine, func(r gofight.HTTPResponse, rq gofight.HTTPRequest) {
		assert.Equal(t, http.StatusNotFound, r.Code)
		assert.JSONEq(t, `{"error":{"tag":"not-found","message":"document not found"}}`, r.Body.String())
	})

	r.POST("/documents/query").SetHeader(alice).SetJSON(gofight.D{
		"collection": "sharedLists",
		"where": []gofight.D{
			{"field": "ownerId", "operator": "==", "value": "alice"},
		},
		"order_by":   "name",
		"descending": true,
	}).Run(engine, func(r gofight.HTTPResponse, rq gofight.HTTPRequest) {
		assert.Equal(t, http.StatusOK, r.Code)

		var result struct {
			Documents []map[string]any `json:"documents"`
		}
		require.NoError(t, json.Unmarshal(r.Body.Bytes(), &result))
		assert.Len(t, result.Documents, 2)
	})

	r.POST("/documents/delete").SetHeader(alice).SetJSON(gofight.D{
		"collection": "sharedLists",
		"id":         "L1",
	}).Run(engine, func(r gofight.HTTPResponse, rq gofight.HTTPRequest) {
		assert.Equal(t, http.StatusNoContent, r.Code)
	})
}

func setup() (engine *echo.Echo, ctrl server.Controller, r *gofight.RequestConfig, cleanup func()) {
	tmpfile, err := os.CreateTemp("", "starving.*.db")
	if err != nil {
		panic(err)
	}
	filename := tmpfile.Name()
	tmpfile.Close()

	store, err := docstore.Open(filename, docstore.Policy{}, nil)
	if err != nil {
		panic(err)
	}

	ctrl = server.Controller{
		Version:       "test",
		Store:         store,
		SigningKey:    []byte("secret"),
		SessionSecret: []byte("00000000000000000000000000000000"),
	}
	engine = server.EchoEngine(ctrl)

	return engine, ctrl, gofight.New(), func() {
		store.Close()
		os.RemoveAll(filename)
	}
}

func token(t *testing.T, ctrl server.Controller, userID string) gofight.H {
	tk, err := server.CreateJWT(ctrl.SigningKey, userID, time.Hour)
	require.NoError(t, err)
	return bearer(tk)
}

func bearer(token string) gofight.H {
	return gofight.H{
		"Authorization": "Bearer " + token,
	}
}
