package structs_test

import (
	"testing"

	"github.com/mdouchement/starving/pkg/structs"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type (
	Base struct {
		ID string `json:"id"`
	}

	record struct {
		Base
		Title  string `json:"title,omitempty"`
		Hidden bool   `json:"hidden"`
		Secret string `json:"-"`
		Plain  int
	}
)

func TestColumns(t *testing.T) {
	columns, err := structs.Columns(&record{}, "json")
	require.NoError(t, err)
	assert.Equal(t, map[string]string{
		"id":     "ID",
		"title":  "Title",
		"hidden": "Hidden",
	}, columns)
}

func TestProject(t *testing.T) {
	r := &record{Base: Base{ID: "1"}, Title: "Milk", Hidden: true, Plain: 42}

	projection, err := structs.Project(r, []string{"Title", "Hidden"})
	require.NoError(t, err)
	assert.Equal(t, map[string]any{"Title": "Milk", "Hidden": true}, projection)

	projection, err = structs.Project(r, nil)
	require.NoError(t, err)
	assert.Equal(t, "Milk", projection["Title"])
	assert.Equal(t, 42, projection["Plain"])

	_, err = structs.Project(r, []string{"Unknown"})
	assert.Error(t, err)
}
