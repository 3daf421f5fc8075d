package stormcbor_test

import (
	"testing"

	"github.com/mdouchement/starving/pkg/stormcbor"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type document struct {
	Key  string
	Data map[string]any
}

func TestCodec(t *testing.T) {
	in := document{
		Key: "sharedLists/L1",
		Data: map[string]any{
			"name":             "Weekly",
			"itemTitles":       []any{"Milk", "Eggs"},
			"completionStatus": map[string]any{"bob": true},
			"createdAt":        float64(1700000000000),
		},
	}

	b, err := stormcbor.Codec.Marshal(in)
	require.NoError(t, err)

	var out document
	require.NoError(t, stormcbor.Codec.Unmarshal(b, &out))
	assert.Equal(t, in, out)
	assert.Equal(t, "cbor", stormcbor.Codec.Name())
}
