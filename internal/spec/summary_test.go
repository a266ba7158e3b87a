package spec

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gopkg.in/yaml.v3"

	"github.com/roach88/fetchr/internal/entity"
)

func TestSummaryMarshalJSON(t *testing.T) {
	tests := []struct {
		name    string
		summary Summary
		want    string
	}{
		{
			name:    "model",
			summary: ModelSummary("listing", 9),
			want:    `{"model":"listing","id":9}`,
		},
		{
			name:    "collection",
			summary: CollectionSummary("listings", []any{1, 2, 1}, entity.Attributes{"page": 1}, entity.Attributes{"total": 3}),
			want:    `{"collection":"listings","ids":[1,2,1],"params":{"page":1},"meta":{"total":3}}`,
		},
		{
			name:    "empty collection",
			summary: CollectionSummary("listings", nil, nil, nil),
			want:    `{"collection":"listings","ids":[],"params":{},"meta":{}}`,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			data, err := json.Marshal(tt.summary)
			require.NoError(t, err)
			assert.Equal(t, tt.want, string(data))
		})
	}
}

func TestSummaryMarshalJSON_NoKind(t *testing.T) {
	_, err := json.Marshal(Summary{Name: "listing"})
	assert.Error(t, err)
}

func TestSummaryUnmarshalJSON(t *testing.T) {
	var m Summary
	require.NoError(t, json.Unmarshal([]byte(`{"model":"listing","id":9}`), &m))
	assert.Equal(t, ModelSummary("listing", int64(9)), m)

	var c Summary
	require.NoError(t, json.Unmarshal([]byte(`{"collection":"listings","ids":[1,"a"],"params":{},"meta":{"n":1.5}}`), &c))
	assert.Equal(t, KindCollection, c.Kind)
	assert.Equal(t, []any{int64(1), "a"}, c.IDs)
	assert.Equal(t, entity.Attributes{}, c.Params)
	assert.Equal(t, entity.Attributes{"n": 1.5}, c.Meta)
}

func TestSummaryUnmarshal_Union(t *testing.T) {
	var s Summary
	assert.Error(t, json.Unmarshal([]byte(`{"model":"listing","collection":"listings"}`), &s))
	assert.Error(t, json.Unmarshal([]byte(`{"id":1}`), &s))
}

func TestSummaryUnmarshalYAML(t *testing.T) {
	var s Summary
	require.NoError(t, yaml.Unmarshal([]byte("collection: listings\nids: [1, 2]\nparams: {page: 1}\n"), &s))
	assert.Equal(t, CollectionSummary("listings", []any{int64(1), int64(2)}, entity.Attributes{"page": int64(1)}, nil), s)
}

func TestSummaryEqual(t *testing.T) {
	assert.True(t, ModelSummary("listing", 9).Equal(ModelSummary("listing", int64(9))))
	assert.False(t, ModelSummary("listing", 9).Equal(ModelSummary("listing", 10)))
}
