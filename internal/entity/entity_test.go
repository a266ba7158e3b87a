package entity

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var (
	listingDef  = ModelDef{Name: "Listing", JSONKey: "listing"}
	listingsDef = CollectionDef{Name: "Listings", Model: "Listing", JSONKey: "listings"}
)

func TestAttributes_HasUsesPresence(t *testing.T) {
	a := Attributes{"zero": 0, "empty": "", "no": false, "nil": nil}

	for _, k := range []string{"zero", "empty", "no", "nil"} {
		assert.True(t, a.Has(k), k)
	}
	assert.False(t, a.Has("city"))
}

func TestAttributes_CloneIsIndependent(t *testing.T) {
	a := Attributes{"id": 1}
	b := a.Clone()
	b["id"] = 2

	assert.Equal(t, 1, a["id"])
	assert.NotNil(t, Attributes(nil).Clone())
}

func TestModelDef_IDAttr(t *testing.T) {
	assert.Equal(t, "id", ModelDef{Name: "Listing"}.IDAttr())
	assert.Equal(t, "login", ModelDef{Name: "User", IDAttribute: "login"}.IDAttr())
}

func TestBaseModel_SetMerges(t *testing.T) {
	m := NewModel(listingDef, Attributes{"id": 1, "name": "Sunny"})
	m.Set(Attributes{"city": "SF", "name": "Cloudy"})

	assert.Equal(t, Attributes{"id": 1, "name": "Cloudy", "city": "SF"}, m.ToJSON())

	id, ok := m.ID()
	require.True(t, ok)
	assert.Equal(t, 1, id)
}

func TestBaseModel_ConstructorCopiesAttributes(t *testing.T) {
	attrs := Attributes{"id": 1}
	m := NewModel(listingDef, attrs)
	attrs["id"] = 2

	id, _ := m.ID()
	assert.Equal(t, 1, id)
}

func TestBaseModel_Parse(t *testing.T) {
	m := NewModel(listingDef, nil)

	t.Run("wrapped", func(t *testing.T) {
		attrs, err := m.Parse(map[string]any{"listing": map[string]any{"id": 1, "name": "Fetching!"}})
		require.NoError(t, err)
		assert.Equal(t, Attributes{"id": 1, "name": "Fetching!"}, attrs)
	})

	t.Run("bare", func(t *testing.T) {
		attrs, err := m.Parse(map[string]any{"id": 2})
		require.NoError(t, err)
		assert.Equal(t, Attributes{"id": 2}, attrs)
	})

	t.Run("not an object", func(t *testing.T) {
		_, err := m.Parse([]any{1})
		require.Error(t, err)
	})

	t.Run("wrapped non-object", func(t *testing.T) {
		_, err := m.Parse(map[string]any{"listing": "nope"})
		require.Error(t, err)
	})
}

func TestBaseModel_App(t *testing.T) {
	m := NewModel(listingDef, nil)
	assert.Nil(t, m.App())

	app := struct{ name string }{"fake"}
	m.SetApp(app)
	assert.Equal(t, app, m.App())
}

func TestBaseCollection_Defaults(t *testing.T) {
	c := NewCollection(listingsDef, nil, nil, nil)

	assert.Equal(t, 0, c.Len())
	assert.Equal(t, Attributes{}, c.Params())
	assert.Equal(t, Attributes{}, c.Meta())
	assert.Equal(t, "Listings", c.TypeName())
}

func TestBaseCollection_OrderAndPluck(t *testing.T) {
	members := []Model{
		NewModel(listingDef, Attributes{"id": 3}),
		NewModel(listingDef, Attributes{"id": 1}),
		NewModel(listingDef, Attributes{"id": 3}),
	}
	c := NewCollection(listingsDef, members, Attributes{"page": 1}, nil)

	assert.Equal(t, []any{3, 1, 3}, c.Pluck("id"))
	assert.Equal(t, []Attributes{{"id": 3}, {"id": 1}, {"id": 3}}, c.ToJSON())

	c.Add(NewModel(listingDef, Attributes{"id": 4}))
	assert.Equal(t, 4, c.Len())

	c.Reset()
	assert.Equal(t, 0, c.Len())
}

func TestBaseCollection_ParamsPassThrough(t *testing.T) {
	params := Attributes{"some": "key"}
	c := NewCollection(listingsDef, nil, params, nil)

	params["other"] = "value"
	assert.Equal(t, params, c.Params())
}

func TestBaseCollection_Parse(t *testing.T) {
	c := NewCollection(listingsDef, nil, nil, nil)

	t.Run("wrapped with meta", func(t *testing.T) {
		members, meta, err := c.Parse(map[string]any{
			"listings": []any{map[string]any{"id": 1}, map[string]any{"id": 2}},
			"total":    2,
		})
		require.NoError(t, err)
		assert.Equal(t, []Attributes{{"id": 1}, {"id": 2}}, members)
		assert.Equal(t, Attributes{"total": 2}, meta)
	})

	t.Run("bare array", func(t *testing.T) {
		members, meta, err := c.Parse([]any{map[string]any{"id": 5}})
		require.NoError(t, err)
		assert.Equal(t, []Attributes{{"id": 5}}, members)
		assert.Empty(t, meta)
	})

	t.Run("missing key", func(t *testing.T) {
		_, _, err := c.Parse(map[string]any{"items": []any{}})
		require.Error(t, err)
	})

	t.Run("non-object member", func(t *testing.T) {
		_, _, err := c.Parse([]any{1})
		require.Error(t, err)
	})

	t.Run("object without json key", func(t *testing.T) {
		bare := NewCollection(CollectionDef{Name: "Tags"}, nil, nil, nil)
		_, _, err := bare.Parse(map[string]any{"tags": []any{}})
		require.Error(t, err)
	})
}
