package freshness

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/fetchr/internal/entity"
	"github.com/roach88/fetchr/internal/spec"
	"github.com/roach88/fetchr/internal/testutil"
)

func TestKey(t *testing.T) {
	tests := []struct {
		name string
		spec spec.Spec
		want string
	}{
		{"model", spec.Model("Listing", entity.Attributes{"id": 1}), `{"name":"Listing","params":{"id":1}}`},
		{"raw name kept", spec.Model("listing", entity.Attributes{"id": 1}), `{"name":"listing","params":{"id":1}}`},
		{"nil params", spec.Collection("Listings", nil), `{"name":"Listings"}`},
		{"empty params", spec.Collection("Listings", entity.Attributes{}), `{"name":"Listings","params":{}}`},
		{"sorted params", spec.Collection("Listings", entity.Attributes{"page": 2, "city": "SF"}), `{"name":"Listings","params":{"city":"SF","page":2}}`},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := Key(tt.spec)
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestKey_SameForEqualSpecs(t *testing.T) {
	a, err := Key(spec.Model("Listing", entity.Attributes{"id": 1}))
	require.NoError(t, err)
	b, err := Key(spec.Model("Listing", entity.Attributes{"id": 1.0}))
	require.NoError(t, err)
	assert.Equal(t, a, b)
}

func TestShouldCheckFresh_Lifecycle(t *testing.T) {
	clock := testutil.NewManualClock(time.Time{})
	tr := New(WithClock(clock))
	s := spec.Model("Listing", entity.Attributes{"id": 1})

	// Never checked
	assert.True(t, tr.ShouldCheckFresh(s))

	require.NoError(t, tr.DidCheckFresh(s))
	assert.False(t, tr.ShouldCheckFresh(s))

	ts, ok := tr.Timestamp(s)
	require.True(t, ok)
	assert.Equal(t, testutil.Epoch.UnixMilli(), ts)

	// Exactly the rate is not yet stale
	clock.Advance(DefaultCheckedFreshRate)
	assert.False(t, tr.ShouldCheckFresh(s))

	clock.Advance(time.Millisecond)
	assert.True(t, tr.ShouldCheckFresh(s))
}

func TestShouldCheckFresh_IndependentKeys(t *testing.T) {
	tr := New(WithClock(testutil.NewManualClock(time.Time{})))
	one := spec.Model("Listing", entity.Attributes{"id": 1})
	two := spec.Model("Listing", entity.Attributes{"id": 2})

	require.NoError(t, tr.DidCheckFresh(one))
	assert.False(t, tr.ShouldCheckFresh(one))
	assert.True(t, tr.ShouldCheckFresh(two))
}

func TestWithRate(t *testing.T) {
	clock := testutil.NewManualClock(time.Time{})
	tr := New(WithClock(clock), WithRate(time.Second))
	assert.Equal(t, time.Second, tr.Rate())

	s := spec.Collection("Listings", nil)
	require.NoError(t, tr.DidCheckFresh(s))
	clock.Advance(1001 * time.Millisecond)
	assert.True(t, tr.ShouldCheckFresh(s))

	assert.Equal(t, DefaultCheckedFreshRate, New(WithRate(0)).Rate())
}

func TestSetAndReset(t *testing.T) {
	clock := testutil.NewManualClock(time.Time{})
	tr := New(WithClock(clock))
	s := spec.Model("Listing", entity.Attributes{"id": 1})

	key, err := Key(s)
	require.NoError(t, err)

	// An old timestamp is stale
	tr.Set(key, clock.Now().Add(-time.Hour).UnixMilli())
	assert.True(t, tr.ShouldCheckFresh(s))

	tr.Set(key, clock.Now().UnixMilli())
	assert.False(t, tr.ShouldCheckFresh(s))

	tr.Reset()
	_, ok := tr.Timestamp(s)
	assert.False(t, ok)
	assert.True(t, tr.ShouldCheckFresh(s))
}

func TestUnencodableParams(t *testing.T) {
	tr := New()
	s := spec.Model("Listing", entity.Attributes{"fn": func() {}})

	assert.False(t, tr.ShouldCheckFresh(s))
	assert.Error(t, tr.DidCheckFresh(s))
}
