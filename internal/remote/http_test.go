package remote

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/fetchr/internal/entity"
	"github.com/roach88/fetchr/internal/spec"
)

func TestExpand(t *testing.T) {
	tests := []struct {
		name     string
		tmpl     string
		params   entity.Attributes
		wantPath string
		wantRest entity.Attributes
		wantErr  bool
	}{
		{"no params", "/listings", nil, "/listings", entity.Attributes{}, false},
		{"numeric id", "/listings/:id", entity.Attributes{"id": 9}, "/listings/9", entity.Attributes{}, false},
		{"leftover", "/users/:login/listings", entity.Attributes{"login": "wvl", "page": 2}, "/users/wvl/listings", entity.Attributes{"page": 2}, false},
		{"escaped", "/tags/:name", entity.Attributes{"name": "a b"}, "/tags/a%20b", entity.Attributes{}, false},
		{"missing", "/listings/:id", entity.Attributes{}, "", nil, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			path, rest, err := Expand(tt.tmpl, tt.params)
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.wantPath, path)
			assert.Equal(t, tt.wantRest, rest)
		})
	}
}

func TestHTTPSource_Fetch(t *testing.T) {
	var gotPath, gotQuery, gotHeader string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotPath = r.URL.Path
		gotQuery = r.URL.RawQuery
		gotHeader = r.Header.Get("X-Session")
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"listing":{"id":1,"name":"Fetching!","score":4.5}}`))
	}))
	defer srv.Close()

	src, err := NewHTTPSource(srv.URL+"/api", WithHeader("X-Session", "abc"))
	require.NoError(t, err)

	got, err := src.Fetch(context.Background(), Request{
		Kind:   spec.KindModel,
		Name:   "Listing",
		URL:    "/listings/:id",
		Params: entity.Attributes{"id": 1, "expand": true},
	})
	require.NoError(t, err)

	assert.Equal(t, "/api/listings/1", gotPath)
	assert.Equal(t, "expand=true", gotQuery)
	assert.Equal(t, "abc", gotHeader)
	assert.Equal(t, map[string]any{
		"listing": map[string]any{"id": int64(1), "name": "Fetching!", "score": 4.5},
	}, got)
}

func TestHTTPSource_DefaultPath(t *testing.T) {
	var gotPath string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotPath = r.URL.Path
		_, _ = w.Write([]byte(`[]`))
	}))
	defer srv.Close()

	src, err := NewHTTPSource(srv.URL)
	require.NoError(t, err)

	got, err := src.Fetch(context.Background(), Request{Kind: spec.KindCollection, Name: "CustomListings"})
	require.NoError(t, err)
	assert.Equal(t, "/custom_listings", gotPath)
	assert.Equal(t, []any{}, got)
}

func TestHTTPSource_StatusError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "no such listing", http.StatusNotFound)
	}))
	defer srv.Close()

	src, err := NewHTTPSource(srv.URL)
	require.NoError(t, err)

	_, err = src.Fetch(context.Background(), Request{Kind: spec.KindModel, Name: "Listing", URL: "/listings/:id", Params: entity.Attributes{"id": 404}})
	require.Error(t, err)
	assert.True(t, IsNotFound(err))

	var se *StatusError
	require.True(t, errors.As(err, &se))
	assert.Equal(t, http.StatusNotFound, se.Code)
	assert.Contains(t, se.Body, "no such listing")
	assert.Contains(t, se.URL, "/listings/404")
}

func TestHTTPSource_BadBody(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"id":`))
	}))
	defer srv.Close()

	src, err := NewHTTPSource(srv.URL)
	require.NoError(t, err)

	_, err = src.Fetch(context.Background(), Request{Kind: spec.KindModel, Name: "Listing"})
	assert.Error(t, err)
}

func TestNewHTTPSource_RequiresAbsoluteURL(t *testing.T) {
	_, err := NewHTTPSource("/relative")
	assert.Error(t, err)
}

func TestSourceFunc(t *testing.T) {
	var f Source = SourceFunc(func(_ context.Context, req Request) (any, error) {
		return req.Name, nil
	})
	got, err := f.Fetch(context.Background(), Request{Name: "Listing"})
	require.NoError(t, err)
	assert.Equal(t, "Listing", got)
}
