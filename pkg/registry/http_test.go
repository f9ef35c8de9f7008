package registry_test

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/kode4food/paisley/pkg/api"
	"github.com/kode4food/paisley/pkg/registry"
)

func TestHTTPFunc(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(
		func(w http.ResponseWriter, r *http.Request) {
			assert.Equal(t, http.MethodPost, r.Method)
			assert.Equal(t,
				"application/json", r.Header.Get("Content-Type"))

			var args map[string]any
			assert.NoError(t, json.NewDecoder(r.Body).Decode(&args))
			assert.Equal(t, "hello", args["greeting"])

			w.Header().Set("Content-Type", "application/json")
			_ = json.NewEncoder(w).Encode(map[string]any{
				"echoed": args["greeting"],
			})
		},
	))
	defer srv.Close()

	fn := registry.HTTPFunc(srv.URL, srv.Client())
	res, err := fn(context.Background(), api.Args{"greeting": "hello"})
	assert.NoError(t, err)
	assert.Equal(t, map[string]any{"echoed": "hello"}, res)
}

func TestHTTPFuncErrorStatus(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(
		func(w http.ResponseWriter, _ *http.Request) {
			http.Error(w, "overloaded", http.StatusServiceUnavailable)
		},
	))
	defer srv.Close()

	fn := registry.HTTPFunc(srv.URL, srv.Client())
	_, err := fn(context.Background(), api.Args{})
	assert.ErrorIs(t, err, registry.ErrHTTPStatus)
	assert.Contains(t, err.Error(), "status 503")
}

func TestHTTPFuncEmptyBody(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(
		func(w http.ResponseWriter, _ *http.Request) {
			w.WriteHeader(http.StatusNoContent)
		},
	))
	defer srv.Close()

	fn := registry.HTTPFunc(srv.URL, srv.Client())
	res, err := fn(context.Background(), api.Args{})
	assert.NoError(t, err)
	assert.Nil(t, res)
}

func TestHTTPFuncContextCancel(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(
		func(w http.ResponseWriter, r *http.Request) {
			<-r.Context().Done()
		},
	))
	defer srv.Close()

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	fn := registry.HTTPFunc(srv.URL, srv.Client())
	_, err := fn(ctx, api.Args{})
	assert.Error(t, err)
}
