package tagging

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/aussiephantom/blinkapp-desktop/internal/common"
	"github.com/aussiephantom/blinkapp-desktop/internal/logging"
)

type staticTokens struct{ token string }

func (s staticTokens) AccessToken(context.Context) (string, error) { return s.token, nil }

func testLogger() logging.Logger {
	return logging.NewSlogLogger(slog.New(slog.NewTextHandler(io.Discard, nil)))
}

func newTestClient(t *testing.T, h http.Handler) *Client {
	t.Helper()
	srv := httptest.NewServer(h)
	t.Cleanup(srv.Close)
	return NewClient(srv.URL, staticTokens{token: "tok"}, func() string { return "acct-1" }, testLogger())
}

func TestListTagCategories_JoinsTagsLocally(t *testing.T) {
	c := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "Bearer tok", r.Header.Get("Authorization"))
		require.Equal(t, "acct-1", r.Header.Get(common.AccountIDHeaderName))

		switch r.URL.Path {
		case "/tag-categories":
			fmt.Fprint(w, `[{"id":1,"name":"Type"},{"id":2,"name":"Client"}]`)
		case "/tags":
			fmt.Fprint(w, `[
				{"id":10,"category_id":1,"name":"Invoice"},
				{"id":11,"category_id":1,"name":"Contract"},
				{"id":20,"category_id":2,"name":"Acme"},
				{"id":99,"category_id":7,"name":"Orphan"}]`)
		default:
			t.Fatalf("unexpected path %s", r.URL.Path)
		}
	}))

	cats, err := c.ListTagCategories(context.Background())
	require.NoError(t, err)
	require.Len(t, cats, 2)

	assert.Equal(t, "Type", cats[0].Name)
	require.Len(t, cats[0].Tags, 2)
	assert.Equal(t, "Contract", cats[0].Tags[0].Name, "tags sorted by name within category")
	assert.Equal(t, "Invoice", cats[0].Tags[1].Name)

	require.Len(t, cats[1].Tags, 1)
	assert.Equal(t, "Acme", cats[1].Tags[0].Name)
}

func TestListTagCategories_EmptyTaxonomyIsNotAnError(t *testing.T) {
	c := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, `[]`)
	}))

	cats, err := c.ListTagCategories(context.Background())
	require.NoError(t, err)
	assert.Empty(t, cats)
}

func TestListTagCategories_BackendUnreachableDegradesToEmpty(t *testing.T) {
	c := NewClient("http://127.0.0.1:1", staticTokens{token: "tok"},
		func() string { return "" }, testLogger())

	cats, err := c.ListTagCategories(context.Background())
	require.NoError(t, err)
	assert.Empty(t, cats)
}

func TestCreateAssociations_SingleBatchedCall(t *testing.T) {
	var calls int
	c := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls++
		require.Equal(t, http.MethodPost, r.Method)
		require.Equal(t, "/tag-associations", r.URL.Path)

		var req associationRequest
		require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		assert.Equal(t, "file-1", req.FileID)
		assert.Equal(t, []int{10, 20}, req.TagIDs)
		w.WriteHeader(http.StatusCreated)
	}))

	require.NoError(t, c.CreateAssociations(context.Background(), "file-1", []int{10, 20}))
	assert.Equal(t, 1, calls, "all tags go in one request")
}

func TestCreateAssociations_EmptyTagSetIsNoOp(t *testing.T) {
	c := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		t.Fatal("no request expected for an empty tag set")
	}))

	require.NoError(t, c.CreateAssociations(context.Background(), "file-1", nil))
}

func TestCreateAssociations_FailureWrapsSentinel(t *testing.T) {
	c := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "tag does not exist", http.StatusUnprocessableEntity)
	}))

	err := c.CreateAssociations(context.Background(), "file-1", []int{999})
	require.ErrorIs(t, err, common.ErrAssociationFailed)
	assert.Contains(t, err.Error(), "tag does not exist")
}
