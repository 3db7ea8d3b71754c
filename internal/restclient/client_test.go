package restclient

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mesh-intelligence/staffdir/pkg/types"
)

// newTestClient starts srv and returns a Client pointed at it.
func newTestClient(t *testing.T, h http.Handler) *Client {
	t.Helper()
	srv := httptest.NewServer(h)
	t.Cleanup(srv.Close)
	c, err := New(nil, types.Config{Endpoint: srv.URL + "/api", List: "staff", PageSize: 2}, WithHTTPClient(srv.Client()))
	require.NoError(t, err)
	return c
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func TestNew(t *testing.T) {
	tests := []struct {
		name    string
		cfg     types.Config
		wantErr error
	}{
		{"valid", types.Config{Endpoint: "http://example.test/api"}, nil},
		{"empty endpoint", types.Config{}, types.ErrEndpointEmpty},
		{"relative endpoint", types.Config{Endpoint: "/api"}, types.ErrEndpointInvalid},
		{"bad scheme", types.Config{Endpoint: "ftp://example.test"}, types.ErrEndpointInvalid},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := New(nil, tt.cfg)
			if tt.wantErr == nil {
				assert.NoError(t, err)
				return
			}
			assert.ErrorIs(t, err, tt.wantErr)
		})
	}
}

func TestListAllFollowsNextLink(t *testing.T) {
	var calls []string
	var mu sync.Mutex
	c := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		mu.Lock()
		calls = append(calls, r.URL.RequestURI())
		mu.Unlock()
		assert.Equal(t, "/api/lists/staff/items", r.URL.Path)
		_, err := uuid.Parse(r.Header.Get("X-Request-Id"))
		assert.NoError(t, err, "request id must be a uuid")

		switch r.URL.Query().Get("skiptoken") {
		case "":
			assert.Equal(t, "2", r.URL.Query().Get("top"))
			writeJSON(w, 200, map[string]any{
				"value": []map[string]any{
					{"Id": 1, "Title": "Alpha", "PersonId": "k1"},
					{"Id": 2, "Title": "Beta", "PersonId": nil},
				},
				"nextLink": "/api/lists/staff/items?top=2&skiptoken=2",
			})
		case "2":
			writeJSON(w, 200, map[string]any{
				"value": []map[string]any{{"Id": 3, "Title": "Gamma"}},
			})
		default:
			t.Errorf("unexpected skiptoken %q", r.URL.Query().Get("skiptoken"))
		}
	}))

	recs, err := c.ListAll(context.Background())
	require.NoError(t, err)
	assert.Equal(t, []types.Record{
		{ID: 1, Label: "Alpha", PersonRef: "k1"},
		{ID: 2, Label: "Beta"},
		{ID: 3, Label: "Gamma"},
	}, recs)
	assert.Len(t, calls, 2)
}

func TestListAllEmpty(t *testing.T) {
	c := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, 200, map[string]any{"value": []any{}})
	}))
	recs, err := c.ListAll(context.Background())
	require.NoError(t, err)
	assert.NotNil(t, recs)
	assert.Empty(t, recs)
}

func TestListAllMalformed(t *testing.T) {
	tests := []struct {
		name string
		body string
	}{
		{"not json", "<html>"},
		{"missing value", `{"items":[]}`},
		{"item without id", `{"value":[{"Title":"x"}]}`},
		{"item without title", `{"value":[{"Id":4}]}`},
		{"negative id", `{"value":[{"Id":-1,"Title":"x"}]}`},
		{"nextLink loop", `{"value":[],"nextLink":"/api/lists/staff/items?top=2"}`},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(200)
				_, _ = io.WriteString(w, tt.body)
			}))
			_, err := c.ListAll(context.Background())
			assert.ErrorIs(t, err, types.ErrMalformedPayload)
		})
	}
}

func TestStatusMapping(t *testing.T) {
	tests := []struct {
		status  int
		wantErr error
	}{
		{http.StatusNotFound, types.ErrNotFound},
		{http.StatusBadRequest, types.ErrValidationRejected},
		{http.StatusConflict, types.ErrValidationRejected},
		{http.StatusUnprocessableEntity, types.ErrValidationRejected},
		{http.StatusInternalServerError, types.ErrRemoteUnavailable},
		{http.StatusServiceUnavailable, types.ErrRemoteUnavailable},
		{http.StatusTeapot, types.ErrRemoteUnavailable},
	}
	for _, tt := range tests {
		t.Run(http.StatusText(tt.status), func(t *testing.T) {
			c := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				writeJSON(w, tt.status, map[string]any{"error": map[string]string{"code": "x", "message": "reason from store"}})
			}))
			err := c.Delete(context.Background(), 7)
			require.ErrorIs(t, err, tt.wantErr)
			assert.Contains(t, err.Error(), "reason from store")
		})
	}
}

func TestTransportFailureIsRemoteUnavailable(t *testing.T) {
	srv := httptest.NewServer(http.NotFoundHandler())
	url := srv.URL
	srv.Close()

	c, err := New(nil, types.Config{Endpoint: url})
	require.NoError(t, err)
	_, err = c.ListAll(context.Background())
	assert.ErrorIs(t, err, types.ErrRemoteUnavailable)
}

func TestCanceledContextIsRemoteUnavailable(t *testing.T) {
	c := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, 200, map[string]any{"value": []any{}})
	}))
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err := c.ListAll(ctx)
	assert.ErrorIs(t, err, types.ErrRemoteUnavailable)
	assert.ErrorIs(t, err, context.Canceled)
}

func TestAddSendsPayload(t *testing.T) {
	c := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "/api/lists/staff/items", r.URL.Path)
		assert.Equal(t, "application/json", r.Header.Get("Content-Type"))
		raw, _ := io.ReadAll(r.Body)
		assert.JSONEq(t, `{"Title":"Alpha","PersonId":{"results":["k1"]}}`, string(raw))
		writeJSON(w, http.StatusCreated, map[string]any{"Id": 11, "Title": "Alpha", "PersonId": "k1"})
	}))

	rec, err := c.Add(context.Background(), types.NewRecord{Label: "Alpha", PersonRefs: []string{"k1"}})
	require.NoError(t, err)
	assert.Equal(t, types.Record{ID: 11, Label: "Alpha", PersonRef: "k1"}, rec)
}

func TestUpdateSendsEmptyResultsArray(t *testing.T) {
	c := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPatch, r.Method)
		assert.Equal(t, "/api/lists/staff/items/5", r.URL.Path)
		raw, _ := io.ReadAll(r.Body)
		assert.JSONEq(t, `{"Title":"Renamed","PersonId":{"results":[]}}`, string(raw))
		w.WriteHeader(http.StatusNoContent)
	}))
	require.NoError(t, c.Update(context.Background(), 5, types.Patch{Label: "Renamed"}))
}

func TestGetPerson(t *testing.T) {
	c := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/api/people/k%201", "/api/people/k 1":
			writeJSON(w, 200, map[string]any{"Key": "k 1", "Title": "Ada Lovelace", "Email": "ada@example.test"})
		default:
			writeJSON(w, 404, map[string]any{"error": map[string]string{"code": "not_found", "message": "no such person"}})
		}
	}))

	p, err := c.GetPerson(context.Background(), "k 1")
	require.NoError(t, err)
	assert.Equal(t, types.Person{Key: "k 1", DisplayName: "Ada Lovelace", ContactInfo: "ada@example.test"}, p)

	_, err = c.GetPerson(context.Background(), "gone")
	assert.ErrorIs(t, err, types.ErrNotFound)

	_, err = c.GetPerson(context.Background(), "")
	assert.ErrorIs(t, err, types.ErrNotFound)
}

func TestSearchPeople(t *testing.T) {
	c := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/api/people", r.URL.Path)
		q := r.URL.Query().Get("search")
		if strings.HasPrefix(q, "fail") {
			w.WriteHeader(http.StatusInternalServerError)
			return
		}
		writeJSON(w, 200, map[string]any{"value": []map[string]any{{"Key": "k1", "Title": "Ada " + q}}})
	}))

	got := c.SearchPeople(context.Background(), "a&b")
	assert.Equal(t, []types.Person{{Key: "k1", DisplayName: "Ada a&b"}}, got)

	got = c.SearchPeople(context.Background(), "fail")
	assert.NotNil(t, got)
	assert.Empty(t, got)
}

func TestDecodeItemPreservesPersonRef(t *testing.T) {
	id, title, ref := int64(9), "Label", "k9"
	rec, err := DecodeItem(Item{ID: &id, Title: &title, PersonID: &ref})
	require.NoError(t, err)
	assert.Equal(t, types.Record{ID: 9, Label: "Label", PersonRef: "k9"}, rec)

	back := EncodeItem(rec)
	assert.Equal(t, int64(9), *back.ID)
	assert.Equal(t, "k9", *back.PersonID)

	assert.Nil(t, EncodeItem(types.Record{ID: 1, Label: "x"}).PersonID)
}
