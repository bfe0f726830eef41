package client

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/time/rate"

	"github.com/erazemk/katalog/internal/metrics"
	"github.com/erazemk/katalog/internal/model"
)

type staticToken string

func (s staticToken) Token(context.Context) (string, error) { return string(s), nil }

// recorded captures what the fake backend saw.
type recorded struct {
	mu       sync.Mutex
	method   string
	path     string
	auth     string
	ctype    string
	fields   map[string]string
	fileName string
	fileType string
	fileData string
}

func newBackend(t *testing.T, rec *recorded, status int, body string) *httptest.Server {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		rec.mu.Lock()
		defer rec.mu.Unlock()
		rec.method = r.Method
		rec.path = r.URL.Path
		rec.auth = r.Header.Get("Authorization")
		rec.ctype = r.Header.Get("Content-Type")
		rec.fields = map[string]string{}

		switch {
		case r.Method == http.MethodPost || r.Method == http.MethodPut:
			if err := r.ParseMultipartForm(10 << 20); err == nil {
				for k, v := range r.MultipartForm.Value {
					rec.fields[k] = v[0]
				}
				if f, h, err := r.FormFile("photo"); err == nil {
					data, _ := io.ReadAll(f)
					f.Close()
					rec.fileName = h.Filename
					rec.fileType = h.Header.Get("Content-Type")
					rec.fileData = string(data)
				}
			} else if err := r.ParseForm(); err == nil {
				for k, v := range r.PostForm {
					rec.fields[k] = v[0]
				}
			}
		}

		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(status)
		io.WriteString(w, body)
	}))
	t.Cleanup(srv.Close)
	return srv
}

func newTestClient(t *testing.T, baseURL string, tokens TokenSource) *Client {
	t.Helper()
	c, err := New(Config{BaseURL: baseURL + "/api", Tokens: tokens})
	require.NoError(t, err)
	return c
}

func TestNewRejectsInvalidBaseURL(t *testing.T) {
	_, err := New(Config{BaseURL: "not a url"})
	require.Error(t, err)
}

func TestBearerHeader(t *testing.T) {
	rec := &recorded{}
	srv := newBackend(t, rec, http.StatusOK, `[]`)

	c := newTestClient(t, srv.URL, staticToken("abc"))
	_, err := Items(c).List(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "Bearer abc", rec.auth)
	assert.Equal(t, "/api/items", rec.path)
}

func TestNoTokenSendsWithoutHeader(t *testing.T) {
	rec := &recorded{}
	srv := newBackend(t, rec, http.StatusOK, `[]`)

	c := newTestClient(t, srv.URL, staticToken(""))
	_, err := Items(c).List(context.Background())
	require.NoError(t, err)
	assert.Empty(t, rec.auth)
}

func TestListItemsDecodesBothReferenceShapes(t *testing.T) {
	rec := &recorded{}
	srv := newBackend(t, rec, http.StatusOK, `[
		{"_id":"1","name":"Lamp","description":"d","price":"19.5","quantity":2,
		 "category":{"_id":"c1","name":"Home"},"store":"s1","image_url":"/uploads/lamp.png"},
		{"_id":"2","name":"Desk","description":"d","price":120,"quantity":1,
		 "category":"c2","store":{"_id":"s2","name":"Main"}}
	]`)

	items, err := Items(newTestClient(t, srv.URL, nil)).List(context.Background())
	require.NoError(t, err)
	require.Len(t, items, 2)

	assert.Equal(t, "c1", items[0].Category.ID())
	assert.Equal(t, "Home", items[0].Category.Label())
	assert.Equal(t, "s1", items[0].Store.ID())
	v, ok := items[0].Price.Float()
	require.True(t, ok)
	assert.Equal(t, 19.5, v)

	assert.Equal(t, "c2", items[1].Category.ID())
	assert.Equal(t, "Main", items[1].Store.Label())
}

func TestListUnwrapsEnvelope(t *testing.T) {
	rec := &recorded{}
	srv := newBackend(t, rec, http.StatusOK, `{"categories":[{"_id":"c1","name":"Home"},{"_id":"c2","name":"Garden"}]}`)

	cats, err := Categories(newTestClient(t, srv.URL, nil)).List(context.Background())
	require.NoError(t, err)
	assert.Equal(t, []model.Category{{ID: "c1", Name: "Home"}, {ID: "c2", Name: "Garden"}}, cats)
}

func TestListMissingEnvelopeIsEmpty(t *testing.T) {
	rec := &recorded{}
	srv := newBackend(t, rec, http.StatusOK, `{"other":[]}`)

	stores, err := Stores(newTestClient(t, srv.URL, nil)).List(context.Background())
	require.NoError(t, err)
	assert.Empty(t, stores)
}

func TestListRejectsNonArray(t *testing.T) {
	rec := &recorded{}
	srv := newBackend(t, rec, http.StatusOK, `{"items":"nope"}`)

	_, err := Items(newTestClient(t, srv.URL, nil)).List(context.Background())
	require.Error(t, err)
	assert.Equal(t, MsgUnknown, Message(err))
}

func TestCreateWithoutFileSendsURLEncoded(t *testing.T) {
	rec := &recorded{}
	srv := newBackend(t, rec, http.StatusCreated, `{"_id":"9","name":"Lamp"}`)

	in := model.ItemInput{Name: "Lamp", Description: "Bright", Price: 19.5, Quantity: 3, CategoryID: "c1", StoreID: "s1"}
	item, err := Items(newTestClient(t, srv.URL, nil)).Create(context.Background(), in, nil)
	require.NoError(t, err)

	assert.Equal(t, "9", item.ID)
	assert.Equal(t, http.MethodPost, rec.method)
	assert.Equal(t, "application/x-www-form-urlencoded", rec.ctype)
	assert.Equal(t, map[string]string{
		"name": "Lamp", "description": "Bright", "price": "19.5",
		"quantity": "3", "category": "c1", "store": "s1",
	}, rec.fields)
}

func TestUpdateWithFileSendsMultipart(t *testing.T) {
	rec := &recorded{}
	srv := newBackend(t, rec, http.StatusOK, `{"_id":"9","name":"Lamp"}`)

	in := model.ItemInput{Name: "Lamp", Description: "Bright", Price: 20, Quantity: 1, StockType: model.StockFIFO, CategoryID: "c1", StoreID: "s1"}
	file := &File{Name: "lamp.png", ContentType: "image/png", Data: []byte("pngdata")}
	_, err := Items(newTestClient(t, srv.URL, nil)).Update(context.Background(), "9", in, file)
	require.NoError(t, err)

	assert.Equal(t, http.MethodPut, rec.method)
	assert.Equal(t, "/api/items/9", rec.path)
	assert.Contains(t, rec.ctype, "multipart/form-data")
	assert.Equal(t, "FIFO", rec.fields["type_stock"])
	assert.Equal(t, "20", rec.fields["price"])
	assert.Equal(t, "lamp.png", rec.fileName)
	assert.Equal(t, "image/png", rec.fileType)
	assert.Equal(t, "pngdata", rec.fileData)
}

func TestDelete(t *testing.T) {
	rec := &recorded{}
	srv := newBackend(t, rec, http.StatusNoContent, ``)

	err := Items(newTestClient(t, srv.URL, nil)).Delete(context.Background(), "a/b")
	require.NoError(t, err)
	assert.Equal(t, http.MethodDelete, rec.method)
	assert.Equal(t, "/api/items/a/b", rec.path)
}

func TestGetEmptyBody(t *testing.T) {
	rec := &recorded{}
	srv := newBackend(t, rec, http.StatusOK, ``)

	item, err := Items(newTestClient(t, srv.URL, nil)).Get(context.Background(), "1")
	require.NoError(t, err)
	assert.Equal(t, model.Item{}, *item)
}

func TestErrorMessagePriority(t *testing.T) {
	tests := []struct {
		name   string
		status int
		body   string
		want   string
	}{
		{"message field", 400, `{"message":"Name taken","error":"Bad"}`, "Name taken"},
		{"raw string body", 500, `Internal failure`, "Internal failure"},
		{"json string body", 500, `"quoted failure"`, "quoted failure"},
		{"error field", 403, `{"error":"Forbidden item"}`, "Forbidden item"},
		{"empty body", 404, ``, "404 Not Found"},
		{"object without message", 502, `{"code":7}`, "502 Bad Gateway"},
		{"empty message falls through", 400, `{"message":"","error":"Nope"}`, "Nope"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := &recorded{}
			srv := newBackend(t, rec, tt.status, tt.body)

			_, err := Items(newTestClient(t, srv.URL, nil)).List(context.Background())
			require.Error(t, err)

			var apiErr *Error
			require.ErrorAs(t, err, &apiErr)
			assert.Equal(t, tt.status, apiErr.Status)
			assert.Equal(t, tt.want, Message(err))
			assert.Equal(t, tt.status, StatusOf(err))
			assert.False(t, IsConnectivity(err))
		})
	}
}

func TestUnreachableBackend(t *testing.T) {
	srv := httptest.NewServer(http.NotFoundHandler())
	url := srv.URL
	srv.Close()

	_, err := Items(newTestClient(t, url, nil)).List(context.Background())
	require.Error(t, err)
	assert.True(t, IsConnectivity(err))
	assert.Equal(t, 0, StatusOf(err))
	assert.Equal(t, MsgUnreachable, Message(err))
}

func TestCancelledRequest(t *testing.T) {
	rec := &recorded{}
	srv := newBackend(t, rec, http.StatusOK, `[]`)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := Items(newTestClient(t, srv.URL, nil)).List(ctx)
	require.Error(t, err)
	assert.False(t, IsConnectivity(err))
	assert.Equal(t, MsgCancelled, Message(err))
}

func TestMessageUnknownError(t *testing.T) {
	assert.Equal(t, "", Message(nil))
	assert.Equal(t, MsgUnknown, Message(io.ErrUnexpectedEOF))
}

func TestRateLimiterPacesRequests(t *testing.T) {
	rec := &recorded{}
	srv := newBackend(t, rec, http.StatusOK, `[]`)

	c, err := New(Config{
		BaseURL: srv.URL,
		Limiter: rate.NewLimiter(rate.Every(50*time.Millisecond), 1),
	})
	require.NoError(t, err)

	start := time.Now()
	for range 3 {
		_, err := Items(c).List(context.Background())
		require.NoError(t, err)
	}
	assert.GreaterOrEqual(t, time.Since(start), 90*time.Millisecond)
}

func TestRequestMetrics(t *testing.T) {
	rec := &recorded{}
	srv := newBackend(t, rec, http.StatusNotFound, `{"message":"gone"}`)

	m := metrics.New()
	c, err := New(Config{BaseURL: srv.URL + "/api", Metrics: m})
	require.NoError(t, err)

	_, _ = Items(c).Get(context.Background(), "1")
	assert.Equal(t, 1, testutil.CollectAndCount(m.Registry(), "katalog_api_requests_total"))
}

func TestSendJSON(t *testing.T) {
	var got map[string]string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "application/json", r.Header.Get("Content-Type"))
		assert.NoError(t, json.NewDecoder(r.Body).Decode(&got))
		io.WriteString(w, `{"token":"t"}`)
	}))
	defer srv.Close()

	c := newTestClient(t, srv.URL, nil)
	body, err := c.SendJSON(context.Background(), http.MethodPost, "auth/login", map[string]string{"email": "a@b.c"})
	require.NoError(t, err)
	assert.JSONEq(t, `{"token":"t"}`, string(body))
	assert.Equal(t, "a@b.c", got["email"])
}
