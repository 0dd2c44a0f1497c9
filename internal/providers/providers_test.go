package providers

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"newsletter-gate/internal/common/errors"
	gatehttp "newsletter-gate/internal/common/http"
)

func testClient() *gatehttp.Client {
	cfg := gatehttp.DefaultRetryConfig()
	cfg.InitialDelay = time.Millisecond
	cfg.MaxDelay = 5 * time.Millisecond
	return gatehttp.NewClient(gatehttp.WithTimeout(2 * time.Second)).WithRetryConfig(cfg)
}

func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func TestMailChimpBaseURL(t *testing.T) {
	assert.Equal(t, "https://us6.api.mailchimp.com/3.0/", mailchimpBaseURL("abc123-us6"))
	assert.Equal(t, "https://us6.api.mailchimp.com/3.0/", mailchimpBaseURL("a-b-us6"))
	assert.Empty(t, mailchimpBaseURL("nodash"))
	assert.Empty(t, mailchimpBaseURL("trailing-"))
}

func TestSubscriberHash(t *testing.T) {
	assert.Equal(t, SubscriberHash("reader@example.com"), SubscriberHash("Reader@Example.COM"))
	assert.Len(t, SubscriberHash("x"), 32)
}

func TestMailChimp(t *testing.T) {
	hash := SubscriberHash("reader@example.com")

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		expected := "Basic " + base64.StdEncoding.EncodeToString([]byte("newslettergate:key-us1"))
		if r.Header.Get("Authorization") != expected {
			writeJSON(w, http.StatusUnauthorized, map[string]interface{}{"title": "API Key Invalid", "status": 401})
			return
		}

		switch {
		case r.Method == http.MethodGet && r.URL.Path == "/lists":
			writeJSON(w, http.StatusOK, map[string]interface{}{
				"lists": []map[string]string{{"id": "abc", "name": "Weekly"}},
			})
		case r.Method == http.MethodGet && r.URL.Path == "/lists/abc/members/"+hash:
			writeJSON(w, http.StatusOK, map[string]string{"status": "subscribed"})
		case r.Method == http.MethodGet && r.URL.Path == "/lists/gone/members/"+hash:
			writeJSON(w, http.StatusOK, map[string]string{"status": "unsubscribed"})
		case r.Method == http.MethodPut && r.URL.Path == "/lists/abc/members/"+hash:
			var body map[string]string
			_ = json.NewDecoder(r.Body).Decode(&body)
			if body["status_if_new"] != "subscribed" || body["email_address"] != "reader@example.com" {
				writeJSON(w, http.StatusBadRequest, map[string]interface{}{"title": "Invalid Resource"})
				return
			}
			writeJSON(w, http.StatusOK, body)
		case r.Method == http.MethodPut:
			writeJSON(w, http.StatusBadRequest, map[string]interface{}{
				"title":  "Member Exists",
				"detail": "reader@example.com is already a list member.",
			})
		default:
			writeJSON(w, http.StatusNotFound, map[string]interface{}{"title": "Resource Not Found", "status": 404})
		}
	}))
	defer srv.Close()

	m := NewMailChimp(Credentials{APIKey: "key-us1"}, testClient(), WithBaseURL(srv.URL))
	ctx := context.Background()

	lists, err := m.CheckConnection(ctx)
	require.NoError(t, err)
	assert.Equal(t, []List{{ID: "abc", Name: "Weekly"}}, lists)

	ok, err := m.IsSubscribed(ctx, "Reader@example.com", "abc")
	require.NoError(t, err)
	assert.True(t, ok)

	ok, err = m.IsSubscribed(ctx, "reader@example.com", "gone")
	require.NoError(t, err)
	assert.False(t, ok, "unsubscribed members do not pass")

	ok, err = m.IsSubscribed(ctx, "reader@example.com", "missing")
	require.NoError(t, err)
	assert.False(t, ok)

	require.NoError(t, m.Subscribe(ctx, "reader@example.com", "abc"))

	err = m.Subscribe(ctx, "reader@example.com", "other")
	require.Error(t, err)
	assert.True(t, errors.IsType(err, errors.ErrTypeProvider))
	assert.Equal(t, "reader@example.com is already a list member.", errors.Message(err, ""))
	assert.Equal(t, http.StatusBadRequest, Status(err))

	bad := NewMailChimp(Credentials{APIKey: "wrong-us1"}, testClient(), WithBaseURL(srv.URL))
	_, err = bad.Lists(ctx)
	assert.Equal(t, "API Key Invalid", errors.Message(err, ""))
}

func TestCheckConnectionPreflight(t *testing.T) {
	ctx := context.Background()

	_, err := NewMailChimp(Credentials{APIKey: "nodash"}, testClient()).CheckConnection(ctx)
	assert.Equal(t, "No API URL", errors.Message(err, ""))

	_, err = NewMailerLite(Credentials{}, testClient()).CheckConnection(ctx)
	assert.Equal(t, "No API Key", errors.Message(err, ""))

	creds := Credentials{APIKey: "k", OAuth: OAuthEndpoints{AuthorizeURL: "https://a", TokenURL: "https://t"}}
	_, err = NewConvertKit(creds, testClient()).CheckConnection(ctx)
	assert.Equal(t, "OAuth requires a secret", errors.Message(err, ""))
	assert.True(t, errors.IsType(err, errors.ErrTypeValidation))
}

func TestMailChimpWithoutDataCenterFails(t *testing.T) {
	_, err := NewMailChimp(Credentials{APIKey: "nodash"}, testClient()).IsSubscribed(context.Background(), "a@b.c", "l")
	assert.True(t, errors.IsType(err, errors.ErrTypeConnection))
}

func TestConvertKit(t *testing.T) {
	var pages int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Query().Get("api_secret") != "" && r.URL.Query().Get("api_secret") != "secret" {
			writeJSON(w, http.StatusUnauthorized, map[string]string{"error": "Authorization Failed", "message": "API Key not valid"})
			return
		}

		switch r.URL.Path {
		case "/forms":
			writeJSON(w, http.StatusOK, map[string]interface{}{
				"forms": []map[string]interface{}{{"id": 101, "name": "Landing"}},
			})
		case "/forms/101/subscriptions":
			atomic.AddInt32(&pages, 1)
			assert.Equal(t, "active", r.URL.Query().Get("subscriber_state"))
			email := "first@example.com"
			if r.URL.Query().Get("page") == "2" {
				email = "Second@Example.com"
			}
			writeJSON(w, http.StatusOK, map[string]interface{}{
				"total_pages": 2,
				"subscriptions": []map[string]interface{}{
					{"subscriber": map[string]string{"email_address": email}},
				},
			})
		case "/forms/101/subscribe":
			var body map[string]string
			_ = json.NewDecoder(r.Body).Decode(&body)
			assert.Equal(t, "secret", body["api_secret"])
			writeJSON(w, http.StatusOK, map[string]interface{}{"subscription": map[string]int{"id": 1}})
		default:
			writeJSON(w, http.StatusNotFound, map[string]string{"error": "Not Found", "message": "The entity you were trying to find doesn't exist"})
		}
	}))
	defer srv.Close()

	c := NewConvertKit(Credentials{APIKey: "secret"}, testClient(), WithBaseURL(srv.URL))
	ctx := context.Background()

	lists, err := c.Lists(ctx)
	require.NoError(t, err)
	assert.Equal(t, []List{{ID: "101", Name: "Landing"}}, lists)

	ok, err := c.IsSubscribed(ctx, "second@example.com", "101")
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, int32(2), atomic.LoadInt32(&pages))

	ok, err = c.IsSubscribed(ctx, "nobody@example.com", "101")
	require.NoError(t, err)
	assert.False(t, ok)

	ok, err = c.IsSubscribed(ctx, "first@example.com", "999")
	require.NoError(t, err)
	assert.False(t, ok)

	require.NoError(t, c.Subscribe(ctx, "new@example.com", "101"))

	err = c.Subscribe(ctx, "new@example.com", "999")
	assert.Equal(t, "Not Found: The entity you were trying to find doesn't exist", errors.Message(err, ""))

	bad := NewConvertKit(Credentials{APIKey: "nope"}, testClient(), WithBaseURL(srv.URL))
	_, err = bad.CheckConnection(ctx)
	assert.Equal(t, "Authorization Failed: API Key not valid", errors.Message(err, ""))
}

func TestMailerLite(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Header.Get("X-MailerLite-ApiKey") != "ml-key" {
			writeJSON(w, http.StatusUnauthorized, map[string]interface{}{
				"error": map[string]interface{}{"code": 1, "message": "Unauthorized"},
			})
			return
		}

		switch {
		case r.URL.Path == "/groups":
			writeJSON(w, http.StatusOK, []map[string]interface{}{{"id": 7, "name": "Readers"}, {"id": "8", "name": "VIP"}})
		case r.URL.Path == "/subscribers/reader@example.com/groups":
			writeJSON(w, http.StatusOK, []map[string]interface{}{{"id": 7, "name": "Readers"}})
		case r.URL.Path == "/groups/7/subscribers" && r.Method == http.MethodPost:
			raw, _ := io.ReadAll(r.Body)
			var body map[string]interface{}
			_ = json.Unmarshal(raw, &body)
			assert.Equal(t, true, body["resubscribe"])
			assert.Equal(t, "active", body["type"])
			writeJSON(w, http.StatusOK, map[string]interface{}{"id": 1})
		default:
			writeJSON(w, http.StatusNotFound, map[string]interface{}{
				"error": map[string]interface{}{"code": 123, "message": "Subscriber not found"},
			})
		}
	}))
	defer srv.Close()

	m := NewMailerLite(Credentials{APIKey: "ml-key"}, testClient(), WithBaseURL(srv.URL))
	ctx := context.Background()

	lists, err := m.CheckConnection(ctx)
	require.NoError(t, err)
	assert.Equal(t, []List{{ID: "7", Name: "Readers"}, {ID: "8", Name: "VIP"}}, lists)

	ok, err := m.IsSubscribed(ctx, "reader@example.com", "7")
	require.NoError(t, err)
	assert.True(t, ok)

	ok, err = m.IsSubscribed(ctx, "reader@example.com", "8")
	require.NoError(t, err)
	assert.False(t, ok)

	ok, err = m.IsSubscribed(ctx, "unknown@example.com", "7")
	require.NoError(t, err)
	assert.False(t, ok)

	require.NoError(t, m.Subscribe(ctx, "reader@example.com", "7"))
	err = m.Subscribe(ctx, "reader@example.com", "9")
	assert.Equal(t, "Subscriber not found", errors.Message(err, ""))
}

func TestProviderErrorWithoutMessageFallsBack(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusForbidden)
		_, _ = w.Write([]byte("<html>denied</html>"))
	}))
	defer srv.Close()

	m := NewMailerLite(Credentials{APIKey: "k"}, testClient(), WithBaseURL(srv.URL))
	_, err := m.Lists(context.Background())
	assert.Equal(t, DefaultErrorMessage, errors.Message(err, ""))
}

func TestServerErrorsAreRetried(t *testing.T) {
	var calls int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if atomic.AddInt32(&calls, 1) < 3 {
			w.WriteHeader(http.StatusBadGateway)
			return
		}
		writeJSON(w, http.StatusOK, []map[string]interface{}{{"id": 1, "name": "A"}})
	}))
	defer srv.Close()

	m := NewMailerLite(Credentials{APIKey: "k"}, testClient(), WithBaseURL(srv.URL))
	lists, err := m.Lists(context.Background())
	require.NoError(t, err)
	assert.Len(t, lists, 1)
	assert.Equal(t, int32(3), atomic.LoadInt32(&calls))
}

func TestAccessTokenUsedWithOAuth(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "Bearer tok", r.Header.Get("Authorization"))
		writeJSON(w, http.StatusOK, map[string]interface{}{"forms": []interface{}{}})
	}))
	defer srv.Close()

	creds := Credentials{
		APIKey:      "k",
		APISecret:   "s",
		AccessToken: "tok",
		OAuth:       OAuthEndpoints{AuthorizeURL: "https://a", TokenURL: "https://t"},
	}
	c := NewConvertKit(creds, testClient(), WithBaseURL(srv.URL))
	require.NotNil(t, c.OAuth())

	_, err := c.CheckConnection(context.Background())
	require.NoError(t, err)
}

func TestShortcode(t *testing.T) {
	assert.Equal(t, `[newslettergate provider="mailchimp" list="abc"]Content To Gate[/newslettergate]`, Shortcode("mailchimp", "abc"))
}
