package handlers

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"
	"testing/fstest"
	"time"

	"github.com/gorilla/mux"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"newsletter-gate/internal/auth"
	"newsletter-gate/internal/common/pagination"
	"newsletter-gate/internal/common/templates"
	"newsletter-gate/internal/gate"
	"newsletter-gate/internal/providers"
	"newsletter-gate/internal/settings"
	"newsletter-gate/internal/storage"
	"newsletter-gate/internal/testutil"

	gatehttp "newsletter-gate/internal/common/http"
)

const (
	testSecret = "ck-secret"
	testForm   = "42"
)

type testEnv struct {
	router   *mux.Router
	auth     *auth.Auth
	store    storage.Storage
	settings *settings.Service
	fake     *testutil.FakeConvertKit
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()
	ctx := context.Background()

	store := testutil.NewTestStorage(t)
	cfg := testutil.NewTestConfig(t)

	a := auth.New(store, cfg, nil)
	_, err := a.EnsureDefaultAdmin(ctx, cfg.AdminUsername, cfg.AdminPassword)
	require.NoError(t, err)

	svc := settings.NewService(store, nil, providers.MailChimpID, providers.ConvertKitID, providers.MailerLiteID)
	require.NoError(t, svc.Update(ctx, map[string]string{
		settings.ProviderKey(providers.ConvertKitID, settings.SuffixEnabled): "1",
		settings.ProviderKey(providers.ConvertKitID, settings.SuffixAPIKey):  testSecret,
	}))

	fake := testutil.NewFakeConvertKit(t, testSecret)
	fake.AddForm(42, "Weekly")

	client := gatehttp.NewClient().WithRetryConfig(gatehttp.RetryConfig{MaxAttempts: 1})
	registry := providers.NewRegistry(client, svc)
	registry.SetBaseURL(providers.ConvertKitID, fake.URL)

	g := gate.New(store, registry, svc, templates.NewEngine(nil), a, gate.Config{CookieTTL: cfg.CookieTTL()})

	h := New(Deps{
		Storage:   store,
		Config:    cfg,
		WebFS:     fstest.MapFS{"web/newslettergate.js": {Data: []byte("// gate")}},
		Auth:      a,
		Gate:      g,
		Settings:  svc,
		Providers: registry,
	})

	router := mux.NewRouter()
	router.HandleFunc("/api/gate/check", h.HandleCheck).Methods("POST")
	router.HandleFunc("/api/gate/subscribe", h.HandleSubscribe).Methods("POST")
	router.HandleFunc("/api/gate/render", h.HandleRender).Methods("GET", "POST")
	router.HandleFunc("/api/gate/nonce", h.HandleNonce).Methods("GET")
	router.HandleFunc("/api/gate/styles.css", h.HandleStyles).Methods("GET")
	router.HandleFunc("/api/auth/login", h.HandleLogin).Methods("POST")
	router.HandleFunc("/api/auth/logout", h.HandleLogout).Methods("POST")
	router.Handle("/api/auth/me", a.RequireAuth(http.HandlerFunc(h.HandleMe))).Methods("GET")
	router.HandleFunc("/health", h.HealthCheck).Methods("GET")
	router.PathPrefix("/assets/").Handler(h.ServeAssets())

	admin := router.PathPrefix("/api").Subrouter()
	admin.Use(a.RequireAuth)
	admin.HandleFunc("/settings", h.GetSettings).Methods("GET")
	admin.HandleFunc("/settings", h.UpdateSettings).Methods("POST")
	admin.HandleFunc("/subscribers", h.ListSubscribers).Methods("GET")
	admin.HandleFunc("/integrations", h.ListIntegrations).Methods("GET")
	admin.HandleFunc("/integrations/{provider}/lists", h.GetIntegrationLists).Methods("GET")
	admin.HandleFunc("/integrations/{provider}/connection", h.CheckIntegrationConnection).Methods("POST")

	return &testEnv{router: router, auth: a, store: store, settings: svc, fake: fake}
}

func (e *testEnv) do(req *http.Request) *httptest.ResponseRecorder {
	rec := httptest.NewRecorder()
	e.router.ServeHTTP(rec, req)
	return rec
}

func (e *testEnv) nonce(t *testing.T) string {
	t.Helper()
	nonce, err := e.auth.IssueNonce()
	require.NoError(t, err)
	return nonce
}

func (e *testEnv) gateForm(t *testing.T, path, email string, cookies ...*http.Cookie) *httptest.ResponseRecorder {
	form := url.Values{
		"ng_integration": {providers.ConvertKitID},
		"ng_email":       {email},
		"ng_list":        {testForm},
		"nonce":          {e.nonce(t)},
	}
	req := httptest.NewRequest(http.MethodPost, path, strings.NewReader(form.Encode()))
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	for _, c := range cookies {
		req.AddCookie(c)
	}
	return e.do(req)
}

// login returns the session cookie of the default admin
func (e *testEnv) login(t *testing.T) *http.Cookie {
	t.Helper()
	body := `{"username":"` + testutil.TestAdminUsername + `","password":"` + testutil.TestAdminPassword + `"}`
	req := httptest.NewRequest(http.MethodPost, "/api/auth/login", strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	rec := e.do(req)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	for _, c := range rec.Result().Cookies() {
		if c.Name == auth.SessionCookie {
			return c
		}
	}
	t.Fatal("no session cookie")
	return nil
}

func (e *testEnv) admin(t *testing.T, method, path string, body interface{}) *httptest.ResponseRecorder {
	t.Helper()
	var reader *bytes.Reader
	if body != nil {
		raw, err := json.Marshal(body)
		require.NoError(t, err)
		reader = bytes.NewReader(raw)
	} else {
		reader = bytes.NewReader(nil)
	}
	req := httptest.NewRequest(method, path, reader)
	req.Header.Set("Content-Type", "application/json")
	req.AddCookie(e.login(t))
	return e.do(req)
}

type envelope struct {
	Success bool            `json:"success"`
	Data    json.RawMessage `json:"data"`
	Error   string          `json:"error"`
}

func decode(t *testing.T, rec *httptest.ResponseRecorder) envelope {
	t.Helper()
	var env envelope
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &env), rec.Body.String())
	return env
}

func cookieNamed(rec *httptest.ResponseRecorder, name string) *http.Cookie {
	for _, c := range rec.Result().Cookies() {
		if c.Name == name {
			return c
		}
	}
	return nil
}

func TestCheckUnlocksSubscriber(t *testing.T) {
	env := newTestEnv(t)
	env.fake.AddSubscriber(testForm, "reader@example.com")

	rec := env.gateForm(t, "/api/gate/check", "Reader@Example.com")
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	body := decode(t, rec)
	assert.True(t, body.Success)
	var result gate.Result
	require.NoError(t, json.Unmarshal(body.Data, &result))
	assert.True(t, result.Reload)

	cookie := cookieNamed(rec, "ngate_convertkit_1")
	require.NotNil(t, cookie)
	assert.Len(t, cookie.Value, 32)

	count, err := env.store.CountSubscribers(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 1, count)
}

func TestCheckNotSubscribedShowsMessage(t *testing.T) {
	env := newTestEnv(t)

	rec := env.gateForm(t, "/api/gate/check", "stranger@example.com")
	require.Equal(t, http.StatusOK, rec.Code)

	var result gate.Result
	require.NoError(t, json.Unmarshal(decode(t, rec).Data, &result))
	assert.False(t, result.Reload)
	assert.Contains(t, result.HTML, gate.MsgNotSubscribed)
	assert.Nil(t, cookieNamed(rec, "ngate_convertkit_1"))
}

func TestCheckRejectsBadNonce(t *testing.T) {
	env := newTestEnv(t)

	form := url.Values{
		"ng_integration": {providers.ConvertKitID},
		"ng_email":       {"reader@example.com"},
		"ng_list":        {testForm},
		"nonce":          {"forged"},
	}
	req := httptest.NewRequest(http.MethodPost, "/api/gate/check", strings.NewReader(form.Encode()))
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	rec := env.do(req)

	assert.Equal(t, http.StatusUnauthorized, rec.Code)
	body := decode(t, rec)
	assert.False(t, body.Success)
	assert.NotEmpty(t, string(body.Data))
	assert.Zero(t, env.fake.Requests.Load())
}

func TestCheckRejectsInvalidEmail(t *testing.T) {
	env := newTestEnv(t)

	rec := env.gateForm(t, "/api/gate/check", "not-an-email")
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	var msg string
	require.NoError(t, json.Unmarshal(decode(t, rec).Data, &msg))
	assert.Equal(t, gate.MsgInvalidEmail, msg)
}

func TestSubscribeJSON(t *testing.T) {
	env := newTestEnv(t)
	require.NoError(t, env.settings.Update(context.Background(), map[string]string{settings.KeyEnableSubscribe: "1"}))

	payload, err := json.Marshal(map[string]string{
		"ng_integration": providers.ConvertKitID,
		"ng_email":       "new@example.com",
		"ng_list":        testForm,
		"nonce":          env.nonce(t),
	})
	require.NoError(t, err)

	req := httptest.NewRequest(http.MethodPost, "/api/gate/subscribe", bytes.NewReader(payload))
	req.Header.Set("Content-Type", "application/json")
	rec := env.do(req)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	var result gate.Result
	require.NoError(t, json.Unmarshal(decode(t, rec).Data, &result))
	assert.True(t, result.Reload)
	assert.Equal(t, []string{"new@example.com"}, env.fake.Subscribers(testForm))
	assert.NotNil(t, cookieNamed(rec, "ngate_convertkit_1"))
}

func TestRenderGatesUntilUnlocked(t *testing.T) {
	env := newTestEnv(t)
	env.fake.AddSubscriber(testForm, "reader@example.com")

	render := func(cookies ...*http.Cookie) string {
		form := url.Values{"content": {"<p>members only</p>"}}
		req := httptest.NewRequest(http.MethodPost, "/api/gate/render?provider=convertkit&list="+testForm,
			strings.NewReader(form.Encode()))
		req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
		for _, c := range cookies {
			req.AddCookie(c)
		}
		rec := env.do(req)
		require.Equal(t, http.StatusOK, rec.Code)
		assert.Equal(t, "text/html; charset=utf-8", rec.Header().Get("Content-Type"))
		return rec.Body.String()
	}

	locked := render()
	assert.NotContains(t, locked, "members only")
	assert.Contains(t, locked, "Unlock by Subscribing")

	check := env.gateForm(t, "/api/gate/check", "reader@example.com")
	cookie := cookieNamed(check, "ngate_convertkit_1")
	require.NotNil(t, cookie)

	assert.Equal(t, "<p>members only</p>", render(cookie))
}

func TestRenderRequiresProvider(t *testing.T) {
	env := newTestEnv(t)

	rec := env.do(httptest.NewRequest(http.MethodGet, "/api/gate/render?list="+testForm, nil))
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestRenderWithoutList(t *testing.T) {
	env := newTestEnv(t)
	env.fake.AddSubscriber(testForm, "reader@example.com")

	render := func(cookies ...*http.Cookie) *httptest.ResponseRecorder {
		form := url.Values{"content": {"<p>members only</p>"}}
		req := httptest.NewRequest(http.MethodPost, "/api/gate/render?provider=convertkit",
			strings.NewReader(form.Encode()))
		req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
		for _, c := range cookies {
			req.AddCookie(c)
		}
		return env.do(req)
	}

	locked := render()
	require.Equal(t, http.StatusOK, locked.Code)
	assert.NotContains(t, locked.Body.String(), "members only")

	check := env.gateForm(t, "/api/gate/check", "reader@example.com")
	cookie := cookieNamed(check, "ngate_convertkit_1")
	require.NotNil(t, cookie)

	unlocked := render(cookie)
	require.Equal(t, http.StatusOK, unlocked.Code)
	assert.Equal(t, "<p>members only</p>", unlocked.Body.String())
}

func TestNonceAndStyles(t *testing.T) {
	env := newTestEnv(t)
	require.NoError(t, env.settings.Update(context.Background(), map[string]string{settings.KeyBgColor: "#112233"}))

	rec := env.do(httptest.NewRequest(http.MethodGet, "/api/gate/nonce", nil))
	require.Equal(t, http.StatusOK, rec.Code)
	var nonce NonceResponse
	require.NoError(t, json.Unmarshal(decode(t, rec).Data, &nonce))
	assert.NoError(t, env.auth.VerifyNonce(nonce.Nonce))

	rec = env.do(httptest.NewRequest(http.MethodGet, "/api/gate/styles.css", nil))
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "text/css; charset=utf-8", rec.Header().Get("Content-Type"))
	assert.Contains(t, rec.Body.String(), "--newslettergate-background: #112233;")
}

func TestAdminRoutesRequireSession(t *testing.T) {
	env := newTestEnv(t)

	rec := env.do(httptest.NewRequest(http.MethodGet, "/api/settings", nil))
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
	assert.False(t, decode(t, rec).Success)
}

func TestLoginRejectsBadCredentials(t *testing.T) {
	env := newTestEnv(t)

	req := httptest.NewRequest(http.MethodPost, "/api/auth/login",
		strings.NewReader(`{"username":"admin","password":"wrong"}`))
	req.Header.Set("Content-Type", "application/json")
	rec := env.do(req)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)

	req = httptest.NewRequest(http.MethodPost, "/api/auth/login", strings.NewReader(`{"username":"admin"}`))
	req.Header.Set("Content-Type", "application/json")
	rec = env.do(req)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestMe(t *testing.T) {
	env := newTestEnv(t)

	rec := env.admin(t, http.MethodGet, "/api/auth/me", nil)
	require.Equal(t, http.StatusOK, rec.Code)

	var me map[string]interface{}
	require.NoError(t, json.Unmarshal(decode(t, rec).Data, &me))
	assert.Equal(t, testutil.TestAdminUsername, me["username"])
}

func TestUpdateSettings(t *testing.T) {
	env := newTestEnv(t)

	rec := env.admin(t, http.MethodPost, "/api/settings", map[string]string{settings.KeyHeading: "Members only"})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	var view settings.View
	require.NoError(t, json.Unmarshal(decode(t, rec).Data, &view))
	assert.Equal(t, "Members only", view.Values[settings.KeyHeading])

	rec = env.admin(t, http.MethodPost, "/api/settings", map[string]string{settings.KeyBgColor: "not a color"})
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.NotEmpty(t, decode(t, rec).Error)
}

func TestListSubscribers(t *testing.T) {
	env := newTestEnv(t)
	env.fake.AddSubscriber(testForm, "reader@example.com")
	check := env.gateForm(t, "/api/gate/check", "reader@example.com")
	require.Equal(t, http.StatusOK, check.Code)

	rec := env.admin(t, http.MethodGet, "/api/subscribers?per_page=10", nil)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	var page pagination.Page[storage.Subscriber]
	require.NoError(t, json.Unmarshal(decode(t, rec).Data, &page))
	assert.Equal(t, 1, page.TotalResults)
	assert.Equal(t, 1, page.TotalPages)
	require.Len(t, page.Results, 1)
	assert.Equal(t, "reader@example.com", page.Results[0].Email)
	assert.Equal(t, providers.ConvertKitID, page.Results[0].Provider)

	rec = env.admin(t, http.MethodGet, "/api/subscribers?page=0", nil)
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = env.admin(t, http.MethodGet, "/api/subscribers?page=922337203685477581&per_page=100", nil)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestListIntegrations(t *testing.T) {
	env := newTestEnv(t)

	rec := env.admin(t, http.MethodGet, "/api/integrations", nil)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	var items []Integration
	require.NoError(t, json.Unmarshal(decode(t, rec).Data, &items))
	require.Len(t, items, 3)

	enabled := map[string]bool{}
	for _, item := range items {
		enabled[item.ID] = item.Enabled
	}
	assert.True(t, enabled[providers.ConvertKitID])
	assert.False(t, enabled[providers.MailChimpID])
}

func TestIntegrationListsAreCached(t *testing.T) {
	env := newTestEnv(t)

	get := func(path string) []ListWithShortcode {
		rec := env.admin(t, http.MethodGet, path, nil)
		require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
		var lists []ListWithShortcode
		require.NoError(t, json.Unmarshal(decode(t, rec).Data, &lists))
		return lists
	}

	lists := get("/api/integrations/convertkit/lists")
	require.Len(t, lists, 1)
	assert.Equal(t, "42", lists[0].ID)
	assert.Equal(t, `[newslettergate provider="convertkit" list="42"]Content To Gate[/newslettergate]`, lists[0].Shortcode)
	assert.EqualValues(t, 1, env.fake.Requests.Load())

	get("/api/integrations/convertkit/lists")
	assert.EqualValues(t, 1, env.fake.Requests.Load())

	get("/api/integrations/convertkit/lists?refresh=1")
	assert.EqualValues(t, 2, env.fake.Requests.Load())

	// Saving settings may change credentials
	rec := env.admin(t, http.MethodPost, "/api/settings", map[string]string{settings.KeyHeading: "x"})
	require.Equal(t, http.StatusOK, rec.Code)
	get("/api/integrations/convertkit/lists")
	assert.EqualValues(t, 3, env.fake.Requests.Load())
}

func TestCheckConnection(t *testing.T) {
	env := newTestEnv(t)

	rec := env.admin(t, http.MethodPost, "/api/integrations/convertkit/connection", nil)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	require.NoError(t, env.settings.Update(context.Background(), map[string]string{
		settings.ProviderKey(providers.ConvertKitID, settings.SuffixAPIKey): "wrong",
	}))
	rec = env.admin(t, http.MethodPost, "/api/integrations/convertkit/connection", nil)
	assert.Equal(t, http.StatusBadGateway, rec.Code)
	assert.Equal(t, "Authorization Failed: API Key not valid", decode(t, rec).Error)

	rec = env.admin(t, http.MethodPost, "/api/integrations/nope/connection", nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestHealthCheck(t *testing.T) {
	env := newTestEnv(t)

	rec := env.do(httptest.NewRequest(http.MethodGet, "/health", nil))
	require.Equal(t, http.StatusOK, rec.Code)

	var status map[string]interface{}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &status))
	assert.Equal(t, "healthy", status["status"])
	assert.Equal(t, "not_configured", status["redis_status"])
}

func TestServeAssets(t *testing.T) {
	env := newTestEnv(t)

	rec := env.do(httptest.NewRequest(http.MethodGet, "/assets/newslettergate.js", nil))
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "// gate", rec.Body.String())
	assert.Equal(t, "public, max-age=3600", rec.Header().Get("Cache-Control"))

	rec = env.do(httptest.NewRequest(http.MethodGet, "/assets/missing.js", nil))
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestStatusFor(t *testing.T) {
	ctx, cancel := context.WithTimeout(context.Background(), time.Millisecond)
	defer cancel()
	<-ctx.Done()

	assert.Equal(t, http.StatusInternalServerError, statusFor(ctx.Err()))
	assert.Equal(t, "Internal server error", publicMessage(ctx.Err()))
}
