package testutil

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"sync/atomic"
	"testing"

	"github.com/gorilla/mux"
)

// FakeConvertKit serves the parts of the ConvertKit v3 API the provider
// client uses. Point the registry at URL with SetBaseURL.
type FakeConvertKit struct {
	URL    string
	Secret string

	// Requests counts every call, authorized or not
	Requests atomic.Int32

	mu          sync.Mutex
	forms       []fakeForm
	subscribers map[string][]string
}

type fakeForm struct {
	ID   int    `json:"id"`
	Name string `json:"name"`
}

// NewFakeConvertKit starts the server; it is closed on cleanup
func NewFakeConvertKit(t *testing.T, secret string) *FakeConvertKit {
	t.Helper()

	f := &FakeConvertKit{
		Secret:      secret,
		subscribers: make(map[string][]string),
	}

	router := mux.NewRouter()
	router.HandleFunc("/forms", f.listForms).Methods(http.MethodGet)
	router.HandleFunc("/forms/{id}/subscriptions", f.listSubscriptions).Methods(http.MethodGet)
	router.HandleFunc("/forms/{id}/subscribe", f.subscribe).Methods(http.MethodPost)

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		f.Requests.Add(1)
		router.ServeHTTP(w, r)
	}))
	t.Cleanup(srv.Close)
	f.URL = srv.URL
	return f
}

// AddForm registers a form that lists and subscriptions can refer to
func (f *FakeConvertKit) AddForm(id int, name string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.forms = append(f.forms, fakeForm{ID: id, Name: name})
}

// AddSubscriber marks an address as an active subscriber of the form
func (f *FakeConvertKit) AddSubscriber(formID, email string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.subscribers[formID] = append(f.subscribers[formID], email)
}

// Subscribers returns the addresses subscribed to the form
func (f *FakeConvertKit) Subscribers(formID string) []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]string(nil), f.subscribers[formID]...)
}

func (f *FakeConvertKit) authorized(w http.ResponseWriter, secret string) bool {
	if secret == f.Secret {
		return true
	}
	writeJSON(w, http.StatusUnauthorized, map[string]string{
		"error":   "Authorization Failed",
		"message": "API Key not valid",
	})
	return false
}

func (f *FakeConvertKit) listForms(w http.ResponseWriter, r *http.Request) {
	if !f.authorized(w, r.URL.Query().Get("api_secret")) {
		return
	}
	f.mu.Lock()
	forms := append([]fakeForm{}, f.forms...)
	f.mu.Unlock()

	writeJSON(w, http.StatusOK, map[string]interface{}{"forms": forms})
}

func (f *FakeConvertKit) listSubscriptions(w http.ResponseWriter, r *http.Request) {
	if !f.authorized(w, r.URL.Query().Get("api_secret")) {
		return
	}

	type subscription struct {
		Subscriber struct {
			EmailAddress string `json:"email_address"`
		} `json:"subscriber"`
	}
	var subs []subscription
	for _, email := range f.Subscribers(mux.Vars(r)["id"]) {
		var s subscription
		s.Subscriber.EmailAddress = email
		subs = append(subs, s)
	}

	writeJSON(w, http.StatusOK, map[string]interface{}{
		"total_subscriptions": len(subs),
		"page":                1,
		"total_pages":         1,
		"subscriptions":       subs,
	})
}

func (f *FakeConvertKit) subscribe(w http.ResponseWriter, r *http.Request) {
	var body struct {
		Email     string `json:"email"`
		APISecret string `json:"api_secret"`
	}
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "Bad Request", "message": err.Error()})
		return
	}
	if !f.authorized(w, body.APISecret) {
		return
	}
	if !strings.Contains(body.Email, "@") {
		writeJSON(w, http.StatusUnprocessableEntity, map[string]string{
			"error":   "Invalid email",
			"message": "Email address is invalid",
		})
		return
	}

	f.AddSubscriber(mux.Vars(r)["id"], body.Email)
	writeJSON(w, http.StatusOK, map[string]interface{}{
		"subscription": map[string]interface{}{"state": "inactive"},
	})
}

func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}
