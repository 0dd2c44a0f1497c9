package gate

import (
	"net/http"
	"strconv"
	"strings"
)

// CookiePrefix starts the name of every reference cookie
const CookiePrefix = "ngate_"

func providerPrefix(provider string) string {
	return CookiePrefix + provider + "_"
}

// CookiesForProvider returns the reference ids held in the provider's
// cookies, keyed by cookie name.
func CookiesForProvider(r *http.Request, provider string) map[string]string {
	prefix := providerPrefix(provider)
	found := make(map[string]string)
	for _, c := range r.Cookies() {
		if strings.HasPrefix(c.Name, prefix) && c.Value != "" {
			found[c.Name] = c.Value
		}
	}
	return found
}

func refIDs(cookies map[string]string) []string {
	ids := make([]string, 0, len(cookies))
	for _, v := range cookies {
		ids = append(ids, v)
	}
	return ids
}

// cookieName numbers a new cookie after every ngate_ cookie the visitor
// holds, skipping names already taken.
func cookieName(r *http.Request, provider string) string {
	taken := make(map[string]bool)
	for _, c := range r.Cookies() {
		if strings.HasPrefix(c.Name, CookiePrefix) {
			taken[c.Name] = true
		}
	}

	n := len(taken) + 1
	for taken[providerPrefix(provider)+strconv.Itoa(n)] {
		n++
	}
	return providerPrefix(provider) + strconv.Itoa(n)
}

func (g *Gate) setRefCookie(w http.ResponseWriter, r *http.Request, provider, refID string) bool {
	for _, v := range CookiesForProvider(r, provider) {
		if v == refID {
			return false
		}
	}

	now := g.now()
	http.SetCookie(w, &http.Cookie{
		Name:     cookieName(r, provider),
		Value:    refID,
		Path:     "/",
		Domain:   g.config.CookieDomain,
		Expires:  now.Add(g.config.CookieTTL),
		MaxAge:   int(g.config.CookieTTL.Seconds()),
		HttpOnly: true,
		Secure:   g.config.CookieSecure,
		SameSite: http.SameSiteLaxMode,
	})
	return true
}
