// Package oauth2 connects a newsletter provider through its OAuth 2.0
// authorization code flow.
//
// A provider takes part when both its authorize and token URLs are set in
// settings. The admin is sent to AuthorizeURL; the provider redirects back to
// the service home URL with a code and a state that VerifyState checks; the
// code is traded with Exchange. Token requests authenticate with
// "Authorization: Basic base64(api_key:api_secret)".
//
// Tokens are stored encrypted in settings. A token is due for refresh one
// hour before it expires, and the scheduler calls RefreshDue periodically:
//
//	manager := oauth2.NewManager(settingsService,
//		oauth2.NewSettingsTokenStorage(settingsService), cfg.BaseURL)
//	url, _ := manager.AuthorizeURL(ctx, "mailchimp", "admin")
//	...
//	if !oauth2.VerifyState("mailchimp", "admin", r.URL.Query().Get("state")) {
//		// reject
//	}
//	token, err := manager.Exchange(ctx, "mailchimp", r.URL.Query().Get("code"))
//
// Failed refreshes are only logged; the next sweep tries again.
package oauth2
