package settings

// Kind decides how a field is sanitized, validated and stored
type Kind int

const (
	KindText Kind = iota
	KindBool
	KindColor
	KindSecret
	KindURL
)

func (k Kind) String() string {
	switch k {
	case KindBool:
		return "bool"
	case KindColor:
		return "color"
	case KindSecret:
		return "secret"
	case KindURL:
		return "url"
	default:
		return "text"
	}
}

// Field is one setting
type Field struct {
	Key     string
	Kind    Kind
	Default string
	// Provider is set for per-provider fields
	Provider string
}

// Form and style setting keys
const (
	KeyHeading          = "heading"
	KeyText             = "text"
	KeyButton           = "button"
	KeyEnableSubscribe  = "enable_subscribe"
	KeyHeadingSubscribe = "heading_subscribe"
	KeyTextSubscribe    = "text_subscribe"
	KeyButtonSubscribe  = "button_subscribe"
	KeyBgColor          = "bg_color"
	KeyColor            = "color"
	KeyTextColor        = "text_color"
	KeyButtonBgColor    = "button_bg_color"
	KeyButtonTextColor  = "button_text_color"
)

var formFields = []Field{
	{Key: KeyHeading, Kind: KindText, Default: "Unlock by Subscribing"},
	{Key: KeyText, Kind: KindText, Default: "Already Subscribed? Enter email to unlock"},
	{Key: KeyButton, Kind: KindText, Default: "Unlock"},
	{Key: KeyEnableSubscribe, Kind: KindBool, Default: "0"},
	{Key: KeyHeadingSubscribe, Kind: KindText, Default: "Not subscribed yet"},
	{Key: KeyTextSubscribe, Kind: KindText, Default: "Subscribe to unlock this content"},
	{Key: KeyButtonSubscribe, Kind: KindText, Default: "Subscribe to Unlock"},
	{Key: KeyBgColor, Kind: KindColor, Default: "#000"},
	{Key: KeyColor, Kind: KindColor, Default: "#fff"},
	{Key: KeyTextColor, Kind: KindColor, Default: "#fff"},
	{Key: KeyButtonBgColor, Kind: KindColor, Default: "#fff"},
	{Key: KeyButtonTextColor, Kind: KindColor, Default: "#000"},
}

// Per-provider key suffixes
const (
	SuffixEnabled           = "enabled"
	SuffixAPIKey            = "api_key"
	SuffixAPISecret         = "api_secret"
	SuffixOAuthAuthorizeURL = "oauth_authorize_url"
	SuffixOAuthTokenURL     = "oauth_token_url"
)

// ProviderKey returns "<provider>_<suffix>"
func ProviderKey(provider, suffix string) string {
	return provider + "_" + suffix
}

func providerFields(provider string) []Field {
	return []Field{
		{Key: ProviderKey(provider, SuffixEnabled), Kind: KindBool, Default: "0", Provider: provider},
		{Key: ProviderKey(provider, SuffixAPIKey), Kind: KindSecret, Provider: provider},
		{Key: ProviderKey(provider, SuffixAPISecret), Kind: KindSecret, Provider: provider},
		{Key: ProviderKey(provider, SuffixOAuthAuthorizeURL), Kind: KindURL, Provider: provider},
		{Key: ProviderKey(provider, SuffixOAuthTokenURL), Kind: KindURL, Provider: provider},
	}
}

// OAuthTokenKey is where a provider's OAuth token is stored, encrypted
func OAuthTokenKey(provider string) string {
	return "newslettergate_" + provider + "_oauth"
}

// OAuthRefreshKey holds the RFC 3339 time after which the token is refreshed
func OAuthRefreshKey(provider string) string {
	return "newslettergate_" + provider + "_oauth_refresh_at"
}
