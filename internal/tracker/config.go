package tracker

import (
	"fmt"
	"os"
	"strings"
	"time"
)

// AuthType discriminates the credential variants a tracker can be
// configured with.
type AuthType string

const (
	AuthOAuth2 AuthType = "oauth2"
	AuthAPIKey AuthType = "api_key"
	AuthBasic  AuthType = "basic"
)

// TokenRecord holds OAuth token state as an explicit, persistable value.
// Refresh outcomes are reported through Credentials.OnTokenRefresh so they
// survive process restarts.
type TokenRecord struct {
	AccessToken  string    `json:"access_token"`
	RefreshToken string    `json:"refresh_token,omitempty"`
	Expiry       time.Time `json:"expiry,omitempty"`
}

// Credentials configures a tracker connection. It is constructed once per
// tracker configuration and held for the lifetime of a client instance.
// OAuth variants mutate Token in place after a refresh.
//
// Credentials are always sourced from configuration or the environment,
// never compiled into source.
type Credentials struct {
	// AuthType selects which of the variant fields below are meaningful.
	AuthType AuthType

	// Site is the provider base URL (e.g. "https://acme.atlassian.net" or
	// "https://acme.teamwork.com").
	Site string

	// OAuth2 fields.
	ClientID     string
	ClientSecret string
	RedirectURI  string
	Token        TokenRecord

	// API-key fields.
	APIKey string

	// Basic-auth fields.
	Username string
	Password string

	// OnTokenRefresh, when set, receives the updated token record after a
	// successful refresh so the caller can persist it.
	OnTokenRefresh func(TokenRecord)
}

// Validate checks that the fields required by the auth type are present.
func (c *Credentials) Validate() error {
	if c.Site == "" {
		return fmt.Errorf("tracker site URL not configured")
	}
	switch c.AuthType {
	case AuthOAuth2:
		if c.ClientID == "" || c.ClientSecret == "" {
			return fmt.Errorf("oauth2 client id/secret not configured")
		}
	case AuthAPIKey:
		if c.APIKey == "" {
			return fmt.Errorf("api key not configured")
		}
	case AuthBasic:
		if c.Username == "" || c.Password == "" {
			return fmt.Errorf("basic auth username/password not configured")
		}
	default:
		return fmt.Errorf("unknown auth type %q", c.AuthType)
	}
	return nil
}

// EnvFallback fills empty credential fields from environment variables named
// <PREFIX>_<FIELD> (e.g. DOCKYARD_JIRA_API_KEY for prefix "DOCKYARD_JIRA").
func (c *Credentials) EnvFallback(prefix string) {
	get := func(key string) string {
		return os.Getenv(envVarName(prefix, key))
	}
	if c.Site == "" {
		c.Site = get("site")
	}
	if c.APIKey == "" {
		c.APIKey = get("api_key")
	}
	if c.ClientID == "" {
		c.ClientID = get("client_id")
	}
	if c.ClientSecret == "" {
		c.ClientSecret = get("client_secret")
	}
	if c.Token.AccessToken == "" {
		c.Token.AccessToken = get("access_token")
	}
	if c.Token.RefreshToken == "" {
		c.Token.RefreshToken = get("refresh_token")
	}
	if c.Username == "" {
		c.Username = get("username")
	}
	if c.Password == "" {
		c.Password = get("password")
	}
}

// envVarName converts a prefix and key to an environment variable name.
// Example: ("DOCKYARD_JIRA", "api_key") -> "DOCKYARD_JIRA_API_KEY".
func envVarName(prefix, key string) string {
	name := strings.ToUpper(prefix + "_" + key)
	return strings.ReplaceAll(name, ".", "_")
}
