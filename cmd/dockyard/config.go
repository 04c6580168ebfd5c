package main

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/spf13/viper"

	"github.com/steffonell/dockyard/internal/cache"
	"github.com/steffonell/dockyard/internal/service"
	"github.com/steffonell/dockyard/internal/tracker"

	// Providers self-register with the tracker registry.
	_ "github.com/steffonell/dockyard/internal/jira"
	_ "github.com/steffonell/dockyard/internal/teamwork"
)

// cfg is the loaded configuration, available after loadConfig.
var cfg *viper.Viper

// loadConfig reads the config file (explicit path, working directory, then
// the user config directory) and installs environment fallbacks. A missing
// config file is fine: everything can come from the environment.
func loadConfig(path string) error {
	v := viper.New()
	v.SetConfigType("yaml")

	if path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			return fmt.Errorf("read config %s: %w", path, err)
		}
	} else {
		v.SetConfigName("dockyard")
		v.AddConfigPath(".")
		if home, err := os.UserHomeDir(); err == nil {
			v.AddConfigPath(filepath.Join(home, ".config", "dockyard"))
		}
		if err := v.ReadInConfig(); err != nil {
			var notFound viper.ConfigFileNotFoundError
			if !errors.As(err, &notFound) {
				return fmt.Errorf("read config: %w", err)
			}
		}
	}

	v.SetEnvPrefix("DOCKYARD")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	cfg = v
	return nil
}

// trackerNames returns the providers to operate on: the --tracker flag value
// when set, otherwise every tracker with a config block, otherwise all
// registered providers.
func trackerNames(flagValue string) []string {
	if flagValue != "" {
		return strings.Split(flagValue, ",")
	}
	if cfg != nil {
		if configured := cfg.GetStringMap("trackers"); len(configured) > 0 {
			names := make([]string, 0, len(configured))
			for name := range configured {
				names = append(names, name)
			}
			return names
		}
	}
	return tracker.Providers()
}

// credentialsFor builds a tracker's credentials from its config block plus
// environment fallbacks. OAuth trackers get a refresh hook that writes the
// rotated token back to the config file so it survives the process.
func credentialsFor(name string) (*tracker.Credentials, error) {
	prefix := "trackers." + name + "."
	creds := &tracker.Credentials{
		AuthType:     tracker.AuthType(cfg.GetString(prefix + "auth_type")),
		Site:         cfg.GetString(prefix + "site"),
		ClientID:     cfg.GetString(prefix + "client_id"),
		ClientSecret: cfg.GetString(prefix + "client_secret"),
		RedirectURI:  cfg.GetString(prefix + "redirect_uri"),
		APIKey:       cfg.GetString(prefix + "api_key"),
		Username:     cfg.GetString(prefix + "username"),
		Password:     cfg.GetString(prefix + "password"),
		Token: tracker.TokenRecord{
			AccessToken:  cfg.GetString(prefix + "access_token"),
			RefreshToken: cfg.GetString(prefix + "refresh_token"),
		},
	}
	creds.EnvFallback("DOCKYARD_" + strings.ToUpper(name))

	if creds.AuthType == "" {
		switch name {
		case "jira":
			creds.AuthType = tracker.AuthOAuth2
		default:
			creds.AuthType = tracker.AuthAPIKey
		}
	}

	if creds.AuthType == tracker.AuthOAuth2 {
		creds.OnTokenRefresh = func(tok tracker.TokenRecord) {
			persistToken(name, tok)
		}
	}

	if err := creds.Validate(); err != nil {
		return nil, fmt.Errorf("tracker %s: %w", name, err)
	}
	return creds, nil
}

// persistToken writes a rotated OAuth token back to the config file.
// Best effort: a read-only config just means re-auth next expiry.
func persistToken(name string, tok tracker.TokenRecord) {
	if cfg == nil || cfg.ConfigFileUsed() == "" {
		return
	}
	prefix := "trackers." + name + "."
	cfg.Set(prefix+"access_token", tok.AccessToken)
	if tok.RefreshToken != "" {
		cfg.Set(prefix+"refresh_token", tok.RefreshToken)
	}
	if err := cfg.WriteConfig(); err != nil {
		fmt.Fprintf(os.Stderr, "Warning: could not persist refreshed %s token: %v\n", name, err)
	} else {
		verbosef("persisted refreshed %s token to %s", name, cfg.ConfigFileUsed())
	}
}

// openTracker builds the named tracker wrapped in the caching service.
func openTracker(name string) (*service.TrackerService, error) {
	creds, err := credentialsFor(name)
	if err != nil {
		return nil, err
	}
	client, err := tracker.New(name, creds)
	if err != nil {
		return nil, err
	}
	ttl := cfg.GetDuration("cache.ttl")
	if ttl <= 0 {
		ttl = cache.DefaultTTL
	}
	return service.New(client, cache.New(ttl)), nil
}

// parseSince accepts RFC3339 timestamps and plain dates for --since.
func parseSince(s string) (*time.Time, error) {
	if s == "" {
		return nil, nil
	}
	for _, layout := range []string{time.RFC3339, "2006-01-02"} {
		if t, err := time.Parse(layout, s); err == nil {
			return &t, nil
		}
	}
	return nil, fmt.Errorf("invalid --since value %q (want RFC3339 or YYYY-MM-DD)", s)
}
