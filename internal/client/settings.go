package client

import (
	"os"
	"strings"
	"time"

	"github.com/knadh/koanf"
	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/confmap"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	"github.com/mdouchement/starving/pkg/deeplink"
	"github.com/pkg/errors"
)

// EnvPrefix prefixes the environment variables overriding the settings.
// Nested keys use a double underscore, e.g. STARVING_USER__NAME.
const EnvPrefix = "STARVING_"

// Settings holds the client configuration.
type Settings struct {
	DatabasePath     string
	Credentials      string
	Endpoint         string
	Embedded         string
	RecipientWrites  bool
	Scheme           string
	StatusResetDelay time.Duration
	UserID           string
	UserName         string
	UserAvatar       string
	LogFile          string
}

func defaults() map[string]any {
	return map[string]any{
		"database_path":                 "starving.db",
		"credentials":                   CredentialsFile,
		"scheme":                        deeplink.DefaultScheme,
		"status_reset_delay":            "2s",
		"log_file":                      "starving.log",
		"shared_lists.recipient_writes": false,
	}
}

// LoadSettings reads the settings from the defaults, the YAML file when it exists and the environment.
func LoadSettings(filename string) (Settings, error) {
	konf := koanf.New(".")
	if err := konf.Load(confmap.Provider(defaults(), "."), nil); err != nil {
		return Settings{}, errors.Wrap(err, "could not load defaults")
	}

	if filename != "" {
		if _, err := os.Stat(filename); err == nil {
			if err = konf.Load(file.Provider(filename), yaml.Parser()); err != nil {
				return Settings{}, errors.Wrapf(err, "could not load %s", filename)
			}
		}
	}

	err := konf.Load(env.Provider(EnvPrefix, ".", func(s string) string {
		s = strings.TrimPrefix(s, EnvPrefix)
		return strings.ReplaceAll(strings.ToLower(s), "__", ".")
	}), nil)
	if err != nil {
		return Settings{}, errors.Wrap(err, "could not load environment")
	}

	return Settings{
		DatabasePath:     konf.String("database_path"),
		Credentials:      konf.String("credentials"),
		Endpoint:         konf.String("endpoint"),
		Embedded:         konf.String("embedded"),
		RecipientWrites:  konf.Bool("shared_lists.recipient_writes"),
		Scheme:           konf.String("scheme"),
		StatusResetDelay: konf.Duration("status_reset_delay"),
		UserID:           konf.String("user.id"),
		UserName:         konf.String("user.name"),
		UserAvatar:       konf.String("user.avatar"),
		LogFile:          konf.String("log_file"),
	}, nil
}
