package config

import (
	"strings"

	"github.com/iancoleman/strcase"

	"github.com/klwxsrx/go-auth-client/pkg/env"
)

const (
	DefaultPrefix      = "TRACKER"
	DefaultAPIBasePath = "http://10.100.102.3:5000"
	ModeDev            = "dev"

	apiBasePathField = "apiBasePath"
	modeField        = "mode"
	apiPathSuffix    = "/api/"
)

type (
	// Config is immutable once built; use Merge to derive a new one.
	Config struct {
		APIBasePath string
		Mode        string
	}

	// Overrides holds caller-supplied values. Nil fields keep the base value.
	Overrides struct {
		APIBasePath *string
		Mode        *string
	}
)

func Default() Config {
	return Config{
		APIBasePath: DefaultAPIBasePath,
		Mode:        ModeDev,
	}
}

// Load resolves <PREFIX>_API_BASE_PATH and <PREFIX>_MODE from src, falling back to Default.
func Load(src env.Source, prefix string) Config {
	defaults := Default()
	return Config{
		APIBasePath: env.String(src, EnvName(prefix, apiBasePathField), defaults.APIBasePath),
		Mode:        env.String(src, EnvName(prefix, modeField), defaults.Mode),
	}
}

func EnvName(prefix, field string) string {
	if prefix == "" {
		return strcase.ToScreamingSnake(field)
	}
	return strcase.ToScreamingSnake(prefix + "_" + field)
}

func (c Config) Merge(o Overrides) Config {
	if o.APIBasePath != nil {
		c.APIBasePath = *o.APIBasePath
	}
	if o.Mode != nil {
		c.Mode = *o.Mode
	}
	return c
}

// APIBaseURL is the address every client request is resolved against.
func (c Config) APIBaseURL() string {
	return strings.TrimRight(c.APIBasePath, "/") + apiPathSuffix
}

func (c Config) IsDev() bool {
	return c.Mode == ModeDev
}
