package env

import (
	"fmt"
	"os"

	"github.com/joho/godotenv"
)

type (
	// Source resolves environment values. Empty values are reported as absent.
	Source interface {
		Lookup(key string) (string, bool)
	}

	SourceFunc func(key string) (string, bool)

	mapSource map[string]string
	chain     []Source
)

func (f SourceFunc) Lookup(key string) (string, bool) {
	return f(key)
}

func Must[T any](val T, err error) T {
	if err != nil {
		panic(fmt.Errorf("failed to parse environment: %w", err))
	}
	return val
}

// OS reads the process environment.
func OS() Source {
	return SourceFunc(func(key string) (string, bool) {
		value, ok := os.LookupEnv(key)
		return value, ok && value != ""
	})
}

func Map(values map[string]string) Source {
	return mapSource(values)
}

// DotEnv parses the given .env files without touching the process environment.
// Later files override earlier ones.
func DotEnv(paths ...string) (Source, error) {
	values, err := godotenv.Read(paths...)
	if err != nil {
		return nil, fmt.Errorf("read dotenv files %v: %w", paths, err)
	}
	return mapSource(values), nil
}

// Chain returns the value of the first source that has the key.
func Chain(sources ...Source) Source {
	return chain(sources)
}

func String(src Source, key, fallback string) string {
	if src == nil {
		return fallback
	}

	value, ok := src.Lookup(key)
	if !ok {
		return fallback
	}
	return value
}

func ParseString(src Source, key string) (string, error) {
	value, ok := src.Lookup(key)
	if !ok {
		return "", notFoundError(key, "string")
	}
	return value, nil
}

func (m mapSource) Lookup(key string) (string, bool) {
	value, ok := m[key]
	return value, ok && value != ""
}

func (c chain) Lookup(key string) (string, bool) {
	for _, src := range c {
		if src == nil {
			continue
		}
		if value, ok := src.Lookup(key); ok {
			return value, true
		}
	}
	return "", false
}

func notFoundError(key, varType string) error {
	return fmt.Errorf("env %s with type %s not found", key, varType)
}
