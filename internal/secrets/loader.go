package secrets

import (
	"errors"
	"fmt"
	"os"
	"strings"
)

// ErrNotConfigured is returned when no source yields a credential.
var ErrNotConfigured = errors.New("not configured")

// Source describes how to load a secret value.
type Source struct {
	// Name is used in error messages to give more context about the secret.
	Name string
	// Value is an inline secret value provided via configuration or flags.
	Value string
	// File points to a file containing the secret value. When set it takes
	// precedence over Value.
	File string
	// EnvKeys are consulted in order when neither File nor Value is set.
	EnvKeys []string
}

// Env is a snapshot of process environment variables.
type Env map[string]string

// Environ captures the current process environment.
func Environ() Env {
	env := make(Env)
	for _, kv := range os.Environ() {
		key, value, ok := strings.Cut(kv, "=")
		if !ok {
			continue
		}
		env[key] = value
	}
	return env
}

// Load returns the resolved secret value from the provided source. When File is
// set it takes precedence over Value. The returned secret is always trimmed. An
// error is returned when neither File nor Value contain a usable secret.
func Load(src Source) (string, error) {
	name := sourceName(src)

	file := strings.TrimSpace(src.File)
	if file != "" {
		data, err := os.ReadFile(file)
		if err != nil {
			return "", fmt.Errorf("reading %s from file %q: %w", name, file, err)
		}
		src.Value = string(data)
		src.File = file
	}

	secret := strings.TrimSpace(src.Value)
	if secret == "" {
		if src.File != "" {
			return "", fmt.Errorf("%s file %q is empty", name, src.File)
		}
		return "", fmt.Errorf("%s is %w", name, ErrNotConfigured)
	}

	return secret, nil
}

// Resolve looks for the secret in explicit sources first (File, then Value)
// and falls back to the environment snapshot. The error lists every place
// that was checked, in precedence order.
func Resolve(src Source, env Env) (string, error) {
	if strings.TrimSpace(src.File) != "" || strings.TrimSpace(src.Value) != "" {
		return Load(src)
	}

	for _, key := range src.EnvKeys {
		if value := strings.TrimSpace(env[key]); value != "" {
			return value, nil
		}
	}

	checked := []string{"explicit option"}
	for _, key := range src.EnvKeys {
		checked = append(checked, "$"+key)
	}

	return "", fmt.Errorf("%s is %w (checked %s)", sourceName(src), ErrNotConfigured, strings.Join(checked, ", "))
}

func sourceName(src Source) string {
	name := strings.TrimSpace(src.Name)
	if name == "" {
		return "secret"
	}
	return name
}
