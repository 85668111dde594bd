package realtime

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/the-lmc-group/trainflow/internal/siri"
	"gopkg.in/yaml.v3"
)

// DefaultAuthHeader carries the provider token when no header is configured.
const DefaultAuthHeader = "Apikey"

// ErrNoProviders is returned when no enabled provider is configured.
var ErrNoProviders = errors.New("no SIRI providers configured")

// Provider is one SIRI Estimated Timetable endpoint. Token values of the form
// ${VAR} are read from the environment at load time.
type Provider struct {
	Name       string            `yaml:"name" json:"name" validate:"required"`
	Publisher  string            `yaml:"publisher" json:"publisher"`
	Type       string            `yaml:"type" json:"type"`
	URL        string            `yaml:"url" json:"url" validate:"required,url"`
	Token      string            `yaml:"token" json:"token"`
	AuthHeader string            `yaml:"authHeader" json:"authHeader"`
	Format     siri.Format       `yaml:"return" json:"return" validate:"required,oneof=json xml"`
	Enabled    *bool             `yaml:"enabled" json:"enabled"`
	Coverage   string            `yaml:"coverage" json:"coverage"`
	Headers    map[string]string `yaml:"headers" json:"headers"`
}

// IsEnabled treats a missing enabled flag as true.
func (p Provider) IsEnabled() bool {
	return p.Enabled == nil || *p.Enabled
}

func (p Provider) authHeader() string {
	if p.AuthHeader != "" {
		return p.AuthHeader
	}
	return DefaultAuthHeader
}

type providersFile struct {
	Providers []Provider `yaml:"providers" json:"providers"`
}

// LoadProviders reads a YAML or JSON providers file. The document is either a
// list of providers or an object with a providers list.
func LoadProviders(path string, lookupEnv func(string) (string, bool)) ([]Provider, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read providers file: %w", err)
	}
	return ParseProviders(data, strings.EqualFold(filepath.Ext(path), ".json"), lookupEnv)
}

// ParseProviders decodes and validates provider definitions.
func ParseProviders(data []byte, isJSON bool, lookupEnv func(string) (string, bool)) ([]Provider, error) {
	providers, err := decodeProviders(data, isJSON)
	if err != nil {
		return nil, err
	}

	validate := validator.New()
	seen := make(map[string]bool, len(providers))
	for i := range providers {
		p := &providers[i]
		p.Format = siri.Format(strings.ToLower(strings.TrimSpace(string(p.Format))))
		if lookupEnv != nil {
			p.Token = expandEnv(p.Token, lookupEnv)
		}

		if err := validate.Struct(p); err != nil {
			return nil, fmt.Errorf("invalid provider #%d (%q): %w", i, p.Name, err)
		}
		if seen[p.Name] {
			return nil, fmt.Errorf("duplicate provider name %q", p.Name)
		}
		seen[p.Name] = true
	}
	return providers, nil
}

func decodeProviders(data []byte, isJSON bool) ([]Provider, error) {
	trimmed := strings.TrimSpace(string(data))
	if trimmed == "" {
		return nil, nil
	}

	var list []Provider
	var wrapped providersFile
	if isJSON {
		if strings.HasPrefix(trimmed, "[") {
			if err := json.Unmarshal(data, &list); err != nil {
				return nil, fmt.Errorf("decode providers: %w", err)
			}
			return list, nil
		}
		if err := json.Unmarshal(data, &wrapped); err != nil {
			return nil, fmt.Errorf("decode providers: %w", err)
		}
		return wrapped.Providers, nil
	}

	if err := yaml.Unmarshal(data, &list); err == nil {
		return list, nil
	}
	if err := yaml.Unmarshal(data, &wrapped); err != nil {
		return nil, fmt.Errorf("decode providers: %w", err)
	}
	return wrapped.Providers, nil
}

func expandEnv(s string, lookupEnv func(string) (string, bool)) string {
	return os.Expand(s, func(key string) string {
		v, _ := lookupEnv(key)
		return v
	})
}

// EnabledProviders keeps the enabled providers in file order.
func EnabledProviders(providers []Provider) []Provider {
	var enabled []Provider
	for _, p := range providers {
		if p.IsEnabled() {
			enabled = append(enabled, p)
		}
	}
	return enabled
}
