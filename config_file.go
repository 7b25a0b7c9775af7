package authclient

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/tidwall/jsonc"
	"gopkg.in/yaml.v3"
)

// LoadConfigFile reads a YAML (.yaml, .yml) or JSON-with-comments (.json, .jsonc)
// file over [DefaultConfig]. Durations are Go duration strings ("15s"). Unknown keys
// are rejected. The result is validated.
func LoadConfigFile(path string) (Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return Config{}, fmt.Errorf("reading %s: %w", path, err)
	}

	var format string
	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml":
		format = "yaml"
	case ".json", ".jsonc":
		format = "jsonc"
	default:
		return Config{}, fmt.Errorf("%s: unsupported config extension", path)
	}

	cfg, err := ParseConfig(data, format)
	if err != nil {
		return Config{}, fmt.Errorf("%s: %w", path, err)
	}
	return cfg, nil
}

// ParseConfig decodes data in the given format ("yaml" or "jsonc") over
// [DefaultConfig] and validates the result.
func ParseConfig(data []byte, format string) (Config, error) {
	switch format {
	case "yaml":
	case "jsonc", "json":
		// JSON is a subset of YAML; decoding through yaml keeps duration strings working.
		data = jsonc.ToJSON(data)
	default:
		return Config{}, fmt.Errorf("unsupported config format %q", format)
	}

	cfg := defaultConfig()
	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)
	if err := dec.Decode(&cfg); err != nil && !errors.Is(err, io.EOF) {
		return Config{}, fmt.Errorf("parsing config: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}
