package config

import (
	"fmt"
	"os"
	"strings"

	"github.com/adrg/xdg"
	"github.com/go-viper/mapstructure/v2"
	"github.com/knadh/koanf/parsers/toml"
	"github.com/knadh/koanf/providers/confmap"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/v2"

	"github.com/arthur-debert/beout/pkg/errors"
)

// EnvPrefix is the prefix of environment overrides, e.g. BEOUT_FRAME_MS
const EnvPrefix = "BEOUT_"

// userConfigPath is looked up under the XDG config dirs
const userConfigPath = "beout/config.toml"

// Load resolves the configuration. Layers, later wins:
//  1. embedded defaults
//  2. the config file at path, or beout/config.toml in the XDG config dirs
//  3. BEOUT_* environment variables, then NO_COLOR
//  4. overrides (typically command-line flags), keyed like the TOML file
//
// Out-of-range values are replaced by defaults and reported in Warnings.
func Load(path string, overrides map[string]interface{}) (*Config, error) {
	k := koanf.New(".")

	// 1. Defaults
	if err := k.Load(&rawBytesProvider{bytes: defaultConfig}, toml.Parser()); err != nil {
		return nil, errors.Wrap(err, errors.ErrConfigLoad, "failed to load defaults")
	}

	// 2. Config file
	if path == "" {
		if found, err := xdg.SearchConfigFile(userConfigPath); err == nil {
			path = found
		}
	}
	if path != "" {
		if err := k.Load(file.Provider(path), toml.Parser()); err != nil {
			return nil, errors.Wrapf(err, errors.ErrConfigLoad, "failed to load config from %s", path).
				WithDetail("path", path)
		}
	}

	// 3. Environment
	err := k.Load(env.Provider(EnvPrefix, ".", func(s string) string {
		return strings.ToLower(strings.TrimPrefix(s, EnvPrefix))
	}), nil)
	if err != nil {
		return nil, errors.Wrap(err, errors.ErrConfigLoad, "failed to load env vars")
	}
	if _, ok := os.LookupEnv("NO_COLOR"); ok {
		if err := k.Set("no_color", true); err != nil {
			return nil, errors.Wrap(err, errors.ErrConfigLoad, "failed to apply NO_COLOR")
		}
	}

	// 4. Overrides
	if len(overrides) > 0 {
		if err := k.Load(confmap.Provider(overrides, "."), nil); err != nil {
			return nil, errors.Wrap(err, errors.ErrConfigLoad, "failed to load overrides")
		}
	}

	cfg := Default()
	var warnings []string
	for _, key := range k.Keys() {
		if !knownKey(key) {
			warnings = append(warnings, fmt.Sprintf("unknown setting %q ignored", key))
		}
	}
	unmarshalConf := koanf.UnmarshalConf{
		Tag: "koanf",
		DecoderConfig: &mapstructure.DecoderConfig{
			Result:           cfg,
			WeaklyTypedInput: true,
			DecodeHook: mapstructure.ComposeDecodeHookFunc(
				mapstructure.TextUnmarshallerHookFunc(),
				mapstructure.StringToTimeDurationHookFunc(),
			),
		},
	}
	if err := k.UnmarshalWithConf("", cfg, unmarshalConf); err != nil {
		return nil, errors.Wrap(err, errors.ErrConfigValid, "failed to unmarshal configuration")
	}

	cfg.Warnings = warnings
	cfg.sanitize()
	return cfg, nil
}

// FromEnv loads defaults, the user config file and the environment. It
// never fails: a broken layer yields the defaults plus a warning.
func FromEnv() *Config {
	cfg, err := Load("", nil)
	if err != nil {
		cfg = Default()
		cfg.warn("configuration ignored: %v", err)
	}
	return cfg
}

func knownKey(key string) bool {
	switch key {
	case "mode", "frame_ms", "log_tail", "queue_size", "force_tty", "plain", "no_color", "width", "theme", "summary":
		return true
	}
	return false
}
