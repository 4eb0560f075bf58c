package cli

import (
	"fmt"
	"strings"

	"github.com/reglet-dev/reglet-native/domain/entities"
	"github.com/spf13/pflag"
	"github.com/spf13/viper"
)

// EnvPrefix prefixes the environment variables read by the CLI.
const EnvPrefix = "REGLET_NATIVE"

// Config is the resolved CLI configuration. Flags override environment
// variables, which override the config file.
type Config struct {
	Client         string `mapstructure:"client"`
	MaxPayloadSize uint32 `mapstructure:"max_payload_size"`
	Ownership      string `mapstructure:"ownership"`
	FreeSymbol     string `mapstructure:"free_symbol"`
	Manifest       bool   `mapstructure:"manifest"`
	LogLevel       string `mapstructure:"log_level"`
}

// DefaultConfig returns the configuration used when nothing is set.
func DefaultConfig() Config {
	return Config{
		Client:    "reglet-native",
		Ownership: string(entities.OwnershipModule),
		Manifest:  true,
		LogLevel:  "warn",
	}
}

// registerFlags declares the persistent flags backing Config.
func registerFlags(flags *pflag.FlagSet) {
	defaults := DefaultConfig()
	flags.String("config", "", "config file (yaml, json or toml)")
	flags.String("client", defaults.Client, "client identifier passed to Info and Open")
	flags.Uint32("max-payload-size", defaults.MaxPayloadSize, "payload size limit passed to Open (0 uses the manifest value)")
	flags.String("ownership", defaults.Ownership, "out-buffer ownership: module or host-free")
	flags.String("free-symbol", defaults.FreeSymbol, "buffer release entry point for host-free ownership")
	flags.Bool("manifest", defaults.Manifest, "apply the module's sidecar manifest when present")
	flags.String("log-level", defaults.LogLevel, "log level: debug, info, warn or error")
}

// loadConfig resolves Config from flags, environment and config file.
func loadConfig(flags *pflag.FlagSet) (Config, error) {
	v := viper.New()

	defaults := DefaultConfig()
	v.SetDefault("client", defaults.Client)
	v.SetDefault("max_payload_size", defaults.MaxPayloadSize)
	v.SetDefault("ownership", defaults.Ownership)
	v.SetDefault("free_symbol", defaults.FreeSymbol)
	v.SetDefault("manifest", defaults.Manifest)
	v.SetDefault("log_level", defaults.LogLevel)

	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
	v.AutomaticEnv()

	for _, name := range []string{"client", "max-payload-size", "ownership", "free-symbol", "manifest", "log-level"} {
		if err := v.BindPFlag(strings.ReplaceAll(name, "-", "_"), flags.Lookup(name)); err != nil {
			return Config{}, fmt.Errorf("failed to bind flag %s: %w", name, err)
		}
	}

	if path, _ := flags.GetString("config"); path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			return Config{}, fmt.Errorf("failed to read config file %s: %w", path, err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return Config{}, fmt.Errorf("failed to decode config: %w", err)
	}
	if err := entities.BufferOwnership(cfg.Ownership).Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}
