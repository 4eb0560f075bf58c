package host

import (
	"log/slog"

	"github.com/reglet-dev/reglet-native/application/schema"
	"github.com/reglet-dev/reglet-native/domain/entities"
	"github.com/reglet-dev/reglet-native/domain/ports"
	"github.com/reglet-dev/reglet-native/infrastructure/dl"
	"github.com/reglet-dev/reglet-native/infrastructure/parser"
)

// loaderConfig holds configuration for Load.
type loaderConfig struct {
	loader     ports.DynamicLoader
	decoder    ports.InfoDecoder
	parser     ports.ManifestParser
	logger     *slog.Logger
	metrics    *Metrics
	bind       binder
	suffix     string
	ownership  entities.BufferOwnership
	freeSymbol string
}

func defaultLoaderConfig() loaderConfig {
	return loaderConfig{
		loader:    dl.NewLoader(),
		decoder:   schema.NewInfoDecoder(),
		parser:    parser.NewYamlManifestParser(),
		bind:      registerFunc,
		suffix:    dl.PlatformSuffix,
		ownership: entities.OwnershipModule, // Host copies, never frees
	}
}

// LoaderOption configures Load.
type LoaderOption func(*loaderConfig)

// WithDynamicLoader replaces the platform loader, e.g. to add tracing.
func WithDynamicLoader(l ports.DynamicLoader) LoaderOption {
	return func(c *loaderConfig) {
		c.loader = l
	}
}

// WithInfoDecoder sets the decoder used for Info payloads.
func WithInfoDecoder(d ports.InfoDecoder) LoaderOption {
	return func(c *loaderConfig) {
		c.decoder = d
	}
}

// WithManifestParser sets the parser used by LoadWithManifest.
func WithManifestParser(p ports.ManifestParser) LoaderOption {
	return func(c *loaderConfig) {
		c.parser = p
	}
}

// WithLogger sets the logger. Defaults to slog.Default().
func WithLogger(l *slog.Logger) LoaderOption {
	return func(c *loaderConfig) {
		c.logger = l
	}
}

// WithMetrics records foreign calls into m.
func WithMetrics(m *Metrics) LoaderOption {
	return func(c *loaderConfig) {
		c.metrics = m
	}
}

// WithBufferOwnership declares the module's out-buffer release protocol.
// With entities.OwnershipHostFree, freeSymbol names the entry point that
// takes back each buffer after the host has copied it; it is resolved
// eagerly with the required symbols.
func WithBufferOwnership(ownership entities.BufferOwnership, freeSymbol string) LoaderOption {
	return func(c *loaderConfig) {
		c.ownership = ownership
		c.freeSymbol = freeSymbol
	}
}

// WithBinder replaces purego.RegisterFunc as the way resolved addresses are
// turned into callable functions. bind receives a pointer to a func variable
// of the entry point's Go signature and must set it or panic. It exists for
// in-process module implementations such as package moduletest.
func WithBinder(bind func(fptr any, addr uintptr)) LoaderOption {
	return func(c *loaderConfig) {
		c.bind = bind
	}
}

func newLoaderConfig(opts []LoaderOption) loaderConfig {
	cfg := defaultLoaderConfig()
	for _, opt := range opts {
		opt(&cfg)
	}
	if cfg.logger == nil {
		cfg.logger = slog.Default()
	}
	return cfg
}
