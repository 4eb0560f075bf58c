// Package registry shares loaded native modules between consumers.
//
// A Registry maps library paths to one loaded image each. Acquire hands out
// clones, so every consumer releases its own reference while the image stays
// mapped for the others.
package registry

import (
	"errors"
	"log/slog"
	"sort"

	cmap "github.com/orcaman/concurrent-map/v2"
	"github.com/reglet-dev/reglet-native/host"
)

// registryConfig holds configuration for the Registry.
type registryConfig struct {
	loaderOpts   []host.LoaderOption
	useManifests bool
	logger       *slog.Logger
}

func defaultRegistryConfig() registryConfig {
	return registryConfig{
		useManifests: true, // Honour sidecar manifests like the CLI does
		logger:       slog.Default(),
	}
}

// RegistryOption configures a Registry instance.
type RegistryOption func(*registryConfig)

// WithLoaderOptions sets the options passed to every load.
func WithLoaderOptions(opts ...host.LoaderOption) RegistryOption {
	return func(c *registryConfig) {
		c.loaderOpts = append(c.loaderOpts, opts...)
	}
}

// WithManifests selects host.LoadWithManifest (true, the default) or
// host.Load (false).
func WithManifests(enabled bool) RegistryOption {
	return func(c *registryConfig) {
		c.useManifests = enabled
	}
}

// WithLogger sets the registry's logger.
func WithLogger(l *slog.Logger) RegistryOption {
	return func(c *registryConfig) {
		if l != nil {
			c.logger = l
		}
	}
}

// Registry caches one Library per path. It is safe for concurrent use.
type Registry struct {
	config    registryConfig
	libraries cmap.ConcurrentMap[string, *host.Library]
}

// NewRegistry creates a new Registry with the given options.
func NewRegistry(opts ...RegistryOption) *Registry {
	cfg := defaultRegistryConfig()
	for _, opt := range opts {
		opt(&cfg)
	}
	return &Registry{
		config:    cfg,
		libraries: cmap.New[*host.Library](),
	}
}

// Acquire returns a Library for path, loading it on first use. The caller
// owns the returned clone and must Release it; the registry keeps its own
// reference until Evict or Close.
func (r *Registry) Acquire(path string) (*host.Library, error) {
	var (
		clone   *host.Library
		loadErr error
	)

	// Runs under the shard lock, so concurrent first uses load once.
	r.libraries.Upsert(path, nil, func(exists bool, cached, _ *host.Library) *host.Library {
		if exists && cached != nil {
			clone = cached.Clone()
			return cached
		}
		lib, err := r.load(path)
		if err != nil {
			loadErr = err
			return nil
		}
		r.config.logger.Debug("module cached", "path", path)
		clone = lib.Clone()
		return lib
	})

	if loadErr != nil {
		r.libraries.RemoveCb(path, func(_ string, lib *host.Library, exists bool) bool {
			return exists && lib == nil
		})
		return nil, loadErr
	}
	return clone, nil
}

// Evict drops the registry's reference to path. Clones already handed out
// stay valid; the image is unmapped once they are released too. It reports
// whether path was cached.
func (r *Registry) Evict(path string) (bool, error) {
	var releaseErr error
	removed := r.libraries.RemoveCb(path, func(_ string, lib *host.Library, exists bool) bool {
		if exists && lib != nil {
			releaseErr = lib.Release()
		}
		return exists
	})
	if removed {
		r.config.logger.Debug("module evicted", "path", path)
	}
	return removed, releaseErr
}

// Close evicts every cached path.
func (r *Registry) Close() error {
	var errs []error
	for _, path := range r.libraries.Keys() {
		if _, err := r.Evict(path); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

// Paths returns the cached paths in sorted order.
func (r *Registry) Paths() []string {
	paths := r.libraries.Keys()
	sort.Strings(paths)
	return paths
}

// Len returns the number of cached paths.
func (r *Registry) Len() int {
	return r.libraries.Count()
}

func (r *Registry) load(path string) (*host.Library, error) {
	if r.config.useManifests {
		return host.LoadWithManifest(path, r.config.loaderOpts...)
	}
	return host.Load(path, r.config.loaderOpts...)
}
