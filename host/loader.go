package host

import (
	stdErrors "errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"github.com/reglet-dev/reglet-native/domain/entities"
	"github.com/reglet-dev/reglet-native/domain/errors"
)

// ManifestPath returns the sidecar manifest path for a module library:
// the library path with its extension replaced by ".yaml".
func ManifestPath(libraryPath string) string {
	return strings.TrimSuffix(libraryPath, filepath.Ext(libraryPath)) + ".yaml"
}

// Load validates path, maps the library image and binds its five entry
// points. On any failure the image (if mapped) is released again and no
// Library is returned.
//
// Errors: *errors.PathValidationError, *errors.DynamicLoadError,
// *errors.SymbolResolutionError.
func Load(path string, opts ...LoaderOption) (*Library, error) {
	cfg := newLoaderConfig(opts)
	return load(path, cfg, nil)
}

// LoadWithManifest behaves like Load but first reads the module's sidecar
// manifest (see ManifestPath) when one exists. Buffer ownership and the free
// symbol declared by the manifest override the options; fields the manifest
// leaves out keep the configured values. A manifest name is checked against
// the Name reported by Info.
func LoadWithManifest(path string, opts ...LoaderOption) (*Library, error) {
	cfg := newLoaderConfig(opts)
	if err := validatePath(path, cfg.suffix); err != nil {
		return nil, err
	}

	manifest, err := readManifest(ManifestPath(path), cfg)
	if err != nil {
		return nil, err
	}
	if manifest != nil {
		if manifest.Ownership != "" {
			cfg.ownership = manifest.Ownership
		}
		if manifest.FreeSymbol != "" {
			cfg.freeSymbol = manifest.FreeSymbol
		}
		cfg.logger.Debug("module manifest applied",
			"path", path, "ownership", cfg.ownership, "free_symbol", cfg.freeSymbol)
	}

	return load(path, cfg, manifest)
}

func readManifest(path string, cfg loaderConfig) (*entities.ModuleManifest, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		if stdErrors.Is(err, fs.ErrNotExist) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to read module manifest: %w", err)
	}
	manifest, err := cfg.parser.Parse(raw)
	if err != nil {
		return nil, fmt.Errorf("failed to parse module manifest %s: %w", path, err)
	}
	return manifest, nil
}

func validatePath(path, suffix string) error {
	if filepath.Ext(path) != suffix {
		return &errors.PathValidationError{Path: path, Expected: suffix}
	}
	return nil
}

func load(path string, cfg loaderConfig, manifest *entities.ModuleManifest) (*Library, error) {
	if err := validatePath(path, cfg.suffix); err != nil {
		return nil, err
	}
	if err := cfg.ownership.Validate(); err != nil {
		return nil, fmt.Errorf("invalid loader configuration: %w", err)
	}
	freeSymbol := ""
	if cfg.ownership == entities.OwnershipHostFree {
		if cfg.freeSymbol == "" {
			return nil, fmt.Errorf("invalid loader configuration: %s ownership requires a free symbol", cfg.ownership)
		}
		freeSymbol = cfg.freeSymbol
	}

	handle, err := cfg.loader.Open(path)
	if err != nil {
		return nil, &errors.DynamicLoadError{Path: path, Err: err}
	}

	syms, err := resolveSymbols(cfg.loader, cfg.bind, handle, path, freeSymbol)
	if err != nil {
		if closeErr := cfg.loader.Close(handle); closeErr != nil {
			cfg.logger.Warn("failed to unload module after resolution error", "path", path, "error", closeErr)
		}
		return nil, err
	}

	cfg.logger.Debug("module loaded", "path", path, "ownership", cfg.ownership)
	cfg.metrics.imageLoaded()

	img := &image{path: path, handle: handle, loader: cfg.loader, metrics: cfg.metrics}
	img.refs.Store(1)

	return &Library{
		img:      img,
		syms:     syms,
		decoder:  cfg.decoder,
		logger:   cfg.logger,
		metrics:  cfg.metrics,
		owner:    cfg.ownership,
		manifest: manifest,
	}, nil
}
