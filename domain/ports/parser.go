package ports

import "github.com/reglet-dev/reglet-native/domain/entities"

// ManifestParser parses raw YAML bytes into a ModuleManifest.
type ManifestParser interface {
	// Parse unmarshals YAML bytes into a ModuleManifest struct.
	Parse(data []byte) (*entities.ModuleManifest, error)
}
