// Package parser reads module manifests from their YAML representation.
package parser

import (
	"fmt"

	"github.com/go-playground/validator/v10"
	"github.com/reglet-dev/reglet-native/domain/entities"
	"github.com/reglet-dev/reglet-native/domain/ports"
	"gopkg.in/yaml.v3"
)

var validate = validator.New()

// YamlManifestParser implements ManifestParser for YAML.
type YamlManifestParser struct{}

// NewYamlManifestParser creates a new YamlManifestParser.
func NewYamlManifestParser() ports.ManifestParser {
	return &YamlManifestParser{}
}

// Parse unmarshals YAML bytes into a ModuleManifest and validates it.
// Ownership stays empty when the document does not declare one, so the
// loader keeps whatever ownership the caller configured.
func (p *YamlManifestParser) Parse(data []byte) (*entities.ModuleManifest, error) {
	var manifest entities.ModuleManifest
	if err := yaml.Unmarshal(data, &manifest); err != nil {
		return nil, err
	}

	if err := validate.Struct(&manifest); err != nil {
		return nil, fmt.Errorf("invalid module manifest: %w", err)
	}
	return &manifest, nil
}
