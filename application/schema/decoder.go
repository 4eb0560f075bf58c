package schema

import (
	"encoding/json"
	stdErrors "errors"
	"fmt"

	"github.com/buger/jsonparser"
	"github.com/go-playground/validator/v10"
	"github.com/reglet-dev/reglet-native/domain/entities"
	"github.com/reglet-dev/reglet-native/domain/errors"
	"github.com/reglet-dev/reglet-native/domain/ports"
)

// Wire field names of the ModuleInfo document. Matching is case-sensitive.
const (
	fieldName         = "Name"
	fieldDescription  = "Description"
	fieldManufacturer = "Manufacturer"
	fieldComponents   = "Components"
)

const moduleInfoType = "ModuleInfo"

// validate is a package-level singleton; building a validator is expensive.
var validate = validator.New()

type decoderConfig struct {
	strict bool // Run struct validation after decoding
}

// DecoderOption configures an InfoDecoder.
type DecoderOption func(*decoderConfig)

// WithStrict enables struct validation of the decoded ModuleInfo: a non-empty
// Name and non-empty component identifiers. Disabled by default so that any
// document of the right shape is accepted.
func WithStrict(enabled bool) DecoderOption {
	return func(c *decoderConfig) {
		c.strict = enabled
	}
}

// InfoDecoder parses Info payloads into entities.ModuleInfo.
type InfoDecoder struct {
	config decoderConfig
}

// NewInfoDecoder creates an InfoDecoder with the given options.
func NewInfoDecoder(opts ...DecoderOption) ports.InfoDecoder {
	var cfg decoderConfig
	for _, opt := range opts {
		opt(&cfg)
	}
	return &InfoDecoder{config: cfg}
}

// Decode parses payload as a ModuleInfo JSON object. All four fields are
// required and must have the right JSON type; unknown fields are ignored.
// Every failure is returned as *errors.SchemaError.
func (d *InfoDecoder) Decode(payload string) (entities.ModuleInfo, error) {
	info, err := decodeModuleInfo([]byte(payload))
	if err != nil {
		return entities.ModuleInfo{}, &errors.SchemaError{Type: moduleInfoType, Err: err}
	}

	if d.config.strict {
		if err := validate.Struct(info); err != nil {
			return entities.ModuleInfo{}, &errors.SchemaError{Type: moduleInfoType, Err: err}
		}
	}

	return info, nil
}

// DecodeModuleInfo parses payload with a default (non-strict) decoder.
func DecodeModuleInfo(payload string) (entities.ModuleInfo, error) {
	return NewInfoDecoder().Decode(payload)
}

func decodeModuleInfo(data []byte) (entities.ModuleInfo, error) {
	var info entities.ModuleInfo

	// jsonparser does not reject trailing garbage, so check syntax first.
	if !json.Valid(data) {
		return info, stdErrors.New("payload is not valid JSON")
	}

	seen := make(map[string]bool, 4)
	err := jsonparser.ObjectEach(data, func(key, value []byte, dataType jsonparser.ValueType, _ int) error {
		field := string(key)
		switch field {
		case fieldName, fieldDescription, fieldManufacturer, fieldComponents:
		default:
			return nil
		}
		if seen[field] {
			return fmt.Errorf("duplicate field `%s`", field)
		}
		seen[field] = true

		if field == fieldComponents {
			components, err := parseStringArray(field, value, dataType)
			if err != nil {
				return err
			}
			info.Components = components
			return nil
		}

		s, err := parseString(field, value, dataType)
		if err != nil {
			return err
		}
		switch field {
		case fieldName:
			info.Name = s
		case fieldDescription:
			info.Description = s
		case fieldManufacturer:
			info.Manufacturer = s
		}
		return nil
	})
	if err != nil {
		return entities.ModuleInfo{}, err
	}

	for _, field := range []string{fieldName, fieldDescription, fieldManufacturer, fieldComponents} {
		if !seen[field] {
			return entities.ModuleInfo{}, fmt.Errorf("missing field `%s`", field)
		}
	}

	return info, nil
}

func parseString(field string, value []byte, dataType jsonparser.ValueType) (string, error) {
	if dataType != jsonparser.String {
		return "", fmt.Errorf("field `%s`: expected string, got %s", field, dataType)
	}
	s, err := jsonparser.ParseString(value)
	if err != nil {
		return "", fmt.Errorf("field `%s`: %w", field, err)
	}
	return s, nil
}

func parseStringArray(field string, value []byte, dataType jsonparser.ValueType) ([]string, error) {
	if dataType != jsonparser.Array {
		return nil, fmt.Errorf("field `%s`: expected array, got %s", field, dataType)
	}

	out := make([]string, 0)
	var elemErr error
	_, err := jsonparser.ArrayEach(value, func(elem []byte, elemType jsonparser.ValueType, _ int, err error) {
		if elemErr != nil {
			return
		}
		if err != nil {
			elemErr = err
			return
		}
		s, err := parseString(field, elem, elemType)
		if err != nil {
			elemErr = err
			return
		}
		out = append(out, s)
	})
	if err != nil {
		return nil, fmt.Errorf("field `%s`: %w", field, err)
	}
	if elemErr != nil {
		return nil, elemErr
	}
	return out, nil
}
