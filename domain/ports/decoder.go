package ports

import "github.com/reglet-dev/reglet-native/domain/entities"

// InfoDecoder turns the text payload of an Info call into a ModuleInfo.
type InfoDecoder interface {
	// Decode parses payload. Failures are reported as *errors.SchemaError.
	Decode(payload string) (entities.ModuleInfo, error)
}
