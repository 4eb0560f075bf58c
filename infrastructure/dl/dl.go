package dl

import (
	"runtime"

	"github.com/reglet-dev/reglet-native/domain/ports"
)

// Suffix returns the dynamic-library filename suffix for the given GOOS.
func Suffix(goos string) string {
	switch goos {
	case "darwin", "ios":
		return ".dylib"
	case "windows":
		return ".dll"
	default:
		return ".so"
	}
}

// PlatformSuffix is the dynamic-library suffix of the running platform.
var PlatformSuffix = Suffix(runtime.GOOS)

// Loader is the platform implementation of ports.DynamicLoader.
type Loader struct{}

// NewLoader returns the platform dynamic loader.
func NewLoader() ports.DynamicLoader {
	return Loader{}
}
