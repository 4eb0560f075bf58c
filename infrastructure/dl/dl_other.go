//go:build !windows && !((darwin || freebsd || linux) && !android)

package dl

import (
	"fmt"
	"runtime"
)

var errUnsupported = fmt.Errorf("dynamic loading is not supported on %s/%s", runtime.GOOS, runtime.GOARCH)

// Open always fails: purego has no dlopen for this platform.
func (Loader) Open(string) (uintptr, error) {
	return 0, errUnsupported
}

// Lookup always fails.
func (Loader) Lookup(uintptr, string) (uintptr, error) {
	return 0, errUnsupported
}

// Close is a no-op; no handle can exist.
func (Loader) Close(uintptr) error {
	return nil
}
