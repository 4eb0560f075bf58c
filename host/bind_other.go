//go:build !(darwin || freebsd || linux || windows)

package host

import "runtime"

// registerFunc panics like purego.RegisterFunc on a signature it cannot
// bind; resolveSymbols reports it as a SymbolResolutionError.
func registerFunc(any, uintptr) {
	panic("foreign calls are not supported on " + runtime.GOOS)
}
