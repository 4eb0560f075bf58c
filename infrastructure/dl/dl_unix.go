//go:build (darwin || freebsd || linux) && !android

package dl

import "github.com/ebitengine/purego"

// Open maps the image with RTLD_NOW so unresolved native dependencies fail
// here rather than on first call, and RTLD_LOCAL so module symbols do not
// leak into the global namespace.
func (Loader) Open(path string) (uintptr, error) {
	return purego.Dlopen(path, purego.RTLD_NOW|purego.RTLD_LOCAL)
}

// Lookup returns the address of the named symbol.
func (Loader) Lookup(handle uintptr, name string) (uintptr, error) {
	return purego.Dlsym(handle, name)
}

// Close releases the dynamically loaded library from this process.
func (Loader) Close(handle uintptr) error {
	if handle == 0 {
		return nil
	}
	return purego.Dlclose(handle)
}
