package ports

// DynamicLoader maps shared-library images into the process and resolves
// exported symbols from them. Handles and addresses are opaque to callers.
type DynamicLoader interface {
	// Open loads the image at path and returns its handle.
	Open(path string) (uintptr, error)

	// Lookup returns the address of the named exported symbol.
	Lookup(handle uintptr, name string) (uintptr, error)

	// Close unmaps the image. It must be called once per successful Open.
	Close(handle uintptr) error
}
