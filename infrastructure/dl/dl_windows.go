//go:build windows

package dl

import "golang.org/x/sys/windows"

// Open loads the DLL at path.
func (Loader) Open(path string) (uintptr, error) {
	h, err := windows.LoadLibrary(path)
	if err != nil {
		return 0, err
	}
	return uintptr(h), nil
}

// Lookup returns the address of the named export.
func (Loader) Lookup(handle uintptr, name string) (uintptr, error) {
	return windows.GetProcAddress(windows.Handle(handle), name)
}

// Close frees the DLL.
func (Loader) Close(handle uintptr) error {
	if handle == 0 {
		return nil
	}
	return windows.FreeLibrary(windows.Handle(handle))
}
