// Package dl implements ports.DynamicLoader for the host platform: dlopen,
// dlsym and dlclose through purego on darwin, freebsd and linux (not
// android), and LoadLibrary, GetProcAddress and FreeLibrary on windows.
// Neither path requires cgo. Other platforms get a loader whose Open fails.
package dl
