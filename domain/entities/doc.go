// Package entities provides the core domain types of the native module bridge.
// These are plain values shared by the loader, the bridge operations and the
// schema decoder; none of them hold foreign resources.
package entities
