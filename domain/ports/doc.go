// Package ports defines the interfaces the bridge depends on.
// The host package depends on these abstractions; infrastructure adapters
// (the platform dynamic loader, the YAML manifest parser) implement them.
package ports
