package entities

import "fmt"

// BufferOwnership declares who owns the memory behind a (pointer, length)
// out-buffer returned by the Info and Get entry points.
type BufferOwnership string

const (
	// OwnershipModule means the module keeps the buffer alive and reclaims it
	// itself. The host copies the bytes and never frees them.
	OwnershipModule BufferOwnership = "module"

	// OwnershipHostFree means the buffer is handed to the host, which copies it
	// and then returns it through the module's declared free entry point.
	OwnershipHostFree BufferOwnership = "host-free"
)

// Validate checks that the ownership value is one of the known contracts.
func (o BufferOwnership) Validate() error {
	switch o {
	case OwnershipModule, OwnershipHostFree:
		return nil
	default:
		return fmt.Errorf("unknown buffer ownership %q", string(o))
	}
}

// ModuleManifest is the optional sidecar document a module ships next to its
// shared library. It records the contracts the ABI itself cannot express.
type ModuleManifest struct {
	// Ownership declares the out-buffer release protocol.
	Ownership BufferOwnership `json:"ownership" yaml:"ownership" validate:"omitempty,oneof=module host-free"`

	// FreeSymbol names the entry point used to release out-buffers.
	// Required when Ownership is host-free.
	FreeSymbol string `json:"free_symbol,omitempty" yaml:"free_symbol,omitempty" validate:"required_if=Ownership host-free"`

	// MaxPayloadSize is the default size limit passed to Open.
	MaxPayloadSize uint32 `json:"max_payload_size,omitempty" yaml:"max_payload_size,omitempty"`

	// Name, when set, must match the Name reported by Info; Library.Info
	// returns a schema error otherwise.
	Name string `json:"name,omitempty" yaml:"name,omitempty"`

	// Description is free text for operators.
	Description string `json:"description,omitempty" yaml:"description,omitempty"`
}
