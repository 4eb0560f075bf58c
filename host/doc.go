// Package host loads native module libraries and bridges calls into them.
//
// A module is a shared library exporting five C entry points: Info, Open,
// Close, Set and Get. Load validates the file suffix, maps the image and
// binds all five entry points before returning, so a *Library is either
// fully usable or not returned at all. Library methods marshal Go strings
// into NUL-terminated buffers, perform exactly one foreign call, and copy
// any (pointer, length) out-buffer back into Go memory.
//
// The bridge propagates, rather than provides, the module's guarantees:
// concurrent use of one Session and the lifetime of returned buffers are
// the module's responsibility. Buffer release follows the declared
// entities.BufferOwnership.
package host
