package host

import (
	"log/slog"
	"sync/atomic"

	"github.com/reglet-dev/reglet-native/domain/entities"
	"github.com/reglet-dev/reglet-native/domain/ports"
	"github.com/reglet-dev/reglet-native/internal/abi"
)

// image is one mapped shared-library image. It is unmapped when the last
// Library clone or open Session referencing it is released.
type image struct {
	loader  ports.DynamicLoader
	metrics *Metrics
	path    string
	handle  uintptr
	refs    atomic.Int64
}

func (img *image) acquire() {
	img.refs.Add(1)
}

func (img *image) release() error {
	if img.refs.Add(-1) != 0 {
		return nil
	}
	img.metrics.imageUnloaded()
	return img.loader.Close(img.handle)
}

// Library is a loaded native module: five bound entry points sharing one
// mapped image.
//
// A *Library is safe for concurrent use. Concurrent calls reach the same
// entry points unsynchronized; whether that is safe is up to the module.
// Each Library obtained from Load or Clone must be released exactly once
// with Release.
type Library struct {
	img      *image
	syms     *symbolTable
	decoder  ports.InfoDecoder
	logger   *slog.Logger
	metrics  *Metrics
	manifest *entities.ModuleManifest
	owner    entities.BufferOwnership
	released atomic.Bool
}

// Clone returns a new Library sharing the receiver's entry points and image.
// The image stays mapped until every clone has been released.
// Cloning a released Library panics.
func (l *Library) Clone() *Library {
	if l.released.Load() {
		panic("host: Clone called on released Library")
	}
	l.img.acquire()
	return &Library{
		img:      l.img,
		syms:     l.syms,
		decoder:  l.decoder,
		logger:   l.logger,
		metrics:  l.metrics,
		manifest: l.manifest,
		owner:    l.owner,
	}
}

// Release drops this Library's reference to the image, unmapping it when no
// clone or open session remains. Further calls are no-ops.
func (l *Library) Release() error {
	if !l.released.CompareAndSwap(false, true) {
		return nil
	}
	l.logger.Debug("module reference released", "path", l.img.path)
	return l.img.release()
}

// Path returns the filesystem path the image was loaded from.
func (l *Library) Path() string {
	return l.img.path
}

// BufferOwnership returns the declared out-buffer release protocol.
func (l *Library) BufferOwnership() entities.BufferOwnership {
	return l.owner
}

// Manifest returns the sidecar manifest applied at load time, or nil.
func (l *Library) Manifest() *entities.ModuleManifest {
	return l.manifest
}

// readOut copies an out-buffer into a Go string and, under host-free
// ownership, hands the buffer back to the module.
func (l *Library) readOut(ptr *byte, size int32, decode bool) string {
	var text string
	if decode {
		text = abi.ReadText(ptr, size)
	}
	if l.owner == entities.OwnershipHostFree && ptr != nil {
		l.syms.free(ptr, size)
	}
	return text
}
