package host

import (
	"fmt"
	"math"
	"runtime"
	"time"

	"github.com/reglet-dev/reglet-native/domain/entities"
	"github.com/reglet-dev/reglet-native/domain/errors"
	"github.com/reglet-dev/reglet-native/internal/abi"
)

// Info asks the module to describe itself on behalf of client.
//
// A non-success status is returned as *errors.ModuleCallError without
// looking at the out-buffer. Otherwise the buffer is decoded as UTF-8,
// replacing invalid sequences, and parsed into a ModuleInfo; a malformed
// document, or a Name differing from the one declared by the module's
// manifest, yields *errors.SchemaError.
func (l *Library) Info(client string) (entities.ModuleInfo, error) {
	if l.released.Load() {
		return entities.ModuleInfo{}, errors.ErrLibraryReleased
	}
	cClient, err := abi.CString("client", client)
	if err != nil {
		return entities.ModuleInfo{}, err
	}

	var payload *byte
	var size int32
	start := time.Now()
	status := entities.Status(l.syms.info(&cClient[0], &payload, &size))
	runtime.KeepAlive(cClient)
	l.metrics.observeCall(SymbolInfo, status.OK(), start)

	if !status.OK() {
		l.readOut(payload, size, false)
		l.logger.Warn("module Info returned non-success status",
			"path", l.img.path, "client", client, "status", int32(status))
		return entities.ModuleInfo{}, &errors.ModuleCallError{Operation: SymbolInfo, Status: status}
	}

	info, err := l.decoder.Decode(l.readOut(payload, size, true))
	if err != nil {
		return entities.ModuleInfo{}, err
	}
	if l.manifest != nil && l.manifest.Name != "" && l.manifest.Name != info.Name {
		return entities.ModuleInfo{}, &errors.SchemaError{
			Type: "ModuleInfo",
			Err:  fmt.Errorf("module reports name %q, manifest declares %q", info.Name, l.manifest.Name),
		}
	}
	return info, nil
}

// Open starts a session for client. maxPayloadSize is passed through to the
// module, which alone enforces it. A null handle yields *errors.OpenError.
func (l *Library) Open(client string, maxPayloadSize uint32) (*Session, error) {
	if l.released.Load() {
		return nil, errors.ErrLibraryReleased
	}
	cClient, err := abi.CString("client", client)
	if err != nil {
		return nil, err
	}

	start := time.Now()
	handle := l.syms.open(&cClient[0], maxPayloadSize)
	runtime.KeepAlive(cClient)
	l.metrics.observeCall(SymbolOpen, handle != 0, start)

	if handle == 0 {
		return nil, &errors.OpenError{Client: client, MaxPayloadSize: maxPayloadSize}
	}

	// The session pins the image so Close stays callable after Release.
	l.img.acquire()
	l.metrics.sessionOpened()
	l.logger.Debug("module session opened", "path", l.img.path, "client", client)

	return &Session{img: l.img, client: client, handle: handle}, nil
}

// Set writes payload to object of component. size is passed to the module
// as the payload length. The host is stricter than the C signature here:
// size must lie within the encoded buffer (payload plus its terminating
// NUL), so the module can never be told to read past it. An out-of-range
// size returns *errors.PayloadSizeError and the module is not called.
//
// The module's status is returned as-is: a non-zero status is data, not an
// error. Use errors.CheckStatus to gate on it.
func (l *Library) Set(s *Session, component, object, payload string, size int) (entities.Status, error) {
	if err := l.useSession(s, SymbolSet); err != nil {
		return 0, err
	}
	cComponent, err := abi.CString("component", component)
	if err != nil {
		return 0, err
	}
	cObject, err := abi.CString("object", object)
	if err != nil {
		return 0, err
	}
	cPayload, err := abi.CString("payload", payload)
	if err != nil {
		return 0, err
	}
	if size < 0 || size > len(cPayload) || size > math.MaxInt32 {
		return 0, &errors.PayloadSizeError{Size: size, Length: len(payload)}
	}

	start := time.Now()
	status := entities.Status(l.syms.set(s.handle, &cComponent[0], &cObject[0], &cPayload[0], int32(size)))
	runtime.KeepAlive(cComponent)
	runtime.KeepAlive(cObject)
	runtime.KeepAlive(cPayload)
	l.metrics.observeCall(SymbolSet, status.OK(), start)

	return status, nil
}

// Get reads object of component. The out-buffer is decoded whatever the
// status, so the pair (status, payload) is always returned as reported; a
// non-zero status typically comes with an empty or module-defined payload.
func (l *Library) Get(s *Session, component, object string) (entities.Status, string, error) {
	if err := l.useSession(s, SymbolGet); err != nil {
		return 0, "", err
	}
	cComponent, err := abi.CString("component", component)
	if err != nil {
		return 0, "", err
	}
	cObject, err := abi.CString("object", object)
	if err != nil {
		return 0, "", err
	}

	var payload *byte
	var size int32
	start := time.Now()
	status := entities.Status(l.syms.get(s.handle, &cComponent[0], &cObject[0], &payload, &size))
	runtime.KeepAlive(cComponent)
	runtime.KeepAlive(cObject)
	l.metrics.observeCall(SymbolGet, status.OK(), start)

	return status, l.readOut(payload, size, true), nil
}

// Close ends the session and consumes it. Whatever the module does inside
// its Close entry point, the call is reported as successful; the only errors
// are host-side misuse (a closed or foreign session).
func (l *Library) Close(s *Session) error {
	if s == nil {
		return &errors.SessionClosedError{Operation: SymbolClose}
	}
	if s.img != l.img {
		return errors.ErrForeignSession
	}
	if !s.markClosed() {
		return &errors.SessionClosedError{Operation: SymbolClose}
	}

	start := time.Now()
	l.syms.close(s.handle)
	l.metrics.observeCall(SymbolClose, true, start)
	l.metrics.sessionClosed()
	l.logger.Debug("module session closed", "path", l.img.path, "client", s.client)

	if err := s.img.release(); err != nil {
		l.logger.Warn("failed to unload module after last session closed", "path", l.img.path, "error", err)
	}
	return nil
}

// useSession rejects nil, closed and foreign sessions and marks the
// session active.
func (l *Library) useSession(s *Session, op string) error {
	if s == nil {
		return &errors.SessionClosedError{Operation: op}
	}
	if s.img != l.img {
		return errors.ErrForeignSession
	}
	if !s.activate() {
		return &errors.SessionClosedError{Operation: op}
	}
	return nil
}
