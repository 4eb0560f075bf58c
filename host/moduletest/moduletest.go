// Package moduletest provides an in-process native module for testing code
// built on package host without a compiled shared library.
//
// A Module implements ports.DynamicLoader and a binder: Options wires both
// into host.Load, which then binds Go functions with the exact C signatures
// of the five entry points. Strings cross the boundary as NUL-terminated
// buffers and out-buffers as (pointer, length) pairs, as with a real module.
//
// The default behaviour is a small key-value store: Set stores a payload
// under (component, object), Get returns it. Hooks override any entry point.
package moduletest

import (
	"encoding/json"
	"fmt"
	"reflect"
	"sync"
	"sync/atomic"
	"unsafe"

	"github.com/reglet-dev/reglet-native/domain/entities"
	"github.com/reglet-dev/reglet-native/host"
)

// Statuses returned by the default key-value behaviour.
const (
	StatusNotFound      int32 = 1
	StatusTooLarge      int32 = 2
	StatusUnknownHandle int32 = 3
	StatusUnknownTarget int32 = 4
)

// Module is a fake native module. Configure it before loading; the hooks
// and the declarative fields must not be changed while it is in use.
type Module struct {
	// Description is returned (JSON-encoded) by the default Info.
	Description entities.ModuleInfo

	// FreeSymbol, when set, is exported as the buffer release entry point.
	FreeSymbol string

	// Missing lists exported names Lookup reports as undefined.
	Missing []string

	// BadSignature lists exported names bound with an incompatible signature.
	BadSignature []string

	// OpenErr, when set, makes the dynamic-loader Open fail.
	OpenErr error

	// Hooks replacing the default behaviour of each entry point.
	InfoFunc  func(client string) (int32, []byte)
	OpenFunc  func(client string, maxPayloadSize uint32) uintptr
	CloseFunc func(handle uintptr)
	SetFunc   func(handle uintptr, component, object string, payload []byte) int32
	GetFunc   func(handle uintptr, component, object string) (int32, []byte)

	mu         sync.Mutex
	sessions   map[uintptr]uint32 // handle -> max payload size
	store      map[string][]byte
	pinned     map[*byte][]byte // out-buffers handed to the host
	nextHandle uintptr

	loads   atomic.Int32
	unloads atomic.Int32
	frees   atomic.Int32
	closes  atomic.Int32
	lookups []string
}

// New returns a Module describing itself with info.
func New(info entities.ModuleInfo) *Module {
	return &Module{Description: info}
}

// Options returns the loader options that route host.Load to m.
func (m *Module) Options() []host.LoaderOption {
	return []host.LoaderOption{
		host.WithDynamicLoader(m),
		host.WithBinder(m.Bind),
	}
}

// Open implements ports.DynamicLoader.
func (m *Module) Open(path string) (uintptr, error) {
	if m.OpenErr != nil {
		return 0, m.OpenErr
	}
	m.loads.Add(1)
	return 0x1000, nil
}

// Lookup implements ports.DynamicLoader. Addresses are 1-based indexes into
// the exported symbol list.
func (m *Module) Lookup(_ uintptr, name string) (uintptr, error) {
	m.mu.Lock()
	m.lookups = append(m.lookups, name)
	m.mu.Unlock()

	for _, missing := range m.Missing {
		if missing == name {
			return 0, fmt.Errorf("undefined symbol: %s", name)
		}
	}
	for i, exported := range m.exports() {
		if exported == name {
			return uintptr(i + 1), nil
		}
	}
	return 0, fmt.Errorf("undefined symbol: %s", name)
}

// Close implements ports.DynamicLoader.
func (m *Module) Close(_ uintptr) error {
	m.unloads.Add(1)
	return nil
}

// Bind installs the Go implementation of the symbol at addr into fptr.
// Like purego.RegisterFunc, it panics when the signatures do not match.
func (m *Module) Bind(fptr any, addr uintptr) {
	exports := m.exports()
	if addr == 0 || int(addr) > len(exports) {
		panic(fmt.Sprintf("moduletest: no symbol at address %d", addr))
	}
	name := exports[addr-1]

	var fn any
	for _, bad := range m.BadSignature {
		if bad == name {
			fn = func() {}
		}
	}
	if fn == nil {
		fn = m.symbol(name)
	}
	reflect.ValueOf(fptr).Elem().Set(reflect.ValueOf(fn))
}

// Loads returns how many times the image was mapped.
func (m *Module) Loads() int { return int(m.loads.Load()) }

// Unloads returns how many times the image was unmapped.
func (m *Module) Unloads() int { return int(m.unloads.Load()) }

// Closes returns how many times the Close entry point was called.
func (m *Module) Closes() int { return int(m.closes.Load()) }

// Frees returns how many buffers were handed back through FreeSymbol.
func (m *Module) Frees() int { return int(m.frees.Load()) }

// Lookups returns the symbol names looked up so far, in order.
func (m *Module) Lookups() []string {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]string(nil), m.lookups...)
}

// OpenSessions returns the number of handles opened and not yet closed.
func (m *Module) OpenSessions() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.sessions)
}

// PinnedBuffers returns the number of out-buffers the host has not freed.
func (m *Module) PinnedBuffers() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.pinned)
}

func (m *Module) exports() []string {
	names := append([]string(nil), host.RequiredSymbols...)
	if m.FreeSymbol != "" {
		names = append(names, m.FreeSymbol)
	}
	return names
}

func (m *Module) symbol(name string) any {
	switch name {
	case host.SymbolInfo:
		return m.cInfo
	case host.SymbolOpen:
		return m.cOpen
	case host.SymbolClose:
		return m.cClose
	case host.SymbolSet:
		return m.cSet
	case host.SymbolGet:
		return m.cGet
	case m.FreeSymbol:
		return m.cFree
	}
	panic("moduletest: unknown symbol " + name)
}

func (m *Module) cInfo(client *byte, outPayload **byte, outSize *int32) int32 {
	status, payload := m.info(goString(client))
	m.writeOut(payload, outPayload, outSize)
	return status
}

func (m *Module) cOpen(client *byte, maxPayloadSize uint32) uintptr {
	if m.OpenFunc != nil {
		return m.OpenFunc(goString(client), maxPayloadSize)
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.sessions == nil {
		m.sessions = make(map[uintptr]uint32)
	}
	m.nextHandle++
	h := m.nextHandle
	m.sessions[h] = maxPayloadSize
	return h
}

func (m *Module) cClose(handle uintptr) {
	m.closes.Add(1)
	if m.CloseFunc != nil {
		m.CloseFunc(handle)
		return
	}
	m.mu.Lock()
	delete(m.sessions, handle)
	m.mu.Unlock()
}

func (m *Module) cSet(handle uintptr, component, object, payload *byte, size int32) int32 {
	var data []byte
	if size > 0 {
		data = append([]byte(nil), unsafe.Slice(payload, int(size))...)
	}
	if m.SetFunc != nil {
		return m.SetFunc(handle, goString(component), goString(object), data)
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	limit, ok := m.sessions[handle]
	if !ok {
		return StatusUnknownHandle
	}
	comp := goString(component)
	if len(m.Description.Components) > 0 && !m.Description.HasComponent(comp) {
		return StatusUnknownTarget
	}
	if limit > 0 && uint32(len(data)) > limit {
		return StatusTooLarge
	}
	if m.store == nil {
		m.store = make(map[string][]byte)
	}
	m.store[key(comp, goString(object))] = data
	return 0
}

func (m *Module) cGet(handle uintptr, component, object *byte, outPayload **byte, outSize *int32) int32 {
	status, payload := m.get(handle, goString(component), goString(object))
	m.writeOut(payload, outPayload, outSize)
	return status
}

func (m *Module) cFree(payload *byte, _ int32) {
	m.frees.Add(1)
	m.mu.Lock()
	delete(m.pinned, payload)
	m.mu.Unlock()
}

func (m *Module) info(client string) (int32, []byte) {
	if m.InfoFunc != nil {
		return m.InfoFunc(client)
	}
	payload, err := json.Marshal(m.Description)
	if err != nil {
		return -1, nil
	}
	return 0, payload
}

func (m *Module) get(handle uintptr, component, object string) (int32, []byte) {
	if m.GetFunc != nil {
		return m.GetFunc(handle, component, object)
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.sessions[handle]; !ok {
		return StatusUnknownHandle, nil
	}
	data, ok := m.store[key(component, object)]
	if !ok {
		return StatusNotFound, nil
	}
	return 0, data
}

// writeOut pins a copy of payload and publishes it through the out-params.
func (m *Module) writeOut(payload []byte, outPayload **byte, outSize *int32) {
	if len(payload) == 0 {
		return
	}
	buf := append([]byte(nil), payload...)
	m.mu.Lock()
	if m.pinned == nil {
		m.pinned = make(map[*byte][]byte)
	}
	m.pinned[&buf[0]] = buf
	m.mu.Unlock()

	*outPayload = &buf[0]
	*outSize = int32(len(buf))
}

func key(component, object string) string {
	return component + "\x00" + object
}

// goString reads a NUL-terminated string.
func goString(p *byte) string {
	if p == nil {
		return ""
	}
	n := 0
	for *(*byte)(unsafe.Add(unsafe.Pointer(p), n)) != 0 {
		n++
	}
	return string(unsafe.Slice(p, n))
}
