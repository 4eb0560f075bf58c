package host

import (
	stdErrors "errors"
	"fmt"

	"github.com/reglet-dev/reglet-native/domain/errors"
	"github.com/reglet-dev/reglet-native/domain/ports"
)

// Exported entry points every module must provide.
const (
	SymbolInfo  = "Info"
	SymbolOpen  = "Open"
	SymbolClose = "Close"
	SymbolSet   = "Set"
	SymbolGet   = "Get"
)

// RequiredSymbols lists the entry points resolved at load time, in resolution order.
var RequiredSymbols = []string{SymbolInfo, SymbolOpen, SymbolClose, SymbolSet, SymbolGet}

// Go signatures of the C entry points. Strings travel as NUL-terminated
// byte buffers, out-buffers as (char**, int*) pairs and handles as uintptr.
type (
	// int Info(const char* client, char** out_payload, int* out_size)
	infoFunc func(client *byte, outPayload **byte, outSize *int32) int32

	// void* Open(const char* client, uint32_t max_payload_size)
	openFunc func(client *byte, maxPayloadSize uint32) uintptr

	// void Close(void* handle)
	closeFunc func(handle uintptr)

	// int Set(void* handle, const char* component, const char* object, const char* payload, int size)
	setFunc func(handle uintptr, component, object, payload *byte, size int32) int32

	// int Get(void* handle, const char* component, const char* object, char** out_payload, int* out_size)
	getFunc func(handle uintptr, component, object *byte, outPayload **byte, outSize *int32) int32

	// void <free>(char* payload, int size)
	freeFunc func(payload *byte, size int32)
)

// symbolTable is the capability table of one loaded image. It is built
// completely by resolveSymbols or not at all.
type symbolTable struct {
	info  infoFunc
	open  openFunc
	close closeFunc
	set   setFunc
	get   getFunc
	free  freeFunc // nil unless out-buffers are host-freed
}

type binding struct {
	name string
	fptr any
}

// binder installs a foreign function at addr into the function pointer fptr.
type binder func(fptr any, addr uintptr)

var errNullSymbol = stdErrors.New("symbol resolved to a null address")

// resolveSymbols looks up and binds every required entry point, plus
// freeSymbol when it is non-empty. The first failure aborts resolution and
// is returned as *errors.SymbolResolutionError; no partial table escapes.
func resolveSymbols(loader ports.DynamicLoader, bind binder, handle uintptr, path, freeSymbol string) (*symbolTable, error) {
	var t symbolTable

	targets := []binding{
		{SymbolInfo, &t.info},
		{SymbolOpen, &t.open},
		{SymbolClose, &t.close},
		{SymbolSet, &t.set},
		{SymbolGet, &t.get},
	}
	if freeSymbol != "" {
		targets = append(targets, binding{freeSymbol, &t.free})
	}

	for _, target := range targets {
		addr, err := loader.Lookup(handle, target.name)
		if err != nil {
			return nil, &errors.SymbolResolutionError{Symbol: target.name, Path: path, Err: err}
		}
		if addr == 0 {
			return nil, &errors.SymbolResolutionError{Symbol: target.name, Path: path, Err: errNullSymbol}
		}
		if err := safeBind(bind, target.fptr, addr); err != nil {
			return nil, &errors.SymbolResolutionError{Symbol: target.name, Path: path, Err: err}
		}
	}

	return &t, nil
}

// safeBind converts a binding panic (unsupported signature) into an error.
func safeBind(bind binder, fptr any, addr uintptr) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("cannot bind signature: %v", r)
		}
	}()
	bind(fptr, addr)
	return nil
}
