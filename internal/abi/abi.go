// Package abi converts values across the native-call boundary: host strings
// into NUL-terminated buffers for outgoing calls, and (pointer, length)
// out-buffers written by foreign code into owned Go values.
package abi

import (
	"unicode/utf8"
	"unsafe"

	"github.com/reglet-dev/reglet-native/domain/errors"
	"golang.org/x/text/encoding/unicode"
)

// CString converts s into a NUL-terminated byte buffer suitable for passing
// as a const char* argument. field names the argument in the returned
// *errors.EncodingError when s contains an embedded NUL byte.
//
// The buffer is Go memory: it stays valid for the duration of the call it is
// passed to and must not be retained by the module.
func CString(field, s string) ([]byte, error) {
	buf, err := byteSliceFromString(s)
	if err != nil {
		return nil, &errors.EncodingError{Field: field, Err: err}
	}
	return buf, nil
}

// BytesFromPtr copies length bytes starting at ptr into a new Go slice.
// A nil pointer or a non-positive length yields nil. The source memory is
// borrowed: it is read once and never written, retained or freed here.
func BytesFromPtr(ptr *byte, length int32) []byte {
	if ptr == nil || length <= 0 {
		return nil
	}
	//nolint:gosec // G103: reading a foreign out-buffer requires unsafe.Slice
	src := unsafe.Slice(ptr, int(length))
	data := make([]byte, length)
	copy(data, src)
	return data
}

// DecodeLossy decodes data as UTF-8, replacing every invalid byte with
// U+FFFD instead of failing.
func DecodeLossy(data []byte) string {
	if utf8.Valid(data) {
		return string(data)
	}
	out, err := unicode.UTF8.NewDecoder().Bytes(data)
	if err != nil {
		return string([]rune(string(data)))
	}
	return string(out)
}

// ReadText copies an out-buffer and decodes it with DecodeLossy.
func ReadText(ptr *byte, length int32) string {
	return DecodeLossy(BytesFromPtr(ptr, length))
}
