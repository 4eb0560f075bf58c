//go:build unix

package abi

import "golang.org/x/sys/unix"

func byteSliceFromString(s string) ([]byte, error) {
	return unix.ByteSliceFromString(s)
}
