//go:build windows

package abi

import "golang.org/x/sys/windows"

func byteSliceFromString(s string) ([]byte, error) {
	return windows.ByteSliceFromString(s)
}
