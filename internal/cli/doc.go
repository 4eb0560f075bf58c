// Package cli implements the reglet-native command line: a thin shell over
// package host for inspecting and driving native modules by hand.
package cli
