// Package testutil provides common test utilities and assertions for bridge tests
package testutil

import (
	"encoding/json"
	"testing"

	"github.com/reglet-dev/reglet-native/domain/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// AssertJSONEqual compares two JSON strings for equality, ignoring formatting
func AssertJSONEqual(t *testing.T, expected, actual string, msgAndArgs ...interface{}) {
	t.Helper()

	var expectedJSON, actualJSON interface{}
	require.NoError(t, json.Unmarshal([]byte(expected), &expectedJSON), "expected JSON is invalid")
	require.NoError(t, json.Unmarshal([]byte(actual), &actualJSON), "actual JSON is invalid")

	assert.Equal(t, expectedJSON, actualJSON, msgAndArgs...)
}

// AssertErrorType asserts that err carries a structured detail of the given type,
// e.g. "path", "symbol" or "module".
func AssertErrorType(t *testing.T, err error, errorType string, msgAndArgs ...interface{}) {
	t.Helper()
	require.Error(t, err, msgAndArgs...)

	detail := errors.ToErrorDetail(err)
	require.NotNil(t, detail)
	assert.Equal(t, errorType, detail.Type, msgAndArgs...)
}

// AssertErrorCode asserts the structured detail code of err, typically the
// failing entry point or symbol name.
func AssertErrorCode(t *testing.T, err error, code string, msgAndArgs ...interface{}) {
	t.Helper()
	require.Error(t, err, msgAndArgs...)
	assert.Equal(t, code, errors.ToErrorDetail(err).Code, msgAndArgs...)
}
