//go:build (darwin || freebsd || linux) && !android

package host_test

import (
	"errors"
	"os"
	"os/exec"
	"path/filepath"
	"testing"

	"github.com/reglet-dev/reglet-native/domain/entities"
	domainerrors "github.com/reglet-dev/reglet-native/domain/errors"
	"github.com/reglet-dev/reglet-native/host"
	"github.com/reglet-dev/reglet-native/infrastructure/dl"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// fixtureSource is a minimal module in C. Info fails for client "fail",
// Open returns NULL for client "reject", and Get of object "missing"
// returns status 3 with a non-empty payload.
const fixtureSource = `
#include <stdlib.h>
#include <string.h>

static const char info[] =
    "{\"Name\":\"Foo\",\"Description\":\"Bar\",\"Manufacturer\":\"Baz\",\"Components\":[\"a\",\"b\"]}";
static const char missing[] = "{\"v\":1}";

struct session {
    char buf[256];
    int len;
};

int Info(const char* client, char** out, int* size) {
    if (strcmp(client, "fail") == 0) return 7;
    *out = (char*)info;
    *size = (int)(sizeof(info) - 1);
    return 0;
}

void* Open(const char* client, unsigned int max_payload_size) {
    (void)max_payload_size;
    if (strcmp(client, "reject") == 0) return NULL;
    return calloc(1, sizeof(struct session));
}

void Close(void* handle) {
    free(handle);
}

int Set(void* handle, const char* component, const char* object, const char* payload, int size) {
    struct session* s = handle;
    (void)component; (void)object;
    if (size < 0 || size > (int)sizeof(s->buf)) return 2;
    memcpy(s->buf, payload, (size_t)size);
    s->len = size;
    return 0;
}

#ifndef OMIT_GET
int Get(void* handle, const char* component, const char* object, char** out, int* size) {
    struct session* s = handle;
    (void)component;
    if (strcmp(object, "missing") == 0) {
        *out = (char*)missing;
        *size = (int)(sizeof(missing) - 1);
        return 3;
    }
    *out = s->buf;
    *size = s->len;
    return 0;
}
#endif
`

// buildFixture compiles fixtureSource into a shared library in a temporary
// directory. It skips the test when no C compiler is installed.
func buildFixture(t *testing.T, defines ...string) string {
	t.Helper()

	cc := os.Getenv("CC")
	if cc == "" {
		for _, candidate := range []string{"cc", "gcc", "clang"} {
			if _, err := exec.LookPath(candidate); err == nil {
				cc = candidate
				break
			}
		}
	}
	if cc == "" {
		t.Skip("no C compiler available")
	}

	dir := t.TempDir()
	src := filepath.Join(dir, "fixture.c")
	require.NoError(t, os.WriteFile(src, []byte(fixtureSource), 0o600))

	out := filepath.Join(dir, "fixture"+dl.PlatformSuffix)
	args := []string{"-shared", "-fPIC", "-o", out, src}
	for _, d := range defines {
		args = append(args, "-D"+d)
	}
	cmd := exec.Command(cc, args...)
	output, err := cmd.CombinedOutput()
	require.NoError(t, err, "compile fixture: %s", output)
	return out
}

func TestNativeModule_AllOperations(t *testing.T) {
	lib, err := host.Load(buildFixture(t))
	require.NoError(t, err)
	defer func() { assert.NoError(t, lib.Release()) }()

	info, err := lib.Info("host")
	require.NoError(t, err)
	assert.Equal(t, entities.ModuleInfo{
		Name:         "Foo",
		Description:  "Bar",
		Manufacturer: "Baz",
		Components:   []string{"a", "b"},
	}, info)

	_, err = lib.Info("fail")
	var callErr *domainerrors.ModuleCallError
	require.True(t, errors.As(err, &callErr))
	assert.Equal(t, entities.Status(7), callErr.Status)

	_, err = lib.Open("reject", 0)
	var openErr *domainerrors.OpenError
	require.True(t, errors.As(err, &openErr))

	session, err := lib.Open("host", 256)
	require.NoError(t, err)

	status, err := lib.Set(session, "a", "value", "hello world", 5)
	require.NoError(t, err)
	assert.Equal(t, entities.StatusOK, status)

	status, payload, err := lib.Get(session, "a", "value")
	require.NoError(t, err)
	assert.Equal(t, entities.StatusOK, status)
	assert.Equal(t, "hello", payload)

	status, payload, err = lib.Get(session, "a", "missing")
	require.NoError(t, err)
	assert.Equal(t, entities.Status(3), status)
	assert.Equal(t, `{"v":1}`, payload)

	require.NoError(t, lib.Close(session))
	assert.Equal(t, host.SessionClosed, session.State())
}

func TestNativeModule_MissingSymbol(t *testing.T) {
	lib, err := host.Load(buildFixture(t, "OMIT_GET"))
	assert.Nil(t, lib)

	var symErr *domainerrors.SymbolResolutionError
	require.True(t, errors.As(err, &symErr))
	assert.Equal(t, host.SymbolGet, symErr.Symbol)
}
