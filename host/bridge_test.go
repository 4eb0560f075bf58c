package host_test

import (
	"errors"
	"sync"
	"testing"

	"github.com/reglet-dev/reglet-native/domain/entities"
	domainerrors "github.com/reglet-dev/reglet-native/domain/errors"
	"github.com/reglet-dev/reglet-native/host"
	"github.com/reglet-dev/reglet-native/host/moduletest"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/stretchr/testify/suite"
)

type spyDecoder struct {
	calls int
	info  entities.ModuleInfo
}

func (d *spyDecoder) Decode(string) (entities.ModuleInfo, error) {
	d.calls++
	return d.info, nil
}

// BridgeSuite exercises Info/Open/Set/Get/Close through a loaded Library.
type BridgeSuite struct {
	suite.Suite
	mod *moduletest.Module
	lib *host.Library
}

func (s *BridgeSuite) SetupTest() {
	s.mod = moduletest.New(testInfo())
}

func (s *BridgeSuite) load(opts ...host.LoaderOption) *host.Library {
	lib, err := host.Load(modulePath(s.T().TempDir()), append(s.mod.Options(), opts...)...)
	s.Require().NoError(err)
	s.lib = lib
	return lib
}

func (s *BridgeSuite) TearDownTest() {
	if s.lib != nil {
		s.NoError(s.lib.Release())
		s.lib = nil
	}
}

func (s *BridgeSuite) TestInfoRoundTrip() {
	var gotClient string
	s.mod.InfoFunc = func(client string) (int32, []byte) {
		gotClient = client
		return 0, []byte(`{"Name":"Foo","Description":"Bar","Manufacturer":"Baz","Components":["a","b"]}`)
	}
	lib := s.load()

	info, err := lib.Info("host-app")
	s.Require().NoError(err)
	s.Equal("host-app", gotClient)
	s.Equal(entities.ModuleInfo{
		Name:         "Foo",
		Description:  "Bar",
		Manufacturer: "Baz",
		Components:   []string{"a", "b"},
	}, info)
}

func (s *BridgeSuite) TestInfoDefaultModule() {
	info, err := s.load().Info("host-app")
	s.Require().NoError(err)
	s.Equal(testInfo(), info)
}

func (s *BridgeSuite) TestInfoNonZeroStatusSkipsDecoding() {
	for _, status := range []int32{1, -1, 42} {
		s.mod.InfoFunc = func(string) (int32, []byte) {
			return status, []byte(`{"Name":"Foo","Description":"","Manufacturer":"","Components":[]}`)
		}
		decoder := &spyDecoder{}
		lib, err := host.Load(modulePath(s.T().TempDir()), append(s.mod.Options(), host.WithInfoDecoder(decoder))...)
		s.Require().NoError(err)

		_, err = lib.Info("host")
		var callErr *domainerrors.ModuleCallError
		s.Require().True(errors.As(err, &callErr))
		s.Equal("Info", callErr.Operation)
		s.Equal(entities.Status(status), callErr.Status)
		s.Zero(decoder.calls, "no parse may be attempted on a failed Info")

		s.NoError(lib.Release())
	}
}

func (s *BridgeSuite) TestInfoSchemaError() {
	payloads := []string{"", "not json", `{"Name":"Foo"}`, `{"name":"Foo","description":"","manufacturer":"","components":[]}`}
	for _, payload := range payloads {
		s.mod.InfoFunc = func(string) (int32, []byte) { return 0, []byte(payload) }
		lib := s.load()

		_, err := lib.Info("host")
		var schemaErr *domainerrors.SchemaError
		s.True(errors.As(err, &schemaErr), "payload %q: got %v", payload, err)

		s.NoError(lib.Release())
		s.lib = nil
	}
}

func (s *BridgeSuite) TestInfoLossyDecode() {
	s.mod.InfoFunc = func(string) (int32, []byte) {
		return 0, []byte("{\"Name\":\"Fo\xffo\",\"Description\":\"\",\"Manufacturer\":\"\",\"Components\":[]}")
	}

	info, err := s.load().Info("host")
	s.Require().NoError(err)
	s.Equal("Fo�o", info.Name)
}

func (s *BridgeSuite) TestInfoEncodingError() {
	called := false
	s.mod.InfoFunc = func(string) (int32, []byte) {
		called = true
		return 0, nil
	}

	_, err := s.load().Info("bad\x00client")
	var encErr *domainerrors.EncodingError
	s.Require().True(errors.As(err, &encErr))
	s.Equal("client", encErr.Field)
	s.False(called)
}

func (s *BridgeSuite) TestOpenNullHandle() {
	s.mod.OpenFunc = func(string, uint32) uintptr { return 0 }

	session, err := s.load().Open("host", 4096)
	s.Nil(session)

	var openErr *domainerrors.OpenError
	s.Require().True(errors.As(err, &openErr))
	s.Equal("host", openErr.Client)
	s.Equal(uint32(4096), openErr.MaxPayloadSize)
}

func (s *BridgeSuite) TestOpenPassesArguments() {
	var gotClient string
	var gotMax uint32
	s.mod.OpenFunc = func(client string, maxPayloadSize uint32) uintptr {
		gotClient, gotMax = client, maxPayloadSize
		return 0xbeef
	}
	s.mod.CloseFunc = func(uintptr) {}
	lib := s.load()

	session, err := lib.Open("host", 512)
	s.Require().NoError(err)
	s.Equal("host", gotClient)
	s.Equal(uint32(512), gotMax)
	s.Equal("host", session.Client())
	s.Equal(host.SessionCreated, session.State())
	s.NoError(lib.Close(session))
}

func (s *BridgeSuite) TestSetGetRoundTrip() {
	lib := s.load()
	session, err := lib.Open("host", 0)
	s.Require().NoError(err)

	payload := `{"celsius":21.5}`
	status, err := lib.Set(session, "sensor", "temperature", payload, len(payload))
	s.Require().NoError(err)
	s.Equal(entities.StatusOK, status)
	s.Equal(host.SessionActive, session.State())

	status, got, err := lib.Get(session, "sensor", "temperature")
	s.Require().NoError(err)
	s.Equal(entities.StatusOK, status)
	s.Equal(payload, got)

	s.NoError(lib.Close(session))
}

func (s *BridgeSuite) TestSetReturnsRawStatus() {
	lib := s.load()
	session, err := lib.Open("host", 4)
	s.Require().NoError(err)
	defer lib.Close(session)

	status, err := lib.Set(session, "sensor", "t", "too large", 9)
	s.NoError(err, "a non-zero Set status is data, not an error")
	s.Equal(entities.Status(moduletest.StatusTooLarge), status)

	status, err = lib.Set(session, "unknown", "t", "x", 1)
	s.NoError(err)
	s.Equal(entities.Status(moduletest.StatusUnknownTarget), status)

	var callErr *domainerrors.ModuleCallError
	s.True(errors.As(domainerrors.CheckStatus(host.SymbolSet, status), &callErr))
}

func (s *BridgeSuite) TestSetPassesExplicitSize() {
	var got []byte
	s.mod.SetFunc = func(_ uintptr, _, _ string, payload []byte) int32 {
		got = payload
		return 0
	}
	lib := s.load()
	session, err := lib.Open("host", 0)
	s.Require().NoError(err)
	defer lib.Close(session)

	_, err = lib.Set(session, "sensor", "t", "hello", 3)
	s.Require().NoError(err)
	s.Equal([]byte("hel"), got)

	_, err = lib.Set(session, "sensor", "t", "hello", 0)
	s.Require().NoError(err)
	s.Empty(got)
}

func (s *BridgeSuite) TestSetRejectsOutOfRangeSize() {
	called := false
	s.mod.SetFunc = func(uintptr, string, string, []byte) int32 {
		called = true
		return 0
	}
	lib := s.load()
	session, err := lib.Open("host", 0)
	s.Require().NoError(err)
	defer lib.Close(session)

	for _, size := range []int{-1, 7} {
		_, err := lib.Set(session, "sensor", "t", "hello", size)
		var sizeErr *domainerrors.PayloadSizeError
		s.True(errors.As(err, &sizeErr), "size %d", size)
	}
	s.False(called)
}

func (s *BridgeSuite) TestSetEncodingErrors() {
	lib := s.load()
	session, err := lib.Open("host", 0)
	s.Require().NoError(err)
	defer lib.Close(session)

	cases := map[string][3]string{
		"component": {"a\x00", "o", "p"},
		"object":    {"c", "o\x00", "p"},
		"payload":   {"c", "o", "p\x00q"},
	}
	for field, args := range cases {
		_, err := lib.Set(session, args[0], args[1], args[2], 1)
		var encErr *domainerrors.EncodingError
		s.Require().True(errors.As(err, &encErr), field)
		s.Equal(field, encErr.Field)
	}
}

func (s *BridgeSuite) TestGetReturnsStatusAndPayloadUnconditionally() {
	cases := []struct {
		status  int32
		payload []byte
		want    string
	}{
		{status: 0, payload: []byte(`{"v":1}`), want: `{"v":1}`},
		{status: 5, payload: []byte("module error text"), want: "module error text"},
		{status: 7, payload: nil, want: ""},
		{status: -1, payload: []byte{'o', 0xff, 'k'}, want: "o�k"},
	}

	for _, tc := range cases {
		s.mod.GetFunc = func(uintptr, string, string) (int32, []byte) {
			return tc.status, tc.payload
		}
		lib := s.load()
		session, err := lib.Open("host", 0)
		s.Require().NoError(err)

		status, payload, err := lib.Get(session, "sensor", "t")
		s.NoError(err)
		s.Equal(entities.Status(tc.status), status)
		s.Equal(tc.want, payload)

		s.NoError(lib.Close(session))
		s.NoError(lib.Release())
		s.lib = nil
	}
}

func (s *BridgeSuite) TestGetMissingObject() {
	lib := s.load()
	session, err := lib.Open("host", 0)
	s.Require().NoError(err)
	defer lib.Close(session)

	status, payload, err := lib.Get(session, "sensor", "nothing")
	s.NoError(err)
	s.Equal(entities.Status(moduletest.StatusNotFound), status)
	s.Empty(payload)
}

func (s *BridgeSuite) TestCloseNeverReportsModuleFailure() {
	s.mod.CloseFunc = func(uintptr) {}
	lib := s.load()

	session, err := lib.Open("host", 0)
	s.Require().NoError(err)
	s.NoError(lib.Close(session))
	s.Equal(host.SessionClosed, session.State())
	s.Equal(1, s.mod.Closes())
}

func (s *BridgeSuite) TestClosedSessionIsRejected() {
	lib := s.load()
	session, err := lib.Open("host", 0)
	s.Require().NoError(err)
	s.Require().NoError(lib.Close(session))

	var closedErr *domainerrors.SessionClosedError

	_, err = lib.Set(session, "sensor", "t", "x", 1)
	s.Require().True(errors.As(err, &closedErr))
	s.Equal("Set", closedErr.Operation)

	_, _, err = lib.Get(session, "sensor", "t")
	s.Require().True(errors.As(err, &closedErr))
	s.Equal("Get", closedErr.Operation)

	err = lib.Close(session)
	s.Require().True(errors.As(err, &closedErr))
	s.Equal("Close", closedErr.Operation)

	s.Equal(1, s.mod.Closes(), "the module sees exactly one Close")
	s.Zero(s.mod.OpenSessions())
}

func (s *BridgeSuite) TestNilSession() {
	lib := s.load()
	var closedErr *domainerrors.SessionClosedError

	_, err := lib.Set(nil, "sensor", "t", "x", 1)
	s.True(errors.As(err, &closedErr))
	s.True(errors.As(lib.Close(nil), &closedErr))
}

func (s *BridgeSuite) TestForeignSession() {
	lib := s.load()

	other := moduletest.New(testInfo())
	otherLib, err := host.Load(modulePath(s.T().TempDir()), other.Options()...)
	s.Require().NoError(err)
	defer otherLib.Release()

	session, err := otherLib.Open("host", 0)
	s.Require().NoError(err)
	defer otherLib.Close(session)

	_, _, err = lib.Get(session, "sensor", "t")
	s.ErrorIs(err, domainerrors.ErrForeignSession)
	s.ErrorIs(lib.Close(session), domainerrors.ErrForeignSession)
}

func (s *BridgeSuite) TestHostFreeOwnershipReleasesBuffers() {
	s.mod.FreeSymbol = "FreeBuffer"
	lib := s.load(host.WithBufferOwnership(entities.OwnershipHostFree, "FreeBuffer"))

	session, err := lib.Open("host", 0)
	s.Require().NoError(err)
	defer lib.Close(session)

	_, err = lib.Set(session, "sensor", "t", "v", 1)
	s.Require().NoError(err)
	_, payload, err := lib.Get(session, "sensor", "t")
	s.Require().NoError(err)
	s.Equal("v", payload)

	s.Equal(1, s.mod.Frees())
	s.Zero(s.mod.PinnedBuffers())
}

func (s *BridgeSuite) TestModuleOwnershipNeverFrees() {
	lib := s.load()

	_, err := lib.Info("host")
	s.Require().NoError(err)

	s.Zero(s.mod.Frees())
	s.Equal(1, s.mod.PinnedBuffers())
}

func TestBridgeSuite(t *testing.T) {
	suite.Run(t, new(BridgeSuite))
}

func TestSessionMovesBetweenGoroutines(t *testing.T) {
	mod := moduletest.New(testInfo())
	lib, err := host.Load(modulePath(t.TempDir()), mod.Options()...)
	require.NoError(t, err)
	defer lib.Release()

	sessions := make(chan *host.Session)
	go func() {
		session, err := lib.Open("producer", 0)
		assert.NoError(t, err)
		sessions <- session
	}()

	session := <-sessions
	status, err := lib.Set(session, "relay", "state", "on", 2)
	require.NoError(t, err)
	assert.Equal(t, entities.StatusOK, status)
	require.NoError(t, lib.Close(session))
}

func TestConcurrentInfoOnClones(t *testing.T) {
	mod := moduletest.New(testInfo())
	lib, err := host.Load(modulePath(t.TempDir()), mod.Options()...)
	require.NoError(t, err)

	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		clone := lib.Clone()
		wg.Add(1)
		go func() {
			defer wg.Done()
			defer clone.Release()
			info, err := clone.Info("worker")
			assert.NoError(t, err)
			assert.Equal(t, "thermo", info.Name)
		}()
	}
	wg.Wait()

	require.NoError(t, lib.Release())
	assert.Equal(t, 1, mod.Unloads())
}
