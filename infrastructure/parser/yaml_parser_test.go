package parser

import (
	"testing"

	"github.com/reglet-dev/reglet-native/domain/entities"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestYamlManifestParser_Parse(t *testing.T) {
	p := NewYamlManifestParser()

	t.Run("host-free with symbol", func(t *testing.T) {
		m, err := p.Parse([]byte(`
name: "thermo"
ownership: host-free
free_symbol: FreeBuffer
max_payload_size: 65536
`))
		require.NoError(t, err)
		assert.Equal(t, "thermo", m.Name)
		assert.Equal(t, entities.OwnershipHostFree, m.Ownership)
		assert.Equal(t, "FreeBuffer", m.FreeSymbol)
		assert.Equal(t, uint32(65536), m.MaxPayloadSize)
	})

	t.Run("ownership left undeclared", func(t *testing.T) {
		m, err := p.Parse([]byte(`max_payload_size: 64`))
		require.NoError(t, err)
		assert.Empty(t, m.Ownership)
		assert.Empty(t, m.FreeSymbol)
		assert.Equal(t, uint32(64), m.MaxPayloadSize)
	})

	t.Run("explicit module ownership", func(t *testing.T) {
		m, err := p.Parse([]byte(`ownership: module`))
		require.NoError(t, err)
		assert.Equal(t, entities.OwnershipModule, m.Ownership)
	})

	t.Run("host-free without symbol", func(t *testing.T) {
		_, err := p.Parse([]byte(`ownership: host-free`))
		require.Error(t, err)
		assert.Contains(t, err.Error(), "invalid module manifest")
	})

	t.Run("unknown ownership", func(t *testing.T) {
		_, err := p.Parse([]byte(`ownership: leak`))
		require.Error(t, err)
	})

	t.Run("invalid yaml", func(t *testing.T) {
		_, err := p.Parse([]byte("ownership: [unterminated"))
		require.Error(t, err)
	})
}
