package detect

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestProbe_WasmMagic(t *testing.T) {
	data := append([]byte{0x00, 0x61, 0x73, 0x6d, 0x01, 0x00, 0x00, 0x00}, "garbage"...)
	require.Equal(t, KindWasm, Probe(data, "module"))
}

func TestProbe_ContainerMagic(t *testing.T) {
	data := []byte(`{"manifest": {}}`)
	require.Equal(t, KindContainer, Probe(data, "package"))
}

func TestProbe_ContainerMagicSkipsLeadingWhitespace(t *testing.T) {
	data := []byte("  \n\t{\"manifest\": {}}")
	require.Equal(t, KindContainer, Probe(data, "package"))
}

func TestProbe_ExtensionFallback(t *testing.T) {
	require.Equal(t, KindWasm, Probe(nil, "module.wasm"))
	require.Equal(t, KindWasm, Probe(nil, "module.wat"))
	require.Equal(t, KindContainer, Probe(nil, "package.webc"))
	require.Equal(t, KindArtifact, Probe(nil, "module.wasmu"))
	require.Equal(t, KindUnknown, Probe(nil, "module.bin"))
}

func TestProbe_TruncatesToFirst512Bytes(t *testing.T) {
	padding := make([]byte, 600)
	for i := range padding {
		padding[i] = 'x'
	}
	copy(padding, wasmMagic)
	require.Equal(t, KindWasm, Probe(padding, "blob"))
}
