// Package detect classifies a file's contents before it reaches any
// loader: is it Wasm bytecode, a package container, a pre-compiled
// artifact, or none of those (decided by extension instead)?
package detect

import (
	"bytes"
	"path/filepath"
	"strings"
)

// Kind classifies a probed input.
type Kind byte

const (
	KindUnknown Kind = iota
	KindWasm
	KindContainer
	KindArtifact
)

func (k Kind) String() string {
	switch k {
	case KindWasm:
		return "wasm"
	case KindContainer:
		return "container"
	case KindArtifact:
		return "artifact"
	default:
		return "unknown"
	}
}

// wasmMagic is the four-byte Wasm binary format preamble
// (`\0asm`), followed by a four-byte version field this probe does not
// need to validate.
var wasmMagic = []byte{0x00, 0x61, 0x73, 0x6d}

// containerMagic is this module's own container envelope preamble. The
// real webc registry format is a binary, tar-like container whose
// parser is out of scope here (loader.Container documents why); this
// module's concrete on-disk format is instead a JSON object, so its
// "magic" is simply its opening brace once leading whitespace is
// skipped.
var containerMagic = byte('{')

// Probe classifies data's first bytes (the caller should pass up to the
// first 512 bytes of a file, per the documented probe window) using a
// magic-byte check first, falling back to name's extension when no
// magic matches. A pre-compiled artifact format is not produced by
// this module (no code generator is in scope), so KindArtifact is
// never returned by the magic-byte path; it exists so a future backend
// that does produce one has a Kind to report, and extension fallback
// still recognizes ".wasmu" as one.
func Probe(data []byte, name string) Kind {
	if len(data) > 512 {
		data = data[:512]
	}

	if bytes.HasPrefix(data, wasmMagic) {
		return KindWasm
	}
	if trimmed := bytes.TrimLeft(data, " \t\r\n"); len(trimmed) > 0 && trimmed[0] == containerMagic {
		return KindContainer
	}

	switch strings.ToLower(filepath.Ext(name)) {
	case ".wasm", ".wat":
		return KindWasm
	case ".webc":
		return KindContainer
	case ".wasmu":
		return KindArtifact
	default:
		return KindUnknown
	}
}
