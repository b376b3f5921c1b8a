package middleware

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/require"
	"github.com/wasmerio/wasmer-runtime-go/api"
)

// fakeRawReader is a minimal RawReader fixture for exercising Reader's
// chain semantics. It is not a Wasm decoder: operators are whatever the
// test hands it, opcode bytes are meaningless beyond identity.
type fakeRawReader struct {
	ops          []Operator
	pos          int
	localTotal   uint32
	localDecls   []api.Type // one entry per declared group; count 1 each for simplicity
	declsEmitted int
}

func (f *fakeRawReader) ReadLocalCount() (uint32, error) { return f.localTotal, nil }

func (f *fakeRawReader) ReadLocalDecl() (uint32, api.Type, error) {
	t := f.localDecls[f.declsEmitted]
	f.declsEmitted++
	return 1, t, nil
}

func (f *fakeRawReader) ReadOperator() (Operator, error) {
	if f.pos >= len(f.ops) {
		return Operator{}, errors.New("fakeRawReader: EOF")
	}
	op := f.ops[f.pos]
	f.pos++
	return op, nil
}

func (f *fakeRawReader) CurrentPosition() int  { return f.pos }
func (f *fakeRawReader) OriginalPosition() int { return 0 }
func (f *fakeRawReader) BytesRemaining() int   { return len(f.ops) - f.pos }
func (f *fakeRawReader) EOF() bool             { return f.pos >= len(f.ops) }
func (f *fakeRawReader) Range() (int, int)     { return 0, len(f.ops) }

func opSeq(codes ...uint32) []Operator {
	ops := make([]Operator, len(codes))
	for i, c := range codes {
		ops[i] = Operator{Code: c}
	}
	return ops
}

func readAll(t *testing.T, r *Reader, n int) []Operator {
	t.Helper()
	var out []Operator
	for i := 0; i < n; i++ {
		op, err := r.ReadOperator()
		require.NoError(t, err)
		out = append(out, op)
	}
	return out
}

// identityMiddleware feeds every operator through unchanged: the
// ModuleMiddleware and FunctionMiddleware used to test order
// preservation across a multi-stage chain.
type identityMiddleware struct{ PassThrough }

func (identityMiddleware) GenerateFunctionMiddleware(LocalFunctionIndex) FunctionMiddleware {
	return identityMiddleware{}
}
func (identityMiddleware) TransformModuleInfo(*ModuleInfo) error { return nil }

func TestReader_PassThrough_EmptyChain(t *testing.T) {
	raw := &fakeRawReader{ops: opSeq(1, 2, 3)}
	r := NewReader(raw)

	got := readAll(t, r, 3)
	require.Equal(t, opSeq(1, 2, 3), got)
}

func TestReader_OrderPreservation_IdentityChain(t *testing.T) {
	raw := &fakeRawReader{ops: opSeq(10, 20, 30)}
	r := NewReader(raw)
	chain := Chain{identityMiddleware{}, identityMiddleware{}}
	require.NoError(t, r.SetChain(chain.GenerateFunctionMiddlewareChain(0)))

	got := readAll(t, r, 3)
	require.Equal(t, opSeq(10, 20, 30), got)
}

// dupMiddleware emits every incoming operator twice.
type dupMiddleware struct{}

func (dupMiddleware) LocalsInfo([]api.Type) {}
func (dupMiddleware) Feed(op Operator, state *ReaderState) error {
	state.Push(op)
	state.Push(op)
	return nil
}

func TestReader_FanOut_Dup(t *testing.T) {
	raw := &fakeRawReader{ops: opSeq(1, 2, 3)}
	r := NewReader(raw)
	require.NoError(t, r.SetChain([]FunctionMiddleware{dupMiddleware{}}))

	got := readAll(t, r, 6)
	require.Equal(t, opSeq(1, 1, 2, 2, 3, 3), got)

	// Any prefix of the output equals dup applied to the corresponding
	// raw prefix.
	raw2 := &fakeRawReader{ops: opSeq(1, 2, 3)}
	r2 := NewReader(raw2)
	require.NoError(t, r2.SetChain([]FunctionMiddleware{dupMiddleware{}}))
	prefix := readAll(t, r2, 4)
	require.Equal(t, opSeq(1, 1, 2, 2), prefix)
}

// dropSecond keeps only the first operator of every pair it sees.
type dropSecond struct{ seenOdd bool }

func (d *dropSecond) LocalsInfo([]api.Type) {}
func (d *dropSecond) Feed(op Operator, state *ReaderState) error {
	if !d.seenOdd {
		state.Push(op)
		d.seenOdd = true
	} else {
		d.seenOdd = false
	}
	return nil
}

type dropSecondModule struct{}

func (dropSecondModule) TransformModuleInfo(*ModuleInfo) error { return nil }
func (dropSecondModule) GenerateFunctionMiddleware(LocalFunctionIndex) FunctionMiddleware {
	return &dropSecond{}
}

func TestReader_FanOut_DupThenDropSecond(t *testing.T) {
	raw := &fakeRawReader{ops: opSeq(1, 2, 3)}
	r := NewReader(raw)
	chain := Chain{dupModule{}, dropSecondModule{}}
	require.NoError(t, r.SetChain(chain.GenerateFunctionMiddlewareChain(0)))

	got := readAll(t, r, 3)
	require.Equal(t, opSeq(1, 2, 3), got)
}

type dupModule struct{}

func (dupModule) TransformModuleInfo(*ModuleInfo) error { return nil }
func (dupModule) GenerateFunctionMiddleware(LocalFunctionIndex) FunctionMiddleware {
	return dupMiddleware{}
}

// localsRecorder captures every LocalsInfo call it receives, so tests
// can assert it fires exactly once and before the first Feed.
type localsRecorder struct {
	calls     int
	fedYet    bool
	fedBefore bool
}

func (l *localsRecorder) LocalsInfo(locals []api.Type) {
	l.calls++
	l.fedBefore = l.fedYet
}
func (l *localsRecorder) Feed(op Operator, state *ReaderState) error {
	l.fedYet = true
	state.Push(op)
	return nil
}

func TestReader_LocalsInfoCalledOnceBeforeFeed(t *testing.T) {
	raw := &fakeRawReader{
		ops:        opSeq(1, 2),
		localTotal: 2,
		localDecls: []api.Type{api.TypeI32, api.TypeF64},
	}
	r := NewReader(raw)
	rec := &localsRecorder{}
	require.NoError(t, r.SetChain([]FunctionMiddleware{rec}))

	_, err := r.ReadLocalCount()
	require.NoError(t, err)
	_, _, err = r.ReadLocalDecl()
	require.NoError(t, err)
	require.Equal(t, 0, rec.calls, "must not fire before all decls are read")
	_, _, err = r.ReadLocalDecl()
	require.NoError(t, err)
	require.Equal(t, 1, rec.calls)

	_, err = r.ReadOperator()
	require.NoError(t, err)
	require.Equal(t, 1, rec.calls, "must fire exactly once even once Feed starts")
	require.False(t, rec.fedBefore)
}

func TestReader_LocalsInfoFiresWithZeroLocals(t *testing.T) {
	raw := &fakeRawReader{ops: opSeq(1)}
	r := NewReader(raw)
	rec := &localsRecorder{}
	require.NoError(t, r.SetChain([]FunctionMiddleware{rec}))

	_, err := r.ReadLocalCount()
	require.NoError(t, err)
	require.Equal(t, 1, rec.calls)
}

func TestReader_SetChain_LockedAfterFirstRead(t *testing.T) {
	raw := &fakeRawReader{ops: opSeq(1, 2)}
	r := NewReader(raw)
	require.NoError(t, r.SetChain(nil))

	_, err := r.ReadOperator()
	require.NoError(t, err)

	err = r.SetChain([]FunctionMiddleware{dupMiddleware{}})
	require.ErrorIs(t, err, ErrChainLocked)
}

// abortingMiddleware always fails, to test that a stage's error
// propagates as the operator-read error while positional accessors
// remain valid.
type abortingMiddleware struct{}

func (abortingMiddleware) LocalsInfo([]api.Type) {}
func (abortingMiddleware) Feed(Operator, *ReaderState) error {
	return &AbortError{Stage: "aborting", Reason: "synthetic failure"}
}

func TestReader_StageAbort_PositionalAccessorsStillValid(t *testing.T) {
	raw := &fakeRawReader{ops: opSeq(1, 2, 3)}
	r := NewReader(raw)
	require.NoError(t, r.SetChain([]FunctionMiddleware{abortingMiddleware{}}))

	_, err := r.ReadOperator()
	var abortErr *AbortError
	require.ErrorAs(t, err, &abortErr)
	require.Equal(t, "aborting", abortErr.Stage)

	require.Equal(t, 1, r.CurrentPosition())
	require.False(t, r.EOF())
}
