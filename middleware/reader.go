package middleware

import "github.com/wasmerio/wasmer-runtime-go/api"

// RawReader is the decoder capability a MiddlewareReader is built on.
// Decoding the Wasm binary format is explicitly out of this module's
// scope; a real decoder (or, in tests, a fake) supplies this interface
// already positioned at the start of one function body.
type RawReader interface {
	ReadLocalCount() (uint32, error)
	ReadLocalDecl() (count uint32, typ api.Type, err error)
	ReadOperator() (Operator, error)

	CurrentPosition() int
	OriginalPosition() int
	BytesRemaining() int
	EOF() bool
	Range() (start, end int)
}

// ReaderState is the mutable state a FunctionMiddleware stage observes
// and pushes output operators into. An operator a stage pushes is fed
// only to the stages after it, within the processing of the same raw
// input operator.
type ReaderState struct {
	raw     RawReader
	pending opQueue

	localDecls     uint32
	localDeclsRead uint32
	locals         []api.Type
}

// Push appends one operator to the pending queue.
func (s *ReaderState) Push(op Operator) { s.pending.PushBack(op) }

// PushAll appends every operator in ops, in order.
func (s *ReaderState) PushAll(ops []Operator) {
	for _, op := range ops {
		s.pending.PushBack(op)
	}
}

// Locals returns the accumulated locals vector seen so far.
func (s *ReaderState) Locals() []api.Type { return s.locals }

// Reader presents an Operator source equivalent, after passing through
// an ordered middleware chain, to the raw decoded stream. The empty
// chain is a direct pass-through.
type Reader struct {
	state   ReaderState
	chain   []FunctionMiddleware
	started bool
}

// NewReader constructs a Reader over raw, which must already be
// positioned at the start of the function body to read.
func NewReader(raw RawReader) *Reader {
	return &Reader{state: ReaderState{raw: raw, pending: newOpQueue()}}
}

// SetChain replaces the middleware chain. Stage i's output feeds stage
// i+1. Returns ErrChainLocked if ReadOperator has already been called
// once for this Reader.
func (r *Reader) SetChain(stages []FunctionMiddleware) error {
	if r.started {
		return ErrChainLocked
	}
	r.chain = stages
	return nil
}

// ReadLocalCount forwards to the raw decoder, reserving space in the
// locals vector. If the function declares zero locals this immediately
// fires the one-time LocalsInfo call to every stage.
func (r *Reader) ReadLocalCount() (uint32, error) {
	total, err := r.state.raw.ReadLocalCount()
	if err != nil {
		return 0, err
	}
	r.state.localDecls = total
	r.state.locals = make([]api.Type, 0, total)
	if total == 0 {
		r.emitLocalsInfo()
	}
	return total, nil
}

// ReadLocalDecl forwards to the raw decoder and accumulates the locals
// vector. When the last declaration is consumed, LocalsInfo fires on
// every stage exactly once.
func (r *Reader) ReadLocalDecl() (count uint32, typ api.Type, err error) {
	count, typ, err = r.state.raw.ReadLocalDecl()
	if err != nil {
		return 0, 0, err
	}
	for i := uint32(0); i < count; i++ {
		r.state.locals = append(r.state.locals, typ)
	}
	r.state.localDeclsRead++
	if r.state.localDeclsRead == r.state.localDecls {
		r.emitLocalsInfo()
	}
	return count, typ, nil
}

func (r *Reader) emitLocalsInfo() {
	for _, stage := range r.chain {
		stage.LocalsInfo(r.state.locals)
	}
}

// ReadOperator returns the next transformed operator. Errors are either
// malformed input from the raw decoder or an *AbortError from a stage.
func (r *Reader) ReadOperator() (Operator, error) {
	r.started = true

	if len(r.chain) == 0 {
		// Fast path: empty chain is a direct pass-through.
		return r.state.raw.ReadOperator()
	}

	var scratch []Operator
	for r.state.pending.Len() == 0 {
		rawOp, err := r.state.raw.ReadOperator()
		if err != nil {
			return Operator{}, err
		}
		r.state.pending.PushBack(rawOp)

		for _, stage := range r.chain {
			scratch = r.state.pending.DrainInto(scratch[:0])
			for _, op := range scratch {
				if err := stage.Feed(op, &r.state); err != nil {
					return Operator{}, err
				}
			}
		}
	}

	op, _ := r.state.pending.PopFront()
	return op, nil
}

// CurrentPosition, OriginalPosition, BytesRemaining, EOF, and Range pass
// through to the raw decoder; they remain valid even after a stage
// aborts.
func (r *Reader) CurrentPosition() int  { return r.state.raw.CurrentPosition() }
func (r *Reader) OriginalPosition() int { return r.state.raw.OriginalPosition() }
func (r *Reader) BytesRemaining() int   { return r.state.raw.BytesRemaining() }
func (r *Reader) EOF() bool             { return r.state.raw.EOF() }
func (r *Reader) Range() (int, int)     { return r.state.raw.Range() }
