package api

import "fmt"

// FunctionHandle is the opaque backend handle behind an Extern of kind
// ExternKindFunc.
type FunctionHandle interface {
	Type() FunctionType
	// Call invokes the function. params and the returned slice are
	// encoded per Type's Params/Results, using Value so callers never
	// need backend-specific knowledge of the wire representation.
	Call(params []Value) ([]Value, error)
}

// MemoryHandle is the opaque backend handle behind an Extern of kind
// ExternKindMemory.
type MemoryHandle interface {
	Type() MemoryType
	Size() uint32
	Grow(deltaPages uint32) (previousPages uint32, ok bool)
	Read(offset, byteCount uint32) ([]byte, bool)
	Write(offset uint32, data []byte) bool
}

// GlobalHandle is the opaque backend handle behind an Extern of kind
// ExternKindGlobal.
type GlobalHandle interface {
	Type() GlobalType
	Get() Value
	// Set updates the value. Implementations must reject the call when
	// Type().Mutable is false.
	Set(Value) error
}

// TableHandle is the opaque backend handle behind an Extern of kind
// ExternKindTable.
type TableHandle interface {
	Type() TableType
	Size() uint32
	Get(index uint32) (Value, bool)
	Set(index uint32, v Value) error
}

// Extern is a tagged union over the four kinds of host-provided object
// made visible to the guest. An Extern shares its underlying object with
// the owning store; the store outlives every Extern drawn from it.
type Extern struct {
	Kind     ExternKind
	function FunctionHandle
	memory   MemoryHandle
	global   GlobalHandle
	table    TableHandle
}

// NewFunctionExtern wraps a FunctionHandle as an Extern.
func NewFunctionExtern(h FunctionHandle) Extern { return Extern{Kind: ExternKindFunc, function: h} }

// NewMemoryExtern wraps a MemoryHandle as an Extern.
func NewMemoryExtern(h MemoryHandle) Extern { return Extern{Kind: ExternKindMemory, memory: h} }

// NewGlobalExtern wraps a GlobalHandle as an Extern.
func NewGlobalExtern(h GlobalHandle) Extern { return Extern{Kind: ExternKindGlobal, global: h} }

// NewTableExtern wraps a TableHandle as an Extern.
func NewTableExtern(h TableHandle) Extern { return Extern{Kind: ExternKindTable, table: h} }

// Function returns the wrapped FunctionHandle and true, or false if
// Kind != ExternKindFunc.
func (e Extern) Function() (FunctionHandle, bool) { return e.function, e.Kind == ExternKindFunc }

// Memory returns the wrapped MemoryHandle and true, or false if
// Kind != ExternKindMemory.
func (e Extern) Memory() (MemoryHandle, bool) { return e.memory, e.Kind == ExternKindMemory }

// Global returns the wrapped GlobalHandle and true, or false if
// Kind != ExternKindGlobal.
func (e Extern) Global() (GlobalHandle, bool) { return e.global, e.Kind == ExternKindGlobal }

// Table returns the wrapped TableHandle and true, or false if
// Kind != ExternKindTable.
func (e Extern) Table() (TableHandle, bool) { return e.table, e.Kind == ExternKindTable }

// Type reports the ExternType of the wrapped handle.
func (e Extern) Type() ExternType {
	switch e.Kind {
	case ExternKindFunc:
		return FuncExternType(e.function.Type())
	case ExternKindMemory:
		return MemoryExternType(e.memory.Type())
	case ExternKindGlobal:
		return GlobalExternType(e.global.Type())
	case ExternKindTable:
		return TableExternType(e.table.Type())
	default:
		panic(fmt.Sprintf("api: Extern with unknown kind %v", e.Kind))
	}
}
