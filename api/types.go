// Package api holds the closed-sum vocabulary shared by the compiler
// middleware pipeline, the host/guest value bridge, and the package
// resolver: value and extern types, and the capability interfaces a
// backend (native-VM or browser-embedded) implements to expose
// instantiated Wasm objects to Go callers.
package api

import "fmt"

// Type is the tag of a Value. Per the Core WebAssembly spec there is no
// separate notion of a value's type independent of this tag: the tag IS
// the type.
type Type byte

const (
	TypeI32 Type = iota
	TypeI64
	TypeF32
	TypeF64
	TypeV128
	TypeFuncRef
	TypeExternRef
)

// String implements fmt.Stringer.
func (t Type) String() string {
	switch t {
	case TypeI32:
		return "i32"
	case TypeI64:
		return "i64"
	case TypeF32:
		return "f32"
	case TypeF64:
		return "f64"
	case TypeV128:
		return "v128"
	case TypeFuncRef:
		return "funcref"
	case TypeExternRef:
		return "externref"
	default:
		return fmt.Sprintf("type(%#x)", byte(t))
	}
}

// IsReference reports whether t is one of the two reference types.
func (t Type) IsReference() bool {
	return t == TypeFuncRef || t == TypeExternRef
}

// ExternKind classifies an Extern or ExternType. A host-provided Extern
// must match the declared ExternType on kind at minimum; full signature
// checking happens later, at instantiation.
type ExternKind byte

const (
	ExternKindFunc ExternKind = iota
	ExternKindMemory
	ExternKindGlobal
	ExternKindTable
)

func (k ExternKind) String() string {
	switch k {
	case ExternKindFunc:
		return "func"
	case ExternKindMemory:
		return "memory"
	case ExternKindGlobal:
		return "global"
	case ExternKindTable:
		return "table"
	default:
		return fmt.Sprintf("externkind(%#x)", byte(k))
	}
}

// Limits bounds a Memory or Table. Max is nil when unbounded.
type Limits struct {
	Min uint32
	Max *uint32
}

// FunctionType is the params/results signature of a function import or
// export.
type FunctionType struct {
	Params  []Type
	Results []Type
}

func (ft FunctionType) String() string {
	return fmt.Sprintf("%v -> %v", ft.Params, ft.Results)
}

// MemoryType describes a Memory import or export.
type MemoryType struct {
	Limits Limits
	Shared bool
}

// TableType describes a Table import or export.
type TableType struct {
	Element Type
	Limits  Limits
}

// GlobalType describes a Global import or export.
type GlobalType struct {
	ValType Type
	Mutable bool
}

// ExternType is a tagged union over the four extern kinds. Only the
// field named by Kind is meaningful.
type ExternType struct {
	Kind     ExternKind
	Function FunctionType
	Memory   MemoryType
	Table    TableType
	Global   GlobalType
}

// FuncExternType builds an ExternType of kind Func.
func FuncExternType(ft FunctionType) ExternType { return ExternType{Kind: ExternKindFunc, Function: ft} }

// MemoryExternType builds an ExternType of kind Memory.
func MemoryExternType(mt MemoryType) ExternType {
	return ExternType{Kind: ExternKindMemory, Memory: mt}
}

// TableExternType builds an ExternType of kind Table.
func TableExternType(tt TableType) ExternType { return ExternType{Kind: ExternKindTable, Table: tt} }

// GlobalExternType builds an ExternType of kind Global.
func GlobalExternType(gt GlobalType) ExternType {
	return ExternType{Kind: ExternKindGlobal, Global: gt}
}

func (e ExternType) String() string {
	switch e.Kind {
	case ExternKindFunc:
		return "func " + e.Function.String()
	case ExternKindMemory:
		return fmt.Sprintf("memory(min=%d)", e.Memory.Limits.Min)
	case ExternKindTable:
		return fmt.Sprintf("table(%v)", e.Table.Element)
	case ExternKindGlobal:
		return fmt.Sprintf("global(%v mut=%v)", e.Global.ValType, e.Global.Mutable)
	default:
		return e.Kind.String()
	}
}

// ImportType names one entry of a Module's import namespace, paired with
// its declared type. imports.From walks a Module's
// ImportTypes to discover which backend values to bridge.
type ImportType struct {
	Module string
	Name   string
	Type   ExternType
}

// Module is the minimal view of a decoded (not yet instantiated) module
// that the import bridge needs: its declared import namespace. The full
// decoder is out of scope for this package; a concrete decoder
// implementation supplies this interface.
type Module interface {
	// ImportTypes lists every (module, name) -> ExternType the module
	// declares, imports first. Binding order during instantiation is
	// driven by this list, not by ImportsBuilder's insertion order.
	ImportTypes() []ImportType
}

// Closer releases a resource.
type Closer interface {
	Close() error
}
