// Package imports implements ImportsBuilder: the namespace/name keyed
// map of host Externs a module instantiates against, type-checked
// against the module's declared import list.
package imports

import (
	"fmt"

	"github.com/wasmerio/wasmer-runtime-go/api"
	"github.com/wasmerio/wasmer-runtime-go/bridge"
)

// key identifies one import slot.
type key struct {
	Namespace string
	Name      string
}

// MissingImportError is returned when a module declares an import that
// a backend object graph does not provide.
type MissingImportError struct {
	Namespace string
	Name      string
}

func (e *MissingImportError) Error() string {
	return fmt.Sprintf("imports: missing import %q.%q", e.Namespace, e.Name)
}

// Imports is the resolved (namespace, name) -> Extern map a module is
// instantiated against. Iteration order is unspecified; binding is
// driven by the module's own declared import list, not map order.
type Imports struct {
	entries map[key]api.Extern
}

// New returns an empty Imports.
func New() *Imports {
	return &Imports{entries: make(map[key]api.Extern)}
}

// Define inserts or replaces one import entry. A duplicate
// (namespace, name) pair silently overwrites the earlier entry — last
// write wins.
func (im *Imports) Define(namespace, name string, e api.Extern) {
	im.entries[key{namespace, name}] = e
}

// Get looks up one entry.
func (im *Imports) Get(namespace, name string) (api.Extern, bool) {
	e, ok := im.entries[key{namespace, name}]
	return e, ok
}

// Len returns the number of defined entries.
func (im *Imports) Len() int { return len(im.entries) }

// BackendNamespace is a backend-native object graph's view of one
// import namespace: the set of member names it exposes and a way to
// fetch the raw backend value and reported kind for one member.
type BackendNamespace interface {
	Members() []string
	Lookup(name string) (bridge.RawExtern, bool)
}

// BackendObject is the backend-native object graph From walks: each
// top-level key is an import namespace.
type BackendObject interface {
	Namespaces() []string
	Namespace(name string) (BackendNamespace, bool)
}

// From builds an Imports by walking mod's declared import list and
// looking up each (namespace, name) entry in obj, bridging the raw
// backend value into an api.Extern via eb. A namespace or member
// present in obj but not declared by mod is ignored — only declared
// imports are bound. A declared import missing from obj raises
// MissingImportError; a kind mismatch surfaces from eb.FromBackend.
func From(mod api.Module, obj BackendObject, eb bridge.ExternBridge) (*Imports, error) {
	im := New()
	for _, it := range mod.ImportTypes() {
		ns, ok := obj.Namespace(it.Module)
		if !ok {
			return nil, &MissingImportError{Namespace: it.Module, Name: it.Name}
		}
		raw, ok := ns.Lookup(it.Name)
		if !ok {
			return nil, &MissingImportError{Namespace: it.Module, Name: it.Name}
		}
		e, err := eb.FromBackend(raw, it.Type.Kind)
		if err != nil {
			return nil, fmt.Errorf("imports: %s.%s: %w", it.Module, it.Name, err)
		}
		im.Define(it.Module, it.Name, e)
	}
	return im, nil
}
