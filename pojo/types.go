package pojo

import (
	"database/sql"
	"reflect"
	"sync"
)

// PropertyResolver looks up the property table of a type.
type PropertyResolver interface {
	PropertiesOf(t reflect.Type) (*Properties, bool)
}

// Types is a registry of property tables. It is safe for concurrent use.
type Types struct {
	mu       sync.RWMutex
	props    map[reflect.Type]*Properties
	autoScan bool
}

// TypesOption configures a Types registry.
type TypesOption func(*Types)

// WithAutoScan makes the registry scan unregistered struct types with
// StructOf on first lookup. Types implementing sql.Scanner and structs
// without exported fields are never scanned.
func WithAutoScan() TypesOption {
	return func(t *Types) {
		t.autoScan = true
	}
}

// NewTypes returns an empty registry.
func NewTypes(opts ...TypesOption) *Types {
	t := &Types{props: make(map[reflect.Type]*Properties)}
	for _, opt := range opts {
		opt(t)
	}
	return t
}

// Register adds property tables, replacing any registered for the same types.
func (t *Types) Register(props ...*Properties) {
	t.mu.Lock()
	defer t.mu.Unlock()
	for _, p := range props {
		t.props[p.typ] = p
	}
}

// Register declares and registers the property table of T.
func Register[T any](types *Types, decls ...Decl[T]) {
	types.Register(Declare(decls...))
}

// PropertiesOf returns the property table registered for rt.
func (t *Types) PropertiesOf(rt reflect.Type) (*Properties, bool) {
	t.mu.RLock()
	p, ok := t.props[rt]
	t.mu.RUnlock()
	if ok || !t.autoScan || !scannable(rt) {
		return p, ok
	}

	t.mu.Lock()
	defer t.mu.Unlock()
	if p, ok := t.props[rt]; ok {
		return p, true
	}
	p, err := StructOf(rt)
	if err != nil {
		return nil, false
	}
	t.props[rt] = p
	return p, true
}

var scannerType = reflect.TypeFor[sql.Scanner]()

func scannable(rt reflect.Type) bool {
	if rt.Kind() != reflect.Struct || reflect.PointerTo(rt).Implements(scannerType) {
		return false
	}
	for i := 0; i < rt.NumField(); i++ {
		if rt.Field(i).IsExported() {
			return true
		}
	}
	return false
}
