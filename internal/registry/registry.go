// Package registry resolves fully-qualified class names to constructors.
//
// Packages that provide architectures or inference tasks register their
// constructors from init(), so the table is complete before main runs and is
// only read afterwards. Resolution is an exact string match followed by a
// type check against the capability the caller asks for.
package registry

import (
	"fmt"
	"maps"
	"reflect"
	"slices"
	"sync"
)

var (
	mu      sync.RWMutex
	classes = make(map[string]any)
)

// Register binds name to v. It panics if name is empty, v is nil, or name is
// already registered.
func Register(name string, v any) {
	if name == "" {
		panic("registry: empty class name")
	}
	if v == nil {
		panic(fmt.Sprintf("registry: nil value for class %q", name))
	}

	mu.Lock()
	defer mu.Unlock()

	if _, dup := classes[name]; dup {
		panic(fmt.Sprintf("registry: class %q registered twice", name))
	}
	classes[name] = v
}

// Resolve looks up name and checks that the registered value is a T.
func Resolve[T any](name string) (T, error) {
	var zero T

	mu.RLock()
	v, ok := classes[name]
	mu.RUnlock()

	if !ok {
		return zero, &ResolutionError{Name: name, Err: ErrNotFound}
	}

	t, ok := v.(T)
	if !ok {
		return zero, &ResolutionError{
			Name: name,
			Want: reflect.TypeFor[T]().String(),
			Got:  reflect.TypeOf(v).String(),
			Err:  ErrCapability,
		}
	}
	return t, nil
}

// Names returns every registered class name in sorted order.
func Names() []string {
	mu.RLock()
	defer mu.RUnlock()

	return slices.Sorted(maps.Keys(classes))
}

// unregister removes name; tests use it to keep the table clean.
func unregister(name string) {
	mu.Lock()
	defer mu.Unlock()

	delete(classes, name)
}
