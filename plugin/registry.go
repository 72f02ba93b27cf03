package plugin

import (
	"sort"
	"sync"
)

// Compile-time registry for built-in plugins. Packages call Register from init.

// Constructor builds a plugin bound to the given host
type Constructor func(host Host) (Plugin, error)

var (
	registryMu sync.RWMutex
	registry   = map[string]Constructor{}
)

// Register adds a built-in constructor under key. A later call with the same key replaces the earlier one.
func Register(key string, ctor Constructor) {
	registryMu.Lock()
	defer registryMu.Unlock()
	registry[key] = ctor
}

// Registered returns the built-in constructors ordered by key
func Registered() []Constructor {
	registryMu.RLock()
	defer registryMu.RUnlock()

	keys := make([]string, 0, len(registry))
	for k := range registry {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	ctors := make([]Constructor, 0, len(keys))
	for _, k := range keys {
		ctors = append(ctors, registry[k])
	}
	return ctors
}
