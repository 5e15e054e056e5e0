// Package workload is the closed set of named built-in benchmark
// workloads that stand in for dynamic evaluation of a hosted
// language's surface syntax: a closed registry keyed by name, rather
// than an embedded interpreter. It is grounded on interp/host.go's
// Commands map[string]CommandFunc dispatch-by-name registry, adapted
// from "host command callable from Tcl" to "named benchmark workload
// callable from a runner spec."
package workload

import (
	"fmt"
	"sort"
	"sync"

	"github.com/pkg/errors"
)

// Fn is one registered workload. state is whatever the previous hook
// in the lifecycle produced (init's S for init_runner, init_runner's W
// for the runner body); a Fn that has no use for it ignores it.
type Fn func(state any, args []any) (any, error)

var (
	registryMu sync.RWMutex
	registry   = map[string]Fn{}
)

// Register adds a workload to the closed set under "module.function",
// or bare "function" when module is empty. Intended to be called from
// package init() only; it is exported so a future workload file can
// live alongside its tests without reaching into package internals.
func Register(module, function string, fn Fn) {
	registryMu.Lock()
	defer registryMu.Unlock()
	registry[key(module, function)] = fn
}

// Lookup resolves a (module, function) pair to a registered workload.
func Lookup(module, function string) (Fn, bool) {
	registryMu.RLock()
	defer registryMu.RUnlock()
	fn, ok := registry[key(module, function)]
	if ok {
		return fn, true
	}
	// A bare function name matches any module-qualified registration
	// with the same function, so "sleep(1)." resolves the same
	// workload as "{time, sleep, [1]}" would.
	if module == "" {
		for k, v := range registry {
			if suffix(k) == function {
				return v, true
			}
		}
	}
	return nil, false
}

// Names returns every registered workload name, sorted, for help text
// and validation error messages.
func Names() []string {
	registryMu.RLock()
	defer registryMu.RUnlock()
	names := make([]string, 0, len(registry))
	for k := range registry {
		names = append(names, k)
	}
	sort.Strings(names)
	return names
}

// ErrUnknown is wrapped into the error returned when a Call addresses
// a name the registry does not recognize.
var ErrUnknown = errors.New("workload: unknown workload")

func key(module, function string) string {
	if module == "" {
		return function
	}
	return fmt.Sprintf("%s.%s", module, function)
}

func suffix(k string) string {
	for i := len(k) - 1; i >= 0; i-- {
		if k[i] == '.' {
			return k[i+1:]
		}
	}
	return k
}
