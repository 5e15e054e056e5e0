package workload

import (
	"crypto/rand"
	"math"
	mrand "math/rand/v2"
	"sync"
	"time"

	"github.com/pkg/errors"
)

func init() {
	Register("", "sleep", sleep)
	Register("", "timer_sleep", sleep)
	Register("", "rand", randInt)
	Register("", "strong_rand_bytes", strongRandBytes)
	Register("", "busy_wait", busyWait)
	Register("", "create_group", createGroup)
	Register("", "delete_group", deleteGroup)
	Register("", "join_group", joinGroup)
	Register("", "leave_group", leaveGroup)
	Register("", "map_new", mapNew)
	Register("", "map_put", mapPut)
}

func argInt(args []any, i int, def int64) (int64, error) {
	if i >= len(args) {
		return def, nil
	}
	switch v := args[i].(type) {
	case int64:
		return v, nil
	case float64:
		return int64(v), nil
	default:
		return 0, errors.Errorf("argument %d is not numeric: %v", i, v)
	}
}

func argString(args []any, i int, def string) string {
	if i >= len(args) {
		return def
	}
	if s, ok := args[i].(string); ok {
		return s
	}
	return def
}

// sleep pauses the calling worker for the given number of milliseconds
// (default 1). It is the cheapest possible non-busy workload, useful
// for smoke-testing the sampler without saturating a core.
func sleep(_ any, args []any) (any, error) {
	ms, err := argInt(args, 0, 1)
	if err != nil {
		return nil, err
	}
	time.Sleep(time.Duration(ms) * time.Millisecond)
	return nil, nil
}

// randInt returns a pseudo-random int63, exercising an uncontended
// per-goroutine PRNG (math/rand/v2 is safe for concurrent use without
// a shared lock, unlike the legacy global math/rand source).
func randInt(_ any, _ []any) (any, error) {
	return mrand.Int64(), nil
}

// strongRandBytes draws n (default 16) bytes from a CSPRNG, exercising
// a workload that contends on the OS entropy source under load.
func strongRandBytes(_ any, args []any) (any, error) {
	n, err := argInt(args, 0, 16)
	if err != nil {
		return nil, err
	}
	if n < 0 {
		return nil, errors.Errorf("strong_rand_bytes: negative length %d", n)
	}
	buf := make([]byte, n)
	if _, err := rand.Read(buf); err != nil {
		return nil, errors.Wrap(err, "strong_rand_bytes")
	}
	return buf, nil
}

// busyWait spins doing floating-point work for n (default 1000)
// iterations, exercising a CPU-bound workload with no syscalls at all
// — useful for squeeze runs that should saturate purely on core count.
func busyWait(_ any, args []any) (any, error) {
	n, err := argInt(args, 0, 1000)
	if err != nil {
		return nil, err
	}
	acc := 0.0
	for i := int64(0); i < n; i++ {
		acc = math.Sqrt(acc + float64(i))
	}
	return acc, nil
}

// Group is shared suite state (S) created by create_group and torn
// down by delete_group; workers join and leave it once per
// init_runner/runner-loop lifecycle to exercise a lock-contending
// shared structure.
type Group struct {
	mu      sync.Mutex
	name    string
	members map[int]struct{}
	nextID  int
}

// createGroup is an init hook: it builds the shared group exactly
// once before any worker starts.
func createGroup(_ any, args []any) (any, error) {
	name := argString(args, 0, "default")
	return &Group{name: name, members: make(map[int]struct{})}, nil
}

// deleteGroup is a done hook: it receives the suite state S produced
// by createGroup and tears it down exactly once after the last worker
// has stopped.
func deleteGroup(state any, _ []any) (any, error) {
	g, ok := state.(*Group)
	if !ok || g == nil {
		return nil, errors.New("delete_group: no group in suite state")
	}
	g.mu.Lock()
	defer g.mu.Unlock()
	g.members = nil
	return nil, nil
}

// joinGroup is an init_runner hook: each worker joins once and keeps
// its membership token as its private worker state (W).
func joinGroup(state any, _ []any) (any, error) {
	g, ok := state.(*Group)
	if !ok || g == nil {
		return nil, errors.New("join_group: no group in suite state")
	}
	g.mu.Lock()
	defer g.mu.Unlock()
	id := g.nextID
	g.nextID++
	g.members[id] = struct{}{}
	return memberToken{group: g, id: id}, nil
}

type memberToken struct {
	group *Group
	id    int
}

// leaveGroup is a runner-body workload: it flips the worker's
// membership out and back in each iteration, exercising the group's
// mutex under concurrent load.
func leaveGroup(state any, _ []any) (any, error) {
	tok, ok := state.(memberToken)
	if !ok {
		return nil, errors.New("leave_group: worker state is not a group membership token")
	}
	tok.group.mu.Lock()
	delete(tok.group.members, tok.id)
	tok.group.members[tok.id] = struct{}{}
	tok.group.mu.Unlock()
	return nil, nil
}

// mapNew is an init_runner hook producing a private, unsynchronized
// map as worker state — worker state is never shared across workers,
// so this needs no locking.
func mapNew(_ any, _ []any) (any, error) {
	return make(map[string]int64), nil
}

// mapPut is a runner-body workload exercising map writes against the
// worker's own private map.
func mapPut(state any, args []any) (any, error) {
	m, ok := state.(map[string]int64)
	if !ok {
		return nil, errors.New("map_put: worker state is not a map")
	}
	key := argString(args, 0, "k")
	val, _ := argInt(args, 1, 1)
	m[key] += val
	return nil, nil
}
