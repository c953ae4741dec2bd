// Package descriptors implements the property descriptor table: the packed,
// collector-scanned array that records a shape's property keys, their
// details, and either their values or their field type constraints.
//
// A table is built by allocating it, appending records and sorting, after
// which it is searched by name and derived into new tables when shapes
// diverge. Tables are never resized in place.
package descriptors

import (
	"fmt"

	"github.com/tliron/commonlog"

	"github.com/chazu/descriptors/heap"
	"github.com/chazu/descriptors/lookupcache"
	"github.com/chazu/descriptors/manifest"
)

// Runtime owns the heap, the process-wide lookup cache and the shared
// singletons every table refers to.
type Runtime struct {
	heap      *heap.Heap
	collector *heap.Collector
	cache     *lookupcache.Cache
	cfg       *manifest.Manifest
	log       commonlog.Logger

	emptyArray     *DescriptorArray
	emptyEnumCache *EnumCache
}

// NewRuntime creates a runtime configured by cfg. A nil cfg uses
// manifest.Default().
func NewRuntime(cfg *manifest.Manifest) (*Runtime, error) {
	if cfg == nil {
		cfg = manifest.Default()
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}
	cache, err := lookupcache.New(cfg.LookupCache.Size)
	if err != nil {
		return nil, fmt.Errorf("cannot create lookup cache: %w", err)
	}

	rt := &Runtime{
		heap: heap.New(heap.Options{
			LimitBytes: cfg.Heap.LimitBytes,
			StepBudget: cfg.Heap.StepBudget,
		}),
		cache: cache,
		cfg:   cfg,
		log:   commonlog.GetLogger("descriptors.runtime"),
	}
	// Handles are reused after a sweep, so cached (table, name) pairs may
	// name a different table afterwards.
	rt.heap.OnCollect(cache.Clear)
	rt.collector = heap.NewCollector(rt.heap, cfg.Heap.GCInterval.Duration)

	rt.emptyEnumCache = rt.newEnumCache(nil, nil)
	rt.heap.MakeImmortal(rt.emptyEnumCache.self)

	rt.emptyArray = rt.newDescriptorArray(0, 0)
	rt.heap.MakeImmortal(rt.emptyArray.self)

	rt.log.Debugf("runtime ready: lookup cache %d entries, step budget %d",
		cfg.LookupCache.Size, cfg.Heap.StepBudget)
	return rt, nil
}

// Heap returns the managed heap.
func (rt *Runtime) Heap() *heap.Heap { return rt.heap }

// Collector returns the background collector. It is not started until
// Start is called on it.
func (rt *Runtime) Collector() *heap.Collector { return rt.collector }

// Close stops the background collector if it is running.
func (rt *Runtime) Close() {
	rt.collector.Stop()
}

// LookupCache returns the process-wide lookup cache.
func (rt *Runtime) LookupCache() *lookupcache.Cache { return rt.cache }

// Config returns the configuration the runtime was created with.
func (rt *Runtime) Config() *manifest.Manifest { return rt.cfg }

// EmptyDescriptorArray returns the shared zero-capacity table.
func (rt *Runtime) EmptyDescriptorArray() *DescriptorArray { return rt.emptyArray }

// EmptyEnumCache returns the shared empty enumeration cache.
func (rt *Runtime) EmptyEnumCache() *EnumCache { return rt.emptyEnumCache }

// OpenScope pins everything allocated until the returned scope is closed.
// Callers sharing the runtime with a running Collector hold fresh tables in
// a scope until they are rooted.
func (rt *Runtime) OpenScope() *heap.Scope { return rt.heap.OpenScope() }

// Intern is shorthand for Heap().Intern.
func (rt *Runtime) Intern(s string) heap.Value { return rt.heap.Intern(s) }

// DescriptorArrayOf resolves a reference to a table.
func (rt *Runtime) DescriptorArrayOf(v heap.Value) (*DescriptorArray, bool) {
	a, ok := rt.heap.Resolve(v).(*DescriptorArray)
	return a, ok
}

// hashOf returns the hash of a key. Keys are always live names while their
// table is reachable.
func (rt *Runtime) hashOf(key heap.Value) uint32 {
	n := rt.heap.NameOf(key)
	if n == nil {
		panic(fmt.Sprintf("DescriptorArray: key %v is not a live name", key))
	}
	return n.Hash()
}

func dcheck(cond bool, format string, args ...any) {
	if debugAssertions && !cond {
		panic(fmt.Sprintf(format, args...))
	}
}
