// Package object implements the reference-counted heap used for
// string/list/function-reference values, per spec.md §4.7. Allocation is
// sharded by goroutine-local hint to cut lock contention, with one shared
// "escape" shard for values a thread hands off via _spawn or a cell —
// the design spec.md leaves open between "sharing + atomic refcounts" and
// "private pools + copy-on-escape"; this port takes the former.
package object

import (
	"sync"

	"dust/internal/bytecode"
)

// Kind is the heap-object discriminant (spec.md §4.7: "String, List,
// Function-reference").
type Kind uint8

const (
	KindString Kind = iota
	KindList
	KindFunction
)

// Elem is one list slot: inert bits for scalar element types (int, float,
// bool, byte, char), or a Ref for object-typed elements (str, list, fn) —
// the same bits-or-ref shape the VM's own register Value uses, duplicated
// here without an import of the vm package so this pool stays leaf-level.
type Elem struct {
	Bits uint64
	Obj  Ref
}

// Value is one heap-allocated object. List holds one Elem per element;
// whether a given Elem's Bits or Obj field is meaningful is determined by
// the list's static element type, known to the VM from the NewList/
// GetIndex/SetIndex instruction's operand type, not stored per-element.
type Value struct {
	Kind    Kind
	Str     string
	List    []Elem
	ElemTag bytecode.OperandType // the list's static element type, when Kind == KindList
	Proto   int                  // prototype index, when Kind == KindFunction

	mu   sync.Mutex
	refs int32
}

// Ref is an opaque handle into a shard's slot table. The zero Ref is
// invalid (never returned by Alloc).
type Ref struct {
	shard int32
	slot  int32
}

func (r Ref) Valid() bool { return r.shard != 0 || r.slot != 0 }

const numShards = 16

type shard struct {
	mu     sync.Mutex
	values []*Value
	free   []int32
}

// Pool is the process-wide object heap: numShards private-ish shards plus
// shard 0 reserved as the shared escape shard for cross-thread values.
type Pool struct {
	shards [numShards]*shard
}

func NewPool() *Pool {
	p := &Pool{}
	for i := range p.shards {
		p.shards[i] = &shard{}
	}
	// Slot 0 of shard 0 is never handed out, so Alloc never returns the
	// zero Ref.
	p.shards[0].values = []*Value{nil}
	return p
}

// shardFor picks a shard by a caller-supplied thread hint, keeping most
// allocation traffic lock-local; hint 0 always routes to the escape shard.
func (p *Pool) shardFor(threadHint int) int32 {
	if threadHint <= 0 {
		return 0
	}
	return int32(1 + threadHint%(numShards-1))
}

// Alloc stores v in the shard for threadHint and returns a Ref with an
// initial refcount of 1.
func (p *Pool) Alloc(threadHint int, v Value) Ref {
	si := p.shardFor(threadHint)
	s := p.shards[si]
	v.refs = 1
	s.mu.Lock()
	defer s.mu.Unlock()
	if n := len(s.free); n > 0 {
		slot := s.free[n-1]
		s.free = s.free[:n-1]
		s.values[slot] = &v
		return Ref{shard: si, slot: slot}
	}
	slot := int32(len(s.values))
	s.values = append(s.values, &v)
	return Ref{shard: si, slot: slot}
}

func (p *Pool) Get(r Ref) *Value {
	s := p.shards[r.shard]
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.values[r.slot]
}

// Retain increments r's refcount, used when a value is copied into
// another register or escapes into a cell (spec.md §4.7 "Reference
// counts track live uses").
func (p *Pool) Retain(r Ref) {
	v := p.Get(r)
	v.mu.Lock()
	v.refs++
	v.mu.Unlock()
}

// Release decrements r's refcount, freeing the slot at zero. Called from
// the VM's DROP handler and from callee-return cleanup (spec.md §4.7).
func (p *Pool) Release(r Ref) {
	s := p.shards[r.shard]
	v := s.values[r.slot]
	v.mu.Lock()
	v.refs--
	dead := v.refs <= 0
	v.mu.Unlock()
	if !dead {
		return
	}
	s.mu.Lock()
	s.values[r.slot] = nil
	s.free = append(s.free, r.slot)
	s.mu.Unlock()
}

// Escape moves or re-shards v so a value born in a private shard is safe
// to read from another thread, per spec.md §4.7's thread-safety property.
// This pool shares shards with atomic-ish locking already, so escaping a
// Ref is a no-op identity operation; it exists as the named operation the
// native ABI calls at _spawn/cell-write boundaries, documenting intent.
func (p *Pool) Escape(r Ref) Ref {
	return r
}
