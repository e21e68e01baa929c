// Package hashtable implements the generic in-memory hash table with
// ordered iteration described in spec.md: separate-chaining buckets
// sized from the fixed prime table, an optional link ring for
// O(elements) iteration, move-to-front-on-find, and node splicing
// between tables without copying. It is grounded directly on
// ModHashTable (common/lib/linux64/mod/1.0/include/ModHashTable.h,
// mod/1.0/m.common/src/ModHashTable.cpp) in _examples/original_source.
package hashtable

import (
	"github.com/pkg/errors"

	"github.com/doquedb-go/hashkernel/internal/imath"
	"github.com/doquedb-go/hashkernel/kerrors"
	"github.com/doquedb-go/hashkernel/memhandle"
	"github.com/doquedb-go/hashkernel/prime"
)

// ptrSize is the nominal byte cost of one bucket-array slot, used only
// for memhandle accounting. It is an approximation (Go does not expose
// a portable sizeof for interface/pointer values at the generic-type
// level); the accounting exists to enforce ceilings and observe usage,
// not to mirror an exact memory layout.
const ptrSize = 8

// ringSlotSize is the nominal byte cost of one link-ring slot.
const ringSlotSize = 4

// nodeByteCost is the nominal byte cost of one bucket-chain node,
// accounted through the owning table's memory handle on every Insert
// and released on every Erase/EraseKey/Clear/Splice-away, so that
// Handle.InUse() reflects live element count in addition to scaffold
// size (spec.md §3 "Node" / §4.3: "Allocated through the memory
// handle").
const nodeByteCost = 40

// Hasher computes a key's hash. It returns an error instead of
// panicking so that a failing hash function propagates through normal
// Go error handling (spec.md §4.5 "Hash functor throws: the exception
// propagates; table is unchanged").
type Hasher[K comparable] func(key K) (uint64, error)

// Pair is a raw key/value used by NewFromSeq's array form.
type Pair[K comparable, V any] struct {
	Key   K
	Value V
}

// Table is the generic keyed hash table (spec.md §4.5 "Table body").
type Table[K comparable, V any] struct {
	handle *memhandle.Handle
	token  uint64
	hasher Hasher[K]

	length int
	size   int

	buckets  []*node[K, V] // len == length+1; buckets[length] is the sentinel slot
	sentinel *node[K, V]
	ring     *ring // nil when link-ring iteration is disabled

	// scaffold anchors the raw buffer the handle's Backing materialized
	// for the current bucket-array+ring reservation. The typed bucket
	// and ring slices are built independently - safely reinterpreting
	// raw bytes as pointer-typed slots would require unsafe.Pointer,
	// which this module (like its teacher) never reaches for - so
	// scaffold exists purely to keep Backing/MMapBacking load-bearing
	// rather than configuration that nothing ever calls.
	scaffold []byte

	ringEnabled bool
	moveToFront bool
}

// Option configures a Table at construction time.
type Option[K comparable, V any] func(*Table[K, V])

// WithLinkRing selects link-assisted O(elements) iteration (spec.md
// §4.4). Enabled by default; WithLinkRing(false) falls back to a
// linear scan of the bucket array.
func WithLinkRing[K comparable, V any](enabled bool) Option[K, V] {
	return func(t *Table[K, V]) { t.ringEnabled = enabled }
}

// WithMoveToFront selects whether a successful mutable Find relocates
// the found node to the head of its bucket (spec.md §9, Open Question:
// "a re-implementation may omit move-to-front as a configuration
// switch"). Enabled by default, matching the source's unconditional
// behavior.
func WithMoveToFront[K comparable, V any](enabled bool) Option[K, V] {
	return func(t *Table[K, V]) { t.moveToFront = enabled }
}

// New constructs a Table sized for at least capacity elements (rounded
// up via prime.RoundUp, spec.md §4.1/S1) backed by handle.
func New[K comparable, V any](handle *memhandle.Handle, capacity int, hasher Hasher[K], opts ...Option[K, V]) (*Table[K, V], error) {
	if handle == nil {
		return nil, kerrors.New(kerrors.NotInitialized, "hashtable", errors.New("nil memory handle"))
	}
	if capacity < 0 {
		capacity = 0
	}
	t := &Table[K, V]{handle: handle, hasher: hasher, moveToFront: true, ringEnabled: true}
	for _, opt := range opts {
		opt(t)
	}
	length := prime.RoundUp(uint64(capacity))
	if err := t.allocate(length); err != nil {
		return nil, err
	}
	return t, nil
}

// NewFromSeq builds a Table from pairs, pre-sizing to sizeHint (when
// known) so that no incremental rehash occurs while the initial
// elements are inserted (spec.md §4.5 "Construct-from-range").
func NewFromSeq[K comparable, V any](handle *memhandle.Handle, hasher Hasher[K], sizeHint int, pairs []Pair[K, V], opts ...Option[K, V]) (*Table[K, V], error) {
	capacity := sizeHint
	if capacity < len(pairs) {
		capacity = len(pairs)
	}
	t, err := New[K, V](handle, capacity, hasher, opts...)
	if err != nil {
		return nil, err
	}
	for _, p := range pairs {
		if _, _, err := t.Insert(p.Key, p.Value, true); err != nil {
			return nil, err
		}
	}
	return t, nil
}

// scaffoldBytes computes the combined bucket-array + link-ring byte
// cost for a table of the given length, matching spec.md §4.4/§9's
// "combined bucket + link-ring allocation in one contiguous block":
// the two structures are reserved from the handle with a single call,
// so one Reserve/Release pair always covers the whole scaffold.
func (t *Table[K, V]) scaffoldBytes(length uint64) (uint64, bool) {
	bucketBytes, overflow := imath.SafeMul(length+1, ptrSize)
	if overflow {
		return 0, true
	}
	if !t.ringEnabled {
		return bucketBytes, false
	}
	ringBytes, overflow := imath.SafeMul(2*(length+1), ringSlotSize)
	if overflow {
		return 0, true
	}
	total, overflow := imath.SafeAdd(bucketBytes, ringBytes)
	return total, overflow
}

func (t *Table[K, V]) allocate(length uint64) error {
	total, overflow := t.scaffoldBytes(length)
	if overflow {
		return kerrors.Newf(kerrors.MemoryExhausted, "hashtable", "bucket array of length %d overflows accounting", length)
	}
	token, buf, err := t.handle.GrowReserve(total)
	if err != nil {
		return err
	}
	t.token = token
	t.scaffold = buf
	t.length = int(length)
	t.buckets = make([]*node[K, V], length+1)
	t.sentinel = &node[K, V]{}
	t.sentinel.tombstone()
	t.buckets[length] = t.sentinel
	if t.ringEnabled {
		t.ring = newRing(int(length))
	}
	return nil
}

// Len returns the number of elements stored.
func (t *Table[K, V]) Len() int { return t.size }

// Empty reports whether the table holds no elements.
func (t *Table[K, V]) Empty() bool { return t.size == 0 }

// BucketCount returns the current bucket-array length.
func (t *Table[K, V]) BucketCount() int { return t.length }

// Hasher returns the table's hash functor.
func (t *Table[K, V]) Hasher() Hasher[K] { return t.hasher }

// Begin returns an iterator to the first element in ordered-iteration
// order, or End() if the table is empty.
func (t *Table[K, V]) Begin() Iterator[K, V] {
	b := t.firstOccupiedBucket()
	if b == -1 {
		return t.End()
	}
	return Iterator[K, V]{cursor[K, V]{node: t.buckets[b], table: t}}
}

// End returns the sentinel end iterator.
func (t *Table[K, V]) End() Iterator[K, V] {
	return Iterator[K, V]{cursor[K, V]{node: t.sentinel, table: t}}
}

// ConstBegin/ConstEnd mirror Begin/End for the non-mutating family.
func (t *Table[K, V]) ConstBegin() ConstIterator[K, V] {
	b := t.firstOccupiedBucket()
	if b == -1 {
		return t.ConstEnd()
	}
	return ConstIterator[K, V]{cursor[K, V]{node: t.buckets[b], table: t}}
}

func (t *Table[K, V]) ConstEnd() ConstIterator[K, V] {
	return ConstIterator[K, V]{cursor[K, V]{node: t.sentinel, table: t}}
}

func (t *Table[K, V]) firstOccupiedBucket() int {
	if t.ring != nil {
		return t.ring.firstOccupied()
	}
	for i := 0; i < t.length; i++ {
		if t.buckets[i] != nil {
			return i
		}
	}
	return -1
}

// advance returns the node that follows n in ordered-iteration order,
// or the sentinel if n is the last element.
func (t *Table[K, V]) advance(n *node[K, V]) *node[K, V] {
	if n.next != nil {
		return n.next
	}
	b := int(n.hash % uint64(t.length))
	var nb int
	if t.ring != nil {
		nb = t.ring.nextOccupied(b)
	} else {
		nb = -1
		for i := b + 1; i < t.length; i++ {
			if t.buckets[i] != nil {
				nb = i
				break
			}
		}
	}
	if nb == -1 {
		return t.sentinel
	}
	return t.buckets[nb]
}

// Front returns the key/value the ordered iteration would visit first.
// It raises kerrors.OutOfRange on an empty table (spec.md §4.5
// "getFront").
func (t *Table[K, V]) Front() (K, V, error) {
	it := t.Begin()
	return it.Get()
}

// Insert inserts key/val. If duplicateCheck is set and a node with an
// equal key already exists in key's bucket, it is returned unchanged
// and inserted is false (spec.md §4.5 "insert").
func (t *Table[K, V]) Insert(key K, val V, duplicateCheck bool) (it Iterator[K, V], inserted bool, err error) {
	h, err := t.hasher(key)
	if err != nil {
		return Iterator[K, V]{}, false, err
	}
	b := int(h % uint64(t.length))

	if duplicateCheck {
		for n := t.buckets[b]; n != nil; n = n.next {
			if n.hash == h && n.key == key {
				return Iterator[K, V]{cursor[K, V]{node: n, table: t}}, false, nil
			}
		}
	}

	if uint64(t.size+1) > 2*uint64(t.length) {
		newLen := prime.RoundUp(imath.CeilDiv(uint64(t.size+1), 2))
		if err := t.resize(newLen); err != nil {
			return Iterator[K, V]{}, false, err
		}
		b = int(h % uint64(t.length))
	}

	memToken, err := t.handle.Reserve(nodeByteCost)
	if err != nil {
		return Iterator[K, V]{}, false, err
	}

	wasEmpty := t.buckets[b] == nil
	n := &node[K, V]{key: key, val: val, hash: h, next: t.buckets[b], memToken: memToken}
	t.buckets[b] = n
	if wasEmpty && t.ring != nil {
		t.ring.pushBack(b)
	}
	t.size++
	return Iterator[K, V]{cursor[K, V]{node: n, table: t}}, true, nil
}

// Find looks up key on the mutable path: a successful lookup moves the
// found node to the head of its bucket (spec.md §4.5 "find").
func (t *Table[K, V]) Find(key K) (Iterator[K, V], error) {
	h, err := t.hasher(key)
	if err != nil {
		return Iterator[K, V]{}, err
	}
	b := int(h % uint64(t.length))
	var prev *node[K, V]
	for n := t.buckets[b]; n != nil; prev, n = n, n.next {
		if n.hash == h && n.key == key {
			if t.moveToFront && prev != nil {
				prev.next = n.next
				n.next = t.buckets[b]
				t.buckets[b] = n
			}
			return Iterator[K, V]{cursor[K, V]{node: n, table: t}}, nil
		}
	}
	return t.End(), nil
}

// FindConst looks up key without ever reordering the bucket (spec.md
// §4.5 "On a const table, it does not [move to front]").
func (t *Table[K, V]) FindConst(key K) (ConstIterator[K, V], error) {
	h, err := t.hasher(key)
	if err != nil {
		return ConstIterator[K, V]{}, err
	}
	b := int(h % uint64(t.length))
	for n := t.buckets[b]; n != nil; n = n.next {
		if n.hash == h && n.key == key {
			return ConstIterator[K, V]{cursor[K, V]{node: n, table: t}}, nil
		}
	}
	return t.ConstEnd(), nil
}

// Erase removes the element it points to. It raises
// kerrors.BadArgument if it is the end iterator or already tombstoned
// (spec.md §4.5 "erase(iterator)").
func (t *Table[K, V]) Erase(it Iterator[K, V]) error {
	n := it.node
	if it.table != t || n == nil || n == t.sentinel {
		return kerrors.New(kerrors.BadArgument, "hashtable", errors.New("erase on end iterator"))
	}
	if n.tombstoned() {
		return kerrors.New(kerrors.BadArgument, "hashtable", errors.New("erase of tombstoned iterator"))
	}
	b := int(n.hash % uint64(t.length))
	var prev *node[K, V]
	for cur := t.buckets[b]; cur != nil; prev, cur = cur, cur.next {
		if cur == n {
			if prev == nil {
				t.buckets[b] = cur.next
			} else {
				prev.next = cur.next
			}
			if t.buckets[b] == nil && t.ring != nil {
				t.ring.remove(b)
			}
			if err := t.handle.Release(cur.memToken); err != nil {
				return err
			}
			cur.tombstone()
			t.size--
			return nil
		}
	}
	return kerrors.New(kerrors.BadArgument, "hashtable", errors.New("iterator does not belong to this table"))
}

// EraseKey removes the run of contiguous nodes whose key equals key,
// starting at the first match in key's bucket, and returns the count
// removed. Duplicates (inserted with duplicateCheck false) are adjacent
// when they were inserted back to back, since each insert prepends; a
// node with an equal key that is separated from the first run by a
// node with a different key is not removed (spec.md §4.5 "erase(key)").
func (t *Table[K, V]) EraseKey(key K) (int, error) {
	h, err := t.hasher(key)
	if err != nil {
		return 0, err
	}
	b := int(h % uint64(t.length))

	var prev *node[K, V]
	n := t.buckets[b]
	for n != nil && !(n.hash == h && n.key == key) {
		prev, n = n, n.next
	}
	if n == nil {
		return 0, nil
	}

	count := 0
	for n != nil && n.hash == h && n.key == key {
		next := n.next
		if err := t.handle.Release(n.memToken); err != nil {
			return count, err
		}
		n.tombstone()
		count++
		n = next
	}
	if prev == nil {
		t.buckets[b] = n
	} else {
		prev.next = n
	}
	if t.buckets[b] == nil && t.ring != nil {
		t.ring.remove(b)
	}
	t.size -= count
	return count, nil
}

// EraseRange erases [first, last), advancing first before each removal
// so the iterator used for removal is never the one just invalidated
// (spec.md §4.5 "erase(first, last)").
func (t *Table[K, V]) EraseRange(first, last Iterator[K, V]) error {
	it := first
	for it.node != last.node {
		next, err := it.Next()
		if err != nil {
			return err
		}
		if err := t.Erase(it); err != nil {
			return err
		}
		it = next
	}
	return nil
}

// PopFront erases the element Begin() points to.
func (t *Table[K, V]) PopFront() error {
	if t.size == 0 {
		return kerrors.New(kerrors.OutOfRange, "hashtable", errors.New("popFront on empty table"))
	}
	return t.Erase(t.Begin())
}

// Clear removes every element, releasing each node's memory-handle
// reservation. It does not change the bucket-array length (spec.md
// §4.5 "clear").
func (t *Table[K, V]) Clear() error {
	for i := 0; i < t.length; i++ {
		for n := t.buckets[i]; n != nil; {
			next := n.next
			if err := t.handle.Release(n.memToken); err != nil {
				return err
			}
			n.tombstone()
			n = next
		}
		t.buckets[i] = nil
	}
	if t.ring != nil {
		t.ring = newRing(t.length)
	}
	t.size = 0
	return nil
}

// occupiedBucketsInOrder returns occupied bucket indices in the order
// ordered iteration visits them.
func (t *Table[K, V]) occupiedBucketsInOrder() []int {
	order := make([]int, 0, t.size)
	if t.ring != nil {
		for b := t.ring.firstOccupied(); b != -1; b = t.ring.nextOccupied(b) {
			order = append(order, b)
		}
		return order
	}
	for b := 0; b < t.length; b++ {
		if t.buckets[b] != nil {
			order = append(order, b)
		}
	}
	return order
}

// resize grows the table to a new bucket-array length (rounded up via
// prime.RoundUp) and rehashes every node exactly once (spec.md §4.5
// "resize", §7 "every resize moves every node exactly once"). A
// newLen <= the current length is a no-op.
func (t *Table[K, V]) resize(newLen uint64) error {
	if newLen <= uint64(t.length) {
		return nil
	}
	newLen = prime.RoundUp(newLen)

	total, overflow := t.scaffoldBytes(newLen)
	if overflow {
		return kerrors.Newf(kerrors.MemoryExhausted, "hashtable", "resize to length %d overflows accounting", newLen)
	}
	newToken, newScaffold, err := t.handle.GrowReserve(total)
	if err != nil {
		return err
	}

	newBuckets := make([]*node[K, V], newLen+1)
	newBuckets[newLen] = t.sentinel
	var newR *ring
	if t.ring != nil {
		newR = newRing(int(newLen))
	}

	for _, b := range t.occupiedBucketsInOrder() {
		for n := t.buckets[b]; n != nil; {
			next := n.next
			nb := int(n.hash % newLen)
			wasEmpty := newBuckets[nb] == nil
			n.next = newBuckets[nb]
			newBuckets[nb] = n
			if wasEmpty && newR != nil {
				newR.pushBack(nb)
			}
			n = next
		}
	}

	oldToken := t.token
	t.buckets = newBuckets
	t.length = int(newLen)
	t.ring = newR
	t.token = newToken
	t.scaffold = newScaffold
	return t.handle.Release(oldToken)
}

// Splice detaches the node it points to from src and attaches it to t
// without copying or destroying it (spec.md §4.5 "splice"). If
// src == t, it is a no-op and it is returned unchanged.
func (t *Table[K, V]) Splice(src *Table[K, V], it Iterator[K, V]) (Iterator[K, V], error) {
	if src == t {
		return it, nil
	}
	n := it.node
	if it.table != src || n == nil || n == src.sentinel {
		return Iterator[K, V]{}, kerrors.New(kerrors.BadArgument, "hashtable", errors.New("splice from end iterator"))
	}
	if n.tombstoned() {
		return Iterator[K, V]{}, kerrors.New(kerrors.BadArgument, "hashtable", errors.New("splice of tombstoned node"))
	}

	b := int(n.hash % uint64(src.length))
	var prev *node[K, V]
	cur := src.buckets[b]
	for cur != nil && cur != n {
		prev, cur = cur, cur.next
	}
	if cur == nil {
		return Iterator[K, V]{}, kerrors.New(kerrors.BadArgument, "hashtable", errors.New("iterator does not belong to src"))
	}
	if prev == nil {
		src.buckets[b] = n.next
	} else {
		prev.next = n.next
	}
	if src.buckets[b] == nil && src.ring != nil {
		src.ring.remove(b)
	}
	if err := src.handle.Release(n.memToken); err != nil {
		return Iterator[K, V]{}, err
	}
	src.size--

	if uint64(t.size+1) > 2*uint64(t.length) {
		if err := t.resize(prime.RoundUp(imath.CeilDiv(uint64(t.size+1), 2))); err != nil {
			return Iterator[K, V]{}, err
		}
	}
	memToken, err := t.handle.Reserve(nodeByteCost)
	if err != nil {
		return Iterator[K, V]{}, err
	}
	n.memToken = memToken

	nb := int(n.hash % uint64(t.length))
	wasEmpty := t.buckets[nb] == nil
	n.next = t.buckets[nb]
	t.buckets[nb] = n
	if wasEmpty && t.ring != nil {
		t.ring.pushBack(nb)
	}
	t.size++
	return Iterator[K, V]{cursor[K, V]{node: n, table: t}}, nil
}

// SpliceRange moves [first, last) from src to t one node at a time.
func (t *Table[K, V]) SpliceRange(src *Table[K, V], first, last Iterator[K, V]) error {
	if src == t {
		return nil
	}
	it := first
	for it.node != last.node {
		next, err := it.Next()
		if err != nil {
			return err
		}
		if _, err := t.Splice(src, it); err != nil {
			return err
		}
		it = next
	}
	return nil
}

// Clone deep-copies every node into a new table, preserving ordered
// iteration order (spec.md §4.5 "Copy construct / assign"). The clone
// has its own link ring if and only if t does.
func (t *Table[K, V]) Clone() (*Table[K, V], error) {
	dst, err := New[K, V](t.handle, t.length, t.hasher, WithLinkRing[K, V](t.ring != nil), WithMoveToFront[K, V](t.moveToFront))
	if err != nil {
		return nil, err
	}
	var chain []*node[K, V]
	for _, b := range t.occupiedBucketsInOrder() {
		chain = chain[:0]
		for n := t.buckets[b]; n != nil; n = n.next {
			chain = append(chain, n)
		}
		for i := len(chain) - 1; i >= 0; i-- {
			if _, _, err := dst.Insert(chain[i].key, chain[i].val, false); err != nil {
				return nil, err
			}
		}
	}
	return dst, nil
}

// Destroy frees every node and releases the table's reservation on its
// memory handle (spec.md §4.5 "Destroy").
func (t *Table[K, V]) Destroy() error {
	if err := t.Clear(); err != nil {
		return err
	}
	if t.handle != nil && t.token != 0 {
		err := t.handle.Release(t.token)
		t.token = 0
		return err
	}
	return nil
}
