package hashtable

import (
	"github.com/pkg/errors"

	"github.com/doquedb-go/hashkernel/kerrors"
)

// cursor is the shared representation behind Iterator and ConstIterator:
// a node pointer plus the table it was issued from, so that operator
// misuse (an iterator from one table handed to another table's Erase,
// or dereferenced after End()) can be diagnosed instead of segfaulting
// (spec.md §4.5 "Iterator invalidation").
type cursor[K comparable, V any] struct {
	node  *node[K, V]
	table *Table[K, V]
}

func (c cursor[K, V]) get() (K, V, error) {
	var zeroK K
	var zeroV V
	if c.table == nil || c.node == nil || c.node == c.table.sentinel {
		return zeroK, zeroV, kerrors.New(kerrors.OutOfRange, "hashtable", errors.New("dereference of end iterator"))
	}
	if c.node.tombstoned() {
		return zeroK, zeroV, kerrors.New(kerrors.BadArgument, "hashtable", errors.New("dereference of erased iterator"))
	}
	return c.node.key, c.node.val, nil
}

func (c cursor[K, V]) next() (cursor[K, V], error) {
	if c.table == nil || c.node == nil || c.node == c.table.sentinel {
		return cursor[K, V]{}, kerrors.New(kerrors.OutOfRange, "hashtable", errors.New("advance past end iterator"))
	}
	if c.node.tombstoned() {
		return cursor[K, V]{}, kerrors.New(kerrors.BadArgument, "hashtable", errors.New("advance of erased iterator"))
	}
	return cursor[K, V]{node: c.table.advance(c.node), table: c.table}, nil
}

func (c cursor[K, V]) equal(o cursor[K, V]) bool {
	return c.table == o.table && c.node == o.node
}

// Iterator is the mutable-path iterator returned by Find, Begin, End and
// Insert; a successful Find reorders its bucket by move-to-front, Begin
// does not (spec.md §4.5 "Iterator").
type Iterator[K comparable, V any] struct {
	cursor[K, V]
}

// Get returns the key/value the iterator points to. It raises
// kerrors.OutOfRange on the end iterator and kerrors.BadArgument on a
// tombstoned (erased) iterator.
func (it Iterator[K, V]) Get() (K, V, error) { return it.cursor.get() }

// Next returns an iterator to the following element in ordered-iteration
// order.
func (it Iterator[K, V]) Next() (Iterator[K, V], error) {
	c, err := it.cursor.next()
	if err != nil {
		return Iterator[K, V]{}, err
	}
	return Iterator[K, V]{c}, nil
}

// Equal reports whether it and o refer to the same element of the same
// table.
func (it Iterator[K, V]) Equal(o Iterator[K, V]) bool { return it.cursor.equal(o.cursor) }

// ConstIterator is the non-mutating iterator family: FindConst and
// ConstBegin never reorder a bucket (spec.md §4.5 "On a const table, it
// does not [move to front]").
type ConstIterator[K comparable, V any] struct {
	cursor[K, V]
}

// Get returns the key/value the iterator points to.
func (it ConstIterator[K, V]) Get() (K, V, error) { return it.cursor.get() }

// Next returns an iterator to the following element in ordered-iteration
// order.
func (it ConstIterator[K, V]) Next() (ConstIterator[K, V], error) {
	c, err := it.cursor.next()
	if err != nil {
		return ConstIterator[K, V]{}, err
	}
	return ConstIterator[K, V]{c}, nil
}

// Equal reports whether it and o refer to the same element of the same
// table.
func (it ConstIterator[K, V]) Equal(o ConstIterator[K, V]) bool { return it.cursor.equal(o.cursor) }
