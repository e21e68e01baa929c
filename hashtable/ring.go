package hashtable

// ring is the link-ring collaborator (spec.md §4.4): a companion
// structure that turns the sparse bucket array into an ordered
// doubly-linked list of occupied bucket indices, so iteration costs
// O(elements) rather than O(table length).
//
// It is a single slice of 2*(length+1) int32s, exactly as spec.md
// describes: the first half is the "next" ring, the second half is
// "prev"; both share a dummy head at index 0. Stored values are
// bucket_index+1 so that 0 unambiguously means "not present". This
// makes the ring itself one contiguous allocation, matching spec.md
// §4.4/§9's "combined ... allocation in one contiguous block" for the
// ring independent of how the caller chooses to allocate its buckets.
type ring struct {
	length int
	link   []int32
}

func newRing(length int) *ring {
	return &ring{length: length, link: make([]int32, 2*(length+1))}
}

func (r *ring) next(i int) int32       { return r.link[i] }
func (r *ring) setNext(i int, v int32) { r.link[i] = v }
func (r *ring) prev(i int) int32       { return r.link[r.length+1+i] }
func (r *ring) setPrev(i int, v int32) { r.link[r.length+1+i] = v }

// pushBack splices bucket b (0-based) onto the tail of the ring, used
// when b's chain transitions empty -> non-empty.
func (r *ring) pushBack(b int) {
	id := int32(b + 1)
	tail := r.prev(0)
	r.setNext(int(tail), id)
	r.setPrev(int(id), tail)
	r.setNext(int(id), 0)
	r.setPrev(0, id)
}

// remove detaches bucket b from the ring, used when b's chain
// transitions non-empty -> empty.
func (r *ring) remove(b int) {
	id := int32(b + 1)
	p := r.prev(int(id))
	n := r.next(int(id))
	r.setNext(int(p), n)
	r.setPrev(int(n), p)
	r.setNext(int(id), 0)
	r.setPrev(int(id), 0)
}

// firstOccupied returns the first occupied bucket index in ring order,
// or -1 if the ring is empty.
func (r *ring) firstOccupied() int {
	v := r.next(0)
	if v == 0 {
		return -1
	}
	return int(v - 1)
}

// nextOccupied returns the bucket index that follows b in ring order,
// or -1 if b is the last occupied bucket.
func (r *ring) nextOccupied(b int) int {
	v := r.next(b + 1)
	if v == 0 {
		return -1
	}
	return int(v - 1)
}
