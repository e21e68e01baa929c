package hashtable

import "testing"

func TestRingPushBackOrder(t *testing.T) {
	r := newRing(7)
	for _, b := range []int{3, 0, 5, 1} {
		r.pushBack(b)
	}
	got := []int{}
	for b := r.firstOccupied(); b != -1; b = r.nextOccupied(b) {
		got = append(got, b)
	}
	want := []int{3, 0, 5, 1}
	if len(got) != len(want) {
		t.Fatalf("got %v, want %v", got, want)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("got %v, want %v", got, want)
		}
	}
}

func TestRingRemoveMiddle(t *testing.T) {
	r := newRing(7)
	for _, b := range []int{3, 0, 5, 1} {
		r.pushBack(b)
	}
	r.remove(0)
	got := []int{}
	for b := r.firstOccupied(); b != -1; b = r.nextOccupied(b) {
		got = append(got, b)
	}
	want := []int{3, 5, 1}
	if len(got) != len(want) {
		t.Fatalf("got %v, want %v", got, want)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("got %v, want %v", got, want)
		}
	}
}

func TestRingEmpty(t *testing.T) {
	r := newRing(7)
	if r.firstOccupied() != -1 {
		t.Fatalf("expected empty ring to report -1")
	}
}

func TestRingRemoveThenPushBack(t *testing.T) {
	r := newRing(7)
	r.pushBack(2)
	r.remove(2)
	if r.firstOccupied() != -1 {
		t.Fatalf("expected empty ring after removing only element")
	}
	r.pushBack(4)
	if r.firstOccupied() != 4 {
		t.Fatalf("expected 4, got %d", r.firstOccupied())
	}
}
