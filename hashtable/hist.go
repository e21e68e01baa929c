package hashtable

import (
	"bufio"
	"fmt"
	"io"
)

// WriteHistogram writes a per-bucket chain-length histogram to w, the
// one externally observable diagnostic surface spec.md §6 names
// ("print the chain length of every bucket"). It reproduces
// ModHashTable::printHist exactly: a line is printed only when a
// bucket's chain length differs from the previous bucket's, and a run
// of repeats collapses to a single ":     :" line with no line marking
// where the run ends - including a run that runs to the end of the
// table, which prints no further line at all.
func (t *Table[K, V]) WriteHistogram(w io.Writer) error {
	bw := bufio.NewWriter(w)
	if _, err := fmt.Fprintf(bw, "bucket#(0-%d)\n", t.length); err != nil {
		return err
	}

	prev := -1
	continued := false
	for i := 0; i < t.length; i++ {
		n := 0
		for p := t.buckets[i]; p != nil; p = p.next {
			n++
		}
		if n != prev {
			if _, err := fmt.Fprintf(bw, "%05d %d\n", i, n); err != nil {
				return err
			}
			prev = n
			continued = false
		} else if !continued {
			if _, err := fmt.Fprintln(bw, ":     :"); err != nil {
				return err
			}
			continued = true
		}
	}
	return bw.Flush()
}
