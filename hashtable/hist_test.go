package hashtable_test

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/doquedb-go/hashkernel/hashtable"
	"github.com/doquedb-go/hashkernel/memhandle"
)

func TestWriteHistogramUniformTable(t *testing.T) {
	h := memhandle.New("test")
	tbl, err := hashtable.New[int, string](h, 4, intHasher, hashtable.WithLinkRing[int, string](false))
	require.NoError(t, err)
	require.Equal(t, 7, tbl.BucketCount())

	var buf strings.Builder
	require.NoError(t, tbl.WriteHistogram(&buf))

	// Every bucket is empty: one transition line for bucket 0, then a
	// single ":     :" for the run of zeros through the end of the
	// table - no closing line, matching ModHashTable::printHist.
	want := "bucket#(0-7)\n00000 0\n:     :\n"
	require.Equal(t, want, buf.String())
}

func TestWriteHistogramTransitions(t *testing.T) {
	h := memhandle.New("test")
	tbl, err := hashtable.New[int, string](h, 4, intHasher, hashtable.WithLinkRing[int, string](false))
	require.NoError(t, err)
	require.Equal(t, 7, tbl.BucketCount())

	// bucket 0 holds two nodes (keys 0 and 7, both 0 mod 7); every
	// other bucket stays empty.
	_, _, err = tbl.Insert(0, "v", false)
	require.NoError(t, err)
	_, _, err = tbl.Insert(7, "v", false)
	require.NoError(t, err)

	var buf strings.Builder
	require.NoError(t, tbl.WriteHistogram(&buf))

	want := "bucket#(0-7)\n00000 2\n00001 0\n:     :\n"
	require.Equal(t, want, buf.String())
}
