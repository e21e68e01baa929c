// Command hashdump is a small operator tool that builds a string-keyed
// table from a newline-delimited "key\tvalue" file and prints its
// bucket histogram (spec.md §6), the one externally observable output
// this container defines.
package main

import (
	"bufio"
	"fmt"
	"hash/fnv"
	"os"
	"strings"

	"github.com/c2h5oh/datasize"
	log "github.com/erigontech/erigon-lib/log/v3"
	"github.com/spf13/cobra"

	"github.com/doquedb-go/hashkernel/hashtable"
	"github.com/doquedb-go/hashkernel/memhandle"
)

var (
	ceilingFlag string
	noRingFlag  bool
)

func main() {
	if err := newRootCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "hashdump <file>",
		Short: "Build a hash table from a key/value file and print its bucket histogram",
		Args:  cobra.ExactArgs(1),
		RunE:  runDump,
	}
	cmd.Flags().StringVar(&ceilingFlag, "ceiling", "", "memory handle ceiling, e.g. 64MB (default unbounded)")
	cmd.Flags().BoolVar(&noRingFlag, "no-ring", false, "disable link-ring iteration (falls back to a bucket scan)")
	return cmd
}

func stringHasher(key string) (uint64, error) {
	h := fnv.New64a()
	if _, err := h.Write([]byte(key)); err != nil {
		return 0, err
	}
	return h.Sum64(), nil
}

func runDump(cmd *cobra.Command, args []string) error {
	f, err := os.Open(args[0])
	if err != nil {
		return fmt.Errorf("open %s: %w", args[0], err)
	}
	defer f.Close()

	var opts []memhandle.Option
	if ceilingFlag != "" {
		var v datasize.ByteSize
		if err := v.UnmarshalText([]byte(ceilingFlag)); err != nil {
			return fmt.Errorf("parse --ceiling %q: %w", ceilingFlag, err)
		}
		opts = append(opts, memhandle.WithCeiling(v))
	}
	handle := memhandle.New("hashdump", opts...)

	tbl, err := hashtable.New[string, string](handle, 0, stringHasher,
		hashtable.WithLinkRing[string, string](!noRingFlag))
	if err != nil {
		return fmt.Errorf("construct table: %w", err)
	}

	scanner := bufio.NewScanner(f)
	lineNo := 0
	for scanner.Scan() {
		lineNo++
		line := scanner.Text()
		if line == "" {
			continue
		}
		parts := strings.SplitN(line, "\t", 2)
		if len(parts) != 2 {
			log.Warn("hashdump: skipping malformed line", "line", lineNo)
			continue
		}
		if _, _, err := tbl.Insert(parts[0], parts[1], true); err != nil {
			return fmt.Errorf("insert at line %d: %w", lineNo, err)
		}
	}
	if err := scanner.Err(); err != nil {
		return fmt.Errorf("read %s: %w", args[0], err)
	}

	log.Info("hashdump: loaded table", "elements", tbl.Len(), "buckets", tbl.BucketCount(), "handle", handle.Name(), "bytesInUse", handle.InUse())
	return tbl.WriteHistogram(os.Stdout)
}
