// Copyright (C) The Lightning Authors. All rights reserved.
//
// SPDX-License-Identifier: AGPL-3.0

package readmap

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"net/http"
	_ "net/http/pprof"
	"runtime"
	"sync/atomic"
	"time"

	"github.com/arvados/readmap/fmindex"
	"github.com/dustin/go-humanize"
	log "github.com/sirupsen/logrus"
)

type searcher struct {
	indexFile   string
	outputFile  string
	format      string
	threads     int
	verifyIndex bool
	config      searchConfig

	limited int64 // queries abandoned at the state limit
}

func (cmd *searcher) RunCommand(prog string, args []string, stdin io.Reader, stdout, stderr io.Writer) int {
	var err error
	defer func() {
		if err != nil {
			fmt.Fprintf(stderr, "%s\n", err)
		}
	}()
	flags := flag.NewFlagSet("", flag.ContinueOnError)
	flags.SetOutput(stderr)
	flags.Usage = func() {
		fmt.Fprintf(stderr, "usage: %s [options] reference.fasta reads.fastq\n", prog)
		flags.PrintDefaults()
	}
	flags.IntVar(&cmd.config.Budget, "d", 1, "maximum edit distance")
	flags.StringVar(&cmd.indexFile, "index", "", "index `file` (default: reference file name with .fmi.gob extension)")
	flags.StringVar(&cmd.outputFile, "o", "-", "output `file`")
	flags.StringVar(&cmd.format, "format", "tsv", "output `format` (tsv or sam)")
	flags.IntVar(&cmd.threads, "threads", runtime.NumCPU(), "number of queries to search concurrently")
	flags.BoolVar(&cmd.verifyIndex, "verify-index", false, "check each reference recovered from the index against its stored digest")
	flags.BoolVar(&cmd.config.HGVS, "hgvs", false, "describe differences from the reference in HGVS notation")
	flags.DurationVar(&cmd.config.HGVSTimeout, "hgvs-timeout", 0, "time limit for each HGVS diff; past it the description may not be minimal (0 = no limit)")
	flags.IntVar(&cmd.config.MaxStates, "max-states", 0, "give up on a query/reference pair after exploring this many search states (0 = no limit)")
	cigar := flags.String("cigar", "M", "CIGAR symbol for substitutions (M or X)")
	deletions := flags.String("deletions", "any", "reference symbols a deletion may skip: any (every base, which finds all alignments within -d edits; classic FM-index search does not do this) or query (classic: only a copy of the current query symbol)")
	pprof := flags.String("pprof", "", "serve Go profile data at http://`[addr]:port`")
	profileDir := flags.String("profile", "", "write CPU and memory profiles to `dir` every minute")
	loglevel := flags.String("loglevel", "info", "logging threshold (trace, debug, info, warn, error, fatal, or panic)")
	err = flags.Parse(args)
	if err == flag.ErrHelp {
		err = nil
		return 0
	} else if err != nil {
		return 2
	} else if flags.NArg() != 2 {
		flags.Usage()
		return 2
	}
	err = cmd.config.parse(*cigar, *deletions)
	if err == nil && cmd.format != "tsv" && cmd.format != "sam" {
		err = fmt.Errorf("invalid -format %q: must be tsv or sam", cmd.format)
	}
	if err != nil {
		return 2
	}

	if *pprof != "" {
		go func() {
			log.Println(http.ListenAndServe(*pprof, nil))
		}()
	}
	if *profileDir != "" {
		go writeProfilesPeriodically(*profileDir)
	}

	lvl, err := log.ParseLevel(*loglevel)
	if err != nil {
		return 2
	}
	log.SetLevel(lvl)

	refFile, readsFile := flags.Arg(0), flags.Arg(1)
	if cmd.indexFile == "" {
		cmd.indexFile = defaultIndexPath(refFile)
	}
	refs, err := cmd.loadIndex()
	if err != nil {
		return 1
	}
	queries, err := readRecordFile(readsFile, queryMarker)
	if err != nil {
		return 1
	}
	log.Printf("searching %s queries against %s references with up to %d edits", humanize.Comma(int64(len(queries))), humanize.Comma(int64(len(refs))), cmd.config.Budget)

	output, err := zcreate(cmd.outputFile, stdout)
	if err != nil {
		return 1
	}
	defer output.Close()
	var alnw alignmentWriter
	if cmd.format == "sam" {
		alnw, err = newSAMWriter(output, refs, &cmd.config)
		if err != nil {
			return 1
		}
	} else {
		alnw = newTSVWriter(output, cmd.config.HGVS)
	}

	t0 := time.Now()
	var nrecords int
	nrecords, err = cmd.searchAll(context.Background(), queries, refs, alnw)
	if err != nil {
		return 1
	}
	err = alnw.Close()
	if err != nil {
		return 1
	}
	err = output.Close()
	if err != nil {
		return 1
	}
	log.Printf("wrote %s records in %v", humanize.Comma(int64(nrecords)), time.Since(t0).Round(time.Millisecond))
	if n := atomic.LoadInt64(&cmd.limited); n > 0 {
		log.Warnf("%d query/reference pairs exceeded -max-states=%d and were skipped", n, cmd.config.MaxStates)
	}
	return 0
}

func (cfg *searchConfig) parse(cigar, deletions string) error {
	if cfg.Budget < 0 {
		return fmt.Errorf("invalid -d %d: must not be negative", cfg.Budget)
	}
	switch cigar {
	case "M":
		cfg.Style = fmindex.CollapseMismatch
	case "X":
		cfg.Style = fmindex.DistinctMismatch
	default:
		return fmt.Errorf("invalid -cigar %q: must be M or X", cigar)
	}
	switch deletions {
	case "any":
		cfg.Deletions = fmindex.DeleteAnySymbol
	case "query":
		cfg.Deletions = fmindex.DeleteQuerySymbol
	default:
		return fmt.Errorf("invalid -deletions %q: must be any or query", deletions)
	}
	return nil
}

func (cmd *searcher) loadIndex() ([]*reference, error) {
	t0 := time.Now()
	var rejected int
	entries, err := readIndexFile(cmd.indexFile, cmd.verifyIndex, func(err error) {
		log.Warnf("skipping index block: %s", err)
		rejected++
	})
	if err != nil {
		return nil, err
	}
	refs := make([]*reference, len(entries))
	var bases int64
	for i, ent := range entries {
		refs[i] = &reference{IndexEntry: ent}
		if cmd.config.HGVS {
			text := ent.Forward.Text()
			refs[i].text = text[:len(text)-1]
		}
		bases += int64(ent.Length)
	}
	log.Printf("loaded %s: %d references, %s bases, %d blocks skipped, in %v", cmd.indexFile, len(refs), humanize.Comma(bases), rejected, time.Since(t0).Round(time.Millisecond))
	return refs, nil
}

// searchAll maps every query against every reference and writes the
// resulting alignments in query order, then reference order, then
// hit order. It returns the number of alignments written.
func (cmd *searcher) searchAll(ctx context.Context, queries []record, refs []*reference, alnw alignmentWriter) (int, error) {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	results := make([]chan []Alignment, len(queries))
	for i := range results {
		results[i] = make(chan []Alignment, 1)
	}
	th := throttle{Max: cmd.threads}
	dispatched := make(chan struct{})
	go func() {
		defer close(dispatched)
		for i := range queries {
			i := i
			th.Acquire()
			go func() {
				defer th.Release()
				if th.Err() != nil {
					results[i] <- nil
					return
				}
				alns, err := cmd.mapQuery(ctx, queries[i], refs)
				th.Report(err)
				results[i] <- alns
			}()
		}
	}()

	n := 0
	for i := range queries {
		alns := <-results[i]
		if th.Err() != nil {
			break
		}
		for j := range alns {
			if err := alnw.Write(&alns[j]); err != nil {
				th.Report(err)
				break
			}
			n++
		}
	}
	cancel()
	<-dispatched
	return n, th.Wait()
}

// mapQuery returns the alignments of query against each reference.
func (cmd *searcher) mapQuery(ctx context.Context, query record, refs []*reference) ([]Alignment, error) {
	if len(query.Seq) == 0 {
		log.Warnf("%s: skipping empty query", query.Name)
		return nil, nil
	}
	var alns []Alignment
	for _, ref := range refs {
		D, ok := fmindex.Bound(ref.Reverse, query.Seq, cmd.config.Budget)
		if !ok {
			log.Tracef("%s: cannot align to %s with %d edits", query.Name, ref.Name, cmd.config.Budget)
			continue
		}
		hits, err := fmindex.Search(ctx, ref.Forward, query.Seq, D, fmindex.SearchOptions{
			Budget:    cmd.config.Budget,
			Deletions: cmd.config.Deletions,
			MaxStates: cmd.config.MaxStates,
		})
		if errors.Is(err, fmindex.ErrSearchLimit) {
			log.Warnf("%s: skipping reference %s: %s", query.Name, ref.Name, err)
			atomic.AddInt64(&cmd.limited, 1)
			continue
		} else if err != nil {
			return nil, fmt.Errorf("%s: %w", query.Name, err)
		}
		log.Debugf("%s: %d hits in %s", query.Name, len(hits), ref.Name)
		alns = append(alns, assemble(ref, query, hits, &cmd.config)...)
	}
	return alns, nil
}
