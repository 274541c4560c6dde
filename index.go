// Copyright (C) The Lightning Authors. All rights reserved.
//
// SPDX-License-Identifier: AGPL-3.0

package readmap

import (
	"flag"
	"fmt"
	"io"
	"net/http"
	_ "net/http/pprof"
	"runtime"
	"sync/atomic"
	"time"

	"github.com/dustin/go-humanize"
	log "github.com/sirupsen/logrus"
)

type indexer struct {
	outputFile string
	threads    int
}

func (cmd *indexer) RunCommand(prog string, args []string, stdin io.Reader, stdout, stderr io.Writer) int {
	var err error
	defer func() {
		if err != nil {
			fmt.Fprintf(stderr, "%s\n", err)
		}
	}()
	flags := flag.NewFlagSet("", flag.ContinueOnError)
	flags.SetOutput(stderr)
	flags.Usage = func() {
		fmt.Fprintf(stderr, "usage: %s [options] reference.fasta\n", prog)
		flags.PrintDefaults()
	}
	flags.StringVar(&cmd.outputFile, "o", "", "output `file` (default: reference file name with .fmi.gob extension; \"-\" for stdout)")
	flags.IntVar(&cmd.threads, "threads", runtime.NumCPU(), "number of references to index concurrently")
	pprof := flags.String("pprof", "", "serve Go profile data at http://`[addr]:port`")
	loglevel := flags.String("loglevel", "info", "logging threshold (trace, debug, info, warn, error, fatal, or panic)")
	err = flags.Parse(args)
	if err == flag.ErrHelp {
		err = nil
		return 0
	} else if err != nil {
		return 2
	} else if flags.NArg() != 1 {
		flags.Usage()
		return 2
	}

	if *pprof != "" {
		go func() {
			log.Println(http.ListenAndServe(*pprof, nil))
		}()
	}

	lvl, err := log.ParseLevel(*loglevel)
	if err != nil {
		return 2
	}
	log.SetLevel(lvl)

	refFile := flags.Arg(0)
	if cmd.outputFile == "" {
		cmd.outputFile = defaultIndexPath(refFile)
	}
	t0 := time.Now()
	records, err := readRecordFile(refFile, referenceMarker)
	if err != nil {
		return 1
	}

	entries := make([]*IndexEntry, len(records))
	var failed int64
	th := throttle{Max: cmd.threads}
	for i, rec := range records {
		i, rec := i, rec
		th.Go(func() error {
			ent, err := newIndexEntry(rec)
			if err != nil {
				log.Warnf("skipping reference: %s", err)
				atomic.AddInt64(&failed, 1)
				return nil
			}
			log.Debugf("%s: indexed %s bases", rec.Name, humanize.Comma(int64(ent.Length)))
			entries[i] = ent
			return nil
		})
	}
	err = th.Wait()
	if err != nil {
		return 1
	}
	kept := entries[:0]
	var bases int64
	for _, ent := range entries {
		if ent != nil {
			kept = append(kept, ent)
			bases += int64(ent.Length)
		}
	}

	output, err := zcreate(cmd.outputFile, stdout)
	if err != nil {
		return 1
	}
	defer output.Close()
	err = EncodeIndex(output, kept)
	if err != nil {
		return 1
	}
	err = output.Close()
	if err != nil {
		return 1
	}
	log.Printf("indexed %d references (%s bases) from %s to %s in %v", len(kept), humanize.Comma(bases), refFile, cmd.outputFile, time.Since(t0).Round(time.Millisecond))
	if failed > 0 {
		err = fmt.Errorf("%d reference sequences could not be indexed", failed)
		return 1
	}
	return 0
}
