// Copyright (C) The Lightning Authors. All rights reserved.
//
// SPDX-License-Identifier: AGPL-3.0

package readmap

import (
	"bufio"
	"bytes"
	"fmt"
	"io"
	"strconv"
	"time"

	"github.com/arvados/readmap/fmindex"
	"github.com/arvados/readmap/hgvs"
	log "github.com/sirupsen/logrus"
)

// Alignment is one output record: a query aligned at one position
// of one reference.
type Alignment struct {
	QueryName string
	RefName   string
	Position  int // 1-based
	Cigar     string
	Edits     int
	Query     []byte
	Ops       []fmindex.Op

	// HGVS description of the differences, if requested.
	Variants string
}

type searchConfig struct {
	Budget    int
	Style     fmindex.CigarStyle
	Deletions fmindex.DeletionPolicy
	MaxStates int
	HGVS      bool
	// HGVSTimeout limits the time spent on each HGVS diff; 0 means
	// no limit.
	HGVSTimeout time.Duration
}

// reference is an index entry loaded for searching.
type reference struct {
	*IndexEntry
	text []byte // recovered sequence, only loaded for HGVS output
}

// assemble expands hits into one Alignment per suffix array row, in
// hit order.
func assemble(ref *reference, query record, hits []fmindex.Hit, cfg *searchConfig) []Alignment {
	var alns []Alignment
	for _, hit := range hits {
		cigar := fmindex.EncodeCigar(hit.Ops, cfg.Style)
		if cfg.Budget == 0 {
			cigar = strconv.Itoa(len(query.Seq)) + "M"
		}
		for i := hit.L; i < hit.R; i++ {
			aln := Alignment{
				QueryName: query.Name,
				RefName:   ref.Name,
				Position:  ref.Forward.SA[i] + 1,
				Cigar:     cigar,
				Edits:     hit.Edits,
				Query:     query.Seq,
				Ops:       hit.Ops,
			}
			if cfg.HGVS {
				aln.Variants = ref.describe(&aln, cfg.HGVSTimeout)
			}
			alns = append(alns, aln)
		}
	}
	return alns
}

// refSpan returns the number of reference bases covered by ops.
func refSpan(ops []fmindex.Op) int {
	n := 0
	for _, op := range ops {
		if op.ConsumesReference() {
			n++
		}
	}
	return n
}

// describe returns the HGVS description of aln. If the diff runs out
// of time, the description is valid but may not be minimal.
func (ref *reference) describe(aln *Alignment, timeout time.Duration) string {
	start := aln.Position - 1
	span := ref.text[start : start+refSpan(aln.Ops)]
	variants, timedOut := hgvs.Diff(string(span), string(bytes.ToUpper(aln.Query)), aln.Position, timeout)
	if timedOut {
		log.Debugf("%s: HGVS diff against %s:%d timed out after %v", aln.QueryName, ref.Name, aln.Position, timeout)
	}
	return hgvs.Format(ref.Name, variants)
}

type alignmentWriter interface {
	Write(*Alignment) error
	Close() error
}

// tsvWriter writes one tab-separated line per alignment: query name,
// reference name, position, CIGAR, query sequence, and (optionally)
// HGVS variants.
type tsvWriter struct {
	bufw *bufio.Writer
	hgvs bool
}

func newTSVWriter(w io.Writer, withHGVS bool) *tsvWriter {
	return &tsvWriter{bufw: bufio.NewWriterSize(w, 1<<20), hgvs: withHGVS}
}

func (w *tsvWriter) Write(aln *Alignment) error {
	var err error
	if w.hgvs {
		_, err = fmt.Fprintf(w.bufw, "%s\t%s\t%d\t%s\t%s\t%s\n", aln.QueryName, aln.RefName, aln.Position, aln.Cigar, aln.Query, aln.Variants)
	} else {
		_, err = fmt.Fprintf(w.bufw, "%s\t%s\t%d\t%s\t%s\n", aln.QueryName, aln.RefName, aln.Position, aln.Cigar, aln.Query)
	}
	return err
}

func (w *tsvWriter) Close() error {
	return w.bufw.Flush()
}
