// Copyright (C) The Lightning Authors. All rights reserved.
//
// SPDX-License-Identifier: AGPL-3.0

package readmap

import (
	"bytes"
	"context"
	"time"

	"github.com/arvados/readmap/fmindex"
	"gopkg.in/check.v1"
)

type alignSuite struct{}

var _ = check.Suite(&alignSuite{})

func loadReference(c *check.C, name, seq string) *reference {
	ent, err := newIndexEntry(record{name, []byte(seq)})
	c.Assert(err, check.IsNil)
	return &reference{IndexEntry: ent, text: []byte(seq)}
}

func searchReference(c *check.C, ref *reference, query string, cfg *searchConfig) []Alignment {
	D, ok := fmindex.Bound(ref.Reverse, []byte(query), cfg.Budget)
	if !ok {
		return nil
	}
	hits, err := fmindex.Search(context.Background(), ref.Forward, []byte(query), D, fmindex.SearchOptions{Budget: cfg.Budget, Deletions: cfg.Deletions})
	c.Assert(err, check.IsNil)
	return assemble(ref, record{"q", []byte(query)}, hits, cfg)
}

func (s *alignSuite) TestAssemble(c *check.C) {
	ref := loadReference(c, "chr1", "TTACGTTTACGTTT")
	alns := searchReference(c, ref, "ACGT", &searchConfig{Budget: 0})
	c.Assert(alns, check.HasLen, 2)
	var positions []int
	for _, aln := range alns {
		c.Check(aln.QueryName, check.Equals, "q")
		c.Check(aln.RefName, check.Equals, "chr1")
		c.Check(aln.Cigar, check.Equals, "4M")
		c.Check(aln.Edits, check.Equals, 0)
		c.Check(aln.Variants, check.Equals, "")
		positions = append(positions, aln.Position)
	}
	c.Check(positions, check.DeepEquals, []int{9, 3})

	alns = searchReference(c, ref, "ACCGT", &searchConfig{Budget: 1, Style: fmindex.DistinctMismatch, HGVS: true})
	var found bool
	for _, aln := range alns {
		if aln.Position == 3 && aln.Cigar == "2M1I2M" {
			found = true
			c.Check(aln.Variants, check.Matches, `chr1:g\.(3_4insC|4_5insC)`)
		}
		c.Check(aln.Edits, check.Equals, 1)
	}
	c.Check(found, check.Equals, true)
}

func (s *alignSuite) TestHGVSMatchesAlignment(c *check.C) {
	ref := loadReference(c, "chr1", "GATTACAGATTACACCGGTTAACG")
	alns := searchReference(c, ref, "CCGCTTAA", &searchConfig{Budget: 1, HGVS: true})
	c.Assert(alns, check.HasLen, 1)
	c.Check(alns[0].Position, check.Equals, 15)
	c.Check(alns[0].Variants, check.Equals, "chr1:g.18G>C")

	alns = searchReference(c, ref, "CCGCTTAA", &searchConfig{Budget: 1, HGVS: true, HGVSTimeout: time.Minute})
	c.Assert(alns, check.HasLen, 1)
	c.Check(alns[0].Variants, check.Equals, "chr1:g.18G>C")

	alns = searchReference(c, ref, "CCGCTTAA", &searchConfig{Budget: 2, HGVS: true})
	for _, aln := range alns {
		c.Check(aln.Variants, check.Not(check.Equals), "chr1:g.=", check.Commentf("%+v", aln))
	}
}

func (s *alignSuite) TestRefSpan(c *check.C) {
	c.Check(refSpan(nil), check.Equals, 0)
	c.Check(refSpan([]fmindex.Op{fmindex.Match, fmindex.Insertion, fmindex.Deletion, fmindex.Mismatch}), check.Equals, 3)
}

func (s *alignSuite) TestTSVWriter(c *check.C) {
	aln := Alignment{QueryName: "r1", RefName: "chr1", Position: 42, Cigar: "3M", Query: []byte("acg"), Variants: "chr1:g.="}
	var buf bytes.Buffer
	w := newTSVWriter(&buf, false)
	c.Check(w.Write(&aln), check.IsNil)
	c.Check(w.Close(), check.IsNil)
	c.Check(buf.String(), check.Equals, "r1\tchr1\t42\t3M\tacg\n")

	buf.Reset()
	w = newTSVWriter(&buf, true)
	c.Check(w.Write(&aln), check.IsNil)
	c.Check(w.Close(), check.IsNil)
	c.Check(buf.String(), check.Equals, "r1\tchr1\t42\t3M\tacg\tchr1:g.=\n")
}
