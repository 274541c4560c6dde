// Copyright (C) The Lightning Authors. All rights reserved.
//
// SPDX-License-Identifier: AGPL-3.0

package readmap

import (
	"bytes"
	"errors"

	"github.com/arvados/readmap/fmindex"
	"github.com/klauspost/pgzip"
	"gopkg.in/check.v1"
)

type indexFileSuite struct{}

var _ = check.Suite(&indexFileSuite{})

func (s *indexFileSuite) TestDefaultIndexPath(c *check.C) {
	for in, expect := range map[string]string{
		"genome.fa":            "genome.fmi.gob",
		"genome.fasta":         "genome.fmi.gob",
		"dir/genome.FA.gz":     "dir/genome.fmi.gob",
		"genome.txt":           "genome.fmi.gob",
		"genome":               "genome.fmi.gob",
		"dir.v2/genome.seq":    "dir.v2/genome.seq.fmi.gob",
		"/tmp/x.y/hg38.fna.gz": "/tmp/x.y/hg38.fmi.gob",
	} {
		c.Check(defaultIndexPath(in), check.Equals, expect, check.Commentf("%s", in))
	}
}

func (s *indexFileSuite) TestRoundTrip(c *check.C) {
	var entries []*IndexEntry
	for _, rec := range []record{
		{"chr1", []byte("GATTACAGATTACA")},
		{"empty", nil},
		{"chr2", []byte("acgtn"[:4])},
	} {
		ent, err := newIndexEntry(rec)
		c.Assert(err, check.IsNil)
		entries = append(entries, ent)
	}
	for _, gz := range []bool{false, true} {
		var buf bytes.Buffer
		if gz {
			gzw := pgzip.NewWriter(&buf)
			c.Assert(EncodeIndex(gzw, entries), check.IsNil)
			c.Assert(gzw.Close(), check.IsNil)
		} else {
			c.Assert(EncodeIndex(&buf, entries), check.IsNil)
		}
		var got []*IndexEntry
		err := DecodeIndex(&buf, gz, func(ent *IndexEntry) error {
			got = append(got, ent)
			return nil
		})
		c.Assert(err, check.IsNil)
		c.Assert(got, check.HasLen, len(entries))
		for i, ent := range got {
			c.Check(ent.Name, check.Equals, entries[i].Name)
			c.Check(ent.Length, check.Equals, entries[i].Length)
			c.Check(ent.Validate(), check.IsNil)
			c.Check(ent.VerifyDigest(), check.IsNil)
			c.Check(ent.Forward.SA, check.DeepEquals, entries[i].Forward.SA)
			c.Check(ent.Forward.C, check.Equals, entries[i].Forward.C)
			c.Check(ent.Reverse.SA, check.IsNil)
		}
		c.Check(string(got[2].Forward.Text()), check.Equals, "ACGT$")
	}
}

func (s *indexFileSuite) TestDecodeCallbackError(c *check.C) {
	ent, err := newIndexEntry(record{"chr1", []byte("ACGT")})
	c.Assert(err, check.IsNil)
	var buf bytes.Buffer
	c.Assert(EncodeIndex(&buf, []*IndexEntry{ent, ent}), check.IsNil)
	stop := errors.New("stop")
	n := 0
	err = DecodeIndex(&buf, false, func(*IndexEntry) error {
		n++
		return stop
	})
	c.Check(err, check.Equals, stop)
	c.Check(n, check.Equals, 1)

	err = DecodeIndex(bytes.NewBufferString("not a gob stream"), false, func(*IndexEntry) error { return nil })
	c.Check(errors.Is(err, fmindex.ErrMalformedIndex), check.Equals, true)
}

func (s *indexFileSuite) TestValidate(c *check.C) {
	build := func() *IndexEntry {
		ent, err := newIndexEntry(record{"chr1", []byte("GATTACA")})
		c.Assert(err, check.IsNil)
		return ent
	}

	ent := build()
	ent.Length++
	c.Check(ent.Validate(), check.ErrorMatches, `chr1: malformed index: length 8 does not match .*`)

	ent = build()
	ent.Reverse = nil
	c.Check(ent.Validate(), check.ErrorMatches, `chr1: malformed index: missing .*`)

	ent = build()
	ent.Forward.SA = nil
	c.Check(ent.Validate(), check.ErrorMatches, `chr1: malformed index: forward index has no suffix array`)

	ent = build()
	other, err := newIndexEntry(record{"chr1", []byte("GATTACC")})
	c.Assert(err, check.IsNil)
	ent.Reverse = other.Reverse
	c.Check(ent.Validate(), check.ErrorMatches, `chr1: malformed index: forward and reverse indexes have different 'A' counts`)

	ent = build()
	ent.Forward.SA[3], ent.Forward.SA[6] = ent.Forward.SA[6], ent.Forward.SA[3]
	c.Check(ent.Validate(), check.ErrorMatches, `chr1: malformed index: .*suffix array .*`)

	ent = build()
	ent.Blake2b[0] ^= 1
	c.Check(ent.Validate(), check.IsNil)
	c.Check(errors.Is(ent.VerifyDigest(), fmindex.ErrMalformedIndex), check.Equals, true)
}
