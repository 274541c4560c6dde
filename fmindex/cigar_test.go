// Copyright (C) The Lightning Authors. All rights reserved.
//
// SPDX-License-Identifier: AGPL-3.0

package fmindex

import (
	"gopkg.in/check.v1"
)

type cigarSuite struct{}

var _ = check.Suite(&cigarSuite{})

func ops(s string) []Op {
	out := make([]Op, len(s))
	for i := range s {
		out[i] = Op(s[i])
	}
	return out
}

func (s *cigarSuite) TestEncode(c *check.C) {
	for _, trial := range []struct {
		ops      string
		collapse string
		distinct string
	}{
		{"", "", ""},
		{"MMMM", "4M", "4M"},
		{"MXMM", "4M", "1M1X2M"},
		{"MDMMMMMMIMMMM", "1M1D6M1I4M", "1M1D6M1I4M"},
		{"XXIIMDX", "2M2I1M1D1M", "2X2I1M1D1X"},
		{"I", "1I", "1I"},
	} {
		c.Check(EncodeCigar(ops(trial.ops), CollapseMismatch), check.Equals, trial.collapse)
		c.Check(EncodeCigar(ops(trial.ops), DistinctMismatch), check.Equals, trial.distinct)
	}
}

func (s *cigarSuite) TestConsumes(c *check.C) {
	c.Check(Match.ConsumesQuery() && Match.ConsumesReference(), check.Equals, true)
	c.Check(Mismatch.IsEdit(), check.Equals, true)
	c.Check(Match.IsEdit(), check.Equals, false)
	c.Check(Insertion.ConsumesReference(), check.Equals, false)
	c.Check(Deletion.ConsumesQuery(), check.Equals, false)
}

func (s *cigarSuite) TestRuns(c *check.C) {
	c.Check(Runs(nil, CollapseMismatch), check.HasLen, 0)
	c.Check(Runs(ops("MXXIM"), CollapseMismatch), check.DeepEquals, []Run{{Match, 3}, {Insertion, 1}, {Match, 1}})
	c.Check(Runs(ops("MXXIM"), DistinctMismatch), check.DeepEquals, []Run{{Match, 1}, {Mismatch, 2}, {Insertion, 1}, {Match, 1}})
}
