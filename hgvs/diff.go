// Copyright (C) The Lightning Authors. All rights reserved.
//
// SPDX-License-Identifier: AGPL-3.0

// Package hgvs describes how an aligned read differs from the
// reference span it aligned to, using HGVS genomic ("g.") notation.
package hgvs

import (
	"fmt"
	"strings"
	"time"

	"github.com/sergi/go-diff/diffmatchpatch"
)

// Variant is one difference between a reference and a read. Position
// is 1-based on the reference. For an insertion, Ref is empty and the
// inserted bases follow Position-1.
type Variant struct {
	Position int
	Ref      string
	New      string
}

func (v Variant) String() string {
	last := v.Position + len(v.Ref) - 1
	switch {
	case v.Ref == "" && v.New == "":
		return fmt.Sprintf("%d=", v.Position)
	case v.Ref == "":
		return fmt.Sprintf("%d_%dins%s", v.Position-1, v.Position, v.New)
	case v.New == "" && len(v.Ref) == 1:
		return fmt.Sprintf("%ddel", v.Position)
	case v.New == "":
		return fmt.Sprintf("%d_%ddel", v.Position, last)
	case len(v.Ref) == 1 && len(v.New) == 1:
		return fmt.Sprintf("%d%s>%s", v.Position, v.Ref, v.New)
	case len(v.Ref) == 1:
		return fmt.Sprintf("%ddelins%s", v.Position, v.New)
	default:
		return fmt.Sprintf("%d_%ddelins%s", v.Position, last, v.New)
	}
}

// Diff returns the variants that turn ref into read. Positions are
// offset by start, the 1-based reference position of ref[0].
//
// If timeout is positive and the diff takes longer, a valid but
// possibly non-minimal answer is returned and timedOut is true.
func Diff(ref, read string, start int, timeout time.Duration) (variants []Variant, timedOut bool) {
	dmp := diffmatchpatch.New()
	var deadline time.Time
	if timeout > 0 {
		deadline = time.Now().Add(timeout)
	}
	diffs := dmp.DiffBisect(ref, read, deadline)
	timedOut = timeout > 0 && time.Now().After(deadline)
	diffs = normalize(dmp.DiffCleanupEfficiency(diffs))

	pos := start
	for i := 0; i < len(diffs); {
		if diffs[i].Type == diffmatchpatch.DiffEqual {
			pos += len(diffs[i].Text)
			i++
			continue
		}
		v := Variant{Position: pos}
		for ; i < len(diffs) && diffs[i].Type != diffmatchpatch.DiffEqual; i++ {
			if diffs[i].Type == diffmatchpatch.DiffDelete {
				v.Ref += diffs[i].Text
			} else {
				v.New += diffs[i].Text
			}
		}
		pos += len(v.Ref)
		variants = append(variants, v)
	}
	return variants, timedOut
}

// normalize merges adjacent diffs of the same type, and rewrites
// [del X, =E, ins YE] as [del X, ins EY, =E] so that a substitution
// next to a repeat is reported as one delins.
func normalize(in []diffmatchpatch.Diff) []diffmatchpatch.Diff {
	merged := make([]diffmatchpatch.Diff, 0, len(in))
	for _, d := range in {
		if n := len(merged); n > 0 && merged[n-1].Type == d.Type {
			merged[n-1].Text += d.Text
		} else {
			merged = append(merged, d)
		}
	}
	for i := 0; i+2 < len(merged); i++ {
		del, eq, ins := merged[i], merged[i+1], merged[i+2]
		if del.Type == diffmatchpatch.DiffDelete &&
			eq.Type == diffmatchpatch.DiffEqual &&
			ins.Type == diffmatchpatch.DiffInsert &&
			strings.HasSuffix(ins.Text, eq.Text) {
			ins.Text = eq.Text + ins.Text[:len(ins.Text)-len(eq.Text)]
			merged[i+1], merged[i+2] = ins, eq
		}
	}
	return merged
}

// Apply returns the read obtained by applying variants, which must be
// sorted and non-overlapping, to ref. start is the 1-based reference
// position of ref[0].
func Apply(ref string, start int, variants []Variant) (string, error) {
	var out strings.Builder
	next := 0
	for _, v := range variants {
		at := v.Position - start
		if at < next || at+len(v.Ref) > len(ref) {
			return "", fmt.Errorf("variant %s outside reference span or out of order", v)
		} else if ref[at:at+len(v.Ref)] != v.Ref {
			return "", fmt.Errorf("variant %s does not match reference %q", v, ref[at:at+len(v.Ref)])
		}
		out.WriteString(ref[next:at])
		out.WriteString(v.New)
		next = at + len(v.Ref)
	}
	out.WriteString(ref[next:])
	return out.String(), nil
}

// Format returns variants in "seqname:g.variant" form, separated by
// semicolons, or "seqname:g.=" if there are none.
func Format(seqname string, variants []Variant) string {
	if len(variants) == 0 {
		return seqname + ":g.="
	}
	parts := make([]string, len(variants))
	for i, v := range variants {
		parts[i] = seqname + ":g." + v.String()
	}
	return strings.Join(parts, ";")
}
