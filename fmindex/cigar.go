// Copyright (C) The Lightning Authors. All rights reserved.
//
// SPDX-License-Identifier: AGPL-3.0

package fmindex

import (
	"strconv"
	"strings"
)

// Op is one alignment operation.
type Op byte

const (
	Match     Op = 'M'
	Mismatch  Op = 'X'
	Insertion Op = 'I' // query symbol absent from the reference
	Deletion  Op = 'D' // reference symbol absent from the query
)

// ConsumesQuery reports whether op advances along the query.
func (op Op) ConsumesQuery() bool { return op != Deletion }

// ConsumesReference reports whether op advances along the reference.
func (op Op) ConsumesReference() bool { return op != Insertion }

// IsEdit reports whether op counts against the edit budget.
func (op Op) IsEdit() bool { return op != Match }

// CigarStyle selects how substitutions are written.
type CigarStyle int

const (
	// CollapseMismatch writes substitutions as M, so a CIGAR
	// does not distinguish them from matches.
	CollapseMismatch CigarStyle = iota
	// DistinctMismatch writes substitutions as X.
	DistinctMismatch
)

func (style CigarStyle) symbol(op Op) byte {
	if op == Mismatch && style == CollapseMismatch {
		return byte(Match)
	}
	return byte(op)
}

// A Run is a stretch of consecutive operations written with the
// same CIGAR symbol.
type Run struct {
	Op  Op
	Len int
}

// Runs groups ops, given in query order, into runs. With
// CollapseMismatch, substitutions join the surrounding matches and
// the run's Op is Match.
func Runs(ops []Op, style CigarStyle) []Run {
	var runs []Run
	for i := 0; i < len(ops); {
		sym := style.symbol(ops[i])
		j := i + 1
		for j < len(ops) && style.symbol(ops[j]) == sym {
			j++
		}
		runs = append(runs, Run{Op: Op(sym), Len: j - i})
		i = j
	}
	return runs
}

// EncodeCigar run-length encodes ops, given in query order.
func EncodeCigar(ops []Op, style CigarStyle) string {
	var buf strings.Builder
	for _, run := range Runs(ops, style) {
		buf.WriteString(strconv.Itoa(run.Len))
		buf.WriteByte(byte(run.Op))
	}
	return buf.String()
}
