// Copyright (C) The Lightning Authors. All rights reserved.
//
// SPDX-License-Identifier: AGPL-3.0

package readmap

import (
	"bytes"
	"fmt"
	"io"

	"github.com/arvados/readmap/fmindex"
	"github.com/biogo/hts/sam"
	log "github.com/sirupsen/logrus"
)

var (
	tagNM = sam.NewTag("NM")
	tagHV = sam.NewTag("HV")
)

var samCigarType = map[fmindex.Op]sam.CigarOpType{
	fmindex.Match:     sam.CigarMatch,
	fmindex.Mismatch:  sam.CigarMismatch,
	fmindex.Insertion: sam.CigarInsertion,
	fmindex.Deletion:  sam.CigarDeletion,
}

// samWriter writes alignments as unpaired, forward-strand SAM
// records with MAPQ 255 and an NM tag.
type samWriter struct {
	w     *sam.Writer
	refs  map[string]*sam.Reference
	style fmindex.CigarStyle
	hgvs  bool
}

func newSAMWriter(w io.Writer, refs []*reference, cfg *searchConfig) (*samWriter, error) {
	sw := &samWriter{refs: map[string]*sam.Reference{}, style: cfg.Style, hgvs: cfg.HGVS}
	var samrefs []*sam.Reference
	for _, ref := range refs {
		if ref.Length == 0 {
			// SAM cannot describe an empty reference, and no
			// alignment can refer to one.
			log.Debugf("%s: omitting empty reference from SAM header", ref.Name)
			continue
		}
		if _, dup := sw.refs[ref.Name]; dup {
			return nil, fmt.Errorf("%s: duplicate reference name cannot be written as SAM", ref.Name)
		}
		samref, err := sam.NewReference(ref.Name, "", "", ref.Length, nil, nil)
		if err != nil {
			return nil, fmt.Errorf("%s: %w", ref.Name, err)
		}
		sw.refs[ref.Name] = samref
		samrefs = append(samrefs, samref)
	}
	h, err := sam.NewHeader(nil, samrefs)
	if err != nil {
		return nil, err
	}
	sw.w, err = sam.NewWriter(w, h, sam.FlagDecimal)
	if err != nil {
		return nil, err
	}
	return sw, nil
}

func (sw *samWriter) Write(aln *Alignment) error {
	var cigar []sam.CigarOp
	for _, run := range fmindex.Runs(aln.Ops, sw.style) {
		cigar = append(cigar, sam.NewCigarOp(samCigarType[run.Op], run.Len))
	}
	nm, err := sam.NewAux(tagNM, aln.Edits)
	if err != nil {
		return err
	}
	aux := []sam.Aux{nm}
	if sw.hgvs {
		hv, err := sam.NewAux(tagHV, aln.Variants)
		if err != nil {
			return err
		}
		aux = append(aux, hv)
	}
	rec, err := sam.NewRecord(aln.QueryName, sw.refs[aln.RefName], nil, aln.Position-1, -1, 0, 255, cigar, bytes.ToUpper(aln.Query), nil, aux)
	if err != nil {
		return fmt.Errorf("%s: %w", aln.QueryName, err)
	}
	return sw.w.Write(rec)
}

func (sw *samWriter) Close() error {
	return nil
}
