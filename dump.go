// Copyright (C) The Lightning Authors. All rights reserved.
//
// SPDX-License-Identifier: AGPL-3.0

package readmap

import (
	"bufio"
	"flag"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/arvados/readmap/fmindex"
	log "github.com/sirupsen/logrus"
)

type dumper struct{}

func (cmd *dumper) RunCommand(prog string, args []string, stdin io.Reader, stdout, stderr io.Writer) int {
	var err error
	defer func() {
		if err != nil {
			fmt.Fprintf(stderr, "%s\n", err)
		}
	}()
	flags := flag.NewFlagSet("", flag.ContinueOnError)
	flags.SetOutput(stderr)
	inputFilename := flags.String("i", "-", "input index `file`")
	verify := flags.Bool("verify", false, "recover each reference and check its digest")
	loglevel := flags.String("loglevel", "info", "logging threshold (trace, debug, info, warn, error, fatal, or panic)")
	err = flags.Parse(args)
	if err == flag.ErrHelp {
		err = nil
		return 0
	} else if err != nil {
		return 2
	} else if flags.NArg() > 0 {
		err = fmt.Errorf("errant command line arguments after parsed flags: %v", flags.Args())
		return 2
	}

	lvl, err := log.ParseLevel(*loglevel)
	if err != nil {
		return 2
	}
	log.SetLevel(lvl)

	input := io.ReadCloser(io.NopCloser(stdin))
	if *inputFilename != "-" {
		input, err = os.Open(*inputFilename)
		if err != nil {
			return 1
		}
	}
	defer input.Close()
	bufw := bufio.NewWriter(stdout)

	var n, bad int
	err = DecodeIndex(input, strings.HasSuffix(*inputFilename, ".gz"), func(ent *IndexEntry) error {
		n++
		status := "ok"
		err := ent.Validate()
		if err == nil && *verify {
			err = ent.VerifyDigest()
		}
		fmt.Fprintf(bufw, "%s\tlength %d\tblake2b %x\t", ent.Name, ent.Length, ent.Blake2b[:8])
		if err == nil {
			for s := 1; s < fmindex.AlphabetSize; s++ {
				fmt.Fprintf(bufw, "%c:%d ", fmindex.Alphabet[s], ent.Forward.O[s][ent.Length+1])
			}
		} else {
			bad++
			status = err.Error()
		}
		fmt.Fprintf(bufw, "\t%s\n", status)
		return nil
	})
	if err != nil {
		return 1
	}
	fmt.Fprintf(bufw, "total: %d references, %d malformed\n", n, bad)
	err = bufw.Flush()
	if err != nil {
		return 1
	}
	if bad > 0 {
		err = fmt.Errorf("%d malformed index blocks", bad)
		return 1
	}
	return 0
}
