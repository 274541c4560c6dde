// Copyright (C) The Lightning Authors. All rights reserved.
//
// SPDX-License-Identifier: AGPL-3.0

package readmap

import (
	"bufio"
	"io"
	"os"
	"strings"

	"github.com/klauspost/pgzip"
)

// zopen returns a reader for the given file, decompressing it if the
// name ends in ".gz".
func zopen(fnm string) (io.ReadCloser, error) {
	f, err := os.Open(fnm)
	if err != nil || !strings.HasSuffix(fnm, ".gz") {
		return f, err
	}
	rdr, err := pgzip.NewReader(bufio.NewReaderSize(f, 4*1024*1024))
	if err != nil {
		f.Close()
		return nil, err
	}
	return gzipr{rdr, f}, nil
}

// zcreate returns a writer for the given file, or for stdout if fnm
// is "-", compressing if the name ends in ".gz". Close flushes
// everything and closes the file.
func zcreate(fnm string, stdout io.Writer) (io.WriteCloser, error) {
	if fnm == "-" {
		bufw := bufio.NewWriterSize(stdout, 1<<20)
		return &zwriter{Writer: bufw, flush: bufw.Flush}, nil
	}
	f, err := os.OpenFile(fnm, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, 0644)
	if err != nil {
		return nil, err
	}
	bufw := bufio.NewWriterSize(f, 4*1024*1024)
	zw := &zwriter{Writer: bufw, flush: bufw.Flush, file: f}
	if strings.HasSuffix(fnm, ".gz") {
		gzw := pgzip.NewWriter(bufw)
		zw.Writer = gzw
		zw.gz = gzw
	}
	return zw, nil
}

// gzipr wraps a ReadCloser and a Closer, presenting a single Close()
// method that closes both wrapped objects.
type gzipr struct {
	io.ReadCloser
	io.Closer
}

func (gr gzipr) Close() error {
	e1 := gr.ReadCloser.Close()
	e2 := gr.Closer.Close()
	if e1 != nil {
		return e1
	}
	return e2
}

type zwriter struct {
	io.Writer
	gz    *pgzip.Writer
	flush func() error
	file  *os.File
}

func (zw *zwriter) Close() error {
	var err error
	if zw.gz != nil {
		err = zw.gz.Close()
	}
	if e := zw.flush(); err == nil {
		err = e
	}
	if zw.file != nil {
		if e := zw.file.Close(); err == nil {
			err = e
		}
	}
	return err
}
