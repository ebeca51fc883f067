// Copyright 2025 Google LLC
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

package tio

import (
	"bufio"
	"io"

	"github.com/klauspost/compress/gzip"
	"github.com/klauspost/compress/zstd"
	"github.com/pierrec/lz4/v4"
	"github.com/pkg/errors"
)

// Compression of a tensor file.
type Compression int

// Supported compressions.
const (
	None Compression = iota
	Gzip
	Zstd
	LZ4
)

func compressionOf(ext string) Compression {
	switch ext {
	case "gz":
		return Gzip
	case "zst":
		return Zstd
	case "lz4":
		return LZ4
	}
	return None
}

// String returns the file suffix of the compression.
func (c Compression) String() string {
	switch c {
	case Gzip:
		return "gz"
	case Zstd:
		return "zst"
	case LZ4:
		return "lz4"
	}
	return "none"
}

func newReader(r io.Reader, c Compression) (io.ReadCloser, error) {
	switch c {
	case Gzip:
		zr, err := gzip.NewReader(r)
		if err != nil {
			return nil, errors.WithStack(err)
		}
		return zr, nil
	case Zstd:
		dec, err := zstd.NewReader(r)
		if err != nil {
			return nil, errors.WithStack(err)
		}
		return dec.IOReadCloser(), nil
	case LZ4:
		return io.NopCloser(lz4.NewReader(r)), nil
	}
	return io.NopCloser(bufio.NewReader(r)), nil
}

// flusher flushes a buffered writer when closed.
type flusher struct {
	*bufio.Writer
}

func (f flusher) Close() error { return f.Flush() }

func newWriter(w io.Writer, c Compression) (io.WriteCloser, error) {
	switch c {
	case Gzip:
		return gzip.NewWriter(w), nil
	case Zstd:
		enc, err := zstd.NewWriter(w, zstd.WithEncoderLevel(zstd.SpeedDefault))
		if err != nil {
			return nil, errors.WithStack(err)
		}
		return enc, nil
	case LZ4:
		return lz4.NewWriter(w), nil
	}
	return flusher{Writer: bufio.NewWriter(w)}, nil
}
