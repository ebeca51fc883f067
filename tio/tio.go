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

// Package tio reads and writes tensors from and to files.
//
// The file format is given by the extension of the file name: .tns, .mtx,
// .rb, or .msgp. The extension may be followed by a compression suffix,
// .gz, .zst, or .lz4, in which case the file is transparently
// decompressed when read and compressed when written.
package tio

import (
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/pkg/errors"
	"go.uber.org/multierr"
	"github.com/gx-org/sptensor/base/fmterr"
	"github.com/gx-org/sptensor/format"
	"github.com/gx-org/sptensor/tensor"
)

// FileFormat is the format of a tensor file.
type FileFormat int

// File formats.
const (
	// TNS is the FROSTT coordinate format: one entry per line, 1-based
	// coordinates followed by the value.
	TNS FileFormat = iota
	// MTX is the MatrixMarket exchange format.
	MTX
	// RB is the Rutherford-Boeing format.
	RB
	// MSGP is a msgpack snapshot of the packed storage of a tensor.
	MSGP
)

var extensions = map[string]FileFormat{
	"tns":  TNS,
	"mtx":  MTX,
	"rb":   RB,
	"msgp": MSGP,
}

// String returns the extension of the format.
func (f FileFormat) String() string {
	for ext, ff := range extensions {
		if ff == f {
			return ext
		}
	}
	return "invalid"
}

type codec interface {
	read(r io.Reader, name string, f format.Format, opts []tensor.Option) (tensor.Tensor, error)
	write(w io.Writer, t tensor.Tensor) error
}

func codecOf(ff FileFormat) (codec, error) {
	switch ff {
	case TNS:
		return tnsCodec{}, nil
	case MTX:
		return mtxCodec{}, nil
	case RB:
		return rbCodec{}, nil
	case MSGP:
		return msgpCodec{}, nil
	}
	return nil, fmterr.Usagef("unknown file format %d", int(ff))
}

// Parse returns the file format and the compression of a file given its name.
func Parse(filename string) (FileFormat, Compression, error) {
	ext := strings.TrimPrefix(filepath.Ext(filename), ".")
	comp := compressionOf(ext)
	if comp != None {
		ext = strings.TrimPrefix(filepath.Ext(strings.TrimSuffix(filename, "."+ext)), ".")
	}
	ff, ok := extensions[ext]
	if !ok {
		return 0, None, fmterr.Usagef("file extension not recognized: %s", filename)
	}
	return ff, comp, nil
}

// nameOf returns the default name of a tensor read from a file: the base
// name of the file without its extensions.
func nameOf(filename string) string {
	base := filepath.Base(filename)
	if i := strings.IndexByte(base, '.'); i > 0 {
		return base[:i]
	}
	return base
}

// Read a tensor from a file. The name of the tensor defaults to the base
// name of the file. The tensor is packed into f, or into an all-sparse
// format if f has no level.
func Read(filename string, f format.Format, name string, opts ...tensor.Option) (t tensor.Tensor, err error) {
	ff, comp, err := Parse(filename)
	if err != nil {
		return tensor.Tensor{}, err
	}
	if name == "" {
		name = nameOf(filename)
	}
	file, err := os.Open(filename)
	if err != nil {
		return tensor.Tensor{}, errors.WithStack(err)
	}
	defer func() {
		err = multierr.Append(err, file.Close())
	}()
	r, err := newReader(file, comp)
	if err != nil {
		return tensor.Tensor{}, errors.Wrapf(err, "cannot read %s", filename)
	}
	defer func() {
		err = multierr.Append(err, r.Close())
	}()
	if t, err = ReadFrom(r, ff, f, name, opts...); err != nil {
		return tensor.Tensor{}, errors.Wrapf(err, "cannot read %s", filename)
	}
	return t, nil
}

// ReadInto reads the entries of a file into a declared tensor and packs them.
//
// The dimensions in the header of a MatrixMarket or Rutherford-Boeing file
// must be the dimensions of the tensor. The coordinates of a FROSTT file
// must fit in the dimensions of the tensor. Rutherford-Boeing files can only
// be read into CSC tensors.
func ReadInto(filename string, t tensor.Tensor) error {
	ff, _, err := Parse(filename)
	if err != nil {
		return err
	}
	var f format.Format
	if ff == RB {
		f = t.Format()
	}
	src, err := Read(filename, f, t.Name())
	if err != nil {
		return err
	}
	if src.Order() != t.Order() {
		return fmterr.Usagef("tensor %s of order %d: %s has a tensor of order %d", t.Name(), t.Order(), filename, src.Order())
	}
	for i, dim := range src.Dims() {
		want := t.Dims()[i]
		if dim == want || (ff == TNS && dim < want) {
			continue
		}
		return fmterr.Usagef("tensor %s: dimension %d is %d in %s but the tensor declares %d", t.Name(), i, dim, filename, want)
	}
	entries, err := src.Entries()
	if err != nil {
		return err
	}
	for coords, val := range entries {
		v := val.Float()
		if v == 0 {
			continue
		}
		if err := t.Insert(coords, v); err != nil {
			return errors.Wrapf(err, "cannot read %s", filename)
		}
	}
	return t.Pack()
}

// ReadFrom reads a tensor in a given file format from a reader.
func ReadFrom(r io.Reader, ff FileFormat, f format.Format, name string, opts ...tensor.Option) (tensor.Tensor, error) {
	c, err := codecOf(ff)
	if err != nil {
		return tensor.Tensor{}, err
	}
	return c.read(r, name, f, opts)
}

// Write a tensor to a file. Only the packed entries of the tensor are
// written.
func Write(filename string, t tensor.Tensor) (err error) {
	ff, comp, err := Parse(filename)
	if err != nil {
		return err
	}
	c, err := codecOf(ff)
	if err != nil {
		return err
	}
	file, err := os.Create(filename)
	if err != nil {
		return errors.WithStack(err)
	}
	defer func() {
		err = multierr.Append(err, file.Close())
	}()
	w, err := newWriter(file, comp)
	if err != nil {
		return errors.Wrapf(err, "cannot write %s", filename)
	}
	if err := c.write(w, t); err != nil {
		return multierr.Append(errors.Wrapf(err, "cannot write %s", filename), w.Close())
	}
	return w.Close()
}

// WriteTo writes a tensor in a given file format to a writer.
func WriteTo(w io.Writer, ff FileFormat, t tensor.Tensor) error {
	c, err := codecOf(ff)
	if err != nil {
		return err
	}
	return c.write(w, t)
}

// storageFormat returns the format into which a tensor read from a file is
// packed.
func storageFormat(f format.Format, order int) (format.Format, error) {
	if f.Order() == 0 && order > 0 {
		return format.AllSparse(order), nil
	}
	if err := f.Validate(order); err != nil {
		return format.Format{}, err
	}
	return f, nil
}
