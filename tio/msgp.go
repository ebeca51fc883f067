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
	"io"

	"github.com/pkg/errors"
	"github.com/vmihailenco/msgpack/v5"
	"github.com/gx-org/sptensor/base/fmterr"
	"github.com/gx-org/sptensor/ctype"
	"github.com/gx-org/sptensor/format"
	"github.com/gx-org/sptensor/storage"
	"github.com/gx-org/sptensor/tensor"
)

type (
	levelSnapshot struct {
		Type      format.LevelType `msgpack:"type"`
		Dimension int              `msgpack:"dim"`
		Ptr       []int32          `msgpack:"ptr"`
		Idx       []int32          `msgpack:"idx,omitempty"`
	}

	// snapshot of a packed tensor. Values holds the raw bytes of the
	// values array in native byte order.
	snapshot struct {
		Name   string          `msgpack:"name"`
		Type   ctype.Type      `msgpack:"type"`
		Dims   []int           `msgpack:"dims"`
		Levels []levelSnapshot `msgpack:"levels"`
		Values []byte          `msgpack:"values"`
		Packed bool            `msgpack:"packed"`
	}
)

type msgpCodec struct{}

func indices(a *storage.Array, n int) ([]int32, error) {
	if a == nil {
		return nil, nil
	}
	vals, err := storage.View[int32](a)
	if err != nil {
		return nil, err
	}
	return vals[:n], nil
}

func takeSnapshot(t tensor.Tensor) (*snapshot, error) {
	snap := &snapshot{
		Name:   t.Name(),
		Type:   t.Type(),
		Dims:   t.Dims(),
		Levels: make([]levelSnapshot, t.Order()),
	}
	for i, level := range t.Format().Levels() {
		snap.Levels[i] = levelSnapshot{Type: level.Type, Dimension: level.Dimension}
	}
	s := t.Storage()
	if s.Values() == nil {
		return snap, nil
	}
	size, err := s.Size()
	if err != nil {
		return nil, err
	}
	for i := range snap.Levels {
		li := s.LevelIndex(i)
		if snap.Levels[i].Ptr, err = indices(li.Ptr, size.Levels[i].Ptr); err != nil {
			return nil, err
		}
		if snap.Levels[i].Idx, err = indices(li.Idx, size.Levels[i].Idx); err != nil {
			return nil, err
		}
	}
	snap.Values = s.Values().Bytes()[:size.Values*t.Type().Bytes()]
	snap.Packed = true
	return snap, nil
}

func (snap *snapshot) format() format.Format {
	levels := make([]format.Level, len(snap.Levels))
	for i, level := range snap.Levels {
		levels[i] = format.Level{Dimension: level.Dimension, Type: level.Type}
	}
	return format.New(levels...)
}

func (snap *snapshot) storage() (storage.Storage, error) {
	s := storage.New(snap.format())
	for i, level := range snap.Levels {
		li := storage.LevelIndex{Ptr: storage.FromSlice(level.Ptr, storage.ReclaimAsArrayBuffer)}
		if level.Type != format.Dense {
			li.Idx = storage.FromSlice(level.Idx, storage.ReclaimAsArrayBuffer)
		}
		s.SetLevelIndex(i, li)
	}
	typ := snap.Type
	if len(snap.Values)%typ.Bytes() != 0 {
		return storage.Storage{}, fmterr.Usagef("snapshot of %s: %d bytes of values is not a multiple of %d", snap.Name, len(snap.Values), typ.Bytes())
	}
	values := storage.NewArray(typ, len(snap.Values)/typ.Bytes())
	copy(values.Bytes(), snap.Values)
	s.SetValues(values)
	size, err := s.Size()
	if err != nil {
		return storage.Storage{}, errors.Wrapf(err, "snapshot of %s", snap.Name)
	}
	if size.Values != values.Len() {
		return storage.Storage{}, fmterr.Usagef("snapshot of %s: got %d values but its levels require %d", snap.Name, values.Len(), size.Values)
	}
	return s, nil
}

// read restores a tensor from a snapshot. The format stored in the
// snapshot is used if f has no level.
func (msgpCodec) read(r io.Reader, name string, f format.Format, opts []tensor.Option) (tensor.Tensor, error) {
	snap := &snapshot{}
	if err := msgpack.NewDecoder(r).Decode(snap); err != nil {
		return tensor.Tensor{}, errors.WithStack(err)
	}
	sf := snap.format()
	if f.Order() > 0 && !f.Equal(sf) {
		return tensor.Tensor{}, fmterr.Usagef("cannot read a snapshot of format %s into format %s", sf, f)
	}
	if name == "" {
		name = snap.Name
	}
	t, err := tensor.New(name, snap.Type, snap.Dims, sf, opts...)
	if err != nil {
		return tensor.Tensor{}, err
	}
	if !snap.Packed {
		return t, nil
	}
	s, err := snap.storage()
	if err != nil {
		return tensor.Tensor{}, err
	}
	defer s.Release()
	if err := t.SetStorage(s); err != nil {
		return tensor.Tensor{}, err
	}
	return t, nil
}

func (msgpCodec) write(w io.Writer, t tensor.Tensor) error {
	snap, err := takeSnapshot(t)
	if err != nil {
		return err
	}
	return errors.WithStack(msgpack.NewEncoder(w).Encode(snap))
}
