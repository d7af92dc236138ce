// Package checkpoint reads and writes trained model checkpoints.
//
// A checkpoint is a msgpack document, optionally zstd-compressed, in one of
// three layouts:
//
//  1. training: {"state_dict": {"model.<name>": T, "<other>.<name>": T}, "epoch": ...}
//  2. exported: {"model": {"<name>": T}}
//  3. raw:      {"<name>": T}
//
// Load tries the layouts in that order and returns the model's parameter
// mapping with the training prefix stripped.
package checkpoint

import (
	"bytes"
	"errors"
	"fmt"
	"maps"
	"os"

	"github.com/klauspost/compress/zstd"
	"github.com/vmihailenco/msgpack/v5"

	"github.com/ekisa-team/some/internal/tensor"
)

var zstdMagic = []byte{0x28, 0xb5, 0x2f, 0xfd}

// Info describes a loaded checkpoint.
type Info struct {
	Path       string
	Size       int64
	Compressed bool
	Shape      Shape
	Params     tensor.Map

	// Metadata holds the top-level entries of a training checkpoint other
	// than the state dict (epoch, global_step, hparams, ...).
	Metadata map[string]any
}

// Load reads the checkpoint at path and returns its parameter mapping.
func Load(path string) (tensor.Map, error) {
	info, err := Inspect(path)
	if err != nil {
		return nil, err
	}
	return info.Params, nil
}

// Inspect reads the checkpoint at path and classifies it.
func Inspect(path string) (*Info, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("checkpoint: read %s: %w", path, err)
	}

	info := &Info{Path: path, Size: int64(len(data))}

	if bytes.HasPrefix(data, zstdMagic) {
		data, err = decompress(data)
		if err != nil {
			return nil, &FormatError{Path: path, Err: ErrDecode, Reason: err.Error()}
		}
		info.Compressed = true
	}

	var artifact any
	if err := msgpack.Unmarshal(data, &artifact); err != nil {
		return nil, &FormatError{Path: path, Err: ErrDecode, Reason: err.Error()}
	}

	shape, params, err := Classify(artifact)
	if err != nil {
		var ferr *FormatError
		if errors.As(err, &ferr) {
			ferr.Path = path
		}
		return nil, err
	}

	info.Shape = shape
	info.Params = params
	if shape == ShapeStateDict {
		root, _ := asMap(artifact)
		info.Metadata = maps.Clone(root)
		delete(info.Metadata, StateDictKey)
	}

	return info, nil
}

func decompress(data []byte) ([]byte, error) {
	dec, err := zstd.NewReader(nil)
	if err != nil {
		return nil, err
	}
	defer dec.Close()

	return dec.DecodeAll(data, nil)
}
