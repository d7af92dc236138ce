package checkpoint

import (
	"bytes"
	"fmt"
	"os"
	"path/filepath"

	"github.com/klauspost/compress/zstd"
	"github.com/vmihailenco/msgpack/v5"

	"github.com/ekisa-team/some/internal/tensor"
)

type saveOptions struct {
	shape    Shape
	compress bool
	metadata map[string]any
}

// SaveOption configures Save.
type SaveOption func(*saveOptions)

// WithLayout selects the on-disk layout. Default: ShapeExported.
func WithLayout(s Shape) SaveOption {
	return func(o *saveOptions) {
		o.shape = s
	}
}

// WithCompression enables zstd compression of the whole document.
func WithCompression(on bool) SaveOption {
	return func(o *saveOptions) {
		o.compress = on
	}
}

// WithMetadata adds top-level entries next to the state dict. Only used by
// the ShapeStateDict layout.
func WithMetadata(md map[string]any) SaveOption {
	return func(o *saveOptions) {
		o.metadata = md
	}
}

// Save writes params to path. The file is written to a temporary sibling and
// renamed into place.
func Save(path string, params tensor.Map, opts ...SaveOption) error {
	o := saveOptions{shape: ShapeExported}
	for _, opt := range opts {
		opt(&o)
	}

	root, err := layout(params, o)
	if err != nil {
		return err
	}

	var buf bytes.Buffer
	enc := msgpack.NewEncoder(&buf)
	enc.SetSortMapKeys(true)
	if err := enc.Encode(root); err != nil {
		return fmt.Errorf("checkpoint: encode: %w", err)
	}

	data := buf.Bytes()
	if o.compress {
		zenc, err := zstd.NewWriter(nil)
		if err != nil {
			return fmt.Errorf("checkpoint: zstd: %w", err)
		}
		data = zenc.EncodeAll(data, nil)
		zenc.Close()
	}

	return writeFileAtomic(path, data)
}

// Export converts the checkpoint at src into the exported layout at dst,
// dropping everything that does not belong to the model.
func Export(src, dst string, opts ...SaveOption) error {
	params, err := Load(src)
	if err != nil {
		return err
	}
	return Save(dst, params, append(opts, WithLayout(ShapeExported))...)
}

func layout(params tensor.Map, o saveOptions) (map[string]any, error) {
	switch o.shape {
	case ShapeStateDict:
		sd := make(map[string]any, len(params))
		for k, t := range params {
			sd[ModelPrefix+k] = t
		}
		root := make(map[string]any, len(o.metadata)+1)
		for k, v := range o.metadata {
			root[k] = v
		}
		root[StateDictKey] = sd
		return root, nil
	case ShapeExported:
		return map[string]any{ModelKey: plain(params)}, nil
	case ShapeRaw:
		return plain(params), nil
	default:
		return nil, fmt.Errorf("checkpoint: cannot save layout %v", o.shape)
	}
}

func plain(params tensor.Map) map[string]any {
	m := make(map[string]any, len(params))
	for k, t := range params {
		m[k] = t
	}
	return m
}

func writeFileAtomic(path string, data []byte) error {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("checkpoint: create directory: %w", err)
	}

	tmp, err := os.CreateTemp(dir, filepath.Base(path)+".tmp-*")
	if err != nil {
		return fmt.Errorf("checkpoint: create temp file: %w", err)
	}
	defer os.Remove(tmp.Name())

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		return fmt.Errorf("checkpoint: write %s: %w", path, err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("checkpoint: write %s: %w", path, err)
	}

	if err := os.Rename(tmp.Name(), path); err != nil {
		return fmt.Errorf("checkpoint: rename into %s: %w", path, err)
	}
	return nil
}
