package model

import (
	"bytes"
	"fmt"
	"os"

	"github.com/klauspost/compress/zstd"
)

// zstd frame magic, used to sniff compressed artifacts on read.
var zstdMagic = []byte{0x28, 0xB5, 0x2F, 0xFD}

// WriteFile serializes the graph to a .mpl artifact, optionally wrapped in
// a zstd frame.
func WriteFile(g *Graph, path string, compress bool) error {
	data, err := g.Serialize()
	if err != nil {
		return err
	}

	if compress {
		var buf bytes.Buffer
		enc, err := zstd.NewWriter(&buf)
		if err != nil {
			return fmt.Errorf("create zstd writer: %w", err)
		}
		if _, err := enc.Write(data); err != nil {
			enc.Close()
			return fmt.Errorf("compress artifact: %w", err)
		}
		if err := enc.Close(); err != nil {
			return fmt.Errorf("finish zstd frame: %w", err)
		}
		data = buf.Bytes()
	}

	return os.WriteFile(path, data, 0o644)
}

// ReadFile loads a .mpl artifact, transparently decompressing zstd frames.
func ReadFile(path string) (*Graph, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}

	if bytes.HasPrefix(data, zstdMagic) {
		dec, err := zstd.NewReader(nil)
		if err != nil {
			return nil, fmt.Errorf("create zstd reader: %w", err)
		}
		defer dec.Close()
		data, err = dec.DecodeAll(data, nil)
		if err != nil {
			return nil, fmt.Errorf("decompress artifact: %w", err)
		}
	}

	return Deserialize(data)
}
