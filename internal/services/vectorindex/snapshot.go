package vectorindex

import (
	"bufio"
	"encoding/binary"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/pierrec/lz4/v4"
	"github.com/ternarybob/arbor"
)

// Snapshot file layout: a plain 16-byte header (magic, format version,
// dimension, entry count) followed by an lz4-compressed body of
// length-prefixed IDs and raw float32 vectors.
const (
	snapshotMagic   = uint32(0x44564958) // "DVIX"
	snapshotVersion = uint32(1)
)

// Save writes an atomic snapshot of the index to path. The snapshot is
// written to a temp file in the same directory and renamed over the
// target, so a crash mid-write never corrupts an existing snapshot.
func (idx *Index) Save(path string) error {
	idx.mu.RLock()
	defer idx.mu.RUnlock()

	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("failed to create snapshot directory: %w", err)
	}

	tmp, err := os.CreateTemp(dir, filepath.Base(path)+".tmp-*")
	if err != nil {
		return fmt.Errorf("failed to create temp snapshot: %w", err)
	}
	defer os.Remove(tmp.Name())

	if err := idx.writeSnapshot(tmp); err != nil {
		tmp.Close()
		return err
	}
	if err := tmp.Sync(); err != nil {
		tmp.Close()
		return fmt.Errorf("failed to sync snapshot: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("failed to close snapshot: %w", err)
	}

	if err := os.Rename(tmp.Name(), path); err != nil {
		return fmt.Errorf("failed to rename snapshot into place: %w", err)
	}

	idx.logger.Debug().
		Str("path", path).
		Int("count", len(idx.ids)).
		Msg("Index snapshot written")

	return nil
}

func (idx *Index) writeSnapshot(w io.Writer) error {
	header := [4]uint32{snapshotMagic, snapshotVersion, uint32(idx.dimension), uint32(len(idx.ids))}
	if err := binary.Write(w, binary.LittleEndian, header[:]); err != nil {
		return fmt.Errorf("failed to write snapshot header: %w", err)
	}

	zw := lz4.NewWriter(w)
	body := bufio.NewWriter(zw)

	for i, chunkID := range idx.ids {
		if err := binary.Write(body, binary.LittleEndian, uint16(len(chunkID))); err != nil {
			return err
		}
		if _, err := body.WriteString(chunkID); err != nil {
			return err
		}
		if err := binary.Write(body, binary.LittleEndian, idx.vectors[i]); err != nil {
			return err
		}
	}

	if err := body.Flush(); err != nil {
		return fmt.Errorf("failed to flush snapshot body: %w", err)
	}
	if err := zw.Close(); err != nil {
		return fmt.Errorf("failed to finish snapshot compression: %w", err)
	}
	return nil
}

// Load reads a snapshot from path into an empty index of the given
// dimension. A missing file is not an error: the index starts empty and
// fills up as resources are ingested.
func Load(path string, dimension int, logger arbor.ILogger) (*Index, error) {
	idx, err := New(dimension, logger)
	if err != nil {
		return nil, err
	}

	file, err := os.Open(path)
	if os.IsNotExist(err) {
		logger.Debug().Str("path", path).Msg("No index snapshot found, starting empty")
		return idx, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to open snapshot: %w", err)
	}
	defer file.Close()

	if err := idx.readSnapshot(file); err != nil {
		return nil, fmt.Errorf("failed to read snapshot %s: %w", path, err)
	}

	logger.Info().
		Str("path", path).
		Int("count", len(idx.ids)).
		Msg("Index snapshot loaded")

	return idx, nil
}

func (idx *Index) readSnapshot(r io.Reader) error {
	var header [4]uint32
	if err := binary.Read(r, binary.LittleEndian, header[:]); err != nil {
		return fmt.Errorf("failed to read header: %w", err)
	}
	if header[0] != snapshotMagic {
		return fmt.Errorf("not an index snapshot (bad magic %#x)", header[0])
	}
	if header[1] != snapshotVersion {
		return fmt.Errorf("unsupported snapshot format version %d", header[1])
	}
	if int(header[2]) != idx.dimension {
		return fmt.Errorf("snapshot dimension %d does not match configured dimension %d", header[2], idx.dimension)
	}

	count := int(header[3])
	body := bufio.NewReader(lz4.NewReader(r))

	for i := 0; i < count; i++ {
		var idLen uint16
		if err := binary.Read(body, binary.LittleEndian, &idLen); err != nil {
			return fmt.Errorf("entry %d: failed to read id length: %w", i, err)
		}

		idBytes := make([]byte, idLen)
		if _, err := io.ReadFull(body, idBytes); err != nil {
			return fmt.Errorf("entry %d: failed to read id: %w", i, err)
		}

		vector := make([]float32, idx.dimension)
		if err := binary.Read(body, binary.LittleEndian, vector); err != nil {
			return fmt.Errorf("entry %d: failed to read vector: %w", i, err)
		}

		if err := idx.Add(string(idBytes), vector); err != nil {
			return err
		}
	}

	idx.version = 0 // A freshly loaded index is unmodified
	return nil
}
