package index

import (
	"bufio"
	"encoding/gob"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/custodia-labs/sercha-rag/internal/core/domain"
	"github.com/custodia-labs/sercha-rag/internal/core/ports/driven"
)

const (
	// VectorsFile holds the gob-encoded vector arena
	VectorsFile = "vectors.gob"
	// MetadataFile holds the per-vector metadata as a JSON array
	MetadataFile = "metadata.json"
)

// vectorFile is the on-disk layout of VectorsFile.
type vectorFile struct {
	Dimension int
	Count     int
	Data      []float32
}

// LoadOrCreate opens the index saved in dir. A missing, unreadable or
// inconsistent snapshot is logged and replaced by an empty index, so the
// only error is an invalid dimension.
func LoadOrCreate(dir string, dimension int, logger *slog.Logger) (*FlatIndex, error) {
	x, err := New(dir, dimension, logger)
	if err != nil {
		return nil, err
	}

	vf, metadata, err := readSnapshot(dir, dimension)
	switch {
	case errors.Is(err, fs.ErrNotExist):
		x.logger.Info("no saved index found, starting empty", "dir", dir, "dimension", dimension)
		return x, nil
	case err != nil:
		x.logger.Warn("discarding unusable saved index", "dir", dir, "error", err)
		return x, nil
	}

	x.data = vf.Data
	x.metadata = metadata
	x.origin = driven.IndexOriginLoaded
	x.logger.Info("loaded index",
		"dir", dir,
		"vectors", vf.Count,
		"documents", len(x.documentNames()))
	return x, nil
}

func readSnapshot(dir string, dimension int) (*vectorFile, []domain.EntryMetadata, error) {
	vf, err := readVectors(filepath.Join(dir, VectorsFile))
	if err != nil {
		return nil, nil, err
	}
	if vf.Dimension != dimension {
		return nil, nil, fmt.Errorf("saved dimension %d does not match configured %d", vf.Dimension, dimension)
	}
	if len(vf.Data) != vf.Count*vf.Dimension {
		return nil, nil, fmt.Errorf("vector data holds %d values, expected %d", len(vf.Data), vf.Count*vf.Dimension)
	}

	raw, err := os.ReadFile(filepath.Join(dir, MetadataFile))
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, nil, fmt.Errorf("%s present without %s", VectorsFile, MetadataFile)
		}
		return nil, nil, err
	}
	var metadata []domain.EntryMetadata
	if err := json.Unmarshal(raw, &metadata); err != nil {
		return nil, nil, fmt.Errorf("decode metadata: %w", err)
	}
	if len(metadata) != vf.Count {
		return nil, nil, fmt.Errorf("metadata has %d entries for %d vectors", len(metadata), vf.Count)
	}
	if metadata == nil {
		metadata = []domain.EntryMetadata{}
	}
	return vf, metadata, nil
}

func readVectors(path string) (*vectorFile, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	var vf vectorFile
	if err := gob.NewDecoder(bufio.NewReader(f)).Decode(&vf); err != nil {
		return nil, fmt.Errorf("decode vectors: %w", err)
	}
	return &vf, nil
}

// Save writes the index into its directory.
func (x *FlatIndex) Save() error {
	return x.SaveTo(x.dir)
}

// SaveTo writes both snapshot files into dir, each through a temporary
// file and rename. The pair is not replaced atomically; LoadOrCreate
// rejects a mismatched pair. Saving an unchanged index reproduces the
// same bytes.
func (x *FlatIndex) SaveTo(dir string) error {
	x.mu.Lock()
	defer x.mu.Unlock()

	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("%w: create index dir: %v", domain.ErrPersistence, err)
	}

	vf := vectorFile{Dimension: x.dimension, Count: x.count(), Data: x.data}
	err := writeFileAtomic(filepath.Join(dir, VectorsFile), func(w io.Writer) error {
		return gob.NewEncoder(w).Encode(&vf)
	})
	if err != nil {
		return fmt.Errorf("%w: write vectors: %v", domain.ErrPersistence, err)
	}

	err = writeFileAtomic(filepath.Join(dir, MetadataFile), func(w io.Writer) error {
		raw, err := json.MarshalIndent(x.metadata, "", "  ")
		if err != nil {
			return err
		}
		_, err = w.Write(raw)
		return err
	})
	if err != nil {
		return fmt.Errorf("%w: write metadata: %v", domain.ErrPersistence, err)
	}

	x.logger.Debug("saved index", "dir", dir, "vectors", vf.Count)
	return nil
}

func writeFileAtomic(path string, write func(io.Writer) error) error {
	tmp, err := os.CreateTemp(filepath.Dir(path), "."+filepath.Base(path)+".*.tmp")
	if err != nil {
		return err
	}
	defer os.Remove(tmp.Name())

	bw := bufio.NewWriter(tmp)
	if err := write(bw); err != nil {
		tmp.Close()
		return err
	}
	if err := bw.Flush(); err != nil {
		tmp.Close()
		return err
	}
	if err := tmp.Sync(); err != nil {
		tmp.Close()
		return err
	}
	if err := tmp.Close(); err != nil {
		return err
	}
	return os.Rename(tmp.Name(), path)
}
