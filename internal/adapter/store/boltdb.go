package store

import (
	"bytes"
	"encoding/binary"
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"os"
	"path/filepath"
	"time"

	"github.com/google/uuid"
	"go.etcd.io/bbolt"

	"medrag/internal/domain"
	"medrag/internal/port"
)

var (
	bucketMeta    = []byte("meta")
	bucketChunks  = []byte("chunks")
	bucketVectors = []byte("vectors")
	keyMeta       = []byte("index")
)

const openTimeout = time.Second

// Exists reports whether a file is present at path.
func Exists(path string) bool {
	info, err := os.Stat(path)
	return err == nil && !info.IsDir()
}

// Persist writes the index to a temporary file next to path and renames it
// into place, so readers never observe a partially written index.
func (ix *Index) Persist(path string) (err error) {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("%w: create %s: %v", domain.ErrStorage, dir, err)
	}

	tmp := filepath.Join(dir, fmt.Sprintf(".%s.%s.tmp", filepath.Base(path), uuid.NewString()))
	defer func() {
		if err != nil {
			os.Remove(tmp)
		}
	}()

	if err := ix.writeBolt(tmp); err != nil {
		return fmt.Errorf("%w: write %s: %v", domain.ErrStorage, tmp, err)
	}
	if err := os.Rename(tmp, path); err != nil {
		return fmt.Errorf("%w: publish %s: %v", domain.ErrStorage, path, err)
	}
	return nil
}

func (ix *Index) writeBolt(path string) error {
	db, err := bbolt.Open(path, 0600, &bbolt.Options{Timeout: openTimeout})
	if err != nil {
		return err
	}

	err = db.Update(func(tx *bbolt.Tx) error {
		meta, err := tx.CreateBucket(bucketMeta)
		if err != nil {
			return err
		}
		chunks, err := tx.CreateBucket(bucketChunks)
		if err != nil {
			return err
		}
		vectors, err := tx.CreateBucket(bucketVectors)
		if err != nil {
			return err
		}

		data, err := json.Marshal(ix.meta)
		if err != nil {
			return err
		}
		if err := meta.Put(keyMeta, data); err != nil {
			return err
		}

		for i, c := range ix.chunks {
			key := seqKey(i)
			data, err := json.Marshal(c)
			if err != nil {
				return err
			}
			if err := chunks.Put(key, data); err != nil {
				return err
			}
			if err := vectors.Put(key, encodeVector(ix.vectors[i])); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		db.Close()
		return err
	}
	return db.Close()
}

// Load opens a persisted index. It fails with domain.ErrNotFound when nothing
// exists at path, domain.ErrCorruptData when the file cannot be decoded and
// domain.ErrVersionMismatch when embedder cannot produce comparable vectors.
func Load(path string, embedder port.Embedder) (*Index, error) {
	info, err := os.Stat(path)
	if errors.Is(err, os.ErrNotExist) {
		return nil, fmt.Errorf("%w: %s", domain.ErrNotFound, path)
	}
	if err != nil {
		return nil, fmt.Errorf("%w: stat %s: %v", domain.ErrStorage, path, err)
	}
	if info.IsDir() {
		return nil, fmt.Errorf("%w: %s is a directory", domain.ErrCorruptData, path)
	}

	db, err := bbolt.Open(path, 0600, &bbolt.Options{Timeout: openTimeout, ReadOnly: true})
	if err != nil {
		if errors.Is(err, bbolt.ErrTimeout) {
			return nil, fmt.Errorf("%w: %s is locked: %v", domain.ErrStorage, path, err)
		}
		return nil, fmt.Errorf("%w: open %s: %v", domain.ErrCorruptData, path, err)
	}
	defer db.Close()

	ix := &Index{embedder: embedder}
	err = db.View(func(tx *bbolt.Tx) error {
		mb := tx.Bucket(bucketMeta)
		cb := tx.Bucket(bucketChunks)
		vb := tx.Bucket(bucketVectors)
		if mb == nil || cb == nil || vb == nil {
			return fmt.Errorf("%w: missing bucket", domain.ErrCorruptData)
		}

		data := mb.Get(keyMeta)
		if data == nil {
			return fmt.Errorf("%w: missing metadata", domain.ErrCorruptData)
		}
		if err := json.Unmarshal(data, &ix.meta); err != nil {
			return fmt.Errorf("%w: metadata: %v", domain.ErrCorruptData, err)
		}
		if err := ix.meta.checkCompatibility(embedder); err != nil {
			return err
		}

		n := ix.meta.ChunkCount
		if n < 0 || cb.Stats().KeyN != n || vb.Stats().KeyN != n {
			return fmt.Errorf("%w: expected %d chunks", domain.ErrCorruptData, n)
		}

		ix.chunks = make([]domain.Chunk, 0, n)
		ix.vectors = make([][]float32, 0, n)

		vc := vb.Cursor()
		vk, vv := vc.First()
		cc := cb.Cursor()
		for ck, cv := cc.First(); ck != nil; ck, cv = cc.Next() {
			seq := len(ix.chunks)
			if !bytes.Equal(ck, seqKey(seq)) || !bytes.Equal(vk, ck) {
				return fmt.Errorf("%w: chunk %d out of sequence", domain.ErrCorruptData, seq)
			}

			var c domain.Chunk
			if err := json.Unmarshal(cv, &c); err != nil {
				return fmt.Errorf("%w: chunk %d: %v", domain.ErrCorruptData, seq, err)
			}
			vec, err := decodeVector(vv, ix.meta.Dimension)
			if err != nil {
				return fmt.Errorf("%w: vector %d: %v", domain.ErrCorruptData, seq, err)
			}

			ix.chunks = append(ix.chunks, c)
			ix.vectors = append(ix.vectors, vec)
			vk, vv = vc.Next()
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	return ix, nil
}

func seqKey(i int) []byte {
	key := make([]byte, 8)
	binary.BigEndian.PutUint64(key, uint64(i))
	return key
}

func encodeVector(v []float32) []byte {
	buf := make([]byte, 4*len(v))
	for i, f := range v {
		binary.LittleEndian.PutUint32(buf[4*i:], math.Float32bits(f))
	}
	return buf
}

func decodeVector(data []byte, dim int) ([]float32, error) {
	if len(data) != 4*dim {
		return nil, fmt.Errorf("got %d bytes, expected %d", len(data), 4*dim)
	}
	v := make([]float32, dim)
	for i := range v {
		v[i] = math.Float32frombits(binary.LittleEndian.Uint32(data[4*i:]))
	}
	return v, nil
}
