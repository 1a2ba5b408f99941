// Package storageservice is a minimal disk-backed file store with a bounded
// transfer buffer. cirrus gives every node (the head and each compute node)
// its own instance so image residency has somewhere real to live: a byte-blob
// store keyed by image ID, with capacity accounting and a bounded in-flight
// transfer buffer standing in for streaming I/O.
package storageservice

import (
	"fmt"
	"os"
	"path/filepath"
	"sync"

	"github.com/cuemby/cirrus/pkg/log"
	"github.com/google/uuid"
	bolt "go.etcd.io/bbolt"
)

var bucketImages = []byte("images")

// StorageService is a disk-backed, capacity-bounded file store for image blobs.
type StorageService struct {
	Name string // e.g. "head" or a compute host name, used in logs and errors.

	db         *bolt.DB
	bufferSem  chan struct{} // one slot per bufferChunkBytes of the bounded transfer buffer
	chunkBytes int64

	mu        sync.Mutex
	sizeOf    map[uuid.UUID]int64
	totalUsed int64
	capacity  int64
}

// bufferChunkBytes is the granularity at which the bounded transfer buffer is
// sliced into semaphore slots; it limits how much data can be in flight
// through the store at once, not how many files.
const bufferChunkBytes = 4 * 1024 * 1024

// New creates a storage service backed by a BoltDB file under dataDir, with the
// given total disk capacity in bytes and transfer-buffer size in bytes (0 means the
// store enforces no explicit transfer concurrency cap beyond disk capacity).
func New(name, dataDir string, capacityBytes, bufferSizeBytes int64) (*StorageService, error) {
	if err := os.MkdirAll(dataDir, 0o755); err != nil {
		return nil, fmt.Errorf("storageservice %s: create data dir: %w", name, err)
	}
	db, err := bolt.Open(filepath.Join(dataDir, name+".db"), 0o600, nil)
	if err != nil {
		return nil, fmt.Errorf("storageservice %s: open db: %w", name, err)
	}
	if err := db.Update(func(tx *bolt.Tx) error {
		_, err := tx.CreateBucketIfNotExists(bucketImages)
		return err
	}); err != nil {
		db.Close()
		return nil, fmt.Errorf("storageservice %s: create bucket: %w", name, err)
	}

	if bufferSizeBytes <= 0 {
		bufferSizeBytes = capacityBytes
	}
	slots := int(bufferSizeBytes / bufferChunkBytes)
	if slots < 1 {
		slots = 1
	}

	return &StorageService{
		Name:       name,
		db:         db,
		bufferSem:  make(chan struct{}, slots),
		chunkBytes: bufferChunkBytes,
		sizeOf:     make(map[uuid.UUID]int64),
		capacity:   capacityBytes,
	}, nil
}

// Close releases the underlying database handle.
func (s *StorageService) Close() error {
	return s.db.Close()
}

// FreeBytes returns the remaining disk capacity.
func (s *StorageService) FreeBytes() int64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.capacity - s.totalUsed
}

// Has reports whether the given image is fully present on this store.
func (s *StorageService) Has(id uuid.UUID) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	_, ok := s.sizeOf[id]
	return ok
}

// Put writes sizeBytes worth of placeholder content for the image, in chunks that
// each occupy one bounded-buffer slot for the duration of the write. It does not
// itself account for transfer time — that is pkg/platform's job — it only models
// the store's finite concurrent-transfer capacity and persists the blob.
func (s *StorageService) Put(id uuid.UUID, sizeBytes int64) error {
	logger := log.WithComponent("storageservice").With().Str("store", s.Name).Logger()

	s.mu.Lock()
	if s.totalUsed+sizeBytes > s.capacity {
		s.mu.Unlock()
		return fmt.Errorf("storageservice %s: not enough disk space for image %s", s.Name, id)
	}
	s.totalUsed += sizeBytes
	s.sizeOf[id] = sizeBytes
	s.mu.Unlock()

	remaining := sizeBytes
	for remaining > 0 {
		n := s.chunkBytes
		if remaining < n {
			n = remaining
		}
		s.bufferSem <- struct{}{}
		remaining -= n
		<-s.bufferSem
	}

	err := s.db.Update(func(tx *bolt.Tx) error {
		b := tx.Bucket(bucketImages)
		return b.Put([]byte(id.String()), make([]byte, minBlob(sizeBytes)))
	})
	if err != nil {
		s.mu.Lock()
		s.totalUsed -= sizeBytes
		delete(s.sizeOf, id)
		s.mu.Unlock()
		return fmt.Errorf("storageservice %s: put image %s: %w", s.Name, id, err)
	}

	logger.Debug().Str("image_id", id.String()).Int64("size_bytes", sizeBytes).Msg("image persisted")
	return nil
}

// Scratch is a handle to one invocation's private working storage: a fixed-size
// allocation on its store, created empty and released in full on Delete. It
// implements types.Scratch without this package importing pkg/types.
type Scratch struct {
	store *StorageService
	id    uuid.UUID
	limit int64
}

// NewScratch reserves a fresh, empty scratch allocation of exactly limit bytes
// on this store, failing if the store doesn't have limit bytes free.
func (s *StorageService) NewScratch(limit int64) (*Scratch, error) {
	id := uuid.New()
	if err := s.Put(id, limit); err != nil {
		return nil, fmt.Errorf("storageservice %s: new scratch: %w", s.Name, err)
	}
	return &Scratch{store: s, id: id, limit: limit}, nil
}

// ID identifies this scratch allocation within its store.
func (sc *Scratch) ID() uuid.UUID { return sc.id }

// Limit returns the disk_limit this scratch space was created with.
func (sc *Scratch) Limit() int64 { return sc.limit }

// Write checks a single write of sizeBytes against this scratch's allocation,
// failing if it alone exceeds the disk_limit the invocation was admitted
// under. Successive writes are not summed, so their total is not bounded. It
// does not grow the allocation.
func (sc *Scratch) Write(sizeBytes int64) error {
	if sizeBytes > sc.limit {
		return fmt.Errorf("storageservice %s: scratch %s: write of %d bytes exceeds disk_limit %d", sc.store.Name, sc.id, sizeBytes, sc.limit)
	}
	return nil
}

// Delete releases the scratch allocation, freeing its disk reservation.
func (sc *Scratch) Delete() error {
	return sc.store.Delete(sc.id)
}

// Delete removes an image and frees its disk allocation.
func (s *StorageService) Delete(id uuid.UUID) error {
	s.mu.Lock()
	sz, ok := s.sizeOf[id]
	if !ok {
		s.mu.Unlock()
		return nil
	}
	delete(s.sizeOf, id)
	s.totalUsed -= sz
	s.mu.Unlock()

	return s.db.Update(func(tx *bolt.Tx) error {
		return tx.Bucket(bucketImages).Delete([]byte(id.String()))
	})
}

// minBlob caps how many bytes of placeholder content are actually persisted to
// disk per image, so a test exercising a multi-gigabyte image doesn't also
// allocate a multi-gigabyte Go slice; only the accounted size (sizeOf) is used for
// any capacity or duration math.
func minBlob(sizeBytes int64) int64 {
	const capBytes = 4096
	if sizeBytes < capBytes {
		return sizeBytes
	}
	return capBytes
}
