package storageservice

import (
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"
)

func newTestStore(t *testing.T, capacity int64) *StorageService {
	t.Helper()
	s, err := New("test", t.TempDir(), capacity, 0)
	require.NoError(t, err)
	t.Cleanup(func() { s.Close() })
	return s
}

func TestPutAccountsCapacityAndPersists(t *testing.T) {
	s := newTestStore(t, 1024)
	id := uuid.New()

	require.NoError(t, s.Put(id, 512))
	require.True(t, s.Has(id))
	require.Equal(t, int64(512), s.FreeBytes())
}

func TestPutRejectsOversizedImage(t *testing.T) {
	s := newTestStore(t, 100)
	id := uuid.New()

	err := s.Put(id, 200)
	require.Error(t, err)
	require.False(t, s.Has(id))
	require.Equal(t, int64(100), s.FreeBytes())
}

func TestDeleteFreesCapacity(t *testing.T) {
	s := newTestStore(t, 1024)
	id := uuid.New()
	require.NoError(t, s.Put(id, 512))

	require.NoError(t, s.Delete(id))
	require.False(t, s.Has(id))
	require.Equal(t, int64(1024), s.FreeBytes())
}

func TestDeleteOfMissingImageIsNoop(t *testing.T) {
	s := newTestStore(t, 1024)
	require.NoError(t, s.Delete(uuid.New()))
}

func TestBufferSlotsLimitConcurrentTransferGranularity(t *testing.T) {
	s, err := New("buffered", t.TempDir(), 1<<30, bufferChunkBytes)
	require.NoError(t, err)
	defer s.Close()

	require.Equal(t, 1, cap(s.bufferSem))
	require.NoError(t, s.Put(uuid.New(), 3*bufferChunkBytes))
}
