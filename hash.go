package sizediff

import (
	"encoding/hex"
	"fmt"
	"hash"
	"io"
	"sync"

	"github.com/spf13/afero"
)

// Default size for the buffer used when hashing files
const defaultBufferSize = 32 * 1024 // 32KB

// bufferPool is a pool of byte slices used for file I/O during hashing
var bufferPool = sync.Pool{
	New: func() interface{} {
		buffer := make([]byte, defaultBufferSize)
		return &buffer
	},
}

// hashContent streams content into h using a pooled buffer.
func hashContent(content io.Reader, h hash.Hash) error {
	bufPtr := bufferPool.Get().(*[]byte)
	buffer := *bufPtr
	defer bufferPool.Put(bufPtr)

	_, err := io.CopyBuffer(h, content, buffer)
	if err != nil {
		return fmt.Errorf("failed to copy content: %w", err)
	}
	return nil
}

// Hasher computes content digests of files. Digests are memoized per path,
// so a file hashed for pairing is not read again to build a cache key.
// It is safe for concurrent use.
type Hasher struct {
	fs       afero.Fs
	hashFunc HashFunc

	mu      sync.Mutex
	digests map[string]string
}

// NewHasher creates a Hasher reading through fs with the given hash function.
func NewHasher(fs afero.Fs, hashFunc HashFunc) *Hasher {
	return &Hasher{
		fs:       fs,
		hashFunc: hashFunc,
		digests:  make(map[string]string),
	}
}

// Digest returns the hex content digest of the file at path.
// An unreadable file yields an *IOError.
func (h *Hasher) Digest(path string) (string, error) {
	h.mu.Lock()
	if d, ok := h.digests[path]; ok {
		h.mu.Unlock()
		return d, nil
	}
	h.mu.Unlock()

	f, err := h.fs.Open(path)
	if err != nil {
		return "", &IOError{Op: "hash", Path: path, Err: err}
	}
	defer f.Close()

	sum := h.hashFunc()
	if err := hashContent(f, sum); err != nil {
		return "", &IOError{Op: "hash", Path: path, Err: err}
	}
	d := hex.EncodeToString(sum.Sum(nil))

	h.mu.Lock()
	h.digests[path] = d
	h.mu.Unlock()
	return d, nil
}

// Equal reports whether two files have identical content digests.
func (h *Hasher) Equal(a, b string) (bool, error) {
	da, err := h.Digest(a)
	if err != nil {
		return false, err
	}
	db, err := h.Digest(b)
	if err != nil {
		return false, err
	}
	return da == db, nil
}
