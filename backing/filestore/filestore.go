/*
Copyright © 2025 Acronis International GmbH.

Released under MIT license.
*/

// Package filestore provides a backing.Store that keeps records in files under a directory.
//
// Keys are hashed with xxhash. Every hash value owns one bucket file that holds all records
// whose keys share the hash (almost always exactly one). Bucket files are spread over 256
// subdirectories and are replaced atomically (write to a temporary file, then rename),
// so a crash never leaves a partially written record behind.
package filestore

import (
	"bufio"
	"context"
	"encoding/binary"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"sync"

	"code.cloudfoundry.org/bytefmt"
	"github.com/cespare/xxhash/v2"
	"go.uber.org/atomic"

	"github.com/acronis/go-cachekit/backing"
)

// DefaultMaxValueSize is the default limit for the size of a single stored value.
const DefaultMaxValueSize = 64 * bytefmt.MEGABYTE

const (
	bucketFileExt       = ".rec"
	recordHeaderSize    = 4 + 8 // key length (uint32) + value length (uint64)
	maxKeySize          = 64 * bytefmt.KILOBYTE
	dirPerm             = 0o750
	bucketFilePerm      = 0o640
	tmpBucketFilePrefix = ".tmp-"
)

// ErrCorruptedRecord is returned when a bucket file cannot be parsed.
var ErrCorruptedRecord = errors.New("corrupted record")

// Options represents options for the Store.
type Options struct {
	// MaxValueSize limits the size of a single value. DefaultMaxValueSize is used if 0.
	MaxValueSize uint64

	// Sync makes every write fsync the bucket file before renaming it into place.
	Sync bool
}

// Store is a directory-backed backing.Store.
type Store struct {
	dir          string
	maxValueSize uint64
	sync         bool

	mu     sync.Mutex
	closed atomic.Bool
}

var _ backing.Store = (*Store)(nil)

// New creates a new Store rooted at dir. The directory is created if it does not exist.
func New(dir string, opts Options) (*Store, error) {
	if dir == "" {
		return nil, fmt.Errorf("directory cannot be empty")
	}
	if opts.MaxValueSize == 0 {
		opts.MaxValueSize = DefaultMaxValueSize
	}
	if err := os.MkdirAll(dir, dirPerm); err != nil {
		return nil, fmt.Errorf("create store directory: %w", err)
	}
	return &Store{dir: dir, maxValueSize: opts.MaxValueSize, sync: opts.Sync}, nil
}

// Read implements backing.Store.
func (s *Store) Read(ctx context.Context, key []byte) ([]byte, error) {
	if err := s.checkUsable(ctx); err != nil {
		return nil, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	records, err := s.readBucket(s.bucketPath(key))
	if err != nil {
		return nil, err
	}
	for _, rec := range records {
		if string(rec.key) == string(key) {
			return rec.value, nil
		}
	}
	return nil, backing.ErrNotFound
}

// Write implements backing.Store.
func (s *Store) Write(ctx context.Context, key []byte, value []byte) error {
	if uint64(len(value)) > s.maxValueSize {
		return fmt.Errorf("%w: %s exceeds limit of %s", backing.ErrValueTooLarge,
			bytefmt.ByteSize(uint64(len(value))), bytefmt.ByteSize(s.maxValueSize))
	}
	if len(key) == 0 {
		return fmt.Errorf("key cannot be empty")
	}
	if uint64(len(key)) > maxKeySize {
		return fmt.Errorf("key is too large: %s exceeds limit of %s",
			bytefmt.ByteSize(uint64(len(key))), bytefmt.ByteSize(maxKeySize))
	}
	if err := s.checkUsable(ctx); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	path := s.bucketPath(key)
	records, err := s.readBucket(path)
	if err != nil && !errors.Is(err, backing.ErrNotFound) {
		return err
	}
	records = withoutKey(records, key)
	records = append(records, record{key: key, value: value})
	return s.writeBucket(path, records)
}

// Delete implements backing.Store.
func (s *Store) Delete(ctx context.Context, key []byte) error {
	if err := s.checkUsable(ctx); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	path := s.bucketPath(key)
	records, err := s.readBucket(path)
	if err != nil {
		if errors.Is(err, backing.ErrNotFound) {
			return nil
		}
		return err
	}
	rest := withoutKey(records, key)
	if len(rest) == len(records) {
		return nil
	}
	if len(rest) == 0 {
		if err = os.Remove(path); err != nil && !errors.Is(err, fs.ErrNotExist) {
			return fmt.Errorf("remove bucket file: %w", err)
		}
		return nil
	}
	return s.writeBucket(path, rest)
}

// Close implements backing.Store. Stored records stay on disk.
func (s *Store) Close() error {
	if !s.closed.CompareAndSwap(false, true) {
		return backing.ErrStoreClosed
	}
	return nil
}

func (s *Store) checkUsable(ctx context.Context) error {
	if s.closed.Load() {
		return backing.ErrStoreClosed
	}
	return ctx.Err()
}

func (s *Store) bucketPath(key []byte) string {
	h := xxhash.Sum64(key)
	return filepath.Join(s.dir, fmt.Sprintf("%02x", byte(h>>56)), fmt.Sprintf("%016x%s", h, bucketFileExt))
}

type record struct {
	key   []byte
	value []byte
}

func withoutKey(records []record, key []byte) []record {
	res := records[:0]
	for _, rec := range records {
		if string(rec.key) != string(key) {
			res = append(res, rec)
		}
	}
	return res
}

// readBucket returns an error wrapping backing.ErrNotFound if the bucket file does not exist.
func (s *Store) readBucket(path string) ([]record, error) {
	f, err := os.Open(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, backing.ErrNotFound
		}
		return nil, fmt.Errorf("open bucket file: %w", err)
	}
	defer func() { _ = f.Close() }()

	br := bufio.NewReader(f)
	var records []record
	for {
		rec, readErr := s.readRecord(br)
		if readErr != nil {
			if errors.Is(readErr, io.EOF) {
				return records, nil
			}
			return nil, fmt.Errorf("read bucket file %s: %w", path, readErr)
		}
		records = append(records, rec)
	}
}

// readRecord reads one record. Destination buffers are sized from the record header,
// and the header is validated against the store limits before anything is allocated.
func (s *Store) readRecord(r io.Reader) (record, error) {
	var header [recordHeaderSize]byte
	if _, err := io.ReadFull(r, header[:]); err != nil {
		if errors.Is(err, io.ErrUnexpectedEOF) {
			return record{}, fmt.Errorf("%w: truncated header", ErrCorruptedRecord)
		}
		return record{}, err // io.EOF at a record boundary is the normal end of the bucket
	}
	keyLen := uint64(binary.BigEndian.Uint32(header[:4]))
	valueLen := binary.BigEndian.Uint64(header[4:])
	if keyLen == 0 || keyLen > maxKeySize || valueLen > s.maxValueSize {
		return record{}, fmt.Errorf("%w: invalid header (key %d bytes, value %d bytes)", ErrCorruptedRecord, keyLen, valueLen)
	}
	rec := record{key: make([]byte, keyLen), value: make([]byte, valueLen)}
	if _, err := io.ReadFull(r, rec.key); err != nil {
		return record{}, fmt.Errorf("%w: truncated key: %w", ErrCorruptedRecord, err)
	}
	if _, err := io.ReadFull(r, rec.value); err != nil {
		return record{}, fmt.Errorf("%w: truncated value: %w", ErrCorruptedRecord, err)
	}
	return rec, nil
}

func (s *Store) writeBucket(path string, records []record) (err error) {
	dir := filepath.Dir(path)
	if err = os.MkdirAll(dir, dirPerm); err != nil {
		return fmt.Errorf("create bucket directory: %w", err)
	}
	tmp, err := os.CreateTemp(dir, tmpBucketFilePrefix+"*")
	if err != nil {
		return fmt.Errorf("create temporary bucket file: %w", err)
	}
	defer func() {
		if err != nil {
			_ = tmp.Close()
			_ = os.Remove(tmp.Name())
		}
	}()

	bw := bufio.NewWriter(tmp)
	for _, rec := range records {
		var header [recordHeaderSize]byte
		binary.BigEndian.PutUint32(header[:4], uint32(len(rec.key)))
		binary.BigEndian.PutUint64(header[4:], uint64(len(rec.value)))
		if _, err = bw.Write(header[:]); err != nil {
			return fmt.Errorf("write record header: %w", err)
		}
		if _, err = bw.Write(rec.key); err != nil {
			return fmt.Errorf("write record key: %w", err)
		}
		if _, err = bw.Write(rec.value); err != nil {
			return fmt.Errorf("write record value: %w", err)
		}
	}
	if err = bw.Flush(); err != nil {
		return fmt.Errorf("flush bucket file: %w", err)
	}
	if s.sync {
		if err = tmp.Sync(); err != nil {
			return fmt.Errorf("sync bucket file: %w", err)
		}
	}
	if err = tmp.Chmod(bucketFilePerm); err != nil {
		return fmt.Errorf("chmod bucket file: %w", err)
	}
	if err = tmp.Close(); err != nil {
		return fmt.Errorf("close bucket file: %w", err)
	}
	if err = os.Rename(tmp.Name(), path); err != nil {
		return fmt.Errorf("rename bucket file: %w", err)
	}
	return nil
}
