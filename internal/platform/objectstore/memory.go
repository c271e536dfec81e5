package objectstore

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"sort"
	"sync"

	"roster/internal/sentinel"
)

// Op names a Store operation for fault injection.
type Op string

const (
	OpList   Op = "list"
	OpGet    Op = "get"
	OpExists Op = "exists"
	OpPut    Op = "put"
	OpCopy   Op = "copy"
	OpDelete Op = "delete"
)

type faultKey struct {
	op  Op
	key string
}

// InMemory is a Store backed by maps, used by tests.
type InMemory struct {
	mu      sync.RWMutex
	buckets map[string]map[string][]byte
	faults  map[faultKey]error
}

var _ Store = (*InMemory)(nil)

// NewInMemory creates an empty in-memory object store.
func NewInMemory() *InMemory {
	return &InMemory{
		buckets: make(map[string]map[string][]byte),
		faults:  make(map[faultKey]error),
	}
}

// SetFault makes op fail with err for key ("" matches any key) until cleared with a nil err.
func (s *InMemory) SetFault(op Op, key string, err error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err == nil {
		delete(s.faults, faultKey{op, key})
		return
	}
	s.faults[faultKey{op, key}] = err
}

func (s *InMemory) fault(op Op, key string) error {
	if err, ok := s.faults[faultKey{op, key}]; ok {
		return err
	}
	return s.faults[faultKey{op, ""}]
}

// PutBytes is a convenience for seeding fixtures. It creates the bucket if needed.
func (s *InMemory) PutBytes(bucket, key string, data []byte) {
	s.mu.Lock()
	defer s.mu.Unlock()
	b, ok := s.buckets[bucket]
	if !ok {
		b = make(map[string][]byte)
		s.buckets[bucket] = b
	}
	b[key] = append([]byte(nil), data...)
}

func (s *InMemory) List(ctx context.Context, bucket, ext string) ([]string, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if err := s.fault(OpList, ""); err != nil {
		return nil, err
	}
	b, ok := s.buckets[bucket]
	if !ok {
		return nil, fmt.Errorf("bucket %s: %w", bucket, sentinel.ErrNotFound)
	}
	var keys []string
	for k := range b {
		if HasExtension(k, ext) {
			keys = append(keys, k)
		}
	}
	sort.Strings(keys)
	return keys, nil
}

func (s *InMemory) Get(ctx context.Context, bucket, key string) ([]byte, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if err := s.fault(OpGet, key); err != nil {
		return nil, err
	}
	data, ok := s.buckets[bucket][key]
	if !ok {
		return nil, fmt.Errorf("object %s/%s: %w", bucket, key, sentinel.ErrNotFound)
	}
	return append([]byte(nil), data...), nil
}

func (s *InMemory) Exists(ctx context.Context, bucket, key string) (bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if err := s.fault(OpExists, key); err != nil {
		return false, err
	}
	_, ok := s.buckets[bucket][key]
	return ok, nil
}

func (s *InMemory) Put(ctx context.Context, bucket, key string, body io.ReadSeeker, size int64, contentType string) error {
	data, err := io.ReadAll(body)
	if err != nil {
		return fmt.Errorf("read body: %w", err)
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.fault(OpPut, key); err != nil {
		return err
	}
	b, ok := s.buckets[bucket]
	if !ok {
		return fmt.Errorf("bucket %s: %w", bucket, sentinel.ErrNotFound)
	}
	b[key] = data
	return nil
}

func (s *InMemory) Copy(ctx context.Context, bucket, srcKey, dstKey string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.fault(OpCopy, dstKey); err != nil {
		return err
	}
	src, ok := s.buckets[bucket][srcKey]
	if !ok {
		return fmt.Errorf("object %s/%s: %w", bucket, srcKey, sentinel.ErrNotFound)
	}
	s.buckets[bucket][dstKey] = bytes.Clone(src)
	return nil
}

func (s *InMemory) Delete(ctx context.Context, bucket, key string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.fault(OpDelete, key); err != nil {
		return err
	}
	b := s.buckets[bucket]
	if _, ok := b[key]; !ok {
		return fmt.Errorf("object %s/%s: %w", bucket, key, sentinel.ErrNotFound)
	}
	delete(b, key)
	return nil
}

func (s *InMemory) EnsureBucket(ctx context.Context, bucket string) (BucketStatus, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.buckets[bucket]; ok {
		return BucketAlreadyExists, nil
	}
	s.buckets[bucket] = make(map[string][]byte)
	return BucketCreated, nil
}

func (s *InMemory) Ping(ctx context.Context, bucket string) error {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if _, ok := s.buckets[bucket]; !ok {
		return fmt.Errorf("bucket %s: %w", bucket, sentinel.ErrNotFound)
	}
	return nil
}
