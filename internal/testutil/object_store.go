package testutil

import (
	"bytes"
	"context"
	"fmt"
	"image"
	"image/color"
	"image/png"
	"io"
	"sync"
)

// StoredObject is one object held by MemoryStore.
type StoredObject struct {
	Data        []byte
	ContentType string
}

// MemoryStore is an in-memory object store for tests.
type MemoryStore struct {
	mu      sync.Mutex
	objects map[string]StoredObject
	// PutErr, when set, fails every Put.
	PutErr error
}

// NewMemoryStore creates an empty in-memory object store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{objects: make(map[string]StoredObject)}
}

// Put reads r to the end and stores it under name.
func (s *MemoryStore) Put(_ context.Context, name string, r io.Reader, size int64, contentType string) (string, error) {
	if s.PutErr != nil {
		return "", s.PutErr
	}
	data, err := io.ReadAll(r)
	if err != nil {
		return "", err
	}
	if size >= 0 && int64(len(data)) != size {
		return "", fmt.Errorf("size mismatch: read %d, declared %d", len(data), size)
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.objects[name] = StoredObject{Data: data, ContentType: contentType}
	return s.URL(name), nil
}

// Remove deletes an object; missing objects are ignored.
func (s *MemoryStore) Remove(_ context.Context, name string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.objects, name)
	return nil
}

// URL returns a fake public URL for name.
func (s *MemoryStore) URL(name string) string {
	return "http://objects.test/media/" + name
}

// Get returns a stored object.
func (s *MemoryStore) Get(name string) (StoredObject, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	obj, ok := s.objects[name]
	return obj, ok
}

// Names lists stored object names.
func (s *MemoryStore) Names() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]string, 0, len(s.objects))
	for name := range s.objects {
		out = append(out, name)
	}
	return out
}

// TinyPNG returns an in-memory PNG byte slice with the requested dimensions.
func TinyPNG(t interface {
	Helper()
	Fatalf(string, ...any)
}, w, h int) []byte {
	t.Helper()
	img := image.NewRGBA(image.Rect(0, 0, w, h))
	for x := 0; x < w; x++ {
		img.Set(x, x%max(h, 1), color.RGBA{R: 200, G: 80, B: 40, A: 255})
	}
	buf := bytes.NewBuffer(nil)
	if err := png.Encode(buf, img); err != nil {
		t.Fatalf("encode png: %v", err)
	}
	return buf.Bytes()
}

// MP4Clip returns n bytes (at least 24) that start with an ISO base media ftyp box.
func MP4Clip(n int) []byte {
	head := []byte("\x00\x00\x00\x18ftypisom\x00\x00\x02\x00isommp41")
	return padClip(head, n)
}

// WebMClip returns n bytes (at least 4) that start with the EBML magic.
func WebMClip(n int) []byte {
	return padClip([]byte("\x1A\x45\xDF\xA3"), n)
}

func padClip(head []byte, n int) []byte {
	if n < len(head) {
		n = len(head)
	}
	out := make([]byte, n)
	copy(out, head)
	return out
}
