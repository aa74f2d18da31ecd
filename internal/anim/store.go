package anim

import (
	"errors"
	"fmt"
	"sync"
)

var (
	ErrNotLoaded   = errors.New("anim: animation not loaded")
	ErrFrameLength = errors.New("anim: frame length mismatch")
	ErrEmpty       = errors.New("anim: animation has no frames")
)

// Store holds every animation of the session. Slots are declared up front so
// that animation indices stay stable even when an archive fails to load.
// After MarkReady the store is only read.
type Store struct {
	mu       sync.RWMutex
	names    []string
	anims    map[string]*Animation
	frameLen int

	ready     chan struct{}
	readyOnce sync.Once
}

// NewStore creates a store with one slot per name, in index order.
func NewStore(names ...string) *Store {
	s := &Store{
		anims: make(map[string]*Animation, len(names)),
		ready: make(chan struct{}),
	}
	for _, n := range names {
		s.declare(n)
	}
	return s
}

func (s *Store) declare(name string) int {
	for i, n := range s.names {
		if n == name {
			return i
		}
	}
	s.names = append(s.names, name)
	return len(s.names) - 1
}

// Declare reserves a slot for name and returns its index.
func (s *Store) Declare(name string) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.declare(name)
}

// Put stores a, declaring a new slot if its name is unknown. Every frame must
// match the length of the first frame ever stored.
func (s *Store) Put(a *Animation) error {
	if a.Len() == 0 {
		return fmt.Errorf("%w: %q", ErrEmpty, a.Name)
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	want := s.frameLen
	if want == 0 {
		want = len(a.Frames[0])
	}
	for i, f := range a.Frames {
		if len(f) != want {
			return fmt.Errorf("%w: %q frame %d has %d points, want %d", ErrFrameLength, a.Name, i, len(f), want)
		}
	}
	s.frameLen = want
	s.declare(a.Name)
	s.anims[a.Name] = a
	return nil
}

// Count returns the number of declared slots.
func (s *Store) Count() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.names)
}

// Name returns the slot name at index.
func (s *Store) Name(index int) (string, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if index < 0 || index >= len(s.names) {
		return "", false
	}
	return s.names[index], true
}

// Names returns the declared slot names in index order.
func (s *Store) Names() []string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return append([]string(nil), s.names...)
}

// Get returns the animation at index, or ErrNotLoaded when the slot is empty.
func (s *Store) Get(index int) (*Animation, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if index < 0 || index >= len(s.names) {
		return nil, fmt.Errorf("%w: index %d out of %d", ErrNotLoaded, index, len(s.names))
	}
	a, ok := s.anims[s.names[index]]
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrNotLoaded, s.names[index])
	}
	return a, nil
}

// Lookup returns the animation stored under name.
func (s *Store) Lookup(name string) (*Animation, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	a, ok := s.anims[name]
	return a, ok
}

// FrameLen returns the shared frame length, 0 while the store is empty.
func (s *Store) FrameLen() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.frameLen
}

// MarkReady opens the ready gate. Calling it more than once is harmless.
func (s *Store) MarkReady() {
	s.readyOnce.Do(func() { close(s.ready) })
}

// Ready is closed once loading has finished, successfully or not.
func (s *Store) Ready() <-chan struct{} {
	return s.ready
}
