package cos

import "sync"

// StopCh is a closable "done" signal that can be listened on by multiple
// goroutines and closed exactly once. The session's timer wheel blocks on
// a StopCh rather than a raw channel so that shutdown never double-closes.
type StopCh struct {
	ch   chan struct{}
	once sync.Once
}

func (s *StopCh) Init() { s.ch = make(chan struct{}) }

func (s *StopCh) Listen() <-chan struct{} { return s.ch }

func (s *StopCh) Close() { s.once.Do(func() { close(s.ch) }) }
