package speech

import "sync"

// MockSynthesizer is a scripted backend for tests and environments without a
// working speech runtime. Utterances stay pending until completed explicitly,
// unless AutoComplete is set.
type MockSynthesizer struct {
	mu           sync.Mutex
	AutoComplete bool
	spoken       []Request
	pending      *MockUtterance
}

func NewMock() *MockSynthesizer {
	return &MockSynthesizer{}
}

func (m *MockSynthesizer) Speak(req Request, done func(err error)) (Utterance, error) {
	m.mu.Lock()
	m.spoken = append(m.spoken, req)
	utt := &MockUtterance{done: done}
	m.pending = utt
	auto := m.AutoComplete
	m.mu.Unlock()

	if auto {
		go utt.Complete(nil)
	}
	return utt, nil
}

func (m *MockSynthesizer) Voices() ([]string, error) {
	return []string{"mock-voice"}, nil
}

// Spoken returns the requests seen so far.
func (m *MockSynthesizer) Spoken() []Request {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]Request, len(m.spoken))
	copy(out, m.spoken)
	return out
}

// Pending returns the most recent utterance, or nil.
func (m *MockSynthesizer) Pending() *MockUtterance {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.pending
}

// MockUtterance completes when told to.
type MockUtterance struct {
	mu        sync.Mutex
	done      func(err error)
	finished  bool
	Cancelled bool
}

// Complete delivers the completion callback once.
func (u *MockUtterance) Complete(err error) {
	u.mu.Lock()
	if u.finished {
		u.mu.Unlock()
		return
	}
	u.finished = true
	done := u.done
	u.mu.Unlock()
	done(err)
}

func (u *MockUtterance) Cancel() {
	u.mu.Lock()
	u.finished = true
	u.Cancelled = true
	u.mu.Unlock()
}
