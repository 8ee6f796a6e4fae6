package speech

// Request describes one utterance to synthesize.
type Request struct {
	Text   string
	Locale string
	// Voice optionally names a specific synthesis voice. Empty means the
	// backend default for the locale.
	Voice  string
	Rate   float64
	Volume float64
}

// Utterance is a single in-flight synthesized speech unit. There is no
// pause/resume primitive; a cancelled utterance can only be restarted from
// the beginning.
type Utterance interface {
	Cancel()
}

// Synthesizer produces audible speech from text. done is invoked exactly once
// when the utterance finishes naturally or fails; it is not invoked again
// after Cancel, but a cancel racing a natural end may still deliver it, so
// callers must be prepared to discard stale completions.
type Synthesizer interface {
	Speak(req Request, done func(err error)) (Utterance, error)
	Voices() ([]string, error)
}
