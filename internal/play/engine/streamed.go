package engine

import (
	"bytes"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/faiface/beep"
	"github.com/faiface/beep/mp3"
	"github.com/faiface/beep/speaker"
	"github.com/sirupsen/logrus"
)

// BeepPlayer plays streamed MP3 narration through the speaker. The clip is
// fetched fully before decoding because the decoder needs a seekable stream.
type BeepPlayer struct {
	httpClient *http.Client
}

func NewBeepPlayer(timeout time.Duration) *BeepPlayer {
	return &BeepPlayer{
		httpClient: &http.Client{Timeout: timeout},
	}
}

func (p *BeepPlayer) Play(url string, done func(err error)) (StreamHandle, error) {
	resp, err := p.httpClient.Get(url)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch audio: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("unexpected status %d fetching audio", resp.StatusCode)
	}

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read audio body: %w", err)
	}

	streamer, format, err := mp3.Decode(&nopSeekCloser{bytes.NewReader(raw)})
	if err != nil {
		return nil, fmt.Errorf("failed to decode MP3: %w", err)
	}

	if err := speaker.Init(format.SampleRate, format.SampleRate.N(time.Second/10)); err != nil {
		streamer.Close()
		return nil, err
	}

	ctrl := &beep.Ctrl{Streamer: streamer}
	handle := &beepHandle{ctrl: ctrl, streamer: streamer}

	finish := detachDone(done)
	speaker.Play(beep.Seq(ctrl, beep.Callback(func() {
		finish(nil)
	})))

	logrus.WithFields(logrus.Fields{
		"bytes":       len(raw),
		"sample_rate": format.SampleRate,
	}).Debug("Streamed clip started")
	return handle, nil
}

type beepHandle struct {
	ctrl     *beep.Ctrl
	streamer beep.StreamSeekCloser
}

func (h *beepHandle) Pause() {
	speaker.Lock()
	h.ctrl.Paused = true
	speaker.Unlock()
}

func (h *beepHandle) Resume() {
	speaker.Lock()
	h.ctrl.Paused = false
	speaker.Unlock()
}

func (h *beepHandle) Stop() {
	speaker.Lock()
	h.ctrl.Streamer = nil
	speaker.Unlock()
	h.streamer.Close()
}

// detachDone hands the completion callback to a fresh goroutine. beep runs
// Callback bodies on the speaker goroutine with the speaker mutex held, so
// done must never run inline there: the handler may start the next clip, and
// speaker.Init takes that same mutex.
func detachDone(done func(err error)) func(err error) {
	return func(err error) {
		go done(err)
	}
}

type nopSeekCloser struct {
	*bytes.Reader
}

func (nopSeekCloser) Close() error { return nil }
