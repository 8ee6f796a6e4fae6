package speech

import (
	"context"
	"crypto/md5"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"time"

	texttospeech "cloud.google.com/go/texttospeech/apiv1"
	"github.com/faiface/beep"
	"github.com/faiface/beep/mp3"
	"github.com/faiface/beep/speaker"
	"github.com/sirupsen/logrus"
	texttospeechpb "google.golang.org/genproto/googleapis/cloud/texttospeech/v1"
)

// GoogleSynthesizer renders utterances with Google Cloud Text-to-Speech and
// plays the resulting MP3 through the speaker. Rendered audio is cached on
// disk keyed by text, locale and voice.
type GoogleSynthesizer struct {
	client   *texttospeech.Client
	ctx      context.Context
	cacheDir string
}

func newGoogleSynthesizer(ctx context.Context, cacheDir string) (*GoogleSynthesizer, error) {
	client, err := texttospeech.NewClient(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to create TTS client: %w", err)
	}

	if cacheDir == "" {
		cacheDir = filepath.Join(os.TempDir(), "bhashakahani", "tts")
	}
	if err := os.MkdirAll(cacheDir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create cache dir: %w", err)
	}

	return &GoogleSynthesizer{
		client:   client,
		ctx:      ctx,
		cacheDir: cacheDir,
	}, nil
}

func (g *GoogleSynthesizer) Speak(req Request, done func(err error)) (Utterance, error) {
	path, err := g.ensureAudio(req)
	if err != nil {
		return nil, err
	}

	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open cached MP3 %s: %w", path, err)
	}

	streamer, format, err := mp3.Decode(f)
	if err != nil {
		f.Close()
		return nil, fmt.Errorf("failed to decode MP3 %s: %w", path, err)
	}

	if err := speaker.Init(format.SampleRate, format.SampleRate.N(time.Second/10)); err != nil {
		streamer.Close()
		return nil, err
	}

	ctrl := &beep.Ctrl{Streamer: streamer}
	utt := &googleUtterance{ctrl: ctrl, streamer: streamer}

	finish := detachDone(done)
	speaker.Play(beep.Seq(ctrl, beep.Callback(func() {
		finish(nil)
	})))

	return utt, nil
}

// detachDone hands the completion callback to a fresh goroutine. beep runs
// Callback bodies on the speaker goroutine with the speaker mutex held, so
// done must never run inline there: the handler may start the next utterance,
// and speaker.Init takes that same mutex.
func detachDone(done func(err error)) func(err error) {
	return func(err error) {
		go done(err)
	}
}

// ensureAudio synthesizes the utterance to an MP3 file unless a cached render
// already exists, and returns its path.
func (g *GoogleSynthesizer) ensureAudio(req Request) (string, error) {
	contentHash := md5Sum(req.Text + req.Locale + req.Voice)[:12]
	path := filepath.Join(g.cacheDir, fmt.Sprintf("utt_%s.mp3", contentHash))

	if _, err := os.Stat(path); err == nil {
		logrus.WithField("path", path).Debug("Using cached utterance audio")
		return path, nil
	}

	audioCfg := &texttospeechpb.AudioConfig{
		AudioEncoding: texttospeechpb.AudioEncoding_MP3,
	}
	// Chirp voices often reject speakingRate/pitch; skip them there
	if !strings.Contains(strings.ToLower(req.Voice), "chirp") && req.Rate > 0 {
		audioCfg.SpeakingRate = req.Rate
	}

	voice := &texttospeechpb.VoiceSelectionParams{
		LanguageCode: req.Locale,
	}
	if req.Voice != "" && req.Voice != "default" {
		voice.Name = req.Voice
	}

	// The API caps input size; node texts are short but split defensively.
	var audio []byte
	for chunkIndex, chunk := range splitIntoChunks(req.Text, 4800) {
		resp, err := g.client.SynthesizeSpeech(g.ctx, &texttospeechpb.SynthesizeSpeechRequest{
			Input: &texttospeechpb.SynthesisInput{
				InputSource: &texttospeechpb.SynthesisInput_Text{Text: chunk},
			},
			Voice:       voice,
			AudioConfig: audioCfg,
		})
		if err != nil {
			return "", fmt.Errorf("failed to synthesize chunk %d: %w", chunkIndex, err)
		}
		audio = append(audio, resp.AudioContent...)
	}

	if err := os.WriteFile(path, audio, 0644); err != nil {
		return "", fmt.Errorf("failed to write MP3 to %s: %w", path, err)
	}

	logrus.WithFields(logrus.Fields{
		"path":   path,
		"locale": req.Locale,
	}).Debug("Cached synthesized utterance")
	return path, nil
}

func (g *GoogleSynthesizer) Voices() ([]string, error) {
	resp, err := g.client.ListVoices(g.ctx, &texttospeechpb.ListVoicesRequest{})
	if err != nil {
		return nil, err
	}
	voices := []string{}
	for _, v := range resp.Voices {
		voices = append(voices, v.Name)
	}
	return voices, nil
}

// ClearCache removes all cached renders.
func (g *GoogleSynthesizer) ClearCache() error {
	return os.RemoveAll(g.cacheDir)
}

type googleUtterance struct {
	ctrl     *beep.Ctrl
	streamer beep.StreamSeekCloser
}

func (u *googleUtterance) Cancel() {
	speaker.Lock()
	u.ctrl.Streamer = nil
	speaker.Unlock()
	u.streamer.Close()
}

func md5Sum(s string) string {
	h := md5.New()
	io.WriteString(h, s)
	return fmt.Sprintf("%x", h.Sum(nil))
}

func splitIntoChunks(text string, limit int) []string {
	var chunks []string
	runes := []rune(text) // safe for UTF-8
	for i := 0; i < len(runes); i += limit {
		end := i + limit
		if end > len(runes) {
			end = len(runes)
		}
		chunks = append(chunks, string(runes[i:end]))
	}
	return chunks
}
