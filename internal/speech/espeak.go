// Cross-platform eSpeak/eSpeak-NG backend.
package speech

import (
	"fmt"
	"os/exec"
	"strconv"
	"strings"
	"sync"

	"github.com/sirupsen/logrus"
)

// ESpeakSynthesizer speaks through the local eSpeak executable, one process
// per utterance.
type ESpeakSynthesizer struct {
	path string
}

func newESpeakSynthesizer() (*ESpeakSynthesizer, error) {
	path, err := findESpeakExecutable()
	if err != nil {
		return nil, fmt.Errorf("eSpeak not found: %w", err)
	}

	// Test the installation
	if err := exec.Command(path, "--version").Run(); err != nil {
		return nil, fmt.Errorf("eSpeak test failed: %w", err)
	}

	return &ESpeakSynthesizer{path: path}, nil
}

func findESpeakExecutable() (string, error) {
	candidates := []string{"espeak-ng", "espeak"}

	for _, candidate := range candidates {
		if path, err := exec.LookPath(candidate); err == nil {
			return path, nil
		}
	}

	return "", fmt.Errorf("eSpeak executable not found in PATH")
}

func (e *ESpeakSynthesizer) Speak(req Request, done func(err error)) (Utterance, error) {
	args := []string{}

	voice := req.Voice
	if voice == "" || voice == "default" {
		voice = espeakVoice(req.Locale)
	}
	args = append(args, "-v", voice)

	// Speed in words per minute, eSpeak default is 175
	rate := req.Rate
	if rate <= 0 {
		rate = 1.0
	}
	args = append(args, "-s", strconv.Itoa(int(175*rate)))

	// Amplitude 0-200, default is 100
	volume := req.Volume
	if volume <= 0 {
		volume = 1.0
	}
	args = append(args, "-a", strconv.Itoa(int(100*volume)))

	args = append(args, req.Text)

	cmd := exec.Command(e.path, args...)
	if err := cmd.Start(); err != nil {
		return nil, fmt.Errorf("failed to start eSpeak: %w", err)
	}

	utt := &espeakUtterance{cmd: cmd}

	go func() {
		err := cmd.Wait()
		if utt.wasCancelled() {
			return
		}
		if err != nil {
			logrus.WithError(err).Debug("eSpeak process exited with error")
		}
		done(err)
	}()

	return utt, nil
}

func (e *ESpeakSynthesizer) Voices() ([]string, error) {
	cmd := exec.Command(e.path, "--voices")
	output, err := cmd.Output()
	if err != nil {
		return nil, err
	}

	return parseESpeakVoices(string(output)), nil
}

func parseESpeakVoices(output string) []string {
	lines := strings.Split(output, "\n")
	voices := make([]string, 0)

	for i, line := range lines {
		// Skip header line
		if i == 0 || strings.TrimSpace(line) == "" {
			continue
		}

		// Pty Language Age/Gender VoiceName File Other Languages
		fields := strings.Fields(line)
		if len(fields) >= 4 {
			voices = append(voices, fields[3])
		}
	}

	return voices
}

type espeakUtterance struct {
	cmd       *exec.Cmd
	mu        sync.Mutex
	cancelled bool
}

func (u *espeakUtterance) Cancel() {
	u.mu.Lock()
	u.cancelled = true
	u.mu.Unlock()

	if u.cmd.Process != nil {
		_ = u.cmd.Process.Kill()
	}
}

func (u *espeakUtterance) wasCancelled() bool {
	u.mu.Lock()
	defer u.mu.Unlock()
	return u.cancelled
}
