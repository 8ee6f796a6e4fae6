package speech

import (
	"context"
	"fmt"
	"os"

	"github.com/spf13/viper"
)

type BackendType string

const (
	BackendMock   BackendType = "mock"
	BackendESpeak BackendType = "espeak"
	BackendGoogle BackendType = "google"
	BackendAuto   BackendType = "auto" // Automatically choose best available
)

func (b BackendType) String() string {
	return string(b)
}

// NewSynthesizer creates a speech backend of the configured type.
func NewSynthesizer(ctx context.Context, backend string) (Synthesizer, error) {
	if backend == BackendAuto.String() {
		backend = bestBackend().String()
	}

	switch backend {
	case BackendMock.String():
		return NewMock(), nil

	case BackendGoogle.String():
		cachePath := viper.GetString("tts.cache_path")
		return newGoogleSynthesizer(ctx, cachePath)

	case BackendESpeak.String():
		return newESpeakSynthesizer()

	default:
		return nil, fmt.Errorf("unsupported speech backend: %s", backend)
	}
}

// bestBackend returns the recommended backend for the current environment.
func bestBackend() BackendType {
	if hasGoogleCredentials() {
		return BackendGoogle
	}
	if _, err := findESpeakExecutable(); err == nil {
		return BackendESpeak
	}
	return BackendMock
}

// AvailableBackends returns backends usable in the current environment.
func AvailableBackends() []BackendType {
	backends := []BackendType{BackendMock}

	if _, err := findESpeakExecutable(); err == nil {
		backends = append(backends, BackendESpeak)
	}
	if hasGoogleCredentials() {
		backends = append(backends, BackendGoogle)
	}

	return backends
}

// hasGoogleCredentials checks if Google Cloud credentials are available
func hasGoogleCredentials() bool {
	_, ok := os.LookupEnv("GOOGLE_APPLICATION_CREDENTIALS")
	return ok
}
