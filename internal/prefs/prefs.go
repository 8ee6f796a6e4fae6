// Package prefs is the persisted user preference store, backed by the viper
// config file so selections survive restarts.
package prefs

import (
	"github.com/sirupsen/logrus"
	"github.com/spf13/viper"
)

const languageKey = "playback.language"

// DefaultLanguage is used before the user ever picks one.
const DefaultLanguage = "en"

// Store reads and writes preferences through viper. It is injected where the
// language preference is needed rather than read as ambient global state.
type Store struct{}

func NewStore() *Store {
	return &Store{}
}

// Language returns the persisted narration language code.
func (s *Store) Language() string {
	if lang := viper.GetString(languageKey); lang != "" {
		return lang
	}
	return DefaultLanguage
}

// SetLanguage persists the narration language. Write failures are soft: the
// in-memory value still changes, so the session keeps working and only the
// persistence across restarts is lost.
func (s *Store) SetLanguage(code string) error {
	viper.Set(languageKey, code)

	if err := viper.WriteConfig(); err != nil {
		if err2 := viper.SafeWriteConfig(); err2 != nil {
			logrus.WithError(err).Debug("Could not persist preferences")
			return err
		}
	}
	return nil
}
