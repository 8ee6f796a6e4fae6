package config

import "github.com/spf13/viper"

func SetDefaults() {
	viper.SetDefault("api.base_url", "http://localhost:8000")
	viper.SetDefault("api.timeout_sec", 30)

	viper.SetDefault("tts.type", "auto") // Auto-select best backend
	viper.SetDefault("tts.speed", 1.0)
	viper.SetDefault("tts.volume", 0.8)
	viper.SetDefault("tts.cache_path", "")

	viper.SetDefault("playback.language", "en")
}
