package config

import "github.com/kelseyhightower/envconfig"

// Settings are the process-level knobs that do not belong in the style
// document: binaries, directories, worker limits. They come from flags
// first and CHAT2VIDEO_* environment variables as the fallback layer.
type Settings struct {
	FFmpegBin  string `envconfig:"FFMPEG" default:"ffmpeg"`
	FFprobeBin string `envconfig:"FFPROBE" default:"ffprobe"`
	TTSCommand string `envconfig:"TTS_COMMAND"`
	SFXDir     string `envconfig:"SFX_DIR" default:"sfx"`
	OutputDir  string `envconfig:"OUTPUT_DIR" default:"output"`
	Workers    int    `envconfig:"WORKERS"`
	FPS        int    `envconfig:"FPS" default:"24"`
	KeepTemp   bool   `envconfig:"KEEP_TEMP"`
}

// LoadSettings resolves the environment layer.
func LoadSettings() (Settings, error) {
	var s Settings
	if err := envconfig.Process("CHAT2VIDEO", &s); err != nil {
		return Settings{}, err
	}
	return s, nil
}
