package config

import (
	"context"
	"os"
	"time"

	"github.com/pkg/errors"
	"github.com/sethvargo/go-envconfig"
	"github.com/spf13/viper"
)

// RankPolicy names the video ordering strategy.
type RankPolicy string

const (
	// PolicyAudioFirst partitions audio-capable variants ahead of
	// video-only ones, each sorted by resolution descending.
	PolicyAudioFirst RankPolicy = "audio-first"
	// PolicyQualityFirst picks the highest resolution overall, tie-broken
	// towards an audio-capable variant within one quality step.
	PolicyQualityFirst RankPolicy = "quality-first"
)

type Config struct {
	Server struct {
		Addr string `mapstructure:"addr" env:"SERVER_ADDR,default=:8080"`
	} `mapstructure:"server"`

	Provider struct {
		Name          string        `mapstructure:"name" env:"PROVIDER_NAME,default=mediadl"`
		Key           string        `mapstructure:"key" env:"PROVIDER_KEY"`
		Host          string        `mapstructure:"host" env:"PROVIDER_HOST,default=youtube-media-downloader.p.rapidapi.com"`
		Timeout       time.Duration `mapstructure:"timeout" env:"PROVIDER_TIMEOUT,default=30s"`
		ProbeAttempts uint          `mapstructure:"probe_attempts" env:"PROVIDER_PROBE_ATTEMPTS,default=3"`
	} `mapstructure:"provider"`

	Selection struct {
		Policy      RankPolicy `mapstructure:"policy" env:"SELECTION_POLICY,default=audio-first"`
		MaxHeight   int        `mapstructure:"max_height" env:"SELECTION_MAX_HEIGHT,default=1080"`
		AssumeAudio bool       `mapstructure:"assume_audio" env:"SELECTION_ASSUME_AUDIO,default=true"`
	} `mapstructure:"selection"`

	Cache struct {
		Enabled bool          `mapstructure:"enabled" env:"CACHE_ENABLED,default=false"`
		TTL     time.Duration `mapstructure:"ttl" env:"CACHE_TTL,default=5m"`
	} `mapstructure:"cache"`
}

func NewConfig(ctx context.Context, configPath string) (*Config, error) {
	var conf Config
	if len(configPath) == 0 {
		if err := envconfig.Process(ctx, &conf); err != nil {
			return nil, errors.Wrap(err, "failed to process config environment variables")
		}
		return &conf, nil
	}

	f, err := os.Open(configPath)
	if err != nil {
		return nil, errors.Wrapf(err, "failed to open config file '%s'", configPath)
	}

	v := viper.New()
	v.SetConfigType("yaml")

	// The yaml path must land on the same documented defaults as the env
	// path; a file omitting a block must not silently flip policy knobs.
	v.SetDefault("server.addr", ":8080")
	v.SetDefault("provider.name", "mediadl")
	v.SetDefault("provider.host", "youtube-media-downloader.p.rapidapi.com")
	v.SetDefault("provider.timeout", 30*time.Second)
	v.SetDefault("provider.probe_attempts", 3)
	v.SetDefault("selection.policy", string(PolicyAudioFirst))
	v.SetDefault("selection.max_height", 1080)
	v.SetDefault("selection.assume_audio", true)
	v.SetDefault("cache.enabled", false)
	v.SetDefault("cache.ttl", 5*time.Minute)

	if err := v.ReadConfig(f); err != nil {
		return nil, errors.Wrap(err, "failed to read config yaml file")
	}
	if err := v.Unmarshal(&conf); err != nil {
		return nil, errors.Wrap(err, "failed to decode config yaml file")
	}

	return &conf, nil
}
