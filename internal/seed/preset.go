package seed

import (
	"embed"
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

//go:embed presets/*.yml
var presetFS embed.FS

// Options sizes a seeding run.
type Options struct {
	Users          int     `yaml:"users"`
	PostsPerUser   int     `yaml:"posts_per_user"`
	VotesPerPost   int     `yaml:"votes_per_post"`
	RepliesPerPost int     `yaml:"replies_per_post"`
	Friendships    int     `yaml:"friendships"`
	AcceptRatio    float64 `yaml:"accept_ratio"`
	MaxDays        int     `yaml:"max_days"`
	// Seed fixes the generator; zero picks a time-based seed.
	Seed  int64 `yaml:"seed"`
	Clean bool  `yaml:"clean"`
}

// DefaultOptions is used when no preset is given.
func DefaultOptions() Options {
	return Options{
		Users:          20,
		PostsPerUser:   4,
		VotesPerPost:   8,
		RepliesPerPost: 3,
		Friendships:    30,
		AcceptRatio:    0.6,
		MaxDays:        30,
	}
}

// Preset loads one of the built-in presets by name ("small", "demo").
func Preset(name string) (Options, error) {
	data, err := presetFS.ReadFile("presets/" + name + ".yml")
	if err != nil {
		return Options{}, fmt.Errorf("unknown preset %q", name)
	}
	return ParsePreset(data)
}

// LoadPreset reads a YAML preset from path.
func LoadPreset(path string) (Options, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return Options{}, fmt.Errorf("read preset: %w", err)
	}
	return ParsePreset(data)
}

// ParsePreset decodes a YAML preset on top of DefaultOptions.
func ParsePreset(data []byte) (Options, error) {
	opts := DefaultOptions()
	if err := yaml.Unmarshal(data, &opts); err != nil {
		return Options{}, fmt.Errorf("parse preset: %w", err)
	}
	if err := opts.validate(); err != nil {
		return Options{}, err
	}
	return opts, nil
}

func (o Options) validate() error {
	switch {
	case o.Users < 0, o.PostsPerUser < 0, o.VotesPerPost < 0, o.RepliesPerPost < 0, o.Friendships < 0:
		return fmt.Errorf("preset counts must not be negative")
	case o.AcceptRatio < 0 || o.AcceptRatio > 1:
		return fmt.Errorf("accept_ratio must be between 0 and 1")
	case o.MaxDays < 0:
		return fmt.Errorf("max_days must not be negative")
	}
	return nil
}
