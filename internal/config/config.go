// Package config layers flags, FUNLIGHT_* environment variables, the
// config file and defaults into one Settings value.
package config

import (
	"errors"
	"fmt"
	"io"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"gopkg.in/yaml.v3"

	"funlight/internal/dirs"
)

// Settings is the effective configuration.
type Settings struct {
	OutDir           string `yaml:"out_dir" mapstructure:"out_dir"`
	Format           string `yaml:"format" mapstructure:"format"`
	Quality          string `yaml:"quality" mapstructure:"quality"`
	DLBinary         string `yaml:"dl_binary" mapstructure:"dl_binary"`
	FFmpegLocation   string `yaml:"ffmpeg_location" mapstructure:"ffmpeg_location"`
	Verbose          bool   `yaml:"verbose" mapstructure:"verbose"`
	LogLevel         string `yaml:"log_level" mapstructure:"log_level"`
	LogFormat        string `yaml:"log_format" mapstructure:"log_format"`
	HistoryPath      string `yaml:"history_path" mapstructure:"history_path"`
	NoHistory        bool   `yaml:"no_history" mapstructure:"no_history"`
	ServeAddr        string `yaml:"serve_addr" mapstructure:"serve_addr"`
	KeepIntermediate bool   `yaml:"keep_intermediate" mapstructure:"keep_intermediate"`
	ExactTrim        bool   `yaml:"exact_trim" mapstructure:"exact_trim"`
}

// persistent maps viper keys to root persistent flag names.
var persistent = map[string]string{
	"out_dir":           "out-dir",
	"verbose":           "verbose",
	"dl_binary":         "dl-binary",
	"ffmpeg_location":   "ffmpeg-location",
	"log_level":         "log-level",
	"log_format":        "log-format",
	"history_path":      "history-path",
	"no_history":        "no-history",
	"keep_intermediate": "keep-intermediate",
}

// Init wires Viper with config paths, env, defaults, and flag bindings.
// A missing config file is not an error; a malformed one is.
func Init(root *cobra.Command) error {
	return initWith(viper.GetViper(), root)
}

func initWith(v *viper.Viper, root *cobra.Command) error {
	_ = dirs.EnsureAll()

	if cfgDir, err := dirs.ConfigDir(); err == nil {
		_ = dirs.Ensure(cfgDir)
		v.AddConfigPath(cfgDir)
	}
	v.SetConfigName("config") // supports config.{yaml|yml|json|toml}

	setDefaults(v)

	// Environment variables: FUNLIGHT_*
	v.SetEnvPrefix("FUNLIGHT")
	v.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
	v.AutomaticEnv()

	if root != nil {
		for key, flag := range persistent {
			if f := root.PersistentFlags().Lookup(flag); f != nil {
				_ = v.BindPFlag(key, f)
			}
		}
	}

	if err := v.ReadInConfig(); err != nil {
		var nf viper.ConfigFileNotFoundError
		if !errors.As(err, &nf) {
			return fmt.Errorf("read config: %w", err)
		}
	}
	return nil
}

func setDefaults(v *viper.Viper) {
	outDir, err := dirs.DefaultOutputDir()
	if err != nil {
		outDir = "."
	}
	v.SetDefault("out_dir", outDir)
	v.SetDefault("format", "mp3")
	v.SetDefault("quality", "")
	v.SetDefault("verbose", false)
	v.SetDefault("log_level", "info")
	v.SetDefault("log_format", "text")
	if p, err := dirs.HistoryPath(); err == nil {
		v.SetDefault("history_path", p)
	}
	v.SetDefault("no_history", false)
	v.SetDefault("serve_addr", "127.0.0.1:8765")
	v.SetDefault("keep_intermediate", false)
	v.SetDefault("exact_trim", false)
}

// Load returns the effective settings.
func Load() Settings {
	return load(viper.GetViper())
}

func load(v *viper.Viper) Settings {
	return Settings{
		OutDir:           v.GetString("out_dir"),
		Format:           v.GetString("format"),
		Quality:          v.GetString("quality"),
		DLBinary:         v.GetString("dl_binary"),
		FFmpegLocation:   v.GetString("ffmpeg_location"),
		Verbose:          v.GetBool("verbose"),
		LogLevel:         v.GetString("log_level"),
		LogFormat:        v.GetString("log_format"),
		HistoryPath:      v.GetString("history_path"),
		NoHistory:        v.GetBool("no_history"),
		ServeAddr:        v.GetString("serve_addr"),
		KeepIntermediate: v.GetBool("keep_intermediate"),
		ExactTrim:        v.GetBool("exact_trim"),
	}
}

// File returns the config file in use, or where one would be read from.
func File() string {
	if f := viper.ConfigFileUsed(); f != "" {
		return f
	}
	dir, err := dirs.ConfigDir()
	if err != nil {
		return ""
	}
	return filepath.Join(dir, "config.yaml")
}

// WriteYAML writes s as YAML.
func (s Settings) WriteYAML(w io.Writer) error {
	enc := yaml.NewEncoder(w)
	enc.SetIndent(2)
	if err := enc.Encode(s); err != nil {
		return err
	}
	return enc.Close()
}
