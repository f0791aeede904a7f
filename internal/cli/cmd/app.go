package cmd

import (
	"context"
	"io"
	"log/slog"
	"path/filepath"

	"funlight/internal/config"
	"funlight/internal/history"
	"funlight/internal/logging"
	"funlight/internal/pipeline"
	"funlight/internal/session"
	"funlight/internal/util"
	"funlight/internal/util/deps"
)

// app is the wiring shared by every shell: settings, logger, the
// pipeline service and the optional history store.
type app struct {
	settings config.Settings
	logger   *slog.Logger
	runner   util.CmdRunner
	dlPath   string
	dlErr    error
	service  *pipeline.Service
	history  *history.Store
}

func newLogger(w io.Writer, s config.Settings) (*slog.Logger, error) {
	level, err := logging.ParseLevel(s.LogLevel)
	if err != nil {
		return nil, err
	}
	if s.Verbose {
		level = slog.LevelDebug
	}
	return logging.New(w, level, s.LogFormat)
}

func setDefaultLogger(l *slog.Logger) {
	slog.SetDefault(l)
}

// newApp resolves yt-dlp and opens history. A missing yt-dlp is not an
// error here: jobs report it through the pipeline so every shell shows
// the same message.
func newApp(s config.Settings, logger *slog.Logger) *app {
	a := &app{
		settings: s,
		logger:   logger,
		runner:   &util.ExecRunner{Logger: logger},
	}
	a.dlPath, a.dlErr = deps.FindDownloader(s.DLBinary)
	if a.dlErr != nil {
		logger.Debug("downloader lookup failed", "error", a.dlErr)
	}
	a.service = pipeline.NewService(
		pipeline.WithDownloaderPath(a.dlPath),
		pipeline.WithFFmpegOverride(s.FFmpegLocation),
		pipeline.WithRunner(a.runner),
		pipeline.WithLogger(logger),
		pipeline.WithKeepIntermediate(s.KeepIntermediate),
		pipeline.WithExactTrim(s.ExactTrim),
	)

	if !s.NoHistory && s.HistoryPath != "" {
		if err := util.EnsureDir(filepath.Dir(s.HistoryPath)); err != nil {
			logger.Warn("history disabled", "path", s.HistoryPath, "error", err)
			return a
		}
		store, err := history.Open(s.HistoryPath)
		if err != nil {
			logger.Warn("history disabled", "path", s.HistoryPath, "error", err)
			return a
		}
		a.history = store
	}
	return a
}

// newSession starts a Session whose jobs run under ctx.
func (a *app) newSession(ctx context.Context) *session.Session {
	opts := []session.Option{session.WithLogger(a.logger)}
	if a.history != nil {
		opts = append(opts, session.WithRecorder(a.history))
	}
	return session.New(ctx, a.service, opts...)
}

func (a *app) Close() {
	if a.history != nil {
		if err := a.history.Close(); err != nil {
			a.logger.Warn("close history", "error", err)
		}
	}
}
