// Package translate maps a job request onto the extractor's option schema
// and renders that schema as a yt-dlp command line. It performs no I/O.
package translate

import (
	"fmt"
	"path/filepath"
	"strings"

	"funlight/internal/model"
)

// Post-processor keys understood by yt-dlp.
const (
	PPExtractAudio   = "FFmpegExtractAudio"
	PPVideoConvertor = "FFmpegVideoConvertor"
)

// OutputTemplate is the file name template used inside the destination dir.
const OutputTemplate = "%(title)s.%(ext)s"

// videoConvertorArgs keep the video stream and normalize audio to
// 192k/48kHz AAC with the moov atom up front.
var videoConvertorArgs = []string{
	"-c:v", "copy",
	"-c:a", "aac",
	"-b:a", "192k",
	"-ar", "48000",
	"-movflags", "+faststart",
	"-threads", "auto",
}

// Postprocessor is one step of the extractor's post-processing pipeline.
type Postprocessor struct {
	Key              string
	PreferredCodec   string
	PreferredQuality string
	PreferredFormat  string
}

// Options is the extractor option record for one job.
type Options struct {
	Format            string
	OutputTemplate    string
	MergeOutputFormat string
	Postprocessors    []Postprocessor
	PostprocessorArgs []string
	FFmpegLocation    string
	KeepVideo         bool
	KeepFragments     bool
}

// ForRequest translates a normalized request. It is a pure function of
// the request: the same input always yields the same Options.
func ForRequest(req model.JobRequest) (Options, error) {
	opts := Options{
		OutputTemplate: filepath.Join(req.OutDir, OutputTemplate),
	}

	switch req.Kind {
	case model.KindMP3, model.KindAAC:
		opts.Format = "bestaudio/best"
		opts.Postprocessors = []Postprocessor{{
			Key:              PPExtractAudio,
			PreferredCodec:   string(req.Kind),
			PreferredQuality: req.Quality,
		}}
	case model.KindWAV:
		opts.Format = "bestaudio/best"
		opts.Postprocessors = []Postprocessor{{
			Key:            PPExtractAudio,
			PreferredCodec: string(model.KindWAV),
		}}
	case model.KindMP4:
		if h := req.Height(); h > 0 {
			opts.Format = fmt.Sprintf("bestvideo[height<=%d]+bestaudio/best[height<=%d]", h, h)
		} else {
			opts.Format = "bestvideo+bestaudio/best"
		}
		opts.MergeOutputFormat = "mp4"
		opts.Postprocessors = []Postprocessor{{
			Key:             PPVideoConvertor,
			PreferredFormat: "mp4",
		}}
		opts.PostprocessorArgs = append([]string(nil), videoConvertorArgs...)
	default:
		return Options{}, fmt.Errorf("%w: %q", model.ErrUnknownKind, req.Kind)
	}
	return opts, nil
}

// Ext returns the extension of the final file, without the dot.
func (o Options) Ext() string {
	for _, pp := range o.Postprocessors {
		switch pp.Key {
		case PPExtractAudio:
			if pp.PreferredCodec == "aac" {
				return "m4a"
			}
			return pp.PreferredCodec
		case PPVideoConvertor:
			return pp.PreferredFormat
		}
	}
	if o.MergeOutputFormat != "" {
		return o.MergeOutputFormat
	}
	return ""
}

// Args renders the options as yt-dlp arguments for url. Progress is
// requested one update per line so it can be parsed.
func (o Options) Args(url string) []string {
	args := []string{
		"--newline",
		"--no-color",
		"--no-playlist",
		"--no-mtime",
		"-f", o.Format,
		"-o", o.OutputTemplate,
	}
	if o.MergeOutputFormat != "" {
		args = append(args, "--merge-output-format", o.MergeOutputFormat)
	}
	for _, pp := range o.Postprocessors {
		switch pp.Key {
		case PPExtractAudio:
			args = append(args, "-x", "--audio-format", pp.PreferredCodec)
			if pp.PreferredQuality != "" {
				args = append(args, "--audio-quality", pp.PreferredQuality+"K")
			}
		case PPVideoConvertor:
			args = append(args, "--recode-video", pp.PreferredFormat)
		}
	}
	if len(o.PostprocessorArgs) > 0 {
		args = append(args, "--postprocessor-args", "VideoConvertor:"+strings.Join(o.PostprocessorArgs, " "))
	}
	if o.FFmpegLocation != "" {
		args = append(args, "--ffmpeg-location", o.FFmpegLocation)
	}
	if o.KeepVideo {
		args = append(args, "-k")
	}
	if o.KeepFragments {
		args = append(args, "--keep-fragments")
	}
	return append(args, "--", url)
}

// MetadataArgs returns the arguments that print the info JSON for url
// without downloading, using the same format selection as the real run.
func (o Options) MetadataArgs(url string) []string {
	args := []string{"--dump-json", "--no-playlist", "--no-warnings", "-f", o.Format}
	if o.FFmpegLocation != "" {
		args = append(args, "--ffmpeg-location", o.FFmpegLocation)
	}
	return append(args, "--", url)
}
