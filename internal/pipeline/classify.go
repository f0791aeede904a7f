package pipeline

import (
	"errors"
	"fmt"
	"strings"

	"funlight/internal/downloader"
	"funlight/internal/model"
	"funlight/internal/util/deps"
)

// Category groups job failures by what the user can do about them.
type Category string

const (
	CategoryValidation        Category = "validation"
	CategoryMissingDownloader Category = "missing-downloader"
	CategoryMissingTranscoder Category = "missing-transcoder"
	CategoryFormat            Category = "format-unavailable"
	CategoryPrivate           Category = "private"
	CategoryCopyright         Category = "copyright"
	CategoryUnavailable       Category = "unavailable"
	CategoryNoInfo            Category = "no-info"
	CategoryTrim              Category = "trim"
	CategoryDownload          Category = "download"
)

var (
	ErrTranscoder        = errors.New("transcoder failure")
	ErrFormatUnavailable = errors.New("requested format not available")
	ErrPrivate           = errors.New("private video")
	ErrCopyright         = errors.New("copyright restricted")
	ErrUnavailable       = errors.New("video unavailable")
	ErrTrim              = errors.New("trim failed")
)

// User-facing messages.
const (
	MsgFFmpegNotFound = "FFmpeg not found. Please run 'funlight setup' to install FFmpeg."
	MsgFFmpegError    = "FFmpeg error. Please make sure FFmpeg is installed correctly and try again."
	MsgFormat         = "The requested video quality is not available. Try a lower quality setting."
	MsgPrivate        = "This video is private and cannot be downloaded."
	MsgCopyright      = "This video is not available due to copyright restrictions."
	MsgUnavailable    = "Video is unavailable. Please check if the video exists and is not private."
	MsgNoInfo         = "Could not retrieve video information. Please check the URL."
)

// JobError is the classified terminal error of a job.
type JobError struct {
	Category Category
	Message  string
	Err      error
}

func (e *JobError) Error() string {
	return e.Message
}

func (e *JobError) Unwrap() error {
	return e.Err
}

// Is lets errors.Is match the category sentinel as well as the cause.
func (e *JobError) Is(target error) bool {
	s := sentinel(e.Category)
	return s != nil && s == target
}

func sentinel(c Category) error {
	switch c {
	case CategoryMissingTranscoder:
		return ErrTranscoder
	case CategoryFormat:
		return ErrFormatUnavailable
	case CategoryPrivate:
		return ErrPrivate
	case CategoryCopyright:
		return ErrCopyright
	case CategoryUnavailable:
		return ErrUnavailable
	case CategoryTrim:
		return ErrTrim
	}
	return nil
}

var textRules = []struct {
	needles  []string
	category Category
	message  string
}{
	{[]string{"requested format not available", "requested format is not available"}, CategoryFormat, MsgFormat},
	{[]string{"private video"}, CategoryPrivate, MsgPrivate},
	{[]string{"copyright"}, CategoryCopyright, MsgCopyright},
	{[]string{"unavailable"}, CategoryUnavailable, MsgUnavailable},
}

// Classify maps a failure to a JobError. Sentinel errors are matched
// first, then the error text is searched case-insensitively. Anything
// unrecognized becomes a generic download error.
func Classify(err error) *JobError {
	if err == nil {
		return nil
	}
	var je *JobError
	if errors.As(err, &je) {
		return je
	}

	switch {
	case errors.Is(err, deps.ErrFFmpegNotFound):
		return &JobError{Category: CategoryMissingTranscoder, Message: MsgFFmpegNotFound, Err: err}
	case errors.Is(err, deps.ErrDownloaderNotFound):
		return &JobError{Category: CategoryMissingDownloader, Message: err.Error(), Err: err}
	case errors.Is(err, downloader.ErrNoInfo):
		return &JobError{Category: CategoryNoInfo, Message: MsgNoInfo, Err: err}
	case isValidation(err):
		return &JobError{Category: CategoryValidation, Message: "Invalid request: " + err.Error(), Err: err}
	}

	text := strings.ToLower(err.Error())
	if transcoderFailure(err, text) {
		return &JobError{Category: CategoryMissingTranscoder, Message: MsgFFmpegError, Err: err}
	}
	for _, r := range textRules {
		for _, n := range r.needles {
			if strings.Contains(text, n) {
				return &JobError{Category: r.category, Message: r.message, Err: err}
			}
		}
	}
	return &JobError{Category: CategoryDownload, Message: fmt.Sprintf("Download error: %s", err.Error()), Err: err}
}

// transcoderFailure reports whether err came from FFmpeg. Extractor
// messages echo the URL and title, so for them only a postprocessor
// failure or a missing binary counts.
func transcoderFailure(err error, text string) bool {
	var xe *downloader.ExtractorError
	if !errors.As(err, &xe) {
		return strings.Contains(text, "ffmpeg") || strings.Contains(text, "ffprobe")
	}
	for _, part := range strings.Split(strings.ToLower(xe.Error()), ";") {
		part = strings.TrimSpace(part)
		if strings.HasPrefix(part, "postprocessing:") ||
			strings.Contains(part, "ffmpeg not found") ||
			strings.Contains(part, "ffprobe not found") {
			return true
		}
	}
	return false
}

func isValidation(err error) bool {
	for _, s := range []error{model.ErrEmptyURL, model.ErrEmptyOutDir, model.ErrUnknownKind, model.ErrInvalidQuality, model.ErrInvalidTrim} {
		if errors.Is(err, s) {
			return true
		}
	}
	return false
}
