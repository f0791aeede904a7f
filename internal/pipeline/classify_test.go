package pipeline

import (
	"errors"
	"fmt"
	"testing"

	"funlight/internal/downloader"
	"funlight/internal/model"
	"funlight/internal/util/deps"
)

func TestClassify(t *testing.T) {
	tests := []struct {
		name    string
		err     error
		wantCat Category
		wantMsg string
	}{
		{"ffmpeg sentinel", fmt.Errorf("locate: %w", deps.ErrFFmpegNotFound), CategoryMissingTranscoder, MsgFFmpegNotFound},
		{"ffprobe text", errors.New("ERROR: ffprobe and ffmpeg not found"), CategoryMissingTranscoder, MsgFFmpegError},
		{"format", errors.New("Requested format is not available. Use --list-formats"), CategoryFormat, MsgFormat},
		{"format before private", errors.New("private video: requested format not available"), CategoryFormat, MsgFormat},
		{"private", errors.New("[youtube] x: Private video"), CategoryPrivate, MsgPrivate},
		{"copyright", errors.New("blocked on COPYRIGHT grounds"), CategoryCopyright, MsgCopyright},
		{"unavailable", errors.New("Video unavailable"), CategoryUnavailable, MsgUnavailable},
		{"no info", downloader.ErrNoInfo, CategoryNoInfo, MsgNoInfo},
		{"validation", model.ErrEmptyURL, CategoryValidation, "Invalid request: url is required"},
		{"generic", errors.New("boom"), CategoryDownload, "Download error: boom"},
		{"extractor error", &downloader.ExtractorError{Message: "Unsupported URL", Err: errors.New("exit status 1")}, CategoryDownload, "Download error: Unsupported URL"},
		{"ffmpeg in extractor url", &downloader.ExtractorError{Message: "Unsupported URL: https://example.com/videos/ffmpeg-crash-course"}, CategoryDownload, "Download error: Unsupported URL: https://example.com/videos/ffmpeg-crash-course"},
		{"extractor postprocessing", &downloader.ExtractorError{Message: "Postprocessing: Conversion failed!"}, CategoryMissingTranscoder, MsgFFmpegError},
		{"extractor missing ffmpeg", &downloader.ExtractorError{Message: "Sign in to confirm; ffprobe and ffmpeg not found. Please install or provide the path"}, CategoryMissingTranscoder, MsgFFmpegError},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			je := Classify(tt.err)
			if je.Category != tt.wantCat {
				t.Errorf("Category = %q, want %q", je.Category, tt.wantCat)
			}
			if je.Message != tt.wantMsg {
				t.Errorf("Message = %q, want %q", je.Message, tt.wantMsg)
			}
			if !errors.Is(je, tt.err) {
				t.Errorf("JobError does not wrap cause")
			}
		})
	}
}

func TestClassifyPassesThroughJobError(t *testing.T) {
	in := &JobError{Category: CategoryTrim, Message: "Trim error: x", Err: errors.New("x")}
	if got := Classify(fmt.Errorf("wrapped: %w", in)); got != in {
		t.Errorf("Classify() = %+v, want original", got)
	}
	if !errors.Is(in, ErrTrim) || !IsCategory(in, CategoryTrim) {
		t.Errorf("trim JobError should match ErrTrim")
	}
	if Classify(nil) != nil {
		t.Errorf("Classify(nil) should be nil")
	}
}
