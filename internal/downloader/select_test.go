package downloader

import (
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"
)

func TestSelectOutput(t *testing.T) {
	tests := []struct {
		name      string
		files     []string
		title     string
		ext       string
		wantFile  string
		wantError bool
	}{
		{
			name:     "wanted extension wins",
			files:    []string{"Song.webm", "Song.mp3"},
			title:    "Song",
			ext:      "mp3",
			wantFile: "Song.mp3",
		},
		{
			name:     "title match beats extension",
			files:    []string{"Other.mp4", "Clip.mkv"},
			title:    "Clip",
			ext:      "mp4",
			wantFile: "Clip.mkv",
		},
		{
			name:     "residual files skipped",
			files:    []string{"Clip.mp4.part", "Clip.f137.mp4.part-Frag3", "Clip.webm"},
			title:    "Clip",
			ext:      "mp4",
			wantFile: "Clip.webm",
		},
		{
			name:      "error when no files",
			files:     nil,
			ext:       "mp3",
			wantError: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			dir := t.TempDir()
			for _, f := range tt.files {
				if err := os.WriteFile(filepath.Join(dir, f), []byte("test"), 0o644); err != nil {
					t.Fatalf("Failed to create test file %s: %v", f, err)
				}
			}

			got, err := SelectOutput(dir, tt.title, tt.ext, time.Time{})
			if tt.wantError {
				if !errors.Is(err, ErrNoOutput) {
					t.Errorf("SelectOutput() err = %v, want ErrNoOutput", err)
				}
				return
			}
			if err != nil {
				t.Fatalf("SelectOutput() unexpected error: %v", err)
			}
			if filepath.Base(got) != tt.wantFile {
				t.Errorf("SelectOutput() = %v, want %v", filepath.Base(got), tt.wantFile)
			}
		})
	}
}

func TestSelectOutputIgnoresOldFiles(t *testing.T) {
	dir := t.TempDir()
	old := filepath.Join(dir, "Old.mp3")
	if err := os.WriteFile(old, []byte("x"), 0o644); err != nil {
		t.Fatal(err)
	}
	past := time.Now().Add(-time.Hour)
	if err := os.Chtimes(old, past, past); err != nil {
		t.Fatal(err)
	}
	if _, err := SelectOutput(dir, "", "mp3", time.Now().Add(-time.Minute)); !errors.Is(err, ErrNoOutput) {
		t.Fatalf("expected ErrNoOutput for stale files, got %v", err)
	}
}

func TestExtPriority(t *testing.T) {
	tests := []struct {
		ext  string
		want string
		pri  int
	}{
		{ext: ".mp3", want: "mp3", pri: 0},
		{ext: ".MP4", want: "", pri: 1},
		{ext: ".webm", want: "mp4", pri: 6},
		{ext: ".unknown", want: "mp4", pri: 100},
	}
	for _, tt := range tests {
		if got := extPriority(tt.ext, tt.want); got != tt.pri {
			t.Errorf("extPriority(%q, %q) = %d, want %d", tt.ext, tt.want, got, tt.pri)
		}
	}
}

func TestIsResidual(t *testing.T) {
	for name, want := range map[string]bool{
		"a.part":                 true,
		"a.TMP":                  true,
		"a.frag":                 true,
		"a.f251.webm.ytdl":       true,
		"a.f137.mp4.part-Frag12": true,
		"a.mp3":                  false,
		"partial.mp4":            false,
	} {
		if got := IsResidual(name); got != want {
			t.Errorf("IsResidual(%q) = %v, want %v", name, got, want)
		}
	}
}
