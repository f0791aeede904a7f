package history

import (
	"context"
	"path/filepath"
	"testing"
	"time"
)

func TestStoreRecordAndList(t *testing.T) {
	ctx := context.Background()
	s, err := Open(filepath.Join(t.TempDir(), "history.db"))
	if err != nil {
		t.Fatalf("Open() error: %v", err)
	}
	defer s.Close()

	base := time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)
	entries := []Entry{
		{JobID: "job-1", URL: "https://a", Format: "mp3", Quality: "192", Status: StatusSucceeded, OutputPath: "/out/a.mp3", Bytes: 10, Started: base, Finished: base.Add(5 * time.Second)},
		{JobID: "job-2", URL: "https://b", Format: "mp4", Status: StatusFailed, Category: "private", Error: "This video is private", Started: base.Add(time.Minute), Finished: base.Add(time.Minute + time.Second)},
		{JobID: "job-3", URL: "https://c", Format: "wav", Status: StatusSucceeded, Started: base.Add(2 * time.Minute), Finished: base.Add(3 * time.Minute)},
	}
	for _, e := range entries {
		if err := s.Record(ctx, e); err != nil {
			t.Fatalf("Record(%s) error: %v", e.JobID, err)
		}
	}

	got, err := s.List(ctx, 0)
	if err != nil {
		t.Fatalf("List() error: %v", err)
	}
	if len(got) != 3 {
		t.Fatalf("List() len = %d, want 3", len(got))
	}
	if got[0].JobID != "job-3" || got[2].JobID != "job-1" {
		t.Errorf("order = %s,%s,%s, want newest first", got[0].JobID, got[1].JobID, got[2].JobID)
	}
	if got[1].Category != "private" || got[1].Error == "" {
		t.Errorf("failed entry = %+v", got[1])
	}
	if got[2].Elapsed != 5*time.Second {
		t.Errorf("Elapsed = %v, want 5s", got[2].Elapsed)
	}
	if !got[2].Started.Equal(base) {
		t.Errorf("Started = %v, want %v", got[2].Started, base)
	}

	limited, err := s.List(ctx, 2)
	if err != nil {
		t.Fatalf("List(2) error: %v", err)
	}
	if len(limited) != 2 {
		t.Errorf("List(2) len = %d", len(limited))
	}
}

func TestStoreRecordReplaces(t *testing.T) {
	ctx := context.Background()
	s, err := Open(filepath.Join(t.TempDir(), "h.db"))
	if err != nil {
		t.Fatalf("Open() error: %v", err)
	}
	defer s.Close()

	now := time.Now()
	e := Entry{JobID: "job-1", URL: "https://a", Format: "mp3", Status: StatusFailed, Started: now, Finished: now}
	if err := s.Record(ctx, e); err != nil {
		t.Fatal(err)
	}
	e.Status = StatusSucceeded
	if err := s.Record(ctx, e); err != nil {
		t.Fatal(err)
	}
	got, _ := s.List(ctx, 0)
	if len(got) != 1 || got[0].Status != StatusSucceeded {
		t.Errorf("List() = %+v", got)
	}
}
