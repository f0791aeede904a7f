package api

import (
	"bufio"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"funlight/internal/history"
	"funlight/internal/model"
	"funlight/internal/pipeline"
	"funlight/internal/progress"
	"funlight/internal/session"
)

type fakeRunner struct {
	release chan struct{}
}

func (f *fakeRunner) RunJob(_ context.Context, jobID string, req model.JobRequest, rep progress.Reporter) (pipeline.Result, error) {
	if f.release != nil {
		<-f.release
	}
	rep.Update(progress.Update{JobID: jobID, Stage: progress.StageDownloading, Percent: 50, Message: "Downloading: 50.0%"})
	rep.Result(progress.Result{JobID: jobID, OutputPath: req.OutDir + "/a.mp3", Bytes: 3})
	return pipeline.Result{JobID: jobID, OutputPath: req.OutDir + "/a.mp3", Bytes: 3}, nil
}

type fakeLister struct{ entries []history.Entry }

func (f fakeLister) List(_ context.Context, limit int) ([]history.Entry, error) {
	if limit > 0 && limit < len(f.entries) {
		return f.entries[:limit], nil
	}
	return f.entries, nil
}

func newTestServer(t *testing.T, fr *fakeRunner, hist Lister) (*httptest.Server, *session.Session) {
	t.Helper()
	sess := session.New(context.Background(), fr)
	srv := httptest.NewServer(NewRouter(NewHandler(sess, hist, "/downloads", nil), nil))
	t.Cleanup(srv.Close)
	return srv, sess
}

func postJob(t *testing.T, srv *httptest.Server, body string) *http.Response {
	t.Helper()
	resp, err := http.Post(srv.URL+"/api/v1/jobs", "application/json", strings.NewReader(body))
	if err != nil {
		t.Fatalf("POST /jobs: %v", err)
	}
	return resp
}

func TestCreateJobLifecycle(t *testing.T) {
	fr := &fakeRunner{release: make(chan struct{})}
	srv, sess := newTestServer(t, fr, nil)

	resp := postJob(t, srv, `{"url":"youtube.com/watch?v=x","format":"MP3","quality":"320"}`)
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusAccepted {
		t.Fatalf("status = %d, want 202", resp.StatusCode)
	}
	var job session.Job
	if err := json.NewDecoder(resp.Body).Decode(&job); err != nil {
		t.Fatal(err)
	}
	if job.Request.URL != "https://youtube.com/watch?v=x" || job.Request.OutDir != "/downloads" || job.Request.Quality != "320" {
		t.Errorf("job request = %+v", job.Request)
	}

	busy := postJob(t, srv, `{"url":"https://youtu.be/y","format":"wav"}`)
	busy.Body.Close()
	if busy.StatusCode != http.StatusConflict {
		t.Errorf("second job status = %d, want 409", busy.StatusCode)
	}

	stream, err := http.Get(srv.URL + "/api/v1/jobs/" + job.ID + "/events")
	if err != nil {
		t.Fatal(err)
	}
	defer stream.Body.Close()
	if ct := stream.Header.Get("Content-Type"); ct != "text/event-stream" {
		t.Errorf("Content-Type = %q", ct)
	}
	close(fr.release)

	var kinds []string
	sc := bufio.NewScanner(stream.Body)
	for sc.Scan() {
		if k, ok := strings.CutPrefix(sc.Text(), "event: "); ok {
			kinds = append(kinds, k)
		}
	}
	if len(kinds) == 0 || kinds[len(kinds)-1] != "result" {
		t.Errorf("event kinds = %v, want stream ending in result", kinds)
	}

	sess.Wait()
	get, err := http.Get(srv.URL + "/api/v1/jobs/" + job.ID)
	if err != nil {
		t.Fatal(err)
	}
	defer get.Body.Close()
	var snap session.Job
	json.NewDecoder(get.Body).Decode(&snap)
	if snap.State != session.StateSucceeded || snap.OutputPath != "/downloads/a.mp3" {
		t.Errorf("snapshot = %+v", snap)
	}
}

func TestCreateJobBadRequest(t *testing.T) {
	srv, _ := newTestServer(t, &fakeRunner{}, nil)
	tests := []struct {
		name string
		body string
	}{
		{"bad json", `{`},
		{"bad url", `{"url":"ftp://x.com/a"}`},
		{"bad format", `{"url":"https://youtu.be/x","format":"ogg"}`},
		{"bad quality", `{"url":"https://youtu.be/x","format":"mp4","quality":"999"}`},
		{"inverted trim", `{"url":"https://youtu.be/x","start":"1:00","end":"30"}`},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			resp := postJob(t, srv, tt.body)
			defer resp.Body.Close()
			if resp.StatusCode != http.StatusBadRequest {
				t.Errorf("status = %d, want 400", resp.StatusCode)
			}
		})
	}
}

func TestCreateJobRejectsForeignRequests(t *testing.T) {
	const body = `{"url":"https://youtu.be/x","format":"mp3"}`
	tests := []struct {
		name        string
		contentType string
		origin      string
		want        int
	}{
		{"text plain from foreign page", "text/plain", "https://evil.example", http.StatusForbidden},
		{"json from foreign page", "application/json", "https://evil.example", http.StatusForbidden},
		{"opaque origin", "application/json", "null", http.StatusForbidden},
		{"text plain without origin", "text/plain", "", http.StatusUnsupportedMediaType},
		{"form post", "application/x-www-form-urlencoded", "http://localhost:8080", http.StatusUnsupportedMediaType},
		{"missing content type", "", "", http.StatusUnsupportedMediaType},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			srv, sess := newTestServer(t, &fakeRunner{}, nil)
			req, err := http.NewRequest(http.MethodPost, srv.URL+"/api/v1/jobs", strings.NewReader(body))
			if err != nil {
				t.Fatal(err)
			}
			if tt.contentType != "" {
				req.Header.Set("Content-Type", tt.contentType)
			}
			if tt.origin != "" {
				req.Header.Set("Origin", tt.origin)
			}
			resp, err := http.DefaultClient.Do(req)
			if err != nil {
				t.Fatal(err)
			}
			resp.Body.Close()
			if resp.StatusCode != tt.want {
				t.Errorf("status = %d, want %d", resp.StatusCode, tt.want)
			}
			if sess.Busy() {
				t.Error("rejected request started a job")
			}
		})
	}
}

func TestCreateJobAcceptsLocalOrigins(t *testing.T) {
	for _, origin := range []string{"http://localhost:8080", "http://127.0.0.1:8080", "http://[::1]:8080"} {
		t.Run(origin, func(t *testing.T) {
			srv, sess := newTestServer(t, &fakeRunner{}, nil)
			req, err := http.NewRequest(http.MethodPost, srv.URL+"/api/v1/jobs", strings.NewReader(`{"url":"https://youtu.be/x"}`))
			if err != nil {
				t.Fatal(err)
			}
			req.Header.Set("Content-Type", "application/json; charset=utf-8")
			req.Header.Set("Origin", origin)
			resp, err := http.DefaultClient.Do(req)
			if err != nil {
				t.Fatal(err)
			}
			resp.Body.Close()
			if resp.StatusCode != http.StatusAccepted {
				t.Errorf("status = %d, want 202", resp.StatusCode)
			}
			sess.Wait()
		})
	}
}

func TestGetJobNotFound(t *testing.T) {
	srv, _ := newTestServer(t, &fakeRunner{}, nil)
	for _, path := range []string{"/api/v1/jobs/job-nope", "/api/v1/jobs/job-nope/events"} {
		resp, err := http.Get(srv.URL + path)
		if err != nil {
			t.Fatal(err)
		}
		resp.Body.Close()
		if resp.StatusCode != http.StatusNotFound {
			t.Errorf("GET %s = %d, want 404", path, resp.StatusCode)
		}
	}
}

func TestFormatsAndHealth(t *testing.T) {
	srv, _ := newTestServer(t, &fakeRunner{}, nil)

	resp, err := http.Get(srv.URL + "/api/v1/formats")
	if err != nil {
		t.Fatal(err)
	}
	defer resp.Body.Close()
	var formats []FormatInfo
	if err := json.NewDecoder(resp.Body).Decode(&formats); err != nil {
		t.Fatal(err)
	}
	if len(formats) != 4 || formats[1].Format != "wav" || len(formats[1].Qualities) != 0 {
		t.Errorf("formats = %+v", formats)
	}
	if formats[3].DefaultQuality != "720" {
		t.Errorf("mp4 default = %q", formats[3].DefaultQuality)
	}

	health, err := http.Get(srv.URL + "/health")
	if err != nil {
		t.Fatal(err)
	}
	defer health.Body.Close()
	if health.StatusCode != http.StatusOK {
		t.Errorf("health = %d", health.StatusCode)
	}
}

func TestHistory(t *testing.T) {
	srv, _ := newTestServer(t, &fakeRunner{}, nil)
	resp, err := http.Get(srv.URL + "/api/v1/history")
	if err != nil {
		t.Fatal(err)
	}
	resp.Body.Close()
	if resp.StatusCode != http.StatusServiceUnavailable {
		t.Errorf("disabled history = %d, want 503", resp.StatusCode)
	}

	now := time.Now()
	lister := fakeLister{entries: []history.Entry{
		{JobID: "job-2", URL: "https://b", Format: "mp4", Status: history.StatusSucceeded, Finished: now},
		{JobID: "job-1", URL: "https://a", Format: "mp3", Status: history.StatusFailed, Finished: now.Add(-time.Minute)},
	}}
	srv2, _ := newTestServer(t, &fakeRunner{}, lister)
	resp2, err := http.Get(srv2.URL + "/api/v1/history?limit=1")
	if err != nil {
		t.Fatal(err)
	}
	defer resp2.Body.Close()
	var got []history.Entry
	json.NewDecoder(resp2.Body).Decode(&got)
	if len(got) != 1 || got[0].JobID != "job-2" {
		t.Errorf("history = %+v", got)
	}

	bad, err := http.Get(srv2.URL + "/api/v1/history?limit=x")
	if err != nil {
		t.Fatal(err)
	}
	bad.Body.Close()
	if bad.StatusCode != http.StatusBadRequest {
		t.Errorf("bad limit = %d", bad.StatusCode)
	}
}
