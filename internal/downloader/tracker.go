package downloader

import (
	"strings"
	"sync"

	"funlight/internal/progress"
)

// Phase messages shown to the user while yt-dlp runs.
const (
	MsgDownloadFinished = "Download finished, starting conversion..."
	MsgStepCompleted    = "Conversion step completed"
)

// ppTags maps yt-dlp log prefixes to post-processor names.
var ppTags = map[string]string{
	"ExtractAudio":   "FFmpegExtractAudio",
	"Merger":         "FFmpegMerger",
	"VideoConvertor": "FFmpegVideoConvertor",
	"VideoRemuxer":   "FFmpegVideoRemuxer",
	"Metadata":       "FFmpegMetadata",
	"FixupM3u8":      "FFmpegFixupM3u8",
	"FixupM4a":       "FFmpegFixupM4a",
	"FixupStretched": "FFmpegFixupStretched",
	"FixupTimestamp": "FFmpegFixupTimestamp",
	"FixupDuration":  "FFmpegFixupDuration",
}

// Tracker turns yt-dlp output lines into job events. It reports download
// progress, post-processor starts and ends, and remembers the path of
// the last file yt-dlp wrote, which is the final output.
// Stdout and Stderr may be called from different goroutines.
type Tracker struct {
	jobID string
	rep   progress.Reporter

	mu        sync.Mutex
	output    string
	finished  bool
	currentPP string
	lastErr   []string
}

// NewTracker returns a Tracker emitting events for jobID to rep.
func NewTracker(jobID string, rep progress.Reporter) *Tracker {
	if rep == nil {
		rep = progress.Discard
	}
	return &Tracker{jobID: jobID, rep: rep}
}

// Output returns the final file path seen so far, or "".
func (t *Tracker) Output() string {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.output
}

// LastError returns the ERROR messages printed on stderr.
func (t *Tracker) LastError() string {
	t.mu.Lock()
	defer t.mu.Unlock()
	return strings.Join(t.lastErr, "; ")
}

// Stdout handles one stdout line.
func (t *Tracker) Stdout(line string) {
	line = strings.TrimSpace(line)
	if line == "" {
		return
	}
	t.mu.Lock()
	defer t.mu.Unlock()
	if u, ok := ParseProgress(line, t.jobID); ok {
		t.onProgress(u)
		return
	}
	tag, rest, ok := splitTag(line)
	if !ok {
		t.log(progress.StreamStdout, line)
		return
	}
	if tag == "download" {
		t.onDownloadLine(rest)
		t.log(progress.StreamStdout, line)
		return
	}
	if pp, ok := ppTags[tag]; ok {
		t.onPostprocessor(pp, rest)
	}
	t.log(progress.StreamStdout, line)
}

// Stderr handles one stderr line. yt-dlp reports failures as "ERROR: ...".
func (t *Tracker) Stderr(line string) {
	line = strings.TrimSpace(line)
	if line == "" {
		return
	}
	t.mu.Lock()
	defer t.mu.Unlock()
	if strings.HasPrefix(line, "ERROR:") {
		t.lastErr = append(t.lastErr, strings.TrimSpace(strings.TrimPrefix(line, "ERROR:")))
	}
	t.log(progress.StreamStderr, line)
}

// Finish closes any running post-processor step.
func (t *Tracker) Finish() {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.currentPP != "" {
		t.currentPP = ""
		t.update(progress.StageConverting, 100, MsgStepCompleted)
	}
}

func (t *Tracker) onProgress(u progress.Update) {
	if u.Percent >= 100 {
		if t.finished {
			return
		}
		t.rep.Update(u)
		t.finishDownload()
		return
	}
	t.finished = false
	t.rep.Update(u)
}

func (t *Tracker) finishDownload() {
	t.finished = true
	t.update(progress.StageConverting, 0, MsgDownloadFinished)
}

func (t *Tracker) onDownloadLine(rest string) {
	switch {
	case strings.HasPrefix(rest, "Destination:"):
		t.output = strings.TrimSpace(strings.TrimPrefix(rest, "Destination:"))
		t.finished = false
	case strings.HasSuffix(rest, "has already been downloaded"):
		t.output = strings.TrimSpace(strings.TrimSuffix(rest, "has already been downloaded"))
		if !t.finished {
			t.finishDownload()
		}
	}
}

func (t *Tracker) onPostprocessor(pp, rest string) {
	if pp != t.currentPP {
		if t.currentPP != "" {
			t.update(progress.StageConverting, 100, MsgStepCompleted)
		}
		t.currentPP = pp
		t.update(progress.StageConverting, -1, "Converting: "+pp)
	}
	if p := ppDestination(rest); p != "" {
		t.output = p
	}
}

// ppDestination extracts the file a post-processor writes or keeps:
//
//	[ExtractAudio] Destination: /out/Song.mp3
//	[Merger] Merging formats into "/out/Clip.mp4"
//	[VideoConvertor] Converting video from webm to mp4; Destination: /out/Clip.mp4
//	[VideoConvertor] Not converting media file "/out/Clip.mp4"; already is in target format mp4
//	[ExtractAudio] Not converting audio /out/Song.mp3; the file is already in a common audio format
func ppDestination(rest string) string {
	if i := strings.LastIndex(rest, "Destination:"); i != -1 {
		return strings.TrimSpace(rest[i+len("Destination:"):])
	}
	if after, ok := strings.CutPrefix(rest, "Merging formats into "); ok {
		return strings.Trim(strings.TrimSpace(after), `"`)
	}
	if after, ok := strings.CutPrefix(rest, "Not converting media file "); ok {
		if j := strings.Index(after, `";`); j != -1 {
			return strings.Trim(after[:j+1], `"`)
		}
	}
	if after, ok := strings.CutPrefix(rest, "Not converting audio "); ok {
		if j := strings.LastIndex(after, ";"); j != -1 {
			return strings.TrimSpace(after[:j])
		}
	}
	return ""
}

// splitTag splits "[tag] rest" into its parts.
func splitTag(line string) (tag, rest string, ok bool) {
	if !strings.HasPrefix(line, "[") {
		return "", "", false
	}
	end := strings.Index(line, "]")
	if end <= 1 {
		return "", "", false
	}
	return line[1:end], strings.TrimSpace(line[end+1:]), true
}

func (t *Tracker) update(stage progress.Stage, pct float64, msg string) {
	t.rep.Update(progress.Update{JobID: t.jobID, Stage: stage, Percent: pct, Message: msg})
}

func (t *Tracker) log(stream progress.LogStream, line string) {
	t.rep.Log(progress.Log{JobID: t.jobID, Stream: stream, Line: line})
}
