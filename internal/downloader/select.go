package downloader

import (
	"errors"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"
)

// ErrNoOutput means no finished file could be found for a job.
var ErrNoOutput = errors.New("no output file found")

// SelectOutput finds the file a run produced when yt-dlp's output did not
// name it. Only files modified at or after since are considered. Files
// whose name starts with title win, then files with the wanted extension,
// then the newest.
func SelectOutput(dir, title, ext string, since time.Time) (string, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return "", err
	}

	type cand struct {
		path  string
		score int
		mod   time.Time
	}
	var cands []cand
	for _, e := range entries {
		if e.IsDir() || isResidual(e.Name()) {
			continue
		}
		fi, err := e.Info()
		if err != nil || fi.ModTime().Before(since) {
			continue
		}
		score := extPriority(filepath.Ext(e.Name()), ext)
		if title != "" && strings.HasPrefix(e.Name(), title) {
			score -= 1000
		}
		cands = append(cands, cand{path: filepath.Join(dir, e.Name()), score: score, mod: fi.ModTime()})
	}
	if len(cands) == 0 {
		return "", ErrNoOutput
	}

	sort.SliceStable(cands, func(i, j int) bool {
		if cands[i].score != cands[j].score {
			return cands[i].score < cands[j].score
		}
		return cands[i].mod.After(cands[j].mod)
	})
	return cands[0].path, nil
}

// extPriority returns a priority score for file extensions (lower = better).
// The wanted extension always ranks first, then common playable formats.
func extPriority(ext, want string) int {
	ext = strings.ToLower(strings.TrimPrefix(ext, "."))
	if want != "" && ext == strings.ToLower(want) {
		return 0
	}
	switch ext {
	case "mp4":
		return 1
	case "m4a":
		return 2
	case "mp3":
		return 3
	case "wav":
		return 4
	case "mkv":
		return 5
	case "webm":
		return 6
	default:
		return 100
	}
}

// IsResidual reports whether name is a partial or fragment file left
// behind by an interrupted or finished download.
func IsResidual(name string) bool {
	return isResidual(name)
}

func isResidual(name string) bool {
	lower := strings.ToLower(name)
	for _, suffix := range []string{".part", ".tmp", ".frag", ".ytdl"} {
		if strings.HasSuffix(lower, suffix) {
			return true
		}
	}
	return strings.Contains(lower, ".part-frag")
}
