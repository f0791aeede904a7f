// Package model holds the request types shared by the worker and every shell.
package model

import (
	"errors"
	"fmt"
	"math"
	"path/filepath"
	"strconv"
	"strings"
	"time"
)

// OutputKind is the target container/codec chosen by the user.
type OutputKind string

const (
	KindMP3 OutputKind = "mp3"
	KindWAV OutputKind = "wav"
	KindAAC OutputKind = "aac"
	KindMP4 OutputKind = "mp4"
)

// Kinds lists every supported output kind in display order.
var Kinds = []OutputKind{KindMP3, KindWAV, KindAAC, KindMP4}

// QualityBest disables the height cap for video output.
const QualityBest = "best"

var (
	audioBitrates = []string{"64", "128", "192", "256", "320"}
	videoHeights  = []string{"144", "240", "360", "480", "720", "1080", "1440", "2160"}
)

var (
	ErrEmptyURL       = errors.New("url is required")
	ErrEmptyOutDir    = errors.New("output directory is required")
	ErrUnknownKind    = errors.New("unknown output format")
	ErrInvalidQuality = errors.New("invalid quality")
	ErrInvalidTrim    = errors.New("invalid trim range")
)

// ParseKind parses an output kind case-insensitively.
func ParseKind(s string) (OutputKind, error) {
	k := OutputKind(strings.ToLower(strings.TrimSpace(s)))
	for _, known := range Kinds {
		if k == known {
			return k, nil
		}
	}
	return "", fmt.Errorf("%w: %q (valid: mp3|wav|aac|mp4)", ErrUnknownKind, s)
}

// IsAudio reports whether the kind extracts an audio-only file.
func (k OutputKind) IsAudio() bool {
	return k == KindMP3 || k == KindWAV || k == KindAAC
}

// Label is the upper-case name shown in selectors.
func (k OutputKind) Label() string {
	return strings.ToUpper(string(k))
}

// DefaultQuality returns the quality used when the user picks none.
func DefaultQuality(k OutputKind) string {
	switch k {
	case KindMP3, KindAAC:
		return "192"
	case KindMP4:
		return "720"
	default:
		return ""
	}
}

// QualityOptions lists the choices a shell should offer for a kind.
// Audio bitrates are kbps; video entries are max heights.
func QualityOptions(k OutputKind) []string {
	switch k {
	case KindMP3, KindAAC:
		return append([]string(nil), audioBitrates...)
	case KindMP4:
		return append(append([]string(nil), videoHeights...), QualityBest)
	default:
		return nil
	}
}

// QualityLabel renders a quality value for display ("192 kbps", "720p").
func QualityLabel(k OutputKind, q string) string {
	switch {
	case q == "":
		return "-"
	case q == QualityBest:
		return "best"
	case k == KindMP4:
		return q + "p"
	case k.IsAudio():
		return q + " kbps"
	}
	return q
}

// JobRequest is everything a worker needs for one conversion.
// It is passed by value and never mutated once a job has started.
type JobRequest struct {
	URL     string         `json:"url"`
	Kind    OutputKind     `json:"format"`
	Quality string         `json:"quality,omitempty"`
	Start   *time.Duration `json:"-"`
	End     *time.Duration `json:"-"`
	OutDir  string         `json:"out_dir"`
}

// Normalize fills defaults and canonicalizes user input.
func (r JobRequest) Normalize() JobRequest {
	r.URL = strings.TrimSpace(r.URL)
	r.Kind = OutputKind(strings.ToLower(string(r.Kind)))
	q := strings.ToLower(strings.TrimSpace(r.Quality))
	q = strings.TrimSuffix(q, "p")
	q = strings.TrimSuffix(strings.TrimSpace(strings.TrimSuffix(q, "kbps")), "k")
	if r.Kind == KindWAV {
		q = ""
	} else if q == "" {
		q = DefaultQuality(r.Kind)
	}
	r.Quality = q
	if r.OutDir != "" {
		r.OutDir = filepath.Clean(r.OutDir)
	}
	if r.Start != nil && *r.Start <= 0 {
		r.Start = nil
	}
	if r.End != nil && *r.End <= 0 {
		r.End = nil
	}
	return r
}

// Validate checks a normalized request.
func (r JobRequest) Validate() error {
	if r.URL == "" {
		return ErrEmptyURL
	}
	if r.OutDir == "" {
		return ErrEmptyOutDir
	}
	if _, err := ParseKind(string(r.Kind)); err != nil {
		return err
	}
	if r.Quality != "" {
		allowed := QualityOptions(r.Kind)
		if !contains(allowed, r.Quality) {
			return fmt.Errorf("%w %q for %s (valid: %s)", ErrInvalidQuality, r.Quality, r.Kind.Label(), strings.Join(allowed, ", "))
		}
	}
	if r.Start != nil && r.End != nil && *r.End <= *r.Start {
		return fmt.Errorf("%w: end (%s) must be after start (%s)", ErrInvalidTrim, *r.End, *r.Start)
	}
	return nil
}

// HasTrim reports whether either trim marker is set.
func (r JobRequest) HasTrim() bool {
	return r.Start != nil || r.End != nil
}

// Height returns the max video height, or 0 for no cap.
func (r JobRequest) Height() int {
	if r.Kind != KindMP4 {
		return 0
	}
	h, err := strconv.Atoi(r.Quality)
	if err != nil {
		return 0
	}
	return h
}

// maxTrimSeconds is the largest trim marker a time.Duration can hold.
var maxTrimSeconds = float64(math.MaxInt64) / float64(time.Second)

// ParseSeconds parses a trim marker given as seconds ("90", "12.5")
// or as a clock value ("1:30", "01:02:03"). Empty input yields nil.
func ParseSeconds(s string) (*time.Duration, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return nil, nil
	}
	parts := strings.Split(s, ":")
	if len(parts) > 3 {
		return nil, fmt.Errorf("%w: %q", ErrInvalidTrim, s)
	}
	var total float64
	for i, p := range parts {
		v, err := strconv.ParseFloat(p, 64)
		if err != nil || v < 0 || math.IsNaN(v) || math.IsInf(v, 0) {
			return nil, fmt.Errorf("%w: %q", ErrInvalidTrim, s)
		}
		// Minutes and seconds of a clock value stay below 60.
		if i > 0 && v >= 60 {
			return nil, fmt.Errorf("%w: %q", ErrInvalidTrim, s)
		}
		total = total*60 + v
	}
	if total >= maxTrimSeconds {
		return nil, fmt.Errorf("%w: %q out of range", ErrInvalidTrim, s)
	}
	d := time.Duration(total * float64(time.Second))
	return &d, nil
}

func contains(list []string, v string) bool {
	for _, s := range list {
		if s == v {
			return true
		}
	}
	return false
}
