package input

import (
	"errors"
	"fmt"
	"strings"
	"time"
)

// ErrInvalidScript wraps every script parse failure.
var ErrInvalidScript = errors.New("invalid input script")

// Source yields the held keys at a point in simulated time.
type Source interface {
	Held(now time.Duration) KeySet
}

// Span holds a set of keys down over [Start, End).
type Span struct {
	Start time.Duration
	End   time.Duration
	Keys  KeySet
}

// Script is a scripted timeline of key spans used for headless runs.
type Script struct {
	spans []Span
}

// NewScript builds a script from spans.
func NewScript(spans ...Span) *Script {
	return &Script{spans: append([]Span(nil), spans...)}
}

// ParseScript reads entries of the form "start-end:KEY,KEY" separated by ';',
// for example "0s-3s:W;1s-1.5s:A".
func ParseScript(raw string) (*Script, error) {
	script := &Script{}
	for _, entry := range strings.Split(raw, ";") {
		entry = strings.TrimSpace(entry)
		if entry == "" {
			continue
		}
		span, err := parseSpan(entry)
		if err != nil {
			return nil, err
		}
		script.spans = append(script.spans, span)
	}
	return script, nil
}

func parseSpan(entry string) (Span, error) {
	window, keys, ok := strings.Cut(entry, ":")
	if !ok {
		return Span{}, fmt.Errorf("%w: %q missing ':'", ErrInvalidScript, entry)
	}
	rawStart, rawEnd, ok := strings.Cut(window, "-")
	if !ok {
		return Span{}, fmt.Errorf("%w: %q missing '-'", ErrInvalidScript, entry)
	}
	start, err := time.ParseDuration(strings.TrimSpace(rawStart))
	if err != nil {
		return Span{}, fmt.Errorf("%w: start of %q: %v", ErrInvalidScript, entry, err)
	}
	end, err := time.ParseDuration(strings.TrimSpace(rawEnd))
	if err != nil {
		return Span{}, fmt.Errorf("%w: end of %q: %v", ErrInvalidScript, entry, err)
	}
	if start < 0 || end <= start {
		return Span{}, fmt.Errorf("%w: %q has an empty window", ErrInvalidScript, entry)
	}
	span := Span{Start: start, End: end}
	for _, name := range strings.Split(keys, ",") {
		key, err := ParseKey(name)
		if err != nil {
			return Span{}, fmt.Errorf("%w: %v", ErrInvalidScript, err)
		}
		span.Keys = span.Keys.With(key)
	}
	return span, nil
}

// Held implements Source.
func (s *Script) Held(now time.Duration) KeySet {
	if s == nil {
		return 0
	}
	var held KeySet
	for _, span := range s.spans {
		if now >= span.Start && now < span.End {
			held |= span.Keys
		}
	}
	return held
}

// End reports when the last span releases its keys.
func (s *Script) End() time.Duration {
	if s == nil {
		return 0
	}
	var end time.Duration
	for _, span := range s.spans {
		if span.End > end {
			end = span.End
		}
	}
	return end
}
