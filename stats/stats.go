package stats

import (
	"fmt"
	"io"
	"strings"
	"sync/atomic"
	"time"
)

type Type int

const (
	// Traversed counts documents discovered by a walker or handed in directly.
	Traversed Type = iota
	// Matched counts documents routed to a formatter.
	Matched
	// Formatted counts documents a formatter ran against successfully.
	Formatted
	// Changed counts documents whose content was replaced, or in check mode, which were not formatted.
	Changed
	// Failed counts documents for which the formatter could not be run or reported an error.
	Failed
)

func (t Type) String() string {
	switch t {
	case Traversed:
		return "traversed"
	case Matched:
		return "matched"
	case Formatted:
		return "formatted"
	case Changed:
		return "changed"
	case Failed:
		return "failed"
	default:
		return fmt.Sprintf("Type(%d)", int(t))
	}
}

type Stats struct {
	start    time.Time
	counters map[Type]*atomic.Int32
}

func New() *Stats {
	counters := make(map[Type]*atomic.Int32)
	for _, t := range []Type{Traversed, Matched, Formatted, Changed, Failed} {
		counters[t] = &atomic.Int32{}
	}

	return &Stats{
		start:    time.Now(),
		counters: counters,
	}
}

func (s *Stats) Add(t Type, delta int) int32 {
	return s.counters[t].Add(int32(delta)) //nolint:gosec
}

func (s *Stats) Value(t Type) int32 {
	return s.counters[t].Load()
}

func (s *Stats) Elapsed() time.Duration {
	return time.Since(s.start)
}

// Print writes a summary of the counters to w.
func (s *Stats) Print(w io.Writer, check bool) {
	changed := "changed %d documents"
	if check {
		changed = "found %d documents not formatted"
	}

	components := []string{
		"traversed %d documents",
		"matched %d documents to formatters",
		"formatted %d documents in %v",
		changed,
		"failed on %d documents",
		"",
	}

	_, _ = fmt.Fprintf(
		w,
		strings.Join(components, "\n"),
		s.Value(Traversed),
		s.Value(Matched),
		s.Value(Formatted),
		s.Elapsed().Round(time.Millisecond),
		s.Value(Changed),
		s.Value(Failed),
	)
}
