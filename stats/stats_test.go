package stats_test

import (
	"bytes"
	"testing"

	"github.com/numtide/rabbit/stats"
	"github.com/stretchr/testify/require"
)

func TestStats(t *testing.T) {
	as := require.New(t)

	s := stats.New()
	s.Add(stats.Traversed, 3)
	s.Add(stats.Matched, 2)
	s.Add(stats.Formatted, 1)
	s.Add(stats.Failed, 1)

	as.Equal(int32(3), s.Value(stats.Traversed))
	as.Equal(int32(0), s.Value(stats.Changed))

	var buf bytes.Buffer

	s.Print(&buf, false)
	as.Contains(buf.String(), "traversed 3 documents")
	as.Contains(buf.String(), "changed 0 documents")
	as.Contains(buf.String(), "failed on 1 documents")

	buf.Reset()
	s.Print(&buf, true)
	as.Contains(buf.String(), "found 0 documents not formatted")
}
