package internal_test

import (
	"fmt"
	"strings"
	"testing"
	"time"

	"github.com/joeycumines/courtroom/internal/chatctx"
	"github.com/joeycumines/courtroom/internal/config"
	"github.com/joeycumines/courtroom/internal/session"
	"github.com/joeycumines/courtroom/internal/storage"
	"github.com/joeycumines/courtroom/internal/transcript"
)

// Regression thresholds, generous enough for loaded CI machines.
const (
	thresholdSessionIDMicros  = 200
	thresholdParseMillis      = 50
	thresholdEnhanceMillis    = 20
	thresholdConfigLoadMicros = 500
)

var roster = []chatctx.Participant{
	{ID: "kalani", Name: "Logo Novo"},
	{ID: "gregor", Name: "Rentbrand Picosso"},
	{ID: "k2", Name: "K2"},
}

// seededStore fills a memory-backed store with n exchanges per persona.
func seededStore(tb testing.TB, n int) *transcript.Store {
	tb.Helper()
	b, err := storage.NewInMemoryBackend(fmt.Sprintf("bench-%s-%d", strings.ReplaceAll(tb.Name(), "/", "_"), n))
	if err != nil {
		tb.Fatalf("NewInMemoryBackend: %v", err)
	}
	s := transcript.New(b)
	for _, p := range roster {
		for i := range n {
			if err := s.Append(p.ID, transcript.User, fmt.Sprintf("Question %d for %s?", i, p.Name)); err != nil {
				tb.Fatalf("Append: %v", err)
			}
			if err := s.Append(p.ID, transcript.Assistant, fmt.Sprintf("Answer %d.\nWith a second line.", i)); err != nil {
				tb.Fatalf("Append: %v", err)
			}
		}
	}
	return s
}

func transcriptFile(n int) []byte {
	var b strings.Builder
	for i := range n {
		fmt.Fprintf(&b, "[You]: question %d\nRentbrand Picosso: answer %d\nstill answering\n", i, i)
	}
	return []byte(b.String())
}

func BenchmarkSessionID(b *testing.B) {
	b.ReportAllocs()
	for b.Loop() {
		if _, _, err := session.GetSessionID("bench-terminal"); err != nil {
			b.Fatalf("GetSessionID: %v", err)
		}
	}
}

func BenchmarkTranscript(b *testing.B) {
	labels := transcript.Labels{User: "[You]", Assistant: "Rentbrand Picosso"}

	b.Run("Parse", func(b *testing.B) {
		data := transcriptFile(500)
		b.SetBytes(int64(len(data)))
		b.ReportAllocs()
		for b.Loop() {
			if lines := transcript.Parse(data, labels); len(lines) != 1000 {
				b.Fatalf("parsed %d lines", len(lines))
			}
		}
	})

	b.Run("AppendMemory", func(b *testing.B) {
		backend, err := storage.NewInMemoryBackend("bench-append")
		if err != nil {
			b.Fatalf("NewInMemoryBackend: %v", err)
		}
		defer backend.DeleteTranscripts()
		s := transcript.New(backend, transcript.WithLabels("gregor", labels))
		b.ReportAllocs()
		for b.Loop() {
			if err := s.Append("gregor", transcript.User, "Where were you last night?"); err != nil {
				b.Fatalf("Append: %v", err)
			}
		}
	})
}

func BenchmarkEnhance(b *testing.B) {
	for _, n := range []int{1, 10, 50} {
		b.Run(fmt.Sprintf("exchanges=%d", n), func(b *testing.B) {
			agg := chatctx.New(seededStore(b, n), roster)
			b.ReportAllocs()
			for b.Loop() {
				_ = agg.Enhance("Did you copy the logo?", "kalani")
			}
		})
	}
}

func BenchmarkConfigLoading(b *testing.B) {
	data := "storage.backend fs\nlog.level info\n[timers]\nround 300\nverdict 60\n[transcripts]\nformat text\n"
	b.ReportAllocs()
	for b.Loop() {
		if _, err := config.LoadFromReader(strings.NewReader(data)); err != nil {
			b.Fatalf("LoadFromReader: %v", err)
		}
	}
}

func TestPerformanceRegression(t *testing.T) {
	if testing.Short() {
		t.Skip("Skipping in short mode")
	}

	t.Run("SessionID", func(t *testing.T) {
		const iterations = 1000
		start := time.Now()
		for i := range iterations {
			if _, _, err := session.GetSessionID(fmt.Sprintf("terminal-%d", i)); err != nil {
				t.Fatalf("GetSessionID: %v", err)
			}
		}
		avg := time.Since(start).Microseconds() / iterations
		if avg > thresholdSessionIDMicros {
			t.Errorf("session ID too slow: avg %d μs (threshold: %d μs)", avg, thresholdSessionIDMicros)
		}
		t.Logf("session ID: avg %d μs", avg)
	})

	t.Run("ParseLongTranscript", func(t *testing.T) {
		data := transcriptFile(5000)
		start := time.Now()
		lines := transcript.Parse(data, transcript.Labels{User: "[You]", Assistant: "Rentbrand Picosso"})
		elapsed := time.Since(start)
		if len(lines) != 10000 {
			t.Fatalf("parsed %d lines", len(lines))
		}
		if elapsed > thresholdParseMillis*time.Millisecond {
			t.Errorf("parse too slow: %v (threshold: %d ms)", elapsed, thresholdParseMillis)
		}
	})

	t.Run("EnhanceLongConversations", func(t *testing.T) {
		agg := chatctx.New(seededStore(t, 100), roster)
		start := time.Now()
		out := agg.Enhance("Did you copy the logo?", "kalani")
		elapsed := time.Since(start)
		if !strings.Contains(out, "RENTBRAND PICOSSO") || strings.Contains(out, "CONVERSATION WITH LOGO NOVO") {
			t.Fatalf("unexpected reference block %q", out[:min(len(out), 200)])
		}
		if elapsed > thresholdEnhanceMillis*time.Millisecond {
			t.Errorf("enhance too slow: %v (threshold: %d ms)", elapsed, thresholdEnhanceMillis)
		}
	})

	t.Run("ConfigLoad", func(t *testing.T) {
		const iterations = 200
		data := strings.Repeat("log.level info\n", 50)
		start := time.Now()
		for range iterations {
			if _, err := config.LoadFromReader(strings.NewReader(data)); err != nil {
				t.Fatalf("LoadFromReader: %v", err)
			}
		}
		avg := time.Since(start).Microseconds() / iterations
		if avg > thresholdConfigLoadMicros {
			t.Errorf("config load too slow: avg %d μs (threshold: %d μs)", avg, thresholdConfigLoadMicros)
		}
	})
}
