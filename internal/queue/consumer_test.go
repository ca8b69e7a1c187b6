package queue

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type recordingSink struct {
	events []TextProcessedEvent
	err    error
}

func (s *recordingSink) Record(_ context.Context, ev TextProcessedEvent) error {
	s.events = append(s.events, ev)
	return s.err
}

func TestFormatLine(t *testing.T) {
	simplify := FormatLine(TextProcessedEvent{
		EventID: "e1", RequestID: "r1", Operation: OpSimplify, InputChars: 12,
		TermsReplaced: 2, DosageExplained: true, ProcessedAt: "2026-10-15T10:00:00Z",
	})
	assert.Equal(t, "[2026-10-15T10:00:00Z] Text simplify | event_id=e1 | request_id=r1 | chars=12 | terms_replaced=2 | dosage=true\n", simplify)

	detect := FormatLine(TextProcessedEvent{
		EventID: "e2", Operation: OpDetect, InputChars: 30, Label: "Manipulative",
		MatchedKeywords: []string{"miracle", "instant"}, ProcessedAt: "2026-10-15T10:00:01Z",
	})
	assert.Equal(t, "[2026-10-15T10:00:01Z] Text detect | event_id=e2 | request_id= | chars=30 | label=Manipulative | keywords=[miracle,instant]\n", detect)
}

func TestFileSinkAppends(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "audit.log")
	sink := NewFileSink(path)
	ctx := context.Background()

	require.NoError(t, sink.Record(ctx, TextProcessedEvent{EventID: "a", Operation: OpDetect, Label: "Safe"}))
	require.NoError(t, sink.Record(ctx, TextProcessedEvent{EventID: "b", Operation: OpSimplify}))

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	lines := strings.Split(strings.TrimSpace(string(data)), "\n")
	require.Len(t, lines, 2)
	assert.Contains(t, lines[0], "event_id=a")
	assert.Contains(t, lines[1], "event_id=b")
}

func TestNewFileSinkDefaultPath(t *testing.T) {
	assert.Equal(t, filepath.Join("logs", "text_audit.log"), NewFileSink("").Path)
}

func TestHandleMessage(t *testing.T) {
	ctx := context.Background()
	a, b := &recordingSink{}, &recordingSink{}

	err := handleMessage(ctx, []byte(`{"event_id":"x","operation":"detect","label":"Safe","input_chars":3}`), []Sink{a, b})
	require.NoError(t, err)
	require.Len(t, a.events, 1)
	assert.Equal(t, "Safe", a.events[0].Label)
	assert.Equal(t, 3, a.events[0].InputChars)
	assert.Len(t, b.events, 1)

	assert.Error(t, handleMessage(ctx, []byte("not json"), []Sink{a}))
	assert.Error(t, handleMessage(ctx, []byte(`{"operation":"translate"}`), []Sink{a}))
}

func TestHandleMessageTriesEverySink(t *testing.T) {
	failing := &recordingSink{err: errors.New("db down")}
	ok := &recordingSink{}

	err := handleMessage(context.Background(), []byte(`{"operation":"simplify"}`), []Sink{failing, ok})
	assert.ErrorContains(t, err, "db down")
	assert.Len(t, ok.events, 1)
}

func TestSleepCtxCancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	assert.False(t, sleepCtx(ctx, time.Minute))
	assert.True(t, sleepCtx(context.Background(), time.Millisecond))
}
