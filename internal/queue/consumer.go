package queue

import (
    "context"
    "encoding/json"
    "errors"
    "fmt"
    "log"
    "os"
    "path/filepath"
    "strings"
    "sync"
    "time"

    amqp "github.com/rabbitmq/amqp091-go"
)

// Sink records one audit event.
type Sink interface {
    Record(ctx context.Context, ev TextProcessedEvent) error
}

// FileSink appends one line per event to Path, creating parent directories.
type FileSink struct {
    Path string

    mu sync.Mutex
}

// NewFileSink returns a sink writing to logs/text_audit.log when path is empty.
func NewFileSink(path string) *FileSink {
    if path == "" {
        path = filepath.Join("logs", "text_audit.log")
    }
    return &FileSink{Path: path}
}

func (s *FileSink) Record(_ context.Context, ev TextProcessedEvent) error {
    s.mu.Lock()
    defer s.mu.Unlock()

    if err := os.MkdirAll(filepath.Dir(s.Path), 0o755); err != nil {
        return fmt.Errorf("mkdir logs: %w", err)
    }
    f, err := os.OpenFile(s.Path, os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0o644)
    if err != nil {
        return fmt.Errorf("open log file: %w", err)
    }
    defer f.Close()

    if _, err := f.WriteString(FormatLine(ev)); err != nil {
        return fmt.Errorf("write log: %w", err)
    }
    return nil
}

// FormatLine renders ev as a single human-friendly log line.
func FormatLine(ev TextProcessedEvent) string {
    var b strings.Builder
    fmt.Fprintf(&b, "[%s] Text %s | event_id=%s | request_id=%s | chars=%d",
        ev.ProcessedAt, ev.Operation, ev.EventID, ev.RequestID, ev.InputChars)
    switch ev.Operation {
    case OpSimplify:
        fmt.Fprintf(&b, " | terms_replaced=%d | dosage=%t", ev.TermsReplaced, ev.DosageExplained)
    case OpDetect:
        fmt.Fprintf(&b, " | label=%s | keywords=[%s]", ev.Label, strings.Join(ev.MatchedKeywords, ","))
    }
    b.WriteByte('\n')
    return b.String()
}

// StartAuditConsumer connects to RabbitMQ, declares the text.processed queue
// (durable) and hands every message to the sinks.  It reconnects with
// exponential backoff and only returns once ctx is cancelled.  A message
// that cannot be decoded or recorded is rejected without requeue so a bad
// payload cannot spin the loop.
func StartAuditConsumer(ctx context.Context, url string, sinks ...Sink) error {
    backoff := time.Second
    for {
        conn, err := amqp.Dial(url)
        if err != nil {
            log.Printf("audit-consumer: failed to dial broker: %v; retrying in %s", err, backoff)
            if !sleepCtx(ctx, backoff) {
                return ctx.Err()
            }
            if backoff < 30*time.Second {
                backoff *= 2
            }
            continue
        }
        backoff = time.Second

        err = consumeLoop(ctx, conn, sinks)
        _ = conn.Close()
        if ctx.Err() != nil {
            return ctx.Err()
        }
        log.Printf("audit-consumer: consume loop ended: %v; reconnecting", err)
        if !sleepCtx(ctx, 2*time.Second) {
            return ctx.Err()
        }
    }
}

func consumeLoop(ctx context.Context, conn *amqp.Connection, sinks []Sink) error {
    ch, err := conn.Channel()
    if err != nil {
        return fmt.Errorf("channel open: %w", err)
    }
    defer func() { _ = ch.Close() }()

    if err := ch.Qos(50, 0, false); err != nil {
        log.Printf("audit-consumer: set QoS failed: %v", err)
    }

    if _, err := ch.QueueDeclare(TextProcessedQueue, true, false, false, false, nil); err != nil {
        return fmt.Errorf("queue declare: %w", err)
    }

    msgs, err := ch.Consume(TextProcessedQueue, "", false, false, false, false, nil)
    if err != nil {
        return fmt.Errorf("queue consume: %w", err)
    }

    for {
        select {
        case <-ctx.Done():
            return ctx.Err()
        case d, ok := <-msgs:
            if !ok {
                return errors.New("deliveries channel closed")
            }
            if err := handleMessage(ctx, d.Body, sinks); err != nil {
                log.Printf("audit-consumer: handle message failed: %v", err)
                _ = d.Nack(false, false)
                continue
            }
            _ = d.Ack(false)
        }
    }
}

// handleMessage decodes body and passes the event to every sink.  All sinks
// are attempted; their errors are joined.
func handleMessage(ctx context.Context, body []byte, sinks []Sink) error {
    var ev TextProcessedEvent
    if err := json.Unmarshal(body, &ev); err != nil {
        return fmt.Errorf("unmarshal: %w", err)
    }
    if ev.Operation != OpSimplify && ev.Operation != OpDetect {
        return fmt.Errorf("unknown operation %q", ev.Operation)
    }
    var errs []error
    for _, s := range sinks {
        if err := s.Record(ctx, ev); err != nil {
            errs = append(errs, err)
        }
    }
    return errors.Join(errs...)
}

func sleepCtx(ctx context.Context, d time.Duration) bool {
    t := time.NewTimer(d)
    defer t.Stop()
    select {
    case <-ctx.Done():
        return false
    case <-t.C:
        return true
    }
}
