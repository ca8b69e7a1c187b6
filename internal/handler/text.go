package handler

import (
    "context"
    "encoding/json"
    "net/http"
    "strings"
    "time"
    "unicode/utf8"

    "github.com/google/uuid"
    "github.com/labstack/echo/v4"

    "github.com/iliyamo/elder-health-text/internal/detector"
    "github.com/iliyamo/elder-health-text/internal/middleware"
    "github.com/iliyamo/elder-health-text/internal/queue"
    "github.com/iliyamo/elder-health-text/internal/service"
    "github.com/iliyamo/elder-health-text/internal/simplifier"
)

// publishTimeout bounds one audit publish, which runs after the response.
const publishTimeout = 5 * time.Second

// TextHandler serves the simplify and detect endpoints.
type TextHandler struct {
    Publisher    service.Publisher // audit events; never affects the response
    MaxTextBytes int               // 0 disables the size check
    Now          func() time.Time
}

// NewTextHandler uses a NopPublisher when pub is nil.
func NewTextHandler(pub service.Publisher, maxTextBytes int) *TextHandler {
    if pub == nil {
        pub = service.NopPublisher{}
    }
    return &TextHandler{Publisher: pub, MaxTextBytes: maxTextBytes, Now: time.Now}
}

// Simplify handles POST /simplify.  The body must carry a "text" string;
// the response is {"simple": ..., "terms_replaced": n, "replacements": [...]}.
func (h *TextHandler) Simplify(c echo.Context) error {
    text, err := bindText(c, h.MaxTextBytes)
    if err != nil {
        return err
    }
    res := simplifier.Analyze(text)

    reps := res.Replacements
    if reps == nil {
        reps = []simplifier.Replacement{}
    }
    h.publish(c, queue.TextProcessedEvent{
        Operation:       queue.OpSimplify,
        InputChars:      utf8.RuneCountInString(text),
        TermsReplaced:   res.TermsReplaced(),
        DosageExplained: res.Dosage != "",
    })
    return c.JSON(http.StatusOK, echo.Map{
        "simple":         res.Text,
        "terms_replaced": res.TermsReplaced(),
        "replacements":   reps,
    })
}

// Detect handles POST /detect and answers with the label, the explanation
// and the keywords that matched.
func (h *TextHandler) Detect(c echo.Context) error {
    text, err := bindText(c, h.MaxTextBytes)
    if err != nil {
        return err
    }
    rep := detector.Inspect(text)

    h.publish(c, queue.TextProcessedEvent{
        Operation:       queue.OpDetect,
        InputChars:      utf8.RuneCountInString(text),
        Label:           rep.Label,
        MatchedKeywords: rep.Matches,
    })
    return c.JSON(http.StatusOK, rep)
}

// ReplayAudit publishes the audit event for a request answered from the
// response cache.  reqBody is the raw body the cache hashed; the route
// decides which operation it was.  Invalid bodies are never cached, so a
// body that does not bind is ignored.
func (h *TextHandler) ReplayAudit(c echo.Context, reqBody []byte) {
    var req TextRequest
    if err := json.Unmarshal(reqBody, &req); err != nil || req.Text == nil {
        return
    }
    text := *req.Text
    switch {
    case strings.HasSuffix(c.Path(), "/simplify"):
        res := simplifier.Analyze(text)
        h.publish(c, queue.TextProcessedEvent{
            Operation:       queue.OpSimplify,
            InputChars:      utf8.RuneCountInString(text),
            TermsReplaced:   res.TermsReplaced(),
            DosageExplained: res.Dosage != "",
        })
    case strings.HasSuffix(c.Path(), "/detect"):
        rep := detector.Inspect(text)
        h.publish(c, queue.TextProcessedEvent{
            Operation:       queue.OpDetect,
            InputChars:      utf8.RuneCountInString(text),
            Label:           rep.Label,
            MatchedKeywords: rep.Matches,
        })
    }
}

// publish fills the event envelope and sends it in the background.
func (h *TextHandler) publish(c echo.Context, ev queue.TextProcessedEvent) {
    if _, ok := h.Publisher.(service.NopPublisher); ok {
        return
    }
    now := time.Now
    if h.Now != nil {
        now = h.Now
    }
    ev.EventID = uuid.NewString()
    ev.RequestID = middleware.RequestIDFrom(c)
    ev.ProcessedAt = now().UTC().Format(time.RFC3339Nano)

    ctx := context.WithoutCancel(c.Request().Context())
    logger := c.Logger()
    pub := h.Publisher
    go func() {
        ctx, cancel := context.WithTimeout(ctx, publishTimeout)
        defer cancel()
        if err := pub.PublishTextProcessed(ctx, ev); err != nil {
            logger.Warnf("audit publish %s failed: %v", ev.EventID, err)
        }
    }()
}
