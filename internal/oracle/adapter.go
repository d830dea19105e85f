package oracle

import (
	"context"
	"fmt"
	"strings"
	"time"

	apperrors "github.com/modulwissen/interview-go/internal/errors"
	"github.com/modulwissen/interview-go/internal/logger"
	"github.com/modulwissen/interview-go/internal/metrics"
)

// jsonOnlyInstruction is prepended to JSON-only requests whose prompt
// never mentions JSON. Provider JSON modes require the word to appear
// somewhere in the conversation.
const jsonOnlyInstruction = "Antworte ausschließlich mit einem einzigen gültigen JSON-Objekt. " +
	"Keine Erklärungen, kein Markdown, kein Text außerhalb des JSON."

// Adapter routes oracle calls to the primary provider and retries
// exactly once against the fallback. Quota exhaustion is never retried.
// Every completed call on either leg is traced.
type Adapter struct {
	primary  Client
	fallback Client
	traces   *TraceWriter
	retry    RetryConfig
	log      *logger.Logger
}

// NewAdapter wires the two providers. Either client may be nil.
func NewAdapter(primary, fallback Client, traces *TraceWriter, retry RetryConfig, log *logger.Logger) *Adapter {
	return &Adapter{
		primary:  primary,
		fallback: fallback,
		traces:   traces,
		retry:    retry,
		log:      log.WithModule("oracle"),
	}
}

// Enabled reports whether at least one provider is configured.
func (a *Adapter) Enabled() bool {
	return a != nil && (a.primary != nil || a.fallback != nil)
}

// Traces exposes the trace writer for the HTTP trace endpoint.
func (a *Adapter) Traces() *TraceWriter {
	if a == nil {
		return nil
	}
	return a.traces
}

// Complete runs the request against the primary provider. On a rate
// limit or unclassified failure it waits out the backoff and retries
// once on the fallback; the fallback's classified error is final.
func (a *Adapter) Complete(ctx context.Context, req Request) (*Response, error) {
	first := a.primary
	if first == nil {
		first = a.fallback
	}
	if first == nil {
		return nil, apperrors.ErrOracleDisabled
	}

	req.Messages = withJSONInstruction(req)

	resp, err := a.call(ctx, first, req)
	if err == nil {
		return resp, nil
	}

	oerr := Classify(err, first.Provider())
	if oerr.Kind == KindQuotaExhausted {
		return nil, oerr
	}

	second := a.fallback
	if second == nil || second == first {
		return nil, oerr
	}

	delay := oerr.RetryAfter
	if delay <= 0 {
		delay = CalculateBackoff(1, a.retry.InitialDelay, a.retry.MaxDelay)
	} else if delay > a.retry.MaxDelay {
		delay = a.retry.MaxDelay
	}

	a.log.WithError(oerr).
		WithField("op", req.Op).
		WithField("fallback", string(second.Provider())).
		WithField("delay_ms", delay.Milliseconds()).
		Warn("Primary oracle call failed, retrying on fallback")
	metrics.RecordOracleFallback(string(first.Provider()), string(second.Provider()))

	if serr := Sleep(ctx, delay); serr != nil {
		return nil, fmt.Errorf("waiting for fallback attempt: %w", serr)
	}

	resp, err = a.call(ctx, second, req)
	if err != nil {
		return nil, Classify(err, second.Provider())
	}
	return resp, nil
}

// call executes one leg with timing, tracing and metrics.
func (a *Adapter) call(ctx context.Context, c Client, req Request) (*Response, error) {
	provider := string(c.Provider())

	start := time.Now()
	resp, err := c.Complete(ctx, req)
	seconds := time.Since(start).Seconds()

	if err != nil {
		oerr := Classify(err, c.Provider())
		metrics.RecordOracleError(req.Op, provider, outcomeLabel(oerr.Kind))
		a.trace(req, "ERROR: "+oerr.Error())
		return nil, oerr
	}

	metrics.RecordOracleSuccess(req.Op, provider, seconds)
	metrics.RecordOracleTokens(provider, resp.Usage.PromptTokens, resp.Usage.CompletionTokens)
	a.trace(req, resp.Content)
	return resp, nil
}

func (a *Adapter) trace(req Request, output string) {
	if a.traces == nil || req.SessionID == "" {
		return
	}
	ev := TraceEvent{
		Timestamp: time.Now().UTC(),
		SessionID: req.SessionID,
		Op:        req.Op,
		Phase:     req.Phase,
		Messages:  req.Messages,
		Output:    output,
	}
	if err := a.traces.Append(ev); err != nil {
		a.log.WithError(err).
			WithField("session_id", req.SessionID).
			Warn("Failed to append oracle trace")
	}
}

// withJSONInstruction prepends the JSON-only system message unless some
// message already mentions JSON.
func withJSONInstruction(req Request) []Message {
	if !req.JSONOnly {
		return req.Messages
	}
	for _, m := range req.Messages {
		if strings.Contains(strings.ToLower(m.Content), "json") {
			return req.Messages
		}
	}
	out := make([]Message, 0, len(req.Messages)+1)
	out = append(out, Message{Role: RoleSystem, Content: jsonOnlyInstruction})
	return append(out, req.Messages...)
}

func outcomeLabel(k Kind) string {
	if k == KindOther {
		return "error"
	}
	return string(k)
}
