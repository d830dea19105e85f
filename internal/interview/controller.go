package interview

import (
	"context"
	"strings"

	"github.com/modulwissen/interview-go/internal/catalog"
	apperrors "github.com/modulwissen/interview-go/internal/errors"
	"github.com/modulwissen/interview-go/internal/evaluation"
	"github.com/modulwissen/interview-go/internal/logger"
	"github.com/modulwissen/interview-go/internal/metrics"
	"github.com/modulwissen/interview-go/internal/oracle"
	"github.com/modulwissen/interview-go/internal/rag"
	"github.com/modulwissen/interview-go/internal/session"
)

// Controller defaults, overridable through Config.
const (
	DefaultMaxInTLRounds       = 6
	DefaultResolveConfidence   = 0.6
	DefaultWroteDirectMinProb  = 0.85
	DefaultMaxGeneralQuestions = 2
	DefaultEvalSummaryTurns    = 30
	DefaultRetrieveTopK        = 5
)

// Config wires the controller's collaborators and dialogue knobs.
// Oracle, Searcher, Evaluations and Metrics may be nil; the controller
// then runs on deterministic fallbacks for the missing concern.
type Config struct {
	Sessions    *session.Store
	Catalog     *catalog.Store
	Oracle      *oracle.Adapter
	Searcher    *rag.HybridSearcher
	Evaluations *evaluation.Log
	Metrics     *metrics.Metrics
	Logger      *logger.Logger

	MaxInTLRounds       int
	ResolveConfidence   float64
	WroteDirectMinProb  float64
	MaxGeneralQuestions int
	EvalSummaryTurns    int
	RetrieveTopK        int
}

// Controller runs the interview dialogue and QA mode over the shared
// session store. All turn handling for one session is serialized through
// the store's per-session lock.
type Controller struct {
	sessions    *session.Store
	catalog     *catalog.Store
	oracle      *oracle.Adapter
	searcher    *rag.HybridSearcher
	evaluations *evaluation.Log
	metrics     *metrics.Metrics
	log         *logger.Logger

	maxInTLRounds       int
	resolveConfidence   float64
	wroteDirectMinProb  float64
	maxGeneralQuestions int
	evalSummaryTurns    int
	retrieveTopK        int
}

// New builds a controller, filling unset knobs with the defaults.
func New(cfg Config) *Controller {
	log := cfg.Logger
	if log == nil {
		log = logger.New("info")
	}
	c := &Controller{
		sessions:    cfg.Sessions,
		catalog:     cfg.Catalog,
		oracle:      cfg.Oracle,
		searcher:    cfg.Searcher,
		evaluations: cfg.Evaluations,
		metrics:     cfg.Metrics,
		log:         log.WithModule("interview"),

		maxInTLRounds:       cfg.MaxInTLRounds,
		resolveConfidence:   cfg.ResolveConfidence,
		wroteDirectMinProb:  cfg.WroteDirectMinProb,
		maxGeneralQuestions: cfg.MaxGeneralQuestions,
		evalSummaryTurns:    cfg.EvalSummaryTurns,
		retrieveTopK:        cfg.RetrieveTopK,
	}
	if c.maxInTLRounds <= 0 {
		c.maxInTLRounds = DefaultMaxInTLRounds
	}
	if c.resolveConfidence <= 0 {
		c.resolveConfidence = DefaultResolveConfidence
	}
	if c.wroteDirectMinProb <= 0 {
		c.wroteDirectMinProb = DefaultWroteDirectMinProb
	}
	if c.maxGeneralQuestions <= 0 {
		c.maxGeneralQuestions = DefaultMaxGeneralQuestions
	}
	if c.evalSummaryTurns <= 0 {
		c.evalSummaryTurns = DefaultEvalSummaryTurns
	}
	if c.retrieveTopK <= 0 {
		c.retrieveTopK = DefaultRetrieveTopK
	}
	return c
}

// Source is one retrieval citation attached to a QA answer.
type Source struct {
	ID    string  `json:"id"`
	Title string  `json:"title"`
	Score float64 `json:"score"`
}

// Result is the controller's answer to one start, reset or turn request.
type Result struct {
	Answer    string   `json:"answer"`
	Sources   []Source `json:"sources"`
	SessionID string   `json:"sessionId"`
}

func emptyResult(sessionID, answer string) *Result {
	return &Result{Answer: answer, Sources: []Source{}, SessionID: sessionID}
}

// Start bootstraps a session. An existing session without force gets the
// greeting replayed and stays untouched, so retried start requests never
// duplicate the opening turn. force resets everything mutable.
func (c *Controller) Start(ctx context.Context, sessionID, mode string, force bool) (*Result, error) {
	if strings.TrimSpace(sessionID) == "" {
		return nil, apperrors.NewValidationError("sessionId", "must not be empty")
	}
	unlock := c.sessions.LockTurn(sessionID)
	defer unlock()

	prev, exists := c.sessions.Get(sessionID)
	if exists && !force {
		return emptyResult(sessionID, greeting), nil
	}

	m := normalizeMode(mode)
	if mode == "" && exists {
		m = prev.Mode
	}
	st := session.New(m)
	st.AppendAssistant(greeting)
	c.sessions.Put(sessionID, st)
	c.snapshot()

	c.log.WithSessionID(sessionID).
		WithField("mode", string(m)).
		WithField("force", force).
		Info("Session started")
	return emptyResult(sessionID, greeting), nil
}

// Reset is Start with force, keeping the previous mode. It also clears a
// sticky llm_disabled flag.
func (c *Controller) Reset(ctx context.Context, sessionID string) (*Result, error) {
	return c.Start(ctx, sessionID, "", true)
}

// Turn handles one user utterance. A mode override on the request
// persists on the session.
func (c *Controller) Turn(ctx context.Context, sessionID, question, modeOverride string) (*Result, error) {
	unlock := c.sessions.LockTurn(sessionID)
	defer unlock()

	st, ok := c.sessions.Get(sessionID)
	if !ok {
		return nil, apperrors.ErrSessionNotFound
	}
	if modeOverride != "" {
		st.Mode = normalizeMode(modeOverride)
	}

	utterance := strings.TrimSpace(question)
	if utterance == "" {
		return c.commitTurn(sessionID, st, question, emptyInputReply, nil), nil
	}
	if st.Flags.LLMDisabled {
		return c.commitTurn(sessionID, st, question, llmDisabledReply(st.Flags.LLMDisabledReason), nil), nil
	}
	if st.Mode == session.ModeQA {
		return c.qaTurn(ctx, sessionID, st, utterance)
	}
	return c.interviewTurn(ctx, sessionID, st, utterance)
}

// interviewTurn advances the stage machine on a working copy and commits
// it only when the whole turn succeeded. Quota and rate limit failures
// discard the partial work.
func (c *Controller) interviewTurn(ctx context.Context, sid string, st *session.State, utterance string) (*Result, error) {
	from := st.Stage
	work := st.Clone()
	work.AppendUser(utterance)

	reply, err := c.dispatch(ctx, sid, work, utterance)
	if err != nil {
		return c.failTurn(sid, st, utterance, err)
	}

	work.AppendAssistant(reply)
	work.Sanitize()
	c.sessions.Put(sid, work)
	c.snapshot()
	c.recordTurn(from, work.Stage)
	return emptyResult(sid, reply), nil
}

// failTurn reports an oracle quota or rate limit failure to the user.
// Only the transcript grows; stage, asked log and counters stay as they
// were before the turn.
func (c *Controller) failTurn(sid string, st *session.State, utterance string, err error) (*Result, error) {
	var reply string
	switch {
	case oracle.IsQuotaExhausted(err):
		st.DisableLLM(quotaDisabledReason)
		reply = quotaExhaustedReply
		c.log.WithSessionID(sid).WithError(err).Warn("Oracle quota exhausted, disabling LLM for session")
	case oracle.IsRateLimited(err):
		reply = rateLimitedReply
		c.log.WithSessionID(sid).WithError(err).Warn("Oracle rate limited, asking user to retry")
	default:
		return nil, err
	}
	return c.commitTurn(sid, st, utterance, reply, nil), nil
}

// commitTurn appends the user/assistant pair to the given state and
// persists it. Used for turns that do not advance the stage machine.
func (c *Controller) commitTurn(sid string, st *session.State, userText, reply string, sources []Source) *Result {
	st.AppendUser(userText)
	st.AppendAssistant(reply)
	st.Sanitize()
	c.sessions.Put(sid, st)
	c.snapshot()
	c.recordTurn(st.Stage, st.Stage)
	res := emptyResult(sid, reply)
	if sources != nil {
		res.Sources = sources
	}
	return res
}

func (c *Controller) snapshot() {
	if err := c.sessions.Snapshot(); err != nil {
		c.log.WithError(err).Error("Failed to snapshot sessions")
	}
}

func (c *Controller) recordTurn(from, to session.Stage) {
	if c.metrics == nil {
		return
	}
	c.metrics.RecordTurn(string(to))
	c.metrics.RecordStageTransition(string(from), string(to))
}

// completeJSON runs one classifier call and decodes its JSON object into
// out. The bool reports whether out carries a model result; false means
// the caller should use its deterministic fallback. Quota and rate limit
// failures are returned so the turn can stop.
func (c *Controller) completeJSON(ctx context.Context, sid string, st *session.State, op string, msgs []oracle.Message, maxTokens int64, out any) (bool, error) {
	content, ok, err := c.complete(ctx, sid, st, op, msgs, maxTokens, 0, true)
	if !ok || err != nil {
		return false, err
	}
	if derr := decodeClassifierJSON(content, out); derr != nil {
		c.log.WithSessionID(sid).WithField("op", op).WithError(derr).Warn("Classifier output unusable, falling back")
		return false, nil
	}
	return true, nil
}

func (c *Controller) complete(ctx context.Context, sid string, st *session.State, op string, msgs []oracle.Message, maxTokens int64, temperature float64, jsonOnly bool) (string, bool, error) {
	if c.oracle == nil || !c.oracle.Enabled() {
		return "", false, nil
	}
	resp, err := c.oracle.Complete(ctx, oracle.Request{
		Op:          op,
		SessionID:   sid,
		Phase:       string(st.Stage),
		Messages:    msgs,
		JSONOnly:    jsonOnly,
		MaxTokens:   maxTokens,
		Temperature: temperature,
	})
	if err != nil {
		if oracle.IsQuotaExhausted(err) || oracle.IsRateLimited(err) {
			return "", false, err
		}
		c.log.WithSessionID(sid).WithField("op", op).WithError(err).Warn("Oracle call failed, falling back")
		return "", false, nil
	}
	return resp.Content, true, nil
}

func normalizeMode(mode string) session.Mode {
	if strings.EqualFold(strings.TrimSpace(mode), string(session.ModeQA)) {
		return session.ModeQA
	}
	return session.ModeInterview
}

// lastAssistantText returns the most recent assistant turn, which is the
// question the user is answering.
func lastAssistantText(st *session.State) string {
	for i := len(st.Transcript) - 1; i >= 0; i-- {
		if st.Transcript[i].Role == session.RoleAssistant {
			return st.Transcript[i].Content
		}
	}
	return ""
}
