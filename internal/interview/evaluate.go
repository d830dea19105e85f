package interview

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/modulwissen/interview-go/internal/catalog"
	apperrors "github.com/modulwissen/interview-go/internal/errors"
	"github.com/modulwissen/interview-go/internal/evaluation"
	"github.com/modulwissen/interview-go/internal/oracle"
	"github.com/modulwissen/interview-go/internal/session"
)

const (
	evalStateInProgress = "in_progress"
	evalStateDone       = "done"

	evalIntroAnswer = "Danke für das Interview! Bevor du gehst: Wie fandest du das Gespräch? Bewerte bitte die folgenden Aussagen und ergänze gern Kommentare oder Korrekturen."

	evalThanksMessage = "Vielen Dank für deine Bewertung! Deine Rückmeldung und dein Erfahrungswissen sind gespeichert."
)

// EvaluationStartResult opens the evaluation form: the rating schema, a
// transcript summary and the knowledge this session contributed.
type EvaluationStartResult struct {
	Answer            string            `json:"answer"`
	EvalSchema        evaluation.Schema `json:"eval_schema"`
	Summary           string            `json:"summary"`
	KnowledgeMarkdown string            `json:"knowledge_markdown"`
	NewKnowledge      []KnowledgeDump   `json:"new_knowledge"`
	SessionID         string            `json:"sessionId"`
}

// KnowledgeDump is one course's facts from this session, shown to the
// student for review.
type KnowledgeDump struct {
	ID    string          `json:"id,omitempty"`
	Title string          `json:"title"`
	Facts catalog.FactSet `json:"facts"`
}

// EvaluationSubmitResult acknowledges a submitted questionnaire.
type EvaluationSubmitResult struct {
	Message   string `json:"message"`
	SessionID string `json:"sessionId"`
}

// EvaluationStart switches the session into the questionnaire. The stage
// is left untouched so a later reset restarts the interview cleanly.
func (c *Controller) EvaluationStart(ctx context.Context, sessionID string) (*EvaluationStartResult, error) {
	unlock := c.sessions.LockTurn(sessionID)
	defer unlock()

	st, ok := c.sessions.Get(sessionID)
	if !ok {
		return nil, apperrors.ErrSessionNotFound
	}

	state := evalStateInProgress
	st.Evaluation.State = &state

	summary := c.summarize(ctx, sessionID, st)

	contributions := c.catalog.SessionKnowledge(sessionID)
	dumps := make([]KnowledgeDump, 0, len(contributions))
	sections := make([]string, 0, len(contributions))
	for _, contrib := range contributions {
		dumps = append(dumps, KnowledgeDump{
			ID:    contrib.Course.ID,
			Title: contrib.Course.CleanTitle(),
			Facts: contrib.Entry.Facts,
		})
		sections = append(sections, catalog.RenderMarkdown(contrib.Course))
	}

	st.AppendAssistant(evalIntroAnswer)
	st.Sanitize()
	c.sessions.Put(sessionID, st)
	c.snapshot()

	c.log.WithSessionID(sessionID).WithField("courses", len(dumps)).Info("Evaluation started")
	return &EvaluationStartResult{
		Answer:            evalIntroAnswer,
		EvalSchema:        evaluation.DefaultSchema(),
		Summary:           summary,
		KnowledgeMarkdown: strings.Join(sections, "\n"),
		NewKnowledge:      dumps,
		SessionID:         sessionID,
	}, nil
}

// EvaluationSubmit validates and records the questionnaire. Invalid
// ratings surface as a validation error before any state changes.
func (c *Controller) EvaluationSubmit(ctx context.Context, sessionID string, ratings map[string]float64, comments, corrections string) (*EvaluationSubmitResult, error) {
	schema := evaluation.DefaultSchema()
	valid, err := evaluation.ValidateRatings(schema, ratings)
	if err != nil {
		return nil, err
	}

	unlock := c.sessions.LockTurn(sessionID)
	defer unlock()

	st, ok := c.sessions.Get(sessionID)
	if !ok {
		return nil, apperrors.ErrSessionNotFound
	}

	state := evalStateDone
	st.Evaluation.State = &state
	st.Evaluation.Index = len(schema.Items)
	answers := make([]int, len(schema.Items))
	for i, item := range schema.Items {
		answers[i] = valid[item.ID]
	}
	st.Evaluation.Answers = answers

	comments = strings.TrimSpace(comments)
	corrections = strings.TrimSpace(corrections)
	if comments != "" {
		st.Evaluation.Comments = append(st.Evaluation.Comments, comments)
	}
	if corrections != "" {
		st.Evaluation.Corrections = append(st.Evaluation.Corrections, corrections)
	}

	if err := c.evaluations.Append(evaluation.Record{
		Timestamp:   time.Now().UTC(),
		SessionID:   sessionID,
		Ratings:     valid,
		Comments:    comments,
		Corrections: corrections,
	}); err != nil {
		c.log.WithSessionID(sessionID).WithError(err).Error("Failed to append evaluation record")
	}

	st.AppendAssistant(evalThanksMessage)
	st.Sanitize()
	c.sessions.Put(sessionID, st)
	c.snapshot()

	c.log.WithSessionID(sessionID).Info("Evaluation submitted")
	return &EvaluationSubmitResult{Message: evalThanksMessage, SessionID: sessionID}, nil
}

// summarize condenses the recent transcript into a few German sentences.
// Oracle trouble falls back to a deterministic summary; quota exhaustion
// additionally disables the LLM for the session as everywhere else.
func (c *Controller) summarize(ctx context.Context, sid string, st *session.State) string {
	turns := st.Transcript
	if len(turns) > c.evalSummaryTurns {
		turns = turns[len(turns)-c.evalSummaryTurns:]
	}
	if len(turns) == 0 {
		return c.fallbackSummary(sid)
	}

	content, ok, err := c.complete(ctx, sid, st, opSummarize, summarizeMessages(turns), 500, 0.3, false)
	if err != nil {
		if oracle.IsQuotaExhausted(err) {
			st.DisableLLM(quotaDisabledReason)
		}
		c.log.WithSessionID(sid).WithError(err).Warn("Transcript summary failed, using fallback")
		return c.fallbackSummary(sid)
	}
	if s := strings.TrimSpace(content); ok && s != "" {
		return s
	}
	return c.fallbackSummary(sid)
}

func (c *Controller) fallbackSummary(sid string) string {
	switch n := len(c.catalog.SessionKnowledge(sid)); n {
	case 0:
		return "Wir haben über deinen Studienverlauf gesprochen; konkrete Prüfungserfahrungen sind diesmal nicht zusammengekommen."
	case 1:
		return "Du hast ausführlich von einer Teilleistung berichtet. Deine Erfahrungen zu Prüfung und Vorbereitung sind in der Wissensbasis gespeichert."
	default:
		return fmt.Sprintf("Du hast von %d Teilleistungen berichtet. Deine Erfahrungen zu Prüfungen und Vorbereitung sind in der Wissensbasis gespeichert.", n)
	}
}
