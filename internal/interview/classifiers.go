package interview

import (
	"context"
	"strings"

	"github.com/modulwissen/interview-go/internal/catalog"
	"github.com/modulwissen/interview-go/internal/session"
)

func (c *Controller) classifyIntro(ctx context.Context, sid string, st *session.State, text string) (introResult, error) {
	var payload introPayload
	ok, err := c.completeJSON(ctx, sid, st, opIntroExtract, introExtractMessages(text), 200, &payload)
	if err != nil {
		return introResult{}, err
	}
	if !ok {
		return fallbackIntro(text), nil
	}
	return payload.normalize(), nil
}

func (c *Controller) classifyEntities(ctx context.Context, sid string, st *session.State, text string, strictCurrent bool) (entityResult, error) {
	var res entityResult
	ok, err := c.completeJSON(ctx, sid, st, opDetectEntities, detectEntitiesMessages(text, lastAssistantText(st), strictCurrent), 400, &res)
	if err != nil {
		return entityResult{}, err
	}
	if !ok {
		return fallbackEntities(text), nil
	}
	res.normalize()
	// An exact catalog id in the text is authoritative over whatever the
	// model transcribed.
	if id := catalog.ExtractID(text); id != "" {
		res.FoundTLText = id
		res.FoundTLList = nil
	}
	return res, nil
}

// classifyControlIntent confirms an abort after the keyword pre-filter
// matched, so its deterministic fallback is abort.
func (c *Controller) classifyControlIntent(ctx context.Context, sid string, st *session.State, text string) (string, error) {
	var res controlResult
	ok, err := c.completeJSON(ctx, sid, st, opControlIntent, controlIntentMessages(text), 120, &res)
	if err != nil {
		return "", err
	}
	if !ok || res.Intent == intentAbort {
		return intentAbort, nil
	}
	return intentContinue, nil
}

func (c *Controller) classifyWritten(ctx context.Context, sid string, st *session.State, text string) (*bool, error) {
	var res writtenResult
	ok, err := c.completeJSON(ctx, sid, st, opWritten, writtenMessages(st.Current.TLTitle, text), 120, &res)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, nil
	}
	return res.Wrote, nil
}

func (c *Controller) classifyCombined(ctx context.Context, sid string, st *session.State, title, text string) (combinedConfirm, error) {
	var res combinedConfirm
	ok, err := c.completeJSON(ctx, sid, st, opCombinedConfirm, combinedConfirmMessages(title, text), 160, &res)
	if err != nil {
		return combinedConfirm{}, err
	}
	if !ok {
		return combinedConfirm{TitleMatch: matchUnclear}, nil
	}
	res.normalize()
	return res, nil
}

// classifyCandidateChoice interprets the reply to a numbered candidate
// list. A plain list number never needs the oracle.
func (c *Controller) classifyCandidateChoice(ctx context.Context, sid string, st *session.State, reply string) (candidateChoice, error) {
	max := len(st.Current.Candidates)
	fb := fallbackCandidateChoice(reply, max)
	if fb.Decision == decisionPick {
		return fb, nil
	}
	var res candidateChoice
	ok, err := c.completeJSON(ctx, sid, st, opPickCandidate, pickCandidateMessages(reply, st.Current.Candidates), 200, &res)
	if err != nil {
		return candidateChoice{}, err
	}
	if !ok {
		return fb, nil
	}
	res.normalize(max)
	return res, nil
}

// resolveTL maps a free-text course mention onto the catalog. The oracle
// chooses among the fuzzy top candidates; its answer is canonicalized
// against the index, and anything unusable degrades to the fuzzy top hit.
func (c *Controller) resolveTL(ctx context.Context, sid string, st *session.State, mention string) (resolveResult, error) {
	candidates := c.catalog.Index().Candidates(mention, 5)
	if len(candidates) == 0 {
		return resolveResult{}, nil
	}

	var res resolveResult
	ok, err := c.completeJSON(ctx, sid, st, opResolveTL, resolveTLMessages(mention, candidates), 300, &res)
	if err != nil {
		return resolveResult{}, err
	}
	if !ok {
		return fallbackResolve(candidates, c.resolveConfidence), nil
	}
	res.normalize()

	if res.MatchID != "" {
		if course := c.catalog.Index().ByID(res.MatchID); course != nil {
			res.MatchTitle = course.CleanTitle()
		} else {
			res.MatchID = ""
		}
	}
	if res.MatchID == "" && res.MatchTitle != "" {
		found := false
		for _, cand := range candidates {
			if strings.EqualFold(cand.Course.CleanTitle(), res.MatchTitle) {
				res.MatchID = cand.Course.ID
				res.MatchTitle = cand.Course.CleanTitle()
				found = true
				break
			}
		}
		if !found {
			return fallbackResolve(candidates, c.resolveConfidence), nil
		}
	}
	if res.MatchID == "" && res.MatchTitle == "" && !res.NeedClarify {
		return fallbackResolve(candidates, c.resolveConfidence), nil
	}
	return res, nil
}

// pickPoolQuestion returns the next question of a phase. The oracle picks
// from the unasked pool; empty or repeated answers fall back to a random
// unasked question, an exhausted pool to a least-known course suggestion.
func (c *Controller) pickPoolQuestion(ctx context.Context, sid string, st *session.State, phase string, pool []string, hint string) (string, error) {
	unasked := unaskedQuestions(pool, st)
	if len(unasked) == 0 {
		return c.exhaustedPoolFallback(st), nil
	}
	var pick questionPick
	ok, err := c.completeJSON(ctx, sid, st, opPickQuestion, pickQuestionMessages(phase, unasked, st.AskedLog, hint), 300, &pick)
	if err != nil {
		return "", err
	}
	q := strings.TrimSpace(pick.Question)
	if !ok || q == "" || st.HasAsked(q) {
		q = unasked[randomIndex(len(unasked))]
	}
	return q, nil
}

// pickFactQuestion picks the next phase 3 question, handing the course's
// Erfolgskontrolle text to the oracle as a hint. An exhausted fact pool
// degrades to a repeatable catch-all instead of changing the topic.
func (c *Controller) pickFactQuestion(ctx context.Context, sid string, st *session.State) (string, error) {
	if len(unaskedQuestions(factPool, st)) == 0 {
		return catchAllFactQuestion, nil
	}
	hint := ""
	if course := c.courseFor(st); course != nil {
		hint = course.Erfolgskontrolle
	}
	return c.pickPoolQuestion(ctx, sid, st, phaseFacts, factPool, hint)
}

const catchAllFactQuestion = "Gibt es sonst noch etwas zu dieser Teilleistung, das andere Studierende unbedingt wissen sollten?"

// exhaustedPoolFallback suggests the least-known course that is neither
// declined nor currently discussed.
func (c *Controller) exhaustedPoolFallback(st *session.State) string {
	for _, course := range c.catalog.Index().LeastKnown(8) {
		title := course.CleanTitle()
		if title == "" || strings.EqualFold(title, st.Current.TLTitle) {
			continue
		}
		if hasDeclined(st, title) {
			continue
		}
		if q := leastKnownSuggestion(title); !st.HasAsked(q) {
			return q
		}
	}
	return exhaustedPoolQuestion
}

func hasDeclined(st *session.State, title string) bool {
	for _, t := range st.Current.DeclinedWritten {
		if strings.EqualFold(t, title) {
			return true
		}
	}
	return false
}

func (c *Controller) courseFor(st *session.State) *catalog.Course {
	ix := c.catalog.Index()
	if st.Current.TLID != "" {
		if course := ix.ByID(st.Current.TLID); course != nil {
			return course
		}
	}
	if st.Current.TLTitle == "" {
		return nil
	}
	for _, course := range ix.Courses() {
		if strings.EqualFold(course.CleanTitle(), st.Current.TLTitle) {
			return course
		}
	}
	return nil
}
