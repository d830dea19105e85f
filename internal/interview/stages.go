package interview

import (
	"context"
	"strings"

	"github.com/modulwissen/interview-go/internal/catalog"
	"github.com/modulwissen/interview-go/internal/session"
)

// dispatch routes one interview turn to its stage handler. Abort wishes
// are handled before any stage logic: the cheap keyword pre-filter keeps
// the oracle out of ordinary turns, the oracle confirms that the keyword
// was meant as a command and not mentioned in passing.
func (c *Controller) dispatch(ctx context.Context, sid string, st *session.State, utterance string) (string, error) {
	if containsAbortKeyword(utterance) {
		intent, err := c.classifyControlIntent(ctx, sid, st, utterance)
		if err != nil {
			return "", err
		}
		if intent == intentAbort {
			st.LeaveTL()
			return farewellReply, nil
		}
	}

	switch st.Stage {
	case session.StageGeneral:
		return c.handleGeneral(ctx, sid, st, utterance)
	case session.StageTLSearch:
		return c.handleTLSearch(ctx, sid, st, utterance)
	case session.StageInTL:
		return c.handleInTL(ctx, sid, st, utterance)
	case session.StageWrapUp:
		return c.handleWrapUp(ctx, sid, st)
	default:
		return c.handleIntro(ctx, sid, st, utterance)
	}
}

// handleIntro consumes the answer to the greeting: semester, progress and
// optionally an area of interest. It always moves on to the general phase,
// even when nothing could be extracted.
func (c *Controller) handleIntro(ctx context.Context, sid string, st *session.State, utterance string) (string, error) {
	res, err := c.classifyIntro(ctx, sid, st, utterance)
	if err != nil {
		return "", err
	}
	if res.Semester != nil {
		st.General.Semester = res.Semester
	}
	if res.ProgressPercent != nil {
		st.General.ProgressPercent = res.ProgressPercent
	}
	if area := canonicalArea(res.Area); area != "" {
		st.Current.Area = area
	}

	st.Stage = session.StageGeneral
	q, err := c.pickPoolQuestion(ctx, sid, st, phaseGeneral, generalPool, "")
	if err != nil {
		return "", err
	}
	st.MarkAsked(q)
	return q, nil
}

// handleGeneral asks warm-up questions but jumps at every chance to talk
// about a concrete course. After the question budget is spent the stage
// moves on to the course search.
func (c *Controller) handleGeneral(ctx context.Context, sid string, st *session.State, utterance string) (string, error) {
	ent, err := c.classifyEntities(ctx, sid, st, utterance, false)
	if err != nil {
		return "", err
	}
	if area := canonicalArea(ent.FoundArea); area != "" && st.Current.Area == "" {
		st.Current.Area = area
	}
	if mention := c.selectMention(ent); mention != "" {
		reply, handled, err := c.resolveAndAdvance(ctx, sid, st, mention, ent)
		if err != nil {
			return "", err
		}
		if handled {
			return reply, nil
		}
	}

	if st.Counters.GeneralQuestions < c.maxGeneralQuestions {
		q, err := c.pickPoolQuestion(ctx, sid, st, phaseGeneral, generalPool, "")
		if err != nil {
			return "", err
		}
		st.Counters.GeneralQuestions++
		st.MarkAsked(q)
		return q, nil
	}

	st.Stage = session.StageTLSearch
	q, err := c.pickPoolQuestion(ctx, sid, st, phaseIdentification, identificationPool, "")
	if err != nil {
		return "", err
	}
	st.MarkAsked(q)
	return q, nil
}

// handleTLSearch hunts for a course the student has already been examined
// in. Pending confirmations take precedence over fresh detection.
func (c *Controller) handleTLSearch(ctx context.Context, sid string, st *session.State, utterance string) (string, error) {
	if st.Current.AwaitingCandidateChoice && len(st.Current.Candidates) > 0 {
		return c.handleCandidateChoice(ctx, sid, st, utterance)
	}
	if st.Current.AwaitingTitleWrittenConfirm && st.Current.PendingTLCandidate != nil {
		return c.handleCombinedConfirm(ctx, sid, st, utterance)
	}

	ent, err := c.classifyEntities(ctx, sid, st, utterance, true)
	if err != nil {
		return "", err
	}
	if area := canonicalArea(ent.FoundArea); area != "" && st.Current.Area == "" {
		st.Current.Area = area
	}
	if ent.TemporalHint == temporalFuture {
		return futureCourseQuestion, nil
	}
	if mention := c.selectMention(ent); mention != "" {
		reply, handled, err := c.resolveAndAdvance(ctx, sid, st, mention, ent)
		if err != nil {
			return "", err
		}
		if handled {
			return reply, nil
		}
	}

	q, err := c.pickPoolQuestion(ctx, sid, st, phaseIdentification, identificationPool, "")
	if err != nil {
		return "", err
	}
	st.MarkAsked(q)
	return q, nil
}

// handleCandidateChoice interprets the answer to a numbered candidate
// list. A pick behaves like a resolved mention without a written signal,
// so it leads into the combined confirmation.
func (c *Controller) handleCandidateChoice(ctx context.Context, sid string, st *session.State, utterance string) (string, error) {
	choice, err := c.classifyCandidateChoice(ctx, sid, st, utterance)
	if err != nil {
		return "", err
	}

	switch choice.Decision {
	case decisionPick:
		picked := st.Current.Candidates[choice.idx()-1]
		clearCandidates(st)
		st.Current.PendingTLCandidate = &session.CandidateRef{ID: picked.ID, Title: picked.Title}
		st.Current.AwaitingTitleWrittenConfirm = true
		st.Current.LastConfirmTL = picked.Title
		return combinedConfirmQuestion(picked.Title), nil

	case decisionFree:
		clearCandidates(st)
		reply, handled, err := c.resolveAndAdvance(ctx, sid, st, choice.Title, entityResult{TemporalHint: temporalUnknown})
		if err != nil {
			return "", err
		}
		if handled {
			return reply, nil
		}

	default:
		clearCandidates(st)
	}

	q, err := c.pickPoolQuestion(ctx, sid, st, phaseIdentification, identificationPool, "")
	if err != nil {
		return "", err
	}
	st.MarkAsked(q)
	return q, nil
}

// handleCombinedConfirm resolves the combined "right course, and already
// written?" question. A confirmed title with an open written answer enters
// the course but keeps a confirmation flag, so the next turn only needs a
// yes or no.
func (c *Controller) handleCombinedConfirm(ctx context.Context, sid string, st *session.State, utterance string) (string, error) {
	cand := *st.Current.PendingTLCandidate
	res, err := c.classifyCombined(ctx, sid, st, cand.Title, utterance)
	if err != nil {
		return "", err
	}

	switch res.TitleMatch {
	case matchYes:
		clearPending(st)
		switch {
		case res.Wrote != nil && *res.Wrote:
			return c.enterCourse(ctx, sid, st, cand.ID, cand.Title)
		case res.Wrote != nil && !*res.Wrote:
			st.RecordDeclinedWritten(cand.Title)
			q, err := c.pickPoolQuestion(ctx, sid, st, phaseIdentification, identificationPool, "")
			if err != nil {
				return "", err
			}
			st.MarkAsked(q)
			return declinedConnector + q, nil
		default:
			st.EnterTL(cand.ID, cand.Title)
			st.Current.AwaitingWrittenConfirm = true
			return writtenReprompt(cand.Title), nil
		}

	case matchNo:
		clearPending(st)
		q, err := c.pickPoolQuestion(ctx, sid, st, phaseIdentification, identificationPool, "")
		if err != nil {
			return "", err
		}
		st.MarkAsked(q)
		return q, nil

	default:
		return combinedConfirmQuestion(cand.Title), nil
	}
}

// handleInTL runs the fact interview for the current course. The round
// counter advances on every turn, including confirmations, and overflow
// hands over to the wrap-up.
func (c *Controller) handleInTL(ctx context.Context, sid string, st *session.State, utterance string) (string, error) {
	st.Current.InTLRounds++
	if st.Current.InTLRounds > c.maxInTLRounds {
		st.Current.InTLRounds = 0
		st.Stage = session.StageWrapUp
		q, err := c.pickPoolQuestion(ctx, sid, st, phaseWrapUp, wrapUpPool, "")
		if err != nil {
			return "", err
		}
		st.MarkAsked(q)
		return q, nil
	}

	if st.Current.AwaitingWrittenConfirm {
		wrote, err := c.classifyWritten(ctx, sid, st, utterance)
		if err != nil {
			return "", err
		}
		switch {
		case wrote != nil && *wrote:
			st.Current.AwaitingWrittenConfirm = false
			q, err := c.pickFactQuestion(ctx, sid, st)
			if err != nil {
				return "", err
			}
			st.MarkAsked(q)
			return enterTLPrefix(st.Current.TLTitle) + q, nil
		case wrote != nil && !*wrote:
			st.RecordDeclinedWritten(st.Current.TLTitle)
			st.LeaveTL()
			q, err := c.pickPoolQuestion(ctx, sid, st, phaseIdentification, identificationPool, "")
			if err != nil {
				return "", err
			}
			st.MarkAsked(q)
			return declinedConnector + q, nil
		default:
			return writtenReprompt(st.Current.TLTitle), nil
		}
	}

	facts, err := c.classifyFacts(ctx, sid, st, utterance)
	if err != nil {
		return "", err
	}
	merged := st.Current.TLFacts.Merge(facts)
	st.Current.TLFacts = merged
	if !facts.IsEmpty() {
		c.persistKnowledge(ctx, sid, st, merged)
	}

	q, err := c.pickFactQuestion(ctx, sid, st)
	if err != nil {
		return "", err
	}
	st.MarkAsked(q)
	return q, nil
}

// handleWrapUp closes the chapter on the current course and steers
// towards the next one. The reflective answer is not mined for facts.
func (c *Controller) handleWrapUp(ctx context.Context, sid string, st *session.State) (string, error) {
	st.LeaveTL()
	q := c.nextCourseQuestion(st)
	st.MarkAsked(q)
	return q, nil
}

func (c *Controller) nextCourseQuestion(st *session.State) string {
	if unasked := unaskedQuestions(nextCoursePool, st); len(unasked) > 0 {
		return unasked[0]
	}
	return c.exhaustedPoolFallback(st)
}

func (c *Controller) classifyFacts(ctx context.Context, sid string, st *session.State, text string) (catalog.FactSet, error) {
	var payload factsPayload
	ok, err := c.completeJSON(ctx, sid, st, opExtractFacts, extractFactsMessages(st.Current.TLTitle, lastAssistantText(st), text, st.Current.TLFacts), 600, &payload)
	if err != nil {
		return catalog.FactSet{}, err
	}
	if !ok {
		return catalog.FactSet{}, nil
	}
	return payload.toFactSet(), nil
}

// persistKnowledge writes the merged fact set of the current course and
// refreshes the retrieval index when the catalog actually changed.
// Storage trouble is logged, the interview goes on regardless.
func (c *Controller) persistKnowledge(ctx context.Context, sid string, st *session.State, merged catalog.FactSet) {
	ref := st.Current.TLID
	if ref == "" {
		ref = st.Current.TLTitle
	}
	if ref == "" {
		return
	}

	result, err := c.catalog.SaveNewKnowledge(ref, sid, merged)
	if err != nil {
		c.recordSave("error")
		c.log.WithSessionID(sid).WithField("course", ref).WithError(err).Warn("Failed to save course knowledge")
		return
	}
	switch {
	case result.Created:
		c.recordSave("created")
	case result.Changed:
		c.recordSave("merged")
	default:
		c.recordSave("unchanged")
	}
	if result.Changed && c.searcher != nil {
		if err := c.searcher.Refresh(ctx, c.catalog.Index().Courses(), result.Course); err != nil {
			c.log.WithSessionID(sid).WithError(err).Warn("Failed to refresh retrieval index")
		}
	}
}

func (c *Controller) recordSave(result string) {
	if c.metrics != nil {
		c.metrics.RecordKnowledgeSave(result)
	}
}

// resolveAndAdvance turns a course mention into a stage transition. A
// confident match with a strong written signal enters the course
// directly, a confident match without one asks the combined question,
// and an ambiguous match presents numbered candidates. The false return
// means the mention led nowhere and the caller should ask on.
func (c *Controller) resolveAndAdvance(ctx context.Context, sid string, st *session.State, mention string, ent entityResult) (string, bool, error) {
	res, err := c.resolveTL(ctx, sid, st, mention)
	if err != nil {
		return "", false, err
	}

	if res.resolved(c.resolveConfidence) {
		if ent.wroteProb() >= c.wroteDirectMinProb {
			reply, err := c.enterCourse(ctx, sid, st, res.MatchID, res.MatchTitle)
			if err != nil {
				return "", false, err
			}
			return reply, true, nil
		}
		st.Stage = session.StageTLSearch
		clearCandidates(st)
		st.Current.PendingTLCandidate = &session.CandidateRef{ID: res.MatchID, Title: res.MatchTitle}
		st.Current.AwaitingTitleWrittenConfirm = true
		st.Current.LastConfirmTL = res.MatchTitle
		return combinedConfirmQuestion(res.MatchTitle), true, nil
	}

	if res.NeedClarify {
		candidates := c.catalog.Index().Candidates(mention, 3)
		if len(candidates) > 0 {
			st.Stage = session.StageTLSearch
			clearPending(st)
			refs := make([]session.CandidateRef, len(candidates))
			for i, cand := range candidates {
				refs[i] = session.CandidateRef{Index: i + 1, ID: cand.Course.ID, Title: cand.Course.CleanTitle()}
			}
			st.Current.Candidates = refs
			st.Current.AwaitingCandidateChoice = true
			return candidateListQuestion(res.ClarifyQuestion, refs), true, nil
		}
	}

	return "", false, nil
}

// enterCourse switches into the fact interview and asks the first fact
// question, prefixed with the course announcement.
func (c *Controller) enterCourse(ctx context.Context, sid string, st *session.State, id, title string) (string, error) {
	st.EnterTL(id, title)
	q, err := c.pickFactQuestion(ctx, sid, st)
	if err != nil {
		return "", err
	}
	st.MarkAsked(q)
	return enterTLPrefix(title) + q, nil
}

// selectMention reduces multiple course mentions to the one worth
// pursuing: the least-known confidently matched course, input order
// breaking ties. Without a confident match the first mention stands.
func (c *Controller) selectMention(ent entityResult) string {
	mentions := ent.mentions()
	switch len(mentions) {
	case 0:
		return ""
	case 1:
		return mentions[0]
	}

	ix := c.catalog.Index()
	best := ""
	bestScore := 0
	for _, m := range mentions {
		cand := ix.Best(m)
		if cand.Course == nil || cand.Score < c.resolveConfidence {
			continue
		}
		if k := cand.Course.KnownnessScore(); best == "" || k < bestScore {
			best = m
			bestScore = k
		}
	}
	if best == "" {
		return mentions[0]
	}
	return best
}

func canonicalArea(s string) string {
	s = strings.TrimSpace(s)
	if s == "" {
		return ""
	}
	if detected := catalog.DetectArea(s); detected != "" {
		return detected
	}
	return s
}

func clearPending(st *session.State) {
	st.Current.PendingTLCandidate = nil
	st.Current.AwaitingTitleWrittenConfirm = false
}

func clearCandidates(st *session.State) {
	st.Current.Candidates = nil
	st.Current.AwaitingCandidateChoice = false
}
