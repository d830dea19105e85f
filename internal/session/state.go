// Package session holds interview session state and its persistence.
// States live in memory and are snapshotted to disk after every turn so a
// restart resumes running interviews.
package session

import (
	"time"

	"github.com/modulwissen/interview-go/internal/catalog"
	"github.com/modulwissen/interview-go/internal/sliceutil"
)

// Mode selects the dialogue behavior of a session.
type Mode string

const (
	ModeInterview Mode = "interview"
	ModeQA        Mode = "qa"
)

// Stage is the dialogue stage of an interview session.
type Stage string

const (
	StageAwaitSemesterProgress Stage = "await_semester_progress"
	StageGeneral               Stage = "general"
	StageTLSearch              Stage = "tl_search"
	StageInTL                  Stage = "in_tl"
	StageWrapUp                Stage = "wrap_up"
)

// Transcript roles.
const (
	RoleUser      = "user"
	RoleAssistant = "assistant"
)

// Turn is one transcript entry.
type Turn struct {
	Role      string         `json:"role"`
	Content   string         `json:"content"`
	Timestamp time.Time      `json:"ts"`
	Meta      map[string]any `json:"meta,omitempty"`
}

// GeneralInfo holds what the intro turn revealed about the student.
type GeneralInfo struct {
	Semester        *int `json:"semester"`
	ProgressPercent *int `json:"progress_percent"`
}

// Counters tracks per-stage question budgets.
type Counters struct {
	GeneralQuestions int `json:"general_q"`
}

// CandidateRef is one course offered to the student for disambiguation.
type CandidateRef struct {
	Index int    `json:"idx"`
	ID    string `json:"id"`
	Title string `json:"title"`
}

// CurrentTopic holds everything about the Teilleistung currently under
// discussion, including the confirmation sub-states on the way into it.
type CurrentTopic struct {
	Area    string `json:"area"`
	TLID    string `json:"tl_id"`
	TLTitle string `json:"tl_title"`

	// At most one of the three awaiting flags is true.
	AwaitingWrittenConfirm      bool `json:"awaiting_written_confirm"`
	AwaitingTitleWrittenConfirm bool `json:"awaiting_title_written_confirm"`
	AwaitingCandidateChoice     bool `json:"awaiting_candidate_choice"`

	Candidates         []CandidateRef  `json:"candidates"`
	PendingTLCandidate *CandidateRef   `json:"pending_tl_candidate"`
	TLFacts            catalog.FactSet `json:"tl_facts"`
	InTLRounds         int             `json:"in_tl_rounds"`
	DeclinedWritten    []string        `json:"declined_written"`
	LastConfirmTL      string          `json:"last_confirm_tl"`
}

// Flags carries sticky session switches.
type Flags struct {
	LLMDisabled       bool    `json:"llm_disabled"`
	LLMDisabledReason *string `json:"llm_disabled_reason"`
}

// Evaluation tracks the closing questionnaire.
type Evaluation struct {
	State       *string  `json:"state"`
	Index       int      `json:"index"`
	Answers     []int    `json:"answers"`
	Comments    []string `json:"comments"`
	Corrections []string `json:"corrections"`
}

// State is the full persisted state of one session.
type State struct {
	Mode       Mode         `json:"mode"`
	StartedAt  time.Time    `json:"started_at"`
	Stage      Stage        `json:"stage"`
	General    GeneralInfo  `json:"general"`
	Counters   Counters     `json:"counters"`
	AskedLog   []string     `json:"asked_log"`
	Transcript []Turn       `json:"transcript"`
	Current    CurrentTopic `json:"current"`
	Flags      Flags        `json:"flags"`
	Evaluation Evaluation   `json:"evaluation"`
}

// New creates a fresh session state in the first stage.
func New(mode Mode) *State {
	s := &State{
		Mode:      mode,
		StartedAt: time.Now().UTC(),
		Stage:     StageAwaitSemesterProgress,
	}
	s.Sanitize()
	return s
}

// Sanitize repairs the state's invariants. It is idempotent and runs on
// every store write and on snapshot load, so downstream code can rely on
// a consistent shape.
func (s *State) Sanitize() {
	switch s.Mode {
	case ModeInterview, ModeQA:
	default:
		s.Mode = ModeInterview
	}
	switch s.Stage {
	case StageAwaitSemesterProgress, StageGeneral, StageTLSearch, StageInTL, StageWrapUp:
	default:
		s.Stage = StageAwaitSemesterProgress
	}

	// Exactly the awaiting state backed by data survives. Priority when
	// flags disagree with data: pending candidate, then candidate list,
	// then the plain written confirm.
	cur := &s.Current
	switch {
	case cur.PendingTLCandidate != nil:
		cur.AwaitingTitleWrittenConfirm = true
		cur.AwaitingCandidateChoice = false
		cur.AwaitingWrittenConfirm = false
		cur.Candidates = nil
	case len(cur.Candidates) > 0:
		cur.AwaitingCandidateChoice = true
		cur.AwaitingTitleWrittenConfirm = false
		cur.AwaitingWrittenConfirm = false
	default:
		cur.AwaitingTitleWrittenConfirm = false
		cur.AwaitingCandidateChoice = false
	}

	if cur.InTLRounds < 0 {
		cur.InTLRounds = 0
	}
	cur.TLFacts.Sanitize()
	cur.DeclinedWritten = sliceutil.Deduplicate(cur.DeclinedWritten, func(v string) string { return v })

	s.AskedLog = sliceutil.Deduplicate(s.AskedLog, func(v string) string { return v })
	if s.Counters.GeneralQuestions < 0 {
		s.Counters.GeneralQuestions = 0
	}

	if s.AskedLog == nil {
		s.AskedLog = []string{}
	}
	if s.Transcript == nil {
		s.Transcript = []Turn{}
	}
	if cur.Candidates == nil {
		cur.Candidates = []CandidateRef{}
	}
	if cur.DeclinedWritten == nil {
		cur.DeclinedWritten = []string{}
	}
	if s.Evaluation.Answers == nil {
		s.Evaluation.Answers = []int{}
	}
	if s.Evaluation.Comments == nil {
		s.Evaluation.Comments = []string{}
	}
	if s.Evaluation.Corrections == nil {
		s.Evaluation.Corrections = []string{}
	}
}

// Clone returns a deep copy so stored states stay immutable.
func (s *State) Clone() *State {
	c := *s

	c.AskedLog = append([]string(nil), s.AskedLog...)
	c.Transcript = make([]Turn, len(s.Transcript))
	for i, t := range s.Transcript {
		c.Transcript[i] = t
		if t.Meta != nil {
			m := make(map[string]any, len(t.Meta))
			for k, v := range t.Meta {
				m[k] = v
			}
			c.Transcript[i].Meta = m
		}
	}

	c.General.Semester = clonePtr(s.General.Semester)
	c.General.ProgressPercent = clonePtr(s.General.ProgressPercent)
	c.Flags.LLMDisabledReason = clonePtr(s.Flags.LLMDisabledReason)

	c.Current.Candidates = append([]CandidateRef(nil), s.Current.Candidates...)
	c.Current.PendingTLCandidate = clonePtr(s.Current.PendingTLCandidate)
	c.Current.TLFacts = s.Current.TLFacts.Clone()
	c.Current.DeclinedWritten = append([]string(nil), s.Current.DeclinedWritten...)

	c.Evaluation.State = clonePtr(s.Evaluation.State)
	c.Evaluation.Answers = append([]int(nil), s.Evaluation.Answers...)
	c.Evaluation.Comments = append([]string(nil), s.Evaluation.Comments...)
	c.Evaluation.Corrections = append([]string(nil), s.Evaluation.Corrections...)

	return &c
}

func clonePtr[T any](p *T) *T {
	if p == nil {
		return nil
	}
	v := *p
	return &v
}

// AppendUser adds a user turn to the transcript.
func (s *State) AppendUser(content string) {
	s.Transcript = append(s.Transcript, Turn{Role: RoleUser, Content: content, Timestamp: time.Now().UTC()})
}

// AppendAssistant adds an assistant turn to the transcript.
func (s *State) AppendAssistant(content string) {
	s.Transcript = append(s.Transcript, Turn{Role: RoleAssistant, Content: content, Timestamp: time.Now().UTC()})
}

// MarkAsked records a question so pools never repeat it.
func (s *State) MarkAsked(question string) {
	for _, q := range s.AskedLog {
		if q == question {
			return
		}
	}
	s.AskedLog = append(s.AskedLog, question)
}

// HasAsked reports whether the question was asked before.
func (s *State) HasAsked(question string) bool {
	for _, q := range s.AskedLog {
		if q == question {
			return true
		}
	}
	return false
}

// RecordDeclinedWritten remembers a Teilleistung whose written exam the
// student denied having taken.
func (s *State) RecordDeclinedWritten(title string) {
	for _, t := range s.Current.DeclinedWritten {
		if t == title {
			return
		}
	}
	s.Current.DeclinedWritten = append(s.Current.DeclinedWritten, title)
}

// EnterTL moves the conversation into a confirmed Teilleistung.
func (s *State) EnterTL(id, title string) {
	s.Stage = StageInTL
	s.Current.TLID = id
	s.Current.TLTitle = title
	s.Current.TLFacts = catalog.FactSet{}
	s.Current.InTLRounds = 0
	s.Current.PendingTLCandidate = nil
	s.Current.Candidates = nil
	s.Current.AwaitingWrittenConfirm = false
	s.Current.AwaitingTitleWrittenConfirm = false
	s.Current.AwaitingCandidateChoice = false
	s.Sanitize()
}

// LeaveTL clears the per-Teilleistung state when wrap-up hands back to the
// search stage. Area and declined exams survive for the rest of the session.
func (s *State) LeaveTL() {
	s.Stage = StageTLSearch
	s.Current.TLID = ""
	s.Current.TLTitle = ""
	s.Current.TLFacts = catalog.FactSet{}
	s.Current.InTLRounds = 0
	s.Current.PendingTLCandidate = nil
	s.Current.Candidates = nil
	s.Current.AwaitingWrittenConfirm = false
	s.Current.AwaitingTitleWrittenConfirm = false
	s.Current.AwaitingCandidateChoice = false
	s.Current.LastConfirmTL = ""
	s.Sanitize()
}

// DisableLLM marks the session as running without the oracle, with the
// reason kept for the conversations view.
func (s *State) DisableLLM(reason string) {
	s.Flags.LLMDisabled = true
	s.Flags.LLMDisabledReason = &reason
}
