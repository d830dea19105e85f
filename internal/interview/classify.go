package interview

import (
	"encoding/json"
	"fmt"
	"math"
	"regexp"
	"strconv"
	"strings"
	"unicode"

	"github.com/modulwissen/interview-go/internal/catalog"
	"github.com/modulwissen/interview-go/internal/stringutil"
)

// Enum values the classifiers return. Anything else maps to the
// unclear/zero branch during normalization.
const (
	temporalPast    = "past"
	temporalFuture  = "future"
	temporalMixed   = "mixed"
	temporalUnknown = "unknown"

	matchYes     = "yes"
	matchNo      = "no"
	matchUnclear = "unclear"

	intentAbort    = "abort"
	intentContinue = "continue"

	decisionPick = "pick"
	decisionNone = "none"
	decisionFree = "free"
)

// introResult is what the intro turn reveals about the student.
type introResult struct {
	Semester        *int
	ProgressPercent *int
	Area            string
}

type introPayload struct {
	Semester        *float64 `json:"semester"`
	ProgressPercent *float64 `json:"progress_percent"`
	Area            string   `json:"area"`
}

func (p introPayload) normalize() introResult {
	res := introResult{Area: strings.TrimSpace(p.Area)}
	if v, ok := finiteInt(p.Semester); ok {
		res.Semester = clampSemester(v)
	}
	if v, ok := finiteInt(p.ProgressPercent); ok {
		res.ProgressPercent = clampProgress(v)
	}
	return res
}

// entityResult is the detect_entities output.
type entityResult struct {
	FoundArea      string   `json:"found_area"`
	FoundTLText    string   `json:"found_tl_text"`
	FoundTLList    []string `json:"found_tl_list"`
	MentionsThesis bool     `json:"mentions_thesis"`
	ThesisTopic    string   `json:"thesis_topic"`
	TemporalHint   string   `json:"temporal_hint"`
	WroteProb      *float64 `json:"wrote_prob"`
	WroteHint      string   `json:"wrote_hint"`
}

func (e *entityResult) normalize() {
	e.FoundTLText = strings.TrimSpace(e.FoundTLText)
	list := make([]string, 0, len(e.FoundTLList))
	for _, m := range e.FoundTLList {
		if t := strings.TrimSpace(m); t != "" {
			list = append(list, t)
		}
	}
	e.FoundTLList = list
	switch e.TemporalHint {
	case temporalPast, temporalFuture, temporalMixed:
	default:
		e.TemporalHint = temporalUnknown
	}
	if e.WroteProb != nil {
		v := *e.WroteProb
		if math.IsNaN(v) || math.IsInf(v, 0) {
			e.WroteProb = nil
		} else {
			v = math.Max(0, math.Min(1, v))
			e.WroteProb = &v
		}
	}
}

// mentions returns all course mentions, list first, single text as the
// one-element case.
func (e entityResult) mentions() []string {
	if len(e.FoundTLList) > 0 {
		return e.FoundTLList
	}
	if e.FoundTLText != "" {
		return []string{e.FoundTLText}
	}
	return nil
}

func (e entityResult) wroteProb() float64 {
	if e.WroteProb == nil {
		return 0
	}
	return *e.WroteProb
}

// resolveResult is the resolve_tl output, normalized to canonical catalog
// id and title.
type resolveResult struct {
	MatchID         string  `json:"match_id"`
	MatchTitle      string  `json:"match_title"`
	Confidence      float64 `json:"confidence"`
	NeedClarify     bool    `json:"need_clarify"`
	ClarifyQuestion string  `json:"clarify_question"`
}

func (r *resolveResult) normalize() {
	r.MatchID = strings.TrimSpace(r.MatchID)
	r.MatchTitle = strings.TrimSpace(r.MatchTitle)
	if math.IsNaN(r.Confidence) || math.IsInf(r.Confidence, 0) {
		r.Confidence = 0
	}
	r.Confidence = math.Max(0, math.Min(1, r.Confidence))
}

func (r resolveResult) resolved(threshold float64) bool {
	return r.Confidence >= threshold && (r.MatchID != "" || r.MatchTitle != "")
}

type questionPick struct {
	Question  string `json:"question"`
	Rationale string `json:"rationale"`
}

type controlResult struct {
	Intent string `json:"intent"`
}

type writtenResult struct {
	Wrote *bool `json:"wrote"`
}

type combinedConfirm struct {
	TitleMatch string `json:"title_match"`
	Wrote      *bool  `json:"wrote"`
}

func (c *combinedConfirm) normalize() {
	switch c.TitleMatch {
	case matchYes, matchNo:
	default:
		c.TitleMatch = matchUnclear
	}
}

type candidateChoice struct {
	Decision string  `json:"decision"`
	Index    float64 `json:"idx"`
	Title    string  `json:"title"`
}

func (c *candidateChoice) normalize(max int) {
	c.Title = strings.TrimSpace(c.Title)
	switch c.Decision {
	case decisionPick:
		if c.idx() < 1 || c.idx() > max {
			c.Decision = decisionNone
		}
	case decisionFree:
		if c.Title == "" {
			c.Decision = decisionNone
		}
	default:
		c.Decision = decisionNone
	}
}

func (c candidateChoice) idx() int {
	if math.IsNaN(c.Index) || math.IsInf(c.Index, 0) {
		return 0
	}
	return int(c.Index)
}

// factsPayload decodes extract_facts output with tolerant number types
// before conversion into a catalog.FactSet.
type factsPayload struct {
	ExamType     *string  `json:"exam_type"`
	PrepWeeks    *float64 `json:"prep_weeks"`
	HoursPerWeek *float64 `json:"hours_per_week"`
	Difficulty   *float64 `json:"difficulty_1_5"`
	Strategies   []string `json:"strategies"`
	Materials    []string `json:"materials"`
	Pitfalls     []string `json:"pitfalls"`
	Tips         []string `json:"tips"`
}

func (p factsPayload) toFactSet() catalog.FactSet {
	facts := catalog.FactSet{
		ExamType:     p.ExamType,
		PrepWeeks:    finitePositive(p.PrepWeeks),
		HoursPerWeek: finitePositive(p.HoursPerWeek),
		Strategies:   p.Strategies,
		Materials:    p.Materials,
		Pitfalls:     p.Pitfalls,
		Tips:         p.Tips,
	}
	if v, ok := finiteInt(p.Difficulty); ok {
		facts.Difficulty = &v
	}
	facts.Sanitize()
	return facts
}

// decodeClassifierJSON pulls the first JSON object out of a model answer
// and decodes it. Models occasionally wrap the object in code fences or
// prose despite the JSON-only instruction.
func decodeClassifierJSON(content string, v any) error {
	raw := extractJSONObject(content)
	if raw == "" {
		return fmt.Errorf("no JSON object in classifier output %q", stringutil.Truncate(content, 120))
	}
	if err := json.Unmarshal([]byte(raw), v); err != nil {
		return fmt.Errorf("decoding classifier output: %w", err)
	}
	return nil
}

func extractJSONObject(s string) string {
	first := strings.Index(s, "{")
	last := strings.LastIndex(s, "}")
	if first < 0 || last <= first {
		return ""
	}
	return s[first : last+1]
}

var (
	semesterPattern = regexp.MustCompile(`(?i)(\d{1,2})\.?\s*(?:fach)?semester`)
	progressPattern = regexp.MustCompile(`(?i)(\d{1,3})\s*(?:%|prozent)`)
)

// fallbackIntro scans the intro reply with regexes when the oracle is
// unavailable.
func fallbackIntro(text string) introResult {
	var res introResult
	if m := semesterPattern.FindStringSubmatch(text); m != nil {
		if v, err := strconv.Atoi(m[1]); err == nil {
			res.Semester = clampSemester(v)
		}
	}
	if m := progressPattern.FindStringSubmatch(text); m != nil {
		if v, err := strconv.Atoi(m[1]); err == nil {
			res.ProgressPercent = clampProgress(v)
		}
	}
	res.Area = catalog.DetectArea(text)
	return res
}

// fallbackEntities is a zero-value scan: a course id via the id pattern
// and an area via the alias table, nothing else.
func fallbackEntities(text string) entityResult {
	res := entityResult{TemporalHint: temporalUnknown}
	res.FoundArea = catalog.DetectArea(text)
	if id := catalog.ExtractID(text); id != "" {
		res.FoundTLText = id
	}
	return res
}

// fallbackResolve maps a mention onto the top fuzzy candidate.
func fallbackResolve(candidates []catalog.Candidate, threshold float64) resolveResult {
	if len(candidates) == 0 {
		return resolveResult{}
	}
	top := candidates[0]
	res := resolveResult{
		MatchID:     top.Course.ID,
		MatchTitle:  top.Course.CleanTitle(),
		Confidence:  top.Score,
		NeedClarify: top.Score < threshold,
	}
	res.normalize()
	return res
}

// fallbackCandidateChoice accepts plain list numbers, everything else is
// a non-answer.
func fallbackCandidateChoice(reply string, max int) candidateChoice {
	t := strings.TrimSpace(reply)
	t = strings.TrimRight(t, ".!)")
	if stringutil.IsNumeric(t) {
		if v, err := strconv.Atoi(t); err == nil && v >= 1 && v <= max {
			return candidateChoice{Decision: decisionPick, Index: float64(v)}
		}
	}
	return candidateChoice{Decision: decisionNone}
}

var abortKeywords = []string{"abbrechen", "stop", "beenden", "exit", "quit"}

// containsAbortKeyword pre-filters utterances before the control intent
// classifier runs. Without a keyword hit the turn can never abort.
func containsAbortKeyword(text string) bool {
	words := strings.FieldsFunc(strings.ToLower(text), func(r rune) bool {
		return !unicode.IsLetter(r)
	})
	for _, w := range words {
		for _, k := range abortKeywords {
			if w == k {
				return true
			}
		}
	}
	return false
}

func clampSemester(v int) *int {
	if v < 1 || v > 20 {
		return nil
	}
	return &v
}

func clampProgress(v int) *int {
	if v < 0 {
		v = 0
	} else if v > 100 {
		v = 100
	}
	return &v
}

func finiteInt(p *float64) (int, bool) {
	if p == nil || math.IsNaN(*p) || math.IsInf(*p, 0) {
		return 0, false
	}
	return int(math.Round(*p)), true
}

func finitePositive(p *float64) *float64 {
	if p == nil || math.IsNaN(*p) || math.IsInf(*p, 0) || *p < 0 {
		return nil
	}
	v := *p
	return &v
}
