package interview

import (
	"math"
	"testing"
)

func TestDecodeClassifierJSON(t *testing.T) {
	tests := []struct {
		name    string
		content string
		wantErr bool
	}{
		{"plain object", `{"semester": 5}`, false},
		{"code fence", "```json\n{\"semester\": 5}\n```", false},
		{"prose around the object", `Hier ist das Ergebnis: {"semester": 5} wie gewünscht.`, false},
		{"no object at all", "Ich bin mir nicht sicher.", true},
		{"broken json", `{"semester": }`, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var payload introPayload
			err := decodeClassifierJSON(tt.content, &payload)
			if (err != nil) != tt.wantErr {
				t.Fatalf("decodeClassifierJSON(%q) error = %v, wantErr %v", tt.content, err, tt.wantErr)
			}
			if !tt.wantErr {
				if payload.Semester == nil || *payload.Semester != 5 {
					t.Errorf("Semester = %v, want 5", payload.Semester)
				}
			}
		})
	}
}

func TestFallbackIntro(t *testing.T) {
	res := fallbackIntro("Ich bin im 5. Semester und habe etwa 70 Prozent geschafft.")
	if res.Semester == nil || *res.Semester != 5 {
		t.Errorf("Semester = %v, want 5", res.Semester)
	}
	if res.ProgressPercent == nil || *res.ProgressPercent != 70 {
		t.Errorf("ProgressPercent = %v, want 70", res.ProgressPercent)
	}
	if res.Area != "" {
		t.Errorf("Area = %q, want empty", res.Area)
	}

	res = fallbackIntro("3. Fachsemester, so 30%. Mathe macht mir Spaß.")
	if res.Semester == nil || *res.Semester != 3 {
		t.Errorf("Semester = %v, want 3", res.Semester)
	}
	if res.ProgressPercent == nil || *res.ProgressPercent != 30 {
		t.Errorf("ProgressPercent = %v, want 30", res.ProgressPercent)
	}
	if res.Area != "Mathematik" {
		t.Errorf("Area = %q, want Mathematik", res.Area)
	}

	res = fallbackIntro("Ich bin im 25. Semester, gefühlt 120 Prozent durch.")
	if res.Semester != nil {
		t.Errorf("Semester = %v, an implausible value must stay unknown", *res.Semester)
	}
	if res.ProgressPercent == nil || *res.ProgressPercent != 100 {
		t.Errorf("ProgressPercent = %v, want capped at 100", res.ProgressPercent)
	}

	res = fallbackIntro("Läuft ganz gut bei mir.")
	if res.Semester != nil || res.ProgressPercent != nil {
		t.Errorf("result = %+v, want nothing extracted", res)
	}
}

func TestFallbackEntities(t *testing.T) {
	res := fallbackEntities("Ich habe T-WIWI-102816 letztes Semester geschrieben.")
	if res.FoundTLText != "T-WIWI-102816" {
		t.Errorf("FoundTLText = %q, want the catalog id", res.FoundTLText)
	}
	if res.TemporalHint != temporalUnknown {
		t.Errorf("TemporalHint = %q, want %q", res.TemporalHint, temporalUnknown)
	}

	res = fallbackEntities("BWL liegt mir einfach mehr.")
	if res.FoundArea != "Betriebswirtschaftslehre" {
		t.Errorf("FoundArea = %q, want Betriebswirtschaftslehre", res.FoundArea)
	}
	if res.FoundTLText != "" {
		t.Errorf("FoundTLText = %q, want empty without an id", res.FoundTLText)
	}
}

func TestFallbackCandidateChoice(t *testing.T) {
	tests := []struct {
		reply    string
		max      int
		decision string
		idx      int
	}{
		{"2", 3, decisionPick, 2},
		{"2.", 3, decisionPick, 2},
		{"3)", 3, decisionPick, 3},
		{"  1  ", 3, decisionPick, 1},
		{"zwei", 3, decisionNone, 0},
		{"0", 3, decisionNone, 0},
		{"7", 3, decisionNone, 0},
		{"", 3, decisionNone, 0},
		{"1 oder 2", 3, decisionNone, 0},
	}
	for _, tt := range tests {
		got := fallbackCandidateChoice(tt.reply, tt.max)
		if got.Decision != tt.decision {
			t.Errorf("fallbackCandidateChoice(%q, %d).Decision = %q, want %q", tt.reply, tt.max, got.Decision, tt.decision)
		}
		if tt.decision == decisionPick && got.idx() != tt.idx {
			t.Errorf("fallbackCandidateChoice(%q, %d).idx() = %d, want %d", tt.reply, tt.max, got.idx(), tt.idx)
		}
	}
}

func TestContainsAbortKeyword(t *testing.T) {
	positives := []string{
		"stop",
		"Stop bitte.",
		"Ich will das Interview abbrechen.",
		"EXIT",
		"Können wir das beenden?",
	}
	for _, text := range positives {
		if !containsAbortKeyword(text) {
			t.Errorf("containsAbortKeyword(%q) = false, want true", text)
		}
	}

	negatives := []string{
		"Die Vorlesung wurde abgebrochen.",
		"Das Quizformat fand ich gut.",
		"Der Zug wurde gestoppt.",
		"Unbeendet wirkt das nicht.",
		"",
	}
	for _, text := range negatives {
		if containsAbortKeyword(text) {
			t.Errorf("containsAbortKeyword(%q) = true, want false", text)
		}
	}
}

func TestClampSemester(t *testing.T) {
	if got := clampSemester(5); got == nil || *got != 5 {
		t.Errorf("clampSemester(5) = %v, want 5", got)
	}
	if got := clampSemester(0); got != nil {
		t.Errorf("clampSemester(0) = %v, want nil", *got)
	}
	if got := clampSemester(21); got != nil {
		t.Errorf("clampSemester(21) = %v, want nil", *got)
	}
}

func TestClampProgress(t *testing.T) {
	if got := clampProgress(70); got == nil || *got != 70 {
		t.Errorf("clampProgress(70) = %v, want 70", got)
	}
	if got := clampProgress(-5); got == nil || *got != 0 {
		t.Errorf("clampProgress(-5) = %v, want 0", got)
	}
	if got := clampProgress(130); got == nil || *got != 100 {
		t.Errorf("clampProgress(130) = %v, want 100", got)
	}
}

func TestEntityResultNormalize(t *testing.T) {
	prob := 1.7
	res := entityResult{
		FoundTLText:  "  Statistik I  ",
		FoundTLList:  []string{" Technische Mechanik ", "", "  "},
		TemporalHint: "gestern",
		WroteProb:    &prob,
	}
	res.normalize()

	if res.FoundTLText != "Statistik I" {
		t.Errorf("FoundTLText = %q, want trimmed", res.FoundTLText)
	}
	if len(res.FoundTLList) != 1 || res.FoundTLList[0] != "Technische Mechanik" {
		t.Errorf("FoundTLList = %v, want blanks dropped", res.FoundTLList)
	}
	if res.TemporalHint != temporalUnknown {
		t.Errorf("TemporalHint = %q, want %q", res.TemporalHint, temporalUnknown)
	}
	if res.WroteProb == nil || *res.WroteProb != 1 {
		t.Errorf("WroteProb = %v, want clamped to 1", res.WroteProb)
	}

	nan := math.NaN()
	res = entityResult{WroteProb: &nan}
	res.normalize()
	if res.WroteProb != nil {
		t.Errorf("WroteProb = %v, want nil for NaN", *res.WroteProb)
	}
	if res.wroteProb() != 0 {
		t.Errorf("wroteProb() = %v, want 0 without a value", res.wroteProb())
	}
}

func TestEntityResultMentions(t *testing.T) {
	res := entityResult{FoundTLText: "Statistik I"}
	if got := res.mentions(); len(got) != 1 || got[0] != "Statistik I" {
		t.Errorf("mentions() = %v, want the single text", got)
	}

	res = entityResult{FoundTLText: "Statistik I", FoundTLList: []string{"Technische Mechanik", "Programmieren I: Java"}}
	if got := res.mentions(); len(got) != 2 || got[0] != "Technische Mechanik" {
		t.Errorf("mentions() = %v, the list takes precedence", got)
	}

	if got := (entityResult{}).mentions(); got != nil {
		t.Errorf("mentions() = %v, want nil", got)
	}
}

func TestResolveResultResolved(t *testing.T) {
	res := resolveResult{MatchID: "T-MATH-102853", Confidence: 0.7}
	if !res.resolved(0.6) {
		t.Error("a confident id match should resolve")
	}
	if res.resolved(0.8) {
		t.Error("confidence below the threshold must not resolve")
	}

	res = resolveResult{Confidence: 0.9}
	if res.resolved(0.6) {
		t.Error("confidence without a match must not resolve")
	}

	res = resolveResult{MatchTitle: "Statistik I", Confidence: 0.7}
	if !res.resolved(0.6) {
		t.Error("a title-only match should resolve")
	}
}

func TestResolveResultNormalize(t *testing.T) {
	res := resolveResult{MatchID: " T-MATH-102853 ", MatchTitle: " Statistik I ", Confidence: math.NaN()}
	res.normalize()
	if res.MatchID != "T-MATH-102853" || res.MatchTitle != "Statistik I" {
		t.Errorf("normalized match = %q/%q, want trimmed", res.MatchID, res.MatchTitle)
	}
	if res.Confidence != 0 {
		t.Errorf("Confidence = %v, want 0 for NaN", res.Confidence)
	}

	res = resolveResult{Confidence: 1.8}
	res.normalize()
	if res.Confidence != 1 {
		t.Errorf("Confidence = %v, want clamped to 1", res.Confidence)
	}
}

func TestCandidateChoiceNormalize(t *testing.T) {
	c := candidateChoice{Decision: decisionPick, Index: 2}
	c.normalize(3)
	if c.Decision != decisionPick {
		t.Errorf("Decision = %q, want a valid pick kept", c.Decision)
	}

	c = candidateChoice{Decision: decisionPick, Index: 4}
	c.normalize(3)
	if c.Decision != decisionNone {
		t.Errorf("Decision = %q, an out-of-range pick becomes none", c.Decision)
	}

	c = candidateChoice{Decision: decisionPick, Index: math.NaN()}
	c.normalize(3)
	if c.Decision != decisionNone {
		t.Errorf("Decision = %q, a NaN index becomes none", c.Decision)
	}

	c = candidateChoice{Decision: decisionFree, Title: "   "}
	c.normalize(3)
	if c.Decision != decisionNone {
		t.Errorf("Decision = %q, free without a title becomes none", c.Decision)
	}

	c = candidateChoice{Decision: "maybe"}
	c.normalize(3)
	if c.Decision != decisionNone {
		t.Errorf("Decision = %q, unknown decisions become none", c.Decision)
	}
}

func TestCombinedConfirmNormalize(t *testing.T) {
	c := combinedConfirm{TitleMatch: "vielleicht"}
	c.normalize()
	if c.TitleMatch != matchUnclear {
		t.Errorf("TitleMatch = %q, want %q", c.TitleMatch, matchUnclear)
	}

	c = combinedConfirm{TitleMatch: matchNo}
	c.normalize()
	if c.TitleMatch != matchNo {
		t.Errorf("TitleMatch = %q, want %q kept", c.TitleMatch, matchNo)
	}
}

func TestFactsPayloadToFactSet(t *testing.T) {
	exam := "Klausur"
	prep := 3.0
	hours := 10.5
	difficulty := 7.4
	p := factsPayload{
		ExamType:     &exam,
		PrepWeeks:    &prep,
		HoursPerWeek: &hours,
		Difficulty:   &difficulty,
		Strategies:   []string{"Altklausuren", " Altklausuren ", "Lerngruppe"},
	}
	facts := p.toFactSet()

	if facts.ExamType == nil || *facts.ExamType != "schriftlich" {
		t.Errorf("ExamType = %v, want schriftlich", facts.ExamType)
	}
	if facts.PrepWeeks == nil || *facts.PrepWeeks != 3 {
		t.Errorf("PrepWeeks = %v, want 3", facts.PrepWeeks)
	}
	if facts.HoursPerWeek == nil || *facts.HoursPerWeek != 10.5 {
		t.Errorf("HoursPerWeek = %v, want 10.5", facts.HoursPerWeek)
	}
	if facts.Difficulty == nil || *facts.Difficulty != 5 {
		t.Errorf("Difficulty = %v, want clamped to 5", facts.Difficulty)
	}
	if len(facts.Strategies) != 2 {
		t.Errorf("Strategies = %v, want deduplicated", facts.Strategies)
	}

	negative := -2.0
	unknownExam := "Hausarbeit"
	p = factsPayload{ExamType: &unknownExam, PrepWeeks: &negative}
	facts = p.toFactSet()
	if facts.ExamType != nil {
		t.Errorf("ExamType = %q, an unknown type is dropped", *facts.ExamType)
	}
	if facts.PrepWeeks != nil {
		t.Errorf("PrepWeeks = %v, a negative value is dropped", *facts.PrepWeeks)
	}
	if !facts.IsEmpty() {
		t.Errorf("facts = %+v, want empty", facts)
	}
}

func TestFallbackResolve(t *testing.T) {
	if got := fallbackResolve(nil, 0.6); got.resolved(0.6) || got.NeedClarify {
		t.Errorf("fallbackResolve(nil) = %+v, want zero result", got)
	}
}
