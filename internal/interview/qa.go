package interview

import (
	"context"
	"fmt"
	"regexp"
	"strings"

	"github.com/modulwissen/interview-go/internal/catalog"
	"github.com/modulwissen/interview-go/internal/oracle"
	"github.com/modulwissen/interview-go/internal/rag"
	"github.com/modulwissen/interview-go/internal/session"
)

const (
	qaNoAnswerReply         = "Ich weiß es nicht."
	qaTechnicalProblemReply = "Es gab ein technisches Problem bei der Auswertung. Bitte stelle deine letzte Frage erneut."

	qaHistoryTurns = 8
	qaMaxSources   = 4
)

const qaSynonymsBlock = "Teilleistung: Vorlesung, Vorlesungen, Lehrveranstaltung, Lehrveranstaltungen, Fach, Fächer, Seminar, Seminare, Übung, Übungen, Praktikum, Praktika, Labor, Laborpraktikum\n" +
	"Verantwortung: zuständige Person, zuständig, verantwortliche Person, verantwortlicher Professor, verantwortliche Professorin, Dozent, Dozentin, Professor, Professorin, Prof."

const qaSystemPrompt = "Du bist Studienberater des B.Sc.-Wirtschaftsingenieurwesens.\n" +
	"Behandle folgende Synonyme als äquivalent:\n" + qaSynonymsBlock + "\n\n" +
	"Begriffslogik:\n" +
	"• 'Bereich' bedeutet 'Hauptfach' (BWL, VWL, Informatik, Operations Research, Ingenieurwissenschaften; zusätzlich Mathematik, Statistik, Wahlpflichtbereich). Hierarchie: Bereich/Hauptfach → Module → Teilleistungen.\n" +
	"• Wenn explizit nach Teilleistungen gefragt wird, nenne AUSSCHLIESSLICH Teilleistungen (IDs 'T-'); vermeide Module ('M-').\n" +
	"• LP-Schwellen strikt beachten: 'mehr als X' ⇒ > X; 'mindestens X' ⇒ ≥ X; 'genau X' ⇒ == X.\n" +
	"Zitiere nur Fakten aus dem Kontext. Wenn nichts belegbar ist, antworte exakt: 'Ich weiß es nicht.'"

// qaTurn answers a handbook question over the retrieval index. Retrieval
// and oracle failures degrade the answer instead of failing the turn: the
// student always gets a reply, at worst a list of matching handbook
// passages.
func (c *Controller) qaTurn(ctx context.Context, sid string, st *session.State, utterance string) (*Result, error) {
	var results []rag.SearchResult
	if c.searcher.IsEnabled() {
		found, err := c.searcher.Search(ctx, normalizeSynonyms(utterance), c.retrieveTopK)
		if err != nil {
			c.log.WithSessionID(sid).WithError(err).Warn("Retrieval failed, answering without context")
		} else {
			results = found
		}
	}

	content, ok, err := c.complete(ctx, sid, st, opQAAnswer, qaMessages(st, utterance, results), 1024, 0, false)

	var answer string
	switch {
	case err != nil && oracle.IsQuotaExhausted(err):
		st.DisableLLM(quotaDisabledReason)
		c.log.WithSessionID(sid).WithError(err).Warn("Oracle quota exhausted, disabling LLM for session")
		answer = qaDegradedAnswer(results)
	case err != nil && oracle.IsRateLimited(err):
		answer = qaTechnicalProblemReply
	case err != nil:
		answer = qaDegradedAnswer(results)
	case !ok || strings.TrimSpace(content) == "":
		answer = qaDegradedAnswer(results)
	default:
		answer = strings.TrimSpace(content)
	}

	return c.commitTurn(sid, st, utterance, answer, qaSources(results)), nil
}

func qaMessages(st *session.State, question string, results []rag.SearchResult) []oracle.Message {
	msgs := make([]oracle.Message, 0, 2+2*qaHistoryTurns)
	msgs = append(msgs, oracle.Message{Role: oracle.RoleSystem, Content: qaSystemPrompt})
	msgs = append(msgs, qaHistory(st)...)
	msgs = append(msgs, oracle.Message{
		Role:    oracle.RoleUser,
		Content: fmt.Sprintf("Kontext:\n%s\n\nFrage: %s", qaContext(results), enrichQuestion(question)),
	})
	return msgs
}

// qaHistory replays the last exchanges so follow-up questions keep their
// referents.
func qaHistory(st *session.State) []oracle.Message {
	turns := st.Transcript
	if max := 2 * qaHistoryTurns; len(turns) > max {
		turns = turns[len(turns)-max:]
	}
	msgs := make([]oracle.Message, 0, len(turns))
	for _, t := range turns {
		role := oracle.RoleUser
		if t.Role == session.RoleAssistant {
			role = oracle.RoleAssistant
		}
		msgs = append(msgs, oracle.Message{Role: role, Content: t.Content})
	}
	return msgs
}

func qaContext(results []rag.SearchResult) string {
	if len(results) == 0 {
		return ""
	}
	parts := make([]string, len(results))
	for i, r := range results {
		parts[i] = r.Content
	}
	return strings.Join(parts, "\n\n")
}

func qaSources(results []rag.SearchResult) []Source {
	sources := make([]Source, 0, qaMaxSources)
	for _, r := range results {
		if len(sources) == qaMaxSources {
			break
		}
		sources = append(sources, Source{ID: r.UID, Title: r.Title, Score: float64(r.Similarity)})
	}
	return sources
}

// qaDegradedAnswer stands in when the oracle cannot answer. With hits it
// points at the matching handbook passages, without any it admits defeat
// in the exact phrase the model is also instructed to use.
func qaDegradedAnswer(results []rag.SearchResult) string {
	if len(results) == 0 {
		return qaNoAnswerReply
	}
	seen := make(map[string]bool, qaMaxSources)
	var b strings.Builder
	b.WriteString("Die Sprachauswertung ist gerade nicht verfügbar. Diese Stellen aus dem Modulhandbuch passen am besten zu deiner Frage:")
	for _, r := range results {
		title := strings.TrimSpace(r.Title)
		if title == "" || seen[strings.ToLower(title)] {
			continue
		}
		if len(seen) == qaMaxSources {
			break
		}
		seen[strings.ToLower(title)] = true
		b.WriteString("\n- ")
		b.WriteString(title)
	}
	return b.String()
}

// Question rewriting below mirrors the vocabulary of the handbook:
// students say Vorlesung or Kurs, the handbook says Teilleistung. The
// rewritten text feeds both retrieval and the model prompt.

var normReplacements = []struct {
	pattern *regexp.Regexp
	repl    string
}{
	{regexp.MustCompile(`(?i)\bvorlesung(en)?\b`), "Teilleistung"},
	{regexp.MustCompile(`(?i)\bveranstaltung(en)?\b`), "Teilleistung"},
	{regexp.MustCompile(`(?i)\bkurs(e)?\b`), "Teilleistung"},
	{regexp.MustCompile(`(?i)\bprüf(ung|ungen)\b`), "Teilleistung"},
	{regexp.MustCompile(`(?i)\bmodul(e)?\b`), "Modul"},
	{regexp.MustCompile(`(?i)\bzust(ä|a)?ndig(e|er|keit)?\b`), "Verantwortung"},
	{regexp.MustCompile(`(?i)\bprof(\.|essor(in)?)(en)?\b`), "Verantwortung"},
	{regexp.MustCompile(`(?i)\bhauptfach\b`), "Bereich"},
}

// Word boundaries are spelled out as non-letter guards because \b is
// ASCII-only in RE2 and fails in front of umlauts.
var (
	tlSynonymsPattern   = regexp.MustCompile(`(?i)(?:^|[^\p{L}])(?:vorlesung(?:en)?|lehrveranstaltung(?:en)?|fächer|fach|seminar(?:e)?|übung(?:en)?|praktik(?:um|a)|labor(?:praktikum)?)(?:$|[^\p{L}])`)
	respSynonymsPattern = regexp.MustCompile(`(?i)(?:^|[^\p{L}])(?:zuständig(?:e|er|en)?(?: person)?|verantwortlich(?:e|er|en)?|professor(?:in)?|prof\.)(?:$|[^\p{L}])`)
	teilleistungWord    = regexp.MustCompile(`(?i)teilleistung`)
	verantwortungWord   = regexp.MustCompile(`(?i)verantwort|zuständig`)
	bereichWord         = regexp.MustCompile(`(?i)\bbereich\b`)
)

func normalizeSynonyms(text string) string {
	out := text
	for _, r := range normReplacements {
		out = r.pattern.ReplaceAllString(out, r.repl)
	}
	return out
}

// annotateSynonyms tags colloquial wording with the handbook term it
// stands for. It runs before enrichOntology on purpose; afterwards the
// appended synonym hint would suppress every annotation.
func annotateSynonyms(q string) string {
	t := q
	if tlSynonymsPattern.MatchString(t) && !teilleistungWord.MatchString(t) {
		t += " (gemeint: Teilleistungen)"
	}
	if respSynonymsPattern.MatchString(t) && !verantwortungWord.MatchString(t) {
		t += " (gemeint: verantwortliche Person / Verantwortung)"
	}
	return t
}

// enrichOntology normalizes the question and appends the Bereich and
// synonym hints the answer prompt relies on.
func enrichOntology(q string) string {
	q = normalizeSynonyms(q)
	if bereich := catalog.DetectArea(q); bereich != "" {
		q += fmt.Sprintf("\n\n[Hinweis: Mit 'Bereich' ist das Hauptfach '%s' gemeint. Hierarchie: Bereich/Hauptfach → Module → Teilleistungen. Suche daher bevorzugt Module/Teilleistungen aus '%s'.]", bereich, bereich)
	} else if bereichWord.MatchString(q) {
		q += "\n\n[Hinweis: 'Bereich' bedeutet hier 'Hauptfach' (BWL, VWL, Informatik, Operations Research, Ingenieurwissenschaften; zusätzlich Mathematik, Statistik, Wahlpflichtbereich). Hierarchie: Bereich/Hauptfach → Module → Teilleistungen.]"
	}
	q += "\n\n[Synonyme: Teilleistung≈Vorlesung/Kurs/Veranstaltung; Verantwortung≈zuständige Person/Professor/in; Bereich≈Hauptfach/Fach.]"
	return q
}

func enrichQuestion(question string) string {
	return enrichOntology(annotateSynonyms(question))
}
