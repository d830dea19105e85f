// Package interview drives the guided dialogue that collects course
// experience knowledge from students. A controller walks each session
// through the interview stages, classifies free-text replies with the
// oracle and falls back to deterministic rules when the oracle is
// unavailable. QA mode answers module handbook questions over the
// hybrid retrieval index instead.
package interview

import (
	"crypto/rand"
	"encoding/binary"
	"fmt"
	"strings"

	"github.com/modulwissen/interview-go/internal/session"
)

// Question phases, in interview order.
const (
	phaseGeneral        = "Allgemeine Fragen"
	phaseIdentification = "Teilleistungssuche"
	phaseFacts          = "Erfahrungsfragen"
	phaseWrapUp         = "Abschluss"
)

// greeting opens every new session as the first assistant turn. Replaying
// a start request returns the same text without appending it again.
const greeting = `Hallo und willkommen! Ich sammle Erfahrungswissen zu den Teilleistungen des B.Sc. Wirtschaftsingenieurwesen, von Studierenden für Studierende.
Wie liefen Prüfungen ab, wie viel Vorbereitung war nötig, welche Strategien haben geholfen? Deine Antworten fließen anonym in die Wissensbasis ein und helfen kommenden Semestern bei der Planung.
Zum Einstieg: In welchem Fachsemester bist du gerade, und wie viel Prozent deines Studiums hast du ungefähr geschafft?`

// Fixed replies outside the question pools.
const (
	emptyInputReply = "Deine Nachricht ist leer bei mir angekommen. Magst du sie bitte noch einmal senden?"

	rateLimitedReply = "Gerade sind sehr viele Anfragen unterwegs. Bitte schicke deine Antwort gleich noch einmal."

	quotaExhaustedReply = "Das Kontingent für die Sprachauswertung ist leider aufgebraucht. Ich kann das Interview im Moment nicht fortführen. Bitte setze die Sitzung zurück und versuche es später noch einmal."

	farewellReply = "Alles klar, dann lassen wir das Thema. Danke dir für deine Antworten bis hierhin! Wenn du magst, erzähl mir einfach von einer anderen Teilleistung."

	declinedConnector = "Kein Problem, dann nehmen wir eine andere. "

	futureCourseQuestion = "Das klingt nach einer Teilleistung, die noch vor dir liegt. Mich interessieren vor allem Prüfungen, die du schon hinter dir hast: Welche hast du bereits geschrieben?"

	exhaustedPoolQuestion = "Erzähl mir gern von einer weiteren Prüfung aus deinem Studium. Welche fällt dir ein?"

	quotaDisabledReason = "Kontingent aufgebraucht"
)

// generalPool holds the phase 1 questions about the study experience as a
// whole, asked before the dialogue steers toward a concrete Teilleistung.
var generalPool = []string{
	"Wie zufrieden bist du bisher mit deinem Studienverlauf?",
	"Welche Bereiche liegen dir bisher am meisten, eher die Wirtschaftsfächer oder die technischen Fächer?",
	"Wie gehst du deine Prüfungsphasen normalerweise an, eher mit festem Plan oder spontan?",
	"Gab es ein Semester, das dich besonders gefordert hat? Was war da los?",
	"Wie viele Teilleistungen belegst du in einem typischen Semester?",
	"Arbeitest du neben dem Studium, und wie wirkt sich das auf deine Prüfungsvorbereitung aus?",
}

// identificationPool holds the phase 2 questions that fish for a concrete
// Teilleistung the student has already taken.
var identificationPool = []string{
	"Welche Teilleistung hast du zuletzt abgeschlossen? Der Titel reicht, so gut du ihn im Kopf hast.",
	"Gibt es eine Prüfung, die dir besonders in Erinnerung geblieben ist? Welche war das?",
	"Zu welcher Teilleistung könntest du anderen Studierenden am meisten Tipps geben?",
	"Welche Klausur hast du im letzten Prüfungszeitraum geschrieben?",
	"Fällt dir eine Teilleistung ein, die ganz anders lief als erwartet? Welche?",
	"Über welche Veranstaltung aus deinem Hauptfach magst du berichten?",
}

// factPool holds the phase 3 questions probing the knowledge fields of the
// current Teilleistung.
var factPool = []string{
	"War die Prüfung schriftlich oder mündlich, und wie lief sie ab?",
	"Wie viele Wochen vor der Prüfung hast du mit der Vorbereitung angefangen?",
	"Wie viele Stunden pro Woche hast du in der heißen Phase ungefähr investiert?",
	"Wie schwierig fandest du die Teilleistung auf einer Skala von 1 bis 5?",
	"Welche Lernstrategie hat bei dir am besten funktioniert?",
	"Welche Materialien waren für die Vorbereitung am hilfreichsten, zum Beispiel Skript, Altklausuren oder Übungsblätter?",
	"Gab es typische Stolperfallen, die viele unterschätzen?",
	"Welchen Tipp würdest du jemandem geben, der diese Teilleistung im nächsten Semester schreibt?",
}

// wrapUpPool holds the phase 4 reflection questions that close a
// Teilleistung after enough fact rounds.
var wrapUpPool = []string{
	"Zum Abschluss des Themas: Was würdest du rückblickend anders machen?",
	"Wenn du der Teilleistung eine Schulnote geben müsstest, welche wäre das und warum?",
	"Was war für dich die wichtigste Erkenntnis aus dieser Prüfungsphase?",
	"Hat dich an dieser Teilleistung etwas positiv überrascht?",
}

// nextCoursePool holds the phase 4 handover questions that steer from a
// finished Teilleistung to the next one.
var nextCoursePool = []string{
	"Danke dir für die Einblicke! Gibt es eine weitere Teilleistung, über die du berichten magst?",
	"Magst du mir noch von einer anderen Prüfung erzählen, die du schon geschrieben hast?",
	"Welche Teilleistung aus deinem Studium sollten wir uns als Nächstes anschauen?",
}

func llmDisabledReply(reason *string) string {
	if reason == nil || strings.TrimSpace(*reason) == "" {
		return "Die Sprachauswertung ist zurzeit deaktiviert. Bitte setze die Sitzung zurück, um fortzufahren."
	}
	return fmt.Sprintf("Die Sprachauswertung ist zurzeit deaktiviert (%s). Bitte setze die Sitzung zurück, um fortzufahren.", *reason)
}

func combinedConfirmQuestion(title string) string {
	return fmt.Sprintf("Meintest du „%s\"? Und falls ja: Hast du die schriftliche Prüfung dazu schon geschrieben?", title)
}

// enterTLPrefix opens the first fact question of a confirmed Teilleistung.
// The trailing space separates it from the question that follows.
func enterTLPrefix(title string) string {
	return fmt.Sprintf("Lass uns über „%s\" sprechen. ", title)
}

func writtenReprompt(title string) string {
	return fmt.Sprintf("Kurze Rückfrage: Hast du die schriftliche Prüfung in „%s\" schon geschrieben? Ein einfaches Ja oder Nein reicht.", title)
}

func leastKnownSuggestion(title string) string {
	return fmt.Sprintf("Wie sieht es mit „%s\" aus? Hast du diese Teilleistung schon geschrieben?", title)
}

// candidateListQuestion renders the numbered disambiguation list. The lead
// sentence comes from the oracle's clarify question when it produced one.
func candidateListQuestion(lead string, candidates []session.CandidateRef) string {
	if strings.TrimSpace(lead) == "" {
		lead = "Da bin ich nicht ganz sicher. Welche dieser Teilleistungen meinst du?"
	}
	var b strings.Builder
	b.WriteString(lead)
	for _, c := range candidates {
		b.WriteString(fmt.Sprintf("\n%d. %s", c.Index, c.Title))
	}
	b.WriteString("\nAntworte einfach mit der Nummer.")
	return b.String()
}

// unaskedQuestions filters a pool down to the questions the session has
// not seen yet, preserving pool order.
func unaskedQuestions(pool []string, st *session.State) []string {
	out := make([]string, 0, len(pool))
	for _, q := range pool {
		if !st.HasAsked(q) {
			out = append(out, q)
		}
	}
	return out
}

// randomIndex picks a uniform index below n. crypto/rand never fails on
// the platforms we run on; a zero buffer degrades to index 0.
func randomIndex(n int) int {
	if n <= 1 {
		return 0
	}
	var b [8]byte
	_, _ = rand.Read(b[:])
	return int(binary.LittleEndian.Uint64(b[:]) % uint64(n))
}
