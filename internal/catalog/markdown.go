package catalog

import (
	"strconv"
	"strings"
)

// NoKnowledgePlaceholder is rendered for courses without any stored facts.
const NoKnowledgePlaceholder = "Zu dieser Teilleistung liegen noch keine Erfahrungswerte vor."

// difficultyLabels maps the 1..5 difficulty scale to its German wording.
var difficultyLabels = map[int]string{
	1: "sehr leicht",
	2: "leicht",
	3: "mittel",
	4: "anspruchsvoll",
	5: "sehr anspruchsvoll",
}

// DifficultyLabel returns the German label for a 1..5 difficulty value.
func DifficultyLabel(d int) string {
	return difficultyLabels[d]
}

// JoinGerman joins items as natural German enumeration: "A", "A und B",
// "A, B und C".
func JoinGerman(items []string) string {
	switch len(items) {
	case 0:
		return ""
	case 1:
		return items[0]
	}
	return strings.Join(items[:len(items)-1], ", ") + " und " + items[len(items)-1]
}

// RenderMarkdown produces the German experience summary of a course for
// the evaluation view and the QA context.
func RenderMarkdown(c *Course) string {
	var b strings.Builder
	b.WriteString("### ")
	b.WriteString(c.CleanTitle())
	if c.ID != "" {
		b.WriteString(" (")
		b.WriteString(c.ID)
		b.WriteString(")")
	}
	b.WriteString("\n\n")

	facts := c.MergedFacts()
	if facts.IsEmpty() {
		b.WriteString(NoKnowledgePlaceholder)
		b.WriteString("\n")
		return b.String()
	}

	var sentences []string
	if facts.ExamType != nil {
		sentences = append(sentences, "Die Prüfung ist "+*facts.ExamType+".")
	}
	if facts.PrepWeeks != nil {
		sentences = append(sentences, "Die Vorbereitung dauert etwa "+formatFloat(*facts.PrepWeeks)+" Wochen.")
	}
	if facts.HoursPerWeek != nil {
		sentences = append(sentences, "Der Aufwand liegt bei etwa "+formatFloat(*facts.HoursPerWeek)+" Stunden pro Woche.")
	}
	if facts.Difficulty != nil {
		d := *facts.Difficulty
		sentences = append(sentences, "Schwierigkeitsgrad: "+strconv.Itoa(d)+"/5 ("+difficultyLabels[d]+").")
	}
	if len(facts.Strategies) > 0 {
		sentences = append(sentences, "Bewährte Lernstrategien: "+JoinGerman(facts.Strategies)+".")
	}
	if len(facts.Materials) > 0 {
		sentences = append(sentences, "Hilfreiche Materialien: "+JoinGerman(facts.Materials)+".")
	}
	if len(facts.Pitfalls) > 0 {
		sentences = append(sentences, "Typische Stolperfallen: "+JoinGerman(facts.Pitfalls)+".")
	}
	if len(facts.Tips) > 0 {
		sentences = append(sentences, "Weitere Tipps: "+JoinGerman(facts.Tips)+".")
	}

	// Single paragraph, not a bullet list: the block is embedded into the
	// evaluation view as running text.
	b.WriteString(strings.Join(sentences, " "))
	b.WriteString("\n")
	return b.String()
}

func formatFloat(v float64) string {
	return strconv.FormatFloat(v, 'f', -1, 64)
}
