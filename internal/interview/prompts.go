package interview

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/modulwissen/interview-go/internal/catalog"
	"github.com/modulwissen/interview-go/internal/oracle"
	"github.com/modulwissen/interview-go/internal/session"
)

// Classifier op names, recorded in the oracle trace per call.
const (
	opIntroExtract    = "intro_extract"
	opPickQuestion    = "pick_phase_question"
	opDetectEntities  = "detect_entities"
	opControlIntent   = "control_intent"
	opWritten         = "written"
	opCombinedConfirm = "combined_title_written"
	opResolveTL       = "resolve_tl"
	opPickCandidate   = "pick_candidate_from_reply"
	opExtractFacts    = "extract_facts"
	opSummarize       = "summarize_transcript"
	opQAAnswer        = "qa_answer"
)

const interviewContext = "Du unterstützt ein Interview mit Studierenden des B.Sc. Wirtschaftsingenieurwesen über ihre Erfahrungen mit Teilleistungen (einzelnen Prüfungen) aus dem Modulhandbuch."

func introExtractMessages(text string) []oracle.Message {
	system := interviewContext + `
Die Studierenden wurden gefragt, in welchem Fachsemester sie sind und wie viel Prozent des Studiums sie geschafft haben.
Extrahiere aus der Antwort ein JSON-Objekt:
{"semester": Zahl oder null, "progress_percent": Zahl oder null, "area": Text oder null}
"area" nur setzen, wenn ein Hauptfach oder Schwerpunkt genannt wird (etwa BWL, VWL, Informatik, Operations Research, Ingenieurwissenschaften). Nichts erraten, fehlende Angaben bleiben null.`
	return []oracle.Message{
		{Role: oracle.RoleSystem, Content: system},
		{Role: oracle.RoleUser, Content: text},
	}
}

func pickQuestionMessages(phase string, unasked, asked []string, hint string) []oracle.Message {
	system := interviewContext + `
Wähle aus dem Fragenkatalog die Frage, die das Gespräch am natürlichsten fortsetzt. Du darfst die Frage behutsam umformulieren, aber keine neuen Themen erfinden.
Antworte mit einem JSON-Objekt: {"question": Text, "rationale": kurze Begründung}`

	var b strings.Builder
	fmt.Fprintf(&b, "Phase: %s\n\nVerfügbare Fragen:\n", phase)
	for i, q := range unasked {
		fmt.Fprintf(&b, "%d. %s\n", i+1, q)
	}
	if len(asked) > 0 {
		b.WriteString("\nBereits gestellt (nicht wiederholen):\n")
		for _, q := range asked {
			fmt.Fprintf(&b, "- %s\n", q)
		}
	}
	if strings.TrimSpace(hint) != "" {
		fmt.Fprintf(&b, "\nHinweis zur Prüfungsform laut Modulhandbuch: %s\n", hint)
	}
	return []oracle.Message{
		{Role: oracle.RoleSystem, Content: system},
		{Role: oracle.RoleUser, Content: b.String()},
	}
}

func detectEntitiesMessages(text, lastQuestion string, strictCurrent bool) []oracle.Message {
	system := interviewContext + `
Analysiere die Antwort und liefere ein JSON-Objekt:
{"found_area": Text oder "", "found_tl_text": Text oder "", "found_tl_list": [Texte], "mentions_thesis": bool, "thesis_topic": Text oder "", "temporal_hint": "past"|"future"|"mixed"|"unknown", "wrote_prob": Zahl 0..1 oder null, "wrote_hint": "high"|"medium"|"low"|null}
"found_tl_text" ist die wörtlich genannte Teilleistung bzw. Prüfung; bei mehreren Nennungen alle in "found_tl_list".
"temporal_hint" beschreibt, ob von bereits abgelegten (past) oder erst geplanten (future) Prüfungen die Rede ist.
"wrote_prob" schätzt, wie sicher die Person die genannte Prüfung schon geschrieben hat.`
	if strictCurrent {
		system += "\nZähle nur konkrete Nennungen aus genau dieser Antwort, keine Vermutungen aus dem Verlauf."
	}

	var b strings.Builder
	if strings.TrimSpace(lastQuestion) != "" {
		fmt.Fprintf(&b, "Letzte Frage des Interviews: %s\n\n", lastQuestion)
	}
	fmt.Fprintf(&b, "Antwort: %s", text)
	return []oracle.Message{
		{Role: oracle.RoleSystem, Content: system},
		{Role: oracle.RoleUser, Content: b.String()},
	}
}

func controlIntentMessages(text string) []oracle.Message {
	system := `Entscheide, ob die Person das Interview abbrechen möchte oder weiterreden will.
Antworte mit einem JSON-Objekt: {"intent": "abort" oder "continue"}
"abort" nur bei einem klaren Abbruchwunsch, nicht wenn das Wort beiläufig fällt (etwa "die Vorlesung wurde abgebrochen").`
	return []oracle.Message{
		{Role: oracle.RoleSystem, Content: system},
		{Role: oracle.RoleUser, Content: text},
	}
}

func writtenMessages(title, text string) []oracle.Message {
	system := `Die Person wurde gefragt, ob sie die schriftliche Prüfung einer Teilleistung schon geschrieben hat.
Antworte mit einem JSON-Objekt: {"wrote": true, false oder null}
null, wenn die Antwort keine klare Ja/Nein-Aussage enthält.`
	user := fmt.Sprintf("Teilleistung: %s\nAntwort: %s", title, text)
	return []oracle.Message{
		{Role: oracle.RoleSystem, Content: system},
		{Role: oracle.RoleUser, Content: user},
	}
}

func combinedConfirmMessages(title, text string) []oracle.Message {
	system := `Die Person wurde zweierlei gefragt: ob der genannte Titel die gemeinte Teilleistung ist, und ob sie die schriftliche Prüfung dazu schon geschrieben hat.
Antworte mit einem JSON-Objekt: {"title_match": "yes"|"no"|"unclear", "wrote": true, false oder null}
"yes" auch bei knappen Bestätigungen wie "genau" oder "ja die mein ich". "wrote" bleibt null, wenn dazu nichts gesagt wird.`
	user := fmt.Sprintf("Vorgeschlagener Titel: %s\nAntwort: %s", title, text)
	return []oracle.Message{
		{Role: oracle.RoleSystem, Content: system},
		{Role: oracle.RoleUser, Content: user},
	}
}

func resolveTLMessages(mention string, candidates []catalog.Candidate) []oracle.Message {
	system := interviewContext + `
Ordne die frei formulierte Nennung einer Teilleistung aus dem Modulhandbuch zu.
Antworte mit einem JSON-Objekt:
{"match_id": Text oder "", "match_title": Text oder "", "confidence": Zahl 0..1, "need_clarify": bool, "clarify_question": Text oder ""}
Wähle nur aus den gelisteten Kandidaten. Bei Unsicherheit confidence niedrig halten und need_clarify setzen.`

	var b strings.Builder
	fmt.Fprintf(&b, "Nennung: %s\n\nKandidaten:\n", mention)
	for i, c := range candidates {
		fmt.Fprintf(&b, "%d. %s (%s, Ähnlichkeit %.2f)\n", i+1, c.Course.CleanTitle(), c.Course.ID, c.Score)
	}
	return []oracle.Message{
		{Role: oracle.RoleSystem, Content: system},
		{Role: oracle.RoleUser, Content: b.String()},
	}
}

func pickCandidateMessages(reply string, candidates []session.CandidateRef) []oracle.Message {
	system := `Der Person wurde eine nummerierte Liste von Teilleistungen vorgelegt. Interpretiere ihre Antwort.
Antworte mit einem JSON-Objekt: {"decision": "pick"|"none"|"free", "idx": Zahl oder 0, "title": Text oder ""}
"pick" mit "idx", wenn ein Listeneintrag gewählt wurde (auch umschrieben wie "die zweite").
"free" mit "title", wenn stattdessen eine andere Teilleistung genannt wird.
"none", wenn keiner der Einträge passt oder die Antwort ausweicht.`

	var b strings.Builder
	b.WriteString("Liste:\n")
	for _, c := range candidates {
		fmt.Fprintf(&b, "%d. %s\n", c.Index, c.Title)
	}
	fmt.Fprintf(&b, "\nAntwort: %s", reply)
	return []oracle.Message{
		{Role: oracle.RoleSystem, Content: system},
		{Role: oracle.RoleUser, Content: b.String()},
	}
}

func extractFactsMessages(title, lastQuestion, text string, prev catalog.FactSet) []oracle.Message {
	system := `Extrahiere Erfahrungswissen über eine Teilleistung aus der Antwort von Studierenden.
Antworte mit einem JSON-Objekt mit genau diesen Feldern:
{"exam_type": "schriftlich"|"mündlich"|null, "prep_weeks": Zahl oder null, "hours_per_week": Zahl oder null, "difficulty_1_5": Zahl 1..5 oder null, "strategies": [Texte], "materials": [Texte], "pitfalls": [Texte], "tips": [Texte]}
Nimm nur Angaben auf, die in der Antwort stehen oder klar daraus folgen. Bereits Bekanntes nicht wiederholen, nur Neues oder Korrigiertes. Listen kurz und stichwortartig halten.`

	prevJSON, err := json.Marshal(prev)
	if err != nil {
		prevJSON = []byte("{}")
	}
	var b strings.Builder
	fmt.Fprintf(&b, "Teilleistung: %s\n", title)
	fmt.Fprintf(&b, "Bereits bekannt: %s\n", prevJSON)
	if strings.TrimSpace(lastQuestion) != "" {
		fmt.Fprintf(&b, "Gestellte Frage: %s\n", lastQuestion)
	}
	fmt.Fprintf(&b, "Antwort: %s", text)
	return []oracle.Message{
		{Role: oracle.RoleSystem, Content: system},
		{Role: oracle.RoleUser, Content: b.String()},
	}
}

func summarizeMessages(turns []session.Turn) []oracle.Message {
	system := `Fasse das folgende Interview in 3 bis 6 deutschen Sätzen zusammen.
Nenne die besprochenen Teilleistungen und die wichtigsten Erfahrungen. Keine Aufzählungszeichen, keine Bewertung, nur der Inhalt.`

	var b strings.Builder
	for _, t := range turns {
		role := "Studi"
		if t.Role == session.RoleAssistant {
			role = "Interview"
		}
		fmt.Fprintf(&b, "%s: %s\n", role, t.Content)
	}
	return []oracle.Message{
		{Role: oracle.RoleSystem, Content: system},
		{Role: oracle.RoleUser, Content: b.String()},
	}
}
