package catalog

import (
	"fmt"
	"os"
	"strings"
)

const turtleHeader = "@prefix ex: <http://example.org/wi-ontology#> .\n" +
	"@prefix schema: <http://schema.org/> .\n"

// turtleEscaper escapes literal strings for Turtle. Backslash must be
// listed first so escaped quotes keep a single backslash.
var turtleEscaper = strings.NewReplacer(
	`\`, `\\`,
	`"`, `\"`,
	"\n", `\n`,
	"\r", `\r`,
)

// buildTurtleBlock renders one append-only Turtle block for a save. The
// file is a log of effective saves, not a normalized graph; later blocks
// for the same subject refine earlier ones.
func buildTurtleBlock(courseID, cleanTitle, sessionID string, facts FactSet) string {
	var b strings.Builder
	subject := "ex:" + courseID

	fmt.Fprintf(&b, "%s schema:name %s ;\n", subject, turtleLiteral(cleanTitle))
	fmt.Fprintf(&b, "    ex:evidence %s", turtleLiteral("session:"+sessionID))

	writeProp := func(pred, obj string) {
		b.WriteString(" ;\n    ")
		b.WriteString(pred)
		b.WriteString(" ")
		b.WriteString(obj)
	}

	if facts.ExamType != nil {
		writeProp("ex:examType", turtleLiteral(*facts.ExamType))
	}
	if facts.Difficulty != nil {
		writeProp("ex:difficulty", fmt.Sprintf("%d", *facts.Difficulty))
	}
	if facts.PrepWeeks != nil {
		writeProp("ex:prepWeeks", formatFloat(*facts.PrepWeeks))
	}
	if facts.HoursPerWeek != nil {
		writeProp("ex:hoursPerWeek", formatFloat(*facts.HoursPerWeek))
	}
	for _, s := range facts.Strategies {
		writeProp("ex:strategy", turtleLiteral(s))
	}
	for _, m := range facts.Materials {
		writeProp("ex:material", turtleLiteral(m))
	}
	for _, p := range facts.Pitfalls {
		writeProp("ex:pitfall", turtleLiteral(p))
	}
	for _, t := range facts.Tips {
		writeProp("ex:tip", turtleLiteral(t))
	}

	b.WriteString(" .\n\n")
	return b.String()
}

func turtleLiteral(s string) string {
	return `"` + turtleEscaper.Replace(s) + `"`
}

// appendTurtle appends a block to the Turtle file, writing the prefix
// header first when the file does not exist yet.
func appendTurtle(path, block string) error {
	_, statErr := os.Stat(path)
	fresh := os.IsNotExist(statErr)

	f, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
	if err != nil {
		return fmt.Errorf("opening turtle file: %w", err)
	}

	if fresh {
		if _, err := f.WriteString(turtleHeader + "\n"); err != nil {
			f.Close()
			return fmt.Errorf("writing turtle header: %w", err)
		}
	}
	if _, err := f.WriteString(block); err != nil {
		f.Close()
		return fmt.Errorf("appending turtle block: %w", err)
	}
	return f.Close()
}
