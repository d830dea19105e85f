package catalog

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
)

// JSON-LD vocabulary for knowledge nodes.
const (
	ontologyPrefix = "http://example.org/wi-ontology#"
	schemaPrefix   = "http://schema.org/"
)

var jsonldContext = map[string]string{
	"ex":     ontologyPrefix,
	"schema": schemaPrefix,
}

// jsonldNode is one knowledge node of the global JSON-LD graph. Nodes are
// keyed by (@id, ex:evidence): one node per course and contributing session.
type jsonldNode map[string]any

// buildJSONLDNode renders a course's facts from one session as a JSON-LD
// node. Empty facts produce a node with only identity fields; callers skip
// writing in that case.
func buildJSONLDNode(courseID, cleanTitle, sessionID string, facts FactSet) jsonldNode {
	node := jsonldNode{
		"@context":    jsonldContext,
		"@id":         "ex:" + courseID,
		"schema:name": cleanTitle,
		"ex:evidence": "session:" + sessionID,
	}
	if facts.ExamType != nil {
		node["ex:examType"] = *facts.ExamType
	}
	if facts.Difficulty != nil {
		node["ex:difficulty"] = *facts.Difficulty
	}
	if facts.PrepWeeks != nil {
		node["ex:prepWeeks"] = *facts.PrepWeeks
	}
	if facts.HoursPerWeek != nil {
		node["ex:hoursPerWeek"] = *facts.HoursPerWeek
	}
	if len(facts.Strategies) > 0 {
		node["ex:strategy"] = facts.Strategies
	}
	if len(facts.Materials) > 0 {
		node["ex:material"] = facts.Materials
	}
	if len(facts.Pitfalls) > 0 {
		node["ex:pitfall"] = facts.Pitfalls
	}
	if len(facts.Tips) > 0 {
		node["ex:tip"] = facts.Tips
	}
	return node
}

// upsertJSONLD loads the global JSON-LD array, replaces the node matching
// the new node's (@id, ex:evidence) in place or appends it, and writes the
// file back atomically. A missing or malformed file starts a fresh graph.
func upsertJSONLD(path string, node jsonldNode) error {
	var graph []jsonldNode
	if data, err := os.ReadFile(path); err == nil {
		if err := json.Unmarshal(data, &graph); err != nil {
			graph = nil
		}
	}

	replaced := false
	for i, existing := range graph {
		if existing["@id"] == node["@id"] && existing["ex:evidence"] == node["ex:evidence"] {
			graph[i] = node
			replaced = true
			break
		}
	}
	if !replaced {
		graph = append(graph, node)
	}

	return writeJSONAtomic(path, graph)
}

// writeJSONAtomic marshals v with indentation and renames a temp file over
// path so readers never observe a partial write.
func writeJSONAtomic(path string, v any) error {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return fmt.Errorf("marshaling %s: %w", filepath.Base(path), err)
	}

	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("creating directory for %s: %w", filepath.Base(path), err)
	}
	tmp, err := os.CreateTemp(filepath.Dir(path), filepath.Base(path)+".tmp-*")
	if err != nil {
		return fmt.Errorf("creating temp file: %w", err)
	}
	tmpName := tmp.Name()
	defer os.Remove(tmpName)

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		return fmt.Errorf("writing %s: %w", filepath.Base(path), err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("closing temp file: %w", err)
	}
	if err := os.Rename(tmpName, path); err != nil {
		return fmt.Errorf("replacing %s: %w", filepath.Base(path), err)
	}
	return nil
}
