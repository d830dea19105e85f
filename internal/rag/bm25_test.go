package rag

import (
	"testing"

	"github.com/modulwissen/interview-go/internal/catalog"
	"github.com/modulwissen/interview-go/internal/logger"
)

func bm25TestCourses() []*catalog.Course {
	return []*catalog.Course{
		{
			ID:               "T-MATH-102853",
			Title:            "Statistik I [T-MATH-102853]",
			Page:             42,
			Text:             "Deskriptive Statistik, Wahrscheinlichkeitsrechnung und Verteilungen. Schätzer und Konfidenzintervalle für wirtschaftswissenschaftliche Fragestellungen.",
			Erfolgskontrolle: "Schriftliche Prüfung im Umfang von 120 Minuten.",
		},
		{
			ID:               "T-WIWI-102816",
			Title:            "Programmieren I: Java [T-WIWI-102816]",
			Page:             77,
			Text:             "Objektorientierte Programmierung mit Java. Klassen, Vererbung, Interfaces und grundlegende Algorithmen und Datenstrukturen.",
			Erfolgskontrolle: "Praktische Prüfung am Rechner mit Programmieraufgaben.",
		},
		{
			ID:               "T-MACH-105296",
			Title:            "Technische Mechanik [T-MACH-105296]",
			Page:             103,
			Text:             "Statik starrer Körper, Kinematik und Dynamik. Kräftegleichgewichte und Bewegungsgleichungen.",
			Erfolgskontrolle: "Schriftliche Klausur über den gesamten Stoff.",
		},
	}
}

func TestNewBM25Index(t *testing.T) {
	log := logger.New("debug")
	idx := NewBM25Index(log)

	if idx == nil {
		t.Fatal("NewBM25Index() returned nil")
	}

	if idx.IsEnabled() {
		t.Error("NewBM25Index() should not be enabled before initialization")
	}
}

func TestBM25Index_Initialize(t *testing.T) {
	log := logger.New("debug")
	idx := NewBM25Index(log)

	if err := idx.Initialize(bm25TestCourses()); err != nil {
		t.Fatalf("Initialize() error = %v", err)
	}

	if !idx.IsEnabled() {
		t.Error("IsEnabled() should be true after initialization")
	}

	// Each course contributes a text chunk and a pruefung chunk.
	if got := idx.Count(); got != 6 {
		t.Errorf("Count() = %d, want 6", got)
	}
}

func TestBM25Index_Search(t *testing.T) {
	t.Parallel()

	courses := bm25TestCourses()

	tests := []struct {
		name        string
		query       string
		wantUIDs    []string // Expected UIDs in results (order doesn't matter)
		wantTopUID  string   // Expected top result UID
		wantResults bool     // Whether we expect any results
	}{
		{
			name:        "Search Statistik keyword",
			query:       "Statistik",
			wantUIDs:    []string{"T-MATH-102853"},
			wantTopUID:  "T-MATH-102853",
			wantResults: true,
		},
		{
			name:        "Search statistik lowercase",
			query:       "statistik",
			wantUIDs:    []string{"T-MATH-102853"},
			wantTopUID:  "T-MATH-102853",
			wantResults: true,
		},
		{
			name:        "Search with umlaut",
			query:       "Prüfung",
			wantUIDs:    []string{"T-MATH-102853", "T-WIWI-102816"},
			wantTopUID:  "", // both Erfolgskontrolle chunks mention it
			wantResults: true,
		},
		{
			name:        "Search folded umlaut spelling",
			query:       "Pruefung",
			wantUIDs:    []string{"T-MATH-102853", "T-WIWI-102816"},
			wantTopUID:  "",
			wantResults: true,
		},
		{
			name:        "Search Java inheritance",
			query:       "Java Vererbung",
			wantUIDs:    []string{"T-WIWI-102816"},
			wantTopUID:  "T-WIWI-102816",
			wantResults: true,
		},
		{
			name:        "Search Klausur keyword",
			query:       "Klausur",
			wantUIDs:    []string{"T-MACH-105296"},
			wantTopUID:  "T-MACH-105296",
			wantResults: true,
		},
		{
			name:        "Search Dynamik keyword",
			query:       "Dynamik",
			wantUIDs:    []string{"T-MACH-105296"},
			wantTopUID:  "T-MACH-105296",
			wantResults: true,
		},
		{
			name:        "Search unknown topic",
			query:       "Quantenphysik",
			wantResults: false,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			log := logger.New("debug")
			idx := NewBM25Index(log)
			if err := idx.Initialize(courses); err != nil {
				t.Fatalf("Initialize() error = %v", err)
			}

			results, err := idx.Search(tt.query, 10)
			if err != nil {
				t.Fatalf("Search() error = %v", err)
			}

			if tt.wantResults && len(results) == 0 {
				t.Fatalf("Search(%q) returned no results, expected results", tt.query)
			}

			if !tt.wantResults && len(results) > 0 {
				t.Fatalf("Search(%q) returned %d results, expected none", tt.query, len(results))
			}

			if !tt.wantResults {
				return
			}

			if tt.wantTopUID != "" && results[0].UID != tt.wantTopUID {
				t.Errorf("Search(%q) top result = %s, want %s", tt.query, results[0].UID, tt.wantTopUID)
			}

			resultUIDs := make(map[string]bool)
			for _, r := range results {
				resultUIDs[r.UID] = true
			}

			for _, uid := range tt.wantUIDs {
				if !resultUIDs[uid] {
					t.Errorf("Search(%q) missing expected UID %s", tt.query, uid)
				}
			}
		})
	}
}

func TestBM25Index_SearchDeduplicatesChunks(t *testing.T) {
	t.Parallel()
	log := logger.New("debug")
	idx := NewBM25Index(log)

	if err := idx.Initialize(bm25TestCourses()); err != nil {
		t.Fatalf("Initialize() error = %v", err)
	}

	// "Statistik" appears in both chunks of the course through the title
	// prefix, the dedup keeps only the best one.
	results, err := idx.Search("Statistik", 10)
	if err != nil {
		t.Fatalf("Search() error = %v", err)
	}

	if len(results) != 1 {
		t.Fatalf("Search() returned %d results, want 1 after deduplication", len(results))
	}
	if results[0].UID != "T-MATH-102853" {
		t.Errorf("Search() UID = %s, want T-MATH-102853", results[0].UID)
	}
	if results[0].Title != "Statistik I" {
		t.Errorf("Search() Title = %q, want %q", results[0].Title, "Statistik I")
	}
	if results[0].Page != 42 {
		t.Errorf("Search() Page = %d, want 42", results[0].Page)
	}
	if results[0].Rank != 1 {
		t.Errorf("Search() Rank = %d, want 1", results[0].Rank)
	}
	if results[0].Content == "" {
		t.Error("Search() Content should carry the matched chunk")
	}
}

func TestBM25Index_SearchTopN(t *testing.T) {
	t.Parallel()
	log := logger.New("debug")
	idx := NewBM25Index(log)

	if err := idx.Initialize(bm25TestCourses()); err != nil {
		t.Fatalf("Initialize() error = %v", err)
	}

	results, err := idx.Search("Prüfung", 1)
	if err != nil {
		t.Fatalf("Search() error = %v", err)
	}

	if len(results) != 1 {
		t.Errorf("Search() with topN=1 returned %d results, want 1", len(results))
	}
}

func TestBM25Index_SearchEmpty(t *testing.T) {
	t.Parallel()
	log := logger.New("debug")
	idx := NewBM25Index(log)

	if err := idx.Initialize(nil); err != nil {
		t.Fatalf("Initialize() error = %v", err)
	}

	results, err := idx.Search("test", 10)
	if err != nil {
		t.Fatalf("Search() error = %v", err)
	}

	if len(results) != 0 {
		t.Errorf("Search() on empty index returned %d results, want 0", len(results))
	}

	if idx.IsEnabled() {
		t.Error("IsEnabled() should be false with an empty corpus")
	}
}

func TestBM25Index_SearchEmptyQuery(t *testing.T) {
	t.Parallel()
	log := logger.New("debug")
	idx := NewBM25Index(log)

	if err := idx.Initialize(bm25TestCourses()); err != nil {
		t.Fatalf("Initialize() error = %v", err)
	}

	for _, query := range []string{"", "   ", "\n\t"} {
		results, err := idx.Search(query, 10)
		if err != nil {
			t.Fatalf("Search(%q) error = %v", query, err)
		}
		if len(results) != 0 {
			t.Errorf("Search(%q) returned %d results, want 0", query, len(results))
		}
	}
}

func TestBM25Index_SearchBeforeInitialize(t *testing.T) {
	t.Parallel()
	log := logger.New("debug")
	idx := NewBM25Index(log)

	results, err := idx.Search("Statistik", 10)
	if err != nil {
		t.Fatalf("Search() error = %v", err)
	}
	if results != nil {
		t.Errorf("Search() before Initialize returned %v, want nil", results)
	}
}

func TestBM25Index_RebuildPicksUpKnowledge(t *testing.T) {
	t.Parallel()
	log := logger.New("debug")
	idx := NewBM25Index(log)

	courses := bm25TestCourses()
	if err := idx.Initialize(courses); err != nil {
		t.Fatalf("Initialize() error = %v", err)
	}

	results, err := idx.Search("Altklausuren", 10)
	if err != nil {
		t.Fatalf("Search() error = %v", err)
	}
	if len(results) != 0 {
		t.Fatalf("Search() before knowledge save returned %d results, want 0", len(results))
	}

	courses[0].NewKnowledge = []catalog.KnowledgeEntry{
		{
			SessionID: "sess-1",
			Facts:     catalog.FactSet{Tips: []string{"Altklausuren rechnen"}},
		},
	}

	if err := idx.Rebuild(courses); err != nil {
		t.Fatalf("Rebuild() error = %v", err)
	}

	// 6 catalog chunks plus the new wissen chunk.
	if got := idx.Count(); got != 7 {
		t.Errorf("Count() after Rebuild = %d, want 7", got)
	}

	results, err = idx.Search("Altklausuren", 10)
	if err != nil {
		t.Fatalf("Search() error = %v", err)
	}
	if len(results) != 1 || results[0].UID != "T-MATH-102853" {
		t.Fatalf("Search() after Rebuild = %+v, want the course with the new tip", results)
	}
}

func TestBM25Index_NilReceiver(t *testing.T) {
	t.Parallel()
	var idx *BM25Index

	if err := idx.Initialize(nil); err != nil {
		t.Errorf("Initialize() on nil index error = %v", err)
	}
	results, err := idx.Search("test", 10)
	if err != nil || results != nil {
		t.Errorf("Search() on nil index = (%v, %v), want (nil, nil)", results, err)
	}
	if idx.IsEnabled() {
		t.Error("IsEnabled() on nil index should be false")
	}
	if idx.Count() != 0 {
		t.Errorf("Count() on nil index = %d, want 0", idx.Count())
	}
}

func TestTokenizeGerman(t *testing.T) {
	t.Parallel()

	tests := []struct {
		input string
		want  []string
	}{
		{"Schriftliche Prüfung", []string{"schriftliche", "pruefung"}},
		{"Größenordnung", []string{"groessenordnung"}},
		{"Java-Programmierung 2024", []string{"java", "programmierung", "2024"}},
		{"   ", nil},
	}

	for _, tt := range tests {
		got := tokenizeGerman(tt.input)
		if len(got) != len(tt.want) {
			t.Errorf("tokenizeGerman(%q) = %v, want %v", tt.input, got, tt.want)
			continue
		}
		for i := range got {
			if got[i] != tt.want[i] {
				t.Errorf("tokenizeGerman(%q)[%d] = %q, want %q", tt.input, i, got[i], tt.want[i])
			}
		}
	}
}
