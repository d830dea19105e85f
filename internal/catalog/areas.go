package catalog

import "strings"

// Area is one Bereich/Hauptfach of the degree program with the aliases
// students use for it.
type Area struct {
	Name    string
	Aliases []string
}

// areas lists the canonical Hauptfächer of the B.Sc. Wirtschaftsingenieurwesen
// in curriculum order. Detection walks the list front to back, so earlier
// areas win when aliases overlap.
var areas = []Area{
	{
		Name: "Betriebswirtschaftslehre",
		Aliases: []string{
			"betriebswirtschaftslehre", "bwl", "management", "marketing",
			"controlling", "finanzierung", "finance", "rechnungswesen",
			"produktion", "wirtschaftsinformatik", "logistik", "hr",
			"strategie", "organisation",
		},
	},
	{
		Name: "Volkswirtschaftslehre",
		Aliases: []string{
			"volkswirtschaftslehre", "vwl", "ökonomie", "economics",
			"wirtschaftspolitik", "makroökonomie", "mikroökonomie",
		},
	},
	{
		Name: "Informatik",
		Aliases: []string{
			"informatik", "computer science", "programmierung", "software",
			"java", "ki", "künstliche intelligenz", "ai", "security",
			"datenbanken", "internet computing",
		},
	},
	{
		Name: "Operations Research",
		Aliases: []string{
			"operations research", "or", "optimierung", "supply chain",
			"netzwerke", "nichtlineare optimierung",
		},
	},
	{
		Name: "Ingenieurwissenschaften",
		Aliases: []string{
			"ingenieurwissenschaften", "ingenieurwesen", "ing", "maschinenbau",
			"mechatronik", "elektrotechnik", "fahrzeug", "werkstoff",
			"produktionstechnik", "mikrosystemtechnik", "bahnsystemtechnik",
		},
	},
	{
		Name: "Mathematik",
		Aliases: []string{
			"mathematik", "mathe", "analysis", "lineare algebra",
			"differentialgleichungen",
		},
	},
	{
		Name: "Statistik",
		Aliases: []string{
			"statistik", "ökonometrie", "wahrscheinlichkeit", "regression",
		},
	},
	{
		Name: "Wahlpflichtbereich",
		Aliases: []string{
			"wahlpflichtbereich", "wahlpflicht", "seminar", "teamprojekt",
			"recht", "soziologie",
		},
	},
}

// CanonicalAreas returns the Hauptfach names in curriculum order.
func CanonicalAreas() []string {
	names := make([]string, len(areas))
	for i, a := range areas {
		names[i] = a.Name
	}
	return names
}

// DetectArea maps free-form student text to a canonical Hauptfach, or ""
// when no alias occurs. Matching runs on normalized text with padded
// containment; regex word boundaries mishandle umlaut-initial aliases.
func DetectArea(text string) string {
	padded := " " + Normalize(text) + " "
	for _, a := range areas {
		for _, alias := range a.Aliases {
			if strings.Contains(padded, " "+Normalize(alias)+" ") {
				return a.Name
			}
		}
	}
	return ""
}
