package catalog

import (
	"regexp"
	"strings"
)

var degreeTokenRegex = regexp.MustCompile(`[a-z]+`)

var degreeTypes = map[string]string{
	"bs":          "BS",
	"bsa":         "BS",
	"ba":          "BA",
	"ms":          "MS",
	"ma":          "MA",
	"mba":         "MBA",
	"msa":         "MS",
	"phd":         "PhD",
	"minor":       "Minor",
	"certificate": "Certificate",
	"cert":        "Certificate",
}

// DegreeType infers the degree type from the trailing degree marker of a program
// name or url slug ("Computer Science - BS", "physics-phd"), it returns an empty
// string when there is none.
func DegreeType(name string) string {
	lowered := strings.ReplaceAll(strings.ToLower(name), ".", "")
	switch {
	case strings.Contains(lowered, "bachelor of science"):
		return "BS"
	case strings.Contains(lowered, "bachelor of arts"):
		return "BA"
	case strings.Contains(lowered, "doctor of philosophy"):
		return "PhD"
	}

	tokens := degreeTokenRegex.FindAllString(lowered, -1)
	for i := len(tokens) - 1; i >= 0; i-- {
		if t, ok := degreeTypes[tokens[i]]; ok {
			return t
		}
	}
	return ""
}
