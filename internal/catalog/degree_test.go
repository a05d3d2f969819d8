package catalog

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestDegreeType(t *testing.T) {
	cases := []struct {
		name     string
		expected string
	}{
		{"Computer Science - BS", "BS"},
		{"computer-science-bs-devices", "BS"},
		{"Physics, Ph.D.", "PhD"},
		{"Business Administration - B.S.", "BS"},
		{"Economics - Minor", "Minor"},
		{"Master of Business Administration - MBA", "MBA"},
		{"Certificate in Film Studies", "Certificate"},
		{"Bachelor of Science in Mathematics", "BS"},
		{"Undeclared", ""},
	}
	for _, test := range cases {
		require.Equal(t, test.expected, DegreeType(test.name), test.name)
	}
}
