package catalog

import (
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/google/go-cmp/cmp/cmpopts"
	"github.com/stretchr/testify/require"
)

func TestExtractCourseCodes(t *testing.T) {
	cases := []struct {
		text     string
		expected []string
	}{
		{
			text:     "CS 1301, CS1331 and CS 1301 again; PHYS 2211L lab",
			expected: []string{"CS 1301", "CS 1331", "PHYS 2211L"},
		},
		{
			text:     "See HTTP 2000 and the API 1234 docs, FALL 2024 schedule",
			expected: []string{},
		},
		{
			text:     "MATH 1551\nMATH 1552 or MATH 1712",
			expected: []string{"MATH 1551", "MATH 1552", "MATH 1712"},
		},
		{
			text:     "cs 1301 is lowercase, ABCDE 1234 has too many letters, CS 123 too few digits",
			expected: []string{},
		},
	}

	for _, test := range cases {
		diff := cmp.Diff(test.expected, ExtractCourseCodes(test.text))
		if diff != "" {
			t.Fatal(test.text, diff)
		}
	}
}

func TestExtractCourseCodesIdempotent(t *testing.T) {
	text := "ECE 2020 CS 2110 MATH 2550 CS 2110 ISYE 3770 ECE 2020"
	first := ExtractCourseCodes(text)
	second := ExtractCourseCodes(text)
	require.Equal(t, first, second)

	// reordering the input must not change the set of codes
	reordered := ExtractCourseCodes("ISYE 3770 MATH 2550 CS 2110 ECE 2020")
	diff := cmp.Diff(first, reordered, cmpopts.SortSlices(func(a, b string) bool { return a < b }))
	require.Empty(t, diff)
}

func TestNormalizeCourseCode(t *testing.T) {
	code, ok := NormalizeCourseCode(" cs1331 ")
	require.True(t, ok)
	require.Equal(t, "CS 1331", code)

	_, ok = NormalizeCourseCode("not a course")
	require.False(t, ok)

	require.Equal(t, "MATH", CoursePrefix("MATH 1551"))
}

func TestProgramSlug(t *testing.T) {
	p := Program{Url: "https://catalog.gatech.edu/programs/computer-science-bs/"}
	require.Equal(t, "computer-science-bs", p.Slug())
}
