package detector

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"strings"
	"testing"
	"time"

	"catalog-ingest/internal/catalog"
	"catalog-ingest/internal/components/telemetry"
	"catalog-ingest/internal/renderer"

	"github.com/stretchr/testify/require"
)

const programUrl = "https://catalog.gatech.edu/programs/computer-science-bs/"

func curriculum(codes ...string) string {
	var sb strings.Builder
	sb.WriteString("<h3>Core Requirements</h3><table>")
	for _, c := range codes {
		fmt.Fprintf(&sb, "<tr><td>%s</td><td>3</td></tr>", c)
	}
	sb.WriteString("</table>")
	return sb.String()
}

var validCurriculum = curriculum("CS 1301", "CS 1331", "CS 1332", "MATH 1551", "MATH 1552", "PHYS 2211")

const threadsIntro = `<p>The Bachelor of Science degree at Georgia Tech is organized into threads,
each course of a thread is listed on the thread page.</p>`

func newDetector(r renderer.Renderer, opts Options) Detector {
	return NewDetector(r, opts, telemetry.NewRecorder())
}

func TestThreadSubLinks(t *testing.T) {
	fake := renderer.NewFake()
	fake.Pages[programUrl] = `<html><body>
		<div id="threadstextcontainer">` + threadsIntro + `
			<a href="/programs/computer-science-bs-devices/">Computer Science - Devices</a>
			<a href="/programs/computer-science-bs-intelligence/#requirementstext">Computer Science - Intelligence</a>
			<a href="https://catalog.gatech.edu/programs/computer-science-bs-theory/">Computer Science - Theory</a>
			<a href="/programs/computer-science-bs-devices/">duplicate</a>
			<a href="/programs/mathematics-bs/">Mathematics</a>
			<a href="https://other.edu/programs/computer-science-bs-x/">Elsewhere</a>
		</div>
	</body></html>`
	fake.Pages["https://catalog.gatech.edu/programs/computer-science-bs-devices/"] = validCurriculum
	fake.Pages["https://catalog.gatech.edu/programs/computer-science-bs-theory/"] = validCurriculum
	fake.Errors["https://catalog.gatech.edu/programs/computer-science-bs-intelligence/"] = context.DeadlineExceeded

	result := newDetector(fake, Options{}).Detect(context.Background(), programUrl)
	require.True(t, result.Success)
	require.NoError(t, result.Err)
	require.Equal(t, PATTERN_THREAD_SECTION, result.Pattern)
	require.Equal(t, []string{"Devices", "Intelligence", "Theory"}, result.SubLinkOrder)
	require.Len(t, result.SubLinks, 3)

	require.NoError(t, result.SubLinks["Devices"].Err)
	require.True(t, result.SubLinks["Devices"].Validation.IsValid)
	require.True(t, result.SubLinks["Theory"].Validation.IsValid)

	failed := result.SubLinks["Intelligence"]
	require.ErrorIs(t, failed.Err, context.DeadlineExceeded)
	require.Nil(t, failed.Validation)
	require.Equal(t, "https://catalog.gatech.edu/programs/computer-science-bs-intelligence/", failed.Url)

	require.Equal(t, []catalog.NavigationStep{
		{Url: programUrl + "#threadstext", Type: PATTERN_THREAD_SECTION},
		{Url: "https://catalog.gatech.edu/programs/computer-science-bs-devices/", Type: STEP_SUB_LINK},
		{Url: "https://catalog.gatech.edu/programs/computer-science-bs-intelligence/", Type: STEP_SUB_LINK},
		{Url: "https://catalog.gatech.edu/programs/computer-science-bs-theory/", Type: STEP_SUB_LINK},
	}, result.NavigationPath)
}

func TestRequirementsSection(t *testing.T) {
	fake := renderer.NewFake()
	fake.Pages[programUrl] = `<html><body>
		<div id="overviewtextcontainer"><p>Overview</p></div>
		<div id="requirementstextcontainer">` + validCurriculum + `</div>
	</body></html>`

	result := newDetector(fake, Options{}).Detect(context.Background(), programUrl)
	require.True(t, result.Success)
	require.Equal(t, PATTERN_REQUIREMENTS_SECTION, result.Pattern)
	require.Len(t, result.NavigationPath, 3)
	require.Contains(t, result.Content, "requirementstextcontainer")
	require.NotContains(t, result.Content, "Overview")
	require.Nil(t, result.SubLinks)
	require.Equal(t, 6, result.Validation.CourseCount)

	// the page is only fetched once, anchors never reach the server
	require.Len(t, fake.Fetched(), 1)
}

func TestDirectPattern(t *testing.T) {
	fake := renderer.NewFake()
	fake.Pages[programUrl] = "<html><body>" + validCurriculum + "</body></html>"

	result := newDetector(fake, Options{}).Detect(context.Background(), programUrl)
	require.True(t, result.Success)
	require.Equal(t, PATTERN_DIRECT, result.Pattern)
	require.Len(t, result.NavigationPath, 4)
}

func TestAllPatternsFail(t *testing.T) {
	fake := renderer.NewFake()
	fake.Pages[programUrl] = "<html><body><p>Page not found</p></body></html>"

	result := newDetector(fake, Options{}).Detect(context.Background(), programUrl)
	require.False(t, result.Success)
	require.ErrorIs(t, result.Err, ErrNoValidContent)
	require.Len(t, result.NavigationPath, 4)
	require.Equal(t, PATTERN_DIRECT, result.NavigationPath[3].Type)
	require.Equal(t, programUrl, result.NavigationPath[3].Url)
}

type blockingRenderer struct {
	calls int
}

func (b *blockingRenderer) Fetch(ctx context.Context, link string) (string, error) {
	b.calls++
	<-ctx.Done()
	return "", ctx.Err()
}

func TestPageTimeout(t *testing.T) {
	r := &blockingRenderer{}
	result := newDetector(r, Options{PageTimeout: time.Millisecond * 10}).
		Detect(context.Background(), programUrl)

	require.False(t, result.Success)
	// every pattern targets the same document, the timeout is only paid once
	require.Equal(t, 1, r.calls)
	require.Len(t, result.NavigationPath, 4)
	require.ErrorIs(t, result.Err, ErrNoValidContent)
	require.ErrorIs(t, result.Err, context.DeadlineExceeded)
}

func TestProbeFallback(t *testing.T) {
	base := "https://catalog.gatech.edu/programs/business-administration-bs/"

	fake := renderer.NewFake()
	fake.Pages[base] = `<html><body>
		<div id="concentrationstextcontainer">
			<p>The Bachelor of Science in Business Administration at Georgia Tech offers
			concentrations, see each concentration for its courses.</p>
		</div>
	</body></html>`
	fake.Pages["https://catalog.gatech.edu/programs/business-administration-bs-general/"] = validCurriculum
	fake.Pages["https://catalog.gatech.edu/programs/business-administration-bs-management/"] = "<p>Page not found</p>"

	result := newDetector(fake, Options{ProbeSuffixes: []string{"general", "management", "finance"}}).
		Detect(context.Background(), base)

	require.True(t, result.Success)
	require.Equal(t, PATTERN_CONCENTRATION_SECTION, result.Pattern)
	require.Equal(t, []string{"General"}, result.SubLinkOrder)
	require.True(t, result.SubLinks["General"].Validation.IsValid)

	var probes int
	for _, step := range result.NavigationPath {
		if step.Type == STEP_PROBE {
			probes++
		}
	}
	require.Equal(t, 3, probes)
}

func TestConcentrationName(t *testing.T) {
	cases := []struct {
		text     string
		linkSlug string
		expected string
	}{
		{text: "Business Administration - Finance", linkSlug: "business-administration-bs-finance", expected: "Finance"},
		{text: "Concentration in Marketing", linkSlug: "business-administration-bs-marketing", expected: "Marketing"},
		{text: "", linkSlug: "business-administration-bs-information-technology-management", expected: "Information Technology Management"},
		{text: "  ", linkSlug: "business-administration-bs-general", expected: "General"},
	}
	for _, test := range cases {
		require.Equal(t, test.expected, ConcentrationName(test.text, "business-administration-bs", test.linkSlug))
	}
}

func TestExtractSubLinksRequiresSlugPrefix(t *testing.T) {
	base, err := url.Parse("https://catalog.gatech.edu/programs/physics-bs/")
	require.NoError(t, err)

	links := ExtractSubLinks(context.Background(), base, `
		<a href="/programs/physics-bs-astrophysics/">Physics - Astrophysics</a>
		<a href="/programs/physics-bs/">self</a>
		<a href="/programs/physics-ms/">Physics - MS</a>
		<a href="/courses/physics-bs-x/">wrong directory</a>`)
	require.Equal(t, []SubLink{{Name: "Astrophysics", Url: "https://catalog.gatech.edu/programs/physics-bs-astrophysics/"}}, links)
}

func TestDetectInvalidUrl(t *testing.T) {
	result := newDetector(renderer.NewFake(), Options{}).Detect(context.Background(), "://bad")
	require.False(t, result.Success)
	require.True(t, result.Err != nil && !errors.Is(result.Err, ErrNoValidContent))
}
