package detector

import (
	"context"
	"fmt"
	"net/url"
	"strings"

	"catalog-ingest/internal/catalog"
	"catalog-ingest/internal/catalog/validator"
	"catalog-ingest/lib/htmlutil"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"
)

// SubLink is a link to a sibling page holding one concentration of a program.
type SubLink struct {
	Name string
	Url  string
}

var titleCase = cases.Title(language.English)

var namePrefixes = []string{"concentration in ", "concentration: ", "thread in ", "thread: ", "track in ", "option in "}

// ConcentrationName derives a readable concentration name from a link, it prefers
// the part after " - " in "Program - Concentration" link texts and falls back on the
// url slug.
func ConcentrationName(linkText, programSlug, linkSlug string) string {
	text := strings.TrimSpace(linkText)
	if _, after, ok := cutLast(text, " - "); ok && strings.TrimSpace(after) != "" {
		text = strings.TrimSpace(after)
	}
	for _, p := range namePrefixes {
		if len(text) > len(p) && strings.EqualFold(text[:len(p)], p) {
			text = strings.TrimSpace(text[len(p):])
		}
	}
	if text != "" {
		return text
	}

	suffix := strings.TrimPrefix(linkSlug, programSlug)
	suffix = strings.Trim(suffix, "-")
	if suffix == "" {
		suffix = linkSlug
	}
	return titleCase.String(strings.ReplaceAll(suffix, "-", " "))
}

func cutLast(s, sep string) (string, string, bool) {
	i := strings.LastIndex(s, sep)
	if i < 0 {
		return s, "", false
	}
	return s[:i], s[i+len(sep):], true
}

// ExtractSubLinks scans the anchors of a program page for sibling pages of the
// program, a sibling lives in the same directory and its slug extends the
// program's slug ("computer-science-bs" -> "computer-science-bs-devices").
func ExtractSubLinks(ctx context.Context, base *url.URL, page string) []SubLink {
	doc, err := htmlutil.NewDocument(page)
	if err != nil {
		return nil
	}

	dir, slug := programDir(base)
	if slug == "" {
		return nil
	}

	seen := map[string]struct{}{}
	var links []SubLink
	for _, a := range htmlutil.GetAnchors(ctx, base, doc.Find("a[href]")) {
		if a.Url.Host != base.Host {
			continue
		}
		linkDir, linkSlug := programDir(a.Url)
		if linkDir != dir || linkSlug == slug || !strings.HasPrefix(linkSlug, slug+"-") {
			continue
		}

		target := *a.Url
		target.Fragment = ""
		target.RawQuery = ""
		key := target.String()
		if _, ok := seen[key]; ok {
			continue
		}
		seen[key] = struct{}{}

		links = append(links, SubLink{
			Name: ConcentrationName(a.Name, slug, linkSlug),
			Url:  key,
		})
	}
	return links
}

// ProbeLinks guesses concentration pages by appending suffixes to the program slug.
func ProbeLinks(base *url.URL, suffixes []string) []SubLink {
	dir, slug := programDir(base)
	if slug == "" {
		return nil
	}

	links := make([]SubLink, 0, len(suffixes))
	for _, suffix := range suffixes {
		target := *base
		target.Path = fmt.Sprintf("%s%s-%s/", dir, slug, suffix)
		target.Fragment = ""
		target.RawQuery = ""
		links = append(links, SubLink{
			Name: ConcentrationName("", slug, slug+"-"+suffix),
			Url:  target.String(),
		})
	}
	return links
}

// collectSubPages fetches and validates every sub-page of a multi-level program,
// each sub-page carries its own outcome so one failure never aborts the others.
func (s *detection) collectSubPages(ctx context.Context, result *catalog.DetectionResult) {
	page := s.pages[withoutFragment(s.base.String())]
	links := ExtractSubLinks(ctx, s.base, page)
	probing := len(links) == 0
	if probing {
		links = ProbeLinks(s.base, s.d.opts.ProbeSuffixes)
	}
	if len(links) > s.d.opts.MaxSubLinks {
		links = links[:s.d.opts.MaxSubLinks]
	}

	subPages := map[string]catalog.SubPage{}
	var order []string
	for _, link := range links {
		kind := STEP_SUB_LINK
		if probing {
			kind = STEP_PROBE
		}
		s.step(link.Url, kind)

		sub := catalog.SubPage{Name: link.Name, Url: link.Url}
		content, err := s.fetch(ctx, link.Url)
		if err != nil {
			if probing {
				s.d.tel.ReportDebug("probe missed", link.Url, err.Error())
				continue
			}
			s.d.tel.ReportWarning(report_detector_fetch_sub_page, err, link.Url)
			sub.Err = err
		} else {
			validation := validator.Validate(content)
			if probing && !validation.IsValid {
				s.d.tel.ReportDebug("probe rejected", link.Url, validation.Reason)
				continue
			}
			sub.Content = content
			sub.Validation = &validation
		}

		name := link.Name
		if _, exists := subPages[name]; exists {
			name = fmt.Sprintf("%s (%d)", name, len(order)+1)
		}
		subPages[name] = sub
		order = append(order, name)
	}

	if len(order) > 0 {
		result.SubLinks = subPages
		result.SubLinkOrder = order
	}
}
