// Package discovery lists the degree programs linked from the catalog's
// programs index.
package discovery

import (
	"context"
	"fmt"
	"net/url"
	"strings"

	"catalog-ingest/internal/catalog"
	"catalog-ingest/internal/renderer"
	"catalog-ingest/lib/htmlutil"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
)

var tracer = otel.Tracer("catalog.discovery")

// Discover fetches the programs index and returns every program linked under
// it in index order. Links without a degree marker (navigation, other listings)
// are skipped, a program linked twice is only returned once.
func Discover(ctx context.Context, r renderer.Renderer, indexUrl string) ([]catalog.Program, error) {
	ctx, span := tracer.Start(ctx, "Discover")
	defer span.End()

	index, err := url.Parse(indexUrl)
	if err != nil {
		return nil, fmt.Errorf("parse index url: %w", err)
	}
	if !strings.HasSuffix(index.Path, "/") {
		index.Path += "/"
	}

	page, err := r.Fetch(ctx, index.String())
	if err != nil {
		return nil, fmt.Errorf("fetch programs index: %w", err)
	}
	doc, err := htmlutil.NewDocument(page)
	if err != nil {
		return nil, fmt.Errorf("parse programs index: %w", err)
	}

	seen := map[string]struct{}{}
	var programs []catalog.Program
	for _, anchor := range htmlutil.GetAnchors(ctx, index, doc.Find("a[href]")) {
		slug, ok := programSlug(index, anchor.Url)
		if !ok {
			continue
		}

		link := *anchor.Url
		link.Fragment = ""
		link.RawQuery = ""
		link.Path = index.Path + slug + "/"
		key := link.String()
		if _, dup := seen[key]; dup {
			continue
		}

		name := anchor.Name
		degree := catalog.DegreeType(name)
		if degree == "" {
			degree = catalog.DegreeType(strings.ReplaceAll(slug, "-", " "))
		}
		if degree == "" {
			continue
		}
		if name == "" {
			name = slug
		}

		seen[key] = struct{}{}
		programs = append(programs, catalog.Program{
			Name: name,
			Url:  key,
			Type: degree,
		})
	}

	span.SetAttributes(attribute.Int("programs", len(programs)))
	return programs, nil
}

// programSlug returns the single path segment a link has under the index, it
// fails for links to other hosts, the index itself or deeper pages.
func programSlug(index, link *url.URL) (string, bool) {
	if link.Host != index.Host {
		return "", false
	}
	rest, ok := strings.CutPrefix(link.Path, index.Path)
	if !ok {
		return "", false
	}
	rest = strings.Trim(rest, "/")
	if rest == "" || strings.Contains(rest, "/") {
		return "", false
	}
	return rest, true
}
