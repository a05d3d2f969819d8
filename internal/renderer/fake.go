package renderer

import (
	"context"
	"fmt"
	"net/url"
	"sync"
)

// Fake is a Renderer serving canned documents, urls are matched without their
// fragment unless an exact match (fragment included) exists.
type Fake struct {
	Pages  map[string]string
	Errors map[string]error

	mu      sync.Mutex
	fetched []string
}

func NewFake() *Fake {
	return &Fake{
		Pages:  map[string]string{},
		Errors: map[string]error{},
	}
}

func (f *Fake) Fetch(ctx context.Context, link string) (string, error) {
	f.mu.Lock()
	f.fetched = append(f.fetched, link)
	f.mu.Unlock()

	if err := ctx.Err(); err != nil {
		return "", err
	}

	keys := []string{link}
	parsed, err := url.Parse(link)
	if err == nil && parsed.Fragment != "" {
		parsed.Fragment = ""
		keys = append(keys, parsed.String())
	}

	for _, k := range keys {
		if err, ok := f.Errors[k]; ok {
			return "", err
		}
		if page, ok := f.Pages[k]; ok {
			return page, nil
		}
	}
	return "", fmt.Errorf("fetch %s: %w: status 404 Not Found", link, ErrNavigation)
}

// Fetched returns every url requested so far, in order.
func (f *Fake) Fetched() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]string(nil), f.fetched...)
}
