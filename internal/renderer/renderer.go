// Package renderer provides the capability of fetching the rendered html of a
// catalog page.
package renderer

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"strings"
	"time"

	"catalog-ingest/internal/components/telemetry"

	cloudflarebp "github.com/DaRealFreak/cloudflare-bp-go"
	"github.com/go-resty/resty/v2"
	"golang.org/x/time/rate"
)

const (
	report_renderer_fetch = "renderer.fetch"
)

// ErrNavigation is returned when a page could not be navigated to, the response
// did not complete or carried no document.
var ErrNavigation = errors.New("navigation failed")

// Renderer fetches the rendered html of a url. Fetch must only return once the
// navigation to the page is complete.
type Renderer interface {
	Fetch(ctx context.Context, link string) (string, error)
}

type Options struct {
	// Timeout is the timeout of a single page fetch.
	Timeout time.Duration
	// RequestsPerSecond limits the rate of requests sent to the catalog.
	RequestsPerSecond float64
	UserAgent         string
	// CloudflareBypass wraps the transport with TLS and header settings that get
	// past the bot protection in front of the catalog.
	CloudflareBypass bool
	// DumpDir, if set, receives a copy of every fetched document.
	DumpDir string
	// Retries is how many times a request failing with a server error or a
	// rate limit response is retried, 0 disables retries.
	Retries int
}

const defaultUserAgent = "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/123.0.0.0 Safari/537.36"

// HTTPRenderer is a Renderer that requests pages directly over HTTP, the
// catalog is server-rendered so the response body is the rendered document.
type HTTPRenderer struct {
	http *resty.Client
	tel  telemetry.API
	dump *pageDump
}

func NewHTTPRenderer(opts Options, tel telemetry.API) *HTTPRenderer {
	tel = telemetry.NewScopedAPI("renderer", tel)

	if opts.Timeout <= 0 {
		opts.Timeout = time.Second * 30
	}
	if opts.RequestsPerSecond <= 0 {
		opts.RequestsPerSecond = 2
	}
	if opts.UserAgent == "" {
		opts.UserAgent = defaultUserAgent
	}

	client := resty.New()
	if opts.CloudflareBypass {
		client.GetClient().Transport = cloudflarebp.AddCloudFlareByPass(client.GetClient().Transport)
	}
	client.SetHeader("user-agent", opts.UserAgent)
	client.SetTimeout(opts.Timeout)
	client.SetRedirectPolicy(resty.FlexibleRedirectPolicy(10))
	if opts.Retries > 0 {
		client.SetRetryCount(opts.Retries)
		client.SetRetryWaitTime(time.Second)
		client.SetRetryMaxWaitTime(time.Second * 10)
		client.AddRetryCondition(func(res *resty.Response, err error) bool {
			if res == nil {
				return false
			}
			return res.StatusCode() == 429 || res.StatusCode() >= 500
		})
	}

	// max burst >= 1 just means that no requests will be dropped
	rateLimiter := rate.NewLimiter(rate.Limit(opts.RequestsPerSecond), 1)
	client.OnBeforeRequest(func(_ *resty.Client, req *resty.Request) error {
		return rateLimiter.Wait(req.Context())
	})

	telemetry.InstrumentResty(client, tel)

	r := &HTTPRenderer{
		http: client,
		tel:  tel,
	}
	if opts.DumpDir != "" {
		dump, err := newPageDump(opts.DumpDir, tel)
		if err != nil {
			tel.ReportBroken(report_renderer_dump, err)
		} else {
			r.dump = &dump
		}
	}
	return r
}

// Fetch requests a page, the fragment of the url is never sent to the server.
func (r *HTTPRenderer) Fetch(ctx context.Context, link string) (string, error) {
	parsed, err := url.Parse(link)
	if err != nil {
		return "", fmt.Errorf("parse url: %w", err)
	}
	parsed.Fragment = ""

	res, err := r.http.R().
		SetContext(ctx).
		Get(parsed.String())
	if err != nil {
		return "", fmt.Errorf("fetch %s: %w", link, err)
	}
	if res.IsError() {
		return "", fmt.Errorf("fetch %s: %w: status %s", link, ErrNavigation, res.Status())
	}

	body := res.String()
	if strings.TrimSpace(body) == "" {
		r.tel.ReportWarning(report_renderer_fetch, fmt.Errorf("empty document"), link)
		return "", fmt.Errorf("fetch %s: %w: empty document", link, ErrNavigation)
	}
	if r.dump != nil {
		r.dump.Write(parsed.String(), body)
	}
	return body, nil
}

// Close releases the idle connections held by the renderer.
func (r *HTTPRenderer) Close() error {
	r.http.GetClient().CloseIdleConnections()
	return nil
}
