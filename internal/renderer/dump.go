package renderer

import (
	"fmt"
	"net/url"
	"os"
	"path/filepath"
	"strings"
	"sync/atomic"

	"catalog-ingest/internal/components/telemetry"
	"catalog-ingest/lib/textutil"
)

const report_renderer_dump = "renderer.dump"

// pageDump writes every fetched document to a directory so that a run can be
// inspected offline. Files are numbered in fetch order.
type pageDump struct {
	directory string
	counter   *uint64
	tel       telemetry.API
}

func newPageDump(dir string, tel telemetry.API) (pageDump, error) {
	err := os.MkdirAll(dir, 0777)
	if err != nil {
		return pageDump{}, fmt.Errorf("create dump directory: %w", err)
	}
	var counter uint64
	return pageDump{directory: dir, counter: &counter, tel: tel}, nil
}

func dumpName(id uint64, link string) string {
	name := link
	parsed, err := url.Parse(link)
	if err == nil {
		name = parsed.Host + "_" + strings.Trim(parsed.Path, "/")
	}
	return fmt.Sprintf("%04d-%s.html", id, textutil.Slug(name))
}

func (d pageDump) Write(link, contents string) {
	id := atomic.AddUint64(d.counter, 1)
	path := filepath.Join(d.directory, dumpName(id, link))
	err := os.WriteFile(path, []byte(contents), 0600)
	if err != nil {
		d.tel.ReportWarning(report_renderer_dump, err, link)
	}
}
