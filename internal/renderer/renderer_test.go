package renderer

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"catalog-ingest/internal/components/telemetry"

	"github.com/stretchr/testify/require"
)

func TestHTTPRenderer(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/programs/computer-science-bs/":
			fmt.Fprint(w, "<html><body>CS 1301</body></html>")
		case "/empty/":
		case "/slow/":
			time.Sleep(time.Millisecond * 500)
			fmt.Fprint(w, "late")
		default:
			http.NotFound(w, r)
		}
	}))
	defer server.Close()

	r := NewHTTPRenderer(Options{
		Timeout:           time.Millisecond * 100,
		RequestsPerSecond: 100,
	}, telemetry.NewRecorder())
	defer r.Close()

	ctx := context.Background()

	body, err := r.Fetch(ctx, server.URL+"/programs/computer-science-bs/#threadstext")
	require.NoError(t, err)
	require.Contains(t, body, "CS 1301")

	_, err = r.Fetch(ctx, server.URL+"/missing/")
	require.ErrorIs(t, err, ErrNavigation)

	_, err = r.Fetch(ctx, server.URL+"/empty/")
	require.ErrorIs(t, err, ErrNavigation)

	_, err = r.Fetch(ctx, server.URL+"/slow/")
	require.Error(t, err)
}

func TestFake(t *testing.T) {
	f := NewFake()
	f.Pages["https://catalog.edu/a/"] = "page a"
	f.Pages["https://catalog.edu/a/#threadstext"] = "threads of a"
	f.Errors["https://catalog.edu/b/"] = context.DeadlineExceeded

	ctx := context.Background()

	page, err := f.Fetch(ctx, "https://catalog.edu/a/#requirementstext")
	require.NoError(t, err)
	require.Equal(t, "page a", page)

	page, err = f.Fetch(ctx, "https://catalog.edu/a/#threadstext")
	require.NoError(t, err)
	require.Equal(t, "threads of a", page)

	_, err = f.Fetch(ctx, "https://catalog.edu/b/")
	require.ErrorIs(t, err, context.DeadlineExceeded)

	_, err = f.Fetch(ctx, "https://catalog.edu/c/")
	require.ErrorIs(t, err, ErrNavigation)

	require.Len(t, f.Fetched(), 4)
}

func TestHTTPRendererDump(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, "<html><body>CS 1301</body></html>")
	}))
	defer server.Close()

	dir := filepath.Join(t.TempDir(), "pages")
	r := NewHTTPRenderer(Options{RequestsPerSecond: 100, DumpDir: dir}, telemetry.NewRecorder())
	defer r.Close()

	ctx := context.Background()
	_, err := r.Fetch(ctx, server.URL+"/programs/physics-bs/")
	require.NoError(t, err)
	_, err = r.Fetch(ctx, server.URL+"/programs/physics-bs/#threadstext")
	require.NoError(t, err)

	entries, err := os.ReadDir(dir)
	require.NoError(t, err)
	require.Len(t, entries, 2)
	require.True(t, strings.HasPrefix(entries[0].Name(), "0001-"))
	require.True(t, strings.HasSuffix(entries[0].Name(), "_programs_physics_bs.html"))

	contents, err := os.ReadFile(filepath.Join(dir, entries[1].Name()))
	require.NoError(t, err)
	require.Contains(t, string(contents), "CS 1301")
}

func TestHTTPRendererRetries(t *testing.T) {
	var calls atomic.Int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if calls.Add(1) < 3 {
			w.WriteHeader(http.StatusServiceUnavailable)
			return
		}
		fmt.Fprint(w, "<html><body>CS 1301</body></html>")
	}))
	defer server.Close()

	r := NewHTTPRenderer(Options{RequestsPerSecond: 100, Retries: 2}, telemetry.NewRecorder())
	defer r.Close()

	body, err := r.Fetch(context.Background(), server.URL+"/programs/physics-bs/")
	require.NoError(t, err)
	require.Contains(t, body, "CS 1301")
	require.EqualValues(t, 3, calls.Load())
}
