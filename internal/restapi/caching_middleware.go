package restapi

import (
	"fmt"
	"net/http"
	"strconv"

	"github.com/the-lmc-group/trainflow/internal/realtime"
)

const noCacheHeader = "no-cache, no-store, must-revalidate"

// SnapshotSource returns the live snapshot a response is computed from, or
// nil before the first refresh.
type SnapshotSource func() *realtime.Snapshot

// CacheControlMiddleware sets Cache-Control on successful responses. A
// non-positive duration disables caching; errors are never cached.
//
// With a non-nil source, successful responses also carry X-Snapshot-Generation
// and Last-Modified so clients can tell whether a refresh happened since
// their previous read.
func CacheControlMiddleware(durationSeconds int, source SnapshotSource, next http.Handler) http.Handler {
	headerValue := noCacheHeader
	if durationSeconds > 0 {
		headerValue = fmt.Sprintf("public, max-age=%d", durationSeconds)
	}

	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		wrapped := &cacheControlWriter{
			ResponseWriter: w,
			headerValue:    headerValue,
			source:         source,
		}
		next.ServeHTTP(wrapped, r)
	})
}

type cacheControlWriter struct {
	http.ResponseWriter
	headerValue   string
	source        SnapshotSource
	headerWritten bool
}

func (w *cacheControlWriter) WriteHeader(code int) {
	if !w.headerWritten {
		w.headerWritten = true
		h := w.ResponseWriter.Header()
		if code >= 200 && code < 300 {
			h.Set("Cache-Control", w.headerValue)
			if w.source != nil {
				if snapshot := w.source(); snapshot != nil {
					h.Set("X-Snapshot-Generation", strconv.FormatUint(snapshot.Generation, 10))
					h.Set("Last-Modified", snapshot.LastUpdated.UTC().Format(http.TimeFormat))
				}
			}
		} else {
			h.Set("Cache-Control", noCacheHeader)
		}
	}
	w.ResponseWriter.WriteHeader(code)
}

func (w *cacheControlWriter) Write(b []byte) (int, error) {
	if !w.headerWritten {
		w.WriteHeader(http.StatusOK)
	}
	return w.ResponseWriter.Write(b)
}

func (w *cacheControlWriter) Unwrap() http.ResponseWriter {
	return w.ResponseWriter
}
