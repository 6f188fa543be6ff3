package site

import (
	"bytes"
	"context"
	"fmt"
	"net/http"
	"path/filepath"
	"strings"
	"sync"
)

// EventsPath is the SSE endpoint browsers subscribe to.
const EventsPath = "/__marktree__/events"

// LiveReloadHub fans reload events out to connected browsers over
// Server-Sent Events.
type LiveReloadHub struct {
	mu      sync.RWMutex
	clients map[chan struct{}]struct{}

	ctx    context.Context
	cancel context.CancelFunc
}

// NewLiveReloadHub creates a hub with no clients.
func NewLiveReloadHub() *LiveReloadHub {
	ctx, cancel := context.WithCancel(context.Background())
	return &LiveReloadHub{
		clients: make(map[chan struct{}]struct{}),
		ctx:     ctx,
		cancel:  cancel,
	}
}

// Stop disconnects every client.
func (h *LiveReloadHub) Stop() {
	h.cancel()

	h.mu.Lock()
	defer h.mu.Unlock()
	for ch := range h.clients {
		close(ch)
	}
	h.clients = make(map[chan struct{}]struct{})
}

// ClientCount returns the number of connected clients.
func (h *LiveReloadHub) ClientCount() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients)
}

// Notify tells every client to reload. Clients that still have a pending
// reload are skipped.
func (h *LiveReloadHub) Notify() {
	h.mu.RLock()
	defer h.mu.RUnlock()

	for ch := range h.clients {
		select {
		case ch <- struct{}{}:
		default:
		}
	}
}

// SSEHandler returns the handler for EventsPath.
func (h *LiveReloadHub) SSEHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/event-stream")
		w.Header().Set("Cache-Control", "no-cache")
		w.Header().Set("Connection", "keep-alive")

		flusher, ok := w.(http.Flusher)
		if !ok {
			http.Error(w, "SSE not supported", http.StatusInternalServerError)
			return
		}

		clientCh := make(chan struct{}, 1)
		h.mu.Lock()
		if h.ctx.Err() != nil {
			h.mu.Unlock()
			http.Error(w, "live reload stopped", http.StatusServiceUnavailable)
			return
		}
		h.clients[clientCh] = struct{}{}
		h.mu.Unlock()

		defer func() {
			h.mu.Lock()
			delete(h.clients, clientCh)
			h.mu.Unlock()
		}()

		fmt.Fprintf(w, "event: connected\ndata: {\"status\":\"connected\"}\n\n")
		flusher.Flush()

		for {
			select {
			case <-r.Context().Done():
				return
			case <-h.ctx.Done():
				return
			case _, ok := <-clientCh:
				if !ok {
					return
				}
				fmt.Fprintf(w, "event: reload\ndata: {\"action\":\"reload\"}\n\n")
				flusher.Flush()
			}
		}
	}
}

// LiveReloadScript connects to EventsPath and reloads the page on events,
// reconnecting with backoff.
const LiveReloadScript = `<script>
(function() {
  if (typeof(EventSource) === 'undefined') return;
  var reconnectDelay = 1000;
  var maxReconnectDelay = 30000;

  function connect() {
    var es = new EventSource('` + EventsPath + `');

    es.addEventListener('connected', function() {
      reconnectDelay = 1000;
    });

    es.addEventListener('reload', function() {
      location.reload();
    });

    es.onerror = function() {
      es.close();
      setTimeout(connect, reconnectDelay);
      reconnectDelay = Math.min(reconnectDelay * 2, maxReconnectDelay);
    };
  }

  connect();
})();
</script>`

// liveReloadMiddleware injects LiveReloadScript into HTML responses.
func liveReloadMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ext := filepath.Ext(r.URL.Path)
		if r.Method == http.MethodHead || (ext != "" && ext != ".html") {
			next.ServeHTTP(w, r)
			return
		}

		irw := &injectingResponseWriter{
			ResponseWriter: w,
			inject:         []byte(LiveReloadScript),
		}
		next.ServeHTTP(irw, r)
		irw.finish()
	})
}

// injectingResponseWriter buffers HTML bodies and writes them with the
// script inserted before </body>. Other content types pass through.
type injectingResponseWriter struct {
	http.ResponseWriter
	inject []byte

	wroteHeader bool
	status      int
	html        bool
	buf         bytes.Buffer
}

func (w *injectingResponseWriter) WriteHeader(code int) {
	if w.wroteHeader {
		return
	}
	w.wroteHeader = true
	w.status = code
	w.html = strings.HasPrefix(w.Header().Get("Content-Type"), "text/html")
	if !w.html {
		w.ResponseWriter.WriteHeader(code)
		return
	}
	// The body grows, so the declared length no longer holds.
	w.Header().Del("Content-Length")
}

func (w *injectingResponseWriter) Write(b []byte) (int, error) {
	if !w.wroteHeader {
		if w.Header().Get("Content-Type") == "" {
			w.Header().Set("Content-Type", http.DetectContentType(b))
		}
		w.WriteHeader(http.StatusOK)
	}
	if !w.html {
		return w.ResponseWriter.Write(b)
	}
	return w.buf.Write(b)
}

func (w *injectingResponseWriter) finish() {
	if !w.html {
		return
	}
	body := w.buf.Bytes()
	out := make([]byte, 0, len(body)+len(w.inject))
	if idx := bytes.LastIndex(body, []byte("</body>")); idx >= 0 {
		out = append(out, body[:idx]...)
		out = append(out, w.inject...)
		out = append(out, body[idx:]...)
	} else {
		out = append(out, body...)
		out = append(out, w.inject...)
	}
	w.ResponseWriter.WriteHeader(w.status)
	_, _ = w.ResponseWriter.Write(out)
}
