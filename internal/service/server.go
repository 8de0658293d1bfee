package service

import (
	"context"
	"encoding/json"
	"errors"
	"html/template"
	"log/slog"
	"net"
	"net/http"
	"strings"
	"time"

	"github.com/atishaytuli/YURL/internal/auth"
	"github.com/atishaytuli/YURL/internal/types"
)

// Server is the HTTP surface: the owner-scoped link API and the public
// redirect path.
type Server struct {
	port     string
	registry *Registry
	resolver *Resolver
	source   ClickSource
	sessions *auth.Provider
}

func NewServer(port string, registry *Registry, resolver *Resolver, source ClickSource, sessions *auth.Provider) *Server {
	return &Server{
		port:     port,
		registry: registry,
		resolver: resolver,
		source:   source,
		sessions: sessions,
	}
}

func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("POST /api/links", s.withSession(s.handleCreateLink))
	mux.HandleFunc("GET /api/links", s.withSession(s.handleListLinks))
	mux.HandleFunc("GET /api/links/{id}", s.withSession(s.handleGetLink))
	mux.HandleFunc("DELETE /api/links/{id}", s.withSession(s.handleDeleteLink))
	mux.HandleFunc("GET /api/links/{id}/stats", s.withSession(s.handleLinkStats))
	mux.HandleFunc("GET /{code}", s.handleRedirect)
	return mux
}

func (s *Server) Start(ctx context.Context) error {
	srv := &http.Server{
		Addr:    ":" + s.port,
		Handler: s.Handler(),
	}
	errChan := make(chan error, 1)
	go func() { errChan <- srv.ListenAndServe() }()
	select {
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = srv.Shutdown(shutdownCtx)
		return nil
	case err := <-errChan:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	}
}

// withSession requires a valid bearer token and stores the session in
// the request context. The redirect path stays outside of it.
func (s *Server) withSession(next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		header := r.Header.Get("Authorization")
		token, ok := strings.CutPrefix(header, "Bearer ")
		if !ok || token == "" {
			writeError(w, http.StatusUnauthorized, "missing bearer token")
			return
		}
		session, err := s.sessions.Verify(token)
		if err != nil {
			writeError(w, http.StatusUnauthorized, "invalid session")
			return
		}
		next(w, r.WithContext(auth.NewContext(r.Context(), session)))
	}
}

type createLinkRequest struct {
	Title       string `json:"title"`
	OriginalURL string `json:"original_url"`
	CustomAlias string `json:"custom_alias,omitempty"`
}

type linkResponse struct {
	*types.Link
	ShortURL string `json:"short_url"`
}

func (s *Server) handleCreateLink(w http.ResponseWriter, r *http.Request) {
	session, _ := auth.FromContext(r.Context())

	var req createLinkRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON")
		return
	}

	link, err := s.registry.Create(r.Context(), CreateLinkParams{
		Title:       strings.TrimSpace(req.Title),
		OriginalURL: strings.TrimSpace(req.OriginalURL),
		CustomAlias: strings.TrimSpace(req.CustomAlias),
		OwnerID:     session.UserID,
	})
	if err != nil {
		s.writeServiceError(w, err)
		return
	}

	writeJSON(w, http.StatusCreated, linkResponse{Link: link, ShortURL: s.registry.ShortURL(link)})
}

func (s *Server) handleListLinks(w http.ResponseWriter, r *http.Request) {
	session, _ := auth.FromContext(r.Context())

	links, err := s.registry.ListByOwner(r.Context(), session.UserID)
	if err != nil {
		s.writeServiceError(w, err)
		return
	}

	out := make([]linkResponse, 0, len(links))
	for i := range links {
		out = append(out, linkResponse{Link: &links[i], ShortURL: s.registry.ShortURL(&links[i])})
	}
	writeJSON(w, http.StatusOK, out)
}

func (s *Server) handleGetLink(w http.ResponseWriter, r *http.Request) {
	session, _ := auth.FromContext(r.Context())

	link, err := s.registry.Get(r.Context(), r.PathValue("id"), session.UserID)
	if err != nil {
		s.writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, linkResponse{Link: link, ShortURL: s.registry.ShortURL(link)})
}

func (s *Server) handleDeleteLink(w http.ResponseWriter, r *http.Request) {
	session, _ := auth.FromContext(r.Context())

	// Ownership check before the unscoped delete.
	if _, err := s.registry.Get(r.Context(), r.PathValue("id"), session.UserID); err != nil {
		s.writeServiceError(w, err)
		return
	}
	if err := s.registry.Delete(r.Context(), r.PathValue("id")); err != nil {
		s.writeServiceError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

type statsResponse struct {
	TotalClicks int            `json:"total_clicks"`
	Devices     []types.Bucket `json:"devices"`
	Locations   []types.Bucket `json:"locations"`
}

func (s *Server) handleLinkStats(w http.ResponseWriter, r *http.Request) {
	session, _ := auth.FromContext(r.Context())

	link, err := s.registry.Get(r.Context(), r.PathValue("id"), session.UserID)
	if err != nil {
		s.writeServiceError(w, err)
		return
	}

	events, err := s.source.EventsForLink(r.Context(), link.ID)
	if err != nil {
		s.writeServiceError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, statsResponse{
		TotalClicks: len(events),
		Devices:     DeviceBreakdown(events),
		Locations:   GeoBreakdown(events),
	})
}

func (s *Server) handleRedirect(w http.ResponseWriter, r *http.Request) {
	code := r.PathValue("code")
	if code == "" {
		http.NotFound(w, r)
		return
	}

	sig := ClientSignal{
		UserAgent:  r.UserAgent(),
		RemoteAddr: clientIP(r),
	}

	flow, err := s.resolver.Start(r.Context(), code, sig)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			s.renderNotFound(w, r)
			return
		}
		slog.Error("resolve failed", "code", code, "error", err)
		writeError(w, http.StatusInternalServerError, "something went wrong")
		return
	}

	// Browsers get the countdown interstitial; everything else gets
	// the redirect straight away.
	if wantsHTML(r) && r.URL.Query().Get("now") == "" {
		s.renderCountdown(w, flow)
		return
	}

	dest, err := flow.Proceed()
	if err != nil {
		writeError(w, http.StatusConflict, "resolution already finished")
		return
	}
	http.Redirect(w, r, dest, http.StatusFound)
}

func (s *Server) writeServiceError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, ErrInvalidInput):
		writeError(w, http.StatusBadRequest, err.Error())
	case errors.Is(err, ErrAliasTaken):
		writeError(w, http.StatusConflict, "custom alias already in use")
	case errors.Is(err, ErrNotFound):
		writeError(w, http.StatusNotFound, "link not found")
	default:
		slog.Error("request failed", "error", err)
		writeError(w, http.StatusInternalServerError, "something went wrong")
	}
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}

func wantsHTML(r *http.Request) bool {
	return strings.Contains(r.Header.Get("Accept"), "text/html")
}

// clientIP prefers forwarding headers so the geolocation lookup sees
// the real requester behind a proxy.
func clientIP(r *http.Request) string {
	if xf := r.Header.Get("X-Forwarded-For"); xf != "" {
		if ip := strings.TrimSpace(strings.Split(xf, ",")[0]); ip != "" {
			return ip
		}
	}
	if xr := strings.TrimSpace(r.Header.Get("X-Real-IP")); xr != "" {
		return xr
	}
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return host
}

var countdownTmpl = template.Must(template.New("countdown").Parse(`<!DOCTYPE html>
<html>
<head>
<title>Redirecting…</title>
<meta http-equiv="refresh" content="{{.Seconds}};url={{.Destination}}">
</head>
<body>
<h1>Redirecting you…</h1>
<p>You are being redirected to <strong>{{.Destination}}</strong> in {{.Seconds}} seconds.</p>
<p><a href="{{.Destination}}">Go now</a> · <a href="/">Cancel</a></p>
</body>
</html>
`))

func (s *Server) renderCountdown(w http.ResponseWriter, flow *Flow) {
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	_ = countdownTmpl.Execute(w, map[string]any{
		"Seconds":     flow.Remaining(),
		"Destination": flow.Destination(),
	})
}

func (s *Server) renderNotFound(w http.ResponseWriter, r *http.Request) {
	if wantsHTML(r) {
		w.Header().Set("Content-Type", "text/html; charset=utf-8")
		w.WriteHeader(http.StatusNotFound)
		_, _ = w.Write([]byte(`<!DOCTYPE html><html><head><title>Link Not Found</title></head><body><h1>Link Not Found</h1><p>The URL you are trying to access doesn't exist or has been removed.</p><p><a href="/">Go to Homepage</a></p></body></html>`))
		return
	}
	writeError(w, http.StatusNotFound, "link not found")
}
