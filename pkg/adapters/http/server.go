package http

import (
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"sync"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/tidwall/gjson"
	"github.com/tidwall/sjson"

	"github.com/aretw0/davinci/internal/logging"
)

// ContinuePath is where scripted steps expect submissions.
const ContinuePath = "/customHTMLTemplate"

type interaction struct {
	token string
	step  string
}

// Server plays a Script back over HTTP, speaking the same step protocol as
// a DaVinci tenant: every continue step carries an id, an interaction id, a
// rotating interaction token and a next link.
type Server struct {
	script    *Script
	startPath string
	version   string
	logger    *slog.Logger

	mu           sync.Mutex
	interactions map[string]*interaction
}

// ServerOption configures a Server.
type ServerOption func(*Server)

// WithStartPath sets the path that starts a new interaction.
func WithStartPath(path string) ServerOption {
	return func(s *Server) {
		s.startPath = path
	}
}

// WithVersion sets the version reported by /info.
func WithVersion(v string) ServerOption {
	return func(s *Server) {
		s.version = v
	}
}

// WithServerLogger sets the server logger.
func WithServerLogger(logger *slog.Logger) ServerOption {
	return func(s *Server) {
		s.logger = logger
	}
}

// NewServer creates a server for a validated script.
func NewServer(script *Script, opts ...ServerOption) *Server {
	s := &Server{
		script:       script,
		startPath:    "/authorize",
		version:      "dev",
		logger:       logging.NewNop(),
		interactions: make(map[string]*interaction),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Handler returns the HTTP handler of the server.
func (s *Server) Handler() http.Handler {
	r := chi.NewRouter()
	r.Get(s.startPath, s.start)
	r.Post(s.startPath, s.start)
	r.Post(ContinuePath, s.submit)
	r.Post("/signoff", s.signoff)
	r.Get("/health", s.health)
	r.Get("/info", s.info)
	return enableCORS(r)
}

// Active reports the number of interactions still in progress.
func (s *Server) Active() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.interactions)
}

func enableCORS(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Access-Control-Allow-Origin", "*")
		w.Header().Set("Access-Control-Allow-Methods", "GET, POST, OPTIONS")
		w.Header().Set("Access-Control-Allow-Headers", "Content-Type, interactionToken")
		if r.Method == http.MethodOptions {
			w.WriteHeader(http.StatusOK)
			return
		}
		next.ServeHTTP(w, r)
	})
}

func (s *Server) start(w http.ResponseWriter, r *http.Request) {
	id := uuid.NewString()
	s.mu.Lock()
	s.interactions[id] = &interaction{}
	s.mu.Unlock()

	s.logger.Info("interaction started", "interaction_id", id)
	s.serve(w, r, id, s.script.Start)
}

func (s *Server) submit(w http.ResponseWriter, r *http.Request) {
	data, err := io.ReadAll(io.LimitReader(r.Body, 1<<20))
	if err != nil || !gjson.ValidBytes(data) {
		writeError(w, http.StatusBadRequest, "invalidRequest", "request body is not JSON")
		return
	}
	body := gjson.ParseBytes(data)
	id := body.Get("interactionId").String()

	s.mu.Lock()
	in, ok := s.interactions[id]
	var current string
	var token string
	if ok {
		current, token = in.step, in.token
	}
	s.mu.Unlock()

	switch {
	case !ok:
		writeError(w, http.StatusBadRequest, "invalidInteraction", "unknown interaction")
		return
	case r.Header.Get("interactionToken") != token:
		writeError(w, http.StatusUnauthorized, "invalidToken", "interaction token mismatch")
		return
	case body.Get("id").String() != current:
		writeError(w, http.StatusBadRequest, "staleStep", "submitted step is not the current step")
		return
	}

	next, ok := s.script.Steps[current].route(body.Get("parameters"))
	if !ok {
		writeError(w, http.StatusBadRequest, "noRoute", "no route matches the submission")
		return
	}

	s.logger.Info("step submitted", "interaction_id", id, "from", current, "to", next)
	s.serve(w, r, id, next)
}

func (s *Server) serve(w http.ResponseWriter, r *http.Request, id, name string) {
	step := s.script.Steps[name]

	doc, err := json.Marshal(step.Body)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "scriptError", err.Error())
		return
	}

	status := step.Status
	if status == 0 {
		status = http.StatusOK
	}

	continues := gjson.GetBytes(doc, "form").Exists()
	if continues {
		token := uuid.NewString()
		doc, _ = sjson.SetBytes(doc, "id", name)
		doc, _ = sjson.SetBytes(doc, "interactionId", id)
		doc, _ = sjson.SetBytes(doc, "interactionToken", token)
		if !gjson.GetBytes(doc, "eventName").Exists() {
			doc, _ = sjson.SetBytes(doc, "eventName", "continue")
		}
		doc, _ = sjson.SetBytes(doc, "_links.next.href", baseURL(r)+ContinuePath)

		s.mu.Lock()
		s.interactions[id] = &interaction{token: token, step: name}
		s.mu.Unlock()
	} else if status < 400 {
		s.mu.Lock()
		delete(s.interactions, id)
		s.mu.Unlock()
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_, _ = w.Write(doc)
}

func (s *Server) signoff(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	_, _ = w.Write([]byte(`{"status":"SIGNED_OFF"}`))
}

func (s *Server) health(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(map[string]string{"status": "ok"})
}

func (s *Server) info(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(map[string]any{
		"app":     "davinci-mock",
		"version": s.version,
		"steps":   len(s.script.Steps),
	})
}

func writeError(w http.ResponseWriter, status int, code, message string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(map[string]string{"code": code, "message": message})
}

func baseURL(r *http.Request) string {
	scheme := "http"
	if r.TLS != nil {
		scheme = "https"
	}
	return scheme + "://" + r.Host
}
