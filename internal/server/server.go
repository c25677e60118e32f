package server

import (
	"context"
	"encoding/json"
	"net/http"
	"os"
	"strings"
	"sync"
	"syscall"
	"time"

	"github.com/gorilla/mux"

	"github.com/screenq/screenq/internal/history"
	"github.com/screenq/screenq/internal/logger"
	"github.com/screenq/screenq/internal/relay"
)

const shutdownDelay = time.Second

// exitPhrases end the session when sent as a chat message.
var exitPhrases = map[string]bool{
	"bye":   true,
	"exit":  true,
	"close": true,
	"quit":  true,
}

// Completer relays a conversation plus optional image context to the model.
type Completer interface {
	Complete(ctx context.Context, messages []relay.Message, imageURL string) (string, error)
}

type Config struct {
	Relay         Completer
	Store         *history.Store
	SessionID     string
	ScreenshotDir string
}

// Server is the local chat endpoint. It holds the single live context
// snapshot for the run: read by every page and chat request, written only
// by /api/context.
type Server struct {
	relay         Completer
	store         *history.Store
	sessionID     string
	screenshotDir string
	started       time.Time

	mu      sync.RWMutex
	context map[string]any

	// shutdown terminates the process after an exit command; swappable so
	// tests do not kill the test runner.
	shutdown     func()
	shutdownOnce sync.Once
}

func New(cfg Config) *Server {
	return &Server{
		relay:         cfg.Relay,
		store:         cfg.Store,
		sessionID:     cfg.SessionID,
		screenshotDir: cfg.ScreenshotDir,
		started:       time.Now(),
		context:       make(map[string]any),
		shutdown:      terminateProcess,
	}
}

// SetContext replaces the live snapshot, normally once at startup with the
// captured context.
func (s *Server) SetContext(ctx map[string]any) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.context = make(map[string]any, len(ctx))
	for k, v := range ctx {
		s.context[k] = v
	}
}

// Handler returns the route table.
func (s *Server) Handler() http.Handler {
	r := mux.NewRouter()

	r.HandleFunc("/", s.handleIndex).Methods(http.MethodGet)
	r.HandleFunc("/api/chat", s.handleChat).Methods(http.MethodPost)
	r.HandleFunc("/api/context", s.handleContext).Methods(http.MethodPost)
	r.HandleFunc("/api/status", s.handleStatus).Methods(http.MethodGet)

	return r
}

type chatRequest struct {
	Messages []relay.Message `json:"messages"`
}

type chatResponse struct {
	Success  bool   `json:"success"`
	Response string `json:"response,omitempty"`
	Error    string `json:"error,omitempty"`
	Exit     bool   `json:"exit,omitempty"`
}

// handleChat always answers HTTP 200; relay failures become structured
// error payloads so the page keeps working.
func (s *Server) handleChat(w http.ResponseWriter, r *http.Request) {
	var req chatRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, chatResponse{Success: false, Error: "invalid request body: " + err.Error()})
		return
	}

	if len(req.Messages) == 0 {
		writeJSON(w, chatResponse{Success: false, Error: "no messages provided"})
		return
	}

	if phrase, ok := lastText(req.Messages); ok && exitPhrases[phrase] {
		s.scheduleShutdown()
		writeJSON(w, chatResponse{
			Success:  true,
			Response: "Goodbye! Chat session ended.",
			Exit:     true,
		})
		return
	}

	reply, err := s.relay.Complete(r.Context(), req.Messages, s.imageURL())
	if err != nil {
		logger.Warn("relay failed", "error", err)
		writeJSON(w, chatResponse{Success: false, Error: err.Error()})
		return
	}

	writeJSON(w, chatResponse{Success: true, Response: reply})
}

type contextResponse struct {
	Success bool   `json:"success"`
	Error   string `json:"error,omitempty"`
}

// handleContext merges posted fields into the live snapshot and persists the
// session record. Persistence failure is surfaced in the body; the in-memory
// snapshot keeps the merged values either way.
func (s *Server) handleContext(w http.ResponseWriter, r *http.Request) {
	var update map[string]any
	if err := json.NewDecoder(r.Body).Decode(&update); err != nil {
		writeJSON(w, contextResponse{Success: false, Error: "invalid request body: " + err.Error()})
		return
	}

	s.mu.Lock()
	for k, v := range update {
		s.context[k] = v
	}
	snapshot := make(map[string]any, len(s.context))
	for k, v := range s.context {
		snapshot[k] = v
	}
	s.mu.Unlock()

	rec := history.Record{
		Timestamp: time.Now(),
		Context:   snapshot,
		Messages:  []relay.Message{},
	}
	if err := s.store.Save(s.sessionID, rec); err != nil {
		logger.Error("session save failed", "session", s.sessionID, "error", err)
		writeJSON(w, contextResponse{Success: false, Error: err.Error()})
		return
	}

	writeJSON(w, contextResponse{Success: true})
}

func (s *Server) handleIndex(w http.ResponseWriter, r *http.Request) {
	s.mu.RLock()
	data := pageData{
		SessionID:    s.sessionID,
		SelectedText: stringField(s.context, "selected_text"),
		ImageURL:     stringField(s.context, "image_url"),
	}
	s.mu.RUnlock()

	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	if err := chatPage.Execute(w, data); err != nil {
		logger.Error("render chat page", "error", err)
	}
}

// scheduleShutdown transitions the endpoint into its shutting-down state.
// Fires at most once per process; the delay lets the farewell response flush
// before the process exits.
func (s *Server) scheduleShutdown() {
	s.shutdownOnce.Do(func() {
		logger.Info("exit command received, ending session", "session", s.sessionID, "delay", shutdownDelay)
		time.AfterFunc(shutdownDelay, s.shutdown)
	})
}

// terminateProcess asks for a graceful stop via SIGTERM, hard-exiting if the
// signal cannot be delivered.
func terminateProcess() {
	if err := syscall.Kill(os.Getpid(), syscall.SIGTERM); err != nil {
		os.Exit(0)
	}
}

func (s *Server) imageURL() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return stringField(s.context, "image_url")
}

// lastText returns the normalized string content of the most recent message.
// Structured multimodal content never matches an exit phrase.
func lastText(messages []relay.Message) (string, bool) {
	content, ok := messages[len(messages)-1].Content.(string)
	if !ok {
		return "", false
	}
	return strings.ToLower(strings.TrimSpace(content)), true
}

func stringField(m map[string]any, key string) string {
	v, _ := m[key].(string)
	return v
}

func writeJSON(w http.ResponseWriter, v any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.Header().Set("Cache-Control", "no-store")
	w.WriteHeader(http.StatusOK)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		logger.Error("write response", "error", err)
	}
}
