// Package bridge implements the local dashboard bridge described in spec
// §4.9: a REST+WebSocket face over the same memory/task stores the MCP
// transport uses, loopback-only, with port auto-discovery for co-located
// UIs. Grounded on the teacher's internal/mcp/http.go (ServeMux routing,
// CORS handling, JSON response helpers) generalized from a single JSON-RPC
// endpoint to a REST resource surface plus a streaming WebSocket channel.
package bridge

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/gorilla/websocket"

	"github.com/emergent-company/memoryd/internal/apperror"
	"github.com/emergent-company/memoryd/internal/changebus"
	"github.com/emergent-company/memoryd/internal/mcp"
	"github.com/emergent-company/memoryd/internal/memory"
	"github.com/emergent-company/memoryd/internal/task"
)

const portFileName = ".dashboard-port"

// maxPortProbe bounds the forward walk from the preferred port (spec §4.9
// "probing a preferred port and walking forward until a listen succeeds").
const maxPortProbe = 50

// Server is the dashboard bridge: REST + WebSocket over memory.Store and
// task.Store, fed live updates from changebus.Bus.
type Server struct {
	root        string
	memory      *memory.Store
	task        *task.Store
	bus         *changebus.Bus
	registry    *mcp.Registry
	corsOrigins map[string]bool
	logger      *slog.Logger
	name        string

	httpSrv  *http.Server
	listener net.Listener
	port     int

	upgrader websocket.Upgrader

	mu   sync.Mutex
	wsID int
}

// Deps bundles the Server's collaborators.
type Deps struct {
	Root        string
	Memory      *memory.Store
	Task        *task.Store
	Bus         *changebus.Bus
	Registry    *mcp.Registry
	CORSOrigins []string
	Logger      *slog.Logger
	Name        string
}

// New constructs a Server. Call Start to bind and serve.
func New(d Deps) *Server {
	origins := make(map[string]bool, len(d.CORSOrigins))
	for _, o := range d.CORSOrigins {
		origins[o] = true
	}
	s := &Server{
		root:        d.Root,
		memory:      d.Memory,
		task:        d.Task,
		bus:         d.Bus,
		registry:    d.Registry,
		corsOrigins: origins,
		logger:      d.Logger,
		name:        d.Name,
	}
	s.upgrader = websocket.Upgrader{
		CheckOrigin: s.checkOrigin,
	}
	return s
}

// Start discovers a loopback port starting at preferredPort, binds, writes
// <root>/.dashboard-port, and begins serving in a background goroutine.
func (s *Server) Start(host string, preferredPort int) error {
	ln, port, err := listenLoopback(host, preferredPort)
	if err != nil {
		return fmt.Errorf("dashboard bridge: %w", err)
	}
	s.listener = ln
	s.port = port

	if err := os.WriteFile(filepath.Join(s.root, portFileName), []byte(strconv.Itoa(port)), 0o644); err != nil {
		s.logger.Warn("failed to write dashboard port file", "error", err)
	}

	s.httpSrv = &http.Server{Handler: s.routes()}
	go func() {
		if err := s.httpSrv.Serve(ln); err != nil && err != http.ErrServerClosed {
			s.logger.Error("dashboard bridge stopped", "error", err)
		}
	}()
	s.logger.Info("dashboard bridge listening", "host", host, "port", port)
	return nil
}

// Port returns the bound port (valid after Start).
func (s *Server) Port() int { return s.port }

// Shutdown gracefully stops the server and removes the port file.
func (s *Server) Shutdown(ctx context.Context) error {
	defer os.Remove(filepath.Join(s.root, portFileName))
	if s.httpSrv == nil {
		return nil
	}
	return s.httpSrv.Shutdown(ctx)
}

// listenLoopback probes ports starting at preferred, walking forward until
// a bind succeeds. host must already be loopback-validated by the caller
// (config.Config.Validate enforces this).
func listenLoopback(host string, preferred int) (net.Listener, int, error) {
	for i := 0; i < maxPortProbe; i++ {
		port := preferred + i
		addr := net.JoinHostPort(host, strconv.Itoa(port))
		ln, err := net.Listen("tcp", addr)
		if err == nil {
			return ln, port, nil
		}
	}
	return nil, 0, fmt.Errorf("no available port in [%d, %d] on %s", preferred, preferred+maxPortProbe-1, host)
}

func (s *Server) routes() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("/api/status", s.withCORS(s.handleStatus))
	mux.HandleFunc("/api/memories", s.withCORS(s.handleMemoriesCollection))
	mux.HandleFunc("/api/memories/", s.withCORS(s.handleMemoryItem))
	mux.HandleFunc("/api/tasks", s.withCORS(s.handleTasksCollection))
	mux.HandleFunc("/api/tasks/", s.withCORS(s.handleTaskItem))
	mux.HandleFunc("/api/mcp-tools/", s.withCORS(s.handleToolPassthrough))
	mux.HandleFunc("/ws", s.handleWebSocket)
	return mux
}

// --- CORS ---

func (s *Server) checkOrigin(r *http.Request) bool {
	origin := r.Header.Get("Origin")
	if origin == "" {
		return true
	}
	return s.corsOrigins[origin] || s.corsOrigins["*"]
}

func (s *Server) withCORS(next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		origin := r.Header.Get("Origin")
		if origin != "" && (s.corsOrigins[origin] || s.corsOrigins["*"]) {
			w.Header().Set("Access-Control-Allow-Origin", origin)
			w.Header().Set("Access-Control-Allow-Methods", "GET, POST, PUT, PATCH, DELETE, OPTIONS")
			w.Header().Set("Access-Control-Allow-Headers", "Content-Type")
		}
		if r.Method == http.MethodOptions {
			w.WriteHeader(http.StatusNoContent)
			return
		}
		next(w, r)
	}
}

// --- /api/status ---

func (s *Server) handleStatus(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		methodNotAllowed(w)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"server":      "Dashboard Bridge",
		"status":      "ok",
		"memoryCount": len(s.memory.All()),
		"taskCount":   len(s.task.List(task.ListFilter{})),
		"port":        s.port,
		"subscribers": s.bus.SubscriberCount(),
	})
}

// --- /api/memories ---

func (s *Server) handleMemoriesCollection(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case http.MethodGet:
		project := r.URL.Query().Get("project")
		limit, _ := strconv.Atoi(r.URL.Query().Get("limit"))
		writeJSON(w, http.StatusOK, map[string]any{"memories": s.memory.List(project, limit)})
	case http.MethodPost:
		var in memory.AddInput
		if !decodeBody(w, r, &in) {
			return
		}
		rec, err := s.memory.Add(in)
		if !writeStoreResult(w, rec, err) {
			return
		}
	default:
		methodNotAllowed(w)
	}
}

func (s *Server) handleMemoryItem(w http.ResponseWriter, r *http.Request) {
	id := strings.TrimPrefix(r.URL.Path, "/api/memories/")
	if id == "" {
		http.NotFound(w, r)
		return
	}
	switch r.Method {
	case http.MethodGet:
		rec, err := s.memory.Get(id)
		writeStoreResult(w, rec, err)
	case http.MethodPut:
		var patch memory.UpdatePatch
		if !decodeBody(w, r, &patch) {
			return
		}
		rec, err := s.memory.Update(id, patch)
		writeStoreResult(w, rec, err)
	case http.MethodDelete:
		if err := s.memory.Delete(id); err != nil {
			writeError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, map[string]any{"deleted": id})
	default:
		methodNotAllowed(w)
	}
}

// --- /api/tasks ---

func (s *Server) handleTasksCollection(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case http.MethodGet:
		q := r.URL.Query()
		f := task.ListFilter{Project: q.Get("project"), Status: q.Get("status"), Category: q.Get("category")}
		if limit, err := strconv.Atoi(q.Get("limit")); err == nil {
			f.Limit = limit
		}
		writeJSON(w, http.StatusOK, map[string]any{"tasks": s.task.List(f)})
	case http.MethodPost:
		var in task.CreateInput
		if !decodeBody(w, r, &in) {
			return
		}
		t, err := s.task.Create(in)
		writeStoreResult(w, t, err)
	default:
		methodNotAllowed(w)
	}
}

func (s *Server) handleTaskItem(w http.ResponseWriter, r *http.Request) {
	id := strings.TrimPrefix(r.URL.Path, "/api/tasks/")
	if id == "" {
		http.NotFound(w, r)
		return
	}
	switch r.Method {
	case http.MethodGet:
		t, err := s.task.Get(id)
		writeStoreResult(w, t, err)
	case http.MethodPatch:
		var patch task.UpdatePatch
		if !decodeBody(w, r, &patch) {
			return
		}
		t, err := s.task.Update(id, patch)
		writeStoreResult(w, t, err)
	case http.MethodDelete:
		cascade := r.URL.Query().Get("cascade") == "true"
		if err := s.task.Delete(id, cascade); err != nil {
			writeError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, map[string]any{"deleted": id})
	default:
		methodNotAllowed(w)
	}
}

// --- /api/mcp-tools/:name passthrough ---

func (s *Server) handleToolPassthrough(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		methodNotAllowed(w)
		return
	}
	name := strings.TrimPrefix(r.URL.Path, "/api/mcp-tools/")
	if name == "" {
		http.NotFound(w, r)
		return
	}
	tool := s.registry.Get(name)
	if tool == nil {
		writeError(w, apperror.Newf(apperror.ToolNotFound, "unknown tool %q", name))
		return
	}
	body, ok := readBody(w, r)
	if !ok {
		return
	}
	if len(body) == 0 {
		body = json.RawMessage("{}")
	}
	result, err := tool.Execute(r.Context(), body)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, result)
}

// --- /ws ---

// wsMessage is the envelope described in spec §6.4: {type, payload}.
type wsMessage struct {
	Type    string `json:"type"`
	Payload any    `json:"payload,omitempty"`
}

const wsSendTimeout = 10 * time.Second

func (s *Server) handleWebSocket(w http.ResponseWriter, r *http.Request) {
	conn, err := s.upgrader.Upgrade(w, r, nil)
	if err != nil {
		s.logger.Warn("websocket upgrade failed", "error", err)
		return
	}
	defer conn.Close()

	sub := s.bus.Subscribe()
	defer sub.Close()

	snapshot := wsMessage{Type: "snapshot", Payload: map[string]any{
		"memories": s.memory.All(),
		"tasks":    s.task.List(task.ListFilter{}),
	}}
	if err := s.writeWS(conn, snapshot); err != nil {
		return
	}

	// A read goroutine drains and discards client frames so pong control
	// frames are processed and a closed connection is detected promptly;
	// the bridge accepts no client-initiated WS commands (spec §4.9
	// "Reconnect is client-driven; server assigns no session id").
	closed := make(chan struct{})
	go func() {
		defer close(closed)
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				return
			}
		}
	}()

	for {
		select {
		case ev, ok := <-sub.C():
			if !ok {
				return
			}
			msg := wsMessage{Type: string(ev.Kind), Payload: ev.Payload}
			if err := s.writeWS(conn, msg); err != nil {
				return
			}
		case <-closed:
			return
		}
	}
}

func (s *Server) writeWS(conn *websocket.Conn, msg wsMessage) error {
	_ = conn.SetWriteDeadline(time.Now().Add(wsSendTimeout))
	return conn.WriteJSON(msg)
}

// --- helpers ---

func decodeBody(w http.ResponseWriter, r *http.Request, dst any) bool {
	body, ok := readBody(w, r)
	if !ok {
		return false
	}
	if len(body) == 0 {
		return true
	}
	if err := json.Unmarshal(body, dst); err != nil {
		writeError(w, apperror.Wrap(apperror.ParseError, err, "invalid JSON body"))
		return false
	}
	return true
}

func readBody(w http.ResponseWriter, r *http.Request) (json.RawMessage, bool) {
	defer r.Body.Close()
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, 10<<20))
	var raw json.RawMessage
	if err := dec.Decode(&raw); err != nil {
		if err.Error() == "EOF" {
			return nil, true
		}
		writeError(w, apperror.Wrap(apperror.ParseError, err, "invalid request body"))
		return nil, false
	}
	return raw, true
}

func writeStoreResult[T any](w http.ResponseWriter, v T, err error) bool {
	if err != nil {
		writeError(w, err)
		return false
	}
	writeJSON(w, http.StatusOK, v)
	return true
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, err error) {
	kind := apperror.KindOf(err)
	writeJSON(w, apperror.HTTPStatus(kind), map[string]any{"error": err.Error(), "kind": kind})
}

func methodNotAllowed(w http.ResponseWriter) {
	w.Header().Set("Allow", "GET, POST, PUT, PATCH, DELETE, OPTIONS")
	http.Error(w, `{"error":"method not allowed"}`, http.StatusMethodNotAllowed)
}
