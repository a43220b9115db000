package daemon

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"mime"
	"net"
	"net/http"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"storybuilder/internal/api"
	"storybuilder/internal/config"
	"storybuilder/internal/events"
	"storybuilder/internal/keymap"
	"storybuilder/internal/logging"
	"storybuilder/internal/session"
	"storybuilder/internal/story"
	"storybuilder/internal/theme"
)

const (
	maxRequestBytes = 1 << 20
	// followWindow bounds a long-poll so it finishes inside WriteTimeout.
	followWindow = 25 * time.Second
)

type apiServer struct {
	bind    string
	logger  *slog.Logger
	daemon  *Daemon
	handler http.Handler

	mu        sync.Mutex
	listener  net.Listener
	server    *http.Server
	closing   chan struct{}
	closeOnce sync.Once
}

func newAPIServer(cfg *config.Config, d *Daemon, logger *slog.Logger) *apiServer {
	srv := &apiServer{
		bind:    strings.TrimSpace(cfg.Paths.APIBind),
		logger:  logger,
		daemon:  d,
		closing: make(chan struct{}),
	}

	token := cfg.Paths.APIToken
	mux := http.NewServeMux()
	route := func(pattern string, h http.HandlerFunc) {
		mux.HandleFunc(pattern, withRequestID(authMiddleware(token, h)))
	}

	route("GET /api/status", srv.handleStatus)
	route("GET /api/story", srv.handleStory)
	route("POST /api/nodes", srv.handleCreateNode)
	route("PATCH /api/nodes/{id}", srv.handleUpdateNode)
	route("DELETE /api/nodes/{id}", srv.handleDeleteNode)
	route("POST /api/nodes/{id}/duplicate", srv.handleDuplicateNode)
	route("POST /api/nodes/{id}/move", srv.handleMoveNode)
	route("POST /api/nodes/{id}/focus", srv.handleFocusNode)
	route("POST /api/save", srv.handleSave)
	route("GET /api/preview", srv.handlePreview)
	route("GET /api/export", srv.handleExport)
	route("GET /api/theme", srv.handleTheme)
	route("PUT /api/theme", srv.handleSetTheme)
	route("POST /api/theme/toggle", srv.handleToggleTheme)
	route("POST /api/keys", srv.handleKey)
	route("GET /api/events", srv.handleEvents)
	route("GET /api/ws", srv.handleWebsocket)

	srv.handler = mux
	return srv
}

func (s *apiServer) start(ctx context.Context) error {
	if s.bind == "" {
		return nil
	}
	listener, err := net.Listen("tcp", s.bind)
	if err != nil {
		return fmt.Errorf("api listen: %w", err)
	}
	server := &http.Server{
		Handler:           s.handler,
		ReadHeaderTimeout: 5 * time.Second,
		ReadTimeout:       15 * time.Second,
		WriteTimeout:      30 * time.Second,
		IdleTimeout:       60 * time.Second,
	}
	s.mu.Lock()
	s.listener = listener
	s.server = server
	s.mu.Unlock()

	go func() {
		if err := server.Serve(listener); err != nil && !errors.Is(err, http.ErrServerClosed) {
			s.log().Error("api server error", logging.Error(err))
		}
	}()

	go func() {
		<-ctx.Done()
		s.stop()
	}()

	s.log().Info("api server listening", logging.String("address", listener.Addr().String()))
	return nil
}

func (s *apiServer) stop() {
	s.closeOnce.Do(func() { close(s.closing) })
	s.mu.Lock()
	server := s.server
	s.server = nil
	s.listener = nil
	s.mu.Unlock()
	if server == nil {
		return
	}
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	_ = server.Shutdown(shutdownCtx)
}

func (s *apiServer) addr() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.listener == nil {
		return ""
	}
	return s.listener.Addr().String()
}

func (s *apiServer) session() *session.Session {
	return s.daemon.ws.Session()
}

func (s *apiServer) handleStatus(w http.ResponseWriter, r *http.Request) {
	s.writeJSON(w, http.StatusOK, s.daemon.Status(r.Context()))
}

func (s *apiServer) handleStory(w http.ResponseWriter, r *http.Request) {
	s.writeJSON(w, http.StatusOK, s.story(r.Context()))
}

func (s *apiServer) handleCreateNode(w http.ResponseWriter, r *http.Request) {
	var req api.NodeRequest
	if !s.decode(w, r, &req) {
		return
	}
	sess := s.session()
	var (
		node story.Node
		err  error
	)
	if req.Index != nil {
		node, err = sess.InsertNode(*req.Index, req.Content)
	} else {
		node, err = sess.AddNode(req.Content)
	}
	if err != nil {
		s.writeSessionError(w, r, err)
		return
	}
	if req.Focus {
		if err := sess.Focus(node.ID); err != nil {
			s.writeSessionError(w, r, err)
			return
		}
	}
	s.writeNode(w, http.StatusCreated, node.ID)
}

func (s *apiServer) handleUpdateNode(w http.ResponseWriter, r *http.Request) {
	var req api.NodeRequest
	if !s.decode(w, r, &req) {
		return
	}
	id := r.PathValue("id")
	if err := s.session().UpdateNode(id, req.Content); err != nil {
		s.writeSessionError(w, r, err)
		return
	}
	s.writeNode(w, http.StatusOK, id)
}

func (s *apiServer) handleDeleteNode(w http.ResponseWriter, r *http.Request) {
	var confirm session.Confirmer
	if ok, _ := strconv.ParseBool(r.URL.Query().Get("confirm")); ok {
		confirm = session.Always
	}
	if err := s.session().RemoveNode(r.PathValue("id"), confirm); err != nil {
		s.writeSessionError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *apiServer) handleDuplicateNode(w http.ResponseWriter, r *http.Request) {
	node, err := s.session().DuplicateNode(r.PathValue("id"))
	if err != nil {
		s.writeSessionError(w, r, err)
		return
	}
	s.writeNode(w, http.StatusCreated, node.ID)
}

func (s *apiServer) handleMoveNode(w http.ResponseWriter, r *http.Request) {
	var req api.MoveRequest
	if !s.decode(w, r, &req) {
		return
	}
	if err := s.session().MoveNode(r.PathValue("id"), req.Index); err != nil {
		s.writeSessionError(w, r, err)
		return
	}
	s.writeJSON(w, http.StatusOK, s.story(r.Context()))
}

func (s *apiServer) handleFocusNode(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")
	if err := s.session().Focus(id); err != nil {
		s.writeSessionError(w, r, err)
		return
	}
	s.writeNode(w, http.StatusOK, id)
}

func (s *apiServer) handleSave(w http.ResponseWriter, r *http.Request) {
	sess := s.session()
	res := sess.Save(r.Context(), true)
	payload := api.FromSaveResult(res, sess.Status())
	status := http.StatusOK
	if res.Err != nil {
		status = statusForKind(session.KindOf(res.Err))
	}
	s.writeJSON(w, status, payload)
}

func (s *apiServer) handlePreview(w http.ResponseWriter, r *http.Request) {
	markup := s.session().Preview()
	if wantsHTML(r) {
		w.Header().Set("Content-Type", "text/html; charset=utf-8")
		w.WriteHeader(http.StatusOK)
		_, _ = io.WriteString(w, markup)
		return
	}
	s.writeJSON(w, http.StatusOK, api.Preview{HTML: markup})
}

func (s *apiServer) handleExport(w http.ResponseWriter, r *http.Request) {
	out, err := s.session().Export(r.Context())
	if err != nil {
		s.writeSessionError(w, r, err)
		return
	}
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	w.Header().Set("Content-Disposition", mime.FormatMediaType("attachment", map[string]string{"filename": out.Filename}))
	w.WriteHeader(http.StatusOK)
	_, _ = io.WriteString(w, out.Content)
}

func (s *apiServer) handleTheme(w http.ResponseWriter, r *http.Request) {
	name, err := s.session().Theme(r.Context())
	if err != nil {
		s.writeSessionError(w, r, err)
		return
	}
	s.writeJSON(w, http.StatusOK, api.Theme{Theme: string(name)})
}

func (s *apiServer) handleSetTheme(w http.ResponseWriter, r *http.Request) {
	var req api.Theme
	if !s.decode(w, r, &req) {
		return
	}
	name, err := theme.Parse(req.Theme)
	if err != nil {
		s.writeError(w, http.StatusBadRequest, err.Error(), string(session.KindValidation))
		return
	}
	if err := s.session().SetTheme(r.Context(), name); err != nil {
		s.writeSessionError(w, r, err)
		return
	}
	s.writeJSON(w, http.StatusOK, api.Theme{Theme: string(name)})
}

func (s *apiServer) handleToggleTheme(w http.ResponseWriter, r *http.Request) {
	name, err := s.session().ToggleTheme(r.Context())
	if err != nil {
		s.writeSessionError(w, r, err)
		return
	}
	s.writeJSON(w, http.StatusOK, api.Theme{Theme: string(name)})
}

func (s *apiServer) handleKey(w http.ResponseWriter, r *http.Request) {
	var req api.KeyRequest
	if !s.decode(w, r, &req) {
		return
	}
	key, err := keymap.Parse(req.Key)
	if err != nil {
		s.writeError(w, http.StatusBadRequest, err.Error(), string(session.KindValidation))
		return
	}
	res := s.daemon.dispatcher.Handle(r.Context(), key)
	payload := api.KeyResponse{Handled: res.Handled, Action: res.Action}
	if res.Save != nil {
		save := api.FromSaveResult(*res.Save, s.session().Status())
		payload.Save = &save
	}
	if res.Node != nil {
		node := api.FromNode(*res.Node, s.indexOf(res.Node.ID))
		payload.Node = &node
	}
	status := http.StatusOK
	if res.Err != nil {
		status = statusForKind(session.KindOf(res.Err))
	}
	s.writeJSON(w, status, payload)
}

func (s *apiServer) handleEvents(w http.ResponseWriter, r *http.Request) {
	query := r.URL.Query()
	var since uint64
	if raw := strings.TrimSpace(query.Get("since")); raw != "" {
		value, err := strconv.ParseUint(raw, 10, 64)
		if err != nil {
			s.writeError(w, http.StatusBadRequest, "invalid since parameter", string(session.KindValidation))
			return
		}
		since = value
	}
	limit := 0
	if raw := strings.TrimSpace(query.Get("limit")); raw != "" {
		value, err := strconv.Atoi(raw)
		if err != nil || value < 0 {
			s.writeError(w, http.StatusBadRequest, "invalid limit parameter", string(session.KindValidation))
			return
		}
		limit = value
	}
	follow := parseBool(query.Get("follow"))

	ctx := r.Context()
	if follow {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, followWindow)
		defer cancel()
	}
	evts, next, err := s.daemon.ws.Hub().Fetch(ctx, since, limit, follow)
	if err != nil && !errors.Is(err, context.DeadlineExceeded) {
		if errors.Is(err, context.Canceled) {
			return
		}
		s.writeError(w, http.StatusInternalServerError, err.Error(), string(session.KindInternal))
		return
	}
	if evts == nil {
		evts = []events.Event{}
	}
	s.writeJSON(w, http.StatusOK, api.EventsResponse{Events: evts, Next: next})
}

func (s *apiServer) story(ctx context.Context) api.Story {
	sess := s.session()
	name, _ := sess.Theme(ctx)
	return api.FromSnapshot(sess.Snapshot(), string(name))
}

func (s *apiServer) indexOf(id string) int {
	for i, n := range s.session().Nodes() {
		if n.ID == id {
			return i
		}
	}
	return -1
}

func (s *apiServer) writeNode(w http.ResponseWriter, status int, id string) {
	node, ok := s.session().Node(id)
	if !ok {
		s.writeError(w, http.StatusNotFound, "node not found", string(session.KindNotFound))
		return
	}
	s.writeJSON(w, status, api.FromNode(node, s.indexOf(id)))
}

func (s *apiServer) decode(w http.ResponseWriter, r *http.Request, dst any) bool {
	decoder := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxRequestBytes))
	decoder.DisallowUnknownFields()
	if err := decoder.Decode(dst); err != nil {
		s.writeError(w, http.StatusBadRequest, "invalid request body: "+err.Error(), string(session.KindValidation))
		return false
	}
	return true
}

func (s *apiServer) writeSessionError(w http.ResponseWriter, r *http.Request, err error) {
	kind := session.KindOf(err)
	status := statusForKind(kind)
	if status >= http.StatusInternalServerError {
		logging.WithContext(r.Context(), s.log()).Warn("api request failed",
			logging.String(logging.FieldEventType, "api_request_failed"),
			logging.String("kind", string(kind)),
			logging.Error(err),
		)
	}
	s.writeError(w, status, err.Error(), string(kind))
}

// withRequestID tags the request context and response with an identifier,
// reusing a caller-supplied X-Request-ID.
func withRequestID(next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id := strings.TrimSpace(r.Header.Get("X-Request-ID"))
		if id == "" {
			id = uuid.NewString()
		}
		w.Header().Set("X-Request-ID", id)
		next(w, r.WithContext(logging.WithRequestID(r.Context(), id)))
	}
}

func statusForKind(kind session.Kind) int {
	switch kind {
	case session.KindNotFound:
		return http.StatusNotFound
	case session.KindConflict:
		return http.StatusConflict
	case session.KindValidation:
		return http.StatusBadRequest
	case session.KindStorage:
		return http.StatusInsufficientStorage
	default:
		return http.StatusInternalServerError
	}
}

func wantsHTML(r *http.Request) bool {
	if strings.EqualFold(r.URL.Query().Get("format"), "html") {
		return true
	}
	accept := r.Header.Get("Accept")
	return strings.Contains(accept, "text/html") && !strings.Contains(accept, "application/json")
}

func parseBool(raw string) bool {
	switch strings.ToLower(strings.TrimSpace(raw)) {
	case "1", "true", "yes":
		return true
	default:
		return false
	}
}

func (s *apiServer) writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if payload == nil {
		return
	}
	if err := json.NewEncoder(w).Encode(payload); err != nil {
		s.log().Error("failed to encode response", logging.Error(err))
	}
}

func (s *apiServer) writeError(w http.ResponseWriter, status int, message, kind string) {
	s.writeJSON(w, status, api.ErrorResponse{Error: message, Kind: kind})
}

func (s *apiServer) log() *slog.Logger {
	if s.logger != nil {
		return s.logger
	}
	return logging.NewNop()
}
