package httpapi

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/BrandonDHaskell/GateWise/server/internal/config"
	"github.com/BrandonDHaskell/GateWise/server/internal/gatewise/aggregator"
	"github.com/BrandonDHaskell/GateWise/server/internal/gatewise/export"
	"github.com/BrandonDHaskell/GateWise/server/internal/gatewise/service"
	"github.com/BrandonDHaskell/GateWise/server/internal/gatewise/store"
	"github.com/BrandonDHaskell/GateWise/server/internal/gatewise/types"
	"github.com/BrandonDHaskell/GateWise/server/internal/metrics"
)

// CommandSender delivers lock/unlock commands to door nodes.
type CommandSender interface {
	Send(ctx context.Context, addr, command string) error
}

type Dependencies struct {
	Logger  *zap.Logger
	Metrics *metrics.Metrics
	Addr    string

	Aggregator *aggregator.Aggregator
	Audit      export.Reader
	Doors      *service.DoorRegistry
	Commands   CommandSender
	Station    *config.Station
}

type Server struct {
	httpServer *http.Server
	logger     *zap.Logger
	mux        *http.ServeMux

	agg      *aggregator.Aggregator
	audit    export.Reader
	doors    *service.DoorRegistry
	commands CommandSender
	station  *config.Station
}

func NewServer(d Dependencies) *Server {
	if d.Logger == nil {
		d.Logger = zap.NewNop()
	}
	mux := http.NewServeMux()

	s := &Server{
		logger:   d.Logger.Named("http"),
		mux:      mux,
		agg:      d.Aggregator,
		audit:    d.Audit,
		doors:    d.Doors,
		commands: d.Commands,
		station:  d.Station,
	}

	mux.HandleFunc("POST /v1/access_request", s.handleAccessRequest)
	mux.HandleFunc("POST /v1/events", s.handlePostEvent)
	mux.HandleFunc("GET /v1/events", s.handleListEvents)
	mux.HandleFunc("GET /v1/doors", s.handleDoors)
	mux.HandleFunc("GET /v1/logs", s.handleLogs)
	mux.HandleFunc("GET /v1/logs.csv", s.handleLogsCSV)
	mux.HandleFunc("POST /v1/commands", s.handleCommand)
	mux.HandleFunc("PUT /v1/users/{uid}", s.handleAssignUser)
	mux.HandleFunc("GET /v1/schedule", s.handleGetSchedule)
	mux.HandleFunc("PUT /v1/schedule", s.handlePutSchedule)
	mux.Handle("GET /metrics", d.Metrics.Handler())

	handler := loggingMiddleware(s.logger, d.Metrics, mux)

	s.httpServer = &http.Server{
		Addr:              d.Addr,
		Handler:           handler,
		ReadHeaderTimeout: 5 * time.Second,
	}

	return s
}

func (s *Server) Handler() http.Handler { return s.httpServer.Handler }

func (s *Server) Start() error {
	return s.httpServer.ListenAndServe()
}

func (s *Server) Shutdown(ctx context.Context) error {
	return s.httpServer.Shutdown(ctx)
}

// ── Decisions and events ─────────────────────────────────────────────────────

func (s *Server) handleAccessRequest(w http.ResponseWriter, r *http.Request) {
	pb := isProtobuf(r)

	var req types.AccessRequest
	if pb {
		msg, err := readStruct(r)
		if err != nil {
			writeError(w, http.StatusBadRequest, "bad_proto", "invalid protobuf body")
			return
		}
		req = accessRequestFromProto(msg)
	} else if !decodeJSON(w, r, &req) {
		return
	}

	resp, err := s.agg.Decide(r.Context(), req, "local")
	status := http.StatusOK
	if err != nil {
		var pe *aggregator.ParseError
		var se *store.StorageError
		switch {
		case errors.As(err, &pe):
			writeError(w, http.StatusBadRequest, "invalid_credential", err.Error())
			return
		case errors.As(err, &se):
			// the verdict stands but was not recorded
			s.logger.Error("access decision not recorded", zap.Error(err))
			status = http.StatusServiceUnavailable
		default:
			s.logger.Error("access_request error", zap.Error(err))
			writeError(w, http.StatusInternalServerError, "internal_error", "unexpected server error")
			return
		}
	}

	if pb {
		out, err := accessResponseToProto(resp)
		if err != nil {
			writeError(w, http.StatusInternalServerError, "internal_error", "unexpected server error")
			return
		}
		writeStruct(w, status, out)
		return
	}
	writeJSON(w, status, resp)
}

func (s *Server) handlePostEvent(w http.ResponseWriter, r *http.Request) {
	pb := isProtobuf(r)

	var msg types.WireMessage
	if pb {
		st, err := readStruct(r)
		if err != nil {
			writeError(w, http.StatusBadRequest, "bad_proto", "invalid protobuf body")
			return
		}
		msg = wireMessageFromProto(st)
	} else if !decodeJSON(w, r, &msg) {
		return
	}

	reply, err := s.agg.Ingest(r.Context(), msg, r.RemoteAddr)
	status := http.StatusOK
	if err != nil {
		var pe *aggregator.ParseError
		if errors.As(err, &pe) {
			status = http.StatusBadRequest
		} else {
			s.logger.Error("event ingest failed", zap.Error(err))
			status = http.StatusServiceUnavailable
		}
	}

	if pb {
		out, err := ingestReplyToProto(reply)
		if err != nil {
			writeError(w, http.StatusInternalServerError, "internal_error", "unexpected server error")
			return
		}
		writeStruct(w, status, out)
		return
	}
	writeJSON(w, status, reply)
}

func (s *Server) handleListEvents(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	events := s.agg.Filter(q.Get("door"), q.Get("status"))
	writeJSON(w, http.StatusOK, map[string]any{"events": events})
}

func (s *Server) handleDoors(w http.ResponseWriter, r *http.Request) {
	registered, err := s.doors.List(r.Context())
	if err != nil {
		s.logger.Error("list doors", zap.Error(err))
		writeError(w, http.StatusInternalServerError, "internal_error", "unexpected server error")
		return
	}
	if registered == nil {
		registered = []store.DoorRecord{}
	}
	active := s.agg.Doors()
	if active == nil {
		active = []string{}
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"doors":  registered,
		"recent": active,
	})
}

// ── Audit log ────────────────────────────────────────────────────────────────

func (s *Server) handleLogs(w http.ResponseWriter, r *http.Request) {
	recs, err := s.audit.LoadAll(r.Context())
	if err != nil {
		s.logger.Error("load audit log", zap.Error(err))
		writeError(w, http.StatusServiceUnavailable, "storage_error", err.Error())
		return
	}
	if recs == nil {
		recs = []store.AuditRecord{}
	}
	writeJSON(w, http.StatusOK, map[string]any{"records": recs})
}

func (s *Server) handleLogsCSV(w http.ResponseWriter, r *http.Request) {
	recs, err := s.audit.LoadAll(r.Context())
	if err != nil {
		s.logger.Error("load audit log", zap.Error(err))
		writeError(w, http.StatusServiceUnavailable, "storage_error", err.Error())
		return
	}
	w.Header().Set("Content-Type", "text/csv; charset=utf-8")
	w.Header().Set("Content-Disposition", `attachment; filename="access_logs.csv"`)
	w.WriteHeader(http.StatusOK)
	if err := export.WriteCSV(w, recs); err != nil {
		s.logger.Warn("write csv", zap.Error(err))
	}
}

// ── Commands ─────────────────────────────────────────────────────────────────

type commandRequest struct {
	Address string `json:"address"`
	Command string `json:"command"`
}

func (s *Server) handleCommand(w http.ResponseWriter, r *http.Request) {
	var req commandRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	if strings.TrimSpace(req.Address) == "" {
		writeError(w, http.StatusBadRequest, "invalid_address", "address is required")
		return
	}

	err := s.commands.Send(r.Context(), req.Address, req.Command)
	if err != nil {
		var ne *aggregator.NetworkError
		switch {
		case errors.Is(err, aggregator.ErrInvalidCommand):
			writeError(w, http.StatusBadRequest, "invalid_command", err.Error())
		case errors.As(err, &ne):
			writeError(w, http.StatusBadGateway, "door_unreachable", err.Error())
		default:
			writeError(w, http.StatusInternalServerError, "internal_error", "unexpected server error")
		}
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"ok": true})
}

// ── Station configuration ────────────────────────────────────────────────────

type assignUserRequest struct {
	Name  string `json:"name"`
	Admin bool   `json:"admin"`
}

func (s *Server) handleAssignUser(w http.ResponseWriter, r *http.Request) {
	var req assignUserRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	rec := types.UserRecord{UID: r.PathValue("uid"), Name: req.Name, IsAdmin: req.Admin}

	if err := s.station.AssignUser(rec); err != nil {
		if errors.Is(err, config.ErrInvalidUser) {
			writeError(w, http.StatusBadRequest, "invalid_user", err.Error())
			return
		}
		s.logger.Error("assign user", zap.Error(err))
		writeError(w, http.StatusInternalServerError, "internal_error", "unexpected server error")
		return
	}
	s.logger.Info("user enrolled", zap.String("uid", strings.TrimSpace(rec.UID)), zap.Bool("admin", rec.IsAdmin))
	writeJSON(w, http.StatusOK, map[string]any{"ok": true})
}

func (s *Server) handleGetSchedule(w http.ResponseWriter, r *http.Request) {
	sched := s.station.Schedule()
	if sched == nil {
		sched = types.BlackoutSchedule{}
	}
	writeJSON(w, http.StatusOK, map[string]any{"blackout": sched})
}

func (s *Server) handlePutSchedule(w http.ResponseWriter, r *http.Request) {
	var sched types.BlackoutSchedule
	if !decodeJSON(w, r, &sched) {
		return
	}
	if err := s.station.ReplaceSchedule(sched); err != nil {
		if errors.Is(err, config.ErrInvalidBlock) || errors.Is(err, config.ErrUnknownWeekday) {
			writeError(w, http.StatusBadRequest, "invalid_schedule", err.Error())
			return
		}
		s.logger.Error("replace schedule", zap.Error(err))
		writeError(w, http.StatusInternalServerError, "internal_error", "unexpected server error")
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"ok": true})
}

// ── Helpers ──────────────────────────────────────────────────────────────────

// decodeJSON decodes a size-limited body into v, writing a 400 and
// returning false on failure.
func decodeJSON(w http.ResponseWriter, r *http.Request, v any) bool {
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxRequestBody))
	dec.DisallowUnknownFields()
	if err := dec.Decode(v); err != nil {
		writeError(w, http.StatusBadRequest, "bad_json", "invalid JSON body")
		return false
	}
	return true
}

type errorBody struct {
	Error   string `json:"error"`
	Message string `json:"message"`
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, code, msg string) {
	writeJSON(w, status, errorBody{Error: code, Message: msg})
}
