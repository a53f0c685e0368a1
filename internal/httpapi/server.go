package httpapi

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/cors"
	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	"github.com/hamed0406/mirrormon/internal/domain"
	apimw "github.com/hamed0406/mirrormon/internal/httpapi/middleware"
	"github.com/hamed0406/mirrormon/internal/logging"
	"github.com/hamed0406/mirrormon/internal/monitor"
)

const (
	ActionCheckService = "check_service"
	ActionCheckAll     = "check_all"
	ActionQuickCheck   = "quick_check"

	maxBodyBytes = 1 << 20
)

var availableActions = []string{ActionCheckService, ActionCheckAll, ActionQuickCheck}

var usage = []string{
	"GET /api?action=quick_check - check the first 10 mirrors",
	"GET /api?action=check_all - check every mirror",
	"POST /api?action=check_service - check a single mirror, body {\"url\": \"...\", \"timeout\": 5}",
}

// Monitor is what the handlers need from monitor.Service.
type Monitor interface {
	ProbeOne(ctx context.Context, url string, timeoutSeconds int) (domain.ServiceResult, error)
	Check(ctx context.Context, mode monitor.Mode, timeoutSeconds int, bypass bool) (domain.BatchResult, bool, error)
}

type Server struct {
	Logger   *zap.Logger
	Perf     *logging.PerfLog
	Monitor  Monitor
	validate *validator.Validate
}

func NewServer(l *zap.Logger, perf *logging.PerfLog, m Monitor) *Server {
	if l == nil {
		l = zap.NewNop()
	}
	return &Server{Logger: l, Perf: perf, Monitor: m, validate: validator.New()}
}

type RouterOptions struct {
	AllowedOrigins []string // empty allows any origin
	APIKeys        []string // empty disables the key check
	RPM            int      // 0 disables rate limiting
	Burst          int
	BlockedAgents  []string
}

func (s *Server) Router(opts RouterOptions) http.Handler {
	r := chi.NewRouter()
	r.Use(apimw.RequestLog(s.Logger))
	r.Use(apimw.Recover(s.Logger))
	r.Use(corsHandler(opts.AllowedOrigins))

	r.Get("/healthz", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		w.Write([]byte("ok"))
	})

	r.Group(func(r chi.Router) {
		r.Use(apimw.BlockAgents(opts.BlockedAgents))
		r.Use(apimw.RateLimit(opts.RPM, opts.Burst))
		r.Use(apimw.RequireKey(opts.APIKeys))

		r.HandleFunc("/api", s.handleAPI)
		// legacy front end path
		r.HandleFunc("/api.php", s.handleAPI)
	})

	return r
}

func corsHandler(origins []string) func(http.Handler) http.Handler {
	if len(origins) == 0 {
		return cors.AllowAll().Handler
	}
	return cors.Handler(cors.Options{
		AllowedOrigins: origins,
		AllowedMethods: []string{http.MethodGet, http.MethodPost, http.MethodOptions},
		AllowedHeaders: []string{"Content-Type", "Authorization", "X-API-Key", apimw.RequestIDHeader},
		ExposedHeaders: []string{apimw.RequestIDHeader},
		MaxAge:         300,
	})
}

func (s *Server) handleAPI(w http.ResponseWriter, r *http.Request) {
	switch action := r.URL.Query().Get("action"); action {
	case ActionCheckService:
		s.handleCheckService(w, r)
	case ActionQuickCheck:
		s.handleBatch(w, r, action, monitor.ModeQuick)
	case ActionCheckAll:
		s.handleBatch(w, r, action, monitor.ModeAll)
	default:
		writeJSON(w, http.StatusBadRequest, map[string]any{
			"success":           false,
			"error":             "Invalid action",
			"available_actions": availableActions,
			"usage":             usage,
		})
	}
}

type checkServiceRequest struct {
	URL     string `json:"url" validate:"required,http_url"`
	Timeout int    `json:"timeout"`
}

func (s *Server) handleCheckService(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		w.Header().Set("Allow", http.MethodPost)
		writeError(w, http.StatusMethodNotAllowed, "Only POST method allowed")
		return
	}

	var req checkServiceRequest
	if err := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodyBytes)).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid JSON format")
		return
	}
	if err := s.validate.Struct(req); err != nil {
		writeError(w, http.StatusBadRequest, validationMessage(err))
		return
	}

	res, err := s.Monitor.ProbeOne(r.Context(), req.URL, req.Timeout)
	if errors.Is(err, monitor.ErrInvalidInput) {
		writeError(w, http.StatusBadRequest, "Invalid URL format")
		return
	}
	if err != nil {
		s.Logger.Error("check_service_failed", zap.String("url", req.URL), zap.Error(err))
		writeError(w, http.StatusInternalServerError, "Internal server error")
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{"success": true, "data": res})
}

func validationMessage(err error) string {
	var verrs validator.ValidationErrors
	if errors.As(err, &verrs) {
		for _, fe := range verrs {
			if fe.Tag() == "required" {
				return "URL parameter required"
			}
		}
	}
	return "Invalid URL format"
}

type batchResponse struct {
	Success     bool                   `json:"success"`
	Data        []domain.ServiceResult `json:"data"`
	Stats       domain.Stats           `json:"stats"`
	Cached      bool                   `json:"cached"`
	CheckTimeMS int64                  `json:"check_time_ms"`
	Timestamp   domain.Timestamp       `json:"timestamp"`
}

func (s *Server) handleBatch(w http.ResponseWriter, r *http.Request, action string, mode monitor.Mode) {
	q := r.URL.Query()
	bypass := q.Has("force") || q.Has("no_cache")
	timeout, _ := strconv.Atoi(q.Get("timeout"))

	br, cached, err := s.Monitor.Check(r.Context(), mode, timeout, bypass)
	if err != nil {
		if errors.Is(err, monitor.ErrInvalidInput) {
			writeError(w, http.StatusBadRequest, err.Error())
			return
		}
		s.Logger.Error("batch_check_failed", zap.String("action", action), zap.Error(err))
		writeError(w, http.StatusInternalServerError, "Internal server error")
		return
	}

	s.Perf.Record(logging.PerfEntry{
		Action:      action,
		Cached:      cached,
		ElapsedMS:   br.ElapsedMS,
		SuccessRate: br.Stats.SuccessRate(),
		Services:    br.Stats.Total(),
		ClientIP:    apimw.ClientIP(r),
		UserAgent:   r.UserAgent(),
	})

	data := br.Results
	if data == nil {
		data = []domain.ServiceResult{}
	}
	writeJSON(w, http.StatusOK, batchResponse{
		Success:     true,
		Data:        data,
		Stats:       br.Stats,
		Cached:      cached,
		CheckTimeMS: br.ElapsedMS,
		Timestamp:   br.Timestamp,
	})
}

func writeJSON(w http.ResponseWriter, code int, v any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(code)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, code int, msg string) {
	writeJSON(w, code, map[string]any{"success": false, "error": msg})
}
