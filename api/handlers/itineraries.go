package handlers

import (
	"context"
	"errors"
	"net/http"
	"strconv"
	"strings"

	"go.uber.org/zap"

	"github.com/BaSui01/tripcrew/api"
	"github.com/BaSui01/tripcrew/internal/history"
	"github.com/BaSui01/tripcrew/types"
)

// =============================================================================
// 🗂️ 规划历史 Handler
// =============================================================================

// HistoryReader 读取规划历史，history.Repository 满足该接口
type HistoryReader interface {
	List(ctx context.Context, opts history.ListOptions) ([]history.Run, int64, error)
	Get(ctx context.Context, id string) (*history.Run, error)
}

// ItineraryHandler 处理 /api/itineraries
type ItineraryHandler struct {
	store  HistoryReader
	logger *zap.Logger
}

// NewItineraryHandler 创建历史处理器
func NewItineraryHandler(store HistoryReader, logger *zap.Logger) *ItineraryHandler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &ItineraryHandler{
		store:  store,
		logger: logger.With(zap.String("component", "itinerary_handler")),
	}
}

// HandleList GET /api/itineraries?limit=&offset=&city=&status=
func (h *ItineraryHandler) HandleList(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	limit, err := queryInt(q.Get("limit"))
	if err != nil {
		WriteErrorMessage(w, http.StatusBadRequest, types.ErrInvalidRequest, "limit must be an integer", h.logger)
		return
	}
	offset, err := queryInt(q.Get("offset"))
	if err != nil {
		WriteErrorMessage(w, http.StatusBadRequest, types.ErrInvalidRequest, "offset must be an integer", h.logger)
		return
	}
	status := q.Get("status")
	switch status {
	case "", history.StatusSuccess, history.StatusNoItinerary, history.StatusFailed:
	default:
		WriteErrorMessage(w, http.StatusBadRequest, types.ErrInvalidRequest, "unknown status "+strconv.Quote(status), h.logger)
		return
	}

	opts := history.ListOptions{Limit: limit, Offset: offset, City: q.Get("city"), Status: status}.Normalized()
	runs, total, err := h.store.List(r.Context(), opts)
	if err != nil {
		WriteError(w, types.WrapError(err, types.ErrInternalError, "failed to list itineraries"), h.logger)
		return
	}
	if runs == nil {
		runs = []history.Run{}
	}
	WriteSuccess(w, api.ItineraryList{Runs: runs, Total: total, Limit: opts.Limit, Offset: opts.Offset})
}

// HandleGet GET /api/itineraries/{id}
func (h *ItineraryHandler) HandleGet(w http.ResponseWriter, r *http.Request) {
	id := extractRunID(r)
	if id == "" {
		WriteErrorMessage(w, http.StatusBadRequest, types.ErrInvalidRequest, "id is required", h.logger)
		return
	}
	run, err := h.store.Get(r.Context(), id)
	if errors.Is(err, history.ErrNotFound) {
		WriteErrorMessage(w, http.StatusNotFound, types.ErrNotFound, "itinerary "+id+" not found", nil)
		return
	}
	if err != nil {
		WriteError(w, types.WrapError(err, types.ErrInternalError, "failed to load itinerary"), h.logger)
		return
	}
	WriteSuccess(w, run)
}

func queryInt(s string) (int, error) {
	if s == "" {
		return 0, nil
	}
	return strconv.Atoi(s)
}

// extractRunID 优先使用 PathValue，回退到去掉前缀的路径
func extractRunID(r *http.Request) string {
	if id := r.PathValue("id"); id != "" {
		return id
	}
	path := strings.TrimPrefix(r.URL.Path, "/api/itineraries/")
	if path != "" && path != r.URL.Path && !strings.Contains(path, "/") {
		return path
	}
	return ""
}
