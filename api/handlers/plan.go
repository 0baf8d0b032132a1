package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"mime"
	"net/http"
	"strconv"
	"strings"

	"go.uber.org/zap"

	"github.com/BaSui01/tripcrew/agent/guardrails"
	"github.com/BaSui01/tripcrew/api"
	"github.com/BaSui01/tripcrew/internal/ctxkeys"
	"github.com/BaSui01/tripcrew/itinerary"
	"github.com/BaSui01/tripcrew/planner"
)

// =============================================================================
// 🧭 行程规划 Handler
// =============================================================================

const maxPlanBodyBytes = 1 << 20

// ItineraryPlanner 运行一次行程规划，planner.Planner 满足该接口
type ItineraryPlanner interface {
	Plan(ctx context.Context, req itinerary.Request, opts ...planner.RunOption) (*planner.Result, error)
}

// PlanHandler 处理 /api/plan 与 /api/plan/stream
type PlanHandler struct {
	planner        ItineraryPlanner
	originPatterns []string
	guard          guardrails.Validator
	logger         *zap.Logger
}

// NewPlanHandler 创建规划处理器
func NewPlanHandler(p ItineraryPlanner, logger *zap.Logger) *PlanHandler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &PlanHandler{
		planner: p,
		logger:  logger.With(zap.String("component", "plan_handler")),
	}
}

// WithOriginPatterns 设置 WebSocket 允许的跨域来源（host 模式，如 "example.com"）
func (h *PlanHandler) WithOriginPatterns(patterns []string) *PlanHandler {
	h.originPatterns = patterns
	return h
}

// WithInputGuard 设置城市输入护栏，nil 表示不检查
func (h *PlanHandler) WithInputGuard(v guardrails.Validator) *PlanHandler {
	h.guard = v
	return h
}

// validate 解析后的请求再过一遍护栏
func (h *PlanHandler) validate(ctx context.Context, req itinerary.Request) error {
	if err := guardrails.Check(ctx, h.guard, "city", req.City); err != nil {
		h.logger.Warn("plan request rejected by guardrails", zap.String("city", req.City), zap.Error(err))
		return err
	}
	return nil
}

// HandlePlan 处理 POST /api/plan 与 POST /plan。
// 成功时直接返回行程 JSON，错误统一为 {"error": "..."}。
func (h *PlanHandler) HandlePlan(w http.ResponseWriter, r *http.Request) {
	defer func() {
		if rec := recover(); rec != nil {
			h.logger.Error("plan handler panic", zap.Any("panic", rec))
			writePlanError(w, http.StatusInternalServerError, fmt.Sprintf("Error generating travel plan: %v", rec))
		}
	}()

	if r.Method != http.MethodPost {
		w.Header().Set("Allow", http.MethodPost)
		writePlanError(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}

	r.Body = http.MaxBytesReader(w, r.Body, maxPlanBodyBytes)
	req, err := parsePlanRequest(r)
	if err != nil {
		h.logger.Info("invalid plan request", zap.Error(err))
		writePlanError(w, http.StatusBadRequest, err.Error())
		return
	}
	if err := h.validate(r.Context(), req); err != nil {
		writePlanError(w, http.StatusBadRequest, err.Error())
		return
	}

	status, res, msg := h.run(r.Context(), req)
	if status != http.StatusOK {
		writePlanError(w, status, msg)
		return
	}
	WriteJSON(w, http.StatusOK, res.Itinerary)
}

// run 执行规划并映射为状态码与错误信息，同步与流式接口共用
func (h *PlanHandler) run(ctx context.Context, req itinerary.Request, opts ...planner.RunOption) (int, *planner.Result, string) {
	logger := h.logger.With(
		zap.String("city", req.City),
		zap.Int("days", req.Days),
		zap.Int("attractions_per_day", req.AttractionsPerDay),
		zap.Int("total_attractions", req.TotalAttractions))
	if id, ok := ctxkeys.RequestID(ctx); ok {
		logger = logger.With(zap.String("request_id", id))
	}
	if sub, ok := ctxkeys.Subject(ctx); ok {
		logger = logger.With(zap.String("subject", sub))
	}
	logger.Info("planning trip")

	res, err := h.planner.Plan(ctx, req, opts...)
	if err != nil {
		logger.Error("travel plan failed", zap.Error(err))
		return http.StatusInternalServerError, nil, "Error generating travel plan: " + err.Error()
	}
	if res == nil || res.Itinerary == nil {
		logger.Warn("no itinerary generated")
		return http.StatusNotFound, res, itinerary.ErrNoItinerary.Error()
	}
	logger.Info("travel plan generated", zap.String("run_id", res.RunID))
	return http.StatusOK, res, ""
}

func writePlanError(w http.ResponseWriter, status int, msg string) {
	WriteJSON(w, status, api.ErrorBody{Error: msg})
}

// parsePlanRequest 解析 urlencoded / multipart 表单，也接受 JSON 体
func parsePlanRequest(r *http.Request) (itinerary.Request, error) {
	ct, _, _ := mime.ParseMediaType(r.Header.Get("Content-Type"))
	if ct == "application/json" {
		var body api.PlanRequest
		if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
			return itinerary.Request{}, fmt.Errorf("invalid JSON body: %w", err)
		}
		return itinerary.NewRequest(body.City, body.Days, body.AttractionsPerDay)
	}

	if err := r.ParseMultipartForm(maxPlanBodyBytes); err != nil && !errors.Is(err, http.ErrNotMultipart) {
		return itinerary.Request{}, fmt.Errorf("invalid form: %w", err)
	}

	city := strings.TrimSpace(r.PostFormValue("city"))
	if city == "" {
		return itinerary.Request{}, errors.New("city is required")
	}
	days, err := formInt(r, "days")
	if err != nil {
		return itinerary.Request{}, err
	}
	perDay, err := formInt(r, "attractions_per_day")
	if err != nil {
		return itinerary.Request{}, err
	}
	return itinerary.NewRequest(city, days, perDay)
}

func formInt(r *http.Request, key string) (int, error) {
	raw := strings.TrimSpace(r.PostFormValue(key))
	if raw == "" {
		return 0, fmt.Errorf("%s is required", key)
	}
	n, err := strconv.Atoi(raw)
	if err != nil {
		return 0, fmt.Errorf("%s: %w", key, err)
	}
	return n, nil
}
