package handlers

import (
	"context"
	"encoding/json"
	"net/http"
	"sync"
	"time"

	"github.com/coder/websocket"
	"github.com/coder/websocket/wsjson"
	"go.uber.org/zap"

	"github.com/BaSui01/tripcrew/agent/crews"
	"github.com/BaSui01/tripcrew/api"
	"github.com/BaSui01/tripcrew/itinerary"
	"github.com/BaSui01/tripcrew/planner"
)

const (
	streamReadTimeout  = 30 * time.Second
	streamWriteTimeout = 10 * time.Second
)

// HandleStream 处理 GET /api/plan/stream。
// 客户端发送一帧 PlanRequest，服务端推送 Crew 事件，最后是 result 或 error 帧。
func (h *PlanHandler) HandleStream(w http.ResponseWriter, r *http.Request) {
	conn, err := websocket.Accept(w, r, &websocket.AcceptOptions{
		OriginPatterns: h.originPatterns,
	})
	if err != nil {
		// Accept 已写出错误响应
		h.logger.Warn("websocket accept failed", zap.Error(err))
		return
	}
	defer conn.CloseNow()

	sink := &frameSink{conn: conn, logger: h.logger}

	// 自行解码：wsjson.Read 解码失败会直接关闭连接，来不及回 400 帧
	var body api.PlanRequest
	readCtx, cancel := context.WithTimeout(r.Context(), streamReadTimeout)
	_, data, err := conn.Read(readCtx)
	cancel()
	if err == nil {
		err = json.Unmarshal(data, &body)
	}
	if err != nil {
		sink.send(r.Context(), api.StreamFrame{Type: api.FrameError, Status: http.StatusBadRequest, Error: "invalid plan request: " + err.Error()})
		conn.Close(websocket.StatusUnsupportedData, "invalid request")
		return
	}

	// 此后不再读取客户端帧；连接断开时 ctx 取消，Crew 随之停止
	ctx := conn.CloseRead(r.Context())

	req, err := itinerary.NewRequest(body.City, body.Days, body.AttractionsPerDay)
	if err == nil {
		err = h.validate(ctx, req)
	}
	if err != nil {
		sink.send(ctx, api.StreamFrame{Type: api.FrameError, Status: http.StatusBadRequest, Error: err.Error()})
		conn.Close(websocket.StatusPolicyViolation, "invalid request")
		return
	}

	status, res, msg := h.run(ctx, req, planner.WithEvents(func(e crews.Event) {
		sink.send(ctx, eventFrame(e))
	}))

	final := api.StreamFrame{Type: api.FrameResult, Status: status}
	if res != nil {
		final.RunID = res.RunID
		final.Itinerary = res.Itinerary
		final.Warnings = res.Warnings
	}
	if status != http.StatusOK {
		final.Type = api.FrameError
		final.Error = msg
	}
	sink.send(ctx, final)
	conn.Close(websocket.StatusNormalClosure, "done")
}

// frameSink 串行化写入；连接断开后丢弃后续帧
type frameSink struct {
	mu     sync.Mutex
	conn   *websocket.Conn
	broken bool
	logger *zap.Logger
}

func (s *frameSink) send(ctx context.Context, f api.StreamFrame) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.broken {
		return
	}
	if f.Timestamp.IsZero() {
		f.Timestamp = time.Now()
	}
	wctx, cancel := context.WithTimeout(ctx, streamWriteTimeout)
	defer cancel()
	if err := wsjson.Write(wctx, s.conn, f); err != nil {
		s.broken = true
		s.logger.Info("stream client gone", zap.Error(err))
	}
}

func eventFrame(e crews.Event) api.StreamFrame {
	f := api.StreamFrame{
		Type:      string(e.Type),
		RunID:     e.RunID,
		Task:      e.Task,
		Agent:     e.Agent,
		Tool:      e.Tool,
		Arguments: e.Arguments,
		Output:    e.Output,
		Error:     e.Error,
		Timestamp: e.Timestamp,
	}
	if e.Duration > 0 {
		f.Duration = e.Duration.String()
	}
	return f
}
