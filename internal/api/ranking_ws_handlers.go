package api

import (
	"encoding/json"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/gorilla/websocket"

	"github.com/onnwee/vibemap/internal/middleware"
	"github.com/onnwee/vibemap/internal/ranking"
)

const (
	wsMaxMessageBytes = 4096
	wsWriteTimeout    = 10 * time.Second
	// wsIdleTimeout closes connections that send no filter change for this
	// long. It also replaces any read deadline left by the HTTP server.
	wsIdleTimeout = 10 * time.Minute
)

// RankingWebSocketHandlers streams ranking outcomes as a client changes filters.
type RankingWebSocketHandlers struct {
	svc      PlaceService
	upgrader websocket.Upgrader
}

// NewRankingWebSocketHandlers creates the handler. Cross-origin upgrades are
// accepted only from allowedOrigins; same-host upgrades are always accepted.
func NewRankingWebSocketHandlers(svc PlaceService, allowedOrigins []string) *RankingWebSocketHandlers {
	allowed := make(map[string]bool, len(allowedOrigins))
	for _, o := range allowedOrigins {
		if o = strings.TrimSpace(o); o != "" {
			allowed[o] = true
		}
	}
	return &RankingWebSocketHandlers{
		svc: svc,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 4096,
			CheckOrigin: func(r *http.Request) bool {
				origin := r.Header.Get("Origin")
				if origin == "" || allowed[origin] {
					return true
				}
				u, err := url.Parse(origin)
				return err == nil && strings.EqualFold(u.Host, r.Host)
			},
		},
	}
}

// StreamRankings handles GET /rankings/ws.
// Each text message from the client is a JSON filter
// ({"occasion","min_reviews","cuisine","search"}); the server answers every
// message with a full ranking response, or an error envelope for an invalid
// filter. An initial response for the empty filter is sent on connect.
func (h *RankingWebSocketHandlers) StreamRankings(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		slog.WarnContext(ctx, "failed to upgrade websocket connection", "error", err)
		return
	}
	defer conn.Close()
	conn.SetReadLimit(wsMaxMessageBytes)

	requestID := middleware.GetRequestID(ctx)
	slog.InfoContext(ctx, "ranking websocket connected", "request_id", requestID)

	if !h.respond(conn, ranking.FilterState{}) {
		return
	}

	for {
		_ = conn.SetReadDeadline(time.Now().Add(wsIdleTimeout))
		_, data, err := conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				slog.WarnContext(ctx, "ranking websocket closed unexpectedly", "error", err, "request_id", requestID)
			}
			break
		}

		var filter ranking.FilterState
		if err := json.Unmarshal(data, &filter); err != nil {
			if !h.writeError(conn, ErrCodeBadRequest, "Invalid JSON filter") {
				return
			}
			continue
		}
		if msg := validateFilter(filter); msg != "" {
			if !h.writeError(conn, ErrCodeValidation, msg) {
				return
			}
			continue
		}
		if !h.respond(conn, filter) {
			return
		}
	}

	slog.InfoContext(ctx, "ranking websocket disconnected", "request_id", requestID)
}

// respond ranks filter and writes the result. Returns false when the
// connection should be closed.
func (h *RankingWebSocketHandlers) respond(conn *websocket.Conn, filter ranking.FilterState) bool {
	outcome, err := h.svc.Rank(filter)
	if err != nil {
		return h.writeError(conn, ErrCodeNotReady, "Place data is still loading")
	}
	return h.write(conn, toRankingResponse(outcome))
}

func (h *RankingWebSocketHandlers) writeError(conn *websocket.Conn, code, message string) bool {
	return h.write(conn, ErrorResponse{Error: ErrorDetail{Code: code, Message: message}})
}

func (h *RankingWebSocketHandlers) write(conn *websocket.Conn, v any) bool {
	_ = conn.SetWriteDeadline(time.Now().Add(wsWriteTimeout))
	if err := conn.WriteJSON(v); err != nil {
		slog.Warn("failed to write websocket message", "error", err)
		return false
	}
	return true
}
