package handler

import (
	"encoding/json"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
	"github.com/proctorly/backend/internal/config"
	"github.com/proctorly/backend/internal/model"
	"github.com/proctorly/backend/internal/service"
	ws "github.com/proctorly/backend/internal/websocket"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
)

// buildUpgrader creates a WebSocket upgrader with origin validation.
// An empty allowedOrigins slice permits all origins (development mode).
func buildUpgrader(allowedOrigins []string) websocket.Upgrader {
	return websocket.Upgrader{
		ReadBufferSize:  1024,
		WriteBufferSize: 1024,
		CheckOrigin: func(r *http.Request) bool {
			if len(allowedOrigins) == 0 {
				return true
			}
			origin := r.Header.Get("Origin")
			for _, allowed := range allowedOrigins {
				if strings.EqualFold(allowed, origin) {
					return true
				}
			}
			return false
		},
	}
}

// MonitorWSHandler streams a test's live violation feed to proctors.
type MonitorWSHandler struct {
	rdb                *redis.Client
	malpracticeService *service.MalpracticeService
	log                zerolog.Logger
	upgrader           websocket.Upgrader
}

// NewMonitorWSHandler creates a new MonitorWSHandler.
func NewMonitorWSHandler(rdb *redis.Client, malpracticeService *service.MalpracticeService, log zerolog.Logger, allowedOrigins []string) *MonitorWSHandler {
	return &MonitorWSHandler{
		rdb:                rdb,
		malpracticeService: malpracticeService,
		log:                log.With().Str("component", "monitor_ws_handler").Logger(),
		upgrader:           buildUpgrader(allowedOrigins),
	}
}

// MonitorStream godoc
// WS /ws/v1/staff/tests/:test_id/monitor
// Upgrades to WebSocket, sends a snapshot of per-student violation totals,
// then relays every violation published for the test as it arrives.
func (h *MonitorWSHandler) MonitorStream(c *gin.Context) {
	testID, ok := parseUUIDParam(c, "test_id")
	if !ok {
		return
	}

	conn, err := h.upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		h.log.Error().Err(err).Msg("WebSocket upgrade failed")
		return
	}
	defer conn.Close()

	wsLog := h.log.With().Str("test_id", testID.String()).Logger()
	wsLog.Info().Msg("Proctor connected")

	// Snapshot first, so the proctor view starts from current state.
	counts, err := h.malpracticeService.CountByTest(c.Request.Context(), testID)
	if err != nil {
		ws.WriteError(conn, "failed to load violation snapshot")
		return
	}
	if err := ws.WriteTyped(conn, ws.SnapshotMessage{Event: ws.EventSnapshot, Counts: counts}); err != nil {
		return
	}

	// Subscribe after the snapshot; events between the count query and the
	// subscribe can be lost, which the snapshot totals tolerate.
	pubsub := h.rdb.Subscribe(c.Request.Context(), config.CacheKey.TestMonitorChannel(testID.String()))
	defer pubsub.Close()

	done := make(chan struct{})

	// Reader: consume client pings, unblock on close.
	go func() {
		defer close(done)
		for {
			var msg ws.RequestEnvelope
			if err := ws.ReadJSON(conn, &msg); err != nil {
				if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
					wsLog.Warn().Err(err).Msg("Unexpected close")
				} else {
					wsLog.Debug().Msg("Proctor disconnected")
				}
				return
			}
			if msg.Action == ws.ActionPing {
				_ = ws.WriteTyped(conn, ws.PongResponse{Event: ws.EventPong})
			}
		}
	}()

	ch := pubsub.Channel()
	for {
		select {
		case <-done:
			return
		case raw, open := <-ch:
			if !open {
				return
			}
			var event model.MonitorEvent
			if err := json.Unmarshal([]byte(raw.Payload), &event); err != nil {
				wsLog.Warn().Err(err).Msg("Discarding malformed monitor event")
				continue
			}
			if err := ws.WriteTyped(conn, ws.ViolationMessage{Event: ws.EventViolation, Data: event}); err != nil {
				return
			}
		}
	}
}
