package handlers

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"

	"github.com/classlight/quiz-session-service/internal/models"
	"github.com/classlight/quiz-session-service/internal/services"
	"github.com/classlight/quiz-session-service/internal/utils"
)

const snapshotWriteTimeout = 5 * time.Second

// WatchHandler streams session state snapshots over a websocket so the
// presentation layer can mirror the countdown and phase changes without
// polling.
type WatchHandler struct {
	BaseHandler
	sessionService services.SessionService
	upgrader       websocket.Upgrader
}

func NewWatchHandler(sessionService services.SessionService, logger utils.Logger) *WatchHandler {
	return &WatchHandler{
		BaseHandler:    NewBaseHandler(logger),
		sessionService: sessionService,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			CheckOrigin:     func(r *http.Request) bool { return true },
		},
	}
}

// Watch upgrades the connection and forwards snapshots until the session
// closes or the client disconnects.
func (h *WatchHandler) Watch(c *gin.Context) {
	id := c.Param("id")

	updates, cancel, err := h.sessionService.Watch(c.Request.Context(), id)
	if err != nil {
		c.JSON(http.StatusNotFound, ErrorResponse{Message: "Session not found"})
		return
	}

	conn, err := h.upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		cancel()
		h.LogError(c, err, "Websocket upgrade failed")
		return
	}

	h.LogRequest(c, "Session watch started", "session_id", id)
	go h.stream(conn, id, updates, cancel)
}

func (h *WatchHandler) stream(conn *websocket.Conn, id string, updates <-chan models.SessionSnapshot, cancel func()) {
	defer func() {
		cancel()
		conn.Close()
	}()

	// Reads are drained so close frames from the client are noticed.
	done := make(chan struct{})
	go func() {
		defer close(done)
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				return
			}
		}
	}()

	for {
		select {
		case snap, ok := <-updates:
			if !ok {
				// Session closed; tell the client before dropping the socket.
				deadline := time.Now().Add(snapshotWriteTimeout)
				_ = conn.WriteControl(websocket.CloseMessage,
					websocket.FormatCloseMessage(websocket.CloseNormalClosure, "session closed"),
					deadline)
				return
			}
			conn.SetWriteDeadline(time.Now().Add(snapshotWriteTimeout))
			if err := conn.WriteJSON(snap); err != nil {
				h.logger.Debug("watch stream write failed",
					"session_id", id,
					"error", err)
				return
			}
		case <-done:
			return
		}
	}
}
