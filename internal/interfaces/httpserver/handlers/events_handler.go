package handlers

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
	"github.com/rs/zerolog"

	domain "casescribe/internal/domain/artifact"
	"casescribe/internal/domain/notify"
	"casescribe/internal/infrastructure/auth"
	"casescribe/internal/interfaces/httpserver/responses"
)

const (
	writeTimeout = 10 * time.Second
	pingInterval = 30 * time.Second
)

// EventsHandler bridges broker subscriptions to websocket clients. The stream
// carries best-effort notifications only; a client that connects after the
// outcome was published sees nothing and must poll the artifact instead.
type EventsHandler struct {
	service  *domain.Service
	broker   notify.Broker
	upgrader websocket.Upgrader
	log      zerolog.Logger
}

func NewEventsHandler(service *domain.Service, broker notify.Broker, log zerolog.Logger) *EventsHandler {
	return &EventsHandler{
		service: service,
		broker:  broker,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			CheckOrigin:     func(r *http.Request) bool { return true },
		},
		log: log.With().Str("component", "events-handler").Logger(),
	}
}

// Stream godoc
// @Summary      Stream transcription outcome notifications
// @Description  Upgrades to a websocket delivering best-effort notifications for one artifact. Not a source of truth; poll GET /v1/artifacts/{id} for durable state.
// @Tags         artifacts
// @Param        id   path  string  true  "Artifact ID (aud_xxx)"
// @Success      101  "switching protocols"
// @Failure      404  {object}  responses.ErrorResponse
// @Security     ApiKeyAuth
// @Router       /v1/artifacts/{id}/events [get]
func (h *EventsHandler) Stream(c *gin.Context) {
	id := c.Param("id")

	// Ownership check before upgrading.
	if _, err := h.service.Get(c.Request.Context(), auth.UserID(c), id); err != nil {
		responses.HandleError(c, err, "failed to open event stream")
		return
	}

	notifications, cancel, err := h.broker.Subscribe(c.Request.Context(), id)
	if err != nil {
		responses.HandleError(c, err, "failed to subscribe to notifications")
		return
	}

	conn, err := h.upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		cancel()
		h.log.Warn().Err(err).Str("artifact_id", id).Msg("websocket upgrade failed")
		return
	}

	go h.pump(conn, id, notifications, cancel)
}

func (h *EventsHandler) pump(conn *websocket.Conn, artifactID string, notifications <-chan notify.Notification, cancel func()) {
	defer func() {
		cancel()
		conn.Close()
	}()

	closed := make(chan struct{})
	go func() {
		// Drain the read side to observe client close.
		defer close(closed)
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				return
			}
		}
	}()

	ticker := time.NewTicker(pingInterval)
	defer ticker.Stop()

	for {
		select {
		case n, ok := <-notifications:
			if !ok {
				return
			}
			conn.SetWriteDeadline(time.Now().Add(writeTimeout))
			if err := conn.WriteJSON(n); err != nil {
				h.log.Debug().Err(err).Str("artifact_id", artifactID).Msg("websocket write failed")
				return
			}
		case <-ticker.C:
			conn.SetWriteDeadline(time.Now().Add(writeTimeout))
			if err := conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		case <-closed:
			return
		}
	}
}
