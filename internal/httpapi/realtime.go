package httpapi

import (
	"context"
	"net/http"
	"strings"

	"tableside/restaurant-service/internal/hub"
	"tableside/restaurant-service/internal/store"

	"github.com/google/uuid"
	"github.com/igm/sockjs-go/sockjs"
	"github.com/sirupsen/logrus"
)

const clientBuffer = 16

// NewRealtimeHandler serves the SockJS feed at /realtime. The caller's session
// decides which topics reach the connection.
func NewRealtimeHandler(sessions store.Store, h *hub.Hub, logger *logrus.Logger) http.Handler {
	return sockjs.NewHandler("/realtime", sockjs.DefaultOptions, func(session sockjs.Session) {
		sessionID := realtimeSessionID(session.Request())
		if sessionID == "" {
			_ = session.Close(4001, "missing session")
			return
		}
		authSession, err := sessions.GetSession(context.Background(), sessionID)
		if err != nil {
			_ = session.Close(4002, "invalid session")
			return
		}

		client := &hub.Client{ID: uuid.NewString(), Role: authSession.Role, Send: make(chan []byte, clientBuffer)}
		h.Register(client)
		defer h.Unregister(client)
		logger.WithFields(logrus.Fields{"client": client.ID, "role": client.Role}).Info("realtime client connected")

		go func() {
			for msg := range client.Send {
				_ = session.Send(string(msg))
			}
		}()

		for {
			msg, err := session.Recv()
			if err != nil {
				logger.WithField("client", client.ID).Debug("realtime client disconnected")
				return
			}
			parsed, ok := hub.ParseSubscribe([]byte(msg))
			if !ok {
				continue
			}
			if parsed.Action == "unsubscribe" {
				h.UpdateSubscription(client, nil)
				continue
			}
			h.UpdateSubscription(client, parsed.Topics)
		}
	})
}

func realtimeSessionID(r *http.Request) string {
	if r == nil {
		return ""
	}
	if token := sessionIDFromRequest(r); token != "" {
		return token
	}
	return strings.TrimSpace(r.URL.Query().Get("session_id"))
}
