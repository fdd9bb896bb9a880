package events

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
	"github.com/rs/zerolog"
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	// origin checks are left to the CORS layer in front of the API
	CheckOrigin: func(r *http.Request) bool { return true },
}

// WSHandler upgrades GET /ws and keeps the subscriber until it disconnects.
func WSHandler(hub *Hub, logger zerolog.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		ws, err := upgrader.Upgrade(c.Writer, c.Request, nil)
		if err != nil {
			logger.Debug().Err(err).Msg("websocket upgrade failed")
			return
		}

		hub.AddWS(ws)
		logger.Debug().Str("remote", c.ClientIP()).Msg("websocket subscriber connected")

		for {
			if _, _, err := ws.ReadMessage(); err != nil {
				break
			}
		}

		hub.RemoveWS(ws)
		logger.Debug().Str("remote", c.ClientIP()).Msg("websocket subscriber disconnected")
	}
}
