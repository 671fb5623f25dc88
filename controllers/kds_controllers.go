package controllers

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
	"github.com/yeremiapane/mesas-live/kds"
	"github.com/yeremiapane/mesas-live/utils"
)

const maxInboundMessage = 512

var upgrader = websocket.Upgrader{
	CheckOrigin: func(r *http.Request) bool {
		return true // viewer tidak perlu login
	},
}

type KDSController struct {
	Hub *kds.Hub
}

func NewKDSController(hub *kds.Hub) *KDSController {
	return &KDSController{Hub: hub}
}

// KDSHandler -> endpoint WebSocket. No snapshot is pushed on connect; the
// viewer fetches the list itself and then follows the broadcasts.
func (kc *KDSController) KDSHandler(c *gin.Context) {
	ws, err := upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		utils.ErrorLogger.Printf("websocket upgrade failed: %v", err)
		return
	}
	ws.SetReadLimit(maxInboundMessage)

	sub := kc.Hub.Admit(ws)

	// inbound messages are ignored, reading only detects the close
	for {
		if _, _, err := ws.ReadMessage(); err != nil {
			break
		}
	}

	kc.Hub.Evict(sub)
}
