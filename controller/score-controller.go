package controller

import (
	"encoding/json"
	"log"
	"net/http"
	"sync"
	"time"

	"ctfhost/metrics"
	"ctfhost/service"

	"github.com/gin-contrib/cache"
	"github.com/gin-contrib/cache/persistence"
	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
)

type ScoreController struct {
	scoreService *service.ScoreService

	mu          sync.Mutex
	connections map[*websocket.Conn]bool
	lastPayload []byte
}

func NewScoreController() *ScoreController {
	controller := &ScoreController{
		scoreService: service.NewScoreService(),
		connections:  make(map[*websocket.Conn]bool),
	}
	controller.StartScoreUpdater()
	return controller
}

func setupScoreController(cacheStore persistence.CacheStore) []RouteInfo {
	e := NewScoreController()
	routes := []RouteInfo{
		{Method: "GET", Path: "scoreboard", HandlerFunc: cache.CachePage(cacheStore, 30*time.Second, e.getScoreboardHandler())},
		{Method: "GET", Path: "scoreboard/ws", HandlerFunc: e.webSocketHandler},
	}
	return routes
}

var upgrader = websocket.Upgrader{
	CheckOrigin: func(r *http.Request) bool {
		// allow any host origin to connect to the websocket
		return true
	},
}

// @id GetScoreboard
// @Description Returns the public standings
// @Tags scores
// @Produce json
// @Success 200 {array} service.ScoreboardEntry
// @Router /scoreboard [get]
func (e *ScoreController) getScoreboardHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		entries, err := e.scoreService.GetScoreboard()
		if err != nil {
			abortWithError(c, err)
			return
		}
		c.JSON(200, entries)
	}
}

// @id ScoreboardWebSocket
// @Description Websocket pushing the standings whenever they change
// @Tags scores
// @Router /scoreboard/ws [get]
func (e *ScoreController) webSocketHandler(c *gin.Context) {
	conn, err := upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		http.NotFound(c.Writer, c.Request)
		return
	}
	e.mu.Lock()
	e.connections[conn] = true
	if e.lastPayload != nil {
		if err := conn.WriteMessage(websocket.TextMessage, e.lastPayload); err != nil {
			log.Printf("Failed to send scoreboard snapshot: %v", err)
		}
	}
	e.mu.Unlock()
	metrics.ScoreboardConnectionsGauge.Inc()

	// Reads are discarded; the connection is push only. Read errors mean
	// the client is gone.
	go func() {
		defer func() {
			e.mu.Lock()
			delete(e.connections, conn)
			e.mu.Unlock()
			metrics.ScoreboardConnectionsGauge.Dec()
			conn.Close()
		}()
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				return
			}
		}
	}()
}

func (e *ScoreController) StartScoreUpdater() {
	go func() {
		for {
			time.Sleep(10 * time.Second)
			e.pushScores()
		}
	}()
}

func (e *ScoreController) pushScores() {
	entries, err := e.scoreService.GetScoreboard()
	if err != nil {
		log.Printf("Failed to compute scoreboard: %v", err)
		return
	}
	payload, err := json.Marshal(entries)
	if err != nil {
		log.Printf("Failed to serialize scoreboard: %v", err)
		return
	}

	e.mu.Lock()
	defer e.mu.Unlock()
	if string(payload) == string(e.lastPayload) {
		return
	}
	e.lastPayload = payload
	for conn := range e.connections {
		if err := conn.WriteMessage(websocket.TextMessage, payload); err != nil {
			delete(e.connections, conn)
			metrics.ScoreboardConnectionsGauge.Dec()
			conn.Close()
		}
	}
}
