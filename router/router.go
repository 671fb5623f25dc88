package router

import (
	"net/http"
	"os"

	"github.com/gin-gonic/gin"
	"github.com/yeremiapane/mesas-live/controllers"
	"github.com/yeremiapane/mesas-live/kds"
	"github.com/yeremiapane/mesas-live/middlewares"
	"github.com/yeremiapane/mesas-live/reservation"
	"github.com/yeremiapane/mesas-live/utils"
)

type Options struct {
	CORSOrigin  string
	FrontendDir string
	RateLimiter *middlewares.RateLimiter
}

func SetupRouter(engine *reservation.Engine, hub *kds.Hub, opts Options) *gin.Engine {
	r := gin.New()
	r.Use(gin.Recovery())

	if opts.CORSOrigin == "" {
		opts.CORSOrigin = "*"
	}
	r.Use(middlewares.SecurityHeaders())
	r.Use(middlewares.CORSMiddlewares(opts.CORSOrigin))
	r.Use(middlewares.LoggerMiddleware())

	// Inisialisasi controller
	tableCtrl := controllers.NewTableController(engine)
	kdsCtrl := controllers.NewKDSController(hub)

	r.GET("/ping", func(c *gin.Context) {
		c.JSON(200, gin.H{"message": "pong"})
	})

	api := r.Group("/api")
	if opts.RateLimiter != nil {
		api.Use(opts.RateLimiter.RateLimit())
	}
	{
		api.GET("/mesas", tableCtrl.GetAllTables)
		api.POST("/mesas/:table_id/reservar", tableCtrl.ReserveTable)
		api.PUT("/mesas/:table_id", tableCtrl.EditTable)
		api.PATCH("/mesas/:table_id", tableCtrl.SetTableOccupancy)
	}

	// WebSocket untuk viewer
	r.GET("/ws", kdsCtrl.KDSHandler)

	// Melayani file statis frontend jika ada. r.Static cannot be mounted at
	// "/" next to /api and /ws, so the files answer unmatched paths.
	if opts.FrontendDir != "" {
		if info, err := os.Stat(opts.FrontendDir); err == nil && info.IsDir() {
			utils.InfoLogger.Printf("Serving frontend from %s", opts.FrontendDir)
			r.NoRoute(gin.WrapH(http.FileServer(http.Dir(opts.FrontendDir))))
		} else {
			utils.InfoLogger.Printf("Frontend path not found: %s", opts.FrontendDir)
		}
	}

	return r
}
