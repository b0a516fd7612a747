package router

import (
	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/hunter-console/internal/api/handler"
	"github.com/hunter-console/internal/api/history"
	"github.com/hunter-console/internal/api/middleware"
	"github.com/hunter-console/internal/api/ws"
)

func SetupRouter(hub *ws.Hub, hist *history.Store) *gin.Engine {
	router := gin.New()
	router.Use(middleware.LoggerMiddleware())
	router.Use(gin.Recovery())
	// 浏览器端控制台跨域访问开发后端
	router.Use(cors.Default())

	toolHandler := handler.NewToolHandler(hub, hist)

	apiV1 := router.Group("/api/v1")
	{
		tools := apiV1.Group("/tools")
		{
			tools.POST("/:tool/preview", toolHandler.PreviewTool)
			tools.POST("/:tool/execute", toolHandler.ExecuteTool)
		}
		apiV1.GET("/scans", toolHandler.RecentScans)
		apiV1.GET("/ws", hub.HandleWS)
	}

	return router
}
