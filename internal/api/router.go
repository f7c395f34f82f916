package api

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/jengzang/greenarea-go/internal/config"
	"github.com/jengzang/greenarea-go/internal/handler"
	"github.com/jengzang/greenarea-go/internal/middleware"
	"github.com/jengzang/greenarea-go/internal/service"
)

// SetupRouter 设置路由
func SetupRouter(cfg *config.Config, runs *service.RunService, gatherer prometheus.Gatherer) *gin.Engine {
	r := gin.New()
	r.Use(gin.Recovery(), middleware.Logger("/health", "/metrics"))
	r.MaxMultipartMemory = cfg.MaxMemory

	// CORS 中间件
	r.Use(func(c *gin.Context) {
		c.Writer.Header().Set("Access-Control-Allow-Origin", "*")
		c.Writer.Header().Set("Access-Control-Allow-Methods", "GET, POST, OPTIONS")
		c.Writer.Header().Set("Access-Control-Allow-Headers", "Content-Type, Authorization")

		if c.Request.Method == "OPTIONS" {
			c.AbortWithStatus(http.StatusNoContent)
			return
		}

		c.Next()
	})

	// 健康检查
	r.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{
			"status":  "ok",
			"message": "Green area API is running",
		})
	})
	r.GET("/metrics", gin.WrapH(promhttp.HandlerFor(gatherer, promhttp.HandlerOpts{})))

	runHandler := handler.NewRunHandler(runs)

	v1 := r.Group("/api/v1")
	v1.Use(middleware.RateLimit(cfg.RateLimit.RPS, cfg.RateLimit.Burst))
	{
		v1.GET("/profiles", handler.ListProfiles)

		runsGroup := v1.Group("/runs")
		{
			runsGroup.POST("", middleware.Auth(cfg.JWTSecret), runHandler.CreateRun)
			runsGroup.GET("", runHandler.ListRuns)
			runsGroup.GET("/:id", runHandler.GetRun)
			runsGroup.GET("/:id/tasks", runHandler.ListTasks)
			runsGroup.GET("/:id/records", runHandler.ListRecords)
			runsGroup.GET("/:id/chart", runHandler.GetChart)
		}
	}

	return r
}
