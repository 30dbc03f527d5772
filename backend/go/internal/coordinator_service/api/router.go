package api

import (
	"github.com/gin-gonic/gin"
	"github.com/wisdomoflovingfaith/WOLFIE-AGI-UI/backend/go/internal/config"
)

// SetupRouter 配置并返回协调服务的 Gin 引擎。
// 读接口和 Agent 的 WebSocket 不需要认证；启用 auth 后，运维写操作需要 JWT。
func SetupRouter(a *API, auth config.AuthConfig) *gin.Engine {
	r := gin.New()
	r.Use(gin.Recovery(), RequestLogger(a.logger))

	r.GET("/health", a.HealthHandler)
	r.GET("/ws", a.WebSocketHandler)

	apiV1 := r.Group("/api/v1")
	{
		apiV1.GET("/agents", a.ListAgentsHandler)
		apiV1.GET("/agents/:id", a.GetAgentHandler)
		apiV1.GET("/messages", a.ListMessagesHandler)
		apiV1.GET("/tasks", a.ListTasksHandler)
		apiV1.GET("/tasks/:id", a.GetTaskHandler)
		apiV1.GET("/assessments", a.ListAssessmentsHandler)
		apiV1.GET("/interventions", a.ListInterventionsHandler)
		apiV1.GET("/interventions/:id", a.GetInterventionHandler)
		apiV1.GET("/metrics", a.ListMetricsHandler)
		apiV1.GET("/convergence/report", a.ReportHandler)

		// 运维写操作
		ops := apiV1.Group("")
		if auth.Enabled {
			ops.Use(AuthMiddleware(auth.JwtSecret))
		}
		{
			ops.POST("/messages", a.SendMessageHandler)
			ops.POST("/tasks", a.CreateTaskHandler)
			ops.PATCH("/tasks/:id", a.UpdateTaskHandler)
			ops.POST("/tasks/:id/status", a.UpdateTaskHandler)
			ops.POST("/interventions/:id/acknowledge", a.AcknowledgeInterventionHandler)
			ops.POST("/interventions/:id/resolve", a.ResolveInterventionHandler)
			ops.POST("/convergence/assess", a.AssessHandler)
		}
	}

	return r
}
