package app

import (
	"englishforyou_backend/internal/config"
	"englishforyou_backend/internal/middleware"
	"englishforyou_backend/internal/model"
	"englishforyou_backend/pkg/monitoring"

	"github.com/gin-gonic/gin"
	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"
)

func (a *App) registerRoutes(router *gin.Engine, c *controllers, cfg *config.Config) {
	router.GET("/swagger/*any", ginSwagger.WrapHandler(swaggerFiles.Handler))

	router.GET("/metrics", monitoring.PrometheusHandler())

	public := router.Group("/api")
	{
		public.GET("/health", c.health.HealthCheck)
		public.POST("/register", c.auth.Register)
		public.POST("/login", c.auth.Login)
	}

	authGroup := router.Group("/api")
	authGroup.Use(middleware.AuthMiddleware(cfg))
	{
		authGroup.GET("/user/account", c.user.Account)
		authGroup.PUT("/user/profile", c.user.UpdateProfile)

		assessment := authGroup.Group("/assessment")
		{
			assessment.POST("/start", c.test.StartTest)
			assessment.GET("/question", c.test.CurrentQuestion)
			assessment.POST("/answer", c.test.SubmitAnswer)
			assessment.POST("/finish", c.test.FinishTest)
			assessment.GET("/results/:id", c.test.Results)
		}

		lessons := authGroup.Group("/lessons")
		{
			lessons.POST("/generate", c.lesson.GenerateBlock)
			lessons.GET("/board", c.lesson.Board)
			lessons.POST("/check", c.lesson.CheckExercise)
			lessons.POST("/complete", c.lesson.CompleteLesson)
			lessons.GET("/:id", c.lesson.GetLesson)
		}

		admin := authGroup.Group("/admin")
		admin.Use(middleware.RoleMiddleware(model.Admin))
		{
			admin.GET("/questions", c.test.QuestionStats)
		}
	}
}
