package app

import (
	"exam_portal_backend/docs"
	"exam_portal_backend/internal/config"
	"exam_portal_backend/internal/middleware"
	"exam_portal_backend/internal/model"
	"exam_portal_backend/pkg/monitoring"

	"github.com/gin-gonic/gin"
	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"
)

func (a *App) registerRoutes(router *gin.Engine, c *controllers, cfg *config.Config) {
	docs.SwaggerInfo.BasePath = "/"
	router.GET("/swagger/*any", ginSwagger.WrapHandler(swaggerFiles.Handler, ginSwagger.URL("/swagger/doc.json")))

	router.GET("/metrics", monitoring.PrometheusHandler())

	// 1. 公共路由(无需登录)
	a.registerPublicRoutes(router, c)

	// 2. 需要授权的路由
	authGroup := router.Group("/api")
	authGroup.Use(middleware.AuthMiddleware(cfg))
	{
		authGroup.GET("/me", c.auth.Me)

		// 学生考试
		a.registerStudentRoutes(authGroup, c)

		// 教师出卷
		a.registerFacultyRoutes(authGroup, c)
	}
}

func (a *App) registerPublicRoutes(router *gin.Engine, c *controllers) {
	public := router.Group("/api")
	{
		public.GET("/health", c.health.HealthCheck)
		public.POST("/login", c.auth.Login)
	}
}

func (a *App) registerStudentRoutes(rg *gin.RouterGroup, c *controllers) {
	student := rg.Group("/student")
	student.Use(middleware.RoleMiddleware(model.Student))
	{
		student.GET("/exams", c.studentExam.ListExams)
		student.POST("/exams/submit", c.studentExam.Submit)
		student.GET("/exams/:id/questions", c.studentExam.GetQuestions)
		student.GET("/exams/:id/result", c.studentExam.GetResult)
	}
}

func (a *App) registerFacultyRoutes(rg *gin.RouterGroup, c *controllers) {
	faculty := rg.Group("/faculty")
	faculty.Use(middleware.RoleMiddleware(model.Faculty))
	{
		faculty.POST("/exams", c.exam.CreateExam)
		faculty.GET("/exams", c.exam.ListExams)
		faculty.GET("/exams/:id", c.exam.GetExam)
		faculty.POST("/exams/:id/questions", c.exam.AddQuestion)
		faculty.PUT("/exams/:id/status", c.exam.SetStatus)
	}
}
