package api

import (
	"github.com/gin-gonic/gin"
)

func SetupRoutes(router *gin.Engine, handler *Handler) {
	// Health check
	router.GET("/health", handler.HealthCheck)

	// Catalog reads
	router.GET("/courses", handler.ListCourses)
	router.GET("/courses/:code", handler.GetCourse)
	router.GET("/courses/:code/:date/exam", handler.GetExam)
	router.GET("/courses/:code/:date/solution", handler.GetSolution)

	// Attachment suggestions (staged for moderation, never written directly)
	router.PUT("/courses/:code/:date/exam", handler.PutExamSuggestion)
	router.PUT("/courses/:code/:date/solution", handler.PutSolutionSuggestion)
}
