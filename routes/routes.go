package routes

import (
	"github.com/gin-gonic/gin"

	"github.com/LovationAdmin/travel-planner-api/handlers"
	"github.com/LovationAdmin/travel-planner-api/middleware"
)

// SetupPlannerRoutes sets up the form, budget and plan routes.
func SetupPlannerRoutes(rg *gin.RouterGroup, planner handlers.TripPlanner, planLimiter *middleware.RateLimiter) {
	budgetHandler := &handlers.BudgetHandler{}
	planHandler := handlers.NewPlanHandler(planner)

	rg.GET("/form/options", handlers.GetFormOptions)
	rg.POST("/budget/breakdown", budgetHandler.Breakdown)

	// each plan spends LLM and search quota
	plans := rg.Group("/plans")
	if planLimiter != nil {
		plans.Use(planLimiter.Middleware())
	}
	plans.POST("", planHandler.CreatePlan)
	rg.GET("/plans/:id", planHandler.GetPlan)
}

// SetupWSRoutes sets up the progress websocket.
func SetupWSRoutes(rg *gin.RouterGroup, ws *handlers.WSHandler) {
	rg.GET("/ws/plans/:id", ws.HandleWS)
}
