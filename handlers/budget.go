package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/LovationAdmin/travel-planner-api/models"
	"github.com/LovationAdmin/travel-planner-api/services"
)

type BudgetHandler struct{}

// Breakdown splits a total budget into the fixed categories.
// POST /api/v1/budget/breakdown
func (h *BudgetHandler) Breakdown(c *gin.Context) {
	var req models.BudgetBreakdownRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request format"})
		return
	}

	plan, err := services.NewBudgetPlan(req.Budget, req.Travellers)
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, plan)
}
