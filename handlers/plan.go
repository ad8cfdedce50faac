package handlers

import (
	"context"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/LovationAdmin/travel-planner-api/logger"
	"github.com/LovationAdmin/travel-planner-api/models"
)

// TripPlanner is the planning service behind the plan routes.
type TripPlanner interface {
	Plan(ctx context.Context, req models.TripRequest) (*models.TripPlan, error)
	Get(ctx context.Context, id string) (*models.TripPlan, error)
}

type PlanHandler struct {
	Planner TripPlanner
	// Timeout bounds one full crew run.
	Timeout time.Duration
}

func NewPlanHandler(planner TripPlanner) *PlanHandler {
	return &PlanHandler{Planner: planner, Timeout: 5 * time.Minute}
}

// CreatePlan runs research, itinerary, budget and photos for a trip.
// POST /api/v1/plans
func (h *PlanHandler) CreatePlan(c *gin.Context) {
	var req models.TripRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	ctx := c.Request.Context()
	if h.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, h.Timeout)
		defer cancel()
	}

	plan, err := h.Planner.Plan(ctx, req)
	if err != nil {
		respondError(c, err)
		return
	}

	log := logger.FromContext(ctx)
	log.Info().
		Str("plan_id", plan.ID).
		Bool("cached", plan.Cached).
		Msg("plan created")

	c.JSON(http.StatusCreated, plan)
}

// GetPlan returns a stored plan with a freshly computed budget.
// GET /api/v1/plans/:id
func (h *PlanHandler) GetPlan(c *gin.Context) {
	plan, err := h.Planner.Get(c.Request.Context(), c.Param("id"))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, plan)
}
