package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/LovationAdmin/travel-planner-api/models"
)

// GetFormOptions returns the choices and bounds of the planning form.
func GetFormOptions(c *gin.Context) {
	c.JSON(http.StatusOK, models.DefaultFormOptions())
}
