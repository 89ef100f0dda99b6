package handlers

import (
	"net/http"

	"store-ratings-api/dto"

	"github.com/gin-gonic/gin"
)

// Health is the liveness check (public)
func Health(c *gin.Context) {
	c.JSON(http.StatusOK, dto.HealthResponse{OK: true})
}
