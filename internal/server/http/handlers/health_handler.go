package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/JamesxFarris/Sixxer/internal/server/http/dto"
)

// HealthHandler serves the unauthenticated status endpoint.
type HealthHandler struct {
	facade ReportFacade
}

// NewHealthHandler constructs HealthHandler.
func NewHealthHandler(facade ReportFacade) *HealthHandler {
	return &HealthHandler{facade: facade}
}

// Health handles GET /health. A failing report answers 503 with status "degraded".
func (h *HealthHandler) Health(c *gin.Context) {
	report, err := h.facade.Report(c.Request.Context())
	if err != nil {
		_ = c.Error(err)
		c.JSON(http.StatusServiceUnavailable, dto.HealthResponse{
			Status: dto.HealthStatusDegraded,
			Orders: map[string]int{},
			Error:  "status report unavailable",
		})
		return
	}
	c.JSON(http.StatusOK, dto.NewHealthResponse(*report))
}

// Root handles GET / by redirecting to the health endpoint.
func (h *HealthHandler) Root(c *gin.Context) {
	c.Redirect(http.StatusTemporaryRedirect, "/health")
}
