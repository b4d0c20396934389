package handlers

import (
	"context"
	"net/http"

	"stockflow/internal/models"

	"github.com/labstack/echo/v4"
)

// UsageReporter reports the current tenant's usage against its plan.
type UsageReporter interface {
	Usage(ctx context.Context) (*models.UsageReport, error)
}

// SubscriptionHandlers handles HTTP requests for subscriptions
type SubscriptionHandlers struct {
	usage UsageReporter
}

func NewSubscriptionHandlers(usage UsageReporter) *SubscriptionHandlers {
	return &SubscriptionHandlers{usage: usage}
}

// GetUsage handles GET /api/subscription/usage
//
//	@Summary	Current tenant usage against its plan
//	@Tags		subscription
//	@Produce	json
//	@Security	BearerAuth
//	@Success	200	{object}	models.UsageReport
//	@Failure	400	{object}	common.ErrorResponse
//	@Router		/api/subscription/usage [get]
func (h *SubscriptionHandlers) GetUsage(c echo.Context) error {
	report, err := h.usage.Usage(c.Request().Context())
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(http.StatusOK, report)
}
