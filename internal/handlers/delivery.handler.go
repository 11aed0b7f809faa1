package handlers

import (
	"context"
	"encoding/json"
	"errors"

	"github.com/fasthttp/router"
	"github.com/swiftroute/delivery-gateway/internal/model"
	"github.com/swiftroute/delivery-gateway/internal/services"
	xhttp "github.com/swiftroute/delivery-gateway/pkg/http"
)

type CompletionService interface {
	CompleteDelivery(ctx context.Context, req model.CompleteOrderRequest) (*model.CompletionResult, error)
	FailDelivery(ctx context.Context, req model.FailOrderRequest) (*model.CompletionResult, error)
}

type EvidenceService interface {
	GetDeliveryEvidence(ctx context.Context, orderID string) (*model.DeliveryEvidence, error)
	InspectLegacyPhotoField(ctx context.Context, orderID string) (*services.LegacyFieldReport, error)
}

type DeliveryHandler struct {
	completionSvc CompletionService
	evidenceSvc   EvidenceService
}

func RegisterDeliveryRoutes(e *router.Group, h *DeliveryHandler) {
	e.POST("/orders/complete", h.CompleteOrder)
	e.POST("/orders/fail", h.FailOrder)
	e.GET("/orders/{id}/evidence", h.GetEvidence)
	e.GET("/orders/{id}/evidence/legacy", h.InspectLegacyField)
}

func NewDeliveryHandler(completionSvc CompletionService, evidenceSvc EvidenceService) *DeliveryHandler {
	return &DeliveryHandler{
		completionSvc: completionSvc,
		evidenceSvc:   evidenceSvc,
	}
}

/* --------------------------------- Routes ----------------------------------- */

func (h *DeliveryHandler) CompleteOrder(ctx *xhttp.RequestCtx) {
	var req model.CompleteOrderRequest
	if err := readJSON(ctx, &req); err != nil {
		writeError(ctx, xhttp.StatusBadRequest, "invalid JSON: "+err.Error())
		return
	}

	result, err := h.completionSvc.CompleteDelivery(ctx, req)
	if err != nil {
		writeServiceError(ctx, err)
		return
	}
	writeJSON(ctx, xhttp.StatusOK, result)
}

func (h *DeliveryHandler) FailOrder(ctx *xhttp.RequestCtx) {
	var req model.FailOrderRequest
	if err := readJSON(ctx, &req); err != nil {
		writeError(ctx, xhttp.StatusBadRequest, "invalid JSON: "+err.Error())
		return
	}

	result, err := h.completionSvc.FailDelivery(ctx, req)
	if err != nil {
		writeServiceError(ctx, err)
		return
	}
	writeJSON(ctx, xhttp.StatusOK, result)
}

func (h *DeliveryHandler) GetEvidence(ctx *xhttp.RequestCtx) {
	orderID, ok := ctx.UserValue("id").(string)
	if !ok || orderID == "" {
		writeError(ctx, xhttp.StatusBadRequest, "order id is required")
		return
	}

	evidence, err := h.evidenceSvc.GetDeliveryEvidence(ctx, orderID)
	if err != nil {
		writeServiceError(ctx, err)
		return
	}
	writeJSON(ctx, xhttp.StatusOK, evidence)
}

func (h *DeliveryHandler) InspectLegacyField(ctx *xhttp.RequestCtx) {
	orderID, ok := ctx.UserValue("id").(string)
	if !ok || orderID == "" {
		writeError(ctx, xhttp.StatusBadRequest, "order id is required")
		return
	}

	report, err := h.evidenceSvc.InspectLegacyPhotoField(ctx, orderID)
	if err != nil {
		writeServiceError(ctx, err)
		return
	}
	writeJSON(ctx, xhttp.StatusOK, report)
}

// writeServiceError maps service-layer errors onto status codes: validation
// problems are 400, unknown or foreign orders 404, ineligible states 409 and
// persistence failures 500.
func writeServiceError(ctx *xhttp.RequestCtx, err error) {
	switch {
	case errors.Is(err, model.ErrMissingIdentifiers),
		errors.Is(err, model.ErrRecipientRequired),
		errors.Is(err, model.ErrPhotoRequired),
		errors.Is(err, model.ErrFailureReasonRequired):
		writeError(ctx, xhttp.StatusBadRequest, err.Error())
	case errors.Is(err, services.ErrOrderNotFound):
		writeError(ctx, xhttp.StatusNotFound, err.Error())
	case errors.Is(err, services.ErrOrderNotEligible),
		errors.Is(err, services.ErrOrderNotTerminal):
		writeError(ctx, xhttp.StatusConflict, err.Error())
	default:
		var critical *services.CriticalPersistenceError
		if errors.As(err, &critical) {
			writeError(ctx, xhttp.StatusInternalServerError, critical.Error())
			return
		}
		writeError(ctx, xhttp.StatusInternalServerError, err.Error())
	}
}

func readJSON(ctx *xhttp.RequestCtx, dst any) error {
	body := ctx.PostBody()
	return json.Unmarshal(body, dst)
}

func writeJSON(ctx *xhttp.RequestCtx, status int, v any) {
	b, _ := json.Marshal(v)
	ctx.Response.Header.Set("Content-Type", "application/json; charset=utf-8")
	ctx.Response.SetStatusCode(status)
	ctx.Response.SetBodyRaw(b)
}

func writeError(ctx *xhttp.RequestCtx, status int, msg string) {
	writeJSON(ctx, status, map[string]string{"error": msg})
}
