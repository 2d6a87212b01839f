package http

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/nekogravitycat/library-booking-backend/internal/auth"
	"github.com/nekogravitycat/library-booking-backend/internal/payment"
	"github.com/nekogravitycat/library-booking-backend/internal/pkg/money"
	"github.com/nekogravitycat/library-booking-backend/internal/pkg/response"
)

type Handler struct {
	service payment.Service
}

func NewHandler(service payment.Service) *Handler {
	return &Handler{service: service}
}

// CreateOrder opens a gateway order for the client-side checkout.
func (h *Handler) CreateOrder(c *gin.Context) {
	var body CreateOrderBody
	if err := c.ShouldBindJSON(&body); err != nil {
		response.Fail(c, http.StatusBadRequest, "validation_error", "invalid request body: "+err.Error())
		return
	}

	studentID := body.StudentID
	if studentID == "" {
		studentID = auth.GetUserID(c)
	}
	if auth.GetUserRole(c) == auth.RoleStudent && studentID != auth.GetUserID(c) {
		response.Fail(c, http.StatusForbidden, "forbidden", "students can only pay for themselves")
		return
	}

	p, err := h.service.CreateOrder(c.Request.Context(), payment.CreateOrderRequest{
		LibrarianID: body.LibrarianID,
		StudentID:   studentID,
		Amount:      money.FromMajor(body.Amount),
	})
	if err != nil {
		response.Error(c, err)
		return
	}

	response.OK(c, http.StatusCreated, "order created", CreateOrderResponse{
		OrderID:   p.GatewayOrderID,
		Amount:    int64(p.Amount),
		Currency:  p.Currency,
		PaymentID: p.ID,
	})
}

// Webhook reconciles the gateway's capture callback. It is authenticated by signature only.
func (h *Handler) Webhook(c *gin.Context) {
	var body WebhookBody
	if err := c.ShouldBindJSON(&body); err != nil {
		response.Fail(c, http.StatusBadRequest, "validation_error", "invalid webhook body: "+err.Error())
		return
	}

	res, err := h.service.HandleWebhook(c.Request.Context(), payment.WebhookRequest{
		Event:            body.Event,
		GatewayOrderID:   body.RazorpayOrderID,
		GatewayPaymentID: body.RazorpayPaymentID,
		Signature:        body.RazorpaySignature,
		StudentID:        body.StudentID,
		LibrarianID:      body.LibrarianID,
	})
	if err != nil {
		response.Error(c, err)
		return
	}

	switch res.Outcome {
	case payment.OutcomeIgnored:
		response.OK(c, http.StatusOK, "event ignored", nil)
	case payment.OutcomeDuplicate:
		response.OK(c, http.StatusOK, "payment already processed", NewPaymentResponse(res.Payment))
	default:
		response.OK(c, http.StatusOK, "payment captured and transferred", NewPaymentResponse(res.Payment))
	}
}

func (h *Handler) Get(c *gin.Context) {
	var req OrderIDRequest
	if err := c.ShouldBindUri(&req); err != nil {
		response.Fail(c, http.StatusBadRequest, "validation_error", "invalid order id")
		return
	}

	p, err := h.service.GetByOrderID(c.Request.Context(), req.OrderID)
	if err != nil {
		response.Error(c, err)
		return
	}
	if auth.GetUserRole(c) == auth.RoleStudent && p.StudentID != auth.GetUserID(c) {
		response.Error(c, payment.ErrNotFound)
		return
	}

	response.OK(c, http.StatusOK, "payment fetched", NewPaymentResponse(p))
}

func (h *Handler) RetryPayout(c *gin.Context) {
	var req OrderIDRequest
	if err := c.ShouldBindUri(&req); err != nil {
		response.Fail(c, http.StatusBadRequest, "validation_error", "invalid order id")
		return
	}

	p, err := h.service.RetryPayout(c.Request.Context(), req.OrderID)
	if err != nil {
		response.Error(c, err)
		return
	}

	response.OK(c, http.StatusOK, "payout completed", NewPaymentResponse(p))
}

// ConfirmPayout settles a payout whose transfer went out but was never recorded.
func (h *Handler) ConfirmPayout(c *gin.Context) {
	var req OrderIDRequest
	if err := c.ShouldBindUri(&req); err != nil {
		response.Fail(c, http.StatusBadRequest, "validation_error", "invalid order id")
		return
	}
	var body ConfirmPayoutBody
	if err := c.ShouldBindJSON(&body); err != nil {
		response.Error(c, payment.ErrMissingTransferID)
		return
	}

	p, err := h.service.ConfirmPayout(c.Request.Context(), req.OrderID, body.TransferID)
	if err != nil {
		response.Error(c, err)
		return
	}

	response.OK(c, http.StatusOK, "payout confirmed", NewPaymentResponse(p))
}
