package handler

import (
	"errors"
	"log"
	"net/http"
	"strconv"

	"smart_parking_core/internal/domain"
	"smart_parking_core/internal/payment"
	"smart_parking_core/internal/repository"
	"smart_parking_core/internal/service"

	"github.com/gin-gonic/gin"
)

type PaymentHandler struct {
	txService      *service.TransactionService
	monthlyService *service.MonthlyVehicleService
	momoClient     *payment.MomoClient
}

func NewPaymentHandler(ts *service.TransactionService, ms *service.MonthlyVehicleService,
	momoClient *payment.MomoClient) *PaymentHandler {
	return &PaymentHandler{txService: ts, monthlyService: ms, momoClient: momoClient}
}

// POST /payments/momo/ipn
// Endpoint công khai cho Momo gọi về. Momo yêu cầu trả 204 khi đã nhận được
// thông báo, kể cả khi xử lý nghiệp vụ thất bại (sẽ đối soát sau).
func (h *PaymentHandler) MomoIPN(c *gin.Context) {
	var params payment.MomoIPNParams
	if err := c.ShouldBindJSON(&params); err != nil {
		log.Printf("PaymentHandler: IPN Momo không đúng định dạng: %v", err)
		c.Status(http.StatusBadRequest)
		return
	}

	if h.momoClient == nil || !h.momoClient.VerifyIPNSignature(params) {
		log.Printf("PaymentHandler: chữ ký IPN Momo không hợp lệ cho đơn %s", params.OrderID)
		c.Status(http.StatusForbidden)
		return
	}

	ctx := c.Request.Context()
	if params.ResultCode != 0 {
		log.Printf("PaymentHandler: Momo báo thất bại cho giao dịch %s: %s (code %d)",
			params.OrderID, params.Message, params.ResultCode)
		if _, err := h.txService.UpdateStatus(ctx, params.OrderID, domain.TxFailed, ""); err != nil {
			log.Printf("PaymentHandler: lỗi chuyển giao dịch %s sang FAILED: %v", params.OrderID, err)
		}
		c.Status(http.StatusNoContent)
		return
	}

	tx, err := h.txService.GetByID(ctx, params.OrderID)
	if err != nil {
		log.Printf("PaymentHandler: IPN Momo cho giao dịch không tồn tại %s: %v", params.OrderID, err)
		c.Status(http.StatusNoContent)
		return
	}
	if tx.Status == domain.TxTimeout {
		// Giao dịch đã bị quét timeout trước khi tiền về, cần đối soát tay
		log.Printf("PaymentHandler: giao dịch %s đã TIMEOUT nhưng Momo báo thành công, cần đối soát", tx.TransactionID)
		c.Status(http.StatusNoContent)
		return
	}

	if _, err := h.txService.UpdateStatus(ctx, params.OrderID, domain.TxCompleted,
		momoPaymentRef(params.TransID)); err != nil {
		log.Printf("PaymentHandler: lỗi hoàn tất giao dịch %s: %v", params.OrderID, err)
		c.Status(http.StatusNoContent)
		return
	}

	// extraData mang ID bản ghi chờ của đăng ký/gia hạn tháng
	if params.ExtraData != "" {
		if _, err := h.monthlyService.CompletePending(ctx, params.ExtraData, params.OrderID); err != nil {
			if !errors.Is(err, service.ErrPendingAlreadyCompleted) && !errors.Is(err, repository.ErrNotFound) {
				log.Printf("PaymentHandler: lỗi hoàn tất đăng ký chờ %s: %v", params.ExtraData, err)
			}
		}
	}
	c.Status(http.StatusNoContent)
}

func momoPaymentRef(transID int64) string {
	if transID == 0 {
		return ""
	}
	return "momo-" + strconv.FormatInt(transID, 10)
}

type stripeConfirmDTO struct {
	TransactionID   string `json:"transaction_id" binding:"required"`
	PaymentIntentID string `json:"payment_intent_id" binding:"required"`
	PendingID       string `json:"pending_id"`
}

// POST /api/v1/payments/stripe/confirm
// Client xác nhận PaymentIntent đã thành công (đã verify phía Stripe.js).
func (h *PaymentHandler) StripeConfirm(c *gin.Context) {
	var dto stripeConfirmDTO
	if err := c.ShouldBindJSON(&dto); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Dữ liệu không hợp lệ: " + err.Error()})
		return
	}

	ctx := c.Request.Context()
	tx, err := h.txService.UpdateStatus(ctx, dto.TransactionID, domain.TxCompleted, dto.PaymentIntentID)
	if err != nil {
		switch {
		case errors.Is(err, repository.ErrNotFound):
			c.JSON(http.StatusNotFound, gin.H{"error": "Không tìm thấy giao dịch"})
		case errors.Is(err, repository.ErrConflict):
			c.JSON(http.StatusConflict, gin.H{"error": err.Error()})
		default:
			c.JSON(http.StatusInternalServerError, gin.H{"error": "Lỗi hoàn tất giao dịch", "details": err.Error()})
		}
		return
	}

	if dto.PendingID != "" {
		mv, err := h.monthlyService.CompletePending(ctx, dto.PendingID, tx.TransactionID)
		if err != nil && !errors.Is(err, service.ErrPendingAlreadyCompleted) {
			c.JSON(http.StatusInternalServerError, gin.H{"error": "Lỗi kích hoạt đăng ký tháng", "details": err.Error()})
			return
		}
		c.JSON(http.StatusOK, gin.H{"transaction": tx, "monthly_vehicle": mv})
		return
	}
	c.JSON(http.StatusOK, gin.H{"transaction": tx})
}
