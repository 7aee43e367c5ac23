package handler

import (
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"strings"

	"smart_parking_core/internal/domain"
	"smart_parking_core/internal/payment"
	"smart_parking_core/internal/repository"
	"smart_parking_core/internal/service"

	"github.com/gin-gonic/gin"
)

type MonthlyVehicleHandler struct {
	monthlyService *service.MonthlyVehicleService
	txService      *service.TransactionService
	momoClient     *payment.MomoClient
	stripeClient   *payment.StripeClient
}

func NewMonthlyVehicleHandler(ms *service.MonthlyVehicleService, ts *service.TransactionService,
	momoClient *payment.MomoClient, stripeClient *payment.StripeClient) *MonthlyVehicleHandler {
	return &MonthlyVehicleHandler{
		monthlyService: ms,
		txService:      ts,
		momoClient:     momoClient,
		stripeClient:   stripeClient,
	}
}

// POST /api/v1/monthly-vehicles/register
func (h *MonthlyVehicleHandler) Register(c *gin.Context) {
	var dto domain.RegisterMonthlyDTO
	if err := c.ShouldBindJSON(&dto); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Dữ liệu không hợp lệ: " + err.Error()})
		return
	}

	pending, err := h.monthlyService.CreatePendingRegistration(c.Request.Context(), dto)
	if err != nil {
		switch {
		case errors.Is(err, service.ErrMonthlyAlreadyRegistered):
			c.JSON(http.StatusConflict, gin.H{"error": err.Error()})
		case errors.Is(err, repository.ErrSlotExhausted):
			c.JSON(http.StatusConflict, gin.H{"error": err.Error()})
		case errors.Is(err, repository.ErrInvalidInput):
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		default:
			c.JSON(http.StatusInternalServerError, gin.H{"error": "Lỗi tạo đăng ký tháng", "details": err.Error()})
		}
		return
	}

	h.initiatePayment(c, pending, domain.TxMonthlySubscription, dto.PaymentMethod)
}

// POST /api/v1/monthly-vehicles/:id/renew
func (h *MonthlyVehicleHandler) Renew(c *gin.Context) {
	var dto domain.RenewMonthlyDTO
	if err := c.ShouldBindJSON(&dto); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Dữ liệu không hợp lệ: " + err.Error()})
		return
	}

	pending, err := h.monthlyService.CreatePendingRenewal(c.Request.Context(), c.Param("id"), dto)
	if err != nil {
		switch {
		case errors.Is(err, repository.ErrNotFound):
			c.JSON(http.StatusNotFound, gin.H{"error": "Không tìm thấy đăng ký tháng"})
		case errors.Is(err, repository.ErrInvalidInput):
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		default:
			c.JSON(http.StatusInternalServerError, gin.H{"error": "Lỗi tạo yêu cầu gia hạn", "details": err.Error()})
		}
		return
	}

	h.initiatePayment(c, pending, domain.TxMonthlyRenewal, dto.PaymentMethod)
}

// initiatePayment tạo giao dịch cho bản ghi chờ rồi đi tiếp theo phương thức
// thanh toán: CASH hoàn tất tại chỗ, MOMO/STRIPE trả về thông tin thanh toán
// cho client và chờ callback.
func (h *MonthlyVehicleHandler) initiatePayment(c *gin.Context, pending *domain.PendingRegistration,
	txType domain.TransactionType, paymentMethod string) {
	ctx := c.Request.Context()

	tx, err := h.txService.CreateTransaction(ctx, domain.CreateTransactionDTO{
		IdempotencyKey: "pending-" + pending.ID,
		LicensePlate:   pending.LicensePlate,
		Amount:         pending.Amount,
		Type:           string(txType),
		PaymentMethod:  paymentMethod,
		Description:    fmt.Sprintf("Gói tháng %d tháng cho biển %s", pending.Months, pending.LicensePlate),
	})
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Lỗi tạo giao dịch thanh toán", "details": err.Error()})
		return
	}

	switch domain.PaymentMethod(paymentMethod) {
	case domain.PayCash:
		mv, err := h.monthlyService.CompletePending(ctx, pending.ID, tx.TransactionID)
		if err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": "Lỗi kích hoạt đăng ký tháng", "details": err.Error()})
			return
		}
		c.JSON(http.StatusCreated, gin.H{"monthly_vehicle": mv, "transaction": tx})

	case domain.PayMomo:
		if h.momoClient == nil {
			c.JSON(http.StatusServiceUnavailable, gin.H{"error": "Thanh toán Momo chưa được cấu hình"})
			return
		}
		resp, err := h.momoClient.CreatePayment(ctx, tx.TransactionID, int64(pending.Amount),
			fmt.Sprintf("Gói gửi xe tháng %s", pending.LicensePlate), pending.ID)
		if err != nil {
			c.JSON(http.StatusBadGateway, gin.H{"error": "Lỗi tạo thanh toán Momo", "details": err.Error()})
			return
		}
		c.JSON(http.StatusCreated, gin.H{"pending": pending, "transaction": tx, "pay_url": resp.PayURL})

	case domain.PayStripe:
		if h.stripeClient == nil {
			c.JSON(http.StatusServiceUnavailable, gin.H{"error": "Thanh toán Stripe chưa được cấu hình"})
			return
		}
		pi, err := h.stripeClient.CreatePaymentIntent(int64(pending.Amount), tx.TransactionID,
			fmt.Sprintf("Gói gửi xe tháng %s", pending.LicensePlate))
		if err != nil {
			c.JSON(http.StatusBadGateway, gin.H{"error": "Lỗi tạo thanh toán Stripe", "details": err.Error()})
			return
		}
		c.JSON(http.StatusCreated, gin.H{"pending": pending, "transaction": tx, "client_secret": pi.ClientSecret})

	default:
		c.JSON(http.StatusBadRequest, gin.H{"error": "Phương thức thanh toán không được hỗ trợ: " + paymentMethod})
	}
}

// POST /api/v1/monthly-vehicles/:id/cancel
func (h *MonthlyVehicleHandler) Cancel(c *gin.Context) {
	mv, err := h.monthlyService.Cancel(c.Request.Context(), c.Param("id"))
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"error": "Không tìm thấy đăng ký tháng"})
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Lỗi hủy đăng ký tháng", "details": err.Error()})
		return
	}
	c.JSON(http.StatusOK, mv)
}

// GET /api/v1/monthly-vehicles
func (h *MonthlyVehicleHandler) Find(c *gin.Context) {
	var filter domain.MonthlyVehicleFilterDTO
	if err := c.ShouldBindQuery(&filter); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Tham số lọc không hợp lệ: " + err.Error()})
		return
	}
	vehicles, err := h.monthlyService.Find(c.Request.Context(), filter)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Lỗi lấy danh sách xe tháng", "details": err.Error()})
		return
	}
	c.JSON(http.StatusOK, vehicles)
}

// GET /api/v1/monthly-vehicles/:id
func (h *MonthlyVehicleHandler) GetByID(c *gin.Context) {
	mv, err := h.monthlyService.GetByID(c.Request.Context(), c.Param("id"))
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"error": "Không tìm thấy đăng ký tháng"})
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Lỗi lấy đăng ký tháng", "details": err.Error()})
		return
	}
	c.JSON(http.StatusOK, mv)
}

// GET /api/v1/monthly-vehicles/quote?vehicle_type=CAR&months=6
func (h *MonthlyVehicleHandler) Quote(c *gin.Context) {
	vehicleType := strings.ToUpper(c.Query("vehicle_type"))
	if vehicleType != string(domain.VehicleMotorbike) && vehicleType != string(domain.VehicleCar) {
		c.JSON(http.StatusBadRequest, gin.H{"error": "vehicle_type phải là MOTORBIKE hoặc CAR"})
		return
	}
	months, err := strconv.Atoi(c.Query("months"))
	if err != nil || months < 1 {
		c.JSON(http.StatusBadRequest, gin.H{"error": "months phải là số nguyên dương"})
		return
	}

	quote, err := h.monthlyService.CalculatePackagePrice(c.Request.Context(), domain.VehicleType(vehicleType), months)
	if err != nil {
		if errors.Is(err, repository.ErrInvalidInput) {
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Lỗi tính giá gói tháng", "details": err.Error()})
		return
	}
	c.JSON(http.StatusOK, quote)
}
