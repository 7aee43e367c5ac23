package handler

import (
	"errors"
	"net/http"
	"time"

	"smart_parking_core/internal/domain"
	"smart_parking_core/internal/repository"
	"smart_parking_core/internal/service"

	"github.com/gin-gonic/gin"
)

type TransactionHandler struct {
	txService *service.TransactionService
}

func NewTransactionHandler(ts *service.TransactionService) *TransactionHandler {
	return &TransactionHandler{txService: ts}
}

// POST /api/v1/transactions
// Tạo giao dịch thủ công (thu tiền mặt tại quầy). Client có thể gửi kèm
// idempotency_key để retry an toàn.
func (h *TransactionHandler) Create(c *gin.Context) {
	var dto domain.CreateTransactionDTO
	if err := c.ShouldBindJSON(&dto); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Dữ liệu không hợp lệ: " + err.Error()})
		return
	}

	tx, err := h.txService.CreateTransaction(c.Request.Context(), dto)
	if err != nil {
		if errors.Is(err, repository.ErrInvalidInput) {
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Lỗi tạo giao dịch", "details": err.Error()})
		return
	}
	c.JSON(http.StatusCreated, tx)
}

// GET /api/v1/transactions
func (h *TransactionHandler) Find(c *gin.Context) {
	var filter domain.TransactionFilterDTO
	if err := c.ShouldBindQuery(&filter); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Tham số lọc không hợp lệ: " + err.Error()})
		return
	}
	transactions, err := h.txService.Find(c.Request.Context(), filter)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Lỗi lấy danh sách giao dịch", "details": err.Error()})
		return
	}
	c.JSON(http.StatusOK, transactions)
}

// GET /api/v1/transactions/:id
func (h *TransactionHandler) GetByID(c *gin.Context) {
	tx, err := h.txService.GetByID(c.Request.Context(), c.Param("id"))
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"error": "Không tìm thấy giao dịch"})
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Lỗi lấy giao dịch", "details": err.Error()})
		return
	}
	c.JSON(http.StatusOK, tx)
}

// GET /api/v1/transactions/revenue?from=2025-01-01&to=2025-01-31
func (h *TransactionHandler) Revenue(c *gin.Context) {
	from, err := time.Parse("2006-01-02", c.Query("from"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Tham số from không hợp lệ, cần dạng YYYY-MM-DD"})
		return
	}
	to, err := time.Parse("2006-01-02", c.Query("to"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Tham số to không hợp lệ, cần dạng YYYY-MM-DD"})
		return
	}
	// Lấy trọn ngày cuối
	to = to.AddDate(0, 0, 1)

	report, err := h.txService.Revenue(c.Request.Context(), from, to)
	if err != nil {
		if errors.Is(err, repository.ErrInvalidInput) {
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Lỗi tổng hợp doanh thu", "details": err.Error()})
		return
	}
	c.JSON(http.StatusOK, report)
}
