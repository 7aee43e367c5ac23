package domain

import (
	"time"

	"gopkg.in/guregu/null.v4"
)

type TransactionStatus string

const (
	TxPending   TransactionStatus = "PENDING"
	TxCompleted TransactionStatus = "COMPLETED"
	TxFailed    TransactionStatus = "FAILED"
	TxTimeout   TransactionStatus = "TIMEOUT"
)

type TransactionType string

const (
	TxParkingFee          TransactionType = "PARKING_FEE"
	TxMonthlySubscription TransactionType = "MONTHLY_SUBSCRIPTION"
	TxMonthlyRenewal      TransactionType = "MONTHLY_RENEWAL"
)

type PaymentMethod string

const (
	PayCash   PaymentMethod = "CASH"
	PayMomo   PaymentMethod = "MOMO"
	PayStripe PaymentMethod = "STRIPE"
)

// Transaction là một dòng trong sổ giao dịch. IdempotencyKey là duy nhất,
// Version tăng mỗi lần cập nhật và dùng làm điều kiện ghi (optimistic lock).
type Transaction struct {
	TransactionID  string            `json:"transaction_id"`
	IdempotencyKey string            `json:"idempotency_key"`
	VehicleID      null.String       `json:"vehicle_id"`
	LicensePlate   null.String       `json:"license_plate"`
	Amount         float64           `json:"amount"`
	Type           TransactionType   `json:"type"`
	PaymentMethod  PaymentMethod     `json:"payment_method"`
	Status         TransactionStatus `json:"status"`
	Version        int               `json:"version"`
	Description    string            `json:"description"`
	PaymentRef     null.String       `json:"payment_ref"`
	ExpiresAt      null.Time         `json:"expires_at"`
	CreatedAt      time.Time         `json:"created_at"`
	UpdatedAt      time.Time         `json:"updated_at"`
}

type CreateTransactionDTO struct {
	IdempotencyKey string  `json:"idempotency_key"`
	VehicleID      string  `json:"vehicle_id"`
	LicensePlate   string  `json:"license_plate"`
	Amount         float64 `json:"amount" binding:"required,min=0"`
	Type           string  `json:"type" binding:"required,oneof=PARKING_FEE MONTHLY_SUBSCRIPTION MONTHLY_RENEWAL"`
	PaymentMethod  string  `json:"payment_method" binding:"required,oneof=CASH MOMO STRIPE"`
	Description    string  `json:"description"`
}

type TransactionFilterDTO struct {
	Status        *string    `form:"status"`
	Type          *string    `form:"type"`
	PaymentMethod *string    `form:"paymentMethod"`
	From          *time.Time `form:"from" time_format:"2006-01-02"`
	To            *time.Time `form:"to" time_format:"2006-01-02"`
}

// RevenueReport tổng hợp doanh thu trong một khoảng thời gian.
type RevenueReport struct {
	From            time.Time          `json:"from"`
	To              time.Time          `json:"to"`
	TotalRevenue    float64            `json:"total_revenue"`
	ByPaymentMethod map[string]float64 `json:"by_payment_method"`
	ByType          map[string]float64 `json:"by_type"`
	CompletedCount  int                `json:"completed_count"`
}
