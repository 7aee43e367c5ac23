package domain

import (
	"time"

	"gopkg.in/guregu/null.v4"
)

type MonthlyStatus string

const (
	MonthlyValid     MonthlyStatus = "VALID"
	MonthlyExpired   MonthlyStatus = "EXPIRED"
	MonthlyCancelled MonthlyStatus = "CANCELLED"
)

// MonthlyVehicle là một đăng ký gửi xe tháng. VehicleID dạng MM001/MC001.
// Mỗi biển số chỉ có tối đa một đăng ký VALID tại một thời điểm.
type MonthlyVehicle struct {
	VehicleID       string        `json:"vehicle_id"`
	LicensePlate    string        `json:"license_plate"`
	Type            VehicleType   `json:"type"`
	FixedSlotID     null.String   `json:"fixed_slot_id"`
	StartDate       time.Time     `json:"start_date"`
	EndDate         time.Time     `json:"end_date"`
	Status          MonthlyStatus `json:"status"`
	PackageMonths   int           `json:"package_months"`
	AmountPaid      float64       `json:"amount_paid"`
	DiscountPercent float64       `json:"discount_percent"`
	CustomerName    string        `json:"customer_name"`
	CustomerEmail   string        `json:"customer_email"`
	CustomerPhone   string        `json:"customer_phone"`
	LastRenewalDate null.Time     `json:"last_renewal_date"`
	CreatedAt       time.Time     `json:"created_at"`
	UpdatedAt       time.Time     `json:"updated_at"`
}

type PendingKind string

const (
	KindRegistration PendingKind = "REGISTRATION"
	KindRenewal      PendingKind = "RENEWAL"
)

type PendingStatus string

const (
	PendingOpen      PendingStatus = "PENDING"
	PendingCompleted PendingStatus = "COMPLETED"
	PendingExpired   PendingStatus = "EXPIRED"
)

// PendingRegistration giữ thông tin đăng ký/gia hạn đang chờ thanh toán.
// CandidateSlotID chỉ là đề cử, slot chưa bị giữ cho đến khi hoàn tất.
type PendingRegistration struct {
	ID               string        `json:"id"`
	Kind             PendingKind   `json:"kind"`
	MonthlyVehicleID null.String   `json:"monthly_vehicle_id"`
	LicensePlate     string        `json:"license_plate"`
	Type             VehicleType   `json:"type"`
	Months           int           `json:"months"`
	Amount           float64       `json:"amount"`
	DiscountPercent  float64       `json:"discount_percent"`
	CandidateSlotID  null.String   `json:"candidate_slot_id"`
	CustomerName     string        `json:"customer_name"`
	CustomerEmail    string        `json:"customer_email"`
	CustomerPhone    string        `json:"customer_phone"`
	Status           PendingStatus `json:"status"`
	TransactionID    null.String   `json:"transaction_id"`
	CreatedAt        time.Time     `json:"created_at"`
	UpdatedAt        time.Time     `json:"updated_at"`
}

type RegisterMonthlyDTO struct {
	LicensePlate  string `json:"license_plate" binding:"required"`
	VehicleType   string `json:"vehicle_type" binding:"required,oneof=MOTORBIKE CAR"`
	Months        int    `json:"months" binding:"required,min=1"`
	CustomerName  string `json:"customer_name" binding:"required"`
	CustomerEmail string `json:"customer_email" binding:"required,email"`
	CustomerPhone string `json:"customer_phone"`
	PaymentMethod string `json:"payment_method" binding:"required,oneof=CASH MOMO STRIPE"`
}

type RenewMonthlyDTO struct {
	Months        int    `json:"months" binding:"required,min=1"`
	PaymentMethod string `json:"payment_method" binding:"required,oneof=CASH MOMO STRIPE"`
}

type CompletePendingDTO struct {
	PendingID     string `json:"pending_id" binding:"required"`
	TransactionID string `json:"transaction_id" binding:"required"`
}

type PackageQuoteDTO struct {
	VehicleType     string  `json:"vehicle_type"`
	Months          int     `json:"months"`
	BaseAmount      float64 `json:"base_amount"`
	DiscountPercent float64 `json:"discount_percent"`
	FinalAmount     float64 `json:"final_amount"`
}

type MonthlyVehicleFilterDTO struct {
	Status *string `form:"status"`
	Type   *string `form:"type"`
	Plate  *string `form:"plate"`
}
