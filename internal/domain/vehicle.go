package domain

import (
	"time"

	"gopkg.in/guregu/null.v4"
)

type VehicleStatus string

const (
	VehicleParked VehicleStatus = "PARKED"
	VehicleLeft   VehicleStatus = "LEFT"
)

// Vehicle là một lượt gửi xe. VehicleID dạng M001/C001 cho xe vãng lai,
// xe tháng dùng lại ID của MonthlyVehicle (MM001/MC001).
type Vehicle struct {
	VehicleID    string        `json:"vehicle_id"`
	LicensePlate string        `json:"license_plate"`
	Type         VehicleType   `json:"type"`
	Status       VehicleStatus `json:"status"`
	SlotID       string        `json:"slot_id"`
	IsMonthly    bool          `json:"is_monthly"`
	EntryTime    time.Time     `json:"entry_time"`
	ExitTime     null.Time     `json:"exit_time"`
	CreatedAt    time.Time     `json:"created_at"`
	UpdatedAt    time.Time     `json:"updated_at"`
}

type VehicleCheckInDTO struct {
	LicensePlate string `json:"license_plate" binding:"required"`
	VehicleType  string `json:"vehicle_type" binding:"required,oneof=MOTORBIKE CAR"`
}

type VehicleCheckOutDTO struct {
	VehicleID    string `json:"vehicle_id"`
	LicensePlate string `json:"license_plate"`
}

type CheckInResultDTO struct {
	Vehicle *Vehicle     `json:"vehicle"`
	Slot    *ParkingSlot `json:"slot"`
}

type CheckOutResultDTO struct {
	Vehicle     *Vehicle     `json:"vehicle"`
	Fee         float64      `json:"fee"`
	Transaction *Transaction `json:"transaction,omitempty"`
}
