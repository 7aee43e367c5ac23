package domain

import (
	"time"

	"gopkg.in/guregu/null.v4"
)

type SlotStatus string

const (
	SlotAvailable SlotStatus = "AVAILABLE"
	SlotOccupied  SlotStatus = "OCCUPIED"
	SlotReserved  SlotStatus = "RESERVED"
)

type VehicleType string

const (
	VehicleMotorbike VehicleType = "MOTORBIKE"
	VehicleCar       VehicleType = "CAR"
)

// ParkingSlot là một chỗ đỗ cố định. SlotID có dạng M001/C001 theo loại xe,
// loại của slot không bao giờ thay đổi sau khi tạo.
type ParkingSlot struct {
	SlotID           string      `json:"slot_id"`
	Type             VehicleType `json:"type"`
	Status           SlotStatus  `json:"status"`
	CurrentVehicleID null.String `json:"current_vehicle_id"`
	CreatedAt        time.Time   `json:"created_at"`
	UpdatedAt        time.Time   `json:"updated_at"`
}

type AdjustSpacesDTO struct {
	MotorbikeSlots int `json:"motorbike_slots" binding:"min=0"`
	CarSlots       int `json:"car_slots" binding:"min=0"`
}

type SlotSummaryDTO struct {
	Type      VehicleType `json:"type"`
	Total     int         `json:"total"`
	Available int         `json:"available"`
	Reserved  int         `json:"reserved"`
	Occupied  int         `json:"occupied"`
}
