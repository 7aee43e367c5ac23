package domain

import "time"

// SystemSettings là cấu hình vận hành của bãi xe, lưu một dòng duy nhất trong DB.
type SystemSettings struct {
	MotorbikeSlots      int       `json:"motorbike_slots"`
	CarSlots            int       `json:"car_slots"`
	CasualFeeMotorbike  float64   `json:"casual_fee_motorbike"`
	CasualFeeCar        float64   `json:"casual_fee_car"`
	MonthlyFeeMotorbike float64   `json:"monthly_fee_motorbike"`
	MonthlyFeeCar       float64   `json:"monthly_fee_car"`
	UpdatedAt           time.Time `json:"updated_at"`
}

// DiscountTier giảm giá theo số tháng đăng ký, các khoảng không được chồng lấn.
// MaxMonths = 0 nghĩa là không giới hạn trên.
type DiscountTier struct {
	MinMonths int     `json:"min_months"`
	MaxMonths int     `json:"max_months"`
	Percent   float64 `json:"percent"`
}

type UpdateFeesDTO struct {
	CasualFeeMotorbike  *float64 `json:"casual_fee_motorbike"`
	CasualFeeCar        *float64 `json:"casual_fee_car"`
	MonthlyFeeMotorbike *float64 `json:"monthly_fee_motorbike"`
	MonthlyFeeCar       *float64 `json:"monthly_fee_car"`
}
