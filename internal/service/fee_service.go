package service

import (
	"context"
	"errors"
	"fmt"
	"sort"

	"smart_parking_core/internal/domain"
	"smart_parking_core/internal/repository"
)

var ErrInvalidDiscountTiers = errors.New("các mức giảm giá chồng lấn hoặc không hợp lệ")

// Giá mặc định (VND) khi chưa có cấu hình trong DB.
const (
	defaultCasualFeeMotorbike  = 10000
	defaultCasualFeeCar        = 30000
	defaultMonthlyFeeMotorbike = 100000
	defaultMonthlyFeeCar       = 500000
)

func defaultDiscountTiers() []domain.DiscountTier {
	return []domain.DiscountTier{
		{MinMonths: 1, MaxMonths: 2, Percent: 0},
		{MinMonths: 3, MaxMonths: 5, Percent: 10},
		{MinMonths: 6, MaxMonths: 11, Percent: 20},
		{MinMonths: 12, MaxMonths: 0, Percent: 40},
	}
}

type FeeService struct {
	settingsRepo repository.SettingsRepository
}

func NewFeeService(settingsRepo repository.SettingsRepository) *FeeService {
	return &FeeService{settingsRepo: settingsRepo}
}

func (s *FeeService) GetSettings(ctx context.Context) (*domain.SystemSettings, error) {
	settings, err := s.settingsRepo.Get(ctx)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return &domain.SystemSettings{
				CasualFeeMotorbike:  defaultCasualFeeMotorbike,
				CasualFeeCar:        defaultCasualFeeCar,
				MonthlyFeeMotorbike: defaultMonthlyFeeMotorbike,
				MonthlyFeeCar:       defaultMonthlyFeeCar,
			}, nil
		}
		return nil, err
	}
	return settings, nil
}

func (s *FeeService) UpdateFees(ctx context.Context, dto domain.UpdateFeesDTO) (*domain.SystemSettings, error) {
	settings, err := s.GetSettings(ctx)
	if err != nil {
		return nil, err
	}
	if dto.CasualFeeMotorbike != nil {
		settings.CasualFeeMotorbike = *dto.CasualFeeMotorbike
	}
	if dto.CasualFeeCar != nil {
		settings.CasualFeeCar = *dto.CasualFeeCar
	}
	if dto.MonthlyFeeMotorbike != nil {
		settings.MonthlyFeeMotorbike = *dto.MonthlyFeeMotorbike
	}
	if dto.MonthlyFeeCar != nil {
		settings.MonthlyFeeCar = *dto.MonthlyFeeCar
	}
	return s.settingsRepo.Save(ctx, settings)
}

// CasualFee là phí cố định cho một lượt gửi vãng lai.
func (s *FeeService) CasualFee(ctx context.Context, vehicleType domain.VehicleType) (float64, error) {
	settings, err := s.GetSettings(ctx)
	if err != nil {
		return 0, err
	}
	if vehicleType == domain.VehicleMotorbike {
		return settings.CasualFeeMotorbike, nil
	}
	return settings.CasualFeeCar, nil
}

// MonthlyQuote tính giá gói tháng: đơn giá x số tháng, trừ giảm giá theo mức.
func (s *FeeService) MonthlyQuote(ctx context.Context, vehicleType domain.VehicleType, months int) (*domain.PackageQuoteDTO, error) {
	if months < 1 {
		return nil, fmt.Errorf("%w: số tháng phải lớn hơn 0", repository.ErrInvalidInput)
	}
	settings, err := s.GetSettings(ctx)
	if err != nil {
		return nil, err
	}
	monthlyFee := settings.MonthlyFeeCar
	if vehicleType == domain.VehicleMotorbike {
		monthlyFee = settings.MonthlyFeeMotorbike
	}

	tiers, err := s.settingsRepo.GetDiscountTiers(ctx)
	if err != nil {
		return nil, err
	}
	if len(tiers) == 0 {
		tiers = defaultDiscountTiers()
	}

	base := monthlyFee * float64(months)
	discount := DiscountFor(months, tiers)
	return &domain.PackageQuoteDTO{
		VehicleType:     string(vehicleType),
		Months:          months,
		BaseAmount:      base,
		DiscountPercent: discount,
		FinalAmount:     base * (1 - discount/100),
	}, nil
}

func DiscountFor(months int, tiers []domain.DiscountTier) float64 {
	for _, t := range tiers {
		if months >= t.MinMonths && (t.MaxMonths == 0 || months <= t.MaxMonths) {
			return t.Percent
		}
	}
	return 0
}

func (s *FeeService) GetDiscountTiers(ctx context.Context) ([]domain.DiscountTier, error) {
	tiers, err := s.settingsRepo.GetDiscountTiers(ctx)
	if err != nil {
		return nil, err
	}
	if len(tiers) == 0 {
		return defaultDiscountTiers(), nil
	}
	return tiers, nil
}

func (s *FeeService) ReplaceDiscountTiers(ctx context.Context, tiers []domain.DiscountTier) error {
	if err := ValidateDiscountTiers(tiers); err != nil {
		return err
	}
	return s.settingsRepo.ReplaceDiscountTiers(ctx, tiers)
}

// ValidateDiscountTiers kiểm tra các khoảng tháng không chồng lấn nhau.
// MaxMonths = 0 (không giới hạn trên) chỉ được phép ở mức cuối cùng.
func ValidateDiscountTiers(tiers []domain.DiscountTier) error {
	if len(tiers) == 0 {
		return fmt.Errorf("%w: danh sách mức giảm giá rỗng", ErrInvalidDiscountTiers)
	}
	sorted := make([]domain.DiscountTier, len(tiers))
	copy(sorted, tiers)
	sort.Slice(sorted, func(i, j int) bool { return sorted[i].MinMonths < sorted[j].MinMonths })

	for i, t := range sorted {
		if t.MinMonths < 1 || t.Percent < 0 || t.Percent > 100 {
			return fmt.Errorf("%w: mức [%d-%d] %.0f%%", ErrInvalidDiscountTiers, t.MinMonths, t.MaxMonths, t.Percent)
		}
		if t.MaxMonths != 0 && t.MaxMonths < t.MinMonths {
			return fmt.Errorf("%w: mức [%d-%d] có khoảng ngược", ErrInvalidDiscountTiers, t.MinMonths, t.MaxMonths)
		}
		if t.MaxMonths == 0 && i != len(sorted)-1 {
			return fmt.Errorf("%w: mức không giới hạn trên phải là mức cuối", ErrInvalidDiscountTiers)
		}
		if i > 0 {
			prev := sorted[i-1]
			if prev.MaxMonths == 0 || t.MinMonths <= prev.MaxMonths {
				return fmt.Errorf("%w: mức [%d-%d] chồng lấn với mức [%d-%d]",
					ErrInvalidDiscountTiers, t.MinMonths, t.MaxMonths, prev.MinMonths, prev.MaxMonths)
			}
		}
	}
	return nil
}
