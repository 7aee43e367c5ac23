package service

import (
	"context"
	"errors"
	"fmt"
	"log"
	"time"

	"smart_parking_core/internal/domain"
	"smart_parking_core/internal/repository"

	"github.com/google/uuid"
	"gopkg.in/guregu/null.v4"
)

const (
	// Giao dịch PENDING quá hạn này sẽ bị quét sang TIMEOUT
	pendingTimeout = 30 * time.Minute
	// Số lần đọc lại và thử ghi khi version bị lệch
	maxVersionRetries = 3
)

type TransactionService struct {
	txRepo repository.TransactionRepository
	idGen  *IDGeneratorService
}

func NewTransactionService(txRepo repository.TransactionRepository, idGen *IDGeneratorService) *TransactionService {
	return &TransactionService{txRepo: txRepo, idGen: idGen}
}

// CreateTransaction tạo giao dịch mới, idempotent theo IdempotencyKey:
// gọi lại với cùng khóa trả về đúng bản ghi cũ, không ghi gì thêm.
// CASH hoàn tất ngay, MOMO/STRIPE chờ thanh toán với hạn 30 phút.
func (s *TransactionService) CreateTransaction(ctx context.Context, dto domain.CreateTransactionDTO) (*domain.Transaction, error) {
	key := dto.IdempotencyKey
	if key == "" {
		key = uuid.NewString()
	}

	existing, err := s.txRepo.FindByIdempotencyKey(ctx, key)
	if err == nil {
		log.Printf("TransactionService: idempotency key %s đã có giao dịch %s, trả về bản ghi cũ", key, existing.TransactionID)
		return existing, nil
	}
	if !errors.Is(err, repository.ErrNotFound) {
		return nil, fmt.Errorf("lỗi tra cứu idempotency key: %w", err)
	}

	transactionID, err := s.idGen.NextTransactionID(ctx)
	if err != nil {
		return nil, err
	}

	tx := &domain.Transaction{
		TransactionID:  transactionID,
		IdempotencyKey: key,
		Amount:         dto.Amount,
		Type:           domain.TransactionType(dto.Type),
		PaymentMethod:  domain.PaymentMethod(dto.PaymentMethod),
		Status:         domain.TxPending,
		Version:        1,
		Description:    dto.Description,
	}
	if dto.VehicleID != "" {
		tx.VehicleID = null.StringFrom(dto.VehicleID)
	}
	if dto.LicensePlate != "" {
		tx.LicensePlate = null.StringFrom(dto.LicensePlate)
	}
	if tx.PaymentMethod == domain.PayCash {
		tx.Status = domain.TxCompleted
	} else {
		tx.ExpiresAt = null.TimeFrom(time.Now().UTC().Add(pendingTimeout))
	}

	created, err := s.txRepo.Create(ctx, tx)
	if err != nil {
		if errors.Is(err, repository.ErrDuplicateEntry) {
			// Hai request cùng khóa đua nhau, request thua đọc lại bản ghi đã thắng
			return s.txRepo.FindByIdempotencyKey(ctx, key)
		}
		return nil, fmt.Errorf("lỗi tạo giao dịch: %w", err)
	}
	log.Printf("TransactionService: đã tạo giao dịch %s (%s, %s, %.0f)", created.TransactionID, created.Type, created.PaymentMethod, created.Amount)
	return created, nil
}

// UpdateTransaction ghi bản ghi với version mà caller đang giữ. Version lệch
// trả ErrConflict để caller tự đọc lại và quyết định.
func (s *TransactionService) UpdateTransaction(ctx context.Context, tx *domain.Transaction) (*domain.Transaction, error) {
	return s.txRepo.UpdateWithVersion(ctx, tx)
}

// UpdateStatus chuyển trạng thái giao dịch qua đường ghi có điều kiện,
// tự đọc lại và thử lại khi version lệch.
func (s *TransactionService) UpdateStatus(ctx context.Context, transactionID string, status domain.TransactionStatus, paymentRef string) (*domain.Transaction, error) {
	for attempt := 0; attempt < maxVersionRetries; attempt++ {
		tx, err := s.txRepo.FindByID(ctx, transactionID)
		if err != nil {
			return nil, err
		}
		if tx.Status == status {
			return tx, nil
		}
		tx.Status = status
		if paymentRef != "" {
			tx.PaymentRef = null.StringFrom(paymentRef)
		}
		updated, err := s.txRepo.UpdateWithVersion(ctx, tx)
		if err == nil {
			log.Printf("TransactionService: giao dịch %s chuyển sang %s", transactionID, status)
			return updated, nil
		}
		if !errors.Is(err, repository.ErrConflict) {
			return nil, err
		}
	}
	return nil, fmt.Errorf("%w: không cập nhật được giao dịch %s sau %d lần thử", repository.ErrConflict, transactionID, maxVersionRetries)
}

// HandleTimedOutTransactions quét các giao dịch PENDING quá 30 phút sang
// TIMEOUT. Lỗi từng bản ghi chỉ log rồi đi tiếp, không dừng cả đợt quét.
func (s *TransactionService) HandleTimedOutTransactions(ctx context.Context, now time.Time) (int, error) {
	cutoff := now.Add(-pendingTimeout)
	stale, err := s.txRepo.FindTimedOutPending(ctx, cutoff)
	if err != nil {
		return 0, fmt.Errorf("lỗi tìm giao dịch quá hạn: %w", err)
	}

	count := 0
	for i := range stale {
		tx := &stale[i]
		tx.Status = domain.TxTimeout
		if _, err := s.txRepo.UpdateWithVersion(ctx, tx); err != nil {
			if errors.Is(err, repository.ErrConflict) {
				// Giao dịch vừa được cập nhật bởi callback thanh toán, bỏ qua
				log.Printf("TransactionService: giao dịch %s thay đổi trong lúc quét timeout, bỏ qua", tx.TransactionID)
				continue
			}
			log.Printf("TransactionService: lỗi chuyển giao dịch %s sang TIMEOUT: %v", tx.TransactionID, err)
			continue
		}
		count++
	}
	if count > 0 {
		log.Printf("TransactionService: đã chuyển %d giao dịch quá hạn sang TIMEOUT", count)
	}
	return count, nil
}

func (s *TransactionService) GetByID(ctx context.Context, transactionID string) (*domain.Transaction, error) {
	return s.txRepo.FindByID(ctx, transactionID)
}

func (s *TransactionService) Find(ctx context.Context, filter domain.TransactionFilterDTO) ([]domain.Transaction, error) {
	return s.txRepo.Find(ctx, filter)
}

func (s *TransactionService) Revenue(ctx context.Context, from, to time.Time) (*domain.RevenueReport, error) {
	if to.Before(from) {
		return nil, fmt.Errorf("%w: khoảng thời gian ngược", repository.ErrInvalidInput)
	}
	return s.txRepo.Revenue(ctx, from, to)
}
