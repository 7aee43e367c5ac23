package service

import (
	"context"
	"sync"
	"testing"
	"time"

	"smart_parking_core/internal/domain"
	"smart_parking_core/internal/repository"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestTransactionService() (*TransactionService, *fakeTransactionRepo) {
	txRepo := newFakeTransactionRepo()
	return NewTransactionService(txRepo, NewIDGeneratorService(newFakeSequenceRepo())), txRepo
}

func TestCreateTransaction_TienMatHoanTatNgay(t *testing.T) {
	svc, _ := newTestTransactionService()

	tx, err := svc.CreateTransaction(context.Background(), domain.CreateTransactionDTO{
		IdempotencyKey: "key-1",
		Amount:         30000,
		Type:           string(domain.TxParkingFee),
		PaymentMethod:  string(domain.PayCash),
	})
	require.NoError(t, err)
	assert.Equal(t, "TRX000001", tx.TransactionID)
	assert.Equal(t, domain.TxCompleted, tx.Status)
	assert.Equal(t, 1, tx.Version)
	assert.False(t, tx.ExpiresAt.Valid)
}

func TestCreateTransaction_MomoChoThanhToanCoHan(t *testing.T) {
	svc, _ := newTestTransactionService()

	tx, err := svc.CreateTransaction(context.Background(), domain.CreateTransactionDTO{
		IdempotencyKey: "key-1",
		Amount:         1350000,
		Type:           string(domain.TxMonthlySubscription),
		PaymentMethod:  string(domain.PayMomo),
	})
	require.NoError(t, err)
	assert.Equal(t, domain.TxPending, tx.Status)
	require.True(t, tx.ExpiresAt.Valid)
	assert.WithinDuration(t, time.Now().UTC().Add(30*time.Minute), tx.ExpiresAt.Time, 5*time.Second)
}

func TestCreateTransaction_IdempotentTheoKhoa(t *testing.T) {
	svc, _ := newTestTransactionService()
	ctx := context.Background()

	dto := domain.CreateTransactionDTO{
		IdempotencyKey: "checkout-M001-12345",
		Amount:         10000,
		Type:           string(domain.TxParkingFee),
		PaymentMethod:  string(domain.PayCash),
	}
	first, err := svc.CreateTransaction(ctx, dto)
	require.NoError(t, err)

	// Gọi lại với cùng khóa: trả về đúng bản ghi cũ, không tạo thêm
	second, err := svc.CreateTransaction(ctx, dto)
	require.NoError(t, err)
	assert.Equal(t, first.TransactionID, second.TransactionID)

	all, err := svc.Find(ctx, domain.TransactionFilterDTO{})
	require.NoError(t, err)
	assert.Len(t, all, 1)
}

func TestCreateTransaction_DongThoiCungKhoaChiMotBanGhi(t *testing.T) {
	svc, _ := newTestTransactionService()
	ctx := context.Background()

	var wg sync.WaitGroup
	ids := make(chan string, 10)
	for i := 0; i < 10; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			tx, err := svc.CreateTransaction(ctx, domain.CreateTransactionDTO{
				IdempotencyKey: "same-key",
				Amount:         10000,
				Type:           string(domain.TxParkingFee),
				PaymentMethod:  string(domain.PayCash),
			})
			if assert.NoError(t, err) {
				ids <- tx.TransactionID
			}
		}()
	}
	wg.Wait()
	close(ids)

	unique := make(map[string]bool)
	for id := range ids {
		unique[id] = true
	}
	assert.Len(t, unique, 1)
}

func TestUpdateTransaction_VersionCuBiTuChoi(t *testing.T) {
	svc, _ := newTestTransactionService()
	ctx := context.Background()

	tx, err := svc.CreateTransaction(ctx, domain.CreateTransactionDTO{
		IdempotencyKey: "key-1",
		Amount:         500000,
		Type:           string(domain.TxMonthlySubscription),
		PaymentMethod:  string(domain.PayMomo),
	})
	require.NoError(t, err)

	// Hai bên cùng đọc version 1
	stale := *tx
	tx.Status = domain.TxCompleted
	updated, err := svc.UpdateTransaction(ctx, tx)
	require.NoError(t, err)
	assert.Equal(t, 2, updated.Version)

	// Bên giữ version cũ bị từ chối
	stale.Status = domain.TxFailed
	_, err = svc.UpdateTransaction(ctx, &stale)
	assert.ErrorIs(t, err, repository.ErrConflict)

	// Trạng thái không bị ghi đè bởi bản cũ
	current, err := svc.GetByID(ctx, tx.TransactionID)
	require.NoError(t, err)
	assert.Equal(t, domain.TxCompleted, current.Status)
}

func TestUpdateStatus_TuDocLaiKhiVersionLech(t *testing.T) {
	svc, txRepo := newTestTransactionService()
	ctx := context.Background()

	tx, err := svc.CreateTransaction(ctx, domain.CreateTransactionDTO{
		IdempotencyKey: "key-1",
		Amount:         500000,
		Type:           string(domain.TxMonthlyRenewal),
		PaymentMethod:  string(domain.PayStripe),
	})
	require.NoError(t, err)

	// Một bên khác cập nhật trước, đẩy version lên
	other, err := txRepo.FindByID(ctx, tx.TransactionID)
	require.NoError(t, err)
	other.Description = "đã đối soát"
	_, err = txRepo.UpdateWithVersion(ctx, other)
	require.NoError(t, err)

	// UpdateStatus vẫn thành công nhờ đọc lại version mới
	updated, err := svc.UpdateStatus(ctx, tx.TransactionID, domain.TxCompleted, "pi_123")
	require.NoError(t, err)
	assert.Equal(t, domain.TxCompleted, updated.Status)
	assert.Equal(t, "pi_123", updated.PaymentRef.String)
}

func TestHandleTimedOutTransactions_ChuyenPendingQuaHan(t *testing.T) {
	svc, txRepo := newTestTransactionService()
	ctx := context.Background()

	tx, err := svc.CreateTransaction(ctx, domain.CreateTransactionDTO{
		IdempotencyKey: "key-old",
		Amount:         1000000,
		Type:           string(domain.TxMonthlySubscription),
		PaymentMethod:  string(domain.PayMomo),
	})
	require.NoError(t, err)

	// PENDING mới chưa bị quét
	count, err := svc.HandleTimedOutTransactions(ctx, time.Now().UTC())
	require.NoError(t, err)
	assert.Equal(t, 0, count)

	// Quá 30 phút thì chuyển sang TIMEOUT
	count, err = svc.HandleTimedOutTransactions(ctx, time.Now().UTC().Add(31*time.Minute))
	require.NoError(t, err)
	assert.Equal(t, 1, count)

	current, err := txRepo.FindByID(ctx, tx.TransactionID)
	require.NoError(t, err)
	assert.Equal(t, domain.TxTimeout, current.Status)
}

func TestRevenue_KhoangNguocBiTuChoi(t *testing.T) {
	svc, _ := newTestTransactionService()

	now := time.Now().UTC()
	_, err := svc.Revenue(context.Background(), now, now.Add(-time.Hour))
	assert.ErrorIs(t, err, repository.ErrInvalidInput)
}
