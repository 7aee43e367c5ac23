package service

import (
	"context"
	"fmt"
	"testing"
	"time"

	"smart_parking_core/internal/domain"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestCameraService(t *testing.T) (*CameraService, *parkingFixture) {
	t.Helper()
	f := newParkingFixture(t, 2, 2)
	return NewCameraService(NewPlateDedupService(), NewClassificationService(), f.svc), f
}

func detectionBody(cameraID, plate string, confidence float64, ts time.Time) string {
	return fmt.Sprintf(`{"event_id":"evt-1","camera_id":"%s","license_plate":"%s","confidence":%.2f,"timestamp":"%s"}`,
		cameraID, plate, confidence, ts.Format(time.RFC3339))
}

func TestHandleDetectionEvent_CameraVaoChoXeVao(t *testing.T) {
	svc, f := newTestCameraService(t)
	ctx := context.Background()

	err := svc.HandleDetectionEvent(ctx, detectionBody("IN-01", "51f-1234", 0.9, time.Now().UTC()))
	require.NoError(t, err)

	vehicles, err := f.svc.GetParkedVehicles(ctx)
	require.NoError(t, err)
	require.Len(t, vehicles, 1)
	assert.Equal(t, "51F-1234", vehicles[0].LicensePlate)
	// Biển ngắn không có gợi ý: phân loại xe máy
	assert.Equal(t, domain.VehicleMotorbike, vehicles[0].Type)
}

func TestHandleDetectionEvent_CameraRaChoXeRa(t *testing.T) {
	svc, f := newTestCameraService(t)
	ctx := context.Background()

	require.NoError(t, svc.HandleDetectionEvent(ctx, detectionBody("IN-01", "51F-1234", 0.9, time.Now().UTC())))
	// Camera ra nhận cùng biển sau khi hết cửa sổ lọc trùng
	require.NoError(t, svc.HandleDetectionEvent(ctx,
		detectionBody("OUT-01", "51F-1234", 0.9, time.Now().UTC().Add(15*time.Second))))

	vehicles, err := f.svc.GetParkedVehicles(ctx)
	require.NoError(t, err)
	assert.Empty(t, vehicles)
}

func TestHandleDetectionEvent_BoQuaMessageHong(t *testing.T) {
	svc, f := newTestCameraService(t)
	ctx := context.Background()

	// Lỗi dữ liệu trả nil để message được xóa khỏi queue
	assert.NoError(t, svc.HandleDetectionEvent(ctx, `{"camera_id":`))
	assert.NoError(t, svc.HandleDetectionEvent(ctx, `{"camera_id":"IN-01","license_plate":""}`))
	assert.NoError(t, svc.HandleDetectionEvent(ctx, detectionBody("IN-01", "51F-1234", 0.2, time.Now().UTC())))
	assert.NoError(t, svc.HandleDetectionEvent(ctx, detectionBody("CAM-01", "51F-1234", 0.9, time.Now().UTC())))

	vehicles, err := f.svc.GetParkedVehicles(ctx)
	require.NoError(t, err)
	assert.Empty(t, vehicles)
}

func TestHandleDetectionEvent_LocTrungHaiCameraGanNhau(t *testing.T) {
	svc, f := newTestCameraService(t)
	ctx := context.Background()
	now := time.Now().UTC()

	require.NoError(t, svc.HandleDetectionEvent(ctx, detectionBody("IN-01", "51F-1234", 0.9, now)))
	// Cùng camera đọc lại trong cửa sổ: bị lọc, không tạo lượt thứ hai
	require.NoError(t, svc.HandleDetectionEvent(ctx, detectionBody("IN-01", "51F-1234", 0.9, now.Add(3*time.Second))))

	vehicles, err := f.svc.GetParkedVehicles(ctx)
	require.NoError(t, err)
	assert.Len(t, vehicles, 1)
}

func TestHandleDetectionEvent_CheckInTrungTraNilChoXoaMessage(t *testing.T) {
	svc, _ := newTestCameraService(t)
	ctx := context.Background()

	require.NoError(t, svc.HandleDetectionEvent(ctx, detectionBody("IN-01", "51F-1234", 0.9, time.Now().UTC())))
	// Xe đã trong bãi: lỗi nghiệp vụ không được đẩy lại queue
	err := svc.HandleDetectionEvent(ctx,
		detectionBody("IN-02", "51F-1234", 0.9, time.Now().UTC().Add(time.Minute)))
	assert.NoError(t, err)
}
