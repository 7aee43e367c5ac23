package service

import (
	"context"
	"testing"

	"smart_parking_core/internal/domain"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestIDGenerator_TienToTheoLoai(t *testing.T) {
	svc := NewIDGeneratorService(newFakeSequenceRepo())
	ctx := context.Background()

	id, err := svc.NextVehicleID(ctx, domain.VehicleMotorbike)
	require.NoError(t, err)
	assert.Equal(t, "M001", id)

	// Mỗi tiền tố đếm riêng
	id, err = svc.NextVehicleID(ctx, domain.VehicleCar)
	require.NoError(t, err)
	assert.Equal(t, "C001", id)

	id, err = svc.NextVehicleID(ctx, domain.VehicleMotorbike)
	require.NoError(t, err)
	assert.Equal(t, "M002", id)

	id, err = svc.NextMonthlyVehicleID(ctx, domain.VehicleMotorbike)
	require.NoError(t, err)
	assert.Equal(t, "MM001", id)

	id, err = svc.NextMonthlyVehicleID(ctx, domain.VehicleCar)
	require.NoError(t, err)
	assert.Equal(t, "MC001", id)

	id, err = svc.NextTransactionID(ctx)
	require.NoError(t, err)
	assert.Equal(t, "TRX000001", id)

	id, err = svc.NextEmployeeID(ctx, "admin")
	require.NoError(t, err)
	assert.Equal(t, "ADM001", id)

	id, err = svc.NextEmployeeID(ctx, "operator")
	require.NoError(t, err)
	assert.Equal(t, "EMP001", id)
}
