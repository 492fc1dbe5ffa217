// internal/database/seed_test.go
package database

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/agriqcert/agriqcert-backend/internal/config"
	"github.com/agriqcert/agriqcert-backend/internal/models"
	"github.com/agriqcert/agriqcert-backend/internal/repository/memory"
)

var testSeed = config.SeedConfig{DefaultPassword: "123456", AdminPassword: "admin-pass"}

func TestSeedInitialDataIsIdempotent(t *testing.T) {
	ctx := context.Background()
	store := memory.NewStore()

	created, err := SeedInitialData(ctx, store, testSeed)
	require.NoError(t, err)
	assert.Equal(t, 4, created)

	created, err = SeedInitialData(ctx, store, testSeed)
	require.NoError(t, err)
	assert.Zero(t, created)

	qa, err := store.Users().GetByUsername(ctx, "qa_agency1")
	require.NoError(t, err)
	assert.Equal(t, models.RoleQA, qa.Role)
	assert.NoError(t, qa.CheckPassword("123456"))
	assert.Contains(t, qa.WalletAddress, "did:ethr:0x")

	admin, err := store.Users().GetByUsername(ctx, "admin")
	require.NoError(t, err)
	assert.NoError(t, admin.CheckPassword("admin-pass"))
}

func TestResetKeepsUsers(t *testing.T) {
	ctx := context.Background()
	store := memory.NewStore()
	_, err := SeedInitialData(ctx, store, testSeed)
	require.NoError(t, err)

	exporter, err := store.Users().GetByUsername(ctx, "exporter1")
	require.NoError(t, err)

	batch := &models.Batch{ExporterID: exporter.ID, ProductType: "Basmati", Quantity: "2 t", Location: "Punjab", Destination: "Dubai"}
	require.NoError(t, store.Batches().Create(ctx, batch))
	require.NoError(t, store.Inspections().Create(ctx, &models.Inspection{BatchID: batch.ID, QAID: exporter.ID, Result: models.ResultPass}))

	batches, inspections, err := ResetLifecycleData(ctx, store)
	require.NoError(t, err)
	assert.EqualValues(t, 1, batches)
	assert.EqualValues(t, 1, inspections)

	_, err = store.Users().GetByUsername(ctx, "exporter1")
	assert.NoError(t, err)
	_, err = store.Batches().GetByID(ctx, batch.ID, false)
	assert.Error(t, err)
}
