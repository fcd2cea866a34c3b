package main

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/garyjia/approvals-hub/internal/application/port"
	"github.com/garyjia/approvals-hub/internal/config"
	"github.com/garyjia/approvals-hub/internal/container"
	"github.com/garyjia/approvals-hub/internal/domain/entity"
)

func TestLoadFixtures_BundledFile(t *testing.T) {
	f, err := LoadFixtures(filepath.Join("..", "..", "configs", "fixtures.yaml"))
	require.NoError(t, err)

	records, err := f.Records()
	require.NoError(t, err)
	assert.Equal(t, f.Count(), records.Total())
	assert.Len(t, records.PerDiems, 3)

	pd := records.PerDiems[1]
	assert.Equal(t, "pd-5002", pd.ID)
	assert.True(t, pd.Amount.Equal(decimal.NewFromInt(55)))
	assert.Equal(t, 5, pd.ClaimDate.Day())

	require.NotNil(t, records.Mileage[0].TotalAmount)
	assert.Equal(t, "25.73", records.Mileage[0].TotalAmount.StringFixed(2))
}

func TestRecords_InvalidValues(t *testing.T) {
	tests := []struct {
		name string
		body string
		want string
	}{
		{
			name: "bad amount",
			body: "receipts:\n  - id: r-1\n    amount: \"12,50\"\n",
			want: "receipt r-1: invalid amount",
		},
		{
			name: "bad date",
			body: "per_diems:\n  - id: pd-1\n    claim_date: \"05/03/2024\"\n    amount: \"10\"\n",
			want: "per diem pd-1: invalid date",
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			path := filepath.Join(t.TempDir(), "fixtures.yaml")
			require.NoError(t, os.WriteFile(path, []byte(tt.body), 0o644))

			f, err := LoadFixtures(path)
			require.NoError(t, err)
			_, err = f.Records()
			assert.ErrorContains(t, err, tt.want)
		})
	}
}

func TestRun_SeedsInOneTransaction(t *testing.T) {
	dir := t.TempDir()
	cfg := &config.Config{Database: config.DatabaseConfig{Path: filepath.Join(dir, "hub.db"), MaxOpenConns: 1}}
	logger := zap.NewNop()
	ctx := context.Background()

	fixtures := filepath.Join("..", "..", "configs", "fixtures.yaml")
	require.NoError(t, run(ctx, cfg, fixtures, logger))

	// A second run hits duplicate ids and must leave the tables unchanged.
	require.Error(t, run(ctx, cfg, fixtures, logger))

	db, err := container.ProvideDatabase(&cfg.Database, logger)
	require.NoError(t, err)
	defer db.Conn.Close()
	sources, err := container.ProvideSources(db.TransactionMgr, logger)
	require.NoError(t, err)

	perDiems, err := sources.PerDiems.List(ctx, port.ListFilter{})
	require.NoError(t, err)
	assert.Len(t, perDiems, 3)

	invoices, err := sources.Invoices.List(ctx, port.ListFilter{
		Statuses: []string{entity.StatusPendingApproval, entity.StatusApproved},
	})
	require.NoError(t, err)
	assert.Len(t, invoices, 2)
}
