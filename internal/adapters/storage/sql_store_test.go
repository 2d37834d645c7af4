package storage

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stoik/phish-verdict/internal/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestStore(t *testing.T) *SQLStore {
	t.Helper()
	s, err := NewSQLStore(DriverSQLite, ":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { _ = s.Close() })
	return s
}

func record(userID string, score int, createdAt time.Time) *domain.ScanRecord {
	return &domain.ScanRecord{
		ID:        uuid.New(),
		UserID:    userID,
		ScanType:  domain.ScanTypeURL,
		Target:    "http://paypal-secure-login.tk/verify",
		Result:    map[string]any{"score": float64(score), "reasons": []any{"Suspicious top-level domain: .tk"}},
		RiskScore: score,
		RiskLabel: domain.LabelFromScore(score),
		CreatedAt: createdAt,
	}
}

func TestSQLStore_SaveAndList(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()
	base := time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC)

	older := record("user-1", 40, base)
	newer := record("user-1", 75, base.Add(time.Hour))
	other := record("user-2", 0, base)
	for _, rec := range []*domain.ScanRecord{older, newer, other} {
		require.NoError(t, s.SaveScan(ctx, rec))
	}

	records, err := s.ListScans(ctx, "user-1", 10)
	require.NoError(t, err)
	require.Len(t, records, 2)

	assert.Equal(t, newer.ID, records[0].ID)
	assert.Equal(t, older.ID, records[1].ID)
	assert.Equal(t, domain.LabelPhishing, records[0].RiskLabel)
	assert.Equal(t, 75, records[0].RiskScore)
	assert.Equal(t, float64(75), records[0].Result["score"])
	assert.True(t, newer.CreatedAt.Equal(records[0].CreatedAt))
}

func TestSQLStore_ListLimit(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()
	base := time.Now().UTC()

	for i := 0; i < 5; i++ {
		require.NoError(t, s.SaveScan(ctx, record("user-1", i, base.Add(time.Duration(i)*time.Minute))))
	}

	records, err := s.ListScans(ctx, "user-1", 3)
	require.NoError(t, err)
	assert.Len(t, records, 3)
	assert.Equal(t, 4, records[0].RiskScore)
}

func TestSQLStore_UnknownUser(t *testing.T) {
	records, err := newTestStore(t).ListScans(context.Background(), "nobody", 10)

	require.NoError(t, err)
	assert.Empty(t, records)
}

func TestSQLStore_RejectsUnknownType(t *testing.T) {
	rec := record("user-1", 10, time.Now())
	rec.ScanType = "fax"

	assert.Error(t, newTestStore(t).SaveScan(context.Background(), rec))
}

func TestNewSQLStore_UnsupportedDriver(t *testing.T) {
	_, err := NewSQLStore("mysql", "")
	assert.ErrorContains(t, err, "unsupported database driver")
}

func TestRebind(t *testing.T) {
	pg := &SQLStore{driver: DriverPostgres}
	lite := &SQLStore{driver: DriverSQLite}

	assert.Equal(t, "a = $1 AND b = $2", pg.rebind("a = ? AND b = ?"))
	assert.Equal(t, "a = ? AND b = ?", lite.rebind("a = ? AND b = ?"))
}
