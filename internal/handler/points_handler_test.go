package handler

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"bazaar-backend/internal/model"
	"bazaar-backend/internal/points"
)

// nopTx is a no-op pgx.Tx for fakes that need a committable transaction.
type nopTx struct{}

func (nopTx) Begin(ctx context.Context) (pgx.Tx, error) { return nil, nil }
func (nopTx) Commit(ctx context.Context) error          { return nil }
func (nopTx) Rollback(ctx context.Context) error        { return nil }
func (nopTx) CopyFrom(ctx context.Context, tableName pgx.Identifier, columnNames []string, rowSrc pgx.CopyFromSource) (int64, error) {
	return 0, nil
}
func (nopTx) SendBatch(ctx context.Context, b *pgx.Batch) pgx.BatchResults { return nil }
func (nopTx) LargeObjects() pgx.LargeObjects                               { return pgx.LargeObjects{} }
func (nopTx) Prepare(ctx context.Context, name, sql string) (*pgconn.StatementDescription, error) {
	return nil, nil
}
func (nopTx) Exec(ctx context.Context, sql string, arguments ...any) (pgconn.CommandTag, error) {
	return pgconn.CommandTag{}, nil
}
func (nopTx) Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error) {
	return nil, nil
}
func (nopTx) QueryRow(ctx context.Context, sql string, args ...any) pgx.Row { return nil }
func (nopTx) Conn() *pgx.Conn                                               { return nil }

// fakePointsRepo keeps an in-memory balance and entry log.
type fakePointsRepo struct {
	balance int
	entries []model.PointsEntry
}

func (f *fakePointsRepo) BeginTx(context.Context) (pgx.Tx, error) { return nopTx{}, nil }
func (f *fakePointsRepo) LatestBalance(context.Context, pgx.Tx, uuid.UUID) (int, error) {
	return f.balance, nil
}
func (f *fakePointsRepo) Append(_ context.Context, _ pgx.Tx, entry *model.PointsEntry) error {
	f.entries = append(f.entries, *entry)
	f.balance = entry.Balance
	return nil
}
func (f *fakePointsRepo) Balance(context.Context, uuid.UUID) (int, error) { return f.balance, nil }
func (f *fakePointsRepo) History(context.Context, uuid.UUID, int, int) ([]model.PointsEntry, error) {
	return f.entries, nil
}

func newPointsHandler(repo *fakePointsRepo) *PointsHandler {
	logger := zerolog.Nop()
	return NewPointsHandler(points.NewLedger(repo, logger), logger)
}

func TestPointsHandler_Balance(t *testing.T) {
	h := newPointsHandler(&fakePointsRepo{balance: 250})

	req := httptest.NewRequest(http.MethodGet, "/api/points", nil)
	req.Header.Set("X-Actor-ID", uuid.New().String())
	w := httptest.NewRecorder()

	h.Balance(w, req)

	assert.Equal(t, http.StatusOK, w.Code)
	var got map[string]interface{}
	require.NoError(t, json.NewDecoder(w.Body).Decode(&got))
	assert.Equal(t, float64(250), got["balance"])
}

func TestPointsHandler_Redeem(t *testing.T) {
	t.Run("Success", func(t *testing.T) {
		repo := &fakePointsRepo{balance: 500}
		h := newPointsHandler(repo)

		req := httptest.NewRequest(http.MethodPost, "/api/points/redeem", bytes.NewBufferString(`{"points":200}`))
		req.Header.Set("X-Actor-ID", uuid.New().String())
		w := httptest.NewRecorder()

		h.Redeem(w, req)

		assert.Equal(t, http.StatusCreated, w.Code)
		var entry model.PointsEntry
		require.NoError(t, json.NewDecoder(w.Body).Decode(&entry))
		assert.Equal(t, 200, entry.Spent)
		assert.Equal(t, 300, entry.Balance)
	})

	t.Run("Below minimum", func(t *testing.T) {
		h := newPointsHandler(&fakePointsRepo{balance: 500})

		req := httptest.NewRequest(http.MethodPost, "/api/points/redeem", bytes.NewBufferString(`{"points":50}`))
		req.Header.Set("X-Actor-ID", uuid.New().String())
		w := httptest.NewRecorder()

		h.Redeem(w, req)

		assert.Equal(t, http.StatusBadRequest, w.Code)
	})

	t.Run("Insufficient points", func(t *testing.T) {
		h := newPointsHandler(&fakePointsRepo{balance: 100})

		req := httptest.NewRequest(http.MethodPost, "/api/points/redeem", bytes.NewBufferString(`{"points":200}`))
		req.Header.Set("X-Actor-ID", uuid.New().String())
		w := httptest.NewRecorder()

		h.Redeem(w, req)

		assert.Equal(t, http.StatusPaymentRequired, w.Code)
	})

	t.Run("Missing actor identity", func(t *testing.T) {
		h := newPointsHandler(&fakePointsRepo{})

		req := httptest.NewRequest(http.MethodPost, "/api/points/redeem", bytes.NewBufferString(`{"points":200}`))
		w := httptest.NewRecorder()

		h.Redeem(w, req)

		assert.Equal(t, http.StatusUnauthorized, w.Code)
	})
}

func TestPointsHandler_History(t *testing.T) {
	repo := &fakePointsRepo{entries: []model.PointsEntry{
		{ID: uuid.New(), Earned: 15, Balance: 15, ActivityType: "order_completed"},
	}}
	h := newPointsHandler(repo)

	req := httptest.NewRequest(http.MethodGet, "/api/points/history", nil)
	req.Header.Set("X-Actor-ID", uuid.New().String())
	w := httptest.NewRecorder()

	h.History(w, req)

	assert.Equal(t, http.StatusOK, w.Code)
	var got []model.PointsEntry
	require.NoError(t, json.NewDecoder(w.Body).Decode(&got))
	assert.Len(t, got, 1)
}
