package http

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/radieske/p2p-wager-platform/internal/wager/domain"
	"github.com/radieske/p2p-wager-platform/internal/wager/dto"
	"github.com/radieske/p2p-wager-platform/internal/wager/repo"
	"github.com/radieske/p2p-wager-platform/internal/wager/service"
)

type fixedContests struct{ start time.Time }

func (f *fixedContests) GetContest(ctx context.Context, id string) (*domain.Contest, error) {
	if id != "match-1" {
		return nil, domain.ErrNotFound
	}
	return &domain.Contest{ID: id, Status: domain.ContestScheduled, ScheduledStart: f.start}, nil
}

func newTestServer(t *testing.T) (http.Handler, *repo.Memory) {
	t.Helper()
	store := repo.NewMemory()
	contests := &fixedContests{start: time.Now().Add(2 * time.Hour)}
	svc := service.New(zap.NewNop(), store, contests, nil, nil, service.DefaultParams())
	return NewServer(zap.NewNop(), svc).Router(), store
}

func doJSON(t *testing.T, h http.Handler, method, path string, body any) *httptest.ResponseRecorder {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}
	req := httptest.NewRequest(method, path, &buf)
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	return rec
}

func TestCreateBet(t *testing.T) {
	h, store := newTestServer(t)
	store.SeedWallet("alice", 5000)

	rec := doJSON(t, h, http.MethodPost, "/bets", dto.CreateBetRequest{
		UserID: "alice", ContestID: "match-1", Side: "A", AmountCents: 1000,
	})
	require.Equal(t, http.StatusCreated, rec.Code)

	var resp dto.BetResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	require.NotEmpty(t, resp.BetID)
	require.Equal(t, "PENDING", resp.Status)
	require.NotNil(t, resp.CancellationDeadline)
}

func TestCreateBet_InvalidPayload(t *testing.T) {
	h, _ := newTestServer(t)

	rec := doJSON(t, h, http.MethodPost, "/bets", dto.CreateBetRequest{
		UserID: "alice", ContestID: "match-1", Side: "C", AmountCents: 1000,
	})
	require.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestCreateBet_InsufficientFunds(t *testing.T) {
	h, store := newTestServer(t)
	store.SeedWallet("alice", 10)

	rec := doJSON(t, h, http.MethodPost, "/bets", dto.CreateBetRequest{
		UserID: "alice", ContestID: "match-1", Side: "A", AmountCents: 1000,
	})
	require.Equal(t, http.StatusUnprocessableEntity, rec.Code)

	var resp dto.ErrorResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	require.NotEmpty(t, resp.Error)
}

func TestAcceptAndGetBet(t *testing.T) {
	h, store := newTestServer(t)
	store.SeedWallet("alice", 5000)
	store.SeedWallet("bob", 5000)

	rec := doJSON(t, h, http.MethodPost, "/bets", dto.CreateBetRequest{
		UserID: "alice", ContestID: "match-1", Side: "A", AmountCents: 1000,
	})
	require.Equal(t, http.StatusCreated, rec.Code)
	var created dto.BetResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &created))

	rec = doJSON(t, h, http.MethodPost, "/bets/"+created.BetID+"/accept", dto.AcceptBetRequest{UserID: "bob"})
	require.Equal(t, http.StatusOK, rec.Code)

	rec = doJSON(t, h, http.MethodGet, "/bets/"+created.BetID, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	var got dto.BetResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &got))
	require.Equal(t, "ACCEPTED", got.Status)
	require.Equal(t, "bob", got.AcceptorID)
}

func TestAcceptBet_SelfMatchConflict(t *testing.T) {
	h, store := newTestServer(t)
	store.SeedWallet("alice", 5000)

	rec := doJSON(t, h, http.MethodPost, "/bets", dto.CreateBetRequest{
		UserID: "alice", ContestID: "match-1", Side: "A", AmountCents: 1000,
	})
	var created dto.BetResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &created))

	rec = doJSON(t, h, http.MethodPost, "/bets/"+created.BetID+"/accept", dto.AcceptBetRequest{UserID: "alice"})
	require.Equal(t, http.StatusConflict, rec.Code)
}

func TestCancelBet(t *testing.T) {
	h, store := newTestServer(t)
	store.SeedWallet("alice", 5000)

	rec := doJSON(t, h, http.MethodPost, "/bets", dto.CreateBetRequest{
		UserID: "alice", ContestID: "match-1", Side: "A", AmountCents: 1000,
	})
	var created dto.BetResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &created))

	rec = doJSON(t, h, http.MethodPost, "/bets/"+created.BetID+"/cancel", dto.CancelBetRequest{UserID: "alice"})
	require.Equal(t, http.StatusOK, rec.Code)

	rec = doJSON(t, h, http.MethodGet, "/wallet?userId=alice", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	var wallet dto.WalletResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &wallet))
	require.Equal(t, int64(5000), wallet.BalanceCents)
	require.Zero(t, wallet.LockedCents)
}

func TestGetBet_NotFound(t *testing.T) {
	h, _ := newTestServer(t)

	rec := doJSON(t, h, http.MethodGet, "/bets/nope", nil)
	require.Equal(t, http.StatusNotFound, rec.Code)
}

func TestListBets_FilterByUser(t *testing.T) {
	h, store := newTestServer(t)
	store.SeedWallet("alice", 5000)
	store.SeedWallet("carol", 5000)

	rec := doJSON(t, h, http.MethodPost, "/bets", dto.CreateBetRequest{
		UserID: "alice", ContestID: "match-1", Side: "A", AmountCents: 1000,
	})
	require.Equal(t, http.StatusCreated, rec.Code)
	rec = doJSON(t, h, http.MethodPost, "/bets", dto.CreateBetRequest{
		UserID: "carol", ContestID: "match-1", Side: "B", AmountCents: 500,
	})
	require.Equal(t, http.StatusCreated, rec.Code)

	rec = doJSON(t, h, http.MethodGet, "/bets?userId=alice", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	var out []dto.BetResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &out))
	require.Len(t, out, 1)
	require.Equal(t, "alice", out[0].CreatorID)
}

func TestWallet_RequiresUserID(t *testing.T) {
	h, _ := newTestServer(t)

	rec := doJSON(t, h, http.MethodGet, "/wallet", nil)
	require.Equal(t, http.StatusBadRequest, rec.Code)
}
