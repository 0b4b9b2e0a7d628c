package http

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"strings"

	"go.uber.org/zap"

	"github.com/radieske/p2p-wager-platform/internal/shared/metrics"
	"github.com/radieske/p2p-wager-platform/internal/wager/domain"
	"github.com/radieske/p2p-wager-platform/internal/wager/dto"
	"github.com/radieske/p2p-wager-platform/internal/wager/repo"
	"github.com/radieske/p2p-wager-platform/internal/wager/service"
)

// Server expõe a API HTTP do núcleo de apostas. Camada fina: valida o
// payload, delega ao serviço e mapeia a taxonomia de erros para códigos HTTP.
type Server struct {
	log *zap.Logger
	svc *service.Service
}

// NewServer instancia o servidor HTTP de apostas.
func NewServer(log *zap.Logger, svc *service.Service) *Server {
	return &Server{log: log, svc: svc}
}

// Router retorna o mux HTTP com as rotas da API.
func (s *Server) Router() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("/bets", s.bets)        // POST cria, GET lista
	mux.HandleFunc("/bets/", s.betByID)    // GET /bets/{id}, POST /bets/{id}/accept|cancel
	mux.HandleFunc("/wallet", s.getWallet) // GET ?userId=...
	return mux
}

func (s *Server) bets(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case http.MethodPost:
		s.createBet(w, r)
	case http.MethodGet:
		s.listBets(w, r)
	default:
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
	}
}

func (s *Server) createBet(w http.ResponseWriter, r *http.Request) {
	var req dto.CreateBetRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "bad json", http.StatusBadRequest)
		return
	}
	side := domain.Side(req.Side)
	if req.UserID == "" || req.ContestID == "" || !side.Valid() || req.AmountCents <= 0 {
		http.Error(w, "invalid payload", http.StatusBadRequest)
		return
	}

	bet, err := s.svc.Create(r.Context(), req.UserID, req.ContestID, side, req.AmountCents)
	if err != nil {
		s.writeError(w, err)
		return
	}
	metrics.BetsCreatedTotal.Inc()
	w.WriteHeader(http.StatusCreated)
	writeJSON(w, dto.FromBet(bet))
}

func (s *Server) listBets(w http.ResponseWriter, r *http.Request) {
	f := repo.BetFilter{
		UserID:    r.URL.Query().Get("userId"),
		ContestID: r.URL.Query().Get("contestId"),
		Status:    domain.BetStatus(r.URL.Query().Get("status")),
	}
	if raw := r.URL.Query().Get("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n < 0 {
			http.Error(w, "invalid limit", http.StatusBadRequest)
			return
		}
		f.Limit = n
	}

	bets, err := s.svc.ListBets(r.Context(), f)
	if err != nil {
		s.writeError(w, err)
		return
	}
	out := make([]dto.BetResponse, 0, len(bets))
	for _, b := range bets {
		out = append(out, dto.FromBet(b))
	}
	writeJSON(w, out)
}

// betByID roteia /bets/{id}, /bets/{id}/accept e /bets/{id}/cancel.
func (s *Server) betByID(w http.ResponseWriter, r *http.Request) {
	rest := strings.TrimPrefix(r.URL.Path, "/bets/")
	parts := strings.SplitN(rest, "/", 2)
	betID := parts[0]
	if betID == "" {
		http.Error(w, "betId required", http.StatusBadRequest)
		return
	}

	action := ""
	if len(parts) == 2 {
		action = parts[1]
	}

	switch {
	case action == "" && r.Method == http.MethodGet:
		s.getBet(w, r, betID)
	case action == "accept" && r.Method == http.MethodPost:
		s.acceptBet(w, r, betID)
	case action == "cancel" && r.Method == http.MethodPost:
		s.cancelBet(w, r, betID)
	default:
		http.Error(w, "not found", http.StatusNotFound)
	}
}

func (s *Server) getBet(w http.ResponseWriter, r *http.Request, betID string) {
	bet, err := s.svc.GetBet(r.Context(), betID)
	if err != nil {
		s.writeError(w, err)
		return
	}
	writeJSON(w, dto.FromBet(bet))
}

func (s *Server) acceptBet(w http.ResponseWriter, r *http.Request, betID string) {
	var req dto.AcceptBetRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "bad json", http.StatusBadRequest)
		return
	}
	if req.UserID == "" {
		http.Error(w, "invalid payload", http.StatusBadRequest)
		return
	}
	bet, err := s.svc.Accept(r.Context(), req.UserID, betID)
	if err != nil {
		s.writeError(w, err)
		return
	}
	metrics.BetsAcceptedTotal.Inc()
	writeJSON(w, dto.FromBet(bet))
}

func (s *Server) cancelBet(w http.ResponseWriter, r *http.Request, betID string) {
	var req dto.CancelBetRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "bad json", http.StatusBadRequest)
		return
	}
	if req.UserID == "" {
		http.Error(w, "invalid payload", http.StatusBadRequest)
		return
	}
	bet, err := s.svc.Cancel(r.Context(), req.UserID, betID, req.AdminOverride)
	if err != nil {
		s.writeError(w, err)
		return
	}
	metrics.BetsCancelledTotal.WithLabelValues("user").Inc()
	writeJSON(w, dto.FromBet(bet))
}

func (s *Server) getWallet(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}
	userID := r.URL.Query().Get("userId")
	if userID == "" {
		http.Error(w, "userId required", http.StatusBadRequest)
		return
	}
	wallet, err := s.svc.WalletBalance(r.Context(), userID)
	if err != nil {
		s.writeError(w, err)
		return
	}
	writeJSON(w, dto.WalletResponse{
		UserID:         userID,
		WalletID:       wallet.ID,
		BalanceCents:   wallet.BalanceCents,
		LockedCents:    wallet.LockedCents,
		TotalWonCents:  wallet.TotalWonCents,
		TotalLostCents: wallet.TotalLostCents,
	})
}

// writeError traduz a taxonomia de erros do domínio para HTTP. Violação de
// invariante é logada na severidade máxima: indica bug de ledger, não erro
// de usuário.
func (s *Server) writeError(w http.ResponseWriter, err error) {
	status := http.StatusInternalServerError
	reason := "internal"
	switch {
	case errors.Is(err, domain.ErrNotFound):
		status, reason = http.StatusNotFound, "not_found"
	case errors.Is(err, domain.ErrForbidden):
		status, reason = http.StatusForbidden, "forbidden"
	case errors.Is(err, domain.ErrInsufficientFunds):
		status, reason = http.StatusUnprocessableEntity, "insufficient_funds"
	case errors.Is(err, domain.ErrDuplicateWager):
		status, reason = http.StatusConflict, "duplicate_wager"
	case errors.Is(err, domain.ErrSelfMatch):
		status, reason = http.StatusConflict, "self_match"
	case errors.Is(err, domain.ErrCancellationWindowExpired):
		status, reason = http.StatusConflict, "cancellation_window_expired"
	case errors.Is(err, domain.ErrContestAlreadyStarted):
		status, reason = http.StatusConflict, "contest_already_started"
	case errors.Is(err, domain.ErrTooLateToAccept):
		status, reason = http.StatusConflict, "too_late_to_accept"
	case errors.Is(err, domain.ErrInvalidState):
		status, reason = http.StatusConflict, "invalid_state"
	case errors.Is(err, domain.ErrTransientContention):
		status, reason = http.StatusServiceUnavailable, "contention"
	case errors.Is(err, domain.ErrInvariantViolation):
		reason = "invariant_violation"
		s.log.Error("ledger invariant violation", zap.Error(err))
	}
	metrics.HTTPErrorsTotal.WithLabelValues(reason).Inc()

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(dto.ErrorResponse{Error: err.Error()})
}

// writeJSON serializa e envia resposta JSON.
func writeJSON(w http.ResponseWriter, v any) {
	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(v)
}
