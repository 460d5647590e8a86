package http

import (
	"net/http"

	"golang.org/x/sync/errgroup"

	"spendtrack/internal/bank"
	"spendtrack/internal/core"
	"spendtrack/internal/dashboard"
	"spendtrack/internal/log"
)

// dashboardResponse is the derived view plus the per-cardholder totals of the
// whole range, which ignore the table filters.
type dashboardResponse struct {
	dashboard.View
	Totals []core.CardholderTotal `json:"totals"`
}

// reportRequest reads the user id path value and the optional date range.
// It writes a 400 and returns false when either is invalid.
func reportRequest(w http.ResponseWriter, r *http.Request) (string, core.DateRange, bool) {
	userID, err := parseUserID(r.PathValue("userId"))
	if err != nil {
		BadRequestError(capitalize(err.Error())).Write(w)
		return "", core.DateRange{}, false
	}
	rng, err := ParseDateRange(r)
	if err != nil {
		BadRequestError("Invalid date range: " + err.Error()).Write(w)
		return "", core.DateRange{}, false
	}
	return userID, rng, true
}

func (s *Server) handleCardholderAmounts(w http.ResponseWriter, r *http.Request) {
	userID, rng, ok := reportRequest(w, r)
	if !ok {
		return
	}
	totals, err := s.store.CardholderTotals(r.Context(), userID, rng)
	if err != nil {
		s.logFailure(r, "Error fetching cardholder totals", err, log.OpAggregate)
		InternalServerError("Internal server error").Write(w)
		return
	}
	if len(totals) == 0 {
		NotFoundError("No cardholders found for this user.").Write(w)
		return
	}
	NewJSONResponse().Body(totals).Write(w)
}

func (s *Server) handleTransactions(w http.ResponseWriter, r *http.Request) {
	userID, rng, ok := reportRequest(w, r)
	if !ok {
		return
	}
	txs, err := s.store.Transactions(r.Context(), userID, rng)
	if err != nil {
		s.logFailure(r, "Error fetching transactions", err, log.OpAggregate)
		InternalServerError("Internal server error").Write(w)
		return
	}
	if len(txs) == 0 {
		NotFoundError("No transactions found for this user in the selected date range.").Write(w)
		return
	}
	NewJSONResponse().Body(txs).Write(w)
}

// handleDashboard serves totals, transactions and the derived view for one
// date range in a single response, so the client never pairs a table with a
// chart from a different range. An empty range is a 200 with empty lists.
func (s *Server) handleDashboard(w http.ResponseWriter, r *http.Request) {
	userID, rng, ok := reportRequest(w, r)
	if !ok {
		return
	}
	state, err := dashboard.ParseState(r.URL.Query())
	if err != nil {
		BadRequestError("Invalid dashboard parameters: " + err.Error()).Write(w)
		return
	}

	var (
		totals []core.CardholderTotal
		txs    []core.Transaction
	)
	g, ctx := errgroup.WithContext(r.Context())
	g.Go(func() error {
		var err error
		totals, err = s.store.CardholderTotals(ctx, userID, rng)
		return err
	})
	g.Go(func() error {
		var err error
		txs, err = s.store.Transactions(ctx, userID, rng)
		return err
	})
	if err := g.Wait(); err != nil {
		s.logFailure(r, "Error building dashboard", err, log.OpAggregate)
		InternalServerError("Internal server error").Write(w)
		return
	}

	if totals == nil {
		totals = []core.CardholderTotal{}
	}
	NewJSONResponse().Body(dashboardResponse{
		View:   dashboard.Derive(txs, state),
		Totals: totals,
	}).Write(w)
}

func handleSupportedBanks(w http.ResponseWriter, r *http.Request) {
	banks := bank.All()
	tags := make([]string, len(banks))
	for i, b := range banks {
		tags[i] = b.String()
	}
	NewJSONResponse().Body(tags).Write(w)
}
