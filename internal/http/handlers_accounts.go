package http

import (
	"net/http"
	"strings"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"spendtrack/internal/core"
	"spendtrack/internal/log"
)

type createCreditCardBody struct {
	UserID   string `json:"user_id"`
	CardName string `json:"card_name"`
	CardType string `json:"card_type"`
}

type createBankAccountBody struct {
	UserID      string           `json:"user_id"`
	AccountName string           `json:"account_name"`
	AccountType string           `json:"account_type"`
	Balance     *decimal.Decimal `json:"balance"`
}

func (s *Server) handleUsers(w http.ResponseWriter, r *http.Request) {
	users, err := s.store.ListUsers(r.Context())
	if err != nil {
		s.logFailure(r, "Error fetching users", err, log.OpList)
		InternalServerError("Error fetching users").Write(w)
		return
	}
	NewJSONResponse().Body(users).Write(w)
}

func (s *Server) handleCreditCards(w http.ResponseWriter, r *http.Request) {
	userID, err := parseUserID(r.URL.Query().Get("userId"))
	if err != nil {
		BadRequestError(capitalize(err.Error())).Write(w)
		return
	}
	cards, err := s.store.ListCreditCards(r.Context(), userID)
	if err != nil {
		s.logFailure(r, "Error fetching credit cards", err, log.OpList)
		InternalServerError("Error fetching credit cards").Write(w)
		return
	}
	NewJSONResponse().Body(cards).Write(w)
}

func (s *Server) handleBankAccounts(w http.ResponseWriter, r *http.Request) {
	userID, err := parseUserID(r.URL.Query().Get("userId"))
	if err != nil {
		BadRequestError(capitalize(err.Error())).Write(w)
		return
	}
	accounts, err := s.store.ListBankAccounts(r.Context(), userID)
	if err != nil {
		s.logFailure(r, "Error fetching bank accounts", err, log.OpList)
		InternalServerError("Error fetching bank accounts").Write(w)
		return
	}
	NewJSONResponse().Body(accounts).Write(w)
}

func (s *Server) handleCreateCreditCard(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, maxJSONBodyBytes)
	var body createCreditCardBody
	if err := decodeJSON(r, &body); err != nil {
		BadRequestError(capitalize(err.Error())).Write(w)
		return
	}

	card := core.CreditCard{
		UserID:   strings.TrimSpace(body.UserID),
		CardName: sanitizeInput(body.CardName),
		CardType: sanitizeInput(body.CardType),
	}
	if card.UserID == "" || card.CardName == "" || card.CardType == "" {
		BadRequestError("Missing required fields: user_id, card_name, or card_type").Write(w)
		return
	}
	if _, err := uuid.Parse(card.UserID); err != nil {
		BadRequestError("Invalid user_id: expected a UUID").Write(w)
		return
	}
	if err := card.Validate(); err != nil {
		BadRequestError(capitalize(err.Error())).Write(w)
		return
	}

	created, err := s.store.CreateCreditCard(r.Context(), card)
	if err != nil {
		s.logFailure(r, "Error creating credit card", err, log.OpCreate)
		InternalServerError("Error creating credit card").Write(w)
		return
	}
	NewJSONResponse().
		Status(http.StatusCreated).
		Message("Credit card created successfully").
		Field("credit_card", created).
		Write(w)
}

func (s *Server) handleCreateBankAccount(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, maxJSONBodyBytes)
	var body createBankAccountBody
	if err := decodeJSON(r, &body); err != nil {
		BadRequestError(capitalize(err.Error())).Write(w)
		return
	}

	userID := strings.TrimSpace(body.UserID)
	name := sanitizeInput(body.AccountName)
	if userID == "" || name == "" || strings.TrimSpace(body.AccountType) == "" {
		BadRequestError("Missing required fields: user_id, account_name, or account_type").Write(w)
		return
	}
	if _, err := uuid.Parse(userID); err != nil {
		BadRequestError("Invalid user_id: expected a UUID").Write(w)
		return
	}
	accountType, err := core.ParseAccountType(body.AccountType)
	if err != nil {
		BadRequestError("Invalid account_type: must be chequing or savings").Write(w)
		return
	}

	account := core.BankAccount{
		UserID:      userID,
		AccountName: name,
		AccountType: accountType,
		Balance:     decimal.Zero,
	}
	if body.Balance != nil {
		account.Balance = *body.Balance
	}
	if err := account.Validate(); err != nil {
		BadRequestError(capitalize(err.Error())).Write(w)
		return
	}

	created, err := s.store.CreateBankAccount(r.Context(), account)
	if err != nil {
		s.logFailure(r, "Error creating bank account", err, log.OpCreate)
		InternalServerError("Error creating bank account").Write(w)
		return
	}
	NewJSONResponse().
		Status(http.StatusCreated).
		Message("Bank account created successfully").
		Field("bank_account", created).
		Write(w)
}

func (s *Server) logFailure(r *http.Request, msg string, err error, op string) {
	ctx := r.Context()
	log.FromContext(ctx).ErrorContext(ctx, msg,
		log.FieldError, err,
		log.FieldOperation, op,
		log.FieldPath, r.URL.Path)
}
