package http

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strconv"
	"strings"
	"time"

	"finbook/internal/core"
)

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		slog.Error("Failed to encode response", "error", err)
	}
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}

func decodeJSON(w http.ResponseWriter, r *http.Request, v any) bool {
	dec := json.NewDecoder(r.Body)
	dec.DisallowUnknownFields()
	if err := dec.Decode(v); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body: "+err.Error())
		return false
	}
	return true
}

func methodNotAllowed(w http.ResponseWriter, allow string) {
	w.Header().Set("Allow", allow)
	writeError(w, http.StatusMethodNotAllowed, "method not allowed")
}

// userParam reads the required user query parameter.
func userParam(w http.ResponseWriter, r *http.Request) (string, bool) {
	user := strings.TrimSpace(r.URL.Query().Get("user"))
	if user == "" {
		writeError(w, http.StatusBadRequest, "missing user parameter")
		return "", false
	}
	return user, true
}

type transactionRequest struct {
	User        string `json:"user"`
	Kind        string `json:"kind"`
	Date        string `json:"date"`
	Category    string `json:"category"`
	Subcategory string `json:"subcategory"`
	Amount      string `json:"amount"`
	Currency    string `json:"currency"`
}

type transactionResponse struct {
	ID                 int64  `json:"id"`
	User               string `json:"user"`
	Kind               string `json:"kind"`
	Date               string `json:"date"`
	Category           string `json:"category"`
	Subcategory        string `json:"subcategory,omitempty"`
	Amount             string `json:"amount"`
	AmountCents        int64  `json:"amount_cents"`
	Currency           string `json:"currency"`
	SourceRecurrenceID int64  `json:"source_recurrence_id,omitempty"`
}

func toTransactionResponse(t core.Transaction) transactionResponse {
	return transactionResponse{
		ID:                 t.ID,
		User:               t.User,
		Kind:               string(t.Kind),
		Date:               t.Date.String(),
		Category:           t.Category,
		Subcategory:        t.Subcategory,
		Amount:             t.Amount.Decimal(),
		AmountCents:        t.Amount.Cents,
		Currency:           t.Currency,
		SourceRecurrenceID: t.SourceRecurrenceID,
	}
}

func (s *Server) handleTransactions(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case http.MethodPost:
		s.handleCreateTransaction(w, r)
	case http.MethodGet:
		s.handleListTransactions(w, r)
	default:
		methodNotAllowed(w, "GET, POST")
	}
}

func (s *Server) handleCreateTransaction(w http.ResponseWriter, r *http.Request) {
	var req transactionRequest
	if !decodeJSON(w, r, &req) {
		return
	}

	cents, err := core.ParseDecimalToCents(req.Amount)
	if err != nil {
		writeError(w, http.StatusUnprocessableEntity, "invalid amount: "+err.Error())
		return
	}

	date, err := core.ParseDate(req.Date)
	if err != nil {
		writeError(w, http.StatusUnprocessableEntity, "invalid date: "+err.Error())
		return
	}

	t := core.Transaction{
		User:        strings.TrimSpace(req.User),
		Kind:        core.Kind(req.Kind),
		Date:        date,
		Category:    strings.TrimSpace(req.Category),
		Subcategory: strings.TrimSpace(req.Subcategory),
		Amount:      core.Money{Cents: cents},
		Currency:    strings.TrimSpace(req.Currency),
	}

	id, err := s.transactions.Record(r.Context(), t)
	if err != nil {
		if isValidationError(err) {
			writeError(w, http.StatusUnprocessableEntity, err.Error())
			return
		}
		slog.ErrorContext(r.Context(), "Failed to record transaction", "error", err)
		writeError(w, http.StatusInternalServerError, "failed to save transaction")
		return
	}
	t.ID = id

	s.invalidateReports(t.User)
	writeJSON(w, http.StatusCreated, toTransactionResponse(t))
}

func (s *Server) handleListTransactions(w http.ResponseWriter, r *http.Request) {
	user, ok := userParam(w, r)
	if !ok {
		return
	}

	kind := core.Kind(r.URL.Query().Get("kind"))
	if kind == "" {
		kind = core.Expense
	}
	if err := kind.Validate(); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	limit := 50
	if v := strings.TrimSpace(r.URL.Query().Get("limit")); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 && n <= 500 {
			limit = n
		}
	}

	items, err := s.repo.RecentTransactions(r.Context(), user, kind, limit)
	if err != nil {
		slog.ErrorContext(r.Context(), "Failed to list transactions", "error", err)
		writeError(w, http.StatusInternalServerError, "failed to list transactions")
		return
	}

	out := make([]transactionResponse, 0, len(items))
	for _, t := range items {
		out = append(out, toTransactionResponse(t))
	}
	writeJSON(w, http.StatusOK, out)
}

type recurrenceRequest struct {
	User        string `json:"user"`
	Kind        string `json:"kind"`
	StartDate   string `json:"start_date"`
	Category    string `json:"category"`
	Subcategory string `json:"subcategory"`
	Amount      string `json:"amount"`
	Frequency   string `json:"frequency"`
	Currency    string `json:"currency"`
}

type recurrenceResponse struct {
	ID          int64  `json:"id"`
	User        string `json:"user"`
	Kind        string `json:"kind"`
	NextDate    string `json:"next_date"`
	Category    string `json:"category"`
	Subcategory string `json:"subcategory,omitempty"`
	Amount      string `json:"amount"`
	AmountCents int64  `json:"amount_cents"`
	Frequency   string `json:"frequency"`
	Currency    string `json:"currency"`
}

func toRecurrenceResponse(rd core.RecurrenceDefinition) recurrenceResponse {
	return recurrenceResponse{
		ID:          rd.ID,
		User:        rd.User,
		Kind:        string(rd.Kind),
		NextDate:    rd.NextDate.String(),
		Category:    rd.Category,
		Subcategory: rd.Subcategory,
		Amount:      rd.Amount.Decimal(),
		AmountCents: rd.Amount.Cents,
		Frequency:   string(rd.Frequency),
		Currency:    rd.Currency,
	}
}

func (s *Server) handleRecurring(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case http.MethodPost:
		s.handleCreateRecurrence(w, r)
	case http.MethodGet:
		s.handleListRecurrences(w, r)
	default:
		methodNotAllowed(w, "GET, POST")
	}
}

func (s *Server) handleCreateRecurrence(w http.ResponseWriter, r *http.Request) {
	var req recurrenceRequest
	if !decodeJSON(w, r, &req) {
		return
	}

	cents, err := core.ParseDecimalToCents(req.Amount)
	if err != nil {
		writeError(w, http.StatusUnprocessableEntity, "invalid amount: "+err.Error())
		return
	}

	start, err := core.ParseDate(req.StartDate)
	if err != nil {
		writeError(w, http.StatusUnprocessableEntity, "invalid start_date: "+err.Error())
		return
	}

	rd := core.RecurrenceDefinition{
		User:        strings.TrimSpace(req.User),
		Kind:        core.Kind(req.Kind),
		NextDate:    start,
		Category:    strings.TrimSpace(req.Category),
		Subcategory: strings.TrimSpace(req.Subcategory),
		Amount:      core.Money{Cents: cents},
		Frequency:   core.Frequency(req.Frequency),
		Currency:    strings.TrimSpace(req.Currency),
	}
	if err := rd.Validate(); err != nil {
		writeError(w, http.StatusUnprocessableEntity, err.Error())
		return
	}

	id, err := s.repo.CreateRecurrence(r.Context(), rd)
	if err != nil {
		slog.ErrorContext(r.Context(), "Failed to create recurrence", "error", err)
		writeError(w, http.StatusInternalServerError, "failed to save recurrence")
		return
	}
	rd.ID = id

	writeJSON(w, http.StatusCreated, toRecurrenceResponse(rd))
}

func (s *Server) handleListRecurrences(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		methodNotAllowed(w, "GET")
		return
	}
	user, ok := userParam(w, r)
	if !ok {
		return
	}

	items, err := s.repo.ListRecurrences(r.Context(), user)
	if err != nil {
		slog.ErrorContext(r.Context(), "Failed to list recurrences", "error", err)
		writeError(w, http.StatusInternalServerError, "failed to list recurrences")
		return
	}

	out := make([]recurrenceResponse, 0, len(items))
	for _, rd := range items {
		out = append(out, toRecurrenceResponse(rd))
	}
	writeJSON(w, http.StatusOK, out)
}

// handleRecurringRun triggers a materialization pass immediately, same code
// path the midnight scheduler takes.
func (s *Server) handleRecurringRun(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		methodNotAllowed(w, "POST")
		return
	}

	today := core.DateOf(time.Now())
	res, err := s.materializer.Run(r.Context(), today)
	if err != nil {
		slog.ErrorContext(r.Context(), "Materialization run failed", "error", err)
		writeError(w, http.StatusInternalServerError, "materialization failed")
		return
	}

	// Any user may have gained transactions; cached reports are stale now.
	if res.Materialized > 0 {
		s.summaryCache.Clear()
		s.monthlyCache.Clear()
		s.categoryCache.Clear()
	}

	writeJSON(w, http.StatusOK, map[string]int{
		"due":          res.Due,
		"materialized": res.Materialized,
		"failed":       res.Failed,
	})
}

type budgetRequest struct {
	User        string `json:"user"`
	Category    string `json:"category"`
	Subcategory string `json:"subcategory"`
	Amount      string `json:"amount"`
	Currency    string `json:"currency"`
}

func (s *Server) handleBudgets(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case http.MethodPost:
		var req budgetRequest
		if !decodeJSON(w, r, &req) {
			return
		}
		cents, err := core.ParseDecimalToCents(req.Amount)
		if err != nil {
			writeError(w, http.StatusUnprocessableEntity, "invalid amount: "+err.Error())
			return
		}
		b := core.Budget{
			User:        strings.TrimSpace(req.User),
			Category:    strings.TrimSpace(req.Category),
			Subcategory: strings.TrimSpace(req.Subcategory),
			Amount:      core.Money{Cents: cents},
			Currency:    strings.TrimSpace(req.Currency),
		}
		if err := b.Validate(); err != nil {
			writeError(w, http.StatusUnprocessableEntity, err.Error())
			return
		}
		id, err := s.repo.SetBudget(r.Context(), b)
		if err != nil {
			slog.ErrorContext(r.Context(), "Failed to set budget", "error", err)
			writeError(w, http.StatusInternalServerError, "failed to save budget")
			return
		}
		b.ID = id
		writeJSON(w, http.StatusCreated, b)
	case http.MethodGet:
		user, ok := userParam(w, r)
		if !ok {
			return
		}
		items, err := s.repo.ListBudgets(r.Context(), user)
		if err != nil {
			slog.ErrorContext(r.Context(), "Failed to list budgets", "error", err)
			writeError(w, http.StatusInternalServerError, "failed to list budgets")
			return
		}
		writeJSON(w, http.StatusOK, items)
	default:
		methodNotAllowed(w, "GET, POST")
	}
}

type goalRequest struct {
	User       string `json:"user"`
	GoalAmount string `json:"goal_amount"`
	TargetDate string `json:"target_date"`
}

func (s *Server) handleGoals(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case http.MethodPost:
		var req goalRequest
		if !decodeJSON(w, r, &req) {
			return
		}
		cents, err := core.ParseDecimalToCents(req.GoalAmount)
		if err != nil {
			writeError(w, http.StatusUnprocessableEntity, "invalid goal_amount: "+err.Error())
			return
		}
		target, err := core.ParseDate(req.TargetDate)
		if err != nil {
			writeError(w, http.StatusUnprocessableEntity, "invalid target_date: "+err.Error())
			return
		}
		g := core.SavingsGoal{
			User:       strings.TrimSpace(req.User),
			GoalAmount: core.Money{Cents: cents},
			TargetDate: target,
		}
		if err := g.Validate(); err != nil {
			writeError(w, http.StatusUnprocessableEntity, err.Error())
			return
		}
		id, err := s.repo.AddSavingsGoal(r.Context(), g)
		if err != nil {
			slog.ErrorContext(r.Context(), "Failed to add savings goal", "error", err)
			writeError(w, http.StatusInternalServerError, "failed to save goal")
			return
		}
		g.ID = id
		writeJSON(w, http.StatusCreated, g)
	case http.MethodGet:
		user, ok := userParam(w, r)
		if !ok {
			return
		}
		items, err := s.repo.ListSavingsGoals(r.Context(), user)
		if err != nil {
			slog.ErrorContext(r.Context(), "Failed to list savings goals", "error", err)
			writeError(w, http.StatusInternalServerError, "failed to list goals")
			return
		}
		writeJSON(w, http.StatusOK, items)
	default:
		methodNotAllowed(w, "GET, POST")
	}
}

type tagRequest struct {
	User string `json:"user"`
	Tag  string `json:"tag"`
}

func (s *Server) handleTags(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case http.MethodPost:
		var req tagRequest
		if !decodeJSON(w, r, &req) {
			return
		}
		user := strings.TrimSpace(req.User)
		tag := strings.TrimSpace(req.Tag)
		if user == "" {
			writeError(w, http.StatusUnprocessableEntity, core.ErrEmptyUser.Error())
			return
		}
		if tag == "" {
			writeError(w, http.StatusUnprocessableEntity, core.ErrEmptyTag.Error())
			return
		}
		id, err := s.repo.AddTag(r.Context(), user, tag)
		if err != nil {
			slog.ErrorContext(r.Context(), "Failed to add tag", "error", err)
			writeError(w, http.StatusInternalServerError, "failed to save tag")
			return
		}
		writeJSON(w, http.StatusCreated, core.Tag{ID: id, User: user, Name: tag})
	case http.MethodGet:
		user, ok := userParam(w, r)
		if !ok {
			return
		}
		items, err := s.repo.ListTags(r.Context(), user)
		if err != nil {
			slog.ErrorContext(r.Context(), "Failed to list tags", "error", err)
			writeError(w, http.StatusInternalServerError, "failed to list tags")
			return
		}
		writeJSON(w, http.StatusOK, items)
	default:
		methodNotAllowed(w, "GET, POST")
	}
}

func (s *Server) handleSummaryReport(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		methodNotAllowed(w, "GET")
		return
	}
	user, ok := userParam(w, r)
	if !ok {
		return
	}

	if cached, found := s.summaryCache.Get(user); found {
		writeJSON(w, http.StatusOK, cached)
		return
	}

	sum, err := s.repo.GetSummary(r.Context(), user)
	if err != nil {
		slog.ErrorContext(r.Context(), "Failed to compute summary", "error", err)
		writeError(w, http.StatusInternalServerError, "failed to compute summary")
		return
	}

	s.summaryCache.Set(user, sum)
	writeJSON(w, http.StatusOK, sum)
}

func (s *Server) handleMonthlyReport(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		methodNotAllowed(w, "GET")
		return
	}
	user, ok := userParam(w, r)
	if !ok {
		return
	}

	var from, to core.Date
	if v := strings.TrimSpace(r.URL.Query().Get("from")); v != "" {
		d, err := core.ParseDate(v)
		if err != nil {
			writeError(w, http.StatusBadRequest, "invalid from date")
			return
		}
		from = d
	}
	if v := strings.TrimSpace(r.URL.Query().Get("to")); v != "" {
		d, err := core.ParseDate(v)
		if err != nil {
			writeError(w, http.StatusBadRequest, "invalid to date")
			return
		}
		to = d
	}

	// Only unfiltered queries hit the cache; ranged queries go straight through.
	cacheable := from.IsZero() && to.IsZero()
	if cacheable {
		if cached, found := s.monthlyCache.Get(user); found {
			writeJSON(w, http.StatusOK, cached)
			return
		}
	}

	items, err := s.repo.MonthlySummary(r.Context(), user, from, to)
	if err != nil {
		slog.ErrorContext(r.Context(), "Failed to compute monthly summary", "error", err)
		writeError(w, http.StatusInternalServerError, "failed to compute monthly summary")
		return
	}

	if cacheable {
		s.monthlyCache.Set(user, items)
	}
	writeJSON(w, http.StatusOK, items)
}

func (s *Server) handleCategoryReport(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		methodNotAllowed(w, "GET")
		return
	}
	user, ok := userParam(w, r)
	if !ok {
		return
	}

	if cached, found := s.categoryCache.Get(user); found {
		writeJSON(w, http.StatusOK, cached)
		return
	}

	items, err := s.repo.SpentByCategory(r.Context(), user)
	if err != nil {
		slog.ErrorContext(r.Context(), "Failed to compute category totals", "error", err)
		writeError(w, http.StatusInternalServerError, "failed to compute category totals")
		return
	}

	s.categoryCache.Set(user, items)
	writeJSON(w, http.StatusOK, items)
}

func isValidationError(err error) bool {
	return errors.Is(err, core.ErrInvalidKind) ||
		errors.Is(err, core.ErrInvalidDate) ||
		errors.Is(err, core.ErrInvalidAmount) ||
		errors.Is(err, core.ErrEmptyUser) ||
		errors.Is(err, core.ErrEmptyCategory) ||
		errors.Is(err, core.ErrEmptyCurrency)
}
