/*
handlers.go - HTTP API handlers for the staff performance dashboard

PURPOSE:
  Exposes the dashboard service via REST API. Handles HTTP request/response,
  JSON serialization, and delegates to the dashboard service and engine.

ENDPOINTS:
  Employees:
    GET    /api/employees                       List all employees
    POST   /api/employees                       Create or update employee
    GET    /api/employees/{id}/dashboard        Personal dashboard (?period=&today=)
    GET    /api/employees/{id}/achievements     Catalog with earned history

  Records:
    POST   /api/sales                           Ingest sales (idempotent by id)
    POST   /api/returns                         Ingest returns (idempotent by id)

  Leaderboard:
    GET    /api/leaderboard                     Period leaderboard (?period=&today=)
    POST   /api/leaderboard/{period}/recalculate Persist ranking and achievements

  Calculator:
    POST   /api/calculator/commission           What-if commission for a role
    GET    /api/config                          Active compensation configuration

  Scenarios:
    GET    /api/scenarios                       List demo scenarios
    POST   /api/scenarios/load                  Load a demo scenario

QUERY PARAMETERS:
  period: YYYY-MM, defaults to the current month
  today:  YYYY-MM-DD streak reference, defaults to the current day

ERROR HANDLING:
  Errors are returned as JSON with appropriate HTTP status:
  - 400: Validation errors, invalid input
  - 404: Resource not found
  - 409: Conflict (achievement already recorded)
  - 500: Internal errors

SECURITY NOTE:
  No authentication or authorization. Salary figures are only served on the
  personal dashboard and the calculator; put those behind auth in production.

SEE ALSO:
  - dto.go: Request/response data structures
  - scenarios.go: Demo scenario loaders
  - server.go: Router setup and middleware
*/
package api

import (
	"encoding/json"
	"net/http"
	"sync"

	"github.com/go-chi/chi/v5"
	"github.com/warp/sales-engine/dashboard"
	"github.com/warp/sales-engine/engine"
	"github.com/warp/sales-engine/factory"
)

// =============================================================================
// HANDLER CONTEXT
// =============================================================================

// Handler holds all dependencies for HTTP handlers.
type Handler struct {
	Service *dashboard.Service

	catalog map[string]engine.AchievementDefinition

	mu              sync.Mutex
	currentScenario string
}

// NewHandler creates a new handler around the dashboard service.
func NewHandler(svc *dashboard.Service) *Handler {
	catalog := make(map[string]engine.AchievementDefinition)
	for _, d := range svc.Engine().Config().Catalog {
		catalog[d.Code] = d
	}
	return &Handler{
		Service: svc,
		catalog: catalog,
	}
}

// =============================================================================
// EMPLOYEE HANDLERS
// =============================================================================

// ListEmployees returns all employees.
// GET /api/employees
func (h *Handler) ListEmployees(w http.ResponseWriter, r *http.Request) {
	employees, err := h.Service.Store().ListEmployees(r.Context())
	if err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to list employees", err)
		return
	}

	dtos := make([]EmployeeDTO, len(employees))
	for i, e := range employees {
		dtos[i] = toEmployeeDTO(e)
	}
	writeJSON(w, http.StatusOK, dtos)
}

// CreateEmployee creates or updates an employee.
// POST /api/employees
func (h *Handler) CreateEmployee(w http.ResponseWriter, r *http.Request) {
	var req CreateEmployeeRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body", err)
		return
	}

	emp := engine.Employee{
		ID:       engine.EmployeeID(req.ID),
		Name:     req.Name,
		Role:     req.Role,
		PhotoURL: req.PhotoURL,
		Active:   true,
	}
	if req.Active != nil {
		emp.Active = *req.Active
	}
	if emp.Role == "" {
		emp.Role = h.Service.Engine().Config().DefaultRole
	}

	if err := h.Service.SaveEmployee(r.Context(), emp); err != nil {
		writeDomainError(w, "Failed to save employee", err)
		return
	}
	writeJSON(w, http.StatusCreated, toEmployeeDTO(emp))
}

// GetDashboard returns the personal dashboard.
// GET /api/employees/{id}/dashboard?period=2024-06&today=2024-06-15
func (h *Handler) GetDashboard(w http.ResponseWriter, r *http.Request) {
	id := engine.EmployeeID(chi.URLParam(r, "id"))
	period, today, ok := h.periodParams(w, r)
	if !ok {
		return
	}

	d, err := h.Service.EmployeeDashboard(r.Context(), id, period, today)
	if err != nil {
		writeDomainError(w, "Failed to build dashboard", err)
		return
	}
	writeJSON(w, http.StatusOK, toDashboardDTO(d, h.catalog))
}

// GetAchievements returns the catalog with the employee's earned history.
// GET /api/employees/{id}/achievements
func (h *Handler) GetAchievements(w http.ResponseWriter, r *http.Request) {
	id := engine.EmployeeID(chi.URLParam(r, "id"))

	statuses, err := h.Service.EmployeeAchievements(r.Context(), id)
	if err != nil {
		writeDomainError(w, "Failed to list achievements", err)
		return
	}

	dtos := make([]AchievementStatusDTO, 0, len(statuses))
	for _, s := range statuses {
		dto := AchievementStatusDTO{
			Code:          s.Definition.Code,
			Name:          s.Definition.Name,
			Description:   s.Definition.Description,
			Icon:          s.Definition.Icon,
			CriteriaType:  string(s.Definition.CriteriaType),
			CriteriaValue: s.Definition.CriteriaValue.String(),
			IsActive:      s.Definition.IsActive,
			Earned:        len(s.Earned) > 0,
			History:       make([]AchievementDTO, 0, len(s.Earned)),
		}
		for _, e := range s.Earned {
			dto.History = append(dto.History, toEarnedDTO(e))
		}
		dtos = append(dtos, dto)
	}
	writeJSON(w, http.StatusOK, dtos)
}

// =============================================================================
// RECORD INGESTION
// =============================================================================

// IngestSales stores sales pushed by the sync layer.
// POST /api/sales
func (h *Handler) IngestSales(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Sales []SaleRequest `json:"sales"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body", err)
		return
	}

	records := make([]engine.SaleRecord, len(req.Sales))
	for i, s := range req.Sales {
		records[i] = engine.SaleRecord{
			ID:         s.ID,
			EmployeeID: engine.EmployeeID(s.EmployeeID),
			Amount:     s.Amount,
			At:         s.At,
		}
	}

	result, err := h.Service.IngestSales(r.Context(), records)
	if err != nil {
		writeDomainError(w, "Failed to ingest sales", err)
		return
	}
	writeJSON(w, http.StatusAccepted, toIngestResponse(result))
}

// IngestReturns stores returns pushed by the sync layer.
// POST /api/returns
func (h *Handler) IngestReturns(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Returns []ReturnRequest `json:"returns"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body", err)
		return
	}

	records := make([]engine.ReturnRecord, len(req.Returns))
	for i, rr := range req.Returns {
		records[i] = engine.ReturnRecord{
			ID:         rr.ID,
			EmployeeID: engine.EmployeeID(rr.EmployeeID),
			Amount:     rr.Amount,
			At:         rr.At,
		}
	}

	result, err := h.Service.IngestReturns(r.Context(), records)
	if err != nil {
		writeDomainError(w, "Failed to ingest returns", err)
		return
	}
	writeJSON(w, http.StatusAccepted, toIngestResponse(result))
}

func toIngestResponse(result *dashboard.IngestResult) IngestResponse {
	resp := IngestResponse{
		Received: result.Received,
		Accepted: result.Accepted,
		Periods:  make([]string, len(result.Periods)),
	}
	for i, p := range result.Periods {
		resp.Periods[i] = p.String()
	}
	return resp
}

// =============================================================================
// LEADERBOARD
// =============================================================================

// GetLeaderboard returns the period leaderboard without persisting it.
// GET /api/leaderboard?period=2024-06
func (h *Handler) GetLeaderboard(w http.ResponseWriter, r *http.Request) {
	period, today, ok := h.periodParams(w, r)
	if !ok {
		return
	}

	lb, err := h.Service.Leaderboard(r.Context(), period, today)
	if err != nil {
		writeDomainError(w, "Failed to build leaderboard", err)
		return
	}
	writeJSON(w, http.StatusOK, toLeaderboardDTO(lb))
}

// RecalculatePeriod persists the period ranking and new achievements.
// POST /api/leaderboard/{period}/recalculate?today=2024-06-30
func (h *Handler) RecalculatePeriod(w http.ResponseWriter, r *http.Request) {
	period, err := engine.ParsePeriod(chi.URLParam(r, "period"))
	if err != nil {
		writeError(w, http.StatusBadRequest, "Invalid period", err)
		return
	}
	var today engine.Date
	if s := r.URL.Query().Get("today"); s != "" {
		if today, err = engine.ParseDate(s); err != nil {
			writeError(w, http.StatusBadRequest, "Invalid today date", err)
			return
		}
	}

	result, err := h.Service.RecalculatePeriod(r.Context(), period, today)
	if err != nil {
		writeDomainError(w, "Failed to recalculate period", err)
		return
	}

	resp := RecalculateResponse{
		Period:          period.String(),
		RankedEmployees: result.RankedEmployees,
		NewAchievements: make([]AchievementDTO, 0, len(result.NewAchievements)),
	}
	for _, e := range result.NewAchievements {
		a := toEarnedDTO(e)
		a.Name, a.Icon = h.catalog[e.Code].Name, h.catalog[e.Code].Icon
		resp.NewAchievements = append(resp.NewAchievements, a)
	}
	writeJSON(w, http.StatusOK, resp)
}

// =============================================================================
// CALCULATOR & CONFIG
// =============================================================================

// CalculateCommission is the what-if salary calculator.
// POST /api/calculator/commission
func (h *Handler) CalculateCommission(w http.ResponseWriter, r *http.Request) {
	var req CommissionRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body", err)
		return
	}
	if req.Role == "" {
		req.Role = h.Service.Engine().Config().DefaultRole
	}

	result, err := h.Service.Engine().Commission(req.Role, req.NetSales)
	if err != nil {
		writeDomainError(w, "Failed to calculate commission", err)
		return
	}
	writeJSON(w, http.StatusOK, toCommissionDTO(result))
}

// GetConfig returns the active compensation configuration.
// GET /api/config
func (h *Handler) GetConfig(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, factory.ToJSON(h.Service.Engine().Config()))
}

// =============================================================================
// HELPERS
// =============================================================================

// periodParams reads ?period= and ?today=. Writes a 400 and returns false
// on malformed input.
func (h *Handler) periodParams(w http.ResponseWriter, r *http.Request) (engine.Period, engine.Date, bool) {
	q := r.URL.Query()

	var today engine.Date
	if s := q.Get("today"); s != "" {
		d, err := engine.ParseDate(s)
		if err != nil {
			writeError(w, http.StatusBadRequest, "Invalid today date", err)
			return engine.Period{}, engine.Date{}, false
		}
		today = d
	}

	period := h.Service.Today().Period()
	if !today.IsZero() {
		period = today.Period()
	}
	if s := q.Get("period"); s != "" {
		p, err := engine.ParsePeriod(s)
		if err != nil {
			writeError(w, http.StatusBadRequest, "Invalid period", err)
			return engine.Period{}, engine.Date{}, false
		}
		period = p
	}
	return period, today, true
}

func writeJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(data)
}

func writeError(w http.ResponseWriter, status int, message string, err error) {
	resp := ErrorResponse{Error: message}
	if err != nil {
		resp.Details = err.Error()
	}
	writeJSON(w, status, resp)
}

// writeDomainError maps engine errors to HTTP status codes.
func writeDomainError(w http.ResponseWriter, message string, err error) {
	switch {
	case engine.IsNotFound(err):
		writeErrorCode(w, http.StatusNotFound, message, "not_found", err)
	case engine.IsClientError(err):
		writeErrorCode(w, http.StatusBadRequest, message, "invalid_input", err)
	case engine.IsConflict(err):
		writeErrorCode(w, http.StatusConflict, message, "conflict", err)
	default:
		writeError(w, http.StatusInternalServerError, message, err)
	}
}

func writeErrorCode(w http.ResponseWriter, status int, message, code string, err error) {
	writeJSON(w, status, ErrorResponse{Error: message, Code: code, Details: err.Error()})
}
