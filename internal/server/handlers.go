package server

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"time"

	"trade-journal-go/internal/analytics"
	"trade-journal-go/internal/auth"
	"trade-journal-go/internal/costengine"
	"trade-journal-go/internal/journal"
	"trade-journal-go/internal/market"
	"trade-journal-go/internal/news"

	"go.uber.org/zap"
)

const sessionCookie = "tradex_session"

// APIHandler holds dependencies for the API endpoints.
type APIHandler struct {
	log          *zap.Logger
	auth         *auth.Service
	journal      *journal.Service
	market       market.ClientInterface
	news         *news.Service
	secureCookie bool
	startTime    time.Time
}

// NewAPIHandler creates a new APIHandler.
func NewAPIHandler(log *zap.Logger, authSvc *auth.Service, journalSvc *journal.Service,
	marketClient market.ClientInterface, newsSvc *news.Service, secureCookie bool) *APIHandler {
	return &APIHandler{
		log:          log,
		auth:         authSvc,
		journal:      journalSvc,
		market:       marketClient,
		news:         newsSvc,
		secureCookie: secureCookie,
		startTime:    time.Now(),
	}
}

func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}

// withAuth resolves the session cookie into a caller id and passes it to the
// wrapped handler. Everything below the handlers receives the id explicitly.
func (h *APIHandler) withAuth(next func(w http.ResponseWriter, r *http.Request, callerID uint)) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		cookie, err := r.Cookie(sessionCookie)
		if err != nil {
			writeError(w, http.StatusUnauthorized, "Unauthorized")
			return
		}
		callerID, err := h.auth.UserFromToken(r.Context(), cookie.Value)
		if err != nil {
			writeError(w, http.StatusUnauthorized, "Unauthorized")
			return
		}
		next(w, r, callerID)
	}
}

// --- auth handlers ---

// RegisterHandler creates an unverified account and mails the OTP.
func (h *APIHandler) RegisterHandler(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Name     string `json:"name"`
		Email    string `json:"email"`
		Password string `json:"password"`
		Phone    string `json:"phone"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request")
		return
	}

	err := h.auth.Register(r.Context(), auth.RegisterInput{
		Name: req.Name, Email: req.Email, Password: req.Password, Phone: req.Phone,
	})
	switch {
	case errors.Is(err, auth.ErrEmailTaken):
		writeError(w, http.StatusConflict, "Email already in use")
	case errors.Is(err, auth.ErrInvalidCredentials):
		writeError(w, http.StatusBadRequest, "Missing required fields")
	case err != nil:
		h.log.Error("Registration failed", zap.Error(err))
		writeError(w, http.StatusInternalServerError, "Failed to create account")
	default:
		writeJSON(w, http.StatusOK, map[string]string{"message": "OTP sent to email"})
	}
}

// VerifyHandler confirms the e-mailed OTP.
func (h *APIHandler) VerifyHandler(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Email string `json:"email"`
		OTP   string `json:"otp"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request")
		return
	}

	err := h.auth.VerifyOTP(r.Context(), req.Email, req.OTP)
	switch {
	case errors.Is(err, auth.ErrInvalidOTP):
		writeError(w, http.StatusBadRequest, "Invalid or expired code")
	case err != nil:
		h.log.Error("Verification failed", zap.Error(err))
		writeError(w, http.StatusInternalServerError, "Verification failed")
	default:
		writeJSON(w, http.StatusOK, map[string]string{"message": "Email verified"})
	}
}

// LoginHandler checks credentials and sets the session cookie.
func (h *APIHandler) LoginHandler(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Email    string `json:"email"`
		Password string `json:"password"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request")
		return
	}

	token, err := h.auth.Login(r.Context(), req.Email, req.Password)
	switch {
	case errors.Is(err, auth.ErrNotVerified):
		writeError(w, http.StatusForbidden, "Please verify your email address before logging in")
		return
	case errors.Is(err, auth.ErrInvalidCredentials):
		writeError(w, http.StatusUnauthorized, "Invalid email or password")
		return
	case err != nil:
		h.log.Error("Login failed", zap.Error(err))
		writeError(w, http.StatusInternalServerError, "Login failed")
		return
	}

	http.SetCookie(w, &http.Cookie{
		Name:     sessionCookie,
		Value:    token,
		Path:     "/",
		MaxAge:   int((7 * 24 * time.Hour).Seconds()),
		HttpOnly: true,
		Secure:   h.secureCookie,
		SameSite: http.SameSiteLaxMode,
	})
	writeJSON(w, http.StatusOK, map[string]string{"message": "Logged in"})
}

// LogoutHandler revokes the session and clears the cookie.
func (h *APIHandler) LogoutHandler(w http.ResponseWriter, r *http.Request) {
	if cookie, err := r.Cookie(sessionCookie); err == nil {
		_ = h.auth.Logout(r.Context(), cookie.Value)
	}
	http.SetCookie(w, &http.Cookie{
		Name:     sessionCookie,
		Value:    "",
		Path:     "/",
		MaxAge:   -1,
		HttpOnly: true,
		Secure:   h.secureCookie,
		SameSite: http.SameSiteLaxMode,
	})
	writeJSON(w, http.StatusOK, map[string]string{"message": "Logged out"})
}

// --- trade handlers ---

// tradeRequest is the form payload for create and update.
type tradeRequest struct {
	Symbol     string   `json:"symbol"`
	Direction  string   `json:"direction"`
	EntryPrice float64  `json:"entry_price"`
	ExitPrice  *float64 `json:"exit_price"`
	Quantity   int      `json:"quantity"`
	StopLoss   float64  `json:"stop_loss"`
	Date       string   `json:"date"`
}

func (req *tradeRequest) toInput() (journal.TradeInput, error) {
	dir, _ := costengine.ParseDirection(req.Direction)
	date, err := journal.ParseDate(req.Date)
	if err != nil {
		return journal.TradeInput{}, err
	}
	return journal.TradeInput{
		Symbol:     req.Symbol,
		Direction:  dir,
		EntryPrice: req.EntryPrice,
		ExitPrice:  req.ExitPrice,
		Quantity:   req.Quantity,
		StopLoss:   req.StopLoss,
		EntryDate:  date,
	}, nil
}

// ListTradesHandler returns the caller's trades, most recent first.
func (h *APIHandler) ListTradesHandler(w http.ResponseWriter, r *http.Request, callerID uint) {
	trades, err := h.journal.List(r.Context(), callerID)
	if err != nil {
		h.log.Error("Failed to list trades", zap.Error(err))
		writeError(w, http.StatusInternalServerError, "Failed to get trades")
		return
	}
	writeJSON(w, http.StatusOK, trades)
}

// CreateTradeHandler logs a new trade.
func (h *APIHandler) CreateTradeHandler(w http.ResponseWriter, r *http.Request, callerID uint) {
	var req tradeRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid trade data")
		return
	}
	in, err := req.toInput()
	if err != nil {
		writeError(w, http.StatusBadRequest, "Invalid trade data")
		return
	}

	trade, err := h.journal.Create(r.Context(), callerID, in)
	switch {
	case errors.Is(err, journal.ErrInvalidInput):
		writeError(w, http.StatusBadRequest, "Invalid trade data")
	case err != nil:
		h.log.Error("Failed to create trade", zap.Error(err))
		writeError(w, http.StatusInternalServerError, "Failed to create trade")
	default:
		writeJSON(w, http.StatusCreated, trade)
	}
}

func tradeID(r *http.Request) (uint, error) {
	id, err := strconv.ParseUint(r.PathValue("id"), 10, 32)
	return uint(id), err
}

// UpdateTradeHandler replaces a trade's attributes and re-derives its P&L.
func (h *APIHandler) UpdateTradeHandler(w http.ResponseWriter, r *http.Request, callerID uint) {
	id, err := tradeID(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, "Invalid trade id")
		return
	}

	var req tradeRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid trade data")
		return
	}
	in, err := req.toInput()
	if err != nil {
		writeError(w, http.StatusBadRequest, "Invalid trade data")
		return
	}

	trade, err := h.journal.Update(r.Context(), callerID, id, in)
	switch {
	case errors.Is(err, journal.ErrNotFound):
		writeError(w, http.StatusNotFound, "Trade not found")
	case errors.Is(err, journal.ErrInvalidInput):
		writeError(w, http.StatusBadRequest, "Invalid trade data")
	case err != nil:
		h.log.Error("Failed to update trade", zap.Error(err))
		writeError(w, http.StatusInternalServerError, "Failed to update trade")
	default:
		writeJSON(w, http.StatusOK, trade)
	}
}

// DeleteTradeHandler removes the caller's trade.
func (h *APIHandler) DeleteTradeHandler(w http.ResponseWriter, r *http.Request, callerID uint) {
	id, err := tradeID(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, "Invalid trade id")
		return
	}

	err = h.journal.Delete(r.Context(), callerID, id)
	switch {
	case errors.Is(err, journal.ErrNotFound):
		writeError(w, http.StatusNotFound, "Trade not found")
	case err != nil:
		h.log.Error("Failed to delete trade", zap.Error(err))
		writeError(w, http.StatusInternalServerError, "Failed to delete trade")
	default:
		writeJSON(w, http.StatusOK, map[string]string{"message": "Trade deleted"})
	}
}

// ImportTradesHandler ingests an uploaded CSV sheet.
func (h *APIHandler) ImportTradesHandler(w http.ResponseWriter, r *http.Request, callerID uint) {
	file, _, err := r.FormFile("file")
	if err != nil {
		writeError(w, http.StatusBadRequest, "Missing file upload")
		return
	}
	defer file.Close()

	rows, err := journal.ParseCSV(file)
	if err != nil {
		writeError(w, http.StatusBadRequest, "Failed to import trades. Check file format.")
		return
	}

	result, err := h.journal.Import(r.Context(), callerID, rows)
	if err != nil {
		h.log.Error("Failed to import trades", zap.Error(err))
		writeError(w, http.StatusInternalServerError, "Failed to import trades. Check file format.")
		return
	}
	writeJSON(w, http.StatusOK, result)
}

// ExportTradesHandler streams the caller's journal as CSV.
func (h *APIHandler) ExportTradesHandler(w http.ResponseWriter, r *http.Request, callerID uint) {
	trades, err := h.journal.List(r.Context(), callerID)
	if err != nil {
		h.log.Error("Failed to export trades", zap.Error(err))
		writeError(w, http.StatusInternalServerError, "Failed to export trades")
		return
	}

	w.Header().Set("Content-Type", "text/csv")
	w.Header().Set("Content-Disposition", `attachment; filename="trades.csv"`)
	if err := journal.WriteCSV(w, trades); err != nil {
		h.log.Error("Failed to write export", zap.Error(err))
	}
}

// --- dashboard handlers ---

// StatsHandler returns the overview statistics block.
func (h *APIHandler) StatsHandler(w http.ResponseWriter, r *http.Request, callerID uint) {
	trades, err := h.journal.List(r.Context(), callerID)
	if err != nil {
		h.log.Error("Failed to compute stats", zap.Error(err))
		writeError(w, http.StatusInternalServerError, "Failed to calculate statistics")
		return
	}
	writeJSON(w, http.StatusOK, analytics.Summarize(trades))
}

// EquityHandler returns the cumulative P&L curve.
func (h *APIHandler) EquityHandler(w http.ResponseWriter, r *http.Request, callerID uint) {
	trades, err := h.journal.List(r.Context(), callerID)
	if err != nil {
		h.log.Error("Failed to compute equity curve", zap.Error(err))
		writeError(w, http.StatusInternalServerError, "Failed to calculate statistics")
		return
	}
	writeJSON(w, http.StatusOK, analytics.EquityCurve(trades))
}

// CalendarHandler returns the month's P&L heatmap cells. Defaults to the
// current month.
func (h *APIHandler) CalendarHandler(w http.ResponseWriter, r *http.Request, callerID uint) {
	now := time.Now()
	year := now.Year()
	month := now.Month()
	if y := r.URL.Query().Get("year"); y != "" {
		if v, err := strconv.Atoi(y); err == nil {
			year = v
		}
	}
	if m := r.URL.Query().Get("month"); m != "" {
		if v, err := strconv.Atoi(m); err == nil && v >= 1 && v <= 12 {
			month = time.Month(v)
		}
	}

	trades, err := h.journal.List(r.Context(), callerID)
	if err != nil {
		h.log.Error("Failed to compute calendar", zap.Error(err))
		writeError(w, http.StatusInternalServerError, "Failed to calculate statistics")
		return
	}
	writeJSON(w, http.StatusOK, analytics.Calendar(trades, year, month))
}

// --- ancillary handlers ---

// MarketHandler returns index quotes for the ticker strip.
func (h *APIHandler) MarketHandler(w http.ResponseWriter, r *http.Request) {
	quotes, err := h.market.GetQuotes(r.Context())
	if err != nil {
		h.log.Error("Failed to get market data", zap.Error(err))
		writeError(w, http.StatusInternalServerError, "Failed to get market data")
		return
	}
	writeJSON(w, http.StatusOK, quotes)
}

// NewsHandler returns the latest market headlines.
func (h *APIHandler) NewsHandler(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, h.news.Latest(r.Context()))
}

// StatusHandler reports liveness and uptime.
func (h *APIHandler) StatusHandler(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{
		"status": "ok",
		"uptime": time.Since(h.startTime).String(),
	})
}
