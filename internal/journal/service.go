package journal

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"trade-journal-go/internal/costengine"
	"trade-journal-go/internal/models"

	"go.uber.org/zap"
	"gorm.io/gorm"
)

// ErrNotFound covers both "no such trade" and "not your trade". The two cases
// are deliberately indistinguishable so that callers cannot probe for the
// existence of other users' records.
var ErrNotFound = errors.New("trade not found")

// ErrInvalidInput is returned for structurally invalid trade attributes.
var ErrInvalidInput = errors.New("invalid trade input")

// TradeInput carries the raw attributes of a trade as supplied by a form
// submission or an import row, already parsed into typed values.
type TradeInput struct {
	Symbol     string
	Direction  costengine.Direction
	EntryPrice float64
	ExitPrice  *float64 // nil while the position is open
	Quantity   int
	StopLoss   float64
	EntryDate  time.Time
}

// Service owns trade persistence and keeps every record consistent with the
// cost engine output.
type Service struct {
	logger *zap.Logger
	db     *gorm.DB
}

// NewService creates a journal service.
func NewService(logger *zap.Logger, db *gorm.DB) *Service {
	return &Service{logger: logger.Named("journal"), db: db}
}

// validate rejects inputs the cost engine must never see.
func validate(in *TradeInput) error {
	if strings.TrimSpace(in.Symbol) == "" {
		return fmt.Errorf("%w: symbol is required", ErrInvalidInput)
	}
	if in.Direction != costengine.Long && in.Direction != costengine.Short {
		return fmt.Errorf("%w: direction must be LONG or SHORT", ErrInvalidInput)
	}
	if in.Quantity <= 0 {
		return fmt.Errorf("%w: quantity must be positive", ErrInvalidInput)
	}
	if in.EntryPrice <= 0 {
		return fmt.Errorf("%w: entry price must be positive", ErrInvalidInput)
	}
	if in.ExitPrice != nil && *in.ExitPrice <= 0 {
		return fmt.Errorf("%w: exit price must be positive", ErrInvalidInput)
	}
	if in.StopLoss < 0 {
		return fmt.Errorf("%w: stop loss cannot be negative", ErrInvalidInput)
	}
	if in.EntryDate.IsZero() {
		return fmt.Errorf("%w: entry date is required", ErrInvalidInput)
	}
	return nil
}

// derivedFields is the cost-engine output merged into a trade record.
type derivedFields struct {
	GrossPnl *float64
	Fees     float64
	NetPnl   float64
	Status   string
}

// deriveClosedFields recomputes every derived field from the raw inputs.
// An open trade (no exit price) carries no P&L; a closed trade gets the full
// charge-adjusted figures. Callers must never patch GrossPnl, Fees or NetPnl
// independently of this function.
func deriveClosedFields(in *TradeInput) derivedFields {
	if in.ExitPrice == nil {
		return derivedFields{GrossPnl: nil, Fees: 0, NetPnl: 0, Status: models.StatusOpen}
	}
	b := costengine.Intraday(in.EntryPrice, *in.ExitPrice, in.Quantity, in.Direction)
	gross := b.GrossPnl
	return derivedFields{
		GrossPnl: &gross,
		Fees:     b.TotalCharges,
		NetPnl:   b.NetPnl,
		Status:   models.StatusClosed,
	}
}

// apply copies the validated input and its derivation onto a record.
func apply(t *models.Trade, in *TradeInput) {
	d := deriveClosedFields(in)
	t.Symbol = strings.ToUpper(strings.TrimSpace(in.Symbol))
	t.Direction = string(in.Direction)
	t.EntryPrice = in.EntryPrice
	t.ExitPrice = in.ExitPrice
	t.Quantity = in.Quantity
	t.StopLoss = in.StopLoss
	t.EntryDate = in.EntryDate
	t.Status = d.Status
	t.GrossPnl = d.GrossPnl
	t.Fees = d.Fees
	t.NetPnl = d.NetPnl
}

// Create validates the input, derives the P&L fields and persists a new trade
// owned by callerID.
func (s *Service) Create(ctx context.Context, callerID uint, in TradeInput) (*models.Trade, error) {
	if err := validate(&in); err != nil {
		return nil, err
	}

	trade := models.Trade{UserID: callerID}
	apply(&trade, &in)

	if err := s.db.WithContext(ctx).Create(&trade).Error; err != nil {
		s.logger.Error("Failed to create trade", zap.Uint("user_id", callerID), zap.Error(err))
		return nil, fmt.Errorf("failed to create trade: %w", err)
	}

	s.logger.Info("Trade created",
		zap.Uint("trade_id", trade.ID),
		zap.Uint("user_id", callerID),
		zap.String("symbol", trade.Symbol),
		zap.String("status", trade.Status))
	return &trade, nil
}

// Get returns a single trade, scoped to the caller.
func (s *Service) Get(ctx context.Context, callerID, id uint) (*models.Trade, error) {
	var trade models.Trade
	err := s.db.WithContext(ctx).
		Where("id = ? AND user_id = ?", id, callerID).
		First(&trade).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to load trade: %w", err)
	}
	return &trade, nil
}

// List returns all of the caller's trades, most recent entry first.
func (s *Service) List(ctx context.Context, callerID uint) ([]models.Trade, error) {
	var trades []models.Trade
	err := s.db.WithContext(ctx).
		Where("user_id = ?", callerID).
		Order("entry_date desc").
		Find(&trades).Error
	if err != nil {
		return nil, fmt.Errorf("failed to list trades: %w", err)
	}
	return trades, nil
}

// Update replaces the trade's raw attributes and re-derives every computed
// field from scratch. Partial recomputation would let a stale Fees value break
// the NetPnl == GrossPnl - Fees invariant, so the whole derivation runs again.
func (s *Service) Update(ctx context.Context, callerID, id uint, in TradeInput) (*models.Trade, error) {
	if err := validate(&in); err != nil {
		return nil, err
	}

	trade, err := s.Get(ctx, callerID, id)
	if err != nil {
		return nil, err
	}

	apply(trade, &in)

	if err := s.db.WithContext(ctx).Save(trade).Error; err != nil {
		s.logger.Error("Failed to update trade", zap.Uint("trade_id", id), zap.Error(err))
		return nil, fmt.Errorf("failed to update trade: %w", err)
	}

	s.logger.Info("Trade updated", zap.Uint("trade_id", id), zap.Uint("user_id", callerID))
	return trade, nil
}

// Delete removes the caller's trade. The delete statement is scoped by both id
// and user_id so ownership is re-verified at the moment of deletion, not just
// at load time.
func (s *Service) Delete(ctx context.Context, callerID, id uint) error {
	if _, err := s.Get(ctx, callerID, id); err != nil {
		return err
	}

	res := s.db.WithContext(ctx).
		Where("id = ? AND user_id = ?", id, callerID).
		Delete(&models.Trade{})
	if res.Error != nil {
		s.logger.Error("Failed to delete trade", zap.Uint("trade_id", id), zap.Error(res.Error))
		return fmt.Errorf("failed to delete trade: %w", res.Error)
	}
	if res.RowsAffected == 0 {
		return ErrNotFound
	}

	s.logger.Info("Trade deleted", zap.Uint("trade_id", id), zap.Uint("user_id", callerID))
	return nil
}

// ImportResult reports the outcome of a bulk import.
type ImportResult struct {
	Imported int      `json:"imported"`
	Skipped  int      `json:"skipped"`
	Errors   []string `json:"errors,omitempty"`
}

// Import persists a batch of trades for the caller. Rows failing structural
// validation are dropped from the batch and reported; a bad row never aborts
// the rest.
func (s *Service) Import(ctx context.Context, callerID uint, rows []TradeInput) (*ImportResult, error) {
	result := &ImportResult{}
	var batch []models.Trade

	for i := range rows {
		if err := validate(&rows[i]); err != nil {
			result.Skipped++
			result.Errors = append(result.Errors, fmt.Sprintf("row %d: %v", i+1, err))
			continue
		}
		trade := models.Trade{UserID: callerID}
		apply(&trade, &rows[i])
		batch = append(batch, trade)
	}

	if len(batch) > 0 {
		if err := s.db.WithContext(ctx).Create(&batch).Error; err != nil {
			s.logger.Error("Failed to import trades", zap.Uint("user_id", callerID), zap.Error(err))
			return nil, fmt.Errorf("failed to import trades: %w", err)
		}
	}
	result.Imported = len(batch)

	s.logger.Info("Trades imported",
		zap.Uint("user_id", callerID),
		zap.Int("imported", result.Imported),
		zap.Int("skipped", result.Skipped))
	return result, nil
}
