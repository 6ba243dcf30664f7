// Package analytics aggregates journal trades into the dashboard figures:
// overview stats, the equity curve and the monthly P&L calendar. All functions
// are pure over a slice of trades; callers fetch the owner-scoped rows first.
package analytics

import (
	"sort"
	"time"

	"trade-journal-go/internal/models"
)

// Summary is the dashboard overview block.
type Summary struct {
	TotalTrades  int     `json:"total_trades"`
	OpenTrades   int     `json:"open_trades"`
	ClosedTrades int     `json:"closed_trades"`
	Wins         int     `json:"wins"`
	Losses       int     `json:"losses"`
	WinRate      float64 `json:"win_rate"`
	TotalNetPnl  float64 `json:"total_net_pnl"`
	TotalFees    float64 `json:"total_fees"`
	AverageWin   float64 `json:"average_win"`
	AverageLoss  float64 `json:"average_loss"`
	ProfitFactor float64 `json:"profit_factor"`
}

// Summarize computes overview statistics. Only closed trades count towards
// win rate and P&L; break-even trades count as neither win nor loss.
func Summarize(trades []models.Trade) Summary {
	var s Summary
	var grossWins, grossLosses float64

	for _, t := range trades {
		s.TotalTrades++
		if t.Status != models.StatusClosed {
			s.OpenTrades++
			continue
		}
		s.ClosedTrades++
		s.TotalNetPnl += t.NetPnl
		s.TotalFees += t.Fees

		switch {
		case t.NetPnl > 0:
			s.Wins++
			grossWins += t.NetPnl
		case t.NetPnl < 0:
			s.Losses++
			grossLosses += -t.NetPnl
		}
	}

	if s.ClosedTrades > 0 {
		s.WinRate = float64(s.Wins) / float64(s.ClosedTrades)
	}
	if s.Wins > 0 {
		s.AverageWin = grossWins / float64(s.Wins)
	}
	if s.Losses > 0 {
		s.AverageLoss = grossLosses / float64(s.Losses)
	}
	if grossLosses > 0 {
		s.ProfitFactor = grossWins / grossLosses
	}
	return s
}

// EquityPoint is one step of the cumulative P&L curve.
type EquityPoint struct {
	Date   time.Time `json:"date"`
	Equity float64   `json:"equity"`
}

// EquityCurve returns cumulative net P&L over closed trades in entry-date
// order. Open trades contribute nothing.
func EquityCurve(trades []models.Trade) []EquityPoint {
	closed := make([]models.Trade, 0, len(trades))
	for _, t := range trades {
		if t.Status == models.StatusClosed {
			closed = append(closed, t)
		}
	}
	sort.Slice(closed, func(i, j int) bool {
		return closed[i].EntryDate.Before(closed[j].EntryDate)
	})

	points := make([]EquityPoint, 0, len(closed))
	var equity float64
	for _, t := range closed {
		equity += t.NetPnl
		points = append(points, EquityPoint{Date: t.EntryDate, Equity: equity})
	}
	return points
}

// CalendarDay is one heatmap cell.
type CalendarDay struct {
	Day    int     `json:"day"`
	NetPnl float64 `json:"net_pnl"`
	Trades int     `json:"trades"`
}

// Calendar buckets a month's closed trades by day for the P&L heatmap. Days
// without trades are omitted.
func Calendar(trades []models.Trade, year int, month time.Month) []CalendarDay {
	byDay := make(map[int]*CalendarDay)
	for _, t := range trades {
		if t.Status != models.StatusClosed {
			continue
		}
		d := t.EntryDate
		if d.Year() != year || d.Month() != month {
			continue
		}
		cell, ok := byDay[d.Day()]
		if !ok {
			cell = &CalendarDay{Day: d.Day()}
			byDay[d.Day()] = cell
		}
		cell.NetPnl += t.NetPnl
		cell.Trades++
	}

	days := make([]CalendarDay, 0, len(byDay))
	for _, cell := range byDay {
		days = append(days, *cell)
	}
	sort.Slice(days, func(i, j int) bool { return days[i].Day < days[j].Day })
	return days
}
