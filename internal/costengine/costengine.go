package costengine

import "math"

// Direction says which side opened the position.
type Direction string

const (
	Long  Direction = "LONG"
	Short Direction = "SHORT"
)

// ParseDirection normalizes user-supplied direction strings. The web form and
// older export files use the broker's BUY/SELL wording.
func ParseDirection(s string) (Direction, bool) {
	switch s {
	case "LONG", "BUY", "long", "buy":
		return Long, true
	case "SHORT", "SELL", "short", "sell":
		return Short, true
	}
	return "", false
}

// Equity intraday rates (Zerodha/NSE flat-fee model).
const (
	brokerageRate    = 0.0003   // 0.03% per side
	brokerageCap     = 20.0     // per-side cap in rupees
	sttRate          = 0.00025  // sell side only
	exchangeTxnRate  = 0.0000297
	stampDutyRate    = 0.000003 // buy side only
	sebiRate         = 0.000001 // Rs 10 per crore
	gstRate          = 0.18
)

// Breakdown is the full charge sheet for a closed round-trip trade.
type Breakdown struct {
	Turnover     float64 `json:"turnover"`
	GrossPnl     float64 `json:"gross_pnl"`
	Brokerage    float64 `json:"brokerage"`
	STT          float64 `json:"stt"`
	ExchangeTxn  float64 `json:"exchange_txn"`
	StampDuty    float64 `json:"stamp_duty"`
	SEBIFees     float64 `json:"sebi_fees"`
	GST          float64 `json:"gst"`
	TotalCharges float64 `json:"total_charges"`
	NetPnl       float64 `json:"net_pnl"`
}

// Intraday computes turnover, the regulatory charge breakdown and net P&L for
// a closed equity intraday trade. Direction decides which price is the buy leg:
// a long entered at entry and sold at exit, a short the other way around.
//
// Each field is rounded to two decimals independently, matching the broker's
// displayed contract-note breakdown. Summing the rounded components can
// therefore differ from TotalCharges by a few paise; that is intentional.
//
// The function is pure arithmetic and does not validate its inputs; callers
// must reject non-positive prices and quantities before calling.
func Intraday(entryPrice, exitPrice float64, quantity int, dir Direction) Breakdown {
	buyPrice := entryPrice
	sellPrice := exitPrice
	if dir == Short {
		buyPrice, sellPrice = exitPrice, entryPrice
	}

	qty := float64(quantity)
	buyTurnover := buyPrice * qty
	sellTurnover := sellPrice * qty
	turnover := buyTurnover + sellTurnover

	brokerage := math.Min(brokerageCap, buyTurnover*brokerageRate) +
		math.Min(brokerageCap, sellTurnover*brokerageRate)
	stt := sellTurnover * sttRate
	exchangeTxn := turnover * exchangeTxnRate
	stampDuty := buyTurnover * stampDutyRate
	sebiFees := turnover * sebiRate

	// GST applies to service charges only, never to the STT and stamp duty
	// government levies.
	gst := (brokerage + exchangeTxn + sebiFees) * gstRate

	totalCharges := brokerage + stt + exchangeTxn + stampDuty + sebiFees + gst
	grossPnl := (sellPrice - buyPrice) * qty

	return Breakdown{
		Turnover:     round2(turnover),
		GrossPnl:     round2(grossPnl),
		Brokerage:    round2(brokerage),
		STT:          round2(stt),
		ExchangeTxn:  round2(exchangeTxn),
		StampDuty:    round2(stampDuty),
		SEBIFees:     round2(sebiFees),
		GST:          round2(gst),
		TotalCharges: round2(totalCharges),
		NetPnl:       round2(grossPnl - totalCharges),
	}
}

func round2(v float64) float64 {
	return math.Round(v*100) / 100
}
