package journal

import (
	"encoding/csv"
	"fmt"
	"io"
	"strconv"
	"strings"
	"time"

	"trade-journal-go/internal/costengine"
	"trade-journal-go/internal/models"
)

// Import/export column set. Import matches headers case-insensitively and
// accepts the short spreadsheet-template names ("Qty", "Entry", "SL") as well
// as the long ones.
var exportHeader = []string{
	"Date", "Symbol", "Type", "Quantity", "Entry Price", "Exit Price",
	"Stop Loss", "Status", "Gross P/L", "Fees", "Net P/L",
}

var dateLayouts = []string{
	"2006-01-02",
	"2006-01-02 15:04:05",
	time.RFC3339,
	"02-01-2006",
	"02/01/2006",
}

// ParseDate accepts the date formats seen in trade forms and export files.
func ParseDate(s string) (time.Time, error) {
	s = strings.TrimSpace(s)
	for _, layout := range dateLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return t, nil
		}
	}
	return time.Time{}, fmt.Errorf("unrecognized date %q", s)
}

// columnIndex maps normalized header names to their position.
func columnIndex(header []string) map[string]int {
	idx := make(map[string]int, len(header))
	for i, h := range header {
		key := strings.ToLower(strings.TrimSpace(h))
		key = strings.ReplaceAll(key, " ", "")
		switch key {
		case "qty":
			key = "quantity"
		case "entry":
			key = "entryprice"
		case "exit":
			key = "exitprice"
		case "sl":
			key = "stoploss"
		case "type", "direction", "side":
			key = "direction"
		}
		idx[key] = i
	}
	return idx
}

func field(record []string, idx map[string]int, name string) string {
	i, ok := idx[name]
	if !ok || i >= len(record) {
		return ""
	}
	return strings.TrimSpace(record[i])
}

// ParseCSV reads an uploaded trade sheet into import rows. Rows that cannot be
// parsed at all (bad numbers, bad dates) come back with zero values and are
// rejected later by the structural validation in Import; parsing here is
// deliberately lenient so one mangled row never sinks the upload.
func ParseCSV(r io.Reader) ([]TradeInput, error) {
	reader := csv.NewReader(r)
	reader.FieldsPerRecord = -1

	header, err := reader.Read()
	if err != nil {
		return nil, fmt.Errorf("failed to read header: %w", err)
	}
	idx := columnIndex(header)

	var rows []TradeInput
	for {
		record, err := reader.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("failed to read row: %w", err)
		}

		var in TradeInput
		in.Symbol = field(record, idx, "symbol")
		in.Direction, _ = costengine.ParseDirection(field(record, idx, "direction"))
		in.EntryPrice, _ = strconv.ParseFloat(field(record, idx, "entryprice"), 64)
		in.Quantity, _ = strconv.Atoi(field(record, idx, "quantity"))
		in.StopLoss, _ = strconv.ParseFloat(field(record, idx, "stoploss"), 64)
		in.EntryDate, _ = ParseDate(field(record, idx, "date"))

		if exit := field(record, idx, "exitprice"); exit != "" {
			if v, err := strconv.ParseFloat(exit, 64); err == nil {
				in.ExitPrice = &v
			}
		}

		rows = append(rows, in)
	}
	return rows, nil
}

// WriteCSV streams the caller's trades as a download-ready report.
func WriteCSV(w io.Writer, trades []models.Trade) error {
	writer := csv.NewWriter(w)

	if err := writer.Write(exportHeader); err != nil {
		return fmt.Errorf("failed to write header: %w", err)
	}

	for _, t := range trades {
		exit := ""
		if t.ExitPrice != nil {
			exit = strconv.FormatFloat(*t.ExitPrice, 'f', 2, 64)
		}
		gross := ""
		if t.GrossPnl != nil {
			gross = strconv.FormatFloat(*t.GrossPnl, 'f', 2, 64)
		}
		row := []string{
			t.EntryDate.Format("2006-01-02"),
			t.Symbol,
			t.Direction,
			strconv.Itoa(t.Quantity),
			strconv.FormatFloat(t.EntryPrice, 'f', 2, 64),
			exit,
			strconv.FormatFloat(t.StopLoss, 'f', 2, 64),
			t.Status,
			gross,
			strconv.FormatFloat(t.Fees, 'f', 2, 64),
			strconv.FormatFloat(t.NetPnl, 'f', 2, 64),
		}
		if err := writer.Write(row); err != nil {
			return fmt.Errorf("failed to write row: %w", err)
		}
	}

	writer.Flush()
	return writer.Error()
}
