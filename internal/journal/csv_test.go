package journal

import (
	"bytes"
	"strings"
	"testing"
	"time"

	"trade-journal-go/internal/costengine"
	"trade-journal-go/internal/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseCSV(t *testing.T) {
	input := strings.Join([]string{
		"Date,Symbol,Type,Qty,Entry,Exit,SL",
		"2024-03-11,RELIANCE,BUY,100,2500,2520,2480",
		"2024-03-12,tcs,SELL,50,3900,,0",
		"not-a-date,INFY,BUY,abc,xyz,,",
	}, "\n")

	rows, err := ParseCSV(strings.NewReader(input))
	require.NoError(t, err)
	require.Len(t, rows, 3)

	assert.Equal(t, "RELIANCE", rows[0].Symbol)
	assert.Equal(t, costengine.Long, rows[0].Direction)
	assert.Equal(t, 2500.0, rows[0].EntryPrice)
	require.NotNil(t, rows[0].ExitPrice)
	assert.Equal(t, 2520.0, *rows[0].ExitPrice)
	assert.Equal(t, 100, rows[0].Quantity)
	assert.Equal(t, time.Date(2024, 3, 11, 0, 0, 0, 0, time.UTC), rows[0].EntryDate)

	// Open trade: empty exit column stays nil.
	assert.Equal(t, costengine.Short, rows[1].Direction)
	assert.Nil(t, rows[1].ExitPrice)

	// Mangled row parses to zero values; Import's validation drops it later.
	assert.Zero(t, rows[2].Quantity)
	assert.Zero(t, rows[2].EntryPrice)
	assert.True(t, rows[2].EntryDate.IsZero())
}

func TestParseCSV_LongHeaderNames(t *testing.T) {
	input := strings.Join([]string{
		"Date,Symbol,Direction,Quantity,Entry Price,Exit Price,Stop Loss",
		"2024-01-05,NIFTY,LONG,75,21500.50,21580.25,21450",
	}, "\n")

	rows, err := ParseCSV(strings.NewReader(input))
	require.NoError(t, err)
	require.Len(t, rows, 1)
	assert.Equal(t, 21500.50, rows[0].EntryPrice)
	assert.Equal(t, 21450.0, rows[0].StopLoss)
}

func TestParseCSV_EmptyFile(t *testing.T) {
	_, err := ParseCSV(strings.NewReader(""))
	assert.Error(t, err)
}

func TestWriteCSV_RoundTrip(t *testing.T) {
	gross := 1893.0
	exit := 2520.0
	trades := []models.Trade{
		{
			UserID:     1,
			Symbol:     "RELIANCE",
			Direction:  "LONG",
			EntryPrice: 2500,
			ExitPrice:  &exit,
			Quantity:   100,
			StopLoss:   2480,
			EntryDate:  time.Date(2024, 3, 11, 0, 0, 0, 0, time.UTC),
			Status:     models.StatusClosed,
			GrossPnl:   &gross,
			Fees:       107.0,
			NetPnl:     1786.0,
		},
		{
			UserID:     1,
			Symbol:     "TCS",
			Direction:  "SHORT",
			EntryPrice: 3900,
			Quantity:   50,
			EntryDate:  time.Date(2024, 3, 12, 0, 0, 0, 0, time.UTC),
			Status:     models.StatusOpen,
		},
	}

	var buf bytes.Buffer
	require.NoError(t, WriteCSV(&buf, trades))

	out := buf.String()
	lines := strings.Split(strings.TrimSpace(out), "\n")
	require.Len(t, lines, 3)
	assert.Contains(t, lines[0], "Net P/L")
	assert.Contains(t, lines[1], "2024-03-11,RELIANCE,LONG,100,2500.00,2520.00")
	assert.Contains(t, lines[1], "1786.00")

	// Open trade exports blank exit and gross columns.
	assert.Contains(t, lines[2], "TCS,SHORT,50,3900.00,,")

	// The export parses back through the importer.
	rows, err := ParseCSV(strings.NewReader(out))
	require.NoError(t, err)
	require.Len(t, rows, 2)
	assert.Equal(t, "RELIANCE", rows[0].Symbol)
	assert.Nil(t, rows[1].ExitPrice)
}
