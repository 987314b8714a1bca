// Package export renders a user's expenses as CSV or JSON downloads.
package export

import (
	"encoding/csv"
	"encoding/json"
	"fmt"
	"io"
	"strings"

	"github.com/shopspring/decimal"

	"github.com/TirthGandhi18/Coincious-Smart-Expense-Tracker-sub000/internal/models"
)

// Format is an export file format.
type Format string

const (
	CSV  Format = "csv"
	JSON Format = "json"
)

// ParseFormat accepts "csv" (the default when empty) or "json".
func ParseFormat(s string) (Format, error) {
	switch f := Format(strings.ToLower(strings.TrimSpace(s))); f {
	case "", CSV:
		return CSV, nil
	case JSON:
		return JSON, nil
	}
	return "", fmt.Errorf("unsupported export format %q", s)
}

// ContentType returns the MIME type for f.
func (f Format) ContentType() string {
	if f == JSON {
		return "application/json"
	}
	return "text/csv; charset=utf-8"
}

// Filename returns the attachment name for an export covering start..end.
func (f Format) Filename(start, end string) string {
	name := "coincious-expenses"
	if start != "" {
		name += "-" + start
	}
	if end != "" {
		name += "-to-" + end
	}
	return name + "." + string(f)
}

// Row is one exported expense as seen by the exporting user.
type Row struct {
	Date        string          `json:"date"`
	Description string          `json:"description"`
	Category    string          `json:"category"`
	Amount      decimal.Decimal `json:"amount"`
	YourShare   decimal.Decimal `json:"your_share"`
	Group       string          `json:"group"`
	PaidBy      string          `json:"paid_by"`
}

var header = []string{"date", "description", "category", "amount", "your_share", "group", "paid_by"}

// Rows converts expenses to rows from userID's point of view.
func Rows(expenses []*models.Expense, userID string) []Row {
	rows := make([]Row, 0, len(expenses))
	for _, e := range expenses {
		paidBy := e.PaidByName
		if e.UserID == userID {
			paidBy = "You"
		}
		rows = append(rows, Row{
			Date:        e.Date,
			Description: e.Description,
			Category:    e.Category,
			Amount:      e.Amount,
			YourShare:   e.ShareOf(userID),
			Group:       e.GroupName,
			PaidBy:      paidBy,
		})
	}
	return rows
}

// Write renders rows to w in format f.
func Write(w io.Writer, f Format, rows []Row) error {
	if f == JSON {
		return WriteJSON(w, rows)
	}
	return WriteCSV(w, rows)
}

// WriteCSV writes a header row followed by one line per row.
func WriteCSV(w io.Writer, rows []Row) error {
	cw := csv.NewWriter(w)
	if err := cw.Write(header); err != nil {
		return fmt.Errorf("failed to write header: %w", err)
	}
	for _, r := range rows {
		record := []string{
			r.Date,
			r.Description,
			r.Category,
			r.Amount.StringFixed(2),
			r.YourShare.StringFixed(2),
			r.Group,
			r.PaidBy,
		}
		if err := cw.Write(record); err != nil {
			return fmt.Errorf("failed to write row: %w", err)
		}
	}
	cw.Flush()
	return cw.Error()
}

// WriteJSON writes rows as a JSON array.
func WriteJSON(w io.Writer, rows []Row) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	if err := enc.Encode(rows); err != nil {
		return fmt.Errorf("failed to encode rows: %w", err)
	}
	return nil
}
