package core

import (
	"errors"
	"strings"
	"time"
)

const (
	ModeCash = "Cash"
	ModeBank = "Bank"
	ModeUPI  = "UPI"

	DefaultCategory = "Other"
)

// BaseCategories is the built-in category list offered in the entry form.
// Custom categories typed by the user are accepted alongside these.
var BaseCategories = []string{
	"Office petty cash",
	"Tea break",
	"Labour Charges",
	"Stationeries",
	"Salary",
	"Water can",
	"Courier services",
	"Food",
	DefaultCategory,
}

type (
	// TxDate is a calendar date that may be empty. Legacy rows in the backing
	// table can carry blank or unparseable dates; those rows stay in the
	// dataset but never match any period.
	TxDate struct {
		time.Time
	}

	Money struct {
		Cents int64
	}

	// Transaction is the canonical ledger row. ID is assigned once at
	// creation and never changes, so edits can address rows regardless of
	// their position in the full dataset.
	Transaction struct {
		ID            string
		Date          TxDate
		Remark        string
		Category      string
		Mode          string
		CashIn        Money
		CashOut       Money
		AttachmentRef string
	}
)

var (
	ErrInvalidAmount = errors.New("invalid amount")
	ErrInvalidMonth  = errors.New("invalid month")
)

// txDateLayouts are tried in order when parsing dates from the table store
// or imported files. The store always writes the first layout.
var txDateLayouts = []string{
	"2006-01-02",
	"2006/01/02",
	"02/01/2006",
	"02-01-2006",
	"02 Jan 2006",
	"Jan 2, 2006",
	time.RFC3339,
}

// NewTxDate creates a date from year, month, day.
func NewTxDate(year, month, day int) TxDate {
	return TxDate{Time: time.Date(year, time.Month(month), day, 0, 0, 0, 0, time.UTC)}
}

// ParseTxDate parses a date string leniently. The empty string, or a string
// no known layout matches, yields an empty TxDate with ok=false.
func ParseTxDate(s string) (TxDate, bool) {
	s = strings.TrimSpace(s)
	if s == "" {
		return TxDate{}, false
	}
	for _, layout := range txDateLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return TxDate{Time: time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC)}, true
		}
	}
	return TxDate{}, false
}

// IsEmpty reports whether the date is absent or was unparseable.
func (d TxDate) IsEmpty() bool {
	return d.IsZero()
}

// String renders the canonical serialized form, or "" for empty dates.
func (d TxDate) String() string {
	if d.IsEmpty() {
		return ""
	}
	return d.Format("2006-01-02")
}

// Display renders the date for reports, e.g. "05 Mar 25".
func (d TxDate) Display() string {
	if d.IsEmpty() {
		return ""
	}
	return d.Format("02 Jan 06")
}

func (m Money) Validate() error {
	if m.Cents <= 0 {
		return ErrInvalidAmount
	}
	return nil
}

// Normalize fills the defaulted fields of a transaction the same way the
// table loader does: empty category becomes "Other", empty mode "Cash".
func (t Transaction) Normalize() Transaction {
	if strings.TrimSpace(t.Category) == "" {
		t.Category = DefaultCategory
	}
	if strings.TrimSpace(t.Mode) == "" {
		t.Mode = ModeCash
	}
	return t
}
