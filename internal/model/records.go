// Package model defines the record snapshots and report types shared by the
// finscore analytics pipeline.
package model

import (
	"time"

	"github.com/shopspring/decimal"
)

// LendingKind says which side of a lending transaction the user is on.
type LendingKind string

const (
	KindLend   LendingKind = "lend"
	KindBorrow LendingKind = "borrow"
)

// LendingStatus is the lifecycle state of a lending transaction.
type LendingStatus string

const (
	StatusActive    LendingStatus = "active"
	StatusCompleted LendingStatus = "completed"
	StatusOverdue   LendingStatus = "overdue"
	StatusCancelled LendingStatus = "cancelled"
	StatusPartial   LendingStatus = "partial"
)

// TransactionRecord is one expense as handed over by the record source.
// The engine never writes to it.
type TransactionRecord struct {
	ID            string          `json:"id"`
	UserID        string          `json:"user_id"`
	Amount        decimal.Decimal `json:"amount"`
	Category      string          `json:"category"`
	OccurredOn    time.Time       `json:"occurred_on"`
	Vendor        string          `json:"vendor,omitempty"`
	PaymentMethod string          `json:"payment_method,omitempty"`
}

// BudgetRecord allocates an amount to a category over [StartDate, EndDate].
type BudgetRecord struct {
	ID        string          `json:"id"`
	UserID    string          `json:"user_id"`
	Category  string          `json:"category"`
	Amount    decimal.Decimal `json:"amount"`
	StartDate time.Time       `json:"start_date"`
	EndDate   time.Time       `json:"end_date"`
	IsActive  bool            `json:"is_active"`
}

// Overlaps reports whether the budget window shares at least one day with w.
func (b BudgetRecord) Overlaps(w PeriodWindow) bool {
	return !DateOf(b.StartDate).After(w.End) && !DateOf(b.EndDate).Before(w.Start)
}

// LendingRecord is money lent to or borrowed from a counterparty.
type LendingRecord struct {
	ID         string          `json:"id"`
	UserID     string          `json:"user_id"`
	Person     string          `json:"person"`
	Amount     decimal.Decimal `json:"amount"`
	AmountPaid decimal.Decimal `json:"amount_paid"`
	Kind       LendingKind     `json:"kind"`
	Status     LendingStatus   `json:"status"`
	DueOn      *time.Time      `json:"due_on,omitempty"`
	OccurredOn time.Time       `json:"occurred_on"`
}

// IsOpen is true while the transaction still carries exposure.
func (l LendingRecord) IsOpen() bool {
	switch l.Status {
	case StatusActive, StatusPartial, StatusOverdue:
		return true
	}
	return false
}

// Outstanding returns the unpaid part of the amount, never negative.
func (l LendingRecord) Outstanding() decimal.Decimal {
	rest := l.Amount.Sub(l.AmountPaid)
	if rest.IsNegative() {
		return decimal.Zero
	}
	return rest
}

// PastDue is true for an open record whose due date is before asOf.
func (l LendingRecord) PastDue(asOf time.Time) bool {
	if !l.IsOpen() || l.DueOn == nil {
		return false
	}
	return DateOf(*l.DueOn).Before(DateOf(asOf))
}

// DateOf truncates t to its calendar date at UTC midnight.
func DateOf(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

// RecordSet groups records of all three kinds, as parsed from an export or
// imported into a store in one batch.
type RecordSet struct {
	Transactions []TransactionRecord `json:"transactions"`
	Budgets      []BudgetRecord      `json:"budgets"`
	Lendings     []LendingRecord     `json:"lendings"`
}

// Len returns the number of records in the set.
func (s RecordSet) Len() int {
	return len(s.Transactions) + len(s.Budgets) + len(s.Lendings)
}

// Append adds every record of o to s.
func (s *RecordSet) Append(o RecordSet) {
	s.Transactions = append(s.Transactions, o.Transactions...)
	s.Budgets = append(s.Budgets, o.Budgets...)
	s.Lendings = append(s.Lendings, o.Lendings...)
}
