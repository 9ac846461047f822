package source

import (
	"github.com/shopspring/decimal"
)

// Record types carried in the top-level "type" field of each line.
const (
	TypeExpense = "expense"
	TypeBudget  = "budget"
	TypeLending = "lending"
)

// RawRecord is one line of a record export. Which fields apply depends on
// Type. Amounts accept JSON numbers or decimal strings.
type RawRecord struct {
	Type   string          `json:"type"`
	ID     string          `json:"id,omitempty"`
	Amount decimal.Decimal `json:"amount"`
	Date   string          `json:"date,omitempty"`

	// expense
	Category      string `json:"category,omitempty"`
	Vendor        string `json:"vendor,omitempty"`
	PaymentMethod string `json:"payment_method,omitempty"`

	// budget
	StartDate string `json:"start_date,omitempty"`
	EndDate   string `json:"end_date,omitempty"`
	IsActive  *bool  `json:"is_active,omitempty"`

	// lending
	Person     string           `json:"person,omitempty"`
	AmountPaid *decimal.Decimal `json:"amount_paid,omitempty"`
	Kind       string           `json:"kind,omitempty"`
	Status     string           `json:"status,omitempty"`
	DueDate    string           `json:"due_date,omitempty"`
}

// DiscoveredFile represents a record file found during directory scanning.
type DiscoveredFile struct {
	Path string
	Name string // base name without extension
}
