// Package source discovers and parses JSONL record exports.
package source

import (
	"bufio"
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/theirongolddev/finscore/internal/model"
)

// ErrInvalidRecord marks a line that parsed as JSON but is not a usable
// record.
var ErrInvalidRecord = errors.New("invalid record")

// ParseResult holds the output of parsing a single JSONL file.
type ParseResult struct {
	Records     model.RecordSet
	ParseErrors int
	// Skipped counts lines whose type is not a record type.
	Skipped int
	Err     error
}

// ParseFile reads a record export file.
func ParseFile(df DiscoveredFile) ParseResult {
	f, err := os.Open(df.Path)
	if err != nil {
		return ParseResult{Err: err}
	}
	defer func() { _ = f.Close() }()
	return ParseNamed(f, df.Path)
}

// Parse reads records from r. Records without an id keep it empty.
func Parse(r io.Reader) ParseResult {
	return ParseNamed(r, "")
}

// ParseNamed reads one record per line. Blank lines and lines starting with '#'
// are ignored. Lines that fail to decode or validate are counted in
// ParseErrors and skipped.
//
// Routing by top-level "type" field:
//   - "expense" → TransactionRecord
//   - "budget"  → BudgetRecord
//   - "lending" → LendingRecord
//   - everything else → skip
//
// When origin is set, records without an id get a UUID derived from origin,
// the line's content and how many identical lines came before it. Adding or
// removing other lines does not change the id of an unchanged line.
func ParseNamed(r io.Reader, origin string) ParseResult {
	var res ParseResult
	seen := make(map[string]int)

	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)

	for scanner.Scan() {
		line := bytes.TrimSpace(scanner.Bytes())
		if len(line) == 0 || line[0] == '#' {
			continue
		}

		recType := extractTopLevelType(line)
		if recType == "" {
			if !json.Valid(line) {
				res.ParseErrors++
			} else {
				res.Skipped++
			}
			continue
		}

		var raw RawRecord
		if err := json.Unmarshal(line, &raw); err != nil {
			res.ParseErrors++
			continue
		}
		if raw.ID == "" && origin != "" {
			n := seen[string(line)]
			seen[string(line)] = n + 1
			raw.ID = uuid.NewSHA1(uuid.NameSpaceURL, []byte(fmt.Sprintf("%s#%s#%d", origin, line, n))).String()
		}

		var err error
		switch recType {
		case TypeExpense:
			var t model.TransactionRecord
			if t, err = raw.Transaction(); err == nil {
				res.Records.Transactions = append(res.Records.Transactions, t)
			}
		case TypeBudget:
			var b model.BudgetRecord
			if b, err = raw.Budget(); err == nil {
				res.Records.Budgets = append(res.Records.Budgets, b)
			}
		case TypeLending:
			var l model.LendingRecord
			if l, err = raw.Lending(); err == nil {
				res.Records.Lendings = append(res.Records.Lendings, l)
			}
		}
		if err != nil {
			res.ParseErrors++
		}
	}

	if err := scanner.Err(); err != nil {
		return ParseResult{Err: err}
	}
	return res
}

// Transaction validates raw as an expense.
func (raw RawRecord) Transaction() (model.TransactionRecord, error) {
	if raw.Amount.IsNegative() {
		return model.TransactionRecord{}, fmt.Errorf("%w: negative amount", ErrInvalidRecord)
	}
	on, err := requireDate("date", raw.Date)
	if err != nil {
		return model.TransactionRecord{}, err
	}
	category := strings.TrimSpace(raw.Category)
	if category == "" {
		category = "Uncategorized"
	}
	return model.TransactionRecord{
		ID:            raw.ID,
		Amount:        raw.Amount,
		Category:      category,
		OccurredOn:    on,
		Vendor:        raw.Vendor,
		PaymentMethod: raw.PaymentMethod,
	}, nil
}

// Budget validates raw as a budget. Budgets are active unless is_active is
// explicitly false.
func (raw RawRecord) Budget() (model.BudgetRecord, error) {
	category := strings.TrimSpace(raw.Category)
	if category == "" {
		return model.BudgetRecord{}, fmt.Errorf("%w: budget without category", ErrInvalidRecord)
	}
	start, err := requireDate("start_date", raw.StartDate)
	if err != nil {
		return model.BudgetRecord{}, err
	}
	end, err := requireDate("end_date", raw.EndDate)
	if err != nil {
		return model.BudgetRecord{}, err
	}
	if end.Before(start) {
		return model.BudgetRecord{}, fmt.Errorf("%w: end_date before start_date", ErrInvalidRecord)
	}
	active := true
	if raw.IsActive != nil {
		active = *raw.IsActive
	}
	return model.BudgetRecord{
		ID:        raw.ID,
		Category:  category,
		Amount:    raw.Amount,
		StartDate: start,
		EndDate:   end,
		IsActive:  active,
	}, nil
}

// Lending validates raw as a lending record. Status defaults to active.
func (raw RawRecord) Lending() (model.LendingRecord, error) {
	person := strings.TrimSpace(raw.Person)
	if person == "" {
		return model.LendingRecord{}, fmt.Errorf("%w: lending without person", ErrInvalidRecord)
	}
	if !raw.Amount.IsPositive() {
		return model.LendingRecord{}, fmt.Errorf("%w: lending amount must be positive", ErrInvalidRecord)
	}

	kind := model.LendingKind(strings.ToLower(raw.Kind))
	switch kind {
	case model.KindLend, model.KindBorrow:
	default:
		return model.LendingRecord{}, fmt.Errorf("%w: unknown lending kind %q", ErrInvalidRecord, raw.Kind)
	}

	status := model.LendingStatus(strings.ToLower(raw.Status))
	switch status {
	case "":
		status = model.StatusActive
	case model.StatusActive, model.StatusCompleted, model.StatusOverdue, model.StatusCancelled, model.StatusPartial:
	default:
		return model.LendingRecord{}, fmt.Errorf("%w: unknown lending status %q", ErrInvalidRecord, raw.Status)
	}

	paid := decimal.Zero
	if raw.AmountPaid != nil {
		paid = *raw.AmountPaid
	}
	if paid.IsNegative() || paid.GreaterThan(raw.Amount) {
		return model.LendingRecord{}, fmt.Errorf("%w: amount_paid outside [0, amount]", ErrInvalidRecord)
	}

	on, err := requireDate("date", raw.Date)
	if err != nil {
		return model.LendingRecord{}, err
	}
	l := model.LendingRecord{
		ID:         raw.ID,
		Person:     person,
		Amount:     raw.Amount,
		AmountPaid: paid,
		Kind:       kind,
		Status:     status,
		OccurredOn: on,
	}
	if raw.DueDate != "" {
		due, err := requireDate("due_date", raw.DueDate)
		if err != nil {
			return model.LendingRecord{}, err
		}
		l.DueOn = &due
	}
	return l, nil
}

func requireDate(field, s string) (time.Time, error) {
	if s == "" {
		return time.Time{}, fmt.Errorf("%w: missing %s", ErrInvalidRecord, field)
	}
	t, err := time.Parse(model.DateLayout, s)
	if err != nil {
		return time.Time{}, fmt.Errorf("%w: %s: %v", ErrInvalidRecord, field, err)
	}
	return t, nil
}

// typeKey is the byte sequence for a JSON key named "type" (with quotes).
var typeKey = []byte(`"type"`)

// extractTopLevelType finds the top-level "type" field in a JSONL line.
// Tracks brace depth and string boundaries so nested "type" keys are ignored.
func extractTopLevelType(line []byte) string {
	depth := 0
	for i := 0; i < len(line); {
		switch line[i] {
		case '"':
			if depth == 1 && bytes.HasPrefix(line[i:], typeKey) {
				val, isKey := classifyType(line, i+len(typeKey))
				if isKey {
					return val
				}
			}
			i = skipJSONString(line, i)
		case '{':
			depth++
			i++
		case '}':
			depth--
			i++
		default:
			i++
		}
	}
	return ""
}

// classifyType checks whether pos follows a JSON key (expects : then value).
// isKey=false means "type" appeared as a value, not a key.
func classifyType(line []byte, pos int) (val string, isKey bool) {
	i := skipSpaces(line, pos)
	if i >= len(line) || line[i] != ':' {
		return "", false
	}
	i = skipSpaces(line, i+1)
	if i >= len(line) || line[i] != '"' {
		return "", true
	}
	i++

	end := bytes.IndexByte(line[i:], '"')
	if end < 0 || end > 20 {
		return "", true
	}
	v := string(line[i : i+end])
	switch v {
	case TypeExpense, TypeBudget, TypeLending:
		return v, true
	}
	return "", true
}

// skipJSONString advances past a JSON string starting at the opening quote.
//
//nolint:gosec // manual bounds checking throughout
func skipJSONString(line []byte, i int) int {
	i++
	for i < len(line) {
		switch line[i] {
		case '\\':
			i += 2
		case '"':
			return i + 1
		default:
			i++
		}
	}
	return i
}

func skipSpaces(line []byte, i int) int {
	for i < len(line) && (line[i] == ' ' || line[i] == '\t') {
		i++
	}
	return i
}
