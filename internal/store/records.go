package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/theirongolddev/finscore/internal/model"
)

// Counts holds the number of stored records per kind.
type Counts struct {
	Transactions int `json:"transactions"`
	Budgets      int `json:"budgets"`
	Lendings     int `json:"lendings"`
}

// Import upserts every record of b for userID in one transaction and bumps
// the user's dataset revision. Records without an ID get a new UUID; the
// UserID of each record is overwritten with userID. Records are keyed by
// (user, ID), so two users never share a row.
func (s *Store) Import(ctx context.Context, userID string, b model.RecordSet) error {
	if b.Len() == 0 {
		return nil
	}
	return s.inTx(ctx, func(tx *sql.Tx) error {
		if err := s.upsertRecords(ctx, tx, userID, "", b); err != nil {
			return err
		}
		return s.bumpVersion(ctx, tx, userID)
	})
}

// ReplaceFile makes b the complete set of records the user has from path.
// Rows previously imported from path that are not in b are deleted in the
// same transaction, so a shrunken file leaves nothing behind. The revision
// is bumped even when b is empty.
func (s *Store) ReplaceFile(ctx context.Context, userID, path string, b model.RecordSet) error {
	return s.inTx(ctx, func(tx *sql.Tx) error {
		for _, table := range []string{"transactions", "budgets", "lendings"} {
			_, err := tx.ExecContext(ctx, s.rebind("DELETE FROM "+table+" WHERE user_id = ? AND source_file = ?"), userID, path)
			if err != nil {
				return fmt.Errorf("clearing %s from %s: %w", table, path, err)
			}
		}
		if err := s.upsertRecords(ctx, tx, userID, path, b); err != nil {
			return err
		}
		return s.bumpVersion(ctx, tx, userID)
	})
}

func (s *Store) inTx(ctx context.Context, fn func(tx *sql.Tx) error) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer func() { _ = tx.Rollback() }()
	if err := fn(tx); err != nil {
		return err
	}
	return tx.Commit()
}

func (s *Store) upsertRecords(ctx context.Context, tx *sql.Tx, userID, source string, b model.RecordSet) error {
	txnQ := s.rebind(`INSERT INTO transactions
		(id, user_id, amount, category, occurred_on, vendor, payment_method, source_file)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT (user_id, id) DO UPDATE SET
		amount = excluded.amount, category = excluded.category, occurred_on = excluded.occurred_on,
		vendor = excluded.vendor, payment_method = excluded.payment_method, source_file = excluded.source_file`)
	for _, t := range b.Transactions {
		_, err := tx.ExecContext(ctx, txnQ,
			idOrNew(t.ID), userID, t.Amount.String(), t.Category, formatDate(t.OccurredOn), t.Vendor, t.PaymentMethod, source)
		if err != nil {
			return fmt.Errorf("importing transaction: %w", err)
		}
	}

	budgetQ := s.rebind(`INSERT INTO budgets
		(id, user_id, category, amount, start_date, end_date, is_active, source_file)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT (user_id, id) DO UPDATE SET
		category = excluded.category, amount = excluded.amount, start_date = excluded.start_date,
		end_date = excluded.end_date, is_active = excluded.is_active, source_file = excluded.source_file`)
	for _, bg := range b.Budgets {
		active := 0
		if bg.IsActive {
			active = 1
		}
		_, err := tx.ExecContext(ctx, budgetQ,
			idOrNew(bg.ID), userID, bg.Category, bg.Amount.String(), formatDate(bg.StartDate), formatDate(bg.EndDate), active, source)
		if err != nil {
			return fmt.Errorf("importing budget: %w", err)
		}
	}

	lendQ := s.rebind(`INSERT INTO lendings
		(id, user_id, person, amount, amount_paid, kind, status, due_on, occurred_on, source_file)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT (user_id, id) DO UPDATE SET
		person = excluded.person, amount = excluded.amount, amount_paid = excluded.amount_paid,
		kind = excluded.kind, status = excluded.status, due_on = excluded.due_on,
		occurred_on = excluded.occurred_on, source_file = excluded.source_file`)
	for _, l := range b.Lendings {
		var due sql.NullString
		if l.DueOn != nil {
			due = sql.NullString{String: formatDate(*l.DueOn), Valid: true}
		}
		_, err := tx.ExecContext(ctx, lendQ,
			idOrNew(l.ID), userID, l.Person, l.Amount.String(), l.AmountPaid.String(),
			string(l.Kind), string(l.Status), due, formatDate(l.OccurredOn), source)
		if err != nil {
			return fmt.Errorf("importing lending record: %w", err)
		}
	}
	return nil
}

func (s *Store) bumpVersion(ctx context.Context, tx *sql.Tx, userID string) error {
	_, err := tx.ExecContext(ctx, s.rebind(`INSERT INTO dataset_versions (user_id, revision) VALUES (?, 1)
		ON CONFLICT (user_id) DO UPDATE SET revision = dataset_versions.revision + 1`), userID)
	if err != nil {
		return fmt.Errorf("bumping dataset version: %w", err)
	}
	return nil
}

// Transactions returns the user's transactions dated inside w, oldest first.
func (s *Store) Transactions(ctx context.Context, userID string, w model.PeriodWindow) ([]model.TransactionRecord, error) {
	rows, err := s.db.QueryContext(ctx, s.rebind(`SELECT
		id, user_id, amount, category, occurred_on, vendor, payment_method
		FROM transactions
		WHERE user_id = ? AND occurred_on >= ? AND occurred_on <= ?
		ORDER BY occurred_on, id`),
		userID, formatDate(w.Start), formatDate(w.End))
	if err != nil {
		return nil, err
	}
	defer func() { _ = rows.Close() }()

	var out []model.TransactionRecord
	for rows.Next() {
		var t model.TransactionRecord
		var amount, occurred string
		if err := rows.Scan(&t.ID, &t.UserID, &amount, &t.Category, &occurred, &t.Vendor, &t.PaymentMethod); err != nil {
			return nil, err
		}
		if t.Amount, err = decimal.NewFromString(amount); err != nil {
			return nil, fmt.Errorf("transaction %s amount: %w", t.ID, err)
		}
		if t.OccurredOn, err = parseDate(occurred); err != nil {
			return nil, fmt.Errorf("transaction %s date: %w", t.ID, err)
		}
		out = append(out, t)
	}
	return out, rows.Err()
}

// Budgets returns all budgets of the user, active or not.
func (s *Store) Budgets(ctx context.Context, userID string) ([]model.BudgetRecord, error) {
	rows, err := s.db.QueryContext(ctx, s.rebind(`SELECT
		id, user_id, category, amount, start_date, end_date, is_active
		FROM budgets WHERE user_id = ? ORDER BY category, id`), userID)
	if err != nil {
		return nil, err
	}
	defer func() { _ = rows.Close() }()

	var out []model.BudgetRecord
	for rows.Next() {
		var b model.BudgetRecord
		var amount, start, end string
		var active int
		if err := rows.Scan(&b.ID, &b.UserID, &b.Category, &amount, &start, &end, &active); err != nil {
			return nil, err
		}
		if b.Amount, err = decimal.NewFromString(amount); err != nil {
			return nil, fmt.Errorf("budget %s amount: %w", b.ID, err)
		}
		if b.StartDate, err = parseDate(start); err != nil {
			return nil, fmt.Errorf("budget %s start: %w", b.ID, err)
		}
		if b.EndDate, err = parseDate(end); err != nil {
			return nil, fmt.Errorf("budget %s end: %w", b.ID, err)
		}
		b.IsActive = active != 0
		out = append(out, b)
	}
	return out, rows.Err()
}

// Lendings returns every lending record of the user.
func (s *Store) Lendings(ctx context.Context, userID string) ([]model.LendingRecord, error) {
	rows, err := s.db.QueryContext(ctx, s.rebind(`SELECT
		id, user_id, person, amount, amount_paid, kind, status, due_on, occurred_on
		FROM lendings WHERE user_id = ? ORDER BY occurred_on, id`), userID)
	if err != nil {
		return nil, err
	}
	defer func() { _ = rows.Close() }()

	var out []model.LendingRecord
	for rows.Next() {
		var l model.LendingRecord
		var amount, paid, kind, status, occurred string
		var due sql.NullString
		if err := rows.Scan(&l.ID, &l.UserID, &l.Person, &amount, &paid, &kind, &status, &due, &occurred); err != nil {
			return nil, err
		}
		if l.Amount, err = decimal.NewFromString(amount); err != nil {
			return nil, fmt.Errorf("lending %s amount: %w", l.ID, err)
		}
		if l.AmountPaid, err = decimal.NewFromString(paid); err != nil {
			return nil, fmt.Errorf("lending %s amount_paid: %w", l.ID, err)
		}
		l.Kind = model.LendingKind(kind)
		l.Status = model.LendingStatus(status)
		if due.Valid && due.String != "" {
			d, err := parseDate(due.String)
			if err != nil {
				return nil, fmt.Errorf("lending %s due date: %w", l.ID, err)
			}
			l.DueOn = &d
		}
		if l.OccurredOn, err = parseDate(occurred); err != nil {
			return nil, fmt.Errorf("lending %s date: %w", l.ID, err)
		}
		out = append(out, l)
	}
	return out, rows.Err()
}

// DatasetVersion returns the user's revision as "r<n>", "r0" before the
// first import.
func (s *Store) DatasetVersion(ctx context.Context, userID string) (string, error) {
	var rev int64
	err := s.db.QueryRowContext(ctx, s.rebind(`SELECT revision FROM dataset_versions WHERE user_id = ?`), userID).Scan(&rev)
	if err != nil && !errors.Is(err, sql.ErrNoRows) {
		return "", err
	}
	return fmt.Sprintf("r%d", rev), nil
}

// Counts returns how many records of each kind the user has.
func (s *Store) Counts(ctx context.Context, userID string) (Counts, error) {
	var c Counts
	for _, q := range []struct {
		table string
		dst   *int
	}{
		{"transactions", &c.Transactions},
		{"budgets", &c.Budgets},
		{"lendings", &c.Lendings},
	} {
		err := s.db.QueryRowContext(ctx, s.rebind("SELECT COUNT(*) FROM "+q.table+" WHERE user_id = ?"), userID).Scan(q.dst)
		if err != nil {
			return Counts{}, err
		}
	}
	return c, nil
}

func idOrNew(id string) string {
	if id == "" {
		return uuid.NewString()
	}
	return id
}

func formatDate(t time.Time) string {
	return model.DateOf(t).Format(model.DateLayout)
}

func parseDate(s string) (time.Time, error) {
	return time.Parse(model.DateLayout, s)
}
