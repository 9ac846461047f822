package store

// schemaSQL is valid for both SQLite and PostgreSQL. Money is stored as
// decimal text and dates as YYYY-MM-DD so both engines compare them the
// same way.
const schemaSQL = `
CREATE TABLE IF NOT EXISTS transactions (
    id                   TEXT NOT NULL,
    user_id              TEXT NOT NULL,
    amount               TEXT NOT NULL,
    category             TEXT NOT NULL,
    occurred_on          TEXT NOT NULL,
    vendor               TEXT NOT NULL DEFAULT '',
    payment_method       TEXT NOT NULL DEFAULT '',
    source_file          TEXT NOT NULL DEFAULT '',
    PRIMARY KEY (user_id, id)
);

CREATE TABLE IF NOT EXISTS budgets (
    id                   TEXT NOT NULL,
    user_id              TEXT NOT NULL,
    category             TEXT NOT NULL,
    amount               TEXT NOT NULL,
    start_date           TEXT NOT NULL,
    end_date             TEXT NOT NULL,
    is_active            INTEGER NOT NULL DEFAULT 1,
    source_file          TEXT NOT NULL DEFAULT '',
    PRIMARY KEY (user_id, id)
);

CREATE TABLE IF NOT EXISTS lendings (
    id                   TEXT NOT NULL,
    user_id              TEXT NOT NULL,
    person               TEXT NOT NULL,
    amount               TEXT NOT NULL,
    amount_paid          TEXT NOT NULL DEFAULT '0',
    kind                 TEXT NOT NULL,
    status               TEXT NOT NULL,
    due_on               TEXT,
    occurred_on          TEXT NOT NULL,
    source_file          TEXT NOT NULL DEFAULT '',
    PRIMARY KEY (user_id, id)
);

CREATE TABLE IF NOT EXISTS dataset_versions (
    user_id              TEXT PRIMARY KEY,
    revision             BIGINT NOT NULL
);

CREATE TABLE IF NOT EXISTS file_tracker (
    user_id              TEXT NOT NULL,
    file_path            TEXT NOT NULL,
    mtime_ns             BIGINT NOT NULL,
    size_bytes           BIGINT NOT NULL,
    PRIMARY KEY (user_id, file_path)
);

CREATE TABLE IF NOT EXISTS report_cache (
    cache_key            TEXT PRIMARY KEY,
    payload              TEXT NOT NULL,
    expires_at           BIGINT NOT NULL
);

CREATE INDEX IF NOT EXISTS idx_transactions_user_date ON transactions(user_id, occurred_on);
CREATE INDEX IF NOT EXISTS idx_transactions_source ON transactions(user_id, source_file);
CREATE INDEX IF NOT EXISTS idx_budgets_user ON budgets(user_id);
CREATE INDEX IF NOT EXISTS idx_lendings_user ON lendings(user_id);
CREATE INDEX IF NOT EXISTS idx_report_cache_expiry ON report_cache(expires_at);
`
