package postgres

// schema is applied by Migrate. Every entity table carries a version column
// used for compare-and-swap updates.
const schema = `
CREATE TABLE IF NOT EXISTS wallets (
	id           UUID PRIMARY KEY,
	owner_id     UUID NOT NULL,
	balance      NUMERIC NOT NULL CHECK (balance >= 0),
	currency     CHAR(3) NOT NULL,
	frozen       BOOLEAN NOT NULL DEFAULT FALSE,
	archived     BOOLEAN NOT NULL DEFAULT FALSE,
	last_updated TIMESTAMPTZ NOT NULL,
	version      BIGINT NOT NULL
);
CREATE INDEX IF NOT EXISTS wallets_owner_idx ON wallets (owner_id);

CREATE TABLE IF NOT EXISTS portfolios (
	id              UUID PRIMARY KEY,
	owner_id        UUID NOT NULL UNIQUE,
	total_value     NUMERIC NOT NULL CHECK (total_value >= 0),
	invested_amount NUMERIC NOT NULL CHECK (invested_amount >= 0),
	growth_pct      NUMERIC NOT NULL,
	last_updated    TIMESTAMPTZ NOT NULL,
	version         BIGINT NOT NULL
);

CREATE TABLE IF NOT EXISTS asset_holdings (
	id            UUID PRIMARY KEY,
	owner_id      UUID NOT NULL,
	portfolio_id  UUID NOT NULL REFERENCES portfolios (id),
	symbol        TEXT NOT NULL,
	quantity      NUMERIC NOT NULL CHECK (quantity >= 0),
	cost_basis    NUMERIC NOT NULL,
	book_cost     NUMERIC NOT NULL DEFAULT 0 CHECK (book_cost >= 0),
	current_price NUMERIC NOT NULL,
	total_value   NUMERIC NOT NULL,
	last_updated  TIMESTAMPTZ NOT NULL,
	version       BIGINT NOT NULL,
	UNIQUE (owner_id, symbol)
);
ALTER TABLE asset_holdings ADD COLUMN IF NOT EXISTS book_cost NUMERIC NOT NULL DEFAULT 0;
UPDATE asset_holdings SET book_cost = cost_basis * quantity WHERE book_cost = 0 AND quantity > 0;

CREATE TABLE IF NOT EXISTS loans (
	id                  UUID PRIMARY KEY,
	owner_id            UUID NOT NULL,
	principal           NUMERIC NOT NULL,
	interest_rate       NUMERIC NOT NULL,
	term_months         INTEGER NOT NULL,
	remaining_balance   NUMERIC NOT NULL CHECK (remaining_balance >= 0),
	total_repaid        NUMERIC NOT NULL,
	monthly_installment NUMERIC NOT NULL,
	status              TEXT NOT NULL,
	loan_type           TEXT NOT NULL DEFAULT '',
	purpose             TEXT NOT NULL DEFAULT '',
	credit_score        INTEGER NOT NULL,
	decision_reason     TEXT NOT NULL DEFAULT '',
	due_date            TIMESTAMPTZ,
	created_at          TIMESTAMPTZ NOT NULL,
	last_updated        TIMESTAMPTZ NOT NULL,
	version             BIGINT NOT NULL
);
CREATE INDEX IF NOT EXISTS loans_owner_idx ON loans (owner_id);

CREATE TABLE IF NOT EXISTS tax_ledgers (
	id               UUID PRIMARY KEY,
	owner_id         UUID NOT NULL,
	period           TEXT NOT NULL,
	total_income     NUMERIC NOT NULL,
	total_deductions NUMERIC NOT NULL,
	net_taxable      NUMERIC NOT NULL,
	bracket          TEXT NOT NULL,
	estimated_tax    NUMERIC NOT NULL,
	status           TEXT NOT NULL,
	filed_at         TIMESTAMPTZ,
	last_updated     TIMESTAMPTZ NOT NULL,
	version          BIGINT NOT NULL,
	UNIQUE (owner_id, period)
);

CREATE TABLE IF NOT EXISTS ledger_events (
	sequence          BIGSERIAL PRIMARY KEY,
	id                UUID NOT NULL UNIQUE,
	entity_id         UUID NOT NULL,
	entity_kind       TEXT NOT NULL,
	owner_id          UUID NOT NULL,
	kind              TEXT NOT NULL,
	operation         TEXT NOT NULL,
	amount            NUMERIC NOT NULL CHECK (amount >= 0),
	resulting_balance NUMERIC NOT NULL,
	idempotency_key   TEXT,
	details           JSONB NOT NULL DEFAULT '{}',
	created_at        TIMESTAMPTZ NOT NULL DEFAULT now()
);
CREATE INDEX IF NOT EXISTS ledger_events_entity_idx ON ledger_events (entity_kind, entity_id, sequence DESC);
CREATE INDEX IF NOT EXISTS ledger_events_key_idx ON ledger_events (idempotency_key) WHERE idempotency_key IS NOT NULL;

CREATE TABLE IF NOT EXISTS idempotency_keys (
	key        TEXT PRIMARY KEY,
	created_at TIMESTAMPTZ NOT NULL DEFAULT now()
);

CREATE TABLE IF NOT EXISTS commentary (
	id         UUID PRIMARY KEY,
	owner_id   UUID NOT NULL,
	operation  TEXT NOT NULL,
	event_ids  UUID[] NOT NULL DEFAULT '{}',
	text       TEXT NOT NULL,
	available  BOOLEAN NOT NULL,
	created_at TIMESTAMPTZ NOT NULL
);
CREATE INDEX IF NOT EXISTS commentary_owner_idx ON commentary (owner_id, created_at DESC);
`
