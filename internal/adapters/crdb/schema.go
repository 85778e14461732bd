package crdb

import "context"

const schema = `
CREATE TABLE IF NOT EXISTS orders (
	id UUID PRIMARY KEY,
	hold_id UUID NOT NULL,
	show_id TEXT NOT NULL,
	holder_id UUID NOT NULL,
	customer_name TEXT NOT NULL,
	customer_email TEXT NOT NULL,
	customer_phone TEXT NOT NULL,
	amount NUMERIC NOT NULL,
	status TEXT NOT NULL CHECK (status IN ('PAYMENT_PENDING', 'CONFIRMED', 'FAILED', 'EXPIRED', 'CANCELLED')),
	ticket_code TEXT,
	created_at TIMESTAMPTZ NOT NULL,
	expires_at TIMESTAMPTZ NOT NULL,
	confirmed_at TIMESTAMPTZ
);
CREATE TABLE IF NOT EXISTS order_seats (
	order_id UUID NOT NULL REFERENCES orders (id),
	show_id TEXT NOT NULL,
	seat_id TEXT NOT NULL,
	position INT NOT NULL,
	PRIMARY KEY (order_id, seat_id)
);
CREATE INDEX IF NOT EXISTS order_seats_by_show ON order_seats (show_id, seat_id);
CREATE TABLE IF NOT EXISTS outbox (
	id UUID PRIMARY KEY,
	aggregate_type TEXT NOT NULL,
	aggregate_id UUID NOT NULL,
	event_type TEXT NOT NULL,
	payload_json BYTES NOT NULL,
	status TEXT NOT NULL CHECK (status IN ('NEW', 'PUBLISHED', 'FAILED')),
	dedupe_key TEXT NOT NULL,
	created_at TIMESTAMPTZ NOT NULL DEFAULT now(),
	published_at TIMESTAMPTZ
);
`

// EnsureSchema creates the ledger tables when they do not exist yet.
func (l *Ledger) EnsureSchema(ctx context.Context) error {
	_, err := l.pool.Exec(ctx, schema)
	return err
}
