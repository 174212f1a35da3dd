package postrge

const (
	MigrationQuery = `
	CREATE TABLE IF NOT EXISTS users (
		id UUID PRIMARY KEY DEFAULT gen_random_uuid(),
		login TEXT UNIQUE NOT NULL,
		password_hash TEXT NOT NULL,
		role TEXT NOT NULL DEFAULT 'artist',
		created_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
	);

	CREATE TABLE IF NOT EXISTS wallets (
		user_id UUID PRIMARY KEY REFERENCES users(id) ON DELETE CASCADE,
		available NUMERIC(14,2) NOT NULL DEFAULT 0 CHECK (available >= 0),
		pending NUMERIC(14,2) NOT NULL DEFAULT 0 CHECK (pending >= 0),
		total_earnings NUMERIC(14,2) NOT NULL DEFAULT 0 CHECK (total_earnings >= 0),
		total_withdrawn NUMERIC(14,2) NOT NULL DEFAULT 0 CHECK (total_withdrawn >= 0),
		updated_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
	);

	CREATE TABLE IF NOT EXISTS transaction_pins (
		user_id UUID PRIMARY KEY REFERENCES users(id) ON DELETE CASCADE,
		pin_hash TEXT NOT NULL DEFAULT '',
		payout_lock_until TIMESTAMPTZ,
		updated_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
	);

	CREATE TABLE IF NOT EXISTS payout_methods (
		id UUID PRIMARY KEY,
		user_id UUID NOT NULL REFERENCES users(id) ON DELETE CASCADE,
		kind TEXT NOT NULL,
		bank_code TEXT NOT NULL,
		account_number_masked TEXT NOT NULL,
		account_name TEXT NOT NULL,
		recipient_code TEXT NOT NULL,
		created_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
	);

	CREATE TABLE IF NOT EXISTS withdrawal_requests (
		id UUID PRIMARY KEY,
		user_id UUID NOT NULL REFERENCES users(id),
		payout_method_id UUID NOT NULL REFERENCES payout_methods(id),
		amount NUMERIC(14,2) NOT NULL CHECK (amount > 0),
		fee NUMERIC(14,2) NOT NULL CHECK (fee >= 0),
		net_amount NUMERIC(14,2) NOT NULL CHECK (net_amount > 0),
		currency TEXT NOT NULL,
		description TEXT NOT NULL DEFAULT '',
		status TEXT NOT NULL,
		tier SMALLINT NOT NULL,
		anomalous BOOLEAN NOT NULL DEFAULT FALSE,
		reference TEXT UNIQUE NOT NULL,
		transfer_code TEXT NOT NULL DEFAULT '',
		scheduled_for TIMESTAMPTZ,
		ip_address TEXT NOT NULL DEFAULT '',
		user_agent TEXT NOT NULL DEFAULT '',
		admin_id UUID,
		admin_notes TEXT NOT NULL DEFAULT '',
		failure_reason TEXT NOT NULL DEFAULT '',
		created_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
		updated_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
	);

	CREATE TABLE IF NOT EXISTS audit_logs (
		id UUID PRIMARY KEY,
		actor_id UUID NOT NULL,
		action TEXT NOT NULL,
		target_type TEXT NOT NULL,
		target_id TEXT NOT NULL,
		metadata JSONB NOT NULL DEFAULT '{}'::jsonb,
		created_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
	);

	CREATE TABLE IF NOT EXISTS notifications (
		id UUID PRIMARY KEY,
		user_id UUID NOT NULL REFERENCES users(id) ON DELETE CASCADE,
		title TEXT NOT NULL,
		message TEXT NOT NULL,
		kind TEXT NOT NULL,
		read BOOLEAN NOT NULL DEFAULT FALSE,
		created_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
	);

	CREATE INDEX IF NOT EXISTS idx_payout_methods_user_id ON payout_methods(user_id);
	CREATE INDEX IF NOT EXISTS idx_withdrawals_user_status ON withdrawal_requests(user_id, status, created_at DESC);
	CREATE INDEX IF NOT EXISTS idx_withdrawals_due ON withdrawal_requests(scheduled_for) WHERE status = 'pending_delay';
	CREATE INDEX IF NOT EXISTS idx_audit_target ON audit_logs(target_type, target_id);
	CREATE INDEX IF NOT EXISTS idx_notifications_user_id ON notifications(user_id, created_at DESC);
	`

	// TruncateQuery wipes all tables; used by integration tests.
	TruncateQuery = `TRUNCATE notifications, audit_logs, withdrawal_requests, payout_methods, transaction_pins, wallets, users CASCADE;`
)
