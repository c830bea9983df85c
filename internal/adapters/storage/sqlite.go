package storage

// sqlite.go — persistencia de sesiones y trade log del arcade.
//
// Estrategia:
//   - `sessions`: una fila por sesión con sus contadores embebidos.
//     Los contadores son autoritativos: el controller en memoria se
//     reconcilia contra ellos en cada resolución.
//   - `trades`: una fila por apuesta, outcome 'pending' hasta liquidar.
//     Las ventas borran la fila — una posición cerrada a mano no forma
//     parte del histórico de resoluciones.
//   - Máximo una sesión activa por wallet: al guardar una nueva sesión
//     activa, cualquier otra activa del wallet pasa a stopped.

import (
	"context"
	"database/sql"
	"fmt"
	"sync"
	"time"

	_ "modernc.org/sqlite"

	"github.com/alejandrodnm/polyarcade/internal/domain"
)

const schema = `
-- Una fila por sesión arcade, contadores incluidos
CREATE TABLE IF NOT EXISTS sessions (
    id              TEXT PRIMARY KEY,
    wallet          TEXT     NOT NULL,
    market          TEXT     NOT NULL,
    status          TEXT     NOT NULL,
    bankroll        REAL     NOT NULL DEFAULT 0,
    bet_amount      REAL     NOT NULL DEFAULT 0,
    current_balance REAL     NOT NULL DEFAULT 0,
    total_pnl       REAL     NOT NULL DEFAULT 0,
    trades          INTEGER  NOT NULL DEFAULT 0,
    wins            INTEGER  NOT NULL DEFAULT 0,
    losses          INTEGER  NOT NULL DEFAULT 0,
    bets_remaining  INTEGER  NOT NULL DEFAULT 0,
    started_at      DATETIME NOT NULL,
    stopped_at      DATETIME
);

-- Una fila por apuesta; outcome 'pending' hasta resolver
CREATE TABLE IF NOT EXISTS trades (
    id          TEXT PRIMARY KEY,
    session_id  TEXT     NOT NULL REFERENCES sessions(id),
    market      TEXT     NOT NULL,
    slug        TEXT     NOT NULL,
    side        TEXT     NOT NULL,
    amount      REAL     NOT NULL,
    entry_price REAL     NOT NULL,
    shares      REAL     NOT NULL,
    outcome     TEXT     NOT NULL DEFAULT 'pending',
    pnl         REAL     NOT NULL DEFAULT 0,
    created_at  DATETIME NOT NULL,
    resolved_at DATETIME
);

CREATE INDEX IF NOT EXISTS idx_sessions_wallet ON sessions(wallet, status);
CREATE INDEX IF NOT EXISTS idx_trades_session  ON trades(session_id, created_at);
CREATE INDEX IF NOT EXISTS idx_trades_pending  ON trades(session_id, outcome);
`

// SQLiteStorage implementa ports.ArcadeStorage usando SQLite (pure Go, sin CGo).
type SQLiteStorage struct {
	db *sql.DB
	mu sync.Mutex
}

// NewSQLiteStorage abre (o crea) la base de datos en la ruta dada y aplica
// el schema.
func NewSQLiteStorage(path string) (*SQLiteStorage, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("storage.NewSQLiteStorage: open %q: %w", path, err)
	}
	db.SetMaxOpenConns(1) // SQLite es single-writer
	db.SetMaxIdleConns(1)

	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("storage.NewSQLiteStorage: apply schema: %w", err)
	}
	return &SQLiteStorage{db: db}, nil
}

// SaveSession inserta una sesión nueva. Si llega activa, cualquier otra
// sesión activa del mismo wallet pasa a stopped primero.
func (s *SQLiteStorage) SaveSession(ctx context.Context, session domain.Session) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("storage.SaveSession: begin tx: %w", err)
	}
	defer tx.Rollback()

	if session.Status == domain.SessionActive {
		if _, err := tx.ExecContext(ctx,
			`UPDATE sessions SET status = ?, stopped_at = ? WHERE wallet = ? AND status = ?`,
			domain.SessionStopped, formatTime(time.Now()), session.Wallet, domain.SessionActive,
		); err != nil {
			return fmt.Errorf("storage.SaveSession: close previous: %w", err)
		}
	}

	if _, err := tx.ExecContext(ctx, `
		INSERT INTO sessions
			(id, wallet, market, status, bankroll, bet_amount, current_balance,
			 total_pnl, trades, wins, losses, bets_remaining, started_at, stopped_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`,
		session.ID,
		session.Wallet,
		session.Market,
		string(session.Status),
		session.Stats.Bankroll,
		session.Stats.BetAmount,
		session.Stats.CurrentBalance,
		session.Stats.TotalPnL,
		session.Stats.Trades,
		session.Stats.Wins,
		session.Stats.Losses,
		session.Stats.BetsRemaining,
		formatTime(session.StartedAt),
		nullableTime(session.StoppedAt),
	); err != nil {
		return fmt.Errorf("storage.SaveSession: insert %s: %w", session.ID, err)
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("storage.SaveSession: commit: %w", err)
	}
	return nil
}

// GetSession devuelve una sesión por id.
func (s *SQLiteStorage) GetSession(ctx context.Context, id string) (domain.Session, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	row := s.db.QueryRowContext(ctx, sessionSelect+` WHERE id = ?`, id)
	session, err := scanSession(row)
	if err == sql.ErrNoRows {
		return domain.Session{}, fmt.Errorf("storage.GetSession: session %s not found", id)
	}
	if err != nil {
		return domain.Session{}, fmt.Errorf("storage.GetSession: %w", err)
	}
	return session, nil
}

// GetActiveSession devuelve la sesión activa del wallet, si existe.
func (s *SQLiteStorage) GetActiveSession(ctx context.Context, wallet string) (domain.Session, bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	row := s.db.QueryRowContext(ctx,
		sessionSelect+` WHERE wallet = ? AND status = ? ORDER BY started_at DESC LIMIT 1`,
		wallet, domain.SessionActive,
	)
	session, err := scanSession(row)
	if err == sql.ErrNoRows {
		return domain.Session{}, false, nil
	}
	if err != nil {
		return domain.Session{}, false, fmt.Errorf("storage.GetActiveSession: %w", err)
	}
	return session, true, nil
}

// UpdateSession reescribe el estado y los contadores de una sesión.
func (s *SQLiteStorage) UpdateSession(ctx context.Context, session domain.Session) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	res, err := s.db.ExecContext(ctx, `
		UPDATE sessions SET
			status = ?, current_balance = ?, total_pnl = ?, trades = ?,
			wins = ?, losses = ?, bets_remaining = ?, stopped_at = ?
		WHERE id = ?
	`,
		string(session.Status),
		session.Stats.CurrentBalance,
		session.Stats.TotalPnL,
		session.Stats.Trades,
		session.Stats.Wins,
		session.Stats.Losses,
		session.Stats.BetsRemaining,
		nullableTime(session.StoppedAt),
		session.ID,
	)
	if err != nil {
		return fmt.Errorf("storage.UpdateSession: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return fmt.Errorf("storage.UpdateSession: session %s not found", session.ID)
	}
	return nil
}

// SaveTrade inserta una apuesta recién colocada.
func (s *SQLiteStorage) SaveTrade(ctx context.Context, t domain.TradeRecord) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, err := s.db.ExecContext(ctx, `
		INSERT INTO trades
			(id, session_id, market, slug, side, amount, entry_price, shares,
			 outcome, pnl, created_at, resolved_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`,
		t.ID, t.SessionID, t.Market, t.Slug, string(t.Side),
		t.Amount, t.EntryPrice, t.Shares, t.Outcome, t.PnL,
		formatTime(t.CreatedAt), nullableTime(t.ResolvedAt),
	); err != nil {
		return fmt.Errorf("storage.SaveTrade: insert %s: %w", t.ID, err)
	}
	return nil
}

// GetTrade devuelve una apuesta por id.
func (s *SQLiteStorage) GetTrade(ctx context.Context, id string) (domain.TradeRecord, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	row := s.db.QueryRowContext(ctx, tradeSelect+` WHERE id = ?`, id)
	t, err := scanTrade(row)
	if err == sql.ErrNoRows {
		return domain.TradeRecord{}, fmt.Errorf("storage.GetTrade: trade %s: %w", id, domain.ErrBetNotFound)
	}
	if err != nil {
		return domain.TradeRecord{}, fmt.Errorf("storage.GetTrade: %w", err)
	}
	return t, nil
}

// ResolveTrade marca una apuesta pendiente como liquidada.
func (s *SQLiteStorage) ResolveTrade(ctx context.Context, id string, outcome domain.BetOutcome, pnl float64) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	res, err := s.db.ExecContext(ctx,
		`UPDATE trades SET outcome = ?, pnl = ?, resolved_at = ? WHERE id = ? AND outcome = 'pending'`,
		string(outcome), pnl, formatTime(time.Now()), id,
	)
	if err != nil {
		return fmt.Errorf("storage.ResolveTrade: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return fmt.Errorf("storage.ResolveTrade: trade %s not pending", id)
	}
	return nil
}

// DeleteTrade borra una apuesta (vendida antes de resolver).
func (s *SQLiteStorage) DeleteTrade(ctx context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, err := s.db.ExecContext(ctx, `DELETE FROM trades WHERE id = ?`, id); err != nil {
		return fmt.Errorf("storage.DeleteTrade: %w", err)
	}
	return nil
}

// ListTrades devuelve el trade log de una sesión en orden de colocación.
func (s *SQLiteStorage) ListTrades(ctx context.Context, sessionID string) ([]domain.TradeRecord, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	rows, err := s.db.QueryContext(ctx,
		tradeSelect+` WHERE session_id = ? ORDER BY created_at`,
		sessionID,
	)
	if err != nil {
		return nil, fmt.Errorf("storage.ListTrades: query: %w", err)
	}
	defer rows.Close()

	var trades []domain.TradeRecord
	for rows.Next() {
		t, err := scanTrade(rows)
		if err != nil {
			return nil, fmt.Errorf("storage.ListTrades: scan row: %w", err)
		}
		trades = append(trades, t)
	}
	return trades, rows.Err()
}

// PendingTrades cuenta las apuestas sin resolver de una sesión.
func (s *SQLiteStorage) PendingTrades(ctx context.Context, sessionID string) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var n int
	err := s.db.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM trades WHERE session_id = ? AND outcome = 'pending'`,
		sessionID,
	).Scan(&n)
	if err != nil {
		return 0, fmt.Errorf("storage.PendingTrades: %w", err)
	}
	return n, nil
}

// Close cierra la conexión a la base de datos.
func (s *SQLiteStorage) Close() error {
	return s.db.Close()
}

// --- helpers internos ---

const sessionSelect = `
	SELECT id, wallet, market, status, bankroll, bet_amount, current_balance,
	       total_pnl, trades, wins, losses, bets_remaining, started_at, stopped_at
	FROM sessions`

const tradeSelect = `
	SELECT id, session_id, market, slug, side, amount, entry_price, shares,
	       outcome, pnl, created_at, resolved_at
	FROM trades`

// scanner cubre sql.Row y sql.Rows.
type scanner interface {
	Scan(dest ...any) error
}

func scanSession(row scanner) (domain.Session, error) {
	var s domain.Session
	var status, startedAt string
	var stoppedAt sql.NullString

	if err := row.Scan(
		&s.ID, &s.Wallet, &s.Market, &status,
		&s.Stats.Bankroll, &s.Stats.BetAmount, &s.Stats.CurrentBalance,
		&s.Stats.TotalPnL, &s.Stats.Trades, &s.Stats.Wins, &s.Stats.Losses,
		&s.Stats.BetsRemaining, &startedAt, &stoppedAt,
	); err != nil {
		return domain.Session{}, err
	}

	s.Status = domain.SessionStatus(status)
	s.StartedAt = parseTime(startedAt)
	if stoppedAt.Valid {
		t := parseTime(stoppedAt.String)
		s.StoppedAt = &t
	}
	return s, nil
}

func scanTrade(row scanner) (domain.TradeRecord, error) {
	var t domain.TradeRecord
	var side, createdAt string
	var resolvedAt sql.NullString

	if err := row.Scan(
		&t.ID, &t.SessionID, &t.Market, &t.Slug, &side,
		&t.Amount, &t.EntryPrice, &t.Shares, &t.Outcome, &t.PnL,
		&createdAt, &resolvedAt,
	); err != nil {
		return domain.TradeRecord{}, err
	}

	t.Side = domain.BetSide(side)
	t.CreatedAt = parseTime(createdAt)
	if resolvedAt.Valid {
		rt := parseTime(resolvedAt.String)
		t.ResolvedAt = &rt
	}
	return t, nil
}

// Los DATETIME se guardan como strings RFC3339 de ancho fijo: en UTC el
// orden lexicográfico coincide con el cronológico, y no dependemos de la
// conversión de tipos del driver.
const timeLayout = "2006-01-02T15:04:05.000000000Z07:00"

func formatTime(t time.Time) string {
	return t.UTC().Format(timeLayout)
}

func parseTime(raw string) time.Time {
	t, _ := time.Parse(time.RFC3339Nano, raw)
	return t.UTC()
}

// nullableTime convierte *time.Time a un valor insertable.
func nullableTime(t *time.Time) any {
	if t == nil {
		return nil
	}
	return formatTime(*t)
}
