package ports

import (
	"context"

	"github.com/alejandrodnm/polyarcade/internal/domain"
)

// ArcadeStorage persiste sesiones y trades del arcade. Es la fuente de
// verdad de los contadores de sesión: el executor los actualiza al resolver
// y el controller los sobreescribe en su estado local.
type ArcadeStorage interface {
	// SaveSession inserta una sesión nueva.
	SaveSession(ctx context.Context, s domain.Session) error

	// GetSession devuelve la sesión por id.
	GetSession(ctx context.Context, id string) (domain.Session, error)

	// GetActiveSession devuelve la sesión activa de un wallet, si existe.
	GetActiveSession(ctx context.Context, wallet string) (domain.Session, bool, error)

	// UpdateSession sobreescribe contadores y estado.
	UpdateSession(ctx context.Context, s domain.Session) error

	// SaveTrade inserta un trade pendiente.
	SaveTrade(ctx context.Context, t domain.TradeRecord) error

	// GetTrade devuelve un trade por id.
	GetTrade(ctx context.Context, id string) (domain.TradeRecord, error)

	// ResolveTrade marca outcome y pnl de un trade pendiente.
	ResolveTrade(ctx context.Context, id string, outcome domain.BetOutcome, pnl float64) error

	// DeleteTrade elimina un trade (venta anticipada).
	DeleteTrade(ctx context.Context, id string) error

	// ListTrades devuelve el trade log de una sesión, más reciente primero.
	ListTrades(ctx context.Context, sessionID string) ([]domain.TradeRecord, error)

	// PendingTrades cuenta los trades sin resolver de una sesión.
	PendingTrades(ctx context.Context, sessionID string) (int, error)

	// Close cierra la conexión limpiamente.
	Close() error
}
