package polymarket

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/alejandrodnm/polyarcade/internal/domain"
	"github.com/alejandrodnm/polyarcade/internal/ports"
)

// Executor ejecuta las apuestas arcade contra Polymarket: los fills son
// paper-style al precio cotizado de la ventana, pero la resolución es la
// real de Gamma. Es el dueño de los contadores autoritativos de la sesión,
// que persiste en el storage en cada operación.
type Executor struct {
	client *Client
	store  ports.ArcadeStorage
}

// NewExecutor crea un Executor sobre el client de Gamma y el storage dado.
func NewExecutor(client *Client, store ports.ArcadeStorage) *Executor {
	return &Executor{client: client, store: store}
}

// PlaceBet registra la apuesta y descuenta el crédito de la sesión.
// El BetsRemaining devuelto es el contador autoritativo tras el descuento.
func (e *Executor) PlaceBet(ctx context.Context, req ports.PlaceBetRequest) (ports.PlacedBet, error) {
	if req.Amount <= 0 {
		return ports.PlacedBet{}, fmt.Errorf("%w: amount must be positive", domain.ErrOrderRejected)
	}

	session, err := e.store.GetSession(ctx, req.SessionID)
	if err != nil {
		return ports.PlacedBet{}, fmt.Errorf("place bet: %w", err)
	}
	if session.Stats.BetsRemaining <= 0 {
		return ports.PlacedBet{}, domain.ErrNoCreditsRemaining
	}

	shares := 0.0
	if req.EntryPrice > 0 {
		shares = req.Amount / req.EntryPrice
	}
	trade := domain.TradeRecord{
		ID:         uuid.New().String(),
		SessionID:  req.SessionID,
		Market:     marketFromSlug(req.Slug),
		Slug:       req.Slug,
		Side:       req.Side,
		Amount:     req.Amount,
		EntryPrice: req.EntryPrice,
		Shares:     shares,
		Outcome:    "pending",
		CreatedAt:  time.Now().UTC(),
	}
	if err := e.store.SaveTrade(ctx, trade); err != nil {
		return ports.PlacedBet{}, fmt.Errorf("place bet: %w", err)
	}

	session.Stats.CurrentBalance -= req.Amount
	session.Stats.BetsRemaining--
	session.Stats.Trades++
	if err := e.store.UpdateSession(ctx, session); err != nil {
		return ports.PlacedBet{}, fmt.Errorf("place bet: %w", err)
	}

	slog.Debug("polymarket: bet recorded",
		"trade", trade.ID,
		"slug", req.Slug,
		"side", req.Side,
		"shares", shares,
	)
	return ports.PlacedBet{
		OrderID:       uuid.New().String(),
		BetID:         trade.ID,
		BetsRemaining: session.Stats.BetsRemaining,
	}, nil
}

// SellPosition cierra una posición viva al precio cotizado actual de su
// ventana y la quita del trade log. El crédito gastado no se devuelve.
func (e *Executor) SellPosition(ctx context.Context, req ports.SellRequest) (ports.SellResult, error) {
	trade, err := e.store.GetTrade(ctx, req.BetID)
	if err != nil {
		return ports.SellResult{}, fmt.Errorf("sell position: %w", err)
	}

	price := req.Price
	if w, err := e.client.WindowBySlug(ctx, trade.Slug); err == nil {
		quote := w.YesPrice
		if trade.Side == domain.SideDown {
			quote = w.NoPrice
		}
		if quote > 0 {
			price = quote
		}
	} else if errors.Is(err, domain.ErrNetwork) {
		return ports.SellResult{}, fmt.Errorf("sell position: %w", err)
	}

	proceeds := trade.Shares * price
	if err := e.store.DeleteTrade(ctx, trade.ID); err != nil {
		return ports.SellResult{}, fmt.Errorf("sell position: %w", err)
	}

	session, err := e.store.GetSession(ctx, trade.SessionID)
	if err != nil {
		return ports.SellResult{}, fmt.Errorf("sell position: %w", err)
	}
	session.Stats.CurrentBalance += proceeds
	if err := e.store.UpdateSession(ctx, session); err != nil {
		return ports.SellResult{}, fmt.Errorf("sell position: %w", err)
	}

	slog.Debug("polymarket: position sold",
		"trade", trade.ID,
		"price", price,
		"proceeds", proceeds,
	)
	return ports.SellResult{Proceeds: proceeds}, nil
}

// ResolveBet consulta la resolución real de la ventana en Gamma y liquida
// la apuesta. Una ventana sin resolver (o aún no indexada) devuelve
// Pending; una re-llamada sobre un trade ya liquidado reconstruye la misma
// resolución sin tocar los contadores.
func (e *Executor) ResolveBet(ctx context.Context, sessionID, betID string) (domain.Resolution, error) {
	trade, err := e.store.GetTrade(ctx, betID)
	if err != nil {
		return domain.Resolution{}, fmt.Errorf("resolve bet: %w", err)
	}
	if trade.Outcome != "pending" {
		return e.rebuildResolution(ctx, sessionID, trade)
	}

	w, err := e.client.WindowBySlug(ctx, trade.Slug)
	if errors.Is(err, ErrWindowNotFound) {
		// Gamma puede tardar en indexar la ventana; el caller reintenta.
		return domain.Resolution{Pending: true}, nil
	}
	if err != nil {
		return domain.Resolution{}, fmt.Errorf("resolve bet: %w", err)
	}
	if !w.Resolved {
		return domain.Resolution{Pending: true}, nil
	}

	outcome, pnl := settle(trade, w)
	if err := e.store.ResolveTrade(ctx, betID, outcome, pnl); err != nil {
		return domain.Resolution{}, fmt.Errorf("resolve bet: %w", err)
	}

	session, err := e.store.GetSession(ctx, sessionID)
	if err != nil {
		return domain.Resolution{}, fmt.Errorf("resolve bet: %w", err)
	}
	switch outcome {
	case domain.OutcomeWon:
		session.Stats.CurrentBalance += trade.Amount + pnl
		session.Stats.Wins++
	case domain.OutcomeLost:
		session.Stats.Losses++
	case domain.OutcomePush:
		session.Stats.CurrentBalance += trade.Amount
	}
	session.Stats.TotalPnL += pnl
	if err := e.store.UpdateSession(ctx, session); err != nil {
		return domain.Resolution{}, fmt.Errorf("resolve bet: %w", err)
	}

	pending, err := e.store.PendingTrades(ctx, sessionID)
	if err != nil {
		return domain.Resolution{}, fmt.Errorf("resolve bet: %w", err)
	}

	slog.Debug("polymarket: bet settled",
		"trade", betID,
		"outcome", outcome,
		"pnl", pnl,
	)
	return domain.Resolution{
		Outcome:        outcome,
		PnL:            pnl,
		CurrentBalance: session.Stats.CurrentBalance,
		TotalPnL:       session.Stats.TotalPnL,
		Wins:           session.Stats.Wins,
		Losses:         session.Stats.Losses,
		BetsRemaining:  session.Stats.BetsRemaining,
		SessionEnded:   session.Stats.BetsRemaining <= 0 && pending == 0,
	}, nil
}

// settle calcula outcome y pnl de un trade contra su ventana resuelta.
// Un cierre exacto en 0.5 es push: se devuelve el stake sin pnl.
func settle(trade domain.TradeRecord, w ports.MarketWindow) (domain.BetOutcome, float64) {
	if w.YesPrice == 0.5 {
		return domain.OutcomePush, 0
	}
	won := w.ResolvedUp == (trade.Side == domain.SideUp)
	if won {
		return domain.OutcomeWon, trade.Shares - trade.Amount
	}
	return domain.OutcomeLost, -trade.Amount
}

// rebuildResolution reconstruye la resolución de un trade ya liquidado a
// partir del storage, para que un refire tardío sea idempotente.
func (e *Executor) rebuildResolution(ctx context.Context, sessionID string, trade domain.TradeRecord) (domain.Resolution, error) {
	session, err := e.store.GetSession(ctx, sessionID)
	if err != nil {
		return domain.Resolution{}, fmt.Errorf("resolve bet: %w", err)
	}
	pending, err := e.store.PendingTrades(ctx, sessionID)
	if err != nil {
		return domain.Resolution{}, fmt.Errorf("resolve bet: %w", err)
	}
	return domain.Resolution{
		Outcome:        domain.BetOutcome(trade.Outcome),
		PnL:            trade.PnL,
		CurrentBalance: session.Stats.CurrentBalance,
		TotalPnL:       session.Stats.TotalPnL,
		Wins:           session.Stats.Wins,
		Losses:         session.Stats.Losses,
		BetsRemaining:  session.Stats.BetsRemaining,
		SessionEnded:   session.Stats.BetsRemaining <= 0 && pending == 0,
	}, nil
}

// marketFromSlug recorta el sufijo -updown-5m-<ts> del slug para quedarse
// con el asset, p.ej. btc-updown-5m-1700000100 → btc.
func marketFromSlug(slug string) string {
	if i := strings.Index(slug, "-updown-5m"); i >= 0 {
		return slug[:i]
	}
	return slug
}
