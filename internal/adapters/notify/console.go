package notify

import (
	"context"
	"fmt"
	"io"
	"os"
	"strings"
	"sync"
	"time"

	"github.com/olekukonko/tablewriter"

	"github.com/alejandrodnm/polyarcade/internal/domain"
	"github.com/alejandrodnm/polyarcade/internal/ports"
)

// Console implementa ports.Notifier sobre una terminal.
type Console struct {
	mu      sync.Mutex
	out     io.Writer
	compact bool
}

// NewConsole crea un notificador que escribe a stdout.
func NewConsole(compact bool) *Console {
	return &Console{out: os.Stdout, compact: compact}
}

// NewConsoleWriter crea un notificador para tests.
func NewConsoleWriter(w io.Writer, compact bool) *Console {
	return &Console{out: w, compact: compact}
}

// HUD imprime el snapshot batcheado de score/combo en una línea.
func (c *Console) HUD(s domain.HUDSnapshot) {
	c.mu.Lock()
	defer c.mu.Unlock()

	var sb strings.Builder
	fmt.Fprintf(&sb, "[%s][HUD] score %d", timestamp(), s.Score)
	if s.Combo > 1 {
		fmt.Fprintf(&sb, " | combo x%d", s.Combo)
	}
	if s.ShieldActive {
		sb.WriteString(" | shield ON")
	}
	if s.FlashText != "" {
		fmt.Fprintf(&sb, " | %s", s.FlashText)
	}
	fmt.Fprintln(c.out, sb.String())
}

// Flashes imprime los eventos de un tick, uno por línea.
func (c *Console) Flashes(events []ports.Flash) {
	c.mu.Lock()
	defer c.mu.Unlock()

	for _, f := range events {
		fmt.Fprintf(c.out, "  ** %s\n", f.Text)
	}
}

// RoundEnded imprime el resumen de la ronda que acaba de terminar.
func (c *Console) RoundEnded(summary domain.RoundSummary) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.compact {
		fmt.Fprintf(c.out, "[%s][ROUND] score %d | max combo x%d | items %d | hits %d\n",
			timestamp(), summary.Score, summary.MaxCombo,
			summary.ItemsCollected, summary.ObstaclesHit)
		return
	}

	fmt.Fprintf(c.out, "\n=== ROUND OVER ===\n")
	fmt.Fprintf(c.out, "  Score:      %d\n", summary.Score)
	fmt.Fprintf(c.out, "  Max combo:  x%d\n", summary.MaxCombo)
	fmt.Fprintf(c.out, "  Collected:  %d items\n", summary.ItemsCollected)
	fmt.Fprintf(c.out, "  Obstacles:  %d hits\n\n", summary.ObstaclesHit)
}

// SessionUpdate imprime los contadores reconciliados de la sesión.
func (c *Console) SessionUpdate(stats domain.SessionStats) {
	c.mu.Lock()
	defer c.mu.Unlock()

	fmt.Fprintf(c.out, "[%s][SESSION] bal $%.2f | pnl %s | %d-%d | credits %d\n",
		timestamp(), stats.CurrentBalance, signedUSD(stats.TotalPnL),
		stats.Wins, stats.Losses, stats.BetsRemaining)
}

// TradeLog imprime el histórico de apuestas como tabla.
func (c *Console) TradeLog(_ context.Context, trades []domain.TradeRecord) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if len(trades) == 0 {
		fmt.Fprintf(c.out, "[%s] no trades yet\n", timestamp())
		return nil
	}

	table := tablewriter.NewWriter(c.out)
	table.Header("#", "Side", "Market", "Entry", "Stake", "Shares", "Outcome", "PnL", "Placed")

	for i, t := range trades {
		table.Append(
			fmt.Sprintf("%d", i+1),
			sideLabel(t.Side),
			t.Market,
			fmt.Sprintf("%.3f", t.EntryPrice),
			fmt.Sprintf("$%.2f", t.Amount),
			fmt.Sprintf("%.2f", t.Shares),
			outcomeLabel(t.Outcome),
			pnlLabel(t),
			t.CreatedAt.Local().Format("15:04:05"),
		)
	}
	table.Render()
	return nil
}

// UserError imprime un error no fatal de cara al usuario.
func (c *Console) UserError(msg string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	fmt.Fprintf(c.out, "  !! %s\n", msg)
}

// --- helpers ---

func timestamp() string {
	return time.Now().Format("15:04:05")
}

func sideLabel(side domain.BetSide) string {
	if side == domain.SideUp {
		return "UP"
	}
	return "DOWN"
}

func outcomeLabel(outcome string) string {
	switch outcome {
	case "pending":
		return "..."
	default:
		return strings.ToUpper(outcome)
	}
}

func pnlLabel(t domain.TradeRecord) string {
	if t.Outcome == "pending" {
		return "-"
	}
	return signedUSD(t.PnL)
}

func signedUSD(v float64) string {
	if v >= 0 {
		return fmt.Sprintf("+$%.2f", v)
	}
	return fmt.Sprintf("-$%.2f", -v)
}
