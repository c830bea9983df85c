package main

import (
	"bufio"
	"context"
	"fmt"
	"log/slog"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/alejandrodnm/polyarcade/internal/application/arcade"
	"github.com/alejandrodnm/polyarcade/internal/domain"
)

// runCommands lee comandos de stdin hasta quit/stop o cancelación.
func runCommands(ctx context.Context, cancel context.CancelFunc, controller *arcade.Controller) {
	lines := make(chan string)
	go func() {
		scanner := bufio.NewScanner(os.Stdin)
		for scanner.Scan() {
			lines <- strings.TrimSpace(scanner.Text())
		}
		close(lines)
	}()

	fmt.Println("commands: up | down | sell <n> | bets | stats | quit")

	for {
		select {
		case <-ctx.Done():
			return
		case line, ok := <-lines:
			if !ok {
				return
			}
			if line == "" {
				continue
			}
			fields := strings.Fields(line)
			switch fields[0] {
			case "up":
				placeBet(ctx, controller, domain.SideUp)
			case "down":
				placeBet(ctx, controller, domain.SideDown)
			case "sell":
				sellBet(ctx, controller, fields)
			case "bets":
				printBets(controller)
			case "stats":
				printStats(controller)
			case "quit", "stop", "exit":
				cancel()
				return
			case "help":
				fmt.Println("commands: up | down | sell <n> | bets | stats | quit")
			default:
				fmt.Printf("unknown command %q (try: help)\n", fields[0])
			}
		}
	}
}

func placeBet(ctx context.Context, controller *arcade.Controller, side domain.BetSide) {
	callCtx, cancel := context.WithTimeout(ctx, 15*time.Second)
	defer cancel()

	bet, err := controller.PlaceBet(callCtx, side, "")
	if err != nil {
		fmt.Printf("  !! %v\n", err)
		return
	}
	fmt.Printf("  bet #%s %s @ %.3f, window ends %s\n",
		shortID(bet.ID), strings.ToUpper(string(bet.Side)), bet.EntryPrice,
		bet.MarketEndTime.Local().Format("15:04:05"))
}

func sellBet(ctx context.Context, controller *arcade.Controller, fields []string) {
	if len(fields) < 2 {
		fmt.Println("usage: sell <n>  (n from `bets`)")
		return
	}
	bets := controller.ActiveBets()
	n, err := strconv.Atoi(fields[1])
	if err != nil || n < 1 || n > len(bets) {
		fmt.Printf("no bet #%s (have %d)\n", fields[1], len(bets))
		return
	}

	callCtx, cancel := context.WithTimeout(ctx, 15*time.Second)
	defer cancel()
	if err := controller.SellBet(callCtx, bets[n-1].ID); err != nil {
		fmt.Printf("  !! %v\n", err)
	}
}

func printBets(controller *arcade.Controller) {
	bets := controller.ActiveBets()
	if len(bets) == 0 {
		fmt.Println("  no live bets")
		return
	}
	for i, b := range bets {
		left := time.Until(b.MarketEndTime).Round(time.Second)
		fmt.Printf("  %d. %s %s @ %.3f [%s] %s left\n",
			i+1, strings.ToUpper(string(b.Side)), b.Market, b.EntryPrice, b.Status, left)
	}
}

func printStats(controller *arcade.Controller) {
	s := controller.Stats()
	slog.Info("session stats",
		"balance", fmt.Sprintf("$%.2f", s.CurrentBalance),
		"pnl", fmt.Sprintf("$%.2f", s.TotalPnL),
		"record", fmt.Sprintf("%d-%d", s.Wins, s.Losses),
		"credits", s.BetsRemaining,
	)
}

func shortID(id string) string {
	if len(id) > 8 {
		return id[:8]
	}
	return id
}
