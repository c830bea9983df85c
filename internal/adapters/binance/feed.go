package binance

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/gorilla/websocket"

	"github.com/alejandrodnm/polyarcade/internal/domain"
)

const (
	defaultStreamBase = "wss://stream.binance.com:9443/ws"

	defaultFrameInterval = 50 * time.Millisecond
	defaultWindow        = 60 * time.Second

	// El marcador de precio vive a 70% del ancho; el histórico se desliza
	// hacia la izquierda por detrás.
	markerFrac = 0.7

	// Suavizado EMA por trade, para que el marcador no tiemble tick a tick.
	emaAlpha = 0.2

	// Margen vertical del rango de precios visible.
	pricePadFrac = 0.05

	reconnectWait = 5 * time.Second
)

// Config ajusta el feed: símbolo, geometría del chart y cadencias.
type Config struct {
	URL    string // base del stream; vacío → producción
	Symbol string // p.ej. "btcusdt"

	ChartWidth   float64
	ChartHeight  float64
	HeaderOffset float64

	FrameInterval time.Duration
	Window        time.Duration
}

// aggTrade es el mensaje raw del stream <symbol>@aggTrade.
type aggTrade struct {
	Price string `json:"p"`
	Time  int64  `json:"T"`
}

type pricePoint struct {
	price float64
	at    time.Time
}

// Feed implementa ports.PriceFeed sobre el trade stream de Binance.
// Mantiene un histórico deslizante de precios suavizados y publica un
// domain.FrameData por frame; si el consumidor va lento, los frames
// sobrantes se descartan sin bloquear.
type Feed struct {
	cfg Config

	mu       sync.Mutex
	history  []pricePoint
	ema      float64
	refSide  domain.BetSide
	refPrice float64

	frames chan domain.FrameData
}

// NewFeed crea un Feed con la configuración dada, aplicando defaults a los
// campos vacíos.
func NewFeed(cfg Config) *Feed {
	if cfg.URL == "" {
		cfg.URL = defaultStreamBase
	}
	if cfg.Symbol == "" {
		cfg.Symbol = "btcusdt"
	}
	if cfg.ChartWidth <= 0 {
		cfg.ChartWidth = 400
	}
	if cfg.ChartHeight <= 0 {
		cfg.ChartHeight = 300
	}
	if cfg.FrameInterval <= 0 {
		cfg.FrameInterval = defaultFrameInterval
	}
	if cfg.Window <= 0 {
		cfg.Window = defaultWindow
	}
	return &Feed{
		cfg:    cfg,
		frames: make(chan domain.FrameData, 4),
	}
}

// Frames devuelve el canal de frames. Se cierra cuando Run termina.
func (f *Feed) Frames() <-chan domain.FrameData { return f.frames }

// SetReference fija (o limpia, con side vacío) el precio de entrada contra
// el que se calcula IsWinning.
func (f *Feed) SetReference(side domain.BetSide, entryPrice float64) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.refSide = side
	f.refPrice = entryPrice
}

// Run conecta al stream y publica frames hasta que el contexto se cancela.
// Las desconexiones reconectan solas con espera fija.
func (f *Feed) Run(ctx context.Context) error {
	defer close(f.frames)

	go f.readLoop(ctx)

	ticker := time.NewTicker(f.cfg.FrameInterval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case now := <-ticker.C:
			fd, ok := f.buildFrame(now)
			if !ok {
				continue // sin precios todavía
			}
			select {
			case f.frames <- fd:
			default: // consumidor lento: descartar el frame
			}
		}
	}
}

// readLoop mantiene la conexión al stream, reconectando hasta que el
// contexto muera.
func (f *Feed) readLoop(ctx context.Context) {
	url := fmt.Sprintf("%s/%s@aggTrade", strings.TrimRight(f.cfg.URL, "/"), f.cfg.Symbol)

	for ctx.Err() == nil {
		conn, _, err := websocket.DefaultDialer.DialContext(ctx, url, nil)
		if err != nil {
			slog.Warn("binance: connection failed, retrying", "err", err)
			select {
			case <-time.After(reconnectWait):
			case <-ctx.Done():
				return
			}
			continue
		}
		slog.Info("binance: connected", "symbol", f.cfg.Symbol)

		// Cerrar la conexión cuando muera el contexto desbloquea ReadMessage.
		done := make(chan struct{})
		go func() {
			select {
			case <-ctx.Done():
				conn.Close()
			case <-done:
			}
		}()

		f.consume(conn)
		close(done)
		conn.Close()

		if ctx.Err() == nil {
			slog.Warn("binance: stream dropped, reconnecting")
		}
	}
}

// consume lee trades de una conexión hasta que falle.
func (f *Feed) consume(conn *websocket.Conn) {
	for {
		_, message, err := conn.ReadMessage()
		if err != nil {
			return
		}
		var t aggTrade
		if err := json.Unmarshal(message, &t); err != nil {
			continue
		}
		price, err := strconv.ParseFloat(t.Price, 64)
		if err != nil || price <= 0 {
			continue
		}
		f.recordTrade(price, time.UnixMilli(t.Time))
	}
}

// recordTrade añade un precio suavizado al histórico y recorta lo que cayó
// fuera de la ventana visible.
func (f *Feed) recordTrade(price float64, at time.Time) {
	f.mu.Lock()
	defer f.mu.Unlock()

	if f.ema == 0 {
		f.ema = price
	} else {
		f.ema = emaAlpha*price + (1-emaAlpha)*f.ema
	}
	f.history = append(f.history, pricePoint{price: f.ema, at: at})

	cutoff := at.Add(-f.cfg.Window)
	trim := 0
	for trim < len(f.history) && f.history[trim].at.Before(cutoff) {
		trim++
	}
	f.history = f.history[trim:]
}

// buildFrame proyecta el histórico actual a un FrameData. Devuelve false si
// aún no hay precios.
func (f *Feed) buildFrame(now time.Time) (domain.FrameData, bool) {
	f.mu.Lock()
	defer f.mu.Unlock()

	if len(f.history) == 0 {
		return domain.FrameData{}, false
	}

	minPrice, maxPrice := f.history[0].price, f.history[0].price
	for _, p := range f.history[1:] {
		if p.price < minPrice {
			minPrice = p.price
		}
		if p.price > maxPrice {
			maxPrice = p.price
		}
	}
	pad := (maxPrice - minPrice) * pricePadFrac
	if pad == 0 {
		pad = maxPrice * 0.0001 // rango plano: abrir una banda mínima
	}
	minPrice -= pad
	maxPrice += pad

	marker := f.history[len(f.history)-1].price
	minTime := now.Add(-f.cfg.Window)
	width := f.cfg.ChartWidth
	height := f.cfg.ChartHeight
	window := f.cfg.Window

	priceToY := func(price float64) float64 {
		frac := (price - minPrice) / (maxPrice - minPrice)
		return height * (1 - frac)
	}
	timeToX := func(t time.Time) float64 {
		return width * markerFrac * float64(t.Sub(minTime)) / float64(window)
	}

	winning := false
	if f.refSide == domain.SideUp {
		winning = marker > f.refPrice
	} else if f.refSide == domain.SideDown {
		winning = marker < f.refPrice
	}

	return domain.FrameData{
		PriceToY:     priceToY,
		TimeToX:      timeToX,
		MarkerX:      width * markerFrac,
		MarkerY:      priceToY(marker),
		MarkerPrice:  marker,
		MinPrice:     minPrice,
		MaxPrice:     maxPrice,
		MinTime:      minTime,
		MaxTime:      now,
		ChartWidth:   width,
		ChartHeight:  height,
		HeaderOffset: f.cfg.HeaderOffset,
		IsWinning:    winning,
	}, true
}
