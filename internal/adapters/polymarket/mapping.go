package polymarket

import (
	"encoding/json"
	"fmt"
	"strconv"
	"time"

	"github.com/alejandrodnm/polyarcade/internal/ports"
)

// windowLength es la duración de una ventana up/down.
const windowLength = 5 * time.Minute

// windowSlug construye el slug de la ventana que empieza en startUnix.
// Formato: <asset>-updown-5m-<unix-ts>, p.ej. btc-updown-5m-1700000100.
func windowSlug(asset string, startUnix int64) string {
	return fmt.Sprintf("%s-updown-5m-%d", asset, startUnix)
}

// windowStart alinea un instante al inicio de su ventana de 5 minutos.
func windowStart(t time.Time) int64 {
	secs := int64(windowLength / time.Second)
	return t.Unix() / secs * secs
}

// mapWindow convierte un gammaMarket a ports.MarketWindow.
// Un mercado cerrado sin precios de outcome se considera sin resolver todavía.
func mapWindow(gm gammaMarket) (ports.MarketWindow, error) {
	w := ports.MarketWindow{
		Slug:     gm.Slug,
		Question: gm.Question,
	}

	tokens, err := parseStringArray(gm.ClobTokenIDs)
	if err != nil {
		return ports.MarketWindow{}, fmt.Errorf("market %s: clob token ids: %w", gm.Slug, err)
	}
	if len(tokens) > 0 {
		w.TokenID = tokens[0] // el token YES va primero
	}

	prices, err := parsePrices(gm.OutcomePrices)
	if err != nil {
		return ports.MarketWindow{}, fmt.Errorf("market %s: outcome prices: %w", gm.Slug, err)
	}
	if len(prices) > 0 {
		w.YesPrice = prices[0]
	}
	if len(prices) > 1 {
		w.NoPrice = prices[1]
	}

	w.EndTime = parseEndDate(gm)
	if gm.Closed && len(prices) > 0 {
		w.Resolved = true
		w.ResolvedUp = prices[0] > 0.5
	}
	return w, nil
}

// parseStringArray decodifica un array JSON codificado como string,
// p.ej. `"[\"123\", \"456\"]"`.
func parseStringArray(raw string) ([]string, error) {
	if raw == "" {
		return nil, nil
	}
	var out []string
	if err := json.Unmarshal([]byte(raw), &out); err != nil {
		return nil, err
	}
	return out, nil
}

// parsePrices decodifica outcomePrices: un array JSON de números en string.
func parsePrices(raw string) ([]float64, error) {
	items, err := parseStringArray(raw)
	if err != nil {
		return nil, err
	}
	prices := make([]float64, 0, len(items))
	for _, s := range items {
		p, err := strconv.ParseFloat(s, 64)
		if err != nil {
			return nil, fmt.Errorf("price %q: %w", s, err)
		}
		prices = append(prices, p)
	}
	return prices, nil
}

// parseEndDate saca el fin de ventana del mercado. Gamma usa varios
// formatos; probamos los más comunes y caemos al slug como último recurso.
func parseEndDate(gm gammaMarket) time.Time {
	for _, raw := range []string{gm.EndDate, gm.EndDateISO} {
		if raw == "" {
			continue
		}
		for _, layout := range []string{
			time.RFC3339,
			"2006-01-02T15:04:05.000Z",
			"2006-01-02T15:04:05Z",
			"2006-01-02",
		} {
			if t, err := time.Parse(layout, raw); err == nil {
				return t.UTC()
			}
		}
	}
	// Slug fallback: <asset>-updown-5m-<start> termina start+5m después.
	var start int64
	if _, err := fmt.Sscanf(slugTimestamp(gm.Slug), "%d", &start); err == nil && start > 0 {
		return time.Unix(start, 0).UTC().Add(windowLength)
	}
	return time.Time{}
}

// slugTimestamp devuelve el último segmento del slug.
func slugTimestamp(slug string) string {
	for i := len(slug) - 1; i >= 0; i-- {
		if slug[i] == '-' {
			return slug[i+1:]
		}
	}
	return ""
}
