package polymarket

// DTOs raw de la Gamma API. Solo se usan dentro de este paquete.
// La conversión a ports.MarketWindow se hace en mapping.go.

// gammaMarketsResponse es la respuesta de GET /markets de Gamma.
type gammaMarketsResponse []gammaMarket

// gammaMarket es un mercado up/down de 5 minutos tal como lo devuelve Gamma.
// OutcomePrices y ClobTokenIDs llegan como arrays JSON codificados en string.
type gammaMarket struct {
	ID            string `json:"id"`
	Question      string `json:"question"`
	Slug          string `json:"slug"`
	EndDateISO    string `json:"endDateIso"`
	EndDate       string `json:"endDate"`
	OutcomePrices string `json:"outcomePrices"`
	ClobTokenIDs  string `json:"clobTokenIds"`
	Active        bool   `json:"active"`
	Closed        bool   `json:"closed"`
}
