package marketdata

import (
	"time"

	"github.com/shopspring/decimal"
)

// Quote is the normalized price snapshot the rest of the service consumes,
// whatever upstream it came from.
type Quote struct {
	Symbol    string          `json:"symbol"`
	Price     decimal.Decimal `json:"price"`
	Currency  string          `json:"currency"`
	FetchedAt time.Time       `json:"fetchedAt"`
}

// yahooQuoteResponse mirrors the quote endpoint's envelope. Only the fields
// we read are declared.
type yahooQuoteResponse struct {
	QuoteResponse struct {
		Result []yahooQuote `json:"result"`
		Error  *struct {
			Code        string `json:"code"`
			Description string `json:"description"`
		} `json:"error"`
	} `json:"quoteResponse"`
}

type yahooQuote struct {
	Symbol             string  `json:"symbol"`
	RegularMarketPrice float64 `json:"regularMarketPrice"`
	Currency           string  `json:"currency"`
	ShortName          string  `json:"shortName"`
	QuoteType          string  `json:"quoteType"`
}

// exchangeTicker mirrors the exchange's single-symbol ticker. Price arrives
// as a string, which keeps it exact through decimal parsing.
type exchangeTicker struct {
	Symbol string `json:"symbol"`
	Price  string `json:"price"`
}

type yahooSearchResponse struct {
	Quotes []SymbolMatch `json:"quotes"`
}

// SymbolMatch is one search hit for symbol lookup.
type SymbolMatch struct {
	Symbol    string `json:"symbol"`
	ShortName string `json:"shortname"`
	QuoteType string `json:"quoteType"`
	Exchange  string `json:"exchange"`
}

type newsResponse struct {
	Status   string        `json:"status"`
	Articles []NewsArticle `json:"articles"`
}

// NewsArticle is one headline returned by the news provider.
type NewsArticle struct {
	Title       string    `json:"title"`
	Description string    `json:"description"`
	URL         string    `json:"url"`
	Source      struct {
		Name string `json:"name"`
	} `json:"source"`
	PublishedAt time.Time `json:"publishedAt"`
}
