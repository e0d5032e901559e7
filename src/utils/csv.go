package utils

import (
	"bytes"
	"encoding/csv"
	"fmt"
	"time"

	"portfolio/src/models"
)

// PortfolioToCSV renders an account's transactions, holdings and balances as
// one CSV document with a section header per collection, for download from
// the portfolio page.
func PortfolioToCSV(transactions []models.Transaction, holdings []models.Holding, balances []models.Balance) (string, []byte, error) {
	var buf bytes.Buffer
	writer := csv.NewWriter(&buf)

	write := func(record ...string) {
		_ = writer.Write(record)
	}

	write("Transactions")
	write("id", "symbol", "asset_type", "side", "quantity", "price", "currency", "timestamp")
	for _, t := range transactions {
		write(t.ID, t.Symbol, string(t.AssetType), string(t.Side),
			t.Quantity.String(), t.Price.String(), t.Currency,
			t.Timestamp.UTC().Format(time.RFC3339))
	}

	write()
	write("Holdings")
	write("symbol", "asset_type", "quantity", "avg_price", "last_updated")
	for _, h := range holdings {
		write(h.Symbol, string(h.AssetType), h.Quantity.String(),
			h.AvgPrice.String(), h.LastUpdated.UTC().Format(time.RFC3339))
	}

	write()
	write("Balances")
	write("currency", "amount", "updated_at")
	for _, b := range balances {
		write(b.Currency, b.Amount.String(), b.UpdatedAt.UTC().Format(time.RFC3339))
	}

	writer.Flush()
	if err := writer.Error(); err != nil {
		return "", nil, err
	}

	filename := fmt.Sprintf("portfolio_%d.csv", time.Now().Unix())
	return filename, buf.Bytes(), nil
}
