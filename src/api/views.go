package api

import (
	"net/http"
	"time"

	"portfolio/src/api/handlers"
	"portfolio/src/clients/marketdata"
	"portfolio/src/services"
	redis_utils "portfolio/src/utils/redis"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/sirupsen/logrus"
)

// Dependencies carries everything the router needs wired in.
type Dependencies struct {
	Logger     *logrus.Logger
	Accounting *services.AccountingService
	MarketData *marketdata.MarketDataService
	Redis      *redis_utils.RedisHandler
}

// NewRouter builds the HTTP surface of the service.
func NewRouter(deps Dependencies) http.Handler {
	accounts := handlers.NewAccountsHandler(deps.Accounting)
	trades := handlers.NewTradesHandler(deps.Accounting)
	market := handlers.NewMarketHandler(deps.MarketData)
	watchlist := handlers.NewWatchlistHandler(deps.Accounting)

	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.Recoverer)
	r.Use(middleware.Timeout(30 * time.Second))
	r.Use(LoggerMiddleware(deps.Logger))
	r.Use(RateLimitMiddleware(deps.Redis, 100, time.Minute))

	r.Get("/alive", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte(`{"status":"ok"}`))
	})

	r.Route("/api", func(r chi.Router) {
		r.Route("/accounts", func(r chi.Router) {
			r.Post("/", accounts.Create)
			r.Route("/{accountID}", func(r chi.Router) {
				r.Get("/", accounts.Get)
				r.Put("/currency", accounts.UpdateCurrency)
				r.Put("/role", accounts.UpdateRole)

				r.Post("/trades", trades.Execute)
				r.Get("/transactions", trades.ListTransactions)
				r.Get("/balances", trades.ListBalances)
				r.Get("/balances/{currency}", trades.GetBalance)
				r.Get("/holdings", trades.ListHoldings)
				r.Get("/portfolio", trades.Portfolio)
				r.Get("/portfolio.csv", trades.ExportCSV)

				r.Route("/watchlist", func(r chi.Router) {
					r.Get("/", watchlist.List)
					r.Post("/", watchlist.Add)
					r.Delete("/", watchlist.Remove)
				})
			})
		})

		r.Get("/prices/{symbol}", market.GetPrice)
		r.Get("/symbols", market.Search)
		r.Get("/news", market.News)
	})

	return r
}
