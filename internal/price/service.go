package price

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/ahmethakanbesel/stockdata/internal/apperror"
	"github.com/ahmethakanbesel/stockdata/internal/scraper"
)

// IngestResult reports one ingestion unit. Attempted counts the bars
// submitted to the store after dedupe; Inserted counts the genuinely new ones.
type IngestResult struct {
	Ticker    string `json:"ticker"`
	Fetched   int    `json:"fetched"`
	Attempted int    `json:"attempted"`
	Inserted  int64  `json:"inserted"`
	Empty     bool   `json:"empty"`
}

type Service struct {
	repo    Repository
	fetcher scraper.Fetcher
	window  scraper.Window
	logger  *slog.Logger
}

func NewService(repo Repository, fetcher scraper.Fetcher, window scraper.Window, logger *slog.Logger) *Service {
	if logger == nil {
		logger = slog.Default()
	}
	return &Service{
		repo:    repo,
		fetcher: fetcher,
		window:  window,
		logger:  logger,
	}
}

// Ingest fetches the configured window for ticker and merges it into the
// store. An empty provider response is not an error: nothing is written and
// the result is marked Empty. Any other failure aborts the unit.
func (s *Service) Ingest(ctx context.Context, ticker string) (*IngestResult, error) {
	res := &IngestResult{Ticker: ticker}

	rows, err := s.fetcher.Fetch(ctx, ticker, s.window)
	if err != nil {
		return res, classify(err, apperror.Transport, "fetch "+ticker)
	}
	res.Fetched = len(rows)

	if len(rows) == 0 {
		res.Empty = true
		s.logger.Warn("no data fetched", "ticker", ticker, "source", s.fetcher.Source())
		return res, nil
	}

	bars := Normalize(ticker, rows)
	for _, b := range bars {
		if err := b.Validate(); err != nil {
			return res, classify(err, apperror.DataShape, "validate "+ticker)
		}
	}
	res.Attempted = len(bars)

	if err := s.repo.EnsureSchema(ctx); err != nil {
		return res, classify(err, apperror.Transport, "ensure schema")
	}

	n, err := s.repo.SaveBars(ctx, bars)
	if err != nil {
		return res, classify(err, apperror.Transport, "save "+ticker)
	}
	res.Inserted = n

	s.logger.Info("stored bars", "ticker", ticker,
		"fetched", res.Fetched, "attempted", res.Attempted, "inserted", res.Inserted)
	return res, nil
}

// GetBars returns stored bars for a ticker, ascending by date.
func (s *Service) GetBars(ctx context.Context, req ListBarsRequest) ([]Bar, error) {
	if err := req.Validate(); err != nil {
		return nil, err
	}

	to := req.To
	if to.IsZero() {
		to = CalendarDate(time.Now().UTC())
	}

	bars, err := s.repo.ListBars(ctx, req.Ticker, req.From, to)
	if err != nil {
		return nil, fmt.Errorf("list bars: %w", err)
	}
	return bars, nil
}

func (s *Service) ListTickers(ctx context.Context) ([]string, error) {
	tickers, err := s.repo.ListTickers(ctx)
	if err != nil {
		return nil, fmt.Errorf("list tickers: %w", err)
	}
	return tickers, nil
}

// classify keeps an existing apperror code and falls back to def otherwise.
func classify(err error, def apperror.Code, msg string) error {
	code := def
	if c := apperror.CodeOf(err); c != apperror.Internal {
		code = c
	}
	return apperror.Wrap(code, msg, err)
}
