// Package yahoo fetches daily OHLCV history from the Yahoo Finance v8 chart
// API using cookie + crumb authentication.
package yahoo

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/http/cookiejar"
	"net/url"
	"sort"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/cenkalti/backoff/v4"
	"golang.org/x/sync/errgroup"

	"github.com/ahmethakanbesel/stockdata/internal/apperror"
	"github.com/ahmethakanbesel/stockdata/internal/scraper"
)

const (
	defaultChartEndpoint = "https://query2.finance.yahoo.com/v8/finance/chart"
	defaultCookieURL     = "https://fc.yahoo.com"
	defaultCrumbURL      = "https://query1.finance.yahoo.com/v1/test/getcrumb"
	dateFormat           = "2006-01-02"
	chunkDays            = 1250
	userAgent            = "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/131.0.0.0 Safari/537.36"
)

// Scraper fetches historical price data from Yahoo Finance.
type Scraper struct {
	workers       int
	client        *http.Client
	chartEndpoint string
	cookieURL     string
	crumbURL      string
	timeout       time.Duration
	maxRetries    int
	retryInterval time.Duration
	now           func() time.Time

	mu    sync.Mutex
	crumb string
}

// New creates a Scraper with the given options applied.
func New(opts ...Option) *Scraper {
	jar, _ := cookiejar.New(nil)
	s := &Scraper{
		workers:       5,
		client:        &http.Client{Jar: jar},
		chartEndpoint: defaultChartEndpoint,
		cookieURL:     defaultCookieURL,
		crumbURL:      defaultCrumbURL,
		timeout:       30 * time.Second,
		maxRetries:    3,
		retryInterval: time.Second,
		now:           time.Now,
	}
	for _, o := range opts {
		o(s)
	}
	return s
}

// Option configures a Scraper.
type Option func(*Scraper)

// WithWorkers sets the worker concurrency for parallel chunk fetching.
func WithWorkers(n int) Option {
	return func(s *Scraper) {
		if n > 0 {
			s.workers = n
		}
	}
}

// WithClient sets the HTTP client. The client should have a cookie jar.
func WithClient(c *http.Client) Option {
	return func(s *Scraper) { s.client = c }
}

// WithChartEndpoint overrides the default chart API endpoint.
func WithChartEndpoint(ep string) Option {
	return func(s *Scraper) { s.chartEndpoint = ep }
}

// WithCookieURL overrides the URL used to obtain the session cookie.
func WithCookieURL(u string) Option {
	return func(s *Scraper) { s.cookieURL = u }
}

// WithCrumbURL overrides the URL used to obtain the crumb token.
func WithCrumbURL(u string) Option {
	return func(s *Scraper) { s.crumbURL = u }
}

// WithTimeout bounds every single HTTP attempt.
func WithTimeout(d time.Duration) Option {
	return func(s *Scraper) { s.timeout = d }
}

// WithMaxRetries sets how many times a failed request is retried after the
// first attempt. Only transport failures, 429 and 5xx are retried.
func WithMaxRetries(n int) Option {
	return func(s *Scraper) { s.maxRetries = n }
}

// WithRetryInterval sets the initial backoff interval between retries.
func WithRetryInterval(d time.Duration) Option {
	return func(s *Scraper) { s.retryInterval = d }
}

// WithClock overrides the time source used to resolve windows.
func WithClock(now func() time.Time) Option {
	return func(s *Scraper) { s.now = now }
}

// Source returns the provider identifier.
func (s *Scraper) Source() string { return "yahoo" }

// chartResponse represents the Yahoo Finance v8 chart API response. Price
// arrays hold nulls for sessions without data.
type chartResponse struct {
	Chart struct {
		Result []chartResult `json:"result"`
		Error  *chartError   `json:"error"`
	} `json:"chart"`
}

type chartResult struct {
	Meta struct {
		Symbol    string `json:"symbol"`
		GMTOffset int64  `json:"gmtoffset"`
	} `json:"meta"`
	Timestamp  []int64 `json:"timestamp"`
	Indicators struct {
		Quote []struct {
			Open   []any `json:"open"`
			High   []any `json:"high"`
			Low    []any `json:"low"`
			Close  []any `json:"close"`
			Volume []any `json:"volume"`
		} `json:"quote"`
		AdjClose []struct {
			AdjClose []any `json:"adjclose"`
		} `json:"adjclose"`
	} `json:"indicators"`
}

type chartError struct {
	Code        string `json:"code"`
	Description string `json:"description"`
}

// Fetch returns the bars for symbol covering w, ascending by date.
func (s *Scraper) Fetch(ctx context.Context, symbol string, w scraper.Window) ([]scraper.Row, error) {
	if strings.TrimSpace(symbol) == "" {
		return nil, apperror.New(apperror.BadRequest, "symbol cannot be empty")
	}
	from, to, err := w.Range(s.now())
	if err != nil {
		return nil, err
	}

	// Ensure we have a valid crumb before starting parallel fetches.
	if err := s.retry(ctx, symbol, s.ensureCrumb); err != nil {
		return nil, err
	}

	chunks := scraper.Split(from, to, chunkDays)
	results := make([][]scraper.Row, len(chunks))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(s.workers)

	for i, c := range chunks {
		g.Go(func() error {
			var rows []scraper.Row
			err := s.retry(gctx, symbol, func(attemptCtx context.Context) error {
				var err error
				rows, err = s.fetchChart(attemptCtx, symbol, w.Interval, c.From, c.To)
				return err
			})
			if err != nil {
				slog.Error("error retrieving yahoo data", "symbol", symbol,
					"startDate", c.From.Format(dateFormat), "endDate", c.To.Format(dateFormat), "error", err)
				return err
			}
			results[i] = rows
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return nil, err
	}

	var all []scraper.Row
	for _, r := range results {
		all = append(all, r...)
	}
	sort.SliceStable(all, func(i, j int) bool { return all[i].Date.Before(all[j].Date) })

	slog.Info("retrieved yahoo data", "symbol", symbol,
		"from", from.Format(dateFormat), "to", to.Format(dateFormat),
		"interval", w.Interval, "count", len(all))

	return all, nil
}

// retry runs op with a per-attempt timeout and exponential backoff. Errors
// that are not retryable stop the loop immediately.
func (s *Scraper) retry(ctx context.Context, symbol string, op func(context.Context) error) error {
	eb := backoff.NewExponentialBackOff()
	eb.InitialInterval = s.retryInterval
	eb.MaxElapsedTime = 0

	var b backoff.BackOff = eb
	if s.maxRetries >= 0 {
		b = backoff.WithMaxRetries(eb, uint64(s.maxRetries))
	}

	return backoff.RetryNotify(func() error {
		attemptCtx, cancel := context.WithTimeout(ctx, s.timeout)
		defer cancel()

		err := op(attemptCtx)
		if err == nil {
			return nil
		}
		if ctx.Err() != nil || !apperror.Retryable(err) {
			return backoff.Permanent(err)
		}
		return err
	}, backoff.WithContext(b, ctx), func(err error, next time.Duration) {
		slog.Warn("yahoo request failed, retrying", "symbol", symbol, "in", next, "error", err)
	})
}

// ensureCrumb fetches a session cookie and crumb token if not already cached.
func (s *Scraper) ensureCrumb(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.crumb != "" {
		return nil
	}

	// Step 1: GET fc.yahoo.com to obtain a session cookie.
	cookieReq, err := http.NewRequestWithContext(ctx, http.MethodGet, s.cookieURL, nil)
	if err != nil {
		return fmt.Errorf("build cookie request: %w", err)
	}
	cookieReq.Header.Set("User-Agent", userAgent)

	cookieRes, err := s.client.Do(cookieReq) //nolint:gosec // URL from internal config
	if err != nil {
		return apperror.Wrap(apperror.Transport, "yahoo auth: fetch cookie", err)
	}
	_ = cookieRes.Body.Close()

	// Step 2: GET crumb endpoint (cookie is sent automatically via jar).
	crumbReq, err := http.NewRequestWithContext(ctx, http.MethodGet, s.crumbURL, nil)
	if err != nil {
		return fmt.Errorf("build crumb request: %w", err)
	}
	crumbReq.Header.Set("User-Agent", userAgent)

	crumbRes, err := s.client.Do(crumbReq) //nolint:gosec // URL from internal config
	if err != nil {
		return apperror.Wrap(apperror.Transport, "yahoo auth: fetch crumb", err)
	}
	defer func() { _ = crumbRes.Body.Close() }()

	if crumbRes.StatusCode != http.StatusOK {
		return apperror.New(apperror.Transport,
			fmt.Sprintf("yahoo auth: crumb endpoint returned HTTP %d", crumbRes.StatusCode))
	}

	body, err := io.ReadAll(crumbRes.Body)
	if err != nil {
		return apperror.Wrap(apperror.Transport, "yahoo auth: read crumb", err)
	}

	crumb := strings.TrimSpace(string(body))
	if crumb == "" {
		return apperror.New(apperror.Transport, "yahoo auth: empty crumb received")
	}

	s.crumb = crumb
	slog.Info("yahoo: obtained crumb", "crumb_len", len(crumb))
	return nil
}

// fetchChart fetches chart data for a single date range chunk.
func (s *Scraper) fetchChart(ctx context.Context, symbol, interval string, from, to time.Time) ([]scraper.Row, error) {
	if err := s.ensureCrumb(ctx); err != nil {
		return nil, err
	}

	s.mu.Lock()
	crumb := s.crumb
	s.mu.Unlock()

	q := url.Values{}
	q.Set("period1", strconv.FormatInt(from.Unix(), 10))
	q.Set("period2", strconv.FormatInt(to.Unix(), 10))
	q.Set("interval", interval)
	q.Set("events", "div,splits")
	q.Set("includeAdjustedClose", "true")
	q.Set("crumb", crumb)
	reqURL := fmt.Sprintf("%s/%s?%s", s.chartEndpoint, url.PathEscape(symbol), q.Encode())

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, reqURL, nil)
	if err != nil {
		return nil, fmt.Errorf("build chart request: %w", err)
	}
	req.Header.Set("User-Agent", userAgent)

	res, err := s.client.Do(req) //nolint:gosec // URL built from internal config
	if err != nil {
		return nil, apperror.Wrap(apperror.Transport, "yahoo chart request", err)
	}
	defer func() { _ = res.Body.Close() }()

	body, err := io.ReadAll(res.Body)
	if err != nil {
		return nil, apperror.Wrap(apperror.Transport, "read yahoo response", err)
	}

	switch {
	case res.StatusCode == http.StatusOK, res.StatusCode == http.StatusNotFound:
		// 404 carries a chart error body for unknown symbols.
	case res.StatusCode == http.StatusUnauthorized || res.StatusCode == http.StatusForbidden:
		// Invalidate crumb so the next attempt re-authenticates.
		s.mu.Lock()
		s.crumb = ""
		s.mu.Unlock()
		return nil, apperror.New(apperror.Transport,
			fmt.Sprintf("yahoo returned HTTP %d for %s", res.StatusCode, symbol))
	case res.StatusCode == http.StatusTooManyRequests, res.StatusCode >= 500:
		return nil, apperror.New(apperror.Transport,
			fmt.Sprintf("yahoo returned HTTP %d for %s", res.StatusCode, symbol))
	default:
		return nil, apperror.New(apperror.DataShape,
			fmt.Sprintf("yahoo returned HTTP %d for %s", res.StatusCode, symbol))
	}

	rows, err := parseChart(body)
	if err != nil {
		return nil, err
	}

	slog.Debug("retrieved yahoo chunk", "symbol", symbol,
		"from", from.Format(dateFormat), "to", to.Format(dateFormat), "count", len(rows))
	return rows, nil
}

// parseChart converts a chart payload into rows. An unknown symbol or an
// empty result is not an error.
func parseChart(body []byte) ([]scraper.Row, error) {
	var resp chartResponse
	if err := json.Unmarshal(body, &resp); err != nil {
		return nil, apperror.Wrap(apperror.DataShape, "parse yahoo response", err)
	}

	if e := resp.Chart.Error; e != nil {
		if strings.EqualFold(e.Code, "Not Found") {
			return nil, nil
		}
		return nil, apperror.New(apperror.DataShape,
			fmt.Sprintf("yahoo chart error: %s: %s", e.Code, e.Description))
	}

	if len(resp.Chart.Result) == 0 {
		return nil, nil
	}

	result := resp.Chart.Result[0]
	n := len(result.Timestamp)
	if n == 0 {
		return nil, nil
	}
	if len(result.Indicators.Quote) == 0 {
		return nil, apperror.New(apperror.DataShape, "yahoo response has timestamps but no quote")
	}

	quote := result.Indicators.Quote[0]
	for name, col := range map[string][]any{
		"open": quote.Open, "high": quote.High, "low": quote.Low,
		"close": quote.Close, "volume": quote.Volume,
	} {
		if len(col) != n {
			return nil, apperror.New(apperror.DataShape,
				fmt.Sprintf("yahoo %s column has %d values for %d timestamps", name, len(col), n))
		}
	}

	var adj []any
	if len(result.Indicators.AdjClose) > 0 {
		adj = result.Indicators.AdjClose[0].AdjClose
		if len(adj) != n {
			return nil, apperror.New(apperror.DataShape,
				fmt.Sprintf("yahoo adjclose column has %d values for %d timestamps", len(adj), n))
		}
	}

	rows := make([]scraper.Row, 0, n)
	for i, ts := range result.Timestamp {
		var (
			ohlc    [4]float64
			missing bool
		)
		for k, col := range [4]struct {
			name string
			vals []any
		}{{"open", quote.Open}, {"high", quote.High}, {"low", quote.Low}, {"close", quote.Close}} {
			v, ok, err := toFloat64(col.name, i, col.vals[i])
			if err != nil {
				return nil, err
			}
			if !ok {
				missing = true
			}
			ohlc[k] = v
		}
		if missing {
			continue // null bar: holiday or halted session
		}
		o, h, l, c := ohlc[0], ohlc[1], ohlc[2], ohlc[3]

		ac := c
		if adj != nil {
			v, ok, err := toFloat64("adjclose", i, adj[i])
			if err != nil {
				return nil, err
			}
			if ok {
				ac = v
			}
		}

		var vol int64
		v, ok, err := toFloat64("volume", i, quote.Volume[i])
		if err != nil {
			return nil, err
		}
		if ok {
			vol = int64(v)
		}

		rows = append(rows, scraper.Row{
			Date:     sessionDate(ts, result.Meta.GMTOffset),
			Open:     o,
			High:     h,
			Low:      l,
			Close:    c,
			AdjClose: ac,
			Volume:   vol,
		})
	}

	return rows, nil
}

// sessionDate maps a bar timestamp to the exchange-local calendar date.
func sessionDate(ts, gmtOffset int64) time.Time {
	local := time.Unix(ts+gmtOffset, 0).UTC()
	return time.Date(local.Year(), local.Month(), local.Day(), 0, 0, 0, 0, time.UTC)
}

// toFloat64 converts a JSON number (float64 or json.Number) to float64.
// ok is false for null, which Yahoo uses for missing data points. Any other
// type is a DataShape error naming the column and index.
func toFloat64(column string, i int, v any) (f float64, ok bool, err error) {
	switch val := v.(type) {
	case nil:
		return 0, false, nil
	case float64:
		return val, true, nil
	case json.Number:
		n, perr := val.Float64()
		if perr != nil {
			return 0, false, apperror.Wrap(apperror.DataShape,
				fmt.Sprintf("yahoo %s[%d] is not a number", column, i), perr)
		}
		return n, true, nil
	default:
		return 0, false, apperror.New(apperror.DataShape,
			fmt.Sprintf("yahoo %s[%d] has non-numeric value %v", column, i, v))
	}
}

var _ scraper.Fetcher = (*Scraper)(nil)
