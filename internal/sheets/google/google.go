package google

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"os"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/hashicorp/go-retryablehttp"
	goption "google.golang.org/api/option"
	gsheet "google.golang.org/api/sheets/v4"
	htransport "google.golang.org/api/transport/http"

	"rateio/internal/core"
	"rateio/internal/ledger"
	applog "rateio/internal/log"
	ports "rateio/internal/sheets"
)

var _ ports.Exporter = (*Client)(nil)

// Config selects the spreadsheet and credentials. CredentialsJSON wins over
// CredentialsFile; with neither, GOOGLE_APPLICATION_CREDENTIALS is read.
type Config struct {
	SpreadsheetID   string
	PeriodsSheet    string
	ProjectionSheet string
	CredentialsJSON string
	CredentialsFile string
	RetryMax        int
}

type Client struct {
	svc             *gsheet.Service
	spreadsheetID   string
	periodsSheet    string
	projectionSheet string
	logger          *applog.Logger

	// Exports rewrite whole sheets; one writer per sheet at a time.
	periodsMu    sync.Mutex
	projectionMu sync.Mutex
}

func New(ctx context.Context, cfg Config, logger *applog.Logger) (*Client, error) {
	if strings.TrimSpace(cfg.SpreadsheetID) == "" {
		return nil, errors.New("missing GOOGLE_SPREADSHEET_ID")
	}
	if cfg.PeriodsSheet == "" {
		cfg.PeriodsSheet = "Lançamentos"
	}
	if cfg.ProjectionSheet == "" {
		cfg.ProjectionSheet = "Projeção"
	}
	if logger == nil {
		logger = applog.Default()
	}
	logger = logger.WithComponent(applog.ComponentSheets)

	svc, err := newSheetsService(ctx, cfg, logger)
	if err != nil {
		return nil, fmt.Errorf("sheets service: %w", err)
	}
	return &Client{
		svc:             svc,
		spreadsheetID:   cfg.SpreadsheetID,
		periodsSheet:    cfg.PeriodsSheet,
		projectionSheet: cfg.ProjectionSheet,
		logger:          logger,
	}, nil
}

func credentialsJSON(cfg Config) ([]byte, error) {
	file := strings.TrimSpace(cfg.CredentialsFile)
	if file == "" {
		file = strings.TrimSpace(os.Getenv("GOOGLE_APPLICATION_CREDENTIALS"))
	}
	switch {
	case strings.TrimSpace(cfg.CredentialsJSON) != "":
		return []byte(cfg.CredentialsJSON), nil
	case file != "":
		data, err := os.ReadFile(file)
		if err != nil {
			return nil, fmt.Errorf("read service account file: %w", err)
		}
		return data, nil
	default:
		return nil, errors.New("missing service account credentials (set GOOGLE_SERVICE_ACCOUNT_JSON, GOOGLE_SERVICE_ACCOUNT_FILE, or GOOGLE_APPLICATION_CREDENTIALS)")
	}
}

// newSheetsService authorizes on top of a retrying, pooled transport so
// transient API failures are retried with fresh tokens.
func newSheetsService(ctx context.Context, cfg Config, logger *applog.Logger) (*gsheet.Service, error) {
	creds, err := credentialsJSON(cfg)
	if err != nil {
		return nil, err
	}

	retry := retryablehttp.NewClient()
	retry.HTTPClient = newHTTPClientWithPooling()
	retry.RetryMax = cfg.RetryMax
	if retry.RetryMax <= 0 {
		retry.RetryMax = 3
	}
	retry.RetryWaitMin = 500 * time.Millisecond
	retry.RetryWaitMax = 10 * time.Second
	retry.Logger = &retryLogger{logger: logger}

	authed, err := htransport.NewTransport(ctx, retry.StandardClient().Transport,
		goption.WithCredentialsJSON(creds),
		goption.WithScopes(gsheet.SpreadsheetsScope))
	if err != nil {
		return nil, fmt.Errorf("authorize transport: %w", err)
	}

	svc, err := gsheet.NewService(ctx, goption.WithHTTPClient(&http.Client{
		Transport: authed,
		Timeout:   60 * time.Second,
	}))
	if err != nil {
		return nil, fmt.Errorf("create sheets service: %w", err)
	}
	logger.InfoContext(ctx, "Google Sheets service created", "credentials_size", len(creds))
	return svc, nil
}

func newHTTPClientWithPooling() *http.Client {
	dialer := &net.Dialer{
		Timeout:   30 * time.Second,
		KeepAlive: 30 * time.Second,
	}
	transport := &http.Transport{
		DialContext:           dialer.DialContext,
		MaxIdleConns:          100,
		MaxIdleConnsPerHost:   10,
		MaxConnsPerHost:       50,
		IdleConnTimeout:       90 * time.Second,
		TLSHandshakeTimeout:   10 * time.Second,
		ResponseHeaderTimeout: 30 * time.Second,
		ExpectContinueTimeout: 1 * time.Second,
		ForceAttemptHTTP2:     true,
	}
	return &http.Client{Transport: transport, Timeout: 60 * time.Second}
}

func (c *Client) ExportPeriod(ctx context.Context, userID string, p core.Period, b ledger.Bucket) error {
	c.periodsMu.Lock()
	defer c.periodsMu.Unlock()
	return c.rewrite(ctx, c.periodsSheet, periodHeader, userID, p.Key(), periodRows(userID, p, b))
}

func (c *Client) ExportProjection(ctx context.Context, userID string, year int, rows []core.ProjectionRow) error {
	c.projectionMu.Lock()
	defer c.projectionMu.Unlock()
	return c.rewrite(ctx, c.projectionSheet, projectionHeader, userID, strconv.Itoa(year), projectionRows(userID, year, rows))
}

// rewrite reads the sheet, swaps the rows of (user, scope) and writes the
// whole matrix back.
func (c *Client) rewrite(ctx context.Context, sheet string, header []any, userID, scope string, add [][]any) error {
	if c.svc == nil {
		return errors.New("sheets service not initialized")
	}
	rng := columnRange(sheet, header)
	resp, err := c.svc.Spreadsheets.Values.Get(c.spreadsheetID, rng).Context(ctx).Do()
	if err != nil {
		return fmt.Errorf("read %s: %w", rng, err)
	}
	values := replaceRows(resp.Values, header, userID, scope, add)

	if _, err := c.svc.Spreadsheets.Values.Clear(c.spreadsheetID, rng, &gsheet.ClearValuesRequest{}).Context(ctx).Do(); err != nil {
		return fmt.Errorf("clear %s: %w", rng, err)
	}
	anchor := fmt.Sprintf("'%s'!A1", sheet)
	_, err = c.svc.Spreadsheets.Values.Update(c.spreadsheetID, anchor, &gsheet.ValueRange{Values: values}).
		ValueInputOption("RAW").Context(ctx).Do()
	if err != nil {
		return fmt.Errorf("write %s: %w", anchor, err)
	}
	c.logger.DebugContext(ctx, "Sheet rewritten",
		applog.FieldUserID, userID,
		"sheet", sheet,
		"scope", scope,
		"rows", len(add))
	return nil
}

// retryLogger adapts the application logger to retryablehttp.
type retryLogger struct {
	logger *applog.Logger
}

func (l *retryLogger) Error(msg string, keysAndValues ...any) { l.logger.Error(msg, keysAndValues...) }
func (l *retryLogger) Info(msg string, keysAndValues ...any)  { l.logger.Debug(msg, keysAndValues...) }
func (l *retryLogger) Debug(msg string, keysAndValues ...any) { l.logger.Debug(msg, keysAndValues...) }
func (l *retryLogger) Warn(msg string, keysAndValues ...any)  { l.logger.Warn(msg, keysAndValues...) }
