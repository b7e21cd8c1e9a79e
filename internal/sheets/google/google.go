// Package google exports the dormitory finance summary and the minutes upload
// log to a Google spreadsheet.
package google

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"os"
	"strings"
	"time"

	"golang.org/x/oauth2"
	oauthgoogle "golang.org/x/oauth2/google"
	goption "google.golang.org/api/option"
	gsheet "google.golang.org/api/sheets/v4"

	applog "asrama/internal/log"
)

const (
	DefaultSummarySheet = "Rekap Keuangan"
	DefaultMinutesSheet = "Log Notulen"
)

type Config struct {
	SpreadsheetID string
	SummarySheet  string
	MinutesSheet  string

	// Service account credentials, inline JSON or a path to the key file.
	CredentialsJSON string
	CredentialsFile string
}

type Client struct {
	svc           *gsheet.Service
	spreadsheetID string
	summarySheet  string
	minutesSheet  string
	logger        *applog.Logger
}

// New authenticates with the service account and returns a ready client.
func New(ctx context.Context, cfg Config, logger *applog.Logger) (*Client, error) {
	creds, err := credentials(cfg)
	if err != nil {
		return nil, err
	}
	jwtCfg, err := oauthgoogle.JWTConfigFromJSON(creds, gsheet.SpreadsheetsScope)
	if err != nil {
		return nil, fmt.Errorf("parse service account credentials: %w", err)
	}
	// The token source and the API calls share the pooled transport.
	authCtx := context.WithValue(ctx, oauth2.HTTPClient, newHTTPClientWithPooling())
	svc, err := gsheet.NewService(ctx, goption.WithHTTPClient(jwtCfg.Client(authCtx)))
	if err != nil {
		return nil, fmt.Errorf("create sheets service: %w", err)
	}
	return NewWithService(svc, cfg, logger)
}

// NewWithService wraps an existing service, for callers that build their own
// transport or endpoint.
func NewWithService(svc *gsheet.Service, cfg Config, logger *applog.Logger) (*Client, error) {
	if svc == nil {
		return nil, errors.New("sheets service not initialized")
	}
	if strings.TrimSpace(cfg.SpreadsheetID) == "" {
		return nil, errors.New("missing spreadsheet id")
	}
	if logger == nil {
		logger = applog.New(applog.DefaultConfig())
	}
	c := &Client{
		svc:           svc,
		spreadsheetID: strings.TrimSpace(cfg.SpreadsheetID),
		summarySheet:  strings.TrimSpace(cfg.SummarySheet),
		minutesSheet:  strings.TrimSpace(cfg.MinutesSheet),
		logger:        logger.WithComponent(applog.ComponentSheets),
	}
	if c.summarySheet == "" {
		c.summarySheet = DefaultSummarySheet
	}
	if c.minutesSheet == "" {
		c.minutesSheet = DefaultMinutesSheet
	}
	return c, nil
}

func credentials(cfg Config) ([]byte, error) {
	switch {
	case strings.TrimSpace(cfg.CredentialsJSON) != "":
		return []byte(cfg.CredentialsJSON), nil
	case strings.TrimSpace(cfg.CredentialsFile) != "":
		b, err := os.ReadFile(cfg.CredentialsFile)
		if err != nil {
			return nil, fmt.Errorf("read service account file: %w", err)
		}
		return b, nil
	}
	return nil, errors.New("missing service account credentials (set GOOGLE_SERVICE_ACCOUNT_JSON or GOOGLE_SERVICE_ACCOUNT_FILE)")
}

// newHTTPClientWithPooling keeps connections to the Sheets API alive between
// exports and bounds every call.
func newHTTPClientWithPooling() *http.Client {
	dialer := &net.Dialer{
		Timeout:   30 * time.Second,
		KeepAlive: 30 * time.Second,
	}
	transport := &http.Transport{
		DialContext:           dialer.DialContext,
		MaxIdleConns:          20,
		MaxIdleConnsPerHost:   5,
		IdleConnTimeout:       90 * time.Second,
		TLSHandshakeTimeout:   10 * time.Second,
		ResponseHeaderTimeout: 30 * time.Second,
		ExpectContinueTimeout: time.Second,
		ForceAttemptHTTP2:     true,
	}
	return &http.Client{Transport: transport, Timeout: 60 * time.Second}
}

// ExportSummary replaces the summary tab with s. The tab is cleared first so
// rows from a longer previous export do not linger.
func (c *Client) ExportSummary(ctx context.Context, s Summary) error {
	rows := summaryRows(s)
	clearRange := c.summarySheet + "!A:E"
	if _, err := c.svc.Spreadsheets.Values.Clear(c.spreadsheetID, clearRange, &gsheet.ClearValuesRequest{}).
		Context(ctx).Do(); err != nil {
		return fmt.Errorf("clear %s: %w", clearRange, err)
	}

	writeRange := fmt.Sprintf("%s!A1:E%d", c.summarySheet, len(rows))
	if _, err := c.svc.Spreadsheets.Values.Update(c.spreadsheetID, writeRange, &gsheet.ValueRange{Values: rows}).
		ValueInputOption("RAW").Context(ctx).Do(); err != nil {
		return fmt.Errorf("update %s: %w", writeRange, err)
	}

	c.logger.InfoContext(ctx, "Finance summary exported",
		"sheet", c.summarySheet,
		applog.FieldCount, len(rows)-1,
		applog.FieldOperation, applog.OpExport)
	return nil
}

// AppendMinutesLog adds one line to the minutes log tab.
func (c *Client) AppendMinutesLog(ctx context.Context, e MinutesLogEntry) error {
	rng := c.minutesSheet + "!A:F"
	vr := &gsheet.ValueRange{Values: [][]any{minutesRow(e)}}
	if _, err := c.svc.Spreadsheets.Values.Append(c.spreadsheetID, rng, vr).
		ValueInputOption("RAW").
		InsertDataOption("INSERT_ROWS").
		Context(ctx).Do(); err != nil {
		return fmt.Errorf("append %s: %w", rng, err)
	}
	c.logger.InfoContext(ctx, "Minutes upload logged",
		applog.FieldActivityID, e.Activity.ID,
		applog.FieldFileName, e.Minutes.FileName)
	return nil
}
