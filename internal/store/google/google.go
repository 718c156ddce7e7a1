// Package google is the Google Sheets TableStore backend. The whole ledger
// lives on one worksheet with a header row; loads read every row, writes
// clear and rewrite the sheet, mirroring how the spreadsheet is shared with
// humans who may edit it directly.
package google

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"strings"

	"github.com/google/uuid"
	goption "google.golang.org/api/option"
	gsheet "google.golang.org/api/sheets/v4"

	"pettycash/internal/core"
	"pettycash/internal/store"
)

type Client struct {
	svc           *gsheet.Service
	spreadsheetID string
	worksheet     string
}

var _ store.TableStore = (*Client)(nil)

// NewFromEnv creates a Sheets client from environment variables.
// Required: GOOGLE_SPREADSHEET_ID. Optional: GOOGLE_WORKSHEET_NAME (default
// "data"), credentials via GOOGLE_SERVICE_ACCOUNT_JSON,
// GOOGLE_SERVICE_ACCOUNT_FILE or GOOGLE_APPLICATION_CREDENTIALS.
func NewFromEnv(ctx context.Context) (*Client, error) {
	spreadsheetID := strings.TrimSpace(os.Getenv("GOOGLE_SPREADSHEET_ID"))
	if spreadsheetID == "" {
		return nil, errors.New("missing GOOGLE_SPREADSHEET_ID")
	}
	worksheet := strings.TrimSpace(os.Getenv("GOOGLE_WORKSHEET_NAME"))
	if worksheet == "" {
		worksheet = "data"
	}

	svc, err := newSheetsService(ctx)
	if err != nil {
		return nil, fmt.Errorf("sheets service: %w", err)
	}

	c := &Client{svc: svc, spreadsheetID: spreadsheetID, worksheet: worksheet}
	if err := c.ensureWorksheet(ctx); err != nil {
		return nil, fmt.Errorf("ensure worksheet: %w", err)
	}
	return c, nil
}

func newSheetsService(ctx context.Context) (*gsheet.Service, error) {
	serviceAccountJSON := strings.TrimSpace(os.Getenv("GOOGLE_SERVICE_ACCOUNT_JSON"))
	serviceAccountFile := strings.TrimSpace(os.Getenv("GOOGLE_SERVICE_ACCOUNT_FILE"))
	if serviceAccountJSON == "" && serviceAccountFile == "" {
		serviceAccountFile = strings.TrimSpace(os.Getenv("GOOGLE_APPLICATION_CREDENTIALS"))
	}

	var credentialsJSON []byte
	var err error
	switch {
	case serviceAccountJSON != "":
		credentialsJSON = []byte(serviceAccountJSON)
	case serviceAccountFile != "":
		credentialsJSON, err = os.ReadFile(serviceAccountFile)
		if err != nil {
			return nil, fmt.Errorf("read service account file: %w", err)
		}
	default:
		return nil, errors.New("missing service account credentials (set GOOGLE_SERVICE_ACCOUNT_JSON, GOOGLE_SERVICE_ACCOUNT_FILE, or GOOGLE_APPLICATION_CREDENTIALS)")
	}

	service, err := gsheet.NewService(ctx,
		goption.WithCredentialsJSON(credentialsJSON),
		goption.WithScopes(gsheet.SpreadsheetsScope))
	if err != nil {
		return nil, fmt.Errorf("create sheets service: %w", err)
	}
	return service, nil
}

// ensureWorksheet creates the data worksheet with the canonical header when
// it does not exist yet.
func (c *Client) ensureWorksheet(ctx context.Context) error {
	meta, err := c.svc.Spreadsheets.Get(c.spreadsheetID).Fields("sheets.properties.title").Context(ctx).Do()
	if err != nil {
		return fmt.Errorf("%w: get spreadsheet: %v", store.ErrUnavailable, err)
	}
	for _, sh := range meta.Sheets {
		if sh.Properties != nil && sh.Properties.Title == c.worksheet {
			return nil
		}
	}

	req := &gsheet.BatchUpdateSpreadsheetRequest{Requests: []*gsheet.Request{{
		AddSheet: &gsheet.AddSheetRequest{Properties: &gsheet.SheetProperties{Title: c.worksheet}},
	}}}
	if _, err := c.svc.Spreadsheets.BatchUpdate(c.spreadsheetID, req).Context(ctx).Do(); err != nil {
		return fmt.Errorf("%w: add worksheet %s: %v", store.ErrUnavailable, c.worksheet, err)
	}

	header := &gsheet.ValueRange{Values: [][]any{headerCells()}}
	rng := fmt.Sprintf("%s!A1", c.worksheet)
	if _, err := c.svc.Spreadsheets.Values.Update(c.spreadsheetID, rng, header).
		ValueInputOption("USER_ENTERED").Context(ctx).Do(); err != nil {
		return fmt.Errorf("%w: write header: %v", store.ErrUnavailable, err)
	}
	slog.InfoContext(ctx, "Created data worksheet", "worksheet", c.worksheet)
	return nil
}

func (c *Client) LoadAll(ctx context.Context) (store.Snapshot, error) {
	values, err := c.readAll(ctx)
	if err != nil {
		return store.Snapshot{}, err
	}
	snap := store.Snapshot{Version: hashValues(values)}
	for i, row := range values {
		if i == 0 {
			continue // header
		}
		cells := toStrings(row)
		if allBlank(cells) {
			continue
		}
		t := store.RowFromStrings(cells)
		if t.ID == "" {
			// Legacy row written before IDs existed; the assigned ID
			// persists on the next full overwrite.
			t.ID = uuid.NewString()
		}
		snap.Rows = append(snap.Rows, t)
	}
	return snap, nil
}

func (c *Client) OverwriteAll(ctx context.Context, snap store.Snapshot) error {
	// Re-read and compare before clearing; the content hash is the version
	// token, so any concurrent edit since LoadAll shows up here.
	values, err := c.readAll(ctx)
	if err != nil {
		return err
	}
	if current := hashValues(values); current != snap.Version {
		return fmt.Errorf("sheet changed since load: %w", store.ErrVersionMismatch)
	}

	clearRng := fmt.Sprintf("%s!A:H", c.worksheet)
	if _, err := c.svc.Spreadsheets.Values.Clear(c.spreadsheetID, clearRng, &gsheet.ClearValuesRequest{}).
		Context(ctx).Do(); err != nil {
		return fmt.Errorf("%w: clear %s: %v", store.ErrUnavailable, clearRng, err)
	}

	out := [][]any{headerCells()}
	for _, t := range snap.Rows {
		if t.ID == "" {
			t.ID = uuid.NewString()
		}
		out = append(out, rowCells(t.Normalize()))
	}
	vr := &gsheet.ValueRange{Values: out}
	rng := fmt.Sprintf("%s!A1", c.worksheet)
	if _, err := c.svc.Spreadsheets.Values.Update(c.spreadsheetID, rng, vr).
		ValueInputOption("USER_ENTERED").Context(ctx).Do(); err != nil {
		return fmt.Errorf("%w: write %d rows: %v", store.ErrUnavailable, len(snap.Rows), err)
	}

	slog.InfoContext(ctx, "Sheet overwritten", "worksheet", c.worksheet, "rows", len(snap.Rows))
	return nil
}

func (c *Client) AppendRow(ctx context.Context, t core.Transaction) error {
	if t.ID == "" {
		t.ID = uuid.NewString()
	}
	vr := &gsheet.ValueRange{Values: [][]any{rowCells(t.Normalize())}}
	rng := fmt.Sprintf("%s!A:H", c.worksheet)
	if _, err := c.svc.Spreadsheets.Values.Append(c.spreadsheetID, rng, vr).
		ValueInputOption("USER_ENTERED").InsertDataOption("INSERT_ROWS").
		Context(ctx).Do(); err != nil {
		return fmt.Errorf("%w: append row: %v", store.ErrUnavailable, err)
	}
	return nil
}

func (c *Client) readAll(ctx context.Context) ([][]any, error) {
	rng := fmt.Sprintf("%s!A:H", c.worksheet)
	resp, err := c.svc.Spreadsheets.Values.Get(c.spreadsheetID, rng).Context(ctx).Do()
	if err != nil {
		return nil, fmt.Errorf("%w: read %s: %v", store.ErrUnavailable, rng, err)
	}
	return resp.Values, nil
}

func headerCells() []any {
	out := make([]any, len(store.Columns))
	for i, c := range store.Columns {
		out[i] = c
	}
	return out
}

func rowCells(t core.Transaction) []any {
	cells := store.RowToStrings(t)
	out := make([]any, len(cells))
	for i, c := range cells {
		out[i] = c
	}
	return out
}

// hashValues derives the snapshot version token from the sheet contents.
func hashValues(values [][]any) string {
	h := sha256.New()
	for _, row := range values {
		for _, cell := range row {
			fmt.Fprintf(h, "%v\x1f", cell)
		}
		h.Write([]byte{'\n'})
	}
	return hex.EncodeToString(h.Sum(nil))
}

func toStrings(in []any) []string {
	out := make([]string, len(in))
	for i, v := range in {
		out[i] = strings.TrimSpace(fmt.Sprint(v))
	}
	return out
}

func allBlank(cells []string) bool {
	for _, c := range cells {
		if c != "" {
			return false
		}
	}
	return true
}
