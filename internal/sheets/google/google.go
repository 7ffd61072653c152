package google

import (
	"context"
	"errors"
	"fmt"
	"os"
	"strings"

	goption "google.golang.org/api/option"
	gsheet "google.golang.org/api/sheets/v4"

	"fintrack/internal/log"
	ports "fintrack/internal/sheets"
)

// Config selects the spreadsheet and credentials. CredentialsJSON wins over
// CredentialsFile.
type Config struct {
	SpreadsheetID   string
	SheetName       string
	CredentialsJSON string
	CredentialsFile string
}

// Ledger appends entries to one sheet of a spreadsheet.
type Ledger struct {
	svc           *gsheet.Service
	spreadsheetID string
	sheetName     string
	logger        *log.Logger
}

var _ ports.LedgerWriter = (*Ledger)(nil)

// New creates a ledger authenticated with service-account credentials.
func New(ctx context.Context, cfg Config, logger *log.Logger) (*Ledger, error) {
	if strings.TrimSpace(cfg.SpreadsheetID) == "" {
		return nil, errors.New("missing spreadsheet id")
	}

	credentialsJSON, err := credentials(cfg)
	if err != nil {
		return nil, err
	}

	svc, err := gsheet.NewService(ctx,
		goption.WithCredentialsJSON(credentialsJSON),
		goption.WithScopes(gsheet.SpreadsheetsScope))
	if err != nil {
		return nil, fmt.Errorf("create sheets service: %w", err)
	}
	return NewWithService(svc, cfg.SpreadsheetID, cfg.SheetName, logger), nil
}

// NewWithService wraps an existing service. Tests point it at a fake
// endpoint.
func NewWithService(svc *gsheet.Service, spreadsheetID, sheetName string, logger *log.Logger) *Ledger {
	if logger == nil {
		logger = log.Discard()
	}
	if sheetName == "" {
		sheetName = "Ledger"
	}
	return &Ledger{
		svc:           svc,
		spreadsheetID: spreadsheetID,
		sheetName:     sheetName,
		logger:        logger.WithComponent(log.ComponentSheets),
	}
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
	default:
		return nil, errors.New("missing service account credentials (set GOOGLE_SERVICE_ACCOUNT_JSON or GOOGLE_SERVICE_ACCOUNT_FILE)")
	}
}

// EnsureHeader writes the header row when the sheet's first row is not
// already the ledger header.
func (l *Ledger) EnsureHeader(ctx context.Context) error {
	if l.svc == nil {
		return errors.New("sheets service not initialized")
	}
	resp, err := l.svc.Spreadsheets.Values.Get(l.spreadsheetID, columnRange(l.sheetName, 1)).Context(ctx).Do()
	if err != nil {
		return fmt.Errorf("read header: %w", err)
	}
	if hasHeader(resp.Values) {
		return nil
	}

	vr := &gsheet.ValueRange{Values: [][]any{headerRow()}}
	_, err = l.svc.Spreadsheets.Values.Update(l.spreadsheetID, columnRange(l.sheetName, 1), vr).
		ValueInputOption("RAW").Context(ctx).Do()
	if err != nil {
		return fmt.Errorf("write header: %w", err)
	}
	l.logger.InfoContext(ctx, "Wrote ledger header", "sheet", l.sheetName)
	return nil
}

// AppendEntry appends e below the last row and returns the updated range.
func (l *Ledger) AppendEntry(ctx context.Context, e ports.Entry) (string, error) {
	if l.svc == nil {
		return "", errors.New("sheets service not initialized")
	}

	vr := &gsheet.ValueRange{Values: [][]any{entryRow(e)}}
	resp, err := l.svc.Spreadsheets.Values.Append(l.spreadsheetID, columnRange(l.sheetName, 0), vr).
		ValueInputOption("USER_ENTERED").
		InsertDataOption("INSERT_ROWS").
		Context(ctx).Do()
	if err != nil {
		return "", fmt.Errorf("append ledger row: %w", err)
	}

	ref := ""
	if resp.Updates != nil {
		ref = resp.Updates.UpdatedRange
	}
	l.logger.DebugContext(ctx, "Appended ledger row",
		log.FieldKind, e.Kind,
		log.FieldRecordID, e.RecordID.String(),
		"range", ref)
	return ref, nil
}
