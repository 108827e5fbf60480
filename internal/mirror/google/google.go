// Package google mirrors collections into a Google Spreadsheet, one sheet
// tab per collection. Each delivery rewrites the tab with the full snapshot.
package google

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"strings"

	goption "google.golang.org/api/option"
	gsheet "google.golang.org/api/sheets/v4"

	"fintrack/internal/core"
)

type Client struct {
	svc           *gsheet.Service
	spreadsheetID string
}

// Config carries the spreadsheet target and service-account credentials.
// Exactly one of CredentialsJSON / CredentialsFile is required; an empty
// file path falls back to GOOGLE_APPLICATION_CREDENTIALS.
type Config struct {
	SpreadsheetID   string
	CredentialsJSON string
	CredentialsFile string
}

func New(ctx context.Context, cfg Config) (*Client, error) {
	if strings.TrimSpace(cfg.SpreadsheetID) == "" {
		return nil, errors.New("missing spreadsheet id")
	}

	opts, err := credentialOptions(cfg)
	if err != nil {
		return nil, err
	}
	svc, err := gsheet.NewService(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("sheets service: %w", err)
	}

	return &Client{svc: svc, spreadsheetID: cfg.SpreadsheetID}, nil
}

func credentialOptions(cfg Config) ([]goption.ClientOption, error) {
	scope := goption.WithScopes(gsheet.SpreadsheetsScope)

	switch {
	case strings.TrimSpace(cfg.CredentialsJSON) != "":
		return []goption.ClientOption{
			goption.WithCredentialsJSON([]byte(cfg.CredentialsJSON)), scope,
		}, nil
	case strings.TrimSpace(cfg.CredentialsFile) != "":
		if _, err := os.Stat(cfg.CredentialsFile); err != nil {
			return nil, fmt.Errorf("credentials file: %w", err)
		}
		return []goption.ClientOption{
			goption.WithCredentialsFile(cfg.CredentialsFile), scope,
		}, nil
	default:
		// Application Default Credentials.
		return []goption.ClientOption{scope}, nil
	}
}

// Sync clears the collection's tab and rewrites it from the snapshot.
func (c *Client) Sync(ctx context.Context, collection string, data any) error {
	values, err := rowsFor(collection, data)
	if err != nil {
		return err
	}

	clearRange := fmt.Sprintf("%s!A:Z", collection)
	if _, err := c.svc.Spreadsheets.Values.
		Clear(c.spreadsheetID, clearRange, &gsheet.ClearValuesRequest{}).
		Context(ctx).Do(); err != nil {
		return fmt.Errorf("clear %s: %w", collection, err)
	}

	writeRange := fmt.Sprintf("%s!A1", collection)
	_, err = c.svc.Spreadsheets.Values.
		Update(c.spreadsheetID, writeRange, &gsheet.ValueRange{Values: values}).
		ValueInputOption("RAW").
		Context(ctx).Do()
	if err != nil {
		return fmt.Errorf("write %s: %w", collection, err)
	}

	slog.DebugContext(ctx, "Collection mirrored to spreadsheet",
		"collection", collection, "rows", len(values)-1)
	return nil
}

// Fetch reads the collection's tab back as a JSON array of rows.
func (c *Client) Fetch(ctx context.Context, collection string) (json.RawMessage, error) {
	readRange := fmt.Sprintf("%s!A:Z", collection)
	resp, err := c.svc.Spreadsheets.Values.
		Get(c.spreadsheetID, readRange).
		Context(ctx).Do()
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", collection, err)
	}
	raw, err := json.Marshal(resp.Values)
	if err != nil {
		return nil, fmt.Errorf("marshal rows: %w", err)
	}
	return raw, nil
}

// rowsFor flattens a typed collection snapshot into sheet rows with a header.
func rowsFor(collection string, data any) ([][]any, error) {
	switch items := data.(type) {
	case []core.AccountType:
		rows := [][]any{{"id", "name", "icon", "createdAt"}}
		for _, t := range items {
			rows = append(rows, []any{t.ID, t.Name, t.Icon, t.CreatedAt.Format(timeLayout)})
		}
		return rows, nil
	case []core.Account:
		rows := [][]any{{"id", "name", "typeId", "balance", "creditLimit", "isCredit", "createdAt"}}
		for _, a := range items {
			limit := ""
			if a.CreditLimit != nil {
				limit = a.CreditLimit.String()
			}
			rows = append(rows, []any{a.ID, a.Name, a.TypeID, a.Balance.String(), limit, a.IsCredit, a.CreatedAt.Format(timeLayout)})
		}
		return rows, nil
	case []core.SavingsGoal:
		rows := [][]any{{"id", "name", "targetAmount", "currentAmount", "accountId", "targetDate", "createdAt"}}
		for _, g := range items {
			rows = append(rows, []any{g.ID, g.Name, g.TargetAmount.String(), g.CurrentAmount.String(), g.AccountID, g.TargetDate, g.CreatedAt.Format(timeLayout)})
		}
		return rows, nil
	case []core.Transaction:
		rows := [][]any{{"id", "type", "amount", "description", "category", "accountId", "date", "isDeferred", "deferredMonth", "createdAt"}}
		for _, t := range items {
			rows = append(rows, []any{t.ID, string(t.Type), t.Amount.String(), t.Description, t.Category, t.AccountID, t.Date, t.IsDeferred, t.DeferredMonth, t.CreatedAt.Format(timeLayout)})
		}
		return rows, nil
	default:
		return nil, fmt.Errorf("unsupported collection %q (%T)", collection, data)
	}
}

const timeLayout = "2006-01-02T15:04:05Z07:00"
