// Package clickhouse provides ClickHouse-backed storage for cloud
// billing export rows. Columnar storage fits the workload: billing
// exports are high-cardinality append-only line items, and the
// forecaster only ever reads daily aggregates over a date range.
package clickhouse

import (
	"context"
	"fmt"
	"time"

	"github.com/ClickHouse/clickhouse-go/v2"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"finops-forecast/billing"
)

// BillingRecord is one usage line item from a billing export.
type BillingRecord struct {
	ID          uuid.UUID       `ch:"id"`
	ProjectID   string          `ch:"project_id"`
	ServiceName string          `ch:"service_name"`
	SKU         string          `ch:"sku"`
	UsageStart  time.Time       `ch:"usage_start"`
	Cost        decimal.Decimal `ch:"cost"`
	Currency    string          `ch:"currency"`
	ExportedAt  time.Time       `ch:"exported_at"`
}

// Config holds ClickHouse connection configuration.
type Config struct {
	Host     string
	Port     int
	Database string
	Username string
	Password string
	Debug    bool
}

// DefaultConfig returns default development configuration.
func DefaultConfig() *Config {
	return &Config{
		Host:     "localhost",
		Port:     9000,
		Database: "finops",
		Username: "default",
		Password: "",
		Debug:    false,
	}
}

// Store implements billing.Source using ClickHouse.
type Store struct {
	conn clickhouse.Conn
	cfg  *Config
}

var _ billing.Source = (*Store)(nil)

// NewStore creates a new ClickHouse billing store.
func NewStore(cfg *Config) (*Store, error) {
	conn, err := clickhouse.Open(&clickhouse.Options{
		Addr: []string{fmt.Sprintf("%s:%d", cfg.Host, cfg.Port)},
		Auth: clickhouse.Auth{
			Database: cfg.Database,
			Username: cfg.Username,
			Password: cfg.Password,
		},
		Debug: cfg.Debug,
		Settings: clickhouse.Settings{
			"max_execution_time": 60,
		},
		Compression: &clickhouse.Compression{
			Method: clickhouse.CompressionLZ4,
		},
	})
	if err != nil {
		return nil, fmt.Errorf("failed to connect to ClickHouse: %w", err)
	}

	return &Store{conn: conn, cfg: cfg}, nil
}

// Ping checks database connectivity.
func (s *Store) Ping(ctx context.Context) error {
	return s.conn.Ping(ctx)
}

// Close closes the database connection.
func (s *Store) Close() error {
	return s.conn.Close()
}

// InsertRecords batches billing export line items into billing_records.
func (s *Store) InsertRecords(ctx context.Context, records []*BillingRecord) error {
	if len(records) == 0 {
		return nil
	}

	batch, err := s.conn.PrepareBatch(ctx, `
		INSERT INTO billing_records (
			id, project_id, service_name, sku, usage_start, cost, currency, exported_at
		)
	`)
	if err != nil {
		return fmt.Errorf("failed to prepare batch: %w", err)
	}

	for _, rec := range records {
		if rec.ID == uuid.Nil {
			rec.ID = uuid.New()
		}
		if err := batch.Append(
			rec.ID, rec.ProjectID, rec.ServiceName, rec.SKU,
			rec.UsageStart, rec.Cost, rec.Currency, rec.ExportedAt,
		); err != nil {
			return fmt.Errorf("failed to append to batch: %w", err)
		}
	}

	return batch.Send()
}

// QueryDailyCosts aggregates spend per calendar day over the window,
// optionally filtered by project and service. One row per day with data;
// gap-filling is the loader's job.
func (s *Store) QueryDailyCosts(ctx context.Context, q billing.CostQuery) ([]billing.DailyCost, error) {
	query := `
		SELECT toDate(usage_start) AS day, sum(cost) AS total_cost
		FROM billing_records
		WHERE usage_start >= ? AND usage_start < ?
	`
	args := []any{q.Start, q.End.AddDate(0, 0, 1)}

	if q.ProjectID != "" {
		query += " AND project_id = ?"
		args = append(args, q.ProjectID)
	}
	if q.ServiceName != "" {
		query += " AND service_name = ?"
		args = append(args, q.ServiceName)
	}
	query += " GROUP BY day ORDER BY day"

	rows, err := s.conn.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query daily costs: %w", err)
	}
	defer rows.Close()

	var costs []billing.DailyCost
	for rows.Next() {
		var day time.Time
		var total decimal.Decimal
		if err := rows.Scan(&day, &total); err != nil {
			return nil, fmt.Errorf("failed to scan daily cost: %w", err)
		}
		costs = append(costs, billing.DailyCost{Date: day, TotalCost: total})
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to read daily costs: %w", err)
	}
	return costs, nil
}
