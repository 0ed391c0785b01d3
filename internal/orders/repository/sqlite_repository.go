package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/fjod/storefront/internal/domain"
	"github.com/golang-migrate/migrate/v4"
	"github.com/golang-migrate/migrate/v4/database/sqlite"
	_ "github.com/golang-migrate/migrate/v4/source/file"
	_ "modernc.org/sqlite"
)

type SQLiteRepository struct {
	db *sql.DB
}

func NewSQLiteRepository(dbPath string) (*SQLiteRepository, error) {
	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	// one writer; also keeps ":memory:" databases on a single connection
	db.SetMaxOpenConns(1)
	return &SQLiteRepository{db: db}, nil
}

func (r *SQLiteRepository) RunMigrations(cred *Credentials) error {
	driver, err := sqlite.WithInstance(r.db, &sqlite.Config{})
	if err != nil {
		return fmt.Errorf("could not create migration driver: %w", err)
	}

	m, err := migrate.NewWithDatabaseInstance(
		fmt.Sprintf("file://%s", cred.MigrationsDirPath),
		"sqlite",
		driver,
	)
	if err != nil {
		return fmt.Errorf("could not create migrate instance: %w", err)
	}

	if err := m.Up(); err != nil && !errors.Is(err, migrate.ErrNoChange) {
		return fmt.Errorf("could not run migrations: %w", err)
	}

	return nil
}

func (r *SQLiteRepository) CreateOrder(ctx context.Context, order *domain.Order) error {
	row, err := encodeOrder(order)
	if err != nil {
		return err
	}

	query := `
		INSERT INTO orders (order_id, customer, shipping, items, totals, status, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?)
	`
	_, err = r.db.ExecContext(ctx, query,
		row.OrderID,
		string(row.Customer),
		string(row.Shipping),
		string(row.Items),
		string(row.Totals),
		row.Status,
		order.CreatedAt.UTC().Format(time.RFC3339Nano),
	)
	if err != nil {
		if strings.Contains(err.Error(), "UNIQUE constraint failed") {
			return ErrDuplicateOrder
		}
		return fmt.Errorf("insert order: %w", err)
	}
	return nil
}

func (r *SQLiteRepository) GetOrderByOrderID(ctx context.Context, orderID string) (*domain.Order, error) {
	query := `
		SELECT order_id, customer, shipping, items, totals, status, created_at
		FROM orders
		WHERE order_id = ?
	`

	var row orderRow
	var customer, shipping, items, totals, createdAt string
	err := r.db.QueryRowContext(ctx, query, orderID).Scan(
		&row.OrderID,
		&customer,
		&shipping,
		&items,
		&totals,
		&row.Status,
		&createdAt,
	)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrOrderNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("query order by id: %w", err)
	}
	row.Customer, row.Shipping, row.Items, row.Totals = []byte(customer), []byte(shipping), []byte(items), []byte(totals)

	var order domain.Order
	if err := row.decode(&order); err != nil {
		return nil, err
	}
	order.CreatedAt, err = time.Parse(time.RFC3339Nano, createdAt)
	if err != nil {
		return nil, fmt.Errorf("parse created_at: %w", err)
	}
	return &order, nil
}

func (r *SQLiteRepository) Close() error {
	return r.db.Close()
}
