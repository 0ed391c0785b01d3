package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/fjod/storefront/internal/domain"
	"github.com/golang-migrate/migrate/v4"
	"github.com/golang-migrate/migrate/v4/database/postgres"
	_ "github.com/golang-migrate/migrate/v4/source/file"
	"github.com/lib/pq"
)

type PostgresRepository struct {
	db *sql.DB
}

func NewPostgresRepository(cred *Credentials) (*PostgresRepository, error) {
	psqlconn := fmt.Sprintf(
		"host=%s port=%d user=%s password=%s dbname=%s sslmode=disable",
		cred.Host,
		cred.Port,
		cred.User,
		cred.Password,
		cred.DBName)

	db, err := sql.Open("postgres", psqlconn)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	if e2 := db.Ping(); e2 != nil {
		db.Close()
		return nil, fmt.Errorf("failed to ping database: %w", e2)
	}

	db.SetMaxOpenConns(100)
	db.SetMaxIdleConns(10)
	return &PostgresRepository{db: db}, nil
}

func (r *PostgresRepository) RunMigrations(cred *Credentials) error {
	driver, err := postgres.WithInstance(r.db, &postgres.Config{
		MigrationsTable: "orders_schema_migrations",
	})
	if err != nil {
		return fmt.Errorf("could not create migration driver: %w", err)
	}

	m, err := migrate.NewWithDatabaseInstance(
		fmt.Sprintf("file://%s", cred.MigrationsDirPath),
		"postgres",
		driver,
	)
	if err != nil {
		return fmt.Errorf("could not create migrate instance: %w", err)
	}

	if e2 := m.Up(); e2 != nil && !errors.Is(e2, migrate.ErrNoChange) {
		return fmt.Errorf("could not run migrations: %w", e2)
	}

	return nil
}

func (r *PostgresRepository) CreateOrder(ctx context.Context, order *domain.Order) error {
	row, err := encodeOrder(order)
	if err != nil {
		return err
	}

	query := `INSERT INTO orders (order_id, customer, shipping, items, totals, status, created_at)
	          VALUES ($1, $2, $3, $4, $5, $6, $7)`

	_, insertErr := r.db.ExecContext(ctx, query,
		row.OrderID,
		row.Customer,
		row.Shipping,
		row.Items,
		row.Totals,
		row.Status,
		order.CreatedAt)

	if insertErr != nil {
		var pqErr *pq.Error
		if errors.As(insertErr, &pqErr) && pqErr.Code == "23505" {
			return ErrDuplicateOrder
		}
		return fmt.Errorf("insert order: %w", insertErr)
	}
	return nil
}

func (r *PostgresRepository) GetOrderByOrderID(ctx context.Context, orderID string) (*domain.Order, error) {
	query := `SELECT order_id, customer, shipping, items, totals, status, created_at
	          FROM orders WHERE order_id = $1`

	var row orderRow
	var order domain.Order
	err := r.db.QueryRowContext(ctx, query, orderID).Scan(
		&row.OrderID,
		&row.Customer,
		&row.Shipping,
		&row.Items,
		&row.Totals,
		&row.Status,
		&order.CreatedAt,
	)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrOrderNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("query order by id: %w", err)
	}

	if err := row.decode(&order); err != nil {
		return nil, err
	}
	order.CreatedAt = order.CreatedAt.UTC()
	return &order, nil
}

func (r *PostgresRepository) Close() error {
	return r.db.Close()
}
