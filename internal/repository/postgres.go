package repository

import (
	"context"
	"embed"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/jackc/pgerrcode"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/jackc/pgx/v5/stdlib"
	"github.com/pressly/goose/v3"

	"github.com/mmeshcher/billdesk/internal/model"
)

//go:embed migrations/*.sql
var migrationsFS embed.FS

// PostgresRepository предоставляет доступ к архиву счетов, меню и операторам в PostgreSQL.
type PostgresRepository struct {
	pool *pgxpool.Pool
}

// NewPostgresRepository создаёт новый репозиторий и инициализирует схему БД через миграции.
func NewPostgresRepository(dsn string) (*PostgresRepository, error) {
	cfg, err := pgxpool.ParseConfig(dsn)
	if err != nil {
		return nil, fmt.Errorf("parse pool config: %w", err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	pool, err := pgxpool.NewWithConfig(ctx, cfg)
	if err != nil {
		return nil, fmt.Errorf("create pool: %w", err)
	}

	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}

	r := &PostgresRepository{pool: pool}

	if err := r.runMigrations(ctx); err != nil {
		pool.Close()
		return nil, err
	}

	return r, nil
}

func (r *PostgresRepository) runMigrations(ctx context.Context) error {
	db := stdlib.OpenDBFromPool(r.pool)
	defer db.Close()

	goose.SetBaseFS(migrationsFS)

	if err := goose.SetDialect("postgres"); err != nil {
		return fmt.Errorf("set dialect: %w", err)
	}

	if err := goose.UpContext(ctx, db, "migrations"); err != nil {
		return fmt.Errorf("run migrations: %w", err)
	}

	return nil
}

// retryDelays задаёт паузы между повторами запроса.
var retryDelays = []time.Duration{100 * time.Millisecond, 300 * time.Millisecond, 500 * time.Millisecond}

// withRetry повторяет fn, пока retryable считает ошибку временной.
func (r *PostgresRepository) withRetry(ctx context.Context, retryable func(error) bool, fn func() error) error {
	var err error

	for i := 0; i <= len(retryDelays); i++ {
		err = fn()
		if err == nil {
			return nil
		}

		if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
			return err
		}

		if !retryable(err) || i == len(retryDelays) {
			break
		}

		timer := time.NewTimer(retryDelays[i])
		select {
		case <-ctx.Done():
			timer.Stop()
			return ctx.Err()
		case <-timer.C:
		}
	}
	return err
}

// isTxConflict сообщает о конфликте сериализации или дедлоке. Такая транзакция
// откачена сервером, поэтому запись можно повторить.
func isTxConflict(err error) bool {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		return pgErr.Code == pgerrcode.SerializationFailure || pgErr.Code == pgerrcode.DeadlockDetected
	}
	return false
}

// isReadRetryable допускает также обрыв соединения: повтор чтения ничего не меняет.
func isReadRetryable(err error) bool {
	return isTxConflict(err) || isConnectionError(err)
}

func isConnectionError(err error) bool {
	// Упрощенная проверка на ошибки соединения
	return strings.Contains(err.Error(), "connection refused") ||
		strings.Contains(err.Error(), "broken pipe") ||
		strings.Contains(err.Error(), "connection reset by peer")
}

// Close закрывает пул соединений с БД.
func (r *PostgresRepository) Close() error {
	r.pool.Close()
	return nil
}

// Ping проверяет доступность БД.
func (r *PostgresRepository) Ping(ctx context.Context) error {
	if err := r.pool.Ping(ctx); err != nil {
		return fmt.Errorf("%w: %w", ErrStorageUnavailable, err)
	}
	return nil
}

// AppendBill добавляет счёт в архив. Идентификатор и время создания назначает БД.
func (r *PostgresRepository) AppendBill(ctx context.Context, clientName string, items []model.LineItem, grandTotal model.Amount) (*model.BillRecord, error) {
	data, err := json.Marshal(items)
	if err != nil {
		return nil, fmt.Errorf("marshal bill items: %w", err)
	}

	rec := model.BillRecord{
		ClientName: clientName,
		Items:      copyItems(items),
		GrandTotal: grandTotal,
	}

	// При обрыве соединения запись могла быть уже зафиксирована, поэтому повтор только при конфликте.
	err = r.withRetry(ctx, isTxConflict, func() error {
		return r.pool.QueryRow(ctx,
			`INSERT INTO bills (client_name, items, grand_total) VALUES ($1, $2, $3) RETURNING id, created_at`,
			clientName, data, grandTotal.String(),
		).Scan(&rec.ID, &rec.CreatedAt)
	})
	if err != nil {
		return nil, fmt.Errorf("%w: insert bill: %w", ErrStorageUnavailable, err)
	}

	rec.CreatedAt = rec.CreatedAt.UTC()
	return &rec, nil
}

// ListBills возвращает все счета архива, начиная с самых новых.
func (r *PostgresRepository) ListBills(ctx context.Context) ([]model.BillRecord, error) {
	var res []model.BillRecord

	err := r.withRetry(ctx, isReadRetryable, func() error {
		res = nil

		rows, err := r.pool.Query(ctx,
			`SELECT id, client_name, items, grand_total::text, created_at
			 FROM bills
			 ORDER BY created_at DESC, id DESC`,
		)
		if err != nil {
			return fmt.Errorf("%w: select bills: %w", ErrStorageUnavailable, err)
		}
		defer rows.Close()

		for rows.Next() {
			rec, err := scanBill(rows)
			if err != nil {
				return err
			}
			res = append(res, *rec)
		}

		if err := rows.Err(); err != nil {
			return fmt.Errorf("%w: rows error: %w", ErrStorageUnavailable, err)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	return res, nil
}

// GetBill возвращает счёт по идентификатору.
func (r *PostgresRepository) GetBill(ctx context.Context, id int64) (*model.BillRecord, error) {
	row := r.pool.QueryRow(ctx,
		`SELECT id, client_name, items, grand_total::text, created_at FROM bills WHERE id = $1`,
		id,
	)

	rec, err := scanBill(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrBillNotFound
		}
		return nil, err
	}
	return rec, nil
}

func scanBill(row pgx.Row) (*model.BillRecord, error) {
	var (
		rec       model.BillRecord
		itemsJSON []byte
		total     string
	)

	if err := row.Scan(&rec.ID, &rec.ClientName, &itemsJSON, &total, &rec.CreatedAt); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, err
		}
		return nil, fmt.Errorf("%w: scan bill: %w", ErrStorageUnavailable, err)
	}

	if err := json.Unmarshal(itemsJSON, &rec.Items); err != nil {
		return nil, fmt.Errorf("decode bill %d items: %w", rec.ID, err)
	}

	grandTotal, err := model.ParseAmount(total)
	if err != nil {
		return nil, fmt.Errorf("decode bill %d total: %w", rec.ID, err)
	}
	rec.GrandTotal = grandTotal
	rec.CreatedAt = rec.CreatedAt.UTC()

	return &rec, nil
}

// ListItems возвращает меню в порядке добавления позиций.
func (r *PostgresRepository) ListItems(ctx context.Context) ([]model.CatalogItem, error) {
	rows, err := r.pool.Query(ctx, `SELECT id, name, price::text FROM catalog_items ORDER BY id`)
	if err != nil {
		return nil, fmt.Errorf("select catalog items: %w", err)
	}
	defer rows.Close()

	res := []model.CatalogItem{}
	for rows.Next() {
		var (
			item  model.CatalogItem
			price string
		)
		if err := rows.Scan(&item.ID, &item.Name, &price); err != nil {
			return nil, fmt.Errorf("scan catalog item: %w", err)
		}
		if item.Price, err = model.ParseAmount(price); err != nil {
			return nil, fmt.Errorf("decode catalog item %d price: %w", item.ID, err)
		}
		res = append(res, item)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("rows error: %w", err)
	}

	return res, nil
}

// CreateItem добавляет позицию в меню.
func (r *PostgresRepository) CreateItem(ctx context.Context, name string, price model.Amount) (int64, error) {
	var id int64
	err := r.pool.QueryRow(ctx,
		`INSERT INTO catalog_items (name, price) VALUES ($1, $2) RETURNING id`,
		name, price.String(),
	).Scan(&id)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == pgerrcode.UniqueViolation {
			return 0, fmt.Errorf("%w: %s", ErrItemExists, name)
		}
		return 0, fmt.Errorf("create catalog item: %w", err)
	}
	return id, nil
}

// DeleteItem удаляет позицию меню. Архивные счета при этом не меняются.
func (r *PostgresRepository) DeleteItem(ctx context.Context, id int64) error {
	tag, err := r.pool.Exec(ctx, `DELETE FROM catalog_items WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("delete catalog item: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrItemNotFound
	}
	return nil
}

// CreateOperator создаёт нового оператора.
func (r *PostgresRepository) CreateOperator(ctx context.Context, login string, passwordHash []byte) (int64, error) {
	var id int64
	err := r.pool.QueryRow(ctx,
		`INSERT INTO operators (login, password_hash) VALUES ($1, $2) RETURNING id`,
		login, passwordHash,
	).Scan(&id)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == pgerrcode.UniqueViolation {
			return 0, fmt.Errorf("%w: %s", ErrOperatorExists, login)
		}
		return 0, fmt.Errorf("create operator: %w", err)
	}
	return id, nil
}

// GetOperatorByLogin возвращает оператора по логину.
func (r *PostgresRepository) GetOperatorByLogin(ctx context.Context, login string) (*model.Operator, error) {
	row := r.pool.QueryRow(ctx,
		`SELECT id, login, password_hash, created_at FROM operators WHERE login = $1`,
		login,
	)

	var op model.Operator
	err := row.Scan(&op.ID, &op.Login, &op.PasswordHash, &op.CreatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrOperatorNotFound
		}
		return nil, fmt.Errorf("get operator: %w", err)
	}

	return &op, nil
}
