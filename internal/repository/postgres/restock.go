package postgres

import (
	"context"
	"errors"
	"fmt"
	"strconv"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"

	"github.com/Sivaraj16/medicals/internal/domain"
	"github.com/Sivaraj16/medicals/internal/repository"
	"github.com/Sivaraj16/medicals/pkg/database"
	apperrors "github.com/Sivaraj16/medicals/pkg/errors"
)

const restockColumns = `id, medicine_id, medicine_name, supplier, batch_id, quantity, status, source, created_at, updated_at`

// RestockRepository implements repository.RestockRepository using PostgreSQL.
type RestockRepository struct {
	pool database.DBTX
}

// NewRestockRepository creates a new PostgreSQL-backed restock repository.
func NewRestockRepository(pool database.DBTX) *RestockRepository {
	return &RestockRepository{pool: pool}
}

func scanRestock(row pgx.Row, req *domain.RestockRequest) error {
	return row.Scan(
		&req.ID,
		&req.MedicineID,
		&req.MedicineName,
		&req.Supplier,
		&req.BatchID,
		&req.Quantity,
		&req.Status,
		&req.Source,
		&req.CreatedAt,
		&req.UpdatedAt,
	)
}

// Create inserts a new restock request. At most one request per medicine may
// be pending; a second one is a conflict.
func (r *RestockRepository) Create(ctx context.Context, req *domain.RestockRequest) error {
	query := `
		INSERT INTO restock_requests (` + restockColumns + `)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)`

	_, err := r.pool.Exec(ctx, query,
		req.ID,
		req.MedicineID,
		req.MedicineName,
		req.Supplier,
		req.BatchID,
		req.Quantity,
		req.Status,
		req.Source,
		req.CreatedAt,
		req.UpdatedAt,
	)
	if err != nil {
		if isUniqueViolation(err) {
			return apperrors.Conflict(fmt.Sprintf("a pending restock request already exists for medicine %s", req.MedicineID))
		}
		return fmt.Errorf("insert restock request: %w", err)
	}
	return nil
}

// isUniqueViolation reports whether err is a PostgreSQL unique constraint
// violation (SQLSTATE 23505).
func isUniqueViolation(err error) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == "23505"
}

// isOutOfRange reports whether err is a numeric overflow (SQLSTATE 22003).
func isOutOfRange(err error) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == "22003"
}

// GetByID retrieves a restock request.
func (r *RestockRepository) GetByID(ctx context.Context, id string) (*domain.RestockRequest, error) {
	if uuid.Validate(id) != nil {
		return nil, apperrors.NotFound("restock request", id)
	}

	var req domain.RestockRequest
	err := scanRestock(r.pool.QueryRow(ctx, `SELECT `+restockColumns+` FROM restock_requests WHERE id = $1`, id), &req)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, apperrors.NotFound("restock request", id)
		}
		return nil, fmt.Errorf("get restock request by id: %w", err)
	}
	return &req, nil
}

// List returns a page of requests, newest first, with the total count.
func (r *RestockRepository) List(ctx context.Context, filter repository.RestockFilter) ([]domain.RestockRequest, int, error) {
	if filter.Page <= 0 {
		filter.Page = 1
	}
	if filter.PerPage <= 0 {
		filter.PerPage = 20
	}

	var args []any
	query := `SELECT ` + restockColumns + `, count(*) OVER() AS total_count FROM restock_requests`
	if filter.Status != "" {
		args = append(args, filter.Status)
		query += ` WHERE status = $1`
	}
	args = append(args, filter.PerPage, (filter.Page-1)*filter.PerPage)
	query += ` ORDER BY created_at DESC, id DESC LIMIT $` + strconv.Itoa(len(args)-1) + ` OFFSET $` + strconv.Itoa(len(args))

	rows, err := r.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, 0, fmt.Errorf("list restock requests: %w", err)
	}
	defer rows.Close()

	var (
		requests = []domain.RestockRequest{}
		total    int
	)
	for rows.Next() {
		var req domain.RestockRequest
		if err := rows.Scan(
			&req.ID,
			&req.MedicineID,
			&req.MedicineName,
			&req.Supplier,
			&req.BatchID,
			&req.Quantity,
			&req.Status,
			&req.Source,
			&req.CreatedAt,
			&req.UpdatedAt,
			&total,
		); err != nil {
			return nil, 0, fmt.Errorf("scan restock request row: %w", err)
		}
		requests = append(requests, req)
	}
	if err := rows.Err(); err != nil {
		return nil, 0, fmt.Errorf("iterate restock request rows: %w", err)
	}
	return requests, total, nil
}

// HasPending reports whether a pending request exists for the medicine.
func (r *RestockRepository) HasPending(ctx context.Context, medicineID string) (bool, error) {
	var exists bool
	err := r.pool.QueryRow(ctx,
		`SELECT EXISTS(SELECT 1 FROM restock_requests WHERE medicine_id = $1 AND status = 'pending')`,
		medicineID,
	).Scan(&exists)
	if err != nil {
		return false, fmt.Errorf("check pending restock: %w", err)
	}
	return exists, nil
}

// Receive marks a pending request received and adds its quantity to stock.
// The request row is locked for the duration of the transaction.
func (r *RestockRepository) Receive(ctx context.Context, id string) (_ *domain.RestockRequest, quantity int, err error) {
	if uuid.Validate(id) != nil {
		return nil, 0, apperrors.NotFound("restock request", id)
	}

	ctx, end := database.TraceQuery(ctx, "ReceiveRestock", "receive transaction")
	defer func() { end(err) }()

	var req domain.RestockRequest
	err = database.WithTx(ctx, r.pool, func(tx pgx.Tx) error {
		err := scanRestock(tx.QueryRow(ctx,
			`SELECT `+restockColumns+` FROM restock_requests WHERE id = $1 FOR UPDATE`, id), &req)
		if err != nil {
			if errors.Is(err, pgx.ErrNoRows) {
				return apperrors.NotFound("restock request", id)
			}
			return fmt.Errorf("lock restock request: %w", err)
		}
		if !req.IsPending() {
			return apperrors.Conflict(fmt.Sprintf("restock request is already %s", req.Status))
		}

		err = tx.QueryRow(ctx, `
			UPDATE medicines
			SET quantity = quantity + $2, updated_at = NOW()
			WHERE id = $1
			RETURNING quantity`, req.MedicineID, req.Quantity,
		).Scan(&quantity)
		if err != nil {
			if errors.Is(err, pgx.ErrNoRows) {
				return apperrors.NotFound("medicine", req.MedicineID)
			}
			if isOutOfRange(err) {
				return apperrors.Conflict(fmt.Sprintf("receiving %d units would exceed the maximum stock", req.Quantity))
			}
			return fmt.Errorf("add restocked quantity: %w", err)
		}

		err = tx.QueryRow(ctx, `
			UPDATE restock_requests
			SET status = $2, updated_at = NOW()
			WHERE id = $1
			RETURNING status, updated_at`, id, domain.RestockReceived,
		).Scan(&req.Status, &req.UpdatedAt)
		if err != nil {
			return fmt.Errorf("mark restock request received: %w", err)
		}
		return nil
	})
	if err != nil {
		return nil, 0, err
	}
	return &req, quantity, nil
}

// Cancel marks a pending request cancelled.
func (r *RestockRepository) Cancel(ctx context.Context, id string) (*domain.RestockRequest, error) {
	if uuid.Validate(id) != nil {
		return nil, apperrors.NotFound("restock request", id)
	}

	var req domain.RestockRequest
	err := scanRestock(r.pool.QueryRow(ctx, `
		UPDATE restock_requests
		SET status = $2, updated_at = NOW()
		WHERE id = $1 AND status = 'pending'
		RETURNING `+restockColumns, id, domain.RestockCancelled), &req)
	if err == nil {
		return &req, nil
	}
	if !errors.Is(err, pgx.ErrNoRows) {
		return nil, fmt.Errorf("cancel restock request: %w", err)
	}

	current, err := r.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	return nil, apperrors.Conflict(fmt.Sprintf("restock request is already %s", current.Status))
}
