package postgres

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"github.com/Sivaraj16/medicals/internal/domain"
	"github.com/Sivaraj16/medicals/internal/repository"
	"github.com/Sivaraj16/medicals/pkg/database"
	apperrors "github.com/Sivaraj16/medicals/pkg/errors"
)

const medicineColumns = `id, name, price, quantity, discount, to_char(expire_date, 'YYYY-MM-DD'),
		batch_id, supplier, image_url, created_at, updated_at`

// MedicineRepository implements repository.MedicineRepository using PostgreSQL.
type MedicineRepository struct {
	pool database.DBTX
}

// NewMedicineRepository creates a new PostgreSQL-backed catalog repository.
func NewMedicineRepository(pool database.DBTX) *MedicineRepository {
	return &MedicineRepository{pool: pool}
}

func scanMedicine(row pgx.Row, m *domain.Medicine) error {
	return row.Scan(
		&m.ID,
		&m.Name,
		&m.Price,
		&m.Quantity,
		&m.Discount,
		&m.ExpireDate,
		&m.BatchID,
		&m.Supplier,
		&m.ImageURL,
		&m.CreatedAt,
		&m.UpdatedAt,
	)
}

// Create inserts a new medicine.
func (r *MedicineRepository) Create(ctx context.Context, m *domain.Medicine) (err error) {
	query := `
		INSERT INTO medicines (id, name, price, quantity, discount, expire_date, batch_id, supplier, image_url, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6::date, $7, $8, $9, $10, $11)`

	ctx, end := database.TraceQuery(ctx, "CreateMedicine", query)
	defer func() { end(err) }()

	_, err = r.pool.Exec(ctx, query,
		m.ID,
		m.Name,
		m.Price,
		m.Quantity,
		m.Discount,
		m.ExpireDate,
		m.BatchID,
		m.Supplier,
		m.ImageURL,
		m.CreatedAt,
		m.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("insert medicine: %w", err)
	}
	return nil
}

// GetByID retrieves a medicine by id. Ids that are not UUIDs cannot exist
// and are reported as not found without a round trip.
func (r *MedicineRepository) GetByID(ctx context.Context, id string) (_ *domain.Medicine, err error) {
	if uuid.Validate(id) != nil {
		return nil, apperrors.NotFound("medicine", id)
	}

	query := `SELECT ` + medicineColumns + ` FROM medicines WHERE id = $1`

	ctx, end := database.TraceQuery(ctx, "GetMedicine", query)
	defer func() { end(err) }()

	var m domain.Medicine
	if err = scanMedicine(r.pool.QueryRow(ctx, query, id), &m); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, apperrors.NotFound("medicine", id)
		}
		return nil, fmt.Errorf("get medicine by id: %w", err)
	}
	return &m, nil
}

// List returns medicines matching filter, ordered by name.
func (r *MedicineRepository) List(ctx context.Context, filter repository.MedicineFilter) (_ []domain.Medicine, err error) {
	var (
		conditions []string
		args       []any
	)
	arg := func(v any) string {
		args = append(args, v)
		return "$" + strconv.Itoa(len(args))
	}

	if filter.ExpiredBefore != "" {
		conditions = append(conditions, "expire_date < "+arg(filter.ExpiredBefore)+"::date")
	}
	if filter.ExpiresFrom != "" {
		conditions = append(conditions, "expire_date >= "+arg(filter.ExpiresFrom)+"::date")
	}
	if filter.ExpiresTo != "" {
		conditions = append(conditions, "expire_date <= "+arg(filter.ExpiresTo)+"::date")
	}
	if filter.Discounted {
		conditions = append(conditions, "discount > 0")
	}
	if filter.OutOfStock {
		conditions = append(conditions, "quantity = 0")
	}

	query := `SELECT ` + medicineColumns + ` FROM medicines`
	if len(conditions) > 0 {
		query += " WHERE " + strings.Join(conditions, " AND ")
	}
	query += " ORDER BY name ASC, id ASC"

	ctx, end := database.TraceQuery(ctx, "ListMedicines", query)
	defer func() { end(err) }()

	rows, err := r.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list medicines: %w", err)
	}
	defer rows.Close()

	medicines := []domain.Medicine{}
	for rows.Next() {
		var m domain.Medicine
		if err = scanMedicine(rows, &m); err != nil {
			return nil, fmt.Errorf("scan medicine row: %w", err)
		}
		medicines = append(medicines, m)
	}
	if err = rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate medicine rows: %w", err)
	}
	return medicines, nil
}

// Update applies a partial quantity/discount update. Unset fields keep their
// stored value.
func (r *MedicineRepository) Update(ctx context.Context, id string, upd domain.MedicineUpdate) (_ *domain.Medicine, err error) {
	if uuid.Validate(id) != nil {
		return nil, apperrors.NotFound("medicine", id)
	}

	query := `
		UPDATE medicines
		SET quantity = COALESCE($2, quantity),
			discount = COALESCE($3, discount),
			updated_at = NOW()
		WHERE id = $1
		RETURNING ` + medicineColumns

	ctx, end := database.TraceQuery(ctx, "UpdateMedicine", query)
	defer func() { end(err) }()

	var m domain.Medicine
	if err = scanMedicine(r.pool.QueryRow(ctx, query, id, upd.Quantity, upd.Discount), &m); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, apperrors.NotFound("medicine", id)
		}
		return nil, fmt.Errorf("update medicine: %w", err)
	}
	return &m, nil
}

// Delete removes a medicine. Order items keep their captured copy.
func (r *MedicineRepository) Delete(ctx context.Context, id string) (err error) {
	if uuid.Validate(id) != nil {
		return apperrors.NotFound("medicine", id)
	}

	query := `DELETE FROM medicines WHERE id = $1`

	ctx, end := database.TraceQuery(ctx, "DeleteMedicine", query)
	defer func() { end(err) }()

	ct, err := r.pool.Exec(ctx, query, id)
	if err != nil {
		return fmt.Errorf("delete medicine: %w", err)
	}
	if ct.RowsAffected() == 0 {
		return apperrors.NotFound("medicine", id)
	}
	return nil
}
