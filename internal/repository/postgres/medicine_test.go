package postgres

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/jackc/pgx/v5"
	pgxmock "github.com/pashagolub/pgxmock/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Sivaraj16/medicals/internal/domain"
	"github.com/Sivaraj16/medicals/internal/repository"
	"github.com/Sivaraj16/medicals/pkg/database"
	apperrors "github.com/Sivaraj16/medicals/pkg/errors"
)

const (
	medID   = "0b6c8f6e-3a9d-4f59-8c0e-6f1f6b2d9a10"
	medID2  = "5d1f0c2a-7e44-4a8b-9b67-2c3d4e5f6a7b"
	orderID = "9e2a4c1d-5b6f-4e70-8a91-b2c3d4e5f607"
)

var medicineCols = []string{
	"id", "name", "price", "quantity", "discount", "expire_date",
	"batch_id", "supplier", "image_url", "created_at", "updated_at",
}

func newMock(t *testing.T) pgxmock.PgxPoolIface {
	t.Helper()
	mock, err := database.NewMockPool()
	require.NoError(t, err)
	t.Cleanup(mock.Close)
	return mock
}

func sampleMedicine() domain.Medicine {
	ts := time.Date(2024, 5, 1, 9, 0, 0, 0, time.UTC)
	return domain.Medicine{
		ID:         medID,
		Name:       "Paracetamol 500mg",
		Price:      12.5,
		Quantity:   40,
		Discount:   2,
		ExpireDate: "2025-03-31",
		BatchID:    "PCM-0425",
		Supplier:   "Acme Pharma",
		CreatedAt:  ts,
		UpdatedAt:  ts,
	}
}

func medicineRow(rows *pgxmock.Rows, m domain.Medicine) *pgxmock.Rows {
	return rows.AddRow(m.ID, m.Name, m.Price, m.Quantity, m.Discount, m.ExpireDate,
		m.BatchID, m.Supplier, m.ImageURL, m.CreatedAt, m.UpdatedAt)
}

func TestMedicineRepository_Create(t *testing.T) {
	mock := newMock(t)
	repo := NewMedicineRepository(mock)
	m := sampleMedicine()

	mock.ExpectExec("INSERT INTO medicines").
		WithArgs(m.ID, m.Name, m.Price, m.Quantity, m.Discount, m.ExpireDate,
			m.BatchID, m.Supplier, m.ImageURL, m.CreatedAt, m.UpdatedAt).
		WillReturnResult(pgxmock.NewResult("INSERT", 1))

	require.NoError(t, repo.Create(context.Background(), &m))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestMedicineRepository_Create_Error(t *testing.T) {
	mock := newMock(t)
	repo := NewMedicineRepository(mock)
	m := sampleMedicine()

	mock.ExpectExec("INSERT INTO medicines").WillReturnError(errors.New("db write error"))

	err := repo.Create(context.Background(), &m)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "insert medicine")
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestMedicineRepository_GetByID(t *testing.T) {
	mock := newMock(t)
	repo := NewMedicineRepository(mock)
	m := sampleMedicine()

	mock.ExpectQuery("SELECT .+ FROM medicines WHERE id = \\$1").
		WithArgs(medID).
		WillReturnRows(medicineRow(pgxmock.NewRows(medicineCols), m))

	got, err := repo.GetByID(context.Background(), medID)
	require.NoError(t, err)
	assert.Equal(t, m, *got)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestMedicineRepository_GetByID_NotFound(t *testing.T) {
	mock := newMock(t)
	repo := NewMedicineRepository(mock)

	mock.ExpectQuery("SELECT .+ FROM medicines").WithArgs(medID).WillReturnError(pgx.ErrNoRows)

	_, err := repo.GetByID(context.Background(), medID)
	assert.ErrorIs(t, err, apperrors.ErrNotFound)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestMedicineRepository_GetByID_MalformedIDSkipsQuery(t *testing.T) {
	mock := newMock(t)
	repo := NewMedicineRepository(mock)

	_, err := repo.GetByID(context.Background(), "not-a-uuid")
	assert.ErrorIs(t, err, apperrors.ErrNotFound)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestMedicineRepository_List_All(t *testing.T) {
	mock := newMock(t)
	repo := NewMedicineRepository(mock)

	a := sampleMedicine()
	b := sampleMedicine()
	b.ID, b.Name = medID2, "Zinc"

	rows := pgxmock.NewRows(medicineCols)
	medicineRow(rows, a)
	medicineRow(rows, b)
	mock.ExpectQuery("SELECT .+ FROM medicines ORDER BY name ASC").WillReturnRows(rows)

	got, err := repo.List(context.Background(), repository.MedicineFilter{})
	require.NoError(t, err)
	require.Len(t, got, 2)
	assert.Equal(t, "Zinc", got[1].Name)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestMedicineRepository_List_Filters(t *testing.T) {
	tests := []struct {
		name    string
		filter  repository.MedicineFilter
		pattern string
		args    []any
	}{
		{
			name:    "expired",
			filter:  repository.MedicineFilter{ExpiredBefore: "2024-06-15"},
			pattern: `WHERE expire_date < \$1::date ORDER BY`,
			args:    []any{"2024-06-15"},
		},
		{
			name:    "expiring window",
			filter:  repository.MedicineFilter{ExpiresFrom: "2024-06-15", ExpiresTo: "2024-07-15"},
			pattern: `WHERE expire_date >= \$1::date AND expire_date <= \$2::date ORDER BY`,
			args:    []any{"2024-06-15", "2024-07-15"},
		},
		{
			name:    "discounted",
			filter:  repository.MedicineFilter{Discounted: true},
			pattern: `WHERE discount > 0 ORDER BY`,
		},
		{
			name:    "out of stock",
			filter:  repository.MedicineFilter{OutOfStock: true},
			pattern: `WHERE quantity = 0 ORDER BY`,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			mock := newMock(t)
			repo := NewMedicineRepository(mock)

			exp := mock.ExpectQuery(tt.pattern)
			if len(tt.args) > 0 {
				exp = exp.WithArgs(tt.args...)
			}
			exp.WillReturnRows(pgxmock.NewRows(medicineCols))

			got, err := repo.List(context.Background(), tt.filter)
			require.NoError(t, err)
			assert.NotNil(t, got)
			assert.Empty(t, got)
			assert.NoError(t, mock.ExpectationsWereMet())
		})
	}
}

func TestMedicineRepository_Update(t *testing.T) {
	mock := newMock(t)
	repo := NewMedicineRepository(mock)

	qty := 15
	m := sampleMedicine()
	m.Quantity = qty

	mock.ExpectQuery("UPDATE medicines").
		WithArgs(medID, pgxmock.AnyArg(), pgxmock.AnyArg()).
		WillReturnRows(medicineRow(pgxmock.NewRows(medicineCols), m))

	got, err := repo.Update(context.Background(), medID, domain.MedicineUpdate{Quantity: &qty})
	require.NoError(t, err)
	assert.Equal(t, 15, got.Quantity)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestMedicineRepository_Update_NotFound(t *testing.T) {
	mock := newMock(t)
	repo := NewMedicineRepository(mock)

	mock.ExpectQuery("UPDATE medicines").
		WithArgs(medID, pgxmock.AnyArg(), pgxmock.AnyArg()).
		WillReturnError(pgx.ErrNoRows)

	d := 1.0
	_, err := repo.Update(context.Background(), medID, domain.MedicineUpdate{Discount: &d})
	assert.ErrorIs(t, err, apperrors.ErrNotFound)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestMedicineRepository_Delete(t *testing.T) {
	mock := newMock(t)
	repo := NewMedicineRepository(mock)

	mock.ExpectExec("DELETE FROM medicines").WithArgs(medID).
		WillReturnResult(pgxmock.NewResult("DELETE", 1))
	mock.ExpectExec("DELETE FROM medicines").WithArgs(medID2).
		WillReturnResult(pgxmock.NewResult("DELETE", 0))

	require.NoError(t, repo.Delete(context.Background(), medID))
	assert.ErrorIs(t, repo.Delete(context.Background(), medID2), apperrors.ErrNotFound)
	assert.ErrorIs(t, repo.Delete(context.Background(), "bogus"), apperrors.ErrNotFound)
	assert.NoError(t, mock.ExpectationsWereMet())
}
