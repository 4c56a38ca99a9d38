package storage

import (
	"context"

	"github.com/jackc/pgx/v5"

	"github.com/careslot/careslot/internal/model"
	"github.com/careslot/careslot/libs/db"
)

type PrescriptionRepository struct {
	pool *db.Pool
}

func NewPrescriptionRepository(pool *db.Pool) *PrescriptionRepository {
	return &PrescriptionRepository{pool: pool}
}

// CreateTx inserts a prescription inside the caller's transaction so the
// appointment's status change commits together with it. A unique-violation
// error means the appointment already has one.
func (r *PrescriptionRepository) CreateTx(ctx context.Context, tx pgx.Tx, p model.Prescription) (model.Prescription, error) {
	err := tx.QueryRow(ctx, `
		INSERT INTO prescriptions (appointment_id, prescription, notes, disease)
		VALUES ($1, $2, $3, $4)
		RETURNING id, created_at
	`, p.AppointmentID, p.Prescription, p.Notes, p.Disease).Scan(&p.ID, &p.CreatedAt)
	if err != nil {
		return model.Prescription{}, err
	}
	return p, nil
}

func (r *PrescriptionRepository) GetByAppointment(ctx context.Context, appointmentID string) (model.Prescription, error) {
	var p model.Prescription
	err := r.pool.QueryRow(ctx, `
		SELECT id, appointment_id, prescription, notes, disease, created_at
		FROM prescriptions
		WHERE appointment_id = $1
	`, appointmentID).Scan(&p.ID, &p.AppointmentID, &p.Prescription, &p.Notes, &p.Disease, &p.CreatedAt)
	if err != nil {
		return model.Prescription{}, err
	}
	return p, nil
}

func (r *PrescriptionRepository) List(ctx context.Context, limit, offset int) ([]model.Prescription, int, error) {
	var total int
	if err := r.pool.QueryRow(ctx, `SELECT count(*) FROM prescriptions`).Scan(&total); err != nil {
		return nil, 0, err
	}

	rows, err := r.pool.Query(ctx, `
		SELECT id, appointment_id, prescription, notes, disease, created_at
		FROM prescriptions
		ORDER BY created_at DESC
		LIMIT $1 OFFSET $2
	`, limit, offset)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()

	var list []model.Prescription
	for rows.Next() {
		var p model.Prescription
		if err := rows.Scan(&p.ID, &p.AppointmentID, &p.Prescription, &p.Notes, &p.Disease, &p.CreatedAt); err != nil {
			return nil, 0, err
		}
		list = append(list, p)
	}
	if rows.Err() != nil {
		return nil, 0, rows.Err()
	}
	return list, total, nil
}
