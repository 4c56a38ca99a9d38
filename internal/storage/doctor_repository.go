package storage

import (
	"context"
	"encoding/json"

	"github.com/jackc/pgx/v5"

	"github.com/careslot/careslot/internal/model"
	"github.com/careslot/careslot/internal/schedule"
	"github.com/careslot/careslot/libs/db"
)

type DoctorRepository struct {
	pool *db.Pool
}

func NewDoctorRepository(pool *db.Pool) *DoctorRepository {
	return &DoctorRepository{pool: pool}
}

const doctorColumns = `id, name, email, password_hash, gender, age, phone,
	specialization, experience, schedule, fees, available, created_at, updated_at`

func scanDoctor(row interface{ Scan(dest ...any) error }) (model.Doctor, error) {
	var d model.Doctor
	var rawSchedule []byte
	err := row.Scan(&d.ID, &d.Name, &d.Email, &d.PasswordHash, &d.Gender, &d.Age, &d.Phone,
		&d.Specialization, &d.Experience, &rawSchedule, &d.Fees, &d.Available, &d.CreatedAt, &d.UpdatedAt)
	if err != nil {
		return model.Doctor{}, err
	}
	if len(rawSchedule) > 0 {
		weekly, err := schedule.Parse(rawSchedule)
		if err != nil {
			return model.Doctor{}, err
		}
		d.Schedule = weekly
	}
	return d, nil
}

func (r *DoctorRepository) Create(ctx context.Context, doc model.Doctor) error {
	raw, err := json.Marshal(doc.Schedule)
	if err != nil {
		return err
	}
	_, err = r.pool.Exec(ctx, `
		INSERT INTO doctors
			(id, name, email, password_hash, gender, age, phone, specialization, experience, schedule, fees, available)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12)
	`, doc.ID, doc.Name, doc.Email, doc.PasswordHash, doc.Gender, doc.Age, doc.Phone,
		doc.Specialization, doc.Experience, raw, doc.Fees, doc.Available)
	return err
}

func (r *DoctorRepository) GetByID(ctx context.Context, id string) (model.Doctor, error) {
	return scanDoctor(r.pool.QueryRow(ctx, `
		SELECT `+doctorColumns+`
		FROM doctors
		WHERE id = $1
	`, id))
}

func (r *DoctorRepository) GetByEmail(ctx context.Context, email string) (model.Doctor, error) {
	return scanDoctor(r.pool.QueryRow(ctx, `
		SELECT `+doctorColumns+`
		FROM doctors
		WHERE email = $1
	`, email))
}

// Update writes only the provided non-empty fields. A nil Schedule keeps
// the stored one; an empty non-nil Schedule clears all working days.
func (r *DoctorRepository) Update(ctx context.Context, doc model.Doctor) (model.Doctor, error) {
	var raw []byte
	if doc.Schedule != nil {
		b, err := json.Marshal(doc.Schedule)
		if err != nil {
			return model.Doctor{}, err
		}
		raw = b
	}
	return scanDoctor(r.pool.QueryRow(ctx, `
		UPDATE doctors
		SET name = COALESCE(NULLIF($2, ''), name),
			email = COALESCE(NULLIF($3, ''), email),
			gender = COALESCE(NULLIF($4, ''), gender),
			age = CASE WHEN $5 > 0 THEN $5 ELSE age END,
			phone = COALESCE(NULLIF($6, ''), phone),
			specialization = COALESCE(NULLIF($7, ''), specialization),
			experience = CASE WHEN $8 > 0 THEN $8 ELSE experience END,
			schedule = COALESCE($9::jsonb, schedule),
			fees = CASE WHEN $10 > 0 THEN $10 ELSE fees END,
			available = $11,
			updated_at = now()
		WHERE id = $1
		RETURNING `+doctorColumns+`
	`, doc.ID, doc.Name, doc.Email, doc.Gender, doc.Age, doc.Phone,
		doc.Specialization, doc.Experience, raw, doc.Fees, doc.Available))
}

func (r *DoctorRepository) UpdatePassword(ctx context.Context, id, passwordHash string) error {
	tag, err := r.pool.Exec(ctx, `
		UPDATE doctors
		SET password_hash = $2,
			updated_at = now()
		WHERE id = $1
	`, id, passwordHash)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return pgx.ErrNoRows
	}
	return nil
}

func (r *DoctorRepository) UpdatePasswordByEmail(ctx context.Context, email, passwordHash string) error {
	tag, err := r.pool.Exec(ctx, `
		UPDATE doctors
		SET password_hash = $2,
			updated_at = now()
		WHERE email = $1
	`, email, passwordHash)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return pgx.ErrNoRows
	}
	return nil
}

func (r *DoctorRepository) Delete(ctx context.Context, id string) error {
	tag, err := r.pool.Exec(ctx, `
		DELETE FROM doctors
		WHERE id = $1
	`, id)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return pgx.ErrNoRows
	}
	return nil
}

func (r *DoctorRepository) List(ctx context.Context, limit, offset int) ([]model.Doctor, int, error) {
	var total int
	if err := r.pool.QueryRow(ctx, `SELECT count(*) FROM doctors`).Scan(&total); err != nil {
		return nil, 0, err
	}

	rows, err := r.pool.Query(ctx, `
		SELECT `+doctorColumns+`
		FROM doctors
		ORDER BY created_at DESC
		LIMIT $1 OFFSET $2
	`, limit, offset)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()

	docs, err := collectDoctors(rows)
	if err != nil {
		return nil, 0, err
	}
	return docs, total, nil
}

func (r *DoctorRepository) ListBySpecialization(ctx context.Context, specialization string) ([]model.Doctor, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT `+doctorColumns+`
		FROM doctors
		WHERE specialization = $1 AND available
		ORDER BY name
	`, specialization)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return collectDoctors(rows)
}

func (r *DoctorRepository) EmailExists(ctx context.Context, email string) (bool, error) {
	var exists bool
	err := r.pool.QueryRow(ctx, `
		SELECT EXISTS (SELECT 1 FROM doctors WHERE email = $1)
	`, email).Scan(&exists)
	return exists, err
}

func collectDoctors(rows pgx.Rows) ([]model.Doctor, error) {
	var docs []model.Doctor
	for rows.Next() {
		d, err := scanDoctor(rows)
		if err != nil {
			return nil, err
		}
		docs = append(docs, d)
	}
	if rows.Err() != nil {
		return nil, rows.Err()
	}
	return docs, nil
}
