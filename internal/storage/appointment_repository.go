package storage

import (
	"context"
	"time"

	"github.com/jackc/pgx/v5"

	"github.com/careslot/careslot/internal/model"
	"github.com/careslot/careslot/libs/db"
)

// AppointmentRow is an appointment joined with the participant names the
// list endpoints render.
type AppointmentRow struct {
	model.Appointment
	PatientName    string
	DoctorName     string
	Specialization string
}

type AppointmentRepository struct {
	pool *db.Pool
}

func NewAppointmentRepository(pool *db.Pool) *AppointmentRepository {
	return &AppointmentRepository{pool: pool}
}

func (r *AppointmentRepository) Begin(ctx context.Context) (pgx.Tx, error) {
	return r.pool.Begin(ctx)
}

// CreateTx inserts a new appointment. A unique-violation error here means
// the doctor already holds a live appointment at that time.
func (r *AppointmentRepository) CreateTx(ctx context.Context, tx pgx.Tx, appt model.Appointment) (model.Appointment, error) {
	err := tx.QueryRow(ctx, `
		INSERT INTO appointments (patient_id, doctor_id, appointment_time, disease, status)
		VALUES ($1, $2, $3, $4, $5)
		RETURNING id, created_at, updated_at
	`, appt.PatientID, appt.DoctorID, appt.Time, appt.Disease, appt.Status).
		Scan(&appt.ID, &appt.CreatedAt, &appt.UpdatedAt)
	if err != nil {
		return model.Appointment{}, err
	}
	return appt, nil
}

const appointmentColumns = `id, patient_id, doctor_id, appointment_time, disease, status, created_at, updated_at`

func scanAppointment(row interface{ Scan(dest ...any) error }) (model.Appointment, error) {
	var a model.Appointment
	err := row.Scan(&a.ID, &a.PatientID, &a.DoctorID, &a.Time, &a.Disease, &a.Status, &a.CreatedAt, &a.UpdatedAt)
	if err != nil {
		return model.Appointment{}, err
	}
	return a, nil
}

func (r *AppointmentRepository) GetByID(ctx context.Context, id string) (model.Appointment, error) {
	return scanAppointment(r.pool.QueryRow(ctx, `
		SELECT `+appointmentColumns+`
		FROM appointments
		WHERE id = $1
	`, id))
}

// GetForDoctorForUpdate loads an appointment only if it belongs to the
// given doctor, locking the row for the rest of the transaction. A row
// owned by another doctor scans as no rows at all.
func (r *AppointmentRepository) GetForDoctorForUpdate(ctx context.Context, tx pgx.Tx, id, doctorID string) (model.Appointment, error) {
	return scanAppointment(tx.QueryRow(ctx, `
		SELECT `+appointmentColumns+`
		FROM appointments
		WHERE id = $1 AND doctor_id = $2
		FOR UPDATE
	`, id, doctorID))
}

func (r *AppointmentRepository) GetForUpdate(ctx context.Context, tx pgx.Tx, id string) (model.Appointment, error) {
	return scanAppointment(tx.QueryRow(ctx, `
		SELECT `+appointmentColumns+`
		FROM appointments
		WHERE id = $1
		FOR UPDATE
	`, id))
}

func (r *AppointmentRepository) UpdateStatusTx(ctx context.Context, tx pgx.Tx, id string, status model.Status) (model.Appointment, error) {
	return scanAppointment(tx.QueryRow(ctx, `
		UPDATE appointments
		SET status = $2,
			updated_at = now()
		WHERE id = $1
		RETURNING `+appointmentColumns+`
	`, id, status))
}

// BookedTimes returns the HH:MM start times already held against a doctor
// on the given calendar day. Cancelled and completed visits do not block
// a slot.
func (r *AppointmentRepository) BookedTimes(ctx context.Context, doctorID string, day time.Time) ([]string, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT to_char(appointment_time, 'HH24:MI')
		FROM appointments
		WHERE doctor_id = $1
			AND appointment_time::date = $2::date
			AND status IN ('pending', 'confirmed')
		ORDER BY appointment_time
	`, doctorID, day)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var times []string
	for rows.Next() {
		var t string
		if err := rows.Scan(&t); err != nil {
			return nil, err
		}
		times = append(times, t)
	}
	if rows.Err() != nil {
		return nil, rows.Err()
	}
	return times, nil
}

const appointmentRowQuery = `
	SELECT a.id, a.patient_id, a.doctor_id, a.appointment_time, a.disease, a.status,
		a.created_at, a.updated_at, u.name, d.name, d.specialization
	FROM appointments a
	JOIN users u ON u.id = a.patient_id
	JOIN doctors d ON d.id = a.doctor_id
`

func (r *AppointmentRepository) ListByPatient(ctx context.Context, patientID string, limit, offset int) ([]AppointmentRow, int, error) {
	var total int
	if err := r.pool.QueryRow(ctx, `
		SELECT count(*) FROM appointments WHERE patient_id = $1
	`, patientID).Scan(&total); err != nil {
		return nil, 0, err
	}

	rows, err := r.pool.Query(ctx, appointmentRowQuery+`
		WHERE a.patient_id = $1
		ORDER BY a.appointment_time DESC
		LIMIT $2 OFFSET $3
	`, patientID, limit, offset)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()

	list, err := collectAppointmentRows(rows)
	if err != nil {
		return nil, 0, err
	}
	return list, total, nil
}

func (r *AppointmentRepository) ListByDoctor(ctx context.Context, doctorID string, limit, offset int) ([]AppointmentRow, int, error) {
	var total int
	if err := r.pool.QueryRow(ctx, `
		SELECT count(*) FROM appointments WHERE doctor_id = $1
	`, doctorID).Scan(&total); err != nil {
		return nil, 0, err
	}

	rows, err := r.pool.Query(ctx, appointmentRowQuery+`
		WHERE a.doctor_id = $1
		ORDER BY a.appointment_time DESC
		LIMIT $2 OFFSET $3
	`, doctorID, limit, offset)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()

	list, err := collectAppointmentRows(rows)
	if err != nil {
		return nil, 0, err
	}
	return list, total, nil
}

func (r *AppointmentRepository) ListAll(ctx context.Context, limit, offset int) ([]AppointmentRow, int, error) {
	var total int
	if err := r.pool.QueryRow(ctx, `SELECT count(*) FROM appointments`).Scan(&total); err != nil {
		return nil, 0, err
	}

	rows, err := r.pool.Query(ctx, appointmentRowQuery+`
		ORDER BY a.appointment_time DESC
		LIMIT $1 OFFSET $2
	`, limit, offset)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()

	list, err := collectAppointmentRows(rows)
	if err != nil {
		return nil, 0, err
	}
	return list, total, nil
}

// SearchByPatientName matches appointments against a patient name
// prefix, capped for typeahead use.
func (r *AppointmentRepository) SearchByPatientName(ctx context.Context, name string) ([]AppointmentRow, error) {
	rows, err := r.pool.Query(ctx, appointmentRowQuery+`
		WHERE u.name ILIKE $1 || '%'
		ORDER BY a.appointment_time DESC
		LIMIT 7
	`, name)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return collectAppointmentRows(rows)
}

// HistoryRow is a completed visit together with its prescription, if one
// was issued.
type HistoryRow struct {
	AppointmentRow
	PrescriptionID string
	Prescription   string
	Notes          string
}

// History lists a patient's completed visits with their prescriptions,
// most recent first. An empty doctorID matches any doctor.
func (r *AppointmentRepository) History(ctx context.Context, patientID, doctorID string) ([]HistoryRow, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT a.id, a.patient_id, a.doctor_id, a.appointment_time, a.disease, a.status,
			a.created_at, a.updated_at, u.name, d.name, d.specialization,
			COALESCE(p.id::text, ''), COALESCE(p.prescription, ''), COALESCE(p.notes, '')
		FROM appointments a
		JOIN users u ON u.id = a.patient_id
		JOIN doctors d ON d.id = a.doctor_id
		LEFT JOIN prescriptions p ON p.appointment_id = a.id
		WHERE a.patient_id = $1
			AND ($2 = '' OR a.doctor_id::text = $2)
			AND a.status = 'done'
		ORDER BY a.appointment_time DESC
	`, patientID, doctorID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var list []HistoryRow
	for rows.Next() {
		var row HistoryRow
		if err := rows.Scan(&row.ID, &row.PatientID, &row.DoctorID, &row.Time, &row.Disease, &row.Status,
			&row.CreatedAt, &row.UpdatedAt, &row.PatientName, &row.DoctorName, &row.Specialization,
			&row.PrescriptionID, &row.Prescription, &row.Notes); err != nil {
			return nil, err
		}
		list = append(list, row)
	}
	if rows.Err() != nil {
		return nil, rows.Err()
	}
	return list, nil
}

func collectAppointmentRows(rows pgx.Rows) ([]AppointmentRow, error) {
	var list []AppointmentRow
	for rows.Next() {
		var row AppointmentRow
		if err := rows.Scan(&row.ID, &row.PatientID, &row.DoctorID, &row.Time, &row.Disease, &row.Status,
			&row.CreatedAt, &row.UpdatedAt, &row.PatientName, &row.DoctorName, &row.Specialization); err != nil {
			return nil, err
		}
		list = append(list, row)
	}
	if rows.Err() != nil {
		return nil, rows.Err()
	}
	return list, nil
}
