package clinical

import (
	"context"
	"encoding/json"
	"errors"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"github.com/hackgods/clinic-encounter-engine/internal/db"
)

var ErrPatientNotFound = errors.New("patient not found")

// PatientLookup is the patient record service alerts are fed from.
type PatientLookup interface {
	FetchPatient(ctx context.Context, id uuid.UUID) (*PatientSnapshot, error)
}

type PgPatientLookup struct {
	db db.DBTX
}

func NewPgPatientLookup(conn db.DBTX) *PgPatientLookup {
	return &PgPatientLookup{db: conn}
}

// FetchPatient reads allergies as raw bytes so jsonb arrays, JSON-encoded strings and plain
// text columns all reach DecodeAllergies untouched.
func (l *PgPatientLookup) FetchPatient(ctx context.Context, id uuid.UUID) (*PatientSnapshot, error) {
	var p PatientSnapshot
	var allergies []byte
	var history *string

	err := l.db.QueryRow(ctx, `
		SELECT id, name, allergies::text, medical_history
		FROM patients
		WHERE id = $1
	`, id).Scan(&p.ID, &p.Name, &allergies, &history)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrPatientNotFound
		}
		return nil, err
	}

	if len(allergies) > 0 {
		p.Allergies = json.RawMessage(allergies)
	}
	if history != nil {
		p.MedicalHistory = *history
	}
	return &p, nil
}
