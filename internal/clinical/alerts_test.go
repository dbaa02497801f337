package clinical

import (
	"context"
	"encoding/json"
	"testing"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	pgxmock "github.com/pashagolub/pgxmock/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseAllergiesRepresentations(t *testing.T) {
	want := []string{"Peanuts", "Penicillin"}

	tests := []struct {
		name string
		raw  any
	}{
		{"json array string", `["Peanuts","Penicillin"]`},
		{"free text commas", "Peanuts, Penicillin"},
		{"free text semicolon", "Peanuts; Penicillin"},
		{"free text and", "Peanuts and Penicillin"},
		{"native string slice", []string{"Peanuts", " Penicillin "}},
		{"native any slice", []any{"Peanuts", "Penicillin"}},
		{"json encoded string holding array", `"[\"Peanuts\",\"Penicillin\"]"`},
		{"raw message", json.RawMessage(`["Peanuts", "Penicillin"]`)},
		{"bytes", []byte("Peanuts,Penicillin")},
		{"bracket artifacts", `['Peanuts', 'Penicillin']`},
		{"empty entries dropped", "Peanuts,, ;Penicillin,"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, want, ParseAllergies(tt.raw))
		})
	}
}

func TestParseAllergiesEmpty(t *testing.T) {
	for _, raw := range []any{nil, "", "   ", "[]", `""`, []string{}, "null"} {
		assert.Empty(t, ParseAllergies(raw), "raw=%#v", raw)
	}
}

func TestParseAllergiesKeepsWordsContainingAnd(t *testing.T) {
	assert.Equal(t, []string{"Sandalwood", "Mango"}, ParseAllergies("Sandalwood and Mango"))
}

func TestDecodeAllergiesMalformedFallsBackToLiteral(t *testing.T) {
	names, err := DecodeAllergies("[,]")
	assert.ErrorIs(t, err, ErrMalformedPayload)
	assert.Equal(t, []string{"[,]"}, names)
}

func TestDecodeAllergiesBrokenJSONUsesHeuristic(t *testing.T) {
	names, err := DecodeAllergies(`["Peanuts", "Penicil`)
	require.NoError(t, err)
	assert.Equal(t, []string{"Peanuts", "Penicil"}, names)
}

func TestDeriveSingleAggregatedAllergyAlert(t *testing.T) {
	patient := uuid.New()

	fromJSON := Derive(PatientSnapshot{ID: patient, Allergies: `["Peanuts","Penicillin"]`})
	fromText := Derive(PatientSnapshot{ID: patient, Allergies: "Peanuts, Penicillin"})

	require.Len(t, fromJSON, 1)
	assert.Equal(t, "Peanuts, Penicillin", fromJSON[0].DisplayText())
	assert.Equal(t, KindAllergy, fromJSON[0].Kind)
	assert.Equal(t, "allergy-alert-"+patient.String(), fromJSON[0].ID)
	assert.Equal(t, fromJSON, fromText)
}

func TestDeriveConditionScan(t *testing.T) {
	patient := uuid.New()
	alerts := Derive(PatientSnapshot{
		ID:             patient,
		MedicalHistory: "Type 2 DIABETES since 2015; mild Asthma as a child. Archived notes reviewed.",
	})

	require.Len(t, alerts, 2)
	assert.Equal(t, "condition-alert-diabetes-"+patient.String(), alerts[0].ID)
	assert.Equal(t, []string{"Diabetes"}, alerts[0].Values)
	assert.Equal(t, "condition-alert-asthma-"+patient.String(), alerts[1].ID)
	for _, a := range alerts {
		assert.Equal(t, KindCondition, a.Kind)
		assert.True(t, IsAlertID(a.ID))
	}
}

func TestDeriveIsDeterministic(t *testing.T) {
	snapshot := PatientSnapshot{
		ID:             uuid.New(),
		Allergies:      "Latex; Sulfa",
		MedicalHistory: "hypertension, cardiac disease, epilepsy",
	}

	first := Derive(snapshot)
	second := Derive(snapshot)

	require.Len(t, first, 4)
	assert.Equal(t, first, second)
}

func TestDeriveNothingToReport(t *testing.T) {
	assert.Empty(t, Derive(PatientSnapshot{ID: uuid.New(), MedicalHistory: "Seasonal allergies, otherwise healthy"}))
}

func TestIsAlertID(t *testing.T) {
	assert.True(t, IsAlertID("allergy-alert-123"))
	assert.True(t, IsAlertID("condition-alert-asthma-123"))
	assert.False(t, IsAlertID(uuid.NewString()))
}

func TestPgPatientLookupFetchPatient(t *testing.T) {
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	id := uuid.New()
	history := "Asthma"
	mock.ExpectQuery("FROM patients").WithArgs(id).WillReturnRows(
		pgxmock.NewRows([]string{"id", "name", "allergies", "medical_history"}).
			AddRow(id, "Ana Petrovic", []byte(`["Peanuts"]`), &history),
	)

	p, err := NewPgPatientLookup(mock).FetchPatient(context.Background(), id)
	require.NoError(t, err)
	assert.Equal(t, "Ana Petrovic", p.Name)
	assert.Equal(t, []string{"Peanuts"}, ParseAllergies(p.Allergies))
	assert.Equal(t, "Asthma", p.MedicalHistory)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestPgPatientLookupNotFound(t *testing.T) {
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	id := uuid.New()
	mock.ExpectQuery("FROM patients").WithArgs(id).WillReturnError(pgx.ErrNoRows)

	_, err = NewPgPatientLookup(mock).FetchPatient(context.Background(), id)
	assert.ErrorIs(t, err, ErrPatientNotFound)
}
