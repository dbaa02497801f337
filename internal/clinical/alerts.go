package clinical

import (
	"fmt"
	"strings"

	"github.com/google/uuid"
)

type AlertKind string

const (
	KindAllergy   AlertKind = "allergy"
	KindCondition AlertKind = "condition"
)

const (
	allergyAlertPrefix   = "allergy-alert-"
	conditionAlertPrefix = "condition-alert-"
)

// PatientSnapshot is the slice of a patient record alerts are derived from.
// Allergies keeps whatever representation the record store returned.
type PatientSnapshot struct {
	ID             uuid.UUID
	Name           string
	Allergies      any
	MedicalHistory string
}

// Alert is computed on every snapshot change and never stored. Severity is always critical.
type Alert struct {
	ID        string
	PatientID uuid.UUID
	Kind      AlertKind
	Title     string
	Message   string
	Values    []string
}

// DisplayText is the comma-joined list of triggering values.
func (a Alert) DisplayText() string {
	return strings.Join(a.Values, ", ")
}

type condition struct {
	slug  string
	term  string
	label string
}

var criticalConditions = []condition{
	{"diabetes", "diabetes", "Diabetes"},
	{"hypertension", "hypertension", "Hypertension"},
	{"asthma", "asthma", "Asthma"},
	{"epilepsy", "epilepsy", "Epilepsy"},
	{"cardiac-disease", "cardiac disease", "Cardiac disease"},
	{"heart-disease", "heart disease", "Heart disease"},
	{"kidney-disease", "kidney disease", "Kidney disease"},
	{"copd", "copd", "COPD"},
	{"pregnancy", "pregnan", "Pregnancy"},
}

// Derive returns the alerts for a snapshot: at most one aggregated allergy alert followed by one
// alert per matched critical condition, in vocabulary order. Same snapshot, same alerts.
func Derive(p PatientSnapshot) []Alert {
	var alerts []Alert

	if names := ParseAllergies(p.Allergies); len(names) > 0 {
		alerts = append(alerts, Alert{
			ID:        allergyAlertPrefix + p.ID.String(),
			PatientID: p.ID,
			Kind:      KindAllergy,
			Title:     "Allergy warning",
			Message:   "Patient has allergies: " + strings.Join(names, ", "),
			Values:    names,
		})
	}

	history := strings.ToLower(p.MedicalHistory)
	for _, c := range criticalConditions {
		if history == "" || !strings.Contains(history, c.term) {
			continue
		}
		alerts = append(alerts, Alert{
			ID:        fmt.Sprintf("%s%s-%s", conditionAlertPrefix, c.slug, p.ID),
			PatientID: p.ID,
			Kind:      KindCondition,
			Title:     "Critical condition: " + c.label,
			Message:   fmt.Sprintf("Medical history mentions %s", strings.ToLower(c.label)),
			Values:    []string{c.label},
		})
	}

	return alerts
}

// IsAlertID reports whether id belongs to the derived-alert namespace.
func IsAlertID(id string) bool {
	return strings.HasPrefix(id, allergyAlertPrefix) || strings.HasPrefix(id, conditionAlertPrefix)
}
