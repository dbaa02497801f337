package notification

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestNormalizeMessage(t *testing.T) {
	tests := []struct {
		name string
		in   string
		want string
	}{
		{"single item", `Patient has allergies: ["Peanuts"]`, "Patient has allergies: Peanuts"},
		{"several items", `Allergies: ["Peanuts", "Penicillin","Latex"] on file`, "Allergies: Peanuts, Penicillin, Latex on file"},
		{"numbers", `Rooms [1, 2] free`, "Rooms 1, 2 free"},
		{"broken json falls back", `Allergies: ['Peanuts', 'Penicillin']`, "Allergies: Peanuts, Penicillin"},
		{"nested arrays", `Codes [["A1"], ["B2"]]`, "Codes A1, B2"},
		{"whitespace collapsed", "Lab   result\n ready", "Lab result ready"},
		{"objects kept as json", `Meta: [{"a":1}]`, `Meta: {"a":1}`},
		{"mixed scalars and objects", `Flags: [true, "x", {"code":"A1"}]`, `Flags: true, x, {"code":"A1"}`},
		{"empty array", `Allergies: [] noted`, "Allergies: noted"},
		{"no payload", "Appointment confirmed", "Appointment confirmed"},
		{"unbalanced bracket kept", "See note [draft", "See note [draft"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			once := NormalizeMessage(tt.in)
			assert.Equal(t, tt.want, once)
			assert.Equal(t, once, NormalizeMessage(once), "normalization must be idempotent")
		})
	}
}
