package protect

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestIsProtected(t *testing.T) {
	c := NewClassifier([]string{"dob", "email", "nhsnumber", "diagnosis"})

	tests := []struct {
		field string
		want  bool
	}{
		{"dob", true},
		{"DOB", true},
		{"clientDob", true},
		{"email", true},
		{"EmailAddress", true},
		{"primaryDiagnosis", true},
		{"nhsNumber", true},
		{"name", false},
		{"rotaEntry", false},
		{"", false},
	}

	for _, tt := range tests {
		t.Run(tt.field, func(t *testing.T) {
			assert.Equal(t, tt.want, c.IsProtected(tt.field))
		})
	}
}

func TestMaskValue(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{"john@example.com", "jo************om"},
		{"07700900123", "07*******23"},
		{"abcd", "***"},
		{"ab", "***"},
		{"", "***"},
		{"abcde", "ab*de"},
	}

	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			assert.Equal(t, tt.want, MaskValue(tt.in))
		})
	}
}
