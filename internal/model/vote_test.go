package model

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestParseCategories(t *testing.T) {
	testCases := []struct {
		name   string
		labels []string
		want   []Category
	}{
		{"keeps order", []string{"Friday", "Monday"}, []Category{"Friday", "Monday"}},
		{"drops blanks", []string{"", "Monday", "  "}, []Category{"Monday"}},
		{"trims labels", []string{" Monday ", "Tuesday"}, []Category{"Monday", "Tuesday"}},
		{"drops exact repeats", []string{"Monday", "Monday"}, []Category{"Monday"}},
		{"drops repeats differing in case", []string{"Mon", "mon", "MON", "Tue"}, []Category{"Mon", "Tue"}},
		{"empty", nil, []Category{}},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.want, ParseCategories(tc.labels))
		})
	}
}
