package school

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestParseWeekday(t *testing.T) {
	tests := []struct {
		day      int
		want     Weekday
		wantName string
		wantErr  bool
	}{
		{day: 0, wantErr: true},
		{day: 1, want: Monday, wantName: "Понедельник"},
		{day: 2, want: Tuesday, wantName: "Вторник"},
		{day: 3, want: Wednesday, wantName: "Среда"},
		{day: 4, want: Thursday, wantName: "Четверг"},
		{day: 5, want: Friday, wantName: "Пятница"},
		{day: 6, wantErr: true},
		{day: 7, wantErr: true},
	}
	for _, tc := range tests {
		got, err := ParseWeekday(tc.day)
		if tc.wantErr {
			assert.ErrorIs(t, err, errInvalidWeekday, "day %d", tc.day)
			assert.Empty(t, Weekday(tc.day).Name())
			continue
		}
		assert.NoError(t, err)
		assert.Equal(t, tc.want, got)
		assert.Equal(t, tc.wantName, got.Name())
	}
}
