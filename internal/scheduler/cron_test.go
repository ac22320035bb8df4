package scheduler

import (
	"testing"
	"time"
)

func TestParseCronField(t *testing.T) {
	tests := []struct {
		name    string
		field   string
		min     int
		max     int
		value   int
		want    bool
		wantErr bool
	}{
		{name: "wildcard matches anything", field: "*", min: 0, max: 59, value: 37, want: true},
		{name: "single value match", field: "30", min: 0, max: 59, value: 30, want: true},
		{name: "single value miss", field: "30", min: 0, max: 59, value: 31, want: false},
		{name: "comma list match", field: "0,15,30,45", min: 0, max: 59, value: 45, want: true},
		{name: "step expands over range", field: "*/3", min: 0, max: 59, value: 57, want: true},
		{name: "step misses off-step value", field: "*/3", min: 0, max: 59, value: 58, want: false},
		{name: "step starts at field min", field: "*/5", min: 1, max: 31, value: 1, want: true},
		{name: "out of range rejected", field: "60", min: 0, max: 59, wantErr: true},
		{name: "zero step rejected", field: "*/0", min: 0, max: 59, wantErr: true},
		{name: "garbage rejected", field: "abc", min: 0, max: 59, wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f, err := parseCronField(tt.field, tt.min, tt.max)
			if tt.wantErr {
				if err == nil {
					t.Fatalf("expected error for %q", tt.field)
				}
				return
			}
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if got := f.matches(tt.value); got != tt.want {
				t.Errorf("matches(%d) = %v, want %v", tt.value, got, tt.want)
			}
		})
	}
}

func TestParseCronRejectsWrongFieldCount(t *testing.T) {
	if _, err := parseCron("0 * * *"); err == nil {
		t.Error("expected error for 4-field expression")
	}
	if _, err := parseCron("0 * * * * *"); err == nil {
		t.Error("expected error for 6-field expression")
	}
}

func TestNextCronTime(t *testing.T) {
	after := time.Date(2026, 8, 31, 10, 17, 42, 0, time.UTC)

	tests := []struct {
		name string
		expr string
		want time.Time
	}{
		{
			name: "every minute fires at next boundary",
			expr: "* * * * *",
			want: time.Date(2026, 8, 31, 10, 18, 0, 0, time.UTC),
		},
		{
			name: "hourly waits for top of hour",
			expr: "0 * * * *",
			want: time.Date(2026, 8, 31, 11, 0, 0, 0, time.UTC),
		},
		{
			name: "daily waits for midnight",
			expr: "0 0 * * *",
			want: time.Date(2026, 9, 1, 0, 0, 0, 0, time.UTC),
		},
		{
			name: "three minute step",
			expr: "*/3 * * * *",
			want: time.Date(2026, 8, 31, 10, 18, 0, 0, time.UTC),
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := nextCronTime(tt.expr, after)
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if !got.Equal(tt.want) {
				t.Errorf("nextCronTime = %v, want %v", got, tt.want)
			}
		})
	}
}
