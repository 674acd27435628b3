package util

import (
	"database/sql"
	"testing"
	"time"
)

func TestFormatNumber(t *testing.T) {
	tests := []struct {
		in   int64
		want string
	}{
		{500, "500"},
		{1500, "1.5K"},
		{1500000, "1.5M"},
	}
	for _, tt := range tests {
		if got := FormatNumber(tt.in); got != tt.want {
			t.Errorf("FormatNumber(%d) = %q, want %q", tt.in, got, tt.want)
		}
	}
}

func TestNullTimeRoundTrip(t *testing.T) {
	ts := time.Date(2026, 5, 4, 3, 2, 1, 500, time.UTC)

	ns := NullTime(&ts)
	if !ns.Valid {
		t.Fatal("expected valid NullString")
	}
	got := NullTimeToPtr(ns)
	if got == nil || !got.Equal(ts) {
		t.Errorf("round trip: got %v, want %v", got, ts)
	}

	if NullTime(nil).Valid {
		t.Error("nil time must be null")
	}
	if NullTimeToPtr(sql.NullString{String: "garbage", Valid: true}) != nil {
		t.Error("unparsable time must be nil")
	}
}

func TestGetXDGDataDir(t *testing.T) {
	t.Setenv("XDG_DATA_HOME", "/tmp/xdg")
	dir, err := GetXDGDataDir()
	if err != nil {
		t.Fatal(err)
	}
	if dir != "/tmp/xdg/splitr" {
		t.Errorf("got %q", dir)
	}
}
