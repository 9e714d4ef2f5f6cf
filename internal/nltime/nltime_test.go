package nltime

import (
	"testing"
	"time"
)

// Fixed reference time for deterministic assertions.
var refNow = time.Date(2025, time.March, 10, 9, 30, 0, 0, time.UTC)

func TestNormalize_ExplicitClockTime(t *testing.T) {
	got := Normalize("3pm", refNow)
	want := time.Date(2025, time.March, 10, 15, 0, 0, 0, time.UTC)
	if !got.Equal(want) {
		t.Errorf("Normalize(3pm) = %v, want %v", got, want)
	}
}

func TestNormalize_MinutesVariantsAgree(t *testing.T) {
	a := Normalize("3pm", refNow)
	b := Normalize("3:00pm", refNow)
	if !a.Equal(b) {
		t.Errorf("3pm and 3:00pm must normalize identically: %v vs %v", a, b)
	}
}

func TestNormalize_Tomorrow(t *testing.T) {
	got := Normalize("tomorrow 2pm", refNow)
	want := time.Date(2025, time.March, 11, 14, 0, 0, 0, time.UTC)
	if !got.Equal(want) {
		t.Errorf("Normalize(tomorrow 2pm) = %v, want %v", got, want)
	}
}

func TestNormalize_NextWeek(t *testing.T) {
	got := Normalize("next week 10am", refNow)
	want := time.Date(2025, time.March, 17, 10, 0, 0, 0, time.UTC)
	if !got.Equal(want) {
		t.Errorf("Normalize(next week 10am) = %v, want %v", got, want)
	}
}

func TestNormalize_ExplicitDate(t *testing.T) {
	got := Normalize("2025-04-01 9am", refNow)
	want := time.Date(2025, time.April, 1, 9, 0, 0, 0, time.UTC)
	if !got.Equal(want) {
		t.Errorf("Normalize(2025-04-01 9am) = %v, want %v", got, want)
	}
}

func TestNormalize_TimezoneOffset(t *testing.T) {
	got := Normalize("5pm CAT", refNow)
	if got.Hour() != 15 {
		t.Errorf("Normalize(5pm CAT) hour = %d, want 15", got.Hour())
	}
	if got.Day() != refNow.Day() {
		t.Errorf("Normalize(5pm CAT) day = %d, want %d", got.Day(), refNow.Day())
	}
}

func TestNormalize_ESTNoWrap(t *testing.T) {
	// 1am EST is 6am UTC on the same calendar date; the raw sum stays
	// within [0,24) so no day shift occurs.
	got := Normalize("1am EST", refNow)
	if got.Hour() != 6 {
		t.Errorf("Normalize(1am EST) hour = %d, want 6", got.Hour())
	}
	if got.Day() != refNow.Day() {
		t.Errorf("Normalize(1am EST) day = %d, want %d", got.Day(), refNow.Day())
	}
}

func TestNormalize_DayBoundaryForwardWrap(t *testing.T) {
	// 11pm EST is 4am UTC the next day.
	got := Normalize("11pm EST", refNow)
	if got.Hour() != 4 {
		t.Errorf("Normalize(11pm EST) hour = %d, want 4", got.Hour())
	}
	if got.Day() != refNow.Day()+1 {
		t.Errorf("Normalize(11pm EST) day = %d, want %d", got.Day(), refNow.Day()+1)
	}
}

func TestNormalize_DayBoundaryBackwardWrap(t *testing.T) {
	// 1am SAST (+2) is 11pm UTC the previous day.
	got := Normalize("1am SAST", refNow)
	if got.Hour() != 23 {
		t.Errorf("Normalize(1am SAST) hour = %d, want 23", got.Hour())
	}
	if got.Day() != refNow.Day()-1 {
		t.Errorf("Normalize(1am SAST) day = %d, want %d", got.Day(), refNow.Day()-1)
	}
}

func TestNormalize_NoonAndMidnight(t *testing.T) {
	noon := Normalize("12pm", refNow)
	if noon.Hour() != 12 {
		t.Errorf("Normalize(12pm) hour = %d, want 12", noon.Hour())
	}
	midnight := Normalize("12am", refNow)
	if midnight.Hour() != 0 {
		t.Errorf("Normalize(12am) hour = %d, want 0", midnight.Hour())
	}
}

func TestNormalize_RangeUsesStart(t *testing.T) {
	hyphen := Normalize("2pm - 4pm", refNow)
	if hyphen.Hour() != 14 {
		t.Errorf("range with hyphen: hour = %d, want 14", hyphen.Hour())
	}
	enDash := Normalize("2:30pm – 4pm", refNow)
	if enDash.Hour() != 14 || enDash.Minute() != 30 {
		t.Errorf("range with en-dash: got %v, want 14:30", enDash)
	}
}

func TestNormalize_FallbackOneHour(t *testing.T) {
	got := Normalize("whenever works", refNow)
	want := refNow.Add(time.Hour).Truncate(time.Minute)
	if !got.Equal(want) {
		t.Errorf("fallback = %v, want now+1h = %v", got, want)
	}
}

func TestAddOneHour(t *testing.T) {
	start := time.Date(2025, time.March, 10, 15, 0, 0, 0, time.UTC)
	end := AddOneHour(start)
	if end.Sub(start) != time.Hour {
		t.Errorf("AddOneHour delta = %v, want 1h", end.Sub(start))
	}
}

func TestHasClockTime(t *testing.T) {
	if !HasClockTime("let's do 3:15pm") {
		t.Error("expected clock time to be detected")
	}
	if HasClockTime("sometime soon") {
		t.Error("expected no clock time")
	}
}

func TestFindClockTime(t *testing.T) {
	got := FindClockTime("tomorrow 5pm works")
	if got != "5pm" {
		t.Errorf("FindClockTime = %q, want %q", got, "5pm")
	}
	if FindClockTime("no time here") != "" {
		t.Error("expected empty result for fragment without clock time")
	}
}
