package transcript

import (
	"testing"
	"time"
)

func TestReferenceClockNeverRepeats(t *testing.T) {
	fixed := time.Date(2026, 10, 18, 15, 30, 45, 123456789, time.UTC)
	clock := newReferenceClock(func() time.Time { return fixed })

	first := clock.next()
	second := clock.next()
	third := clock.next()
	if first != "20261018T153045.123456789Z" {
		t.Fatalf("unexpected first reference %q", first)
	}
	if second != "20261018T153045.123456790Z" || third != "20261018T153045.123456791Z" {
		t.Fatalf("expected monotonic bump, got %q %q", second, third)
	}
}

func TestReferenceClockHandlesBackwardsTime(t *testing.T) {
	times := []time.Time{
		time.Date(2026, 1, 1, 0, 0, 1, 0, time.UTC),
		time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC),
	}
	idx := 0
	clock := newReferenceClock(func() time.Time {
		t := times[idx]
		if idx < len(times)-1 {
			idx++
		}
		return t
	})
	first := clock.next()
	second := clock.next()
	if second <= first {
		t.Fatalf("expected increasing references, got %q then %q", first, second)
	}
}

func TestReferenceValidate(t *testing.T) {
	valid := []Reference{"20261018T153045.123456789Z", "19991231T235959.000000000Z"}
	for _, ref := range valid {
		if err := ref.Validate(); err != nil {
			t.Fatalf("Validate(%q): %v", ref, err)
		}
	}
	invalid := []Reference{"", "../etc/passwd", "20261018T153045Z", "20261318T153045.123456789Z", "20261018T153045.123456789Z.txt"}
	for _, ref := range invalid {
		if err := ref.Validate(); err == nil {
			t.Fatalf("expected Validate(%q) to fail", ref)
		}
	}
}
