package transcript

import (
	"fmt"
	"regexp"
	"sync"
	"time"

	"huddle/internal/services"
)

// ReferenceLayout is the time layout used to derive references.
const ReferenceLayout = "20060102T150405.000000000Z"

var referencePattern = regexp.MustCompile(`^\d{8}T\d{6}\.\d{9}Z$`)

// Reference identifies one persisted transcript.
type Reference string

func (r Reference) String() string { return string(r) }

// Validate rejects anything that is not a well-formed reference, which also
// keeps API-supplied values from escaping the transcripts directory.
func (r Reference) Validate() error {
	if !referencePattern.MatchString(string(r)) {
		return services.Wrap(services.ErrValidation, "transcript", "validate reference", fmt.Sprintf("malformed reference %q", string(r)), nil)
	}
	if _, err := time.Parse(ReferenceLayout, string(r)); err != nil {
		return services.Wrap(services.ErrValidation, "transcript", "validate reference", fmt.Sprintf("malformed reference %q", string(r)), err)
	}
	return nil
}

// Time returns the instant the reference was issued.
func (r Reference) Time() (time.Time, error) {
	return time.Parse(ReferenceLayout, string(r))
}

// ParseReference trims and validates a user-supplied reference.
func ParseReference(value string) (Reference, error) {
	ref := Reference(value)
	if err := ref.Validate(); err != nil {
		return "", err
	}
	return ref, nil
}

// referenceClock issues strictly increasing references within a process.
type referenceClock struct {
	mu   sync.Mutex
	now  func() time.Time
	last time.Time
}

func newReferenceClock(now func() time.Time) *referenceClock {
	if now == nil {
		now = time.Now
	}
	return &referenceClock{now: now}
}

func (c *referenceClock) next() Reference {
	c.mu.Lock()
	defer c.mu.Unlock()
	t := c.now().UTC()
	if !t.After(c.last) {
		t = c.last.Add(time.Nanosecond)
	}
	c.last = t
	return Reference(t.Format(ReferenceLayout))
}
