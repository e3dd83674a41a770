// Package tracking produces and validates the public tracking codes handed
// to students after a submission. Codes are exchanged out-of-band (printouts,
// screenshots), so the format must stay exactly reproducible.
package tracking

import (
	"crypto/rand"
	"fmt"
	"regexp"
	"time"
)

const (
	prefix      = "SPUP_Clearance"
	suffixLen   = 6
	suffixChars = "ABCDEFGHIJKLMNOPQRSTUVWXYZ0123456789"
)

var codePattern = regexp.MustCompile(`^SPUP_Clearance_\d{4}_[A-Z0-9]{6}$`)

// Generator builds tracking codes of the form SPUP_Clearance_<YYYY>_<C6>.
// The zero value is not usable; construct via NewGenerator.
type Generator struct {
	now func() time.Time
}

// NewGenerator returns a Generator using the wall clock for the year part.
func NewGenerator() *Generator {
	return &Generator{now: time.Now}
}

// NewGeneratorAt returns a Generator with an injected clock.
func NewGeneratorAt(now func() time.Time) *Generator {
	if now == nil {
		now = time.Now
	}
	return &Generator{now: now}
}

// Generate returns a fresh tracking code. No uniqueness check is performed
// here; the intake path retries on duplicate-key conflicts instead.
func (g *Generator) Generate() string {
	year := g.now().Year()
	return fmt.Sprintf("%s_%d_%s", prefix, year, randomSuffix())
}

// Validate reports whether candidate matches the exact tracking code format.
// Case-sensitive, four-digit year, no surrounding whitespace.
func Validate(candidate string) bool {
	return codePattern.MatchString(candidate)
}

func randomSuffix() string {
	buf := make([]byte, suffixLen)
	if _, err := rand.Read(buf); err != nil {
		// crypto/rand failure is effectively fatal for the process; keep
		// intake alive on a clock-derived suffix instead. Each byte comes
		// from a fresh clock read so back-to-back failures still diverge.
		clockFill(buf)
	}
	out := make([]byte, suffixLen)
	for i, b := range buf {
		out[i] = suffixChars[int(b)%len(suffixChars)]
	}
	return string(out)
}

func clockFill(buf []byte) {
	for i := range buf {
		buf[i] = byte(time.Now().UnixNano())
	}
}
