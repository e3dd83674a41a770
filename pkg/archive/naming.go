package archive

import (
	"regexp"
	"strings"
)

// Namer derives the bundle filename for a submission. Two schemes have been
// used in production deployments: identifier-only and name+identifier. The
// scheme is a deployment choice, so it is injected wherever bundle keys are
// derived.
type Namer func(trackingCode, studentName string) string

// IDNamer names bundles <trackingCode>.zip.
func IDNamer(trackingCode, _ string) string {
	return trackingCode + ".zip"
}

// NameIDNamer names bundles <Sanitized_Name>_<trackingCode>.zip, falling
// back to the identifier-only form when the name sanitizes to nothing.
func NameIDNamer(trackingCode, studentName string) string {
	sanitized := SanitizeName(studentName)
	if sanitized == "" {
		return IDNamer(trackingCode, studentName)
	}
	return sanitized + "_" + trackingCode + ".zip"
}

var (
	disallowedChars = regexp.MustCompile(`[^A-Za-z0-9 ]+`)
	whitespaceRuns  = regexp.MustCompile(`\s+`)
)

// SanitizeName strips every character outside [A-Za-z0-9 ] and collapses
// whitespace runs to a single underscore.
func SanitizeName(raw string) string {
	cleaned := disallowedChars.ReplaceAllString(raw, "")
	cleaned = strings.TrimSpace(cleaned)
	return whitespaceRuns.ReplaceAllString(cleaned, "_")
}
