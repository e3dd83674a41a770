package service

import (
	"strings"

	"github.com/spup-cprint/clearance-api/internal/models"
)

// ApplySearch filters submissions by a free-text term. Matching is
// case-insensitive substring over name, student id, research title and
// email; a record matches when any one field does. An empty term returns
// the input unchanged.
func ApplySearch(records []models.Submission, term string) []models.Submission {
	trimmed := strings.TrimSpace(term)
	if trimmed == "" {
		return records
	}
	needle := strings.ToLower(trimmed)

	matched := make([]models.Submission, 0, len(records))
	for _, record := range records {
		if matchesSearch(record, needle) {
			matched = append(matched, record)
		}
	}
	return matched
}

func matchesSearch(record models.Submission, needle string) bool {
	fields := []string{
		record.Name,
		record.StudentID,
		record.ResearchTitle,
		record.Email,
	}
	for _, field := range fields {
		if strings.Contains(strings.ToLower(field), needle) {
			return true
		}
	}
	return false
}
