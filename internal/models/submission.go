package models

import (
	"database/sql/driver"
	"encoding/json"
	"fmt"
	"time"
)

// Level classifies the submitting student.
type Level string

const (
	LevelUndergrad Level = "undergrad"
	LevelGrad      Level = "grad"
)

// ResearchType classifies the submitted research work.
type ResearchType string

const (
	ResearchThesis       ResearchType = "Thesis"
	ResearchCapstone     ResearchType = "Capstone"
	ResearchDissertation ResearchType = "Dissertation"
)

// Status is the clearance review state. Transitions are free in both
// directions by administrator action; there is no terminal state.
type Status string

const (
	StatusSubmitted Status = "Submitted"
	StatusCleared   Status = "Cleared"
)

// GroupMember is one co-author on an undergraduate group submission.
type GroupMember struct {
	Name      string `json:"name"`
	StudentID string `json:"studentID"`
}

// GroupMembers stores the ordered member list as a JSONB column. An empty
// list is persisted as SQL NULL so field absence and empty list stay
// indistinguishable on the read side, matching the write-path normalization.
type GroupMembers []GroupMember

// Value implements driver.Valuer.
func (g GroupMembers) Value() (driver.Value, error) {
	if len(g) == 0 {
		return nil, nil
	}
	return json.Marshal(g)
}

// Scan implements sql.Scanner.
func (g *GroupMembers) Scan(src interface{}) error {
	if src == nil {
		*g = nil
		return nil
	}
	var raw []byte
	switch v := src.(type) {
	case []byte:
		raw = v
	case string:
		raw = []byte(v)
	default:
		return fmt.Errorf("unsupported group members type %T", src)
	}
	return json.Unmarshal(raw, g)
}

// Submission is the sole persistent clearance entity, keyed by the public
// tracking code.
type Submission struct {
	ID              string       `db:"id" json:"id"`
	Level           Level        `db:"level" json:"level"`
	Name            string       `db:"name" json:"name"`
	Email           string       `db:"email" json:"email"`
	StudentID       string       `db:"student_id" json:"studentId"`
	Adviser         string       `db:"adviser" json:"adviser"`
	Course          string       `db:"course" json:"course"`
	GraduationMonth string       `db:"graduation_month" json:"graduationMonth"`
	GraduationYear  string       `db:"graduation_year" json:"graduationYear"`
	ResearchTitle   string       `db:"research_title" json:"researchTitle"`
	ResearchType    ResearchType `db:"research_type" json:"researchType"`
	GroupMembers    GroupMembers `db:"group_members" json:"groupMembers,omitempty"`
	ZipFile         string       `db:"zip_file" json:"zipFile"`
	Status          Status       `db:"status" json:"status"`
	SubmittedAt     time.Time    `db:"submitted_at" json:"submittedAt"`
	IsExported      bool         `db:"is_exported" json:"isExported"`
	ExportedAt      *time.Time   `db:"exported_at" json:"exportedAt,omitempty"`
	ExportLink      *string      `db:"export_link" json:"exportLink,omitempty"`
}

// FilterAll is the sentinel meaning "no constraint" on level/status filters.
const FilterAll = "all"

// SubmissionFilter narrows admin listings. Level, Status and Course are
// pushed down to the store; SearchTerm is applied afterwards in memory and
// therefore cannot be combined with store-side pagination.
type SubmissionFilter struct {
	Level      string
	Status     string
	Course     string
	SearchTerm string
}

// SubmissionUpdate carries a partial edit of descriptive fields. Nil fields
// are left untouched. GroupMembers replaces the whole list when non-nil; an
// empty non-nil list removes the field entirely.
type SubmissionUpdate struct {
	Name            *string
	Email           *string
	StudentID       *string
	Adviser         *string
	Course          *string
	GraduationMonth *string
	GraduationYear  *string
	ResearchTitle   *string
	ResearchType    *ResearchType
	Level           *Level
	GroupMembers    *GroupMembers
}
