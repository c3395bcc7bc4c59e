package models

import (
	"time"
)

const (
	DisplayIDPrefix       = "Youth"
	LegacyDisplayIDPrefix = "STU"
)

// ProfileFields are the self-reported attributes collected by the
// registration form. Everything except Name and Email is optional.
type ProfileFields struct {
	Name                       string `json:"name" validate:"required"`
	Street                     string `json:"street,omitempty"`
	Zone                       string `json:"zone,omitempty"`
	Sex                        string `json:"sex,omitempty"`
	Birthdate                  string `json:"birthdate,omitempty"`
	Email                      string `json:"email" validate:"required,email"`
	Phone                      string `json:"phone,omitempty"`
	CivilStatus                string `json:"civil_status,omitempty"`
	YouthAgeGroup              string `json:"youth_age_group,omitempty"`
	YouthClassification        string `json:"youth_classification,omitempty"`
	SpecificNeedsType          string `json:"specific_needs_type,omitempty"`
	EducationalBackground      string `json:"educational_background,omitempty"`
	EducationalBackgroundOther string `json:"educational_background_other,omitempty"`
	WorkStatus                 string `json:"work_status,omitempty"`
	WorkStatusOther            string `json:"work_status_other,omitempty"`
	SKVoterRegistered          string `json:"sk_voter_registered,omitempty"`
	SKVotedLastElection        string `json:"sk_voted_last_election,omitempty"`
	NationalVoterRegistered    string `json:"national_voter_registered,omitempty"`
	AttendedKKAssembly         string `json:"attended_kk_assembly,omitempty"`
	KKAssemblyTimes            string `json:"kk_assembly_times,omitempty"`
	KKAssemblyNoReason         string `json:"kk_assembly_no_reason,omitempty"`
}

type Participant struct {
	ID            string    `json:"user_id" gorm:"primaryKey"`
	DisplayID     string    `json:"id" gorm:"index"`
	ProfileFields `gorm:"embedded"`
	RegisteredAt  time.Time `json:"registration_date" gorm:"not null;index"`
	CreatedAt     time.Time `json:"-"`
	UpdatedAt     time.Time `json:"-"`
}

// DisplayIDChange records every rewrite of a participant's display ID made
// by the backfill/migration pass.
type DisplayIDChange struct {
	ID            uint      `json:"id" gorm:"primaryKey"`
	ParticipantID string    `json:"participant_id" gorm:"index"`
	OldDisplayID  string    `json:"old_display_id"`
	NewDisplayID  string    `json:"new_display_id"`
	Reason        string    `json:"reason"`
	CreatedAt     time.Time `json:"created_at"`
}

const (
	DisplayIDReasonBackfill  = "backfill"
	DisplayIDReasonMigration = "legacy-migration"
)
