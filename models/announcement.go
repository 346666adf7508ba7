package models

import "time"

// Announcement categories.
const (
	AnnouncementTraining    = "TRAINING"
	AnnouncementSparring    = "SPARRING"
	AnnouncementTournament  = "TOURNAMENT"
	AnnouncementBriefing    = "BRIEFING"
	AnnouncementRecruitment = "RECRUITMENT"
	AnnouncementEvent       = "EVENT"
	AnnouncementInfo        = "INFO"
)

// Schedule representations an announcement may carry. WEEKLY announcements
// recur on a named weekday with a "HH.MM-HH.MM" time range; DATETIME
// announcements happen once at an absolute instant.
const (
	ScheduleWeekly   = "WEEKLY"
	ScheduleDatetime = "DATETIME"
)

// Announcement is a scheduled club event or notice. Its schedule fields drive
// the attendance check-in window.
type Announcement struct {
	ID           uint       `gorm:"primaryKey" json:"id"`
	Title        string     `gorm:"size:255;not null" json:"title"`
	Type         string     `gorm:"size:32;not null;default:'INFO'" json:"type"`
	ScheduleKind string     `gorm:"size:16;not null;default:'WEEKLY'" json:"schedule_kind"`
	Day          string     `gorm:"size:16" json:"day"`        // Indonesian weekday name, WEEKLY kind
	TimeRange    string     `gorm:"size:16" json:"time_range"` // "HH.MM-HH.MM", WEEKLY kind
	Datetime     *time.Time `json:"datetime"`                  // absolute instant, DATETIME kind
	Location     string     `gorm:"size:255;not null" json:"location"`
	LocationLink string     `gorm:"size:512" json:"location_link"`
	ImageURL     string     `gorm:"size:512" json:"image_url"`
	Content      string     `gorm:"type:text" json:"content"`
	CreatedBy    uint       `gorm:"index;not null" json:"created_by"`
	CreatedAt    time.Time  `json:"created_at"`
	UpdatedAt    time.Time  `json:"updated_at"`

	Sessions []AttendanceSession `gorm:"constraint:OnUpdate:CASCADE,OnDelete:CASCADE;" json:"-"`
}

// ValidAnnouncementType reports whether t is one of the known categories.
func ValidAnnouncementType(t string) bool {
	switch t {
	case AnnouncementTraining, AnnouncementSparring, AnnouncementTournament,
		AnnouncementBriefing, AnnouncementRecruitment, AnnouncementEvent, AnnouncementInfo:
		return true
	}
	return false
}
