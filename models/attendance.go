package models

import "time"

// Attendance statuses. ABSENT is never stored; absence is derived as the
// member roster minus users with a row in the session.
const (
	StatusPresent = "PRESENT"
	StatusLate    = "LATE"
	StatusExcused = "EXCUSED"
)

// Session lifecycle states.
const (
	SessionOpen   = "OPEN"
	SessionClosed = "CLOSED"
)

// AttendanceSession is one attendance-taking occurrence for an announcement on
// a specific calendar date. At most one session exists per (announcement, date);
// the composite unique index is the concurrency guard for lazy creation.
type AttendanceSession struct {
	ID             uint       `gorm:"primaryKey" json:"id"`
	AnnouncementID uint       `gorm:"index:idx_session_ann_date,unique;not null" json:"announcement_id"`
	Date           time.Time  `gorm:"index:idx_session_ann_date,unique;not null" json:"date"` // local midnight
	OpenedAt       time.Time  `gorm:"not null" json:"opened_at"`
	ClosedAt       *time.Time `json:"closed_at"`
	State          string     `gorm:"size:16;not null;default:'OPEN'" json:"state"`
	CreatedAt      time.Time  `json:"created_at"`
	UpdatedAt      time.Time  `json:"updated_at"`

	Attendances []Attendance `gorm:"foreignKey:SessionID;constraint:OnUpdate:CASCADE,OnDelete:CASCADE;" json:"-"`
}

// Attendance records one user's mark against a session. A user has at most one
// row per session; re-check-in overwrites status and note in place.
type Attendance struct {
	ID        uint      `gorm:"primaryKey" json:"id"`
	SessionID uint      `gorm:"index:idx_att_session_user,unique;not null" json:"session_id"`
	UserID    uint      `gorm:"index;index:idx_att_session_user,unique;not null" json:"user_id"`
	Status    string    `gorm:"size:16;not null;default:'PRESENT'" json:"status"`
	Note      string    `gorm:"size:255" json:"note"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// ValidAttendanceStatus reports whether s is a storable status.
func ValidAttendanceStatus(s string) bool {
	switch s {
	case StatusPresent, StatusLate, StatusExcused:
		return true
	}
	return false
}
