package models

import "time"

// Blog represents a club blog post written by an admin.
type Blog struct {
	ID        uint      `gorm:"primaryKey" json:"id"`
	Title     string    `gorm:"size:255;not null" json:"title"`
	Slug      string    `gorm:"size:255;uniqueIndex;not null" json:"slug"`
	Content   string    `gorm:"type:text;not null" json:"content"`
	CoverURL  string    `gorm:"size:512" json:"cover_url"`
	Tags      string    `gorm:"type:text" json:"tags"` // JSON array of tag strings
	Published bool      `gorm:"not null;default:false" json:"published"`
	CreatedBy uint      `gorm:"index;not null" json:"created_by"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}
