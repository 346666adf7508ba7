package controllers

import (
	"errors"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"

	"github.com/zidanindratama/be-gunasmash/config"
	"github.com/zidanindratama/be-gunasmash/models"
	"github.com/zidanindratama/be-gunasmash/utils"
)

// AnnouncementController handles announcement CRUD.
type AnnouncementController struct {
	db  *gorm.DB
	loc *time.Location
}

// NewAnnouncementController creates a new controller instance.
func NewAnnouncementController(db *gorm.DB, loc *time.Location) *AnnouncementController {
	return &AnnouncementController{db: db, loc: loc}
}

var announcementSortColumns = map[string]string{
	"title":      "title",
	"type":       "type",
	"created_at": "created_at",
}

type announcementRequest struct {
	Title        string     `json:"title" binding:"required,max=255"`
	Type         string     `json:"type" binding:"required"`
	ScheduleKind string     `json:"schedule_kind" binding:"omitempty,oneof=WEEKLY DATETIME"`
	Day          string     `json:"day" binding:"omitempty,max=16"`
	TimeRange    string     `json:"time_range" binding:"omitempty,max=16"`
	Datetime     *time.Time `json:"datetime"`
	Location     string     `json:"location" binding:"required,max=255"`
	LocationLink string     `json:"location_link" binding:"omitempty,url,max=512"`
	ImageURL     string     `json:"image_url" binding:"omitempty,url,max=512"`
	Content      string     `json:"content"`
}

// validateSchedule checks that the fields required by the schedule kind are present.
func validateSchedule(req *announcementRequest) (int, string) {
	if req.ScheduleKind == "" {
		req.ScheduleKind = models.ScheduleWeekly
	}
	switch req.ScheduleKind {
	case models.ScheduleWeekly:
		if strings.TrimSpace(req.Day) == "" || strings.TrimSpace(req.TimeRange) == "" {
			return 40042, "weekly schedules require day and time_range"
		}
	case models.ScheduleDatetime:
		if req.Datetime == nil {
			return 40043, "datetime schedules require datetime"
		}
	}
	return 0, ""
}

// List returns paginated announcements with optional search and type filter.
func (a *AnnouncementController) List(ctx *gin.Context) {
	cfg := config.Get()
	params := utils.ParseListParams(ctx, cfg.DefaultPageSize, cfg.MaxPageSize)

	query := a.db.Model(&models.Announcement{})
	if params.Search != "" {
		like := "%" + params.Search + "%"
		query = query.Where("title LIKE ? OR content LIKE ? OR day LIKE ? OR location LIKE ?",
			like, like, like, like)
	}
	if t := strings.TrimSpace(ctx.Query("type")); t != "" {
		query = query.Where("type = ?", strings.ToUpper(t))
	}

	var total int64
	if err := query.Count(&total).Error; err != nil {
		utils.Error(ctx, http.StatusInternalServerError, 50040, "failed to count announcements")
		return
	}

	var announcements []models.Announcement
	if err := query.Order(params.OrderClause(announcementSortColumns, "created_at DESC")).
		Offset(params.Skip).Limit(params.Limit).
		Find(&announcements).Error; err != nil {
		utils.Error(ctx, http.StatusInternalServerError, 50041, "failed to list announcements")
		return
	}

	utils.Success(ctx, gin.H{
		"announcements": announcements,
		"meta":          utils.NewPageMeta(params.Page, params.Limit, total),
	})
}

// Get returns a single announcement together with its current check-in window.
func (a *AnnouncementController) Get(ctx *gin.Context) {
	id, err := strconv.ParseUint(ctx.Param("id"), 10, 32)
	if err != nil {
		utils.Error(ctx, http.StatusBadRequest, 40040, "invalid announcement id")
		return
	}

	var ann models.Announcement
	if err := a.db.First(&ann, uint(id)).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			utils.Error(ctx, http.StatusNotFound, 40440, "announcement not found")
			return
		}
		utils.Error(ctx, http.StatusInternalServerError, 50042, "failed to load announcement")
		return
	}

	now := time.Now().In(a.loc)
	var w utils.Window
	if ann.ScheduleKind == models.ScheduleDatetime && ann.Datetime != nil {
		day := utils.NormalizeLocalDate(ann.Datetime.In(a.loc))
		w = utils.Window{Start: day, End: day.AddDate(0, 0, 1).Add(-time.Nanosecond), TargetDate: day}
	} else {
		w = utils.ParseTimeRange(ann.Day, ann.TimeRange, now)
	}

	utils.Success(ctx, gin.H{
		"announcement": ann,
		"window": gin.H{
			"start":       w.Start,
			"end":         w.End,
			"target_date": w.TargetDate.Format("2006-01-02"),
			"open":        utils.IsWithinWindow(now, w),
		},
	})
}

// Create adds a new announcement. Content is sanitized before storage.
func (a *AnnouncementController) Create(ctx *gin.Context) {
	actorID, ok := getUserID(ctx)
	if !ok {
		utils.Error(ctx, http.StatusUnauthorized, 40110, "unauthorized")
		return
	}

	var req announcementRequest
	if err := ctx.ShouldBindJSON(&req); err != nil {
		utils.Error(ctx, http.StatusBadRequest, 40041, "invalid announcement payload")
		return
	}

	req.Type = strings.ToUpper(strings.TrimSpace(req.Type))
	if !models.ValidAnnouncementType(req.Type) {
		utils.Error(ctx, http.StatusBadRequest, 40044, "unknown announcement type")
		return
	}
	if code, msg := validateSchedule(&req); code != 0 {
		utils.Error(ctx, http.StatusBadRequest, code, msg)
		return
	}

	ann := models.Announcement{
		Title:        strings.TrimSpace(req.Title),
		Type:         req.Type,
		ScheduleKind: req.ScheduleKind,
		Day:          strings.TrimSpace(req.Day),
		TimeRange:    strings.TrimSpace(req.TimeRange),
		Datetime:     req.Datetime,
		Location:     strings.TrimSpace(req.Location),
		LocationLink: req.LocationLink,
		ImageURL:     req.ImageURL,
		Content:      utils.Sanitize(req.Content),
		CreatedBy:    actorID,
	}
	if err := a.db.Create(&ann).Error; err != nil {
		utils.Error(ctx, http.StatusInternalServerError, 50043, "failed to create announcement")
		return
	}

	utils.Success(ctx, ann)
}

// Update replaces an announcement's editable fields.
func (a *AnnouncementController) Update(ctx *gin.Context) {
	id, err := strconv.ParseUint(ctx.Param("id"), 10, 32)
	if err != nil {
		utils.Error(ctx, http.StatusBadRequest, 40040, "invalid announcement id")
		return
	}

	var ann models.Announcement
	if err := a.db.First(&ann, uint(id)).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			utils.Error(ctx, http.StatusNotFound, 40440, "announcement not found")
			return
		}
		utils.Error(ctx, http.StatusInternalServerError, 50042, "failed to load announcement")
		return
	}

	var req announcementRequest
	if err := ctx.ShouldBindJSON(&req); err != nil {
		utils.Error(ctx, http.StatusBadRequest, 40041, "invalid announcement payload")
		return
	}

	req.Type = strings.ToUpper(strings.TrimSpace(req.Type))
	if !models.ValidAnnouncementType(req.Type) {
		utils.Error(ctx, http.StatusBadRequest, 40044, "unknown announcement type")
		return
	}
	if code, msg := validateSchedule(&req); code != 0 {
		utils.Error(ctx, http.StatusBadRequest, code, msg)
		return
	}

	ann.Title = strings.TrimSpace(req.Title)
	ann.Type = req.Type
	ann.ScheduleKind = req.ScheduleKind
	ann.Day = strings.TrimSpace(req.Day)
	ann.TimeRange = strings.TrimSpace(req.TimeRange)
	ann.Datetime = req.Datetime
	ann.Location = strings.TrimSpace(req.Location)
	ann.LocationLink = req.LocationLink
	ann.ImageURL = req.ImageURL
	ann.Content = utils.Sanitize(req.Content)

	if err := a.db.Save(&ann).Error; err != nil {
		utils.Error(ctx, http.StatusInternalServerError, 50044, "failed to update announcement")
		return
	}

	utils.Success(ctx, ann)
}

// Delete removes an announcement together with its sessions and attendance rows.
func (a *AnnouncementController) Delete(ctx *gin.Context) {
	id, err := strconv.ParseUint(ctx.Param("id"), 10, 32)
	if err != nil {
		utils.Error(ctx, http.StatusBadRequest, 40040, "invalid announcement id")
		return
	}

	var ann models.Announcement
	if err := a.db.First(&ann, uint(id)).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			utils.Error(ctx, http.StatusNotFound, 40440, "announcement not found")
			return
		}
		utils.Error(ctx, http.StatusInternalServerError, 50042, "failed to load announcement")
		return
	}

	err = a.db.Transaction(func(tx *gorm.DB) error {
		var sessionIDs []uint
		if err := tx.Model(&models.AttendanceSession{}).
			Where("announcement_id = ?", ann.ID).
			Pluck("id", &sessionIDs).Error; err != nil {
			return err
		}
		if len(sessionIDs) > 0 {
			if err := tx.Where("session_id IN ?", sessionIDs).Delete(&models.Attendance{}).Error; err != nil {
				return err
			}
			if err := tx.Where("announcement_id = ?", ann.ID).Delete(&models.AttendanceSession{}).Error; err != nil {
				return err
			}
		}
		return tx.Delete(&models.Announcement{}, ann.ID).Error
	})
	if err != nil {
		utils.Error(ctx, http.StatusInternalServerError, 50045, "failed to delete announcement")
		return
	}

	utils.Success(ctx, gin.H{"deleted": true})
}
