package controllers

import (
	"errors"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"

	"github.com/zidanindratama/be-gunasmash/models"
	"github.com/zidanindratama/be-gunasmash/utils"
)

// StatsController serves aggregate dashboards for admins.
type StatsController struct {
	db  *gorm.DB
	loc *time.Location
	now func() time.Time
}

// NewStatsController creates a new controller instance.
func NewStatsController(db *gorm.DB, loc *time.Location) *StatsController {
	return &StatsController{db: db, loc: loc, now: time.Now}
}

const globalStatsCacheKey = "cache:stats:global"

type globalStats struct {
	Users struct {
		Total   int64 `json:"total"`
		Admins  int64 `json:"admins"`
		Members int64 `json:"members"`
	} `json:"users"`
	Announcements int64 `json:"announcements"`
	Blogs         struct {
		Total       int64 `json:"total"`
		Published   int64 `json:"published"`
		Unpublished int64 `json:"unpublished"`
	} `json:"blogs"`
	Sessions struct {
		Total        int64 `json:"total"`
		Today        int64 `json:"today"`
		UpcomingOpen int64 `json:"upcoming_open"`
	} `json:"sessions"`
}

// Global returns sitewide counters. Results are cached briefly in Redis since
// the dashboard polls them.
func (s *StatsController) Global(ctx *gin.Context) {
	if b, ok := utils.CacheGetBytes(globalStatsCacheKey); ok {
		ctx.Data(http.StatusOK, "application/json; charset=utf-8", b)
		return
	}

	today := utils.NormalizeLocalDate(s.now().In(s.loc))

	var stats globalStats
	counts := []struct {
		dest  *int64
		query *gorm.DB
	}{
		{&stats.Users.Total, s.db.Model(&models.User{})},
		{&stats.Users.Admins, s.db.Model(&models.User{}).Where("role = ?", models.RoleAdmin)},
		{&stats.Users.Members, s.db.Model(&models.User{}).Where("role = ?", models.RoleMember)},
		{&stats.Announcements, s.db.Model(&models.Announcement{})},
		{&stats.Blogs.Total, s.db.Model(&models.Blog{})},
		{&stats.Blogs.Published, s.db.Model(&models.Blog{}).Where("published = ?", true)},
		{&stats.Sessions.Total, s.db.Model(&models.AttendanceSession{})},
		{&stats.Sessions.Today, s.db.Model(&models.AttendanceSession{}).Where("date = ?", today)},
		{&stats.Sessions.UpcomingOpen, s.db.Model(&models.AttendanceSession{}).
			Where("date >= ? AND state = ?", today, models.SessionOpen)},
	}
	for _, c := range counts {
		if err := c.query.Count(c.dest).Error; err != nil {
			utils.Error(ctx, http.StatusInternalServerError, 50070, "failed to compute stats")
			return
		}
	}
	stats.Blogs.Unpublished = stats.Blogs.Total - stats.Blogs.Published

	body := utils.JSONResponse{Code: 0, Message: "success", Data: stats}
	utils.CacheSetJSON(globalStatsCacheKey, body, 30*time.Second)
	ctx.JSON(http.StatusOK, body)
}

type attendanceStats struct {
	TotalMembers int64 `json:"total_members"`
	Present      int64 `json:"present"`
	Late         int64 `json:"late"`
	Excused      int64 `json:"excused"`
	Absent       int64 `json:"absent"`
}

// Attendance returns the per-status breakdown for one announcement session.
// Absence is derived: members without any stored row count as absent.
func (s *StatsController) Attendance(ctx *gin.Context) {
	annID, err := strconv.ParseUint(strings.TrimSpace(ctx.Query("announcement_id")), 10, 32)
	if err != nil || annID == 0 {
		utils.Error(ctx, http.StatusBadRequest, 40070, "announcement_id is required")
		return
	}

	var ann models.Announcement
	if err := s.db.First(&ann, uint(annID)).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			utils.Error(ctx, http.StatusNotFound, 40470, "announcement not found")
			return
		}
		utils.Error(ctx, http.StatusInternalServerError, 50071, "failed to load announcement")
		return
	}

	now := s.now().In(s.loc)
	date := now
	if v := strings.TrimSpace(ctx.Query("date")); v != "" {
		parsed, ok := utils.ParseYMD(v, s.loc)
		if !ok {
			utils.Error(ctx, http.StatusBadRequest, 40071, "invalid date format, use YYYY or YYYY-MM or YYYY-MM-DD")
			return
		}
		date = parsed
	} else if ann.ScheduleKind == models.ScheduleDatetime && ann.Datetime != nil {
		date = ann.Datetime.In(s.loc)
	} else if ann.ScheduleKind == models.ScheduleWeekly {
		date = utils.ParseTimeRange(ann.Day, ann.TimeRange, now).TargetDate
	}
	day := utils.NormalizeLocalDate(date)

	var stats attendanceStats
	if err := s.db.Model(&models.User{}).Where("role = ?", models.RoleMember).
		Count(&stats.TotalMembers).Error; err != nil {
		utils.Error(ctx, http.StatusInternalServerError, 50072, "failed to count members")
		return
	}

	var session models.AttendanceSession
	err = s.db.Where("announcement_id = ? AND date = ?", uint(annID), day).First(&session).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		stats.Absent = stats.TotalMembers
		utils.Success(ctx, gin.H{"date": day.Format("2006-01-02"), "stats": stats})
		return
	}
	if err != nil {
		utils.Error(ctx, http.StatusInternalServerError, 50073, "failed to load session")
		return
	}

	type statusCount struct {
		Status string
		N      int64
	}
	var rows []statusCount
	if err := s.db.Model(&models.Attendance{}).
		Select("status, COUNT(*) AS n").
		Where("session_id = ?", session.ID).
		Group("status").
		Scan(&rows).Error; err != nil {
		utils.Error(ctx, http.StatusInternalServerError, 50074, "failed to aggregate attendance")
		return
	}

	var marked int64
	for _, row := range rows {
		marked += row.N
		switch row.Status {
		case models.StatusPresent:
			stats.Present = row.N
		case models.StatusLate:
			stats.Late = row.N
		case models.StatusExcused:
			stats.Excused = row.N
		}
	}
	stats.Absent = stats.TotalMembers - marked
	if stats.Absent < 0 {
		stats.Absent = 0
	}

	utils.Success(ctx, gin.H{"date": day.Format("2006-01-02"), "session": session, "stats": stats})
}
