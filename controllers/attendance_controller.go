package controllers

import (
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/zidanindratama/be-gunasmash/config"
	"github.com/zidanindratama/be-gunasmash/models"
	"github.com/zidanindratama/be-gunasmash/utils"
)

// AttendanceController handles check-in, session summaries, and CSV export.
type AttendanceController struct {
	db  *gorm.DB
	loc *time.Location
	now func() time.Time
}

// NewAttendanceController creates a new controller instance.
func NewAttendanceController(db *gorm.DB, loc *time.Location) *AttendanceController {
	return &AttendanceController{db: db, loc: loc, now: time.Now}
}

// apiError carries an HTTP status alongside a domain error so summary logic
// can be shared between the JSON and CSV endpoints.
type apiError struct {
	status  int
	code    int
	message string
}

func (e *apiError) Error() string { return e.message }

// windowFor derives the check-in window for an announcement relative to base.
// WEEKLY schedules project the named weekday onto the current week; DATETIME
// schedules open for the whole calendar date of the stored instant.
func (a *AttendanceController) windowFor(ann *models.Announcement, base time.Time) utils.Window {
	if ann.ScheduleKind == models.ScheduleDatetime && ann.Datetime != nil {
		day := utils.NormalizeLocalDate(ann.Datetime.In(a.loc))
		return utils.Window{
			Start:      day,
			End:        day.AddDate(0, 0, 1).Add(-time.Nanosecond),
			TargetDate: day,
		}
	}
	return utils.ParseTimeRange(ann.Day, ann.TimeRange, base)
}

// resolveDate picks the session date: an explicit YYYY[-MM[-DD]] parameter
// wins, otherwise the announcement's own schedule date relative to now.
func (a *AttendanceController) resolveDate(ann *models.Announcement, dateStr string) (time.Time, *apiError) {
	if dateStr != "" {
		parsed, ok := utils.ParseYMD(dateStr, a.loc)
		if !ok {
			return time.Time{}, &apiError{http.StatusBadRequest, 40060, "invalid date format, use YYYY or YYYY-MM or YYYY-MM-DD"}
		}
		return parsed, nil
	}
	return a.windowFor(ann, a.now().In(a.loc)).TargetDate, nil
}

// getOrCreateSession returns the attendance session for (announcement, date),
// creating it lazily. The composite unique index resolves concurrent first
// check-ins: a lost insert race falls through to re-fetching the winner's row.
func (a *AttendanceController) getOrCreateSession(announcementID uint, date time.Time) (*models.AttendanceSession, error) {
	day := utils.NormalizeLocalDate(date)

	var session models.AttendanceSession
	err := a.db.Where("announcement_id = ? AND date = ?", announcementID, day).First(&session).Error
	if err == nil {
		return &session, nil
	}
	if !errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, err
	}

	fresh := models.AttendanceSession{
		AnnouncementID: announcementID,
		Date:           day,
		OpenedAt:       a.now(),
		State:          models.SessionOpen,
	}
	if err := a.db.Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "announcement_id"}, {Name: "date"}},
		DoNothing: true,
	}).Create(&fresh).Error; err != nil {
		return nil, err
	}

	if err := a.db.Where("announcement_id = ? AND date = ?", announcementID, day).First(&session).Error; err != nil {
		return nil, err
	}
	return &session, nil
}

// upsertAttendance inserts or overwrites the (session, user) attendance row.
func (a *AttendanceController) upsertAttendance(sessionID, userID uint, status, note string) (*models.Attendance, error) {
	att := models.Attendance{SessionID: sessionID, UserID: userID, Status: status, Note: note}
	if err := a.db.Clauses(clause.OnConflict{
		Columns: []clause.Column{{Name: "session_id"}, {Name: "user_id"}},
		DoUpdates: clause.Assignments(map[string]interface{}{
			"status":     status,
			"note":       note,
			"updated_at": time.Now(),
		}),
	}).Create(&att).Error; err != nil {
		return nil, err
	}

	var saved models.Attendance
	if err := a.db.Where("session_id = ? AND user_id = ?", sessionID, userID).First(&saved).Error; err != nil {
		return nil, err
	}
	return &saved, nil
}

// CheckIn lets the authenticated user mark themselves present while the
// announcement's window is open.
func (a *AttendanceController) CheckIn(ctx *gin.Context) {
	userID, ok := getUserID(ctx)
	if !ok {
		utils.Error(ctx, http.StatusUnauthorized, 40110, "unauthorized")
		return
	}

	var req struct {
		AnnouncementID uint   `json:"announcement_id" binding:"required"`
		Note           string `json:"note" binding:"max=200"`
	}
	if err := ctx.ShouldBindJSON(&req); err != nil {
		utils.Error(ctx, http.StatusBadRequest, 40061, "invalid request payload")
		return
	}

	var ann models.Announcement
	if err := a.db.First(&ann, req.AnnouncementID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			utils.Error(ctx, http.StatusNotFound, 40460, "announcement not found")
			return
		}
		utils.Error(ctx, http.StatusInternalServerError, 50060, "failed to load announcement")
		return
	}

	now := a.now().In(a.loc)
	w := a.windowFor(&ann, now)
	if !utils.IsWithinWindow(now, w) {
		utils.Error(ctx, http.StatusForbidden, 40360, "attendance is closed for this schedule")
		return
	}

	session, err := a.getOrCreateSession(ann.ID, w.TargetDate)
	if err != nil {
		utils.Error(ctx, http.StatusInternalServerError, 50061, "failed to open attendance session")
		return
	}

	att, err := a.upsertAttendance(session.ID, userID, models.StatusPresent, req.Note)
	if err != nil {
		utils.Error(ctx, http.StatusInternalServerError, 50062, "failed to record check-in")
		return
	}

	utils.CacheDelete(globalStatsCacheKey)
	utils.Success(ctx, gin.H{"session": session, "attendance": att})
}

// AdminCheckIn records attendance for any member on any date, bypassing the
// time window.
func (a *AttendanceController) AdminCheckIn(ctx *gin.Context) {
	var req struct {
		AnnouncementID uint   `json:"announcement_id" binding:"required"`
		UserID         uint   `json:"user_id" binding:"required"`
		Date           string `json:"date"`
		Status         string `json:"status"`
		Note           string `json:"note" binding:"max=200"`
	}
	if err := ctx.ShouldBindJSON(&req); err != nil {
		utils.Error(ctx, http.StatusBadRequest, 40062, "invalid request payload")
		return
	}

	status := req.Status
	if status == "" {
		status = models.StatusPresent
	}
	if !models.ValidAttendanceStatus(status) {
		utils.Error(ctx, http.StatusBadRequest, 40063, "status must be PRESENT, LATE or EXCUSED")
		return
	}

	var ann models.Announcement
	if err := a.db.First(&ann, req.AnnouncementID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			utils.Error(ctx, http.StatusNotFound, 40460, "announcement not found")
			return
		}
		utils.Error(ctx, http.StatusInternalServerError, 50060, "failed to load announcement")
		return
	}

	var user models.User
	if err := a.db.First(&user, req.UserID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			utils.Error(ctx, http.StatusNotFound, 40461, "user not found")
			return
		}
		utils.Error(ctx, http.StatusInternalServerError, 50063, "failed to load user")
		return
	}

	date, aerr := a.resolveDate(&ann, strings.TrimSpace(req.Date))
	if aerr != nil {
		utils.Error(ctx, aerr.status, aerr.code, aerr.message)
		return
	}

	session, err := a.getOrCreateSession(ann.ID, date)
	if err != nil {
		utils.Error(ctx, http.StatusInternalServerError, 50061, "failed to open attendance session")
		return
	}

	att, err := a.upsertAttendance(session.ID, req.UserID, status, req.Note)
	if err != nil {
		utils.Error(ctx, http.StatusInternalServerError, 50062, "failed to record check-in")
		return
	}

	utils.CacheDelete(globalStatsCacheKey)
	utils.Success(ctx, gin.H{"session": session, "attendance": att})
}

// userBrief is the projection of users returned in summaries and exports.
type userBrief struct {
	ID    uint   `json:"id"`
	Name  string `json:"name"`
	Email string `json:"email"`
}

type summaryCounts struct {
	TotalMembers int64 `json:"total_members"`
	Present      int64 `json:"present"`
	Absent       int64 `json:"absent"`
}

type sessionSummary struct {
	Session      *models.AttendanceSession `json:"session"`
	Counts       summaryCounts             `json:"counts"`
	PresentUsers []userBrief               `json:"present_users"`
	AbsentUsers  []userBrief               `json:"absent_users"`
}

// summarize resolves the session for (announcement, date) and computes the
// binary present/absent view. The session may not exist yet; absence is always
// derived from the member roster, never stored.
func (a *AttendanceController) summarize(announcementID uint, dateStr string, page, limit int) (*sessionSummary, *apiError) {
	var ann models.Announcement
	if err := a.db.First(&ann, announcementID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, &apiError{http.StatusNotFound, 40460, "announcement not found"}
		}
		return nil, &apiError{http.StatusInternalServerError, 50060, "failed to load announcement"}
	}

	date, aerr := a.resolveDate(&ann, dateStr)
	if aerr != nil {
		return nil, aerr
	}
	day := utils.NormalizeLocalDate(date)

	var totalMembers int64
	if err := a.db.Model(&models.User{}).Where("role = ?", models.RoleMember).Count(&totalMembers).Error; err != nil {
		return nil, &apiError{http.StatusInternalServerError, 50064, "failed to count members"}
	}

	skip := (page - 1) * limit

	var session models.AttendanceSession
	err := a.db.Where("announcement_id = ? AND date = ?", announcementID, day).First(&session).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		// No check-ins recorded yet: everyone is absent.
		var absentUsers []userBrief
		if err := a.db.Model(&models.User{}).
			Where("role = ?", models.RoleMember).
			Order("name ASC").
			Offset(skip).Limit(limit).
			Find(&absentUsers).Error; err != nil {
			return nil, &apiError{http.StatusInternalServerError, 50065, "failed to list members"}
		}
		return &sessionSummary{
			Session:      nil,
			Counts:       summaryCounts{TotalMembers: totalMembers, Present: 0, Absent: totalMembers},
			PresentUsers: []userBrief{},
			AbsentUsers:  absentUsers,
		}, nil
	}
	if err != nil {
		return nil, &apiError{http.StatusInternalServerError, 50066, "failed to load session"}
	}

	var markedIDs []uint
	if err := a.db.Model(&models.Attendance{}).
		Where("session_id = ?", session.ID).
		Pluck("user_id", &markedIDs).Error; err != nil {
		return nil, &apiError{http.StatusInternalServerError, 50067, "failed to load attendance"}
	}
	presentIDs := utils.UniqueUint(markedIDs)

	presentUsers := []userBrief{}
	if len(presentIDs) > 0 {
		if err := a.db.Model(&models.User{}).
			Where("id IN ?", presentIDs).
			Order("name ASC").
			Offset(skip).Limit(limit).
			Find(&presentUsers).Error; err != nil {
			return nil, &apiError{http.StatusInternalServerError, 50065, "failed to list members"}
		}
	}

	absentQuery := a.db.Model(&models.User{}).Where("role = ?", models.RoleMember)
	if len(presentIDs) > 0 {
		absentQuery = absentQuery.Where("id NOT IN ?", presentIDs)
	}
	var absentUsers []userBrief
	if err := absentQuery.Order("name ASC").Offset(skip).Limit(limit).Find(&absentUsers).Error; err != nil {
		return nil, &apiError{http.StatusInternalServerError, 50065, "failed to list members"}
	}

	present := int64(len(presentIDs))
	absent := totalMembers - present
	if absent < 0 {
		absent = 0
	}

	return &sessionSummary{
		Session:      &session,
		Counts:       summaryCounts{TotalMembers: totalMembers, Present: present, Absent: absent},
		PresentUsers: presentUsers,
		AbsentUsers:  absentUsers,
	}, nil
}

// parseSummaryQuery reads the shared summary/export query parameters.
func parseSummaryQuery(ctx *gin.Context) (announcementID uint, dateStr string, page, limit int, ok bool) {
	cfg := config.Get()
	id, err := strconv.ParseUint(strings.TrimSpace(ctx.Query("announcement_id")), 10, 32)
	if err != nil || id == 0 {
		return 0, "", 0, 0, false
	}
	page = 1
	if v := strings.TrimSpace(ctx.Query("page")); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 {
			page = n
		}
	}
	limit = cfg.SessionPageSize
	if v := strings.TrimSpace(ctx.Query("limit")); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 {
			limit = n
		}
	}
	if limit > cfg.MaxPageSize {
		limit = cfg.MaxPageSize
	}
	return uint(id), strings.TrimSpace(ctx.Query("date")), page, limit, true
}

// SessionSummary returns counts plus paginated present and absent member lists.
func (a *AttendanceController) SessionSummary(ctx *gin.Context) {
	announcementID, dateStr, page, limit, ok := parseSummaryQuery(ctx)
	if !ok {
		utils.Error(ctx, http.StatusBadRequest, 40064, "announcement_id is required")
		return
	}

	sum, aerr := a.summarize(announcementID, dateStr, page, limit)
	if aerr != nil {
		utils.Error(ctx, aerr.status, aerr.code, aerr.message)
		return
	}
	utils.Success(ctx, sum)
}

// ExportSessionCSV streams the summary as a CSV attachment.
func (a *AttendanceController) ExportSessionCSV(ctx *gin.Context) {
	announcementID, dateStr, page, limit, ok := parseSummaryQuery(ctx)
	if !ok {
		utils.Error(ctx, http.StatusBadRequest, 40064, "announcement_id is required")
		return
	}

	sum, aerr := a.summarize(announcementID, dateStr, page, limit)
	if aerr != nil {
		utils.Error(ctx, aerr.status, aerr.code, aerr.message)
		return
	}

	var b strings.Builder
	b.WriteString("type,name,email")
	for _, u := range sum.PresentUsers {
		b.WriteString("\npresent," + utils.CSVSafe(u.Name) + "," + utils.CSVSafe(u.Email))
	}
	for _, u := range sum.AbsentUsers {
		b.WriteString("\nabsent," + utils.CSVSafe(u.Name) + "," + utils.CSVSafe(u.Email))
	}

	datePart := dateStr
	if datePart == "" {
		datePart = "today"
	}
	filename := fmt.Sprintf("attendance-%d-%s.csv", announcementID, datePart)
	ctx.Header("Content-Disposition", `attachment; filename="`+filename+`"`)
	ctx.Data(http.StatusOK, "text/csv; charset=utf-8", []byte(b.String()))
}
