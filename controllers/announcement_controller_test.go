package controllers

import (
	"net/http"
	"testing"
	"time"

	"github.com/zidanindratama/be-gunasmash/models"
)

func TestCreateAnnouncementScheduleValidation(t *testing.T) {
	db := newTestDB(t)
	admin := seedUser(t, db, "Admin", "admin@club.test", models.RoleAdmin)
	ctl := NewAnnouncementController(db, wib)

	// WEEKLY without a time range is rejected.
	ctx, w := testRequest("POST", "/api/v1/announcements", map[string]interface{}{
		"title": "Latihan", "type": "TRAINING", "schedule_kind": "WEEKLY",
		"day": "Rabu", "location": "GOR",
	}, admin.ID, models.RoleAdmin)
	ctl.Create(ctx)
	if w.Code != http.StatusBadRequest {
		t.Errorf("weekly without time_range: status = %d, want 400", w.Code)
	}

	// DATETIME without an instant is rejected.
	ctx, w = testRequest("POST", "/api/v1/announcements", map[string]interface{}{
		"title": "Turnamen", "type": "TOURNAMENT", "schedule_kind": "DATETIME",
		"location": "GOR",
	}, admin.ID, models.RoleAdmin)
	ctl.Create(ctx)
	if w.Code != http.StatusBadRequest {
		t.Errorf("datetime without instant: status = %d, want 400", w.Code)
	}

	// Unknown category is rejected.
	ctx, w = testRequest("POST", "/api/v1/announcements", map[string]interface{}{
		"title": "???", "type": "PARTY", "day": "Rabu", "time_range": "15.00-18.00",
		"location": "GOR",
	}, admin.ID, models.RoleAdmin)
	ctl.Create(ctx)
	if w.Code != http.StatusBadRequest {
		t.Errorf("unknown type: status = %d, want 400", w.Code)
	}
}

func TestCreateAnnouncementDefaultsToWeekly(t *testing.T) {
	db := newTestDB(t)
	admin := seedUser(t, db, "Admin", "admin@club.test", models.RoleAdmin)
	ctl := NewAnnouncementController(db, wib)

	ctx, w := testRequest("POST", "/api/v1/announcements", map[string]interface{}{
		"title": "Latihan Rutin", "type": "training",
		"day": "Rabu", "time_range": "15.00-18.00", "location": "GOR Kampus",
	}, admin.ID, models.RoleAdmin)
	ctl.Create(ctx)
	if w.Code != http.StatusOK {
		t.Fatalf("status = %d, body %s", w.Code, w.Body.String())
	}

	var ann models.Announcement
	db.First(&ann)
	if ann.ScheduleKind != models.ScheduleWeekly {
		t.Errorf("schedule_kind = %q, want WEEKLY default", ann.ScheduleKind)
	}
	if ann.Type != models.AnnouncementTraining {
		t.Errorf("type = %q, want uppercased TRAINING", ann.Type)
	}
	if ann.CreatedBy != admin.ID {
		t.Errorf("created_by = %d, want acting admin", ann.CreatedBy)
	}
}

func TestDatetimeAnnouncementWindowCoversWholeDay(t *testing.T) {
	db := newTestDB(t)
	admin := seedUser(t, db, "Admin", "admin@club.test", models.RoleAdmin)
	member := seedUser(t, db, "Budi", "budi@club.test", models.RoleMember)

	when := time.Date(2024, time.April, 20, 9, 0, 0, 0, wib)
	ann := models.Announcement{
		Title: "Turnamen Internal", Type: models.AnnouncementTournament,
		ScheduleKind: models.ScheduleDatetime, Datetime: &when,
		Location: "GOR Kampus", CreatedBy: admin.ID,
	}
	if err := db.Create(&ann).Error; err != nil {
		t.Fatal(err)
	}

	ctl := NewAttendanceController(db, wib)

	// Late evening of the event date still counts.
	ctl.now = fixedNow(time.Date(2024, time.April, 20, 22, 0, 0, 0, wib))
	ctx, w := testRequest("POST", "/api/v1/attendance/check-in",
		map[string]interface{}{"announcement_id": ann.ID}, member.ID, models.RoleMember)
	ctl.CheckIn(ctx)
	if w.Code != http.StatusOK {
		t.Fatalf("same-date check-in: status = %d, body %s", w.Code, w.Body.String())
	}

	// The window runs to the very last instant of the date, sub-second included.
	ctl.now = fixedNow(time.Date(2024, time.April, 20, 23, 59, 59, 500_000_000, wib))
	ctx, w = testRequest("POST", "/api/v1/attendance/check-in",
		map[string]interface{}{"announcement_id": ann.ID}, member.ID, models.RoleMember)
	ctl.CheckIn(ctx)
	if w.Code != http.StatusOK {
		t.Errorf("final-second check-in: status = %d, body %s", w.Code, w.Body.String())
	}

	// The day after is closed.
	ctl.now = fixedNow(time.Date(2024, time.April, 21, 9, 0, 0, 0, wib))
	ctx, w = testRequest("POST", "/api/v1/attendance/check-in",
		map[string]interface{}{"announcement_id": ann.ID}, member.ID, models.RoleMember)
	ctl.CheckIn(ctx)
	if w.Code != http.StatusForbidden {
		t.Errorf("next-day check-in: status = %d, want 403", w.Code)
	}
}

func TestDeleteAnnouncementCascades(t *testing.T) {
	db := newTestDB(t)
	admin := seedUser(t, db, "Admin", "admin@club.test", models.RoleAdmin)
	member := seedUser(t, db, "Budi", "budi@club.test", models.RoleMember)
	ann := seedWeeklyAnnouncement(t, db, "Rabu", "15.00-18.00", admin.ID)

	attCtl := NewAttendanceController(db, wib)
	attCtl.now = fixedNow(wednesdayAfternoon)
	ctx, w := testRequest("POST", "/api/v1/attendance/check-in",
		map[string]interface{}{"announcement_id": ann.ID}, member.ID, models.RoleMember)
	attCtl.CheckIn(ctx)
	if w.Code != http.StatusOK {
		t.Fatalf("check-in failed: %s", w.Body.String())
	}

	ctl := NewAnnouncementController(db, wib)
	ctx, w = testRequest("DELETE", "/api/v1/announcements/1", nil, admin.ID, models.RoleAdmin)
	withParam(ctx, "id", "1")
	ctl.Delete(ctx)
	if w.Code != http.StatusOK {
		t.Fatalf("status = %d, body %s", w.Code, w.Body.String())
	}

	var sessions, attendances int64
	db.Model(&models.AttendanceSession{}).Count(&sessions)
	db.Model(&models.Attendance{}).Count(&attendances)
	if sessions != 0 || attendances != 0 {
		t.Errorf("sessions = %d attendances = %d, want cascade delete", sessions, attendances)
	}
}
