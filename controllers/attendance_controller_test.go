package controllers

import (
	"net/http"
	"strings"
	"testing"
	"time"

	"github.com/zidanindratama/be-gunasmash/models"
)

// Wednesday 2024-03-06 in WIB, inside a 15.00-18.00 window.
var wednesdayAfternoon = time.Date(2024, time.March, 6, 16, 0, 0, 0, wib)

func newAttendanceHarness(t *testing.T, now time.Time) (*AttendanceController, *models.Announcement, *models.User) {
	t.Helper()
	db := newTestDB(t)
	admin := seedUser(t, db, "Admin", "admin@club.test", models.RoleAdmin)
	member := seedUser(t, db, "Budi", "budi@club.test", models.RoleMember)
	ann := seedWeeklyAnnouncement(t, db, "Rabu", "15.00-18.00", admin.ID)

	ctl := NewAttendanceController(db, wib)
	ctl.now = fixedNow(now)
	return ctl, ann, member
}

func TestCheckInInsideWindow(t *testing.T) {
	ctl, ann, member := newAttendanceHarness(t, wednesdayAfternoon)

	ctx, w := testRequest("POST", "/api/v1/attendance/check-in",
		map[string]interface{}{"announcement_id": ann.ID, "note": "hadir"}, member.ID, models.RoleMember)
	ctl.CheckIn(ctx)

	if w.Code != http.StatusOK {
		t.Fatalf("status = %d, body %s", w.Code, w.Body.String())
	}

	var sessions []models.AttendanceSession
	if err := ctl.db.Find(&sessions).Error; err != nil {
		t.Fatal(err)
	}
	if len(sessions) != 1 {
		t.Fatalf("sessions = %d, want 1", len(sessions))
	}
	wantDate := time.Date(2024, time.March, 6, 0, 0, 0, 0, wib)
	if !sessions[0].Date.Equal(wantDate) {
		t.Errorf("session date = %v, want %v", sessions[0].Date, wantDate)
	}

	var att models.Attendance
	if err := ctl.db.Where("session_id = ? AND user_id = ?", sessions[0].ID, member.ID).First(&att).Error; err != nil {
		t.Fatalf("attendance row missing: %v", err)
	}
	if att.Status != models.StatusPresent {
		t.Errorf("status = %q, want PRESENT", att.Status)
	}
	if att.Note != "hadir" {
		t.Errorf("note = %q", att.Note)
	}
}

func TestCheckInIsIdempotent(t *testing.T) {
	ctl, ann, member := newAttendanceHarness(t, wednesdayAfternoon)

	for _, note := range []string{"first", "second"} {
		ctx, w := testRequest("POST", "/api/v1/attendance/check-in",
			map[string]interface{}{"announcement_id": ann.ID, "note": note}, member.ID, models.RoleMember)
		ctl.CheckIn(ctx)
		if w.Code != http.StatusOK {
			t.Fatalf("status = %d, body %s", w.Code, w.Body.String())
		}
	}

	var count int64
	ctl.db.Model(&models.Attendance{}).Count(&count)
	if count != 1 {
		t.Fatalf("attendance rows = %d, want 1 after repeat check-in", count)
	}

	var att models.Attendance
	ctl.db.First(&att)
	if att.Note != "second" {
		t.Errorf("note = %q, want the later write to win", att.Note)
	}

	var sessions int64
	ctl.db.Model(&models.AttendanceSession{}).Count(&sessions)
	if sessions != 1 {
		t.Errorf("sessions = %d, want 1", sessions)
	}
}

func TestCheckInOutsideWindow(t *testing.T) {
	evening := time.Date(2024, time.March, 6, 19, 0, 0, 0, wib)
	ctl, ann, member := newAttendanceHarness(t, evening)

	ctx, w := testRequest("POST", "/api/v1/attendance/check-in",
		map[string]interface{}{"announcement_id": ann.ID}, member.ID, models.RoleMember)
	ctl.CheckIn(ctx)

	if w.Code != http.StatusForbidden {
		t.Fatalf("status = %d, want 403", w.Code)
	}

	var sessions int64
	ctl.db.Model(&models.AttendanceSession{}).Count(&sessions)
	if sessions != 0 {
		t.Errorf("rejected check-in must not create a session, got %d", sessions)
	}
}

func TestCheckInWindowBoundaries(t *testing.T) {
	for _, tc := range []struct {
		name string
		now  time.Time
		want int
	}{
		{"at start", time.Date(2024, time.March, 6, 15, 0, 0, 0, wib), http.StatusOK},
		{"at end", time.Date(2024, time.March, 6, 18, 0, 0, 0, wib), http.StatusOK},
		{"before start", time.Date(2024, time.March, 6, 14, 59, 0, 0, wib), http.StatusForbidden},
	} {
		t.Run(tc.name, func(t *testing.T) {
			ctl, ann, member := newAttendanceHarness(t, tc.now)
			ctx, w := testRequest("POST", "/api/v1/attendance/check-in",
				map[string]interface{}{"announcement_id": ann.ID}, member.ID, models.RoleMember)
			ctl.CheckIn(ctx)
			if w.Code != tc.want {
				t.Errorf("status = %d, want %d", w.Code, tc.want)
			}
		})
	}
}

func TestCheckInUnknownAnnouncement(t *testing.T) {
	ctl, _, member := newAttendanceHarness(t, wednesdayAfternoon)

	ctx, w := testRequest("POST", "/api/v1/attendance/check-in",
		map[string]interface{}{"announcement_id": 999}, member.ID, models.RoleMember)
	ctl.CheckIn(ctx)

	if w.Code != http.StatusNotFound {
		t.Fatalf("status = %d, want 404", w.Code)
	}
}

func TestAdminCheckInWithPartialDate(t *testing.T) {
	ctl, ann, member := newAttendanceHarness(t, wednesdayAfternoon)

	ctx, w := testRequest("POST", "/api/v1/attendance/admin/check-in",
		map[string]interface{}{
			"announcement_id": ann.ID,
			"user_id":         member.ID,
			"date":            "2024-03",
			"status":          models.StatusLate,
		}, 1, models.RoleAdmin)
	ctl.AdminCheckIn(ctx)

	if w.Code != http.StatusOK {
		t.Fatalf("status = %d, body %s", w.Code, w.Body.String())
	}

	var session models.AttendanceSession
	if err := ctl.db.First(&session).Error; err != nil {
		t.Fatal(err)
	}
	wantDate := time.Date(2024, time.March, 1, 0, 0, 0, 0, wib)
	if !session.Date.Equal(wantDate) {
		t.Errorf("session date = %v, want month start %v", session.Date, wantDate)
	}

	var att models.Attendance
	ctl.db.First(&att)
	if att.Status != models.StatusLate {
		t.Errorf("status = %q, want LATE", att.Status)
	}
}

func TestAdminCheckInRejectsBadInput(t *testing.T) {
	ctl, ann, member := newAttendanceHarness(t, wednesdayAfternoon)

	ctx, w := testRequest("POST", "/api/v1/attendance/admin/check-in",
		map[string]interface{}{"announcement_id": ann.ID, "user_id": member.ID, "date": "abc"},
		1, models.RoleAdmin)
	ctl.AdminCheckIn(ctx)
	if w.Code != http.StatusBadRequest {
		t.Errorf("bad date: status = %d, want 400", w.Code)
	}

	ctx, w = testRequest("POST", "/api/v1/attendance/admin/check-in",
		map[string]interface{}{"announcement_id": ann.ID, "user_id": member.ID, "status": "ABSENT"},
		1, models.RoleAdmin)
	ctl.AdminCheckIn(ctx)
	if w.Code != http.StatusBadRequest {
		t.Errorf("ABSENT is derived, not storable: status = %d, want 400", w.Code)
	}

	ctx, w = testRequest("POST", "/api/v1/attendance/admin/check-in",
		map[string]interface{}{"announcement_id": ann.ID, "user_id": 999},
		1, models.RoleAdmin)
	ctl.AdminCheckIn(ctx)
	if w.Code != http.StatusNotFound {
		t.Errorf("unknown user: status = %d, want 404", w.Code)
	}
}

func TestSessionSummaryCounts(t *testing.T) {
	ctl, ann, member := newAttendanceHarness(t, wednesdayAfternoon)
	seedUser(t, ctl.db, "Citra", "citra@club.test", models.RoleMember)
	seedUser(t, ctl.db, "Andi", "andi@club.test", models.RoleMember)

	ctx, w := testRequest("POST", "/api/v1/attendance/check-in",
		map[string]interface{}{"announcement_id": ann.ID}, member.ID, models.RoleMember)
	ctl.CheckIn(ctx)
	if w.Code != http.StatusOK {
		t.Fatalf("check-in failed: %s", w.Body.String())
	}

	sum, aerr := ctl.summarize(ann.ID, "2024-03-06", 1, 20)
	if aerr != nil {
		t.Fatalf("summarize: %v", aerr)
	}
	if sum.Counts.TotalMembers != 3 || sum.Counts.Present != 1 || sum.Counts.Absent != 2 {
		t.Errorf("counts = %+v, want total 3 present 1 absent 2", sum.Counts)
	}
	if len(sum.PresentUsers) != 1 || sum.PresentUsers[0].Name != "Budi" {
		t.Errorf("present users = %+v", sum.PresentUsers)
	}
	if len(sum.AbsentUsers) != 2 || sum.AbsentUsers[0].Name != "Andi" {
		t.Errorf("absent users should be name-sorted, got %+v", sum.AbsentUsers)
	}
}

func TestSessionSummaryWithoutSession(t *testing.T) {
	ctl, ann, _ := newAttendanceHarness(t, wednesdayAfternoon)

	sum, aerr := ctl.summarize(ann.ID, "2024-03-06", 1, 20)
	if aerr != nil {
		t.Fatalf("summarize: %v", aerr)
	}
	if sum.Session != nil {
		t.Error("session should be nil before any check-in")
	}
	if sum.Counts.Present != 0 || sum.Counts.Absent != sum.Counts.TotalMembers {
		t.Errorf("counts = %+v, want everyone absent", sum.Counts)
	}
}

func TestSessionSummaryHTTPValidation(t *testing.T) {
	ctl, _, _ := newAttendanceHarness(t, wednesdayAfternoon)

	ctx, w := testRequest("GET", "/api/v1/attendance/session/summary", nil, 1, models.RoleAdmin)
	ctl.SessionSummary(ctx)
	if w.Code != http.StatusBadRequest {
		t.Errorf("missing announcement_id: status = %d, want 400", w.Code)
	}

	ctx, w = testRequest("GET", "/api/v1/attendance/session/summary?announcement_id=999", nil, 1, models.RoleAdmin)
	ctl.SessionSummary(ctx)
	if w.Code != http.StatusNotFound {
		t.Errorf("unknown announcement: status = %d, want 404", w.Code)
	}
}

func TestExportSessionCSV(t *testing.T) {
	ctl, ann, member := newAttendanceHarness(t, wednesdayAfternoon)

	ctx, w := testRequest("POST", "/api/v1/attendance/check-in",
		map[string]interface{}{"announcement_id": ann.ID}, member.ID, models.RoleMember)
	ctl.CheckIn(ctx)
	if w.Code != http.StatusOK {
		t.Fatalf("check-in failed: %s", w.Body.String())
	}

	target := "/api/v1/attendance/session/export?announcement_id=1&date=2024-03-06"
	ctx, w = testRequest("GET", target, nil, 1, models.RoleAdmin)
	ctl.ExportSessionCSV(ctx)

	if w.Code != http.StatusOK {
		t.Fatalf("status = %d, body %s", w.Code, w.Body.String())
	}
	if ct := w.Header().Get("Content-Type"); !strings.HasPrefix(ct, "text/csv") {
		t.Errorf("content type = %q", ct)
	}
	if cd := w.Header().Get("Content-Disposition"); !strings.Contains(cd, `attendance-1-2024-03-06.csv`) {
		t.Errorf("content disposition = %q", cd)
	}

	lines := strings.Split(w.Body.String(), "\n")
	if lines[0] != "type,name,email" {
		t.Errorf("header = %q", lines[0])
	}
	if len(lines) != 2 || lines[1] != "present,Budi,budi@club.test" {
		t.Errorf("rows = %q", lines[1:])
	}
}

func TestExportSessionCSVDefaultsToToday(t *testing.T) {
	ctl, ann, _ := newAttendanceHarness(t, wednesdayAfternoon)

	target := "/api/v1/attendance/session/export?announcement_id=1"
	ctx, w := testRequest("GET", target, nil, 1, models.RoleAdmin)
	ctl.ExportSessionCSV(ctx)

	if w.Code != http.StatusOK {
		t.Fatalf("status = %d, body %s", w.Code, w.Body.String())
	}
	if cd := w.Header().Get("Content-Disposition"); !strings.Contains(cd, "attendance-1-today.csv") {
		t.Errorf("content disposition = %q", cd)
	}
	_ = ann
}

func TestSessionHasManyAttendances(t *testing.T) {
	ctl, ann, member := newAttendanceHarness(t, wednesdayAfternoon)

	ctx, w := testRequest("POST", "/api/v1/attendance/check-in",
		map[string]interface{}{"announcement_id": ann.ID}, member.ID, models.RoleMember)
	ctl.CheckIn(ctx)
	if w.Code != http.StatusOK {
		t.Fatalf("check-in failed: %s", w.Body.String())
	}

	var session models.AttendanceSession
	if err := ctl.db.Preload("Attendances").First(&session).Error; err != nil {
		t.Fatalf("preload attendances: %v", err)
	}
	if len(session.Attendances) != 1 {
		t.Fatalf("attendances = %d, want 1", len(session.Attendances))
	}
	if session.Attendances[0].SessionID != session.ID {
		t.Errorf("attendance session id = %d, want %d", session.Attendances[0].SessionID, session.ID)
	}
}

func TestGetOrCreateSessionIsStable(t *testing.T) {
	ctl, ann, _ := newAttendanceHarness(t, wednesdayAfternoon)
	day := time.Date(2024, time.March, 6, 0, 0, 0, 0, wib)

	first, err := ctl.getOrCreateSession(ann.ID, day)
	if err != nil {
		t.Fatal(err)
	}
	second, err := ctl.getOrCreateSession(ann.ID, day)
	if err != nil {
		t.Fatal(err)
	}
	if first.ID != second.ID {
		t.Errorf("session ids differ: %d vs %d", first.ID, second.ID)
	}

	otherDay, err := ctl.getOrCreateSession(ann.ID, day.AddDate(0, 0, 7))
	if err != nil {
		t.Fatal(err)
	}
	if otherDay.ID == first.ID {
		t.Error("different dates must yield different sessions")
	}
}
