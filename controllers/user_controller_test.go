package controllers

import (
	"bytes"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/zidanindratama/be-gunasmash/middleware"
	"github.com/zidanindratama/be-gunasmash/models"
)

func withParam(ctx *gin.Context, key, value string) {
	ctx.Params = append(ctx.Params, gin.Param{Key: key, Value: value})
}

func TestDeleteUserWithHistoryConflicts(t *testing.T) {
	db := newTestDB(t)
	admin := seedUser(t, db, "Admin", "admin@club.test", models.RoleAdmin)
	member := seedUser(t, db, "Budi", "budi@club.test", models.RoleMember)
	ann := seedWeeklyAnnouncement(t, db, "Rabu", "15.00-18.00", member.ID)

	session := models.AttendanceSession{
		AnnouncementID: ann.ID,
		Date:           time.Date(2024, time.March, 6, 0, 0, 0, 0, wib),
		OpenedAt:       time.Now(),
		State:          models.SessionOpen,
	}
	if err := db.Create(&session).Error; err != nil {
		t.Fatal(err)
	}
	att := models.Attendance{SessionID: session.ID, UserID: member.ID, Status: models.StatusPresent}
	if err := db.Create(&att).Error; err != nil {
		t.Fatal(err)
	}

	ctl := NewUserController(db)
	ctx, w := testRequest("DELETE", "/api/v1/users/2", nil, admin.ID, models.RoleAdmin)
	withParam(ctx, "id", "2")
	ctl.Delete(ctx)

	if w.Code != http.StatusConflict {
		t.Fatalf("status = %d, want 409 when history exists", w.Code)
	}

	var count int64
	db.Model(&models.User{}).Count(&count)
	if count != 2 {
		t.Errorf("user count = %d, nothing should be deleted", count)
	}
}

func TestDeleteUserWithReassignment(t *testing.T) {
	db := newTestDB(t)
	admin := seedUser(t, db, "Admin", "admin@club.test", models.RoleAdmin)
	member := seedUser(t, db, "Budi", "budi@club.test", models.RoleMember)
	ann := seedWeeklyAnnouncement(t, db, "Rabu", "15.00-18.00", member.ID)

	session := models.AttendanceSession{
		AnnouncementID: ann.ID,
		Date:           time.Date(2024, time.March, 6, 0, 0, 0, 0, wib),
		OpenedAt:       time.Now(),
		State:          models.SessionOpen,
	}
	if err := db.Create(&session).Error; err != nil {
		t.Fatal(err)
	}
	att := models.Attendance{SessionID: session.ID, UserID: member.ID, Status: models.StatusPresent}
	if err := db.Create(&att).Error; err != nil {
		t.Fatal(err)
	}
	blog := models.Blog{Title: "Post", Slug: "post", Content: "x", CreatedBy: member.ID}
	if err := db.Create(&blog).Error; err != nil {
		t.Fatal(err)
	}

	ctl := NewUserController(db)
	ctx, w := testRequest("DELETE", "/api/v1/users/2?reassign=true", nil, admin.ID, models.RoleAdmin)
	withParam(ctx, "id", "2")
	ctl.Delete(ctx)

	if w.Code != http.StatusOK {
		t.Fatalf("status = %d, body %s", w.Code, w.Body.String())
	}

	var users int64
	db.Model(&models.User{}).Where("id = ?", member.ID).Count(&users)
	if users != 0 {
		t.Error("member should be deleted")
	}

	var attRows int64
	db.Model(&models.Attendance{}).Where("user_id = ?", member.ID).Count(&attRows)
	if attRows != 0 {
		t.Error("attendance rows should be removed")
	}

	var reassignedAnn models.Announcement
	db.First(&reassignedAnn, ann.ID)
	if reassignedAnn.CreatedBy != admin.ID {
		t.Errorf("announcement created_by = %d, want reassigned to %d", reassignedAnn.CreatedBy, admin.ID)
	}

	var reassignedBlog models.Blog
	db.First(&reassignedBlog, blog.ID)
	if reassignedBlog.CreatedBy != admin.ID {
		t.Errorf("blog created_by = %d, want reassigned to %d", reassignedBlog.CreatedBy, admin.ID)
	}
}

func TestDeleteOwnAccountRejected(t *testing.T) {
	db := newTestDB(t)
	admin := seedUser(t, db, "Admin", "admin@club.test", models.RoleAdmin)

	ctl := NewUserController(db)
	ctx, w := testRequest("DELETE", "/api/v1/users/1", nil, admin.ID, models.RoleAdmin)
	withParam(ctx, "id", "1")
	ctl.Delete(ctx)

	if w.Code != http.StatusBadRequest {
		t.Fatalf("status = %d, want 400 for self-delete", w.Code)
	}
}

func TestImportCSVCreatesAndSkips(t *testing.T) {
	db := newTestDB(t)
	admin := seedUser(t, db, "Admin", "admin@club.test", models.RoleAdmin)
	seedUser(t, db, "Budi", "budi@club.test", models.RoleMember)

	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	fw, err := mw.CreateFormFile("file", "members.csv")
	if err != nil {
		t.Fatal(err)
	}
	fw.Write([]byte("name,email\nCitra,citra@club.test\nBudi,budi@club.test\nBroken,not-an-email\n"))
	mw.Close()

	w := httptest.NewRecorder()
	ctx, _ := gin.CreateTestContext(w)
	ctx.Request = httptest.NewRequest("POST", "/api/v1/users/import", &buf)
	ctx.Request.Header.Set("Content-Type", mw.FormDataContentType())
	ctx.Set(middleware.ContextUserIDKey, admin.ID)
	ctx.Set(middleware.ContextRoleKey, models.RoleAdmin)

	ctl := NewUserController(db)
	ctl.ImportCSV(ctx)

	if w.Code != http.StatusOK {
		t.Fatalf("status = %d, body %s", w.Code, w.Body.String())
	}

	resp := decodeBody(t, w)
	data := resp["data"].(map[string]interface{})
	if created := data["created"].(float64); created != 1 {
		t.Errorf("created = %v, want 1", created)
	}
	if skipped := data["skipped"].([]interface{}); len(skipped) != 2 {
		t.Errorf("skipped = %v, want duplicate and malformed rows reported", skipped)
	}

	var count int64
	db.Model(&models.User{}).Where("email = ?", "citra@club.test").Count(&count)
	if count != 1 {
		t.Error("imported member missing")
	}
}

func TestImportCSVRejectsBadHeader(t *testing.T) {
	db := newTestDB(t)
	admin := seedUser(t, db, "Admin", "admin@club.test", models.RoleAdmin)

	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	fw, _ := mw.CreateFormFile("file", "members.csv")
	fw.Write([]byte("id,username\n1,budi\n"))
	mw.Close()

	w := httptest.NewRecorder()
	ctx, _ := gin.CreateTestContext(w)
	ctx.Request = httptest.NewRequest("POST", "/api/v1/users/import", &buf)
	ctx.Request.Header.Set("Content-Type", mw.FormDataContentType())
	ctx.Set(middleware.ContextUserIDKey, admin.ID)

	NewUserController(db).ImportCSV(ctx)
	if w.Code != http.StatusBadRequest {
		t.Fatalf("status = %d, want 400 for bad header", w.Code)
	}
}

func TestUpdateRole(t *testing.T) {
	db := newTestDB(t)
	admin := seedUser(t, db, "Admin", "admin@club.test", models.RoleAdmin)
	member := seedUser(t, db, "Budi", "budi@club.test", models.RoleMember)

	ctl := NewUserController(db)
	ctx, w := testRequest("PATCH", "/api/v1/users/2/role",
		map[string]interface{}{"role": "ADMIN"}, admin.ID, models.RoleAdmin)
	withParam(ctx, "id", "2")
	ctl.UpdateRole(ctx)
	if w.Code != http.StatusOK {
		t.Fatalf("status = %d, body %s", w.Code, w.Body.String())
	}

	var updated models.User
	db.First(&updated, member.ID)
	if updated.Role != models.RoleAdmin {
		t.Errorf("role = %q, want ADMIN", updated.Role)
	}

	ctx, w = testRequest("PATCH", "/api/v1/users/2/role",
		map[string]interface{}{"role": "SUPERUSER"}, admin.ID, models.RoleAdmin)
	withParam(ctx, "id", "2")
	ctl.UpdateRole(ctx)
	if w.Code != http.StatusBadRequest {
		t.Errorf("unknown role: status = %d, want 400", w.Code)
	}
}

func TestUserListSearchAndSort(t *testing.T) {
	db := newTestDB(t)
	admin := seedUser(t, db, "Admin", "admin@club.test", models.RoleAdmin)
	seedUser(t, db, "Budi", "budi@club.test", models.RoleMember)
	seedUser(t, db, "Citra", "citra@club.test", models.RoleMember)

	ctl := NewUserController(db)
	ctx, w := testRequest("GET", "/api/v1/users?search=club.test&role=member&sort=name:desc", nil, admin.ID, models.RoleAdmin)
	ctl.List(ctx)

	if w.Code != http.StatusOK {
		t.Fatalf("status = %d, body %s", w.Code, w.Body.String())
	}

	resp := decodeBody(t, w)
	data := resp["data"].(map[string]interface{})
	users := data["users"].([]interface{})
	if len(users) != 2 {
		t.Fatalf("users = %d, want members only", len(users))
	}
	first := users[0].(map[string]interface{})
	if first["name"] != "Citra" {
		t.Errorf("first user = %v, want Citra with name:desc", first["name"])
	}
	meta := data["meta"].(map[string]interface{})
	if meta["total"].(float64) != 2 {
		t.Errorf("meta total = %v", meta["total"])
	}
}
