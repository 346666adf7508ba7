package controllers

import (
	"net/http"
	"strings"
	"testing"

	"github.com/zidanindratama/be-gunasmash/models"
)

func TestSlugify(t *testing.T) {
	cases := []struct {
		in   string
		want string
	}{
		{"Hello World", "hello-world"},
		{"  Turnamen 2024!  ", "turnamen-2024"},
		{"Go & Gin", "go-gin"},
		{"---", ""},
	}
	for _, c := range cases {
		if got := slugify(c.in); got != c.want {
			t.Errorf("slugify(%q) = %q, want %q", c.in, got, c.want)
		}
	}
}

func TestCreateBlogDerivesUniqueSlug(t *testing.T) {
	db := newTestDB(t)
	admin := seedUser(t, db, "Admin", "admin@club.test", models.RoleAdmin)
	ctl := NewBlogController(db)

	for i := 0; i < 2; i++ {
		ctx, w := testRequest("POST", "/api/v1/blogs",
			map[string]interface{}{"title": "Latihan Perdana", "content": "<p>halo</p>", "published": true},
			admin.ID, models.RoleAdmin)
		ctl.Create(ctx)
		if w.Code != http.StatusOK {
			t.Fatalf("status = %d, body %s", w.Code, w.Body.String())
		}
	}

	var slugs []string
	db.Model(&models.Blog{}).Order("id").Pluck("slug", &slugs)
	if len(slugs) != 2 || slugs[0] != "latihan-perdana" || slugs[1] != "latihan-perdana-2" {
		t.Errorf("slugs = %v", slugs)
	}
}

func TestCreateBlogSanitizesContent(t *testing.T) {
	db := newTestDB(t)
	admin := seedUser(t, db, "Admin", "admin@club.test", models.RoleAdmin)
	ctl := NewBlogController(db)

	ctx, w := testRequest("POST", "/api/v1/blogs",
		map[string]interface{}{"title": "XSS", "content": `<p>ok</p><script>alert(1)</script>`},
		admin.ID, models.RoleAdmin)
	ctl.Create(ctx)
	if w.Code != http.StatusOK {
		t.Fatalf("status = %d, body %s", w.Code, w.Body.String())
	}

	var post models.Blog
	db.First(&post)
	if strings.Contains(post.Content, "<script>") {
		t.Errorf("content not sanitized: %q", post.Content)
	}
	if !strings.Contains(post.Content, "<p>ok</p>") {
		t.Errorf("benign markup should survive: %q", post.Content)
	}
}

func TestBlogListHidesDraftsFromMembers(t *testing.T) {
	db := newTestDB(t)
	admin := seedUser(t, db, "Admin", "admin@club.test", models.RoleAdmin)
	member := seedUser(t, db, "Budi", "budi@club.test", models.RoleMember)

	posts := []models.Blog{
		{Title: "Published", Slug: "published", Content: "x", Published: true, CreatedBy: admin.ID},
		{Title: "Draft", Slug: "draft", Content: "x", Published: false, CreatedBy: admin.ID},
	}
	for i := range posts {
		if err := db.Create(&posts[i]).Error; err != nil {
			t.Fatal(err)
		}
	}

	ctl := NewBlogController(db)

	ctx, w := testRequest("GET", "/api/v1/blogs", nil, member.ID, models.RoleMember)
	ctl.List(ctx)
	resp := decodeBody(t, w)
	listed := resp["data"].(map[string]interface{})["posts"].([]interface{})
	if len(listed) != 1 {
		t.Errorf("member sees %d posts, want published only", len(listed))
	}

	ctx, w = testRequest("GET", "/api/v1/blogs", nil, admin.ID, models.RoleAdmin)
	ctl.List(ctx)
	resp = decodeBody(t, w)
	listed = resp["data"].(map[string]interface{})["posts"].([]interface{})
	if len(listed) != 2 {
		t.Errorf("admin sees %d posts, want drafts included", len(listed))
	}

	// Draft fetched by slug behaves the same way.
	ctx, w = testRequest("GET", "/api/v1/blogs/draft", nil, member.ID, models.RoleMember)
	withParam(ctx, "slug", "draft")
	ctl.Get(ctx)
	if w.Code != http.StatusNotFound {
		t.Errorf("draft by slug for member: status = %d, want 404", w.Code)
	}
}

func TestDeleteBlog(t *testing.T) {
	db := newTestDB(t)
	admin := seedUser(t, db, "Admin", "admin@club.test", models.RoleAdmin)
	post := models.Blog{Title: "Bye", Slug: "bye", Content: "x", CreatedBy: admin.ID}
	if err := db.Create(&post).Error; err != nil {
		t.Fatal(err)
	}

	ctl := NewBlogController(db)
	ctx, w := testRequest("DELETE", "/api/v1/blogs/bye", nil, admin.ID, models.RoleAdmin)
	withParam(ctx, "slug", "bye")
	ctl.Delete(ctx)
	if w.Code != http.StatusOK {
		t.Fatalf("status = %d", w.Code)
	}

	ctx, w = testRequest("DELETE", "/api/v1/blogs/bye", nil, admin.ID, models.RoleAdmin)
	withParam(ctx, "slug", "bye")
	ctl.Delete(ctx)
	if w.Code != http.StatusNotFound {
		t.Errorf("second delete: status = %d, want 404", w.Code)
	}
}
