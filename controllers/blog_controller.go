package controllers

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"regexp"
	"strings"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"

	"github.com/zidanindratama/be-gunasmash/config"
	"github.com/zidanindratama/be-gunasmash/models"
	"github.com/zidanindratama/be-gunasmash/utils"
)

// BlogController handles blog post CRUD.
type BlogController struct {
	db *gorm.DB
}

// NewBlogController creates a new controller instance.
func NewBlogController(db *gorm.DB) *BlogController {
	return &BlogController{db: db}
}

var blogSortColumns = map[string]string{
	"title":      "title",
	"created_at": "created_at",
	"updated_at": "updated_at",
}

var slugStripper = regexp.MustCompile(`[^a-z0-9]+`)

// slugify turns a title into a URL-safe slug.
func slugify(title string) string {
	slug := strings.ToLower(strings.TrimSpace(title))
	slug = slugStripper.ReplaceAllString(slug, "-")
	return strings.Trim(slug, "-")
}

// uniqueSlug appends a numeric suffix until the slug is free, skipping the
// row with excludeID so updates can keep their own slug.
func (b *BlogController) uniqueSlug(base string, excludeID uint) (string, error) {
	if base == "" {
		base = "post"
	}
	slug := base
	for i := 2; ; i++ {
		var count int64
		query := b.db.Model(&models.Blog{}).Where("slug = ?", slug)
		if excludeID != 0 {
			query = query.Where("id <> ?", excludeID)
		}
		if err := query.Count(&count).Error; err != nil {
			return "", err
		}
		if count == 0 {
			return slug, nil
		}
		slug = fmt.Sprintf("%s-%d", base, i)
	}
}

type blogRequest struct {
	Title     string   `json:"title" binding:"required,max=255"`
	Content   string   `json:"content" binding:"required"`
	CoverURL  string   `json:"cover_url" binding:"omitempty,url,max=512"`
	Tags      []string `json:"tags" binding:"omitempty,max=10,dive,max=32"`
	Published bool     `json:"published"`
}

// List returns paginated blog posts. Readers without the admin role only see
// published posts.
func (b *BlogController) List(ctx *gin.Context) {
	cfg := config.Get()
	params := utils.ParseListParams(ctx, cfg.DefaultPageSize, cfg.MaxPageSize)

	query := b.db.Model(&models.Blog{})
	if role, _ := getRole(ctx); role != models.RoleAdmin {
		query = query.Where("published = ?", true)
	}
	if params.Search != "" {
		like := "%" + params.Search + "%"
		query = query.Where("title LIKE ? OR content LIKE ?", like, like)
	}
	if tag := strings.TrimSpace(ctx.Query("tag")); tag != "" {
		query = query.Where("tags LIKE ?", "%"+tag+"%")
	}

	var total int64
	if err := query.Count(&total).Error; err != nil {
		utils.Error(ctx, http.StatusInternalServerError, 50050, "failed to count posts")
		return
	}

	var posts []models.Blog
	if err := query.Order(params.OrderClause(blogSortColumns, "created_at DESC")).
		Offset(params.Skip).Limit(params.Limit).
		Find(&posts).Error; err != nil {
		utils.Error(ctx, http.StatusInternalServerError, 50051, "failed to list posts")
		return
	}

	utils.Success(ctx, gin.H{
		"posts": posts,
		"meta":  utils.NewPageMeta(params.Page, params.Limit, total),
	})
}

// Get returns a single post by slug. Drafts are only visible to admins.
func (b *BlogController) Get(ctx *gin.Context) {
	slug := ctx.Param("slug")

	var post models.Blog
	if err := b.db.Where("slug = ?", slug).First(&post).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			utils.Error(ctx, http.StatusNotFound, 40450, "post not found")
			return
		}
		utils.Error(ctx, http.StatusInternalServerError, 50052, "failed to load post")
		return
	}

	if !post.Published {
		if role, _ := getRole(ctx); role != models.RoleAdmin {
			utils.Error(ctx, http.StatusNotFound, 40450, "post not found")
			return
		}
	}

	utils.Success(ctx, post)
}

// Create adds a blog post. Content is sanitized and the slug derived from the title.
func (b *BlogController) Create(ctx *gin.Context) {
	actorID, ok := getUserID(ctx)
	if !ok {
		utils.Error(ctx, http.StatusUnauthorized, 40110, "unauthorized")
		return
	}

	var req blogRequest
	if err := ctx.ShouldBindJSON(&req); err != nil {
		utils.Error(ctx, http.StatusBadRequest, 40050, "invalid post payload")
		return
	}

	slug, err := b.uniqueSlug(slugify(req.Title), 0)
	if err != nil {
		utils.Error(ctx, http.StatusInternalServerError, 50053, "failed to derive slug")
		return
	}

	tags, _ := json.Marshal(req.Tags)
	post := models.Blog{
		Title:     strings.TrimSpace(req.Title),
		Slug:      slug,
		Content:   utils.Sanitize(req.Content),
		CoverURL:  req.CoverURL,
		Tags:      string(tags),
		Published: req.Published,
		CreatedBy: actorID,
	}
	if err := b.db.Create(&post).Error; err != nil {
		utils.Error(ctx, http.StatusInternalServerError, 50054, "failed to create post")
		return
	}

	utils.Success(ctx, post)
}

// Update replaces a post's editable fields, re-deriving the slug when the title changes.
func (b *BlogController) Update(ctx *gin.Context) {
	slug := ctx.Param("slug")

	var post models.Blog
	if err := b.db.Where("slug = ?", slug).First(&post).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			utils.Error(ctx, http.StatusNotFound, 40450, "post not found")
			return
		}
		utils.Error(ctx, http.StatusInternalServerError, 50052, "failed to load post")
		return
	}

	var req blogRequest
	if err := ctx.ShouldBindJSON(&req); err != nil {
		utils.Error(ctx, http.StatusBadRequest, 40050, "invalid post payload")
		return
	}

	title := strings.TrimSpace(req.Title)
	if title != post.Title {
		newSlug, err := b.uniqueSlug(slugify(title), post.ID)
		if err != nil {
			utils.Error(ctx, http.StatusInternalServerError, 50053, "failed to derive slug")
			return
		}
		post.Slug = newSlug
	}

	tags, _ := json.Marshal(req.Tags)
	post.Title = title
	post.Content = utils.Sanitize(req.Content)
	post.CoverURL = req.CoverURL
	post.Tags = string(tags)
	post.Published = req.Published

	if err := b.db.Save(&post).Error; err != nil {
		utils.Error(ctx, http.StatusInternalServerError, 50055, "failed to update post")
		return
	}

	utils.Success(ctx, post)
}

// Delete removes a post by slug.
func (b *BlogController) Delete(ctx *gin.Context) {
	slug := ctx.Param("slug")

	result := b.db.Where("slug = ?", slug).Delete(&models.Blog{})
	if result.Error != nil {
		utils.Error(ctx, http.StatusInternalServerError, 50056, "failed to delete post")
		return
	}
	if result.RowsAffected == 0 {
		utils.Error(ctx, http.StatusNotFound, 40450, "post not found")
		return
	}

	utils.Success(ctx, gin.H{"deleted": true})
}
