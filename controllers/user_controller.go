package controllers

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/zidanindratama/be-gunasmash/config"
	"github.com/zidanindratama/be-gunasmash/models"
	"github.com/zidanindratama/be-gunasmash/utils"
)

// UserController handles admin-side member management.
type UserController struct {
	db *gorm.DB
}

// NewUserController creates a new controller instance.
func NewUserController(db *gorm.DB) *UserController {
	return &UserController{db: db}
}

var userSortColumns = map[string]string{
	"name":       "name",
	"email":      "email",
	"role":       "role",
	"created_at": "created_at",
}

// List returns a paginated member listing with optional search over name and email.
func (u *UserController) List(ctx *gin.Context) {
	cfg := config.Get()
	params := utils.ParseListParams(ctx, cfg.DefaultPageSize, cfg.MaxPageSize)

	query := u.db.Model(&models.User{})
	if params.Search != "" {
		like := "%" + params.Search + "%"
		query = query.Where("name LIKE ? OR email LIKE ?", like, like)
	}
	if role := strings.TrimSpace(ctx.Query("role")); role != "" {
		query = query.Where("role = ?", strings.ToUpper(role))
	}

	var total int64
	if err := query.Count(&total).Error; err != nil {
		utils.Error(ctx, http.StatusInternalServerError, 50020, "failed to count users")
		return
	}

	var users []models.User
	if err := query.Order(params.OrderClause(userSortColumns, "name ASC")).
		Offset(params.Skip).Limit(params.Limit).
		Find(&users).Error; err != nil {
		utils.Error(ctx, http.StatusInternalServerError, 50021, "failed to list users")
		return
	}

	utils.Success(ctx, gin.H{
		"users": users,
		"meta":  utils.NewPageMeta(params.Page, params.Limit, total),
	})
}

// Get returns a single user by ID.
func (u *UserController) Get(ctx *gin.Context) {
	id, err := strconv.ParseUint(ctx.Param("id"), 10, 32)
	if err != nil {
		utils.Error(ctx, http.StatusBadRequest, 40020, "invalid user id")
		return
	}

	var user models.User
	if err := u.db.First(&user, uint(id)).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			utils.Error(ctx, http.StatusNotFound, 40420, "user not found")
			return
		}
		utils.Error(ctx, http.StatusInternalServerError, 50022, "failed to load user")
		return
	}

	utils.Success(ctx, user)
}

// Create adds a user directly, allowing the admin to set the role. When no
// password is provided a random one is generated and returned once.
func (u *UserController) Create(ctx *gin.Context) {
	var req struct {
		Name     string `json:"name" binding:"required,min=2,max=128"`
		Email    string `json:"email" binding:"required,email"`
		Password string `json:"password" binding:"omitempty,min=8,max=72"`
		Role     string `json:"role" binding:"omitempty,oneof=ADMIN MEMBER"`
	}
	if err := ctx.ShouldBindJSON(&req); err != nil {
		utils.Error(ctx, http.StatusBadRequest, 40021, "invalid user payload")
		return
	}

	email := strings.ToLower(strings.TrimSpace(req.Email))

	var count int64
	if err := u.db.Model(&models.User{}).Where("email = ?", email).Count(&count).Error; err != nil {
		utils.Error(ctx, http.StatusInternalServerError, 50023, "failed to check email")
		return
	}
	if count > 0 {
		utils.Error(ctx, http.StatusConflict, 40920, "email already registered")
		return
	}

	generated := ""
	password := req.Password
	if password == "" {
		generated = uuid.NewString()
		password = generated
	}
	hash, err := utils.HashPassword(password)
	if err != nil {
		utils.Error(ctx, http.StatusInternalServerError, 50024, "failed to hash password")
		return
	}

	user := models.User{
		Name:         strings.TrimSpace(req.Name),
		Email:        email,
		PasswordHash: hash,
		Role:         req.Role,
	}
	if user.Role == "" {
		user.Role = models.RoleMember
	}
	if err := u.db.Create(&user).Error; err != nil {
		utils.Error(ctx, http.StatusInternalServerError, 50025, "failed to create user")
		return
	}

	utils.CacheDelete(globalStatsCacheKey)

	resp := gin.H{"user": user}
	if generated != "" {
		resp["generated_password"] = generated
	}
	utils.Success(ctx, resp)
}

// Update modifies a user's name, email, role, or avatar.
func (u *UserController) Update(ctx *gin.Context) {
	id, err := strconv.ParseUint(ctx.Param("id"), 10, 32)
	if err != nil {
		utils.Error(ctx, http.StatusBadRequest, 40020, "invalid user id")
		return
	}

	var req struct {
		Name      string `json:"name" binding:"omitempty,min=2,max=128"`
		Email     string `json:"email" binding:"omitempty,email"`
		Role      string `json:"role" binding:"omitempty,oneof=ADMIN MEMBER"`
		AvatarURL string `json:"avatar_url" binding:"omitempty,url,max=512"`
	}
	if err := ctx.ShouldBindJSON(&req); err != nil {
		utils.Error(ctx, http.StatusBadRequest, 40021, "invalid user payload")
		return
	}

	var user models.User
	if err := u.db.First(&user, uint(id)).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			utils.Error(ctx, http.StatusNotFound, 40420, "user not found")
			return
		}
		utils.Error(ctx, http.StatusInternalServerError, 50022, "failed to load user")
		return
	}

	if req.Email != "" {
		email := strings.ToLower(strings.TrimSpace(req.Email))
		if email != user.Email {
			var count int64
			if err := u.db.Model(&models.User{}).Where("email = ? AND id <> ?", email, user.ID).Count(&count).Error; err != nil {
				utils.Error(ctx, http.StatusInternalServerError, 50023, "failed to check email")
				return
			}
			if count > 0 {
				utils.Error(ctx, http.StatusConflict, 40920, "email already registered")
				return
			}
			user.Email = email
		}
	}
	if req.Name != "" {
		user.Name = strings.TrimSpace(req.Name)
	}
	if req.Role != "" {
		user.Role = req.Role
	}
	if req.AvatarURL != "" {
		user.AvatarURL = req.AvatarURL
	}

	if err := u.db.Save(&user).Error; err != nil {
		utils.Error(ctx, http.StatusInternalServerError, 50026, "failed to update user")
		return
	}

	utils.Success(ctx, user)
}

// UpdateRole changes only the role of a user.
func (u *UserController) UpdateRole(ctx *gin.Context) {
	id, err := strconv.ParseUint(ctx.Param("id"), 10, 32)
	if err != nil {
		utils.Error(ctx, http.StatusBadRequest, 40020, "invalid user id")
		return
	}

	var req struct {
		Role string `json:"role" binding:"required,oneof=ADMIN MEMBER"`
	}
	if err := ctx.ShouldBindJSON(&req); err != nil {
		utils.Error(ctx, http.StatusBadRequest, 40025, "role must be ADMIN or MEMBER")
		return
	}

	var user models.User
	if err := u.db.First(&user, uint(id)).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			utils.Error(ctx, http.StatusNotFound, 40420, "user not found")
			return
		}
		utils.Error(ctx, http.StatusInternalServerError, 50022, "failed to load user")
		return
	}

	user.Role = req.Role
	if err := u.db.Save(&user).Error; err != nil {
		utils.Error(ctx, http.StatusInternalServerError, 50026, "failed to update user")
		return
	}

	utils.Success(ctx, user)
}

// Delete removes a user. By default the request fails with 409 when the user
// still owns content or attendance history. With ?reassign=true the deletion
// runs as a single transaction: attendance rows are removed and owned
// announcements and blogs are reassigned to the acting admin.
func (u *UserController) Delete(ctx *gin.Context) {
	id, err := strconv.ParseUint(ctx.Param("id"), 10, 32)
	if err != nil {
		utils.Error(ctx, http.StatusBadRequest, 40020, "invalid user id")
		return
	}
	targetID := uint(id)

	actorID, ok := getUserID(ctx)
	if !ok {
		utils.Error(ctx, http.StatusUnauthorized, 40110, "unauthorized")
		return
	}
	if actorID == targetID {
		utils.Error(ctx, http.StatusBadRequest, 40022, "cannot delete your own account")
		return
	}

	var user models.User
	if err := u.db.First(&user, targetID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			utils.Error(ctx, http.StatusNotFound, 40420, "user not found")
			return
		}
		utils.Error(ctx, http.StatusInternalServerError, 50022, "failed to load user")
		return
	}

	reassign := strings.EqualFold(ctx.Query("reassign"), "true")
	if !reassign {
		var refs int64
		u.db.Model(&models.Attendance{}).Where("user_id = ?", targetID).Count(&refs)
		var owned int64
		u.db.Model(&models.Announcement{}).Where("created_by = ?", targetID).Count(&owned)
		var blogs int64
		u.db.Model(&models.Blog{}).Where("created_by = ?", targetID).Count(&blogs)
		if refs+owned+blogs > 0 {
			utils.Error(ctx, http.StatusConflict, 40921, "user has related records, retry with reassign=true")
			return
		}
	}

	err = u.db.Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("user_id = ?", targetID).Delete(&models.Attendance{}).Error; err != nil {
			return err
		}
		if err := tx.Model(&models.Announcement{}).Where("created_by = ?", targetID).
			Update("created_by", actorID).Error; err != nil {
			return err
		}
		if err := tx.Model(&models.Blog{}).Where("created_by = ?", targetID).
			Update("created_by", actorID).Error; err != nil {
			return err
		}
		return tx.Delete(&models.User{}, targetID).Error
	})
	if err != nil {
		utils.Error(ctx, http.StatusInternalServerError, 50027, "failed to delete user")
		return
	}

	utils.CacheDelete(globalStatsCacheKey)
	utils.Success(ctx, gin.H{"deleted": true})
}

// defaultImportPassword is assigned to imported members who come without one;
// they are expected to change it on first login.
const defaultImportPassword = "password123"

// ImportCSV bulk-creates members from an uploaded CSV with a name,email header
// and an optional third password column. Rows with a duplicate or malformed
// email are skipped and reported.
func (u *UserController) ImportCSV(ctx *gin.Context) {
	file, _, err := ctx.Request.FormFile("file")
	if err != nil {
		utils.Error(ctx, http.StatusBadRequest, 40023, "file upload is required")
		return
	}
	defer file.Close()

	reader := csv.NewReader(file)
	reader.TrimLeadingSpace = true
	reader.FieldsPerRecord = -1

	header, err := reader.Read()
	if err != nil || len(header) < 2 ||
		!strings.EqualFold(strings.TrimSpace(header[0]), "name") ||
		!strings.EqualFold(strings.TrimSpace(header[1]), "email") {
		utils.Error(ctx, http.StatusBadRequest, 40024, "csv must start with a name,email header")
		return
	}

	created := 0
	skipped := []string{}
	line := 1
	for {
		record, err := reader.Read()
		if err == io.EOF {
			break
		}
		line++
		if err != nil {
			skipped = append(skipped, fmt.Sprintf("line %d: malformed row", line))
			continue
		}
		if len(record) < 2 {
			skipped = append(skipped, fmt.Sprintf("line %d: missing columns", line))
			continue
		}

		name := strings.TrimSpace(record[0])
		email := strings.ToLower(strings.TrimSpace(record[1]))
		if name == "" || email == "" || !strings.Contains(email, "@") {
			skipped = append(skipped, fmt.Sprintf("line %d: invalid name or email", line))
			continue
		}

		var count int64
		if err := u.db.Model(&models.User{}).Where("email = ?", email).Count(&count).Error; err != nil {
			utils.Error(ctx, http.StatusInternalServerError, 50023, "failed to check email")
			return
		}
		if count > 0 {
			skipped = append(skipped, fmt.Sprintf("line %d: email already registered", line))
			continue
		}

		password := defaultImportPassword
		if len(record) > 2 && strings.TrimSpace(record[2]) != "" {
			password = strings.TrimSpace(record[2])
		}
		hash, err := utils.HashPassword(password)
		if err != nil {
			utils.Error(ctx, http.StatusInternalServerError, 50024, "failed to hash password")
			return
		}
		user := models.User{Name: name, Email: email, PasswordHash: hash, Role: models.RoleMember}
		if err := u.db.Create(&user).Error; err != nil {
			skipped = append(skipped, fmt.Sprintf("line %d: insert failed", line))
			continue
		}
		created++
	}

	utils.Success(ctx, gin.H{"created": created, "skipped": skipped})
}

// ExportCSV streams the full member roster as a CSV attachment.
func (u *UserController) ExportCSV(ctx *gin.Context) {
	var users []models.User
	if err := u.db.Order("name ASC").Find(&users).Error; err != nil {
		utils.Error(ctx, http.StatusInternalServerError, 50021, "failed to list users")
		return
	}

	var b strings.Builder
	b.WriteString("id,name,email,role")
	for _, user := range users {
		b.WriteString("\n" + strconv.FormatUint(uint64(user.ID), 10) + "," +
			utils.CSVSafe(user.Name) + "," + utils.CSVSafe(user.Email) + "," + user.Role)
	}

	ctx.Header("Content-Disposition", `attachment; filename="members.csv"`)
	ctx.Data(http.StatusOK, "text/csv; charset=utf-8", []byte(b.String()))
}
