package controllers

import (
	"fmt"
	"io"
	"net/http"
	"path/filepath"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"

	"github.com/campushare/noteshelf/config"
	"github.com/campushare/noteshelf/middleware"
	"github.com/campushare/noteshelf/models"
	"github.com/campushare/noteshelf/storage"
	"github.com/campushare/noteshelf/utils"
)

// NoteController manages note uploads, listing and downloads.
type NoteController struct {
	db             *gorm.DB
	store          storage.Store
	maxUploadBytes int64
}

// NewNoteController creates a NoteController backed by the given store.
func NewNoteController(db *gorm.DB, store storage.Store) *NoteController {
	return &NoteController{
		db:             db,
		store:          store,
		maxUploadBytes: int64(config.Get().MaxUploadSizeMB) * 1024 * 1024,
	}
}

// noteView is what list responses carry: note fields plus a download URL
// derived from the file's base name, never the full storage path.
type noteView struct {
	ID           uint   `json:"id"`
	Title        string `json:"title"`
	AcademicYear string `json:"academic_year"`
	Semester     string `json:"semester"`
	SubjectCode  string `json:"subject_code"`
	NotesType    string `json:"notes_type"`
	Description  string `json:"description"`
	FileURL      string `json:"file_url"`
	UploadedAt   string `json:"uploaded_at"`
}

func toNoteView(n models.Note) noteView {
	return noteView{
		ID:           n.ID,
		Title:        n.Title,
		AcademicYear: n.AcademicYear,
		Semester:     n.Semester,
		SubjectCode:  n.SubjectCode,
		NotesType:    n.NotesType,
		Description:  n.Description,
		FileURL:      "/uploads/" + filepath.Base(n.FilePath),
		UploadedAt:   n.UploadedAt.UTC().Format(time.RFC3339),
	}
}

func notesCachePrefix(userID uint) string {
	return fmt.Sprintf("cache:user:%d:notes", userID)
}

// UploadNote stores an uploaded document and its metadata as one logical
// transaction: if the metadata insert fails the written file is removed,
// and no metadata row exists without its file.
func (n *NoteController) UploadNote(ctx *gin.Context) {
	userID, ok := getUserID(ctx)
	if !ok {
		utils.Error(ctx, http.StatusUnauthorized, 40110, "unauthorized")
		return
	}

	file, header, err := ctx.Request.FormFile("file")
	if err != nil {
		utils.Error(ctx, http.StatusBadRequest, 40030, "no file uploaded")
		return
	}
	defer file.Close()

	if !storage.AllowedExtension(header.Filename) {
		utils.Error(ctx, http.StatusBadRequest, 40031, "invalid file type, allowed: pdf, doc, docx, txt, ppt, pptx, odt, ods, odp, rtf")
		return
	}
	if storage.SanitizeFilename(header.Filename) == "" {
		utils.Error(ctx, http.StatusBadRequest, 40032, "invalid filename")
		return
	}
	if header.Size > 0 && header.Size > n.maxUploadBytes {
		utils.Error(ctx, http.StatusBadRequest, 40033, "file too large")
		return
	}

	academicYear := strings.TrimSpace(ctx.PostForm("academicYear"))
	semester := strings.TrimSpace(ctx.PostForm("semester"))
	subject := strings.TrimSpace(ctx.PostForm("subject"))
	notesType := strings.TrimSpace(ctx.PostForm("notesType"))
	title := utils.Sanitize(strings.TrimSpace(ctx.PostForm("title")))
	description := utils.Sanitize(strings.TrimSpace(ctx.PostForm("description")))

	if academicYear == "" || semester == "" || subject == "" || notesType == "" || title == "" {
		utils.Error(ctx, http.StatusBadRequest, 40034, "missing required note metadata")
		return
	}

	// Validation is complete; from here on every failure must undo the file write.
	lr := &io.LimitedReader{R: file, N: n.maxUploadBytes + 1}
	relPath, written, err := n.store.Save(header.Filename, lr)
	if err != nil {
		if utils.Sugar != nil {
			utils.Sugar.Errorf("upload: file write failed: %v", err)
		}
		utils.Error(ctx, http.StatusInternalServerError, 50030, "failed to save file")
		return
	}
	if written > n.maxUploadBytes {
		_ = n.store.Remove(relPath)
		utils.Error(ctx, http.StatusBadRequest, 40033, "file too large")
		return
	}

	note := models.Note{
		UserID:       userID,
		Title:        title,
		AcademicYear: academicYear,
		Semester:     semester,
		SubjectCode:  subject,
		NotesType:    notesType,
		Description:  description,
		FilePath:     relPath,
	}

	if err := n.db.Create(&note).Error; err != nil {
		// No orphaned files: the metadata insert failed, so the file goes too.
		_ = n.store.Remove(relPath)
		if utils.Sugar != nil {
			utils.Sugar.Errorf("upload: metadata insert failed: %v", err)
		}
		utils.Error(ctx, http.StatusInternalServerError, 50031, "failed to save note")
		return
	}

	utils.InvalidateByPrefix(notesCachePrefix(userID))

	ctx.JSON(http.StatusCreated, gin.H{
		"success": true,
		"message": "file uploaded and note saved successfully",
		"note_id": note.ID,
	})
}

// ListNotes returns the authenticated user's notes, newest first.
func (n *NoteController) ListNotes(ctx *gin.Context) {
	userID, ok := getUserID(ctx)
	if !ok {
		utils.Error(ctx, http.StatusUnauthorized, 40110, "unauthorized")
		return
	}

	cacheKey := notesCachePrefix(userID)
	if b, ok := utils.CacheGetBytes(cacheKey); ok {
		ctx.Data(http.StatusOK, "application/json", b)
		return
	}

	var notes []models.Note
	if err := n.db.Where("user_id = ?", userID).Order("uploaded_at DESC").Find(&notes).Error; err != nil {
		utils.Error(ctx, http.StatusInternalServerError, 50032, "failed to fetch notes")
		return
	}

	views := make([]noteView, 0, len(notes))
	for _, note := range notes {
		views = append(views, toNoteView(note))
	}

	utils.CacheSetJSON(cacheKey, views, time.Hour)
	ctx.JSON(http.StatusOK, views)
}

// DownloadNote serves a stored file to its owner. Missing and not-owned
// collapse to the same 404 on purpose.
func (n *NoteController) DownloadNote(ctx *gin.Context) {
	userID, ok := getUserID(ctx)
	if !ok {
		utils.Error(ctx, http.StatusUnauthorized, 40110, "unauthorized")
		return
	}

	filename := ctx.Param("filename")
	// Only exact, already-sanitized names are servable; anything else smells
	// of traversal and gets the same answer as a miss.
	if filename == "" || storage.SanitizeFilename(filename) != filename {
		utils.Error(ctx, http.StatusNotFound, 40402, "file not found or access denied")
		return
	}

	relPath := n.store.Join(filename)
	var note models.Note
	if err := n.db.Where("file_path = ? AND user_id = ?", relPath, userID).First(&note).Error; err != nil {
		utils.Error(ctx, http.StatusNotFound, 40402, "file not found or access denied")
		return
	}

	if !n.store.Exists(relPath) {
		if utils.Sugar != nil {
			utils.Sugar.Warnf("download: file missing on disk: %s", relPath)
		}
		utils.Error(ctx, http.StatusNotFound, 40403, "file not found on server")
		return
	}

	ctx.File(n.store.Path(relPath))
}

func getUserID(ctx *gin.Context) (uint, bool) {
	value, exists := ctx.Get(middleware.ContextUserIDKey)
	if !exists {
		return 0, false
	}

	switch v := value.(type) {
	case uint:
		return v, true
	case int:
		return uint(v), true
	case int64:
		return uint(v), true
	case float64:
		return uint(v), true
	default:
		return 0, false
	}
}
