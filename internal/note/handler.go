package note

import (
	"collaborative-notes/internal/domain"
	"collaborative-notes/internal/errors"
	"collaborative-notes/internal/utils"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
)

type Handler struct {
	service Service
}

func NewHandler(service Service) *Handler {
	return &Handler{service: service}
}

type NoteRequest struct {
	Title   string `json:"title" binding:"required,min=1,max=255"`
	Content string `json:"content"`
}

func (h *Handler) Create(c *gin.Context) {
	var form NoteRequest
	if err := c.ShouldBindJSON(&form); err != nil {
		c.Error(errors.NewValidationError(err))
		return
	}

	userID, _ := c.Get("user_id")

	note, err := h.service.CreateNote(c.Request.Context(), userID.(uint64), form.Title, form.Content)
	if err != nil {
		c.Error(err)
		return
	}

	c.JSON(http.StatusCreated, gin.H{
		"id":         note.ID,
		"title":      note.Title,
		"content":    note.Content,
		"owner_id":   note.OwnerID,
		"created_at": note.CreatedAt,
		"updated_at": note.UpdatedAt,
	})
}

func (h *Handler) ShowOwnNotes(c *gin.Context) {
	userID, _ := c.Get("user_id")

	page, pageSize := utils.GetPaginationParams(c)
	result, err := h.service.ListOwnNotes(c.Request.Context(), userID.(uint64), page, pageSize)
	if err != nil {
		c.Error(err)
		return
	}

	c.JSON(http.StatusOK, result)
}

func (h *Handler) ShowSharedNotes(c *gin.Context) {
	userID, _ := c.Get("user_id")

	page, pageSize := utils.GetPaginationParams(c)
	notes, meta, err := h.service.ListSharedNotes(c.Request.Context(), userID.(uint64), page, pageSize)
	if err != nil {
		c.Error(err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": notes, "meta": meta})
}

func (h *Handler) ShowNote(c *gin.Context) {
	noteID, err := strconv.ParseUint(c.Param("id"), 10, 64)
	if err != nil {
		c.Error(errors.BadRequest("Invalid note id", err))
		return
	}

	userID, _ := c.Get("user_id")

	view, err := h.service.GetNoteView(c.Request.Context(), userID.(uint64), noteID)
	if err != nil {
		c.Error(err)
		return
	}

	c.JSON(http.StatusOK, view)
}

func (h *Handler) Edit(c *gin.Context) {
	noteID, err := strconv.ParseUint(c.Param("id"), 10, 64)
	if err != nil {
		c.Error(errors.BadRequest("Invalid note id", err))
		return
	}

	var form NoteRequest
	if err := c.ShouldBindJSON(&form); err != nil {
		c.Error(errors.NewValidationError(err))
		return
	}

	userID, _ := c.Get("user_id")

	note, err := h.service.EditNote(c.Request.Context(), userID.(uint64), noteID, form.Title, form.Content)
	if err != nil {
		c.Error(err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"id":         note.ID,
		"title":      note.Title,
		"content":    note.Content,
		"updated_at": note.UpdatedAt,
	})
}

func (h *Handler) Delete(c *gin.Context) {
	noteID, err := strconv.ParseUint(c.Param("id"), 10, 64)
	if err != nil {
		c.Error(errors.BadRequest("Invalid note id", err))
		return
	}

	userID, _ := c.Get("user_id")

	if err := h.service.DeleteNote(c.Request.Context(), userID.(uint64), noteID); err != nil {
		c.Error(err)
		return
	}

	c.Status(http.StatusNoContent)
}

type ShareRequest struct {
	Username string `json:"username" binding:"required"`
	Role     string `json:"role" binding:"required,oneof=editor viewer"`
}

func (h *Handler) Share(c *gin.Context) {
	noteID, err := strconv.ParseUint(c.Param("id"), 10, 64)
	if err != nil {
		c.Error(errors.BadRequest("Invalid note id", err))
		return
	}

	var req ShareRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.Error(errors.NewValidationError(err))
		return
	}

	userID, _ := c.Get("user_id")

	result, err := h.service.ShareNote(
		c.Request.Context(),
		userID.(uint64),
		noteID,
		req.Username,
		domain.Role(req.Role),
	)
	if err != nil {
		c.Error(err)
		return
	}

	// the self-share case completes with a warning and no grant
	if result.Warning != "" {
		c.JSON(http.StatusOK, result)
		return
	}

	status := http.StatusOK
	if result.Created {
		status = http.StatusCreated
	}
	c.JSON(status, result)
}

func (h *Handler) Unshare(c *gin.Context) {
	noteID, err := strconv.ParseUint(c.Param("id"), 10, 64)
	if err != nil {
		c.Error(errors.BadRequest("Invalid note id", err))
		return
	}

	targetUserID, err := strconv.ParseUint(c.Param("userId"), 10, 64)
	if err != nil {
		c.Error(errors.BadRequest("Invalid user id", err))
		return
	}

	userID, _ := c.Get("user_id")

	if err := h.service.UnshareNote(c.Request.Context(), userID.(uint64), noteID, targetUserID); err != nil {
		c.Error(err)
		return
	}

	c.Status(http.StatusNoContent)
}

func (h *Handler) Restore(c *gin.Context) {
	noteID, err := strconv.ParseUint(c.Param("id"), 10, 64)
	if err != nil {
		c.Error(errors.BadRequest("Invalid note id", err))
		return
	}

	versionID, err := strconv.ParseUint(c.Param("versionId"), 10, 64)
	if err != nil {
		c.Error(errors.BadRequest("Invalid version id", err))
		return
	}

	userID, _ := c.Get("user_id")

	note, err := h.service.RestoreVersion(c.Request.Context(), userID.(uint64), noteID, versionID)
	if err != nil {
		c.Error(err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"id":         note.ID,
		"title":      note.Title,
		"content":    note.Content,
		"updated_at": note.UpdatedAt,
	})
}
