package handlers

import (
	"net/http"
	"strings"

	"github.com/Fn-M/HousingManager/internal/apperr"
	"github.com/Fn-M/HousingManager/internal/auth"
	"github.com/Fn-M/HousingManager/internal/detail"
	"github.com/gin-gonic/gin"
)

// currentView returns the caller's mounted view or answers 404.
func (h *Handler) currentView(c *gin.Context) (*detail.View, bool) {
	v, err := h.Service.View(auth.CurrentUser(c))
	if err != nil {
		h.respondError(c, err)
		return nil, false
	}
	return v, true
}

// withView runs fn on the caller's view and answers with the view state.
func (h *Handler) withView(c *gin.Context, fn func(v *detail.View) error) {
	v, ok := h.currentView(c)
	if !ok {
		return
	}
	if err := fn(v); err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, v.State())
}

// openView mounts and loads a listing. Pictures or comments that fail to load
// are reported in the state's errors; a listing that fails is an error.
func (h *Handler) openView(c *gin.Context) {
	v, err := h.Service.OpenView(c.Request.Context(), auth.CurrentUser(c), c.Param("id"))
	if v == nil {
		h.respondError(c, err)
		return
	}
	st := v.State()
	if err != nil && st.Listing == nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, st)
}

func (h *Handler) getView(c *gin.Context) {
	h.withView(c, func(*detail.View) error { return nil })
}

func (h *Handler) closeView(c *gin.Context) {
	h.Service.CloseView(auth.CurrentUser(c))
	c.Status(http.StatusNoContent)
}

func (h *Handler) nextPhoto(c *gin.Context) {
	h.withView(c, func(v *detail.View) error {
		_, err := v.NextPhoto()
		return err
	})
}

func (h *Handler) prevPhoto(c *gin.Context) {
	h.withView(c, func(v *detail.View) error {
		_, err := v.PrevPhoto()
		return err
	})
}

type keyRequest struct {
	Key string `json:"key" binding:"required"`
}

func (h *Handler) photoKey(c *gin.Context) {
	var req keyRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request body"})
		return
	}
	h.withView(c, func(v *detail.View) error {
		_, err := v.HandleKey(req.Key)
		return err
	})
}

type selectRequest struct {
	Index  *int  `json:"index" binding:"required"`
	Expand *bool `json:"expand"`
}

func (h *Handler) selectPhoto(c *gin.Context) {
	var req selectRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request body"})
		return
	}
	h.withView(c, func(v *detail.View) error {
		if err := v.SelectPhoto(*req.Index); err != nil {
			return err
		}
		if req.Expand != nil {
			return v.ExpandPhotos(*req.Expand)
		}
		return nil
	})
}

func (h *Handler) deleteCurrentPhoto(c *gin.Context) {
	h.withView(c, func(v *detail.View) error {
		_, err := v.DeleteCurrentPhoto(c.Request.Context())
		return err
	})
}

func (h *Handler) deleteAllPhotos(c *gin.Context) {
	h.withView(c, func(v *detail.View) error {
		_, err := v.DeleteAllPhotos(c.Request.Context())
		return err
	})
}

type commentRequest struct {
	Text            string `json:"text"`
	ParentCommentID string `json:"parentCommentId"`
}

func (h *Handler) addComment(c *gin.Context) {
	var req commentRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request body"})
		return
	}
	h.withView(c, func(v *detail.View) error {
		if parent := strings.TrimSpace(req.ParentCommentID); parent != "" {
			return v.Reply(c.Request.Context(), parent, req.Text)
		}
		return v.AddComment(c.Request.Context(), req.Text)
	})
}

func (h *Handler) toggleReplies(c *gin.Context) {
	h.withView(c, func(v *detail.View) error {
		_, err := v.ToggleReplies(c.Param("commentId"))
		return err
	})
}

func (h *Handler) beginEdit(c *gin.Context) {
	h.withView(c, func(v *detail.View) error { return v.BeginEdit() })
}

func (h *Handler) updateDraft(c *gin.Context) {
	var d detail.Draft
	if err := c.ShouldBindJSON(&d); err != nil {
		h.respondError(c, apperr.Validationf("handlers.updateDraft", "Invalid date"))
		return
	}
	h.withView(c, func(v *detail.View) error { return v.UpdateDraft(d) })
}

func (h *Handler) saveEdit(c *gin.Context) {
	h.withView(c, func(v *detail.View) error {
		_, err := v.SaveEdit(c.Request.Context())
		return err
	})
}

func (h *Handler) cancelEdit(c *gin.Context) {
	h.withView(c, func(v *detail.View) error { return v.CancelEdit() })
}
