package http

import (
	"errors"
	"net/http"
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"

	"wellness-hub/internal/domain"
	"wellness-hub/internal/repository"
)

func (h *Handler) listJournals(c *gin.Context) {
	journals, err := h.journals.ListByUser(c.Request.Context(), currentUserID(c))
	if err != nil {
		h.log.WithError(err).Error("list journals")
		abortMsg(c, http.StatusInternalServerError, "Failed to fetch journals")
		return
	}
	c.JSON(http.StatusOK, journals)
}

func (h *Handler) createJournal(c *gin.Context) {
	var journal domain.Journal
	if err := c.ShouldBindJSON(&journal); err != nil {
		abortMsg(c, http.StatusBadRequest, "Invalid journal body")
		return
	}
	if strings.TrimSpace(journal.Title) == "" || strings.TrimSpace(journal.Content) == "" {
		abortMsg(c, http.StatusBadRequest, "Title and content are required")
		return
	}

	if _, err := h.journals.Create(c.Request.Context(), currentUserID(c), &journal); err != nil {
		h.log.WithError(err).Error("create journal")
		abortMsg(c, http.StatusInternalServerError, "Failed to create journal")
		return
	}
	c.JSON(http.StatusOK, journal)
}

func (h *Handler) getJournal(c *gin.Context) {
	journal, ok := h.ownedJournal(c)
	if !ok {
		return
	}
	c.JSON(http.StatusOK, journal)
}

func (h *Handler) updateJournal(c *gin.Context) {
	existing, ok := h.ownedJournal(c)
	if !ok {
		return
	}

	var patch domain.Journal
	if err := c.ShouldBindJSON(&patch); err != nil {
		abortMsg(c, http.StatusBadRequest, "Invalid journal body")
		return
	}
	if patch.Title != "" {
		existing.Title = patch.Title
	}
	if patch.Content != "" {
		existing.Content = patch.Content
	}
	if patch.Mood != "" {
		existing.Mood = patch.Mood
	}
	if patch.Sentiment != "" {
		existing.Sentiment = patch.Sentiment
	}
	if !patch.Date.IsZero() {
		existing.Date = patch.Date
	}

	id, _ := strconv.ParseInt(existing.ID, 10, 64)
	if err := h.journals.Update(c.Request.Context(), id, existing); err != nil {
		h.log.WithError(err).Error("update journal")
		abortMsg(c, http.StatusInternalServerError, "Failed to update journal")
		return
	}
	c.JSON(http.StatusOK, existing)
}

func (h *Handler) deleteJournal(c *gin.Context) {
	existing, ok := h.ownedJournal(c)
	if !ok {
		return
	}

	id, _ := strconv.ParseInt(existing.ID, 10, 64)
	if err := h.journals.Delete(c.Request.Context(), id); err != nil {
		h.log.WithError(err).Error("delete journal")
		abortMsg(c, http.StatusInternalServerError, "Failed to delete journal")
		return
	}
	c.JSON(http.StatusOK, gin.H{"msg": "Journal entry removed"})
}

// ownedJournal loads the :id journal and checks it belongs to the caller.
func (h *Handler) ownedJournal(c *gin.Context) (*domain.Journal, bool) {
	id, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil || id <= 0 {
		abortMsg(c, http.StatusBadRequest, "Invalid journal ID format")
		return nil, false
	}

	journal, err := h.journals.Get(c.Request.Context(), id)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			abortMsg(c, http.StatusNotFound, "Journal entry not found")
			return nil, false
		}
		h.log.WithError(err).Error("get journal")
		abortMsg(c, http.StatusInternalServerError, "Failed to fetch journal")
		return nil, false
	}

	if journal.User != strconv.FormatInt(currentUserID(c), 10) {
		abortMsg(c, http.StatusUnauthorized, "User not authorized")
		return nil, false
	}
	return journal, true
}
