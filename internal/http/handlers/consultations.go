package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/campusdesk/consulthub/internal/cache"
	"github.com/campusdesk/consulthub/internal/config"
	"github.com/campusdesk/consulthub/internal/domain/consultation"
	"github.com/campusdesk/consulthub/internal/domain/user"
	"github.com/campusdesk/consulthub/internal/http/middlewares"
	"github.com/campusdesk/consulthub/internal/recipients"
	"github.com/campusdesk/consulthub/internal/utils"
	"github.com/gin-gonic/gin"
)

type ConsultationStore interface {
	Create(ctx context.Context, c consultation.Consultation) (consultation.Consultation, error)
	CreateBatch(ctx context.Context, records []consultation.Consultation) error
	ListByStudent(ctx context.Context, studentID string) ([]consultation.View, error)
	ListAll(ctx context.Context) ([]consultation.View, error)
	ListByTeacher(ctx context.Context, teacherID string) ([]consultation.View, error)
	GetByID(ctx context.Context, id string) (consultation.View, error)
	UpdateStatusReply(ctx context.Context, id, status string, reply *string) (consultation.Consultation, error)
	UpdateDetails(ctx context.Context, id, topic, description string) (consultation.Consultation, error)
	Delete(ctx context.Context, id string) error
	StatsByStudent(ctx context.Context, studentID string) (consultation.Stats, error)
}

type ConsultationsHandler struct {
	repo     ConsultationStore
	resolver recipients.Resolver
	cache    cache.Store
}

func NewConsultationsHandler(repo ConsultationStore, resolver recipients.Resolver, c cache.Store) *ConsultationsHandler {
	return &ConsultationsHandler{repo: repo, resolver: resolver, cache: c}
}

const listAllCacheKey = "consultations:list:all:v1"

func statsCacheKey(studentID string) string {
	return "consultations:stats:v1:" + studentID
}

// invalidate drops the cached reads touched by a write. Best effort; a
// failed delete only means one stale TTL window.
func (h *ConsultationsHandler) invalidate(ctx context.Context, studentID string) {
	if h.cache == nil {
		return
	}

	h.cache.Delete(ctx, listAllCacheKey, statsCacheKey(studentID))
}

func (h *ConsultationsHandler) principal(ctx *gin.Context) (string, bool) {
	userID, ok := middlewares.UserIDFromContext(ctx)

	if !ok || userID == "" {
		RespondUnAuthorized(ctx, "unauthorized", "Missing identity")
		return "", false
	}

	return userID, true
}

// Create files a single consultation request. The role gate upstream
// ensures the caller is a Student; recipient resolution may come back
// empty, in which case the request is stored unassigned.
func (h *ConsultationsHandler) Create(ctx *gin.Context) {
	userID, ok := h.principal(ctx)
	if !ok {
		return
	}

	var req consultation.CreateRequest

	if !BindJSON(ctx, &req) {
		return
	}

	cctx, cancel := config.WithTimeout(3 * time.Second)

	defer cancel()

	recipientType := req.RecipientType
	if recipientType == "" {
		recipientType = consultation.RecipientConsultant
	}

	consultantID, err := h.resolver.ResolveOne(cctx, recipientType)

	if err != nil {
		RespondInternal(ctx, "Could not create consultation")
		return
	}

	created, err := h.repo.Create(cctx, consultation.NewFromCreateRequest(userID, req, consultantID))

	if err != nil {
		RespondInternal(ctx, "Could not create consultation")
		return
	}

	h.invalidate(cctx, userID)

	ctx.JSON(http.StatusCreated, gin.H{
		"message":      "Consultation created successfully",
		"consultation": created,
	})
}

// BroadcastToTeachers fans the request out to every registered teacher,
// one independent record per teacher, atomically.
func (h *ConsultationsHandler) BroadcastToTeachers(ctx *gin.Context) {
	userID, ok := h.principal(ctx)
	if !ok {
		return
	}

	var req consultation.BroadcastRequest

	if !BindJSON(ctx, &req) {
		return
	}

	cctx, cancel := config.WithTimeout(5 * time.Second)

	defer cancel()

	teachers, err := h.resolver.ResolveAllTeachers(cctx)

	if err != nil {
		if errors.Is(err, consultation.ErrNoTeachers) {
			RespondError(ctx, http.StatusBadRequest, "no_teachers_available", "No teachers are available to receive this request.", nil)
			return
		}

		RespondInternal(ctx, "Could not create consultation requests")
		return
	}

	teacherIDs := make([]string, 0, len(teachers))

	for _, t := range teachers {
		teacherIDs = append(teacherIDs, t.ID)
	}

	records := consultation.NewBroadcast(userID, req, teacherIDs)

	err = h.repo.CreateBatch(cctx, records)

	if err != nil {
		RespondInternal(ctx, "Could not create consultation requests")
		return
	}

	h.invalidate(cctx, userID)

	ctx.JSON(http.StatusCreated, gin.H{
		"message":       "Consultation request sent to all teachers",
		"count":         len(records),
		"consultations": records,
	})
}

func (h *ConsultationsHandler) ListMine(ctx *gin.Context) {
	userID, ok := h.principal(ctx)
	if !ok {
		return
	}

	cctx, cancel := config.WithTimeout(2 * time.Second)
	defer cancel()

	items, err := h.repo.ListByStudent(cctx, userID)

	if err != nil {
		RespondInternal(ctx, "Could not list consultations")
		return
	}

	ctx.JSON(http.StatusOK, gin.H{
		"items": items,
		"count": len(items),
	})
}

// ListAll is the consultant's broad read over every consultation. The
// only list endpoint worth caching: every consultant sees the same data.
func (h *ConsultationsHandler) ListAll(ctx *gin.Context) {
	cctx, cancel := config.WithTimeout(2 * time.Second)
	defer cancel()

	if h.cache != nil {
		if raw, ok := h.cache.Get(cctx, listAllCacheKey); ok {
			var cached []consultation.View

			if err := json.Unmarshal(raw, &cached); err == nil {
				ctx.JSON(http.StatusOK, gin.H{
					"items": cached,
					"count": len(cached),
				})
				return
			}
		}
	}

	items, err := h.repo.ListAll(cctx)

	if err != nil {
		RespondInternal(ctx, "Could not list consultations")
		return
	}

	if h.cache != nil {
		if raw, err := json.Marshal(items); err == nil {
			h.cache.Set(cctx, listAllCacheKey, raw)
		}
	}

	ctx.JSON(http.StatusOK, gin.H{
		"items": items,
		"count": len(items),
	})
}

func (h *ConsultationsHandler) ListTeacherMine(ctx *gin.Context) {
	userID, ok := h.principal(ctx)
	if !ok {
		return
	}

	cctx, cancel := config.WithTimeout(2 * time.Second)
	defer cancel()

	items, err := h.repo.ListByTeacher(cctx, userID)

	if err != nil {
		RespondInternal(ctx, "Could not list consultations")
		return
	}

	ctx.JSON(http.StatusOK, gin.H{
		"items": items,
		"count": len(items),
	})
}

// GetByID is scoped: the owning student, the assigned recipient, or any
// consultant may read a record. Anyone else authenticated gets 403, so
// ids cannot be enumerated for other students' content.
func (h *ConsultationsHandler) GetByID(ctx *gin.Context) {
	id := ctx.Param("id")

	if !utils.IsUUID(id) {
		RespondBadRequest(ctx, "consultation id must be a valid UUID", nil)
		return
	}

	userID, ok := h.principal(ctx)
	if !ok {
		return
	}

	role, _ := middlewares.RoleFromContext(ctx)

	cctx, cancel := config.WithTimeout(2 * time.Second)
	defer cancel()

	v, err := h.repo.GetByID(cctx, id)

	if err != nil {
		if errors.Is(err, consultation.ErrNotFound) {
			RespondNotFound(ctx, "Consultation not found")
			return
		}

		RespondInternal(ctx, "Could not fetch consultation")
		return
	}

	assigned := v.ConsultantID != nil && *v.ConsultantID == userID

	if v.StudentID != userID && !assigned && role != user.RoleConsultant {
		RespondForbidden(ctx, "You may not view this consultation")
		return
	}

	ctx.JSON(http.StatusOK, v)
}

func (h *ConsultationsHandler) UpdateStatus(ctx *gin.Context) {
	var req consultation.UpdateStatusRequest

	h.updateAsRecipient(ctx, &req, func() (string, *string) {
		return req.Status, nil
	})
}

func (h *ConsultationsHandler) UpdateStatusReply(ctx *gin.Context) {
	var req consultation.UpdateStatusReplyRequest

	h.updateAsRecipient(ctx, &req, func() (string, *string) {
		reply := req.Reply

		return req.Status, &reply
	})
}

// updateAsRecipient is the shared path for the two recipient-side
// mutations: bind, load, verify the caller is the assigned recipient,
// then write. Status values are value-unrestricted by design; a
// recipient may re-approve a rejected request.
func (h *ConsultationsHandler) updateAsRecipient(ctx *gin.Context, req interface{}, fields func() (string, *string)) {
	id := ctx.Param("id")

	if !utils.IsUUID(id) {
		RespondBadRequest(ctx, "consultation id must be a valid UUID", nil)
		return
	}

	userID, ok := h.principal(ctx)
	if !ok {
		return
	}

	if !BindJSON(ctx, req) {
		return
	}

	cctx, cancel := config.WithTimeout(3 * time.Second)
	defer cancel()

	existing, err := h.repo.GetByID(cctx, id)

	if err != nil {
		if errors.Is(err, consultation.ErrNotFound) {
			RespondNotFound(ctx, "Consultation not found")
			return
		}

		RespondInternal(ctx, "Could not update consultation")
		return
	}

	if existing.ConsultantID == nil || *existing.ConsultantID != userID {
		RespondForbidden(ctx, "Only the assigned recipient may update this consultation")
		return
	}

	status, reply := fields()

	updated, err := h.repo.UpdateStatusReply(cctx, id, status, reply)

	if err != nil {
		if errors.Is(err, consultation.ErrNotFound) {
			RespondNotFound(ctx, "Consultation not found")
			return
		}

		RespondInternal(ctx, "Could not update consultation")
		return
	}

	h.invalidate(cctx, existing.StudentID)

	ctx.JSON(http.StatusOK, gin.H{
		"message":      "Consultation updated successfully",
		"consultation": updated,
	})
}

// UpdateDetails lets the owning student rewrite topic/description while
// the request is still pending.
func (h *ConsultationsHandler) UpdateDetails(ctx *gin.Context) {
	id := ctx.Param("id")

	if !utils.IsUUID(id) {
		RespondBadRequest(ctx, "consultation id must be a valid UUID", nil)
		return
	}

	userID, ok := h.principal(ctx)
	if !ok {
		return
	}

	var req consultation.UpdateDetailsRequest

	if !BindJSON(ctx, &req) {
		return
	}

	cctx, cancel := config.WithTimeout(3 * time.Second)
	defer cancel()

	existing, err := h.repo.GetByID(cctx, id)

	if err != nil {
		if errors.Is(err, consultation.ErrNotFound) {
			RespondNotFound(ctx, "Consultation not found")
			return
		}

		RespondInternal(ctx, "Could not update consultation")
		return
	}

	if existing.StudentID != userID {
		RespondForbidden(ctx, "You may only edit your own consultations")
		return
	}

	if existing.Status != consultation.StatusPending {
		RespondConflict(ctx, "not_pending", "Consultation can no longer be edited once approved or rejected.")
		return
	}

	updated, err := h.repo.UpdateDetails(cctx, id, req.Topic, req.Description)

	if err != nil {
		// the pending check re-runs inside the update; a concurrent
		// approval between our read and write lands here
		if errors.Is(err, consultation.ErrNotPending) {
			RespondConflict(ctx, "not_pending", "Consultation can no longer be edited once approved or rejected.")
			return
		}

		RespondInternal(ctx, "Could not update consultation")
		return
	}

	h.invalidate(cctx, userID)

	ctx.JSON(http.StatusOK, gin.H{
		"message":      "Consultation updated successfully",
		"consultation": updated,
	})
}

// Delete removes the student's own record permanently, in any status.
func (h *ConsultationsHandler) Delete(ctx *gin.Context) {
	id := ctx.Param("id")

	if !utils.IsUUID(id) {
		RespondBadRequest(ctx, "consultation id must be a valid UUID", nil)
		return
	}

	userID, ok := h.principal(ctx)
	if !ok {
		return
	}

	cctx, cancel := config.WithTimeout(3 * time.Second)
	defer cancel()

	existing, err := h.repo.GetByID(cctx, id)

	if err != nil {
		if errors.Is(err, consultation.ErrNotFound) {
			RespondNotFound(ctx, "Consultation not found")
			return
		}

		RespondInternal(ctx, "Could not delete consultation")
		return
	}

	if existing.StudentID != userID {
		RespondForbidden(ctx, "You may only delete your own consultations")
		return
	}

	err = h.repo.Delete(cctx, id)

	if err != nil {
		if errors.Is(err, consultation.ErrNotFound) {
			RespondNotFound(ctx, "Consultation not found")
			return
		}

		RespondInternal(ctx, "Could not delete consultation")
		return
	}

	h.invalidate(cctx, userID)

	ctx.JSON(http.StatusOK, gin.H{
		"message": "Consultation deleted successfully",
	})
}

func (h *ConsultationsHandler) StatsMine(ctx *gin.Context) {
	userID, ok := h.principal(ctx)
	if !ok {
		return
	}

	cctx, cancel := config.WithTimeout(2 * time.Second)
	defer cancel()

	key := statsCacheKey(userID)

	if h.cache != nil {
		if raw, ok := h.cache.Get(cctx, key); ok {
			var cached consultation.Stats

			if err := json.Unmarshal(raw, &cached); err == nil {
				ctx.JSON(http.StatusOK, cached)
				return
			}
		}
	}

	stats, err := h.repo.StatsByStudent(cctx, userID)

	if err != nil {
		RespondInternal(ctx, "Could not compute stats")
		return
	}

	if h.cache != nil {
		if raw, err := json.Marshal(stats); err == nil {
			h.cache.Set(cctx, key, raw)
		}
	}

	ctx.JSON(http.StatusOK, stats)
}
