package handlers

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"computor-backend/internal/interfaces/http/rest/middleware"
	"computor-backend/internal/views"
	apperrors "computor-backend/pkg/errors"
)

// ViewHandler serves the projection read endpoints. The handlers are thin:
// parse identifiers, call the view repository, translate the error
// taxonomy to a status code.
type ViewHandler struct {
	student  *views.StudentView
	tutor    *views.TutorView
	lecturer *views.LecturerView
	grading  *views.GradingView
	logger   *zap.Logger
}

// NewViewHandler creates a new view handler
func NewViewHandler(
	student *views.StudentView,
	tutor *views.TutorView,
	lecturer *views.LecturerView,
	grading *views.GradingView,
	logger *zap.Logger,
) *ViewHandler {
	return &ViewHandler{
		student:  student,
		tutor:    tutor,
		lecturer: lecturer,
		grading:  grading,
		logger:   logger,
	}
}

// StudentCourseContents handles GET /courses/{courseID}/student/course-contents
func (h *ViewHandler) StudentCourseContents(w http.ResponseWriter, r *http.Request) {
	userID, courseID, ok := h.principalAndID(w, r, "courseID")
	if !ok {
		return
	}
	contents, err := h.student.CourseContents(r.Context(), userID, courseID)
	if err != nil {
		h.respondError(w, err)
		return
	}
	h.respondJSON(w, http.StatusOK, contents)
}

// StudentCourseContent handles GET /courses/{courseID}/student/course-contents/{contentID}
func (h *ViewHandler) StudentCourseContent(w http.ResponseWriter, r *http.Request) {
	userID, courseID, ok := h.principalAndID(w, r, "courseID")
	if !ok {
		return
	}
	contentID, ok := h.pathID(w, r, "contentID")
	if !ok {
		return
	}
	content, err := h.student.CourseContent(r.Context(), userID, courseID, contentID)
	if err != nil {
		h.respondError(w, err)
		return
	}
	h.respondJSON(w, http.StatusOK, content)
}

// TutorCourseContents handles GET /courses/{courseID}/tutor/members/{memberID}/course-contents
func (h *ViewHandler) TutorCourseContents(w http.ResponseWriter, r *http.Request) {
	userID, courseID, ok := h.principalAndID(w, r, "courseID")
	if !ok {
		return
	}
	memberID, ok := h.pathID(w, r, "memberID")
	if !ok {
		return
	}
	contents, err := h.tutor.CourseContents(r.Context(), userID, courseID, memberID)
	if err != nil {
		h.respondError(w, err)
		return
	}
	h.respondJSON(w, http.StatusOK, contents)
}

// TutorCourseContent handles GET /courses/{courseID}/tutor/members/{memberID}/course-contents/{contentID}
func (h *ViewHandler) TutorCourseContent(w http.ResponseWriter, r *http.Request) {
	userID, courseID, ok := h.principalAndID(w, r, "courseID")
	if !ok {
		return
	}
	memberID, ok := h.pathID(w, r, "memberID")
	if !ok {
		return
	}
	contentID, ok := h.pathID(w, r, "contentID")
	if !ok {
		return
	}
	content, err := h.tutor.CourseContent(r.Context(), userID, courseID, memberID, contentID)
	if err != nil {
		h.respondError(w, err)
		return
	}
	h.respondJSON(w, http.StatusOK, content)
}

// LecturerCourseOverview handles GET /courses/{courseID}/lecturer/overview
func (h *ViewHandler) LecturerCourseOverview(w http.ResponseWriter, r *http.Request) {
	userID, courseID, ok := h.principalAndID(w, r, "courseID")
	if !ok {
		return
	}
	overview, err := h.lecturer.CourseOverview(r.Context(), userID, courseID)
	if err != nil {
		h.respondError(w, err)
		return
	}
	h.respondJSON(w, http.StatusOK, overview)
}

// MemberGradings handles GET /course-members/{memberID}/gradings
func (h *ViewHandler) MemberGradings(w http.ResponseWriter, r *http.Request) {
	userID, memberID, ok := h.principalAndID(w, r, "memberID")
	if !ok {
		return
	}
	gradings, err := h.grading.Get(r.Context(), userID, memberID)
	if err != nil {
		h.respondError(w, err)
		return
	}
	h.respondJSON(w, http.StatusOK, gradings)
}

// CourseGradings handles GET /courses/{courseID}/gradings
func (h *ViewHandler) CourseGradings(w http.ResponseWriter, r *http.Request) {
	userID, courseID, ok := h.principalAndID(w, r, "courseID")
	if !ok {
		return
	}
	gradings, err := h.grading.List(r.Context(), userID, courseID)
	if err != nil {
		h.respondError(w, err)
		return
	}
	h.respondJSON(w, http.StatusOK, gradings)
}

func (h *ViewHandler) principalAndID(w http.ResponseWriter, r *http.Request, param string) (uuid.UUID, uuid.UUID, bool) {
	userID, err := middleware.UserFromContext(r.Context())
	if err != nil {
		h.respondError(w, err)
		return uuid.Nil, uuid.Nil, false
	}
	id, ok := h.pathID(w, r, param)
	return userID, id, ok
}

func (h *ViewHandler) pathID(w http.ResponseWriter, r *http.Request, param string) (uuid.UUID, bool) {
	id, err := uuid.Parse(chi.URLParam(r, param))
	if err != nil {
		h.respondError(w, apperrors.NewValidation("invalid "+param))
		return uuid.Nil, false
	}
	return id, true
}

func (h *ViewHandler) respondJSON(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(body); err != nil {
		h.logger.Error("Failed to encode response", zap.Error(err))
	}
}

func (h *ViewHandler) respondError(w http.ResponseWriter, err error) {
	status := http.StatusInternalServerError
	message := "internal error"

	var appErr *apperrors.AppError
	if errors.As(err, &appErr) {
		switch appErr.Type {
		case apperrors.ErrorTypeValidation:
			status, message = http.StatusBadRequest, appErr.Message
		case apperrors.ErrorTypeNotFound:
			status, message = http.StatusNotFound, appErr.Message
		case apperrors.ErrorTypePermissionDenied:
			// The message never discloses whether the entity exists.
			status, message = http.StatusForbidden, "forbidden"
		case apperrors.ErrorTypeConflict:
			status, message = http.StatusConflict, appErr.Message
		case apperrors.ErrorTypeRateLimited:
			status, message = http.StatusTooManyRequests, appErr.Message
		case apperrors.ErrorTypeStoreUnavailable:
			status, message = http.StatusServiceUnavailable, "service temporarily unavailable"
		}
	}
	if status == http.StatusInternalServerError {
		h.logger.Error("Request failed", zap.Error(err))
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(map[string]string{"error": message})
}
