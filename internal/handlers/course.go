package handlers

import (
	"net/http"

	"github.com/coursehub/apiserver/internal/services"
	"github.com/coursehub/apiserver/types"
	"github.com/go-chi/chi/v5"
)

// CourseHandler provides HTTP handlers for courses, payments and videos.
type CourseHandler struct {
	courseService *services.CourseService
}

// NewCourseHandler constructs a handler with the provided service.
func NewCourseHandler(courseService *services.CourseService) *CourseHandler {
	return &CourseHandler{courseService: courseService}
}

// CourseRouter registers course, payment and video routes on the given router.
func CourseRouter(
	r chi.Router,
	courseService *services.CourseService,
	authMiddleware func(http.Handler) http.Handler,
) {
	handler := NewCourseHandler(courseService)

	r.Get("/courses", handler.ListCourses)
	r.Get("/courses/{courseID}", handler.GetCourse)

	r.Group(func(r chi.Router) {
		r.Use(authMiddleware)
		r.Post("/payment", handler.RecordPayment)
		r.Get("/my-courses", handler.ListMyCourses)
		r.Get("/course/{courseID}/videos", handler.ListCourseVideos)
	})
}

func (h *CourseHandler) ListCourses(w http.ResponseWriter, r *http.Request) {
	courses, err := h.courseService.ListCourses(r.Context())
	if err != nil {
		writeServiceError(w, r, err, "failed to list courses")
		return
	}
	writeJSON(w, http.StatusOK, courses)
}

func (h *CourseHandler) GetCourse(w http.ResponseWriter, r *http.Request) {
	id, err := parseCourseID(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	course, err := h.courseService.GetCourse(r.Context(), id)
	if err != nil {
		writeServiceError(w, r, err, "failed to fetch course")
		return
	}
	writeJSON(w, http.StatusOK, course)
}

func (h *CourseHandler) RecordPayment(w http.ResponseWriter, r *http.Request) {
	identity, ok := IdentityFromContext(r.Context())
	if !ok {
		writeError(w, http.StatusUnauthorized, "unauthorized")
		return
	}

	var req PaymentRequest
	if !decodeRequest(w, r, &req) {
		return
	}

	payment, err := h.courseService.RecordPayment(r.Context(), identity, req.CourseID, req.PaymentMethod)
	if err != nil {
		writeServiceError(w, r, err, "failed to record payment")
		return
	}

	writeJSON(w, http.StatusOK, PaymentResponse{
		Message:  "payment successful",
		CourseID: payment.CourseID,
	})
}

func (h *CourseHandler) ListMyCourses(w http.ResponseWriter, r *http.Request) {
	identity, ok := IdentityFromContext(r.Context())
	if !ok {
		writeError(w, http.StatusUnauthorized, "unauthorized")
		return
	}

	courses, err := h.courseService.ListMyCourses(r.Context(), identity)
	if err != nil {
		writeServiceError(w, r, err, "failed to list purchased courses")
		return
	}
	writeJSON(w, http.StatusOK, MyCoursesResponse{PurchasedCourses: courses})
}

func (h *CourseHandler) ListCourseVideos(w http.ResponseWriter, r *http.Request) {
	identity, ok := IdentityFromContext(r.Context())
	if !ok {
		writeError(w, http.StatusUnauthorized, "unauthorized")
		return
	}

	courseID, err := parseCourseID(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	videos, err := h.courseService.ListCourseVideos(r.Context(), identity, courseID)
	if err != nil {
		writeServiceError(w, r, err, "failed to list videos")
		return
	}
	writeJSON(w, http.StatusOK, videos)
}

type PaymentRequest struct {
	CourseID      int    `json:"courseId" validate:"required,gt=0"`
	PaymentMethod string `json:"paymentMethod" validate:"omitempty,max=64"`
}

type PaymentResponse struct {
	Message  string `json:"message"`
	CourseID int    `json:"courseId"`
}

type MyCoursesResponse struct {
	PurchasedCourses []types.Course `json:"purchasedCourses"`
}
