package handler

import (
	"net/http"
	"time"

	"github.com/Divine-P-77777/studylocal/internal/chatclient"
	"github.com/Divine-P-77777/studylocal/internal/enrolment"
	"github.com/Divine-P-77777/studylocal/internal/models"
	"github.com/Divine-P-77777/studylocal/internal/room"
	"github.com/gin-gonic/gin"
)

// createEnrolmentRequest names the pair either by room or by ids.
type createEnrolmentRequest struct {
	RoomID    string     `json:"room_id"`
	TutorID   string     `json:"tutor_id"`
	StudentID string     `json:"student_id"`
	Subject   string     `json:"subject"`
	AgreedFee *int64     `json:"agreed_fee"`
	StartDate *time.Time `json:"start_date"`
}

type roomEnrolmentResponse struct {
	Enrolment  *models.Enrolment         `json:"enrolment"`
	Affordance chatclient.DealAffordance `json:"affordance"`
}

type enrolmentListResponse struct {
	AsStudent []models.Enrolment `json:"as_student"`
	AsTutor   []models.Enrolment `json:"as_tutor"`
}

func (h *Handler) CreateEnrolment(c *gin.Context) {
	var req createEnrolmentRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		ErrorResponse(c, http.StatusBadRequest, "invalid request body")
		return
	}
	tutorID, studentID := req.TutorID, req.StudentID
	if req.RoomID != "" {
		var err error
		if tutorID, studentID, err = room.Parse(req.RoomID); err != nil {
			HandleServiceError(c, err)
			return
		}
	}

	e, err := h.Enrolments.Create(c.Request.Context(), identityFrom(c), tutorID, studentID, enrolment.Terms{
		Subject:   req.Subject,
		AgreedFee: req.AgreedFee,
		StartDate: req.StartDate,
	})
	if err != nil {
		HandleServiceError(c, err)
		return
	}
	c.JSON(http.StatusCreated, e)
}

func (h *Handler) ConfirmEnrolment(c *gin.Context) {
	e, err := h.Enrolments.Confirm(c.Request.Context(), identityFrom(c), c.Param("id"))
	if err != nil {
		HandleServiceError(c, err)
		return
	}
	c.JSON(http.StatusOK, e)
}

func (h *Handler) CancelEnrolment(c *gin.Context) {
	e, err := h.Enrolments.Cancel(c.Request.Context(), identityFrom(c), c.Param("id"))
	if err != nil {
		HandleServiceError(c, err)
		return
	}
	c.JSON(http.StatusOK, e)
}

// RoomEnrolment returns the active enrolment of the room's pair, if any,
// with the deal action the caller is offered.
func (h *Handler) RoomEnrolment(c *gin.Context) {
	caller := identityFrom(c)
	roomID := c.Param("roomId")
	_, callerIsTutor, ok := room.Counterpart(roomID, caller.UserID, caller.TutorProfileID)
	if !ok {
		ErrorResponse(c, http.StatusForbidden, msgNotAuthorized)
		return
	}
	tutorID, studentID, err := room.Parse(roomID)
	if err != nil {
		HandleServiceError(c, err)
		return
	}

	active, err := h.Enrolments.FindActiveForPair(c.Request.Context(), tutorID, studentID)
	if err != nil {
		HandleServiceError(c, err)
		return
	}
	c.JSON(http.StatusOK, roomEnrolmentResponse{
		Enrolment:  active,
		Affordance: chatclient.Affordance(active, callerIsTutor),
	})
}

func (h *Handler) ListEnrolments(c *gin.Context) {
	asStudent, asTutor, err := h.Enrolments.ListForCaller(c.Request.Context(), identityFrom(c))
	if err != nil {
		HandleServiceError(c, err)
		return
	}
	c.JSON(http.StatusOK, enrolmentListResponse{AsStudent: asStudent, AsTutor: asTutor})
}
