package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"academy/internal/roster"
)

type classRequest struct {
	Name        *string `json:"name" binding:"omitempty,max=100"`
	Description *string `json:"description"`
	DayOfWeek   *int    `json:"day_of_week" binding:"omitempty,weekday"`
	StartTime   *string `json:"start_time" binding:"omitempty,hhmm"`
	EndTime     *string `json:"end_time" binding:"omitempty,hhmm"`
	Instructor  *string `json:"instructor" binding:"omitempty,max=100"`
	Location    *string `json:"location" binding:"omitempty,max=100"`
	MaxStudents *int    `json:"max_students" binding:"omitempty,min=0"`
}

func (r classRequest) fields() roster.ClassFields {
	return roster.ClassFields{
		Name:        r.Name,
		Description: r.Description,
		DayOfWeek:   r.DayOfWeek,
		StartTime:   parseOptionalTod(r.StartTime),
		EndTime:     parseOptionalTod(r.EndTime),
		Instructor:  r.Instructor,
		Location:    r.Location,
		MaxStudents: r.MaxStudents,
	}
}

func (h *Handler) listClasses(c *gin.Context) {
	classes, err := h.roster.ListClasses(c.Request.Context())
	if err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, classes)
}

func (h *Handler) createClass(c *gin.Context) {
	var req classRequest
	if err := bindJSON(c, &req); err != nil {
		h.fail(c, err)
		return
	}
	cl, err := h.roster.CreateClass(c.Request.Context(), req.fields())
	if err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusCreated, cl)
}

func (h *Handler) getClass(c *gin.Context) {
	id, err := pathID(c, "id")
	if err != nil {
		h.fail(c, err)
		return
	}
	cl, err := h.roster.GetClass(c.Request.Context(), id)
	if err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, cl)
}

func (h *Handler) updateClass(c *gin.Context) {
	id, err := pathID(c, "id")
	if err != nil {
		h.fail(c, err)
		return
	}
	var req classRequest
	if err := bindJSON(c, &req); err != nil {
		h.fail(c, err)
		return
	}
	cl, err := h.roster.UpdateClass(c.Request.Context(), id, req.fields())
	if err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, cl)
}

func (h *Handler) deleteClass(c *gin.Context) {
	id, err := pathID(c, "id")
	if err != nil {
		h.fail(c, err)
		return
	}
	if err := h.roster.DeactivateClass(c.Request.Context(), id); err != nil {
		h.fail(c, err)
		return
	}
	noContent(c)
}

func (h *Handler) classStudents(c *gin.Context) {
	id, err := pathID(c, "id")
	if err != nil {
		h.fail(c, err)
		return
	}
	students, err := h.roster.ClassStudents(c.Request.Context(), id)
	if err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, students)
}

func (h *Handler) enrollmentPair(c *gin.Context) (classID, studentID int64, err error) {
	if classID, err = pathID(c, "id"); err != nil {
		return 0, 0, err
	}
	if studentID, err = pathID(c, "student_id"); err != nil {
		return 0, 0, err
	}
	return classID, studentID, nil
}

func (h *Handler) enroll(c *gin.Context) {
	classID, studentID, err := h.enrollmentPair(c)
	if err != nil {
		h.fail(c, err)
		return
	}
	e, err := h.roster.Enroll(c.Request.Context(), classID, studentID)
	if err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusCreated, e)
}

func (h *Handler) unenroll(c *gin.Context) {
	classID, studentID, err := h.enrollmentPair(c)
	if err != nil {
		h.fail(c, err)
		return
	}
	if err := h.roster.Unenroll(c.Request.Context(), classID, studentID); err != nil {
		h.fail(c, err)
		return
	}
	noContent(c)
}

// attendanceSheet does not check that the class exists; an unknown class has an empty sheet.
func (h *Handler) attendanceSheet(c *gin.Context) {
	id, err := pathID(c, "id")
	if err != nil {
		h.fail(c, err)
		return
	}
	date, err := parseDate(c.Param("date"))
	if err != nil {
		h.fail(c, err)
		return
	}
	sheet, err := h.ledger.Sheet(c.Request.Context(), id, date)
	if err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, sheet)
}
