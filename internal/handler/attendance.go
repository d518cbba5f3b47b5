package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"academy/internal/attendance"
	"academy/internal/dbtime"
)

func (h *Handler) listAttendance(c *gin.Context) {
	f := attendance.Filter{
		StudentID: queryID(c, "student_id"),
		ClassID:   queryID(c, "class_id"),
	}
	if v := c.Query("date"); v != "" {
		d, err := parseDate(v)
		if err != nil {
			h.fail(c, err)
			return
		}
		f.Date = &d
	}
	if start, end := c.Query("start_date"), c.Query("end_date"); start != "" && end != "" {
		from, err := parseDate(start)
		if err != nil {
			h.fail(c, err)
			return
		}
		to, err := parseDate(end)
		if err != nil {
			h.fail(c, err)
			return
		}
		f.From, f.To = &from, &to
	}
	recs, err := h.ledger.List(c.Request.Context(), f)
	if err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, recs)
}

type markRequest struct {
	StudentID int64   `json:"student_id" binding:"required"`
	ClassID   int64   `json:"class_id" binding:"required"`
	Date      string  `json:"date" binding:"required,isodate"`
	Present   *bool   `json:"present"`
	Notes     *string `json:"notes"`
}

// presentOrDefault treats a missing flag as present.
func presentOrDefault(p *bool) bool { return p == nil || *p }

func (h *Handler) markAttendance(c *gin.Context) {
	var req markRequest
	if err := bindJSON(c, &req); err != nil {
		h.fail(c, err)
		return
	}
	date, _ := dbtime.ParseDate(req.Date)
	m := attendance.Mark{
		StudentID: req.StudentID,
		ClassID:   req.ClassID,
		Date:      date,
		Present:   presentOrDefault(req.Present),
		Notes:     req.Notes,
	}
	rec, outcome, err := h.ledger.Upsert(c.Request.Context(), m, currentUserID(c))
	if err != nil {
		h.fail(c, err)
		return
	}
	status := http.StatusOK
	if outcome == attendance.Created {
		status = http.StatusCreated
	}
	c.JSON(status, rec)
}

type bulkEntry struct {
	StudentID int64   `json:"student_id"`
	Present   *bool   `json:"present"`
	Notes     *string `json:"notes"`
}

type bulkRequest struct {
	ClassID  int64       `json:"class_id" binding:"required"`
	Date     string      `json:"date" binding:"required,isodate"`
	Students []bulkEntry `json:"students" binding:"required,min=1"`
}

func (h *Handler) bulkAttendance(c *gin.Context) {
	var req bulkRequest
	if err := bindJSON(c, &req); err != nil {
		h.fail(c, err)
		return
	}
	date, _ := dbtime.ParseDate(req.Date)
	entries := make([]attendance.Entry, 0, len(req.Students))
	for _, s := range req.Students {
		entries = append(entries, attendance.Entry{StudentID: s.StudentID, Present: presentOrDefault(s.Present), Notes: s.Notes})
	}
	results, err := h.ledger.BulkUpsert(c.Request.Context(), req.ClassID, date, entries, currentUserID(c))
	if err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "Bulk attendance processed", "results": results})
}

func (h *Handler) getAttendance(c *gin.Context) {
	id, err := pathID(c, "id")
	if err != nil {
		h.fail(c, err)
		return
	}
	rec, err := h.ledger.Get(c.Request.Context(), id)
	if err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, rec)
}

type updateAttendanceRequest struct {
	Present *bool   `json:"present"`
	Notes   *string `json:"notes"`
}

func (h *Handler) updateAttendance(c *gin.Context) {
	id, err := pathID(c, "id")
	if err != nil {
		h.fail(c, err)
		return
	}
	var req updateAttendanceRequest
	if err := bindJSON(c, &req); err != nil {
		h.fail(c, err)
		return
	}
	rec, err := h.ledger.Update(c.Request.Context(), id, req.Present, req.Notes, currentUserID(c))
	if err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, rec)
}

func (h *Handler) deleteAttendance(c *gin.Context) {
	id, err := pathID(c, "id")
	if err != nil {
		h.fail(c, err)
		return
	}
	if err := h.ledger.Delete(c.Request.Context(), id); err != nil {
		h.fail(c, err)
		return
	}
	noContent(c)
}
