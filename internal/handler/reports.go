package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"academy/internal/reports"
)

// window resolves start_date/end_date before anything else, so a malformed date is a 400
// even for an unknown student.
func (h *Handler) window(c *gin.Context) (reports.Window, error) {
	w, err := h.reports.Window(c.Query("start_date"), c.Query("end_date"))
	if err != nil {
		return reports.Window{}, badRequest("Invalid date format. Use YYYY-MM-DD")
	}
	return w, nil
}

func (h *Handler) frequencyReport(c *gin.Context) {
	id, err := pathID(c, "student_id")
	if err != nil {
		h.fail(c, err)
		return
	}
	w, err := h.window(c)
	if err != nil {
		h.fail(c, err)
		return
	}
	rep, err := h.reports.Frequency(c.Request.Context(), id, w)
	if err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, rep)
}

func (h *Handler) generalStats(c *gin.Context) {
	w, err := h.window(c)
	if err != nil {
		h.fail(c, err)
		return
	}
	g, err := h.reports.General(c.Request.Context(), w)
	if err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, g)
}

func (h *Handler) exportGeneralStats(c *gin.Context) {
	w, err := h.window(c)
	if err != nil {
		h.fail(c, err)
		return
	}
	g, err := h.reports.General(c.Request.Context(), w)
	if err != nil {
		h.fail(c, err)
		return
	}
	c.Header("Content-Type", reports.ContentTypeXLSX)
	c.Header("Content-Disposition", `attachment; filename="`+reports.ExportFileName(w)+`"`)
	if err := reports.WriteWorkbook(c.Writer, g); err != nil {
		h.log.Error().Err(err).Msg("write general stats workbook")
	}
}

func (h *Handler) dashboardStats(c *gin.Context) {
	d, err := h.reports.Dashboard(c.Request.Context())
	if err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, d)
}
