package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"academy/internal/roster"
)

type studentRequest struct {
	Name                 *string `json:"name" binding:"omitempty,max=100"`
	BirthDate            *string `json:"birth_date" binding:"omitempty,isodate"`
	Phone                *string `json:"phone" binding:"omitempty,max=20"`
	Email                *string `json:"email" binding:"omitempty,max=120"`
	Address              *string `json:"address"`
	CordLevel            *string `json:"cord_level" binding:"omitempty,max=50"`
	GuardianName         *string `json:"guardian_name" binding:"omitempty,max=100"`
	GuardianEmail        *string `json:"guardian_email" binding:"omitempty,max=120"`
	GuardianPhone        *string `json:"guardian_phone" binding:"omitempty,max=20"`
	GuardianCPF          *string `json:"guardian_cpf" binding:"omitempty,max=14"`
	GuardianAddress      *string `json:"guardian_address"`
	GuardianRelationship *string `json:"guardian_relationship" binding:"omitempty,max=50"`
}

// An empty birth_date means "not given".
func (r studentRequest) fields() roster.StudentFields {
	return roster.StudentFields{
		Name:                 r.Name,
		BirthDate:            parseOptionalDate(r.BirthDate),
		Phone:                r.Phone,
		Email:                r.Email,
		Address:              r.Address,
		CordLevel:            r.CordLevel,
		GuardianName:         r.GuardianName,
		GuardianEmail:        r.GuardianEmail,
		GuardianPhone:        r.GuardianPhone,
		GuardianCPF:          r.GuardianCPF,
		GuardianAddress:      r.GuardianAddress,
		GuardianRelationship: r.GuardianRelationship,
	}
}

func (h *Handler) listStudents(c *gin.Context) {
	students, err := h.roster.ListStudents(c.Request.Context())
	if err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, students)
}

func (h *Handler) createStudent(c *gin.Context) {
	var req studentRequest
	if err := bindJSON(c, &req); err != nil {
		h.fail(c, err)
		return
	}
	s, err := h.roster.CreateStudent(c.Request.Context(), req.fields())
	if err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusCreated, s)
}

func (h *Handler) getStudent(c *gin.Context) {
	id, err := pathID(c, "id")
	if err != nil {
		h.fail(c, err)
		return
	}
	s, err := h.roster.GetStudent(c.Request.Context(), id)
	if err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, s)
}

func (h *Handler) updateStudent(c *gin.Context) {
	id, err := pathID(c, "id")
	if err != nil {
		h.fail(c, err)
		return
	}
	var req studentRequest
	if err := bindJSON(c, &req); err != nil {
		h.fail(c, err)
		return
	}
	s, err := h.roster.UpdateStudent(c.Request.Context(), id, req.fields())
	if err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, s)
}

func (h *Handler) deleteStudent(c *gin.Context) {
	id, err := pathID(c, "id")
	if err != nil {
		h.fail(c, err)
		return
	}
	if err := h.roster.DeactivateStudent(c.Request.Context(), id); err != nil {
		h.fail(c, err)
		return
	}
	noContent(c)
}

func (h *Handler) studentClasses(c *gin.Context) {
	id, err := pathID(c, "id")
	if err != nil {
		h.fail(c, err)
		return
	}
	classes, err := h.roster.StudentClasses(c.Request.Context(), id)
	if err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, classes)
}
