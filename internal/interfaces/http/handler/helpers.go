package handler

import (
	"github.com/biblioteca/backend/internal/domain/shared"
	"github.com/biblioteca/backend/internal/interfaces/http/middleware"
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

// parseUUIDParam reads a path parameter as a UUID, answering 400 when it is
// malformed
func (h *BaseHandler) parseUUIDParam(c *gin.Context, name string) (uuid.UUID, bool) {
	id, err := uuid.Parse(c.Param(name))
	if err != nil {
		h.BadRequest(c, "Invalid "+name+" format")
		return uuid.Nil, false
	}
	return id, true
}

// customerScope returns nil for staff, who see every customer's records, and
// the caller's own id otherwise
func (h *BaseHandler) customerScope(c *gin.Context) (*uuid.UUID, bool) {
	if middleware.IsStaff(c) {
		return nil, true
	}
	id, ok := h.requireCustomer(c)
	if !ok {
		return nil, false
	}
	return &id, true
}

func domainCode(err error) string {
	if de, ok := shared.AsDomainError(err); ok {
		return de.Code
	}
	return ""
}
