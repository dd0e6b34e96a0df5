package handler

import (
	"net/http"
	"testing"

	"github.com/userdirectory/userdir-api/internal/api/middleware"
	"github.com/userdirectory/userdir-api/internal/core/domain"
)

func TestViewer(t *testing.T) {
	c, _ := newContext(http.MethodGet, "/users", "")
	if v := viewer(c); v != nil {
		t.Fatalf("anonymous request must have no viewer, got %+v", v)
	}

	claims := &domain.Claims{UserID: "u1", Email: "jane@x.com"}
	req := c.Request()
	c.SetRequest(req.WithContext(middleware.WithClaims(req.Context(), claims)))

	if v := viewer(c); v != claims {
		t.Fatalf("expected guard claims, got %+v", v)
	}
}
