package http

import (
	"net/http"

	mw "github.com/lorrc/portal-backend/internal/adapters/primary/http/middleware"
	"github.com/lorrc/portal-backend/internal/core/domain"
	"github.com/lorrc/portal-backend/internal/core/ports"
)

// resolveCaps turns the verified token subject into fresh capabilities.
// Roles are never read from the token, so a revoked or disabled account is
// rejected here even while its token is still formally valid.
func resolveCaps(w http.ResponseWriter, r *http.Request, resolver ports.IdentityResolver, eh *ErrorHandler) (domain.Capabilities, bool) {
	claims, ok := mw.GetClaims(r.Context())
	if !ok {
		WriteJSON(w, http.StatusUnauthorized, ErrorResponse{
			Error: "Not authorized",
			Code:  "UNAUTHORIZED",
		})
		return domain.Capabilities{}, false
	}

	caps, err := resolver.Resolve(r.Context(), claims.UserID)
	if err != nil {
		eh.Handle(w, r, err)
		return domain.Capabilities{}, false
	}

	return caps, true
}
