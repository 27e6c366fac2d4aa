package http

import (
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	mw "github.com/lorrc/portal-backend/internal/adapters/primary/http/middleware"
	"github.com/lorrc/portal-backend/internal/auth"
	"github.com/lorrc/portal-backend/internal/core/domain"
	"github.com/lorrc/portal-backend/internal/core/mocks"
	"github.com/lorrc/portal-backend/internal/core/services"
)

// handlerFixture wires real core services over mocked stores so handler
// tests exercise the full request path without a database.
type handlerFixture struct {
	ticketStore *mocks.MockTicketStore
	userStore   *mocks.MockUserStore
	deptStore   *mocks.MockDepartmentStore
	identity    *mocks.MockIdentityResolver
	notifier    *mocks.MockNotifier
	broadcaster *mocks.MockEventBroadcaster

	tokenManager *auth.TokenManager
	router       *chi.Mux
}

func newHandlerFixture(t *testing.T) *handlerFixture {
	t.Helper()

	f := &handlerFixture{
		ticketStore: mocks.NewMockTicketStore(),
		userStore:   mocks.NewMockUserStore(),
		deptStore:   mocks.NewMockDepartmentStore(),
		identity:    mocks.NewMockIdentityResolver(),
		notifier:    mocks.NewMockNotifier(),
		broadcaster: mocks.NewMockEventBroadcaster(),
	}

	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	errorHandler := NewErrorHandler(logger)

	ticketService := services.NewTicketService(f.ticketStore, f.deptStore, f.notifier, f.broadcaster)
	workloadService := services.NewWorkloadService(f.ticketStore, f.userStore, f.notifier, f.broadcaster, logger)

	workloadHandler := NewWorkloadHandler(workloadService, f.identity, nil, errorHandler, logger)
	ticketHandler := NewTicketHandler(ticketService, f.identity, workloadHandler, errorHandler, logger)
	authHandler := NewAuthHandler(f.userStore, f.tokenManagerOrInit(), errorHandler, logger)

	router := chi.NewRouter()
	router.Route("/auth", authHandler.RegisterRoutes)
	router.Group(func(r chi.Router) {
		r.Use(mw.JWTMiddleware(f.tokenManager))
		r.Route("/tickets", ticketHandler.RegisterRoutes)
		r.Route("/departments", workloadHandler.RegisterDepartmentRoutes)
	})
	f.router = router

	t.Cleanup(func() {
		ticketService.Shutdown()
	})

	return f
}

func (f *handlerFixture) tokenManagerOrInit() *auth.TokenManager {
	if f.tokenManager == nil {
		f.tokenManager = auth.NewTokenManager("test-secret", time.Hour)
	}
	return f.tokenManager
}

// allowAnnouncements permits the fire-and-forget side effects that follow a
// successful assignment or status change.
func (f *handlerFixture) allowAnnouncements() {
	f.broadcaster.On("Broadcast", mock.Anything).Return(nil).Maybe()
	f.notifier.On("Notify", mock.Anything, mock.Anything).Return().Maybe()
}

// authenticate issues a token for the user and registers the capabilities
// the identity resolver hands back for it.
func (f *handlerFixture) authenticate(t *testing.T, caps domain.Capabilities) string {
	t.Helper()

	token, err := f.tokenManager.GenerateToken(caps.UserID)
	require.NoError(t, err)

	f.identity.On("Resolve", mock.Anything, caps.UserID).Return(caps, nil)
	return token
}
