package middleware

import (
	"net/http"

	"solaudit/internal/models"
	"solaudit/internal/repository"
)

// ActivityMiddleware records user actions in the activity log
type ActivityMiddleware struct {
	activityRepo *repository.ActivityRepository
}

// NewActivityMiddleware creates a new activity middleware
func NewActivityMiddleware(activityRepo *repository.ActivityRepository) *ActivityMiddleware {
	return &ActivityMiddleware{activityRepo: activityRepo}
}

// Log records an action after the wrapped handler has run
func (m *ActivityMiddleware) Log(action, resource, details string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			next.ServeHTTP(w, r)

			var userID *uint
			if id, ok := GetUserID(r); ok {
				userID = &id
			}

			entry := &models.ActivityLog{
				UserID:    userID,
				Action:    action,
				Resource:  resource,
				Details:   details,
				IPAddress: getIP(r),
				UserAgent: r.UserAgent(),
			}

			// Activity logging never blocks the request
			_ = m.activityRepo.Create(entry)
		})
	}
}

// LogAction records an action outside of the middleware chain
func (m *ActivityMiddleware) LogAction(userID *uint, action, resource, details, ipAddress, userAgent string) error {
	entry := &models.ActivityLog{
		UserID:    userID,
		Action:    action,
		Resource:  resource,
		Details:   details,
		IPAddress: ipAddress,
		UserAgent: userAgent,
	}
	return m.activityRepo.Create(entry)
}
