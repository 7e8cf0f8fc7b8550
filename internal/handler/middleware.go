package handler

import (
	"context"
	"net/http"
	"strconv"
	"strings"

	"go.uber.org/zap"

	"github.com/lynixity/lynix-go/internal/domain"
	"github.com/lynixity/lynix-go/internal/service"
)

type contextKey string

const ownerIDKey contextKey = "ownerID"

// MsgAuthRequired is the 401 message when no owner is supplied.
const MsgAuthRequired = "User authentication required"

// resolveOwner reads the caller-supplied userId. A bearer token is optional;
// when present its subject must be that same user.
func resolveOwner(r *http.Request, authSvc *service.AuthService) (int64, error) {
	raw := r.URL.Query().Get("userId")
	ownerID, err := strconv.ParseInt(raw, 10, 64)
	if raw == "" || err != nil || ownerID <= 0 {
		return 0, &domain.ErrUnauthorized{Message: MsgAuthRequired}
	}

	authHeader := r.Header.Get("Authorization")
	if authHeader == "" || authSvc == nil {
		return ownerID, nil
	}
	parts := strings.SplitN(authHeader, " ", 2)
	if len(parts) != 2 || !strings.EqualFold(parts[0], "Bearer") {
		return 0, &domain.ErrUnauthorized{Message: "Invalid token format"}
	}
	claims, err := authSvc.ValidateAccessToken(parts[1])
	if err != nil {
		return 0, err
	}
	if sub, _ := claims.UserID(); sub != ownerID {
		return 0, &domain.ErrForbidden{Action: "act on behalf of another user"}
	}
	return ownerID, nil
}

// OwnerMiddleware rejects requests without a valid owner and injects the
// owner id into the context.
func OwnerMiddleware(authSvc *service.AuthService, logger *zap.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ownerID, err := resolveOwner(r, authSvc)
			if err != nil {
				logger.Warn("owner check failed",
					zap.String("path", r.URL.Path),
					zap.String("remote_addr", r.RemoteAddr),
					zap.Error(err),
				)
				handleServiceError(w, err, logger)
				return
			}
			ctx := context.WithValue(r.Context(), ownerIDKey, ownerID)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// OwnerIDFromContext extracts the owner injected by OwnerMiddleware.
func OwnerIDFromContext(ctx context.Context) int64 {
	v, _ := ctx.Value(ownerIDKey).(int64)
	return v
}
