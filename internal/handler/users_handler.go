package handler

import (
	"encoding/json"
	"io"
	"net/http"

	"go.opentelemetry.io/otel/attribute"
	"go.uber.org/zap"

	"github.com/lynixity/lynix-go/internal/domain"
	"github.com/lynixity/lynix-go/internal/service"
)

// ============================================================
// Users: /api/users
// ============================================================

func listUsersHandler(dir *service.DirectoryService, logger *zap.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		users, err := dir.List(r.Context())
		if err != nil {
			handleServiceError(w, err, logger)
			return
		}
		writeJSON(w, http.StatusOK, users)
	}
}

// postUsersHandler signs a user in when the body carries action=login and
// creates a user otherwise.
func postUsersHandler(authSvc *service.AuthService, dir *service.DirectoryService, logger *zap.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx, span := tracer.Start(r.Context(), "handler.PostUsers")
		defer span.End()

		body, err := io.ReadAll(http.MaxBytesReader(w, r.Body, maxBodyBytes))
		if err != nil {
			writeError(w, http.StatusBadRequest, "Invalid JSON body")
			return
		}
		var peek struct {
			Action string `json:"action"`
		}
		if err := json.Unmarshal(body, &peek); err != nil {
			writeError(w, http.StatusBadRequest, "Invalid JSON body")
			return
		}

		if peek.Action == domain.ActionLogin {
			span.SetAttributes(attribute.String("users.action", "login"))
			var req domain.LoginRequest
			if err := json.Unmarshal(body, &req); err != nil {
				writeError(w, http.StatusBadRequest, "Invalid JSON body")
				return
			}
			resp, err := authSvc.Login(ctx, &req)
			if err != nil {
				handleServiceError(w, err, logger)
				return
			}
			writeJSON(w, http.StatusOK, resp)
			return
		}

		span.SetAttributes(attribute.String("users.action", "create"))
		actorID, err := resolveOwner(r, authSvc)
		if err != nil {
			handleServiceError(w, err, logger)
			return
		}
		var u domain.User
		if err := json.Unmarshal(body, &u); err != nil {
			writeError(w, http.StatusBadRequest, "Invalid JSON body")
			return
		}
		created, err := dir.Create(ctx, actorID, &u)
		if err != nil {
			handleServiceError(w, err, logger)
			return
		}
		writeJSON(w, http.StatusCreated, created)
	}
}

func updateUserHandler(dir *service.DirectoryService, logger *zap.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var u domain.User
		if err := decodeJSON(w, r, &u); err != nil {
			handleServiceError(w, err, logger)
			return
		}
		updated, err := dir.Update(r.Context(), OwnerIDFromContext(r.Context()), &u)
		if err != nil {
			handleServiceError(w, err, logger)
			return
		}
		writeJSON(w, http.StatusOK, updated)
	}
}

func deleteUserHandler(dir *service.DirectoryService, logger *zap.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req domain.DeleteRequest
		if err := decodeJSON(w, r, &req); err != nil {
			handleServiceError(w, err, logger)
			return
		}
		if err := dir.Delete(r.Context(), OwnerIDFromContext(r.Context()), req.ID); err != nil {
			handleServiceError(w, err, logger)
			return
		}
		w.WriteHeader(http.StatusNoContent)
	}
}
