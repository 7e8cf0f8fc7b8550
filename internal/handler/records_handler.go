package handler

import (
	"net/http"

	"go.uber.org/zap"

	"github.com/lynixity/lynix-go/internal/domain"
	"github.com/lynixity/lynix-go/internal/service"
)

// ============================================================
// Notes: /api/notes
// ============================================================

func listNotesHandler(svc *service.NotesService, logger *zap.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		notes, err := svc.List(r.Context(), OwnerIDFromContext(r.Context()))
		if err != nil {
			handleServiceError(w, err, logger)
			return
		}
		writeJSON(w, http.StatusOK, notes)
	}
}

func createNoteHandler(svc *service.NotesService, logger *zap.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var n domain.Note
		if err := decodeJSON(w, r, &n); err != nil {
			handleServiceError(w, err, logger)
			return
		}
		created, err := svc.Create(r.Context(), OwnerIDFromContext(r.Context()), &n)
		if err != nil {
			handleServiceError(w, err, logger)
			return
		}
		writeJSON(w, http.StatusCreated, created)
	}
}

func updateNoteHandler(svc *service.NotesService, logger *zap.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var n domain.Note
		if err := decodeJSON(w, r, &n); err != nil {
			handleServiceError(w, err, logger)
			return
		}
		updated, err := svc.Update(r.Context(), OwnerIDFromContext(r.Context()), &n)
		if err != nil {
			handleServiceError(w, err, logger)
			return
		}
		writeJSON(w, http.StatusOK, updated)
	}
}

func deleteNoteHandler(svc *service.NotesService, logger *zap.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req domain.DeleteRequest
		if err := decodeJSON(w, r, &req); err != nil {
			handleServiceError(w, err, logger)
			return
		}
		if err := svc.Delete(r.Context(), OwnerIDFromContext(r.Context()), req.ID); err != nil {
			handleServiceError(w, err, logger)
			return
		}
		w.WriteHeader(http.StatusNoContent)
	}
}

// ============================================================
// Contacts: /api/contacts
// ============================================================

func listContactsHandler(svc *service.ContactsService, logger *zap.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		contacts, err := svc.List(r.Context(), OwnerIDFromContext(r.Context()))
		if err != nil {
			handleServiceError(w, err, logger)
			return
		}
		writeJSON(w, http.StatusOK, contacts)
	}
}

func createContactHandler(svc *service.ContactsService, logger *zap.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var c domain.Contact
		if err := decodeJSON(w, r, &c); err != nil {
			handleServiceError(w, err, logger)
			return
		}
		created, err := svc.Create(r.Context(), OwnerIDFromContext(r.Context()), &c)
		if err != nil {
			handleServiceError(w, err, logger)
			return
		}
		writeJSON(w, http.StatusCreated, created)
	}
}

func updateContactHandler(svc *service.ContactsService, logger *zap.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var c domain.Contact
		if err := decodeJSON(w, r, &c); err != nil {
			handleServiceError(w, err, logger)
			return
		}
		updated, err := svc.Update(r.Context(), OwnerIDFromContext(r.Context()), &c)
		if err != nil {
			handleServiceError(w, err, logger)
			return
		}
		writeJSON(w, http.StatusOK, updated)
	}
}

func deleteContactHandler(svc *service.ContactsService, logger *zap.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req domain.DeleteRequest
		if err := decodeJSON(w, r, &req); err != nil {
			handleServiceError(w, err, logger)
			return
		}
		if err := svc.Delete(r.Context(), OwnerIDFromContext(r.Context()), req.ID); err != nil {
			handleServiceError(w, err, logger)
			return
		}
		w.WriteHeader(http.StatusNoContent)
	}
}

// ============================================================
// Chats: /api/chats
// ============================================================

func listChatsHandler(svc *service.ChatService, logger *zap.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		convs, err := svc.Conversations(r.Context(), OwnerIDFromContext(r.Context()))
		if err != nil {
			handleServiceError(w, err, logger)
			return
		}
		writeJSON(w, http.StatusOK, convs)
	}
}

func sendChatHandler(svc *service.ChatService, logger *zap.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req domain.SendMessageRequest
		if err := decodeJSON(w, r, &req); err != nil {
			writeError(w, http.StatusBadRequest, service.MsgInvalidMessage)
			return
		}
		msg, err := svc.Send(r.Context(), OwnerIDFromContext(r.Context()), &req)
		if err != nil {
			handleServiceError(w, err, logger)
			return
		}
		writeJSON(w, http.StatusCreated, msg)
	}
}

// ============================================================
// Mail: /api/mails
// ============================================================

func listMailsHandler(svc *service.MailService, logger *zap.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		mails, err := svc.List(r.Context())
		if err != nil {
			handleServiceError(w, err, logger)
			return
		}
		writeJSON(w, http.StatusOK, mails)
	}
}
