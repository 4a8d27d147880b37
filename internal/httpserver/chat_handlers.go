package httpserver

import (
	"encoding/json"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/yati-kasera/chat-app/internal/domain"
	"github.com/yati-kasera/chat-app/internal/service"
)

type sendMessageRequest struct {
	Content    string             `json:"content"`
	Attachment *domain.Attachment `json:"attachment"`
	ReplyTo    *string            `json:"reply_to"`
}

type editMessageRequest struct {
	Content string `json:"content"`
}

type reactionRequest struct {
	Emoji string `json:"emoji"`
}

func handleSendDirect(chatSvc *service.ChatService) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req sendMessageRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid JSON body"})
			return
		}
		msg, err := chatSvc.SendDirect(r.Context(), CurrentUser(r).ID, service.SendDirectInput{
			RecipientID: chi.URLParam(r, "userID"),
			Content:     req.Content,
			Attachment:  req.Attachment,
			ReplyTo:     req.ReplyTo,
		})
		if err != nil {
			writeError(w, err)
			return
		}
		writeJSON(w, http.StatusCreated, msg)
	}
}

func handleSendGroup(chatSvc *service.ChatService) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req sendMessageRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid JSON body"})
			return
		}
		msg, err := chatSvc.SendGroup(r.Context(), CurrentUser(r).ID, service.SendGroupInput{
			GroupID:    chi.URLParam(r, "groupID"),
			Content:    req.Content,
			Attachment: req.Attachment,
			ReplyTo:    req.ReplyTo,
		})
		if err != nil {
			writeError(w, err)
			return
		}
		writeJSON(w, http.StatusCreated, msg)
	}
}

func handleEditMessage(chatSvc *service.ChatService) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req editMessageRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid JSON body"})
			return
		}
		msg, err := chatSvc.EditMessage(r.Context(), CurrentUser(r).ID, chi.URLParam(r, "messageID"), req.Content)
		if err != nil {
			writeError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, msg)
	}
}

func handleDeleteMessage(chatSvc *service.ChatService) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		msg, err := chatSvc.DeleteMessage(r.Context(), CurrentUser(r).ID, chi.URLParam(r, "messageID"))
		if err != nil {
			writeError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, msg)
	}
}

func handleToggleReaction(chatSvc *service.ChatService) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req reactionRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid JSON body"})
			return
		}
		msg, err := chatSvc.ToggleReaction(r.Context(), CurrentUser(r).ID, chi.URLParam(r, "messageID"), req.Emoji)
		if err != nil {
			writeError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, msg)
	}
}

func handleDirectHistory(chatSvc *service.ChatService) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		other := r.URL.Query().Get("with")
		if other == "" {
			writeJSON(w, http.StatusBadRequest, map[string]string{"error": "missing 'with' query parameter"})
			return
		}
		msgs, err := chatSvc.GetHistory(r.Context(), CurrentUser(r).ID, other)
		if err != nil {
			writeError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, msgs)
	}
}

func handleGroupHistory(chatSvc *service.ChatService) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		msgs, err := chatSvc.GetGroupHistory(r.Context(), CurrentUser(r).ID, chi.URLParam(r, "groupID"))
		if err != nil {
			writeError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, msgs)
	}
}
