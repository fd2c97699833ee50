package routes

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"github.com/urian121/gemini-ai-chat-api/chat/controllers"
	"github.com/urian121/gemini-ai-chat-api/chat/services/gemini"
	"github.com/urian121/gemini-ai-chat-api/chat/utils/logging"
	"github.com/urian121/gemini-ai-chat-api/chat/utils/types"
)

// maxAudioBytes caps the multipart audio upload (webm recordings are small).
const maxAudioBytes = 16 << 20

func ChatRoutes(ctrl *controllers.ChatController) chi.Router {
	r := chi.NewRouter()

	// POST /generate : forward one user turn to Gemini
	r.Post("/generate", func(w http.ResponseWriter, r *http.Request) {
		var req types.GenerateRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			writeJSON(w, http.StatusBadRequest, map[string]string{"error": "JSON inválido"})
			return
		}
		logging.RequestLogger.Info("generate",
			zap.String("conversation_id", req.ConversationID),
			zap.Int("history_len", len(req.History)),
			zap.Bool("has_image", req.Image != ""),
		)
		resp, err := ctrl.Generate(r.Context(), req)
		if err != nil {
			writeError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, resp)
	})

	// POST /transcribe : multipart form, field "audio" (webm)
	r.Post("/transcribe", func(w http.ResponseWriter, r *http.Request) {
		if err := r.ParseMultipartForm(maxAudioBytes); err != nil {
			writeJSON(w, http.StatusBadRequest, map[string]string{"error": "No se encontró archivo de audio"})
			return
		}
		file, header, err := r.FormFile("audio")
		if err != nil {
			writeJSON(w, http.StatusBadRequest, map[string]string{"error": "No se encontró archivo de audio"})
			return
		}
		defer file.Close()
		audio, err := io.ReadAll(file)
		if err != nil {
			writeJSON(w, http.StatusBadRequest, map[string]string{"error": "No se pudo leer el archivo de audio"})
			return
		}
		logging.RequestLogger.Info("transcribe", zap.Int("audio_bytes", len(audio)))
		resp, err := ctrl.Transcribe(r.Context(), audio, header.Header.Get("Content-Type"))
		if err != nil {
			var upstream *gemini.UpstreamError
			if errors.As(err, &upstream) {
				status := http.StatusInternalServerError
				if upstream.Status >= http.StatusBadRequest {
					status = upstream.Status
				}
				writeJSON(w, status, map[string]string{"error": "Error al procesar audio: " + upstream.Error()})
				return
			}
			writeError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, resp)
	})

	// POST /conversations : create a conversation eagerly.
	// GET /conversations/new is kept as an alias for the same operation.
	newConversation := func(w http.ResponseWriter, r *http.Request) {
		id, err := ctrl.NewConversation(r.Context())
		if err != nil {
			logging.ErrorLogger.Error("new conversation failed", zap.Error(err))
			writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "No se pudo crear la conversación"})
			return
		}
		writeJSON(w, http.StatusOK, map[string]string{"conversationId": id})
	}
	r.Post("/conversations", newConversation)
	r.Get("/conversations/new", newConversation)

	// GET /conversations : all non-expired conversations, newest first
	r.Get("/conversations", func(w http.ResponseWriter, r *http.Request) {
		list, err := ctrl.ListConversations(r.Context())
		if err != nil {
			logging.ErrorLogger.Error("list conversations failed", zap.Error(err))
			writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "No se pudo obtener el historial"})
			return
		}
		writeJSON(w, http.StatusOK, map[string]interface{}{"conversations": list})
	})

	// GET /conversations/{id}/messages : ordered messages, empty when unknown
	r.Get("/conversations/{id}/messages", func(w http.ResponseWriter, r *http.Request) {
		conversationID := chi.URLParam(r, "id")
		messages, err := ctrl.GetMessages(r.Context(), conversationID)
		if err != nil {
			logging.ErrorLogger.Error("get messages failed",
				zap.String("conversation_id", conversationID), zap.Error(err))
			writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "No se pudo obtener mensajes"})
			return
		}
		writeJSON(w, http.StatusOK, map[string]interface{}{"messages": messages})
	})

	return r
}

func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

// writeError maps the error taxonomy to a JSON error payload: validation 400,
// configuration 500, upstream errors keep the upstream status when it is one.
func writeError(w http.ResponseWriter, err error) {
	var validation *controllers.ValidationError
	var configuration *controllers.ConfigurationError
	var upstream *gemini.UpstreamError

	status := http.StatusInternalServerError
	message := "Error interno del servidor"

	switch {
	case errors.As(err, &validation):
		status, message = http.StatusBadRequest, validation.Message
	case errors.As(err, &configuration):
		status, message = http.StatusInternalServerError, configuration.Message
	case errors.As(err, &upstream):
		if upstream.Status >= http.StatusBadRequest {
			status = upstream.Status
		}
		message = upstream.Error()
	}

	writeJSON(w, status, map[string]string{"error": message})
}
