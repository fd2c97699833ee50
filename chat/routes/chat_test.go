package routes

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/go-chi/chi/v5"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"

	"github.com/urian121/gemini-ai-chat-api/chat/controllers"
	"github.com/urian121/gemini-ai-chat-api/chat/services/gemini"
	"github.com/urian121/gemini-ai-chat-api/chat/sources/psql"
	"github.com/urian121/gemini-ai-chat-api/chat/sources/psql/dao"
	"github.com/urian121/gemini-ai-chat-api/chat/sources/psql/models"
	"github.com/urian121/gemini-ai-chat-api/chat/utils/logging"
	"github.com/urian121/gemini-ai-chat-api/chat/utils/types"
)

func init() {
	logging.InitLogger()
}

func candidateJSON(text string) string {
	b, _ := json.Marshal(map[string]interface{}{
		"candidates": []interface{}{
			map[string]interface{}{
				"content": map[string]interface{}{
					"parts": []interface{}{map[string]interface{}{"text": text}},
				},
			},
		},
	})
	return string(b)
}

// setupAPI wires the real controller and DAOs over an in-memory store to a
// stub Gemini upstream, and returns the server base URL plus the database.
func setupAPI(t *testing.T, apiKey string, upstream http.HandlerFunc) (string, *gorm.DB) {
	t.Helper()

	dsn := fmt.Sprintf("file:routes_%s?mode=memory&cache=shared&_foreign_keys=on", t.Name())
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{})
	if err != nil {
		t.Fatalf("failed to open sqlite: %v", err)
	}
	if err := psql.Migrate(context.Background(), db); err != nil {
		t.Fatalf("failed to migrate: %v", err)
	}

	upstreamSrv := httptest.NewServer(upstream)
	t.Cleanup(upstreamSrv.Close)

	client := gemini.NewClient(apiKey, upstreamSrv.URL)
	ctrl := controllers.NewChatController(dao.NewConversationDAO(db), dao.NewMessageDAO(db), client)

	r := chi.NewRouter()
	r.Mount("/", ChatRoutes(ctrl))
	srv := httptest.NewServer(r)
	t.Cleanup(srv.Close)

	return srv.URL, db
}

func postJSON(t *testing.T, url string, body interface{}) *http.Response {
	t.Helper()
	payload, err := json.Marshal(body)
	if err != nil {
		t.Fatalf("marshal failed: %v", err)
	}
	resp, err := http.Post(url, "application/json", bytes.NewReader(payload))
	if err != nil {
		t.Fatalf("request failed: %v", err)
	}
	return resp
}

func decodeBody(t *testing.T, resp *http.Response, out interface{}) {
	t.Helper()
	defer resp.Body.Close()
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		t.Fatalf("failed to decode body: %v", err)
	}
}

// --- /generate ---

func TestGenerateEndToEnd(t *testing.T) {
	base, db := setupAPI(t, "test-key", func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(candidateJSON("¡Hola! ¿En qué puedo ayudarte?")))
	})

	resp := postJSON(t, base+"/generate", types.GenerateRequest{Text: "hola", History: []types.Turn{}})
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("expected 200, got %d", resp.StatusCode)
	}
	var body types.GenerateResponse
	decodeBody(t, resp, &body)

	if !body.Success || body.Message == "" {
		t.Errorf("unexpected response: %+v", body)
	}
	if body.ConversationID == "" {
		t.Fatal("expected a new conversation id")
	}

	var saved []models.Message
	if err := db.Where("conversation_id = ?", body.ConversationID).Order("id asc").Find(&saved).Error; err != nil {
		t.Fatalf("query failed: %v", err)
	}
	if len(saved) != 2 {
		t.Fatalf("expected user + bot rows, got %d", len(saved))
	}
	if saved[0].Sender != models.SenderUser || saved[0].Content != "hola" {
		t.Errorf("unexpected user row: %+v", saved[0])
	}
	if saved[1].Sender != models.SenderBot {
		t.Errorf("unexpected bot row: %+v", saved[1])
	}
}

func TestGenerateMissingInput(t *testing.T) {
	base, db := setupAPI(t, "test-key", func(w http.ResponseWriter, r *http.Request) {
		t.Error("gateway must not be called")
	})

	resp := postJSON(t, base+"/generate", map[string]interface{}{"history": []types.Turn{}})
	if resp.StatusCode != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", resp.StatusCode)
	}
	var body map[string]string
	decodeBody(t, resp, &body)
	if body["error"] == "" {
		t.Error("expected an error message")
	}

	var count int64
	db.Model(&models.Message{}).Count(&count)
	if count != 0 {
		t.Errorf("no store writes expected, found %d messages", count)
	}
}

func TestGenerateUpstreamStatusPropagated(t *testing.T) {
	base, db := setupAPI(t, "test-key", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusTooManyRequests)
		w.Write([]byte(`{"error":{"message":"rate limited"}}`))
	})

	resp := postJSON(t, base+"/generate", types.GenerateRequest{Text: "hola"})
	if resp.StatusCode != http.StatusTooManyRequests {
		t.Fatalf("expected 429, got %d", resp.StatusCode)
	}
	var body map[string]string
	decodeBody(t, resp, &body)
	if !strings.Contains(body["error"], "429") {
		t.Errorf("error should carry the upstream status, got %q", body["error"])
	}

	var botCount int64
	db.Model(&models.Message{}).Where("sender = ?", models.SenderBot).Count(&botCount)
	if botCount != 0 {
		t.Error("no bot message may be persisted when generation failed")
	}
}

func TestGenerateWithoutAPIKey(t *testing.T) {
	base, _ := setupAPI(t, "", func(w http.ResponseWriter, r *http.Request) {
		t.Error("gateway must not be called")
	})

	resp := postJSON(t, base+"/generate", types.GenerateRequest{Text: "hola"})
	if resp.StatusCode != http.StatusInternalServerError {
		t.Fatalf("expected 500, got %d", resp.StatusCode)
	}
	var body map[string]string
	decodeBody(t, resp, &body)
	if body["error"] != "API key no configurada" {
		t.Errorf("unexpected error message: %q", body["error"])
	}
}

func TestGenerateInvalidImageRejected(t *testing.T) {
	base, db := setupAPI(t, "test-key", func(w http.ResponseWriter, r *http.Request) {
		t.Error("gateway must not be called")
	})

	resp := postJSON(t, base+"/generate", types.GenerateRequest{Image: "http://example.com/foto.png"})
	if resp.StatusCode != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", resp.StatusCode)
	}
	var body map[string]string
	decodeBody(t, resp, &body)
	if body["error"] != "Formato de imagen inválido" {
		t.Errorf("unexpected error message: %q", body["error"])
	}

	var count int64
	db.Model(&models.Message{}).Count(&count)
	if count != 0 {
		t.Errorf("no store writes expected, found %d messages", count)
	}
}

// --- conversations ---

func TestConversationLifecycle(t *testing.T) {
	base, _ := setupAPI(t, "test-key", func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(candidateJSON("ok")))
	})

	resp := postJSON(t, base+"/conversations", nil)
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("expected 200, got %d", resp.StatusCode)
	}
	var created map[string]string
	decodeBody(t, resp, &created)
	if created["conversationId"] == "" {
		t.Fatal("expected a conversation id")
	}

	listResp, err := http.Get(base + "/conversations")
	if err != nil {
		t.Fatalf("request failed: %v", err)
	}
	var list struct {
		Conversations []types.ConversationSummary `json:"conversations"`
	}
	decodeBody(t, listResp, &list)
	if len(list.Conversations) != 1 {
		t.Fatalf("expected 1 conversation, got %d", len(list.Conversations))
	}
	if list.Conversations[0].ID != created["conversationId"] {
		t.Error("listed conversation does not match the created one")
	}
	if list.Conversations[0].Title != nil || list.Conversations[0].MessageCount != 0 {
		t.Errorf("empty conversation should list nil title and 0 messages: %+v", list.Conversations[0])
	}
}

func TestNewConversationAlias(t *testing.T) {
	base, _ := setupAPI(t, "test-key", func(w http.ResponseWriter, r *http.Request) {})

	resp, err := http.Get(base + "/conversations/new")
	if err != nil {
		t.Fatalf("request failed: %v", err)
	}
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("expected 200, got %d", resp.StatusCode)
	}
	var created map[string]string
	decodeBody(t, resp, &created)
	if created["conversationId"] == "" {
		t.Fatal("expected a conversation id")
	}
}

func TestMessagesEmptyForUnknownConversation(t *testing.T) {
	base, _ := setupAPI(t, "test-key", func(w http.ResponseWriter, r *http.Request) {})

	resp, err := http.Get(base + "/conversations/00000000-0000-0000-0000-000000000000/messages")
	if err != nil {
		t.Fatalf("request failed: %v", err)
	}
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("expected 200, got %d", resp.StatusCode)
	}
	var body struct {
		Messages []models.Message `json:"messages"`
	}
	decodeBody(t, resp, &body)
	if body.Messages == nil {
		t.Fatal("expected an empty array, not null")
	}
	if len(body.Messages) != 0 {
		t.Errorf("expected no messages, got %d", len(body.Messages))
	}
}

func TestMessagesOrderedAfterGenerate(t *testing.T) {
	base, _ := setupAPI(t, "test-key", func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(candidateJSON("respuesta")))
	})

	resp := postJSON(t, base+"/generate", types.GenerateRequest{Text: "hola"})
	var gen types.GenerateResponse
	decodeBody(t, resp, &gen)

	msgResp, err := http.Get(base + "/conversations/" + gen.ConversationID + "/messages")
	if err != nil {
		t.Fatalf("request failed: %v", err)
	}
	var body struct {
		Messages []models.Message `json:"messages"`
	}
	decodeBody(t, msgResp, &body)
	if len(body.Messages) != 2 {
		t.Fatalf("expected 2 messages, got %d", len(body.Messages))
	}
	if body.Messages[0].ID >= body.Messages[1].ID {
		t.Error("messages not in ascending id order")
	}
}

// --- /transcribe ---

func audioForm(t *testing.T, field, filename string, data []byte) (*bytes.Buffer, string) {
	t.Helper()
	var buf bytes.Buffer
	writer := multipart.NewWriter(&buf)
	part, err := writer.CreateFormFile(field, filename)
	if err != nil {
		t.Fatalf("form file failed: %v", err)
	}
	part.Write(data)
	writer.Close()
	return &buf, writer.FormDataContentType()
}

func TestTranscribeEndpoint(t *testing.T) {
	base, _ := setupAPI(t, "test-key", func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(candidateJSON("hola desde el audio")))
	})

	body, contentType := audioForm(t, "audio", "nota.webm", []byte("fake-webm"))
	resp, err := http.Post(base+"/transcribe", contentType, body)
	if err != nil {
		t.Fatalf("request failed: %v", err)
	}
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("expected 200, got %d", resp.StatusCode)
	}
	var out types.TranscribeResponse
	decodeBody(t, resp, &out)
	if !out.Success || out.Transcript != "hola desde el audio" {
		t.Errorf("unexpected response: %+v", out)
	}
}

func TestTranscribeMissingFile(t *testing.T) {
	base, _ := setupAPI(t, "test-key", func(w http.ResponseWriter, r *http.Request) {
		t.Error("gateway must not be called")
	})

	body, contentType := audioForm(t, "video", "nota.webm", []byte("fake"))
	resp, err := http.Post(base+"/transcribe", contentType, body)
	if err != nil {
		t.Fatalf("request failed: %v", err)
	}
	if resp.StatusCode != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", resp.StatusCode)
	}
}
