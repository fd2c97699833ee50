package gemini

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"net"
	"net/http"
	"net/url"
	"strings"
	"time"

	httputils "github.com/urian121/gemini-ai-chat-api/chat/utils/http"
	"github.com/urian121/gemini-ai-chat-api/chat/utils/logging"
)

const (
	DefaultEndpoint = "https://generativelanguage.googleapis.com/v1beta/models/gemini-2.5-flash:generateContent"

	// NoResponseSentinel is the fixed text persisted and returned when
	// generation yields no usable candidate.
	NoResponseSentinel = "No se obtuvo respuesta del modelo"

	transcribeInstruction = "Transcribe este audio a texto en español. Devuelve únicamente el texto transcrito, sin explicaciones adicionales."

	requestTimeout = 60 * time.Second
)

// ErrEmptyTranscript is returned when transcription produces no text.
var ErrEmptyTranscript = errors.New("No se pudo transcribir el audio")

type Client struct {
	endpoint string
	apiKey   string
	http     *http.Client
}

func NewClient(apiKey, endpoint string) *Client {
	if endpoint == "" {
		endpoint = DefaultEndpoint
	}
	return &Client{
		endpoint: endpoint,
		apiKey:   apiKey,
		http:     &http.Client{Timeout: requestTimeout},
	}
}

// Configured reports whether an API key is present. Without it the generate
// and transcribe endpoints must fail fast.
func (c *Client) Configured() bool {
	return c.apiKey != ""
}

// --- Gemini REST types ---

type generationConfig struct {
	Temperature     float64 `json:"temperature"`
	TopK            int     `json:"topK"`
	TopP            float64 `json:"topP"`
	MaxOutputTokens int     `json:"maxOutputTokens"`
}

type safetySetting struct {
	Category  string `json:"category"`
	Threshold string `json:"threshold"`
}

type content struct {
	Parts []Part `json:"parts"`
}

type generateRequest struct {
	Contents         []content        `json:"contents"`
	GenerationConfig generationConfig `json:"generationConfig"`
	SafetySettings   []safetySetting  `json:"safetySettings"`
}

type generateResponse struct {
	Candidates []struct {
		Content struct {
			Parts []struct {
				Text string `json:"text"`
			} `json:"parts"`
		} `json:"content"`
	} `json:"candidates"`
}

func (r *generateResponse) firstText() string {
	if len(r.Candidates) == 0 || len(r.Candidates[0].Content.Parts) == 0 {
		return ""
	}
	return r.Candidates[0].Content.Parts[0].Text
}

type upstreamErrorBody struct {
	Error struct {
		Message string `json:"message"`
	} `json:"error"`
}

// All four harm categories blocked at medium severity and above.
var defaultSafetySettings = []safetySetting{
	{Category: "HARM_CATEGORY_HARASSMENT", Threshold: "BLOCK_MEDIUM_AND_ABOVE"},
	{Category: "HARM_CATEGORY_HATE_SPEECH", Threshold: "BLOCK_MEDIUM_AND_ABOVE"},
	{Category: "HARM_CATEGORY_SEXUALLY_EXPLICIT", Threshold: "BLOCK_MEDIUM_AND_ABOVE"},
	{Category: "HARM_CATEGORY_DANGEROUS_CONTENT", Threshold: "BLOCK_MEDIUM_AND_ABOVE"},
}

var chatGenerationConfig = generationConfig{
	Temperature:     0.4,
	TopK:            20,
	TopP:            0.85,
	MaxOutputTokens: 2048,
}

// Low temperature for faithful transcription.
var transcribeGenerationConfig = generationConfig{
	Temperature:     0.1,
	TopK:            1,
	TopP:            0.1,
	MaxOutputTokens: 1024,
}

// Result is the normalized generation outcome. Success is false when the
// endpoint answered but produced no text; Text then carries the sentinel.
type Result struct {
	Text    string
	Success bool
}

// UpstreamError is a hard failure from the generation endpoint: transport
// error, timeout, or non-2xx status.
type UpstreamError struct {
	Status  int
	Message string
	Timeout bool
}

func (e *UpstreamError) Error() string {
	msg := e.Message
	if msg == "" {
		msg = "Error desconocido"
	}
	if e.Status > 0 {
		return fmt.Sprintf("HTTP %d: %s", e.Status, msg)
	}
	return msg
}

// GenerateContent performs exactly one call to the generation endpoint with
// the fixed chat configuration. No retries; retry is a client-initiated
// resubmission.
func (c *Client) GenerateContent(ctx context.Context, parts []Part) (Result, error) {
	defer logging.LogDuration(ctx, "gemini_generate_content")()

	req := generateRequest{
		Contents:         []content{{Parts: parts}},
		GenerationConfig: chatGenerationConfig,
		SafetySettings:   defaultSafetySettings,
	}
	var resp generateResponse
	if err := c.post(ctx, req, &resp); err != nil {
		return Result{}, err
	}

	text := strings.TrimSpace(resp.firstText())
	if text == "" {
		return Result{Text: NoResponseSentinel, Success: false}, nil
	}
	return Result{Text: text, Success: true}, nil
}

// Transcribe sends inline audio with a transcription-tuned configuration and
// returns the transcript text.
func (c *Client) Transcribe(ctx context.Context, audio []byte, mimeType string) (string, error) {
	defer logging.LogDuration(ctx, "gemini_transcribe")()

	if mimeType == "" {
		mimeType = "audio/webm"
	}
	req := generateRequest{
		Contents: []content{{Parts: []Part{
			{Text: transcribeInstruction},
			{InlineData: &InlineData{
				MIMEType: mimeType,
				Data:     base64.StdEncoding.EncodeToString(audio),
			}},
		}}},
		GenerationConfig: transcribeGenerationConfig,
		SafetySettings:   defaultSafetySettings,
	}
	var resp generateResponse
	if err := c.post(ctx, req, &resp); err != nil {
		return "", err
	}

	transcript := strings.TrimSpace(resp.firstText())
	if transcript == "" {
		return "", ErrEmptyTranscript
	}
	return transcript, nil
}

func (c *Client) post(ctx context.Context, body, out interface{}) error {
	endpoint := c.endpoint + "?key=" + url.QueryEscape(c.apiKey)
	err := httputils.PostJSON(ctx, c.http, endpoint, body, out)
	if err == nil {
		return nil
	}

	var httpErr *httputils.HTTPError
	if errors.As(err, &httpErr) {
		var payload upstreamErrorBody
		_ = json.Unmarshal(httpErr.Body, &payload)
		return &UpstreamError{Status: httpErr.StatusCode, Message: payload.Error.Message}
	}
	if isTimeout(err) {
		return &UpstreamError{
			Status:  http.StatusGatewayTimeout,
			Message: "Tiempo de espera agotado",
			Timeout: true,
		}
	}
	return &UpstreamError{Message: err.Error()}
}

func isTimeout(err error) bool {
	if errors.Is(err, context.DeadlineExceeded) {
		return true
	}
	var netErr net.Error
	return errors.As(err, &netErr) && netErr.Timeout()
}
