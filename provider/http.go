package provider

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"
)

// Client is the opaque translation service contract. Translate performs a
// single synchronous call and returns translations keyed like the batch;
// missing keys are allowed and resolved by the caller. Failures are
// *Error values carrying a Kind.
type Client interface {
	// ID is the configured provider identifier.
	ID() string
	// Translate submits one batch and returns the translated map.
	Translate(ctx context.Context, batch *Batch) (map[string]string, error)
}

// DefaultSystemPrompt instructs the model to translate game script text and
// answer with a JSON object using the same keys. {{targetLang}} is replaced
// with the configured language name.
const DefaultSystemPrompt = `You are a professional translator of Japanese games and visual novels, translating to {{targetLang}}.

IMPORTANT TRANSLATION PRINCIPLES:
- Translate for NATURALNESS and FLUENCY in {{targetLang}}, not word-for-word
- Keep honorifics and character voice consistent
- Preserve control sequences, variable placeholders (%s, \V[1], {name}), and ruby markup exactly as-is
- Keep line breaks within a string exactly where the original has them
- Never add commentary, romaji, or notes

TECHNICAL REQUIREMENTS:
- The input is a JSON object mapping keys ("Line1", "Line2", ...) to source strings.
- Return ONLY a JSON object with the SAME keys mapped to the translated strings.
- Do not wrap the JSON in markdown code fences or explanations.`

// HTTPClient calls an OpenAI-compatible chat completions endpoint.
type HTTPClient struct {
	// Name is the configured provider identifier.
	Name string
	// BaseURL is the API base (".../v1"); "/chat/completions" is appended.
	BaseURL string
	// APIKey is sent as a bearer token when non-empty.
	APIKey string
	// Model is the model identifier.
	Model string
	// Proxy is an optional HTTP/HTTPS proxy URL.
	Proxy string
	// Timeout bounds one call; zero means 120s.
	Timeout time.Duration
	// SystemPrompt overrides DefaultSystemPrompt when non-empty. Both have
	// {{targetLang}} replaced by TargetLanguage.
	SystemPrompt string
	// TargetLanguage is the human-readable target language name.
	TargetLanguage string

	httpClient *http.Client
}

func (c *HTTPClient) ID() string { return c.Name }

func (c *HTTPClient) effectiveTimeout() time.Duration {
	if c.Timeout > 0 {
		return c.Timeout
	}
	return 120 * time.Second
}

func (c *HTTPClient) client() *http.Client {
	if c.httpClient != nil {
		return c.httpClient
	}
	transport := http.DefaultTransport.(*http.Transport).Clone()
	if c.Proxy != "" {
		if parsed, err := url.Parse(c.Proxy); err == nil {
			transport.Proxy = http.ProxyURL(parsed)
		}
	} else {
		transport.Proxy = http.ProxyFromEnvironment
	}
	c.httpClient = &http.Client{
		Transport: transport,
		Timeout:   c.effectiveTimeout(),
	}
	return c.httpClient
}

func (c *HTTPClient) systemPrompt() string {
	prompt := c.SystemPrompt
	if prompt == "" {
		prompt = DefaultSystemPrompt
	}
	lang := c.TargetLanguage
	if lang == "" {
		lang = "English"
	}
	return strings.ReplaceAll(prompt, "{{targetLang}}", lang)
}

// Translate submits the batch as one chat completion. It never retries:
// every failure is classified and returned for the orchestrator to handle.
func (c *HTTPClient) Translate(ctx context.Context, batch *Batch) (map[string]string, error) {
	userPrompt, err := json.Marshal(batch.Source)
	if err != nil {
		return nil, c.fail(Transient, err)
	}
	body, err := buildChatRequest(c.Model, c.systemPrompt(), string(userPrompt))
	if err != nil {
		return nil, c.fail(Transient, err)
	}

	endpoint := strings.TrimRight(c.BaseURL, "/")
	if !strings.HasSuffix(endpoint, "/chat/completions") {
		endpoint += "/chat/completions"
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, bytes.NewReader(body))
	if err != nil {
		return nil, c.fail(Transient, err)
	}
	req.Header.Set("Content-Type", "application/json")
	if c.APIKey != "" {
		req.Header.Set("Authorization", "Bearer "+c.APIKey)
	}

	resp, err := c.client().Do(req)
	if err != nil {
		return nil, c.fail(Transient, err)
	}
	respBody, _ := io.ReadAll(resp.Body)
	resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, c.fail(classifyStatus(resp.StatusCode, respBody),
			fmt.Errorf("status %d: %s", resp.StatusCode, truncate(string(respBody), 300)))
	}

	content, err := extractResponseText(respBody)
	if err != nil {
		return nil, c.fail(Transient, err)
	}
	translated, err := parseTranslationObject(content)
	if err != nil {
		return nil, c.fail(Transient, err)
	}
	return translated, nil
}

func (c *HTTPClient) fail(kind Kind, err error) *Error {
	return &Error{Kind: kind, Provider: c.Name, Err: err}
}

// classifyStatus maps an HTTP failure to a Kind. 402 and quota-flavored 403
// responses are treated as exhausted quota; other auth failures are fatal
// credential problems.
func classifyStatus(status int, body []byte) Kind {
	lower := strings.ToLower(string(body))
	switch status {
	case http.StatusTooManyRequests:
		if strings.Contains(lower, "quota") || strings.Contains(lower, "insufficient") {
			return QuotaExceeded
		}
		return RateLimited
	case http.StatusPaymentRequired:
		return QuotaExceeded
	case http.StatusUnauthorized:
		return Unauthorized
	case http.StatusForbidden:
		if strings.Contains(lower, "quota") || strings.Contains(lower, "billing") {
			return QuotaExceeded
		}
		return Unauthorized
	default:
		return Transient
	}
}

func buildChatRequest(model, systemPrompt, userPrompt string) ([]byte, error) {
	type msg struct {
		Role    string `json:"role"`
		Content string `json:"content"`
	}
	req := struct {
		Model       string  `json:"model"`
		Messages    []msg   `json:"messages"`
		Temperature float64 `json:"temperature"`
		Stream      bool    `json:"stream"`
	}{
		Model: model,
		Messages: []msg{
			{Role: "system", Content: systemPrompt},
			{Role: "user", Content: userPrompt},
		},
		Temperature: 0.3,
		Stream:      false,
	}
	return json.Marshal(req)
}

// extractResponseText pulls the assistant message out of an OpenAI chat
// completion response.
func extractResponseText(body []byte) (string, error) {
	var raw map[string]any
	if err := json.Unmarshal(body, &raw); err != nil {
		return "", fmt.Errorf("invalid JSON response: %w", err)
	}
	if errObj, ok := raw["error"]; ok {
		if errMap, ok := errObj.(map[string]any); ok {
			if msg, ok := errMap["message"].(string); ok {
				return "", fmt.Errorf("API error: %s", msg)
			}
		}
		return "", fmt.Errorf("API error: %v", errObj)
	}
	if choices, ok := raw["choices"].([]any); ok && len(choices) > 0 {
		if choice, ok := choices[0].(map[string]any); ok {
			if message, ok := choice["message"].(map[string]any); ok {
				if content, ok := message["content"].(string); ok {
					return content, nil
				}
			}
		}
	}
	return "", fmt.Errorf("could not extract text from response: %s", truncate(string(body), 300))
}

// parseTranslationObject recovers the key→translation object from the model
// output, tolerating markdown fences and surrounding prose.
func parseTranslationObject(content string) (map[string]string, error) {
	content = strings.TrimSpace(content)
	if start := strings.Index(content, "{"); start >= 0 {
		if end := strings.LastIndex(content, "}"); end > start {
			content = content[start : end+1]
		}
	}
	var translated map[string]string
	if err := json.Unmarshal([]byte(content), &translated); err != nil {
		return nil, fmt.Errorf("response is not a JSON object of translations: %w", err)
	}
	if len(translated) == 0 {
		return nil, fmt.Errorf("response contained no translations")
	}
	return translated, nil
}

func truncate(s string, maxLen int) string {
	if len(s) <= maxLen {
		return s
	}
	return s[:maxLen] + "..."
}
