package provider

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"reflect"
	"strings"
	"testing"
)

func TestNewBatchKeys(t *testing.T) {
	b := NewBatch([]string{"一", "二", "三"})
	if !reflect.DeepEqual(b.Keys, []string{"Line1", "Line2", "Line3"}) {
		t.Fatalf("Keys = %v", b.Keys)
	}
	if b.Source["Line2"] != "二" {
		t.Fatalf("Source[Line2] = %q", b.Source["Line2"])
	}
	if b.Len() != 3 {
		t.Fatalf("Len() = %d", b.Len())
	}
}

func TestClassifyStatus(t *testing.T) {
	tests := []struct {
		status int
		body   string
		want   Kind
	}{
		{429, "slow down", RateLimited},
		{429, "you exceeded your current quota", QuotaExceeded},
		{429, "insufficient balance", QuotaExceeded},
		{402, "", QuotaExceeded},
		{401, "invalid api key", Unauthorized},
		{403, "access denied", Unauthorized},
		{403, "billing hard limit reached", QuotaExceeded},
		{500, "internal error", Transient},
		{503, "", Transient},
	}
	for _, tc := range tests {
		if got := classifyStatus(tc.status, []byte(tc.body)); got != tc.want {
			t.Fatalf("classifyStatus(%d, %q) = %v, want %v", tc.status, tc.body, got, tc.want)
		}
	}
}

func TestParseTranslationObject(t *testing.T) {
	content := "Here you go:\n```json\n{\"Line1\": \"Hello\", \"Line2\": \"Bye\"}\n```\nDone."
	got, err := parseTranslationObject(content)
	if err != nil {
		t.Fatalf("parseTranslationObject() error: %v", err)
	}
	if got["Line1"] != "Hello" || got["Line2"] != "Bye" {
		t.Fatalf("parsed = %v", got)
	}

	if _, err := parseTranslationObject("no json here"); err == nil {
		t.Fatal("expected error for prose without an object")
	}
	if _, err := parseTranslationObject("{}"); err == nil {
		t.Fatal("expected error for empty object")
	}
}

func TestExtractResponseText(t *testing.T) {
	body := `{"choices":[{"message":{"content":"{\"Line1\":\"Hi\"}"}}]}`
	got, err := extractResponseText([]byte(body))
	if err != nil {
		t.Fatalf("extractResponseText() error: %v", err)
	}
	if got != `{"Line1":"Hi"}` {
		t.Fatalf("content = %q", got)
	}

	if _, err := extractResponseText([]byte(`{"error":{"message":"boom"}}`)); err == nil {
		t.Fatal("expected error for API error object")
	}
	if _, err := extractResponseText([]byte(`{"choices":[]}`)); err == nil {
		t.Fatal("expected error for empty choices")
	}
}

func TestHTTPClientTranslate(t *testing.T) {
	var gotAuth string
	var gotReq map[string]any
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotAuth = r.Header.Get("Authorization")
		json.NewDecoder(r.Body).Decode(&gotReq)
		json.NewEncoder(w).Encode(map[string]any{
			"choices": []any{
				map[string]any{"message": map[string]any{
					"content": `{"Line1": "Hello", "Line2": "Goodbye"}`,
				}},
			},
		})
	}))
	defer srv.Close()

	c := &HTTPClient{
		Name:           "test",
		BaseURL:        srv.URL + "/v1",
		APIKey:         "sk-test",
		Model:          "test-model",
		TargetLanguage: "English",
	}
	got, err := c.Translate(context.Background(), NewBatch([]string{"こんにちは", "さようなら"}))
	if err != nil {
		t.Fatalf("Translate() error: %v", err)
	}
	if got["Line1"] != "Hello" || got["Line2"] != "Goodbye" {
		t.Fatalf("translations = %v", got)
	}
	if gotAuth != "Bearer sk-test" {
		t.Fatalf("Authorization = %q", gotAuth)
	}
	if gotReq["model"] != "test-model" {
		t.Fatalf("request model = %v", gotReq["model"])
	}
	msgs := gotReq["messages"].([]any)
	system := msgs[0].(map[string]any)["content"].(string)
	if !strings.Contains(system, "English") {
		t.Fatal("system prompt missing the target language")
	}
}

func TestHTTPClientClassifiesFailure(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusUnauthorized)
		w.Write([]byte(`{"error":{"message":"invalid key"}}`))
	}))
	defer srv.Close()

	c := &HTTPClient{Name: "test", BaseURL: srv.URL}
	_, err := c.Translate(context.Background(), NewBatch([]string{"テスト"}))
	if err == nil {
		t.Fatal("expected error")
	}
	var perr *Error
	if !errors.As(err, &perr) {
		t.Fatalf("error %T is not a provider Error", err)
	}
	if perr.Kind != Unauthorized {
		t.Fatalf("kind = %v, want Unauthorized", perr.Kind)
	}
	if perr.Provider != "test" {
		t.Fatalf("provider = %q", perr.Provider)
	}
}
