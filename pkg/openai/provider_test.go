package openai

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/lehigh-university-libraries/ocrweb/pkg/providers"
)

func TestProvider_Name(t *testing.T) {
	if got := New().Name(); got != "openai" {
		t.Errorf("Expected name 'openai', got '%s'", got)
	}
}

func TestProvider_ValidateConfig(t *testing.T) {
	tests := []struct {
		name        string
		apiKey      string
		expectError bool
	}{
		{name: "valid API key", apiKey: "sk-test-key"},
		{name: "missing API key", apiKey: "", expectError: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Setenv("OPENAI_API_KEY", tt.apiKey)
			err := New().ValidateConfig(providers.Config{Provider: "openai"})
			if tt.expectError && err == nil {
				t.Error("Expected error but got none")
			}
			if !tt.expectError && err != nil {
				t.Errorf("Expected no error but got: %v", err)
			}
		})
	}
}

func TestProvider_ExtractText(t *testing.T) {
	tests := []struct {
		name           string
		statusCode     int
		serverResponse string
		expectedText   string
		errorContains  string
	}{
		{
			name:           "successful response",
			statusCode:     http.StatusOK,
			serverResponse: `{"choices":[{"message":{"content":"भारत India"}}]}`,
			expectedText:   "भारत India",
		},
		{
			name:           "prefix cleaned",
			statusCode:     http.StatusOK,
			serverResponse: `{"choices":[{"message":{"content":"Here's the extracted text from the image: Hello"}}]}`,
			expectedText:   "Hello",
		},
		{
			name:           "no choices",
			statusCode:     http.StatusOK,
			serverResponse: `{"choices":[]}`,
			errorContains:  "no response from OpenAI",
		},
		{
			name:           "API error",
			statusCode:     http.StatusUnauthorized,
			serverResponse: `{"error":{"message":"bad key"}}`,
			errorContains:  "openAI API error: 401",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				if r.URL.Path != "/chat/completions" {
					t.Errorf("Expected /chat/completions, got %s", r.URL.Path)
				}
				if got := r.Header.Get("Authorization"); got != "Bearer sk-test-key" {
					t.Errorf("Unexpected Authorization header %q", got)
				}
				var req request
				if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
					t.Errorf("Failed to decode request: %v", err)
				} else if len(req.Messages) != 1 || len(req.Messages[0].Content) != 2 ||
					!strings.HasPrefix(req.Messages[0].Content[1].ImageURL.URL, "data:image/png;base64,") {
					t.Errorf("Unexpected request shape: %+v", req)
				}
				w.WriteHeader(tt.statusCode)
				_, _ = w.Write([]byte(tt.serverResponse))
			}))
			defer server.Close()

			t.Setenv("OPENAI_API_KEY", "sk-test-key")
			t.Setenv("OPENAI_BASE_URL", server.URL)

			got, err := New().ExtractText(context.Background(), providers.Config{}, providers.Image{Data: []byte("img"), MimeType: "image/png"})
			if tt.errorContains != "" {
				if err == nil || !strings.Contains(err.Error(), tt.errorContains) {
					t.Fatalf("Expected error containing %q, got %v", tt.errorContains, err)
				}
				return
			}
			if err != nil {
				t.Fatalf("Unexpected error: %v", err)
			}
			if got != tt.expectedText {
				t.Errorf("Expected %q, got %q", tt.expectedText, got)
			}
		})
	}
}

func TestProvider_ExtractText_MissingKey(t *testing.T) {
	t.Setenv("OPENAI_API_KEY", "")
	_, err := New().ExtractText(context.Background(), providers.Config{}, providers.Image{})
	if err == nil || !strings.Contains(err.Error(), "OPENAI_API_KEY") {
		t.Errorf("Expected missing key error, got %v", err)
	}
}
