package llm

import (
	"errors"
	"testing"
)

func TestNewService_MissingAPIKey(t *testing.T) {
	cfg := &Config{
		Provider: "openai",
		Model:    "gpt-4o",
	}

	_, err := NewService(cfg)
	if !errors.Is(err, ErrGatewayUnavailable) {
		t.Errorf("NewService() without API key: got %v, want ErrGatewayUnavailable", err)
	}
}

func TestNewService_OllamaNeedsNoKey(t *testing.T) {
	cfg := &Config{
		Provider: "ollama",
		Model:    "llama3",
	}

	svc, err := NewService(cfg)
	if err != nil {
		t.Fatalf("NewService() error = %v", err)
	}
	if svc == nil {
		t.Fatal("NewService() returned nil service")
	}
}

func TestNewService_DeepSeekDefaults(t *testing.T) {
	cfg := &Config{
		Provider: "deepseek",
		Model:    "deepseek-chat",
		APIKey:   "test-key",
	}

	svc, err := NewService(cfg)
	if err != nil {
		t.Fatalf("NewService() error = %v", err)
	}

	impl, ok := svc.(*service)
	if !ok {
		t.Fatal("NewService() returned unexpected concrete type")
	}
	if impl.timeout != 120 {
		t.Errorf("default timeout = %d, want 120", impl.timeout)
	}
	if impl.maxTokens != 2048 {
		t.Errorf("default max tokens = %d, want 2048", impl.maxTokens)
	}
}

func TestProviderErrorUnwrap(t *testing.T) {
	upstream := errors.New("rate limited")
	err := error(&ProviderError{Provider: "openai", Err: upstream})

	if !errors.Is(err, upstream) {
		t.Error("ProviderError should unwrap to the upstream error")
	}

	var pe *ProviderError
	if !errors.As(err, &pe) || pe.Provider != "openai" {
		t.Error("errors.As should recover the ProviderError")
	}
}

func TestExtractJSON(t *testing.T) {
	tests := []struct {
		name  string
		input string
		want  string
	}{
		{"bare object", `{"a":1}`, `{"a":1}`},
		{"json fence", "```json\n{\"a\":1}\n```", `{"a":1}`},
		{"plain fence", "```\n[1,2]\n```", `[1,2]`},
		{"leading prose", "Here is the result: {\"a\":1}", `{"a":1}`},
		{"whitespace", "  {\"a\":1}  ", `{"a":1}`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := ExtractJSON(tt.input); got != tt.want {
				t.Errorf("ExtractJSON(%q) = %q, want %q", tt.input, got, tt.want)
			}
		})
	}
}
