package openai

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/agroloop/agroloop/internal/domain"
)

func TestChatCompletion(t *testing.T) {
	var got reqBody
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/chat/completions" {
			t.Errorf("path = %s, want /chat/completions", r.URL.Path)
		}
		if auth := r.Header.Get("Authorization"); auth != "Bearer sk-test" {
			t.Errorf("Authorization = %q", auth)
		}
		json.NewDecoder(r.Body).Decode(&got)
		w.Write([]byte(`{"choices":[{"message":{"role":"assistant","content":"Mulch your beds."}}]}`))
	}))
	defer srv.Close()

	c := New("sk-test", 5*time.Second)
	c.BaseURL = srv.URL

	reply, err := c.ChatCompletion(context.Background(), []domain.Message{
		{Role: domain.RoleSystem, Content: "sys"},
		{Role: domain.RoleUser, Content: "hi"},
	})
	if err != nil {
		t.Fatalf("ChatCompletion() error: %v", err)
	}
	if reply != "Mulch your beds." {
		t.Errorf("reply = %q", reply)
	}
	if got.Model != "gpt-3.5-turbo" || got.MaxTokens != 500 || got.Temperature != 0.7 {
		t.Errorf("request = %+v", got)
	}
	if len(got.Messages) != 2 || got.Messages[1].Content != "hi" {
		t.Errorf("messages = %+v", got.Messages)
	}
}

func TestChatCompletion_Failures(t *testing.T) {
	tests := []struct {
		name   string
		status int
		body   string
	}{
		{"server error", http.StatusInternalServerError, `{"error":{"message":"boom"}}`},
		{"unauthorized", http.StatusUnauthorized, `{}`},
		{"missing choices", http.StatusOK, `{"choices":[]}`},
		{"not json", http.StatusOK, `<html>`},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(tt.status)
				w.Write([]byte(tt.body))
			}))
			defer srv.Close()

			c := New("sk-test", time.Second)
			c.BaseURL = srv.URL
			if _, err := c.ChatCompletion(context.Background(), nil); err == nil {
				t.Error("ChatCompletion() should fail")
			}
		})
	}
}

func TestChatCompletion_OversizedResponse(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"choices":[{"message":{"content":"ok"}}],"pad":"`))
		w.Write([]byte(strings.Repeat("x", MaxResponseBytes)))
		w.Write([]byte(`"}`))
	}))
	defer srv.Close()

	c := New("sk-test", 5*time.Second)
	c.BaseURL = srv.URL
	_, err := c.ChatCompletion(context.Background(), nil)
	if err == nil || !strings.Contains(err.Error(), "exceeds") {
		t.Errorf("ChatCompletion() error = %v, want size limit error", err)
	}
}

func TestChatCompletion_NoKey(t *testing.T) {
	if _, err := New("", time.Second).ChatCompletion(context.Background(), nil); err == nil {
		t.Error("ChatCompletion() without key should fail")
	}
}
