package server

import (
	"net/http"
	"testing"
)

func TestDetectSourceLanguage(t *testing.T) {
	tests := []struct {
		name   string
		accept string
		want   string
	}{
		{
			name:   "no header",
			accept: "",
			want:   "English",
		},
		{
			name:   "french browser",
			accept: "fr-FR,fr;q=0.9,en;q=0.8",
			want:   "French",
		},
		{
			name:   "regional variant maps to base language",
			accept: "pt-BR",
			want:   "Portuguese",
		},
		{
			name:   "unsupported language falls back",
			accept: "sw-KE",
			want:   "English",
		},
		{
			name:   "garbage header falls back",
			accept: ";;;",
			want:   "English",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req, err := http.NewRequest(http.MethodGet, "/", nil)
			if err != nil {
				t.Fatalf("new request: %v", err)
			}
			if tt.accept != "" {
				req.Header.Set("Accept-Language", tt.accept)
			}

			if got := DetectSourceLanguage(req); got != tt.want {
				t.Errorf("DetectSourceLanguage(%q) = %q, want %q", tt.accept, got, tt.want)
			}
		})
	}
}
