package config

import (
	"testing"
)

func TestResolveHost(t *testing.T) {
	tests := []struct {
		host       string
		dockerized bool
		expected   string
	}{
		{"db.example.com", true, "db.example.com"},
		{"db.example.com", false, "db.example.com"},
		{"localhost", false, "localhost"},
		{"localhost", true, "host.docker.internal"},
		{"127.0.0.1", true, "host.docker.internal"},
		{"::1", true, "host.docker.internal"},
	}

	for _, tt := range tests {
		if got := resolveHost(tt.host, tt.dockerized); got != tt.expected {
			t.Errorf("resolveHost(%q, %v) = %q, want %q", tt.host, tt.dockerized, got, tt.expected)
		}
	}
}
