package main

import "testing"

func TestLocalURL(t *testing.T) {
	tests := map[string]string{
		":3000":          "http://localhost:3000",
		"0.0.0.0:8080":   "http://localhost:8080",
		"127.0.0.1:9000": "http://127.0.0.1:9000",
		"[::]:3000":      "http://localhost:3000",
		"example.com":    "http://example.com",
	}
	for addr, want := range tests {
		if got := localURL(addr); got != want {
			t.Errorf("localURL(%q) = %q, want %q", addr, got, want)
		}
	}
}
