package logprocessing

import (
	"reflect"
	"testing"
)

func TestExtractMessage(t *testing.T) {
	tests := []struct {
		name  string
		input string
		want  string
	}{
		{"plain text", "disk full", "disk full"},
		{"json msg", `{"level":"error","msg":"disk full"}`, "disk full"},
		{"json message preferred", `{"message":"a","msg":"b"}`, "a"},
		{"json without message", `{"level":"error"}`, `{"level":"error"}`},
		{"broken json", `{"msg":`, `{"msg":`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := ExtractMessage(tt.input); got != tt.want {
				t.Errorf("ExtractMessage(%q) = %q, want %q", tt.input, got, tt.want)
			}
		})
	}
}

func TestPreProcess(t *testing.T) {
	got := PreProcess("  Connection   to 10.0.0.1 FAILED  ")
	if got != "connection to <ip> failed" {
		t.Errorf("PreProcess() = %q", got)
	}
}

func TestTokenize(t *testing.T) {
	tests := []struct {
		name  string
		input string
		want  []string
	}{
		{
			name:  "drops variables and stop words",
			input: "User alice failed to connect to 10.0.0.1 after 3 retries",
			want:  []string{"after", "alice", "connect", "failed", "retries", "user"},
		},
		{
			name:  "deduplicates",
			input: "timeout timeout Timeout",
			want:  []string{"timeout"},
		},
		{
			name:  "keeps status codes",
			input: "upstream returned 503",
			want:  []string{"503", "returned", "upstream"},
		},
		{
			name:  "empty",
			input: "",
			want:  []string{},
		},
		{
			name:  "only variables",
			input: "10.0.0.1 42",
			want:  []string{},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := Tokenize(tt.input); !reflect.DeepEqual(got, tt.want) {
				t.Errorf("Tokenize(%q) = %v, want %v", tt.input, got, tt.want)
			}
		})
	}
}

func TestKeywords(t *testing.T) {
	got := Keywords("connection to <*> timed out after <num> seconds")
	want := []string{"connection", "timed", "out", "after", "seconds"}
	if !reflect.DeepEqual(got, want) {
		t.Errorf("Keywords() = %v, want %v", got, want)
	}
}
