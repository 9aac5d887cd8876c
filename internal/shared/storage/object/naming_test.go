package object

import (
	"strings"
	"testing"
)

func TestUserObjectKeyNamespacesByUser(t *testing.T) {
	key, err := UserObjectKey("user-1", "paper.pdf")
	if err != nil {
		t.Fatalf("UserObjectKey: %v", err)
	}
	parts := strings.Split(key, "/")
	if len(parts) != 2 {
		t.Fatalf("expected two path segments, got %q", key)
	}
	if !strings.HasSuffix(parts[1], "_paper.pdf") {
		t.Fatalf("expected sanitized name suffix, got %q", parts[1])
	}

	other, _ := UserObjectKey("user-1", "paper.pdf")
	if other == key {
		t.Fatalf("expected random prefix to differ between calls")
	}
}

func TestUserObjectKeyRejectsTraversal(t *testing.T) {
	if _, err := UserObjectKey("user-1", "../../etc/passwd"); err == nil {
		t.Fatalf("expected traversal name to be rejected")
	}
}

func TestDetectContentType(t *testing.T) {
	tests := []struct {
		name string
		file string
		head []byte
		want string
	}{
		{name: "pdf magic", file: "x.bin", head: []byte("%PDF-1.7\n"), want: "application/pdf"},
		{name: "docx zip", file: "draft.docx", head: []byte("PK\x03\x04rest"), want: extensionTypes[".docx"]},
		{name: "markdown", file: "notes.md", head: []byte("# Notes\n"), want: extensionTypes[".md"]},
		{name: "plain text", file: "notes", head: []byte("hello"), want: "text/plain; charset=utf-8"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := DetectContentType(tt.file, tt.head); got != tt.want {
				t.Fatalf("DetectContentType(%q) = %q, want %q", tt.file, got, tt.want)
			}
		})
	}
}
