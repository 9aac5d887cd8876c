package object

import (
	"crypto/rand"
	"encoding/hex"
	"fmt"
	"mime"
	"net/http"
	"path"
	"path/filepath"
	"strings"
	"time"

	"research-backend/internal/shared/util"
)

// SniffLen is the number of leading bytes inspected for content detection.
const SniffLen = 512

var extensionTypes = map[string]string{
	".pdf":  "application/pdf",
	".docx": "application/vnd.openxmlformats-officedocument.wordprocessingml.document",
	".txt":  "text/plain; charset=utf-8",
	".md":   "text/markdown; charset=utf-8",
}

// UserObjectKey builds "<hashed user>/<random>_<sanitized name>".
func UserObjectKey(userID, fileName string) (string, error) {
	sanitized, err := util.SanitizeFileName(fileName)
	if err != nil {
		return "", fmt.Errorf("sanitize file name: %w", err)
	}
	return path.Join(util.HashUserKey(userID), randomID()+"_"+sanitized), nil
}

// DetectContentType prefers the sniffed type and falls back to the file
// extension when sniffing only sees a generic container.
func DetectContentType(fileName string, head []byte) string {
	sniffed := http.DetectContentType(head)
	switch {
	case strings.HasPrefix(sniffed, "application/octet-stream"),
		strings.HasPrefix(sniffed, "application/zip"),
		strings.HasPrefix(sniffed, "text/plain"):
		ext := strings.ToLower(filepath.Ext(fileName))
		if t, ok := extensionTypes[ext]; ok {
			return t
		}
		if t := mime.TypeByExtension(ext); t != "" {
			return t
		}
	}
	return sniffed
}

func randomID() string {
	var b [16]byte
	if _, err := rand.Read(b[:]); err != nil {
		return fmt.Sprintf("%d", time.Now().UnixNano())
	}
	return hex.EncodeToString(b[:])
}
