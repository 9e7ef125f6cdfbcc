package middleware

import (
	"errors"
	"path/filepath"
	"strings"
	"unicode/utf8"
)

// MaxUploadBytes bounds the size of an uploaded document.
const MaxUploadBytes = 32 << 20

// ValidateQuestion validates question text. Blank questions are allowed: the
// arbiter treats them as a no-op.
func ValidateQuestion(q string) error {
	if len(q) > 100000 {
		return errors.New("question exceeds maximum length")
	}
	if !utf8.ValidString(q) {
		return errors.New("question must be valid UTF-8")
	}
	return nil
}

// ValidateThreadID validates a thread ID, provisional or persisted.
func ValidateThreadID(id string) error {
	return validateID("thread", id)
}

// ValidateDocumentID validates a document ID.
func ValidateDocumentID(id string) error {
	return validateID("document", id)
}

func validateID(kind, id string) error {
	if id == "" {
		return errors.New(kind + " ID cannot be empty")
	}
	if len(id) > 128 {
		return errors.New(kind + " ID exceeds maximum length")
	}
	if strings.ContainsAny(id, "/\\ \t\r\n") {
		return errors.New("invalid " + kind + " ID format")
	}
	return nil
}

// ValidateUploadName validates the file name of an uploaded document.
func ValidateUploadName(name string) error {
	if name == "" {
		return errors.New("file name cannot be empty")
	}
	if !strings.EqualFold(filepath.Ext(name), ".pdf") {
		return errors.New("only PDF documents are accepted")
	}
	if !utf8.ValidString(name) {
		return errors.New("file name must be valid UTF-8")
	}
	return nil
}
