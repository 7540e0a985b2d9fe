package archive

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
)

var (
	// ErrNotFound is returned when the archive file does not exist.
	ErrNotFound = errors.New("archive not found")
	// ErrMalformed is returned when the archive is not a JSON array of conversations.
	ErrMalformed = errors.New("archive malformed")
)

// LoadFile reads a conversations export from disk.
func LoadFile(path string, logger *slog.Logger) (Archive, error) {
	f, err := os.Open(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, fmt.Errorf("open %s: %w", path, ErrNotFound)
		}
		return nil, fmt.Errorf("open: %w", err)
	}
	defer f.Close()

	a, err := Decode(f)
	if err != nil {
		return nil, fmt.Errorf("decode %s: %w", path, err)
	}
	if len(a) == 0 {
		logger.Warn("archive is empty or improperly formatted", "path", path)
	}
	return a, nil
}

// Decode parses an export from r.
func Decode(r io.Reader) (Archive, error) {
	var a Archive
	if err := json.NewDecoder(r).Decode(&a); err != nil {
		if errors.Is(err, io.EOF) {
			return nil, nil
		}
		return nil, fmt.Errorf("%w: %v", ErrMalformed, err)
	}
	return a, nil
}

// Find returns the first conversation with the given title.
func (a Archive) Find(title string) (Conversation, bool) {
	for _, c := range a {
		if c.Title == title {
			return c, true
		}
	}
	return Conversation{}, false
}

// Titles lists conversation titles in archive order.
func (a Archive) Titles() []string {
	titles := make([]string, len(a))
	for i, c := range a {
		titles[i] = c.Title
	}
	return titles
}
