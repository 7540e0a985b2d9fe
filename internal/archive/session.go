package archive

import (
	"bufio"
	"encoding/json"
	"fmt"
	"io"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"
	"unicode/utf8"
)

const maxTitleRunes = 80

// sessionLine is one entry of a JSONL session transcript. Entries link to
// their predecessor through parentUuid, so edited prompts fork the chain.
type sessionLine struct {
	Type       string         `json:"type"`
	UUID       string         `json:"uuid"`
	ParentUUID *string        `json:"parentUuid"`
	SessionID  string         `json:"sessionId"`
	Timestamp  string         `json:"timestamp"`
	Message    sessionMessage `json:"message"`
}

type sessionMessage struct {
	Role    string          `json:"role"`
	Content json.RawMessage `json:"content"`
}

type sessionBlock struct {
	Type string `json:"type"`
	Text string `json:"text,omitempty"`
}

// ParseSessionFile converts a JSONL session transcript into a conversation.
// Every entry with a uuid becomes a fragment; children follow from parent
// links in file order. Malformed lines are skipped.
func ParseSessionFile(path string) (Conversation, error) {
	f, err := os.Open(path)
	if err != nil {
		return Conversation{}, fmt.Errorf("open: %w", err)
	}
	defer f.Close()

	conv, err := DecodeSession(f)
	if err != nil {
		return Conversation{}, fmt.Errorf("parse %s: %w", path, err)
	}
	if conv.Title == "" {
		conv.Title = strings.TrimSuffix(filepath.Base(path), filepath.Ext(path))
	}
	return conv, nil
}

// DecodeSession reads JSONL session entries from r.
func DecodeSession(r io.Reader) (Conversation, error) {
	var (
		conv      Conversation
		sessionID string
	)

	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 0, 1024*1024), 10*1024*1024)
	for scanner.Scan() {
		var line sessionLine
		if err := json.Unmarshal(scanner.Bytes(), &line); err != nil {
			continue
		}
		if line.UUID == "" {
			continue
		}
		if sessionID == "" {
			sessionID = line.SessionID
		}

		frag := Fragment{ID: line.UUID, Message: line.toMessage()}
		if line.ParentUUID != nil {
			frag.Parent = *line.ParentUUID
		}
		conv.Mapping.Set(frag)

		if conv.Title == "" && frag.Message.Author.Role == "user" {
			conv.Title = titleFrom(frag.Message.Text())
		}
	}
	if err := scanner.Err(); err != nil {
		return Conversation{}, fmt.Errorf("scan: %w", err)
	}

	// Children are only implied by parent links in this format.
	for _, id := range conv.Mapping.Order {
		frag := conv.Mapping.Fragments[id]
		if frag.Parent == "" {
			continue
		}
		parent, ok := conv.Mapping.Fragments[frag.Parent]
		if !ok {
			continue
		}
		parent.Children = append(parent.Children, id)
		conv.Mapping.Fragments[frag.Parent] = parent
	}

	if conv.Title == "" {
		conv.Title = sessionID
	}
	return conv, nil
}

// toMessage maps an entry onto the export message shape. Tool traffic is
// given the tool role so transcripts leave it out.
func (l *sessionLine) toMessage() *Message {
	role := l.Type
	text, tool := l.text()
	if tool {
		role = "tool"
	}

	msg := &Message{
		Author:  Author{Role: role},
		Content: Content{ContentType: "text"},
	}
	part, _ := json.Marshal(text)
	msg.Content.Parts = []json.RawMessage{part}

	if ts, err := time.Parse(time.RFC3339Nano, l.Timestamp); err == nil {
		secs := float64(ts.UnixNano()) / 1e9
		msg.CreateTime = &secs
	}
	return msg
}

// text returns the entry's readable text and whether the entry is tool
// traffic (a tool result, or an assistant turn with no text blocks).
func (l *sessionLine) text() (string, bool) {
	if l.Type != "user" && l.Type != "assistant" {
		return "", false
	}
	if l.Message.Content == nil {
		return "", l.Type == "assistant"
	}

	var plain string
	if err := json.Unmarshal(l.Message.Content, &plain); err == nil {
		return plain, false
	}

	var blocks []sessionBlock
	if err := json.Unmarshal(l.Message.Content, &blocks); err != nil {
		return "", false
	}

	var parts []string
	for _, b := range blocks {
		switch {
		case b.Type == "tool_result":
			return "", true
		case b.Type == "text" && b.Text != "":
			parts = append(parts, b.Text)
		}
	}
	if len(parts) == 0 && l.Type == "assistant" {
		return "", true
	}
	return strings.Join(parts, "\n"), false
}

func titleFrom(text string) string {
	text = strings.TrimSpace(strings.SplitN(text, "\n", 2)[0])
	if utf8.RuneCountInString(text) <= maxTitleRunes {
		return text
	}
	runes := []rune(text)
	return string(runes[:maxTitleRunes]) + "..."
}

// LoadSessions parses every .jsonl file under dir, in lexical order. Files
// that fail to parse or hold no entries are logged and skipped.
func LoadSessions(dir string, logger *slog.Logger) (Archive, error) {
	var a Archive
	err := filepath.WalkDir(dir, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() || filepath.Ext(path) != ".jsonl" {
			return nil
		}

		conv, err := ParseSessionFile(path)
		if err != nil {
			logger.Warn("skipping session", "path", path, "error", err)
			return nil
		}
		if conv.Mapping.Len() == 0 {
			logger.Debug("empty session", "path", path)
			return nil
		}
		a = append(a, conv)
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("walk %s: %w", dir, err)
	}
	logger.Info("sessions loaded", "dir", dir, "conversations", len(a))
	return a, nil
}
