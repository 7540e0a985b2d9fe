package archive

import (
	"bytes"
	"encoding/json"
	"fmt"
)

// Archive is the decoded conversations export: one record per conversation.
type Archive []Conversation

// Conversation is a single exported chat with its message mapping.
type Conversation struct {
	Title   string  `json:"title"`
	Mapping Mapping `json:"mapping"`
}

// Mapping holds a conversation's fragments keyed by id. Order keeps the keys
// in the order they appeared in the source document.
type Mapping struct {
	Order     []string
	Fragments map[string]Fragment
}

// Fragment is one entry of a conversation mapping. A fragment without a
// message is a structural placeholder (the synthetic root of an export, for
// example).
type Fragment struct {
	ID       string   `json:"id"`
	Parent   string   `json:"-"`
	Children []string `json:"children"`
	Message  *Message `json:"message"`
}

// Message is the payload carried by a fragment.
type Message struct {
	Author     Author   `json:"author"`
	Content    Content  `json:"content"`
	CreateTime *float64 `json:"create_time"`
}

type Author struct {
	Role string `json:"role"`
}

type Content struct {
	ContentType string            `json:"content_type,omitempty"`
	Parts       []json.RawMessage `json:"parts"`
}

// NewMapping builds a Mapping from fragments, keeping their order.
func NewMapping(fragments ...Fragment) Mapping {
	m := Mapping{Fragments: make(map[string]Fragment, len(fragments))}
	for _, f := range fragments {
		m.Set(f)
	}
	return m
}

// Set adds or replaces a fragment. New ids are appended to Order.
func (m *Mapping) Set(f Fragment) {
	if m.Fragments == nil {
		m.Fragments = make(map[string]Fragment)
	}
	if _, ok := m.Fragments[f.ID]; !ok {
		m.Order = append(m.Order, f.ID)
	}
	m.Fragments[f.ID] = f
}

// Get returns the fragment stored under id.
func (m Mapping) Get(id string) (Fragment, bool) {
	f, ok := m.Fragments[id]
	return f, ok
}

func (m Mapping) Len() int {
	return len(m.Order)
}

// UnmarshalJSON decodes the mapping object token by token so the key order
// of the export is kept.
func (m *Mapping) UnmarshalJSON(data []byte) error {
	dec := json.NewDecoder(bytes.NewReader(data))

	tok, err := dec.Token()
	if err != nil {
		return fmt.Errorf("mapping: %w", err)
	}
	if tok == nil {
		*m = Mapping{}
		return nil
	}
	if delim, ok := tok.(json.Delim); !ok || delim != '{' {
		return fmt.Errorf("mapping: expected object, got %v", tok)
	}

	out := Mapping{Fragments: make(map[string]Fragment)}
	for dec.More() {
		keyTok, err := dec.Token()
		if err != nil {
			return fmt.Errorf("mapping key: %w", err)
		}
		key, _ := keyTok.(string)

		var f Fragment
		if err := dec.Decode(&f); err != nil {
			return fmt.Errorf("mapping fragment %q: %w", key, err)
		}
		// Exports always repeat the key as the id; fall back to the key when
		// the id field is missing.
		if f.ID == "" {
			f.ID = key
		}
		if _, dup := out.Fragments[key]; !dup {
			out.Order = append(out.Order, key)
		}
		out.Fragments[key] = f
	}
	if _, err := dec.Token(); err != nil {
		return fmt.Errorf("mapping: %w", err)
	}

	*m = out
	return nil
}

// MarshalJSON writes the mapping back out in Order.
func (m Mapping) MarshalJSON() ([]byte, error) {
	var buf bytes.Buffer
	buf.WriteByte('{')
	for i, id := range m.Order {
		if i > 0 {
			buf.WriteByte(',')
		}
		key, err := json.Marshal(id)
		if err != nil {
			return nil, err
		}
		val, err := json.Marshal(m.Fragments[id])
		if err != nil {
			return nil, err
		}
		buf.Write(key)
		buf.WriteByte(':')
		buf.Write(val)
	}
	buf.WriteByte('}')
	return buf.Bytes(), nil
}

// fragmentJSON mirrors Fragment with a nullable parent.
type fragmentJSON struct {
	ID       string   `json:"id"`
	Parent   *string  `json:"parent"`
	Children []string `json:"children"`
	Message  *Message `json:"message"`
}

func (f *Fragment) UnmarshalJSON(data []byte) error {
	var raw fragmentJSON
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	f.ID = raw.ID
	f.Parent = ""
	if raw.Parent != nil {
		f.Parent = *raw.Parent
	}
	f.Children = raw.Children
	f.Message = raw.Message
	return nil
}

func (f Fragment) MarshalJSON() ([]byte, error) {
	raw := fragmentJSON{
		ID:       f.ID,
		Children: f.Children,
		Message:  f.Message,
	}
	if f.Parent != "" {
		p := f.Parent
		raw.Parent = &p
	}
	if raw.Children == nil {
		raw.Children = []string{}
	}
	return json.Marshal(raw)
}

// HasPayload reports whether the fragment carries a usable message. Both a
// null and an empty message object count as missing.
func (f Fragment) HasPayload() bool {
	return f.Message != nil && !f.Message.IsZero()
}

// IsZero reports whether the message has no author, parts or timestamp.
func (m *Message) IsZero() bool {
	return m.Author.Role == "" && len(m.Content.Parts) == 0 && m.CreateTime == nil
}

// Text returns the first content part when it is a plain string.
func (m *Message) Text() string {
	if m == nil || len(m.Content.Parts) == 0 {
		return ""
	}
	var s string
	if err := json.Unmarshal(m.Content.Parts[0], &s); err != nil {
		return ""
	}
	return s
}

// NewTextMessage builds a message payload with a single text part.
func NewTextMessage(role, text string, createTime float64) *Message {
	part, _ := json.Marshal(text)
	return &Message{
		Author:     Author{Role: role},
		Content:    Content{ContentType: "text", Parts: []json.RawMessage{part}},
		CreateTime: &createTime,
	}
}
