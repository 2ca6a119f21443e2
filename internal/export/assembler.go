package export

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/jkastner/convoscan/internal/logging"
)

var exportLog = logging.ForComponent(logging.CompExport)

// MalformedEntryError reports one skipped export record. It is recoverable:
// the pass continues with the next record.
type MalformedEntryError struct {
	Index  int    // zero-based position in the top-level array
	ConvID string // conversation id, when the record carried one
	Reason string
}

func (e *MalformedEntryError) Error() string {
	if e.ConvID != "" {
		return fmt.Sprintf("malformed entry %d (%s): %s", e.Index, e.ConvID, e.Reason)
	}
	return fmt.Sprintf("malformed entry %d: %s", e.Index, e.Reason)
}

// Conversations iterates over an export one record at a time. Buffers are
// discarded between records; at most one conversation is held in memory.
type Conversations struct {
	r       *Reader
	index   int
	skipped int
	done    bool
	err     error
}

// Conversations returns the record iterator for this reader. Only one
// iterator may consume a reader.
func (r *Reader) Conversations() *Conversations {
	return &Conversations{r: r}
}

// Next returns the next assembled conversation. It returns io.EOF when the
// export is exhausted, a *MalformedEntryError for records that were skipped,
// and a *ParseError when the top-level JSON is structurally broken. Parse
// errors are fatal; malformed entries are not.
func (it *Conversations) Next() (*Conversation, error) {
	if it.done {
		if it.err != nil {
			return nil, it.err
		}
		return nil, io.EOF
	}

	if err := it.r.begin(); err != nil {
		return nil, it.fail(err)
	}

	if !it.r.more() {
		if err := it.r.end(); err != nil {
			return nil, it.fail(err)
		}
		it.done = true
		return nil, io.EOF
	}

	var raw rawConversation
	if err := it.r.decodeElement(&raw); err != nil {
		// A wrong-typed value inside one record (or a non-object element)
		// is fully consumed by the decoder before it reports the mismatch,
		// so the stream stays aligned and the record can be skipped.
		var typeErr *json.UnmarshalTypeError
		if errors.As(err, &typeErr) {
			index := it.index
			it.index++
			return nil, it.skip(&MalformedEntryError{
				Index:  index,
				ConvID: raw.id(),
				Reason: "wrong-typed value: " + typeErr.Error(),
			})
		}
		return nil, it.fail(err)
	}
	index := it.index
	it.index++

	conv, err := it.assemble(&raw, index)
	if err != nil {
		return nil, it.skip(err)
	}
	return conv, nil
}

func (it *Conversations) skip(merr *MalformedEntryError) error {
	it.skipped++
	logging.Aggregate(logging.CompExport, "malformed_entry_skipped",
		slog.String("reason", merr.Reason))
	exportLog.Debug("malformed_entry_skipped",
		slog.Int("index", merr.Index),
		slog.String("conversation_id", merr.ConvID),
		slog.String("reason", merr.Reason))
	return merr
}

// Skipped returns how many malformed records have been dropped so far.
func (it *Conversations) Skipped() int {
	return it.skipped
}

// Processed returns how many top-level records have been consumed,
// malformed ones included.
func (it *Conversations) Processed() int {
	return it.index
}

func (it *Conversations) fail(err error) error {
	it.done = true
	it.err = err
	it.r.Close()
	return err
}

// rawConversation accepts both export dialects seen in the wild: a flat
// "messages" array, and a mapping tree of nodes with parent/children links.
// Field aliases cover snake_case timestamp variants.
type rawConversation struct {
	ID        string             `json:"id"`
	ConvID    string             `json:"conversation_id"`
	Title     string             `json:"title"`
	Create    json.RawMessage    `json:"create_time"`
	Update    json.RawMessage    `json:"update_time"`
	CreatedAt json.RawMessage    `json:"created_at"`
	UpdatedAt json.RawMessage    `json:"updated_at"`
	Mapping   map[string]rawNode `json:"mapping"`
	Messages  []rawMessage       `json:"messages"`
}

func (rc *rawConversation) id() string {
	if rc.ID != "" {
		return rc.ID
	}
	return rc.ConvID
}

type rawNode struct {
	ID       string          `json:"id"`
	Parent   string          `json:"parent"`
	Children []string        `json:"children"`
	Message  json.RawMessage `json:"message"`
}

type rawMessage struct {
	ID     string `json:"id"`
	Author struct {
		Role string `json:"role"`
	} `json:"author"`
	Role      string          `json:"role"`
	Content   json.RawMessage `json:"content"`
	Text      string          `json:"text"`
	Create    json.RawMessage `json:"create_time"`
	Timestamp json.RawMessage `json:"timestamp"`
}

// assemble builds one immutable Conversation or classifies the record as
// malformed. This is the single recovery point in the pipeline: everything
// upstream fails fast, everything downstream is pure.
func (it *Conversations) assemble(raw *rawConversation, index int) (*Conversation, *MalformedEntryError) {
	id := raw.id()
	if id == "" {
		return nil, &MalformedEntryError{Index: index, Reason: "missing conversation id"}
	}

	created, err := parseTimestamp(firstRaw(raw.Create, raw.CreatedAt))
	if err != nil {
		return nil, &MalformedEntryError{Index: index, ConvID: id, Reason: "unparsable creation timestamp: " + err.Error()}
	}
	if created.IsZero() {
		return nil, &MalformedEntryError{Index: index, ConvID: id, Reason: "missing creation timestamp"}
	}

	updated, err := parseTimestamp(firstRaw(raw.Update, raw.UpdatedAt))
	if err != nil {
		return nil, &MalformedEntryError{Index: index, ConvID: id, Reason: "unparsable update timestamp: " + err.Error()}
	}

	conv := &Conversation{
		ID:        id,
		Title:     raw.Title,
		CreatedAt: created,
		UpdatedAt: updated,
	}

	if len(raw.Mapping) > 0 {
		if merr := linearizeMapping(conv, raw.Mapping, index); merr != nil {
			return nil, merr
		}
	} else {
		for _, msg := range raw.Messages {
			turn, err := buildTurn(conv, &msg, -1)
			if err != nil {
				return nil, &MalformedEntryError{Index: index, ConvID: id, Reason: err.Error()}
			}
			conv.Turns = append(conv.Turns, turn)
		}
	}

	return conv, nil
}

// linearizeMapping flattens a node tree into the conversation's ordered turn
// slice. Traversal is depth-first from the root nodes, children in listed
// order, roots in id order so repeated passes produce identical output. A
// visited set makes cyclic or self-referential links harmless: no live graph
// is ever constructed.
func linearizeMapping(conv *Conversation, mapping map[string]rawNode, index int) *MalformedEntryError {
	roots := make([]string, 0, 1)
	for nodeID, node := range mapping {
		if node.Parent == "" {
			roots = append(roots, nodeID)
			continue
		}
		if _, ok := mapping[node.Parent]; !ok {
			// Orphaned parent link: treat the node as a root.
			roots = append(roots, nodeID)
		}
	}
	sort.Strings(roots)

	visited := make(map[string]bool, len(mapping))

	var walk func(nodeID string, parentTurn int) *MalformedEntryError
	walk = func(nodeID string, parentTurn int) *MalformedEntryError {
		if visited[nodeID] {
			return nil
		}
		visited[nodeID] = true

		node, ok := mapping[nodeID]
		if !ok {
			return nil
		}

		current := parentTurn
		if len(node.Message) > 0 && string(node.Message) != "null" {
			var msg rawMessage
			if err := json.Unmarshal(node.Message, &msg); err != nil {
				return &MalformedEntryError{Index: index, ConvID: conv.ID, Reason: "undecodable message node " + nodeID}
			}
			turn, err := buildTurn(conv, &msg, parentTurn)
			if err != nil {
				return &MalformedEntryError{Index: index, ConvID: conv.ID, Reason: err.Error()}
			}
			conv.Turns = append(conv.Turns, turn)
			current = len(conv.Turns) - 1
		}

		for _, child := range node.Children {
			if merr := walk(child, current); merr != nil {
				return merr
			}
		}
		return nil
	}

	for _, root := range roots {
		if merr := walk(root, -1); merr != nil {
			return merr
		}
	}
	return nil
}

// buildTurn normalizes one raw message: missing role becomes "unknown",
// missing content becomes the empty string, a missing timestamp falls back
// to the conversation's creation time. An unparsable timestamp poisons the
// whole conversation.
func buildTurn(conv *Conversation, msg *rawMessage, parent int) (Turn, error) {
	ts, err := parseTimestamp(firstRaw(msg.Create, msg.Timestamp))
	if err != nil {
		return Turn{}, fmt.Errorf("unparsable turn timestamp: %w", err)
	}
	if ts.IsZero() {
		ts = conv.CreatedAt
	}

	role := msg.Role
	if role == "" {
		role = msg.Author.Role
	}
	if role == "" {
		role = RoleUnknown
	}

	id := msg.ID
	if id == "" {
		id = synthesizeTurnID(conv.ID, len(conv.Turns))
	}

	return Turn{
		ID:        id,
		Role:      role,
		Content:   extractContent(msg),
		Timestamp: ts,
		Parent:    parent,
	}, nil
}

// synthesizeTurnID derives a stable id for turns the export left anonymous.
// UUIDv5 over conversation id + ordinal keeps it deterministic across runs.
func synthesizeTurnID(convID string, ordinal int) string {
	return uuid.NewSHA1(uuid.NameSpaceOID, []byte(convID+"#"+strconv.Itoa(ordinal))).String()
}

// extractContent pulls text from the shapes message content takes in real
// exports: a plain string, a {"parts": [...]} object, or a list of typed
// blocks carrying "text" fields.
func extractContent(msg *rawMessage) string {
	if msg.Text != "" {
		return msg.Text
	}
	if len(msg.Content) == 0 {
		return ""
	}

	var s string
	if err := json.Unmarshal(msg.Content, &s); err == nil {
		return s
	}

	var parts struct {
		Parts []json.RawMessage `json:"parts"`
	}
	if err := json.Unmarshal(msg.Content, &parts); err == nil && len(parts.Parts) > 0 {
		var sb strings.Builder
		for _, part := range parts.Parts {
			var text string
			if err := json.Unmarshal(part, &text); err != nil {
				continue // non-text part (image pointer etc.)
			}
			if text == "" {
				continue
			}
			if sb.Len() > 0 {
				sb.WriteString("\n")
			}
			sb.WriteString(text)
		}
		return sb.String()
	}

	var blocks []map[string]any
	if err := json.Unmarshal(msg.Content, &blocks); err != nil {
		return ""
	}
	var sb strings.Builder
	for _, block := range blocks {
		text, ok := block["text"].(string)
		if !ok || text == "" {
			continue
		}
		if sb.Len() > 0 {
			sb.WriteString("\n")
		}
		sb.WriteString(text)
	}
	return sb.String()
}

func firstRaw(values ...json.RawMessage) json.RawMessage {
	for _, v := range values {
		if len(v) > 0 && string(v) != "null" {
			return v
		}
	}
	return nil
}

// timestampLayouts are tried in order for string timestamps.
var timestampLayouts = []string{
	time.RFC3339Nano,
	time.RFC3339,
	"2006-01-02T15:04:05",
	"2006-01-02 15:04:05",
	"2006-01-02",
}

// parseTimestamp normalizes a raw timestamp to UTC. Exports carry either
// epoch seconds (int or float) or a textual layout. A nil/absent value
// parses to the zero time with no error; garbage is an error.
func parseTimestamp(raw json.RawMessage) (time.Time, error) {
	if len(raw) == 0 {
		return time.Time{}, nil
	}

	var epoch float64
	if err := json.Unmarshal(raw, &epoch); err == nil {
		if epoch == 0 {
			return time.Time{}, nil
		}
		sec := int64(epoch)
		nsec := int64((epoch - float64(sec)) * float64(time.Second))
		return time.Unix(sec, nsec).UTC(), nil
	}

	var s string
	if err := json.Unmarshal(raw, &s); err != nil {
		return time.Time{}, fmt.Errorf("timestamp is neither number nor string: %s", string(raw))
	}
	if s == "" {
		return time.Time{}, nil
	}
	for _, layout := range timestampLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return t.UTC(), nil
		}
	}
	return time.Time{}, fmt.Errorf("unrecognized timestamp %q", s)
}
