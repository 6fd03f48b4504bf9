package realtime

import "github.com/hiredeck/hiredeck-backend/internal/model"

// ─── Messages (Client → Server) ─────────────────────────────────────

type MessageType string

const (
	TypeCodeUpdate  MessageType = "code_update"
	TypeChatMessage MessageType = "chat_message"
	TypeRunCode     MessageType = "run_code"
)

// InboundMessage is the union envelope of all client messages.
type InboundMessage struct {
	Type       MessageType `json:"type"`
	Code       string      `json:"code,omitempty"`
	QuestionID int64       `json:"question_id,omitempty"`
	Message    string      `json:"message,omitempty"`
}

// ─── Events (Server → Client) ───────────────────────────────────────

const (
	TypeInitialData MessageType = "initial_data"
	TypeCodeResult  MessageType = "code_result"
	TypeError       MessageType = "error"
)

// InitialDataEvent is the one-time snapshot sent to a member on join.
type InitialDataEvent struct {
	Type              MessageType          `json:"type"`
	Questions         []model.QuestionStub `json:"questions"`
	CurrentQuestionID int64                `json:"current_question_id"`
	CandidateName     string               `json:"candidate_name"`
	TemplateName      string               `json:"template_name"`
	Role              Role                 `json:"role"`
}

// CodeUpdateEvent relays a full replacement of the shared code buffer.
type CodeUpdateEvent struct {
	Type       MessageType `json:"type"`
	Code       string      `json:"code"`
	QuestionID int64       `json:"question_id"`
	Sender     Role        `json:"sender"`
}

// ChatMessageEvent relays a chat line tagged with the sender role.
type ChatMessageEvent struct {
	Type    MessageType `json:"type"`
	Message string      `json:"message"`
	Sender  Role        `json:"sender"`
}

// CodeResultEvent broadcasts a judge verdict for an ad-hoc run. Results
// are informational only and never persisted as answer scores.
type CodeResultEvent struct {
	Type   MessageType `json:"type"`
	Status string      `json:"status"`
	Stdout string      `json:"stdout"`
	Stderr string      `json:"stderr"`
	Time   string      `json:"time"`
}

// ErrorEvent reports an in-band protocol or authorization violation
// without closing the connection.
type ErrorEvent struct {
	Type  MessageType `json:"type"`
	Error string      `json:"error"`
}
