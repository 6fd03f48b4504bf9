package realtime

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"github.com/hiredeck/hiredeck-backend/internal/judge"
	"github.com/hiredeck/hiredeck-backend/internal/model"
	"github.com/rs/zerolog"
)

// ErrRoomClosed is returned when joining a room that already tore down.
var ErrRoomClosed = errors.New("room is closed")

// runCodeTimeout bounds an ad-hoc judge run triggered from the room.
const runCodeTimeout = 30 * time.Second

// sendBuffer is the per-member outbound queue size. A member that cannot
// keep up has events dropped rather than stalling the room.
const sendBuffer = 64

// CodeRunner executes candidate code on the judge. *judge.Client
// satisfies it.
type CodeRunner interface {
	Submit(ctx context.Context, source, stdin string) (*judge.Result, error)
}

// Member is one connection in a room. Events queue on Events; the
// websocket handler drains them onto the wire.
type Member struct {
	Role   Role
	Events chan interface{}
}

// NewMember creates a member with a buffered event queue.
func NewMember(role Role) *Member {
	return &Member{Role: role, Events: make(chan interface{}, sendBuffer)}
}

// Snapshot is the immutable data a room serves in initial_data events.
// stdin is looked up per question for run_code relays.
type Snapshot struct {
	Questions         []model.QuestionStub
	CurrentQuestionID int64
	CandidateName     string
	TemplateName      string
	StdinByQuestion   map[int64]string
}

type inbound struct {
	member *Member
	data   []byte
}

// Room is the broadcast domain of one technical interview. All membership
// changes and fan-outs flow through a single goroutine consuming the
// room's event channels, so broadcasts never interleave.
type Room struct {
	token    string
	snapshot *Snapshot
	runner   CodeRunner
	log      zerolog.Logger

	join    chan *Member
	leave   chan *Member
	inbound chan inbound
	results chan CodeResultEvent
	done    chan struct{}

	onEmpty func()
}

func newRoom(token string, snapshot *Snapshot, runner CodeRunner, log zerolog.Logger, onEmpty func()) *Room {
	return &Room{
		token:    token,
		snapshot: snapshot,
		runner:   runner,
		log:      log.With().Str("component", "interview_room").Str("room", token).Logger(),
		join:     make(chan *Member),
		leave:    make(chan *Member),
		inbound:  make(chan inbound),
		results:  make(chan CodeResultEvent),
		done:     make(chan struct{}),
		onEmpty:  onEmpty,
	}
}

// Join adds a member; the member receives initial_data first.
func (r *Room) Join(m *Member) error {
	select {
	case r.join <- m:
		return nil
	case <-r.done:
		return ErrRoomClosed
	}
}

// Leave removes a member. Safe to call after the room closed.
func (r *Room) Leave(m *Member) {
	select {
	case r.leave <- m:
	case <-r.done:
	}
}

// Handle feeds one raw inbound frame into the room's serialized queue.
func (r *Room) Handle(m *Member, data []byte) {
	select {
	case r.inbound <- inbound{member: m, data: data}:
	case <-r.done:
	}
}

// Done is closed when the last member leaves and the room tears down.
func (r *Room) Done() <-chan struct{} {
	return r.done
}

func (r *Room) run() {
	members := make(map[*Member]struct{})

	for {
		select {
		case m := <-r.join:
			members[m] = struct{}{}
			r.deliver(m, InitialDataEvent{
				Type:              TypeInitialData,
				Questions:         r.snapshot.Questions,
				CurrentQuestionID: r.snapshot.CurrentQuestionID,
				CandidateName:     r.snapshot.CandidateName,
				TemplateName:      r.snapshot.TemplateName,
				Role:              m.Role,
			})
			r.log.Debug().Str("role", string(m.Role)).Int("members", len(members)).Msg("Member joined")

		case m := <-r.leave:
			if _, ok := members[m]; !ok {
				continue
			}
			delete(members, m)
			close(m.Events)
			r.log.Debug().Str("role", string(m.Role)).Int("members", len(members)).Msg("Member left")
			if len(members) == 0 {
				// Deregister before closing done so a Done observer never
				// sees the room still in the registry.
				r.onEmpty()
				close(r.done)
				return
			}

		case in := <-r.inbound:
			r.handleMessage(members, in)

		case res := <-r.results:
			r.broadcast(members, res)
		}
	}
}

func (r *Room) handleMessage(members map[*Member]struct{}, in inbound) {
	var msg InboundMessage
	if err := json.Unmarshal(in.data, &msg); err != nil {
		r.deliver(in.member, ErrorEvent{Type: TypeError, Error: "malformed message"})
		return
	}

	switch msg.Type {
	case TypeCodeUpdate:
		if in.member.Role != RoleCandidate {
			r.deliver(in.member, ErrorEvent{Type: TypeError, Error: "only the candidate may edit code"})
			return
		}
		r.broadcast(members, CodeUpdateEvent{
			Type:       TypeCodeUpdate,
			Code:       msg.Code,
			QuestionID: msg.QuestionID,
			Sender:     in.member.Role,
		})

	case TypeChatMessage:
		r.broadcast(members, ChatMessageEvent{
			Type:    TypeChatMessage,
			Message: msg.Message,
			Sender:  in.member.Role,
		})

	case TypeRunCode:
		if in.member.Role != RoleCandidate {
			r.deliver(in.member, ErrorEvent{Type: TypeError, Error: "only the candidate may run code"})
			return
		}
		r.runCode(msg)

	default:
		r.deliver(in.member, ErrorEvent{Type: TypeError, Error: "unknown message type: " + string(msg.Type)})
	}
}

// runCode submits the buffer to the judge off the room goroutine. The run
// finishes even if the requester disconnects, but the result is dropped
// when the room is gone by then.
func (r *Room) runCode(msg InboundMessage) {
	stdin := r.snapshot.StdinByQuestion[msg.QuestionID]

	go func() {
		ctx, cancel := context.WithTimeout(context.Background(), runCodeTimeout)
		defer cancel()

		event := CodeResultEvent{Type: TypeCodeResult}
		if r.runner == nil {
			event.Status = "error"
			event.Stderr = "code execution is not available"
		} else if result, err := r.runner.Submit(ctx, msg.Code, stdin); err != nil {
			r.log.Warn().Err(err).Msg("Ad-hoc judge run failed")
			event.Status = "error"
			event.Stderr = "execution failed"
		} else {
			event.Status = "finished"
			event.Stdout = result.Stdout
			event.Stderr = result.Stderr
			event.Time = result.Time
		}

		select {
		case r.results <- event:
		case <-r.done:
			// Room is gone, nobody left to tell.
		}
	}()
}

func (r *Room) broadcast(members map[*Member]struct{}, event interface{}) {
	for m := range members {
		r.deliver(m, event)
	}
}

// deliver enqueues without blocking; a full queue drops the event so one
// slow reader cannot stall the whole room.
func (r *Room) deliver(m *Member, event interface{}) {
	select {
	case m.Events <- event:
	default:
		r.log.Warn().Str("role", string(m.Role)).Msg("Member event queue full, dropping event")
	}
}
