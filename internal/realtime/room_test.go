package realtime

import (
	"context"
	"testing"
	"time"

	"github.com/hiredeck/hiredeck-backend/internal/judge"
	"github.com/rs/zerolog"
)

type stubRunner struct {
	result *judge.Result
	err    error
}

func (s *stubRunner) Submit(_ context.Context, _, _ string) (*judge.Result, error) {
	return s.result, s.err
}

func testSnapshot() *Snapshot {
	return &Snapshot{
		CandidateName:     "Ada Lovelace",
		TemplateName:      "Backend Screen",
		CurrentQuestionID: 11,
		StdinByQuestion:   map[int64]string{11: "6 7"},
	}
}

func waitEvent(t *testing.T, m *Member) interface{} {
	t.Helper()
	select {
	case ev, ok := <-m.Events:
		if !ok {
			t.Fatal("event channel closed")
		}
		return ev
	case <-time.After(2 * time.Second):
		t.Fatal("timed out waiting for event")
		return nil
	}
}

func joinMembers(t *testing.T, reg *Registry, token string) (*Member, *Member, *Room) {
	t.Helper()
	candidate := NewMember(RoleCandidate)
	room, err := reg.Join(token, testSnapshot(), candidate)
	if err != nil {
		t.Fatalf("Join(candidate) error = %v", err)
	}
	interviewer := NewMember(RoleInterviewer)
	if _, err := reg.Join(token, testSnapshot(), interviewer); err != nil {
		t.Fatalf("Join(interviewer) error = %v", err)
	}

	// Each member's first event is the initial_data snapshot.
	for _, m := range []*Member{candidate, interviewer} {
		init, ok := waitEvent(t, m).(InitialDataEvent)
		if !ok {
			t.Fatal("first event is not initial_data")
		}
		if init.Role != m.Role {
			t.Errorf("initial_data role = %s, want %s", init.Role, m.Role)
		}
		if init.CurrentQuestionID != 11 {
			t.Errorf("initial_data current question = %d, want 11", init.CurrentQuestionID)
		}
	}
	return candidate, interviewer, room
}

func TestRoomBroadcastsCandidateCodeUpdate(t *testing.T) {
	reg := NewRegistry(nil, zerolog.Nop())
	candidate, interviewer, room := joinMembers(t, reg, "room-1")

	room.Handle(candidate, []byte(`{"type":"code_update","code":"print(42)","question_id":11}`))

	for _, m := range []*Member{candidate, interviewer} {
		ev, ok := waitEvent(t, m).(CodeUpdateEvent)
		if !ok {
			t.Fatal("expected code_update event")
		}
		if ev.Code != "print(42)" || ev.Sender != RoleCandidate {
			t.Errorf("code_update = %+v, want candidate's code", ev)
		}
	}
}

func TestRoomRejectsInterviewerCodeUpdate(t *testing.T) {
	reg := NewRegistry(nil, zerolog.Nop())
	_, interviewer, room := joinMembers(t, reg, "room-1")

	room.Handle(interviewer, []byte(`{"type":"code_update","code":"sneaky"}`))

	ev, ok := waitEvent(t, interviewer).(ErrorEvent)
	if !ok {
		t.Fatal("expected in-band error event")
	}
	if ev.Type != TypeError || ev.Error == "" {
		t.Errorf("error event = %+v", ev)
	}
}

func TestRoomRelaysChatFromBothRoles(t *testing.T) {
	reg := NewRegistry(nil, zerolog.Nop())
	candidate, interviewer, room := joinMembers(t, reg, "room-1")

	room.Handle(interviewer, []byte(`{"type":"chat_message","message":"hello"}`))
	ev, ok := waitEvent(t, candidate).(ChatMessageEvent)
	if !ok || ev.Sender != RoleInterviewer || ev.Message != "hello" {
		t.Fatalf("chat event = %+v, want interviewer hello", ev)
	}

	room.Handle(candidate, []byte(`{"type":"chat_message","message":"hi"}`))
	// Skip the interviewer's copy of its own message first.
	waitEvent(t, interviewer)
	ev, ok = waitEvent(t, interviewer).(ChatMessageEvent)
	if !ok || ev.Sender != RoleCandidate || ev.Message != "hi" {
		t.Fatalf("chat event = %+v, want candidate hi", ev)
	}
}

func TestRoomRunCodeBroadcastsResult(t *testing.T) {
	runner := &stubRunner{result: &judge.Result{StatusID: 3, Stdout: "42\n", Time: "0.01"}}
	reg := NewRegistry(runner, zerolog.Nop())
	candidate, interviewer, room := joinMembers(t, reg, "room-1")

	room.Handle(candidate, []byte(`{"type":"run_code","code":"print(6*7)","question_id":11}`))

	for _, m := range []*Member{candidate, interviewer} {
		ev, ok := waitEvent(t, m).(CodeResultEvent)
		if !ok {
			t.Fatal("expected code_result event")
		}
		if ev.Status != "finished" || ev.Stdout != "42\n" {
			t.Errorf("code_result = %+v", ev)
		}
	}
}

func TestRoomRunCodeRefusedForInterviewer(t *testing.T) {
	reg := NewRegistry(&stubRunner{}, zerolog.Nop())
	_, interviewer, room := joinMembers(t, reg, "room-1")

	room.Handle(interviewer, []byte(`{"type":"run_code","code":"x"}`))

	if _, ok := waitEvent(t, interviewer).(ErrorEvent); !ok {
		t.Fatal("expected in-band error event")
	}
}

func TestRoomUnknownMessageType(t *testing.T) {
	reg := NewRegistry(nil, zerolog.Nop())
	candidate, _, room := joinMembers(t, reg, "room-1")

	room.Handle(candidate, []byte(`{"type":"teleport"}`))
	if _, ok := waitEvent(t, candidate).(ErrorEvent); !ok {
		t.Fatal("expected in-band error event")
	}

	room.Handle(candidate, []byte(`{not json`))
	if _, ok := waitEvent(t, candidate).(ErrorEvent); !ok {
		t.Fatal("expected in-band error for malformed frame")
	}
}

func TestRegistryTearsDownEmptyRoom(t *testing.T) {
	reg := NewRegistry(nil, zerolog.Nop())
	candidate := NewMember(RoleCandidate)
	room, err := reg.Join("room-1", testSnapshot(), candidate)
	if err != nil {
		t.Fatalf("Join() error = %v", err)
	}
	waitEvent(t, candidate)

	room.Leave(candidate)

	select {
	case <-room.Done():
	case <-time.After(2 * time.Second):
		t.Fatal("room did not tear down after last leave")
	}
	if reg.Len() != 0 {
		t.Errorf("registry rooms = %d, want 0", reg.Len())
	}

	// A fresh join after teardown gets a fresh room.
	again := NewMember(RoleCandidate)
	room2, err := reg.Join("room-1", testSnapshot(), again)
	if err != nil {
		t.Fatalf("rejoin error = %v", err)
	}
	if room2 == room {
		t.Error("rejoin returned the closed room")
	}
}
