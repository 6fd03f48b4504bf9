package service

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/hiredeck/hiredeck-backend/internal/model"
	"github.com/hiredeck/hiredeck-backend/internal/sessiontimer"
	"github.com/jackc/pgx/v5"
	"github.com/rs/zerolog"
)

// ─── Fakes ──────────────────────────────────────────────────────────

type fakeInvitationStore struct {
	mu  sync.Mutex
	inv *model.Invitation
}

func (f *fakeInvitationStore) GetByLink(_ context.Context, link uuid.UUID) (*model.Invitation, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.inv == nil || f.inv.LinkToken != link {
		return nil, pgx.ErrNoRows
	}
	cp := *f.inv
	return &cp, nil
}

func (f *fakeInvitationStore) Complete(_ context.Context, id int64) (bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.inv == nil || f.inv.ID != id {
		return false, pgx.ErrNoRows
	}
	if f.inv.Completed {
		return false, nil
	}
	f.inv.Completed = true
	return true, nil
}

type fakeAnswerStore struct {
	mu      sync.Mutex
	nextID  int64
	answers map[int64]*model.Answer // keyed by answer id
	scores  map[int64]int
}

func newFakeAnswerStore() *fakeAnswerStore {
	return &fakeAnswerStore{answers: make(map[int64]*model.Answer), scores: make(map[int64]int)}
}

func (f *fakeAnswerStore) Upsert(_ context.Context, a *model.Answer) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, existing := range f.answers {
		if existing.InvitationID == a.InvitationID && existing.QuestionID == a.QuestionID {
			existing.Response = a.Response
			existing.Switches = a.Switches
			a.ID = existing.ID
			return nil
		}
	}
	f.nextID++
	a.ID = f.nextID
	cp := *a
	f.answers[a.ID] = &cp
	return nil
}

func (f *fakeAnswerStore) GetByQuestion(_ context.Context, invitationID, questionID int64) (*model.Answer, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, a := range f.answers {
		if a.InvitationID == invitationID && a.QuestionID == questionID {
			cp := *a
			return &cp, nil
		}
	}
	return nil, pgx.ErrNoRows
}

func (f *fakeAnswerStore) ListByInvitation(_ context.Context, invitationID int64) ([]model.Answer, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []model.Answer
	for _, a := range f.answers {
		if a.InvitationID == invitationID {
			out = append(out, *a)
		}
	}
	return out, nil
}

func (f *fakeAnswerStore) UpdateScore(_ context.Context, answerID int64, score int) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.scores[answerID] = score
	return nil
}

type fakeTemplateStore struct {
	tmpl      *model.TestTemplate
	questions []model.Question
}

func (f *fakeTemplateStore) GetTemplate(_ context.Context, id int64) (*model.TestTemplate, error) {
	if f.tmpl == nil || f.tmpl.ID != id {
		return nil, pgx.ErrNoRows
	}
	return f.tmpl, nil
}

func (f *fakeTemplateStore) ListQuestions(_ context.Context, _ int64) ([]model.Question, error) {
	return f.questions, nil
}

type fakeCandidateStore struct{ candidate *model.Candidate }

func (f *fakeCandidateStore) GetByID(_ context.Context, _ int64) (*model.Candidate, error) {
	return f.candidate, nil
}

type countingGrader struct {
	mu    sync.Mutex
	calls int
}

func (g *countingGrader) Grade(_ context.Context, q *model.Question, response string) int {
	g.mu.Lock()
	g.calls++
	g.mu.Unlock()
	if response == q.CorrectAnswer {
		return 10
	}
	return 0
}

func (g *countingGrader) callCount() int {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.calls
}

// ─── Fixture ────────────────────────────────────────────────────────

type fixture struct {
	svc     *SessionService
	invs    *fakeInvitationStore
	answers *fakeAnswerStore
	grader  *countingGrader
	link    uuid.UUID
	now     *time.Time
}

func newFixture(timeLimitMinutes int) *fixture {
	link := uuid.New()
	invs := &fakeInvitationStore{inv: &model.Invitation{
		ID: 1, LinkToken: link, CandidateID: 7, TemplateID: 3,
		InterviewType: model.InterviewTypeGeneral,
	}}
	templates := &fakeTemplateStore{
		tmpl: &model.TestTemplate{ID: 3, Name: "Backend Screen", TimeLimitMinutes: timeLimitMinutes},
		questions: []model.Question{
			{ID: 11, Text: "Capital of France?", QuestionType: model.QuestionTypeFreeText, CorrectAnswer: "Paris"},
			{ID: 12, Text: "Pick all primes", QuestionType: model.QuestionTypeMultipleChoice, CorrectAnswer: "[1,3]"},
		},
	}
	answers := newFakeAnswerStore()
	grader := &countingGrader{}

	now := time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC)
	nowPtr := &now
	guard := sessiontimer.NewGuardWithClock(sessiontimer.NewMemoryStore(), func() time.Time { return *nowPtr })

	svc := NewSessionService(
		invs, answers, templates,
		&fakeCandidateStore{candidate: &model.Candidate{ID: 7, FullName: "Ada Lovelace"}},
		guard, grader, zerolog.Nop(),
	)
	return &fixture{svc: svc, invs: invs, answers: answers, grader: grader, link: link, now: nowPtr}
}

// ─── Tests ──────────────────────────────────────────────────────────

func TestOpenReturnsSessionView(t *testing.T) {
	f := newFixture(30)

	view, err := f.svc.Open(context.Background(), f.link, "client-a")
	if err != nil {
		t.Fatalf("Open() error = %v", err)
	}
	if view.CandidateName != "Ada Lovelace" || view.TotalQuestions != 2 {
		t.Errorf("Open() = %+v, want Ada Lovelace with 2 questions", view)
	}
	if view.CurrentQuestionID != 11 {
		t.Errorf("Open() current question = %d, want 11", view.CurrentQuestionID)
	}
	if view.RemainingSeconds == nil || *view.RemainingSeconds != (30*time.Minute).Seconds() {
		t.Errorf("Open() remaining = %v, want 1800s", view.RemainingSeconds)
	}
}

func TestOpenUnknownLink(t *testing.T) {
	f := newFixture(0)

	if _, err := f.svc.Open(context.Background(), uuid.New(), "client-a"); !errors.Is(err, ErrNotFound) {
		t.Errorf("Open() error = %v, want ErrNotFound", err)
	}
}

func TestOpenSkipsAnsweredQuestions(t *testing.T) {
	f := newFixture(0)
	if err := f.svc.SubmitAnswer(context.Background(), f.link, 11, "Paris", 0, "client-a"); err != nil {
		t.Fatalf("SubmitAnswer() error = %v", err)
	}

	view, err := f.svc.Open(context.Background(), f.link, "client-a")
	if err != nil {
		t.Fatalf("Open() error = %v", err)
	}
	if view.CurrentQuestionID != 12 {
		t.Errorf("Open() current question = %d, want 12", view.CurrentQuestionID)
	}
	if view.AnsweredCount != 1 {
		t.Errorf("Open() answered = %d, want 1", view.AnsweredCount)
	}
}

func TestGetQuestionNavigation(t *testing.T) {
	f := newFixture(0)

	view, err := f.svc.GetQuestion(context.Background(), f.link, 12, "client-a")
	if err != nil {
		t.Fatalf("GetQuestion() error = %v", err)
	}
	if view.Position != 2 || !view.IsLast || view.IsFirst {
		t.Errorf("GetQuestion() navigation = %+v, want position 2, last", view)
	}
}

func TestGetQuestionOutsideTemplate(t *testing.T) {
	f := newFixture(0)

	if _, err := f.svc.GetQuestion(context.Background(), f.link, 999, "client-a"); !errors.Is(err, ErrNotFound) {
		t.Errorf("GetQuestion() error = %v, want ErrNotFound", err)
	}
}

func TestSubmitAnswerOverwrites(t *testing.T) {
	f := newFixture(0)
	ctx := context.Background()

	if err := f.svc.SubmitAnswer(ctx, f.link, 11, "London", 0, "client-a"); err != nil {
		t.Fatalf("SubmitAnswer() error = %v", err)
	}
	if err := f.svc.SubmitAnswer(ctx, f.link, 11, "Paris", 2, "client-a"); err != nil {
		t.Fatalf("SubmitAnswer() error = %v", err)
	}

	stored, err := f.answers.GetByQuestion(ctx, 1, 11)
	if err != nil {
		t.Fatalf("GetByQuestion() error = %v", err)
	}
	if stored.Response != "Paris" || stored.Switches != 2 {
		t.Errorf("stored answer = %+v, want revised response", stored)
	}

	all, _ := f.answers.ListByInvitation(ctx, 1)
	if len(all) != 1 {
		t.Errorf("answer rows = %d, want 1 (upsert, not append)", len(all))
	}
}

func TestSubmitAnswerRejectsMalformedMultipleChoice(t *testing.T) {
	f := newFixture(0)

	err := f.svc.SubmitAnswer(context.Background(), f.link, 12, "not an array", 0, "client-a")
	if !errors.Is(err, ErrInvalidFormat) {
		t.Errorf("SubmitAnswer() error = %v, want ErrInvalidFormat", err)
	}
}

func TestSubmitAnswerForeignQuestion(t *testing.T) {
	f := newFixture(0)

	err := f.svc.SubmitAnswer(context.Background(), f.link, 999, "anything", 0, "client-a")
	if !errors.Is(err, ErrNotFound) {
		t.Errorf("SubmitAnswer() error = %v, want ErrNotFound", err)
	}
}

func TestFinishGradesOnceAndIsIdempotent(t *testing.T) {
	f := newFixture(0)
	ctx := context.Background()

	f.svc.SubmitAnswer(ctx, f.link, 11, "Paris", 0, "client-a")
	f.svc.SubmitAnswer(ctx, f.link, 12, "[3,1]", 0, "client-a")

	result, err := f.svc.Finish(ctx, f.link)
	if err != nil {
		t.Fatalf("Finish() error = %v", err)
	}
	if !result.Completed || result.GradedAnswers != 2 {
		t.Errorf("Finish() = %+v, want completed with 2 graded", result)
	}
	if f.grader.callCount() != 2 {
		t.Errorf("grader calls = %d, want 2", f.grader.callCount())
	}

	// Second finish is a no-op ack, no re-grading.
	result, err = f.svc.Finish(ctx, f.link)
	if err != nil {
		t.Fatalf("second Finish() error = %v", err)
	}
	if !result.Completed {
		t.Error("second Finish() not reported as completed")
	}
	if f.grader.callCount() != 2 {
		t.Errorf("grader calls after second finish = %d, want 2", f.grader.callCount())
	}
}

func TestAccessAfterFinishRejected(t *testing.T) {
	f := newFixture(0)
	ctx := context.Background()

	if _, err := f.svc.Finish(ctx, f.link); err != nil {
		t.Fatalf("Finish() error = %v", err)
	}

	if _, err := f.svc.Open(ctx, f.link, "client-a"); !errors.Is(err, ErrAlreadyCompleted) {
		t.Errorf("Open() error = %v, want ErrAlreadyCompleted", err)
	}
	if err := f.svc.SubmitAnswer(ctx, f.link, 11, "Paris", 0, "client-a"); !errors.Is(err, ErrAlreadyCompleted) {
		t.Errorf("SubmitAnswer() error = %v, want ErrAlreadyCompleted", err)
	}
}

func TestExpiryForcesCompletionAndGrades(t *testing.T) {
	f := newFixture(1)
	ctx := context.Background()

	if _, err := f.svc.Open(ctx, f.link, "client-a"); err != nil {
		t.Fatalf("Open() error = %v", err)
	}
	if err := f.svc.SubmitAnswer(ctx, f.link, 11, "Paris", 0, "client-a"); err != nil {
		t.Fatalf("SubmitAnswer() error = %v", err)
	}

	// 61 seconds after first access with a 1 minute limit.
	*f.now = f.now.Add(61 * time.Second)

	if _, err := f.svc.Open(ctx, f.link, "client-a"); !errors.Is(err, ErrExpired) {
		t.Fatalf("Open() error = %v, want ErrExpired", err)
	}
	if !f.invs.inv.Completed {
		t.Error("invitation not sealed after expiry")
	}
	if f.grader.callCount() != 1 {
		t.Errorf("grader calls = %d, want 1 (stored answer graded on expiry)", f.grader.callCount())
	}

	// Subsequent access hits the sealed state, not the timer.
	if _, err := f.svc.Open(ctx, f.link, "client-a"); !errors.Is(err, ErrAlreadyCompleted) {
		t.Errorf("Open() after expiry error = %v, want ErrAlreadyCompleted", err)
	}
}

// ctxAwareAnswerStore refuses writes once the given context is dead, the
// way a real pgx call would.
type ctxAwareAnswerStore struct{ *fakeAnswerStore }

func (s *ctxAwareAnswerStore) UpdateScore(ctx context.Context, answerID int64, score int) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	return s.fakeAnswerStore.UpdateScore(ctx, answerID, score)
}

// disconnectingGrader cancels the request context on its first call,
// simulating the client going away while the judge is still polling.
type disconnectingGrader struct {
	cancel context.CancelFunc
	calls  int
}

func (g *disconnectingGrader) Grade(_ context.Context, _ *model.Question, _ string) int {
	g.calls++
	g.cancel()
	return 10
}

func TestFinishGradesAllAnswersDespiteDisconnect(t *testing.T) {
	link := uuid.New()
	invs := &fakeInvitationStore{inv: &model.Invitation{
		ID: 1, LinkToken: link, CandidateID: 7, TemplateID: 3,
	}}
	templates := &fakeTemplateStore{
		tmpl: &model.TestTemplate{ID: 3, Name: "Backend Screen"},
		questions: []model.Question{
			{ID: 11, QuestionType: model.QuestionTypeFreeText, CorrectAnswer: "Paris"},
			{ID: 12, QuestionType: model.QuestionTypeFreeText, CorrectAnswer: "Berlin"},
		},
	}
	answers := &ctxAwareAnswerStore{fakeAnswerStore: newFakeAnswerStore()}

	reqCtx, cancel := context.WithCancel(context.Background())
	defer cancel()
	grader := &disconnectingGrader{cancel: cancel}

	guard := sessiontimer.NewGuard(sessiontimer.NewMemoryStore())
	svc := NewSessionService(
		invs, answers, templates,
		&fakeCandidateStore{candidate: &model.Candidate{ID: 7, FullName: "Ada Lovelace"}},
		guard, grader, zerolog.Nop(),
	)

	svc.SubmitAnswer(reqCtx, link, 11, "Paris", 0, "client-a")
	svc.SubmitAnswer(reqCtx, link, 12, "Berlin", 0, "client-a")

	result, err := svc.Finish(reqCtx, link)
	if err != nil {
		t.Fatalf("Finish() error = %v", err)
	}
	if result.GradedAnswers != 2 {
		t.Errorf("Finish() graded = %d, want 2", result.GradedAnswers)
	}

	// The sealed invitation must not carry unscored answers: both rows got
	// a score even though the request context died during the first grade.
	stored, _ := answers.ListByInvitation(context.Background(), 1)
	if len(stored) != 2 {
		t.Fatalf("answer rows = %d, want 2", len(stored))
	}
	for _, a := range stored {
		if _, ok := answers.scores[a.ID]; !ok {
			t.Errorf("answer %d (question %d) left unscored after finish", a.ID, a.QuestionID)
		}
	}
}

func TestScoresPersistedOnFinish(t *testing.T) {
	f := newFixture(0)
	ctx := context.Background()

	f.svc.SubmitAnswer(ctx, f.link, 11, "Paris", 0, "client-a")
	f.svc.SubmitAnswer(ctx, f.link, 12, "[1,2]", 0, "client-a")

	if _, err := f.svc.Finish(ctx, f.link); err != nil {
		t.Fatalf("Finish() error = %v", err)
	}

	correct, _ := f.answers.GetByQuestion(ctx, 1, 11)
	wrong, _ := f.answers.GetByQuestion(ctx, 1, 12)
	if f.answers.scores[correct.ID] != 10 {
		t.Errorf("correct answer score = %d, want 10", f.answers.scores[correct.ID])
	}
	if f.answers.scores[wrong.ID] != 0 {
		t.Errorf("wrong answer score = %d, want 0", f.answers.scores[wrong.ID])
	}
}
