package intake

import (
	"context"
	"errors"
	"fmt"
	"reflect"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/rothspit/diabro-web/internal/model"
)

type fakeInserter struct {
	mu    sync.Mutex
	calls []*model.Applicant
	err   error

	// observed at call time; the context is cancelled once the call returns
	ctxErr      error
	hasDeadline bool
}

func (f *fakeInserter) InsertApplicant(ctx context.Context, a *model.Applicant) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls = append(f.calls, a)
	f.ctxErr = ctx.Err()
	_, f.hasDeadline = ctx.Deadline()
	return f.err
}

func (f *fakeInserter) count() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.calls)
}

type transition struct {
	phase Phase
	index int
}

type recordingObserver struct {
	mu          sync.Mutex
	entries     []Entry
	transitions []transition
}

func (o *recordingObserver) EntryAppended(_ string, e Entry) {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.entries = append(o.entries, e)
}

func (o *recordingObserver) PhaseChanged(_ string, p Phase, i int) {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.transitions = append(o.transitions, transition{p, i})
}

func sequentialIDs() func() string {
	var n int64
	return func() string {
		return fmt.Sprintf("id-%d", atomic.AddInt64(&n, 1))
	}
}

func newTestController(t *testing.T, ins Inserter, opts ...Option) *Controller {
	t.Helper()
	base := []Option{
		WithSessionID("session-1"),
		WithPromptDelay(0),
		WithSubmitDelay(0),
		WithIDGenerator(sequentialIDs()),
		WithClock(func() time.Time { return time.Date(2026, 4, 1, 9, 0, 0, 0, time.UTC) }),
	}
	c, err := New(DefaultSteps(), ins, append(base, opts...)...)
	if err != nil {
		t.Fatalf("New failed: %v", err)
	}
	return c
}

var scriptedInputs = []string{"Kenji", "28", "男性", "あり", "西船橋", "今すぐ", "090-1234-5678"}

func answerAll(t *testing.T, c *Controller, inputs []string) error {
	t.Helper()
	ctx := context.Background()
	for i, in := range inputs {
		err := c.SubmitAnswer(ctx, in)
		if i < len(inputs)-1 && err != nil {
			t.Fatalf("answer %d (%q) rejected: %v", i, in, err)
		}
		if i == len(inputs)-1 {
			return err
		}
	}
	return nil
}

func TestController_FullRunTranscript(t *testing.T) {
	ins := &fakeInserter{}
	c := newTestController(t, ins)

	if err := c.Start(context.Background()); err != nil {
		t.Fatalf("Start failed: %v", err)
	}
	if err := answerAll(t, c, scriptedInputs); err != nil {
		t.Fatalf("final answer failed: %v", err)
	}

	type line struct {
		sender Sender
		text   string
	}
	want := []line{
		{SenderSystem, DefaultGreeting},
		{SenderSystem, "はじめまして！\nまず、お名前かニックネームを教えてください。"},
		{SenderUser, "Kenji"},
		{SenderSystem, "Kenjiさん、よろしくお願いします！\n年齢を教えてください。"},
		{SenderUser, "28歳"},
		{SenderSystem, "性別を教えてください。"},
		{SenderUser, "男性"},
		{SenderSystem, "普通自動車免許はお持ちですか？"},
		{SenderUser, "あり"},
		{SenderSystem, "希望の勤務・居住エリアを教えてください。"},
		{SenderUser, "西船橋"},
		{SenderSystem, "いつ頃から入居・お仕事を開始できますか？"},
		{SenderUser, "今すぐ"},
		{SenderSystem, "ありがとうございます！\n最後に、LINE IDか電話番号を教えてください。\n担当者から直接ご連絡します。"},
		{SenderUser, "090-1234-5678"},
		{SenderSystem, ThankYouMessage("Kenji", "090-1234-5678")},
	}

	st := c.Snapshot()
	if len(st.Transcript) != len(want) {
		t.Fatalf("expected %d transcript entries, got %d", len(want), len(st.Transcript))
	}
	seen := make(map[string]bool)
	for i, e := range st.Transcript {
		if e.Sender != want[i].sender || e.Text != want[i].text {
			t.Errorf("entry %d: expected (%s, %q), got (%s, %q)", i, want[i].sender, want[i].text, e.Sender, e.Text)
		}
		if seen[e.ID] {
			t.Errorf("entry %d: duplicate id %s", i, e.ID)
		}
		seen[e.ID] = true
	}

	if !st.Complete || st.Phase != PhaseDone {
		t.Errorf("expected completed conversation, got phase %s complete=%v", st.Phase, st.Complete)
	}
	if st.StepIndex != len(DefaultSteps()) {
		t.Errorf("expected step index %d, got %d", len(DefaultSteps()), st.StepIndex)
	}
	if st.Awaiting || st.InputOpen || len(st.ActiveChoices) != 0 {
		t.Errorf("expected no open input after completion, got %+v", st)
	}
}

func TestController_AnswersHoldRawValues(t *testing.T) {
	ins := &fakeInserter{}
	c := newTestController(t, ins)
	c.Start(context.Background())
	if err := answerAll(t, c, scriptedInputs); err != nil {
		t.Fatalf("final answer failed: %v", err)
	}

	st := c.Snapshot()
	for i, f := range Fields {
		if st.Answers[f] != scriptedInputs[i] {
			t.Errorf("answer %s: expected %q, got %q", f, scriptedInputs[i], st.Answers[f])
		}
	}
	if len(st.Answers) != len(Fields) {
		t.Errorf("expected %d answers, got %d", len(Fields), len(st.Answers))
	}
}

func TestController_SubmitsRecordOnce(t *testing.T) {
	ins := &fakeInserter{}
	c := newTestController(t, ins)
	c.Start(context.Background())
	answerAll(t, c, scriptedInputs)

	if ins.count() != 1 {
		t.Fatalf("expected 1 insert, got %d", ins.count())
	}
	rec := ins.calls[0]
	if rec.Age == nil || *rec.Age != 28 {
		t.Errorf("expected age 28, got %v", rec.Age)
	}
	if rec.SessionID != "session-1" {
		t.Errorf("expected session id on record, got %q", rec.SessionID)
	}
	if rec.Name != "Kenji" || rec.Contact != "090-1234-5678" || rec.HasLicense != "あり" {
		t.Errorf("unexpected record: %+v", rec)
	}

	if err := c.SubmitAnswer(context.Background(), "again"); !errors.Is(err, ErrNotAccepting) {
		t.Errorf("expected ErrNotAccepting after completion, got %v", err)
	}
	if ins.count() != 1 {
		t.Errorf("expected insert count to stay 1, got %d", ins.count())
	}
}

func TestController_PhaseSequence(t *testing.T) {
	ins := &fakeInserter{}
	obs := &recordingObserver{}
	c := newTestController(t, ins, WithObserver(obs))
	c.Start(context.Background())
	answerAll(t, c, scriptedInputs)

	want := []transition{{PhaseGreeting, 0}}
	for i := 0; i < len(DefaultSteps()); i++ {
		want = append(want, transition{PhaseStep, i})
	}
	want = append(want, transition{PhaseSubmitting, 6}, transition{PhaseDone, 7})

	if !reflect.DeepEqual(obs.transitions, want) {
		t.Errorf("expected transitions %v, got %v", want, obs.transitions)
	}
	if len(obs.entries) != len(c.Snapshot().Transcript) {
		t.Errorf("observer saw %d entries, transcript has %d", len(obs.entries), len(c.Snapshot().Transcript))
	}
}

func TestController_SubmissionFailure(t *testing.T) {
	ins := &fakeInserter{err: errors.New("connection refused")}
	obs := &recordingObserver{}
	c := newTestController(t, ins, WithObserver(obs))
	c.Start(context.Background())

	err := answerAll(t, c, scriptedInputs)
	if !errors.Is(err, ErrSubmissionFailed) {
		t.Fatalf("expected ErrSubmissionFailed, got %v", err)
	}

	st := c.Snapshot()
	if st.Phase != PhaseFailed {
		t.Errorf("expected failed phase, got %s", st.Phase)
	}
	if st.StepIndex != len(DefaultSteps())-1 {
		t.Errorf("expected step index to stay %d, got %d", len(DefaultSteps())-1, st.StepIndex)
	}
	if st.Complete {
		t.Error("expected incomplete conversation")
	}
	if st.InputOpen || len(st.ActiveChoices) != 0 {
		t.Errorf("expected input to stay closed, got %+v", st)
	}
	last := st.Transcript[len(st.Transcript)-1]
	if last.Sender != SenderSystem || last.Text != FailureMessage {
		t.Errorf("expected failure message last, got %+v", last)
	}

	if err := c.SubmitAnswer(context.Background(), "090-1234-5678"); !errors.Is(err, ErrNotAccepting) {
		t.Errorf("expected ErrNotAccepting in failed state, got %v", err)
	}
	if ins.count() != 1 {
		t.Errorf("expected exactly one insert, got %d", ins.count())
	}
	tail := obs.transitions[len(obs.transitions)-1]
	if tail != (transition{PhaseFailed, 6}) {
		t.Errorf("expected final transition failed/6, got %v", tail)
	}
}

func TestController_RejectsWithoutStateChange(t *testing.T) {
	tests := []struct {
		name    string
		answers []string
		input   string
		wantErr error
	}{
		{"empty name", nil, "", ErrEmptyAnswer},
		{"whitespace name", nil, "  \t ", ErrEmptyAnswer},
		{"gender not offered", []string{"Kenji", "28"}, "不明", ErrInvalidChoice},
		{"license label instead of value", []string{"Kenji", "28", "女性"}, "はい（AT限定も可）", ErrInvalidChoice},
		{"empty contact", []string{"Kenji", "28", "男性", "あり", "西船橋", "今すぐ"}, " ", ErrEmptyAnswer},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ins := &fakeInserter{}
			c := newTestController(t, ins)
			c.Start(context.Background())
			for _, a := range tt.answers {
				if err := c.SubmitAnswer(context.Background(), a); err != nil {
					t.Fatalf("setup answer %q rejected: %v", a, err)
				}
			}

			before := c.Snapshot()
			err := c.SubmitAnswer(context.Background(), tt.input)
			if !errors.Is(err, tt.wantErr) {
				t.Fatalf("expected %v, got %v", tt.wantErr, err)
			}
			after := c.Snapshot()
			if !reflect.DeepEqual(before, after) {
				t.Errorf("state changed on rejected input:\nbefore %+v\nafter  %+v", before, after)
			}
			if ins.count() != 0 {
				t.Errorf("expected no insert, got %d", ins.count())
			}
		})
	}
}

func TestController_TrimsFreeText(t *testing.T) {
	c := newTestController(t, &fakeInserter{})
	c.Start(context.Background())

	if err := c.SubmitAnswer(context.Background(), "  Kenji \n"); err != nil {
		t.Fatalf("answer rejected: %v", err)
	}
	st := c.Snapshot()
	if st.Answers[FieldName] != "Kenji" {
		t.Errorf("expected trimmed name, got %q", st.Answers[FieldName])
	}
}

func TestController_StartGuards(t *testing.T) {
	c := newTestController(t, &fakeInserter{})

	if err := c.SubmitAnswer(context.Background(), "Kenji"); !errors.Is(err, ErrNotAccepting) {
		t.Errorf("expected ErrNotAccepting before start, got %v", err)
	}
	if st := c.Snapshot(); st.Phase != PhaseIdle || len(st.Transcript) != 0 {
		t.Errorf("expected untouched idle state, got %+v", st)
	}

	if err := c.Start(context.Background()); err != nil {
		t.Fatalf("Start failed: %v", err)
	}
	if err := c.Start(context.Background()); !errors.Is(err, ErrAlreadyStarted) {
		t.Errorf("expected ErrAlreadyStarted, got %v", err)
	}

	st := c.Snapshot()
	if st.Phase != PhaseStep || st.StepIndex != 0 || !st.InputOpen {
		t.Errorf("expected open first step, got %+v", st)
	}
	if st.Placeholder == "" {
		t.Error("expected placeholder for free text step")
	}
	if len(st.Transcript) != 2 {
		t.Errorf("expected greeting and first prompt, got %d entries", len(st.Transcript))
	}
}

func TestController_ChoiceStepOffersChoices(t *testing.T) {
	c := newTestController(t, &fakeInserter{})
	c.Start(context.Background())
	c.SubmitAnswer(context.Background(), "Kenji")
	c.SubmitAnswer(context.Background(), "28")

	st := c.Snapshot()
	if st.InputOpen {
		t.Error("expected text input closed on choice step")
	}
	if len(st.ActiveChoices) != 3 || st.ActiveChoices[0].Value != "男性" {
		t.Errorf("unexpected choices: %+v", st.ActiveChoices)
	}
}

func TestController_GatesInputWhileAwaiting(t *testing.T) {
	var block atomic.Bool
	entered := make(chan struct{}, 1)
	release := make(chan struct{})
	sleeper := func(time.Duration) {
		if block.Load() {
			entered <- struct{}{}
			<-release
		}
	}

	c := newTestController(t, &fakeInserter{}, WithPromptDelay(time.Millisecond), WithSleeper(sleeper))
	c.Start(context.Background())

	block.Store(true)
	done := make(chan error, 1)
	go func() { done <- c.SubmitAnswer(context.Background(), "Kenji") }()
	<-entered

	st := c.Snapshot()
	if !st.Awaiting || st.InputOpen {
		t.Errorf("expected awaiting state with closed input, got %+v", st)
	}
	if st.StepIndex != 1 {
		t.Errorf("expected step index 1 while revealing, got %d", st.StepIndex)
	}
	if err := c.SubmitAnswer(context.Background(), "28"); !errors.Is(err, ErrAwaitingResponse) {
		t.Errorf("expected ErrAwaitingResponse, got %v", err)
	}

	block.Store(false)
	close(release)
	if err := <-done; err != nil {
		t.Fatalf("answer failed: %v", err)
	}

	st = c.Snapshot()
	if st.Awaiting || !st.InputOpen {
		t.Errorf("expected open input after reveal, got %+v", st)
	}
	if _, ok := st.Answers[FieldAge]; ok {
		t.Error("gated answer must not be recorded")
	}
}

func TestController_SubmitIgnoresCallerCancellation(t *testing.T) {
	ins := &fakeInserter{}
	c := newTestController(t, ins, WithSubmitTimeout(5*time.Second))
	c.Start(context.Background())
	for _, in := range scriptedInputs[:len(scriptedInputs)-1] {
		c.SubmitAnswer(context.Background(), in)
	}

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if err := c.SubmitAnswer(ctx, scriptedInputs[len(scriptedInputs)-1]); err != nil {
		t.Fatalf("expected submission to succeed, got %v", err)
	}

	if ins.ctxErr != nil {
		t.Errorf("insert context should not inherit cancellation: %v", ins.ctxErr)
	}
	if !ins.hasDeadline {
		t.Error("insert context should carry a deadline")
	}
}

func TestNew_Validation(t *testing.T) {
	if _, err := New(nil, &fakeInserter{}); err == nil {
		t.Error("expected error for empty steps")
	}
	if _, err := New(DefaultSteps(), nil); err == nil {
		t.Error("expected error for nil inserter")
	}
}
