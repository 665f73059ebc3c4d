package transcription_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/rs/zerolog"

	"casescribe/internal/config"
	"casescribe/internal/domain/artifact"
	"casescribe/internal/domain/dispatch"
	"casescribe/internal/domain/notify"
	"casescribe/internal/domain/transcription"
)

type fakeArtifacts struct {
	artifacts map[string]*artifact.Artifact
	advances  []string
}

func newFakeArtifacts(arts ...*artifact.Artifact) *fakeArtifacts {
	f := &fakeArtifacts{artifacts: map[string]*artifact.Artifact{}}
	for _, a := range arts {
		f.artifacts[a.ID] = a
	}
	return f
}

func (f *fakeArtifacts) GetByObjectKey(ctx context.Context, objectKey string) (*artifact.Artifact, error) {
	for _, a := range f.artifacts {
		if a.ObjectKey == objectKey {
			copy := *a
			return &copy, nil
		}
	}
	return nil, nil
}

func (f *fakeArtifacts) Exists(ctx context.Context, id string) (bool, error) {
	_, ok := f.artifacts[id]
	return ok, nil
}

func (f *fakeArtifacts) AdvanceStatus(ctx context.Context, id string, from, to artifact.Status) (bool, error) {
	a, ok := f.artifacts[id]
	if !ok || a.Status != from {
		return false, nil
	}
	a.Status = to
	f.advances = append(f.advances, from.String()+">"+to.String())
	return true, nil
}

func (f *fakeArtifacts) MarkFailed(ctx context.Context, id string) (bool, error) {
	a, ok := f.artifacts[id]
	if !ok || a.Status.IsTerminal() {
		return false, nil
	}
	a.Status = artifact.StatusTranscriptionFailed
	return true, nil
}

type fakeJobs struct {
	jobs      map[string]*transcription.Job
	artifacts *fakeArtifacts
}

func newFakeJobs(artifacts *fakeArtifacts) *fakeJobs {
	return &fakeJobs{jobs: map[string]*transcription.Job{}, artifacts: artifacts}
}

func (f *fakeJobs) Create(ctx context.Context, job *transcription.Job) error {
	copy := *job
	f.jobs[job.ID] = &copy
	return nil
}

func (f *fakeJobs) FindActive(ctx context.Context, artifactID string) (*transcription.Job, error) {
	for _, j := range f.jobs {
		if j.ArtifactID == artifactID && !j.Status.IsTerminal() && !j.Abandoned {
			copy := *j
			return &copy, nil
		}
	}
	return nil, nil
}

func (f *fakeJobs) SetRunning(ctx context.Context, jobID string) error {
	if j, ok := f.jobs[jobID]; ok && j.Status == transcription.JobQueued {
		j.Status = transcription.JobRunning
	}
	return nil
}

func (f *fakeJobs) IncrementAttempts(ctx context.Context, jobID string) (int, error) {
	j, ok := f.jobs[jobID]
	if !ok {
		return 0, errors.New("job not found")
	}
	j.Attempts++
	return j.Attempts, nil
}

func (f *fakeJobs) IsAbandoned(ctx context.Context, jobID string) (bool, error) {
	j, ok := f.jobs[jobID]
	if !ok {
		return true, nil
	}
	return j.Abandoned, nil
}

func (f *fakeJobs) Complete(ctx context.Context, jobID, artifactID, transcript string) error {
	j, ok := f.jobs[jobID]
	if !ok || j.Abandoned {
		return nil
	}
	j.Status = transcription.JobCompleted
	j.TranscriptText = transcript
	if a, ok := f.artifacts.artifacts[artifactID]; ok && !a.Status.IsTerminal() {
		a.Status = artifact.StatusTranscriptionComplete
	}
	return nil
}

func (f *fakeJobs) Fail(ctx context.Context, jobID, artifactID string) error {
	j, ok := f.jobs[jobID]
	if !ok || j.Abandoned {
		return nil
	}
	j.Status = transcription.JobFailed
	if a, ok := f.artifacts.artifacts[artifactID]; ok && !a.Status.IsTerminal() {
		a.Status = artifact.StatusTranscriptionFailed
	}
	return nil
}

type fakeEngine struct {
	startErr   error
	started    []transcription.StartInput
	states     []transcription.JobState
	pollIdx    int
	onPoll     func(pollCount int)
	transcript string
	fetchErr   error
}

func (f *fakeEngine) Start(ctx context.Context, input transcription.StartInput) (string, error) {
	if f.startErr != nil {
		return "", f.startErr
	}
	f.started = append(f.started, input)
	return input.JobName, nil
}

func (f *fakeEngine) Poll(ctx context.Context, jobID string) (transcription.JobState, error) {
	if f.onPoll != nil {
		f.onPoll(f.pollIdx)
	}
	state := f.states[f.pollIdx]
	if f.pollIdx < len(f.states)-1 {
		f.pollIdx++
	}
	return state, nil
}

func (f *fakeEngine) FetchTranscript(ctx context.Context, transcriptURI string) (string, error) {
	if f.fetchErr != nil {
		return "", f.fetchErr
	}
	return f.transcript, nil
}

type fakeBroker struct {
	notifications []notify.Notification
}

func (f *fakeBroker) Publish(ctx context.Context, n notify.Notification) error {
	f.notifications = append(f.notifications, n)
	return nil
}

func (f *fakeBroker) Subscribe(ctx context.Context, artifactID string) (<-chan notify.Notification, func(), error) {
	ch := make(chan notify.Notification)
	return ch, func() { close(ch) }, nil
}

type fakeLocator struct{}

func (fakeLocator) MediaURI(objectKey string) string {
	return "s3://recordings/" + objectKey
}

func testConfig() *config.Config {
	return &config.Config{
		PollMaxAttempts:        5,
		PollInitialDelay:       time.Millisecond,
		PollMaxDelay:           time.Millisecond,
		TranscribeLanguageCode: "en-US",
	}
}

func testArtifact() *artifact.Artifact {
	return &artifact.Artifact{
		ID:        "aud_01TEST",
		OwnerID:   "user-1",
		CaseID:    "case-1",
		ObjectKey: "case-1/aud_01TEST/recording.mp3",
		Status:    artifact.StatusRegistered,
	}
}

func workItem() dispatch.WorkItem {
	return dispatch.WorkItem{
		ObjectKey: "case-1/aud_01TEST/recording.mp3",
		Filename:  "recording.mp3",
		Extension: "mp3",
		SessionID: "case-1",
	}
}

func TestService_Process_HappyPath(t *testing.T) {
	art := testArtifact()
	artifacts := newFakeArtifacts(art)
	jobs := newFakeJobs(artifacts)
	engine := &fakeEngine{
		states: []transcription.JobState{
			{Status: transcription.EngineInProgress},
			{Status: transcription.EngineCompleted, TranscriptURI: "https://example.com/out.json"},
		},
		transcript: "hello world",
	}
	broker := &fakeBroker{}

	svc := transcription.NewService(testConfig(), artifacts, jobs, engine, fakeLocator{}, broker, zerolog.Nop())
	if err := svc.Process(context.Background(), workItem()); err != nil {
		t.Fatalf("Unexpected error: %v", err)
	}

	if art.Status != artifact.StatusTranscriptionComplete {
		t.Errorf("artifact status = %v, want transcription_complete", art.Status)
	}

	if len(engine.started) != 1 {
		t.Fatalf("Expected 1 engine start, got %d", len(engine.started))
	}
	if engine.started[0].MediaURI != "s3://recordings/case-1/aud_01TEST/recording.mp3" {
		t.Errorf("unexpected media uri %q", engine.started[0].MediaURI)
	}
	if engine.started[0].MediaFormat != "mp3" {
		t.Errorf("unexpected media format %q", engine.started[0].MediaFormat)
	}

	if len(jobs.jobs) != 1 {
		t.Fatalf("Expected 1 job, got %d", len(jobs.jobs))
	}
	for _, j := range jobs.jobs {
		if j.Status != transcription.JobCompleted {
			t.Errorf("job status = %v, want completed", j.Status)
		}
		if j.TranscriptText != "hello world" {
			t.Errorf("job transcript = %q, want %q", j.TranscriptText, "hello world")
		}
	}

	if len(broker.notifications) != 1 {
		t.Fatalf("Expected 1 notification, got %d", len(broker.notifications))
	}
	if broker.notifications[0].Message != notify.EventTranscriptionComplete {
		t.Errorf("notification = %v, want transcription_complete", broker.notifications[0].Message)
	}
	if broker.notifications[0].ArtifactID != art.ID {
		t.Errorf("notification artifact = %q, want %q", broker.notifications[0].ArtifactID, art.ID)
	}

	// Every intermediate state was passed through in order.
	want := []string{
		"registered>uploaded",
		"uploaded>transcription_requested",
		"transcription_requested>transcription_in_progress",
	}
	if len(artifacts.advances) != len(want) {
		t.Fatalf("advances = %v, want %v", artifacts.advances, want)
	}
	for i := range want {
		if artifacts.advances[i] != want[i] {
			t.Errorf("advances[%d] = %q, want %q", i, artifacts.advances[i], want[i])
		}
	}
}

func TestService_Process_EngineRejectsJob(t *testing.T) {
	art := testArtifact()
	artifacts := newFakeArtifacts(art)
	jobs := newFakeJobs(artifacts)
	engine := &fakeEngine{startErr: errors.New("unsupported media")}
	broker := &fakeBroker{}

	svc := transcription.NewService(testConfig(), artifacts, jobs, engine, fakeLocator{}, broker, zerolog.Nop())
	if err := svc.Process(context.Background(), workItem()); err != nil {
		t.Fatalf("Unexpected error: %v", err)
	}

	if art.Status != artifact.StatusTranscriptionFailed {
		t.Errorf("artifact status = %v, want transcription_failed", art.Status)
	}
	// The rejection happened before any job linkage; in_progress was never entered.
	if len(jobs.jobs) != 0 {
		t.Errorf("Expected no job rows, got %d", len(jobs.jobs))
	}
	for _, a := range artifacts.advances {
		if a == "transcription_requested>transcription_in_progress" {
			t.Errorf("artifact must not enter in_progress on engine rejection")
		}
	}
	if len(broker.notifications) != 1 || broker.notifications[0].Message != notify.EventTranscriptionFailed {
		t.Errorf("Expected one failed notification, got %+v", broker.notifications)
	}
}

func TestService_Process_DeleteMidFlight(t *testing.T) {
	art := testArtifact()
	artifacts := newFakeArtifacts(art)
	jobs := newFakeJobs(artifacts)
	broker := &fakeBroker{}
	engine := &fakeEngine{
		states: []transcription.JobState{
			{Status: transcription.EngineInProgress},
			{Status: transcription.EngineCompleted, TranscriptURI: "https://example.com/out.json"},
		},
		transcript: "hello world",
	}
	// Simulate a concurrent delete after the first poll: the row disappears
	// and the job is flagged abandoned.
	engine.onPoll = func(pollCount int) {
		if pollCount == 0 {
			delete(artifacts.artifacts, art.ID)
			for _, j := range jobs.jobs {
				j.Abandoned = true
			}
		}
	}

	svc := transcription.NewService(testConfig(), artifacts, jobs, engine, fakeLocator{}, broker, zerolog.Nop())
	if err := svc.Process(context.Background(), workItem()); err != nil {
		t.Fatalf("Unexpected error: %v", err)
	}

	// The worker stopped silently: no terminal job write, no notification.
	for _, j := range jobs.jobs {
		if j.Status.IsTerminal() {
			t.Errorf("job reached %v after abandonment", j.Status)
		}
	}
	if len(broker.notifications) != 0 {
		t.Errorf("Expected no notifications after delete, got %+v", broker.notifications)
	}
}

func TestService_Process_DuplicateDeliveryAfterCompletion(t *testing.T) {
	art := testArtifact()
	art.Status = artifact.StatusTranscriptionComplete
	artifacts := newFakeArtifacts(art)
	jobs := newFakeJobs(artifacts)
	engine := &fakeEngine{}
	broker := &fakeBroker{}

	svc := transcription.NewService(testConfig(), artifacts, jobs, engine, fakeLocator{}, broker, zerolog.Nop())
	if err := svc.Process(context.Background(), workItem()); err != nil {
		t.Fatalf("Unexpected error: %v", err)
	}

	if len(engine.started) != 0 {
		t.Errorf("Duplicate delivery must not start a second engine job")
	}
	if len(broker.notifications) != 0 {
		t.Errorf("Duplicate delivery must not publish again, got %+v", broker.notifications)
	}
}

func TestService_Process_ResumesExistingJob(t *testing.T) {
	art := testArtifact()
	art.Status = artifact.StatusTranscriptionInProgress
	artifacts := newFakeArtifacts(art)
	jobs := newFakeJobs(artifacts)
	jobs.jobs["transcription-aud_01TEST-abc"] = &transcription.Job{
		ID:         "transcription-aud_01TEST-abc",
		ArtifactID: art.ID,
		Status:     transcription.JobRunning,
		Attempts:   2,
	}
	engine := &fakeEngine{
		states: []transcription.JobState{
			{Status: transcription.EngineCompleted, TranscriptURI: "https://example.com/out.json"},
		},
		transcript: "resumed transcript",
	}
	broker := &fakeBroker{}

	svc := transcription.NewService(testConfig(), artifacts, jobs, engine, fakeLocator{}, broker, zerolog.Nop())
	if err := svc.Process(context.Background(), workItem()); err != nil {
		t.Fatalf("Unexpected error: %v", err)
	}

	// A redelivered work item polls the existing job instead of starting a new one.
	if len(engine.started) != 0 {
		t.Errorf("Expected no new engine job, got %d", len(engine.started))
	}
	if art.Status != artifact.StatusTranscriptionComplete {
		t.Errorf("artifact status = %v, want transcription_complete", art.Status)
	}
	if j := jobs.jobs["transcription-aud_01TEST-abc"]; j.TranscriptText != "resumed transcript" {
		t.Errorf("job transcript = %q, want %q", j.TranscriptText, "resumed transcript")
	}
	if len(broker.notifications) != 1 || broker.notifications[0].Message != notify.EventTranscriptionComplete {
		t.Errorf("Expected one complete notification, got %+v", broker.notifications)
	}
}

func TestService_Process_ResumesQueuedJob(t *testing.T) {
	// A crash between job creation and the in-progress advance leaves the
	// artifact at transcription_requested with a queued job. The redelivered
	// work item must still drive the artifact to a terminal state.
	art := testArtifact()
	art.Status = artifact.StatusTranscriptionRequested
	artifacts := newFakeArtifacts(art)
	jobs := newFakeJobs(artifacts)
	jobs.jobs["transcription-aud_01TEST-abc"] = &transcription.Job{
		ID:         "transcription-aud_01TEST-abc",
		ArtifactID: art.ID,
		Status:     transcription.JobQueued,
	}
	engine := &fakeEngine{
		states: []transcription.JobState{
			{Status: transcription.EngineCompleted, TranscriptURI: "https://example.com/out.json"},
		},
		transcript: "recovered transcript",
	}
	broker := &fakeBroker{}

	svc := transcription.NewService(testConfig(), artifacts, jobs, engine, fakeLocator{}, broker, zerolog.Nop())
	if err := svc.Process(context.Background(), workItem()); err != nil {
		t.Fatalf("Unexpected error: %v", err)
	}

	if len(engine.started) != 0 {
		t.Errorf("Expected no new engine job, got %d", len(engine.started))
	}
	if art.Status != artifact.StatusTranscriptionComplete {
		t.Errorf("artifact status = %v, want transcription_complete", art.Status)
	}
	if j := jobs.jobs["transcription-aud_01TEST-abc"]; j.Status != transcription.JobCompleted {
		t.Errorf("job status = %v, want completed", j.Status)
	}
	if len(broker.notifications) != 1 || broker.notifications[0].Message != notify.EventTranscriptionComplete {
		t.Errorf("Expected one complete notification, got %+v", broker.notifications)
	}
}

func TestService_Process_PollingBoundExceeded(t *testing.T) {
	art := testArtifact()
	artifacts := newFakeArtifacts(art)
	jobs := newFakeJobs(artifacts)
	engine := &fakeEngine{
		states: []transcription.JobState{{Status: transcription.EngineInProgress}},
	}
	broker := &fakeBroker{}
	cfg := testConfig()
	cfg.PollMaxAttempts = 3

	svc := transcription.NewService(cfg, artifacts, jobs, engine, fakeLocator{}, broker, zerolog.Nop())
	if err := svc.Process(context.Background(), workItem()); err != nil {
		t.Fatalf("Unexpected error: %v", err)
	}

	// The artifact resolves to a terminal failure instead of polling forever.
	if art.Status != artifact.StatusTranscriptionFailed {
		t.Errorf("artifact status = %v, want transcription_failed", art.Status)
	}
	for _, j := range jobs.jobs {
		if j.Status != transcription.JobFailed {
			t.Errorf("job status = %v, want failed", j.Status)
		}
		if j.Attempts != cfg.PollMaxAttempts {
			t.Errorf("job attempts = %d, want %d", j.Attempts, cfg.PollMaxAttempts)
		}
	}
	if len(broker.notifications) != 1 || broker.notifications[0].Message != notify.EventTranscriptionFailed {
		t.Errorf("Expected one failed notification, got %+v", broker.notifications)
	}
}

func TestService_Process_UnknownObjectKey(t *testing.T) {
	artifacts := newFakeArtifacts()
	jobs := newFakeJobs(artifacts)
	engine := &fakeEngine{}
	broker := &fakeBroker{}

	svc := transcription.NewService(testConfig(), artifacts, jobs, engine, fakeLocator{}, broker, zerolog.Nop())
	if err := svc.Process(context.Background(), workItem()); err != nil {
		t.Fatalf("Unexpected error: %v", err)
	}

	if len(engine.started) != 0 || len(jobs.jobs) != 0 || len(broker.notifications) != 0 {
		t.Errorf("Unknown object keys must be acknowledged without side effects")
	}
}

func TestService_Process_EngineReportsFailure(t *testing.T) {
	art := testArtifact()
	artifacts := newFakeArtifacts(art)
	jobs := newFakeJobs(artifacts)
	engine := &fakeEngine{
		states: []transcription.JobState{
			{Status: transcription.EngineFailed, FailureReason: "audio too short"},
		},
	}
	broker := &fakeBroker{}

	svc := transcription.NewService(testConfig(), artifacts, jobs, engine, fakeLocator{}, broker, zerolog.Nop())
	if err := svc.Process(context.Background(), workItem()); err != nil {
		t.Fatalf("Unexpected error: %v", err)
	}

	if art.Status != artifact.StatusTranscriptionFailed {
		t.Errorf("artifact status = %v, want transcription_failed", art.Status)
	}
	if len(broker.notifications) != 1 || broker.notifications[0].Message != notify.EventTranscriptionFailed {
		t.Errorf("Expected one failed notification, got %+v", broker.notifications)
	}
}
