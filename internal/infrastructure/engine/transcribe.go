// Package engine adapts AWS Transcribe to the asynchronous transcription
// engine contract.
package engine

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/transcribe"
	"github.com/aws/aws-sdk-go-v2/service/transcribe/types"
	"github.com/rs/zerolog"

	"casescribe/internal/config"
	"casescribe/internal/domain/transcription"
)

// transcriptDocument is the JSON shape Transcribe writes to the output
// location. Only the joined transcript text is consumed.
type transcriptDocument struct {
	Results struct {
		Transcripts []struct {
			Transcript string `json:"transcript"`
		} `json:"transcripts"`
	} `json:"results"`
}

// Transcribe drives AWS Transcribe jobs. The job name doubles as the job id;
// Transcribe rejects reused names, which is safe here because every start uses
// a fresh random suffix.
type Transcribe struct {
	client       *transcribe.Client
	httpClient   *http.Client
	languageCode string
	log          zerolog.Logger
}

func NewTranscribe(ctx context.Context, cfg *config.Config, log zerolog.Logger) (*Transcribe, error) {
	awsCfg, err := awsconfig.LoadDefaultConfig(ctx,
		awsconfig.WithRegion(cfg.S3Region),
	)
	if err != nil {
		return nil, fmt.Errorf("load aws config: %w", err)
	}
	return &Transcribe{
		client:       transcribe.NewFromConfig(awsCfg),
		httpClient:   &http.Client{Timeout: 30 * time.Second},
		languageCode: cfg.TranscribeLanguageCode,
		log:          log.With().Str("component", "transcribe-engine").Logger(),
	}, nil
}

func (t *Transcribe) Start(ctx context.Context, input transcription.StartInput) (string, error) {
	languageCode := input.LanguageCode
	if languageCode == "" {
		languageCode = t.languageCode
	}
	_, err := t.client.StartTranscriptionJob(ctx, &transcribe.StartTranscriptionJobInput{
		TranscriptionJobName: aws.String(input.JobName),
		LanguageCode:         types.LanguageCode(languageCode),
		MediaFormat:          types.MediaFormat(input.MediaFormat),
		Media: &types.Media{
			MediaFileUri: aws.String(input.MediaURI),
		},
	})
	if err != nil {
		return "", fmt.Errorf("start transcription job %s: %w", input.JobName, err)
	}
	return input.JobName, nil
}

func (t *Transcribe) Poll(ctx context.Context, jobID string) (transcription.JobState, error) {
	out, err := t.client.GetTranscriptionJob(ctx, &transcribe.GetTranscriptionJobInput{
		TranscriptionJobName: aws.String(jobID),
	})
	if err != nil {
		return transcription.JobState{}, fmt.Errorf("get transcription job %s: %w", jobID, err)
	}

	job := out.TranscriptionJob
	state := transcription.JobState{Status: mapStatus(job.TranscriptionJobStatus)}
	if job.Transcript != nil {
		state.TranscriptURI = aws.ToString(job.Transcript.TranscriptFileUri)
	}
	state.FailureReason = aws.ToString(job.FailureReason)
	return state, nil
}

// FetchTranscript downloads the output document and extracts the full
// transcript text.
func (t *Transcribe) FetchTranscript(ctx context.Context, transcriptURI string) (string, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, transcriptURI, nil)
	if err != nil {
		return "", fmt.Errorf("build transcript request: %w", err)
	}
	resp, err := t.httpClient.Do(req)
	if err != nil {
		return "", fmt.Errorf("fetch transcript: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("fetch transcript: unexpected status %d", resp.StatusCode)
	}
	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", fmt.Errorf("read transcript body: %w", err)
	}

	var doc transcriptDocument
	if err := json.Unmarshal(body, &doc); err != nil {
		return "", fmt.Errorf("decode transcript document: %w", err)
	}
	if len(doc.Results.Transcripts) == 0 {
		return "", fmt.Errorf("transcript document carries no transcript")
	}
	return doc.Results.Transcripts[0].Transcript, nil
}

func mapStatus(status types.TranscriptionJobStatus) transcription.EngineStatus {
	switch status {
	case types.TranscriptionJobStatusCompleted:
		return transcription.EngineCompleted
	case types.TranscriptionJobStatusFailed:
		return transcription.EngineFailed
	case types.TranscriptionJobStatusInProgress:
		return transcription.EngineInProgress
	default:
		return transcription.EngineQueued
	}
}
