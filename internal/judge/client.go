package judge

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/rs/zerolog"
)

// Submission status ids reported by the judge. Anything above Running is
// terminal (accepted, wrong answer, compile error, ...).
const (
	StatusQueued  = 1
	StatusRunning = 2
)

// Result is the terminal verdict of one code submission.
type Result struct {
	StatusID int    `json:"status_id"`
	Stdout   string `json:"stdout"`
	Stderr   string `json:"stderr"`
	Time     string `json:"time"`
}

// Config holds judge connection settings.
type Config struct {
	BaseURL      string
	LanguageID   int
	PollInterval time.Duration
	MaxPolls     int
}

// Client talks to the remote code-execution judge: it POSTs a submission,
// then polls the returned token until the verdict is terminal or the poll
// budget runs out.
type Client struct {
	cfg  Config
	http *http.Client
	log  zerolog.Logger
}

// NewClient creates a judge client.
func NewClient(cfg Config, log zerolog.Logger) *Client {
	if cfg.PollInterval <= 0 {
		cfg.PollInterval = time.Second
	}
	if cfg.MaxPolls <= 0 {
		cfg.MaxPolls = 10
	}
	return &Client{
		cfg:  cfg,
		http: &http.Client{Timeout: 10 * time.Second},
		log:  log.With().Str("component", "judge_client").Logger(),
	}
}

type submissionRequest struct {
	SourceCode string `json:"source_code"`
	LanguageID int    `json:"language_id"`
	Stdin      string `json:"stdin"`
}

type submissionCreated struct {
	Token string `json:"token"`
}

type submissionStatus struct {
	Status struct {
		ID int `json:"id"`
	} `json:"status"`
	Stdout string `json:"stdout"`
	Stderr string `json:"stderr"`
	Time   string `json:"time"`
}

// Submit runs source against stdin on the judge and waits for a terminal
// verdict. The wait is bounded by MaxPolls × PollInterval; exhausting the
// budget or cancelling ctx returns an error. Callers treat any error as a
// judge failure, never as a user-facing condition.
func (c *Client) Submit(ctx context.Context, source, stdin string) (*Result, error) {
	token, err := c.createSubmission(ctx, source, stdin)
	if err != nil {
		return nil, err
	}

	ticker := time.NewTicker(c.cfg.PollInterval)
	defer ticker.Stop()

	for attempt := 0; attempt < c.cfg.MaxPolls; attempt++ {
		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-ticker.C:
		}

		status, err := c.getSubmission(ctx, token)
		if err != nil {
			return nil, err
		}

		if status.Status.ID == StatusQueued || status.Status.ID == StatusRunning {
			continue
		}

		return &Result{
			StatusID: status.Status.ID,
			Stdout:   status.Stdout,
			Stderr:   status.Stderr,
			Time:     status.Time,
		}, nil
	}

	return nil, fmt.Errorf("submission %s: no verdict after %d polls", token, c.cfg.MaxPolls)
}

func (c *Client) createSubmission(ctx context.Context, source, stdin string) (string, error) {
	body, err := json.Marshal(submissionRequest{
		SourceCode: source,
		LanguageID: c.cfg.LanguageID,
		Stdin:      stdin,
	})
	if err != nil {
		return "", fmt.Errorf("marshal submission: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.cfg.BaseURL+"/submissions", bytes.NewReader(body))
	if err != nil {
		return "", fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		return "", fmt.Errorf("post submission: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return "", fmt.Errorf("post submission: unexpected status %d", resp.StatusCode)
	}

	var created submissionCreated
	if err := json.NewDecoder(resp.Body).Decode(&created); err != nil {
		return "", fmt.Errorf("decode submission token: %w", err)
	}
	if created.Token == "" {
		return "", fmt.Errorf("judge returned empty token")
	}
	return created.Token, nil
}

func (c *Client) getSubmission(ctx context.Context, token string) (*submissionStatus, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.cfg.BaseURL+"/submissions/"+token, nil)
	if err != nil {
		return nil, fmt.Errorf("build request: %w", err)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, fmt.Errorf("get submission: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, fmt.Errorf("get submission: unexpected status %d", resp.StatusCode)
	}

	var status submissionStatus
	if err := json.NewDecoder(resp.Body).Decode(&status); err != nil {
		return nil, fmt.Errorf("decode submission status: %w", err)
	}
	return &status, nil
}
