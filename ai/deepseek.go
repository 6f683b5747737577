package ai

import (
	"bytes"
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"golang.org/x/sync/singleflight"

	"github.com/korjavin/swiftcamp/logger"
	"github.com/korjavin/swiftcamp/models"
)

const (
	defaultModel  = "deepseek-chat"
	apiTimeoutSec = 60 // reviews of longer submissions can take a while
)

// ErrNoChoices is returned when the API answers without any message
var ErrNoChoices = errors.New("no choices in API response")

// DeepseekClient asks the Deepseek chat API to review failed submissions
type DeepseekClient struct {
	apiKey string
	apiURL string
	model  string
	http   *http.Client
	log    *logger.Logger
	group  singleflight.Group
}

// NewDeepseekClient creates a new Deepseek API client
func NewDeepseekClient(apiKey, apiURL string, log *logger.Logger) *DeepseekClient {
	if log == nil {
		log = logger.Nop()
	}
	return &DeepseekClient{
		apiKey: apiKey,
		apiURL: apiURL,
		model:  defaultModel,
		http:   &http.Client{Timeout: apiTimeoutSec * time.Second},
		log:    log.With("component", "deepseek"),
	}
}

type deepseekMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type deepseekRequest struct {
	Model    string            `json:"model"`
	Messages []deepseekMessage `json:"messages"`
}

type deepseekResponseChoice struct {
	Message deepseekMessage `json:"message"`
}

type deepseekResponse struct {
	Choices []deepseekResponseChoice `json:"choices"`
	ID      string                   `json:"id,omitempty"`
}

// CacheKey identifies a review of one piece of code for one lesson
func CacheKey(lessonID, code string) string {
	sum := sha256.Sum256([]byte(strings.TrimSpace(code)))
	return lessonID + ":" + hex.EncodeToString(sum[:8])
}

// BuildPrompt assembles the review request for a submission
func BuildPrompt(lesson models.Lesson, code string, report *models.RunReport) string {
	var b strings.Builder
	fmt.Fprintf(&b, `I am learning Swift with the lesson "%s".

Lesson theory:
%s
`, lesson.Title, lesson.Theory)

	if lesson.Challenge != nil {
		fmt.Fprintf(&b, "\nChallenge:\n%s\n", lesson.Challenge.Instructions)
	}

	fmt.Fprintf(&b, "\nMy code:\n```swift\n%s\n```\n", strings.TrimSpace(code))

	if report != nil && len(report.Results) > 0 {
		b.WriteString("\nChecks that did not pass:\n")
		for _, r := range report.Results {
			if !r.Passed {
				fmt.Fprintf(&b, "- %s (expected %s)\n", r.Description, r.Expected)
			}
		}
	}

	b.WriteString(`
Please help me with the following tasks:

1. Explain what my code does
2. Point out what is missing for the challenge, without writing the full solution
3. Give one hint that moves me to the next step

Be concise and answer in plain text.
`)
	return b.String()
}

// ReviewSubmission asks for feedback on code. Concurrent calls for the same lesson
// and code share a single API request.
func (c *DeepseekClient) ReviewSubmission(ctx context.Context, lesson models.Lesson, code string, report *models.RunReport) (string, error) {
	key := CacheKey(lesson.ID, code)
	v, err, shared := c.group.Do(key, func() (interface{}, error) {
		return c.complete(ctx, BuildPrompt(lesson, code, report))
	})
	if shared {
		c.log.Debug("Shared in-flight review", "cache_key", key)
	}
	if err != nil {
		return "", err
	}
	return v.(string), nil
}

func (c *DeepseekClient) complete(ctx context.Context, prompt string) (string, error) {
	startTime := time.Now()

	reqJSON, err := json.Marshal(deepseekRequest{
		Model: c.model,
		Messages: []deepseekMessage{
			{Role: "user", Content: prompt},
		},
	})
	if err != nil {
		return "", err
	}

	ctx, cancel := context.WithTimeout(ctx, apiTimeoutSec*time.Second)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.apiURL, bytes.NewBuffer(reqJSON))
	if err != nil {
		return "", err
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+c.apiKey)

	c.log.Debug("Sending request to Deepseek API", "prompt_chars", len(prompt))
	resp, err := c.http.Do(req)
	if err != nil {
		if errors.Is(ctx.Err(), context.DeadlineExceeded) {
			c.log.Warn("Deepseek API request timed out", "elapsed", time.Since(startTime))
		}
		return "", fmt.Errorf("deepseek request: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", fmt.Errorf("read deepseek response: %w", err)
	}

	if resp.StatusCode != http.StatusOK {
		c.log.Warn("Deepseek API request failed", "status", resp.StatusCode, "body", truncate(string(body), 300))
		return "", fmt.Errorf("API request failed with status %d", resp.StatusCode)
	}

	var deepseekResp deepseekResponse
	if err := json.Unmarshal(body, &deepseekResp); err != nil {
		return "", fmt.Errorf("decode deepseek response: %w", err)
	}
	if len(deepseekResp.Choices) == 0 {
		return "", ErrNoChoices
	}

	content := strings.TrimSpace(deepseekResp.Choices[0].Message.Content)
	c.log.Info("Review completed", "elapsed", time.Since(startTime), "content_chars", len(content))
	return content, nil
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n] + "..."
}
