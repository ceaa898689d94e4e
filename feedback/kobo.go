// Package feedback sends user evaluations to a KoboToolbox form.
package feedback

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/google/uuid"

	"web-scraper-app/utils"
)

// Choices offered by the evaluation form.
var (
	Experiences     = []string{"Exceptionnelle", "Bonne", "Moyenne", "Médiocre"}
	Recommendations = []string{"Certainement", "Probablement", "Peut-être", "Non"}
	Features        = []string{"Scraping de données", "Téléchargement des données", "Tableau de bord"}
)

// ErrNotConfigured is returned when no API token or asset UID is set.
var ErrNotConfigured = errors.New("feedback: kobo token or asset uid not configured")

// Submission is one filled-in evaluation form.
type Submission struct {
	Name           string
	Email          string
	Rating         int
	Experience     string
	Recommendation string
	Features       []string
	Positive       string
	Improvements   string
	Additional     string
}

// Validate checks the rating and the closed-choice answers.
func (s Submission) Validate() error {
	if s.Rating < 1 || s.Rating > 5 {
		return fmt.Errorf("rating must be between 1 and 5, got %d", s.Rating)
	}
	if s.Experience != "" && !contains(Experiences, s.Experience) {
		return fmt.Errorf("unknown experience %q", s.Experience)
	}
	if s.Recommendation != "" && !contains(Recommendations, s.Recommendation) {
		return fmt.Errorf("unknown recommendation %q", s.Recommendation)
	}
	for _, f := range s.Features {
		if !contains(Features, f) {
			return fmt.Errorf("unknown feature %q", f)
		}
	}
	return nil
}

func contains(list []string, v string) bool {
	for _, s := range list {
		if s == v {
			return true
		}
	}
	return false
}

// SubmissionError carries a rejected submission's status and body verbatim.
type SubmissionError struct {
	StatusCode int
	Body       string
}

func (e *SubmissionError) Error() string {
	return fmt.Sprintf("kobo rejected submission: HTTP %d: %s", e.StatusCode, e.Body)
}

type payload struct {
	Submission submissionData `json:"submission"`
}

type submissionData struct {
	Name           string `json:"nom"`
	Email          string `json:"email"`
	Rating         int    `json:"note"`
	Experience     string `json:"experience"`
	Recommendation string `json:"recommendation"`
	Features       string `json:"features"`
	Positive       string `json:"positive"`
	Improvements   string `json:"improvements"`
	Additional     string `json:"additional"`
	DateEvaluation string `json:"date_evaluation"`
	Meta           meta   `json:"meta"`
}

type meta struct {
	InstanceID string `json:"instanceID"`
}

// Client posts submissions to the KoboToolbox v2 API.
type Client struct {
	apiURL   string
	token    string
	assetUID string
	http     *http.Client
	logger   *utils.Logger
	now      func() time.Time
}

// NewClient creates a Client. apiURL is the assets endpoint, e.g.
// https://kf.kobotoolbox.org/api/v2/assets/.
func NewClient(apiURL, token, assetUID string, logger *utils.Logger) *Client {
	if !strings.HasSuffix(apiURL, "/") {
		apiURL += "/"
	}
	return &Client{
		apiURL:   apiURL,
		token:    token,
		assetUID: assetUID,
		http:     &http.Client{Timeout: 30 * time.Second},
		logger:   logger,
		now:      time.Now,
	}
}

// Enabled reports whether credentials are configured.
func (c *Client) Enabled() bool {
	return c.token != "" && c.assetUID != ""
}

func (c *Client) endpoint() string {
	return c.apiURL + c.assetUID + "/submissions/"
}

// Submit sends s once. Only 201 Created counts as success; any other
// response is returned as a *SubmissionError.
func (c *Client) Submit(ctx context.Context, s Submission) error {
	if !c.Enabled() {
		return ErrNotConfigured
	}
	if err := s.Validate(); err != nil {
		return fmt.Errorf("feedback: %w", err)
	}

	body, err := json.Marshal(payload{Submission: submissionData{
		Name:           s.Name,
		Email:          s.Email,
		Rating:         s.Rating,
		Experience:     s.Experience,
		Recommendation: s.Recommendation,
		Features:       strings.Join(s.Features, ", "),
		Positive:       s.Positive,
		Improvements:   s.Improvements,
		Additional:     s.Additional,
		DateEvaluation: c.now().Format(time.RFC3339),
		Meta:           meta{InstanceID: "uuid:" + uuid.NewString()},
	}})
	if err != nil {
		return fmt.Errorf("feedback: encode submission: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.endpoint(), bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("feedback: build request: %w", err)
	}
	req.Header.Set("Authorization", "Token "+c.token)
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("feedback: post submission: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusCreated {
		msg, _ := io.ReadAll(io.LimitReader(resp.Body, 64<<10))
		c.logger.Warn("[feedback] Submission rejected: HTTP %d", resp.StatusCode)
		return &SubmissionError{StatusCode: resp.StatusCode, Body: string(msg)}
	}

	c.logger.Info("[feedback] Submission recorded (rating %d)", s.Rating)
	return nil
}
