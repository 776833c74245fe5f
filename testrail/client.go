package testrail

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/bitrise-io/go-utils/v2/log"
	"github.com/bitrise-io/go-utils/v2/retryhttp"
	"github.com/hashicorp/go-retryablehttp"
	"golang.org/x/time/rate"
)

const (
	apiPath = "/index.php?/api/v2/"

	// DefaultRequestsPerMinute is the API rate limit of TestRail Cloud.
	DefaultRequestsPerMinute = 180
	// DefaultMaxRetries ...
	DefaultMaxRetries = 3
)

// Config ...
type Config struct {
	BaseURL           string
	Username          string
	Password          string
	RequestsPerMinute int
	MaxRetries        int
	RetryWaitMin      time.Duration
	RetryWaitMax      time.Duration
}

// Client talks to the TestRail API v2.
type Client interface {
	GetProjects(ctx context.Context) ([]Project, error)
	GetProject(ctx context.Context, projectID int) (Project, error)
	GetUserByEmail(ctx context.Context, email string) (User, error)
	GetSuites(ctx context.Context, projectID int) ([]Suite, error)
	GetSections(ctx context.Context, projectID, suiteID int) ([]Section, error)
	AddSection(ctx context.Context, projectID int, section NewSection) (Section, error)
	GetCases(ctx context.Context, projectID, suiteID, sectionID int) ([]Case, error)
	AddCase(ctx context.Context, sectionID int, testCase NewCase) (Case, error)
	AddRun(ctx context.Context, projectID int, run NewRun) (Run, error)
	AddResultForCase(ctx context.Context, runID, caseID int, result NewResult) (Result, error)
	RunURL(runID int) string
}

type client struct {
	baseURL    string
	username   string
	password   string
	httpClient *retryablehttp.Client
	limiter    *rate.Limiter
	logger     log.Logger
}

// NewClient ...
func NewClient(config Config, logger log.Logger) (Client, error) {
	baseURL, err := NormalizeBaseURL(config.BaseURL)
	if err != nil {
		return nil, err
	}

	httpClient := retryhttp.NewClient(logger)
	httpClient.RetryMax = config.MaxRetries
	if config.RetryWaitMin > 0 {
		httpClient.RetryWaitMin = config.RetryWaitMin
	}
	if config.RetryWaitMax > 0 {
		httpClient.RetryWaitMax = config.RetryWaitMax
	}

	requestsPerMinute := config.RequestsPerMinute
	if requestsPerMinute <= 0 {
		requestsPerMinute = DefaultRequestsPerMinute
	}

	return &client{
		baseURL:    baseURL,
		username:   config.Username,
		password:   config.Password,
		httpClient: httpClient,
		limiter:    rate.NewLimiter(rate.Limit(float64(requestsPerMinute)/60.0), requestsPerMinute),
		logger:     logger,
	}, nil
}

// NormalizeBaseURL validates a TestRail instance URL and strips the trailing slash.
func NormalizeBaseURL(rawURL string) (string, error) {
	trimmed := strings.TrimRight(strings.TrimSpace(rawURL), "/")
	parsed, err := url.Parse(trimmed)
	if err != nil {
		return "", fmt.Errorf("invalid TestRail URL (%s): %w", rawURL, err)
	}
	if parsed.Scheme != "http" && parsed.Scheme != "https" {
		return "", fmt.Errorf("invalid TestRail URL (%s): scheme must be http or https", rawURL)
	}
	if parsed.Host == "" {
		return "", fmt.Errorf("invalid TestRail URL (%s): missing host", rawURL)
	}
	return trimmed, nil
}

func (c *client) GetProjects(ctx context.Context) ([]Project, error) {
	return getAll[Project](ctx, c, "get_projects", "projects")
}

func (c *client) GetProject(ctx context.Context, projectID int) (Project, error) {
	var project Project
	err := c.do(ctx, http.MethodGet, fmt.Sprintf("get_project/%d", projectID), nil, &project)
	return project, err
}

func (c *client) GetUserByEmail(ctx context.Context, email string) (User, error) {
	var user User
	err := c.do(ctx, http.MethodGet, "get_user_by_email&email="+url.QueryEscape(email), nil, &user)
	return user, err
}

func (c *client) GetSuites(ctx context.Context, projectID int) ([]Suite, error) {
	return getAll[Suite](ctx, c, fmt.Sprintf("get_suites/%d", projectID), "suites")
}

func (c *client) GetSections(ctx context.Context, projectID, suiteID int) ([]Section, error) {
	endpoint := fmt.Sprintf("get_sections/%d", projectID)
	if suiteID > 0 {
		endpoint += fmt.Sprintf("&suite_id=%d", suiteID)
	}
	return getAll[Section](ctx, c, endpoint, "sections")
}

func (c *client) AddSection(ctx context.Context, projectID int, section NewSection) (Section, error) {
	var created Section
	err := c.do(ctx, http.MethodPost, fmt.Sprintf("add_section/%d", projectID), section, &created)
	return created, err
}

// GetCases lists the cases of a suite, limited to a single section when sectionID is set.
func (c *client) GetCases(ctx context.Context, projectID, suiteID, sectionID int) ([]Case, error) {
	endpoint := fmt.Sprintf("get_cases/%d", projectID)
	if suiteID > 0 {
		endpoint += fmt.Sprintf("&suite_id=%d", suiteID)
	}
	if sectionID > 0 {
		endpoint += fmt.Sprintf("&section_id=%d", sectionID)
	}
	return getAll[Case](ctx, c, endpoint, "cases")
}

func (c *client) AddCase(ctx context.Context, sectionID int, testCase NewCase) (Case, error) {
	var created Case
	err := c.do(ctx, http.MethodPost, fmt.Sprintf("add_case/%d", sectionID), testCase, &created)
	return created, err
}

func (c *client) AddRun(ctx context.Context, projectID int, run NewRun) (Run, error) {
	if run.CaseIDs == nil {
		run.CaseIDs = []int{}
	}

	var created Run
	err := c.do(ctx, http.MethodPost, fmt.Sprintf("add_run/%d", projectID), run, &created)
	return created, err
}

func (c *client) AddResultForCase(ctx context.Context, runID, caseID int, result NewResult) (Result, error) {
	var created Result
	err := c.do(ctx, http.MethodPost, fmt.Sprintf("add_result_for_case/%d/%d", runID, caseID), result, &created)
	return created, err
}

func (c *client) RunURL(runID int) string {
	return fmt.Sprintf("%s/index.php?/runs/view/%d", c.baseURL, runID)
}

func (c *client) endpointURL(endpoint string) string {
	return c.baseURL + apiPath + endpoint
}

func (c *client) do(ctx context.Context, method, endpoint string, body, out any) error {
	return c.doURL(ctx, method, c.endpointURL(endpoint), body, out)
}

func (c *client) doURL(ctx context.Context, method, requestURL string, body, out any) error {
	if err := c.limiter.Wait(ctx); err != nil {
		return err
	}

	var rawBody any
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("failed to encode request body: %w", err)
		}
		rawBody = data
	}

	req, err := retryablehttp.NewRequestWithContext(ctx, method, requestURL, rawBody)
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}
	req.SetBasicAuth(c.username, c.password)
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")

	c.logger.Debugf("%s %s", method, requestURL)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("%s %s: %w", method, requestURL, err)
	}
	defer func() {
		if err := resp.Body.Close(); err != nil {
			c.logger.Warnf("Failed to close response body: %s", err)
		}
	}()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("failed to read response body: %w", err)
	}

	if resp.StatusCode < http.StatusOK || resp.StatusCode >= http.StatusMultipleChoices {
		return newAPIError(resp.StatusCode, data)
	}

	if out == nil || len(bytes.TrimSpace(data)) == 0 {
		return nil
	}
	if err := json.Unmarshal(data, out); err != nil {
		return fmt.Errorf("failed to decode response of %s: %w", requestURL, err)
	}
	return nil
}

// getAll follows the pagination links of a list endpoint. Older TestRail versions
// answer with a bare array, newer ones with an envelope holding the items under key.
func getAll[T any](ctx context.Context, c *client, endpoint, key string) ([]T, error) {
	requestURL := c.endpointURL(endpoint)
	items := []T{}

	for requestURL != "" {
		var raw json.RawMessage
		if err := c.doURL(ctx, http.MethodGet, requestURL, nil, &raw); err != nil {
			return nil, err
		}

		trimmed := bytes.TrimSpace(raw)
		if len(trimmed) > 0 && trimmed[0] == '[' {
			var page []T
			if err := json.Unmarshal(trimmed, &page); err != nil {
				return nil, fmt.Errorf("failed to decode %s: %w", key, err)
			}
			return append(items, page...), nil
		}

		var envelope map[string]json.RawMessage
		if err := json.Unmarshal(trimmed, &envelope); err != nil {
			return nil, fmt.Errorf("failed to decode %s: %w", key, err)
		}

		itemsRaw, ok := envelope[key]
		if !ok {
			return nil, errors.New("unexpected response: missing " + key)
		}
		var page []T
		if err := json.Unmarshal(itemsRaw, &page); err != nil {
			return nil, fmt.Errorf("failed to decode %s: %w", key, err)
		}
		items = append(items, page...)

		requestURL = c.nextPageURL(envelope["_links"])
	}

	return items, nil
}

func (c *client) nextPageURL(rawLinks json.RawMessage) string {
	if len(rawLinks) == 0 {
		return ""
	}

	var links struct {
		Next *string `json:"next"`
	}
	if err := json.Unmarshal(rawLinks, &links); err != nil || links.Next == nil || *links.Next == "" {
		return ""
	}

	return c.baseURL + "/index.php?/" + strings.TrimPrefix(*links.Next, "/")
}
