package testrail_test

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"strconv"
	"sync/atomic"
	"testing"
	"time"

	"github.com/bitrise-io/go-utils/v2/log"
	"github.com/bitrise-steplib/steps-testrail/testrail"
	"github.com/bitrise-steplib/steps-testrail/testrail/testrailtest"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newClient(t *testing.T, baseURL string, maxRetries int) testrail.Client {
	client, err := testrail.NewClient(testrail.Config{
		BaseURL:           baseURL + "/",
		Username:          testrailtest.Username,
		Password:          testrailtest.Password,
		RequestsPerMinute: 6000,
		MaxRetries:        maxRetries,
		RetryWaitMin:      time.Millisecond,
		RetryWaitMax:      5 * time.Millisecond,
	}, log.NewLogger())
	require.NoError(t, err)
	return client
}

func TestNormalizeBaseURL(t *testing.T) {
	tests := []struct {
		name    string
		rawURL  string
		want    string
		wantErr bool
	}{
		{name: "trailing slash", rawURL: "https://example.testrail.io/", want: "https://example.testrail.io"},
		{name: "sub path", rawURL: " https://example.com/testrail ", want: "https://example.com/testrail"},
		{name: "missing scheme", rawURL: "example.testrail.io", wantErr: true},
		{name: "unsupported scheme", rawURL: "ftp://example.testrail.io", wantErr: true},
		{name: "empty", rawURL: "", wantErr: true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := testrail.NormalizeBaseURL(tt.rawURL)
			if tt.wantErr {
				require.Error(t, err)
				return
			}
			require.NoError(t, err)
			require.Equal(t, tt.want, got)
		})
	}
}

func TestClient_SectionsAndCases(t *testing.T) {
	server := testrailtest.NewServer()
	defer server.Close()
	project, suite := server.AddProject("API")

	client := newClient(t, server.URL, 0)
	ctx := context.Background()

	got, err := client.GetProject(ctx, project.ID)
	require.NoError(t, err)
	require.Equal(t, "API", got.Name)

	suites, err := client.GetSuites(ctx, project.ID)
	require.NoError(t, err)
	require.Equal(t, []testrail.Suite{suite}, suites)

	section, err := client.AddSection(ctx, project.ID, testrail.NewSection{SuiteID: suite.ID, Name: "Models Endpoint"})
	require.NoError(t, err)
	require.Equal(t, suite.ID, section.SuiteID)

	created, err := client.AddCase(ctx, section.ID, testrail.NewCase{Title: "list_models_success", TemplateID: 1, TypeID: 1, PriorityID: 2})
	require.NoError(t, err)
	require.Equal(t, section.ID, created.SectionID)

	sections, err := client.GetSections(ctx, project.ID, suite.ID)
	require.NoError(t, err)
	require.Len(t, sections, 1)

	cases, err := client.GetCases(ctx, project.ID, suite.ID, section.ID)
	require.NoError(t, err)
	require.Equal(t, []testrail.Case{created}, cases)
}

func TestClient_FollowsPagination(t *testing.T) {
	server := testrailtest.NewServer()
	defer server.Close()
	server.PageSize = 2
	project, suite := server.AddProject("API")

	client := newClient(t, server.URL, 0)
	ctx := context.Background()

	section, err := client.AddSection(ctx, project.ID, testrail.NewSection{SuiteID: suite.ID, Name: "Files Endpoint"})
	require.NoError(t, err)
	for _, title := range []string{"a", "b", "c", "d", "e"} {
		_, err := client.AddCase(ctx, section.ID, testrail.NewCase{Title: title})
		require.NoError(t, err)
	}

	cases, err := client.GetCases(ctx, project.ID, suite.ID, 0)
	require.NoError(t, err)

	var titles []string
	for _, c := range cases {
		titles = append(titles, c.Title)
	}
	assert.Equal(t, []string{"a", "b", "c", "d", "e"}, titles)
	assert.Equal(t, 3, server.RequestCount("get_cases"))
}

func TestClient_RunAndResults(t *testing.T) {
	server := testrailtest.NewServer()
	defer server.Close()
	project, suite := server.AddProject("API")

	client := newClient(t, server.URL, 0)
	ctx := context.Background()

	run, err := client.AddRun(ctx, project.ID, testrail.NewRun{SuiteID: suite.ID, Name: "Test Run"})
	require.NoError(t, err)
	require.Equal(t, server.URL+"/index.php?/runs/view/"+strconv.Itoa(run.ID), client.RunURL(run.ID))

	runs := server.Runs()
	require.Len(t, runs, 1)
	require.NotNil(t, runs[0].CaseIDs)
	require.Empty(t, runs[0].CaseIDs)
	require.False(t, runs[0].IncludeAll)

	_, err = client.AddResultForCase(ctx, run.ID, 999, testrail.NewResult{StatusID: testrail.StatusPassed})
	var apiErr *testrail.APIError
	require.ErrorAs(t, err, &apiErr)
	require.Equal(t, http.StatusBadRequest, apiErr.StatusCode)
	require.Equal(t, "No (active) test found for the run/case combination.", apiErr.Message)
}

func TestClient_UserByEmail(t *testing.T) {
	server := testrailtest.NewServer()
	defer server.Close()
	server.AddUser("CI", testrailtest.Username)

	client := newClient(t, server.URL, 0)

	user, err := client.GetUserByEmail(context.Background(), testrailtest.Username)
	require.NoError(t, err)
	require.Equal(t, "CI", user.Name)
}

func TestClient_Unauthorized(t *testing.T) {
	server := testrailtest.NewServer()
	defer server.Close()

	client, err := testrail.NewClient(testrail.Config{
		BaseURL:  server.URL,
		Username: testrailtest.Username,
		Password: "wrong",
	}, log.NewLogger())
	require.NoError(t, err)

	_, err = client.GetProjects(context.Background())
	require.Error(t, err)
	require.True(t, errors.Is(err, testrail.ErrUnauthorized))
}

func TestClient_RetriesServerErrors(t *testing.T) {
	var attempts atomic.Int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if attempts.Add(1) < 3 {
			w.WriteHeader(http.StatusServiceUnavailable)
			return
		}
		_, _ = w.Write([]byte(`[{"id": 7, "name": "API"}]`))
	}))
	defer server.Close()

	client := newClient(t, server.URL, 3)

	projects, err := client.GetProjects(context.Background())
	require.NoError(t, err)
	require.Equal(t, []testrail.Project{{ID: 7, Name: "API"}}, projects)
	require.Equal(t, int32(3), attempts.Load())
}

func TestClient_GivesUpAfterMaxRetries(t *testing.T) {
	var attempts atomic.Int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		attempts.Add(1)
		w.WriteHeader(http.StatusTooManyRequests)
		_, _ = w.Write([]byte(`{"error": "API Rate Limit Exceeded"}`))
	}))
	defer server.Close()

	client := newClient(t, server.URL, 1)

	_, err := client.GetProject(context.Background(), 1)
	var apiErr *testrail.APIError
	require.ErrorAs(t, err, &apiErr)
	require.Equal(t, http.StatusTooManyRequests, apiErr.StatusCode)
	require.Equal(t, "API Rate Limit Exceeded", apiErr.Message)
	require.Equal(t, int32(2), attempts.Load())
	require.False(t, errors.Is(err, testrail.ErrUnauthorized))
}

func TestClient_CancelledContext(t *testing.T) {
	server := testrailtest.NewServer()
	defer server.Close()

	client := newClient(t, server.URL, 0)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := client.GetProjects(ctx)
	require.Error(t, err)
	require.Equal(t, 0, server.RequestCount(""))
}
