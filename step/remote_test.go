package step

import (
	"context"
	"testing"

	"github.com/bitrise-io/go-utils/v2/log"
	"github.com/bitrise-steplib/steps-testrail/testrail"
	"github.com/bitrise-steplib/steps-testrail/testrail/testrailtest"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newServerClient(t *testing.T, server *testrailtest.Server) testrail.Client {
	client, err := testrail.NewClient(testrail.Config{
		BaseURL:           server.URL,
		Username:          testrailtest.Username,
		Password:          testrailtest.Password,
		RequestsPerMinute: 6000,
	}, log.NewLogger())
	require.NoError(t, err)
	return client
}

func TestResolveSuite(t *testing.T) {
	tests := []struct {
		name      string
		suiteMode int
	}{
		{name: "multiple suites", suiteMode: testrail.SuiteModeMultipleSuites},
		{name: "single suite with baselines", suiteMode: testrail.SuiteModeSingleBaselines},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			server := testrailtest.NewServer()
			defer server.Close()
			project, first := server.AddProject("API")
			server.AddSuite(project.ID, "Regression")
			server.SetSuiteMode(project.ID, tt.suiteMode)

			client := newServerClient(t, server)
			project, err := client.GetProject(context.Background(), project.ID)
			require.NoError(t, err)
			require.Equal(t, tt.suiteMode, project.SuiteMode)

			suiteID, err := resolveSuite(context.Background(), log.NewLogger(), client, project, 0)

			require.NoError(t, err)
			assert.Equal(t, first.ID, suiteID)
		})
	}
}

func Test_GivenConfiguredSuite_WhenResolvingSuite_ThenSkipsSuiteLookup(t *testing.T) {
	// Given
	server := testrailtest.NewServer()
	defer server.Close()
	project, _ := server.AddProject("API")
	regression := server.AddSuite(project.ID, "Regression")
	server.SetSuiteMode(project.ID, testrail.SuiteModeMultipleSuites)

	// When
	suiteID, err := resolveSuite(context.Background(), log.NewLogger(), newServerClient(t, server), project, regression.ID)

	// Then
	require.NoError(t, err)
	assert.Equal(t, regression.ID, suiteID)
	assert.Equal(t, 0, server.RequestCount("get_suites"))
}
