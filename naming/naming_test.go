package naming

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestRemoveTestPrefix(t *testing.T) {
	tests := []struct {
		name string
		in   string
		want string
	}{
		{name: "class", in: "TestModelsEndpoint", want: "ModelsEndpoint"},
		{name: "function", in: "test_list_models_success", want: "list_models_success"},
		{name: "no prefix", in: "helper", want: "helper"},
		{name: "only the first prefix", in: "test_test_twice", want: "test_twice"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			require.Equal(t, tt.want, RemoveTestPrefix(tt.in))
		})
	}
}

func TestSplitCamelCase(t *testing.T) {
	require.Equal(t, "Models Endpoint", SplitCamelCase("ModelsEndpoint"))
	require.Equal(t, "Chat Completions Endpoint", SplitCamelCase("ChatCompletionsEndpoint"))
	require.Equal(t, "APIKeys", SplitCamelCase("APIKeys"))
	require.Equal(t, "lower", SplitCamelCase("lower"))
}

func TestSectionTitle(t *testing.T) {
	require.Equal(t, "Models Endpoint", SectionTitle("TestModelsEndpoint"))
	require.Equal(t, "Files Endpoint", SectionTitle("tests.test_files.TestFilesEndpoint"))
	require.Equal(t, "", SectionTitle(""))
}

func TestCaseTitle(t *testing.T) {
	require.Equal(t, "list_models_success", CaseTitle("test_list_models_success"))
	require.Equal(t, "chat_completion_different_models", CaseTitle("test_chat_completion_different_models[gpt-4o-mini]"))
	require.Equal(t, "odd[name", CaseTitle("test_odd[name"))
}
