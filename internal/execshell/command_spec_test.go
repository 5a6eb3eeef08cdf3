package execshell_test

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/temirov/caddybuild/internal/execshell"
)

type testPathToken string

func TestNewArgumentVectorAcceptsTextualTokens(testInstance *testing.T) {
	spec, specError := execshell.NewArgumentVector("git", testPathToken("/tmp/repo dir"), "status")
	require.NoError(testInstance, specError)
	require.Equal(testInstance, execshell.CommandSpecKindArgumentVector, spec.Kind())
	require.Equal(testInstance, []string{"git", "/tmp/repo dir", "status"}, spec.Arguments())
}

func TestNewArgumentVectorRejectsInvalidTokens(testInstance *testing.T) {
	testCases := []struct {
		name   string
		tokens []any
	}{
		{name: "integer_token", tokens: []any{"echo", 42}},
		{name: "nil_token", tokens: []any{"echo", nil}},
		{name: "slice_token", tokens: []any{[]string{"echo"}}},
	}

	for _, testCase := range testCases {
		testInstance.Run(testCase.name, func(testInstance *testing.T) {
			_, specError := execshell.NewArgumentVector(testCase.tokens...)
			require.Error(testInstance, specError)

			var configurationError execshell.ConfigurationError
			require.True(testInstance, errors.As(specError, &configurationError))
			require.Equal(testInstance, execshell.ConfigurationErrorKindInvalidToken, configurationError.Kind)
		})
	}
}

func TestCommandSpecArgumentsAreCopied(testInstance *testing.T) {
	sourceArguments := []string{"echo", "hello"}
	spec := execshell.ArgumentVector(sourceArguments...)
	sourceArguments[1] = "changed"

	returnedArguments := spec.Arguments()
	returnedArguments[0] = "mutated"

	require.Equal(testInstance, []string{"echo", "hello"}, spec.Arguments())
	require.Equal(testInstance, "echo hello", spec.String())
}

func TestCommandSpecZeroValue(testInstance *testing.T) {
	require.True(testInstance, execshell.CommandSpec{}.IsZero())
	require.False(testInstance, execshell.ShellLine("echo").IsZero())
	require.Equal(testInstance, "shell_line", execshell.ShellLine("echo").Kind().String())
}
