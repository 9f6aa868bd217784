package errors

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDomainError_Creation(t *testing.T) {
	cause := errors.New("underlying error")

	err := NewBuildFailedError("backend", cause)

	assert.Equal(t, ErrorTypeBuild, err.Type)
	assert.Equal(t, CodeBuildFailed, err.Code)
	assert.Equal(t, "build of backend failed", err.Message)
	assert.Equal(t, cause, err.Cause)
	assert.Equal(t, "backend", err.Context["service"])
}

func TestDomainError_ErrorMessage(t *testing.T) {
	tests := []struct {
		name     string
		error    *DomainError
		expected string
	}{
		{
			name:     "error without cause",
			error:    NewMissingKeyError("OPENAI_API_KEY"),
			expected: "validation: required key OPENAI_API_KEY is not set",
		},
		{
			name:     "error with cause",
			error:    NewToolNotInstalledError("docker", errors.New("not in PATH")),
			expected: "prerequisite: docker is not installed: not in PATH",
		},
		{
			name:     "unknown command",
			error:    NewUnknownCommandError("foo"),
			expected: `usage: unknown command "foo"`,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, tt.error.Error())
		})
	}
}

func TestDomainError_TypeChecking(t *testing.T) {
	placeholder := NewPlaceholderValueError("API_KEY")
	engine := NewEngineUnreachableError("docker", nil)

	assert.True(t, IsValidationError(placeholder))
	assert.False(t, IsPrerequisiteError(placeholder))
	assert.True(t, IsPrerequisiteError(engine))
	assert.False(t, IsValidationError(engine))

	wrapped := fmt.Errorf("stage failed: %w", placeholder)
	assert.True(t, IsValidationError(wrapped))
	assert.True(t, HasCode(wrapped, CodePlaceholderValue))
	assert.False(t, HasCode(wrapped, CodeMissingKey))
	assert.Equal(t, CodePlaceholderValue, CodeOf(wrapped))
	assert.Equal(t, CodeNone, CodeOf(errors.New("plain")))
}

func TestDomainError_Is(t *testing.T) {
	err := NewMissingKeyError("A")

	assert.True(t, errors.Is(err, &DomainError{Type: ErrorTypeValidation}))
	assert.True(t, errors.Is(err, &DomainError{Type: ErrorTypeValidation, Code: CodeMissingKey}))
	assert.False(t, errors.Is(err, &DomainError{Type: ErrorTypeValidation, Code: CodePlaceholderValue}))
	assert.False(t, errors.Is(err, &DomainError{Type: ErrorTypeBuild}))
}

func TestCodeOf_PrefersOutermostCode(t *testing.T) {
	inner := NewEngineUnreachableError("docker", nil)
	outer := NewDeployFailedError("all", inner)

	assert.Equal(t, CodeDeployFailed, CodeOf(outer))
	assert.True(t, HasCode(outer, CodeEngineUnreachable))
}

func TestErrorCollection(t *testing.T) {
	collection := NewErrorCollection()
	require.NoError(t, collection.ToError())

	collection.Add(nil)
	assert.False(t, collection.HasErrors())

	collection.Add(NewMissingKeyError("A"))
	assert.Equal(t, "validation: required key A is not set", collection.Error())

	collection.Add(NewMissingKeyError("B"))
	require.Error(t, collection.ToError())
	assert.Contains(t, collection.Error(), "2 errors occurred")
}
