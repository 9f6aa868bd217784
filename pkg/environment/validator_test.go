package environment

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/core-tools/hsu-stack/pkg/config"
	"github.com/core-tools/hsu-stack/pkg/errors"
	"github.com/core-tools/hsu-stack/pkg/logging"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func baseOptions(dir string) Options {
	return Options{
		Path:         filepath.Join(dir, ".env"),
		RequiredKeys: []string{"OPENAI_API_KEY"},
		Placeholders: []string{"your_openai_api_key_here"},
		Typed: map[string]config.ValueKind{
			"DEBUG":         config.ValueKindBool,
			"MAX_FILE_SIZE": config.ValueKindInt,
			"UPLOAD_DIR":    config.ValueKindPath,
		},
	}
}

func writeEnv(t *testing.T, path, content string) {
	t.Helper()
	require.NoError(t, os.WriteFile(path, []byte(content), 0600))
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name         string
		content      string
		expectedCode errors.ErrorCode
	}{
		{
			name:    "valid",
			content: "OPENAI_API_KEY=sk-live-123\nDEBUG=true\nMAX_FILE_SIZE=10485760\nUPLOAD_DIR=./uploads\n",
		},
		{
			name:    "optional_settings_absent",
			content: "OPENAI_API_KEY=sk-live-123\n",
		},
		{
			name:         "missing_key",
			content:      "DEBUG=false\n",
			expectedCode: errors.CodeMissingKey,
		},
		{
			name:         "empty_value_counts_as_missing",
			content:      "OPENAI_API_KEY=\n",
			expectedCode: errors.CodeMissingKey,
		},
		{
			name:         "placeholder",
			content:      "OPENAI_API_KEY=your_openai_api_key_here\n",
			expectedCode: errors.CodePlaceholderValue,
		},
		{
			name:         "placeholder_with_whitespace",
			content:      "OPENAI_API_KEY=\"  your_openai_api_key_here \"\n",
			expectedCode: errors.CodePlaceholderValue,
		},
		{
			name:    "placeholder_comparison_is_case_sensitive",
			content: "OPENAI_API_KEY=YOUR_OPENAI_API_KEY_HERE\n",
		},
		{
			name:         "bad_bool",
			content:      "OPENAI_API_KEY=sk-live-123\nDEBUG=maybe\n",
			expectedCode: errors.CodeInvalidValue,
		},
		{
			name:         "non_positive_int",
			content:      "OPENAI_API_KEY=sk-live-123\nMAX_FILE_SIZE=0\n",
			expectedCode: errors.CodeInvalidValue,
		},
		{
			name:         "non_numeric_int",
			content:      "OPENAI_API_KEY=sk-live-123\nMAX_FILE_SIZE=ten\n",
			expectedCode: errors.CodeInvalidValue,
		},
		{
			name:         "blank_path",
			content:      "OPENAI_API_KEY=sk-live-123\nUPLOAD_DIR=\"   \"\n",
			expectedCode: errors.CodeInvalidValue,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			options := baseOptions(t.TempDir())
			writeEnv(t, options.Path, tt.content)

			err := NewValidator(options, logging.NewNopLogger()).Validate()

			if tt.expectedCode == errors.CodeNone {
				assert.NoError(t, err)
				return
			}
			require.Error(t, err)
			assert.True(t, errors.IsValidationError(err))
			assert.Equal(t, tt.expectedCode, errors.CodeOf(err))
		})
	}
}

func TestValidate_MissingFileWithoutTemplate(t *testing.T) {
	options := baseOptions(t.TempDir())

	err := NewValidator(options, logging.NewNopLogger()).Validate()

	require.Error(t, err)
	assert.Equal(t, errors.CodeMissingConfigFile, errors.CodeOf(err))
	assert.NoFileExists(t, options.Path)
}

func TestValidate_MaterializesTemplateOnce(t *testing.T) {
	dir := t.TempDir()
	options := baseOptions(dir)
	options.DefaultTemplate = config.DefaultEnvTemplate
	validator := NewValidator(options, logging.NewNopLogger())

	err := validator.Validate()
	require.Error(t, err)
	assert.Equal(t, errors.CodeMissingConfigFile, errors.CodeOf(err))
	require.FileExists(t, options.Path)

	data, err := os.ReadFile(options.Path)
	require.NoError(t, err)
	assert.Equal(t, config.DefaultEnvTemplate, data)

	// The materialized file still holds the placeholder
	err = validator.Validate()
	require.Error(t, err)
	assert.Equal(t, errors.CodePlaceholderValue, errors.CodeOf(err))

	// Removing the file does not trigger a second materialization
	require.NoError(t, os.Remove(options.Path))
	err = validator.Validate()
	require.Error(t, err)
	assert.Equal(t, errors.CodeMissingConfigFile, errors.CodeOf(err))
	assert.NoFileExists(t, options.Path)
}

func TestValidate_TemplateFilePreferredOverDefault(t *testing.T) {
	dir := t.TempDir()
	options := baseOptions(dir)
	options.TemplatePath = filepath.Join(dir, ".env.example")
	options.DefaultTemplate = config.DefaultEnvTemplate
	writeEnv(t, options.TemplatePath, "OPENAI_API_KEY=sk-from-template\n")

	validator := NewValidator(options, logging.NewNopLogger())
	err := validator.Validate()
	require.Error(t, err)
	assert.Equal(t, errors.CodeMissingConfigFile, errors.CodeOf(err))

	data, err := os.ReadFile(options.Path)
	require.NoError(t, err)
	assert.Equal(t, "OPENAI_API_KEY=sk-from-template\n", string(data))

	assert.NoError(t, validator.Validate())
}

func TestValidate_ProcessEnvironment(t *testing.T) {
	processEnv := map[string]string{"OPENAI_API_KEY": "sk-process", "DEBUG": "1"}
	lookup := func(key string) (string, bool) {
		value, ok := processEnv[key]
		return value, ok
	}

	t.Run("fallback_when_no_file", func(t *testing.T) {
		options := baseOptions(t.TempDir())
		options.UseProcessEnv = true
		validator := NewValidator(options, logging.NewNopLogger())
		validator.lookupEnv = lookup

		assert.NoError(t, validator.Validate())
		assert.NoFileExists(t, options.Path)
	})

	t.Run("fills_keys_missing_from_file", func(t *testing.T) {
		options := baseOptions(t.TempDir())
		options.UseProcessEnv = true
		writeEnv(t, options.Path, "MAX_FILE_SIZE=42\n")
		validator := NewValidator(options, logging.NewNopLogger())
		validator.lookupEnv = lookup

		assert.NoError(t, validator.Validate())
	})

	t.Run("ignored_when_disabled", func(t *testing.T) {
		options := baseOptions(t.TempDir())
		writeEnv(t, options.Path, "MAX_FILE_SIZE=42\n")
		validator := NewValidator(options, logging.NewNopLogger())
		validator.lookupEnv = lookup

		err := validator.Validate()
		assert.Equal(t, errors.CodeMissingKey, errors.CodeOf(err))
	})
}

func TestValidate_ProcessEnvironmentWithConfiguredTemplate(t *testing.T) {
	newValidator := func(t *testing.T, processEnv map[string]string) (*Validator, Options) {
		stackConfig, err := config.LoadDefaultConfig()
		require.NoError(t, err)
		stackConfig.Platform.ProjectDir = t.TempDir()
		stackConfig.Environment.UseProcessEnv = true

		options := OptionsFromConfig(stackConfig, "")
		validator := NewValidator(options, logging.NewNopLogger())
		validator.lookupEnv = func(key string) (string, bool) {
			value, ok := processEnv[key]
			return value, ok
		}
		return validator, options
	}

	t.Run("exported_keys_skip_materialization", func(t *testing.T) {
		validator, options := newValidator(t, map[string]string{"OPENAI_API_KEY": "sk-real"})

		assert.NoError(t, validator.Validate())
		assert.NoError(t, validator.Validate())
		assert.NoFileExists(t, options.Path)
	})

	t.Run("exported_value_replaces_file_placeholder", func(t *testing.T) {
		validator, options := newValidator(t, map[string]string{"OPENAI_API_KEY": "sk-real"})
		writeEnv(t, options.Path, string(config.DefaultEnvTemplate))

		assert.NoError(t, validator.Validate())
	})

	t.Run("exported_placeholder_still_materializes", func(t *testing.T) {
		validator, options := newValidator(t, map[string]string{"OPENAI_API_KEY": "changeme"})

		err := validator.Validate()
		assert.Equal(t, errors.CodeMissingConfigFile, errors.CodeOf(err))
		assert.FileExists(t, options.Path)

		err = validator.Validate()
		assert.Equal(t, errors.CodePlaceholderValue, errors.CodeOf(err))
	})

	t.Run("nothing_exported_materializes", func(t *testing.T) {
		validator, options := newValidator(t, nil)

		err := validator.Validate()
		assert.Equal(t, errors.CodeMissingConfigFile, errors.CodeOf(err))
		assert.FileExists(t, options.Path)
	})

	t.Run("file_value_wins_over_exported_value", func(t *testing.T) {
		validator, options := newValidator(t, map[string]string{"OPENAI_API_KEY": "changeme"})
		writeEnv(t, options.Path, "OPENAI_API_KEY=sk-file\n")

		assert.NoError(t, validator.Validate())
	})
}

// Validation succeeds exactly when every required key is present, non-empty and not a placeholder.
func TestValidate_SucceedsIffKeysAreUsable(t *testing.T) {
	values := []struct {
		line   string
		usable bool
	}{
		{line: "", usable: false},
		{line: "OPENAI_API_KEY=\n", usable: false},
		{line: "OPENAI_API_KEY=your_openai_api_key_here\n", usable: false},
		{line: "OPENAI_API_KEY=changeme\n", usable: false},
		{line: "OPENAI_API_KEY=sk-1\n", usable: true},
	}
	secrets := []struct {
		line   string
		usable bool
	}{
		{line: "", usable: false},
		{line: "SECRET=changeme\n", usable: false},
		{line: "SECRET=s3cr3t\n", usable: true},
	}

	for _, first := range values {
		for _, second := range secrets {
			options := baseOptions(t.TempDir())
			options.RequiredKeys = []string{"OPENAI_API_KEY", "SECRET"}
			options.Placeholders = []string{"your_openai_api_key_here", "changeme"}
			writeEnv(t, options.Path, "# settings\n"+first.line+second.line)

			err := NewValidator(options, logging.NewNopLogger()).Validate()
			assert.Equal(t, first.usable && second.usable, err == nil, "content: %q %q", first.line, second.line)
		}
	}
}

func TestOptionsFromConfig(t *testing.T) {
	stackConfig, err := config.LoadDefaultConfig()
	require.NoError(t, err)
	stackConfig.Platform.ProjectDir = "/srv/app"

	options := OptionsFromConfig(stackConfig, "")
	assert.Equal(t, "/srv/app/.env", options.Path)
	assert.Equal(t, "/srv/app/.env.example", options.TemplatePath)
	assert.Equal(t, []string{"OPENAI_API_KEY"}, options.RequiredKeys)
	assert.NotEmpty(t, options.DefaultTemplate)

	override := OptionsFromConfig(stackConfig, "custom.env")
	assert.Equal(t, "custom.env", override.Path)
}
