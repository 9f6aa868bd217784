package orchestrator

import (
	stderrors "errors"
	"fmt"

	"github.com/core-tools/hsu-stack/pkg/errors"
)

// stageError names the pipeline stage an error aborted
type stageError struct {
	stage string
	err   error
}

func (e *stageError) Error() string {
	return fmt.Sprintf("%s failed: %v", e.stage, e.err)
}

func (e *stageError) Unwrap() error {
	return e.err
}

// contextValue finds key in the context of any DomainError in the chain
func contextValue(err error, key string) string {
	for err != nil {
		var domainErr *errors.DomainError
		if !stderrors.As(err, &domainErr) {
			return ""
		}
		if value, ok := domainErr.Context[key]; ok {
			return fmt.Sprint(value)
		}
		err = domainErr.Cause
	}
	return ""
}

// hint returns the remediation printed under a failure
func (d *Dispatcher) hint(err error) string {
	switch errors.CodeOf(err) {
	case errors.CodeToolNotInstalled:
		return fmt.Sprintf("install %s and make sure it is on PATH", contextValue(err, "tool"))
	case errors.CodeEngineUnreachable:
		return "start the container engine (is the Docker daemon running?) and retry"
	case errors.CodeMissingConfigFile:
		return fmt.Sprintf("edit %s, set the required keys and run the command again", contextValue(err, "path"))
	case errors.CodeMissingKey, errors.CodePlaceholderValue:
		return fmt.Sprintf("set a real value for %s in %s", contextValue(err, "key"), contextValue(err, "path"))
	case errors.CodeInvalidValue:
		return fmt.Sprintf("fix the value of %s in %s", contextValue(err, "key"), contextValue(err, "path"))
	case errors.CodeBuildFailed:
		return fmt.Sprintf("check the build output above, then retry with '%s build %s'", d.program, contextValue(err, "service"))
	case errors.CodeDeployFailed:
		return fmt.Sprintf("check logs with '%s logs'", d.program)
	case errors.CodeHealthTimeout:
		return fmt.Sprintf("check logs with '%s logs <service>'", d.program)
	case errors.CodeUnknownService:
		return fmt.Sprintf("valid services: %v", d.services)
	case errors.CodeUnknownCommand:
		return fmt.Sprintf("run '%s help' for usage", d.program)
	}

	switch {
	case errors.IsCancelledError(err):
		return "interrupted"
	case errors.IsPlatformError(err):
		if command := contextValue(err, "command"); command != "" {
			return fmt.Sprintf("check that '%s' works from this directory", command)
		}
	}
	return ""
}
