package prereq

import (
	"context"
	stderrors "errors"
	"testing"

	"github.com/core-tools/hsu-stack/pkg/errors"
	"github.com/core-tools/hsu-stack/pkg/logging"
	"github.com/core-tools/hsu-stack/pkg/platform/platformtest"

	"github.com/stretchr/testify/assert"
)

func TestChecker_Check(t *testing.T) {
	tests := []struct {
		name         string
		installedErr error
		reachableErr error
		expectedCode errors.ErrorCode
		expectedOps  []string
	}{
		{
			name:        "satisfied",
			expectedOps: []string{"installed", "reachable"},
		},
		{
			name:         "tool_not_installed",
			installedErr: stderrors.New("executable file not found in $PATH"),
			expectedCode: errors.CodeToolNotInstalled,
			expectedOps:  []string{"installed"},
		},
		{
			name:         "engine_unreachable",
			reachableErr: stderrors.New("Cannot connect to the Docker daemon"),
			expectedCode: errors.CodeEngineUnreachable,
			expectedOps:  []string{"installed", "reachable"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			fake := platformtest.NewFake()
			fake.InstalledErr = tt.installedErr
			fake.ReachableErr = tt.reachableErr

			err := NewChecker(fake, logging.NewNopLogger()).Check(context.Background())

			assert.Equal(t, tt.expectedOps, fake.Ops())
			if tt.expectedCode == errors.CodeNone {
				assert.NoError(t, err)
				return
			}
			assert.True(t, errors.IsPrerequisiteError(err))
			assert.Equal(t, tt.expectedCode, errors.CodeOf(err))
		})
	}
}

func TestChecker_Cancelled(t *testing.T) {
	fake := platformtest.NewFake()
	fake.InstalledErr = context.Canceled

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	err := NewChecker(fake, logging.NewNopLogger()).Check(ctx)
	assert.True(t, errors.IsCancelledError(err))
}
