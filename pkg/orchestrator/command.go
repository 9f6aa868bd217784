package orchestrator

import (
	"github.com/core-tools/hsu-stack/pkg/errors"
)

// Command is the closed set of operations the dispatcher accepts
type Command int

const (
	CommandDeploy Command = iota
	CommandBuild
	CommandStart
	CommandStop
	CommandRestart
	CommandStatus
	CommandLogs
	CommandHealth
	CommandClean
	CommandHelp

	commandCount
)

var commandNames = [commandCount]string{
	CommandDeploy:  "deploy",
	CommandBuild:   "build",
	CommandStart:   "start",
	CommandStop:    "stop",
	CommandRestart: "restart",
	CommandStatus:  "status",
	CommandLogs:    "logs",
	CommandHealth:  "health",
	CommandClean:   "clean",
	CommandHelp:    "help",
}

func (c Command) String() string {
	if c < 0 || c >= commandCount {
		return "unknown"
	}
	return commandNames[c]
}

// TakesService reports whether the command accepts a service argument
func (c Command) TakesService() bool {
	switch c {
	case CommandClean, CommandHelp:
		return false
	default:
		return true
	}
}

// ParseCommand maps a command name to its Command
func ParseCommand(name string) (Command, error) {
	for i, commandName := range commandNames {
		if commandName == name {
			return Command(i), nil
		}
	}
	return 0, errors.NewUnknownCommandError(name)
}
