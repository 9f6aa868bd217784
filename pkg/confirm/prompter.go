package confirm

import (
	"bufio"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/core-tools/hsu-stack/pkg/errors"
	"github.com/core-tools/hsu-stack/pkg/logging"

	"github.com/mattn/go-isatty"
)

type Options struct {
	// AssumeYes answers every question with yes without prompting
	AssumeYes bool
	In        io.Reader
	Out       io.Writer
}

// Prompter asks the operator to confirm destructive operations
type Prompter struct {
	options    Options
	isTerminal func() bool
	logger     logging.Logger
}

func NewPrompter(options Options, logger logging.Logger) *Prompter {
	if options.In == nil {
		options.In = os.Stdin
	}
	if options.Out == nil {
		options.Out = os.Stdout
	}
	return &Prompter{
		options:    options,
		isTerminal: stdinIsTerminal,
		logger:     logger,
	}
}

func stdinIsTerminal() bool {
	fd := os.Stdin.Fd()
	return isatty.IsTerminal(fd) || isatty.IsCygwinTerminal(fd)
}

// Confirm returns true only for an explicit yes. Without a terminal to ask on
// the answer is no.
func (p *Prompter) Confirm(question string) (bool, error) {
	if p.options.AssumeYes {
		p.logger.Infof("Confirmation assumed, question: %s", question)
		return true, nil
	}
	if !p.isTerminal() {
		p.logger.Warnf("Stdin is not a terminal, declining, question: %s", question)
		return false, nil
	}

	fmt.Fprintf(p.options.Out, "%s [y/N]: ", question)

	line, err := bufio.NewReader(p.options.In).ReadString('\n')
	if err != nil && err != io.EOF {
		return false, errors.NewIOError("failed to read confirmation", err)
	}

	switch strings.ToLower(strings.TrimSpace(line)) {
	case "y", "yes":
		return true, nil
	default:
		return false, nil
	}
}
