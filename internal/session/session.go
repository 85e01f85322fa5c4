// Package session runs the extraction workflow as a line-oriented
// interactive loop over one workflow.Controller.
package session

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"github.com/google/uuid"

	"github.com/atlasextract/atlas/internal/workflow"
)

// Prompt is printed before each command is read.
const Prompt = "atlas> "

// maxLine bounds one input line; pasted notes can be long.
const maxLine = 1 << 20

// ErrUsage means a command was given the wrong arguments.
var ErrUsage = errors.New("usage")

// Config configures a Session.
type Config struct {
	Controller *workflow.Controller
	In         io.Reader
	Out        io.Writer
	Logger     *slog.Logger
	// ImportWorkbook loads the records saved by the import command.
	// Nil uses workbook.Open.
	ImportWorkbook WorkbookLoader
}

// Session reads commands and drives the controller until quit or EOF.
type Session struct {
	id     string
	ctrl   *workflow.Controller
	in     io.Reader
	logger *slog.Logger
	load   WorkbookLoader

	outMu sync.Mutex
	out   io.Writer
}

// New creates a session with a fresh id.
func New(cfg Config) (*Session, error) {
	if cfg.Controller == nil {
		return nil, fmt.Errorf("controller is required")
	}
	if cfg.In == nil {
		cfg.In = os.Stdin
	}
	if cfg.Out == nil {
		cfg.Out = os.Stdout
	}
	if cfg.ImportWorkbook == nil {
		cfg.ImportWorkbook = openWorkbook
	}
	id := uuid.NewString()
	logger := cfg.Logger
	if logger == nil {
		logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	return &Session{
		id:     id,
		ctrl:   cfg.Controller,
		in:     cfg.In,
		out:    cfg.Out,
		logger: logger.With("session_id", id),
		load:   cfg.ImportWorkbook,
	}, nil
}

// ID identifies the session in logs.
func (s *Session) ID() string {
	return s.id
}

// Notify prints a message between commands, e.g. after a config reload.
func (s *Session) Notify(msg string) {
	s.outMu.Lock()
	defer s.outMu.Unlock()
	fmt.Fprintf(s.out, "\n* %s\n", msg)
}

// Run reads commands until quit, end of input or ctx is done. Command
// errors are printed and the loop continues.
func (s *Session) Run(ctx context.Context) error {
	s.logger.Info("session started")
	defer s.logger.Info("session ended")

	done := make(chan struct{})
	defer close(done)
	lines := make(chan string)
	errc := make(chan error, 1)
	go func() {
		defer close(lines)
		sc := bufio.NewScanner(s.in)
		sc.Buffer(make([]byte, 0, 64*1024), maxLine)
		for sc.Scan() {
			select {
			case lines <- sc.Text():
			case <-done:
				return
			}
		}
		errc <- sc.Err()
	}()

	s.print(func(w io.Writer) { fmt.Fprintln(w, `Type "help" for commands.`) })
	for {
		s.print(func(w io.Writer) { fmt.Fprint(w, Prompt) })
		select {
		case <-ctx.Done():
			s.print(func(w io.Writer) { fmt.Fprintln(w) })
			return nil
		case line, ok := <-lines:
			if !ok {
				s.print(func(w io.Writer) { fmt.Fprintln(w) })
				return <-errc
			}
			quit, err := s.Exec(ctx, line)
			if err != nil {
				s.print(func(w io.Writer) { fmt.Fprintf(w, "Error: %v\n", err) })
			}
			if quit {
				return nil
			}
		}
	}
}

// Exec runs one command line. quit is true for the quit command.
func (s *Session) Exec(ctx context.Context, line string) (quit bool, err error) {
	line = strings.TrimSpace(line)
	if line == "" || strings.HasPrefix(line, "#") {
		return false, nil
	}
	name, args, _ := strings.Cut(line, " ")
	name = strings.ToLower(name)
	args = strings.TrimSpace(args)

	switch name {
	case "quit", "exit":
		return true, nil
	case "help":
		s.print(s.help)
		return false, nil
	}

	cmd, ok := commandIndex[name]
	if !ok {
		return false, fmt.Errorf("unknown command %q (try help)", name)
	}
	s.logger.Debug("command", "name", name)

	s.outMu.Lock()
	defer s.outMu.Unlock()
	if err := cmd.run(ctx, s, args); err != nil {
		if errors.Is(err, ErrUsage) {
			return false, fmt.Errorf("%w: %s", err, cmd.usage)
		}
		return false, err
	}
	return false, nil
}

func (s *Session) print(fn func(io.Writer)) {
	s.outMu.Lock()
	defer s.outMu.Unlock()
	fn(s.out)
}

func (s *Session) help(w io.Writer) {
	fmt.Fprintln(w, "Commands:")
	for _, c := range commands {
		fmt.Fprintf(w, "  %-34s %s\n", c.usage, c.help)
	}
	fmt.Fprintf(w, "  %-34s %s\n", "help", "show this list")
	fmt.Fprintf(w, "  %-34s %s\n", "quit", "leave the session")
}

// readFile loads a document from disk under its base name.
func readFile(path string) (*workflow.File, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read %s: %w", path, err)
	}
	return &workflow.File{Name: filepath.Base(path), Data: data}, nil
}
