// Package console implements the iocctl commands: inspection of a
// container's bindings, aliases and state, plus clearing the file cache.
//
//	k := console.NewKernel(c, os.Stdout)
//	if err := k.Run(os.Args[1:]); err != nil { os.Exit(1) }
package console

import (
	"errors"
	"fmt"
	"io"
	"sort"
	"strings"

	"github.com/charmbracelet/lipgloss"

	"github.com/km-arc/go-ioc/framework/ai"
	"github.com/km-arc/go-ioc/framework/container"
)

var (
	// ErrUnknownCommand is returned by Run for a command that is not registered.
	ErrUnknownCommand = errors.New("unknown command")

	// ErrUsage is returned when a command is missing arguments.
	ErrUsage = errors.New("usage")

	// ErrNotBound is returned by explain:service for an unbound abstract.
	ErrNotBound = errors.New("service is not bound")

	// ErrNotAlias is returned by alias:explain for a name with no alias edge.
	ErrNotAlias = errors.New("not an alias")
)

// Command is one console command.
type Command struct {
	Name        string
	Usage       string
	Description string
	MinArgs     int
	Run         func(k *Kernel, args []string) error
}

// Kernel dispatches console commands against a container.
type Kernel struct {
	c       *container.Container
	out     io.Writer
	adapter ai.Adapter

	commands map[string]Command
	styles   styles
}

type styles struct {
	title lipgloss.Style
	label lipgloss.Style
	ok    lipgloss.Style
	bad   lipgloss.Style
	faint lipgloss.Style
}

// Option configures a Kernel.
type Option func(*Kernel)

// WithAdapter lets explain:service and alias:suggest consult an AI adapter.
func WithAdapter(a ai.Adapter) Option {
	return func(k *Kernel) { k.adapter = a }
}

// NewKernel creates a Kernel writing to out with the built-in commands
// registered. Styling is dropped automatically when out is not a terminal.
func NewKernel(c *container.Container, out io.Writer, opts ...Option) *Kernel {
	r := lipgloss.NewRenderer(out)
	k := &Kernel{
		c:        c,
		out:      out,
		commands: make(map[string]Command),
		styles: styles{
			title: r.NewStyle().Bold(true).Foreground(lipgloss.Color("#89b4fa")),
			label: r.NewStyle().Foreground(lipgloss.Color("#cdd6f4")),
			ok:    r.NewStyle().Foreground(lipgloss.Color("#a6e3a1")),
			bad:   r.NewStyle().Foreground(lipgloss.Color("#f38ba8")),
			faint: r.NewStyle().Foreground(lipgloss.Color("#7f849c")),
		},
	}
	for _, opt := range opts {
		opt(k)
	}
	for _, cmd := range builtins() {
		k.Register(cmd)
	}
	return k
}

// Register adds or replaces a command.
func (k *Kernel) Register(cmd Command) {
	k.commands[cmd.Name] = cmd
}

// Commands returns the registered commands sorted by name.
func (k *Kernel) Commands() []Command {
	out := make([]Command, 0, len(k.commands))
	for _, cmd := range k.commands {
		out = append(out, cmd)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out
}

// Run executes args[0] with the remaining args. No args, "help" and
// "list" print the command list.
func (k *Kernel) Run(args []string) error {
	if len(args) == 0 || args[0] == "help" || args[0] == "list" {
		k.printCommands()
		return nil
	}

	cmd, ok := k.commands[args[0]]
	if !ok {
		k.printf("%s\n\n", k.styles.bad.Render("Unknown command ["+args[0]+"]."))
		k.printCommands()
		return fmt.Errorf("%w: %s", ErrUnknownCommand, args[0])
	}

	rest := args[1:]
	if len(rest) < cmd.MinArgs {
		k.printf("Usage: iocctl %s %s\n", cmd.Name, cmd.Usage)
		return fmt.Errorf("%w: iocctl %s %s", ErrUsage, cmd.Name, cmd.Usage)
	}
	return cmd.Run(k, rest)
}

// Container returns the container commands operate on.
func (k *Kernel) Container() *container.Container { return k.c }

// Out returns the writer commands print to.
func (k *Kernel) Out() io.Writer { return k.out }

func (k *Kernel) printCommands() {
	k.printf("%s\n", k.styles.title.Render("Available commands:"))
	for _, cmd := range k.Commands() {
		usage := strings.TrimSpace(cmd.Name + " " + cmd.Usage)
		k.printf("  %-32s %s\n", usage, k.styles.faint.Render(cmd.Description))
	}
}

func (k *Kernel) printf(format string, args ...any) {
	fmt.Fprintf(k.out, format, args...)
}

func (k *Kernel) rule() {
	k.printf("%s\n", strings.Repeat("-", 50))
}
