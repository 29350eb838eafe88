// serialterm is a line-oriented terminal for a serial port.
//
// Usage:
//
//	serialterm [flags] <device>
//	serialterm ports
//	serialterm version
//
// Lines typed on stdin are sent with the configured terminator. Lines
// starting with a slash are commands: /ping, /params, /stats, /quit.
package main

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/spf13/pflag"
	"golang.org/x/term"

	serial "github.com/luhtfiimanal/go-serial-terminal"
	"github.com/luhtfiimanal/go-serial-terminal/terminal"
)

const version = "0.3.0"

var (
	parityNames = []string{"none", "even", "odd"}
	flowNames   = []string{"none", "hardware", "software"}
)

func main() {
	if err := run(os.Args[1:], os.Stdin, os.Stdout, os.Stderr); err != nil {
		if errors.Is(err, pflag.ErrHelp) {
			return
		}
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
}

// options is everything the command line can set.
type options struct {
	selection     terminal.Selection
	modemInterval time.Duration
	debug         bool
}

func run(args []string, stdin io.Reader, stdout, stderr io.Writer) error {
	if len(args) > 0 {
		switch args[0] {
		case "ports":
			return listPorts(stdout)
		case "version", "--version":
			fmt.Fprintf(stdout, "serialterm %s\n", version)
			return nil
		}
	}

	opts, err := parseFlags(args, stderr)
	if err != nil {
		return err
	}
	logger := newLogger(stderr, opts.debug)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	out := newConsole(stdout)
	ctl := terminal.NewController(portOpener(opts.modemInterval, logger), out, terminal.Options{Logger: logger})
	return interact(ctx, ctl, opts.selection, stdin, out)
}

func parseFlags(args []string, stderr io.Writer) (options, error) {
	var (
		opts       options
		configPath string
		parity     string
		flow       string
	)
	defaults := terminal.DefaultSelection()

	flagSet := pflag.NewFlagSet("serialterm", pflag.ContinueOnError)
	flagSet.SetOutput(stderr)
	flagSet.StringVar(&configPath, "config", "", "YAML profile with connection parameters")
	flagSet.IntVarP(&opts.selection.BaudRate, "baud", "b", defaults.BaudRate, "baud rate")
	flagSet.IntVar(&opts.selection.DataBits, "data-bits", defaults.DataBits, "data bits (5-8)")
	flagSet.StringVar(&parity, "parity", "none", "parity: none, even or odd")
	flagSet.IntVar(&opts.selection.StopBits, "stop-bits", defaults.StopBits, "stop bits (1 or 2)")
	flagSet.StringVar(&flow, "flow", "none", "flow control: none, hardware or software")
	flagSet.StringVarP(&opts.selection.Terminator, "terminator", "t", defaults.Terminator, "line terminator: none, CR, LF, CR-LF or a 1-2 character literal")
	flagSet.BoolVar(&opts.selection.PerByte, "per-byte", false, "frame the rest of a chunk that carries ENQ/ACK instead of dropping it")
	flagSet.DurationVar(&opts.modemInterval, "modem-interval", 200*time.Millisecond, "control line polling interval (0 disables)")
	flagSet.BoolVar(&opts.debug, "debug", os.Getenv("SERIALTERM_DEBUG") != "", "enable debug logging")
	flagSet.Usage = func() {
		fmt.Fprint(stderr, `serialterm - line-oriented serial terminal

Usage:
  serialterm [flags] <device>
  serialterm ports
  serialterm version

Commands while connected:
  /ping     measure the round trip with an ENQ/ACK probe
  /params   show the connection parameters
  /stats    show traffic counters
  /quit     disconnect and exit

Flags:
`)
		flagSet.PrintDefaults()
	}

	if err := flagSet.Parse(args); err != nil {
		return options{}, err
	}

	sel := defaults
	if configPath != "" {
		loaded, err := terminal.LoadProfile(configPath, defaults)
		if err != nil {
			return options{}, err
		}
		sel = loaded
	}

	// Flags given explicitly win over the profile.
	var err error
	flagSet.Visit(func(f *pflag.Flag) {
		switch f.Name {
		case "baud":
			sel.BaudRate = opts.selection.BaudRate
		case "data-bits":
			sel.DataBits = opts.selection.DataBits
		case "stop-bits":
			sel.StopBits = opts.selection.StopBits
		case "terminator":
			sel.Terminator = opts.selection.Terminator
		case "per-byte":
			sel.PerByte = opts.selection.PerByte
		case "parity":
			sel.Parity, err = choiceIndex("parity", parity, parityNames, err)
		case "flow":
			sel.FlowControl, err = choiceIndex("flow", flow, flowNames, err)
		}
	})
	if err != nil {
		return options{}, err
	}

	switch flagSet.NArg() {
	case 0:
		if sel.Device == "" {
			flagSet.Usage()
			return options{}, errors.New("no device given")
		}
	case 1:
		sel.Device = flagSet.Arg(0)
	default:
		return options{}, fmt.Errorf("unexpected argument: %s", flagSet.Arg(1))
	}

	opts.selection = sel
	return opts, nil
}

// choiceIndex maps a named choice to its index. It keeps an earlier error.
func choiceIndex(flag, value string, names []string, prev error) (int, error) {
	if prev != nil {
		return 0, prev
	}
	for i, name := range names {
		if strings.EqualFold(value, name) {
			return i, nil
		}
	}
	return 0, fmt.Errorf("--%s: %q is not one of %s", flag, value, strings.Join(names, ", "))
}

// newLogger writes text records to a terminal and JSON records otherwise.
func newLogger(w io.Writer, debug bool) *slog.Logger {
	level := slog.LevelWarn
	if debug {
		level = slog.LevelDebug
	}
	handlerOptions := &slog.HandlerOptions{Level: level}
	if f, ok := w.(*os.File); ok && term.IsTerminal(int(f.Fd())) {
		return slog.New(slog.NewTextHandler(w, handlerOptions))
	}
	return slog.New(slog.NewJSONHandler(w, handlerOptions))
}

func listPorts(w io.Writer) error {
	ports, err := serial.ListPorts()
	if err != nil {
		return err
	}
	if len(ports) == 0 {
		fmt.Fprintln(w, "no serial ports found")
		return nil
	}
	for _, p := range ports {
		fmt.Fprintln(w, p)
	}
	return nil
}

// interact connects, then relays stdin lines until /quit, end of input or
// cancellation of ctx.
func interact(ctx context.Context, ctl *terminal.Controller, sel terminal.Selection, stdin io.Reader, out *console) error {
	cfg, err := ctl.Configure(sel)
	if err != nil {
		return err
	}
	if err := ctl.Connect(); err != nil {
		return err
	}
	out.status("connected: %s", cfg.Summary())

	lines := make(chan string)
	go func() {
		defer close(lines)
		scanner := bufio.NewScanner(stdin)
		for scanner.Scan() {
			select {
			case lines <- scanner.Text():
			case <-ctx.Done():
				return
			}
		}
	}()

loop:
	for {
		select {
		case <-ctx.Done():
			break loop
		case line, ok := <-lines:
			if !ok {
				break loop
			}
			if quit := handleInput(ctl, line, out); quit {
				break loop
			}
		}
	}

	if stats, err := ctl.Stats(); err == nil {
		out.stats(stats)
	}
	return ctl.Disconnect()
}

// handleInput runs a slash command or sends the line. It reports whether
// the user asked to quit.
func handleInput(ctl *terminal.Controller, line string, out *console) bool {
	switch strings.TrimSpace(line) {
	case "/quit":
		return true
	case "/ping":
		if err := ctl.Ping(); err != nil {
			out.status("ping failed: %v", err)
		}
	case "/params":
		if cfg, ok := ctl.Parameters(); ok {
			out.status("%s", cfg.Summary())
		}
	case "/stats":
		if stats, err := ctl.Stats(); err == nil {
			out.stats(stats)
		}
	default:
		if err := ctl.Send(line); err != nil {
			out.status("send failed: %v", err)
		}
	}
	return false
}
