// Package command builds the coredbg CLI: flag parsing, interpreter
// dialect selection, and engine logging, mirroring the teacher's own
// cmd/hlb/command package.
package command

import (
	"fmt"
	"io"
	"io/ioutil"
	"log"
	"os"

	isatty "github.com/mattn/go-isatty"
	cli "github.com/urfave/cli/v2"

	"github.com/coredbg/coredbg/debugger"
	"github.com/coredbg/coredbg/ioh"
	rpccli "github.com/coredbg/coredbg/rpc/cli"
	"github.com/coredbg/coredbg/rpc/dap"
	"github.com/coredbg/coredbg/rpc/mi"
	"github.com/coredbg/coredbg/runtime/fake"
)

// Version is overwritten at build time via -ldflags; defaults match the
// teacher's "dev"/"unknown" convention for a --buildinfo request with no
// VCS data available.
var (
	Version   = "dev"
	Commit    = "unknown"
	BuildDate = "unknown"
)

func App() *cli.App {
	app := cli.NewApp()
	app.Name = "coredbg"
	app.Version = Version
	app.Usage = "a managed-code debugger core"
	app.Description = "attaches to or launches a managed process and drives it over the cli, mi, or vscode (DAP) dialect"
	app.Flags = []cli.Flag{
		&cli.IntFlag{
			Name:  "attach",
			Usage: "attach to an already-running process id instead of launching",
		},
		&cli.StringFlag{
			Name:  "interpreter",
			Usage: "wire dialect to speak on stdin/stdout or --server: cli, mi, or vscode",
			Value: "cli",
		},
		&cli.StringFlag{
			Name:  "command",
			Usage: "file of newline-separated cli commands to run at startup (cli only)",
		},
		&cli.StringSliceFlag{
			Name:  "ex",
			Usage: "a single cli command to run at startup, may be repeated (cli only)",
		},
		&cli.StringFlag{
			Name:        "engineLogging",
			Usage:       "log every inbound/outbound protocol message to path",
			DefaultText: "disabled",
		},
		&cli.IntFlag{
			Name:  "server",
			Usage: "listen on this TCP port for a single connection instead of using stdio",
			Value: 4711,
		},
		&cli.StringFlag{
			Name:  "log",
			Usage: "engine diagnostic log type (accepted and ignored)",
		},
		&cli.BoolFlag{
			Name:  "run",
			Usage: "continue the debuggee immediately after attach/launch",
		},
		&cli.BoolFlag{
			Name:  "hot-reload",
			Usage: "enable hot reload of edited source (accepted, not yet implemented)",
		},
		&cli.BoolFlag{
			Name:  "interop-debugging",
			Usage: "enable mixed-mode native/managed stepping (accepted, not yet implemented)",
		},
		&cli.BoolFlag{
			Name:  "buildinfo",
			Usage: "print version, commit, and build date, then exit",
		},
	}
	app.Action = runAction
	return app
}

func runAction(c *cli.Context) error {
	if c.Bool("buildinfo") {
		fmt.Printf("coredbg %s (%s) built %s\n", Version, Commit, BuildDate)
		return nil
	}

	if err := configureEngineLogging(c.String("engineLogging")); err != nil {
		return err
	}

	rt := fake.New(fake.DemoProgram())
	dbg := debugger.New(rt)
	defer dbg.Close()

	var err error
	if c.IsSet("attach") {
		err = dbg.Attach(c.Int("attach"))
	} else {
		path, args := programArgs(c.Args().Slice())
		err = dbg.Launch(path, args, os.Environ())
	}
	if err != nil {
		return fmt.Errorf("attach/launch failed: %w", err)
	}

	if c.Bool("run") {
		// Attach/Launch leave the facade Running, where its Continue
		// reports a wrong-state error, so resume the runtime directly.
		if err := rt.Continue(); err != nil {
			return err
		}
	}

	in, out, err := transport(c)
	if err != nil {
		return err
	}

	switch c.String("interpreter") {
	case "mi":
		return mi.NewSession(dbg, out).Serve(c.Context, in)
	case "vscode":
		return dap.NewSession(dbg, in, out).Serve(c.Context)
	case "cli":
		return runCLI(c, dbg, in, out)
	default:
		return fmt.Errorf("unrecognized --interpreter %q: want cli, mi, or vscode", c.String("interpreter"))
	}
}

// programArgs splits the trailing `-- <program> [args...]` operands, the
// form urfave/cli leaves in c.Args() once its own flags are consumed.
func programArgs(rest []string) (path string, args []string) {
	if len(rest) == 0 {
		return "", nil
	}
	return rest[0], rest[1:]
}

// transport picks stdio or a single accepted TCP connection on --server,
// matching the native contract's "listen, accept one connection" mode.
func transport(c *cli.Context) (io.ReadCloser, io.Writer, error) {
	if !c.IsSet("server") {
		return os.Stdin, os.Stdout, nil
	}
	h, err := ioh.ListenSocket(c.Int("server"))
	if err != nil {
		return nil, nil, fmt.Errorf("--server: %w", err)
	}
	return h.File(), h.File(), nil
}

func runCLI(c *cli.Context, dbg debugger.Facade, in io.ReadCloser, out io.Writer) error {
	color := isatty.IsTerminal(os.Stdout.Fd())
	sess := rpccli.NewSession(dbg, out, color)

	if path := c.String("command"); path != "" {
		if err := sess.LoadScript(path); err != nil {
			return err
		}
	}
	for _, ex := range c.StringSlice("ex") {
		sess.QueueStartupCommand(ex)
	}

	return sess.Serve(c.Context, in, out)
}

// configureEngineLogging mirrors rpc/dapserver/server.go's
// log.SetOutput(ioutil.Discard) default, opening path when engineLogging
// names one.
func configureEngineLogging(spec string) error {
	if spec == "" {
		log.SetOutput(ioutil.Discard)
		return nil
	}
	if spec == "true" {
		log.SetOutput(os.Stderr)
		return nil
	}
	f, err := os.OpenFile(spec, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0644)
	if err != nil {
		return fmt.Errorf("engineLogging: %w", err)
	}
	log.SetOutput(f)
	return nil
}
