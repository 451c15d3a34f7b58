package main

import (
	"encoding/hex"
	"flag"
	"fmt"
	"io"
	"os"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"golang.org/x/term"

	jsbridge "github.com/wippyai/js-bridge"
	"github.com/wippyai/js-bridge/engine"
	"github.com/wippyai/js-bridge/jsvalue"
	"github.com/wippyai/js-bridge/runtime"
)

type options struct {
	script  string
	eval    string
	mode    jsbridge.MarshalMode
	stack   int
	console bool
	heap    bool
	wire    bool
	verbose bool
}

func main() {
	var (
		scriptFile  = flag.String("script", "", "Path to a script file to run")
		eval        = flag.String("e", "", "Script source to evaluate")
		mode        = flag.String("mode", "handle", "How returned objects are marshaled (handle|dict)")
		stack       = flag.Int("stack", 0, "Maximum call stack size (0 for the engine default)")
		console     = flag.Bool("console", true, "Expose console to scripts")
		heap        = flag.Bool("heap", false, "Print heap statistics after running")
		wire        = flag.Bool("wire", false, "Dump the result in the tagged value wire format")
		verbose     = flag.Bool("v", false, "Verbose engine logging")
		interactive = flag.Bool("i", false, "Interactive mode with TUI")
	)
	flag.Parse()

	mm, err := jsbridge.ParseMarshalMode(*mode)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(2)
	}
	opts := options{
		script:  *scriptFile,
		eval:    *eval,
		mode:    mm,
		stack:   *stack,
		console: *console,
		heap:    *heap,
		wire:    *wire,
		verbose: *verbose,
	}

	if opts.script == "" && opts.eval == "" && !*interactive {
		if term.IsTerminal(int(os.Stdin.Fd())) {
			*interactive = true
		} else {
			src, err := io.ReadAll(os.Stdin)
			if err != nil {
				fmt.Fprintf(os.Stderr, "Error: read stdin: %v\n", err)
				os.Exit(1)
			}
			opts.eval = string(src)
		}
	}

	if *interactive {
		if err := runInteractive(opts); err != nil {
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
			os.Exit(1)
		}
		return
	}

	if err := run(os.Stdout, os.Stderr, opts); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func newLogger(w io.Writer, verbose bool) *zap.Logger {
	level := zapcore.InfoLevel
	if verbose {
		level = zapcore.DebugLevel
	}
	enc := zap.NewDevelopmentEncoderConfig()
	enc.TimeKey = ""
	core := zapcore.NewCore(zapcore.NewConsoleEncoder(enc), zapcore.AddSync(w), level)
	return zap.New(core)
}

func newRuntime(opts options, log *zap.Logger) (*runtime.Runtime, error) {
	return runtime.New(
		engine.WithLogger(log),
		engine.WithMarshalMode(opts.mode),
		engine.WithMaxCallStackSize(opts.stack),
		engine.WithConsole(opts.console),
	)
}

func run(stdout, stderr io.Writer, opts options) error {
	log := newLogger(stderr, opts.verbose)
	defer func() { _ = log.Sync() }()

	source, name := opts.eval, "<eval>"
	if opts.script != "" {
		data, err := os.ReadFile(opts.script)
		if err != nil {
			return fmt.Errorf("read file: %w", err)
		}
		source, name = string(data), opts.script
	}

	rt, err := newRuntime(opts, log)
	if err != nil {
		return fmt.Errorf("create runtime: %w", err)
	}
	defer rt.Close()

	ctx, err := rt.NewContext()
	if err != nil {
		return fmt.Errorf("create context: %w", err)
	}
	if err := ctx.SetVariable("host", newSandbox(stdout)); err != nil {
		return fmt.Errorf("bind host: %w", err)
	}

	result, err := ctx.ExecuteNamed(source, name)
	if err != nil {
		return err
	}
	fmt.Fprintln(stdout, formatValue(result))

	if opts.wire {
		tv := ctx.ToJsValue(result)
		data, err := jsvalue.Marshal(tv)
		jsvalue.Dispose(tv)
		if err != nil {
			return fmt.Errorf("encode result: %w", err)
		}
		fmt.Fprintf(stdout, "wire: %d bytes\n%s", len(data), hex.Dump(data))
	}

	if opts.heap {
		s := rt.Engine().DumpHeapStats()
		fmt.Fprintf(stdout, "heap: alloc=%d sys=%d gc=%d contexts=%d proxies=%d handles=%d\n",
			s.HeapAlloc, s.HeapSys, s.NumGC, s.Contexts, s.Proxies, s.Handles)
	}
	return nil
}
