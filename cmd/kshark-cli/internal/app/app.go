// Unless explicitly stated otherwise all files in this repository are
// licensed under the Apache License, Version 2.0.
// Copyright 2026 kshark authors.

// Package app wires the engine's kscontext up to the CLI flags listed
// informationally in §6: -i/-a to open/append trace files, -p/-u to
// register/unregister a plugin, -s/-l to import a session document, and
// --cpu/--pid/--task to seed the initial plot filters.
package app

import (
	"fmt"
	"strconv"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"kshark/internal/engine/kscontext"
	"kshark/internal/engine/plugin/missedevents"
	"kshark/internal/engine/plugin/schedevents"
	"kshark/internal/engine/readout/jsontrace"
	"kshark/internal/engine/stream"
	"kshark/pkg/kshark"
)

// flags holds the parsed CLI options for one invocation.
type flags struct {
	input       string
	appends     []string
	regPlugin   string
	unregPlugin string
	sessionFile string
	lastSession bool
	cpuFilter   []int32
	pidFilter   []int32
	taskFilter  []string
}

// NewRootCommand builds the kshark-cli root command.
func NewRootCommand(logger *zap.Logger) *cobra.Command {
	f := &flags{}
	cmd := &cobra.Command{
		Use:           "kshark-cli",
		Short:         "Inspect and filter kernel trace data",
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return run(logger, f)
		},
	}

	cmd.Flags().StringVarP(&f.input, "input", "i", "", "prior input trace file")
	cmd.Flags().StringArrayVarP(&f.appends, "append", "a", nil, "append an additional trace file")
	cmd.Flags().StringVarP(&f.regPlugin, "register", "p", "", "register a built-in plugin by name")
	cmd.Flags().StringVarP(&f.unregPlugin, "unregister", "u", "", "unregister a plugin by name")
	cmd.Flags().StringVarP(&f.sessionFile, "session", "s", "", "import a session document")
	cmd.Flags().BoolVarP(&f.lastSession, "last-session", "l", false, "restore the last saved session")
	cmd.Flags().Int32SliceVar(&f.cpuFilter, "cpu", nil, "initial show-cpu plot filter")
	cmd.Flags().Int32SliceVar(&f.pidFilter, "pid", nil, "initial show-task plot filter")
	cmd.Flags().StringSliceVar(&f.taskFilter, "task", nil, "initial show-task plot filter, by numeric pid (non-numeric values are ignored)")

	return cmd
}

func run(logger *zap.Logger, f *flags) error {
	ctx := kscontext.New()
	defer ctx.Free()

	registerBuiltins(ctx)

	if f.lastSession {
		if err := ctx.LoadLastSession(); err != nil {
			return fmt.Errorf("restore last session: %w", err)
		}
	}
	if f.sessionFile != "" {
		if err := ctx.LoadSession(f.sessionFile); err != nil {
			return fmt.Errorf("import session %s: %w", f.sessionFile, err)
		}
	}

	if f.regPlugin != "" {
		logger.Info("plugin registration is handled by built-in linkage", zap.String("name", f.regPlugin))
	}
	if f.unregPlugin != "" {
		ctx.Plugins.Unregister(f.unregPlugin)
	}

	var opened []int16
	if f.input != "" {
		id, err := ctx.OpenStream(f.input)
		if err != nil {
			return fmt.Errorf("open %s: %w", f.input, err)
		}
		applyPlotFilters(ctx.Streams.Get(id), f)
		opened = append(opened, id)
	}
	if len(opened) == 0 && len(f.appends) == 0 {
		return nil
	}

	// The first opened stream establishes the merged array (§4.8's
	// load_all, via LoadAll); every appended one is opened only afterwards
	// and merges into it incrementally (append_all, via AppendAll) rather
	// than re-gathering every stream from scratch on each -a.
	merged, err := ctx.LoadAll()
	if err != nil {
		return fmt.Errorf("load streams: %w", err)
	}
	if len(opened) > 0 {
		logStreamLoaded(logger, ctx, opened[0], merged)
	}

	for _, path := range f.appends {
		id, err := ctx.OpenStream(path)
		if err != nil {
			return fmt.Errorf("append %s: %w", path, err)
		}
		applyPlotFilters(ctx.Streams.Get(id), f)
		opened = append(opened, id)
		merged, err = ctx.AppendAll(merged, id)
		if err != nil {
			return fmt.Errorf("load stream %d: %w", id, err)
		}
		logStreamLoaded(logger, ctx, id, merged)
	}

	logger.Info("trace merged", zap.Int("streams", len(opened)), zap.Int("entries", len(merged)))

	return nil
}

// applyPlotFilters seeds s's id filters from the CLI's --cpu/--pid/--task
// flags, before the stream is ever loaded.
func applyPlotFilters(s *stream.Stream, f *flags) {
	if s == nil {
		return
	}
	for _, pid := range f.pidFilter {
		s.Filters.ShowTask.Add(pid)
	}
	for _, cpu := range f.cpuFilter {
		s.Filters.ShowCPU.Add(cpu)
	}
	for _, t := range f.taskFilter {
		if v, err := strconv.Atoi(t); err == nil {
			s.Filters.ShowTask.Add(int32(v))
		}
	}
}

// logStreamLoaded reports one stream's contribution to the running merged
// array (§4.8), by counting entries whose StreamID is id.
func logStreamLoaded(logger *zap.Logger, ctx *kscontext.Context, id int16, merged []*kshark.Entry) {
	s := ctx.Streams.Get(id)
	if s == nil {
		return
	}
	n := 0
	for _, e := range merged {
		if e.StreamID == id {
			n++
		}
	}
	logger.Info("stream loaded",
		zap.Int16("stream_id", id),
		zap.String("file", s.File),
		zap.Int("entries", n),
		zap.Int("n_cpus", s.NCPUs),
	)
}

// registerBuiltins links the engine's built-in DRI/DPI implementations
// against ctx at startup, rather than loading them dynamically — Go has no
// portable equivalent of shared-object plugin loading; see DESIGN.md.
func registerBuiltins(ctx *kscontext.Context) {
	_ = ctx.Readouts.Register(jsontrace.New())
	_ = ctx.Plugins.Register(missedevents.New(nil))
	_ = ctx.Plugins.Register(schedevents.New(jsontrace.SchedFieldReader{}, nil))
}
