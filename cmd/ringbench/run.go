package main

import (
	"context"
	"errors"
	"fmt"
	"math"
	"strings"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/spf13/cobra"
	"github.com/squadracorsepolito/bytering"
	"github.com/squadracorsepolito/bytering/bench"
	"github.com/squadracorsepolito/bytering/internal"
	"github.com/squadracorsepolito/bytering/questdb"
	"github.com/squadracorsepolito/bytering/telemetry"
)

var errInvalidFlag = errors.New("invalid flag")

type runFlags struct {
	capacity      string
	chunkSize     string
	total         string
	mode          string
	backlog       string
	statsInterval time.Duration

	otel         bool
	questDBAddr  string
	questDBTable string
}

func newRootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:           "ringbench",
		Short:         "Exercise a single-producer single-consumer byte ring",
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	root.AddCommand(newRunCmd())

	return root
}

func newRunCmd() *cobra.Command {
	defaults := bench.NewDefaultConfig()
	flags := &runFlags{}

	short := "Stream a verified byte pattern through a ring"
	run := &cobra.Command{
		Use:   "run",
		Short: short,
		Long: short + `.
One goroutine writes a deterministic pattern and another reads it back and
checks every byte. Sizes accept units such as "64KiB" or "1GB".`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := flags.benchConfig()
			if err != nil {
				return err
			}
			return runBench(cmd.Context(), cfg, flags)
		},
	}

	run.Flags().StringVar(&flags.capacity, "capacity", humanize.IBytes(uint64(defaults.Capacity)),
		"requested ring size, rounded up to a power of two")
	run.Flags().StringVar(&flags.chunkSize, "chunk-size", humanize.IBytes(uint64(defaults.ChunkSize)),
		"size of every read and write request")
	run.Flags().StringVar(&flags.total, "total", humanize.IBytes(uint64(defaults.TotalBytes)),
		"number of bytes to stream")
	run.Flags().StringVar(&flags.mode, "mode", defaults.Mode.String(),
		`transfer mode, "partial" or "all-or-nothing"`)
	run.Flags().StringVar(&flags.backlog, "backlog", humanize.IBytes(uint64(defaults.BacklogSize)),
		"bytes the producer may queue in front of the ring in partial mode")
	run.Flags().DurationVar(&flags.statsInterval, "stats-interval", defaults.StatsInterval,
		"period of the throughput log")
	run.Flags().BoolVar(&flags.otel, "otel", false,
		"export traces and metrics over OTLP")
	run.Flags().StringVar(&flags.questDBAddr, "questdb-addr", "",
		"QuestDB HTTP address where the result is recorded (disabled if empty)")
	run.Flags().StringVar(&flags.questDBTable, "questdb-table", questdb.NewDefaultConfig().Table,
		"QuestDB table name")
	run.Flags().SortFlags = false

	return run
}

func (f *runFlags) benchConfig() (*bench.Config, error) {
	cfg := bench.NewDefaultConfig()

	capacity, err := parseSize("capacity", f.capacity, math.MaxUint32)
	if err != nil {
		return nil, err
	}
	cfg.Capacity = uint32(capacity)

	chunkSize, err := parseSize("chunk-size", f.chunkSize, math.MaxInt32)
	if err != nil {
		return nil, err
	}
	cfg.ChunkSize = int(chunkSize)

	total, err := parseSize("total", f.total, math.MaxInt64)
	if err != nil {
		return nil, err
	}
	cfg.TotalBytes = int64(total)

	backlogSize, err := parseSize("backlog", f.backlog, math.MaxInt32)
	if err != nil {
		return nil, err
	}
	cfg.BacklogSize = int(backlogSize)

	mode, err := parseMode(f.mode)
	if err != nil {
		return nil, err
	}
	cfg.Mode = mode

	cfg.StatsInterval = f.statsInterval

	return cfg, nil
}

func parseSize(name, value string, limit uint64) (uint64, error) {
	size, err := humanize.ParseBytes(value)
	if err != nil {
		return 0, fmt.Errorf("%w: --%s: %w", errInvalidFlag, name, err)
	}

	if size > limit {
		return 0, fmt.Errorf("%w: --%s: %s exceeds %s", errInvalidFlag, name, value, humanize.IBytes(limit))
	}

	return size, nil
}

func parseMode(value string) (bytering.Mode, error) {
	for _, mode := range []bytering.Mode{bytering.Partial, bytering.AllOrNothing} {
		if strings.EqualFold(value, mode.String()) {
			return mode, nil
		}
	}

	return 0, fmt.Errorf("%w: --mode: unknown mode %q", errInvalidFlag, value)
}

func runBench(ctx context.Context, cfg *bench.Config, flags *runFlags) error {
	l := internal.NewLogger("cmd", "ringbench")

	if flags.otel {
		telCfg := telemetry.NewDefaultConfig()
		telCfg.ServiceName = "ringbench"

		shutdown, err := telemetry.Init(ctx, telCfg)
		if err != nil {
			l.Error("failed to init telemetry", err)
			return err
		}

		defer func() {
			if err := shutdown(context.Background()); err != nil {
				l.Error("failed to shutdown telemetry", err)
			}
		}()
	}

	res, err := bench.NewRunner(cfg).Run(ctx)
	if err != nil {
		return err
	}

	if flags.questDBAddr == "" {
		return nil
	}

	sinkCfg := questdb.NewDefaultConfig()
	sinkCfg.Address = flags.questDBAddr
	sinkCfg.Table = flags.questDBTable

	sink, err := questdb.NewSink(ctx, sinkCfg)
	if err != nil {
		l.Error("failed to create questdb sink", err, "address", sinkCfg.Address)
		return err
	}

	defer func() {
		if err := sink.Close(context.Background()); err != nil {
			l.Error("failed to close questdb sink", err)
		}
	}()

	if err := sink.Record(ctx, res); err != nil {
		l.Error("failed to record result", err, "table", sinkCfg.Table)
		return err
	}

	l.Info("recorded result", "address", sinkCfg.Address, "table", sinkCfg.Table)

	return nil
}
