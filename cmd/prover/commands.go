// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"text/tabwriter"
	"time"

	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/spf13/cobra"
	"go.opentelemetry.io/otel/exporters/stdout/stdouttrace"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"

	"github.com/AleutianAI/AleutianProver/pkg/logging"
	"github.com/AleutianAI/AleutianProver/services/prover/proof"
	"github.com/AleutianAI/AleutianProver/services/prover/prover"
	"github.com/AleutianAI/AleutianProver/services/prover/storage/badger"
	"github.com/AleutianAI/AleutianProver/services/prover/store"
)

// app holds state shared by every subcommand. It is populated by the root
// command's PersistentPreRunE.
type app struct {
	out    io.Writer
	errOut io.Writer

	configPath  string
	logLevel    string
	logDir      string
	metricsFile string
	trace       bool

	config   prover.Config
	logger   *slog.Logger
	tracer   *prover.Tracer
	shutdown func(context.Context) error
}

func newRootCmd(out, errOut io.Writer) *cobra.Command {
	a := &app{out: out, errOut: errOut}

	rootCmd := &cobra.Command{
		Use:           "prover",
		Short:         "Inspect, prune and store proof trees",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			return a.setup()
		},
		PersistentPostRunE: func(cmd *cobra.Command, args []string) error {
			if a.shutdown == nil {
				return nil
			}
			return a.shutdown(context.Background())
		},
	}
	rootCmd.SetOut(out)
	rootCmd.SetErr(errOut)

	flags := rootCmd.PersistentFlags()
	flags.StringVar(&a.configPath, "config", "", "Path to a YAML or JSON config file")
	flags.StringVar(&a.logLevel, "log-level", "", "Log level (debug, info, warn, error); overrides the config")
	flags.StringVar(&a.logDir, "log-dir", "", "Also write daily JSON log files to this directory; overrides the config")
	flags.StringVar(&a.metricsFile, "metrics-file", "", "Write Prometheus metrics to this file on exit; overrides the config")
	flags.BoolVar(&a.trace, "trace", false, "Print OpenTelemetry spans to stderr")

	rootCmd.AddCommand(
		a.statusCmd(),
		a.showCmd(),
		a.cutCmd(),
		a.boundCmd(),
		a.storeCmd(),
	)
	return rootCmd
}

func (a *app) setup() error {
	config, err := prover.LoadConfig(a.configPath)
	if err != nil {
		return err
	}
	if a.logLevel != "" {
		config.Observability.LogLevel = a.logLevel
	}
	if a.logDir != "" {
		config.Observability.LogDir = a.logDir
	}
	if a.metricsFile != "" {
		config.Observability.MetricsFile = a.metricsFile
	}
	level, err := logging.ParseLevel(config.Observability.LogLevel)
	if err != nil {
		return err
	}
	a.config = config

	logger, closer, err := logging.New(logging.Config{
		Level:   level,
		Service: config.Observability.ServiceName,
		LogDir:  config.Observability.LogDir,
		Output:  a.errOut,
	})
	if err != nil {
		return err
	}
	a.logger = logger

	shutdowns := []func(context.Context) error{func(context.Context) error { return closer.Close() }}
	if obs := config.Observability; obs.MetricsEnabled && obs.MetricsFile != "" {
		shutdowns = append([]func(context.Context) error{func(context.Context) error {
			return writeMetrics(obs.MetricsFile, prometheus.DefaultGatherer)
		}}, shutdowns...)
	}
	if a.trace {
		exporter, err := stdouttrace.New(stdouttrace.WithWriter(a.errOut), stdouttrace.WithPrettyPrint())
		if err != nil {
			return fmt.Errorf("create trace exporter: %w", err)
		}
		tp := sdktrace.NewTracerProvider(
			sdktrace.WithSyncer(exporter),
			sdktrace.WithSampler(sdktrace.AlwaysSample()),
		)
		obs := config.Observability
		obs.TracingEnabled = true
		a.tracer = prover.NewTracerWithProvider(tp, logger, obs)
		shutdowns = append([]func(context.Context) error{tp.Shutdown}, shutdowns...)
	} else {
		a.tracer = prover.NewTracer(logger, config.Observability)
	}

	a.shutdown = func(ctx context.Context) error {
		var errs []error
		for _, fn := range shutdowns {
			errs = append(errs, fn(ctx))
		}
		return errors.Join(errs...)
	}
	return nil
}

// writeMetrics dumps every metric gathered by g to path in the Prometheus
// text exposition format, for the node exporter textfile collector.
func writeMetrics(path string, g prometheus.Gatherer) error {
	if err := prometheus.WriteToTextfile(path, g); err != nil {
		return fmt.Errorf("write metrics: %w", err)
	}
	return nil
}

func (a *app) cutter() *prover.Cutter {
	return prover.NewCutter(a.config.Cut).WithLogger(a.logger).WithTracer(a.tracer)
}

func (a *app) openStore() (*store.Store, func() error, error) {
	cfg := badger.DefaultConfig(a.config.Storage.Path)
	cfg.InMemory = a.config.Storage.InMemory
	cfg.SyncWrites = a.config.Storage.SyncWrites
	cfg.GCInterval = a.config.Storage.GCInterval
	cfg.Logger = a.logger

	db, err := badger.OpenDB(cfg)
	if err != nil {
		return nil, nil, err
	}
	return store.New(db).WithLogger(a.logger), db.Close, nil
}

// readProof decodes a proof from path, or stdin when path is "-".
func readProof(path string) (*proof.Incremental, error) {
	var data []byte
	var err error
	if path == "-" {
		data, err = io.ReadAll(os.Stdin)
	} else {
		data, err = os.ReadFile(path)
	}
	if err != nil {
		return nil, fmt.Errorf("read proof: %w", err)
	}

	var p proof.Incremental
	if err := json.Unmarshal(data, &p); err != nil {
		return nil, fmt.Errorf("decode proof %s: %w", path, err)
	}
	return &p, nil
}

func (a *app) writeJSON(v any) error {
	enc := json.NewEncoder(a.out)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

// renderIncremental renders a proof, marking nodes whose system is unknown.
func renderIncremental(p *proof.Incremental) string {
	return proof.Render(p, func(s proof.Step[proof.System]) string {
		if s.Info == nil {
			return s.Method.String() + " /* unchecked */"
		}
		return s.Method.String()
	}, nil)
}

// =============================================================================
// Proof commands
// =============================================================================

func (a *app) statusCmd() *cobra.Command {
	var quantifier string
	cmd := &cobra.Command{
		Use:   "status FILE",
		Short: "Print the status of a proof and what it means for the property",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			q, err := parseQuantifier(quantifier)
			if err != nil {
				return err
			}
			p, err := readProof(args[0])
			if err != nil {
				return err
			}
			status := proof.IncrementalStatus(p)
			fmt.Fprintf(a.out, "status:  %s\nverdict: %s\n", status, proof.Interpret(status, q))
			return nil
		},
	}
	cmd.Flags().StringVar(&quantifier, "quantifier", "all", "Trace quantifier of the property (all, exists)")
	return cmd
}

func parseQuantifier(s string) (proof.Quantifier, error) {
	switch s {
	case "all", "all-traces":
		return proof.AllTraces, nil
	case "exists", "exists-trace":
		return proof.ExistsTrace, nil
	default:
		return 0, fmt.Errorf("unknown quantifier %q (want all or exists)", s)
	}
}

func (a *app) showCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "show FILE",
		Short: "Pretty-print a proof",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			p, err := readProof(args[0])
			if err != nil {
				return err
			}
			fmt.Fprint(a.out, renderIncremental(p))
			return nil
		},
	}
}

func (a *app) cutCmd() *cobra.Command {
	var policy string
	var asJSON bool
	cmd := &cobra.Command{
		Use:   "cut FILE",
		Short: "Prune a proof down to a witness trace",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cutPolicy, err := prover.ParseCutPolicy(policy)
			if err != nil {
				return err
			}
			p, err := readProof(args[0])
			if err != nil {
				return err
			}

			start := time.Now()
			out, err := a.cutter().Apply(cmd.Context(), cutPolicy, p)
			if err != nil {
				return err
			}
			a.logger.Info("cut applied",
				slog.String("policy", cutPolicy.String()),
				slog.String("status", proof.IncrementalStatus(out).String()),
				slog.Duration("elapsed", time.Since(start)),
			)

			if asJSON {
				return a.writeJSON(out)
			}
			fmt.Fprint(a.out, renderIncremental(out))
			return nil
		},
	}
	cmd.Flags().StringVar(&policy, "policy", string(prover.CutDFS), "Cut policy (none, dfs, bfs)")
	cmd.Flags().BoolVar(&asJSON, "json", false, "Write the pruned proof as JSON")
	return cmd
}

func (a *app) boundCmd() *cobra.Command {
	var depth int
	var asJSON bool
	cmd := &cobra.Command{
		Use:   "bound FILE",
		Short: "Truncate a proof at a depth, leaving Sorry leaves",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if depth < 0 {
				return fmt.Errorf("depth must be non-negative, got %d", depth)
			}
			p, err := readProof(args[0])
			if err != nil {
				return err
			}
			out := proof.BoundDepth(depth, p)
			if asJSON {
				return a.writeJSON(out)
			}
			fmt.Fprint(a.out, renderIncremental(out))
			return nil
		},
	}
	cmd.Flags().IntVar(&depth, "depth", 0, "Depth at which the proof is cut")
	cmd.Flags().BoolVar(&asJSON, "json", false, "Write the truncated proof as JSON")
	_ = cmd.MarkFlagRequired("depth")
	return cmd
}

// =============================================================================
// Store commands
// =============================================================================

func (a *app) storeCmd() *cobra.Command {
	storeCmd := &cobra.Command{
		Use:   "store",
		Short: "Manage stored proofs",
	}

	var name string
	putCmd := &cobra.Command{
		Use:   "put FILE",
		Short: "Store a proof",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			p, err := readProof(args[0])
			if err != nil {
				return err
			}
			return a.withStore(func(s *store.Store) error {
				// The proof comes from a file, not from the automatic
				// prover, so it has no generating configuration.
				id, err := s.Put(cmd.Context(), store.Record{Name: name, Proof: p})
				if err != nil {
					return err
				}
				fmt.Fprintln(a.out, id)
				return nil
			})
		},
	}
	putCmd.Flags().StringVar(&name, "name", "", "Human-readable name of the proof")

	getCmd := &cobra.Command{
		Use:   "get ID",
		Short: "Print a stored proof",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := uuid.Parse(args[0])
			if err != nil {
				return fmt.Errorf("invalid proof ID: %w", err)
			}
			return a.withStore(func(s *store.Store) error {
				rec, err := s.Get(cmd.Context(), id)
				if err != nil {
					return err
				}
				return a.writeJSON(rec)
			})
		},
	}

	listCmd := &cobra.Command{
		Use:   "list",
		Short: "List stored proofs",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return a.withStore(func(s *store.Store) error {
				records, err := s.List(cmd.Context())
				if err != nil {
					return err
				}
				w := tabwriter.NewWriter(a.out, 0, 0, 2, ' ', 0)
				fmt.Fprintln(w, "ID\tNAME\tSTATUS\tCREATED")
				for _, r := range records {
					fmt.Fprintf(w, "%s\t%s\t%s\t%s\n", r.ID, r.Name, r.Status, r.CreatedAt.Format(time.RFC3339))
				}
				return w.Flush()
			})
		},
	}

	deleteCmd := &cobra.Command{
		Use:   "delete ID",
		Short: "Delete a stored proof",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := uuid.Parse(args[0])
			if err != nil {
				return fmt.Errorf("invalid proof ID: %w", err)
			}
			return a.withStore(func(s *store.Store) error {
				return s.Delete(cmd.Context(), id)
			})
		},
	}

	storeCmd.AddCommand(putCmd, getCmd, listCmd, deleteCmd)
	return storeCmd
}

func (a *app) withStore(fn func(*store.Store) error) error {
	s, closeDB, err := a.openStore()
	if err != nil {
		return err
	}
	return errors.Join(fn(s), closeDB())
}
