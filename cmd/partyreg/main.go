// Command partyreg runs the party registry: rebuilds from the transaction
// corpus, serves the operator API, and exposes the registry operations as
// subcommands for scripted use.
package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"github.com/brandonolsen23/cleo-mini-v3-sub000/internal/audit"
	"github.com/brandonolsen23/cleo-mini-v3-sub000/internal/autoconfirm"
	"github.com/brandonolsen23/cleo-mini-v3-sub000/internal/evidence"
	httpapi "github.com/brandonolsen23/cleo-mini-v3-sub000/internal/http"
	"github.com/brandonolsen23/cleo-mini-v3-sub000/internal/platform/config"
	"github.com/brandonolsen23/cleo-mini-v3-sub000/internal/platform/httpserver"
	"github.com/brandonolsen23/cleo-mini-v3-sub000/internal/platform/logger"
	"github.com/brandonolsen23/cleo-mini-v3-sub000/internal/platform/metrics"
	"github.com/brandonolsen23/cleo-mini-v3-sub000/internal/registry"
	"github.com/brandonolsen23/cleo-mini-v3-sub000/internal/report"
	"github.com/brandonolsen23/cleo-mini-v3-sub000/internal/scan"
	"github.com/brandonolsen23/cleo-mini-v3-sub000/internal/suggest"
	"github.com/brandonolsen23/cleo-mini-v3-sub000/internal/token"
	"github.com/brandonolsen23/cleo-mini-v3-sub000/pkg/requestcontext"
)

// app bundles the wired services every subcommand shares.
type app struct {
	cfg      config.Config
	registry *registry.Service
	suggest  *suggest.Service
	evidence *evidence.Service
	confirm  *autoconfirm.Engine
	export   *report.Exporter
	tokens   *token.Service
	metrics  *metrics.Metrics
	logger   *slog.Logger
}

func main() {
	if err := run(); err != nil {
		fmt.Fprintln(os.Stderr, "error:", err)
		os.Exit(1)
	}
}

func run() error {
	_ = godotenv.Load()
	cfg := config.FromEnv()
	log := logger.New(cfg.LogFormat, cfg.LogLevel)

	contract, err := scan.NewContract()
	if err != nil {
		return fmt.Errorf("load record contract: %w", err)
	}

	m := metrics.New()
	store := registry.NewFileStore(cfg.RegistryPath)
	publisher := audit.NewPublisher(audit.NewJSONLStore(cfg.AuditLogPath), log)
	regService := registry.NewService(
		store,
		scan.NewScanner(contract, log),
		registry.NewBuilder(log),
		cfg.CorpusDir,
		publisher,
		log,
		m,
	)

	a := &app{
		cfg:      cfg,
		registry: regService,
		suggest:  suggest.NewService(store, log),
		evidence: evidence.NewService(store, log),
		confirm:  autoconfirm.New(store, publisher, log),
		export:   report.NewExporter(store),
		tokens:   token.NewService(cfg.JWTSigningKey, "partyreg", "partyreg-api"),
		metrics:  m,
		logger:   log,
	}

	var operator string
	rootCmd := &cobra.Command{
		Use:           "partyreg",
		Short:         "Real-estate party registry: clustering, overrides, and evidence",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	rootCmd.PersistentFlags().StringVar(&operator, "operator", "cli", "operator recorded in the audit log")

	opCtx := func() context.Context {
		return requestcontext.WithOperator(context.Background(), operator)
	}

	rootCmd.AddCommand(
		serveCmd(a, log),
		buildCmd(a, opCtx),
		autoConfirmCmd(a, opCtx),
		confirmCmd(a, opCtx),
		mergeCmd(a, opCtx),
		splitCmd(a, opCtx),
		suggestCmd(a),
		dismissCmd(a, opCtx),
		explainCmd(a),
		displayNameCmd(a, opCtx),
		urlCmd(a, opCtx),
		exportCmd(a),
		issueTokenCmd(a),
	)
	return rootCmd.Execute()
}

func serveCmd(a *app, log *slog.Logger) *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Serve the operator HTTP API",
		RunE: func(cmd *cobra.Command, _ []string) error {
			handler := httpapi.New(
				a.registry,
				a.suggest,
				a.evidence,
				a.confirm,
				token.NewValidatorAdapter(a.tokens),
				log,
				a.metrics,
			)
			srv := httpserver.New(a.cfg.Addr, httpapi.NewRouter(handler, log))

			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			g, ctx := errgroup.WithContext(ctx)
			g.Go(func() error {
				log.Info("party registry listening", "addr", a.cfg.Addr)
				if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
					return err
				}
				return nil
			})
			g.Go(func() error {
				<-ctx.Done()
				shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
				defer cancel()
				return srv.Shutdown(shutdownCtx)
			})
			return g.Wait()
		},
	}
}

func buildCmd(a *app, opCtx func() context.Context) *cobra.Command {
	return &cobra.Command{
		Use:   "build",
		Short: "Rebuild the registry from the transaction corpus",
		RunE: func(_ *cobra.Command, _ []string) error {
			summary, err := a.registry.Build(opCtx())
			if err != nil {
				return err
			}
			fmt.Printf("built %d groups (%d companies, %d persons) from %d appearances\n",
				summary.Groups, summary.Companies, summary.Persons, summary.Appearances)
			fmt.Printf("records read: %d, skipped: %d, overrides skipped: %d\n",
				summary.RecordsRead, summary.RecordsSkipped, summary.OverridesSkipped)
			return nil
		},
	}
}

func autoConfirmCmd(a *app, opCtx func() context.Context) *cobra.Command {
	return &cobra.Command{
		Use:   "autoconfirm",
		Short: "Run an auto-confirmation pass over every group",
		RunE: func(_ *cobra.Command, _ []string) error {
			summary, err := a.confirm.Run(opCtx())
			if err != nil {
				return err
			}
			fmt.Printf("examined %d groups, confirmed %d names in %d groups\n",
				summary.GroupsExamined, summary.NamesConfirmed, summary.GroupsChanged)
			return nil
		},
	}
}

func confirmCmd(a *app, opCtx func() context.Context) *cobra.Command {
	return &cobra.Command{
		Use:   "confirm <group-id> <name>",
		Short: "Confirm a normalized name as validated membership",
		Args:  cobra.ExactArgs(2),
		RunE: func(_ *cobra.Command, args []string) error {
			return a.registry.Confirm(opCtx(), args[0], args[1])
		},
	}
}

func mergeCmd(a *app, opCtx func() context.Context) *cobra.Command {
	var reason string
	cmd := &cobra.Command{
		Use:   "merge <target-id> <source-id>",
		Short: "Fold one group into another, durably",
		Args:  cobra.ExactArgs(2),
		RunE: func(_ *cobra.Command, args []string) error {
			return a.registry.Merge(opCtx(), args[0], args[1], reason)
		},
	}
	cmd.Flags().StringVar(&reason, "reason", "", "why these groups are the same party")
	return cmd
}

func splitCmd(a *app, opCtx func() context.Context) *cobra.Command {
	var reason, targetID string
	cmd := &cobra.Command{
		Use:   "split <group-id> <name>",
		Short: "Move a normalized name out of its group, durably",
		Args:  cobra.ExactArgs(2),
		RunE: func(_ *cobra.Command, args []string) error {
			target, err := a.registry.Split(opCtx(), args[0], args[1], targetID, reason)
			if err != nil {
				return err
			}
			fmt.Printf("moved %q into %s\n", args[1], target)
			return nil
		},
	}
	cmd.Flags().StringVar(&targetID, "target", "", "destination group ID (minted when empty)")
	cmd.Flags().StringVar(&reason, "reason", "", "why this name is a different party")
	return cmd
}

func suggestCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "suggest <group-id>",
		Short: "List likely-affiliated groups, ranked",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			suggestions, err := a.suggest.ForGroup(cmd.Context(), args[0])
			if err != nil {
				return err
			}
			if len(suggestions) == 0 {
				fmt.Println("no suggestions")
				return nil
			}
			for _, s := range suggestions {
				fmt.Printf("%s  score=%d  %s\n", s.GroupID, s.Score, s.DisplayName)
			}
			return nil
		},
	}
}

func dismissCmd(a *app, opCtx func() context.Context) *cobra.Command {
	var reason string
	cmd := &cobra.Command{
		Use:   "dismiss <group-id> <suggested-id>",
		Short: "Blacklist a suggestion so it never resurfaces",
		Args:  cobra.ExactArgs(2),
		RunE: func(_ *cobra.Command, args []string) error {
			return a.registry.DismissSuggestion(opCtx(), args[0], args[1], reason)
		},
	}
	cmd.Flags().StringVar(&reason, "reason", "", "why the suggestion is wrong")
	return cmd
}

func explainCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "explain <group-id> <name>",
		Short: "Show the evidence linking a name to its group",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			exp, err := a.evidence.Explain(cmd.Context(), args[0], args[1])
			if err != nil {
				return err
			}
			if exp.Name == exp.Anchor {
				fmt.Printf("%q is the anchor name of %s\n", exp.Name, exp.GroupID)
				return nil
			}
			if exp.Direct != nil {
				fmt.Printf("direct %s link to %q: %s\n", exp.Direct.Type, exp.Anchor, exp.Direct.Value)
				for _, ref := range exp.Direct.From {
					fmt.Printf("  %s as %s\n", ref.TransactionID, ref.Role)
				}
				return nil
			}
			if len(exp.Chain) == 0 {
				fmt.Printf("no recorded evidence for %q (override-placed membership)\n", exp.Name)
				return nil
			}
			for i, step := range exp.Chain {
				if step.Link == nil {
					fmt.Printf("%d. %s\n", i+1, step.Name)
					continue
				}
				fmt.Printf("%d. %s  (shared %s: %s)\n", i+1, step.Name, step.Link.Type, step.Link.Value)
			}
			return nil
		},
	}
}

func displayNameCmd(a *app, opCtx func() context.Context) *cobra.Command {
	return &cobra.Command{
		Use:   "set-display-name <group-id> <name>",
		Short: "Override a group's display name",
		Args:  cobra.ExactArgs(2),
		RunE: func(_ *cobra.Command, args []string) error {
			return a.registry.SetDisplayName(opCtx(), args[0], args[1])
		},
	}
}

func urlCmd(a *app, opCtx func() context.Context) *cobra.Command {
	return &cobra.Command{
		Use:   "set-url <group-id> <url>",
		Short: "Attach a reference URL to a group",
		Args:  cobra.ExactArgs(2),
		RunE: func(_ *cobra.Command, args []string) error {
			return a.registry.SetURL(opCtx(), args[0], args[1])
		},
	}
}

func exportCmd(a *app) *cobra.Command {
	var format string
	cmd := &cobra.Command{
		Use:   "export <file>",
		Short: "Export the registry to json, csv, or excel",
		Args:  cobra.ExactArgs(1),
		RunE: func(_ *cobra.Command, args []string) error {
			return a.export.Export(args[0], report.Format(format))
		},
	}
	cmd.Flags().StringVar(&format, "format", string(report.FormatJSON), "json|csv|excel")
	return cmd
}

func issueTokenCmd(a *app) *cobra.Command {
	var ttl time.Duration
	cmd := &cobra.Command{
		Use:   "issue-token <operator>",
		Short: "Issue an operator token for the HTTP API",
		Args:  cobra.ExactArgs(1),
		RunE: func(_ *cobra.Command, args []string) error {
			signed, err := a.tokens.Issue(args[0], ttl)
			if err != nil {
				return err
			}
			fmt.Println(signed)
			return nil
		},
	}
	cmd.Flags().DurationVar(&ttl, "ttl", 12*time.Hour, "token lifetime")
	return cmd
}
