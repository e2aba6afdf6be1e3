package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"promptboard/internal/app"
	"promptboard/internal/config"
	"promptboard/internal/db"
	"promptboard/internal/engine"
	"promptboard/internal/repo"
	"promptboard/internal/server"
)

var logger = zap.NewNop()

var rootCmd = &cobra.Command{
	Use:   "pb",
	Short: "Promptboard CLI",
	Long: `Promptboard turns plain-language dashboard requests into UI plans.
- Interpret: "show blocked tasks" becomes a plan (board visible, Blocked filter, panels).
- Tasks: a per-user board of todo / in_progress / blocked / done items.
- History: every signed-in interpretation is kept and can be applied or deleted.
- Serve: the HTTP API with Swagger UI at /docs.`,
	SilenceUsage: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		l, err := app.NewLogger(viper.GetBool("verbose"), viper.GetString("log-format"))
		if err != nil {
			return err
		}
		logger = l
		_, err = db.EnsureWorkspace(viper.GetString("workspace"))
		return err
	},
	PersistentPostRun: func(cmd *cobra.Command, args []string) {
		_ = logger.Sync()
	},
}

func main() {
	cobra.OnInitialize(initConfig)
	addPersistentFlags()
	registerCommands()
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	if err := rootCmd.ExecuteContext(ctx); err != nil {
		fmt.Fprintln(os.Stderr, "error:", err)
		os.Exit(1)
	}
}

func initConfig() {
	viper.SetEnvPrefix("PROMPTBOARD")
	viper.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
	viper.AutomaticEnv()
}

func addPersistentFlags() {
	flags := rootCmd.PersistentFlags()
	flags.StringP("workspace", "w", ".", "workspace directory")
	flags.String("config", "", "config file (defaults to <workspace>/promptboard.yml)")
	flags.StringP("user", "u", "", "account email that owns tasks and history")
	flags.Bool("json", false, "output JSON")
	flags.BoolP("verbose", "v", false, "debug logging")
	flags.String("log-format", "console", "log format: console or json")
	for _, name := range []string{"workspace", "config", "user", "json", "verbose", "log-format"} {
		_ = viper.BindPFlag(name, flags.Lookup(name))
	}
}

func registerCommands() {
	rootCmd.AddCommand(serveCmd())
	rootCmd.AddCommand(interpretCmd())
	rootCmd.AddCommand(taskCmd())
	rootCmd.AddCommand(historyCmd())
	rootCmd.AddCommand(userCmd())
	rootCmd.AddCommand(configCmd())
	rootCmd.AddCommand(logCmd())
}

func serveCmd() *cobra.Command {
	var addr, basePath string
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Start HTTP API server",
		RunE: func(cmd *cobra.Command, args []string) error {
			return withEngine(cmd.Context(), false, func(ctx context.Context, e engine.Engine) error {
				cfg := e.Config
				if addr == "" {
					addr = cfg.Server.Addr
				}
				if basePath == "" {
					basePath = cfg.Server.BasePath
				}
				if e.Secret == "" {
					logger.Warn("session signing key not set, account routes will answer 503", zap.String("env", app.SecretEnv))
				}
				if n, err := e.Auth().PurgeExpired(ctx); err != nil {
					logger.Warn("purge expired sessions", zap.Error(err))
				} else if n > 0 {
					logger.Info("purged expired sessions", zap.Int64("count", n))
				}
				handler, err := server.New(server.Config{
					Engine:      e,
					BasePath:    basePath,
					CORSOrigins: cfg.Server.CORSOrigins,
					Production:  cfg.Production(),
					Logger:      logger.Named("http"),
				})
				if err != nil {
					return err
				}
				srv := &http.Server{Addr: addr, Handler: handler, ReadHeaderTimeout: 10 * time.Second}
				hooks := server.NewWebhookDispatcher(e.Repo, cfg.Webhooks, logger.Named("webhooks"))

				g, gctx := errgroup.WithContext(ctx)
				g.Go(func() error {
					logger.Info("serving promptboard API",
						zap.String("addr", "http://"+addr+basePath),
						zap.Bool("llm", e.LLMAvailable()),
						zap.String("docs", "/docs"))
					if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
						return err
					}
					return nil
				})
				g.Go(func() error {
					return hooks.Run(gctx)
				})
				g.Go(func() error {
					<-gctx.Done()
					shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
					defer cancel()
					return srv.Shutdown(shutdownCtx)
				})
				return g.Wait()
			})
		},
	}
	cmd.Flags().StringVar(&addr, "addr", "", "listen address (defaults to server.addr)")
	cmd.Flags().StringVar(&basePath, "base-path", "", "API base path (defaults to server.base_path)")
	return cmd
}

func interpretCmd() *cobra.Command {
	var local bool
	cmd := &cobra.Command{
		Use:   "interpret <request...>",
		Short: "Interpret a dashboard request",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withEngine(cmd.Context(), local, func(ctx context.Context, e engine.Engine) error {
				mode := ""
				if local {
					mode = engine.ModeLocal
				}
				res, err := e.Interpret(ctx, engine.InterpretOptions{
					Input: strings.Join(args, " "),
					Mode:  mode,
					Owner: strings.ToLower(strings.TrimSpace(viper.GetString("user"))),
				})
				if err != nil {
					return err
				}
				if viper.GetBool("json") {
					return printJSON(res)
				}
				printInterpretation(res)
				return nil
			})
		},
	}
	cmd.Flags().BoolVar(&local, "local", false, "use the keyword classifier only")
	return cmd
}

func taskCmd() *cobra.Command {
	task := &cobra.Command{
		Use:   "task",
		Short: "Manage tasks",
		Long:  "Tasks belong to the account given with --user. Statuses are todo, in_progress, blocked and done; priorities are low, medium, high and critical.",
	}
	task.AddCommand(taskCreateCmd())
	task.AddCommand(taskListCmd())
	task.AddCommand(taskUpdateCmd())
	task.AddCommand(taskSummaryCmd())
	return task
}

func taskCreateCmd() *cobra.Command {
	var opts engine.TaskCreateOptions
	cmd := &cobra.Command{
		Use:   "create",
		Short: "Create a task",
		RunE: func(cmd *cobra.Command, args []string) error {
			owner, err := requireUser()
			if err != nil {
				return err
			}
			opts.Owner = owner
			return withEngine(cmd.Context(), true, func(ctx context.Context, e engine.Engine) error {
				t, err := e.CreateTask(ctx, opts)
				if err != nil {
					return err
				}
				return printJSONOrTable(t)
			})
		},
	}
	cmd.Flags().StringVar(&opts.Title, "title", "", "title")
	cmd.Flags().StringVar(&opts.Status, "status", "", "status (default todo)")
	cmd.Flags().StringVar(&opts.Priority, "priority", "", "priority (default medium)")
	cmd.Flags().StringVar(&opts.AssigneeID, "assignee-id", "", "assignee id")
	_ = cmd.MarkFlagRequired("title")
	return cmd
}

func taskListCmd() *cobra.Command {
	var opts engine.TaskListOptions
	cmd := &cobra.Command{
		Use:   "list",
		Short: "List tasks",
		RunE: func(cmd *cobra.Command, args []string) error {
			owner, err := requireUser()
			if err != nil {
				return err
			}
			opts.Owner = owner
			return withEngine(cmd.Context(), true, func(ctx context.Context, e engine.Engine) error {
				tasks, err := e.ListTasks(ctx, opts)
				if err != nil {
					return err
				}
				if viper.GetBool("json") {
					return printJSON(tasks)
				}
				printTasks(tasks)
				return nil
			})
		},
	}
	cmd.Flags().StringVar(&opts.Status, "status", "", "status or plan filter label (e.g. \"In Progress\")")
	cmd.Flags().StringVar(&opts.AssigneeID, "assignee-id", "", "assignee filter")
	cmd.Flags().IntVar(&opts.Limit, "limit", 0, "maximum tasks")
	return cmd
}

func taskUpdateCmd() *cobra.Command {
	var title, status, priority, assign string
	cmd := &cobra.Command{
		Use:   "update <id>",
		Short: "Update task",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			owner, err := requireUser()
			if err != nil {
				return err
			}
			opts := engine.TaskUpdateOptions{Owner: owner, ID: args[0]}
			if cmd.Flags().Changed("title") {
				opts.Title = &title
			}
			if cmd.Flags().Changed("status") {
				opts.Status = &status
			}
			if cmd.Flags().Changed("priority") {
				opts.Priority = &priority
			}
			if cmd.Flags().Changed("assign") {
				opts.AssigneeID = &assign
			}
			return withEngine(cmd.Context(), true, func(ctx context.Context, e engine.Engine) error {
				t, err := e.UpdateTask(ctx, opts)
				if err != nil {
					return err
				}
				return printJSONOrTable(t)
			})
		},
	}
	cmd.Flags().StringVar(&title, "title", "", "new title")
	cmd.Flags().StringVar(&status, "status", "", "new status")
	cmd.Flags().StringVar(&priority, "priority", "", "new priority")
	cmd.Flags().StringVar(&assign, "assign", "", "set assignee id (empty clears)")
	return cmd
}

func taskSummaryCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "summary",
		Short: "Count tasks per status",
		RunE: func(cmd *cobra.Command, args []string) error {
			owner, err := requireUser()
			if err != nil {
				return err
			}
			return withEngine(cmd.Context(), true, func(ctx context.Context, e engine.Engine) error {
				counts, err := e.BoardSummary(ctx, owner)
				if err != nil {
					return err
				}
				if viper.GetBool("json") {
					return printJSON(counts)
				}
				printSummary(counts)
				return nil
			})
		},
	}
}

func historyCmd() *cobra.Command {
	hist := &cobra.Command{
		Use:   "history",
		Short: "Interpretation history",
		Long:  "Interpretations made with --user are recorded, newest first, up to 50 per list.",
	}
	var limit int
	list := &cobra.Command{
		Use:   "list",
		Short: "List recent interpretations",
		RunE: func(cmd *cobra.Command, args []string) error {
			owner, err := requireUser()
			if err != nil {
				return err
			}
			return withEngine(cmd.Context(), true, func(ctx context.Context, e engine.Engine) error {
				recs, err := e.ListHistory(ctx, owner, limit)
				if err != nil {
					return err
				}
				if viper.GetBool("json") {
					return printJSON(recs)
				}
				printHistory(recs)
				return nil
			})
		},
	}
	list.Flags().IntVar(&limit, "limit", 0, "maximum entries (max 50)")
	apply := &cobra.Command{
		Use:   "apply <id>",
		Short: "Mark an interpretation as applied",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			owner, err := requireUser()
			if err != nil {
				return err
			}
			return withEngine(cmd.Context(), true, func(ctx context.Context, e engine.Engine) error {
				rec, err := e.MarkApplied(ctx, owner, args[0])
				if err != nil {
					return err
				}
				return printJSONOrTable(rec)
			})
		},
	}
	del := &cobra.Command{
		Use:   "delete <id>",
		Short: "Delete an interpretation",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			owner, err := requireUser()
			if err != nil {
				return err
			}
			return withEngine(cmd.Context(), true, func(ctx context.Context, e engine.Engine) error {
				if err := e.DeleteHistory(ctx, owner, args[0]); err != nil {
					return err
				}
				fmt.Println("deleted", args[0])
				return nil
			})
		},
	}
	hist.AddCommand(list, apply, del)
	return hist
}

func userCmd() *cobra.Command {
	user := &cobra.Command{Use: "user", Short: "Manage accounts"}
	var email, password string
	register := &cobra.Command{
		Use:   "register",
		Short: "Create an account and print a session token",
		RunE: func(cmd *cobra.Command, args []string) error {
			if password == "" {
				password = os.Getenv("PROMPTBOARD_PASSWORD")
			}
			return withEngine(cmd.Context(), true, func(ctx context.Context, e engine.Engine) error {
				sess, err := e.Auth().Register(ctx, email, password)
				if err != nil {
					return err
				}
				return printJSONOrTable(sess)
			})
		},
	}
	register.Flags().StringVar(&email, "email", "", "account email")
	register.Flags().StringVar(&password, "password", "", "password (or PROMPTBOARD_PASSWORD)")
	_ = register.MarkFlagRequired("email")
	user.AddCommand(register)
	return user
}

func configCmd() *cobra.Command {
	cfg := &cobra.Command{
		Use:   "config",
		Short: "Inspect workspace config",
		Long:  "Config lives in <workspace>/promptboard.yml. Provider keys and the session signing key come from the environment.",
	}
	cfg.AddCommand(&cobra.Command{
		Use:   "show",
		Short: "Show effective config",
		RunE: func(cmd *cobra.Command, args []string) error {
			c, err := app.LoadConfig(viper.GetString("workspace"), viper.GetString("config"))
			if err != nil {
				return err
			}
			return printYAML(c)
		},
	})
	cfg.AddCommand(&cobra.Command{
		Use:   "validate",
		Short: "Validate config file",
		RunE: func(cmd *cobra.Command, args []string) error {
			_, err := app.LoadConfig(viper.GetString("workspace"), viper.GetString("config"))
			if viper.GetBool("json") {
				return printJSON(map[string]any{"ok": err == nil, "error": errString(err)})
			}
			if err != nil {
				return err
			}
			fmt.Println("config OK")
			return nil
		},
	})
	var force bool
	initCmd := &cobra.Command{
		Use:   "init",
		Short: "Write the default config file",
		RunE: func(cmd *cobra.Command, args []string) error {
			path := config.Path(viper.GetString("workspace"))
			if _, err := os.Stat(path); err == nil && !force {
				return fmt.Errorf("%s exists; use --force to overwrite", path)
			}
			if err := os.WriteFile(path, []byte(config.GenerateDefault()), 0o644); err != nil {
				return err
			}
			fmt.Println("wrote", path)
			return nil
		},
	}
	initCmd.Flags().BoolVar(&force, "force", false, "overwrite an existing file")
	cfg.AddCommand(initCmd)
	return cfg
}

func logCmd() *cobra.Command {
	lg := &cobra.Command{Use: "log", Short: "Event log"}
	var f repo.EventFilters
	tail := &cobra.Command{
		Use:   "tail",
		Short: "Show recent events",
		RunE: func(cmd *cobra.Command, args []string) error {
			return withEngine(cmd.Context(), true, func(ctx context.Context, e engine.Engine) error {
				f.ActorID = viper.GetString("user")
				evts, err := e.Repo.LatestEvents(ctx, f)
				if err != nil {
					return err
				}
				if viper.GetBool("json") {
					return printJSON(evts)
				}
				printEvents(evts)
				return nil
			})
		},
	}
	tail.Flags().IntVar(&f.Limit, "n", 20, "number of events")
	tail.Flags().StringVar(&f.Type, "type", "", "event type filter")
	tail.Flags().StringVar(&f.EntityKind, "entity-kind", "", "entity kind")
	tail.Flags().StringVar(&f.EntityID, "entity-id", "", "entity id")
	lg.AddCommand(tail)
	return lg
}

// --- helpers ---

func withEngine(ctx context.Context, local bool, fn func(context.Context, engine.Engine) error) error {
	e, closeFn, err := app.Open(ctx, app.Options{
		Workspace:  viper.GetString("workspace"),
		ConfigPath: viper.GetString("config"),
		Logger:     logger,
		Local:      local,
	})
	if err != nil {
		return err
	}
	defer closeFn()
	return fn(ctx, e)
}

func requireUser() (string, error) {
	user := strings.TrimSpace(viper.GetString("user"))
	if user == "" {
		return "", fmt.Errorf("--user (or PROMPTBOARD_USER) required")
	}
	return strings.ToLower(user), nil
}

func errString(err error) string {
	if err == nil {
		return ""
	}
	return err.Error()
}
