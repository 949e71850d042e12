package main

import (
	"bufio"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"sort"
	"strings"
	"syscall"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"go.uber.org/zap"

	"opsdeck/internal/app"
	"opsdeck/internal/config"
	"opsdeck/internal/db"
	"opsdeck/internal/domain"
	"opsdeck/internal/engine"
	"opsdeck/internal/identity"
	"opsdeck/internal/logging"
	"opsdeck/internal/server"
)

const tokenKey = "OPSDECK_TOKEN"

var rootCmd = &cobra.Command{
	Use:   "opsdeck",
	Short: "Opsdeck operator console",
	Long: `Opsdeck keeps a local, optimistic copy of the agent operations dashboard.
Every change is applied locally first and written to the remote store in the
background; without a remote store (or with --offline) the session runs on
demo data and nothing leaves the machine.
- Tasks move pending -> in_progress -> review -> completed.
- Ideas are feature requests captured from any screen.
- Agents receive directives; chat talks to the chief-of-staff agent.
- 'opsdeck serve' exposes the same session over HTTP with a live event stream.`,
	SilenceUsage: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		workspace := viper.GetString("workspace")
		if _, err := db.EnsureWorkspace(workspace); err != nil {
			return err
		}
		return nil
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
		stop()
		os.Exit(1)
	}
}

func initConfig() {
	viper.SetEnvPrefix("OPSDECK")
	viper.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
	viper.AutomaticEnv()
}

func addPersistentFlags() {
	rootCmd.PersistentFlags().StringP("workspace", "w", ".", "workspace directory")
	rootCmd.PersistentFlags().Bool("json", false, "output JSON")
	rootCmd.PersistentFlags().Bool("offline", false, "skip the remote store and use cached or demo data")
	rootCmd.PersistentFlags().String("log-level", "", "log level (debug, info, warn, error); overrides config")
	_ = viper.BindPFlag("workspace", rootCmd.PersistentFlags().Lookup("workspace"))
	_ = viper.BindPFlag("json", rootCmd.PersistentFlags().Lookup("json"))
	_ = viper.BindPFlag("offline", rootCmd.PersistentFlags().Lookup("offline"))
	_ = viper.BindPFlag("log-level", rootCmd.PersistentFlags().Lookup("log-level"))
}

func registerCommands() {
	rootCmd.AddCommand(configCmd())
	rootCmd.AddCommand(loginCmd())
	rootCmd.AddCommand(logoutCmd())
	rootCmd.AddCommand(statusCmd())
	rootCmd.AddCommand(taskCmd())
	rootCmd.AddCommand(projectCmd())
	rootCmd.AddCommand(agentCmd())
	rootCmd.AddCommand(ideaCmd())
	rootCmd.AddCommand(chatCmd())
	rootCmd.AddCommand(serveCmd())
}

func configCmd() *cobra.Command {
	cmd := &cobra.Command{Use: "config", Short: "Manage opsdeck.yml"}
	cmd.AddCommand(&cobra.Command{
		Use:   "init",
		Short: "Write a default opsdeck.yml",
		RunE: func(cmd *cobra.Command, args []string) error {
			path := config.Path(viper.GetString("workspace"))
			if _, err := os.Stat(path); err == nil {
				return fmt.Errorf("%s already exists", path)
			}
			if err := os.WriteFile(path, []byte(config.GenerateDefault()), 0o644); err != nil {
				return err
			}
			fmt.Printf("Wrote %s\n", path)
			return nil
		},
	})
	cmd.AddCommand(&cobra.Command{
		Use:   "show",
		Short: "Print the effective configuration",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.LoadOptional(viper.GetString("workspace"))
			if err != nil {
				return err
			}
			return printJSON(cfg)
		},
	})
	cmd.AddCommand(&cobra.Command{
		Use:   "validate",
		Short: "Validate opsdeck.yml",
		RunE: func(cmd *cobra.Command, args []string) error {
			if _, err := config.Load(viper.GetString("workspace")); err != nil {
				return err
			}
			fmt.Println("config ok")
			return nil
		},
	})
	return cmd
}

func loginCmd() *cobra.Command {
	var email, password string
	var signUp bool
	cmd := &cobra.Command{
		Use:   "login",
		Short: "Sign in and store the session token in the workspace .env",
		RunE: func(cmd *cobra.Command, args []string) error {
			workspace := viper.GetString("workspace")
			cfg, err := config.LoadOptional(workspace)
			if err != nil {
				return err
			}
			if cfg.Identity.URL == "" {
				return fmt.Errorf("identity.url is not configured in %s", config.Path(workspace))
			}
			if password == "" {
				password = os.Getenv("OPSDECK_PASSWORD")
			}
			client := identity.NewClient(cfg.Identity.URL, cfg.Remote.AnonKey)
			var s identity.Session
			if signUp {
				s, err = client.SignUp(cmd.Context(), email, password)
			} else {
				s, err = client.SignIn(cmd.Context(), email, password)
			}
			if err != nil {
				return err
			}
			if err := persistToken(workspace, s.AccessToken); err != nil {
				return err
			}
			if viper.GetBool("json") {
				return printJSON(map[string]any{"user_id": s.UserID, "email": s.Email, "expires_at": s.ExpiresAt})
			}
			fmt.Printf("Signed in as %s\n", firstNonEmpty(s.Email, s.UserID))
			return nil
		},
	}
	cmd.Flags().StringVar(&email, "email", "", "account email")
	cmd.Flags().StringVar(&password, "password", "", "account password (or OPSDECK_PASSWORD)")
	cmd.Flags().BoolVar(&signUp, "signup", false, "create the account instead of signing in")
	_ = cmd.MarkFlagRequired("email")
	return cmd
}

func logoutCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "logout",
		Short: "Sign out and forget the stored token",
		RunE: func(cmd *cobra.Command, args []string) error {
			workspace := viper.GetString("workspace")
			cfg, err := config.LoadOptional(workspace)
			if err != nil {
				return err
			}
			if token := storedToken(workspace); token != "" && cfg.Identity.URL != "" {
				client := identity.NewClient(cfg.Identity.URL, cfg.Remote.AnonKey)
				if err := client.SignOut(cmd.Context(), token); err != nil {
					fmt.Fprintln(os.Stderr, "warning: remote sign-out failed:", err)
				}
			}
			if err := persistToken(workspace, ""); err != nil {
				return err
			}
			fmt.Println("Signed out")
			return nil
		},
	}
}

func statusCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "status",
		Short: "Show where the session was loaded from and the badge counters",
		RunE: func(cmd *cobra.Command, args []string) error {
			return withApp(cmd.Context(), func(ctx context.Context, a *app.App) error {
				boot := a.Boot()
				snap := a.Store.Snapshot()
				counters := a.Store.Counters()
				if viper.GetBool("json") {
					return printJSON(map[string]any{
						"source":   boot.Source,
						"offline":  boot.Offline,
						"saved_at": boot.SavedAt,
						"counters": counters,
						"revision": a.Store.Revision(),
					})
				}
				mode := "online"
				if boot.Offline {
					mode = "offline"
				}
				fmt.Printf("Session: %s (loaded from %s", mode, boot.Source)
				if !boot.SavedAt.IsZero() {
					fmt.Printf(", saved %s", humanize.Time(boot.SavedAt))
				}
				fmt.Println(")")
				tw := table.NewWriter()
				tw.SetOutputMirror(os.Stdout)
				tw.AppendHeader(table.Row{"Collection", "Count"})
				tw.AppendRows([]table.Row{
					{"agents", len(snap.Agents)},
					{"tasks", len(snap.Tasks)},
					{"pending for operator", counters.PendingTasks},
					{"projects", len(snap.Projects)},
					{"goals", len(snap.Goals)},
					{"kpis", len(snap.KPIs)},
					{"ideas", len(snap.Ideas)},
					{"new ideas", counters.NewIdeas},
				})
				tw.Render()
				return nil
			})
		},
	}
}

func taskCmd() *cobra.Command {
	cmd := &cobra.Command{Use: "task", Short: "Manage tasks"}
	cmd.AddCommand(taskCreateCmd())
	cmd.AddCommand(taskListCmd())
	cmd.AddCommand(taskAdvanceCmd())
	cmd.AddCommand(taskMoveCmd())
	cmd.AddCommand(taskDeleteCmd())
	return cmd
}

func taskCreateCmd() *cobra.Command {
	var opts engine.TaskCreateOptions
	var priority string
	cmd := &cobra.Command{
		Use:   "create <title>",
		Short: "Create a task",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			opts.Title = args[0]
			opts.Priority = domain.TaskPriority(priority)
			return withEngine(cmd.Context(), func(ctx context.Context, a *app.App, e *engine.Engine) error {
				t, err := e.CreateTask(ctx, opts)
				if err != nil {
					return err
				}
				return settled(ctx, a, e, func() error {
					return printJSONOrTable(resolvedTask(a, t.ID))
				})
			})
		},
	}
	cmd.Flags().StringVar(&opts.Description, "description", "", "description")
	cmd.Flags().StringVar(&opts.AssignedTo, "assign", "", "assignee agent id (defaults to the operator)")
	cmd.Flags().StringVar(&priority, "priority", string(domain.PriorityMedium), "critical, high, medium or low")
	cmd.Flags().StringVar(&opts.Deadline, "deadline", "", "deadline date")
	cmd.Flags().StringVar(&opts.ParentTaskID, "parent", "", "parent task id")
	cmd.Flags().StringVar(&opts.ProjectID, "project", "", "project id")
	cmd.Flags().StringSliceVar(&opts.Tags, "tag", nil, "tag (repeatable)")
	return cmd
}

func taskListCmd() *cobra.Command {
	var status, projectID, parentID string
	cmd := &cobra.Command{
		Use:   "list",
		Short: "List tasks",
		RunE: func(cmd *cobra.Command, args []string) error {
			return withApp(cmd.Context(), func(ctx context.Context, a *app.App) error {
				var tasks []domain.Task
				for _, t := range a.Store.Tasks() {
					if status != "" && string(t.Status) != status {
						continue
					}
					if projectID != "" && t.ProjectID != projectID {
						continue
					}
					if parentID != "" && t.ParentTaskID != parentID {
						continue
					}
					tasks = append(tasks, t)
				}
				if viper.GetBool("json") {
					return printJSON(tasks)
				}
				tw := table.NewWriter()
				tw.SetOutputMirror(os.Stdout)
				tw.AppendHeader(table.Row{"ID", "Title", "Status", "Priority", "Assignee", "Project"})
				for _, t := range tasks {
					tw.AppendRow(table.Row{t.ID, t.Title, t.Status, t.Priority, t.AssignedTo, t.ProjectCode})
				}
				tw.Render()
				return nil
			})
		},
	}
	cmd.Flags().StringVar(&status, "status", "", "status filter")
	cmd.Flags().StringVar(&projectID, "project", "", "project filter")
	cmd.Flags().StringVar(&parentID, "parent", "", "parent task filter")
	return cmd
}

func taskAdvanceCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "advance <id>",
		Short: "Move a task one step along pending -> in_progress -> review -> completed",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withEngine(cmd.Context(), func(ctx context.Context, a *app.App, e *engine.Engine) error {
				t, err := e.AdvanceTask(ctx, args[0])
				if err != nil {
					return err
				}
				return settled(ctx, a, e, func() error { return printJSONOrTable(t) })
			})
		},
	}
}

func taskMoveCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "move <id> <status>",
		Short: "Drop a task onto a kanban column",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withEngine(cmd.Context(), func(ctx context.Context, a *app.App, e *engine.Engine) error {
				t, moved, err := e.DropTask(ctx, args[0], domain.TaskStatus(args[1]))
				if err != nil {
					return err
				}
				if !moved && !viper.GetBool("json") {
					fmt.Printf("%s is already %s\n", t.ID, t.Status)
					return nil
				}
				return settled(ctx, a, e, func() error { return printJSONOrTable(t) })
			})
		},
	}
}

func taskDeleteCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "delete <id>",
		Short: "Delete a task",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withEngine(cmd.Context(), func(ctx context.Context, a *app.App, e *engine.Engine) error {
				if err := e.DeleteTask(ctx, args[0]); err != nil {
					return err
				}
				return settled(ctx, a, e, func() error {
					fmt.Printf("Deleted %s\n", args[0])
					return nil
				})
			})
		},
	}
}

func projectCmd() *cobra.Command {
	cmd := &cobra.Command{Use: "project", Short: "Manage projects"}
	cmd.AddCommand(&cobra.Command{
		Use:   "list",
		Short: "List projects",
		RunE: func(cmd *cobra.Command, args []string) error {
			return withApp(cmd.Context(), func(ctx context.Context, a *app.App) error {
				projects := a.Store.Projects()
				if viper.GetBool("json") {
					return printJSON(projects)
				}
				tw := table.NewWriter()
				tw.SetOutputMirror(os.Stdout)
				tw.AppendHeader(table.Row{"ID", "Code", "Title", "Status", "Progress"})
				for _, p := range projects {
					tw.AppendRow(table.Row{p.ID, p.Code, p.Title, p.Status, fmt.Sprintf("%d/%d", p.CompletedTaskCount, p.TaskCount)})
				}
				tw.Render()
				return nil
			})
		},
	})
	var opts engine.ProjectCreateOptions
	create := &cobra.Command{
		Use:   "create <title>",
		Short: "Create a project",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			opts.Title = args[0]
			return withEngine(cmd.Context(), func(ctx context.Context, a *app.App, e *engine.Engine) error {
				p, err := e.CreateProject(ctx, opts)
				if err != nil {
					return err
				}
				return settled(ctx, a, e, func() error {
					if cur, ok := a.Store.Project(a.Store.Resolve(p.ID)); ok {
						p = cur
					}
					return printJSONOrTable(p)
				})
			})
		},
	}
	create.Flags().StringVar(&opts.Description, "description", "", "description")
	create.Flags().StringVar(&opts.LeadAgentID, "lead", "", "lead agent id")
	create.Flags().StringVar(&opts.TargetDate, "target-date", "", "target date")
	create.Flags().StringVar(&opts.ParentProjectID, "parent", "", "parent project id")
	cmd.AddCommand(create)
	return cmd
}

func agentCmd() *cobra.Command {
	cmd := &cobra.Command{Use: "agent", Short: "Manage agents"}
	cmd.AddCommand(&cobra.Command{
		Use:   "list",
		Short: "List agents",
		RunE: func(cmd *cobra.Command, args []string) error {
			return withApp(cmd.Context(), func(ctx context.Context, a *app.App) error {
				agents := a.Store.Agents()
				if viper.GetBool("json") {
					return printJSON(agents)
				}
				tw := table.NewWriter()
				tw.SetOutputMirror(os.Stdout)
				tw.AppendHeader(table.Row{"ID", "Name", "Role", "Status", "Done"})
				for _, ag := range agents {
					tw.AppendRow(table.Row{ag.ID, strings.TrimSpace(ag.Emoji + " " + ag.Name), ag.Role, ag.Status, ag.TasksCompleted})
				}
				tw.Render()
				return nil
			})
		},
	})
	var opts engine.AgentSpawnOptions
	spawn := &cobra.Command{
		Use:   "spawn <name>",
		Short: "Spawn a new agent",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			opts.Name = args[0]
			return withEngine(cmd.Context(), func(ctx context.Context, a *app.App, e *engine.Engine) error {
				ag, err := e.SpawnAgent(ctx, opts)
				if err != nil {
					return err
				}
				return settled(ctx, a, e, func() error {
					if cur, ok := a.Store.Agent(a.Store.Resolve(ag.ID)); ok {
						ag = cur
					}
					return printJSONOrTable(ag)
				})
			})
		},
	}
	spawn.Flags().StringVar(&opts.Role, "role", "", "role")
	spawn.Flags().StringVar(&opts.Emoji, "emoji", "", "emoji")
	spawn.Flags().StringVar(&opts.Description, "description", "", "description")
	spawn.Flags().StringVar(&opts.SystemPrompt, "system-prompt", "", "system prompt")
	spawn.Flags().StringSliceVar(&opts.Tools, "tool", nil, "tool (repeatable)")
	cmd.AddCommand(spawn)
	cmd.AddCommand(&cobra.Command{
		Use:   "direct <agent-id> <directive>",
		Short: "Issue a directive to an agent",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withEngine(cmd.Context(), func(ctx context.Context, a *app.App, e *engine.Engine) error {
				m, err := e.IssueDirective(ctx, args[0], args[1])
				if err != nil {
					return err
				}
				return settled(ctx, a, e, func() error { return printJSONOrTable(m) })
			})
		},
	})
	return cmd
}

func ideaCmd() *cobra.Command {
	cmd := &cobra.Command{Use: "idea", Short: "Capture and review feature requests"}
	var status string
	list := &cobra.Command{
		Use:   "list",
		Short: "List ideas",
		RunE: func(cmd *cobra.Command, args []string) error {
			return withApp(cmd.Context(), func(ctx context.Context, a *app.App) error {
				var ideas []domain.FeatureRequest
				for _, i := range a.Store.Ideas() {
					if status == "" || string(i.Status) == status {
						ideas = append(ideas, i)
					}
				}
				if viper.GetBool("json") {
					return printJSON(ideas)
				}
				tw := table.NewWriter()
				tw.SetOutputMirror(os.Stdout)
				tw.AppendHeader(table.Row{"ID", "Title", "Status", "Priority", "Created"})
				for _, i := range ideas {
					tw.AppendRow(table.Row{i.ID, i.Title, i.Status, i.Priority, relativeTime(i.CreatedAt)})
				}
				tw.Render()
				return nil
			})
		},
	}
	list.Flags().StringVar(&status, "status", "", "status filter")
	cmd.AddCommand(list)

	var opts engine.IdeaCreateOptions
	var priority string
	create := &cobra.Command{
		Use:   "create <title>",
		Short: "Capture an idea",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			opts.Title = args[0]
			opts.Priority = domain.IdeaPriority(priority)
			return withEngine(cmd.Context(), func(ctx context.Context, a *app.App, e *engine.Engine) error {
				i, err := e.CreateIdea(ctx, opts)
				if err != nil {
					return err
				}
				return settled(ctx, a, e, func() error {
					if cur, ok := a.Store.Idea(a.Store.Resolve(i.ID)); ok {
						i = cur
					}
					return printJSONOrTable(i)
				})
			})
		},
	}
	create.Flags().StringVar(&opts.Description, "description", "", "description")
	create.Flags().StringVar(&opts.SourceView, "source-view", "cli", "view the idea was captured from")
	create.Flags().StringVar(&priority, "priority", string(domain.IdeaMedium), "low, medium, high or critical")
	cmd.AddCommand(create)
	return cmd
}

func chatCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "chat <message>",
		Short: "Send a message to the chief-of-staff agent and print the reply",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			content := strings.Join(args, " ")
			return withEngine(cmd.Context(), func(ctx context.Context, a *app.App, e *engine.Engine) error {
				sent, err := e.SendMessage(ctx, content)
				if err != nil {
					return err
				}
				return settled(ctx, a, e, func() error {
					msgs := a.Store.Messages()
					var replies []domain.Message
					after := false
					for _, m := range msgs {
						if m.ID == sent.ID {
							after = true
							continue
						}
						if after && m.Sender == domain.SenderAgent {
							replies = append(replies, m)
						}
					}
					if viper.GetBool("json") {
						return printJSON(map[string]any{"sent": sent, "replies": replies, "thread_id": e.ThreadID()})
					}
					for _, m := range replies {
						fmt.Println(m.Content)
					}
					return nil
				})
			})
		},
	}
}

func serveCmd() *cobra.Command {
	var addr, basePath string
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Start HTTP API server",
		RunE: func(cmd *cobra.Command, args []string) error {
			return withApp(cmd.Context(), func(ctx context.Context, a *app.App) error {
				if addr == "" {
					addr = a.Config.Server.Addr
				}
				if basePath == "" {
					basePath = a.Config.Server.BasePath
				}
				workspace := viper.GetString("workspace")
				stopPersist := a.Session.OnChange(func(s identity.Session, signedIn bool) {
					if err := persistToken(workspace, s.AccessToken); err != nil {
						a.Log.Warn("persist session token failed", zap.Error(err))
					}
				})
				defer stopPersist()

				handler, err := server.New(server.Config{App: a, BasePath: basePath, Logger: a.Log.Named("http")})
				if err != nil {
					return err
				}
				srv := &http.Server{Addr: addr, Handler: handler, ReadHeaderTimeout: 10 * time.Second}
				go func() {
					<-ctx.Done()
					shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
					defer cancel()
					_ = srv.Shutdown(shutdownCtx)
				}()
				mode := "online"
				if a.Offline() {
					mode = "offline"
				}
				fmt.Printf("Serving opsdeck API (%s) on http://%s%s (OpenAPI at %s/openapi.json, docs at %s/docs)\n", mode, addr, basePath, basePath, basePath)
				if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
					return err
				}
				return nil
			})
		},
	}
	cmd.Flags().StringVar(&addr, "addr", "", "listen address (defaults to server.addr)")
	cmd.Flags().StringVar(&basePath, "base-path", "", "API base path (defaults to server.base_path)")
	return cmd
}

// withApp opens a session for the workspace and closes it, waiting for
// background writes, once fn returns.
func withApp(ctx context.Context, fn func(context.Context, *app.App) error) (err error) {
	workspace := viper.GetString("workspace")
	cfg, err := config.LoadOptional(workspace)
	if err != nil {
		return err
	}
	level := cfg.Log.Level
	if v := viper.GetString("log-level"); v != "" {
		level = v
	}
	logger, _, err := logging.New(level, cfg.Log.Format)
	if err != nil {
		return err
	}
	defer func() { _ = logger.Sync() }()

	a, err := app.Open(ctx, app.Options{
		Workspace:    workspace,
		Config:       cfg,
		Logger:       logger,
		Token:        storedToken(workspace),
		ForceOffline: viper.GetBool("offline"),
	})
	if err != nil {
		return err
	}
	defer func() {
		closeCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		err = errors.Join(err, a.Close(closeCtx))
	}()
	return fn(ctx, a)
}

func withEngine(ctx context.Context, fn func(context.Context, *app.App, *engine.Engine) error) error {
	return withApp(ctx, func(ctx context.Context, a *app.App) error {
		return fn(ctx, a, a.Engine())
	})
}

// settled waits for the engine's background calls so printed ids are the
// reconciled remote ones, then runs show.
func settled(ctx context.Context, a *app.App, e *engine.Engine, show func() error) error {
	if err := e.Wait(ctx); err != nil {
		return err
	}
	if a.Offline() && !viper.GetBool("json") {
		fmt.Fprintln(os.Stderr, "offline: change applied locally only")
	}
	return show()
}

func resolvedTask(a *app.App, id string) domain.Task {
	t, _ := a.Store.Task(a.Store.Resolve(id))
	return t
}

// storedToken prefers OPSDECK_TOKEN from the environment and falls back to
// the workspace .env written by login.
func storedToken(workspace string) string {
	if v := viper.GetString("token"); v != "" {
		return v
	}
	env := viper.New()
	env.SetConfigFile(filepath.Join(workspace, ".env"))
	env.SetConfigType("env")
	if err := env.ReadInConfig(); err != nil {
		return ""
	}
	return env.GetString(tokenKey)
}

func persistToken(workspace, token string) error {
	return setEnvValue(filepath.Join(workspace, ".env"), tokenKey, token)
}

func relativeTime(ts string) string {
	t, err := time.Parse(time.RFC3339, ts)
	if err != nil {
		return ts
	}
	return humanize.Time(t)
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if v != "" {
			return v
		}
	}
	return ""
}

func printJSONOrTable(v any) error {
	if viper.GetBool("json") {
		return printJSON(v)
	}
	tw := newFieldTable(v)
	if tw == nil {
		return printJSON(v)
	}
	tw.SetOutputMirror(os.Stdout)
	tw.Render()
	return nil
}

// newFieldTable lays out one entity as a Field/Value table. It returns nil
// for values that are not JSON objects.
func newFieldTable(v any) table.Writer {
	b, err := json.Marshal(v)
	if err != nil {
		return nil
	}
	var fields map[string]any
	if err := json.Unmarshal(b, &fields); err != nil {
		return nil
	}
	keys := make([]string, 0, len(fields))
	for k := range fields {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	tw := table.NewWriter()
	tw.AppendHeader(table.Row{"Field", "Value"})
	for _, k := range keys {
		tw.AppendRow(table.Row{k, fieldValue(fields[k])})
	}
	return tw
}

func fieldValue(v any) string {
	switch x := v.(type) {
	case nil:
		return ""
	case string:
		return x
	case float64, bool:
		return fmt.Sprint(x)
	default:
		b, _ := json.Marshal(x)
		return string(b)
	}
}

func printJSON(v any) error {
	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

func setEnvValue(path, key, value string) error {
	var lines []string
	seen := false
	f, err := os.Open(path)
	if err == nil {
		scanner := bufio.NewScanner(f)
		for scanner.Scan() {
			line := scanner.Text()
			if strings.HasPrefix(line, key+"=") {
				lines = append(lines, fmt.Sprintf("%s=%s", key, value))
				seen = true
			} else {
				lines = append(lines, line)
			}
		}
		if err := scanner.Err(); err != nil {
			f.Close()
			return err
		}
		f.Close()
	} else if !os.IsNotExist(err) {
		return err
	}
	if !seen {
		lines = append(lines, fmt.Sprintf("%s=%s", key, value))
	}
	content := strings.Join(lines, "\n")
	if content != "" && !strings.HasSuffix(content, "\n") {
		content += "\n"
	}
	return os.WriteFile(path, []byte(content), 0o600)
}
