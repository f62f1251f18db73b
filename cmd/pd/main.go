package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"strconv"
	"strings"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"go.uber.org/zap"

	"projectdesk/internal/app"
	"projectdesk/internal/config"
	"projectdesk/internal/datasource"
	"projectdesk/internal/domain"
	"projectdesk/internal/logging"
	"projectdesk/internal/search"
	"projectdesk/internal/server"
)

var rootCmd = &cobra.Command{
	Use:   "pd",
	Short: "Projectdesk CLI",
	Long: `Projectdesk searches projects and manages their todos and notes.
Data comes from the built-in fixture dataset or from a remote REST backend:
- fixture: in-memory seed data with simulated latency (default).
- remote: the backend at data_source.api_base_url.
Settings come from projectdesk.yml, PROJECTDESK_* environment variables and flags, in increasing priority.`,
	SilenceUsage: true,
}

func main() {
	cobra.OnInitialize(initConfig)
	addPersistentFlags()
	registerCommands()
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	if err := rootCmd.ExecuteContext(ctx); err != nil {
		fmt.Println("error:", err)
		os.Exit(1)
	}
}

func initConfig() {
	viper.SetEnvPrefix("PROJECTDESK")
	viper.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
	viper.AutomaticEnv()
}

func addPersistentFlags() {
	flags := rootCmd.PersistentFlags()
	flags.StringP("workspace", "w", ".", "directory holding projectdesk.yml")
	flags.String("config", "", "config file (overrides workspace lookup)")
	flags.String("mode", "", "data source: fixture or remote")
	flags.String("api-base-url", "", "remote backend base url")
	flags.Duration("timeout", 0, "remote request timeout")
	flags.Duration("latency", -1, "simulated fixture latency")
	flags.String("log-level", "", "debug, info, warn or error")
	flags.Bool("json", false, "output JSON")
	for _, name := range []string{"workspace", "config", "mode", "api-base-url", "timeout", "latency", "log-level", "json"} {
		_ = viper.BindPFlag(name, flags.Lookup(name))
	}
}

func registerCommands() {
	rootCmd.AddCommand(projectCmd())
	rootCmd.AddCommand(employeeCmd())
	rootCmd.AddCommand(todoCmd())
	rootCmd.AddCommand(noteCmd())
	rootCmd.AddCommand(configCmd())
	rootCmd.AddCommand(serveCmd())
}

// loadConfig reads the config file and applies env and flag overrides.
func loadConfig() (*config.Config, error) {
	var (
		cfg *config.Config
		err error
	)
	if path := viper.GetString("config"); path != "" {
		cfg, err = config.FromFile(path)
	} else {
		cfg, err = config.LoadOptional(viper.GetString("workspace"))
	}
	if err != nil {
		return nil, err
	}
	if viper.IsSet("mode") && viper.GetString("mode") != "" {
		mode, err := datasource.Parse(viper.GetString("mode"))
		if err != nil {
			return nil, err
		}
		cfg.DataSource.Mode = mode.String()
	}
	if v := viper.GetString("api-base-url"); v != "" {
		cfg.DataSource.APIBaseURL = v
	}
	if v := viper.GetDuration("timeout"); v > 0 {
		cfg.DataSource.Timeout = v
	}
	if viper.IsSet("latency") {
		if v := viper.GetDuration("latency"); v >= 0 {
			cfg.Fixture.Latency = v
			cfg.Fixture.SearchLatency = v
		}
	}
	if v := viper.GetString("log-level"); v != "" {
		cfg.Log.Level = v
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func withApp(ctx context.Context, fn func(context.Context, *app.App) error) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	log, err := logging.New(cfg.Log.Level, cfg.Log.Format)
	if err != nil {
		return err
	}
	defer log.Sync()
	a, err := app.New(cfg, log)
	if err != nil {
		return err
	}
	return fn(ctx, a)
}

func withStores(ctx context.Context, fn func(context.Context, app.Stores) error) error {
	return withApp(ctx, func(ctx context.Context, a *app.App) error {
		return fn(ctx, a.Stores(a.Provider(nil)))
	})
}

func parseID(s string) (int64, error) {
	id, err := strconv.ParseInt(strings.TrimSpace(s), 10, 64)
	if err != nil {
		return 0, fmt.Errorf("invalid id %q", s)
	}
	return id, nil
}

func storeError(text, fallback string) error {
	if text != "" {
		return errors.New(text)
	}
	return errors.New(fallback)
}

func projectCmd() *cobra.Command {
	prj := &cobra.Command{Use: "project", Short: "Browse and search projects"}
	prj.AddCommand(projectListCmd())
	prj.AddCommand(projectSearchCmd())
	prj.AddCommand(projectShowCmd())
	prj.AddCommand(projectSuggestCmd())
	return prj
}

func projectListCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "List projects",
		RunE: func(cmd *cobra.Command, args []string) error {
			return withStores(cmd.Context(), func(ctx context.Context, st app.Stores) error {
				if !st.Projects.Initialize(ctx) {
					return storeError(st.Projects.State().InitError, "load failed")
				}
				return printProjects(st.Projects.State().Projects)
			})
		},
	}
}

func projectSearchCmd() *cobra.Command {
	var (
		codes, statuses  []string
		name, department string
		from, to         string
	)
	cmd := &cobra.Command{
		Use:   "search",
		Short: "Search projects",
		Long:  "Repeat --code and --status to match any of several values. Every given filter must match.",
		RunE: func(cmd *cobra.Command, args []string) error {
			params := domain.SearchParams{ProjectCodes: codes, Name: name, Department: department}
			for _, s := range statuses {
				params.Statuses = append(params.Statuses, domain.ProjectStatus(s))
			}
			var err error
			if params.StartDateFrom, err = flagDate("from", from); err != nil {
				return err
			}
			if params.StartDateTo, err = flagDate("to", to); err != nil {
				return err
			}
			return withStores(cmd.Context(), func(ctx context.Context, st app.Stores) error {
				st.Projects.SetSearchParams(params)
				if !st.Projects.Search(ctx) {
					return storeError(st.Projects.State().SearchError, "search failed")
				}
				return printProjects(st.Projects.State().Results)
			})
		},
	}
	cmd.Flags().StringSliceVar(&codes, "code", nil, "project code fragment (repeatable)")
	cmd.Flags().StringVar(&name, "name", "", "name fragment, case-insensitive")
	cmd.Flags().StringVar(&department, "department", "", "department fragment, case-insensitive")
	cmd.Flags().StringSliceVar(&statuses, "status", nil, "active, on-hold or completed (repeatable)")
	cmd.Flags().StringVar(&from, "from", "", "earliest start date (YYYY-MM-DD)")
	cmd.Flags().StringVar(&to, "to", "", "latest start date (YYYY-MM-DD)")
	return cmd
}

func flagDate(flag, raw string) (*time.Time, error) {
	if raw == "" {
		return nil, nil
	}
	t, ok := search.ParseDate(raw)
	if !ok {
		return nil, fmt.Errorf("--%s: invalid date %q", flag, raw)
	}
	return &t, nil
}

func projectShowCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "show <id>",
		Short: "Show a project with its team, todos and notes",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := parseID(args[0])
			if err != nil {
				return err
			}
			return withStores(cmd.Context(), func(ctx context.Context, st app.Stores) error {
				p := st.Projects.FetchProject(ctx, id)
				if p == nil {
					return storeError(st.Projects.State().ProjectError, "project not found")
				}
				if !st.Projects.Initialize(ctx) {
					return storeError(st.Projects.State().InitError, "load failed")
				}
				if !st.Todos.Initialize(ctx) || !st.Todos.LoadProjectTodos(ctx, id) {
					return storeError(st.Todos.State().Error, "load todos failed")
				}
				if !st.Notes.Load(ctx, id) {
					return storeError(st.Notes.State().Error, "load notes failed")
				}
				view := projectView{
					Project:   *p,
					Employees: st.Projects.ProjectEmployees(id),
					Todos:     st.Todos.ProjectTodos(id),
					Notes:     st.Notes.ProjectNotes(id),
				}
				return printProjectView(view)
			})
		},
	}
}

func projectSuggestCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "suggest <code-fragment>",
		Short: "Suggest project codes",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withStores(cmd.Context(), func(ctx context.Context, st app.Stores) error {
				return printSuggestions(st.Projects.CodeSuggestions(ctx, args[0]))
			})
		},
	}
}

func employeeCmd() *cobra.Command {
	emp := &cobra.Command{Use: "employee", Short: "Browse employees"}
	emp.AddCommand(&cobra.Command{
		Use:   "list",
		Short: "List employees",
		RunE: func(cmd *cobra.Command, args []string) error {
			return withStores(cmd.Context(), func(ctx context.Context, st app.Stores) error {
				if !st.Employees.Initialize(ctx) {
					return storeError(st.Employees.State().Error, "load failed")
				}
				return printEmployees(st.Employees.State().Employees)
			})
		},
	})
	emp.AddCommand(&cobra.Command{
		Use:   "show <id>",
		Short: "Show an employee",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := parseID(args[0])
			if err != nil {
				return err
			}
			return withApp(cmd.Context(), func(ctx context.Context, a *app.App) error {
				e, err := a.Provider(nil).Employees.Get(ctx, id)
				if err != nil {
					return err
				}
				if e == nil {
					return fmt.Errorf("employee %d not found", id)
				}
				return printEmployees([]domain.Employee{*e})
			})
		},
	})
	return emp
}

func todoCmd() *cobra.Command {
	todo := &cobra.Command{Use: "todo", Short: "Manage project todos"}
	todo.AddCommand(todoListCmd())
	todo.AddCommand(todoAddCmd())
	todo.AddCommand(todoUpdateCmd())
	todo.AddCommand(todoReassignCmd())
	todo.AddCommand(todoToggleCmd())
	todo.AddCommand(todoDeleteCmd())
	todo.AddCommand(todoHistoryCmd())
	return todo
}

func todoListCmd() *cobra.Command {
	var projectID int64
	cmd := &cobra.Command{
		Use:   "list",
		Short: "List todos",
		RunE: func(cmd *cobra.Command, args []string) error {
			return withStores(cmd.Context(), func(ctx context.Context, st app.Stores) error {
				if !st.Todos.Initialize(ctx) {
					return storeError(st.Todos.State().Error, "load failed")
				}
				items := st.Todos.State().Todos
				if projectID != 0 {
					items = st.Todos.ProjectTodos(projectID)
				}
				return printTodos(items)
			})
		},
	}
	cmd.Flags().Int64Var(&projectID, "project", 0, "only todos of this project")
	return cmd
}

func todoAddCmd() *cobra.Command {
	var (
		in  domain.NewTodoInput
		due string
	)
	cmd := &cobra.Command{
		Use:   "add",
		Short: "Create a todo",
		RunE: func(cmd *cobra.Command, args []string) error {
			if in.ProjectID == 0 || in.Title == "" {
				return fmt.Errorf("--project and --title required")
			}
			if due != "" {
				in.DueDate = &due
			}
			return withStores(cmd.Context(), func(ctx context.Context, st app.Stores) error {
				todo := st.Todos.Add(ctx, in)
				if todo == nil {
					return storeError(st.Todos.State().Error, "create failed")
				}
				return printTodos([]domain.Todo{*todo})
			})
		},
	}
	cmd.Flags().Int64Var(&in.ProjectID, "project", 0, "project id")
	cmd.Flags().StringVar(&in.Title, "title", "", "title")
	cmd.Flags().StringVar(&in.Description, "description", "", "description")
	cmd.Flags().StringVar(&due, "due", "", "due date (YYYY-MM-DD)")
	cmd.Flags().Int64Var(&in.AssigneeID, "assignee", 0, "assignee employee id")
	cmd.Flags().Int64Var(&in.CreatorID, "creator", 0, "creator employee id")
	return cmd
}

func todoUpdateCmd() *cobra.Command {
	var (
		title, description, due string
		clearDue                bool
	)
	cmd := &cobra.Command{
		Use:   "update <id>",
		Short: "Edit title, description or due date of an open todo",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := parseID(args[0])
			if err != nil {
				return err
			}
			var u domain.TodoUpdate
			if cmd.Flags().Changed("title") {
				u.Title = &title
			}
			if cmd.Flags().Changed("description") {
				u.Description = &description
			}
			switch {
			case clearDue:
				u = u.ClearDueDate()
			case cmd.Flags().Changed("due"):
				u = u.SetDueDate(due)
			}
			if u.IsEmpty() {
				return fmt.Errorf("nothing to update")
			}
			return withStores(cmd.Context(), func(ctx context.Context, st app.Stores) error {
				if !st.Todos.Initialize(ctx) {
					return storeError(st.Todos.State().Error, "load failed")
				}
				if !st.Todos.Update(ctx, id, u) {
					return storeError(st.Todos.State().Error, fmt.Sprintf("todo %d not updated (missing or completed)", id))
				}
				return printHeldTodo(st, id)
			})
		},
	}
	cmd.Flags().StringVar(&title, "title", "", "new title")
	cmd.Flags().StringVar(&description, "description", "", "new description")
	cmd.Flags().StringVar(&due, "due", "", "new due date (YYYY-MM-DD)")
	cmd.Flags().BoolVar(&clearDue, "clear-due", false, "remove the due date")
	return cmd
}

func todoReassignCmd() *cobra.Command {
	var in domain.ReassignInput
	cmd := &cobra.Command{
		Use:   "reassign <id>",
		Short: "Hand a todo to another employee",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := parseID(args[0])
			if err != nil {
				return err
			}
			return withStores(cmd.Context(), func(ctx context.Context, st app.Stores) error {
				if !st.Todos.Initialize(ctx) {
					return storeError(st.Todos.State().Error, "load failed")
				}
				if !st.Todos.Reassign(ctx, id, in) {
					return storeError(st.Todos.State().Error, fmt.Sprintf("todo %d not found", id))
				}
				return printHeldTodo(st, id)
			})
		},
	}
	cmd.Flags().Int64Var(&in.NewAssigneeID, "to", 0, "new assignee employee id")
	cmd.Flags().Int64Var(&in.ReassignedByID, "by", 0, "employee making the change")
	return cmd
}

func todoToggleCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "toggle <id>",
		Short: "Flip a todo between open and completed",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := parseID(args[0])
			if err != nil {
				return err
			}
			return withStores(cmd.Context(), func(ctx context.Context, st app.Stores) error {
				if !st.Todos.Initialize(ctx) {
					return storeError(st.Todos.State().Error, "load failed")
				}
				if !st.Todos.ToggleComplete(ctx, id) {
					return storeError(st.Todos.State().Error, fmt.Sprintf("todo %d not found", id))
				}
				return printHeldTodo(st, id)
			})
		},
	}
}

func todoDeleteCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "delete <id>",
		Short: "Delete a todo",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := parseID(args[0])
			if err != nil {
				return err
			}
			return withStores(cmd.Context(), func(ctx context.Context, st app.Stores) error {
				if !st.Todos.Delete(ctx, id) {
					return storeError(st.Todos.State().Error, fmt.Sprintf("todo %d not found", id))
				}
				fmt.Printf("deleted todo %d\n", id)
				return nil
			})
		},
	}
}

func todoHistoryCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "history <id>",
		Short: "Show the assignment history of a todo",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := parseID(args[0])
			if err != nil {
				return err
			}
			return withStores(cmd.Context(), func(ctx context.Context, st app.Stores) error {
				if !st.Todos.Initialize(ctx) {
					return storeError(st.Todos.State().Error, "load failed")
				}
				todo, ok := findTodo(st.Todos.State().Todos, id)
				if !ok {
					return fmt.Errorf("todo %d not found", id)
				}
				return printHistory(todo)
			})
		},
	}
}

func noteCmd() *cobra.Command {
	var projectID int64
	note := &cobra.Command{
		Use:   "note",
		Short: "Manage project notes",
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			if projectID == 0 {
				return fmt.Errorf("--project required")
			}
			return nil
		},
	}
	note.PersistentFlags().Int64Var(&projectID, "project", 0, "project id")
	note.AddCommand(&cobra.Command{
		Use:   "list",
		Short: "List notes, newest first",
		RunE: func(cmd *cobra.Command, args []string) error {
			return withStores(cmd.Context(), func(ctx context.Context, st app.Stores) error {
				if !st.Notes.Load(ctx, projectID) {
					return storeError(st.Notes.State().Error, "load failed")
				}
				return printNotes(st.Notes.ProjectNotes(projectID))
			})
		},
	})
	note.AddCommand(&cobra.Command{
		Use:   "add <content>",
		Short: "Add a note",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withStores(cmd.Context(), func(ctx context.Context, st app.Stores) error {
				n := st.Notes.Add(ctx, projectID, args[0])
				if n == nil {
					return storeError(st.Notes.State().Error, "create failed")
				}
				return printNotes([]domain.ProjectNote{*n})
			})
		},
	})
	note.AddCommand(&cobra.Command{
		Use:   "update <id> <content>",
		Short: "Replace a note's content",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := parseID(args[0])
			if err != nil {
				return err
			}
			return withStores(cmd.Context(), func(ctx context.Context, st app.Stores) error {
				if !st.Notes.Load(ctx, projectID) {
					return storeError(st.Notes.State().Error, "load failed")
				}
				if !st.Notes.Update(ctx, projectID, id, args[1]) {
					return storeError(st.Notes.State().Error, fmt.Sprintf("note %d not found in project %d", id, projectID))
				}
				return printNotes(st.Notes.ProjectNotes(projectID))
			})
		},
	})
	note.AddCommand(&cobra.Command{
		Use:   "delete <id>",
		Short: "Delete a note",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := parseID(args[0])
			if err != nil {
				return err
			}
			return withStores(cmd.Context(), func(ctx context.Context, st app.Stores) error {
				if !st.Notes.Delete(ctx, projectID, id) {
					return storeError(st.Notes.State().Error, fmt.Sprintf("note %d not found in project %d", id, projectID))
				}
				fmt.Printf("deleted note %d\n", id)
				return nil
			})
		},
	})
	return note
}

func configCmd() *cobra.Command {
	cfgCmd := &cobra.Command{Use: "config", Short: "Inspect and write projectdesk.yml"}
	cfgCmd.AddCommand(&cobra.Command{
		Use:   "show",
		Short: "Print the effective config",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig()
			if err != nil {
				return err
			}
			return printConfig(cfg)
		},
	})
	var force bool
	initCmd := &cobra.Command{
		Use:   "init",
		Short: "Write a default projectdesk.yml into the workspace",
		RunE: func(cmd *cobra.Command, args []string) error {
			path := config.Path(viper.GetString("workspace"))
			if _, err := os.Stat(path); err == nil && !force {
				return fmt.Errorf("%s exists; use --force to overwrite", path)
			}
			if err := os.WriteFile(path, []byte(config.GenerateDefault()), 0o644); err != nil {
				return err
			}
			fmt.Printf("wrote %s\n", path)
			return nil
		},
	}
	initCmd.Flags().BoolVar(&force, "force", false, "overwrite an existing file")
	cfgCmd.AddCommand(initCmd)
	cfgCmd.AddCommand(&cobra.Command{
		Use:   "validate",
		Short: "Validate the effective config",
		RunE: func(cmd *cobra.Command, args []string) error {
			if _, err := loadConfig(); err != nil {
				return err
			}
			fmt.Println("config ok")
			return nil
		},
	})
	return cfgCmd
}

func serveCmd() *cobra.Command {
	var addr, basePath string
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Serve the REST API over the configured data source",
		RunE: func(cmd *cobra.Command, args []string) error {
			return withApp(cmd.Context(), func(ctx context.Context, a *app.App) error {
				if addr == "" {
					addr = a.Config.Server.Addr
				}
				if basePath == "" {
					basePath = a.Config.Server.BasePath
				}
				handler, err := server.New(server.Config{
					Providers: a.Providers,
					BasePath:  basePath,
					Log:       a.Log.Named("http"),
					Metrics:   a.Metrics.Handler(),
				})
				if err != nil {
					return err
				}
				srv := &http.Server{Addr: addr, Handler: handler, ReadHeaderTimeout: 10 * time.Second}
				go func() {
					<-ctx.Done()
					shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
					defer cancel()
					srv.Shutdown(shutdownCtx)
				}()
				a.Log.Info("serving projectdesk api",
					zap.String("addr", addr),
					zap.String("base_path", basePath),
					zap.String("mode", a.Config.Mode().String()),
				)
				if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
					return err
				}
				return nil
			})
		},
	}
	cmd.Flags().StringVar(&addr, "addr", "", "listen address (default server.addr)")
	cmd.Flags().StringVar(&basePath, "base-path", "", "API base path (default server.base_path)")
	return cmd
}
