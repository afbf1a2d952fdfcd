package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"os"
	"strings"
	"time"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/kartoza/rue-api/internal/app"
	"github.com/kartoza/rue-api/internal/db"
	"github.com/kartoza/rue-api/internal/engine"
	"github.com/kartoza/rue-api/internal/pipeline"
	"github.com/kartoza/rue-api/internal/server"
)

var rootCmd = &cobra.Command{
	Use:   "rue",
	Short: "RUE urban planning pipeline",
	Long: `rue generates urban-planning artifacts (street networks, parcels,
building footprints) for a project through a fixed step pipeline:
site -> streets -> clusters -> public -> subdivision -> footprint ->
building_start -> building_max.

Each step writes its artifacts and a task.json status file under
<data_dir>/<project-uuid>/<NN>-<step>/; a step only runs once its
predecessor's output folder exists.`,
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
	if err := rootCmd.Execute(); err != nil {
		fmt.Println("error:", err)
		os.Exit(1)
	}
}

func initConfig() {
	viper.SetEnvPrefix("RUE")
	viper.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
	viper.AutomaticEnv()
}

func addPersistentFlags() {
	rootCmd.PersistentFlags().StringP("workspace", "w", ".", "workspace directory")
	rootCmd.PersistentFlags().Bool("json", false, "output JSON")
	_ = viper.BindPFlag("workspace", rootCmd.PersistentFlags().Lookup("workspace"))
	_ = viper.BindPFlag("json", rootCmd.PersistentFlags().Lookup("json"))
}

func registerCommands() {
	rootCmd.AddCommand(projectCmd())
	rootCmd.AddCommand(generateCmd())
	rootCmd.AddCommand(statusCmd())
	rootCmd.AddCommand(eventsCmd())
	rootCmd.AddCommand(serveCmd())
}

func projectCmd() *cobra.Command {
	prj := &cobra.Command{Use: "project", Short: "Manage projects"}
	prj.AddCommand(projectCreateCmd())
	prj.AddCommand(projectListCmd())
	prj.AddCommand(projectShowCmd())
	return prj
}

func projectCreateCmd() *cobra.Command {
	var name, desc, siteFile, roadsFile, paramsFile, metaFile string
	var noRun bool
	cmd := &cobra.Command{
		Use:   "create",
		Short: "Create a project and run the pipeline",
		RunE: func(cmd *cobra.Command, args []string) error {
			return withApp(cmd.Context(), func(ctx context.Context, a *app.App) error {
				opts := engine.CreateProjectOptions{Name: name, Description: desc}
				if siteFile != "" {
					if err := readJSONFile(siteFile, &opts.Site); err != nil {
						return err
					}
				}
				if roadsFile != "" {
					if err := readJSONFile(roadsFile, &opts.Roads); err != nil {
						return err
					}
				}
				if paramsFile != "" {
					if err := readJSONFile(paramsFile, &opts.Parameters); err != nil {
						return err
					}
				}
				if metaFile != "" {
					if err := readJSONFile(metaFile, &opts.Metadata); err != nil {
						return err
					}
				}
				p, err := a.Engine.CreateProject(ctx, opts)
				if err != nil {
					return err
				}
				if !noRun {
					if err := a.Engine.StartPipeline(ctx, p.UUID, 0, pipeline.NoMaxStep); err != nil {
						return err
					}
					a.Drain()
				}
				return printJSON(p)
			})
		},
	}
	cmd.Flags().StringVar(&name, "name", "", "project name")
	cmd.Flags().StringVar(&desc, "description", "", "description")
	cmd.Flags().StringVar(&siteFile, "site", "", "site polygon GeoJSON file")
	cmd.Flags().StringVar(&roadsFile, "roads", "", "road lines GeoJSON file")
	cmd.Flags().StringVar(&paramsFile, "parameters", "", "parameters JSON file")
	cmd.Flags().StringVar(&metaFile, "metadata", "", "metadata JSON file")
	cmd.Flags().BoolVar(&noRun, "no-run", false, "create only; do not start the pipeline")
	_ = cmd.MarkFlagRequired("name")
	return cmd
}

func projectListCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "list",
		Short: "List projects",
		RunE: func(cmd *cobra.Command, args []string) error {
			return withApp(cmd.Context(), func(ctx context.Context, a *app.App) error {
				items, err := a.Engine.Repo.ListProjects(ctx)
				if err != nil {
					return err
				}
				if viper.GetBool("json") {
					return printJSON(items)
				}
				tw := table.NewWriter()
				tw.SetOutputMirror(os.Stdout)
				tw.AppendHeader(table.Row{"UUID", "Name", "Created"})
				for _, p := range items {
					tw.AppendRow(table.Row{p.UUID, p.Name, p.CreatedAt})
				}
				tw.Render()
				return nil
			})
		},
	}
	return cmd
}

func projectShowCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "show <uuid>",
		Short: "Show a project",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withApp(cmd.Context(), func(ctx context.Context, a *app.App) error {
				p, err := a.Engine.Repo.GetProject(ctx, args[0])
				if err != nil {
					return err
				}
				return printJSON(p)
			})
		},
	}
	return cmd
}

func generateCmd() *cobra.Command {
	var fromStep, maxStep int
	cmd := &cobra.Command{
		Use:   "generate <uuid>",
		Short: "Run the pipeline for a project",
		Long:  "Runs steps [--from, --max) inline and waits for the chain to finish. Existing step artifacts are overwritten.",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withApp(cmd.Context(), func(ctx context.Context, a *app.App) error {
				if err := a.Engine.StartPipeline(ctx, args[0], fromStep, maxStep); err != nil {
					return err
				}
				a.Drain()
				return showStatus(ctx, a, args[0])
			})
		},
	}
	cmd.Flags().IntVar(&fromStep, "from", 0, "step index to start from")
	cmd.Flags().IntVar(&maxStep, "max", pipeline.NoMaxStep, "exclusive upper bound on steps to run (-1 for all)")
	return cmd
}

func statusCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "status <uuid>",
		Short: "Show per-step pipeline status",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withApp(cmd.Context(), func(ctx context.Context, a *app.App) error {
				return showStatus(ctx, a, args[0])
			})
		},
	}
	return cmd
}

func showStatus(ctx context.Context, a *app.App, projectUUID string) error {
	overviews, err := a.Engine.StepOverviews(ctx, projectUUID)
	if err != nil {
		return err
	}
	if viper.GetBool("json") {
		return printJSON(overviews)
	}
	tw := table.NewWriter()
	tw.SetOutputMirror(os.Stdout)
	tw.AppendHeader(table.Row{"Step", "Status", "Artifact", "Message"})
	for _, ov := range overviews {
		status := ov.Task.Status
		if status == "" {
			status = "-"
		}
		artifact := "missing"
		if ov.Artifact {
			artifact = "ok"
		}
		tw.AppendRow(table.Row{ov.Folder, status, artifact, ov.Task.Message})
	}
	tw.Render()
	return nil
}

func eventsCmd() *cobra.Command {
	var limit int
	cmd := &cobra.Command{
		Use:   "events <uuid>",
		Short: "Show recent pipeline events for a project",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withApp(cmd.Context(), func(ctx context.Context, a *app.App) error {
				if _, err := a.Engine.Repo.GetProject(ctx, args[0]); err != nil {
					return err
				}
				items, err := a.Engine.Repo.RecentEvents(ctx, args[0], limit)
				if err != nil {
					return err
				}
				if viper.GetBool("json") {
					return printJSON(items)
				}
				tw := table.NewWriter()
				tw.SetOutputMirror(os.Stdout)
				tw.AppendHeader(table.Row{"TS", "Type", "Step", "Payload"})
				for _, e := range items {
					tw.AppendRow(table.Row{e.TS, e.Type, e.Step, e.Payload})
				}
				tw.Render()
				return nil
			})
		},
	}
	cmd.Flags().IntVar(&limit, "limit", 50, "max events to show")
	return cmd
}

func serveCmd() *cobra.Command {
	var addr, basePath string
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Start HTTP API server",
		RunE: func(cmd *cobra.Command, args []string) error {
			workspace := viper.GetString("workspace")
			a, err := app.Build(workspace, nil, nil)
			if err != nil {
				return err
			}
			defer a.Close()
			if addr == "" {
				addr = a.Config.Server.Addr
			}
			if basePath == "" {
				basePath = a.Config.Server.BasePath
			}
			handler, err := server.New(server.Config{Engine: a.Engine, BasePath: basePath})
			if err != nil {
				return err
			}
			srv := &http.Server{Addr: addr, Handler: handler}
			go func() {
				<-cmd.Context().Done()
				ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
				defer cancel()
				srv.Shutdown(ctx)
			}()
			fmt.Printf("Serving RUE API on http://%s%s (OpenAPI at %s/openapi.json, Swagger UI at /docs)\n", addr, basePath, basePath)
			if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				return err
			}
			return nil
		},
	}
	cmd.Flags().StringVar(&addr, "addr", "", "listen address (default from config)")
	cmd.Flags().StringVar(&basePath, "base-path", "", "API base path (default from config)")
	return cmd
}

// --- helpers ---

func withApp(ctx context.Context, fn func(context.Context, *app.App) error) error {
	workspace := viper.GetString("workspace")
	a, err := app.Build(workspace, nil, nil)
	if err != nil {
		return err
	}
	defer a.Close()
	return fn(ctx, a)
}

func readJSONFile(path string, v any) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return err
	}
	if err := json.Unmarshal(data, v); err != nil {
		return fmt.Errorf("parse %s: %w", path, err)
	}
	return nil
}

func printJSON(v any) error {
	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
