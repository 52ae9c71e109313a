// Copyright 2025 Poiesic Systems
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.


package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log"
	"log/slog"
	"os"
	"strings"
	"time"

	"github.com/poiesic/chatvault"
	"github.com/poiesic/chatvault/ai"
	"github.com/poiesic/chatvault/ai/openai"
	"github.com/poiesic/chatvault/ingestion"
	"github.com/poiesic/chatvault/search"
	"github.com/poiesic/chatvault/summarize"
	"github.com/urfave/cli/v2"
	"gopkg.in/yaml.v3"
)

func main() {
	if err := newApp().Run(os.Args); err != nil {
		log.Fatal(err)
	}
}

func newApp() *cli.App {
	return &cli.App{
		Name:  "chatvault",
		Usage: "Persistent storage for captured chat transcripts",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:    "log-level",
				Aliases: []string{"l"},
				Usage:   "Set logging level (debug, info, warn, error)",
				Value:   "info",
			},
			&cli.StringFlag{
				Name:    "db",
				Aliases: []string{"d"},
				Usage:   "Directory holding the BadgerDB databases (or db in the config file)",
				EnvVars: []string{"CHATVAULT_DB"},
			},
			&cli.StringFlag{
				Name:  "name",
				Usage: "Database name",
				Value: chatvault.DefaultDBName,
			},
			&cli.StringFlag{
				Name:    "config",
				Aliases: []string{"c"},
				Usage:   "Path to a YAML configuration file",
			},
		},
		Before: setupLogger,
		Commands: []*cli.Command{
			{
				Name:      "import",
				Usage:     "Import blocks from a JSONL file (use - for stdin)",
				ArgsUsage: "<file.jsonl>",
				Action:    importCommand,
				Flags: []cli.Flag{
					&cli.IntFlag{
						Name:  "workers",
						Usage: "Number of concurrent writers",
						Value: 8,
					},
				},
			},
			{
				Name:      "get",
				Usage:     "Print one block",
				ArgsUsage: "<id>",
				Action:    getCommand,
			},
			{
				Name:   "list",
				Usage:  "Print the blocks of a session in chunk order",
				Action: listCommand,
				Flags: []cli.Flag{
					&cli.StringFlag{
						Name:     "session",
						Aliases:  []string{"s"},
						Usage:    "Session URL",
						Required: true,
					},
				},
			},
			{
				Name:      "rm",
				Usage:     "Delete one block",
				ArgsUsage: "<id>",
				Action:    rmCommand,
			},
			{
				Name:   "clear",
				Usage:  "Delete every block, or only the blocks of one session",
				Action: clearCommand,
				Flags: []cli.Flag{
					&cli.StringFlag{
						Name:    "session",
						Aliases: []string{"s"},
						Usage:   "Only clear this session",
					},
					&cli.BoolFlag{
						Name:  "meta",
						Usage: "Also clear meta summaries",
					},
				},
			},
			{
				Name:   "stats",
				Usage:  "Print block, message and session totals",
				Action: statsCommand,
			},
			{
				Name:  "meta",
				Usage: "Inspect meta summaries",
				Subcommands: []*cli.Command{
					{
						Name:   "list",
						Usage:  "Print the meta summaries of a session",
						Action: metaListCommand,
						Flags: []cli.Flag{
							&cli.StringFlag{
								Name:     "session",
								Aliases:  []string{"s"},
								Usage:    "Session URL",
								Required: true,
							},
						},
					},
				},
			},
			{
				Name:   "summarize",
				Usage:  "Generate meta summaries for a session with an LLM",
				Action: summarizeCommand,
				Flags: []cli.Flag{
					&cli.StringFlag{
						Name:     "session",
						Aliases:  []string{"s"},
						Usage:    "Session URL",
						Required: true,
					},
					&cli.IntFlag{
						Name:  "window",
						Usage: "Number of blocks covered by each summary",
						Value: 8,
					},
					&cli.StringFlag{
						Name:  "host",
						Usage: "OpenAI-compatible service host URL",
						Value: "http://localhost:11434/v1",
					},
					&cli.StringFlag{
						Name:  "model",
						Usage: "Model name",
						Value: "qwen2.5:3b",
					},
					&cli.BoolFlag{
						Name:  "overwrite",
						Usage: "Regenerate summaries that already exist",
					},
					&cli.IntFlag{
						Name:  "max-retries",
						Usage: "Maximum retry attempts for failed operations",
						Value: 3,
					},
					&cli.DurationFlag{
						Name:  "retry-delay",
						Usage: "Base delay for exponential backoff",
						Value: 1 * time.Second,
					},
				},
			},
			{
				Name:      "search",
				Usage:     "Keyword search over blocks and meta summaries",
				ArgsUsage: "<query>",
				Action:    searchCommand,
				Flags: []cli.Flag{
					&cli.StringFlag{
						Name:    "session",
						Aliases: []string{"s"},
						Usage:   "Only search this session",
					},
					&cli.IntFlag{
						Name:  "max-hits",
						Usage: "Maximum number of results",
						Value: 10,
					},
				},
			},
		},
	}
}

// fileConfig is the YAML configuration file. Flags set on the command line
// take precedence over it.
type fileConfig struct {
	DB    string `yaml:"db"`
	Name  string `yaml:"name"`
	Host  string `yaml:"host"`
	Model string `yaml:"model"`
}

func loadConfig(path string) (*fileConfig, error) {
	cfg := &fileConfig{}
	if path == "" {
		return cfg, nil
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config: %w", err)
	}
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config %s: %w", path, err)
	}
	return cfg, nil
}

// setting returns the flag value when it was given, the config value when
// that is set, and the flag default otherwise.
func setting(c *cli.Context, flag, fromFile string) string {
	if c.IsSet(flag) || fromFile == "" {
		return c.String(flag)
	}
	return fromFile
}

// errDBRequired is returned when neither the flag nor the config file names
// a database directory.
var errDBRequired = errors.New("database directory is required: pass --db or set db in the config file")

func openController(c *cli.Context) (*chatvault.Controller, *fileConfig, error) {
	cfg, err := loadConfig(c.String("config"))
	if err != nil {
		return nil, nil, err
	}

	dir := strings.TrimSpace(setting(c, "db", cfg.DB))
	if dir == "" {
		return nil, nil, errDBRequired
	}

	ctrl, err := chatvault.Open(
		chatvault.WithDir(dir),
		chatvault.WithDBName(setting(c, "name", cfg.Name)),
	)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to open database: %w", err)
	}
	return ctrl, cfg, nil
}

func printJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

func requireArg(c *cli.Context, name string) (string, error) {
	arg := strings.TrimSpace(c.Args().First())
	if arg == "" {
		return "", fmt.Errorf("%s is required", name)
	}
	return arg, nil
}

type importOutput struct {
	Saved    int            `json:"saved"`
	Sessions map[string]int `json:"sessions"`
	Failed   []string       `json:"failed,omitempty"`
}

func importCommand(c *cli.Context) error {
	ctx := context.Background()

	path, err := requireArg(c, "input file")
	if err != nil {
		return err
	}
	if c.Int("workers") <= 0 {
		return fmt.Errorf("workers must be greater than 0")
	}

	var in io.Reader = os.Stdin
	if path != "-" {
		f, err := os.Open(path)
		if err != nil {
			return fmt.Errorf("failed to open input: %w", err)
		}
		defer f.Close()
		in = f
	}

	ctrl, _, err := openController(c)
	if err != nil {
		return err
	}
	defer ctrl.Close()

	pipeline, err := ingestion.NewPipeline(ctrl, ingestion.WithPoolSize(c.Int("workers")))
	if err != nil {
		return fmt.Errorf("failed to create pipeline: %w", err)
	}
	defer pipeline.Release()

	result, err := pipeline.IngestJSONL(ctx, in)
	if err != nil {
		return fmt.Errorf("import failed: %w", err)
	}

	out := importOutput{Saved: result.Saved, Sessions: result.Sessions}
	for _, failure := range result.Failed {
		out.Failed = append(out.Failed, failure.Error())
	}
	return printJSON(c.App.Writer, out)
}

func getCommand(c *cli.Context) error {
	id, err := requireArg(c, "block id")
	if err != nil {
		return err
	}

	ctrl, _, err := openController(c)
	if err != nil {
		return err
	}
	defer ctrl.Close()

	block, err := ctrl.Get(context.Background(), id)
	if errors.Is(err, chatvault.ErrNotFound) {
		return fmt.Errorf("block %q not found", id)
	}
	if err != nil {
		return err
	}
	return printJSON(c.App.Writer, block)
}

func listCommand(c *cli.Context) error {
	ctrl, _, err := openController(c)
	if err != nil {
		return err
	}
	defer ctrl.Close()

	blocks, err := ctrl.GetBySession(context.Background(), c.String("session"))
	if err != nil {
		return err
	}
	return printJSON(c.App.Writer, blocks)
}

func rmCommand(c *cli.Context) error {
	id, err := requireArg(c, "block id")
	if err != nil {
		return err
	}

	ctrl, _, err := openController(c)
	if err != nil {
		return err
	}
	defer ctrl.Close()

	deleted, err := ctrl.Delete(context.Background(), id)
	if err != nil {
		return err
	}
	return printJSON(c.App.Writer, map[string]bool{"deleted": deleted})
}

type clearOutput struct {
	Blocks int  `json:"blocks"`
	Metas  *int `json:"metaSummaries,omitempty"`
}

func clearCommand(c *cli.Context) error {
	ctx := context.Background()

	ctrl, _, err := openController(c)
	if err != nil {
		return err
	}
	defer ctrl.Close()

	session := c.String("session")
	var out clearOutput
	if session != "" {
		out.Blocks, err = ctrl.ClearSession(ctx, session)
	} else {
		out.Blocks, err = ctrl.Clear(ctx)
	}
	if err != nil {
		return err
	}

	if c.Bool("meta") {
		var removed int
		if session != "" {
			removed, err = ctrl.ClearMetaSession(ctx, session)
		} else {
			removed, err = ctrl.ClearMeta(ctx)
		}
		if err != nil {
			return err
		}
		out.Metas = &removed
	}
	return printJSON(c.App.Writer, out)
}

func statsCommand(c *cli.Context) error {
	ctrl, _, err := openController(c)
	if err != nil {
		return err
	}
	defer ctrl.Close()

	stats, err := ctrl.GetStats(context.Background())
	if err != nil {
		return err
	}
	return printJSON(c.App.Writer, stats)
}

func metaListCommand(c *cli.Context) error {
	ctrl, _, err := openController(c)
	if err != nil {
		return err
	}
	defer ctrl.Close()

	metas, err := ctrl.GetMetaBySession(context.Background(), c.String("session"))
	if err != nil {
		return err
	}
	return printJSON(c.App.Writer, metas)
}

func summarizeCommand(c *cli.Context) error {
	ctx := context.Background()

	config := &summarize.Config{
		Window:         c.Int("window"),
		Overwrite:      c.Bool("overwrite"),
		ReportInterval: 1,
		MaxRetries:     c.Int("max-retries"),
		RetryDelay:     c.Duration("retry-delay"),
	}
	if config.Window <= 0 {
		return fmt.Errorf("window must be greater than 0")
	}
	if config.MaxRetries <= 0 {
		return fmt.Errorf("max-retries must be greater than 0")
	}

	ctrl, cfg, err := openController(c)
	if err != nil {
		return err
	}
	defer ctrl.Close()

	aiConfig := ai.NewConfig(
		ai.WithHost(setting(c, "host", cfg.Host)),
		ai.WithModel(setting(c, "model", cfg.Model)),
	)
	if err := aiConfig.Validate(); err != nil {
		return fmt.Errorf("invalid AI configuration: %w", err)
	}

	provider, err := openai.NewProvider(aiConfig)
	if err != nil {
		return fmt.Errorf("failed to create AI provider: %w", err)
	}
	defer provider.Close()

	slog.Info("summarizing session",
		"session", c.String("session"),
		"window", config.Window,
		"host", aiConfig.Host,
		"model", aiConfig.Model)

	generator := summarize.NewGenerator(ctrl, provider.Summarizer(), config, c.App.ErrWriter)
	metas, err := generator.Run(ctx, c.String("session"))
	if err != nil {
		return fmt.Errorf("summarize failed: %w", err)
	}
	return printJSON(c.App.Writer, metas)
}

func searchCommand(c *cli.Context) error {
	query := strings.TrimSpace(strings.Join(c.Args().Slice(), " "))
	if query == "" {
		return fmt.Errorf("query is required")
	}

	ctrl, _, err := openController(c)
	if err != nil {
		return err
	}
	defer ctrl.Close()

	searcher, err := search.NewSearcher(ctrl)
	if err != nil {
		return err
	}

	results, err := searcher.Search(context.Background(), query, c.String("session"), c.Int("max-hits"))
	if err != nil {
		return err
	}
	return printJSON(c.App.Writer, results)
}

func setupLogger(c *cli.Context) error {
	// Get log level from flag and normalize to lowercase
	levelStr := strings.ToLower(c.String("log-level"))

	// Map string to slog.Level
	var level slog.Level
	switch levelStr {
	case "debug":
		level = slog.LevelDebug
	case "info":
		level = slog.LevelInfo
	case "warn":
		level = slog.LevelWarn
	case "error":
		level = slog.LevelError
	default:
		return fmt.Errorf("invalid log level %q: must be one of debug, info, warn, error", levelStr)
	}

	// Configure slog with the specified level
	logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{
		Level: level,
	}))
	slog.SetDefault(logger)

	return nil
}
