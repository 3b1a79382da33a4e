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
	"encoding/json"
	"fmt"
	"io"
	"log"
	"log/slog"
	"os"
	"strings"

	"github.com/poiesic/haystack"
	"github.com/poiesic/haystack/cluster"
	"github.com/poiesic/haystack/index"
	"github.com/poiesic/haystack/query"
	"github.com/poiesic/haystack/spelling"
	"github.com/urfave/cli/v2"
)

func main() {
	if err := newApp().Run(os.Args); err != nil {
		log.Fatal(err)
	}
}

func newApp() *cli.App {
	datasetFlags := []cli.Flag{
		&cli.StringFlag{
			Name:     "data",
			Aliases:  []string{"d"},
			Usage:    "Path to a JSON file holding an array of records",
			Required: true,
		},
		&cli.IntFlag{
			Name:  "limit",
			Usage: "Maximum number of results (0 keeps the configured limit)",
		},
		&cli.BoolFlag{
			Name:  "async",
			Usage: "Evaluate through the worker scheduler",
		},
	}
	return &cli.App{
		Name:  "haystack",
		Usage: "Approximate search over JSON records",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:    "log-level",
				Aliases: []string{"l"},
				Usage:   "Set logging level (debug, info, warn, error)",
				Value:   "info",
			},
			&cli.StringFlag{
				Name:    "config",
				Aliases: []string{"c"},
				Usage:   "Path to a YAML engine configuration",
			},
		},
		Before: setupLogger,
		Commands: []*cli.Command{
			{
				Name:      "search",
				Usage:     "Fuzzy search every value of every record",
				ArgsUsage: "<term>",
				Action:    searchCommand,
				Flags: append([]cli.Flag{
					&cli.StringFlag{
						Name:  "comparison",
						Usage: "Comparison strategy (bitap, bitap1, contains, ...)",
					},
				}, datasetFlags...),
			},
			{
				Name:      "fulltext",
				Usage:     "Rank records with the inverted index and cosine similarity",
				ArgsUsage: "<text>",
				Action:    fullTextCommand,
				Flags: append([]cli.Flag{
					&cli.BoolFlag{
						Name:  "exact",
						Usage: "Disable fuzzy token expansion",
					},
					&cli.StringFlag{
						Name:  "field",
						Usage: "Restrict matching to one normalized path",
					},
				}, datasetFlags...),
			},
			{
				Name:      "query",
				Usage:     "Evaluate a JSON query tree",
				ArgsUsage: "<query-json>",
				Action:    queryCommand,
				Flags: append([]cli.Flag{
					&cli.IntFlag{
						Name:  "min-shared",
						Usage: "Tokens a record must share with the root value of the \"tokens\" cluster",
						Value: 1,
					},
				}, datasetFlags...),
			},
			{
				Name:      "spell",
				Usage:     "Suggest corrections against the vocabulary of the records",
				ArgsUsage: "<text>",
				Action:    spellCommand,
				Flags: []cli.Flag{
					&cli.StringFlag{
						Name:     "data",
						Aliases:  []string{"d"},
						Usage:    "Path to a JSON file holding an array of records",
						Required: true,
					},
					&cli.IntFlag{
						Name:  "max-distance",
						Usage: "Largest edit distance of a suggestion",
						Value: spelling.DefaultMaxDistance,
					},
				},
			},
		},
	}
}

func searchCommand(c *cli.Context) error {
	term, err := argument(c)
	if err != nil {
		return err
	}
	var opts []haystack.ConfigOption
	if name := c.String("comparison"); name != "" {
		opts = append(opts, haystack.WithComparison(name))
	}
	engine, err := openEngine(c, opts...)
	if err != nil {
		return err
	}
	defer engine.Close()

	searchOpts := &haystack.SearchOptions{Limit: c.Int("limit")}
	var results []*haystack.SearchResult
	if c.Bool("async") {
		results, err = engine.SearchAsync(c.Context, term, searchOpts)
	} else {
		results, err = engine.Search(term, searchOpts)
	}
	if err != nil {
		return fmt.Errorf("search failed: %w", err)
	}
	return writeResults(c.App.Writer, results)
}

func fullTextCommand(c *cli.Context) error {
	text, err := argument(c)
	if err != nil {
		return err
	}
	engine, err := openEngine(c)
	if err != nil {
		return err
	}
	defer engine.Close()

	if engine.Index() == nil {
		if err := engine.SetIndexStrategy(false); err != nil {
			return fmt.Errorf("failed to build index: %w", err)
		}
	}
	engine.SetFullTextScoring(index.CosineSimilarity)

	searchOpts := &haystack.SearchOptions{
		Limit: c.Int("limit"),
		Exact: c.Bool("exact"),
		Field: c.String("field"),
	}
	var results []*haystack.SearchResult
	if c.Bool("async") {
		results, err = engine.FullTextAsync(c.Context, text, searchOpts)
	} else {
		results, err = engine.FullText(text, searchOpts)
	}
	if err != nil {
		return fmt.Errorf("full-text search failed: %w", err)
	}
	return writeResults(c.App.Writer, results)
}

func queryCommand(c *cli.Context) error {
	raw, err := argument(c)
	if err != nil {
		return err
	}
	var q query.Query
	if err := json.Unmarshal([]byte(raw), &q); err != nil {
		return fmt.Errorf("failed to parse query: %w", err)
	}
	engine, err := openEngine(c)
	if err != nil {
		return err
	}
	defer engine.Close()

	if engine.Index() == nil {
		if err := engine.SetIndexStrategy(false); err != nil {
			return fmt.Errorf("failed to build index: %w", err)
		}
	}
	engine.SetClusterStrategy(false, cluster.NewTokenCluster("tokens", c.Int("min-shared")))

	searchOpts := &haystack.SearchOptions{Limit: c.Int("limit")}
	var results []*haystack.SearchResult
	if c.Bool("async") {
		results, err = engine.QueryAsync(c.Context, &q, searchOpts)
	} else {
		results, err = engine.Query(&q, searchOpts)
	}
	if err != nil {
		return fmt.Errorf("query failed: %w", err)
	}
	return writeResults(c.App.Writer, results)
}

func spellCommand(c *cli.Context) error {
	text, err := argument(c)
	if err != nil {
		return err
	}
	engine, err := openEngine(c)
	if err != nil {
		return err
	}
	defer engine.Close()

	engine.SetSpellingStrategy(false, spelling.NewEditDistance("edit", c.Int("max-distance")))
	result, err := engine.CheckSpelling(text, "edit")
	if err != nil {
		return fmt.Errorf("spelling check failed: %w", err)
	}
	enc := json.NewEncoder(c.App.Writer)
	return enc.Encode(result)
}

func argument(c *cli.Context) (string, error) {
	if c.NArg() != 1 {
		return "", fmt.Errorf("%s expects exactly one argument", c.Command.Name)
	}
	return c.Args().First(), nil
}

// openEngine loads the configuration and dataset named by the flags.
func openEngine(c *cli.Context, opts ...haystack.ConfigOption) (*haystack.Engine, error) {
	cfg := haystack.DefaultConfig()
	if path := c.String("config"); path != "" {
		loaded, err := haystack.LoadConfig(path)
		if err != nil {
			return nil, fmt.Errorf("failed to load config: %w", err)
		}
		cfg = loaded
	}
	for _, opt := range opts {
		opt(cfg)
	}

	items, err := loadDataset(c.String("data"))
	if err != nil {
		return nil, err
	}
	engine, err := haystack.New(haystack.WithConfig(cfg), haystack.WithLogger(slog.Default()))
	if err != nil {
		return nil, fmt.Errorf("failed to create engine: %w", err)
	}
	if err := engine.SetDataset(items); err != nil {
		engine.Close()
		return nil, fmt.Errorf("failed to load dataset: %w", err)
	}
	slog.Debug("dataset loaded", "records", len(items), "documents", len(engine.Corpus()))
	return engine, nil
}

func loadDataset(path string) ([]any, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read dataset: %w", err)
	}
	var items []any
	if err := json.Unmarshal(data, &items); err != nil {
		return nil, fmt.Errorf("dataset must be a JSON array: %w", err)
	}
	return items, nil
}

type resultLine struct {
	OriginIndex     int      `json:"origin_index"`
	Relevance       float64  `json:"relevance"`
	ComparisonScore float64  `json:"comparison_score"`
	Path            []string `json:"path,omitempty"`
	Value           any      `json:"value,omitempty"`
	Item            any      `json:"item"`
}

// writeResults prints one JSON object per result.
func writeResults(w io.Writer, results []*haystack.SearchResult) error {
	enc := json.NewEncoder(w)
	for _, r := range results {
		line := resultLine{
			OriginIndex:     r.OriginIndex,
			Relevance:       r.Relevance,
			ComparisonScore: r.ComparisonScore,
			Path:            r.Path,
			Value:           r.Value,
			Item:            r.Item,
		}
		if err := enc.Encode(line); err != nil {
			return err
		}
	}
	return nil
}

func setupLogger(c *cli.Context) error {
	levelStr := strings.ToLower(c.String("log-level"))

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

	logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{
		Level: level,
	}))
	slog.SetDefault(logger)

	return nil
}
