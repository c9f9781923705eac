package main

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strconv"

	"github.com/urfave/cli/v3"

	"github.com/starford/valet/internal"
	"github.com/starford/valet/internal/format"
	"github.com/starford/valet/internal/history"
	"github.com/starford/valet/internal/mcpserver"
	"github.com/starford/valet/internal/registry"
)

// withServices opens the registry for a one-shot command. Logs go to stderr
// so stdout stays usable for output (and for the MCP protocol).
func withServices(ctx context.Context, cmd *cli.Command, fn func(*internal.Services) error) error {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}
	slog.SetDefault(internal.NewLogger(os.Stderr, cfg.App.LogLevel))

	services, err := internal.OpenServices(cfg)
	if err != nil {
		return err
	}
	defer services.Close()
	return fn(services)
}

func importCommand() *cli.Command {
	return &cli.Command{
		Name:      "import",
		Usage:     "Import clients from a CSV or XLSX file",
		ArgsUsage: "<file>",
		Flags:     []cli.Flag{&cli.BoolFlag{Name: "json", Usage: "output raw JSON"}},
		Action: func(ctx context.Context, c *cli.Command) error {
			path := c.Args().First()
			if path == "" {
				return fmt.Errorf("import: file argument is required")
			}
			data, err := os.ReadFile(path)
			if err != nil {
				return fmt.Errorf("import: %w", err)
			}
			return withServices(ctx, c, func(s *internal.Services) error {
				out, err := s.Registry.Import(ctx, filepath.Base(path), data)
				if err != nil {
					return err
				}
				if c.Bool("json") {
					return printJSON(out)
				}
				printImport(out)
				return nil
			})
		},
	}
}

func exportCommand() *cli.Command {
	outFlag := &cli.StringFlag{Name: "out", Aliases: []string{"o"}, Usage: "write to this path instead of the data exports dir (- for stdout)"}
	return &cli.Command{
		Name:  "export",
		Usage: "Export clients or a client report",
		Commands: []*cli.Command{
			{
				Name:  "clients",
				Usage: "Export the client list",
				Flags: []cli.Flag{
					&cli.StringFlag{Name: "format", Aliases: []string{"f"}, Value: registry.FormatCSV, Usage: "csv or xlsx"},
					outFlag,
				},
				Action: func(ctx context.Context, c *cli.Command) error {
					return withServices(ctx, c, func(s *internal.Services) error {
						return writeExport(c.String("out"), s.Registry, func(w io.Writer) (string, error) {
							return s.Registry.ExportClients(ctx, w, c.String("format"))
						})
					})
				},
			},
			{
				Name:  "report",
				Usage: "Export the access report of one client",
				Flags: []cli.Flag{
					&cli.StringFlag{Name: "client", Usage: "client ID"},
					&cli.StringFlag{Name: "cpf", Usage: "client CPF (any punctuation)"},
					&cli.StringFlag{Name: "format", Aliases: []string{"f"}, Value: registry.FormatPDF, Usage: "pdf or xlsx"},
					outFlag,
				},
				Action: func(ctx context.Context, c *cli.Command) error {
					return withServices(ctx, c, func(s *internal.Services) error {
						id, err := resolveClient(ctx, s.Registry, c.String("client"), c.String("cpf"))
						if err != nil {
							return err
						}
						return writeExport(c.String("out"), s.Registry, func(w io.Writer) (string, error) {
							return s.Registry.ExportReport(ctx, w, id, c.String("format"))
						})
					})
				},
			},
		},
	}
}

func resolveClient(ctx context.Context, svc *registry.Service, id, cpf string) (string, error) {
	if id != "" {
		return id, nil
	}
	if cpf == "" {
		return "", fmt.Errorf("report: --client or --cpf is required")
	}
	matches, err := svc.Search(ctx, cpf)
	if err != nil {
		return "", err
	}
	for _, m := range matches {
		if m.CPF == format.Digits(cpf) {
			return m.ID, nil
		}
	}
	return "", fmt.Errorf("report: no client with CPF %s", format.FormatCPF(format.Digits(cpf)))
}

// writeExport saves into the data area by default, or to out when given.
func writeExport(out string, svc *registry.Service, export func(io.Writer) (string, error)) error {
	switch out {
	case "":
		rel, err := svc.SaveExport(export)
		if err != nil {
			return err
		}
		fmt.Println(rel)
		return nil
	case "-":
		_, err := export(os.Stdout)
		return err
	}

	f, err := os.Create(out)
	if err != nil {
		return err
	}
	if _, err := export(f); err != nil {
		f.Close()
		os.Remove(out)
		return err
	}
	if err := f.Close(); err != nil {
		return err
	}
	fmt.Println(out)
	return nil
}

func historyCommand() *cli.Command {
	return &cli.Command{
		Name:  "history",
		Usage: "Show registros grouped by year, month and day",
		Flags: []cli.Flag{
			&cli.StringSliceFlag{Name: "expand", Aliases: []string{"e"}, Usage: "open a node: YYYY or YYYY-MM (repeatable)"},
			&cli.BoolFlag{Name: "all", Aliases: []string{"a"}, Usage: "open every node"},
			&cli.BoolFlag{Name: "table", Usage: "one row per month instead of the tree"},
			&cli.BoolFlag{Name: "json", Usage: "output the raw summary as JSON"},
		},
		Action: func(ctx context.Context, c *cli.Command) error {
			return withServices(ctx, c, func(s *internal.Services) error {
				sum, err := s.Registry.Summary(ctx)
				if err != nil {
					return err
				}
				switch {
				case c.Bool("json"):
					return printJSON(sum)
				case sum != nil && c.Bool("table"):
					printSummary(*sum)
					return nil
				}

				expanded := history.Expanded{}
				for _, k := range c.StringSlice("expand") {
					y, m, err := history.ParseKey(k)
					if err != nil {
						return err
					}
					// A month is only visible inside its open year.
					expanded[history.YearKey(y)] = true
					if m > 0 {
						expanded[history.MonthKey(y, m)] = true
					}
				}
				if c.Bool("all") && sum != nil {
					expanded = expandAll(*sum)
				}
				view, err := s.Registry.History(ctx, expanded)
				if err != nil {
					return err
				}
				return history.WriteText(os.Stdout, view)
			})
		},
	}
}

func expandAll(sum history.Summary) history.Expanded {
	out := history.Expanded{}
	for y, year := range sum.Anos {
		out[history.YearKey(y)] = true
		for m := range year.Meses {
			out[history.MonthKey(y, m)] = true
		}
	}
	return out
}

func migrateLegacyCommand() *cli.Command {
	return &cli.Command{
		Name:  "migrate-legacy",
		Usage: "Import the legacy JSON data file, if present",
		Action: func(ctx context.Context, c *cli.Command) error {
			return withServices(ctx, c, func(s *internal.Services) error {
				res, err := s.Registry.MigrateLegacy(ctx)
				if err != nil {
					return err
				}
				if res == nil {
					fmt.Println("no legacy data file found")
					return nil
				}
				printKV([][2]string{
					{"clients_added", strconv.Itoa(res.ClientsAdded)},
					{"clients_merged", strconv.Itoa(res.ClientsMerged)},
					{"registros", fmt.Sprintf("%d/%d", res.RegistrosAdded, len(res.Registros))},
					{"moved_to", res.MigratedFilePath},
				})
				return nil
			})
		},
	}
}

func mcpCommand() *cli.Command {
	return &cli.Command{
		Name:  "mcp",
		Usage: "Serve the registry to assistants over MCP (stdio)",
		Action: func(ctx context.Context, c *cli.Command) error {
			return withServices(ctx, c, func(s *internal.Services) error {
				return mcpserver.New(s.Registry).ServeStdio()
			})
		},
	}
}
