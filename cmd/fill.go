package main

import (
	"context"
	"encoding/json"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/formworks/formfill-cli/internal/corpus"
	"github.com/formworks/formfill-cli/internal/model"
	"github.com/formworks/formfill-cli/internal/pipeline"
	"github.com/formworks/formfill-cli/internal/schema"
	"github.com/formworks/formfill-cli/internal/writer"
)

var (
	fillSchemaPath string
	fillDocsDir    string
	fillOutPath    string
	fillJSONPath   string
	fillSheet      string
	fillFTP        bool
	fillDryRun     bool
)

var fillCmd = &cobra.Command{
	Use:   "fill",
	Short: "Fill a form schema from a document corpus",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()

		mode := "fill"
		if fillDryRun {
			mode = "dry"
		}

		env, err := initPipeline(ctx, mode)
		if err != nil {
			return err
		}
		defer env.Close()

		form, err := loadFillSchema()
		if err != nil {
			return err
		}

		docs, err := loadFillCorpus(ctx, env.Loader)
		if err != nil {
			return err
		}
		if len(docs) == 0 {
			zap.L().Warn("corpus is empty, only derived fields can resolve")
		}

		result, err := env.Pipeline.Run(ctx, form, docs)
		if err != nil {
			return eris.Wrap(err, "pipeline run")
		}

		zap.L().Info("fill complete",
			zap.String("form", form.Name),
			zap.Int("filled", result.Summary.Filled),
			zap.Int("rejected", result.Summary.Rejected),
			zap.Int("unresolved", result.Summary.Unresolved),
			zap.Float64("cost_usd", result.Usage.Cost),
		)

		if _, err := os.Stdout.WriteString(pipeline.FormatReport(result)); err != nil {
			return err
		}

		if fillJSONPath != "" {
			if err := writeResultJSON(fillJSONPath, result); err != nil {
				return err
			}
		}

		if fillOutPath != "" {
			if !strings.EqualFold(filepath.Ext(fillSchemaPath), ".xlsx") {
				return eris.New("--out needs an .xlsx schema to use as the workbook template")
			}
			n, err := writer.FillWorkbook(fillSchemaPath, fillOutPath, form, result.Results)
			if err != nil {
				return eris.Wrap(err, "write workbook")
			}
			zap.L().Info("workbook written",
				zap.String("path", fillOutPath),
				zap.Int("cells", n),
			)
		}

		return nil
	},
}

// loadFillSchema reads the form named by --schema. A dry run without
// --schema falls back to the built-in demo form.
func loadFillSchema() (*model.FormSchema, error) {
	if fillSchemaPath == "" {
		if fillDryRun {
			return pipeline.StubSchema(), nil
		}
		return nil, eris.New("--schema is required (or use --dry-run for the demo form)")
	}
	switch ext := strings.ToLower(filepath.Ext(fillSchemaPath)); ext {
	case ".yaml", ".yml":
		return schema.LoadYAML(fillSchemaPath)
	case ".xlsx":
		return schema.LoadXLSX(fillSchemaPath, schema.XLSXOptions{SheetName: fillSheet})
	default:
		return nil, eris.Errorf("unsupported schema format %q (want .yaml, .yml or .xlsx)", ext)
	}
}

// loadFillCorpus stages the FTP inbox when asked, then loads the docs
// directory. A dry run without --docs uses the built-in demo corpus.
func loadFillCorpus(ctx context.Context, loader *corpus.Loader) (model.DocumentCorpus, error) {
	if fillDocsDir == "" {
		if fillDryRun {
			return pipeline.StubCorpus(), nil
		}
		return nil, eris.New("--docs is required (or use --dry-run for the demo corpus)")
	}
	if fillFTP {
		if cfg.Corpus.FTP.Addr == "" {
			return nil, eris.New("--ftp needs FORMFILL_CORPUS_FTP_ADDR to be set")
		}
		inbox := corpus.NewFTPInbox(cfg.Corpus.FTP)
		if _, err := inbox.Drain(ctx, fillDocsDir); err != nil {
			return nil, eris.Wrap(err, "drain ftp inbox")
		}
	}
	return loader.LoadDir(ctx, fillDocsDir)
}

// writeResultJSON writes the indented run result to path, "-" for stdout.
func writeResultJSON(path string, result *model.RunResult) error {
	var w io.Writer = os.Stdout
	if path != "-" {
		f, err := os.Create(path)
		if err != nil {
			return eris.Wrapf(err, "create %s", path)
		}
		defer f.Close()
		w = f
	}
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(result)
}

func init() {
	fillCmd.Flags().StringVar(&fillSchemaPath, "schema", "", "form schema file (.yaml, .yml or .xlsx)")
	fillCmd.Flags().StringVar(&fillDocsDir, "docs", "", "directory of source documents")
	fillCmd.Flags().StringVar(&fillOutPath, "out", "", "write the filled workbook here (xlsx schemas only)")
	fillCmd.Flags().StringVar(&fillJSONPath, "json", "", `write the run result JSON here ("-" for stdout)`)
	fillCmd.Flags().StringVar(&fillSheet, "sheet", "", "workbook sheet holding the form (default: first sheet)")
	fillCmd.Flags().BoolVar(&fillFTP, "ftp", false, "drain the scanner FTP inbox into --docs first")
	fillCmd.Flags().BoolVar(&fillDryRun, "dry-run", false, "run against the stub interpreter without an API key")
	rootCmd.AddCommand(fillCmd)
}
