package cmd

import (
	"context"
	"encoding/json"
	"io"
	"os"

	"github.com/Laisky/errors/v2"
	gconfig "github.com/Laisky/go-config/v2"
	gcmd "github.com/Laisky/go-utils/v6/cmd"
	"github.com/Laisky/zap"
	"github.com/spf13/cobra"

	"github.com/Laisky/laisky-changelog/internal/web/changelog/model"
	"github.com/Laisky/laisky-changelog/library/log"
)

var importCMD = &cobra.Command{
	Use:   "import",
	Short: "import entries from a JSON file",
	Long: `Import entries from a JSON array, the same shape GET / returns.

Entries whose date is already stored are skipped, existing data is never
overwritten. With --dry the file is only parsed.

Example usage:
  go run main.go import -c settings.yml --file=changelog.json`,
	Args: gcmd.NoExtraArgs,
	PreRun: func(cmd *cobra.Command, args []string) {
		ctx := context.Background()
		if err := initialize(ctx, cmd); err != nil {
			log.Logger.Panic("init", zap.Error(err))
		}
	},
	Run: func(cmd *cobra.Command, args []string) {
		ctx := context.Background()
		if err := runImport(ctx, cmd.Flag("file").Value.String(), gconfig.Shared.GetBool("dry")); err != nil {
			log.Logger.Panic("import entries", zap.Error(err))
		}
	},
}

var exportCMD = &cobra.Command{
	Use:   "export",
	Short: "export entries as a JSON file",
	Long: `Dump the timeline as a JSON array, oldest first.

Writes to stdout when --file is empty.`,
	Args: gcmd.NoExtraArgs,
	PreRun: func(cmd *cobra.Command, args []string) {
		ctx := context.Background()
		if err := initialize(ctx, cmd); err != nil {
			log.Logger.Panic("init", zap.Error(err))
		}
	},
	Run: func(cmd *cobra.Command, args []string) {
		ctx := context.Background()
		if err := runExport(ctx, cmd.Flag("file").Value.String()); err != nil {
			log.Logger.Panic("export entries", zap.Error(err))
		}
	},
}

func init() {
	rootCMD.AddCommand(importCMD)
	rootCMD.AddCommand(exportCMD)

	importCMD.Flags().String("file", "", "path to the JSON file (required)")
	if err := importCMD.MarkFlagRequired("file"); err != nil {
		log.Logger.Panic("mark flag required", zap.Error(err))
	}
	exportCMD.Flags().String("file", "", "output path, stdout when empty")
}

func runImport(ctx context.Context, fpath string, dry bool) error {
	logger := log.Logger.Named("import")

	fp, err := os.Open(fpath)
	if err != nil {
		return errors.Wrapf(err, "open %q", fpath)
	}
	defer fp.Close() // nolint: errcheck

	entries, err := decodeEntries(fp)
	if err != nil {
		return errors.Wrapf(err, "decode %q", fpath)
	}
	logger.Info("parsed entries", zap.String("file", fpath), zap.Int("entries", len(entries)))
	if dry {
		return nil
	}

	stack, err := setupChangelog(ctx)
	if err != nil {
		return errors.WithStack(err)
	}
	defer stack.Close(ctx)

	report, err := stack.svc.ImportEntries(ctx, entries)
	if err != nil {
		return errors.Wrap(err, "import entries")
	}

	logger.Info("entries imported",
		zap.Int("imported", report.Converted),
		zap.Int("skipped", report.Skipped),
		zap.Int("failed", report.Failed))
	return nil
}

func runExport(ctx context.Context, fpath string) (err error) {
	stack, err := setupChangelog(ctx)
	if err != nil {
		return errors.WithStack(err)
	}
	defer stack.Close(ctx)

	entries, err := stack.svc.ListEntries(ctx)
	if err != nil {
		return errors.Wrap(err, "list entries")
	}

	var out io.Writer = os.Stdout
	if fpath != "" {
		fp, err := os.Create(fpath)
		if err != nil {
			return errors.Wrapf(err, "create %q", fpath)
		}
		defer func() {
			if cerr := fp.Close(); cerr != nil && err == nil {
				err = errors.Wrapf(cerr, "close %q", fpath)
			}
		}()
		out = fp
	}

	if err = encodeEntries(out, entries); err != nil {
		return errors.WithStack(err)
	}

	log.Logger.Info("entries exported", zap.Int("entries", len(entries)), zap.String("file", fpath))
	return nil
}

// decodeEntries reads a JSON array of entries
func decodeEntries(r io.Reader) ([]*model.Entry, error) {
	var entries []*model.Entry
	if err := json.NewDecoder(r).Decode(&entries); err != nil {
		return nil, errors.Wrap(err, "decode entries")
	}

	return entries, nil
}

func encodeEntries(w io.Writer, entries []*model.Entry) error {
	if entries == nil {
		entries = []*model.Entry{}
	}

	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	if err := enc.Encode(entries); err != nil {
		return errors.Wrap(err, "encode entries")
	}

	return nil
}
