package internal

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/starford/nomenclature/internal/iamc"
	"github.com/starford/nomenclature/internal/mcpserver"
	"github.com/starford/nomenclature/internal/parser"
	"github.com/starford/nomenclature/internal/region"
	"github.com/starford/nomenclature/internal/storage"
)

// ValidateYAML checks every YAML file under path for parse errors and
// illegal characters. path may also name a single file.
func ValidateYAML(path string, logger *slog.Logger) error {
	var (
		errs    []error
		checked int
	)
	err := filepath.WalkDir(path, func(p string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() || !storage.IsYAML(d.Name()) {
			return nil
		}
		data, err := os.ReadFile(p)
		if err != nil {
			return err
		}
		checked++
		if err := parser.Validate(p, data); err != nil {
			errs = append(errs, err)
		}
		return nil
	})
	if err != nil {
		return fmt.Errorf("validate yaml: %w", err)
	}
	logger.Info("yaml files checked",
		slog.String("path", path),
		slog.Int("files", checked),
		slog.Int("invalid", len(errs)))
	return errors.Join(errs...)
}

// ValidateProject loads the configured project and reports its contents.
func ValidateProject(cfg *Config, logger *slog.Logger) error {
	env, err := newEnvironment(cfg, logger)
	if err != nil {
		return err
	}
	defer env.Close()

	proj, err := env.cache.Get()
	if err != nil {
		return fmt.Errorf("validate project: %w", err)
	}
	attrs := []any{slog.String("fingerprint", proj.Fingerprint)}
	for _, dim := range proj.Definition.Dimensions() {
		if cl, ok := proj.Definition.CodeList(dim); ok {
			attrs = append(attrs, slog.Int(dim, cl.Len()))
		}
	}
	if proj.Mappings != nil {
		attrs = append(attrs, slog.Int("model_mappings", proj.Mappings.Len()))
	}
	logger.Info("project is valid", attrs...)
	return nil
}

// ProcessRequest describes a CLI processing run.
type ProcessRequest struct {
	Input       string
	Output      string
	Differences string
}

// ProcessFile validates and region-processes the CSV file req.Input. The
// processed data and the reconciliation differences are written to
// req.Output and req.Differences when set.
func ProcessFile(ctx context.Context, cfg *Config, req ProcessRequest, logger *slog.Logger) error {
	data, err := os.ReadFile(req.Input)
	if err != nil {
		return fmt.Errorf("read input: %w", err)
	}

	env, err := newEnvironment(cfg, logger)
	if err != nil {
		return err
	}
	defer env.Close()

	rep, err := env.svc.ProcessCSV(ctx, filepath.Base(req.Input), data)
	if err != nil {
		return err
	}

	if req.Output != "" {
		var buf bytes.Buffer
		if err := iamc.WriteCSV(&buf, rep.Frame); err != nil {
			return err
		}
		if err := storage.WriteFile(req.Output, buf.Bytes()); err != nil {
			return err
		}
	}
	if req.Differences != "" {
		var buf bytes.Buffer
		if err := region.WriteDifferencesCSV(&buf, rep.Differences); err != nil {
			return err
		}
		if err := storage.WriteFile(req.Differences, buf.Bytes()); err != nil {
			return err
		}
	}
	return nil
}

// ServeMCP serves the MCP tools over stdio until the client disconnects.
func ServeMCP(cfg *Config, logger *slog.Logger) error {
	env, err := newEnvironment(cfg, logger)
	if err != nil {
		return err
	}
	defer env.Close()

	if _, err := env.cache.Get(); err != nil {
		logger.Warn("initial project load failed", slog.String("error", err.Error()))
	}
	return mcpserver.New(env.svc).ServeStdio()
}
