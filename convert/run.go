package convert

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"runtime"
	"runtime/debug"
	"slices"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"github.com/maruel/natural"
	cli "github.com/urfave/cli/v3"
	"go.uber.org/multierr"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"golang.org/x/sync/errgroup"

	"stylemig/adapter"
	"stylemig/common"
	"stylemig/diag"
	"stylemig/pipeline"
	"stylemig/prepass"
	"stylemig/state"
	"stylemig/wrapper"
)

func Run(ctx context.Context, cmd *cli.Command) (err error) {
	if err := ctx.Err(); err != nil {
		return err
	}

	env := state.EnvFromContext(ctx)
	log := env.Log.Named("convert")

	src := cmd.Args().Get(0)
	if len(src) == 0 {
		return errors.New("no input source has been specified")
	}
	if src, err = filepath.Abs(src); err != nil {
		return err
	}

	dst := cmd.Args().Get(1)
	if len(dst) > 0 {
		if dst, err = filepath.Abs(dst); err != nil {
			return err
		}
	}
	if cmd.Args().Len() > 2 {
		log.Warn("Mailformed command line, too many destinations", zap.Strings("ignoring", cmd.Args().Slice()[2:]))
	}

	env.DryRun, env.Overwrite = cmd.Bool("dry-run"), cmd.Bool("overwrite")
	if len(dst) == 0 && !env.DryRun && !env.Overwrite {
		return errors.New("no destination specified, rewriting sources in place requires --overwrite")
	}

	if p := cmd.String("prepass"); len(p) > 0 {
		env.Cfg.Prepass.Path = p
	}
	if len(env.Cfg.Prepass.Path) > 0 {
		if env.Usage, err = prepass.Load(env.Cfg.Prepass.Path); err != nil {
			return err
		}
		log.Debug("Usage summary loaded", zap.String("file", env.Cfg.Prepass.Path), zap.Int("files", env.Usage.Len()))
	}

	log.Info("Processing starting", zap.String("source", src), zap.String("destination", dst), zap.Bool("dry-run", env.DryRun))
	defer func(start time.Time) {
		log.Info("Processing completed", zap.Duration("elapsed", time.Since(start)))
	}(time.Now())

	return process(ctx, src, dst, cmd.String("save-prepass"), log)
}

// process handles the core conversion logic independently of CLI framework.
func process(ctx context.Context, src, dst, savePrepass string, log *zap.Logger) error {
	env := state.EnvFromContext(ctx)

	root, files, err := discover(ctx, src, env.Cfg.Transform.Extensions, log)
	if err != nil {
		return err
	}
	if len(files) == 0 {
		log.Info("Nothing to process", zap.String("source", src))
		return nil
	}

	if env.Usage == nil {
		if env.Usage, err = buildSummary(ctx, root, files, log); err != nil {
			return err
		}
	}
	if len(savePrepass) > 0 {
		if err := env.Usage.Save(savePrepass); err != nil {
			return err
		}
		log.Info("Usage summary saved", zap.String("file", savePrepass))
	}

	a, err := adapter.New(&env.Cfg.Adapter, log)
	if err != nil {
		return fmt.Errorf("unable to prepare adapter: %w", err)
	}
	tc := env.Cfg.Transform
	tr := pipeline.New(a, pipeline.Options{
		Fallback:         tc.Fallback,
		RelationMatching: tc.RelationMatching,
		ImportSource:     tc.ImportSource,
		Namespace:        tc.Namespace,
		Identifier:       tc.StylesIdentifier,
		Attributes:       wrapper.Attributes{Extra: tc.HTMLAttributes},
		Usage: func(path, component string) (wrapper.Usage, bool) {
			return env.Usage.Lookup(path, component)
		},
	}, log)

	var (
		mu      sync.Mutex
		errs    error
		changed atomic.Int32
	)
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(workers(tc.Workers))
	for _, f := range files {
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			ok, err := processFile(gctx, tr, root, f, dst, log)
			if err != nil {
				log.Error("Unable to process file", zap.String("file", f), zap.Error(err))
				mu.Lock()
				errs = multierr.Append(errs, err)
				mu.Unlock()
				return nil
			}
			if ok {
				changed.Add(1)
			}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return err
	}

	log.Info("Files processed", zap.Int("total", len(files)), zap.Int32("rewritten", changed.Load()),
		zap.Int("failed", len(multierr.Errors(errs))))
	if errs != nil {
		return fmt.Errorf("unable to process %d file(s): %w", len(multierr.Errors(errs)), errs)
	}
	return nil
}

func workers(n int) int {
	if n <= 0 {
		return runtime.NumCPU()
	}
	return n
}

// discover returns root directory and source files relative to it in natural
// order. Dependency and hidden directories are not entered.
func discover(ctx context.Context, src string, exts []string, log *zap.Logger) (string, []string, error) {
	fi, err := os.Stat(src)
	if err != nil {
		return "", nil, fmt.Errorf("input source was not found: %w", err)
	}
	if fi.Mode().IsRegular() {
		if !slices.Contains(exts, filepath.Ext(src)) {
			return "", nil, fmt.Errorf("input was not recognized as source file (%s)", src)
		}
		return filepath.Dir(src), []string{filepath.Base(src)}, nil
	}
	if !fi.IsDir() {
		return "", nil, fmt.Errorf("unexpected path mode for (%s)", src)
	}

	var files []string
	err = filepath.WalkDir(src, func(path string, d os.DirEntry, err error) error {
		if err := ctx.Err(); err != nil {
			return err
		}
		if err != nil {
			log.Warn("Skipping path", zap.String("path", path), zap.Error(err))
			return nil
		}
		if d.IsDir() {
			if path != src && (d.Name() == "node_modules" || strings.HasPrefix(d.Name(), ".")) {
				return filepath.SkipDir
			}
			return nil
		}
		if !d.Type().IsRegular() || !slices.Contains(exts, filepath.Ext(path)) {
			return nil
		}
		rel, err := filepath.Rel(src, path)
		if err != nil {
			return err
		}
		files = append(files, rel)
		return nil
	})
	if err != nil {
		return "", nil, err
	}
	slices.SortFunc(files, func(a, b string) int {
		switch {
		case natural.Less(a, b):
			return -1
		case natural.Less(b, a):
			return 1
		}
		return 0
	})
	return src, files, nil
}

// buildSummary scans every file for cross-file component usage.
func buildSummary(ctx context.Context, root string, files []string, log *zap.Logger) (*prepass.Summary, error) {
	env := state.EnvFromContext(ctx)
	b := prepass.NewBuilder(root, env.Cfg.Transform.Extensions, log)

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(workers(env.Cfg.Transform.Workers))
	for _, f := range files {
		g.Go(func() error {
			path := filepath.Join(root, f)
			data, err := os.ReadFile(path)
			if err != nil {
				log.Warn("Skipping file in usage scan", zap.String("file", f), zap.Error(err))
				return nil
			}
			if err := b.Scan(gctx, path, data); err != nil {
				log.Warn("Skipping file in usage scan", zap.String("file", f), zap.Error(err))
			}
			return gctx.Err()
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	log.Debug("Usage summary built", zap.Int("files", b.Summary().Len()))
	return b.Summary(), nil
}

// processFile transforms single file "src" relative to root and reports
// whether anything was rewritten.
func processFile(ctx context.Context, tr *pipeline.Transformer, root, src, dst string, log *zap.Logger) (changed bool, rerr error) {
	env := state.EnvFromContext(ctx)

	log.Debug("Conversion starting", zap.String("from", src))
	defer func(start time.Time) {
		if r := recover(); r != nil {
			log.Error("Conversion ended with panic",
				zap.Any("panic", r), zap.Duration("elapsed", time.Since(start)), zap.String("file", src), zap.ByteString("stack", debug.Stack()))
			rerr = fmt.Errorf("conversion panic: %v", r)
		} else {
			log.Debug("Conversion completed", zap.Duration("elapsed", time.Since(start)), zap.String("file", src), zap.Bool("changed", changed))
		}
	}(time.Now())

	data, err := os.ReadFile(filepath.Join(root, src))
	if err != nil {
		return false, err
	}
	lang, _ := common.SourceLangFromPath(src)
	res, err := tr.Transform(ctx, filepath.ToSlash(src), data, lang)
	if err != nil {
		return false, err
	}
	if res == nil {
		return false, nil
	}

	logDiagnostics(env, log, src, res.Diagnostics)
	if env.Rpt != nil {
		id := reportID(src) + "-" + uuid.NewString()
		env.Rpt.StoreTransform(id, src, data, res.Code, listDiagnostics(res.Diagnostics))
		if res.Changed() {
			if err := env.Rpt.StorePatch(id, []byte(patchText(data, res.Code))); err != nil {
				log.Debug("Unable to store patch", zap.Error(err))
			}
		}
	}
	if !res.Changed() {
		return false, nil
	}
	added, removed := changeStats(data, res.Code)
	if env.DryRun {
		log.Info("Would rewrite file", zap.String("file", src), zap.Strings("components", res.Converted), zap.Strings("wrapped", res.Wrapped),
			zap.Int("lines added", added), zap.Int("lines removed", removed))
		return true, nil
	}

	out := buildOutputPath(root, src, dst, env)
	if _, err := os.Stat(out); err == nil {
		if !env.Overwrite {
			return false, fmt.Errorf("output file already exists: %s", out)
		}
		log.Debug("Overwriting existing file", zap.String("file", out))
	} else if !os.IsNotExist(err) {
		return false, err
	} else if err := os.MkdirAll(filepath.Dir(out), 0755); err != nil {
		return false, fmt.Errorf("unable to create output directory: %w", err)
	}
	if err := os.WriteFile(out, res.Code, 0644); err != nil {
		return false, fmt.Errorf("unable to write output: %w", err)
	}
	log.Info("File rewritten", zap.String("file", src), zap.String("to", out), zap.Strings("components", res.Converted), zap.Strings("wrapped", res.Wrapped),
		zap.Int("lines added", added), zap.Int("lines removed", removed))
	return true, nil
}

func logDiagnostics(env *state.LocalEnv, log *zap.Logger, file string, items []diag.Diagnostic) {
	threshold, on := env.Cfg.Logging.DiagnosticsLevel()
	if !on {
		return
	}
	for _, d := range items {
		lvl := d.Severity.Level()
		if lvl < threshold {
			continue
		}
		if ce := log.Check(lvl, diag.LogMessage); ce != nil {
			ce.Write(append([]zapcore.Field{zap.String("file", file)}, d.Fields()...)...)
		}
	}
}

func listDiagnostics(items []diag.Diagnostic) string {
	var b strings.Builder
	for _, d := range items {
		b.WriteString(d.String())
		b.WriteByte('\n')
	}
	return b.String()
}
