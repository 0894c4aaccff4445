package convert

import (
	"path"
	"path/filepath"
	"strings"

	"github.com/gosimple/slug"
	"go.uber.org/zap"

	"stylemig/config"
	"stylemig/state"
)

// buildOutputPath returns output file path for source "src" relative to the
// input root. Without destination file is rewritten in place. Names produced
// by template are cleaned segment by segment and can not escape destination.
func buildOutputPath(root, src, dst string, env *state.LocalEnv) string {
	if dst == "" {
		return filepath.Join(root, src)
	}
	tmpl := env.Cfg.Transform.OutputNameTemplate
	if tmpl == "" {
		return filepath.Join(dst, src)
	}

	expanded, err := expandTemplate(config.OutputNameTemplateFieldName, tmpl, src)
	if err != nil {
		env.Logger().Warn("Unable to expand output name template, using default", zap.String("file", src), zap.Error(err))
		return filepath.Join(dst, src)
	}
	expanded = strings.TrimSpace(expanded)
	if expanded == "" {
		return filepath.Join(dst, src)
	}

	var parts []string
	for _, p := range strings.Split(path.Clean("/"+filepath.ToSlash(expanded)), "/") {
		if p == "" {
			continue
		}
		parts = append(parts, config.SafeOutputName(p))
	}
	if len(parts) == 0 {
		return filepath.Join(dst, src)
	}
	return filepath.Join(append([]string{dst}, parts...)...)
}

// reportID is a readable report directory for a source file.
func reportID(src string) string {
	s := slug.Make(filepath.ToSlash(src))
	if s == "" {
		return "file"
	}
	return s
}
