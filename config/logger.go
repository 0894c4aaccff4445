package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"runtime/debug"
	"strings"

	"go.uber.org/zap"
	"go.uber.org/zap/buffer"
	"go.uber.org/zap/zapcore"

	"stylemig/diag"
	"stylemig/misc"
)

type LoggerConfig struct {
	Level       string `yaml:"level" validate:"required,oneof=none debug normal"`
	Destination string `yaml:"destination,omitempty" sanitize:"path_clean,assure_dir_exists_for_file" validate:"omitempty,filepath"`
	Mode        string `yaml:"mode,omitempty" validate:"omitempty,oneof=append overwrite"`
}

type LoggingConfig struct {
	FileLogger    LoggerConfig `yaml:"file"`
	ConsoleLogger LoggerConfig `yaml:"console"`
	// Diagnostics selects which migration diagnostics are logged.
	Diagnostics string `yaml:"diagnostics,omitempty" validate:"omitempty,oneof=all warnings errors none"`
}

// DiagnosticsLevel returns minimal level migration diagnostics are logged
// at, false means diagnostics are not logged at all.
func (conf *LoggingConfig) DiagnosticsLevel() (zapcore.Level, bool) {
	switch conf.Diagnostics {
	case "none":
		return zapcore.InvalidLevel, false
	case "errors":
		return zapcore.ErrorLevel, true
	case "all":
		return zapcore.DebugLevel, true
	}
	return zapcore.WarnLevel, true
}

// colorOutput honors NO_COLOR before asking the platform.
func colorOutput(stream *os.File) bool {
	if _, set := os.LookupEnv("NO_COLOR"); set {
		return false
	}
	return terminalColors(stream)
}

func consoleEncoder(stream *os.File) zapcore.Encoder {
	ec := zap.NewDevelopmentEncoderConfig()
	ec.EncodeCaller = nil
	ec.EncodeLevel = zapcore.CapitalLevelEncoder
	if colorOutput(stream) {
		ec.EncodeLevel = zapcore.CapitalColorLevelEncoder
		ec.TimeKey = zapcore.OmitKey
	}
	return newDiagEncoder(ec)
}

// consoleCores splits console output: errors go to stderr, everything
// above minimal level to stdout.
func consoleCores(level string) []zapcore.Core {
	var floor zapcore.Level
	switch level {
	case "normal":
		floor = zapcore.InfoLevel
	case "debug":
		floor = zapcore.DebugLevel
	default:
		return nil
	}
	return []zapcore.Core{
		zapcore.NewCore(consoleEncoder(os.Stdout), zapcore.Lock(os.Stdout), zap.LevelEnablerFunc(func(lvl zapcore.Level) bool {
			return floor <= lvl && lvl < zapcore.ErrorLevel
		})),
		zapcore.NewCore(consoleEncoder(os.Stderr), zapcore.Lock(os.Stderr), zap.LevelEnablerFunc(func(lvl zapcore.Level) bool {
			return lvl >= zapcore.ErrorLevel
		})),
	}
}

func openLog(name, mode string) (*os.File, error) {
	flags := os.O_CREATE | os.O_WRONLY | os.O_TRUNC
	if mode == "append" {
		flags = os.O_CREATE | os.O_WRONLY | os.O_APPEND
	}
	return os.OpenFile(name, flags, 0644)
}

// capturePanics redirects crash output next to the log, or into temporary
// directory when that is not writable.
func capturePanics(dir, mode string, rpt *Report) {
	f, err := openLog(filepath.Join(dir, misc.GetAppName()+"-panic.log"), mode)
	if err != nil {
		if f, err = os.CreateTemp("", misc.GetAppName()+"-panic.*.log"); err != nil {
			return
		}
	}
	debug.SetCrashOutput(f, debug.CrashOptions{})
	rpt.Store("panic.log", f.Name())
	f.Close()
}

// Prepare returns configured logger. Debug report forces full file log so
// every migration diagnostic lands in the archive.
func (conf *LoggingConfig) Prepare(rpt *Report) (*zap.Logger, error) {
	cores := consoleCores(conf.ConsoleLogger.Level)

	level, mode := conf.FileLogger.Level, conf.FileLogger.Mode
	if rpt != nil {
		level, mode = "debug", "overwrite"
	}

	var redirected string
	if level == "debug" || level == "normal" {
		enabler := zap.NewAtomicLevelAt(zap.InfoLevel)
		if level == "debug" {
			enabler.SetLevel(zap.DebugLevel)
		}
		capturePanics(filepath.Dir(conf.FileLogger.Destination), mode, rpt)

		f, err := openLog(conf.FileLogger.Destination, mode)
		if err != nil {
			if f, err = os.CreateTemp("", misc.GetAppName()+".*.log"); err != nil {
				return nil, fmt.Errorf("unable to access file log destination (%s): %w", conf.FileLogger.Destination, err)
			}
			redirected = f.Name()
		}
		rpt.Store("final.log", f.Name())
		cores = append(cores, zapcore.NewCore(zapcore.NewConsoleEncoder(zap.NewDevelopmentEncoderConfig()), zapcore.Lock(f), enabler))
	}

	log := zap.New(zapcore.NewTee(cores...), zap.AddCaller())
	if redirected != "" {
		log.Warn("Log file was redirected to new location", zap.String("location", redirected))
	}
	return log.Named(misc.GetAppName()), nil
}

// diagEncoder renders migration diagnostics on console as one readable line:
// "<type> <file>:<line>:<col>" followed by remaining fields. Other entries
// pass through with error fields stripped of verbose details.
type diagEncoder struct {
	zapcore.Encoder
}

func newDiagEncoder(cfg zapcore.EncoderConfig) zapcore.Encoder {
	return diagEncoder{zapcore.NewConsoleEncoder(cfg)}
}

func (c diagEncoder) Clone() zapcore.Encoder {
	return diagEncoder{c.Encoder.Clone()}
}

func (c diagEncoder) EncodeEntry(ent zapcore.Entry, fields []zapcore.Field) (*buffer.Buffer, error) {
	if ent.Message == diag.LogMessage {
		ent.Message, fields = compactDiagnostic(fields)
		return c.Encoder.EncodeEntry(ent, fields)
	}
	out := make([]zapcore.Field, 0, len(fields))
	for _, f := range fields {
		if e, ok := f.Interface.(error); ok && f.Type == zapcore.ErrorType {
			f.Interface = errors.New(e.Error())
		}
		out = append(out, f)
	}
	return c.Encoder.EncodeEntry(ent, out)
}

// compactDiagnostic folds type, file and position fields into the message.
func compactDiagnostic(fields []zapcore.Field) (string, []zapcore.Field) {
	var (
		kind, file, at string
		rest           []zapcore.Field
	)
	for _, f := range fields {
		switch f.Key {
		case "type":
			kind = f.String
		case "file":
			file = f.String
		case "at":
			if s, ok := f.Interface.(fmt.Stringer); ok {
				at = s.String()
			}
		default:
			rest = append(rest, f)
		}
	}
	if kind == "" {
		return diag.LogMessage, fields
	}
	where := file
	if at != "" {
		if where != "" {
			where += ":"
		}
		where += at
	}
	return strings.TrimSpace(kind + " " + where), rest
}
