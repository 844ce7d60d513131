package log

import (
	"fmt"
	"io"
	"os"
	"sort"
	"strings"
	"sync"

	"github.com/op/go-logging"
)

type Level logging.Level

// The levels that can be passed to the SetLevel function.
const (
	Debug Level = iota
	Info
	Notice
	Warning
	Error
)

var levelNames = map[string]Level{
	"debug":   Debug,
	"info":    Info,
	"notice":  Notice,
	"warning": Warning,
	"error":   Error,
}

func (l Level) String() string {
	for name, level := range levelNames {
		if level == l {
			return name
		}
	}
	return fmt.Sprintf("level(%d)", int(l))
}

// ParseLevel converts a level name such as "debug" to a Level
func ParseLevel(name string) (Level, error) {
	level, ok := levelNames[strings.ToLower(strings.TrimSpace(name))]
	if !ok {
		return 0, fmt.Errorf("unknown log level %q", name)
	}
	return level, nil
}

// The logger format
var format = logging.MustStringFormatter(
	`%{color}[%{time:15:04:05.000}] [%{module}] [%{level}]%{color:reset} %{message}`,
)

// backendState holds the active backend and the configured levels, so a new
// sink keeps the verbosity of every module.
var backendState struct {
	sync.Mutex
	leveled      logging.LeveledBackend
	defaultLevel Level
	modules      map[string]Level
}

// Logger is the leveled logger used by every package of the renderer.
type Logger interface {
	Debug(v ...interface{})
	Debugf(format string, v ...interface{})

	Notice(v ...interface{})
	Noticef(format string, v ...interface{})

	Info(v ...interface{})
	Infof(format string, v ...interface{})

	Warning(v ...interface{})
	Warningf(format string, v ...interface{})

	Error(v ...interface{})
	Errorf(format string, v ...interface{})
}

// New creates a named logger. The name shows up as the module column and
// selects the level set by SetModuleLevel.
func New(name string) Logger {
	return logging.MustGetLogger(name)
}

// SetSink overrides the backend output sink.
func SetSink(sink io.Writer) {
	backendState.Lock()
	defer backendState.Unlock()

	backend := logging.NewLogBackend(sink, "", 0)
	backendWithFormatter := logging.NewBackendFormatter(backend, format)
	backendState.leveled = logging.AddModuleLevel(backendWithFormatter)
	applyLevels()
	logging.SetBackend(backendState.leveled)
}

// SetLevel sets the verbosity of every module without a level of its own.
func SetLevel(level Level) {
	backendState.Lock()
	defer backendState.Unlock()

	backendState.defaultLevel = level
	applyLevels()
}

// SetModuleLevel sets the verbosity of one named logger, overriding SetLevel.
func SetModuleLevel(module string, level Level) {
	backendState.Lock()
	defer backendState.Unlock()

	if backendState.modules == nil {
		backendState.modules = make(map[string]Level)
	}
	backendState.modules[module] = level
	applyLevels()
}

// SetModuleLevels parses a comma separated list of module=level pairs, for
// example "renderer=debug,scene=info", and applies it. A bare level sets the
// default. Nothing is applied if any entry is invalid.
func SetModuleLevels(spec string) error {
	type entry struct {
		module string
		level  Level
	}
	var entries []entry
	for _, part := range strings.Split(spec, ",") {
		part = strings.TrimSpace(part)
		if part == "" {
			continue
		}
		module, name, found := strings.Cut(part, "=")
		if !found {
			module, name = "", part
		}
		level, err := ParseLevel(name)
		if err != nil {
			return err
		}
		entries = append(entries, entry{strings.TrimSpace(module), level})
	}

	for _, e := range entries {
		if e.module == "" {
			SetLevel(e.level)
		} else {
			SetModuleLevel(e.module, e.level)
		}
	}
	return nil
}

// ModuleLevels returns the explicitly configured module levels as sorted
// module=level pairs
func ModuleLevels() []string {
	backendState.Lock()
	defer backendState.Unlock()

	var pairs []string
	for module, level := range backendState.modules {
		pairs = append(pairs, module+"="+level.String())
	}
	sort.Strings(pairs)
	return pairs
}

// applyLevels pushes the configured levels into the backend. The caller
// holds backendState.
func applyLevels() {
	if backendState.leveled == nil {
		return
	}
	backendState.leveled.SetLevel(backendLevel(backendState.defaultLevel), "")
	for module, level := range backendState.modules {
		backendState.leveled.SetLevel(backendLevel(level), module)
	}
}

func backendLevel(level Level) logging.Level {
	switch level {
	case Debug:
		return logging.DEBUG
	case Info:
		return logging.INFO
	case Warning:
		return logging.WARNING
	case Error:
		return logging.ERROR
	default:
		return logging.NOTICE
	}
}

func init() {
	backendState.defaultLevel = Notice
	SetSink(os.Stderr)
}
