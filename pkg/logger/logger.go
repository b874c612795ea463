package logger

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"
)

type LogLevel int

const (
	DEBUG LogLevel = iota
	INFO
	WARN
	ERROR
	FATAL
)

type Logger struct {
	level   LogLevel
	mu      sync.Mutex
	file    *os.File
	useFile bool
}

type Config struct {
	Level      string            `json:"level"`
	Output     string            `json:"output"`
	FilePath   string            `json:"file_path"`
	Components map[string]string `json:"components"`
}

var (
	instance        *Logger
	once            sync.Once
	componentLevels map[string]LogLevel
)

func init() {
	componentLevels = make(map[string]LogLevel)
	for _, comp := range []string{
		ComponentGrid, ComponentExecutor, ComponentTxn, ComponentCompute,
		ComponentFormula, ComponentMultiplayer, ComponentImportExport, ComponentCLI,
	} {
		componentLevels[comp] = INFO
	}
}

func GetLogger() *Logger {
	once.Do(func() {
		instance = &Logger{level: INFO}
	})
	return instance
}

func (l *Logger) SetLevel(level LogLevel) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.level = level
}

func SetComponentLevel(component string, level LogLevel) {
	componentLevels[component] = level
}

func getComponentLevel(component string) LogLevel {
	if level, exists := componentLevels[component]; exists {
		return level
	}
	return INFO
}

func (l *Logger) SetFileOutput(path string) error {
	l.mu.Lock()
	defer l.mu.Unlock()

	if l.file != nil {
		l.file.Close()
	}

	file, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0644)
	if err != nil {
		return err
	}

	l.file = file
	l.useFile = true
	return nil
}

func (l *Logger) Close() error {
	l.mu.Lock()
	defer l.mu.Unlock()

	if l.file != nil {
		return l.file.Close()
	}
	return nil
}

func (l *Logger) log(level LogLevel, component, message string, fields map[string]interface{}) {
	l.mu.Lock()
	defer l.mu.Unlock()

	if level < getComponentLevel(component) {
		return
	}

	timestamp := time.Now().Format("2006-01-02 15:04:05")
	levelStr := l.levelToString(level)

	var fieldsStr string
	if len(fields) > 0 {
		fieldsStr = " |"
		for k, v := range fields {
			fieldsStr += fmt.Sprintf(" %s=%v", k, v)
		}
	}

	logLine := fmt.Sprintf("[%s] %s [%s] %s%s\n", timestamp, levelStr, component, message, fieldsStr)
	fmt.Print(logLine)

	if l.useFile && l.file != nil {
		l.file.WriteString(logLine)
	}

	if level == FATAL {
		if l.useFile && l.file != nil {
			l.file.Close()
		}
		os.Exit(1)
	}
}

func (l *Logger) levelToString(level LogLevel) string {
	switch level {
	case DEBUG:
		return "DEBUG"
	case INFO:
		return "INFO "
	case WARN:
		return "WARN "
	case ERROR:
		return "ERROR"
	case FATAL:
		return "FATAL"
	default:
		return "UNKN "
	}
}

func (l *Logger) Debug(component, message string) { l.log(DEBUG, component, message, nil) }
func (l *Logger) Debugf(component, format string, args ...interface{}) {
	l.log(DEBUG, component, fmt.Sprintf(format, args...), nil)
}
func (l *Logger) Info(component, message string) { l.log(INFO, component, message, nil) }
func (l *Logger) Infof(component, format string, args ...interface{}) {
	l.log(INFO, component, fmt.Sprintf(format, args...), nil)
}
func (l *Logger) Warn(component, message string) { l.log(WARN, component, message, nil) }
func (l *Logger) Warnf(component, format string, args ...interface{}) {
	l.log(WARN, component, fmt.Sprintf(format, args...), nil)
}
func (l *Logger) Error(component, message string) { l.log(ERROR, component, message, nil) }
func (l *Logger) Errorf(component, format string, args ...interface{}) {
	l.log(ERROR, component, fmt.Sprintf(format, args...), nil)
}
func (l *Logger) Fatal(component, message string) { l.log(FATAL, component, message, nil) }

func (l *Logger) WithFields(level LogLevel, component, message string, fields map[string]interface{}) {
	l.log(level, component, message, fields)
}

// Component tags, one per SPEC_FULL.md subsystem.
const (
	ComponentGrid          = "GRID"
	ComponentExecutor      = "EXECUTOR"
	ComponentTxn           = "TXN"
	ComponentCompute       = "COMPUTE"
	ComponentFormula       = "FORMULA"
	ComponentMultiplayer   = "MULTIPLAYER"
	ComponentImportExport  = "IMPORTEXPORT"
	ComponentCLI           = "CLI"
)

func GridDebug(msg string) { GetLogger().Debug(ComponentGrid, msg) }
func GridInfo(msg string)  { GetLogger().Info(ComponentGrid, msg) }
func GridWarn(msg string)  { GetLogger().Warn(ComponentGrid, msg) }
func GridError(msg string) { GetLogger().Error(ComponentGrid, msg) }

func ExecutorDebug(msg string) { GetLogger().Debug(ComponentExecutor, msg) }
func ExecutorInfo(msg string)  { GetLogger().Info(ComponentExecutor, msg) }
func ExecutorWarn(msg string)  { GetLogger().Warn(ComponentExecutor, msg) }
func ExecutorError(msg string) { GetLogger().Error(ComponentExecutor, msg) }

func TxnDebug(msg string) { GetLogger().Debug(ComponentTxn, msg) }
func TxnInfo(msg string)  { GetLogger().Info(ComponentTxn, msg) }
func TxnWarn(msg string)  { GetLogger().Warn(ComponentTxn, msg) }
func TxnError(msg string) { GetLogger().Error(ComponentTxn, msg) }

func ComputeDebug(msg string) { GetLogger().Debug(ComponentCompute, msg) }
func ComputeInfo(msg string)  { GetLogger().Info(ComponentCompute, msg) }
func ComputeWarn(msg string)  { GetLogger().Warn(ComponentCompute, msg) }
func ComputeError(msg string) { GetLogger().Error(ComponentCompute, msg) }

func FormulaDebug(msg string) { GetLogger().Debug(ComponentFormula, msg) }
func FormulaWarn(msg string)  { GetLogger().Warn(ComponentFormula, msg) }
func FormulaError(msg string) { GetLogger().Error(ComponentFormula, msg) }

func MultiplayerDebug(msg string) { GetLogger().Debug(ComponentMultiplayer, msg) }
func MultiplayerInfo(msg string)  { GetLogger().Info(ComponentMultiplayer, msg) }
func MultiplayerWarn(msg string)  { GetLogger().Warn(ComponentMultiplayer, msg) }
func MultiplayerError(msg string) { GetLogger().Error(ComponentMultiplayer, msg) }

func ImportExportInfo(msg string)  { GetLogger().Info(ComponentImportExport, msg) }
func ImportExportError(msg string) { GetLogger().Error(ComponentImportExport, msg) }

func CLIInfo(msg string)  { GetLogger().Info(ComponentCLI, msg) }
func CLIError(msg string) { GetLogger().Error(ComponentCLI, msg) }

func LoadConfig(configPath string) error {
	if !filepath.IsAbs(configPath) {
		absPath, err := filepath.Abs(configPath)
		if err == nil {
			configPath = absPath
		}
	}

	data, err := os.ReadFile(configPath)
	if err != nil {
		return fmt.Errorf("reading logger config %s: %w", configPath, err)
	}

	var config Config
	if err := json.Unmarshal(data, &config); err != nil {
		return fmt.Errorf("parsing logger config: %w", err)
	}

	logger := GetLogger()
	logger.mu.Lock()

	if globalLevel, ok := parseLogLevel(config.Level); ok {
		logger.level = globalLevel
	}

	if config.Output == "file" && config.FilePath != "" {
		logger.mu.Unlock()
		if err := logger.SetFileOutput(config.FilePath); err != nil {
			fmt.Printf("[LOGGER] warning: could not open log file: %v\n", err)
		}
		logger.mu.Lock()
	}

	for component, levelStr := range config.Components {
		if level, ok := parseLogLevel(levelStr); ok {
			componentLevels[component] = level
		}
	}

	logger.mu.Unlock()
	logger.Info("LOGGER", fmt.Sprintf("config loaded from %s (level: %s)", configPath, config.Level))
	return nil
}

// ParseLevel exposes parseLogLevel to callers outside the package (cmd/gridctl's
// --log-level flag).
func ParseLevel(levelStr string) (LogLevel, bool) {
	return parseLogLevel(levelStr)
}

func parseLogLevel(levelStr string) (LogLevel, bool) {
	switch levelStr {
	case "DEBUG":
		return DEBUG, true
	case "INFO":
		return INFO, true
	case "WARN":
		return WARN, true
	case "ERROR":
		return ERROR, true
	case "FATAL":
		return FATAL, true
	default:
		return INFO, false
	}
}

func InitializeFromFile(configPath string) error {
	GetLogger()
	return LoadConfig(configPath)
}

func InitializeWithDefaults(level LogLevel) {
	logger := GetLogger()
	logger.SetLevel(level)
	logger.Info("LOGGER", fmt.Sprintf("logger initialized at default level %s", LevelToString(level)))
}

func LevelToString(level LogLevel) string {
	switch level {
	case DEBUG:
		return "DEBUG"
	case INFO:
		return "INFO"
	case WARN:
		return "WARN"
	case ERROR:
		return "ERROR"
	case FATAL:
		return "FATAL"
	default:
		return "UNKN"
	}
}
