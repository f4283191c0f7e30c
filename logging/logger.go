package logging

import (
	"fmt"
	"github.com/crytic/symheap/logging/colors"
	"github.com/rs/zerolog"
	"io"
	"os"
	"slices"
	"strings"
)

// GlobalLogger describes a Logger that is disabled by default and is configured by the CLI. Each package should create
// its own sub-logger from it, so that log output can be filtered by service.
var GlobalLogger = NewLogger(zerolog.Disabled, false)

// Logger describes a custom logging object that can log events to any arbitrary channel and can handle specialized
// output to console as well
type Logger struct {
	// level describes the log level
	level zerolog.Level

	// context describes the key-value pairs added by NewSubLogger, in order. They are re-applied whenever the set of
	// writers changes.
	context []string

	// multiLogger describes a logger that will be used to output logs to any arbitrary channel(s) in either structured
	// or unstructured format.
	multiLogger zerolog.Logger

	// consoleLogger describes a logger that will be used to output colorized, unstructured output to console.
	consoleLogger zerolog.Logger

	// writers describes a list of io.Writer objects where log output will go.
	writers []io.Writer

	// formats describes the LogFormat of each of the writers.
	formats []LogFormat
}

// LogFormat describes what format to log in
type LogFormat string

const (
	// STRUCTURED describes that logging should be done in structured JSON format
	STRUCTURED LogFormat = "structured"
	// UNSTRUCTURED describes that logging should be done in an unstructured format
	UNSTRUCTURED LogFormat = "unstructured"
)

// StructuredLogInfo describes a key-value mapping that can be used to log structured data
type StructuredLogInfo map[string]any

// NewLogger will create a new Logger object with a specific log level. The Logger can output to console, if enabled,
// and output logs to any number of arbitrary io.Writer channels
func NewLogger(level zerolog.Level, consoleEnabled bool, writers ...io.Writer) *Logger {
	l := &Logger{
		level:         level,
		writers:       writers,
		formats:       make([]LogFormat, len(writers)),
		consoleLogger: zerolog.New(os.Stdout).Level(zerolog.Disabled),
	}
	for i := range l.formats {
		l.formats[i] = STRUCTURED
	}
	if consoleEnabled {
		consoleWriter := setupDefaultFormatting(zerolog.ConsoleWriter{Out: os.Stdout}, level)
		l.consoleLogger = zerolog.New(consoleWriter).Level(level)
	}
	l.rebuildMultiLogger()
	return l
}

// rebuildMultiLogger recreates the multi logger over the current writers. Without writers, it is disabled.
// Unstructured output to a writer is never colorized.
func (l *Logger) rebuildMultiLogger() {
	if len(l.writers) == 0 {
		l.multiLogger = zerolog.New(io.Discard).Level(zerolog.Disabled)
		return
	}
	outputs := make([]io.Writer, len(l.writers))
	for i, writer := range l.writers {
		outputs[i] = writer
		if l.formats[i] == UNSTRUCTURED {
			outputs[i] = zerolog.ConsoleWriter{Out: writer, NoColor: true}
		}
	}
	ctx := zerolog.New(zerolog.MultiLevelWriter(outputs...)).Level(l.level).With().Timestamp()
	for i := 0; i+1 < len(l.context); i += 2 {
		ctx = ctx.Str(l.context[i], l.context[i+1])
	}
	l.multiLogger = ctx.Logger()
}

// NewSubLogger will create a new Logger with unique context in the form of a key-value pair. The expected use of this
// function is for each package to have their own unique logger so that parsing of logs is "grep-able" based on some key
func (l *Logger) NewSubLogger(key string, value string) *Logger {
	return &Logger{
		level:         l.level,
		context:       append(slices.Clip(l.context), key, value),
		multiLogger:   l.multiLogger.With().Str(key, value).Logger(),
		consoleLogger: l.consoleLogger.With().Str(key, value).Logger(),
		writers:       l.writers,
		formats:       l.formats,
	}
}

// AddWriter will add a writer to the list of channels where log output will be sent. Adding a writer twice is a
// no-op.
func (l *Logger) AddWriter(writer io.Writer, format LogFormat) {
	if slices.Contains(l.writers, writer) {
		return
	}
	l.writers = append(slices.Clip(l.writers), writer)
	l.formats = append(slices.Clip(l.formats), format)
	l.rebuildMultiLogger()
}

// RemoveWriter will remove a writer from the list of writers that the logger manages. If the writer does not exist, this
// function is a no-op
func (l *Logger) RemoveWriter(writer io.Writer) {
	i := slices.Index(l.writers, writer)
	if i < 0 {
		return
	}
	l.writers = slices.Delete(slices.Clone(l.writers), i, i+1)
	l.formats = slices.Delete(slices.Clone(l.formats), i, i+1)
	l.rebuildMultiLogger()
}

// Writers returns the amount of writers the logger outputs to besides the console.
func (l *Logger) Writers() int {
	return len(l.writers)
}

// Level will get the log level of the Logger
func (l *Logger) Level() zerolog.Level {
	return l.level
}

// SetLevel will update the log level of the Logger
func (l *Logger) SetLevel(level zerolog.Level) {
	l.level = level
	l.multiLogger = l.multiLogger.Level(level)
	l.consoleLogger = l.consoleLogger.Level(level)
}

// Trace is a wrapper function that will log a trace event
func (l *Logger) Trace(args ...any) {
	l.emit(l.consoleLogger.Trace(), l.multiLogger.Trace(), l.level <= zerolog.DebugLevel, args)
}

// Debug is a wrapper function that will log a debug event
func (l *Logger) Debug(args ...any) {
	l.emit(l.consoleLogger.Debug(), l.multiLogger.Debug(), l.level <= zerolog.DebugLevel, args)
}

// Info is a wrapper function that will log an info event
func (l *Logger) Info(args ...any) {
	l.emit(l.consoleLogger.Info(), l.multiLogger.Info(), l.level <= zerolog.DebugLevel, args)
}

// Warn is a wrapper function that will log a warning event
func (l *Logger) Warn(args ...any) {
	l.emit(l.consoleLogger.Warn(), l.multiLogger.Warn(), l.level <= zerolog.DebugLevel, args)
}

// Error is a wrapper function that will log an error event
func (l *Logger) Error(args ...any) {
	l.emit(l.consoleLogger.Error(), l.multiLogger.Error(), l.level <= zerolog.DebugLevel, args)
}

// Panic is a wrapper function that will log a panic event and then panic
func (l *Logger) Panic(args ...any) {
	l.emit(l.consoleLogger.Panic(), l.multiLogger.Panic(), true, args)
}

// emit chains the error, structured info and messages built from args to both events and sends them. The multi
// logger event is sent last so that a panicking console event still reaches every writer.
func (l *Logger) emit(consoleLog, multiLog *zerolog.Event, withStack bool, args []any) {
	consoleMsg, multiMsg, err, info := buildMsgs(args...)

	// Err tolerates a nil error
	consoleLog.Err(err)
	multiLog.Err(err)
	if withStack {
		consoleLog.Stack()
		multiLog.Stack()
	}

	if info != nil {
		consoleLog.Any("info", info)
		multiLog.Any("info", info)
	}

	defer multiLog.Msg(multiMsg)
	consoleLog.Msg(consoleMsg)
}

// buildMsgs takes in a variadic list of arguments of any type and returns two strings and, optionally, an error and a
// StructuredLogInfo object. The first string is colorized for console logging while the second one is plain for
// file/structured logging. A colors.ColorFunc argument switches the color of the arguments which follow it.
func buildMsgs(args ...any) (string, string, error, StructuredLogInfo) {
	if len(args) == 0 {
		return "", "", nil, nil
	}

	colorCtx := colors.Reset
	var (
		consoleOutput, fileOutput strings.Builder
		info                      StructuredLogInfo
		err                       error
	)
	for _, arg := range args {
		switch t := arg.(type) {
		case colors.ColorFunc:
			colorCtx = t
		case StructuredLogInfo:
			// Only one structured log info is kept per message
			info = t
		case error:
			// Only one error is kept per message
			err = t
		default:
			consoleOutput.WriteString(colorCtx(t))
			fmt.Fprintf(&fileOutput, "%v", t)
		}
	}
	return consoleOutput.String(), fileOutput.String(), err, info
}

// setupDefaultFormatting will update the console logger's formatting to the symheap standard
func setupDefaultFormatting(writer zerolog.ConsoleWriter, level zerolog.Level) zerolog.ConsoleWriter {
	// Get rid of the timestamp for console output
	writer.FormatTimestamp = func(i interface{}) string {
		return ""
	}

	writer.FormatLevel = func(i any) string {
		level, err := zerolog.ParseLevel(i.(string))
		if err != nil {
			panic(fmt.Sprintf("unable to parse the log level: %v", err))
		}

		switch level {
		case zerolog.TraceLevel:
			return colors.CyanBold(zerolog.LevelTraceValue)
		case zerolog.DebugLevel:
			return colors.BlueBold(zerolog.LevelDebugValue)
		case zerolog.InfoLevel:
			return colors.GreenBold(colors.LEFT_ARROW)
		case zerolog.WarnLevel:
			return colors.YellowBold(zerolog.LevelWarnValue)
		case zerolog.ErrorLevel, zerolog.FatalLevel, zerolog.PanicLevel:
			return colors.RedBold(level.String())
		default:
			return i.(string)
		}
	}

	// Above debug level, the service and heap identifiers only clutter the console
	if level > zerolog.DebugLevel {
		writer.FieldsExclude = []string{SERVICE_KEY, HEAP_KEY}
	}
	return writer
}
