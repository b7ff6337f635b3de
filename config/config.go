// Package config loads the settings of a Tally run from YAML, and translates them into the
// options of the engine, the input file and the report.
package config

import (
	"os"
	"reflect"
	"strings"

	"github.com/dustin/go-humanize"
	"github.com/go-sif/tally"
	"github.com/go-sif/tally/datasource/file"
	"github.com/go-sif/tally/datasource/parser/dsv"
	"github.com/go-sif/tally/engine"
	"github.com/go-sif/tally/logging"
	"github.com/go-sif/tally/report"
	multierror "github.com/hashicorp/go-multierror"
	"github.com/mitchellh/mapstructure"
	pkgerrors "github.com/pkg/errors"
	"go.uber.org/zap"
	"gopkg.in/yaml.v3"
)

// ByteSize is a number of bytes, written either as an integer or a humanized size such as "4MiB"
type ByteSize int64

// Separator is a single separator byte, written either literally or as an escape such as "\n" or "tab"
type Separator byte

// Config holds the settings of a Tally run
type Config struct {
	Workers         int       `mapstructure:"workers" yaml:"workers"`
	Dispatch        string    `mapstructure:"dispatch" yaml:"dispatch"`
	QueueDepth      int       `mapstructure:"queue_depth" yaml:"queue_depth"`
	ResultBuffer    int       `mapstructure:"result_buffer" yaml:"result_buffer"`
	MaxInFlight     ByteSize  `mapstructure:"max_in_flight" yaml:"max_in_flight"`
	MaxDiagnostics  int       `mapstructure:"max_diagnostics" yaml:"max_diagnostics"`
	Mode            string    `mapstructure:"mode" yaml:"mode"`
	ChunkSize       ByteSize  `mapstructure:"chunk_size" yaml:"chunk_size"`
	ReadAhead       int       `mapstructure:"read_ahead" yaml:"read_ahead"`
	FieldSeparator  Separator `mapstructure:"field_separator" yaml:"field_separator"`
	RecordSeparator Separator `mapstructure:"record_separator" yaml:"record_separator"`
	Format          string    `mapstructure:"format" yaml:"format"`
	Precision       int       `mapstructure:"precision" yaml:"precision"`
	Sort            bool      `mapstructure:"sort" yaml:"sort"`
	LogLevel        string    `mapstructure:"log_level" yaml:"log_level"`
}

// Default returns the settings used when nothing is configured
func Default() *Config {
	return &Config{
		Dispatch:        tally.DispatchPull,
		MaxDiagnostics:  dsv.DefaultMaxDiagnostics,
		Mode:            file.ModeAuto,
		ChunkSize:       1 << 20,
		FieldSeparator:  ';',
		RecordSeparator: '\n',
		Format:          report.FormatBRC,
		Precision:       report.DefaultPrecision,
		Sort:            true,
		LogLevel:        logging.LogLevelToString(logging.InfoLevel),
	}
}

// Load reads a YAML config file, applying its settings on top of Default()
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, pkgerrors.Wrapf(err, "unable to read config file %s", path)
	}
	cfg, err := Parse(data)
	if err != nil {
		return nil, pkgerrors.Wrapf(err, "invalid config file %s", path)
	}
	return cfg, nil
}

// Parse decodes YAML settings on top of Default(). Unknown keys are rejected.
func Parse(data []byte) (*Config, error) {
	raw := map[string]interface{}{}
	if err := yaml.Unmarshal(data, &raw); err != nil {
		return nil, pkgerrors.Wrap(err, "unable to parse YAML")
	}
	cfg := Default()
	decoder, err := mapstructure.NewDecoder(&mapstructure.DecoderConfig{
		DecodeHook:       mapstructure.ComposeDecodeHookFunc(byteSizeHook, separatorHook),
		ErrorUnused:      true,
		WeaklyTypedInput: true,
		Result:           cfg,
	})
	if err != nil {
		return nil, err
	}
	if err := decoder.Decode(raw); err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

var (
	byteSizeType  = reflect.TypeOf(ByteSize(0))
	separatorType = reflect.TypeOf(Separator(0))
)

func byteSizeHook(from reflect.Type, to reflect.Type, data interface{}) (interface{}, error) {
	if to != byteSizeType || from.Kind() != reflect.String {
		return data, nil
	}
	return ParseByteSize(data.(string))
}

func separatorHook(from reflect.Type, to reflect.Type, data interface{}) (interface{}, error) {
	if to != separatorType || from.Kind() != reflect.String {
		return data, nil
	}
	return ParseSeparator(data.(string))
}

// ParseByteSize parses sizes such as "65536", "64KiB" or "1 MB"
func ParseByteSize(s string) (ByteSize, error) {
	n, err := humanize.ParseBytes(s)
	if err != nil {
		return 0, pkgerrors.Wrapf(err, "invalid size %q", s)
	}
	return ByteSize(n), nil
}

// String returns the humanized representation of a ByteSize
func (b ByteSize) String() string {
	return humanize.IBytes(uint64(b))
}

// ParseSeparator parses a single byte, or one of the escapes \n, \t and \r ("newline" and "tab" also work). NUL is rejected.
func ParseSeparator(s string) (Separator, error) {
	switch strings.ToLower(s) {
	case `\n`, "newline":
		return '\n', nil
	case `\t`, "tab":
		return '\t', nil
	case `\r`:
		return '\r', nil
	case `\0`:
		return 0, pkgerrors.New("NUL cannot be used as a separator")
	}
	if len(s) != 1 {
		return 0, pkgerrors.Errorf("separator %q must be a single byte", s)
	}
	return Separator(s[0]), nil
}

// Validate returns every problem with this Config, or nil
func (c *Config) Validate() error {
	var problems *multierror.Error
	if c.Workers < 0 {
		problems = multierror.Append(problems, pkgerrors.Errorf("workers must not be negative, was %d", c.Workers))
	}
	if c.Dispatch != tally.DispatchPull && c.Dispatch != tally.DispatchPush {
		problems = multierror.Append(problems, pkgerrors.Errorf("dispatch must be %q or %q, was %q", tally.DispatchPull, tally.DispatchPush, c.Dispatch))
	}
	if c.QueueDepth < 0 || c.ResultBuffer < 0 || c.MaxInFlight < 0 || c.MaxDiagnostics < 0 || c.ReadAhead < 0 {
		problems = multierror.Append(problems, pkgerrors.New("queue_depth, result_buffer, max_in_flight, max_diagnostics and read_ahead must not be negative"))
	}
	if c.Mode != file.ModeAuto && c.Mode != file.ModeMmap && c.Mode != file.ModeStream {
		problems = multierror.Append(problems, pkgerrors.Errorf("mode must be %q, %q or %q, was %q", file.ModeAuto, file.ModeMmap, file.ModeStream, c.Mode))
	}
	if c.ChunkSize <= 0 {
		problems = multierror.Append(problems, pkgerrors.Errorf("chunk_size must be positive, was %d", c.ChunkSize))
	}
	if c.FieldSeparator == 0 || c.RecordSeparator == 0 {
		problems = multierror.Append(problems, pkgerrors.New("field_separator and record_separator must be set"))
	} else if c.FieldSeparator == c.RecordSeparator {
		problems = multierror.Append(problems, pkgerrors.Errorf("field_separator and record_separator must differ, both were %q", byte(c.FieldSeparator)))
	}
	if c.Format != report.FormatBRC && c.Format != report.FormatLines && c.Format != report.FormatVerbose {
		problems = multierror.Append(problems, pkgerrors.Errorf("format must be %q, %q or %q, was %q", report.FormatBRC, report.FormatLines, report.FormatVerbose, c.Format))
	}
	if c.Precision < 0 || c.Precision > 17 {
		problems = multierror.Append(problems, pkgerrors.Errorf("precision must be between 0 and 17, was %d", c.Precision))
	}
	if _, err := logging.ParseLevel(c.LogLevel); err != nil {
		problems = multierror.Append(problems, err)
	}
	return problems.ErrorOrNil()
}

// EngineOptions returns the engine.Options described by this Config
func (c *Config) EngineOptions(logger *zap.Logger) *engine.Options {
	return &engine.Options{
		NumWorkers:       c.Workers,
		Dispatch:         c.Dispatch,
		QueueDepth:       c.QueueDepth,
		ResultBuffer:     c.ResultBuffer,
		MaxInFlightBytes: int64(c.MaxInFlight),
		MaxDiagnostics:   c.MaxDiagnostics,
		Parser: dsv.CreateParser(&dsv.ParserConf{
			FieldSeparator:  byte(c.FieldSeparator),
			RecordSeparator: byte(c.RecordSeparator),
			MaxDiagnostics:  c.MaxDiagnostics,
		}),
		Logger: logger,
	}
}

// SourceConf returns the file.Conf described by this Config
func (c *Config) SourceConf() *file.Conf {
	return &file.Conf{
		Mode:            c.Mode,
		ChunkSize:       int(c.ChunkSize),
		RecordSeparator: byte(c.RecordSeparator),
		ReadAhead:       c.ReadAhead,
	}
}

// ReportConf returns the report.Conf described by this Config
func (c *Config) ReportConf() *report.Conf {
	return &report.Conf{
		Format:    c.Format,
		Precision: c.Precision,
		Unsorted:  !c.Sort,
	}
}

// Level returns the parsed log level of this Config
func (c *Config) Level() int {
	level, err := logging.ParseLevel(c.LogLevel)
	if err != nil {
		return logging.InfoLevel
	}
	return level
}
