package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/go-sif/tally"
	"github.com/go-sif/tally/datasource/file"
	"github.com/go-sif/tally/logging"
	"github.com/go-sif/tally/report"
	multierror "github.com/hashicorp/go-multierror"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func TestDefaultIsValid(t *testing.T) {
	cfg := Default()
	require.Nil(t, cfg.Validate())
	require.Equal(t, logging.InfoLevel, cfg.Level())
	require.Equal(t, &report.Conf{Format: report.FormatBRC, Precision: 1}, cfg.ReportConf())
	require.Equal(t, &file.Conf{Mode: file.ModeAuto, ChunkSize: 1 << 20, RecordSeparator: '\n'}, cfg.SourceConf())
}

func TestParse(t *testing.T) {
	cfg, err := Parse([]byte(`
workers: 6
dispatch: push
queue_depth: 24
max_in_flight: 64MiB
chunk_size: "256 KiB"
read_ahead: 3
field_separator: ","
record_separator: '\n'
format: verbose
precision: 2
sort: false
log_level: debug
`))
	require.Nil(t, err)
	require.Equal(t, 6, cfg.Workers)
	require.Equal(t, tally.DispatchPush, cfg.Dispatch)
	require.EqualValues(t, 64<<20, cfg.MaxInFlight)
	require.EqualValues(t, 256<<10, cfg.ChunkSize)
	require.Equal(t, Separator(','), cfg.FieldSeparator)
	require.Equal(t, Separator('\n'), cfg.RecordSeparator)
	require.Equal(t, logging.DebugLevel, cfg.Level())

	opts := cfg.EngineOptions(zap.NewNop())
	require.Equal(t, 6, opts.NumWorkers)
	require.Equal(t, 24, opts.QueueDepth)
	require.EqualValues(t, 64<<20, opts.MaxInFlightBytes)
	require.NotNil(t, opts.Parser)

	source := cfg.SourceConf()
	require.Equal(t, 256<<10, source.ChunkSize)
	require.Equal(t, 3, source.ReadAhead)

	rep := cfg.ReportConf()
	require.Equal(t, report.FormatVerbose, rep.Format)
	require.Equal(t, 2, rep.Precision)
	require.True(t, rep.Unsorted)
}

func TestParseIntegerSizes(t *testing.T) {
	cfg, err := Parse([]byte("chunk_size: 4096\nmax_in_flight: 1048576\n"))
	require.Nil(t, err)
	require.EqualValues(t, 4096, cfg.ChunkSize)
	require.EqualValues(t, 1<<20, cfg.MaxInFlight)
	require.Equal(t, "4.0 KiB", cfg.ChunkSize.String())
}

func TestParseEmptyKeepsDefaults(t *testing.T) {
	cfg, err := Parse([]byte(""))
	require.Nil(t, err)
	require.Equal(t, Default(), cfg)
}

func TestParseRejectsUnknownKeys(t *testing.T) {
	_, err := Parse([]byte("wokers: 4\n"))
	require.NotNil(t, err)
}

func TestParseRejectsBadValues(t *testing.T) {
	for _, doc := range []string{
		"chunk_size: lots\n",
		"field_separator: ';;'\n",
		"workers: [1, 2]\n",
		"precision: high\n",
	} {
		_, err := Parse([]byte(doc))
		require.NotNil(t, err, doc)
	}
}

func TestValidateCollectsEveryProblem(t *testing.T) {
	cfg := Default()
	cfg.Workers = -1
	cfg.Dispatch = "broadcast"
	cfg.Mode = "telepathy"
	cfg.FieldSeparator = '\n'
	cfg.Format = "xml"
	cfg.Precision = 99
	cfg.LogLevel = "chatty"
	err := cfg.Validate()
	require.NotNil(t, err)
	require.Len(t, err.(*multierror.Error).Errors, 7)
}

func TestParseSeparator(t *testing.T) {
	cases := map[string]Separator{`\n`: '\n', "newline": '\n', `\t`: '\t', "TAB": '\t', `\r`: '\r', ";": ';', "|": '|'}
	for s, expected := range cases {
		sep, err := ParseSeparator(s)
		require.Nil(t, err, s)
		require.Equal(t, expected, sep, s)
	}
	_, err := ParseSeparator(`\0`)
	require.NotNil(t, err)
	_, err = ParseSeparator("")
	require.NotNil(t, err)
}

func TestLoad(t *testing.T) {
	path := filepath.Join(t.TempDir(), "tally.yaml")
	require.Nil(t, os.WriteFile(path, []byte("workers: 2\nformat: lines\n"), 0600))
	cfg, err := Load(path)
	require.Nil(t, err)
	require.Equal(t, 2, cfg.Workers)
	require.Equal(t, report.FormatLines, cfg.Format)

	_, err = Load(filepath.Join(t.TempDir(), "missing.yaml"))
	require.NotNil(t, err)
}
