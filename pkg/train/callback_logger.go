package train

import (
	"encoding/csv"
	"encoding/json"
	"fmt"
	"os"
	"sort"
	"strings"
)

// LogFormat selects MetricsLogger's output encoding.
type LogFormat string

const (
	LogFormatText LogFormat = "text"
	LogFormatJSON LogFormat = "json"
	LogFormatCSV  LogFormat = "csv"
)

// MetricsLogger writes per-epoch metrics to stdout and/or a file, in
// text, JSON, or CSV form.
type MetricsLogger struct {
	BaseCallback

	logFile string
	format  LogFormat
	verbose bool
	logFreq int

	file          *os.File
	csvWriter     *csv.Writer
	headerWritten bool
	metricNames   []string
}

// NewMetricsLogger returns a MetricsLogger. logFile empty means no
// file output; logFreq of N logs every Nth epoch (1 = every epoch).
func NewMetricsLogger(logFile string, format LogFormat, verbose bool, logFreq int) *MetricsLogger {
	return &MetricsLogger{logFile: logFile, format: format, verbose: verbose, logFreq: logFreq}
}

func (ml *MetricsLogger) OnTrainBegin(ctx *TrainingContext) error {
	if ml.logFile == "" {
		return nil
	}
	file, err := os.Create(ml.logFile)
	if err != nil {
		return fmt.Errorf("MetricsLogger: create log file: %w", err)
	}
	ml.file = file
	if ml.format == LogFormatCSV {
		ml.csvWriter = csv.NewWriter(file)
	}
	return nil
}

func (ml *MetricsLogger) OnTrainEnd(ctx *TrainingContext) error {
	if ml.file == nil {
		return nil
	}
	if ml.csvWriter != nil {
		ml.csvWriter.Flush()
		if err := ml.csvWriter.Error(); err != nil {
			return fmt.Errorf("MetricsLogger: csv flush: %w", err)
		}
	}
	err := ml.file.Close()
	ml.file = nil
	if err != nil {
		return fmt.Errorf("MetricsLogger: close log file: %w", err)
	}
	return nil
}

func (ml *MetricsLogger) OnEpochEnd(ctx *TrainingContext) error {
	if ml.logFreq > 0 && (ctx.Epoch+1)%ml.logFreq != 0 {
		return nil
	}

	var logLine string
	var err error
	switch ml.format {
	case LogFormatJSON:
		if logLine, err = ml.formatJSON(ctx); err != nil {
			return fmt.Errorf("MetricsLogger: json format: %w", err)
		}
	case LogFormatCSV:
		if err := ml.writeCSV(ctx); err != nil {
			return fmt.Errorf("MetricsLogger: csv format: %w", err)
		}
		if ml.verbose {
			logLine = ml.formatText(ctx)
		}
	default:
		logLine = ml.formatText(ctx)
	}

	if ml.verbose && logLine != "" {
		fmt.Println(logLine)
	}
	if ml.file != nil && ml.format != LogFormatCSV {
		if _, err := ml.file.WriteString(logLine + "\n"); err != nil {
			return fmt.Errorf("MetricsLogger: write log file: %w", err)
		}
	}
	return nil
}

func (ml *MetricsLogger) formatText(ctx *TrainingContext) string {
	parts := []string{fmt.Sprintf("Epoch %d/%d", ctx.Epoch+1, ctx.NumEpochs)}
	for _, name := range sortedKeys(ctx.Metrics) {
		parts = append(parts, fmt.Sprintf("%s: %.4f", name, ctx.Metrics[name]))
	}
	return strings.Join(parts, " - ")
}

func (ml *MetricsLogger) formatJSON(ctx *TrainingContext) (string, error) {
	data := map[string]any{"epoch": ctx.Epoch + 1}
	for name, value := range ctx.Metrics {
		data[name] = value
	}
	bs, err := json.Marshal(data)
	return string(bs), err
}

func (ml *MetricsLogger) writeCSV(ctx *TrainingContext) error {
	if ml.csvWriter == nil {
		return fmt.Errorf("csv writer not initialized")
	}
	if !ml.headerWritten {
		ml.metricNames = sortedKeys(ctx.Metrics)
		header := append([]string{"epoch"}, ml.metricNames...)
		if err := ml.csvWriter.Write(header); err != nil {
			return err
		}
		ml.headerWritten = true
	}

	record := []string{fmt.Sprintf("%d", ctx.Epoch+1)}
	for _, name := range ml.metricNames {
		record = append(record, fmt.Sprintf("%.6f", ctx.Metrics[name]))
	}
	if err := ml.csvWriter.Write(record); err != nil {
		return err
	}
	ml.csvWriter.Flush()
	return ml.csvWriter.Error()
}

func sortedKeys(m map[string]float64) []string {
	names := make([]string, 0, len(m))
	for name := range m {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
