package outwriter

import (
	"encoding/csv"
	"fmt"
	"io"
	"strconv"

	"github.com/huangsam/propensity/internal/contract"
	"github.com/huangsam/propensity/schema"

	"github.com/olekukonko/tablewriter"
	"github.com/olekukonko/tablewriter/tw"
)

// metricRow is one named metric from ModelMetrics.
type metricRow struct {
	name  string
	value func(schema.ModelMetrics) float64
}

var metricRows = []metricRow{
	{"auc", func(m schema.ModelMetrics) float64 { return m.AUC }},
	{"accuracy", func(m schema.ModelMetrics) float64 { return m.Accuracy }},
	{"precision", func(m schema.ModelMetrics) float64 { return m.Precision }},
	{"recall", func(m schema.ModelMetrics) float64 { return m.Recall }},
	{"f1", func(m schema.ModelMetrics) float64 { return m.F1 }},
	{"log_loss", func(m schema.ModelMetrics) float64 { return m.LogLoss }},
}

// WriteModelStatus outputs a trained model's metadata and evaluation.
func WriteModelStatus(model *schema.SellerModelWeights, cfg *contract.Config) error {
	if model == nil {
		return fmt.Errorf("no trained model available")
	}
	fmtFloat, _ := createFormatters(cfg.Precision)
	fmtMetric := func(v float64) string { return fmtFloat(v) }
	if cfg.Precision < 3 {
		fmtMetric, _ = createFormatters(3)
	}

	switch cfg.Output {
	case schema.JSONOut:
		return writeWithFile(cfg.OutputFile, func(w io.Writer) error {
			return writeJSON(w, model)
		}, "Wrote JSON")
	case schema.CSVOut:
		return writeWithFile(cfg.OutputFile, func(w io.Writer) error {
			return writeModelCSV(w, model, fmtMetric)
		}, "Wrote CSV")
	case schema.ParquetOut:
		return fmt.Errorf("parquet output is only supported for property scores")
	default:
		return writeWithFile(cfg.OutputFile, func(w io.Writer) error {
			return writeModelText(w, model, cfg, fmtMetric)
		}, "Wrote text")
	}
}

// writeModelText prints model metadata followed by metric, fold and audit tables.
func writeModelText(w io.Writer, model *schema.SellerModelWeights, cfg *contract.Config, fmtMetric func(float64) string) error {
	if _, err := fmt.Fprintf(w, "🤖 Model %s\n", model.ID); err != nil {
		return err
	}
	if _, err := fmt.Fprintf(w, "   Algorithm: %s (schema v%d)\n", model.Algorithm, model.SchemaVersion); err != nil {
		return err
	}
	if _, err := fmt.Fprintf(w, "   Trained:   %s\n", model.TrainedAt.Format(contract.DateTimeFormat)); err != nil {
		return err
	}
	if _, err := fmt.Fprintf(w, "   Examples:  %d training, %d validation, %d features\n", model.TrainingSize, model.ValidationSize, len(model.FeatureNames)); err != nil {
		return err
	}

	table := tablewriter.NewWriter(w)
	table.Header([]string{"Metric", "Validation", "Training"})
	table.Configure(func(cfg *tablewriter.Config) {
		cfg.Row.Alignment.Global = tw.AlignRight
	})
	var data [][]string
	for _, r := range metricRows {
		training := "-"
		if model.TrainingMetrics != nil {
			training = fmtMetric(r.value(*model.TrainingMetrics))
		}
		data = append(data, []string{r.name, fmtMetric(r.value(model.Metrics)), training})
	}
	if err := table.Bulk(data); err != nil {
		return err
	}
	if err := table.Render(); err != nil {
		return err
	}

	if model.Evaluation == nil {
		return nil
	}
	if cv := model.Evaluation.CrossValidation; cv != nil {
		if _, err := fmt.Fprintf(w, "🔁 %d-fold cross-validation: mean AUC %s, mean accuracy %s\n",
			cv.Folds, fmtMetric(cv.Mean.AUC), fmtMetric(cv.Mean.Accuracy)); err != nil {
			return err
		}
		if cfg.Detail {
			if err := writeFoldTable(w, cv, fmtMetric); err != nil {
				return err
			}
		}
	}
	if audit := model.Evaluation.BiasAudit; audit != nil {
		if _, err := fmt.Fprintf(w, "⚖️  Bias audit (global mean probability %s)\n", fmtMetric(audit.GlobalMean)); err != nil {
			return err
		}
		if err := writeBiasTable(w, audit, fmtMetric); err != nil {
			return err
		}
	}
	return nil
}

// writeFoldTable prints per-fold metrics.
func writeFoldTable(w io.Writer, cv *schema.CrossValidationResult, fmtMetric func(float64) string) error {
	table := tablewriter.NewWriter(w)
	table.Header([]string{"Fold", "Train", "Valid", "AUC", "Accuracy", "F1"})
	table.Configure(func(cfg *tablewriter.Config) {
		cfg.Row.Alignment.Global = tw.AlignRight
	})
	var data [][]string
	for _, f := range cv.Results {
		data = append(data, []string{
			strconv.Itoa(f.Fold),
			strconv.Itoa(f.TrainSize),
			strconv.Itoa(f.ValidationSize),
			fmtMetric(f.Metrics.AUC),
			fmtMetric(f.Metrics.Accuracy),
			fmtMetric(f.Metrics.F1),
		})
	}
	if err := table.Bulk(data); err != nil {
		return err
	}
	return table.Render()
}

// writeBiasTable prints the per-group audit.
func writeBiasTable(w io.Writer, audit *schema.BiasAuditResult, fmtMetric func(float64) string) error {
	table := tablewriter.NewWriter(w)
	table.Header([]string{"Attribute", "Group", "Count", "Mean Prob", "Positive", "Lift"})
	table.Configure(func(cfg *tablewriter.Config) {
		cfg.Row.Alignment.Global = tw.AlignRight
	})
	var data [][]string
	for _, g := range audit.Groups {
		data = append(data, []string{
			string(g.Attribute),
			g.Group,
			strconv.Itoa(g.Count),
			fmtMetric(g.MeanProbability),
			fmtMetric(g.PositiveRate),
			fmtMetric(g.Lift),
		})
	}
	if err := table.Bulk(data); err != nil {
		return err
	}
	return table.Render()
}

// writeModelCSV writes the model summary as section/name/value rows.
func writeModelCSV(w io.Writer, model *schema.SellerModelWeights, fmtMetric func(float64) string) error {
	header := []string{"section", "name", "value"}
	return writeCSVWithHeader(w, header, func(csvWriter *csv.Writer) error {
		rows := [][]string{
			{"model", "id", model.ID},
			{"model", "algorithm", string(model.Algorithm)},
			{"model", "schema_version", strconv.Itoa(model.SchemaVersion)},
			{"model", "trained_at", model.TrainedAt.Format(contract.DateTimeFormat)},
			{"model", "training_size", strconv.Itoa(model.TrainingSize)},
			{"model", "validation_size", strconv.Itoa(model.ValidationSize)},
		}
		for _, r := range metricRows {
			rows = append(rows, []string{"validation", r.name, fmtMetric(r.value(model.Metrics))})
		}
		if model.TrainingMetrics != nil {
			for _, r := range metricRows {
				rows = append(rows, []string{"training", r.name, fmtMetric(r.value(*model.TrainingMetrics))})
			}
		}
		if model.Evaluation != nil && model.Evaluation.CrossValidation != nil {
			for _, r := range metricRows {
				rows = append(rows, []string{"cross_validation", r.name, fmtMetric(r.value(model.Evaluation.CrossValidation.Mean))})
			}
		}
		if model.Evaluation != nil && model.Evaluation.BiasAudit != nil {
			for _, g := range model.Evaluation.BiasAudit.Groups {
				rows = append(rows, []string{"bias_lift", string(g.Attribute) + "=" + g.Group, fmtMetric(g.Lift)})
			}
		}
		for _, rec := range rows {
			if err := csvWriter.Write(rec); err != nil {
				return fmt.Errorf("error writing CSV record: %w", err)
			}
		}
		return nil
	})
}

// WriteModelHistory outputs the persisted model history, newest first.
func WriteModelHistory(entries []schema.ModelHistoryEntry, cfg *contract.Config) error {
	fmtMetric, _ := createFormatters(3)

	switch cfg.Output {
	case schema.JSONOut:
		return writeWithFile(cfg.OutputFile, func(w io.Writer) error {
			if entries == nil {
				entries = []schema.ModelHistoryEntry{}
			}
			return writeJSON(w, entries)
		}, "Wrote JSON")
	case schema.CSVOut:
		return writeWithFile(cfg.OutputFile, func(w io.Writer) error {
			header := []string{"id", "algorithm", "trained_at", "schema_version", "training_size", "auc", "accuracy", "path"}
			return writeCSVWithHeader(w, header, func(csvWriter *csv.Writer) error {
				for _, e := range entries {
					if err := csvWriter.Write(historyRow(e, fmtMetric)); err != nil {
						return fmt.Errorf("error writing CSV record: %w", err)
					}
				}
				return nil
			})
		}, "Wrote CSV")
	case schema.ParquetOut:
		return fmt.Errorf("parquet output is only supported for property scores")
	default:
		return writeWithFile(cfg.OutputFile, func(w io.Writer) error {
			if len(entries) == 0 {
				_, err := fmt.Fprintln(w, "No trained models found")
				return err
			}
			table := tablewriter.NewWriter(w)
			table.Header([]string{"ID", "Algorithm", "Trained", "Schema", "Examples", "AUC", "Accuracy", "Path"})
			table.Configure(func(cfg *tablewriter.Config) {
				cfg.Row.Alignment.Global = tw.AlignRight
			})
			var data [][]string
			for _, e := range entries {
				row := historyRow(e, fmtMetric)
				row[7] = contract.TruncateText(row[7], getMaxTableAddressWidth(cfg))
				data = append(data, row)
			}
			if err := table.Bulk(data); err != nil {
				return err
			}
			return table.Render()
		}, "Wrote table")
	}
}

// historyRow flattens a history entry into display fields.
func historyRow(e schema.ModelHistoryEntry, fmtMetric func(float64) string) []string {
	return []string{
		e.ID,
		string(e.Algorithm),
		e.TrainedAt.Format(contract.DateTimeFormat),
		strconv.Itoa(e.SchemaVersion),
		strconv.Itoa(e.TrainingSize),
		fmtMetric(e.AUC),
		fmtMetric(e.Accuracy),
		e.Path,
	}
}
