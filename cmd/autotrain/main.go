package main

import (
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/nagasriramnani/Wastewater-Analytics-Hybrid-AI-Demo-Platform/pipelines/ml"
	"github.com/nagasriramnani/Wastewater-Analytics-Hybrid-AI-Demo-Platform/utils"
)

func main() {
	configPath := flag.String("config", "config.yaml", "path to YAML configuration")
	schedule := flag.String("schedule", "", "cron expression for periodic retraining (overrides config)")
	flag.Parse()

	cfg, err := utils.LoadConfig(*configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "config error: %v\n", err)
		os.Exit(1)
	}
	utils.InitLogger(cfg.Logging)
	logger := utils.GetLogger()

	if *schedule != "" {
		cfg.Training.Schedule = *schedule
	}

	if cfg.Training.Schedule == "" {
		if err := runOnce(cfg, logger); err != nil {
			logger.Error("training run failed", err, utils.Component("autotrain"))
			os.Exit(1)
		}
		return
	}

	scheduler := utils.NewScheduler()
	_, _, err = scheduler.Add("autotrain", cfg.Training.Schedule, func() {
		if err := runOnce(cfg, logger); err != nil {
			logger.Error("scheduled training run failed", err, utils.Component("autotrain"))
		}
	})
	if err != nil {
		logger.Error("failed to schedule training", err, utils.Component("autotrain"))
		os.Exit(1)
	}
	scheduler.Start()
	defer scheduler.Stop()

	sig := make(chan os.Signal, 1)
	signal.Notify(sig, syscall.SIGINT, syscall.SIGTERM)
	<-sig
}

// runOnce executes the full pipeline: load, detect schema, quality report,
// train all models, persist them, record the run.
func runOnce(cfg *utils.Config, logger *utils.Logger) error {
	engine := ml.NewIngestionEngine()
	ds, err := engine.LoadFromPath(cfg.DataPath)
	if err != nil {
		return fmt.Errorf("load data: %w", err)
	}

	report := engine.ValidateData(ds)
	logger.Info("data loaded",
		utils.Component("autotrain"),
		utils.String("path", cfg.DataPath),
		utils.Int("rows", report.Rows),
		utils.Int("columns", report.Columns),
		utils.Int("duplicates", report.DuplicateRows))

	schema := ml.DetectSchema(ds)
	target := cfg.Training.Target
	if target == "" {
		if len(schema.TargetColumns) == 0 {
			return fmt.Errorf("no target configured and none detected")
		}
		target = schema.TargetColumns[0]
	}
	dateCol := cfg.Training.DateColumn
	if dateCol == "" {
		dateCol = schema.DateColumn
	}
	siteCol := cfg.Training.SiteColumn
	if siteCol == "" {
		siteCol = schema.SiteColumn
	}
	logger.Info("schema resolved",
		utils.Component("autotrain"),
		utils.String("target", target),
		utils.String("date_column", dateCol),
		utils.String("site_column", siteCol))

	orch := ml.NewOrchestrator(cfg.Training.RandomSeed)
	orch.MaxRows = cfg.Training.MaxRows
	orch.TestSize = cfg.Training.TestSize
	orch.ValSize = cfg.Training.ValSize
	orch.EarlyStoppingRounds = cfg.Training.EarlyStoppingRounds
	orch.Factory = &ml.FeatureFactory{
		MaxLags:     cfg.Training.MaxLags,
		WindowSizes: cfg.Training.WindowSizes,
	}

	result, err := orch.TrainAll(ds, target, dateCol, siteCol, cfg.Training.Horizon)
	if err != nil {
		return fmt.Errorf("training: %w", err)
	}

	for _, key := range result.Order {
		m := result.Metrics[key]
		fmt.Printf("%-20s rmse=%-12.4f mae=%-12.4f r2=%.4f\n", key, m.RMSE, m.MAE, m.R2)
	}
	fmt.Printf("best model: %s\n", result.BestModelKey)

	serving, err := ml.NewServingLayer(cfg.RegistryPath)
	if err != nil {
		return fmt.Errorf("registry: %w", err)
	}
	for _, key := range result.Order {
		model := result.Models[key]
		if model == nil {
			continue
		}
		storageKey, err := serving.Save(model, fmt.Sprintf("%s_%s", target, key), map[string]any{
			"target": target,
			"best":   key == result.BestModelKey,
		})
		if err != nil {
			return fmt.Errorf("save %s: %w", key, err)
		}
		logger.Info("model saved",
			utils.Component("autotrain"),
			utils.String("model", key),
			utils.String("storage_key", storageKey))
	}

	if cfg.HistoryPath != "" {
		history, err := ml.NewRunHistory(cfg.HistoryPath)
		if err != nil {
			return fmt.Errorf("history: %w", err)
		}
		defer history.Close()
		runID, err := history.Record(result, target, ds.RowCount())
		if err != nil {
			return fmt.Errorf("record run: %w", err)
		}
		logger.Info("run recorded",
			utils.Component("autotrain"),
			utils.String("run_id", runID))
	}

	return nil
}
