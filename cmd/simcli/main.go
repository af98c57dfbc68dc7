package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"os"
	"time"

	"github.com/joho/godotenv"

	"capexrisk/pkg/engine"
	"capexrisk/pkg/normalize"
)

// projectFile is the on-disk shape accepted by -project: a JSON
// snapshot of the four project tables and the five lookup tables, in
// the loose column schema pkg/normalize tolerates.
type projectFile struct {
	Items       []normalize.Row `json:"items"`
	Actions     []normalize.Row `json:"actions"`
	Risks       []normalize.Row `json:"risks"`
	RiskActions []normalize.Row `json:"risk_actions"`

	Disciplines    []normalize.Row `json:"disciplines"`
	Phases         []normalize.Row `json:"phases"`
	Locations      []normalize.Row `json:"locations"`
	RiskCategories []normalize.Row `json:"risk_categories"`
	RiskLogs       []normalize.Row `json:"risk_logs"`
}

type fileLoader struct {
	data projectFile
}

func (f fileLoader) LoadProject(ctx context.Context, projectID string) (items, actions, risks, riskActions []normalize.Row, err error) {
	return f.data.Items, f.data.Actions, f.data.Risks, f.data.RiskActions, nil
}

func (f fileLoader) LoadLookups(ctx context.Context) (disciplines, phases, locations, riskCategories, riskLogs []normalize.Row, err error) {
	return f.data.Disciplines, f.data.Phases, f.data.Locations, f.data.RiskCategories, f.data.RiskLogs, nil
}

func main() {
	godotenv.Load()

	configPath := flag.String("config", "config/default.yaml", "Path to the run configuration YAML")
	projectPath := flag.String("project", "", "Path to a JSON project snapshot (required)")
	projectID := flag.String("project-id", "", "Overrides project_id from the config file")
	dataDate := flag.String("data-date", "", "Overrides data_date (YYYY-MM-DD), required if not set in config")
	flag.Parse()

	if *projectPath == "" {
		fmt.Println("Error: -project is required")
		os.Exit(1)
	}

	cfg, err := engine.LoadConfig(*configPath)
	if err != nil {
		fmt.Printf("Error loading config: %v\n", err)
		os.Exit(1)
	}
	if *projectID != "" {
		cfg.ProjectID = *projectID
	}
	if *dataDate != "" {
		parsed, err := time.Parse("2006-01-02", *dataDate)
		if err != nil {
			fmt.Printf("Error parsing -data-date: %v\n", err)
			os.Exit(1)
		}
		cfg.DataDate = parsed
	}

	raw, err := os.ReadFile(*projectPath)
	if err != nil {
		fmt.Printf("Error reading project file: %v\n", err)
		os.Exit(1)
	}
	var pf projectFile
	if err := json.Unmarshal(raw, &pf); err != nil {
		fmt.Printf("Error parsing project file: %v\n", err)
		os.Exit(1)
	}
	loader := fileLoader{data: pf}

	result := engine.Run(context.Background(), loader, loader, cfg)

	out, err := json.MarshalIndent(result, "", "  ")
	if err != nil {
		fmt.Printf("Error marshaling result: %v\n", err)
		os.Exit(1)
	}
	fmt.Println(string(out))

	if !result.Success {
		os.Exit(1)
	}
}
