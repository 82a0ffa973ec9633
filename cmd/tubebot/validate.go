package main

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sort"

	"github.com/keepmind9/tubebot/internal/core"
	"github.com/spf13/cobra"
)

var (
	validateConfig string
	validateJSON   bool
)

// ValidationResult represents the validation result
type ValidationResult struct {
	Valid    bool     `json:"valid"`
	Config   string   `json:"config"`
	Bots     []string `json:"bots"`
	Rules    []string `json:"rules"`
	Jobs     int      `json:"jobs"`
	Errors   []string `json:"errors,omitempty"`
	Warnings []string `json:"warnings,omitempty"`
}

var validateCmd = &cobra.Command{
	Use:   "validate",
	Short: "Validate tubebot configuration file",
	Long: `Validate the tubebot configuration file without starting the service.

This command checks:
  - YAML syntax and environment variables
  - Bot credentials
  - Timezone, cron specs and fetcher settings

Exit codes:
  0 - Configuration is valid
  1 - Configuration has errors`,
	RunE: func(cmd *cobra.Command, args []string) error {
		path := validateConfig
		if path == "" {
			path = findConfigFile()
		}

		result := validateFile(path)
		outputValidationResult(cmd.OutOrStdout(), result, validateJSON)

		if !result.Valid {
			return fmt.Errorf("configuration is invalid")
		}
		return nil
	},
}

// findConfigFile returns the first existing default config location
func findConfigFile() string {
	for _, loc := range []string{
		"config.yaml",
		filepath.Join(os.Getenv("HOME"), ".config/tubebot/config.yaml"),
		"/etc/tubebot/config.yaml",
	} {
		if _, err := os.Stat(loc); err == nil {
			return loc
		}
	}
	return "config.yaml"
}

func validateFile(path string) ValidationResult {
	result := ValidationResult{Config: path}

	cfg, err := core.LoadConfig(path)
	if err != nil {
		result.Errors = append(result.Errors, err.Error())
		return result
	}

	result.Valid = true
	for name, b := range cfg.Bots {
		if b.Enabled {
			result.Bots = append(result.Bots, name)
		}
	}
	sort.Strings(result.Bots)
	result.Rules = buildRouter(cfg).Rules()
	result.Jobs = len(cfg.Scheduler.Jobs)
	result.Warnings = validateConfigDetails(cfg)

	if len(result.Bots) == 0 {
		result.Valid = false
		result.Errors = append(result.Errors, "no bots are enabled")
	}

	return result
}

func validateConfigDetails(cfg *core.Config) []string {
	var warnings []string

	if cfg.Fetchers.LunchURL == "" {
		warnings = append(warnings, "fetchers.lunch_url is empty - lunch rules are disabled")
	}
	if len(cfg.Security.AllowedBotIDs) == 0 {
		warnings = append(warnings, "security.allowed_bot_ids is empty - messages from other bots are ignored")
	}
	if len(cfg.Scheduler.Jobs) > 0 && !cfg.Scheduler.Enabled {
		warnings = append(warnings, "scheduler.jobs are configured but the scheduler is disabled")
	}

	return warnings
}

func outputValidationResult(w io.Writer, result ValidationResult, jsonFormat bool) {
	if jsonFormat {
		output, err := json.Marshal(result)
		if err != nil {
			fmt.Fprintf(w, "{\"error\": \"failed to marshal json: %v\"}\n", err)
			return
		}
		fmt.Fprintln(w, string(output))
		return
	}

	if result.Valid {
		fmt.Fprintln(w, "✓ Configuration is valid")
		fmt.Fprintf(w, "  - Config: %s\n", result.Config)
		fmt.Fprintf(w, "  - Bots enabled: %v\n", result.Bots)
		fmt.Fprintf(w, "  - Rules: %v\n", result.Rules)
		fmt.Fprintf(w, "  - Scheduled jobs: %d\n", result.Jobs)
	} else {
		fmt.Fprintln(w, "❌ Configuration validation failed:")
		for _, errMsg := range result.Errors {
			fmt.Fprintf(w, "  - %s\n", errMsg)
		}
	}
	if len(result.Warnings) > 0 {
		fmt.Fprintln(w, "\n⚠️  Warnings:")
		for _, warning := range result.Warnings {
			fmt.Fprintf(w, "  - %s\n", warning)
		}
	}
}

func init() {
	validateCmd.Flags().StringVarP(&validateConfig, "config", "c", "", "Configuration file path")
	validateCmd.Flags().BoolVar(&validateJSON, "json", false, "Output in JSON format")
}
