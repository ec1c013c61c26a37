package main

import (
	"bytes"
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/go-playground/validator/v10"
	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"jobmate/feed-service/internal/config"
	"jobmate/feed-service/internal/model"
	"jobmate/feed-service/internal/pipeline"
)

var rankCmd = &cobra.Command{
	Use:   "rank",
	Short: "Rank a saved Adzuna response against a profile",
	Long:  "Runs the ranking pipeline offline over an Adzuna search response (or a JSON array of listings) for a YAML profile, and writes the resulting cards as JSON.",
	RunE:  runRank,
}

var (
	rankListings   string
	rankProfile    string
	rankConfig     string
	rankOutput     string
	rankStrict     bool
	rankMaxDaysOld int
	rankWhere      string
	rankCategory   string
	rankSalaryMin  int
)

func init() {
	rankCmd.Flags().StringVarP(&rankListings, "listings", "l", "", "Path to Adzuna response JSON (required)")
	rankCmd.Flags().StringVarP(&rankProfile, "profile", "p", "", "Path to profile YAML (required)")
	rankCmd.Flags().StringVarP(&rankConfig, "config", "c", "", "Path to pipeline config YAML")
	rankCmd.Flags().StringVarP(&rankOutput, "out", "o", "", "Output file; stdout when empty")
	rankCmd.Flags().BoolVar(&rankStrict, "strict", false, "Fail on the first malformed listing instead of skipping it")
	rankCmd.Flags().IntVar(&rankMaxDaysOld, "max-days-old", -1, "Drop listings older than this many days; negative means no limit")
	rankCmd.Flags().StringVar(&rankWhere, "where", "", "Search location accepted by the location filter")
	rankCmd.Flags().StringVar(&rankCategory, "category", "", "Preferred category")
	rankCmd.Flags().IntVar(&rankSalaryMin, "salary-min", 0, "Override the profile's salary floor")

	for _, f := range []string{"listings", "profile"} {
		if err := rankCmd.MarkFlagRequired(f); err != nil {
			panic(fmt.Sprintf("failed to mark %s flag as required: %v", f, err))
		}
	}

	rootCmd.AddCommand(rankCmd)
}

func runRank(cmd *cobra.Command, _ []string) error {
	raws, err := readListings(rankListings)
	if err != nil {
		return err
	}
	profile, err := readProfile(rankProfile)
	if err != nil {
		return err
	}

	pcfg, err := config.LoadPipeline(rankConfig)
	if err != nil {
		return err
	}
	p, err := pipeline.New(pcfg)
	if err != nil {
		return err
	}

	params := model.SearchParams{Where: rankWhere, Category: rankCategory}
	if rankMaxDaysOld >= 0 {
		params.MaxDaysOld = &rankMaxDaysOld
	}
	if rankSalaryMin > 0 {
		params.SalaryMin = &rankSalaryMin
	}

	var res pipeline.Result
	if rankStrict {
		if res, err = p.Process(raws, profile, params); err != nil {
			return err
		}
	} else {
		jobs := make([]pipeline.Job, 0, len(raws))
		for i, raw := range raws {
			j, err := p.Normalize(raw)
			if err != nil {
				slog.Warn("skipping malformed listing", "index", i, "id", raw.ID, "err", err)
				continue
			}
			jobs = append(jobs, j)
		}
		res = p.Run(jobs, profile, params)
	}

	out, err := json.MarshalIndent(res, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal result: %w", err)
	}
	out = append(out, '\n')

	if rankOutput == "" {
		_, err = cmd.OutOrStdout().Write(out)
		return err
	}
	if dir := filepath.Dir(rankOutput); dir != "" && dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("failed to create output directory: %w", err)
		}
	}
	if err := os.WriteFile(rankOutput, out, 0o644); err != nil {
		return fmt.Errorf("failed to write output file %s: %w", rankOutput, err)
	}
	return nil
}

// readListings accepts either a full search response or a bare array.
func readListings(path string) ([]model.RawListing, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read listings file %s: %w", path, err)
	}
	data = bytes.TrimSpace(data)

	var raws []model.RawListing
	if len(data) > 0 && data[0] == '[' {
		err = json.Unmarshal(data, &raws)
	} else {
		var resp struct {
			Results []model.RawListing `json:"results"`
		}
		err = json.Unmarshal(data, &resp)
		raws = resp.Results
	}
	if err != nil {
		return nil, fmt.Errorf("failed to parse listings JSON: %w", err)
	}
	return raws, nil
}

func readProfile(path string) (model.Profile, error) {
	var p model.Profile
	data, err := os.ReadFile(path)
	if err != nil {
		return p, fmt.Errorf("failed to read profile file %s: %w", path, err)
	}
	if err := yaml.Unmarshal(data, &p); err != nil {
		return p, fmt.Errorf("failed to parse profile YAML: %w", err)
	}
	if err := validator.New().Struct(p); err != nil {
		return p, fmt.Errorf("invalid profile: %w", err)
	}
	return p, nil
}
