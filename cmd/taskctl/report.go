package main

import (
	"encoding/json"
	"fmt"
	"io"
	"strings"

	"productivityTracker/internal/app"
	"productivityTracker/internal/models/task"
	"productivityTracker/internal/report"
	"productivityTracker/internal/service"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"
)

var reportCmd = &cobra.Command{
	Use:   "report",
	Short: "Export an owner's task report from the configured store",
	Args:  cobra.NoArgs,
	RunE:  runReport,
}

var (
	reportOwner       string
	reportWindow      string
	reportApplication string
	reportComplexity  string
	reportOutput      string
)

func init() {
	reportCmd.Flags().StringVar(&reportOwner, "owner", "", "owner id (required)")
	reportCmd.Flags().StringVar(&reportWindow, "window", string(report.Monthly), "WEEKLY, MONTHLY, QUARTERLY, HALF_YEARLY or YEARLY")
	reportCmd.Flags().StringVar(&reportApplication, "application", "", "only tasks of this application")
	reportCmd.Flags().StringVar(&reportComplexity, "complexity", "", "only tasks of this complexity")
	reportCmd.Flags().StringVarP(&reportOutput, "output", "o", "json", "json or yaml")
	_ = reportCmd.MarkFlagRequired("owner")
}

func runReport(cmd *cobra.Command, args []string) error {
	req, err := buildReportRequest()
	if err != nil {
		return err
	}

	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	repo, closeRepo, err := app.OpenRepository(cmd.Context(), cfg)
	if err != nil {
		return err
	}
	defer closeRepo()

	rep, err := service.NewTaskService(repo).GenerateReport(cmd.Context(), reportOwner, req)
	if err != nil {
		return err
	}
	return writeReport(cmd.OutOrStdout(), rep, reportOutput)
}

func buildReportRequest() (report.Request, error) {
	window, err := report.ParseWindow(reportWindow)
	if err != nil {
		return report.Request{}, err
	}
	req := report.Request{
		Window:        window,
		Application:   strings.TrimSpace(reportApplication),
		SortField:     report.SortCompletionDate,
		SortDirection: report.Desc,
	}
	if reportComplexity != "" {
		c, err := task.ParseComplexity(reportComplexity)
		if err != nil {
			return report.Request{}, err
		}
		req.Complexity = c
	}
	return req, nil
}

func writeReport(w io.Writer, rep *report.Report, format string) error {
	switch strings.ToLower(format) {
	case "json":
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		return enc.Encode(rep)
	case "yaml", "yml":
		enc := yaml.NewEncoder(w)
		enc.SetIndent(2)
		if err := enc.Encode(rep); err != nil {
			return err
		}
		return enc.Close()
	}
	return fmt.Errorf("unknown output format %q", format)
}
