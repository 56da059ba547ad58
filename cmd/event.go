package cmd

import (
	"fmt"
	"os"
	"path/filepath"
	"slices"
	"strings"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/s0up4200/referral/filter"
	"github.com/s0up4200/referral/force"
	"github.com/s0up4200/referral/referral"
)

var (
	referralCode     string
	eventFile        string
	eventFilter      string
	eventConcurrency int
	eventDryRun      bool
)

// eventCmd groups referral event commands
var eventCmd = &cobra.Command{
	Use:   "event",
	Short: "Record referral events",
}

var eventReferCmd = &cobra.Command{
	Use:   "refer EMAIL...",
	Short: "Record a Refer event for one or more email addresses",
	Args:  cobra.MinimumNArgs(1),
	RunE:  runRefer,
}

var eventBatchCmd = &cobra.Command{
	Use:   "batch",
	Short: "Submit events from a YAML or JSON file",
	Long: `Submit every event listed in a YAML or JSON file. The file holds an
"events" list; each entry uses the same field names as the API, plus an
"emails" list.

The --filter flag takes either the name of a filter from the config file or
an inline expression, for example:

  referral event batch --file events.yaml --filter 'emailDomain("example.com")'`,
	RunE: runBatch,
}

func init() {
	rootCmd.AddCommand(eventCmd)
	eventCmd.AddCommand(eventReferCmd, eventBatchCmd)

	eventReferCmd.Flags().StringVarP(&referralCode, "code", "c", "", "referral code of the advocate (required)")
	eventReferCmd.MarkFlagRequired("code")

	eventBatchCmd.Flags().StringVarP(&eventFile, "file", "f", "", "events file (required)")
	eventBatchCmd.Flags().StringVar(&eventFilter, "filter", "", "filter name or expression selecting events to submit")
	eventBatchCmd.Flags().IntVar(&eventConcurrency, "concurrency", 0, "parallel submissions (default from config)")
	eventBatchCmd.Flags().BoolVarP(&eventDryRun, "dry-run", "d", false, "show the selected events without submitting them")
	eventBatchCmd.MarkFlagRequired("file")
}

func runRefer(cmd *cobra.Command, args []string) error {
	mgr, err := newManager()
	if err != nil {
		return err
	}

	result, err := mgr.Refer(cmd.Context(), referralCode, args...)
	if err != nil {
		return err
	}
	return writeResult(cmd.OutOrStdout(), outputFormat, result)
}

// batchFile is the on-disk layout of an events file
type batchFile struct {
	Events []referral.Event `json:"events" yaml:"events"`
}

// loadEvents reads an events file. JSON goes through the API decoder so
// dates accept the same layouts as responses.
func loadEvents(path string, dec *force.Decoder) ([]referral.Event, error) {
	var file batchFile

	switch strings.ToLower(filepath.Ext(path)) {
	case ".json":
		if err := dec.DecodeFile(path, &file); err != nil {
			return nil, fmt.Errorf("failed to read events file: %w", err)
		}
	case ".yaml", ".yml":
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("failed to read events file: %w", err)
		}
		if err := yaml.Unmarshal(data, &file); err != nil {
			return nil, fmt.Errorf("failed to parse events file: %w", err)
		}
	default:
		return nil, fmt.Errorf("unsupported events file type: %s", path)
	}

	if len(file.Events) == 0 {
		return nil, fmt.Errorf("no events found in %s", path)
	}
	return file.Events, nil
}

type batchReport struct {
	Requested int                  `json:"requested" yaml:"requested"`
	Selected  int                  `json:"selected" yaml:"selected"`
	Skipped   []int                `json:"skipped,omitempty" yaml:"skipped,omitempty"`
	Succeeded []batchReportSuccess `json:"succeeded,omitempty" yaml:"succeeded,omitempty"`
	Failed    []batchReportFailure `json:"failed,omitempty" yaml:"failed,omitempty"`
}

type batchReportSuccess struct {
	Index        int                   `json:"index" yaml:"index"`
	ReferralCode string                `json:"referralCode" yaml:"referralCode"`
	Result       *referral.EventResult `json:"result,omitempty" yaml:"result,omitempty"`
}

type batchReportFailure struct {
	Index        int    `json:"index" yaml:"index"`
	ReferralCode string `json:"referralCode" yaml:"referralCode"`
	Error        string `json:"error" yaml:"error"`
}

// selectEvents applies the optional filter and returns the chosen events
// with their positions in the file
func selectEvents(fm *filter.Manager, events []referral.Event, expression string) ([]referral.Event, []int, []int, error) {
	positions := make([]int, len(events))
	for i := range events {
		positions[i] = i
	}
	if expression == "" {
		return events, positions, nil, nil
	}

	f, err := fm.Resolve(expression)
	if err != nil {
		return nil, nil, nil, fmt.Errorf("invalid filter: %w", err)
	}
	sel, err := filter.Apply(f, events)
	if err != nil {
		return nil, nil, nil, err
	}

	kept := slices.DeleteFunc(positions, func(i int) bool {
		_, skipped := slices.BinarySearch(sel.Skipped, i)
		return skipped
	})
	return sel.Matched, kept, sel.Skipped, nil
}

func runBatch(cmd *cobra.Command, args []string) error {
	events, err := loadEvents(eventFile, forceClient.Decoder())
	if err != nil {
		return err
	}

	selected, positions, skipped, err := selectEvents(filters, events, eventFilter)
	if err != nil {
		return err
	}

	logger.Info().
		Int("events", len(events)).
		Int("selected", len(selected)).
		Str("filter", eventFilter).
		Msg("Loaded events")

	report := batchReport{
		Requested: len(events),
		Selected:  len(selected),
		Skipped:   skipped,
	}

	if eventDryRun {
		for i, e := range selected {
			if err := e.Validate(); err != nil {
				report.Failed = append(report.Failed, batchReportFailure{Index: positions[i], ReferralCode: e.ReferralCode, Error: err.Error()})
				continue
			}
			report.Succeeded = append(report.Succeeded, batchReportSuccess{Index: positions[i], ReferralCode: e.ReferralCode})
		}
		return writeResult(cmd.OutOrStdout(), outputFormat, report)
	}

	mgr, err := newManager()
	if err != nil {
		return err
	}

	concurrency := cfg.Batch.Concurrency
	if eventConcurrency > 0 {
		concurrency = eventConcurrency
	}

	result := mgr.SubmitEvents(cmd.Context(), selected, concurrency)
	for _, item := range result.Succeeded {
		report.Succeeded = append(report.Succeeded, batchReportSuccess{
			Index:        positions[item.Index],
			ReferralCode: item.Event.ReferralCode,
			Result:       item.Result,
		})
	}
	for _, failure := range result.Failed {
		report.Failed = append(report.Failed, batchReportFailure{
			Index:        positions[failure.Index],
			ReferralCode: failure.ReferralCode,
			Error:        failure.Err.Error(),
		})
	}

	if err := writeResult(cmd.OutOrStdout(), outputFormat, report); err != nil {
		return err
	}
	if len(report.Failed) > 0 {
		return fmt.Errorf("%d of %d events failed", len(report.Failed), len(selected))
	}
	return nil
}
