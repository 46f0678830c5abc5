package main

import (
	"fmt"
	"io"
	"os"

	"github.com/gookit/color"
	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"
	"github.com/timewinder-dev/circus"
	"github.com/timewinder-dev/circus/model"
)

var (
	debugFlag    bool
	keepGoing    bool
	detailsFlag  bool
	parallelFlag bool
	checkFlag    bool
	formatFlag   string
	progressFlag int
)

var runCmd = &cobra.Command{
	Use:   "run SCENARIO",
	Short: "Run every pass of a scenario and report activity levels",
	Args:  cobra.ExactArgs(1),
	Run:   runCommand,
}

func init() {
	runCmd.Flags().BoolVar(&debugFlag, "debug", false, "Print every round to stderr")
	runCmd.Flags().BoolVar(&keepGoing, "keep-going", false, "Keep running a pass after its first property violation")
	runCmd.Flags().BoolVar(&detailsFlag, "details", false, "Show worker queues at every checkpoint")
	runCmd.Flags().BoolVar(&parallelFlag, "parallel", false, "Run independent passes concurrently")
	runCmd.Flags().BoolVar(&checkFlag, "check", false, "Fail if results differ from the scenario's [expect] tables")
	runCmd.Flags().StringVar(&formatFlag, "format", "text", "Output format: text, json or yaml")
	runCmd.Flags().IntVar(&progressFlag, "progress", 0, "Report progress every N rounds (0 disables)")
}

func runCommand(cmd *cobra.Command, args []string) {
	filename := args[0]
	spec, err := model.LoadSpecFromFile(filename)
	if err != nil {
		log.Fatal().Err(err).Msg("Couldn't load scenario")
	}
	exec, err := spec.BuildExecutor(nil)
	if err != nil {
		log.Fatal().Err(err).Msg("Couldn't build executor for scenario")
	}
	if debugFlag {
		exec.DebugWriter = os.Stderr
		fmt.Fprintf(os.Stderr, "Initial state:\n%s\n", model.TakeSnapshot(exec.Initial).PrettyPrint())
	} else {
		exec.DebugWriter = io.Discard
	}
	if progressFlag > 0 {
		exec.Reporter = &model.ColorReporter{Writer: os.Stderr}
		exec.ProgressEvery = progressFlag
	}
	exec.KeepGoing = keepGoing
	exec.ShowDetails = detailsFlag
	exec.Parallel = parallelFlag

	log.Debug().Str("run", exec.RunID.String()).Str("scenario", filename).Msg("running scenario")

	result, err := exec.RunModel()
	if err != nil {
		log.Fatal().Err(err).Msg("Error during simulation")
	}

	switch formatFlag {
	case "json", "yaml":
		if err := circus.Summarize(result).Encode(os.Stdout, formatFlag); err != nil {
			log.Fatal().Err(err).Msg("Couldn't encode results")
		}
	default:
		printText(result)
	}

	if checkFlag {
		if err := exec.CheckExpectations(result); err != nil {
			log.Fatal().Err(err).Msg("Results differ from expectations")
		}
		fmt.Fprintln(os.Stderr, color.Green.Sprint("✓ All expectations met"))
	}
	if !result.Success {
		os.Exit(2)
	}
}

func printText(result *model.ModelResult) {
	for _, p := range result.Passes {
		if len(p.Violations) > 0 {
			if keepGoing {
				fmt.Fprint(os.Stderr, model.FormatAllViolations(p.Violations))
			} else {
				fmt.Fprint(os.Stderr, model.FormatPropertyViolation(p.Violations[0]))
			}
		}
		if detailsFlag {
			fmt.Fprint(os.Stderr, model.FormatTrace(p, true))
		}
		fmt.Fprint(os.Stderr, model.FormatStatistics(p.Pass.Name, p.Policy, p.Statistics))
	}
	fmt.Fprintln(os.Stderr)
	for _, p := range result.Passes {
		fmt.Printf("%s: %d\n", p.Pass.Name, p.Statistics.ActivityLevel)
	}
}
