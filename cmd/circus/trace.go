package main

import (
	"fmt"

	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"
	"github.com/timewinder-dev/circus/model"
)

var (
	tracePass   string
	traceRounds int
)

var traceCmd = &cobra.Command{
	Use:   "trace SCENARIO",
	Short: "Print every worker's queue after each round of one pass",
	Args:  cobra.ExactArgs(1),
	Run:   traceCommand,
}

func init() {
	traceCmd.Flags().StringVar(&tracePass, "pass", "calm", "Name of the pass to trace")
	traceCmd.Flags().IntVar(&traceRounds, "rounds", 0, "Override the number of rounds (0 keeps the pass's own)")
}

func traceCommand(cmd *cobra.Command, args []string) {
	spec, err := model.LoadSpecFromFile(args[0])
	if err != nil {
		log.Fatal().Err(err).Msg("Couldn't load scenario")
	}
	exec, err := spec.BuildExecutor(nil)
	if err != nil {
		log.Fatal().Err(err).Msg("Couldn't build executor for scenario")
	}
	var pass *model.Pass
	for i := range exec.Passes {
		if exec.Passes[i].Name == tracePass {
			pass = &exec.Passes[i]
		}
	}
	if pass == nil {
		log.Fatal().Str("pass", tracePass).Msg("No such pass in scenario")
	}
	rounds := pass.Rounds
	if traceRounds > 0 {
		rounds = traceRounds
	}

	c := exec.Initial.Clone()
	policy, err := model.PolicyByName(pass.Policy, c)
	if err != nil {
		log.Fatal().Err(err).Msg("Couldn't resolve policy")
	}
	trace(c, policy, rounds)
}

func trace(c *model.Circus, policy model.Policy, rounds int) {
	for {
		fmt.Println("*******")
		fmt.Printf("After round %d:\n", c.Round())
		fmt.Print(model.TakeSnapshot(c).PrettyPrint())
		if c.Round() >= rounds {
			fmt.Println("Finished")
			break
		}
		if err := c.RunRound(policy); err != nil {
			log.Fatal().Err(err).Int("round", c.Round()+1).Msg("Round failed")
		}
	}
}
