package cmd

import (
	"os"
	"time"

	"github.com/iti/rngstream"
	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/embeddingBits/dronenet/api"
	"github.com/embeddingBits/dronenet/pkg/config"
)

var rootCmd = &cobra.Command{
	Use:   "dronenet",
	Short: "Drone network scenario CLI",
	Long:  "A command-line tool for building, simulating and emulating mmWave drone-relief network scenarios.",
}

// Execute adds all child commands to the root command and sets flags appropriately.
// This is called by main.main(). It only needs to happen once to the rootCmd.
func Execute() error {
	return rootCmd.Execute()
}

// addScenarioFlags registers the scenario parameter surface shared by the
// subcommands.
func addScenarioFlags(cmd *cobra.Command) {
	d := api.DefaultParams()
	cmd.Flags().Uint("numEnb", d.NumEnb, "Number of eNBs")
	cmd.Flags().Uint("numUe", d.NumUe, "Number of UEs per eNB")
	cmd.Flags().Float64("simTime", d.SimTime, "Total duration of the simulation [s]")
	cmd.Flags().Float64("interPacketInterval", d.InterPacketInterval, "Inter-packet interval [us]")
	cmd.Flags().Bool("harq", d.HarqEnabled, "Enable Hybrid ARQ")
	cmd.Flags().Bool("rlcAm", d.RlcAmEnabled, "Enable RLC-AM")
	cmd.Flags().Float64("minDistance", d.MinDistance, "Minimum UE distance from its eNB [m]")
	cmd.Flags().Float64("maxDistance", d.MaxDistance, "Maximum UE distance from its eNB [m]")
	cmd.Flags().Uint64("seed", 0, "RNG seed (0 derives one from the clock)")
	cmd.Flags().StringP("config", "f", "", "Path to a scenario YAML file")
}

// loadSetup resolves the defaults store and run parameters for one
// invocation. Precedence: command line over scenario file over built-ins.
func loadSetup(cmd *cobra.Command) (*config.Store, *api.Scenario, api.Params, error) {
	cfg := config.New()
	sc := &api.Scenario{Params: api.DefaultParams()}

	if path, _ := cmd.Flags().GetString("config"); path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, nil, api.Params{}, err
		}
		if err := yaml.Unmarshal(data, sc); err != nil {
			return nil, nil, api.Params{}, err
		}
		if err := cfg.Apply(sc.Defaults); err != nil {
			return nil, nil, api.Params{}, err
		}
	}

	params := sc.Params
	flags := cmd.Flags()
	if flags.Changed("numEnb") {
		params.NumEnb, _ = flags.GetUint("numEnb")
	}
	if flags.Changed("numUe") {
		params.NumUe, _ = flags.GetUint("numUe")
	}
	if flags.Changed("simTime") {
		params.SimTime, _ = flags.GetFloat64("simTime")
	}
	if flags.Changed("interPacketInterval") {
		params.InterPacketInterval, _ = flags.GetFloat64("interPacketInterval")
	}
	if flags.Changed("harq") {
		params.HarqEnabled, _ = flags.GetBool("harq")
	}
	if flags.Changed("rlcAm") {
		params.RlcAmEnabled, _ = flags.GetBool("rlcAm")
	}
	if flags.Changed("minDistance") {
		params.MinDistance, _ = flags.GetFloat64("minDistance")
	}
	if flags.Changed("maxDistance") {
		params.MaxDistance, _ = flags.GetFloat64("maxDistance")
	}
	if flags.Changed("seed") {
		params.Seed, _ = flags.GetUint64("seed")
	}

	seed := params.Seed
	if seed == 0 {
		seed = uint64(time.Now().UnixNano())
	}
	rngstream.SetRngStreamMasterSeed(seed)

	return cfg, sc, params, nil
}
