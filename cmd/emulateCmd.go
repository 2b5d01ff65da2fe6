package cmd

import (
	"log"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/embeddingBits/dronenet/pkg"
	"github.com/embeddingBits/dronenet/pkg/scenario"
)

var emulateCmd = &cobra.Command{
	Use:   "emulate",
	Short: "Emulate Topology",
	Long:  `Materialize the scenario as containers with shaped links and hold it until interrupted.`,
	Run: func(cmd *cobra.Command, args []string) {
		cfg, sc, params, err := loadSetup(cmd)
		if err != nil {
			log.Fatal(err.Error())
		}
		builder, err := scenario.New(cfg)
		if err != nil {
			log.Fatal(err.Error())
		}
		topo, err := builder.Build(params)
		if err != nil {
			log.Fatal(err.Error())
		}
		if err := builder.Merge(topo, sc); err != nil {
			log.Fatal(err.Error())
		}

		runner, err := pkg.NewRunner(cfg)
		if err != nil {
			log.Fatal(err.Error())
		}
		defer runner.Destroy()

		if err := runner.ApplyTopology(topo); err != nil {
			log.Fatal(err.Error())
		}
		runner.ShowNodes()
		runner.ShowLinks()

		// wait, before shutting down, clear up the resources
		stop := make(chan os.Signal, 1)
		signal.Notify(stop, syscall.SIGINT, syscall.SIGTERM)
		log.Println("topology is up, waiting for interrupt")
		<-stop
	},
}

func init() {
	rootCmd.AddCommand(emulateCmd)
	addScenarioFlags(emulateCmd)
}
