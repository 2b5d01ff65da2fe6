package cmd

import (
	"context"
	"fmt"
	"log"
	"time"

	"github.com/spf13/cobra"

	"github.com/embeddingBits/dronenet/pkg/coverage"
	"github.com/embeddingBits/dronenet/pkg/engine"
	"github.com/embeddingBits/dronenet/pkg/scenario"
	"github.com/embeddingBits/dronenet/pkg/status"
	"github.com/embeddingBits/dronenet/pkg/writer"
)

const metricsBufferSize = 4096

var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Run Scenario",
	Long:  `Build the scenario topology and run it on the discrete-event engine.`,
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

		var metrics *writer.Writer
		if path, _ := cmd.Flags().GetString("metrics"); path != "" {
			metrics, err = writer.New(metricsBufferSize, path)
			if err != nil {
				log.Fatal(err.Error())
			}
			go metrics.Start()
		}

		eng, err := engine.New(cfg, topo, params, metrics)
		if err != nil {
			log.Fatal(err.Error())
		}

		if addr, _ := cmd.Flags().GetString("statusAddr"); addr != "" {
			srv := status.NewServer(topo, eng.TakeSnapshot)
			srv.Start(addr)
			log.Printf("status server on %s (run %s)", addr, srv.RunID())
			defer func() {
				ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
				defer cancel()
				srv.Shutdown(ctx)
			}()
		}

		log.Printf("running scenario: %d eNB, %d UE per eNB, %.1fs", params.NumEnb, params.NumUe, params.SimTime)
		if err := eng.Run(); err != nil {
			log.Fatal(err.Error())
		}
		if metrics != nil {
			if err := metrics.Close(); err != nil {
				log.Fatal(err.Error())
			}
		}
		fmt.Print(eng.Summary())

		model := coverage.NewModel(cfg, topo)
		for name, st := range eng.Stats() {
			model.SetUserThroughput(name, st.Throughput()/1e6)
		}
		dt := cfg.Float("coverage.stepSeconds")
		for t := 0.0; t < params.SimTime; t += dt {
			model.Step(dt)
		}
		fmt.Print(model.Report(params.SimTime))
	},
}

func init() {
	rootCmd.AddCommand(runCmd)
	addScenarioFlags(runCmd)
	runCmd.Flags().String("metrics", "", "Path for per-packet CSV metrics")
	runCmd.Flags().String("statusAddr", "", "Listen address for the HTTP status server")
}
