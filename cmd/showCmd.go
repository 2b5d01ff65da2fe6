package cmd

import (
	"fmt"
	"log"

	"github.com/spf13/cobra"

	"github.com/embeddingBits/dronenet/pkg/scenario"
)

var showCmd = &cobra.Command{
	Use:   "show",
	Short: "Show Resources",
	Long:  `Show the nodes or links the scenario builder would produce.`,
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

		class := cmd.Flag("class").Value.String()
		if class == "nodes" {
			for _, name := range topo.NodeNames() {
				n := topo.Node(name)
				fmt.Printf("Node: %s, Kind: %s, IPv4: %s, Pos: (%.1f, %.1f, %.1f)\n",
					n.Name, n.Kind, n.Interface.Ipv4, n.Position.X, n.Position.Y, n.Position.Z)
			}
		} else if class == "links" {
			for _, l := range topo.Links {
				fmt.Printf("Link: Src: %s, Dst: %s, Kind: %s, Bw: %dMbps, Delay: %.0fus, Loss: %.2f\n",
					l.SrcNode, l.DstNode, l.Kind, l.Properties.RateMbps, l.Properties.DelayUs, l.Properties.Loss)
			}
			for _, rt := range topo.Routes {
				fmt.Printf("Route: Node: %s, Net: %s/%s, Via: %s\n", rt.Node, rt.Network, rt.Mask, rt.Via)
			}
		} else {
			fmt.Println("Invalid class")
			return
		}
	},
}

func init() {
	rootCmd.AddCommand(showCmd)
	addScenarioFlags(showCmd)
	showCmd.Flags().String("class", "nodes", "Class of the element to show")
}
