package cmd

import (
	"fmt"

	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"github.com/topology-sim/topology-sim/sim/topology"
)

var validatePath string

var validateCmd = &cobra.Command{
	Use:   "validate",
	Short: "Check a topology file for unknown fields, kinds, and edge references",
	Run: func(cmd *cobra.Command, args []string) {
		doc, err := topology.Load(validatePath)
		if err != nil {
			logrus.Fatalf("loading topology: %v", err)
		}
		if err := doc.Validate(); err != nil {
			logrus.Fatalf("invalid topology: %v", err)
		}
		fmt.Printf("ok: %d nodes, %d edges\n", len(doc.Nodes), len(doc.Edges))
	},
}

func init() {
	validateCmd.Flags().StringVar(&validatePath, "topology", "", "path to a topology YAML file")
	validateCmd.MarkFlagRequired("topology")

	rootCmd.AddCommand(validateCmd)
}
