package cmd

import (
	"fmt"

	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"github.com/topology-sim/topology-sim/sim/topology"
)

var (
	topologyPath string
	horizonUs    int64
	logLevel     string
	percentile   float64
	windowUs     int64
)

var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Load a topology file and advance it to a horizon",
	Run: func(cmd *cobra.Command, args []string) {
		level, err := logrus.ParseLevel(logLevel)
		if err != nil {
			logrus.Fatalf("invalid log level: %s", logLevel)
		}
		logrus.SetLevel(level)

		doc, err := topology.Load(topologyPath)
		if err != nil {
			logrus.Fatalf("loading topology: %v", err)
		}

		s, err := doc.Build()
		if err != nil {
			logrus.Fatalf("building topology: %v", err)
		}

		logrus.Infof("running %s: seed=%d horizon=%dµs nodes=%d edges=%d",
			topologyPath, doc.Seed, horizonUs, len(doc.Nodes), len(doc.Edges))

		s.AdvanceUntil(horizonUs)

		p := s.GetPercentile(percentile, windowUs)
		fmt.Printf("success_count=%d failure_count=%d p%g_us=%.1f\n",
			s.SuccessCount, s.FailureCount, percentile, p)

		logrus.Info("simulation complete")
	},
}

func init() {
	runCmd.Flags().StringVar(&topologyPath, "topology", "", "path to a topology YAML file")
	runCmd.Flags().Int64Var(&horizonUs, "horizon", 1_000_000, "simulation horizon in microseconds")
	runCmd.Flags().StringVar(&logLevel, "log", "info", "log level (debug, info, warn, error)")
	runCmd.Flags().Float64Var(&percentile, "percentile", 99, "percentile to report (0..100)")
	runCmd.Flags().Int64Var(&windowUs, "window", 0, "percentile window in microseconds (0 = cumulative)")
	runCmd.MarkFlagRequired("topology")

	rootCmd.AddCommand(runCmd)
}
