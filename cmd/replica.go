package cmd

import (
	"encoding/json"
	"fmt"

	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"github.com/topology-sim/topology-sim/sim"
)

var replicaKind string
var replicaConfigJSON string

var replicaCmd = &cobra.Command{
	Use:   "replica",
	Short: "Round-trip a component config through JSON encode/decode",
	Run: func(cmd *cobra.Command, args []string) {
		raw := json.RawMessage(replicaConfigJSON)

		var c sim.Component
		switch replicaKind {
		case "Client":
			var cfg sim.ClientConfig
			if err := json.Unmarshal(raw, &cfg); err != nil {
				logrus.Fatalf("decoding config: %v", err)
			}
			c = sim.NewClient(1, cfg)
		case "Server":
			var cfg sim.ServerConfig
			if err := json.Unmarshal(raw, &cfg); err != nil {
				logrus.Fatalf("decoding config: %v", err)
			}
			c = sim.NewServer(1, cfg)
		case "LoadBalancer":
			var cfg sim.LoadBalancerConfig
			if err := json.Unmarshal(raw, &cfg); err != nil {
				logrus.Fatalf("decoding config: %v", err)
			}
			c = sim.NewLoadBalancer(1, cfg)
		default:
			logrus.Fatalf("unknown kind %q", replicaKind)
		}

		fmt.Println(string(c.EncodeConfig()))
	},
}

func init() {
	replicaCmd.Flags().StringVar(&replicaKind, "kind", "", "component kind (Client, Server, LoadBalancer)")
	replicaCmd.Flags().StringVar(&replicaConfigJSON, "config", "{}", "component config as a JSON object")
	replicaCmd.MarkFlagRequired("kind")

	rootCmd.AddCommand(replicaCmd)
}
