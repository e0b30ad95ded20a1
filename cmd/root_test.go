package cmd

import (
	"bytes"
	"io"
	"os"
	"path/filepath"
	"testing"

	"github.com/spf13/cobra"
	"github.com/stretchr/testify/assert"
)

func TestRootCmd_RegistersSubcommands(t *testing.T) {
	// GIVEN the root command after init() has run
	names := make(map[string]bool)
	for _, c := range rootCmd.Commands() {
		names[c.Use] = true
	}

	// THEN run, validate, and replica must all be registered
	assert.True(t, names["run"], "run subcommand must be registered")
	assert.True(t, names["validate"], "validate subcommand must be registered")
	assert.True(t, names["replica"], "replica subcommand must be registered")
}

func TestRunCmd_FlagDefaults(t *testing.T) {
	flag := runCmd.Flags().Lookup("horizon")
	assert.NotNil(t, flag, "horizon flag must be registered")
	assert.Equal(t, "1000000", flag.DefValue, "default horizon must remain 1_000_000µs")

	assert.Equal(t, "info", runCmd.Flags().Lookup("log").DefValue)
	assert.Equal(t, "99", runCmd.Flags().Lookup("percentile").DefValue)
	assert.Equal(t, "0", runCmd.Flags().Lookup("window").DefValue, "window default must be 0 (cumulative)")
}

func TestValidateCmd_TopologyFlagIsRequired(t *testing.T) {
	flag := validateCmd.Flags().Lookup("topology")
	assert.NotNil(t, flag, "topology flag must be registered")
	assert.Equal(t, "", flag.DefValue)
	assert.Equal(t, []string{"true"}, flag.Annotations[cobra.BashCompOneRequiredFlag], "topology flag must be marked required")
}

func TestReplicaCmd_FlagDefaults(t *testing.T) {
	assert.Equal(t, "{}", replicaCmd.Flags().Lookup("config").DefValue)
	assert.NotNil(t, replicaCmd.Flags().Lookup("kind"))
}

func captureStdout(t *testing.T, fn func()) string {
	t.Helper()
	old := os.Stdout
	r, w, err := os.Pipe()
	if err != nil {
		t.Fatalf("creating pipe: %v", err)
	}
	os.Stdout = w

	fn()

	_ = w.Close()
	os.Stdout = old
	var buf bytes.Buffer
	_, _ = io.Copy(&buf, r)
	return buf.String()
}

const smokeTopology = `
seed: 1
nodes:
  - id: 1
    kind: Client
    config: {arrival_rate: 100, timeout: 1000}
  - id: 2
    kind: Server
    config: {service_time: 1, concurrency: 10, backlog_limit: 10}
edges:
  - from: 1
    to: 2
    forward: {latency_us: 0}
`

func writeSmokeTopology(t *testing.T) string {
	t.Helper()
	dir := t.TempDir()
	path := filepath.Join(dir, "topology.yaml")
	if err := os.WriteFile(path, []byte(smokeTopology), 0o644); err != nil {
		t.Fatalf("writing fixture: %v", err)
	}
	return path
}

func TestValidateCmd_RunPrintsOkForAValidTopology(t *testing.T) {
	validatePath = writeSmokeTopology(t)

	output := captureStdout(t, func() {
		validateCmd.Run(validateCmd, nil)
	})

	assert.Contains(t, output, "ok: 2 nodes, 1 edges")
}

func TestRunCmd_RunPrintsCounters(t *testing.T) {
	topologyPath = writeSmokeTopology(t)
	horizonUs = 10_000
	logLevel = "info"
	percentile = 99
	windowUs = 0

	output := captureStdout(t, func() {
		runCmd.Run(runCmd, nil)
	})

	assert.Contains(t, output, "success_count=")
	assert.Contains(t, output, "failure_count=")
	assert.Contains(t, output, "p99_us=")
}

func TestReplicaCmd_RunPrintsEncodedConfig(t *testing.T) {
	replicaKind = "Server"
	replicaConfigJSON = `{"service_time": 10, "concurrency": 4, "backlog_limit": 8}`

	output := captureStdout(t, func() {
		replicaCmd.Run(replicaCmd, nil)
	})

	assert.Contains(t, output, `"service_time":10`)
	assert.Contains(t, output, `"concurrency":4`)
}
