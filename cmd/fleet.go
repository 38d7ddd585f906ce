package cmd

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/kilianp07/taxidispatch/infra/logger"
	"github.com/kilianp07/taxidispatch/infra/mqtt"
)

var listenFor time.Duration

var fleetCmd = &cobra.Command{
	Use:   "fleet",
	Short: "Fleet related commands",
}

var fleetLsCmd = &cobra.Command{
	Use:   "ls",
	Short: "List taxis reporting state on the broker",
	RunE:  runFleetLs,
}

func init() {
	fleetLsCmd.Flags().DurationVar(&listenFor, "listen", 2*time.Second, "how long to collect state reports")
	fleetCmd.AddCommand(fleetLsCmd)
	rootCmd.AddCommand(fleetCmd)
}

func runFleetLs(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}
	mqttCfg := cfg.MQTT
	mqttCfg.ClientID = fmt.Sprintf("%s-ls-%d", mqttCfg.ClientID, time.Now().UnixNano())
	router := mqtt.NewRouter("", logger.New("fleet-ls"))
	client, err := mqtt.NewPahoClient(mqttCfg, router)
	if err != nil {
		return fmt.Errorf("mqtt client: %w", err)
	}
	defer client.Disconnect()

	select {
	case <-time.After(listenFor):
	case <-cmd.Context().Done():
	}
	for _, a := range router.Snapshots() {
		fmt.Fprintf(cmd.OutOrStdout(), "%s\t#%d\tat %s\trevenue %.2f\n", a.AgentID, a.Num, a.Location, a.Earned)
	}
	return nil
}
