package cmd

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/kilianp07/taxidispatch/app"
)

var (
	simTicks int
	simTaxis int
	simSeed  int64
	simJSON  bool
)

var simulateCmd = &cobra.Command{
	Use:   "simulate",
	Short: "Run the dispatcher against a simulated city",
	RunE:  runSimulate,
}

func init() {
	simulateCmd.Flags().IntVarP(&simTicks, "ticks", "n", 0, "number of ticks (defaults to simulation.ticks)")
	simulateCmd.Flags().IntVar(&simTaxis, "taxis", 0, "fleet size (defaults to simulation.taxis)")
	simulateCmd.Flags().Int64Var(&simSeed, "seed", 0, "random seed (defaults to simulation.seed)")
	simulateCmd.Flags().BoolVar(&simJSON, "json", false, "print the result as JSON")
	rootCmd.AddCommand(simulateCmd)
}

func runSimulate(cmd *cobra.Command, args []string) error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}
	if simTaxis > 0 {
		cfg.Simulation.Taxis = simTaxis
	}
	if cmd.Flags().Changed("seed") {
		cfg.Simulation.Seed = simSeed
	}
	ticks := cfg.Simulation.Ticks
	if simTicks > 0 {
		ticks = simTicks
	}
	if err := cfg.Simulation.Validate(); err != nil {
		return fmt.Errorf("simulation: %w", err)
	}

	sim, err := app.NewSimulation(ctx, cfg)
	if err != nil {
		return err
	}
	defer func() {
		if err := sim.Close(); err != nil {
			fmt.Fprintf(cmd.ErrOrStderr(), "error while closing simulation: %v\n", err)
		}
	}()
	res := sim.Run(ctx, ticks)

	out := cmd.OutOrStdout()
	if simJSON {
		enc := json.NewEncoder(out)
		enc.SetIndent("", "  ")
		return enc.Encode(res)
	}
	return printResult(out, res)
}

func printResult(w io.Writer, res app.Result) error {
	s := res.Stats
	fmt.Fprintf(w, "ticks %d: %d fares called, %d allocated, %d completed, %d abandoned, %d pending\n",
		s.Ticks, s.Called, s.Allocated, s.Completed, s.Abandoned, len(res.Fares))
	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, "TAXI\tNUMBER\tAWARDS\tREVENUE")
	for _, a := range res.Report.Agents {
		fmt.Fprintf(tw, "%s\t%d\t%d\t%.2f\n", a.Agent, a.Number, res.Awards[a.Agent], a.Revenue)
	}
	fmt.Fprintf(tw, "dispatcher\t\t\t%.2f\n", res.Report.Dispatcher)
	fmt.Fprintf(tw, "total\t\t\t%.2f\n", res.Report.Total)
	return tw.Flush()
}
