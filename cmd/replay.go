package cmd

import (
	"encoding/json"
	"fmt"
	"os"
	"time"

	"github.com/spf13/cobra"

	"github.com/voltgrid/sessiond/core/billing"
	"github.com/voltgrid/sessiond/core/model"
	"github.com/voltgrid/sessiond/core/tariff"
)

var replayCmd = &cobra.Command{
	Use:   "replay <session.json>",
	Short: "Re-price a recorded session offline and print the CDR",
	Args:  cobra.ExactArgs(1),
	RunE:  runReplay,
}

func init() {
	rootCmd.AddCommand(replayCmd)
}

// replayFile is a self-contained session recording: the tariff in force
// plus the raw meter trace.
type replayFile struct {
	Tariff     tariff.Tariff    `json:"tariff"`
	MeterStart int64            `json:"meter_start"`
	MeterStop  int64            `json:"meter_stop"`
	TimeStart  time.Time        `json:"time_start"`
	TimeStop   time.Time        `json:"time_stop"`
	TimeEnd    time.Time        `json:"time_end"`
	Logs       []model.MeterLog `json:"meter_logs"`
}

func runReplay(cmd *cobra.Command, args []string) error {
	data, err := os.ReadFile(args[0])
	if err != nil {
		return fmt.Errorf("read recording: %w", err)
	}
	var rec replayFile
	if err := json.Unmarshal(data, &rec); err != nil {
		return fmt.Errorf("decode recording: %w", err)
	}
	if err := rec.Tariff.Validate(); err != nil {
		return fmt.Errorf("tariff: %w", err)
	}

	engine := billing.NewEngine(&rec.Tariff)
	prevValue, prevTime := rec.MeterStart, rec.TimeStart
	apply := func(value int64, ts time.Time, powerW, currentA int64) error {
		if value < prevValue || ts.Before(prevTime) {
			return fmt.Errorf("non monotonic reading %d at %s", value, ts)
		}
		iv := tariff.Interval{
			Timestamp:  ts,
			Energy:     tariff.EnergyFromWh(value - prevValue),
			Duration:   int64(ts.Sub(prevTime).Seconds()),
			Elapsed:    int64(ts.Sub(rec.TimeStart).Seconds()),
			Cumulative: tariff.EnergyFromWh(value - rec.MeterStart),
			PowerW:     powerW,
			CurrentA:   currentA,
		}
		engine.AddEnergy(value - prevValue)
		if idx := rec.Tariff.SelectElement(iv); idx >= 0 {
			engine.Accumulate(idx, iv)
		}
		prevValue, prevTime = value, ts
		return nil
	}
	for _, l := range rec.Logs {
		if err := apply(l.MeterValue, l.Timestamp, l.PowerW, l.CurrentA); err != nil {
			return err
		}
	}
	if err := apply(rec.MeterStop, rec.TimeStop, 0, 0); err != nil {
		return err
	}

	parking := int64(rec.TimeEnd.Sub(rec.TimeStop).Seconds())
	if parking < 0 {
		return fmt.Errorf("time_end precedes time_stop")
	}
	cdr := engine.Finalize(0, rec.TimeStart, rec.TimeEnd, parking)
	out, err := json.MarshalIndent(cdr, "", "  ")
	if err != nil {
		return err
	}
	fmt.Fprintln(cmd.OutOrStdout(), string(out))
	return nil
}
