package cmd

import (
	"encoding/json"
	"fmt"
	"io"
	"strings"

	"github.com/smazurov/panelnode/internal/logging"
	"github.com/smazurov/panelnode/internal/periph"
	"github.com/spf13/cobra"
)

// ProbeResult is what the probe command reports.
type ProbeResult struct {
	Board   string   `json:"board"`
	Backend string   `json:"backend"`
	Outputs []string `json:"outputs"`
	PWM     []string `json:"pwm"`
	Inputs  []string `json:"inputs"`
	Missing []string `json:"missing,omitempty"`
}

// CreateProbeCmd creates the probe command.
func CreateProbeCmd() *cobra.Command {
	var cfg periph.Config
	var asJSON bool

	cmd := &cobra.Command{
		Use:   "probe",
		Short: "Report board detection and peripheral wiring",
		Long: `Detects the board from the device tree, resolves the peripheral backend the node ` +
			`would use and lists its channels. With the sysfs backend, attribute files that do not ` +
			`exist are reported so wiring mistakes show up before the node starts.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			logging.Initialize(logging.Config{Level: "warn", Format: "text"})
			cfg.Logger = logging.GetLogger("periph")

			result, err := Probe(cfg)
			if err != nil {
				return err
			}
			return writeProbe(cmd.OutOrStdout(), result, asJSON)
		},
	}

	cmd.Flags().StringVar(&cfg.Backend, "backend", periph.BackendAuto, "Peripheral backend (auto, sysfs, sim, noop)")
	cmd.Flags().StringVar(&cfg.Root, "root", "/sys", "Sysfs root")
	cmd.Flags().StringVar(&cfg.Outputs, "outputs", periph.DefaultOutputs, "Output channels as name=target,...")
	cmd.Flags().StringVar(&cfg.PWM, "pwm", periph.DefaultPWM, "PWM channels as name=chip:channel,...")
	cmd.Flags().StringVar(&cfg.Inputs, "inputs", periph.DefaultInputs, "Input channels as name=gpio,...")
	cmd.Flags().BoolVar(&cfg.ActiveLow, "active-low", true, "Inputs are pulled up and read low while pressed")
	cmd.Flags().BoolVar(&asJSON, "json", false, "Print the result as JSON")

	return cmd
}

// Probe resolves the backend for cfg and describes it.
func Probe(cfg periph.Config) (ProbeResult, error) {
	ctrl, err := periph.New(cfg)
	if err != nil {
		return ProbeResult{}, fmt.Errorf("probe peripherals: %w", err)
	}

	ch := ctrl.Available()
	result := ProbeResult{
		Board:   periph.DetectBoard(),
		Backend: ctrl.Backend(),
		Outputs: ch.Outputs,
		PWM:     ch.PWM,
		Inputs:  ch.Inputs,
	}
	if m, ok := ctrl.(interface{ Missing() []string }); ok {
		result.Missing = m.Missing()
	}
	return result, nil
}

func writeProbe(w io.Writer, r ProbeResult, asJSON bool) error {
	if asJSON {
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		return enc.Encode(r)
	}

	fmt.Fprintf(w, "Board:    %s\n", r.Board)
	fmt.Fprintf(w, "Backend:  %s\n", r.Backend)
	fmt.Fprintf(w, "Outputs:  %s\n", strings.Join(r.Outputs, ", "))
	fmt.Fprintf(w, "PWM:      %s\n", strings.Join(r.PWM, ", "))
	fmt.Fprintf(w, "Inputs:   %s\n", strings.Join(r.Inputs, ", "))
	if len(r.Missing) > 0 {
		fmt.Fprintf(w, "Missing:\n")
		for _, m := range r.Missing {
			fmt.Fprintf(w, "  %s\n", m)
		}
	}
	return nil
}
