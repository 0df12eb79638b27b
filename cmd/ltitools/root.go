package main

import (
	"errors"
	"fmt"
	"log/slog"
	"os"

	"github.com/spf13/cobra"
	"gonum.org/v1/gonum/mat"
	"gonum.org/v1/plot"
	"gonum.org/v1/plot/plotter"
	"gonum.org/v1/plot/vg"

	"ltitools/passivity"
	"ltitools/reduction"
	"ltitools/sdp"
	"ltitools/ssm"
)

func newRootCmd() *cobra.Command {
	var modelPath string
	root := &cobra.Command{
		Use:           "ltitools",
		Short:         "Reduce and certify LTI state-space models",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	root.PersistentFlags().StringVarP(&modelPath, "model", "m", "model.yaml", "path to the YAML model file")
	root.AddCommand(newHSVCmd(&modelPath), newReduceCmd(&modelPath), newPassiveCmd(&modelPath))
	return root
}

func newHSVCmd(modelPath *string) *cobra.Command {
	var plotPath string
	cmd := &cobra.Command{
		Use:   "hsv",
		Short: "Print the Hankel singular values of the model",
		RunE: func(cmd *cobra.Command, args []string) error {
			sys, err := loadModel(*modelPath)
			if err != nil {
				return err
			}
			hsv, err := reduction.HSV(sys)
			if err != nil {
				return err
			}
			for i, sv := range hsv {
				fmt.Fprintf(cmd.OutOrStdout(), "%3d  %.6e\n", i+1, sv)
			}
			if plotPath != "" {
				return plotHSV(hsv, plotPath)
			}
			return nil
		},
	}
	cmd.Flags().StringVar(&plotPath, "plot", "", "write a bar chart of the singular values to this file")
	return cmd
}

func plotHSV(hsv []float64, path string) error {
	p := plot.New()
	p.Title.Text = "Hankel singular values"
	p.Y.Label.Text = "magnitude"
	bars, err := plotter.NewBarChart(plotter.Values(hsv), vg.Points(18))
	if err != nil {
		return err
	}
	p.Add(bars)
	return p.Save(6*vg.Inch, 4*vg.Inch, path)
}

func newReduceCmd(modelPath *string) *cobra.Command {
	var (
		orders     []int
		methodName string
	)
	cmd := &cobra.Command{
		Use:   "reduce",
		Short: "Balanced reduction of the model to one or more orders",
		RunE: func(cmd *cobra.Command, args []string) error {
			sys, err := loadModel(*modelPath)
			if err != nil {
				return err
			}
			method, err := reduction.ParseMethod(methodName)
			if err != nil {
				return err
			}
			reduced, err := reduction.BalRedMany(sys, orders, method, nil)
			if err != nil {
				return err
			}
			for i, r := range reduced {
				fmt.Fprintf(cmd.OutOrStdout(), "order %d:\nA =\n%v\nB =\n%v\nC =\n%v\nD =\n%v\n",
					orders[i],
					mat.Formatted(r.A), mat.Formatted(r.B), mat.Formatted(r.C), mat.Formatted(r.D))
			}
			return nil
		},
	}
	cmd.Flags().IntSliceVar(&orders, "orders", nil, "target orders (one reduced model per order)")
	cmd.Flags().StringVar(&methodName, "method", "truncate", "reduction method: truncate or matchdc")
	_ = cmd.MarkFlagRequired("orders")
	return cmd
}

func newPassiveCmd(modelPath *string) *cobra.Command {
	var (
		side    string
		verbose bool
	)
	cmd := &cobra.Command{
		Use:   "passive",
		Short: "Certify passivity of the model or compute a passivity index",
		RunE: func(cmd *cobra.Command, args []string) error {
			sys, err := loadModel(*modelPath)
			if err != nil {
				return err
			}
			opts := &passivity.Options{}
			if verbose {
				opts.SolverOptions = sdp.Options{
					Logger: slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelDebug})),
				}
			}
			if side == "" {
				passive, err := passivity.Ispassive(sys, opts)
				if err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "passive: %v\n", passive)
				return nil
			}
			index, err := passiveIndex(sys, side, opts)
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "%s passivity index: %.6g\n", side, index)
			return nil
		},
	}
	cmd.Flags().StringVar(&side, "index", "", `compute a passivity index: "input" or "output"`)
	cmd.Flags().BoolVarP(&verbose, "verbose", "v", false, "stream solver diagnostics to stderr")
	return cmd
}

func passiveIndex(sys *ssm.StateSpace, side string, opts *passivity.Options) (float64, error) {
	switch side {
	case "input":
		opts.Rho = passivity.Fixed(passivity.IndexBaseline)
	case "output":
		opts.Nu = passivity.Fixed(passivity.IndexBaseline)
	default:
		return 0, fmt.Errorf("%w, got %q", passivity.ErrInvalidIndexSide, side)
	}
	index, err := passivity.PassiveIndex(sys, opts)
	if err != nil && errors.Is(err, ssm.ErrNotSupported) {
		return 0, fmt.Errorf("passivity indices need a continuous-time model: %w", err)
	}
	return index, err
}
