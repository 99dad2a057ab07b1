// Command align generates synthetic sequences and force aligns them with a
// recurrent transducer model, printing the block boundaries it finds.
package main

import (
	"context"
	"flag"
	"fmt"
	"net/http"
	"os"
	"os/signal"

	"github.com/dustin/go-humanize"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/spf13/cobra"
	"k8s.io/klog/v2"
)

func main() {
	var opts options
	var metricsAddr string

	cmd := &cobra.Command{
		Use:   "align",
		Short: "Force align synthetic sequences with a transducer model",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt)
			defer stop()

			reg := prometheus.NewRegistry()
			if metricsAddr != "" {
				mux := http.NewServeMux()
				mux.Handle("/metrics", promhttp.HandlerFor(reg, promhttp.HandlerOpts{}))
				go func() {
					klog.Infof("serving metrics on %s", metricsAddr)
					if err := http.ListenAndServe(metricsAddr, mux); err != nil {
						klog.Errorf("metrics server: %v", err)
					}
				}()
			}

			rep, err := runAlign(ctx, opts, reg, os.Stderr)
			if err != nil {
				return err
			}
			for i, ex := range rep.Examples {
				if ex.Error != "" {
					continue
				}
				fmt.Printf("%d\t%v\t%v\t%.4f\n", i, ex.Targets, ex.Markers, ex.LogProb)
			}
			klog.Infof("run %s: aligned %d of %d examples in %s, %s oracle calls, %s candidates pruned",
				rep.RunID, len(rep.Examples)-rep.Failed, len(rep.Examples), rep.Elapsed,
				humanize.Comma(int64(rep.Stats.OracleCalls)), humanize.Comma(int64(rep.Stats.Pruned)))
			if opts.out != "" {
				return writeReport(opts.out, rep)
			}
			return nil
		},
	}

	flags := cmd.Flags()
	flags.StringVar(&opts.config, "config", "", "YAML file with search, model and task sections")
	flags.StringVar(&opts.weights, "weights", "", "JSON model weights; random weights when empty")
	flags.StringVar(&opts.out, "out", "", "write a JSON report to this file")
	flags.IntVar(&opts.examples, "examples", 10, "number of examples to align")
	flags.Int64Var(&opts.seed, "seed", 1, "random seed for the task and random weights")
	flags.IntVar(&opts.workers, "workers", 0, "concurrent oracle calls, overriding the config")
	flags.StringVar(&metricsAddr, "metrics-addr", "", "serve prometheus metrics on this address")

	klogFlags := flag.NewFlagSet("klog", flag.ExitOnError)
	klog.InitFlags(klogFlags)
	cmd.PersistentFlags().AddGoFlagSet(klogFlags)

	if err := cmd.ExecuteContext(context.Background()); err != nil {
		klog.Exitf("align: %+v", err)
	}
}
