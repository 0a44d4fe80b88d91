//go:build linux

package main

import (
	"context"
	"encoding/csv"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"strconv"
	"sync"
	"syscall"
	"text/tabwriter"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/spf13/cobra"

	"github.com/ecogov/ecodemand/pkg/config"
	"github.com/ecogov/ecodemand/pkg/governor"
	"github.com/ecogov/ecodemand/pkg/system/cpufreq"
	"github.com/ecogov/ecodemand/pkg/system/cputime"
)

var (
	pretty  bool
	verbose bool
)

type opts struct {
	// attachment
	root       string
	policies   []string
	configPath string

	// tuners (flag overrides, used when no config file names a profile)
	up     uint
	down   uint
	step   uint
	rate   time.Duration
	factor uint
	bias   int

	// outputs
	metricsAddr string
	csvPath     string
	duration    time.Duration
}

func main() {
	var o opts

	root := &cobra.Command{
		Use:   "ecodemand [policy]...",
		Short: "Frequency-invariant step governor daemon",
		Long: `ecodemand attaches a userspace frequency governor to cpufreq policy
domains. Load is measured in a frequency-invariant way (busy fraction scaled
by cur/max frequency) and actuation is conservative: immediate bounded
step-ups, debounced step-downs, and a hysteresis band in between.

Tuners come from flags or a YAML profile file (--config); per-policy profiles
override the default profile. The daemon switches each managed domain to the
kernel "userspace" governor on attach and restores the previous governor on
exit.

Examples:
  ecodemand                          # govern every policy domain
  ecodemand policy0 policy4          # govern a subset
  ecodemand --config /etc/ecodemand.yaml --metrics :9090
  ecodemand -r 50ms --down-factor 5 --powersave-bias 20`,
		RunE: func(cmd *cobra.Command, args []string) error {
			o.policies = args
			return run(cmd.Context(), o)
		},
	}

	root.Flags().BoolVar(&pretty, "pretty", true, "print per-tick decisions as a table")
	root.Flags().BoolVarP(&verbose, "verbose", "v", false, "debug logging")
	root.Flags().StringVar(&o.root, "root", cpufreq.DefaultRoot, "cpufreq sysfs root")
	root.Flags().StringVarP(&o.configPath, "config", "c", "", "YAML tuner profile file")

	def := governor.Defaults()
	root.Flags().UintVar(&o.up, "up-threshold", def.UpThreshold, "step up above this effective load [1..100]")
	root.Flags().UintVar(&o.down, "down-threshold", def.DownThreshold, "step down below this effective load [1..100]")
	root.Flags().UintVar(&o.step, "freq-step", def.FreqStep, "step size as percent of max frequency")
	root.Flags().DurationVarP(&o.rate, "sampling-rate", "r", def.SamplingRate, "tick interval (e.g. 10ms, 1s)")
	root.Flags().UintVar(&o.factor, "down-factor", def.SamplingDownFactor, "below-threshold ticks required before stepping down")
	root.Flags().IntVar(&o.bias, "powersave-bias", def.PowersaveBias, "bias subtracted from load [-100..100]")

	root.Flags().StringVar(&o.metricsAddr, "metrics", "", "serve Prometheus metrics on this address (e.g. :9090)")
	root.Flags().StringVar(&o.csvPath, "csv", "", "write per-tick rows to CSV file")
	root.Flags().DurationVarP(&o.duration, "duration", "d", 0, "stop after this long (0 = run until Ctrl-C)")

	if err := root.Execute(); err != nil {
		slog.Error(err.Error())
		os.Exit(1)
	}
}

func run(ctx context.Context, o opts) error {
	level := slog.LevelInfo
	if verbose {
		level = slog.LevelDebug
	}
	log := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level}))
	slog.SetDefault(log)

	if o.down >= o.up {
		return fmt.Errorf("down-threshold (%d) must be below up-threshold (%d)", o.down, o.up)
	}

	var cfg *config.File
	if o.configPath != "" {
		var err error
		cfg, err = config.Load(o.configPath)
		if err != nil {
			return err
		}
	}

	domains, err := openDomains(o)
	if err != nil {
		return err
	}

	src := cputime.NewSource()
	sink, closeSink, err := newTickSink(o.csvPath)
	if err != nil {
		return err
	}
	defer closeSink()

	type attached struct {
		domain      *cpufreq.Domain
		policy      *governor.Policy
		prevGov     string
		restoreable bool
	}

	var atts []attached
	for _, d := range domains {
		tuners := tunersFor(cfg, o, d.Name())

		p, err := governor.New(d.Name(), src, d, tuners, log)
		if err != nil {
			return fmt.Errorf("attach %s: %w", d.Name(), err)
		}
		p.OnTick = sink.row(d.Name())

		a := attached{domain: d, policy: p}
		if prev, err := d.Governor(); err == nil {
			a.prevGov = prev
		}
		if err := d.SetGovernor("userspace"); err != nil {
			log.Warn("cannot switch to userspace governor, actuation will be rejected",
				"policy", d.Name(), "err", err)
		} else {
			a.restoreable = a.prevGov != ""
		}
		atts = append(atts, a)
	}

	for _, a := range atts {
		if err := a.policy.Start(); err != nil {
			return err
		}
	}

	if o.metricsAddr != "" {
		mux := http.NewServeMux()
		mux.Handle("/metrics", promhttp.Handler())
		go func() {
			log.Info("metrics listening", "addr", o.metricsAddr)
			if err := http.ListenAndServe(o.metricsAddr, mux); err != nil {
				log.Error("metrics server", "err", err)
			}
		}()
	}

	// Ctrl-C handling
	ctx, stop := signal.NotifyContext(ctx, syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if o.duration > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, o.duration)
		defer cancel()
	}

	<-ctx.Done()
	log.Info("shutting down")

	for _, a := range atts {
		a.policy.Stop()
		if a.restoreable {
			if err := a.domain.SetGovernor(a.prevGov); err != nil {
				log.Warn("restore governor", "policy", a.domain.Name(), "err", err)
			}
		}
	}
	return nil
}

func openDomains(o opts) ([]*cpufreq.Domain, error) {
	if len(o.policies) == 0 {
		return cpufreq.Discover(o.root)
	}
	var domains []*cpufreq.Domain
	for _, name := range o.policies {
		d, err := cpufreq.Open(o.root, name)
		if err != nil {
			return nil, fmt.Errorf("open %s: %w", name, err)
		}
		domains = append(domains, d)
	}
	return domains, nil
}

// tunersFor resolves the tuner set for one policy: its config profile when a
// file was given, otherwise the flag values.
func tunersFor(cfg *config.File, o opts, policy string) *governor.Tuners {
	if cfg != nil {
		return cfg.ProfileFor(policy).Tuners()
	}
	return &governor.Tuners{
		UpThreshold:        o.up,
		DownThreshold:      o.down,
		FreqStep:           o.step,
		SamplingRate:       o.rate,
		SamplingDownFactor: o.factor,
		PowersaveBias:      o.bias,
	}
}

// tickSink fans per-tick rows from all policies onto stdout (table or
// CSV-like lines) and optionally a CSV file. Policies tick concurrently, so
// writes are serialized.
type tickSink struct {
	mu   sync.Mutex
	out  io.Writer
	tw   *tabwriter.Writer
	csvW *csv.Writer
}

func newTickSink(csvPath string) (*tickSink, func(), error) {
	s := &tickSink{out: os.Stdout}

	if pretty {
		s.tw = tabwriter.NewWriter(s.out, 0, 0, 2, ' ', 0)
		fmt.Fprintln(s.tw, "TIME\tPOLICY\tLOAD\tEFF\tCUR\tTARGET\tREL\tOK")
		fmt.Fprintln(s.tw, "----\t------\t----\t---\t---\t------\t---\t--")
		s.tw.Flush()
	} else {
		fmt.Fprintln(s.out, "# time, policy, load, effective_load, cur_khz, target_khz, relation, accepted")
	}

	closer := func() {}
	if csvPath != "" {
		if err := os.MkdirAll(filepath.Dir(csvPath), 0o755); err != nil {
			return nil, nil, err
		}
		f, err := os.Create(csvPath)
		if err != nil {
			return nil, nil, err
		}
		s.csvW = csv.NewWriter(f)
		_ = s.csvW.Write([]string{
			"time", "policy", "load", "effective_load", "cur_khz", "target_khz", "relation", "accepted",
		})
		s.csvW.Flush()
		closer = func() {
			s.csvW.Flush()
			_ = f.Close()
		}
	}
	return s, closer, nil
}

func (s *tickSink) row(policy string) func(governor.Tick) {
	return func(t governor.Tick) {
		target, targetKHz, rel := "-", "-", "-"
		if t.Request != nil {
			target = t.Request.Target.Humanized()
			targetKHz = strconv.FormatUint(t.Request.Target.KHz(), 10)
			rel = t.Request.Relation.String()
		}

		s.mu.Lock()
		defer s.mu.Unlock()

		ts := t.At.Format("15:04:05.000")
		if s.tw != nil {
			fmt.Fprintf(s.tw, "%s\t%s\t%d\t%d\t%s\t%s\t%s\t%v\n",
				ts, policy, t.Load, t.EffectiveLoad, t.Bounds.Cur.Humanized(), target, rel, t.Accepted)
			s.tw.Flush()
		} else {
			fmt.Fprintf(s.out, "%s, %s, %d, %d, %d, %s, %s, %v\n",
				ts, policy, t.Load, t.EffectiveLoad, t.Bounds.Cur.KHz(), targetKHz, rel, t.Accepted)
		}

		if s.csvW != nil {
			csvTarget := ""
			if t.Request != nil {
				csvTarget = targetKHz
			}
			_ = s.csvW.Write([]string{
				t.At.Format(time.RFC3339Nano), policy,
				strconv.FormatUint(uint64(t.Load), 10),
				strconv.FormatUint(uint64(t.EffectiveLoad), 10),
				strconv.FormatUint(t.Bounds.Cur.KHz(), 10),
				csvTarget, rel, strconv.FormatBool(t.Accepted),
			})
			s.csvW.Flush()
		}
	}
}
