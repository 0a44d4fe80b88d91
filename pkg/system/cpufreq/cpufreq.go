//go:build linux

// Package cpufreq implements the governor's actuator over Linux cpufreq
// sysfs policy domains (/sys/devices/system/cpu/cpufreq/policy*).
//
// A Domain maps onto one kernel policy: its affected cpus are the governed
// units, scaling_{min,cur,max}_freq provide the bounds, and actuation writes
// scaling_setspeed, which requires the domain to be under the kernel's
// "userspace" governor (see SetGovernor). When the platform publishes
// scaling_available_frequencies, requests are rounded onto that grid in the
// direction the caller asked for.
package cpufreq

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"strings"

	"github.com/ecogov/ecodemand/pkg/governor"
	"github.com/ecogov/ecodemand/pkg/types"
)

// DefaultRoot is where the kernel exposes cpufreq policy domains.
const DefaultRoot = "/sys/devices/system/cpu/cpufreq"

// Domain is one cpufreq policy directory. It implements governor.Actuator.
type Domain struct {
	name  string
	path  string
	units []int
	avail []types.Freq // ascending; empty when the platform lists none
}

// Discover opens every policy domain under root.
func Discover(root string) ([]*Domain, error) {
	paths, err := filepath.Glob(filepath.Join(root, "policy*"))
	if err != nil {
		return nil, err
	}
	sort.Strings(paths)

	var domains []*Domain
	for _, p := range paths {
		d, err := Open(root, filepath.Base(p))
		if err != nil {
			return nil, fmt.Errorf("cpufreq: open %s: %w", filepath.Base(p), err)
		}
		domains = append(domains, d)
	}
	if len(domains) == 0 {
		return nil, ErrNoDomains
	}
	return domains, nil
}

// Open opens a single policy domain (e.g. "policy0") under root. Membership
// (affected_cpus) is read once here; it is fixed for a policy's lifetime.
func Open(root, name string) (*Domain, error) {
	d := &Domain{name: name, path: filepath.Join(root, name)}

	units, err := readIntList(filepath.Join(d.path, "affected_cpus"))
	if err != nil {
		return nil, err
	}
	if len(units) == 0 {
		return nil, ErrNoAffectedCPUs
	}
	d.units = units

	// Optional: not every driver publishes a discrete frequency table.
	if avail, err := readFreqList(filepath.Join(d.path, "scaling_available_frequencies")); err == nil {
		sort.Slice(avail, func(i, j int) bool { return avail[i] < avail[j] })
		d.avail = avail
	}

	return d, nil
}

// Name returns the policy directory name.
func (d *Domain) Name() string { return d.name }

// Units returns the cpu ids governed by this domain.
func (d *Domain) Units() []int { return d.units }

// Bounds reads the domain's limits and current frequency. Values are read
// fresh on every call; the kernel (or an operator writing scaling_max_freq)
// may move them between ticks.
func (d *Domain) Bounds() (governor.Bounds, error) {
	min, err := readFreq(filepath.Join(d.path, "scaling_min_freq"))
	if err != nil {
		return governor.Bounds{}, err
	}
	cur, err := readFreq(filepath.Join(d.path, "scaling_cur_freq"))
	if err != nil {
		return governor.Bounds{}, err
	}
	max, err := readFreq(filepath.Join(d.path, "scaling_max_freq"))
	if err != nil {
		return governor.Bounds{}, err
	}
	return governor.Bounds{Min: min, Cur: cur, Max: max}, nil
}

// Target requests a frequency change, rounding onto the platform's discrete
// grid according to rel when one is published.
func (d *Domain) Target(target types.Freq, rel governor.Relation) error {
	f := d.round(target, rel)
	return writeString(filepath.Join(d.path, "scaling_setspeed"), strconv.FormatUint(uint64(f), 10))
}

// round snaps target onto the available-frequency grid: AtLeast picks the
// lowest listed frequency >= target (or the highest listed when target is
// beyond the table); AtMost picks the highest listed <= target (or the
// lowest). Without a table the target passes through untouched.
func (d *Domain) round(target types.Freq, rel governor.Relation) types.Freq {
	if len(d.avail) == 0 {
		return target
	}
	switch rel {
	case governor.AtMost:
		for i := len(d.avail) - 1; i >= 0; i-- {
			if d.avail[i] <= target {
				return d.avail[i]
			}
		}
		return d.avail[0]
	default: // AtLeast
		for _, f := range d.avail {
			if f >= target {
				return f
			}
		}
		return d.avail[len(d.avail)-1]
	}
}

// Governor returns the kernel governor currently attached to the domain.
func (d *Domain) Governor() (string, error) {
	b, err := os.ReadFile(filepath.Join(d.path, "scaling_governor"))
	if err != nil {
		return "", err
	}
	return strings.TrimSpace(string(b)), nil
}

// SetGovernor switches the domain's kernel governor. The daemon switches to
// "userspace" at attach (so scaling_setspeed is writable) and restores the
// previous governor at detach.
func (d *Domain) SetGovernor(name string) error {
	return writeString(filepath.Join(d.path, "scaling_governor"), name)
}

// ---- sysfs helpers ----

func readFreq(path string) (types.Freq, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		return 0, err
	}
	v, err := strconv.ParseUint(strings.TrimSpace(string(b)), 10, 64)
	if err != nil {
		return 0, fmt.Errorf("cpufreq: parse %s: %w", filepath.Base(path), err)
	}
	return types.Freq(v), nil
}

func readFreqList(path string) ([]types.Freq, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	var out []types.Freq
	for _, s := range strings.Fields(string(b)) {
		v, err := strconv.ParseUint(s, 10, 64)
		if err != nil {
			return nil, fmt.Errorf("cpufreq: parse %s: %w", filepath.Base(path), err)
		}
		out = append(out, types.Freq(v))
	}
	return out, nil
}

func readIntList(path string) ([]int, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	var out []int
	for _, s := range strings.Fields(string(b)) {
		v, err := strconv.Atoi(s)
		if err != nil {
			return nil, fmt.Errorf("cpufreq: parse %s: %w", filepath.Base(path), err)
		}
		out = append(out, v)
	}
	return out, nil
}

func writeString(path, s string) error {
	f, err := os.OpenFile(path, os.O_WRONLY|os.O_TRUNC, 0)
	if err != nil {
		return err
	}
	defer f.Close()
	_, err = f.WriteString(s + "\n")
	return err
}
