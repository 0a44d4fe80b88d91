//go:build linux

package cpufreq

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ecogov/ecodemand/pkg/governor"
	"github.com/ecogov/ecodemand/pkg/types"
)

// policyFiles describes one fake policy directory. Keys are file names,
// values their contents (newline appended on write).
type policyFiles map[string]string

func writePolicy(t *testing.T, root, name string, files policyFiles) string {
	t.Helper()

	dir := filepath.Join(root, name)
	require.NoError(t, os.MkdirAll(dir, 0o755))
	for f, content := range files {
		require.NoError(t, os.WriteFile(filepath.Join(dir, f), []byte(content+"\n"), 0o644))
	}
	return dir
}

func defaultPolicy() policyFiles {
	return policyFiles{
		"affected_cpus":                 "0 1",
		"scaling_min_freq":              "800000",
		"scaling_cur_freq":              "1200000",
		"scaling_max_freq":              "2400000",
		"scaling_available_frequencies": "2400000 1800000 1200000 800000",
		"scaling_governor":              "schedutil",
		"scaling_setspeed":              "<unsupported>",
	}
}

func TestOpen(t *testing.T) {
	root := t.TempDir()
	writePolicy(t, root, "policy0", defaultPolicy())

	d, err := Open(root, "policy0")
	require.NoError(t, err)

	assert.Equal(t, "policy0", d.Name())
	assert.Equal(t, []int{0, 1}, d.Units())
	// Table is sorted ascending regardless of sysfs ordering.
	assert.Equal(t, []types.Freq{800_000, 1_200_000, 1_800_000, 2_400_000}, d.avail)
}

func TestOpen_NoFrequencyTable(t *testing.T) {
	root := t.TempDir()
	files := defaultPolicy()
	delete(files, "scaling_available_frequencies")
	writePolicy(t, root, "policy0", files)

	d, err := Open(root, "policy0")
	require.NoError(t, err)
	assert.Empty(t, d.avail)
}

func TestOpen_EmptyAffectedCPUs(t *testing.T) {
	root := t.TempDir()
	files := defaultPolicy()
	files["affected_cpus"] = ""
	writePolicy(t, root, "policy0", files)

	_, err := Open(root, "policy0")
	assert.ErrorIs(t, err, ErrNoAffectedCPUs)
}

func TestOpen_MissingPolicy(t *testing.T) {
	_, err := Open(t.TempDir(), "policy7")
	assert.Error(t, err)
}

func TestDiscover(t *testing.T) {
	root := t.TempDir()
	writePolicy(t, root, "policy0", defaultPolicy())

	files := defaultPolicy()
	files["affected_cpus"] = "2 3"
	writePolicy(t, root, "policy4", files)

	domains, err := Discover(root)
	require.NoError(t, err)
	require.Len(t, domains, 2)
	assert.Equal(t, "policy0", domains[0].Name())
	assert.Equal(t, "policy4", domains[1].Name())
	assert.Equal(t, []int{2, 3}, domains[1].Units())
}

func TestDiscover_Empty(t *testing.T) {
	_, err := Discover(t.TempDir())
	assert.ErrorIs(t, err, ErrNoDomains)
}

func TestDiscover_BrokenPolicyFails(t *testing.T) {
	root := t.TempDir()
	writePolicy(t, root, "policy0", policyFiles{}) // no affected_cpus

	_, err := Discover(root)
	assert.Error(t, err)
}

func TestBounds(t *testing.T) {
	root := t.TempDir()
	writePolicy(t, root, "policy0", defaultPolicy())

	d, err := Open(root, "policy0")
	require.NoError(t, err)

	b, err := d.Bounds()
	require.NoError(t, err)
	assert.Equal(t, governor.Bounds{Min: 800_000, Cur: 1_200_000, Max: 2_400_000}, b)

	// Bounds are re-read on every call, so moved limits show up.
	require.NoError(t, os.WriteFile(filepath.Join(root, "policy0", "scaling_max_freq"), []byte("1800000\n"), 0o644))
	b, err = d.Bounds()
	require.NoError(t, err)
	assert.Equal(t, types.Freq(1_800_000), b.Max)
}

func TestBounds_Garbage(t *testing.T) {
	root := t.TempDir()
	files := defaultPolicy()
	files["scaling_cur_freq"] = "whatever"
	writePolicy(t, root, "policy0", files)

	d, err := Open(root, "policy0")
	require.NoError(t, err)

	_, err = d.Bounds()
	assert.Error(t, err)
}

func TestRound(t *testing.T) {
	root := t.TempDir()
	writePolicy(t, root, "policy0", defaultPolicy())
	d, err := Open(root, "policy0")
	require.NoError(t, err)

	cases := []struct {
		name   string
		target types.Freq
		rel    governor.Relation
		want   types.Freq
	}{
		{"at least snaps up", 1_000_000, governor.AtLeast, 1_200_000},
		{"at least exact hit", 1_800_000, governor.AtLeast, 1_800_000},
		{"at least beyond table", 3_000_000, governor.AtLeast, 2_400_000},
		{"at most snaps down", 1_700_000, governor.AtMost, 1_200_000},
		{"at most exact hit", 800_000, governor.AtMost, 800_000},
		{"at most below table", 500_000, governor.AtMost, 800_000},
	}
	for _, c := range cases {
		t.Run(c.name, func(t *testing.T) {
			assert.Equal(t, c.want, d.round(c.target, c.rel))
		})
	}
}

func TestRound_NoTablePassesThrough(t *testing.T) {
	d := &Domain{}
	assert.Equal(t, types.Freq(1_234_567), d.round(1_234_567, governor.AtLeast))
	assert.Equal(t, types.Freq(1_234_567), d.round(1_234_567, governor.AtMost))
}

func TestTarget_WritesSetspeed(t *testing.T) {
	root := t.TempDir()
	writePolicy(t, root, "policy0", defaultPolicy())
	d, err := Open(root, "policy0")
	require.NoError(t, err)

	require.NoError(t, d.Target(1_000_000, governor.AtLeast))

	b, err := os.ReadFile(filepath.Join(root, "policy0", "scaling_setspeed"))
	require.NoError(t, err)
	assert.Equal(t, "1200000", strings.TrimSpace(string(b)))
}

func TestTarget_MissingSetspeed(t *testing.T) {
	root := t.TempDir()
	files := defaultPolicy()
	delete(files, "scaling_setspeed")
	writePolicy(t, root, "policy0", files)
	d, err := Open(root, "policy0")
	require.NoError(t, err)

	assert.Error(t, d.Target(1_000_000, governor.AtLeast))
}

func TestSetGovernor_ShorterValueLeavesNoResidue(t *testing.T) {
	root := t.TempDir()
	files := defaultPolicy()
	files["scaling_governor"] = "conservative"
	writePolicy(t, root, "policy0", files)
	d, err := Open(root, "policy0")
	require.NoError(t, err)

	require.NoError(t, d.SetGovernor("userspace"))
	g, err := d.Governor()
	require.NoError(t, err)
	assert.Equal(t, "userspace", g)
}

func TestGovernorRoundTrip(t *testing.T) {
	root := t.TempDir()
	writePolicy(t, root, "policy0", defaultPolicy())
	d, err := Open(root, "policy0")
	require.NoError(t, err)

	g, err := d.Governor()
	require.NoError(t, err)
	assert.Equal(t, "schedutil", g)

	require.NoError(t, d.SetGovernor("userspace"))
	g, err = d.Governor()
	require.NoError(t, err)
	assert.Equal(t, "userspace", g)
}
