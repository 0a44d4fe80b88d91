package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeConfig(t *testing.T, doc string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "ecodemand.yaml")
	require.NoError(t, os.WriteFile(path, []byte(doc), 0o644))
	return path
}

func TestLoad(t *testing.T) {
	f, err := Load(writeConfig(t, `
metrics_addr: ":9234"
default:
  up_threshold: 85
  down_threshold: 25
  sampling_rate: 20ms
policies:
  policy0:
    powersave_bias: 30
  policy4:
    up_threshold: 60
    down_threshold: 10
    freq_step: 10
`))
	require.NoError(t, err)

	assert.Equal(t, ":9234", f.MetricsAddr)
	assert.Equal(t, uint(85), f.Default.UpThreshold)
	assert.Equal(t, Duration(20*time.Millisecond), f.Default.SamplingRate)

	// policy0 only sets the bias; everything else comes from the default
	// profile.
	p0 := f.ProfileFor("policy0")
	assert.Equal(t, 30, p0.PowersaveBias)
	assert.Equal(t, uint(85), p0.UpThreshold)
	assert.Equal(t, uint(25), p0.DownThreshold)
	assert.Equal(t, Duration(20*time.Millisecond), p0.SamplingRate)

	p4 := f.ProfileFor("policy4")
	assert.Equal(t, uint(60), p4.UpThreshold)
	assert.Equal(t, uint(10), p4.FreqStep)

	// Unknown policies fall back to the default profile.
	assert.Equal(t, f.Default, f.ProfileFor("policy9"))
}

func TestLoad_EmptyDocumentIsValid(t *testing.T) {
	f, err := Load(writeConfig(t, ""))
	require.NoError(t, err)
	assert.Zero(t, f.Default.UpThreshold)
	assert.Empty(t, f.Policies)
}

func TestLoad_MissingFile(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "nope.yaml"))
	assert.Error(t, err)
}

func TestLoad_BadYAML(t *testing.T) {
	_, err := Load(writeConfig(t, "default: ["))
	assert.Error(t, err)
}

func TestLoad_BadDuration(t *testing.T) {
	_, err := Load(writeConfig(t, "default:\n  sampling_rate: fast\n"))
	assert.Error(t, err)
}

func TestLoad_ClampsRanges(t *testing.T) {
	f, err := Load(writeConfig(t, `
default:
  up_threshold: 250
  down_threshold: 20
  freq_step: 101
  powersave_bias: -500
  sampling_rate: 1us
`))
	require.NoError(t, err)

	assert.Equal(t, uint(100), f.Default.UpThreshold)
	assert.Equal(t, uint(100), f.Default.FreqStep)
	assert.Equal(t, -100, f.Default.PowersaveBias)
	assert.Equal(t, Duration(time.Millisecond), f.Default.SamplingRate)
}

func TestLoad_InvertedThresholdsRejected(t *testing.T) {
	_, err := Load(writeConfig(t, "default:\n  up_threshold: 20\n  down_threshold: 80\n"))
	assert.ErrorContains(t, err, "down_threshold")

	// A per-policy override can invert the effective pair even when the
	// default profile is fine.
	_, err = Load(writeConfig(t, `
default:
  up_threshold: 80
  down_threshold: 20
policies:
  policy0:
    up_threshold: 15
`))
	assert.ErrorContains(t, err, `"policy0"`)
}

func TestLoad_InvertedAgainstGovernorDefaults(t *testing.T) {
	// down_threshold alone, above the stock up_threshold of 80.
	_, err := Load(writeConfig(t, "default:\n  down_threshold: 90\n"))
	assert.Error(t, err)
}

func TestProfileTuners(t *testing.T) {
	p := Profile{
		UpThreshold:        70,
		DownThreshold:      30,
		FreqStep:           10,
		SamplingRate:       Duration(50 * time.Millisecond),
		SamplingDownFactor: 4,
		PowersaveBias:      -20,
	}
	tu := p.Tuners()
	assert.Equal(t, uint(70), tu.UpThreshold)
	assert.Equal(t, uint(30), tu.DownThreshold)
	assert.Equal(t, uint(10), tu.FreqStep)
	assert.Equal(t, 50*time.Millisecond, tu.SamplingRate)
	assert.Equal(t, uint(4), tu.SamplingDownFactor)
	assert.Equal(t, -20, tu.PowersaveBias)
}

func TestOverlay_NegativeBiasSurvives(t *testing.T) {
	f, err := Load(writeConfig(t, `
default:
  powersave_bias: 40
policies:
  policy0:
    powersave_bias: -10
`))
	require.NoError(t, err)
	assert.Equal(t, -10, f.ProfileFor("policy0").PowersaveBias)
}
