package governor

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestMergeTuners_NilGetsDefaults(t *testing.T) {
	m := mergeTuners(nil)
	assert.Equal(t, Defaults(), m)
}

func TestMergeTuners_ZeroFieldsDefaulted(t *testing.T) {
	m := mergeTuners(&Tuners{UpThreshold: 90})
	assert.Equal(t, uint(90), m.UpThreshold)
	assert.Equal(t, uint(20), m.DownThreshold)
	assert.Equal(t, uint(5), m.FreqStep)
	assert.Equal(t, 10*time.Millisecond, m.SamplingRate)
	assert.Equal(t, uint(1), m.SamplingDownFactor)
	assert.Equal(t, 0, m.PowersaveBias)
}

func TestMergeTuners_BiasVerbatim(t *testing.T) {
	// Bias is signed and 0 is meaningful, so it is never "defaulted away".
	assert.Equal(t, -40, mergeTuners(&Tuners{PowersaveBias: -40}).PowersaveBias)
	assert.Equal(t, 0, mergeTuners(&Tuners{}).PowersaveBias)
	assert.Equal(t, 100, mergeTuners(&Tuners{PowersaveBias: 100}).PowersaveBias)
}

func TestMergeTuners_FullOverride(t *testing.T) {
	in := &Tuners{
		UpThreshold:        70,
		DownThreshold:      30,
		FreqStep:           10,
		SamplingRate:       time.Second,
		SamplingDownFactor: 8,
		PowersaveBias:      15,
	}
	assert.Equal(t, *in, mergeTuners(in))
}
