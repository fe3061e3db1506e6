package wire_test

import (
	"testing"

	"github.com/USNavalResearchLaboratory/normcore/wire"
	"github.com/stretchr/testify/require"
)

func TestQuantizeRttMonotonicAndBounded(t *testing.T) {
	require.EqualValues(t, 0, wire.QuantizeRtt(0))
	require.EqualValues(t, 255, wire.QuantizeRtt(1e6))

	prev := wire.QuantizeRtt(1e-6)
	for _, rtt := range []float64{1e-4, 1e-2, 1e-1, 1, 10, 100} {
		q := wire.QuantizeRtt(rtt)
		require.GreaterOrEqual(t, q, prev)
		prev = q
	}
}

func TestUnquantizeRttRoundTripApprox(t *testing.T) {
	rtt := 0.2
	q := wire.QuantizeRtt(rtt)
	back := wire.UnquantizeRtt(q)
	require.InEpsilon(t, rtt, back, 0.1)
}

func TestClampGrtt(t *testing.T) {
	require.Equal(t, wire.GrttMin, wire.ClampGrtt(0, wire.GrttMax))
	require.Equal(t, wire.GrttMax, wire.ClampGrtt(100, wire.GrttMax))
	require.Equal(t, 1.0, wire.ClampGrtt(1.0, wire.GrttMax))
}

func TestQuantizeLossBounds(t *testing.T) {
	require.EqualValues(t, 0, wire.QuantizeLoss(-1))
	require.EqualValues(t, 65535, wire.QuantizeLoss(2))
	q := wire.QuantizeLoss(0.5)
	require.InDelta(t, 0.5, wire.UnquantizeLoss(q), 0.001)
}

func TestQuantizeLoss32Bounds(t *testing.T) {
	require.EqualValues(t, 0, wire.QuantizeLoss32(-1))
	q := wire.QuantizeLoss32(0.1)
	require.InDelta(t, 0.1, wire.UnquantizeLoss32(q), 0.0001)
}
