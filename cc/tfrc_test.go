package cc_test

import (
	"math"
	"testing"
	"time"

	"github.com/USNavalResearchLaboratory/normcore/cc"
	"github.com/stretchr/testify/require"
)

func TestRateZeroLossIsInfinite(t *testing.T) {
	require.True(t, math.IsInf(cc.Rate(1400, 0.1, 0), 1))
}

func TestRateDecreasesWithLoss(t *testing.T) {
	low := cc.Rate(1400, 0.1, 0.01)
	high := cc.Rate(1400, 0.1, 0.2)
	require.Greater(t, low, high)
}

func TestSlowStartRateCappedByLimit(t *testing.T) {
	r := cc.SlowStartRate(1000, 1200, true)
	require.Equal(t, float64(2000), r)
	r = cc.SlowStartRate(1000, 100, true)
	require.Equal(t, float64(200), r)
	r = cc.SlowStartRate(1000, 100, false)
	require.Equal(t, float64(2000), r)
}

func TestClamp(t *testing.T) {
	require.Equal(t, 10.0, cc.Clamp(5, 10, 100))
	require.Equal(t, 100.0, cc.Clamp(500, 10, 100))
	require.Equal(t, 50.0, cc.Clamp(50, 10, 100))
}

func TestLossEstimatorWeightedHistory(t *testing.T) {
	e := cc.NewLossEstimator()
	require.Equal(t, 0.0, e.LossFraction())

	e.AddLossEvent(100)
	require.InDelta(t, 1.0/100.0, e.LossFraction(), 1e-9)

	e.AddLossEvent(50)
	// more recent, smaller interval should push fraction up.
	require.Greater(t, e.LossFraction(), 1.0/100.0)
}

func TestWorstLossFractionPicksMaxAmongCLRPLR(t *testing.T) {
	feedback := []cc.Feedback{
		{NodeId: 1, Role: cc.RoleCLR, LossFraction: 0.05},
		{NodeId: 2, Role: cc.RolePLR, LossFraction: 0.2},
		{NodeId: 3, Role: cc.RoleNone, LossFraction: 0.9}, // excluded
	}
	p, worst, ok := cc.WorstLossFraction(feedback)
	require.True(t, ok)
	require.Equal(t, 0.2, p)
	require.EqualValues(t, 2, worst.NodeId)
}

func TestGrttEstimatorMaxFilterAndClamp(t *testing.T) {
	g := cc.NewGrttEstimator(0.5)
	g.Sample(10 * time.Millisecond)
	g.Sample(50 * time.Millisecond)
	g.Sample(20 * time.Millisecond)
	require.Equal(t, 50*time.Millisecond, g.Measured())

	adv := g.Advertised(time.Millisecond, 15*time.Second)
	require.LessOrEqual(t, adv, 15*time.Second)
	require.GreaterOrEqual(t, adv, time.Millisecond)
}

func TestGrttEstimatorClampsToMin(t *testing.T) {
	g := cc.NewGrttEstimator(0.5)
	g.Sample(1 * time.Microsecond)
	adv := g.Advertised(time.Millisecond, 15*time.Second)
	require.Equal(t, time.Millisecond, adv)
}

func TestProbeIntervalAdapts(t *testing.T) {
	require.Equal(t, time.Second, cc.ProbeInterval(true, time.Second, 10*time.Second))
	require.Equal(t, 10*time.Second, cc.ProbeInterval(false, time.Second, 10*time.Second))
}
