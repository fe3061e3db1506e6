package config_test

import (
	"testing"

	"github.com/USNavalResearchLaboratory/normcore/config"
	"github.com/stretchr/testify/require"
)

func TestDefaultValidates(t *testing.T) {
	require.NoError(t, config.Default().Validate())
}

func TestValidateRejectsBadRange(t *testing.T) {
	c := config.Default()
	c.TxRateMin = 100
	c.TxRateMax = 10
	require.Error(t, c.Validate())
}

func TestMarshalUnmarshalRoundTrip(t *testing.T) {
	c := config.Default()
	c.SegmentSize = 512
	c.NackingMode = config.NackingInfoOnly

	data, err := config.Marshal(c)
	require.NoError(t, err)

	back, err := config.Unmarshal(data)
	require.NoError(t, err)
	require.Equal(t, c.SegmentSize, back.SegmentSize)
	require.Equal(t, config.NackingInfoOnly, back.NackingMode)
}
