// Package fec wraps a systematic Reed-Solomon block code behind the
// narrow interface the block/object layers need: encode a block's data
// segments into parity segments, and reconstruct missing segments given
// whatever subset (data or parity) survived.
package fec

import (
	"github.com/klauspost/reedsolomon"
	"github.com/pkg/errors"
)

// Codec is the FEC engine interface. New returns the Reed-Solomon
// implementation, or a parity-free one when numParity is zero; the same
// codec serves every fecId the wire layer advertises (2/5/129).
type Codec interface {
	// Encode computes parity shards in place: shards[numData:] are filled
	// from shards[:numData]. Every shard must be the same length.
	Encode(shards [][]byte) error
	// Reconstruct fills in nil entries of shards (data or parity) given at
	// least numData non-nil entries. Returns an error if fewer than
	// numData shards survived.
	Reconstruct(shards [][]byte) error
	NumData() int
	NumParity() int
}

type rsCodec struct {
	enc       reedsolomon.Encoder
	numData   int
	numParity int
}

// New builds a Codec for the given (numData, numParity) split. It takes no
// field-size argument: the codec is the same whatever field width the
// wire layer's FTI extension advertises. A numParity of zero yields
// noParityCodec.
func New(numData, numParity int) (Codec, error) {
	if numData <= 0 {
		return nil, errors.New("fec: numData must be positive")
	}
	if numParity < 0 {
		return nil, errors.New("fec: numParity must be non-negative")
	}
	if numParity == 0 {
		return &noParityCodec{numData: numData}, nil
	}
	enc, err := reedsolomon.New(numData, numParity)
	if err != nil {
		return nil, errors.Wrap(err, "fec: construct reedsolomon codec")
	}
	return &rsCodec{enc: enc, numData: numData, numParity: numParity}, nil
}

func (c *rsCodec) Encode(shards [][]byte) error {
	if err := c.enc.Encode(shards); err != nil {
		return errors.Wrap(err, "fec: encode")
	}
	return nil
}

func (c *rsCodec) Reconstruct(shards [][]byte) error {
	if err := c.enc.Reconstruct(shards); err != nil {
		return errors.Wrap(err, "fec: reconstruct")
	}
	return nil
}

func (c *rsCodec) NumData() int   { return c.numData }
func (c *rsCodec) NumParity() int { return c.numParity }

// noParityCodec handles the degenerate NORM_FEC_NONE configuration (spec
// §4.3's "parity count may be zero, disabling repair-by-reconstruction
// entirely; only retransmission repairs losses in that mode"): Encode is
// a no-op and Reconstruct always fails since there is nothing to rebuild
// from.
type noParityCodec struct{ numData int }

func (c *noParityCodec) Encode(shards [][]byte) error { return nil }

func (c *noParityCodec) Reconstruct(shards [][]byte) error {
	for _, s := range shards {
		if s == nil {
			return errors.New("fec: no parity configured, cannot reconstruct missing shard")
		}
	}
	return nil
}

func (c *noParityCodec) NumData() int   { return c.numData }
func (c *noParityCodec) NumParity() int { return 0 }
