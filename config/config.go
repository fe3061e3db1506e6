// Package config holds the tunable knobs a Session is constructed from
// (spec §6). Values are JSON-tagged so a binding can load them from a
// file or an API payload with jsoniter, the teacher's JSON library of
// choice.
/*
 * Copyright (c) 2024, U.S. Naval Research Laboratory.
 */
package config

import (
	"time"

	jsoniter "github.com/json-iterator/go"
	"github.com/pkg/errors"
)

// RepairBoundary selects NACK scoping (spec §6).
type RepairBoundary string

const (
	RepairBoundaryBlock  RepairBoundary = "BLOCK"
	RepairBoundaryObject RepairBoundary = "OBJECT"
)

// NackingMode selects how much repair a receiver solicits (spec §6).
type NackingMode string

const (
	NackingNone     NackingMode = "NONE"
	NackingInfoOnly NackingMode = "INFO_ONLY"
	NackingNormal   NackingMode = "NORMAL"
)

// SyncPolicy selects a late-joining receiver's baseline (spec §6, §4.5).
type SyncPolicy string

const (
	SyncCurrent SyncPolicy = "CURRENT"
	SyncStream  SyncPolicy = "STREAM"
	SyncAll     SyncPolicy = "ALL"
)

// FtiMode controls whether/when FTI extensions are carried (spec §6).
type FtiMode string

const (
	FtiPreset FtiMode = "PRESET"
	FtiInfo   FtiMode = "INFO"
	FtiAlways FtiMode = "ALWAYS"
)

// FlushMode selects stream flush behavior (spec §4.7, §6).
type FlushMode string

const (
	FlushNone    FlushMode = "NONE"
	FlushPassive FlushMode = "PASSIVE"
	FlushActive  FlushMode = "ACTIVE"
)

// Config is every tunable spec §6 lists, with sane NORM-typical defaults
// applied by Default().
type Config struct {
	SegmentSize int `json:"segment_size"`

	NumData      int    `json:"num_data"`
	NumParity    int    `json:"num_parity"`
	FecId        uint8  `json:"fec_id"`
	FecFieldSize uint8  `json:"fec_field_size"`
	AutoParity   int    `json:"auto_parity"`

	TxRate    float64 `json:"tx_rate"`
	TxRateMin float64 `json:"tx_rate_min"`
	TxRateMax float64 `json:"tx_rate_max"`

	BackoffFactor float64 `json:"backoff_factor"`
	GroupSize     int     `json:"group_size"`
	GrttMax       time.Duration `json:"grtt_max"`

	TxCacheCountMin int `json:"tx_cache_count_min"`
	TxCacheCountMax int `json:"tx_cache_count_max"`
	TxCacheSizeMax  int64 `json:"tx_cache_size_max"`

	TxRobustFactor int `json:"tx_robust_factor"`
	RxRobustFactor int `json:"rx_robust_factor"`

	RepairBoundary RepairBoundary `json:"repair_boundary"`
	NackingMode    NackingMode    `json:"nacking_mode"`
	SyncPolicy     SyncPolicy     `json:"sync_policy"`
	FtiMode        FtiMode        `json:"fti_mode"`
	FlushMode      FlushMode      `json:"flush_mode"`

	SilentReceiver bool `json:"silent_receiver"`
	UnicastNacks   bool `json:"unicast_nacks"`
	RcvrRealtime   bool `json:"rcvr_realtime"`
	RcvrMaxDelay   time.Duration `json:"rcvr_max_delay"`
	RcvrIgnoreInfo bool `json:"rcvr_ignore_info"`

	EcnEnabled        bool `json:"ecn_enabled"`
	EcnIgnoreLoss     bool `json:"ecn_ignore_loss"`
	CCTolerateLoss    bool `json:"cc_tolerate_loss"`
	Fragmentation     bool `json:"fragmentation"`
	MulticastLoopback bool `json:"multicast_loopback"`
	TTL               int  `json:"ttl"`
	TOS               int  `json:"tos"`

	// CCLimitEnabled governs the non-RFC-compliant LIMIT flag (spec §9
	// Open Question): caps slow-start rate doubling at 2x the measured
	// receive rate. Spec notes the source enables it unconditionally but
	// recommends exposing it as an option; default true preserves source
	// behavior while letting callers opt out.
	CCLimitEnabled bool `json:"cc_limit_enabled"`
}

// Default returns spec-reasonable defaults for a unicast/small-group file
// transfer profile; callers override fields as needed.
func Default() Config {
	return Config{
		SegmentSize:  1400,
		NumData:      64,
		NumParity:    16,
		FecId:        2,
		FecFieldSize: 8,
		AutoParity:   0,

		TxRate:    1_000_000,
		TxRateMin: 10_000,
		TxRateMax: 100_000_000,

		BackoffFactor: 1.5,
		GroupSize:     1000,
		GrttMax:       15 * time.Second,

		TxCacheCountMin: 1,
		TxCacheCountMax: 256,
		TxCacheSizeMax:  1 << 30,

		TxRobustFactor: 20,
		RxRobustFactor: 20,

		RepairBoundary: RepairBoundaryBlock,
		NackingMode:    NackingNormal,
		SyncPolicy:     SyncCurrent,
		FtiMode:        FtiInfo,
		FlushMode:      FlushPassive,

		UnicastNacks:   false,
		RcvrMaxDelay:   0,
		RcvrIgnoreInfo: false,

		TTL:            64,
		CCLimitEnabled: true,
	}
}

// Validate checks the invariants the rest of the core assumes hold
// (spec §4.3's block math, §6's FEC scheme table).
func (c Config) Validate() error {
	if c.SegmentSize <= 0 {
		return errors.New("config: segment_size must be positive")
	}
	if c.NumData <= 0 {
		return errors.New("config: num_data must be positive")
	}
	if c.NumParity < 0 {
		return errors.New("config: num_parity must be non-negative")
	}
	if c.TxRateMin > c.TxRateMax {
		return errors.New("config: tx_rate_min exceeds tx_rate_max")
	}
	if c.TxCacheCountMin > c.TxCacheCountMax {
		return errors.New("config: tx_cache_count_min exceeds tx_cache_count_max")
	}
	return nil
}

// Marshal/Unmarshal use jsoniter, the teacher's JSON library of choice
// across its config and API payload types (e.g. api/authn.go,
// api/apc/actmsg.go).
var jsonAPI = jsoniter.ConfigCompatibleWithStandardLibrary

func Marshal(c Config) ([]byte, error) {
	b, err := jsonAPI.Marshal(c)
	return b, errors.Wrap(err, "config: marshal")
}

func Unmarshal(data []byte) (Config, error) {
	var c Config
	if err := jsonAPI.Unmarshal(data, &c); err != nil {
		return Config{}, errors.Wrap(err, "config: unmarshal")
	}
	return c, nil
}
