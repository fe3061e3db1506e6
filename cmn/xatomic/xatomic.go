// Package xatomic provides thin, typed wrappers over sync/atomic — the same
// convenience layer the teacher codebase leans on throughout its
// concurrency-sensitive counters (send/recv stats, session state flags,
// generation guards) so call sites read as nouns-with-methods instead of
// atomic.*Int64 free functions scattered through the code.
/*
 * Copyright (c) 2024, U.S. Naval Research Laboratory.
 */
package xatomic

import "sync/atomic"

type Int64 struct{ v atomic.Int64 }

func (i *Int64) Load() int64        { return i.v.Load() }
func (i *Int64) Store(n int64)      { i.v.Store(n) }
func (i *Int64) Add(n int64) int64  { return i.v.Add(n) }
func (i *Int64) Inc() int64         { return i.v.Add(1) }
func (i *Int64) CAS(old, new int64) bool { return i.v.CompareAndSwap(old, new) }

type Uint32 struct{ v atomic.Uint32 }

func (i *Uint32) Load() uint32       { return i.v.Load() }
func (i *Uint32) Store(n uint32)     { i.v.Store(n) }
func (i *Uint32) Add(n uint32) uint32 { return i.v.Add(n) }

type Bool struct{ v atomic.Bool }

func (b *Bool) Load() bool             { return b.v.Load() }
func (b *Bool) Store(v bool)           { b.v.Store(v) }
func (b *Bool) CAS(old, new bool) bool { return b.v.CompareAndSwap(old, new) }
