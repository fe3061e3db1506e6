//go:build !debug

// Package debug provides cheap, compiled-out-by-default invariant checks.
// Build with `-tags debug` to turn them into real panics during development
// and testing; a production build pays nothing for them.
/*
 * Copyright (c) 2024, U.S. Naval Research Laboratory.
 */
package debug

import "sync"

func ON() bool { return false }

func Func(_ func()) {}

func Assert(_ bool, _ ...any)            {}
func AssertFunc(_ func() bool, _ ...any) {}
func AssertNoErr(_ error)                {}
func Assertf(_ bool, _ string, _ ...any) {}

func AssertMutexLocked(_ *sync.Mutex)      {}
func AssertRWMutexLocked(_ *sync.RWMutex)  {}
func AssertRWMutexRLocked(_ *sync.RWMutex) {}
