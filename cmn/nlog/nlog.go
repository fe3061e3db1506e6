// Package nlog is the norm core logger: leveled, timestamped, with the
// caller's file:line, and deliberately not a process-wide side channel —
// a component that logs is handed a *nlog.Logger explicitly (session.New
// takes one and falls back to Discard when given nil), so unit tests can
// swap in a silent or buffering logger.
/*
 * Copyright (c) 2024, U.S. Naval Research Laboratory.
 */
package nlog

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"runtime"
	"strconv"
	"strings"
	"sync"
	"time"
)

type severity int

const (
	sevInfo severity = iota
	sevWarn
	sevErr
)

const sevChar = "IWE"

// Logger is a minimal leveled logger; New with a nil writer logs to
// stderr at all levels. Session.New wires one logger per session so that a host
// process running several sessions can tag or redirect each independently.
type Logger struct {
	mu     sync.Mutex
	out    io.Writer
	tag    string // e.g. "sess-3f2a"
	minSev severity
}

func New(tag string, out io.Writer) *Logger {
	if out == nil {
		out = os.Stderr
	}
	return &Logger{out: out, tag: tag}
}

// SetVerbose lowers the level threshold; with verbose=false only warnings
// and errors are written, matching production defaults.
func (l *Logger) SetVerbose(verbose bool) {
	l.mu.Lock()
	defer l.mu.Unlock()
	if verbose {
		l.minSev = sevInfo
	} else {
		l.minSev = sevWarn
	}
}

func (l *Logger) Infof(format string, args ...any)    { l.logf(sevInfo, format, args...) }
func (l *Logger) Warningf(format string, args ...any) { l.logf(sevWarn, format, args...) }
func (l *Logger) Errorf(format string, args ...any)   { l.logf(sevErr, format, args...) }
func (l *Logger) Infoln(args ...any)                  { l.logln(sevInfo, args...) }
func (l *Logger) Warningln(args ...any)               { l.logln(sevWarn, args...) }
func (l *Logger) Errorln(args ...any)                 { l.logln(sevErr, args...) }

func (l *Logger) logf(sev severity, format string, args ...any) {
	if sev < l.minSev {
		return
	}
	l.write(sev, fmt.Sprintf(format, args...))
}

func (l *Logger) logln(sev severity, args ...any) {
	if sev < l.minSev {
		return
	}
	l.write(sev, fmt.Sprintln(args...))
}

func (l *Logger) write(sev severity, msg string) {
	_, fn, ln, ok := runtime.Caller(3)
	if ok {
		if idx := strings.LastIndexByte(fn, filepath.Separator); idx >= 0 {
			fn = fn[idx+1:]
		}
	}
	now := time.Now().Format("15:04:05.000000")
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.tag != "" {
		fmt.Fprintf(l.out, "%c %s %s [%s] %s:%d %s", sevChar[sev], now, l.tag, strconv.Itoa(int(sev)), fn, ln, msg)
	} else {
		fmt.Fprintf(l.out, "%c %s %s:%d %s", sevChar[sev], now, fn, ln, msg)
	}
	if !strings.HasSuffix(msg, "\n") {
		fmt.Fprintln(l.out)
	}
}

// Discard is a logger that drops everything; useful in tests that exercise
// NACK storms or CC feedback floods and don't want the noise.
var Discard = New("", io.Discard)
