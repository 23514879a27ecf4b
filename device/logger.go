/* SPDX-License-Identifier: MIT
 *
 * Copyright (C) 2017-2025 WireGuard LLC. All Rights Reserved.
 */

package device

import (
	"log"
	"os"
)

// LogLevel controls how much a Logger prints.
type LogLevel int

const (
	LogLevelSilent LogLevel = iota
	LogLevelError
	LogLevelVerbose
)

// Logger is the logging sink threaded through Device and Peer. Call sites
// stay unconditional (device.log.Verbosef(...)) and the Logger itself
// decides whether a message reaches output.
type Logger struct {
	Verbosef func(format string, args ...any)
	Errorf   func(format string, args ...any)
}

func NewLogger(level LogLevel, prepend string) *Logger {
	logger := new(Logger)

	logErr, logVerbose := log.New(os.Stderr, "", 0), log.New(os.Stderr, "", 0)
	if prepend != "" {
		logErr.SetPrefix(prepend + "ERR: ")
		logVerbose.SetPrefix(prepend + "VRB: ")
	}

	if level >= LogLevelVerbose {
		logger.Verbosef = logVerbose.Printf
	} else {
		logger.Verbosef = discardf
	}

	if level >= LogLevelError {
		logger.Errorf = logErr.Printf
	} else {
		logger.Errorf = discardf
	}

	return logger
}

func discardf(format string, args ...any) {}
