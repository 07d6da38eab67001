// Copyright (c) 2024 Andreas Pokorny
// Distributed under the Boost Software License, Version 1.0.
// (See accompanying file LICENSE_1_0.txt or copy at http://www.boost.org/LICENSE_1_0.txt)

package tinyipc

import "github.com/sirupsen/logrus"

// Logger is the structured logger the client and session use for
// diagnostic events that fall outside their error-handling contract:
// dropped unmatched messages, missing handlers, re-arm outcomes. It
// wraps logrus, following the logging setup main.go uses throughout
// the rest of this module.
type Logger struct {
	entry *logrus.Entry
}

// NewLogger wraps entry for use as a Client/Session Logger. A nil entry
// falls back to logrus's standard logger.
func NewLogger(entry *logrus.Entry) Logger {
	if entry == nil {
		entry = logrus.NewEntry(logrus.StandardLogger())
	}
	return Logger{entry: entry}
}

func (l Logger) withID(interfaceID uint32, ordinal, cookie uint16) *logrus.Entry {
	return l.entry.WithFields(logrus.Fields{
		"interface": interfaceID,
		"ordinal":   ordinal,
		"cookie":    cookie,
	})
}

func (l Logger) debugUnmatched(interfaceID uint32, ordinal, cookie uint16) {
	l.withID(interfaceID, ordinal, cookie).Debug("tinyipc: dropping unmatched message")
}

func (l Logger) debugNoHandler(interfaceID uint32, ordinal, cookie uint16) {
	l.withID(interfaceID, ordinal, cookie).Debug("tinyipc: no handler bound for element")
}
