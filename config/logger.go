package config

import (
	"sync/atomic"

	log "github.com/sirupsen/logrus"
)

var pkgLogger atomic.Pointer[log.Entry]

func init() {
	SetLogger(nil)
}

// SetLogger replaces the logger used by readers, writers and managers.
// Passing nil restores the logrus standard logger.
func SetLogger(l *log.Logger) {
	if l == nil {
		l = log.StandardLogger()
	}
	pkgLogger.Store(log.NewEntry(l).WithField("component", "provsync"))
}

func logger() *log.Entry {
	return pkgLogger.Load()
}
