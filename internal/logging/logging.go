// Package logging wires the process-wide logrus logger from the loaded
// configuration: level and, optionally, syslog output in place of stderr.
package logging

import (
	"fmt"
	"io"
	"log/syslog"

	"github.com/sirupsen/logrus"
	lsyslog "github.com/sirupsen/logrus/hooks/syslog"
)

// Setup configures the standard logrus logger. level is parsed case
// insensitively (trace, debug, info, warn, error, fatal, panic). When
// toSyslog is true, log messages are written to the local syslog daemon
// under the given tag instead of stderr.
func Setup(level string, toSyslog bool, tag string) error {
	lvl, err := logrus.ParseLevel(level)
	if err != nil {
		return fmt.Errorf("logging: invalid level %q: %w", level, err)
	}
	logrus.SetLevel(lvl)

	if !toSyslog {
		logrus.SetFormatter(&logrus.TextFormatter{FullTimestamp: true})
		return nil
	}

	hook, err := lsyslog.NewSyslogHook("", "", syslog.LOG_INFO, tag)
	if err != nil {
		return fmt.Errorf("logging: connect to syslog: %w", err)
	}
	logrus.AddHook(hook)
	logrus.SetOutput(io.Discard)
	return nil
}
