package bpmgr

import "github.com/sirupsen/logrus"

// log is the package-level component logger, following the
// logrus.WithFields(logrus.Fields{"layer": ...}) convention used across
// the rest of the debug server.
var log = logrus.WithFields(logrus.Fields{"layer": "bpmgr"})
