// Package common provides the logging infrastructure and small helpers shared
// by the SDK packages.
//
// Logging is built on logrus. The package-level Logger routes error-level
// entries to stderr and everything else to stdout, so host applications can
// treat the two streams differently.
package common

import (
	"bytes"
	"os"

	"github.com/sirupsen/logrus"
)

// OutputSplitter routes log lines by level: lines carrying an error level go
// to stderr, all other lines to stdout. It understands both the text
// ("level=error") and the JSON (`"level":"error"`) logrus formatters.
//
// Example Usage:
//
//	logger := logrus.New()
//	logger.SetOutput(&OutputSplitter{})
//
//	logger.Info("This goes to stdout")
//	logger.Error("This goes to stderr")
type OutputSplitter struct{}

// Write implements io.Writer.
func (splitter *OutputSplitter) Write(p []byte) (n int, err error) {
	if isErrorLine(p) {
		return os.Stderr.Write(p)
	}
	return os.Stdout.Write(p)
}

func isErrorLine(p []byte) bool {
	return bytes.Contains(p, []byte("level=error")) || bytes.Contains(p, []byte(`"level":"error"`))
}

// Logger is the SDK-wide default logger used when no logger is injected.
var Logger = logrus.New()

func init() {
	Logger.SetOutput(&OutputSplitter{})
}
