package logging

import (
	"bytes"
	"os"
	"testing"

	"github.com/sirupsen/logrus"
	"gotest.tools/assert"
	is "gotest.tools/assert/cmp"
)

func TestComponentField(t *testing.T) {
	var buf bytes.Buffer
	assert.NilError(t, Set(Output(&buf)))
	defer Set(Output(os.Stderr))

	New("probe").Info("checked")
	assert.Check(t, is.Contains(buf.String(), "component=probe"))
	assert.Check(t, is.Contains(buf.String(), "checked"))
}

func TestLevel(t *testing.T) {
	defer Set(Level("info"))

	assert.NilError(t, Set(Level("warn")))
	assert.Equal(t, root.logger.GetLevel(), logrus.WarnLevel)

	// unparsable levels fall back to debug
	assert.NilError(t, Set(Level("loud")))
	assert.Equal(t, root.logger.GetLevel(), logrus.DebugLevel)
}

func TestFileConsoleIsNoop(t *testing.T) {
	var buf bytes.Buffer
	assert.NilError(t, Set(Output(&buf)))
	defer Set(Output(os.Stderr))

	assert.NilError(t, Set(File("console")))
	New("test").Warn("still here")
	assert.Check(t, is.Contains(buf.String(), "still here"))
}
