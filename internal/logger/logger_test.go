package logger

import (
	"bytes"
	"log/slog"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestNamedCarriesComponentAndAttrs(t *testing.T) {
	var buf bytes.Buffer
	SetOutput(&buf)
	t.Cleanup(func() { SetOutput(nil) })

	Named("trader").With("symbol", "ADAUSDT").Infof("opened %s", "BUY")

	out := buf.String()
	assert.Contains(t, out, "component=trader")
	assert.Contains(t, out, "symbol=ADAUSDT")
	assert.Contains(t, out, `msg="opened BUY"`)
}

func TestSetLevelFiltersDebug(t *testing.T) {
	var buf bytes.Buffer
	SetOutput(&buf)
	t.Cleanup(func() {
		SetLevel("info")
		SetOutput(nil)
	})

	assert.True(t, SetLevel("warn"))
	Infof("hidden")
	Warnf("shown")
	assert.NotContains(t, buf.String(), "hidden")
	assert.Contains(t, buf.String(), "shown")

	assert.False(t, SetLevel("loud"))
	assert.Equal(t, slog.LevelInfo, Level())
}

func TestJSONFormat(t *testing.T) {
	var buf bytes.Buffer
	SetFormat("json", &buf)
	t.Cleanup(func() { SetFormat("text", nil) })

	Named("backtest").Infof("done")
	assert.True(t, strings.HasPrefix(buf.String(), "{"))
	assert.Contains(t, buf.String(), `"component":"backtest"`)
}
