package logger

import (
	"bytes"
	"encoding/json"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestZerologSinkWritesFields(t *testing.T) {
	var buf bytes.Buffer
	New(&buf).Record(Event{
		Level:  LevelError,
		RunID:  "run-1",
		Op:     "insert",
		Family: "postgres",
		Object: "people",
		Rows:   3,
		Err:    errors.New("boom"),
		Msg:    "insert failed",
	})

	var line map[string]interface{}
	require.NoError(t, json.Unmarshal(buf.Bytes(), &line))
	assert.Equal(t, "error", line["level"])
	assert.Equal(t, "run-1", line["run_id"])
	assert.Equal(t, "insert", line["op"])
	assert.Equal(t, "postgres", line["family"])
	assert.Equal(t, "people", line["object"])
	assert.Equal(t, float64(3), line["rows"])
	assert.Equal(t, "boom", line["error"])
	assert.Equal(t, "insert failed", line["message"])
}

func TestMultiSkipsNilAndFansOut(t *testing.T) {
	var a, b Recorder
	s := Multi(&a, nil, &b)
	s.Record(Event{Op: "connect"})
	s.Record(Event{Op: "fetch"})

	assert.Len(t, a.Events(), 2)
	assert.Len(t, b.Filter("fetch"), 1)
}

func TestSinkFuncAndNop(t *testing.T) {
	var got []string
	SinkFunc(func(e Event) { got = append(got, e.Msg) }).Record(Event{Msg: "hi"})
	assert.Equal(t, []string{"hi"}, got)

	assert.NotPanics(t, func() { Nop().Record(Event{}) })
}

func TestLevelString(t *testing.T) {
	assert.Equal(t, "debug", LevelDebug.String())
	assert.Equal(t, "warn", LevelWarn.String())
	assert.Equal(t, "error", LevelError.String())
}

func TestPackageLoggerOutput(t *testing.T) {
	var buf bytes.Buffer
	SetOutput(&buf)
	defer SetOutput(&bytes.Buffer{})

	Warnf("table %s skipped", "users")
	assert.Contains(t, buf.String(), `"level":"warn"`)
	assert.Contains(t, buf.String(), "table users skipped")

	FromZerolog(*Logger()).Record(Event{Level: LevelInfo, Op: "state", Msg: "idle -> connecting"})
	assert.Contains(t, buf.String(), `"op":"state"`)
}
