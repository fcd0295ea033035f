package render

import (
	"bytes"
	"testing"

	"github.com/lydakis/dojutsu/internal/ipc"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func parse(t *testing.T, body string) *ipc.Result {
	t.Helper()
	res, err := ipc.ParseResult([]byte(body))
	require.NoError(t, err)
	return res
}

func TestTextPrintsOnlyPresentStages(t *testing.T) {
	res := parse(t, `{"execution":"package main","total_time":12.34,"skills_used":["groq","kimi"]}`)

	var out bytes.Buffer
	require.NoError(t, Text(&out, res, Options{}))

	assert.Equal(t, "=== CODE ===\npackage main\n\nTime: 12.3s | Skills: groq, kimi\n", out.String())
}

func TestTextOrdersStagesByPipeline(t *testing.T) {
	res := parse(t, `{"jougan":"j","byakugan":"b","mode_sage":"m","execution":"e"}`)

	var out bytes.Buffer
	require.NoError(t, Text(&out, res, Options{}))

	s := out.String()
	assert.Less(t, bytes.Index(out.Bytes(), []byte("BYAKUGAN")), bytes.Index(out.Bytes(), []byte("MODE SAGE")))
	assert.Less(t, bytes.Index(out.Bytes(), []byte("MODE SAGE")), bytes.Index(out.Bytes(), []byte("JOUGAN")))
	assert.Less(t, bytes.Index(out.Bytes(), []byte("JOUGAN")), bytes.Index(out.Bytes(), []byte("CODE")))
	assert.Contains(t, s, "Time: (none) | Skills: (none)")
}

func TestFooterShowsEmptySkillsAndTiming(t *testing.T) {
	res := parse(t, `{"skills_used":[],"timing":{"execution":3.0,"byakugan":1.0,"custom":0.5}}`)

	assert.Equal(t, "Time: (none) | Skills: [] | Stages: byakugan 1.0s, custom 0.5s, execution 3.0s", Footer(res))
}

func TestTextRendersMarkdown(t *testing.T) {
	res := parse(t, `{"byakugan":"# Layers\n\n- transport\n- storage"}`)

	var out bytes.Buffer
	require.NoError(t, Text(&out, res, Options{Markdown: true, Style: "notty", Width: 60}))

	assert.Contains(t, out.String(), "=== BYAKUGAN ===")
	assert.Contains(t, out.String(), "transport")
	assert.Contains(t, out.String(), "storage")
}

func TestJSONWritesRawDocument(t *testing.T) {
	res := parse(t, `{"execution":"x","unknown":true}`)

	var out bytes.Buffer
	require.NoError(t, JSON(&out, res))
	assert.Equal(t, "{\"execution\":\"x\",\"unknown\":true}\n", out.String())
}
