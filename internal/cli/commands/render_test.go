package commands

import (
	"bytes"
	"encoding/json"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pqdesk/pqdesk/internal/tabular"
)

func sampleResult() *tabular.Result {
	res := tabular.New()
	res.Replace(
		[]tabular.Column{
			{Name: "id", Type: "BIGINT"},
			{Name: "amount", Type: "DOUBLE", Nullable: true},
			{Name: "region", Type: "VARCHAR", Nullable: true},
		},
		[][]any{
			{int64(1), 10.5, "EU"},
			{int64(2), nil, nil},
		},
	)
	return res
}

func TestRenderResult_Table(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, renderResult(&buf, sampleResult(), "table"))

	out := buf.String()
	assert.Contains(t, out, "ID")
	assert.Contains(t, out, "10.5")
	assert.Contains(t, out, "EU")
	assert.Contains(t, out, "(2 rows)")
}

func TestRenderResult_TableEmpty(t *testing.T) {
	res := tabular.New()
	res.Replace([]tabular.Column{{Name: "id", Type: "BIGINT"}}, nil)

	var buf bytes.Buffer
	require.NoError(t, renderResult(&buf, res, "table"))
	assert.Equal(t, "(0 rows)\n", buf.String())
}

func TestRenderResult_JSON(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, renderResult(&buf, sampleResult(), "json"))

	var records []map[string]any
	require.NoError(t, json.Unmarshal(buf.Bytes(), &records))
	require.Len(t, records, 2)
	assert.Equal(t, float64(1), records[0]["id"])
	assert.Equal(t, 10.5, records[0]["amount"])
	assert.Equal(t, "EU", records[0]["region"])
	assert.Nil(t, records[1]["amount"])
}

func TestRenderResult_CSV(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, renderResult(&buf, sampleResult(), "csv"))

	lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
	require.Len(t, lines, 3)
	assert.Equal(t, "id,amount,region", lines[0])
	assert.Equal(t, "1,10.5,EU", lines[1])
	assert.Equal(t, "2,,", lines[2])
}

func TestRenderResult_Markdown(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, renderResult(&buf, sampleResult(), "md"))

	out := buf.String()
	assert.Contains(t, out, "| ID |")
	assert.Contains(t, out, "| EU |")
}

func TestRenderResult_UnknownFormat(t *testing.T) {
	var buf bytes.Buffer
	err := renderResult(&buf, sampleResult(), "xml")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "xml")
}

func TestFormatValue(t *testing.T) {
	stamp := time.Date(2024, 3, 1, 13, 45, 10, 0, time.UTC)
	tests := []struct {
		name string
		in   any
		want string
	}{
		{"nil", nil, ""},
		{"string", "x", "x"},
		{"float compact", 10.5, "10.5"},
		{"float integral", 4.0, "4"},
		{"int", int64(7), "7"},
		{"bool", true, "true"},
		{"time", stamp, "2024-03-01T13:45:10Z"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, formatValue(tt.in))
		})
	}
}
