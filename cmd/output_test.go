package cmd

import (
	"bytes"
	"encoding/json"
	"io"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/truckplan/truckplan/plan"
)

func TestWriteJSON_StdoutWhenNoPath(t *testing.T) {
	old := os.Stdout
	r, w, _ := os.Pipe()
	os.Stdout = w

	err := writeJSON(map[string]int{"trucks": 2}, "")

	_ = w.Close()
	os.Stdout = old
	var buf bytes.Buffer
	_, _ = io.Copy(&buf, r)

	assert.NoError(t, err)
	assert.Contains(t, buf.String(), `"trucks": 2`)
}

func TestWriteJSON_File(t *testing.T) {
	path := filepath.Join(t.TempDir(), "plan.json")
	require.NoError(t, writeJSON(map[string]int{"trucks": 2}, path))

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	var got map[string]int
	require.NoError(t, json.Unmarshal(data, &got))
	assert.Equal(t, 2, got["trucks"])
}

func TestWriteLoadListCSV_RendersRows(t *testing.T) {
	rows := []plan.LoadListRow{{
		ShipDate: "2025-03-10", Carrier: "Jordan Carriers", TruckNumber: 1,
		SO: "1001", Line: "1", Customer: "Acme Steel", City: "Dallas", State: "TX",
		Pieces: 4, Weight: 8000, Width: 48.5,
	}}

	var buf bytes.Buffer
	require.NoError(t, writeLoadListCSV(&buf, rows))

	lines := bytes.Split(bytes.TrimSpace(buf.Bytes()), []byte("\n"))
	require.Len(t, lines, 2)
	assert.Equal(t, "ShipDate,Carrier,TruckNumber,SO,Line,Customer,City,State,Pieces,Weight,Width,Grade,Size,EarliestDue,LatestDue", string(lines[0]))
	assert.Equal(t, "2025-03-10,Jordan Carriers,1,1001,1,Acme Steel,Dallas,TX,4,8000,48.5,,,,", string(lines[1]))
}
