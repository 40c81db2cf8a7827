package ui

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestKeyValueBlock(t *testing.T) {
	result := KeyValueBlock("Raffle", [][2]string{
		{"State", "OPEN"},
		{"Players", "4"},
		{"Pot", "0.4 ETH"},
	})
	assert.Contains(t, result, "Raffle")
	for _, s := range []string{"State", "OPEN", "Players", "4", "Pot", "0.4 ETH"} {
		assert.Contains(t, result, s)
	}
	assert.Less(t, strings.Index(result, "State"), strings.Index(result, "Players"))
	assert.Less(t, strings.Index(result, "Players"), strings.Index(result, "Pot"))
	// rounded border corners
	assert.Contains(t, result, "╭")
	assert.Contains(t, result, "╰")
}

func TestKeyValueBlockWithoutTitle(t *testing.T) {
	result := KeyValueBlock("", [][2]string{{"Key", "Value"}})
	assert.Contains(t, result, "Key")
	assert.Contains(t, result, "Value")
}

func TestNewTable(t *testing.T) {
	tbl := NewTable([]Column{{Title: "Name", Width: 10}, {Title: "Address", Width: 14}})
	assert.Len(t, tbl.Columns, 2)
	assert.Empty(t, tbl.Rows)
	assert.Equal(t, -1, tbl.SelIdx)
}

func TestTableRender(t *testing.T) {
	tbl := NewTable([]Column{
		{Title: "#", Width: 3},
		{Title: "Player", Width: 14},
	})
	tbl.AddRow(Row{"0", "0x7099…79C8"})
	tbl.AddRow(Row{"1", "0x3C44…93BC"})
	tbl.AddRow(Row{"2"})

	result := tbl.Render()
	require.Contains(t, result, "Player")
	assert.Contains(t, result, "---")
	assert.Less(t, strings.Index(result, "0x7099"), strings.Index(result, "0x3C44"))
	assert.Equal(t, 5, strings.Count(result, "\n"), "header, divider and three rows")
}

func TestTableCutsLongPlainCells(t *testing.T) {
	tbl := NewTable([]Column{{Title: "Event", Width: 5}})
	tbl.AddRow(Row{"RequestedRaffleWinner"})
	result := tbl.Render()
	assert.Contains(t, result, "Reque")
	assert.NotContains(t, result, "RequestedRaffleWinner")
}

func TestTableSelectedRow(t *testing.T) {
	tbl := NewTable([]Column{{Title: "Name", Width: 10}})
	tbl.AddRow(Row{"deployer"})
	tbl.AddRow(Row{"player"})
	tbl.SelIdx = 1
	result := tbl.Render()
	assert.Contains(t, result, "deployer")
	assert.Contains(t, result, "player")
}
