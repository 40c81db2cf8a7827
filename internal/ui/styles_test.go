package ui

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestMessagePrefixes(t *testing.T) {
	cases := []struct {
		name   string
		render func(string) string
		prefix string
	}{
		{"success", Success, "✓"},
		{"warn", Warn, "⚠"},
		{"err", Err, "✗"},
		{"info", Info, "ℹ"},
		{"hint", Hint, "→"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			out := tc.render("raffle deployed")
			assert.Contains(t, out, tc.prefix)
			assert.Contains(t, out, "raffle deployed")
		})
	}
}

func TestInlineFormattersKeepText(t *testing.T) {
	assert.Contains(t, Addr("0xABCDEF"), "0xABCDEF")
	assert.Contains(t, Val("0.4 ETH"), "0.4 ETH")
	assert.Contains(t, Meta("block #12"), "block #12")
	assert.Contains(t, NetworkName("hardhat"), "hardhat")
}

func TestTruncateAddr(t *testing.T) {
	assert.Equal(t, "0xf39F…2266", TruncateAddr("0xf39Fd6e51aad88F6F4ce6aB8827279cffFb92266"))
	assert.Equal(t, "0x1234", TruncateAddr("0x1234"))
	assert.Equal(t, "", TruncateAddr(""))
}

func TestPadRIgnoresStyling(t *testing.T) {
	styled := StyleSuccess.Render("abc")
	out := padR(styled, 6)
	assert.Equal(t, styled+"   ", out)
	assert.Equal(t, "abcdef", padR("abcdef", 3))
}

func TestBanner(t *testing.T) {
	b := Banner()
	assert.NotEmpty(t, b)
	assert.Contains(t, b, "Raffle lottery")
}
