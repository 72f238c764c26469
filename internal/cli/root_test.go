package cli

import (
	"bytes"
	"context"
	"io"
	"log/slog"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/eshaffer321/cartsync/internal/adapters/page"
	"github.com/eshaffer321/cartsync/internal/application/cart"
	"github.com/eshaffer321/cartsync/internal/domain/pricing"
	"github.com/eshaffer321/cartsync/internal/infrastructure/config"
)

func TestRootCommand(t *testing.T) {
	cmd := NewRootCommand()
	require.NotNil(t, cmd)
	assert.Equal(t, "cartsync", cmd.Use)
}

func TestCommandPresence(t *testing.T) {
	cmd := NewRootCommand()
	commands := [][]string{
		{"cart", "show"},
		{"cart", "add"},
		{"cart", "set"},
		{"cart", "inc"},
		{"cart", "dec"},
		{"cart", "rm"},
		{"cart", "press"},
		{"checkout"},
		{"devserver"},
	}

	for _, path := range commands {
		t.Run(strings.Join(path, " "), func(t *testing.T) {
			subCmd, _, err := cmd.Find(path)
			require.NoError(t, err)
			assert.Equal(t, path[len(path)-1], subCmd.Name())
		})
	}
}

func TestGlobalFlags(t *testing.T) {
	cmd := NewRootCommand()

	for _, name := range []string{"config", "base-url", "verbose"} {
		assert.NotNil(t, cmd.PersistentFlags().Lookup(name), name)
	}
	assert.Equal(t, "v", cmd.PersistentFlags().Lookup("verbose").Shorthand)

	rm, _, err := cmd.Find([]string{"cart", "rm"})
	require.NoError(t, err)
	assert.NotNil(t, rm.Flags().Lookup("yes"))

	co, _, err := cmd.Find([]string{"checkout"})
	require.NoError(t, err)
	assert.NotNil(t, co.Flags().Lookup("field"))
	assert.NotNil(t, co.Flags().Lookup("card"))
}

func TestRootCommand_BadConfig(t *testing.T) {
	cmd := NewRootCommand()
	cmd.SetOut(io.Discard)
	cmd.SetErr(io.Discard)
	cmd.SetArgs([]string{"--config", "does-not-exist.yaml", "cart", "show"})

	err := cmd.Execute()
	assert.ErrorContains(t, err, "load config")
}

func TestParseFieldFlags(t *testing.T) {
	got, err := ParseFieldFlags([]string{"email=a@b.co", " full_name =Ada", "note=x=y"})
	require.NoError(t, err)
	assert.Equal(t, [][2]string{{"email", "a@b.co"}, {"full_name", "Ada"}, {"note", "x=y"}}, got)

	_, err = ParseFieldFlags([]string{"=value"})
	assert.Error(t, err)
}

func TestParseKeys(t *testing.T) {
	got, err := ParseKeys([]string{"+", "DOWN", " ctrl+del ", "ctrl+backspace"})
	require.NoError(t, err)
	assert.Equal(t, []cart.Key{
		{Name: "ArrowUp"},
		{Name: "ArrowDown"},
		{Name: "Delete", Ctrl: true},
		{Name: "Backspace", Ctrl: true},
	}, got)

	_, err = ParseKeys([]string{"+", "delete"})
	assert.ErrorContains(t, err, `unknown key "delete"`)
}

func TestTerminalPage_Confirm(t *testing.T) {
	prompt := cart.Prompt{Title: "Remove Item", Message: "Sure?"}

	tests := []struct {
		input string
		want  bool
	}{
		{"y\n", true},
		{"YES\n", true},
		{"n\n", false},
		{"\n", false},
		{"", false},
	}
	for _, tt := range tests {
		var out bytes.Buffer
		p := newTerminalPage(&out, strings.NewReader(tt.input), false)
		got, err := p.Confirm(context.Background(), prompt)
		require.NoError(t, err)
		assert.Equal(t, tt.want, got, "input %q", tt.input)
		assert.Equal(t, "Remove Item: Sure? [y/N] ", out.String())
	}

	p := newTerminalPage(io.Discard, strings.NewReader(""), true)
	ok, err := p.Confirm(context.Background(), prompt)
	require.NoError(t, err)
	assert.True(t, ok)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err = p.Confirm(ctx, prompt)
	assert.ErrorIs(t, err, context.Canceled)
}

func TestTerminalPage_NotifyAndReload(t *testing.T) {
	var out bytes.Buffer
	p := newTerminalPage(&out, strings.NewReader(""), false)

	p.Notify(cart.Notification{Level: cart.LevelError, Message: cart.MsgUpdateFailed})
	p.ShowTotals(pricing.Totals{Subtotal: 100})
	p.Reload()

	assert.Equal(t, "✗ Failed to update cart\n", out.String())
	assert.Equal(t, pricing.Money(100), p.Totals().Subtotal)
	assert.True(t, p.Reloaded())
}

func TestTerminalPage_ShowCachedTotals(t *testing.T) {
	snap := pricing.Totals{Subtotal: pricing.Cents(12, 0), GrandTotal: pricing.Cents(13, 20)}

	var quiet bytes.Buffer
	p := newTerminalPage(&quiet, strings.NewReader(""), false)
	p.ShowCachedTotals(snap)
	assert.Empty(t, quiet.String())
	assert.Zero(t, p.Totals(), "snapshot is not the page totals")

	var out bytes.Buffer
	p = newTerminalPage(&out, strings.NewReader(""), false)
	p.showCached = true
	p.ShowCachedTotals(snap)
	assert.Contains(t, out.String(), "Last known totals (cached):")
	assert.Contains(t, out.String(), "$12.00")
}

func TestResolvePolicy(t *testing.T) {
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	withTooltip := &page.Cart{Threshold: pricing.Cents(100, 0)}

	cfg := config.Defaults().Cart
	policy, warnings, err := resolvePolicy(cfg, withTooltip, logger)
	require.NoError(t, err)
	assert.Equal(t, pricing.Cents(250, 0), policy.Threshold, "configured value wins")
	assert.Empty(t, warnings)

	cfg.DeliveryThreshold = ""
	policy, warnings, err = resolvePolicy(cfg, withTooltip, logger)
	require.NoError(t, err)
	assert.Equal(t, pricing.Cents(100, 0), policy.Threshold, "tooltip when unset")
	assert.Empty(t, warnings)

	policy, warnings, err = resolvePolicy(cfg, &page.Cart{}, logger)
	require.NoError(t, err)
	assert.Equal(t, pricing.DefaultThreshold, policy.Threshold)
	require.Len(t, warnings, 1, "fallback is never silent")
}
