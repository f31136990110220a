package main

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func TestRootCommand_HasSubcommands(t *testing.T) {
	cmds := rootCmd.Commands()

	// Collect subcommand names.
	names := make(map[string]bool)
	for _, c := range cmds {
		names[c.Name()] = true
	}

	expected := []string{"search", "details", "reverse", "env", "interactive", "serve"}
	for _, name := range expected {
		assert.True(t, names[name], "expected subcommand %q not found", name)
	}
}

func TestRootCommand_Metadata(t *testing.T) {
	assert.Equal(t, "localities-compare", rootCmd.Use)
	assert.NotEmpty(t, rootCmd.Short)
	assert.NotEmpty(t, rootCmd.Long)
	assert.Contains(t, rootCmd.Long, "LOCALITIES_")
	assert.Equal(t, version, rootCmd.Version)
	require.NotNil(t, rootCmd.PersistentFlags().Lookup("log-level"))
}

func TestRootCommand_LogLevelOverride(t *testing.T) {
	loadTestConfig(t)
	withConfig(t, nil)
	t.Cleanup(func() {
		logLevel = ""
		zap.ReplaceGlobals(zap.NewNop())
	})

	logLevel = "debug"
	require.NoError(t, rootCmd.PersistentPreRunE(rootCmd, nil))
	require.NotNil(t, cfg)
	assert.Equal(t, "debug", cfg.Log.Level)
	assert.True(t, zap.L().Core().Enabled(zap.DebugLevel))

	logLevel = "loud"
	assert.Error(t, rootCmd.PersistentPreRunE(rootCmd, nil))
}

func TestSearchCommand_Flags(t *testing.T) {
	for name, def := range map[string]string{
		"env":      "dev",
		"kind":     "autocomplete",
		"output":   "text",
		"extended": "false",
		"bias":     "false",
	} {
		flag := searchCmd.Flags().Lookup(name)
		require.NotNil(t, flag, "search command should have --%s flag", name)
		assert.Equal(t, def, flag.DefValue, name)
	}
	for _, name := range []string{"country", "type", "center", "lang", "pr"} {
		assert.NotNil(t, searchCmd.Flags().Lookup(name), "search command should have --%s flag", name)
	}
}

func TestDetailsCommand_Flags(t *testing.T) {
	flag := detailsCmd.Flags().Lookup("production")
	require.NotNil(t, flag)
	assert.Equal(t, "false", flag.DefValue)
	assert.NotNil(t, detailsCmd.Flags().Lookup("field"))
}

func TestServeCommand_Flags(t *testing.T) {
	flag := serveCmd.Flags().Lookup("port")
	require.NotNil(t, flag, "serve command should have --port flag")
	assert.Equal(t, "0", flag.DefValue)
}

func TestEnvCommand_HasSubcommands(t *testing.T) {
	names := make(map[string]bool)
	for _, c := range envCmd.Commands() {
		names[c.Name()] = true
	}
	assert.True(t, names["list"])
	assert.True(t, names["pr"])
}

func TestParseLatLng(t *testing.T) {
	p, err := parseLatLng(" 43.3, 5.4 ")
	require.NoError(t, err)
	assert.InDelta(t, 43.3, p.Lat, 0.0001)
	assert.InDelta(t, 5.4, p.Lng, 0.0001)

	_, err = parseLatLng("43.3")
	assert.Error(t, err)
	_, err = parseLatLng("a,b")
	assert.Error(t, err)
}

func TestListHelpers(t *testing.T) {
	assert.Equal(t, []string{"FR", "DE"}, upperAll([]string{" fr", "", "de"}))
	assert.Nil(t, upperAll(nil))
	assert.Equal(t, []string{"a", "b", "c"}, listParam([]string{"a,b", " c "}))
	assert.Equal(t, []string{"locality", "postal_code"}, splitPipe("locality| postal_code |"))
}
