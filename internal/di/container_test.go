package di

import (
	"testing"

	"github.com/spf13/cobra"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mikey/mailpilot/internal/config"
	"github.com/mikey/mailpilot/internal/core"
	"github.com/mikey/mailpilot/internal/service"
)

func TestRegisterFlags(t *testing.T) {
	cmd := &cobra.Command{Use: "test"}
	flags := RegisterFlags(cmd)

	require.NoError(t, cmd.PersistentFlags().Parse([]string{"--providers", "OpenAI,gemini", "-v"}))
	assert.Equal(t, []string{"OpenAI", "gemini"}, flags.Providers)
	assert.True(t, flags.Verbose)
	assert.False(t, flags.Offline)
}

func TestApplyFlags(t *testing.T) {
	cfg := config.NewFromViper(config.NewEmptyViper())
	applyFlags(cfg, &CLIFlags{Providers: []string{"Gemini", " ", "openai"}})

	assert.Equal(t, []string{"gemini", "openai"}, cfg.GetProviderOrder())
	assert.True(t, cfg.GetBool("gemini.enabled"))
	assert.True(t, cfg.GetBool("openai.enabled"))
	assert.False(t, cfg.GetBool("anthropic.enabled"))
	assert.False(t, cfg.GetCache().Enabled)

	cfg = config.NewFromViper(config.NewEmptyViper())
	applyFlags(cfg, &CLIFlags{Offline: true, Cache: true, Providers: []string{"openai"}})
	assert.Empty(t, cfg.GetProviderOrder())
	assert.True(t, cfg.GetCache().Enabled)
}

func TestBuildCLIContainer_Offline(t *testing.T) {
	container, err := BuildCLIContainer(&CLIFlags{Offline: true})
	require.NoError(t, err)

	err = container.Invoke(func(orch *service.Orchestrator, cache core.CacheRepository) {
		assert.Empty(t, orch.Providers())
		assert.Nil(t, cache)
	})
	require.NoError(t, err)
}

func TestBuildCLIContainer_MissingConfigFile(t *testing.T) {
	container, err := BuildCLIContainer(&CLIFlags{ConfigFile: "/nonexistent/mailpilot.yaml"})
	require.NoError(t, err)

	err = container.Invoke(func(*config.Config) {})
	assert.Error(t, err)
}
