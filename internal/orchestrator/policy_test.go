package orchestrator

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSelectPersona(t *testing.T) {
	tests := []struct {
		name string
		req  Request
		want Persona
	}{
		{"command default", Request{Command: CommandAnalyze}, PersonaAnalyzer},
		{"explain", Request{Command: CommandExplain}, PersonaMentor},
		{"git", Request{Command: CommandGit}, PersonaDevOps},
		{"explicit flag wins", Request{Command: CommandAnalyze, Context: "auth bug", Flags: Flags{Persona: PersonaScribe}}, PersonaScribe},
		{"security keyword", Request{Command: CommandImplement, Context: "Fix the Authentication flow"}, PersonaSecurity},
		{"security beats performance", Request{Command: CommandImprove, Context: "slow encryption routine"}, PersonaSecurity},
		{"performance beats backend", Request{Command: CommandImprove, Context: "optimize database queries"}, PersonaPerformance},
		{"backend", Request{Command: CommandDesign, Context: "new REST api"}, PersonaBackend},
		{"frontend", Request{Command: CommandAnalyze, Context: "a React component"}, PersonaFrontend},
		{"devops", Request{Command: CommandTask, Context: "set up the ci/cd pipeline"}, PersonaDevOps},
		{"no false match inside words", Request{Command: CommandExplain, Context: "rebuild the guide"}, PersonaMentor},
		{"no keyword keeps default", Request{Command: CommandDocument, Context: "write release notes"}, PersonaScribe},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, selectPersona(tt.req, PersonaArchitect))
		})
	}

	assert.Equal(t, PersonaQA, selectPersona(Request{Command: "unlisted"}, PersonaQA), "fallback for commands without a table entry")
}

func TestSelectCapabilities(t *testing.T) {
	all := map[Capability]bool{
		CapabilityContext7: true, CapabilitySequential: true, CapabilityMagic: true, CapabilityPlaywright: true,
	}
	noMagic := map[Capability]bool{CapabilityContext7: true, CapabilitySequential: true}

	tests := []struct {
		name    string
		req     Request
		persona Persona
		enabled map[Capability]bool
		want    []Capability
	}{
		{"union keeps command order first", Request{Command: CommandTest}, PersonaQA, all,
			[]Capability{CapabilityPlaywright, CapabilitySequential}},
		{"union deduplicates", Request{Command: CommandImplement}, PersonaFrontend, all,
			[]Capability{CapabilityContext7, CapabilityMagic}},
		{"union with persona extras", Request{Command: CommandExplain}, PersonaSecurity, all,
			[]Capability{CapabilityContext7, CapabilitySequential}},
		{"filtered by enabled", Request{Command: CommandDesign}, PersonaFrontend, noMagic,
			[]Capability{CapabilityContext7}},
		{"all flag", Request{Command: CommandGit, Flags: Flags{All: true}}, PersonaDevOps, noMagic,
			[]Capability{CapabilityContext7, CapabilitySequential}},
		{"none flag", Request{Command: CommandAnalyze, Flags: Flags{None: true}}, PersonaAnalyzer, all,
			[]Capability{}},
		{"explicit flags", Request{Command: CommandAnalyze, Flags: Flags{Magic: true, Playwright: true}}, PersonaAnalyzer, all,
			[]Capability{CapabilityMagic, CapabilityPlaywright}},
		{"explicit flags beat none", Request{Command: CommandAnalyze, Flags: Flags{Context7: true, None: true}}, PersonaAnalyzer, all,
			[]Capability{CapabilityContext7}},
		{"explicit flags limited to enabled", Request{Command: CommandAnalyze, Flags: Flags{Magic: true}}, PersonaAnalyzer, noMagic,
			[]Capability{}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := selectCapabilities(tt.req, tt.persona, tt.enabled)
			assert.Equal(t, tt.want, got)
			for _, c := range got {
				assert.True(t, tt.enabled[c], "%s is not enabled", c)
			}
		})
	}
}

func TestSelectTier(t *testing.T) {
	tests := []struct {
		name    string
		req     Request
		persona Persona
		want    Tier
	}{
		{"ultrathink", Request{Command: CommandExplain, Flags: Flags{Ultrathink: true}}, PersonaMentor, TierPremium},
		{"safe mode", Request{Command: CommandIndex, Flags: Flags{SafeMode: true}}, PersonaMentor, TierPremium},
		{"security persona", Request{Command: CommandExplain}, PersonaSecurity, TierPremium},
		{"architect persona", Request{Command: CommandBuild}, PersonaArchitect, TierPremium},
		{"implement", Request{Command: CommandImplement}, PersonaQA, TierStandard},
		{"backend persona", Request{Command: CommandExplain}, PersonaBackend, TierStandard},
		{"explain", Request{Command: CommandExplain}, PersonaMentor, TierLight},
		{"index", Request{Command: CommandIndex}, PersonaMentor, TierLight},
		{"answer only", Request{Command: CommandAnalyze, Flags: Flags{AnswerOnly: true}}, PersonaAnalyzer, TierLight},
		{"default", Request{Command: CommandTest}, PersonaQA, TierStandard},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, selectTier(tt.req, tt.persona))
		})
	}
}

func TestParseCommandAndPersona(t *testing.T) {
	c, err := ParseCommand("/Analyze")
	require.NoError(t, err)
	assert.Equal(t, CommandAnalyze, c)

	_, err = ParseCommand("deploy")
	assert.Error(t, err)

	p, err := ParsePersona("QA")
	require.NoError(t, err)
	assert.Equal(t, PersonaQA, p)

	_, err = ParsePersona("wizard")
	assert.Error(t, err)
}

func TestParseCapability(t *testing.T) {
	c, err := ParseCapability(" Playwright ")
	require.NoError(t, err)
	assert.Equal(t, CapabilityPlaywright, c)

	_, err = ParseCapability("browser")
	assert.Error(t, err)
}
