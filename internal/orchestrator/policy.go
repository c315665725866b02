package orchestrator

import (
	"strings"
	"unicode"
)

var commandPersonas = map[Command]Persona{
	CommandAnalyze:      PersonaAnalyzer,
	CommandBuild:        PersonaArchitect,
	CommandImplement:    PersonaFrontend,
	CommandImprove:      PersonaRefactorer,
	CommandDesign:       PersonaFrontend,
	CommandTask:         PersonaArchitect,
	CommandTroubleshoot: PersonaAnalyzer,
	CommandExplain:      PersonaMentor,
	CommandCleanup:      PersonaRefactorer,
	CommandDocument:     PersonaScribe,
	CommandEstimate:     PersonaArchitect,
	CommandTest:         PersonaQA,
	CommandGit:          PersonaDevOps,
	CommandIndex:        PersonaMentor,
	CommandLoad:         PersonaAnalyzer,
	CommandSpawn:        PersonaArchitect,
}

var commandCapabilities = map[Command][]Capability{
	CommandAnalyze:      {CapabilitySequential, CapabilityContext7},
	CommandBuild:        {CapabilityContext7, CapabilityMagic},
	CommandImplement:    {CapabilityContext7, CapabilityMagic},
	CommandImprove:      {CapabilitySequential, CapabilityContext7},
	CommandDesign:       {CapabilityMagic, CapabilityContext7},
	CommandTask:         {CapabilitySequential},
	CommandTroubleshoot: {CapabilitySequential},
	CommandExplain:      {CapabilityContext7},
	CommandCleanup:      {CapabilitySequential},
	CommandDocument:     {CapabilityContext7},
	CommandEstimate:     {CapabilitySequential, CapabilityContext7},
	CommandTest:         {CapabilityPlaywright, CapabilitySequential},
	CommandGit:          {CapabilitySequential},
	CommandIndex:        {CapabilityContext7},
	CommandLoad:         {CapabilitySequential},
	CommandSpawn:        {CapabilitySequential},
}

var personaCapabilities = map[Persona][]Capability{
	PersonaArchitect:   {CapabilitySequential, CapabilityContext7},
	PersonaFrontend:    {CapabilityMagic, CapabilityContext7},
	PersonaBackend:     {CapabilityContext7, CapabilitySequential},
	PersonaAnalyzer:    {CapabilitySequential},
	PersonaSecurity:    {CapabilitySequential, CapabilityContext7},
	PersonaMentor:      {CapabilityContext7},
	PersonaRefactorer:  {CapabilitySequential},
	PersonaPerformance: {CapabilityPlaywright, CapabilitySequential},
	PersonaQA:          {CapabilityPlaywright, CapabilitySequential},
	PersonaDevOps:      {CapabilitySequential},
	PersonaScribe:      {CapabilityContext7},
}

// contextRules are checked in order; the first rule with a matching keyword
// decides the persona.
var contextRules = []struct {
	persona  Persona
	keywords []string
}{
	{PersonaSecurity, []string{"security", "vulnerability", "auth", "encryption"}},
	{PersonaPerformance, []string{"performance", "optimize", "slow", "bottleneck"}},
	{PersonaBackend, []string{"api", "database", "server", "backend"}},
	{PersonaFrontend, []string{"ui", "component", "react", "frontend"}},
	{PersonaDevOps, []string{"deploy", "docker", "ci/cd", "infrastructure"}},
}

// selectPersona picks the persona for req. An explicit flag wins, then the
// command table (or fallback for commands without an entry), then keyword
// refinement over the free-text context.
func selectPersona(req Request, fallback Persona) Persona {
	if req.Flags.Persona != "" {
		return req.Flags.Persona
	}
	persona, ok := commandPersonas[req.Command]
	if !ok {
		persona = fallback
	}
	if req.Context != "" {
		persona = refinePersona(req.Context, persona)
	}
	return persona
}

func refinePersona(text string, current Persona) Persona {
	words := tokenize(text)
	for _, rule := range contextRules {
		for _, kw := range rule.keywords {
			if hasWordPrefix(words, kw) {
				return rule.persona
			}
		}
	}
	return current
}

// tokenize lowercases text and splits it on anything that is not a letter,
// digit or slash, so that "ci/cd" survives as one word.
func tokenize(text string) []string {
	return strings.FieldsFunc(strings.ToLower(text), func(r rune) bool {
		return !unicode.IsLetter(r) && !unicode.IsDigit(r) && r != '/'
	})
}

// hasWordPrefix reports whether any word starts with kw. Matching word starts
// keeps "auth" matching "authentication" while "ui" no longer hits "build".
func hasWordPrefix(words []string, kw string) bool {
	for _, w := range words {
		if strings.HasPrefix(w, kw) {
			return true
		}
		// second half of compounds like "web/api"
		for _, part := range strings.Split(w, "/") {
			if part != w && strings.HasPrefix(part, kw) {
				return true
			}
		}
	}
	return false
}

// selectCapabilities resolves the auxiliary capabilities for a request.
// The result is always a subset of enabled.
func selectCapabilities(req Request, persona Persona, enabled map[Capability]bool) []Capability {
	f := req.Flags
	switch {
	case f.All:
		return enabledInOrder(enabled)
	case len(f.explicitCapabilities()) > 0:
		return filterEnabled(f.explicitCapabilities(), enabled)
	case f.None:
		return []Capability{}
	}

	seen := make(map[Capability]bool)
	var recommended []Capability
	for _, list := range [][]Capability{commandCapabilities[req.Command], personaCapabilities[persona]} {
		for _, c := range list {
			if !seen[c] {
				seen[c] = true
				recommended = append(recommended, c)
			}
		}
	}
	return filterEnabled(recommended, enabled)
}

func filterEnabled(caps []Capability, enabled map[Capability]bool) []Capability {
	out := make([]Capability, 0, len(caps))
	for _, c := range caps {
		if enabled[c] {
			out = append(out, c)
		}
	}
	return out
}

func enabledInOrder(enabled map[Capability]bool) []Capability {
	return filterEnabled(AllCapabilities, enabled)
}

// selectTier applies the tier policy. Rules are evaluated top to bottom.
func selectTier(req Request, persona Persona) Tier {
	switch {
	case req.Flags.Ultrathink || req.Flags.SafeMode ||
		persona == PersonaSecurity || persona == PersonaArchitect:
		return TierPremium
	case req.Command == CommandImplement || req.Command == CommandBuild || req.Command == CommandImprove ||
		persona == PersonaFrontend || persona == PersonaBackend:
		return TierStandard
	case req.Command == CommandExplain || req.Command == CommandIndex || req.Flags.AnswerOnly:
		return TierLight
	default:
		return TierStandard
	}
}
