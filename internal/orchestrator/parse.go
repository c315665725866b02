package orchestrator

import (
	"fmt"
	"strings"

	"switchyard/pkg/logging"
)

// ParseRequestLine turns a chat line into a Request.
//
// A line starting with "/" names the command; "--" words set flags and the
// remaining words become Args and, joined, the Context. A line without a
// command is an explain request whose Context is the whole line.
//
//	/implement login form --persona-frontend --magic
func ParseRequestLine(line string) (Request, error) {
	line = strings.TrimSpace(line)
	if line == "" {
		return Request{}, fmt.Errorf("empty request")
	}
	if !strings.HasPrefix(line, "/") {
		return Request{Command: CommandExplain, Context: line}, nil
	}

	fields := strings.Fields(line)
	cmd, err := ParseCommand(fields[0])
	if err != nil {
		return Request{}, err
	}

	req := Request{Command: cmd}
	for _, field := range fields[1:] {
		if !strings.HasPrefix(field, "--") {
			req.Args = append(req.Args, field)
			continue
		}
		if err := applyFlag(&req.Flags, strings.TrimPrefix(field, "--")); err != nil {
			return Request{}, err
		}
	}
	req.Context = strings.Join(req.Args, " ")
	return req, nil
}

func applyFlag(f *Flags, name string) error {
	if persona, ok := strings.CutPrefix(name, "persona-"); ok {
		p, err := ParsePersona(persona)
		if err != nil {
			return err
		}
		f.Persona = p
		return nil
	}

	switch name {
	case "think":
		f.Think = true
	case "think-hard":
		f.ThinkHard = true
	case "ultrathink":
		f.Ultrathink = true
	case "c7", "context7":
		f.Context7 = true
	case "seq", "sequential":
		f.Sequential = true
	case "magic":
		f.Magic = true
	case "play", "playwright":
		f.Playwright = true
	case "all-mcp":
		f.All = true
	case "no-mcp":
		f.None = true
	case "safe-mode":
		f.SafeMode = true
	case "answer-only":
		f.AnswerOnly = true
	default:
		logging.Debug(subsystem, "Ignoring unknown flag --%s", name)
	}
	return nil
}
