package taskplanner

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os/exec"
	"strings"
	"time"

	"switchyard/pkg/logging"
)

const subsystem = "TaskPlanner"

// execCommandContext and lookPath are variables so tests can replace them.
var (
	execCommandContext = exec.CommandContext
	lookPath           = exec.LookPath
)

// Config describes how to invoke the planner CLI.
type Config struct {
	Command string
	// Args are placed before every subcommand, e.g. a config file flag.
	Args    []string
	WorkDir string
	Timeout time.Duration
}

// Planner wraps an external task-planning CLI that prints JSON.
type Planner struct {
	cfg  Config
	path string
}

// New resolves the CLI on PATH. It fails when the CLI is not installed, which
// leaves the task-planner service failed until the background retry finds it.
func New(cfg Config) (*Planner, error) {
	if cfg.Command == "" {
		return nil, errors.New("task planner command is not configured")
	}
	path, err := lookPath(cfg.Command)
	if err != nil {
		return nil, fmt.Errorf("%s not found in PATH: %w", cfg.Command, err)
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = 30 * time.Second
	}
	return &Planner{cfg: cfg, path: path}, nil
}

func (p *Planner) run(ctx context.Context, subcommand string, args ...string) ([]byte, error) {
	ctx, cancel := context.WithTimeout(ctx, p.cfg.Timeout)
	defer cancel()

	argv := make([]string, 0, len(p.cfg.Args)+1+len(args))
	argv = append(argv, p.cfg.Args...)
	argv = append(argv, subcommand)
	argv = append(argv, args...)

	cmd := execCommandContext(ctx, p.path, argv...)
	cmd.Dir = p.cfg.WorkDir
	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	start := time.Now()
	logging.Debug(subsystem, "Running %s %s", p.cfg.Command, strings.Join(argv, " "))
	err := cmd.Run()
	if stderr.Len() > 0 {
		logging.Warn(subsystem, "%s %s stderr: %s", p.cfg.Command, subcommand, strings.TrimSpace(stderr.String()))
	}
	if err != nil {
		if ctx.Err() != nil {
			err = ctx.Err()
		}
		return nil, fmt.Errorf("%s %s failed after %s: %w", p.cfg.Command, subcommand, logging.Since(start), err)
	}
	logging.Debug(subsystem, "%s %s completed in %s", p.cfg.Command, subcommand, logging.Since(start))
	return bytes.TrimSpace(stdout.Bytes()), nil
}

// List returns the planner's tasks, optionally filtered by status.
func (p *Planner) List(ctx context.Context, status string, withSubtasks bool) ([]Task, error) {
	args := []string{"--json"}
	if status != "" {
		args = append(args, "--status="+status)
	}
	if withSubtasks {
		args = append(args, "--with-subtasks")
	}
	out, err := p.run(ctx, "list", args...)
	if err != nil {
		return nil, err
	}
	tasks, err := parseTaskList(out)
	if err != nil {
		return nil, fmt.Errorf("parsing task list: %w", err)
	}
	return tasks, nil
}

// Next returns the next task to work on, or nil when there is none.
func (p *Planner) Next(ctx context.Context) (*Task, error) {
	out, err := p.run(ctx, "next", "--json")
	if err != nil {
		return nil, err
	}
	task, err := parseTask(out, "nextTask")
	if err != nil {
		return nil, fmt.Errorf("parsing next task: %w", err)
	}
	return task, nil
}

// Show returns a single task, or nil when the planner prints nothing.
func (p *Planner) Show(ctx context.Context, id string) (*Task, error) {
	if id == "" {
		return nil, errors.New("task id is required")
	}
	out, err := p.run(ctx, "show", id, "--json")
	if err != nil {
		return nil, err
	}
	task, err := parseTask(out, "task")
	if err != nil {
		return nil, fmt.Errorf("parsing task %s: %w", id, err)
	}
	return task, nil
}

// SetStatus changes the status of a task.
func (p *Planner) SetStatus(ctx context.Context, id, status string) error {
	if id == "" || status == "" {
		return errors.New("task id and status are required")
	}
	_, err := p.run(ctx, "set-status", "--id="+id, "--status="+status)
	return err
}

// parseTaskList accepts a bare array or an object with a "tasks" array.
func parseTaskList(data []byte) ([]Task, error) {
	if len(data) == 0 {
		return []Task{}, nil
	}
	if data[0] == '[' {
		var tasks []Task
		if err := json.Unmarshal(data, &tasks); err != nil {
			return nil, err
		}
		return tasks, nil
	}
	var wrapped struct {
		Tasks []Task `json:"tasks"`
	}
	if err := json.Unmarshal(data, &wrapped); err != nil {
		return nil, err
	}
	if wrapped.Tasks == nil {
		return []Task{}, nil
	}
	return wrapped.Tasks, nil
}

// parseTask accepts null, a bare task or an object wrapping the task under key.
func parseTask(data []byte, key string) (*Task, error) {
	if len(data) == 0 || string(data) == "null" {
		return nil, nil
	}
	var envelope map[string]json.RawMessage
	if err := json.Unmarshal(data, &envelope); err != nil {
		return nil, err
	}
	if inner, ok := envelope[key]; ok {
		data = inner
		if string(data) == "null" {
			return nil, nil
		}
	}
	var task Task
	if err := json.Unmarshal(data, &task); err != nil {
		return nil, err
	}
	return &task, nil
}
