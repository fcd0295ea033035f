// Package skills wraps the daemon functions of the dojutsu agent in typed
// calls. Argument construction and API-key sourcing live here; the wire
// protocol lives in package ipc.
package skills

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/lydakis/dojutsu/internal/config"
	"github.com/lydakis/dojutsu/internal/ipc"
)

// Daemon function names.
const (
	FuncRun         = "run"
	FuncByakugan    = "byakugan"
	FuncSkillsCount = "skills_count"
	FuncCheckSkill  = "check_skill"
	FuncVersion     = "version"
)

// Options select the LLM provider for pipeline functions.
type Options struct {
	Provider string
	Model    string
	APIKey   string
}

// Analysis is the output of a byakugan-only call. Seconds is nil when the
// daemon did not report a time.
type Analysis struct {
	Text    string
	Seconds *float64
	Result  *ipc.Result
}

// SkillCheck is the daemon's verdict on a skill document.
type SkillCheck struct {
	Safe       bool     `json:"safe"`
	Violations []string `json:"violations"`
}

// VersionInfo describes the daemon-side agent.
type VersionInfo struct {
	Version   string   `json:"version"`
	Package   string   `json:"package"`
	Providers []string `json:"providers"`
}

// Service issues typed skill calls.
type Service struct {
	caller Caller
	cfg    *config.Config
}

// NewService creates a Service. cfg supplies provider defaults and may be nil.
func NewService(caller Caller, cfg *config.Config) *Service {
	if cfg == nil {
		cfg = config.Default()
	}
	return &Service{caller: caller, cfg: cfg}
}

// Call invokes an arbitrary daemon function with positional args.
func (s *Service) Call(ctx context.Context, function string, args []string) (*ipc.Result, error) {
	return s.caller.Call(ctx, function, args)
}

// Run executes the full pipeline for task.
func (s *Service) Run(ctx context.Context, task string, opts Options) (*ipc.Result, error) {
	args, err := s.pipelineArgs(task, opts)
	if err != nil {
		return nil, err
	}
	return s.caller.Call(ctx, FuncRun, args)
}

// Byakugan runs only the structural analysis stage.
func (s *Service) Byakugan(ctx context.Context, task string, opts Options) (*Analysis, error) {
	args, err := s.pipelineArgs(task, opts)
	if err != nil {
		return nil, err
	}
	res, err := s.caller.Call(ctx, FuncByakugan, args)
	if err != nil {
		return nil, err
	}

	var payload struct {
		Time *float64 `json:"time"`
	}
	if err := res.Decode(&payload); err != nil {
		return nil, malformed(err)
	}
	analysis := &Analysis{Seconds: payload.Time, Result: res}
	if res.Byakugan != nil {
		analysis.Text = *res.Byakugan
	}
	return analysis, nil
}

// SkillsCount returns how many skills the daemon has indexed.
func (s *Service) SkillsCount(ctx context.Context) (int, error) {
	res, err := s.caller.Call(ctx, FuncSkillsCount, nil)
	if err != nil {
		return 0, err
	}
	var payload struct {
		Count *int `json:"count"`
	}
	if err := res.Decode(&payload); err != nil {
		return 0, malformed(err)
	}
	if payload.Count == nil {
		return 0, malformed(errors.New(`response has no "count"`))
	}
	return *payload.Count, nil
}

// CheckSkill asks the daemon's security scanner about a skill document.
func (s *Service) CheckSkill(ctx context.Context, content string) (*SkillCheck, error) {
	if strings.TrimSpace(content) == "" {
		return nil, fmt.Errorf("%w: skill content is empty", ErrUsage)
	}
	res, err := s.caller.Call(ctx, FuncCheckSkill, []string{content})
	if err != nil {
		return nil, err
	}
	var check SkillCheck
	if err := res.Decode(&check); err != nil {
		return nil, malformed(err)
	}
	return &check, nil
}

// Version reports the daemon agent's version.
func (s *Service) Version(ctx context.Context) (*VersionInfo, error) {
	res, err := s.caller.Call(ctx, FuncVersion, nil)
	if err != nil {
		return nil, err
	}
	var info VersionInfo
	if err := res.Decode(&info); err != nil {
		return nil, malformed(err)
	}
	return &info, nil
}

// pipelineArgs builds the positional args shared by run and byakugan:
// task, api_key, provider[, model].
func (s *Service) pipelineArgs(task string, opts Options) ([]string, error) {
	if strings.TrimSpace(task) == "" {
		return nil, fmt.Errorf("%w: task is empty", ErrUsage)
	}
	provider := opts.Provider
	if provider == "" {
		provider = s.cfg.Provider
	}
	key, err := ResolveKey(s.cfg, provider, opts.APIKey)
	if err != nil {
		return nil, err
	}
	args := []string{task, key, provider}
	if model := ResolveModel(s.cfg, provider, opts.Model); model != "" {
		args = append(args, model)
	}
	return args, nil
}

func malformed(err error) error {
	return &ipc.CallError{Kind: ipc.MalformedResponse, Err: err}
}
