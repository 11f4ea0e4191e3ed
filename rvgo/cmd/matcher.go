package cmd

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/urfave/cli/v2"
)

// StepMatcher selects the steps at which a periodic action runs.
type StepMatcher func(step uint64) bool

// StepMatcherFlag parses "never", "always", "=N" (exactly step N) or "%N" (every N steps).
type StepMatcherFlag struct {
	repr    string
	matcher StepMatcher
}

var _ cli.Generic = (*StepMatcherFlag)(nil)

const patternHelp = "'never', 'always', '=123' at exactly step 123, '%123' for every 123 steps"

func MustStepMatcherFlag(pattern string) *StepMatcherFlag {
	m := new(StepMatcherFlag)
	if err := m.Set(pattern); err != nil {
		panic(err)
	}
	return m
}

func (m *StepMatcherFlag) Set(value string) error {
	m.repr = value
	switch {
	case value == "" || value == "never":
		m.matcher = func(uint64) bool { return false }
	case value == "always":
		m.matcher = func(uint64) bool { return true }
	case strings.HasPrefix(value, "="):
		when, err := strconv.ParseUint(value[1:], 0, 64)
		if err != nil {
			return fmt.Errorf("failed to parse step number: %w", err)
		}
		m.matcher = func(step uint64) bool { return step == when }
	case strings.HasPrefix(value, "%"):
		when, err := strconv.ParseUint(value[1:], 0, 64)
		if err != nil {
			return fmt.Errorf("failed to parse step interval: %w", err)
		}
		if when == 0 {
			return fmt.Errorf("step interval must be positive")
		}
		m.matcher = func(step uint64) bool { return step%when == 0 }
	default:
		return fmt.Errorf("unrecognized step matcher: %q", value)
	}
	return nil
}

func (m *StepMatcherFlag) String() string {
	return m.repr
}

func (m *StepMatcherFlag) Matcher() StepMatcher {
	if m.matcher == nil { // Set is never called when the flag is not used
		return func(uint64) bool { return false }
	}
	return m.matcher
}

func stepMatcher(ctx *cli.Context, flag *cli.GenericFlag) StepMatcher {
	return ctx.Generic(flag.Name).(*StepMatcherFlag).Matcher()
}
