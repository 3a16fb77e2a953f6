// Package exec implements the layered command execution core: the
// Command/Target/Event/Handle value types, the local launcher and attacher
// backends, and the execution-layer stack (SSH, Docker, sudo, systemd-run)
// that transforms a Command before it reaches the bottom backend.
package exec

import (
	"dario.cat/mergo"
)

// Command is an immutable description of a program to run. Constructing
// one has no side effects; layers take a Command and return a new one.
type Command struct {
	Program string
	Args    []string
	Env     map[string]string
	Dir     string

	// Stdin, when non-nil, is a channel of text chunks delivered to the
	// child's stdin in order; its closure signals EOF to the child.
	Stdin <-chan string
}

// NewCommand builds a Command for program with the given arguments.
func NewCommand(program string, args ...string) Command {
	return Command{
		Program: program,
		Args:    append([]string(nil), args...),
		Env:     map[string]string{},
	}
}

// WithArgs returns a copy of c with args appended to the existing argument list.
func (c Command) WithArgs(args ...string) Command {
	out := c.Clone()
	out.Args = append(out.Args, args...)

	return out
}

// WithArgv returns a copy of c with Args replaced wholesale (used by layers
// that rewrite the full argument list rather than appending to it).
func (c Command) WithArgv(args []string) Command {
	out := c.Clone()
	out.Args = append([]string(nil), args...)

	return out
}

// WithProgram returns a copy of c with Program replaced.
func (c Command) WithProgram(program string) Command {
	out := c.Clone()
	out.Program = program

	return out
}

// WithEnv overlays env onto c's existing environment: keys in env win on
// collision, keys already present in c.Env and absent from env are kept.
// This is never a replace — see spec invariant "env overlay".
func (c Command) WithEnv(env map[string]string) Command {
	out := c.Clone()
	if len(env) == 0 {
		return out
	}

	merged := make(map[string]string, len(out.Env)+len(env))
	for k, v := range out.Env {
		merged[k] = v
	}

	// mergo merges env (src) onto merged (dst), src wins on collision.
	if err := mergo.Merge(&merged, env, mergo.WithOverride); err != nil {
		// mergo only fails here on type mismatches, which can't happen for
		// map[string]string -> map[string]string; fall back defensively.
		for k, v := range env {
			merged[k] = v
		}
	}

	out.Env = merged

	return out
}

// WithDir returns a copy of c with the working directory set. An unset
// directory means the child inherits the caller's working directory.
func (c Command) WithDir(dir string) Command {
	out := c.Clone()
	out.Dir = dir

	return out
}

// WithStdin attaches a stdin source channel to the command.
func (c Command) WithStdin(ch <-chan string) Command {
	out := c.Clone()
	out.Stdin = ch

	return out
}

// Clone returns a deep-enough copy of c: the Env map is copied so mutating
// the clone's env never affects c's.
func (c Command) Clone() Command {
	env := make(map[string]string, len(c.Env))
	for k, v := range c.Env {
		env[k] = v
	}

	return Command{
		Program: c.Program,
		Args:    append([]string(nil), c.Args...),
		Env:     env,
		Dir:     c.Dir,
		Stdin:   c.Stdin,
	}
}

// Argv returns the full argument vector: program followed by args.
func (c Command) Argv() []string {
	argv := make([]string, 0, len(c.Args)+1)
	argv = append(argv, c.Program)
	argv = append(argv, c.Args...)

	return argv
}
