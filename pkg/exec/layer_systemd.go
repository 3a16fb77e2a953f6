package exec

var _ Layer = SystemdRunLayer{}

// SystemdRunLayer wraps the command in `systemd-run --pipe --collect` so
// stdio is not hijacked by journald and the transient unit is cleaned up on
// exit.
type SystemdRunLayer struct {
	UserMode bool
	Unit     string
}

func (l SystemdRunLayer) Name() string { return "systemd-run" }

func (l SystemdRunLayer) Transform(cmd Command) (Command, error) {
	args := []string{"--pipe", "--collect"}

	if l.UserMode {
		args = append(args, "--user")
	}

	if l.Unit != "" {
		args = append(args, "--unit", l.Unit)
	}

	args = append(args, "--")
	args = append(args, cmd.Argv()...)

	out := NewCommand("systemd-run", args...).WithDir(cmd.Dir).WithStdin(cmd.Stdin)

	return out, nil
}
