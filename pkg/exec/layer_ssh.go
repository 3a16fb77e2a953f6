package exec

import "strconv"

var _ Layer = SshLayer{}

// SshLayer replaces the program with ssh: the original program and args are
// quoted into a single remote command string, env overrides become a
// `VAR=value …` prefix in the remote shell, and stdin pass-through is kept
// transparent (no -T, no </dev/null).
type SshLayer struct {
	Host string
	User string
	Port int
	Key  string
}

func (l SshLayer) Name() string { return "ssh" }

func (l SshLayer) Transform(cmd Command) (Command, error) {
	if l.Host == "" {
		return Command{}, &LayerErr{Layer: l.Name(), Reason: "empty host"}
	}

	args := make([]string, 0, 8)

	if l.Key != "" {
		args = append(args, "-i", l.Key)
	}

	if l.Port != 0 {
		args = append(args, "-p", strconv.Itoa(l.Port))
	}

	args = append(args, "-o", "StrictHostKeyChecking=accept-new")

	dest := l.Host
	if l.User != "" {
		dest = l.User + "@" + l.Host
	}

	args = append(args, dest, "--", remoteCommandString(cmd))

	out := NewCommand("ssh", args...).WithStdin(cmd.Stdin)

	return out, nil
}

// remoteCommandString renders cmd's env overlay, program and args as a
// single shell command string suitable as ssh's final argv element.
func remoteCommandString(cmd Command) string {
	prefix := ""
	for _, k := range sortedKeys(cmd.Env) {
		prefix += k + "=" + shellQuote(cmd.Env[k]) + " "
	}

	return prefix + shellJoin(cmd.Argv())
}
