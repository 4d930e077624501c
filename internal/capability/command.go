package capability

import (
	"bufio"
	"context"
	"os/exec"
	"strings"

	"github.com/netsec-pkg/zkg/internal/zkgerrors"
)

// CommandDiscoverer queries the host platform's configuration tool by
// running it and parsing `NAME=VERSION` lines from its stdout, the
// concrete side of the §1 "external collaborator" interface: the
// engine never implements the platform's own capability logic, only
// this thin query shim over whatever command the deployment configures
// (e.g. the platform's own `--build-features` style flag).
type CommandDiscoverer struct {
	Command string
	Args    []string
}

func (d CommandDiscoverer) Capabilities(ctx context.Context) (map[string]string, error) {
	if d.Command == "" {
		return map[string]string{}, nil
	}

	cmd := exec.CommandContext(ctx, d.Command, d.Args...)
	out, err := cmd.Output()
	if err != nil {
		return nil, zkgerrors.Dependency(d.Command, "failed to query platform capabilities", err)
	}

	caps := map[string]string{}
	sc := bufio.NewScanner(strings.NewReader(string(out)))
	for sc.Scan() {
		line := strings.TrimSpace(sc.Text())
		if line == "" {
			continue
		}
		name, version, ok := strings.Cut(line, "=")
		if !ok {
			continue
		}
		caps[strings.TrimSpace(name)] = strings.TrimSpace(version)
	}
	return caps, nil
}
