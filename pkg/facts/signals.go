package facts

import (
	"bufio"
	"os"
	"strings"
)

// BootIDPath is the host's boot log identifier, matching the kernel's own
// boot_id exposure. Overridable for tests.
var BootIDPath = "/proc/sys/kernel/random/boot_id"

// PacmanLogPath is the package-manager log whose mtime signals a package
// change. Overridable for tests.
var PacmanLogPath = "/var/log/pacman.log"

// ReadHostSignals reads the current boot id and package-manager log mtime.
// Missing files degrade gracefully to zero values rather than erroring,
// since a missing signal source is itself an answerable fact elsewhere in
// the system, not a fatal condition here.
func ReadHostSignals() HostSignals {
	var s HostSignals
	s.SchemaVersion = 1

	if f, err := os.Open(BootIDPath); err == nil {
		defer f.Close()
		scanner := bufio.NewScanner(f)
		if scanner.Scan() {
			s.BootID = strings.TrimSpace(scanner.Text())
		}
	}

	if info, err := os.Stat(PacmanLogPath); err == nil {
		s.PacmanLogMTime = info.ModTime()
	}

	return s
}
