package catalog

import (
	"regexp"
	"strconv"
	"strings"
)

// Table is the fixed, enumerated set of catalog entries known to the core.
// It is built once at process start and never mutated; Registry wraps it
// for thread-safe, read-only-after-startup lookup.
var Table = []Spec{
	{
		ToolID: "mem.free", Binary: "free", ArgvPrefix: []string{"-m"},
		Kind: KindStateless, Required: true, Freshness: FreshnessVolatile,
		Description: "memory usage in megabytes", Parse: parseFree,
	},
	{
		ToolID: "cpu.lscpu", Binary: "lscpu", ArgvPrefix: nil,
		Kind: KindStateless, Required: false, Freshness: FreshnessStatic,
		Description: "CPU model, core/thread counts, feature flags", Parse: parseLscpu,
	},
	{
		ToolID: "cpu.proc", Binary: "cat", ArgvPrefix: []string{"/proc/cpuinfo"},
		Kind: KindStateless, Required: false, Freshness: FreshnessStatic,
		Description: "raw /proc/cpuinfo", Parse: nil,
	},
	{
		ToolID: "gpu.lspci", Binary: "lspci", ArgvPrefix: []string{"-v"},
		Kind: KindStateless, Required: false, Freshness: FreshnessStatic,
		Description: "PCI device listing, used to find the GPU", Parse: parseLspciGPU,
	},
	{
		ToolID: "disk.df", Binary: "df", ArgvPrefix: []string{"-h"},
		Kind: KindStateless, Required: false, Freshness: FreshnessVolatile,
		Description: "filesystem usage by mount", Parse: parseDf,
	},
	{
		ToolID: "disk.lsblk", Binary: "lsblk", ArgvPrefix: []string{"-o", "NAME,SIZE,TYPE,MOUNTPOINT"},
		Kind: KindStateless, Required: false, Freshness: FreshnessSlow,
		Description: "block device topology", Parse: nil,
	},
	{
		ToolID: "pkg.query", Binary: "pacman", ArgvPrefix: []string{"-Q"},
		Kind: KindStateless, Required: false, Freshness: FreshnessSlow,
		Description: "installed package query", ExtraArgsSchema: []string{"package_filter"},
		Parse: parsePacmanQuery,
	},
	{
		ToolID: "pkg.updates", Binary: "pacman", ArgvPrefix: []string{"-Qu"},
		Kind: KindStateless, Required: false, Freshness: FreshnessSlow,
		Description: "pending package updates", Parse: nil,
	},
	{
		ToolID: "net.addr", Binary: "ip", ArgvPrefix: []string{"addr", "show"},
		Kind: KindStateless, Required: false, Freshness: FreshnessVolatile,
		Description: "network interface addresses", Parse: nil,
	},
	{
		ToolID: "net.route", Binary: "ip", ArgvPrefix: []string{"route"},
		Kind: KindStateless, Required: false, Freshness: FreshnessVolatile,
		Description: "routing table", Parse: nil,
	},
	{
		ToolID: "net.ping", Binary: "ping", ArgvPrefix: []string{"-c", "1", "-W", "2", "8.8.8.8"},
		Kind: KindHeavy, Required: false, Freshness: FreshnessVolatile,
		Description: "single ICMP probe to a well-known host", Parse: nil,
	},
	{
		ToolID: "svc.failed", Binary: "systemctl", ArgvPrefix: []string{"--failed", "--no-pager"},
		Kind: KindStateless, Required: false, Freshness: FreshnessVolatile,
		Description: "systemd units in failed state", Parse: nil,
	},
	{
		ToolID: "log.err", Binary: "journalctl", ArgvPrefix: []string{"-p", "err", "-n", "20", "--no-pager"},
		Kind: KindStateless, Required: false, Freshness: FreshnessVolatile,
		Description: "recent error-level journal entries", Parse: nil,
	},
	{
		ToolID: "sys.uname", Binary: "uname", ArgvPrefix: []string{"-a"},
		Kind: KindStateless, Required: true, Freshness: FreshnessStatic,
		Description: "kernel and host identification", Parse: parseUname,
	},
	{
		ToolID: "sys.echo", Binary: "echo", ArgvPrefix: []string{"anna-self-test"},
		Kind: KindStateless, Required: true, Freshness: FreshnessStatic,
		Description: "stdout-identity probe used by self-test", Parse: nil,
	},
	{
		ToolID: "fs.root", Binary: "ls", ArgvPrefix: []string{"/"},
		Kind: KindStateless, Required: true, Freshness: FreshnessStatic,
		Description: "filesystem read probe used by self-test", Parse: nil,
	},
}

var lscpuModelRe = regexp.MustCompile(`(?m)^Model name:\s*(.+)$`)
var lscpuCoresRe = regexp.MustCompile(`(?m)^Core\(s\) per socket:\s*(\d+)$`)
var lscpuSocketsRe = regexp.MustCompile(`(?m)^Socket\(s\):\s*(\d+)$`)
var lscpuThreadsRe = regexp.MustCompile(`(?m)^Thread\(s\) per core:\s*(\d+)$`)
var lscpuFlagsRe = regexp.MustCompile(`(?m)^Flags:\s*(.+)$`)
var freeTotalRe = regexp.MustCompile(`(?m)^Mem:\s+(\d+)`)
var pacmanPkgRe = regexp.MustCompile(`^(\S+)\s+(\S+)`)

func parseLscpu(stdout string) []ParsedFact {
	var facts []ParsedFact
	if m := lscpuModelRe.FindStringSubmatch(stdout); m != nil {
		facts = append(facts, ParsedFact{Category: "cpu_model", Value: strings.TrimSpace(m[1])})
	}
	cores, coresOK := atoiMatch(lscpuCoresRe, stdout)
	sockets, socketsOK := atoiMatch(lscpuSocketsRe, stdout)
	if coresOK {
		total := cores
		if socketsOK {
			total = cores * sockets
		}
		facts = append(facts, ParsedFact{Category: "cpu_cores", Value: strconv.Itoa(total)})
	}
	if threads, ok := atoiMatch(lscpuThreadsRe, stdout); ok && coresOK {
		total := threads * cores
		if socketsOK {
			total *= sockets
		}
		facts = append(facts, ParsedFact{Category: "cpu_threads", Value: strconv.Itoa(total)})
	}
	if m := lscpuFlagsRe.FindStringSubmatch(stdout); m != nil {
		facts = append(facts, ParsedFact{Category: "cpu_features", Value: strings.TrimSpace(m[1])})
	}
	return facts
}

func atoiMatch(re *regexp.Regexp, s string) (int, bool) {
	m := re.FindStringSubmatch(s)
	if m == nil {
		return 0, false
	}
	n, err := strconv.Atoi(m[1])
	if err != nil {
		return 0, false
	}
	return n, true
}

func parseFree(stdout string) []ParsedFact {
	m := freeTotalRe.FindStringSubmatch(stdout)
	if m == nil {
		return nil
	}
	return []ParsedFact{{Category: "total_ram", Value: m[1] + " MB"}}
}

func parseLspciGPU(stdout string) []ParsedFact {
	for _, line := range strings.Split(stdout, "\n") {
		if strings.Contains(line, "VGA") || strings.Contains(line, "3D") {
			idx := strings.Index(line, ": ")
			value := line
			if idx >= 0 {
				value = strings.TrimSpace(line[idx+2:])
			}
			return []ParsedFact{{Category: "gpu_model", Value: value}}
		}
	}
	return nil
}

func parseDf(stdout string) []ParsedFact {
	var facts []ParsedFact
	for _, line := range strings.Split(stdout, "\n") {
		fields := strings.Fields(line)
		if len(fields) < 6 {
			continue
		}
		mount := fields[len(fields)-1]
		switch mount {
		case "/":
			facts = append(facts, ParsedFact{Category: "disk_usage_root", Value: fields[4] + " used, " + fields[3] + " free"})
		case "/home":
			facts = append(facts, ParsedFact{Category: "disk_usage_home", Value: fields[4] + " used, " + fields[3] + " free"})
		}
	}
	return facts
}

func parsePacmanQuery(stdout string) []ParsedFact {
	trimmed := strings.TrimSpace(stdout)
	if trimmed == "" {
		return nil
	}
	m := pacmanPkgRe.FindStringSubmatch(trimmed)
	if m == nil {
		return nil
	}
	name := m[1]
	if idx := strings.Index(name, "/"); idx >= 0 {
		name = name[idx+1:]
	}
	return []ParsedFact{{Category: "package:" + name, Value: m[2]}}
}

func parseUname(stdout string) []ParsedFact {
	trimmed := strings.TrimSpace(stdout)
	if trimmed == "" {
		return nil
	}
	fields := strings.Fields(trimmed)
	if len(fields) < 3 {
		return nil
	}
	return []ParsedFact{{Category: "kernel_version", Value: fields[2]}}
}
