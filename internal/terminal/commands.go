// internal/terminal/commands.go
package terminal

import (
	"fmt"
	"sort"
	"strconv"
	"strings"

	"github.com/dohaibbur/CYBER-HERO/internal/netsim"
	"github.com/dohaibbur/CYBER-HERO/internal/pcap"
	"github.com/dohaibbur/CYBER-HERO/internal/util"
	"github.com/dohaibbur/CYBER-HERO/internal/vfs"
)

var builtins map[string]Command

func register(cmds ...Command) {
	if builtins == nil {
		builtins = make(map[string]Command)
	}
	for _, c := range cmds {
		builtins[c.Name] = c
	}
}

func init() {
	register(
		Command{Name: "help", Summary: "list available commands", Run: cmdHelp},
		Command{Name: "clear", Summary: "clear the screen", Run: cmdClear},
		Command{Name: "exit", Summary: "close the terminal", Run: cmdExit},
		Command{Name: "ipconfig", Summary: "show network configuration", Run: cmdIpconfig},
		Command{Name: "ifconfig", Summary: "show network configuration", Run: cmdIpconfig},
		Command{Name: "arp", Summary: "show known devices and their hardware addresses", Run: cmdArp},
		Command{Name: "route", Summary: "show the routing table", Run: cmdRoute},
		Command{Name: "ping", Usage: "ping <address>", Summary: "check whether a device answers", Run: cmdPing},
		Command{Name: "scan", Summary: "sweep the local network for devices", Run: cmdScan},
		Command{Name: "nmap", Usage: "nmap [-p ports] <address>", Summary: "probe a device for open ports", RequiredTool: "nmap", Run: cmdNmap},
		Command{Name: "connect", Usage: "connect <address> <port> [-u user] [-p password]", Summary: "open a session to a device service", Run: cmdConnect},
		Command{Name: "download", Usage: "download <file>", Summary: "copy a file from the connected device", Run: cmdDownload},
		Command{Name: "ls", Usage: "ls [-a] [path]", Summary: "list directory contents", Run: cmdLs},
		Command{Name: "cd", Usage: "cd <path>", Summary: "change directory", Run: cmdCd},
		Command{Name: "cat", Usage: "cat <file>", Summary: "print a file", Run: cmdCat},
		Command{Name: "analyze", Usage: "analyze [-v] <capture>", Summary: "decode a packet capture and report threats", RequiredTool: "analyzer", Run: cmdAnalyze},
		Command{Name: "answer", Usage: "answer <field> <value>", Summary: "submit a mission answer", Run: cmdAnswer},
		Command{Name: "block", Usage: "block <address> <port>", Summary: "firewall a port on a device", Run: cmdBlock},
		Command{Name: "allow", Usage: "allow <address> <port>", Summary: "remove a firewall rule", Run: cmdAllow},
		Command{Name: "isolate", Usage: "isolate <address>", Summary: "cut a device off the network", Run: cmdIsolate},
		Command{Name: "audit", Summary: "check the network for residual risk", Run: cmdAudit},
		Command{Name: "objectives", Summary: "show mission objectives", Run: cmdObjectives},
		Command{Name: "hint", Summary: "get a nudge toward the next objective", Run: cmdHint},
	)
}

func cmdHelp(s *Session, _ Args) []Output {
	out := []Output{text("available commands:")}
	for _, name := range commandNames() {
		c := builtins[name]
		if name == "ifconfig" { // alias, listed under ipconfig
			continue
		}
		out = append(out, text(fmt.Sprintf("  %-12s %s", c.Name, c.Summary)))
	}
	return out
}

func cmdClear(s *Session, _ Args) []Output {
	s.scrollback = nil
	return nil
}

func cmdExit(s *Session, _ Args) []Output {
	s.exited = true
	return []Output{text("logout")}
}

func cmdIpconfig(s *Session, _ Args) []Output {
	if s.deps.Net == nil {
		return []Output{errOut("no network connection")}
	}
	return []Output{
		text("eth0:"),
		text("  network: " + s.deps.Net.Subnet()),
		text("  gateway: " + s.deps.Net.Gateway()),
	}
}

func cmdArp(s *Session, _ Args) []Output {
	if s.deps.Net == nil {
		return []Output{errOut("no network connection")}
	}
	addrs := make([]string, 0, len(s.discovered))
	for addr := range s.discovered {
		addrs = append(addrs, addr)
	}
	sort.Strings(addrs)
	if len(addrs) == 0 {
		return []Output{text("arp cache is empty, try scanning first")}
	}
	out := []Output{text(fmt.Sprintf("%-16s %-18s %s", "address", "hwaddress", "hostname"))}
	for _, addr := range addrs {
		h, err := s.deps.Net.Lookup(addr)
		if err != nil {
			continue
		}
		out = append(out, text(fmt.Sprintf("%-16s %-18s %s", h.Address, h.MAC, h.Hostname)))
	}
	return out
}

func cmdRoute(s *Session, _ Args) []Output {
	if s.deps.Net == nil {
		return []Output{errOut("no network connection")}
	}
	return []Output{
		text("destination        gateway"),
		text(fmt.Sprintf("%-18s %s", "default", s.deps.Net.Gateway())),
		text(fmt.Sprintf("%-18s %s", s.deps.Net.Subnet(), "on-link")),
	}
}

func cmdPing(s *Session, args Args) []Output {
	if s.deps.Net == nil {
		return []Output{errOut("no network connection")}
	}
	if len(args.Positional) != 1 {
		return usage("ping")
	}
	addr := args.Positional[0]
	h, err := s.deps.Net.Lookup(addr)
	if err != nil || s.deps.Net.IsIsolated(addr) {
		return []Output{warnOut("ping " + addr + ": request timed out")}
	}
	s.markDiscovered(h.Address)
	return []Output{okOut(fmt.Sprintf("reply from %s (%s): time<1ms", h.Address, h.Hostname))}
}

func cmdScan(s *Session, _ Args) []Output {
	if s.deps.Net == nil {
		return []Output{errOut("no network connection")}
	}
	out := []Output{text("scanning " + s.deps.Net.Subnet() + " ...")}
	found := 0
	for _, h := range s.deps.Net.Hosts() {
		if s.deps.Net.IsIsolated(h.Address) {
			continue
		}
		s.markDiscovered(h.Address)
		found++
		out = append(out, text(fmt.Sprintf("  %-16s %-18s %-12s %s", h.Address, h.MAC, h.DeviceType, h.Hostname)))
	}
	out = append(out, text(fmt.Sprintf("%d devices found", found)))
	return out
}

func cmdNmap(s *Session, args Args) []Output {
	if s.deps.Net == nil {
		return []Output{errOut("no network connection")}
	}
	portSpec, _ := args.Opt("p", "ports")
	if len(args.Positional) != 1 {
		return usage("nmap")
	}
	addr := args.Positional[0]
	var wanted []int
	if portSpec != "" {
		var perr error
		wanted, perr = util.ParsePortSpec(portSpec)
		if perr != nil {
			return []Output{errOut("nmap: " + perr.Error())}
		}
	}
	res, err := s.deps.Net.Scan(addr)
	if err != nil {
		return []Output{errOut("nmap: " + addr + ": " + err.Error())}
	}
	ports := res.OpenPorts
	if wanted != nil {
		ports = ports[:0:0]
		for _, p := range res.OpenPorts {
			if util.Contains(wanted, p.Number) {
				ports = append(ports, p)
			}
		}
	}
	s.markDiscovered(res.Address)
	out := []Output{
		text(fmt.Sprintf("report for %s (%s)", res.Address, res.Hostname)),
		text("device: " + res.DeviceType + ", os: " + res.OS),
	}
	if len(ports) == 0 {
		out = append(out, text("all ports closed or filtered"))
	} else {
		out = append(out, text(fmt.Sprintf("%-8s %-12s %s", "port", "service", "version")))
	}
	for _, p := range ports {
		s.markIdentified(res.Address, p.Number)
		line := fmt.Sprintf("%-8s %-12s %s", strconv.Itoa(p.Number)+"/tcp", p.Service, p.Version)
		if p.Risky {
			out = append(out, warnOut(line+"  (insecure)"))
		} else {
			out = append(out, text(line))
		}
	}
	for _, v := range res.Vulnerabilities {
		out = append(out, warnOut("vuln: "+v))
	}
	if s.deps.EduNotes {
		for _, p := range ports {
			if p.Risky {
				out = append(out, text("note: "+p.Service+" is unencrypted, anyone on the network can read its traffic"))
				break
			}
		}
	}
	return out
}

func cmdConnect(s *Session, args Args) []Output {
	if s.deps.Net == nil {
		return []Output{errOut("no network connection")}
	}
	if len(args.Positional) != 2 {
		return usage("connect")
	}
	addr := args.Positional[0]
	port, err := strconv.Atoi(args.Positional[1])
	if err != nil {
		return []Output{errOut("connect: bad port: " + args.Positional[1])}
	}
	user, _ := args.Opt("u", "user")
	pass, _ := args.Opt("p", "pass", "password")

	sess, err := s.deps.Net.Connect(addr, port, user, pass)
	if err != nil {
		return []Output{errOut("connect: " + err.Error())}
	}
	s.connected = &sess
	out := []Output{okOut(fmt.Sprintf("connected to %s:%d (%s)", sess.Address, sess.Port, sess.Service))}
	if files := s.remoteFiles(); len(files) > 0 {
		out = append(out, text("remote files:"))
		for _, f := range files {
			out = append(out, text("  "+f.Path))
		}
	}
	return out
}

// remoteFiles lists what the connected host exposes, respecting hidden
// flags and tool locks.
func (s *Session) remoteFiles() []netsim.HostFile {
	if s.connected == nil {
		return nil
	}
	h, err := s.deps.Net.Lookup(s.connected.Address)
	if err != nil {
		return nil
	}
	var out []netsim.HostFile
	for _, f := range h.Files {
		if f.Hidden {
			continue
		}
		out = append(out, f)
	}
	return out
}

func cmdDownload(s *Session, args Args) []Output {
	if s.connected == nil {
		return []Output{errOut("download: not connected, use connect first")}
	}
	if len(args.Positional) != 1 {
		return usage("download")
	}
	want := args.Positional[0]
	h, err := s.deps.Net.Lookup(s.connected.Address)
	if err != nil {
		return []Output{errOut("download: " + err.Error())}
	}
	for _, f := range h.Files {
		if f.Path != want && baseName(f.Path) != want {
			continue
		}
		dest := "/downloads/" + baseName(f.Path)
		if err := s.deps.FS.MkdirAll("/downloads"); err != nil {
			return []Output{errOut("download: " + err.Error())}
		}
		err := s.deps.FS.WriteFile(dest, vfs.File{
			Name:         baseName(f.Path),
			Content:      []byte(f.Content),
			RequiredTool: f.RequiredTool,
		})
		if err != nil {
			return []Output{errOut("download: " + err.Error())}
		}
		s.downloads[dest] = true
		return []Output{okOut(fmt.Sprintf("downloaded %s (%d bytes) to %s", want, len(f.Content), dest))}
	}
	return []Output{errOut("download: no such remote file: " + want)}
}

func cmdLs(s *Session, args Args) []Output {
	path := s.cwd
	if len(args.Positional) == 1 {
		path = args.Positional[0]
	}
	v, showHidden := args.Opt("a", "all")
	if v != "" {
		// "ls -a /missions": the parser reads the path as the flag value
		path = v
	}
	entries, err := s.deps.FS.List(path, s.cwd, showHidden)
	if err != nil {
		return []Output{errOut("ls: " + err.Error())}
	}
	out := make([]Output, 0, len(entries))
	for _, e := range entries {
		if e.IsDir {
			out = append(out, text(e.Name+"/"))
		} else {
			out = append(out, text(fmt.Sprintf("%-24s %d", e.Name, e.Size)))
		}
	}
	return out
}

func cmdCd(s *Session, args Args) []Output {
	if len(args.Positional) != 1 {
		return usage("cd")
	}
	next, err := s.deps.FS.ChangeDir(args.Positional[0], s.cwd)
	if err != nil {
		return []Output{errOut("cd: " + err.Error())}
	}
	s.cwd = next
	return nil
}

func cmdCat(s *Session, args Args) []Output {
	if len(args.Positional) != 1 {
		return usage("cat")
	}
	var tools []string
	if s.deps.Profile != nil {
		tools = s.deps.Profile.UnlockedTools
	}
	content, err := s.deps.FS.Read(args.Positional[0], s.cwd, tools)
	if err != nil {
		return []Output{errOut("cat: " + err.Error())}
	}
	var out []Output
	for _, line := range strings.Split(strings.TrimRight(string(content), "\n"), "\n") {
		out = append(out, text(line))
	}
	return out
}

func cmdAnalyze(s *Session, args Args) []Output {
	verboseVal, verbose := args.Opt("v", "verbose")
	path := ""
	switch {
	case len(args.Positional) == 1:
		path = args.Positional[0]
	case verboseVal != "":
		// "analyze -v <capture>": the parser reads the capture as the flag value
		path = verboseVal
	default:
		return usage("analyze")
	}
	var tools []string
	if s.deps.Profile != nil {
		tools = s.deps.Profile.UnlockedTools
	}
	raw, err := s.deps.FS.Read(path, s.cwd, tools)
	if err != nil {
		return []Output{errOut("analyze: " + err.Error())}
	}

	records, parseErr := pcap.New(s.deps.Logger).Parse(raw)
	var out []Output
	if parseErr != nil {
		if len(records) == 0 {
			return []Output{errOut("analyze: " + parseErr.Error())}
		}
		out = append(out, warnOut("capture damaged: "+parseErr.Error()))
		out = append(out, warnOut(fmt.Sprintf("recovered the first %d packets", len(records))))
	}

	abs, _, rerr := s.deps.FS.Resolve(path, s.cwd)
	if rerr == nil {
		s.decoded[abs] = true
	}

	out = append(out, text(fmt.Sprintf("%d packets decoded", len(records))))
	if verbose {
		for _, r := range records {
			out = append(out, text(fmt.Sprintf("packet %d: %d bytes", r.Index+1, r.CapturedLen)))
			out = append(out, text(fmt.Sprintf("  eth  %s -> %s", r.SrcMAC, r.DstMAC)))
			if r.SrcIP != "" {
				out = append(out, text(fmt.Sprintf("  %s  %s:%d -> %s:%d",
					r.Protocol, r.SrcIP, r.SrcPort, r.DstIP, r.DstPort)))
			}
		}
	}
	for _, st := range pcap.Streams(records) {
		out = append(out, text(fmt.Sprintf("  %s  %s <-> %s  %d packets, %d bytes",
			st.Protocol, st.EndpointA, st.EndpointB, len(st.Records), st.Bytes())))
	}
	findings := pcap.AnalyzeThreats(records)
	if len(findings) == 0 {
		out = append(out, okOut("no threats detected"))
		return out
	}
	for _, f := range findings {
		out = append(out, warnOut(fmt.Sprintf("THREAT %s: %s -> %s: %s", f.Kind, f.Source, f.Target, f.Detail)))
	}
	return out
}

func cmdAnswer(s *Session, args Args) []Output {
	if len(args.Positional) < 2 {
		return usage("answer")
	}
	field := args.Positional[0]
	value := strings.Join(args.Positional[1:], " ")
	s.answers[field] = value
	return []Output{text("recorded answer for " + field)}
}

func cmdBlock(s *Session, args Args) []Output {
	return firewall(s, args, "block")
}

func cmdAllow(s *Session, args Args) []Output {
	return firewall(s, args, "allow")
}

func firewall(s *Session, args Args, verb string) []Output {
	if s.deps.Net == nil {
		return []Output{errOut("no network connection")}
	}
	if len(args.Positional) != 2 {
		return usage(verb)
	}
	addr := args.Positional[0]
	port, err := strconv.Atoi(args.Positional[1])
	if err != nil {
		return []Output{errOut(verb + ": bad port: " + args.Positional[1])}
	}
	if verb == "block" {
		err = s.deps.Net.BlockPort(addr, port)
	} else {
		err = s.deps.Net.AllowPort(addr, port)
	}
	if err != nil {
		return []Output{errOut(verb + ": " + err.Error())}
	}
	return []Output{okOut(fmt.Sprintf("%s:%d %sed", addr, port, verb))}
}

func cmdIsolate(s *Session, args Args) []Output {
	if s.deps.Net == nil {
		return []Output{errOut("no network connection")}
	}
	if len(args.Positional) != 1 {
		return usage("isolate")
	}
	addr := args.Positional[0]
	if err := s.deps.Net.Isolate(addr); err != nil {
		return []Output{errOut("isolate: " + err.Error())}
	}
	return []Output{okOut(addr + " isolated from the network")}
}

func cmdAudit(s *Session, _ Args) []Output {
	if s.deps.Net == nil {
		return []Output{errOut("no network connection")}
	}
	report := s.deps.Net.Audit()
	s.auditRan = true
	s.auditClean = report.Clean()
	if report.Clean() {
		return []Output{okOut("audit passed, no residual risk found")}
	}
	out := []Output{warnOut(fmt.Sprintf("audit found %d issues:", len(report.Findings)))}
	for _, f := range report.Findings {
		out = append(out, warnOut("  "+f.Address+": "+f.Detail))
	}
	if s.deps.EduNotes {
		out = append(out, text("note: block risky ports or isolate untrusted devices, then audit again"))
	}
	return out
}

func cmdObjectives(s *Session, _ Args) []Output {
	tr := s.tracker()
	if tr == nil {
		return []Output{text("no active mission")}
	}
	m := tr.Mission()
	out := []Output{text(m.Title + fmt.Sprintf(" (%.0f%%)", tr.Percent()))}
	for _, o := range m.Objectives {
		mark := "[ ]"
		if tr.IsComplete(o.ID) {
			mark = "[x]"
		}
		out = append(out, text("  "+mark+" "+o.Title))
	}
	return out
}

func cmdHint(s *Session, _ Args) []Output {
	tr := s.tracker()
	if tr == nil {
		return []Output{text("no active mission")}
	}
	o, ok := tr.FirstIncomplete()
	if !ok {
		return []Output{okOut("mission complete, nothing left to do")}
	}
	if o.Hint == "" {
		return []Output{text("no hint for: " + o.Title)}
	}
	return []Output{text("hint: " + o.Hint)}
}

func usage(name string) []Output {
	return []Output{errOut("usage: " + builtins[name].Usage)}
}

func baseName(path string) string {
	if i := strings.LastIndexByte(path, '/'); i >= 0 {
		return path[i+1:]
	}
	return path
}
