package main

import (
	"fmt"
	"io"
	"text/template"
	"time"
)

const usageMessageTemplate = `
NAME
          {{.WSServerProgramName}} -- a WebSocket echo server

SYNOPSIS
          {{.WSServerProgramName}} [options]

DESCRIPTION
          {{.WSServerProgramName}} accepts {{.RFC}} WebSocket upgrade requests and echoes every
          Text or Binary message it receives back to the sender until either side closes the
          session.

          The wildcard interface address and a random port are used if no listen address is
          specified.

OPTIONS
          [-hv]
          [-A listen Address[:port] ...]

          [-i status-report-interval]
          [--max-message-length bytes] [--close-timeout duration]

          [--gops] [--cpu-profile file] [--mem-profile file]

          [--user userName] [--group groupName] [--chroot directory]

          [--version]

`

func usage(out io.Writer) {
	tmpl, err := template.New("usage").Parse(usageMessageTemplate)
	if err != nil {
		panic(err)
	}
	err = tmpl.Execute(out, consts)
	if err != nil {
		panic(err)
	}
	flagSet.SetOutput(out)
	flagSet.PrintDefaults()
	fmt.Fprintln(out, "\nVersion:", consts.Version)
}

func parseCommandLine(args []string) error {
	flagSet.BoolVar(&cfg.help, "h", false, "Print usage message to Stdout then exit(0)")
	flagSet.BoolVar(&cfg.verbose, "v", false, "Verbose status and stats - otherwise only errors are output")

	flagSet.Var(&cfg.listenAddresses, "A", "Listen `address` to accept WebSocket connections (default :0)")

	flagSet.DurationVar(&cfg.statusInterval, "i", time.Minute*15, "Periodic Status Report `interval` (needs -v set)")
	flagSet.IntVar(&cfg.maxMessageLength, "max-message-length", 16*1024*1024, "Maximum assembled message `size` in bytes")
	flagSet.DurationVar(&cfg.closeTimeout, "close-timeout", 30*time.Second, "Close handshake `timeout`")

	flagSet.BoolVar(&cfg.gops, "gops", false, "Start github.com/google/gops agent")
	flagSet.StringVar(&cfg.cpuprofile, "cpu-profile", "", "write cpu profile to `file`")
	flagSet.StringVar(&cfg.memprofile, "mem-profile", "", "write mem profile to `file`")

	flagSet.StringVar(&cfg.setuidName, "user", "", "setuid `username` to constrain process after start-up (disabled for Linux)")
	flagSet.StringVar(&cfg.setgidName, "group", "", "setgid `groupname` to constrain process after start-up (disabled for Linux)")
	flagSet.StringVar(&cfg.chrootDir, "chroot", "", "chroot `directory` to constrain process after start-up")

	flagSet.BoolVar(&cfg.version, "version", false, "Print version and exit")

	return flagSet.Parse(args[1:])
}
