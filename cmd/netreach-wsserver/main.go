// Accept inbound WebSocket connections and echo every message back to its sender
package main

import (
	"flag"
	"fmt"
	"io"
	"os"
	"runtime"
	"runtime/pprof"
	"strings"
	"sync"
	"time"

	"github.com/google/gops/agent"

	"github.com/markdingo/netreach/internal/constants"
	"github.com/markdingo/netreach/internal/osutil"
	"github.com/markdingo/netreach/internal/reporter"
)

var (
	consts               = constants.Get()
	cfg                  *config
	defaultListenAddress = ":0"

	stdout io.Writer
	stderr io.Writer

	startTime   = time.Now()
	stopChannel chan os.Signal
	flagSet     *flag.FlagSet
)

func fatal(args ...interface{}) int {
	fmt.Fprint(stderr, "Fatal: ", consts.WSServerProgramName, ": ")
	fmt.Fprintln(stderr, args...)
	return 1
}

func mainInit(out io.Writer, err io.Writer) {
	cfg = &config{}
	stdout = out
	stderr = err
	stopChannel = make(chan os.Signal, 4)
	osutil.SignalNotify(stopChannel)
}

func main() {
	mainInit(os.Stdout, os.Stderr)
	os.Exit(mainExecute(os.Args))
}

func mainExecute(args []string) int {
	flagSet = flag.NewFlagSet(args[0], flag.ContinueOnError)
	flagSet.SetOutput(stderr)
	if err := parseCommandLine(args); err != nil {
		return 1
	}
	if cfg.help {
		usage(stdout)
		return 0
	}
	if cfg.version {
		fmt.Fprintln(stdout, consts.WSServerProgramName, "Version:", consts.Version)
		return 0
	}
	if flagSet.NArg() > 0 {
		return fatal("Unexpected parameters on the command line", strings.Join(flagSet.Args(), " "))
	}

	if cfg.gops {
		if err := agent.Listen(agent.Options{}); err != nil {
			return fatal("gops:", err)
		}
		defer agent.Close()
	}

	if len(cfg.cpuprofile) > 0 {
		f, err := os.Create(cfg.cpuprofile)
		if err != nil {
			return fatal(err)
		}
		defer f.Close()
		if err := pprof.StartCPUProfile(f); err != nil {
			return fatal(err)
		}
		defer pprof.StopCPUProfile()
	}

	var memProfileFile *os.File
	if len(cfg.memprofile) > 0 {
		var err error
		memProfileFile, err = os.Create(cfg.memprofile)
		if err != nil {
			return fatal(err)
		}
		defer memProfileFile.Close()
	}

	if cfg.listenAddresses.NArg() == 0 {
		cfg.listenAddresses.Set(defaultListenAddress)
	}

	var reporters []reporter.Reporter
	var servers []*server

	errorChannel := make(chan error, cfg.listenAddresses.NArg())
	wg := &sync.WaitGroup{}

	for _, addr := range cfg.listenAddresses.Args() {
		s := &server{
			stdout:           stdout,
			listenAddress:    addr,
			verbose:          cfg.verbose,
			maxMessageLength: cfg.maxMessageLength,
			closeTimeout:     cfg.closeTimeout,
		}
		s.start(errorChannel, wg)
		servers = append(servers, s)
		reporters = append(reporters, s)
		if s.connTrk != nil {
			reporters = append(reporters, s.connTrk)
		}
	}

	go func(setuidName, setgidName, chrootDir string, verbose bool) {
		time.Sleep(3 * time.Second)
		if err := osutil.Constrain(setuidName, setgidName, chrootDir); err != nil {
			errorChannel <- err
			return
		}
		if verbose {
			fmt.Fprintf(stdout, "Constraints: %s\n", osutil.ConstraintReport())
		}
	}(cfg.setuidName, cfg.setgidName, cfg.chrootDir, cfg.verbose)

	if cfg.verbose {
		fmt.Fprintln(stdout, consts.WSServerProgramName, consts.Version, "Starting")
		for _, s := range servers {
			fmt.Fprintln(stdout, "Listening:", s.listenName())
		}
	}

	nextStatusIn := nextInterval(time.Now(), cfg.statusInterval)

Running:
	for {
		select {
		case sig := <-stopChannel:
			if osutil.IsSignalUSR1(sig) {
				statusReport("User1", false, reporters)
				break
			}
			if cfg.verbose {
				fmt.Fprintln(stdout, "\nSignal", sig)
			}
			break Running

		case err := <-errorChannel:
			return fatal(err)

		case <-time.After(nextStatusIn):
			if cfg.verbose {
				statusReport("Status", true, reporters)
			}
			nextStatusIn = nextInterval(time.Now(), cfg.statusInterval)
		}
	}

	for _, s := range servers {
		s.stop()
	}

	if cfg.verbose {
		statusReport("Status", true, reporters)
		fmt.Fprintln(stdout, consts.WSServerProgramName, consts.Version, "Exiting after", uptime())
	}

	if memProfileFile != nil {
		runtime.GC()
		if err := pprof.WriteHeapProfile(memProfileFile); err != nil {
			return fatal(err)
		}
	}

	return 0
}

func nextInterval(now time.Time, interval time.Duration) time.Duration {
	return now.Truncate(interval).Add(interval).Sub(now)
}

func uptime() string {
	return time.Now().Sub(startTime).Truncate(time.Second).String()
}

func statusReport(what string, resetCounters bool, reporters []reporter.Reporter) {
	fmt.Fprintln(stdout, "Status Up:", consts.WSServerProgramName, consts.Version, uptime())
	for _, r := range reporters {
		reps := strings.Split(r.Report(resetCounters), "\n")
		for _, s := range reps {
			if len(s) > 0 {
				fmt.Fprintf(stdout, "%s %s: %s\n", what, r.Name(), s)
			}
		}
	}
}
