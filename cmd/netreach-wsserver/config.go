package main

import (
	"time"

	"github.com/markdingo/netreach/internal/flagutil"
)

type config struct {
	help    bool
	verbose bool
	version bool

	listenAddresses flagutil.StringValue

	maxMessageLength int
	closeTimeout     time.Duration
	statusInterval   time.Duration

	gops       bool
	cpuprofile string
	memprofile string

	setuidName string
	setgidName string
	chrootDir  string
}
