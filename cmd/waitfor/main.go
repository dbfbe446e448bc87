package main

import (
	"flag"
	"net"
	"os"
	"strings"
	"time"

	"github.com/cenkalti/backoff/v4"
	log "github.com/sirupsen/logrus"
	"golang.org/x/sync/errgroup"
)

func init() {
	log.SetFormatter(&log.JSONFormatter{})
	log.SetOutput(os.Stdout)
}

var (
	targets     = flag.String("targets", "localhost:5432", "comma-separated host:port list to wait for")
	dialTimeout = flag.Duration("dial-timeout", 2*time.Second, "timeout of a single connection attempt")
	maxWait     = flag.Duration("max-wait", time.Minute, "give up after this long")
)

func waitFor(addr string) error {
	b := backoff.NewExponentialBackOff()
	b.InitialInterval = 250 * time.Millisecond
	b.MaxInterval = 2 * time.Second
	b.MaxElapsedTime = *maxWait
	return backoff.RetryNotify(func() error {
		conn, err := net.DialTimeout("tcp", addr, *dialTimeout)
		if err != nil {
			return err
		}
		return conn.Close()
	}, b, func(err error, next time.Duration) {
		log.WithError(err).WithField("target", addr).WithField("retry-in", next.String()).Info("connection not yet available")
	})
}

func main() {
	flag.Parse()

	var g errgroup.Group
	for _, addr := range strings.Split(*targets, ",") {
		addr := strings.TrimSpace(addr)
		if addr == "" {
			continue
		}
		g.Go(func() error {
			if err := waitFor(addr); err != nil {
				return err
			}
			log.WithField("target", addr).Info("TCP connection available")
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		log.WithError(err).Fatal("could not open TCP connection after max wait")
	}
}
