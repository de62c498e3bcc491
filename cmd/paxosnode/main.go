package main

import (
	"flag"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/Deeathex/paxos/node"
)

func main() {
	var (
		owner   = flag.String("owner", "", "node owner name, as registered with the hub")
		index   = flag.Int("index", 1, "index of the first node within the owner's group")
		port    = flag.Int("port", 5001, "TCP listening port of the first node")
		nodes   = flag.Int("nodes", 1, "number of nodes to run in this process, on consecutive ports")
		hubHost = flag.String("hub-host", "127.0.0.1", "hub host")
		hubPort = flag.Int("hub-port", 5000, "hub port")
		delta   = flag.Duration("delta", 100*time.Millisecond, "failure detector timeout increment")
	)
	flag.Parse()

	if *nodes < 1 {
		log.Printf("[ERROR] main: -nodes must be at least 1, got %d", *nodes)
		os.Exit(1)
	}

	started := make([]*node.Node, 0, *nodes)
	stopAll := func() {
		for _, n := range started {
			if err := n.Stop(); err != nil {
				log.Printf("[ERROR] main: %v", err)
			}
		}
	}

	for i := 0; i < *nodes; i++ {
		cfg := node.DefaultConfig()
		cfg.Owner = *owner
		cfg.Index = int32(*index + i)
		cfg.Port = int32(*port + i)
		cfg.HubHost = *hubHost
		cfg.HubPort = int32(*hubPort)
		cfg.Delta = *delta

		n, err := node.NewNode(cfg)
		if err != nil {
			log.Printf("[ERROR] main: %v", err)
			stopAll()
			os.Exit(1)
		}
		if err := n.Start(); err != nil {
			log.Printf("[ERROR] main: %v", err)
			stopAll()
			os.Exit(1)
		}
		started = append(started, n)
	}

	sig := make(chan os.Signal, 1)
	signal.Notify(sig, syscall.SIGINT, syscall.SIGTERM)
	<-sig

	log.Printf("[INFO] main: shutting down")
	stopAll()
}
