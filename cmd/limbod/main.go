// Command limbod is the limbo's CLI entrypoint: a stdlib flag-based
// option set overlaying a limboconf.Load-ed JSON config file, the same
// two-layer shape fc-server/main.go uses for its own knobs, dispatching
// on a "mode" flag the way fc-server dispatches on "node" ("p" for
// participant vs "c" for coordinator).
package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"net"
	"os"
	"os/signal"
	"syscall"
	"time"

	"google.golang.org/grpc"

	"LIMBO/limbo"
	"LIMBO/limbobench"
	"LIMBO/limbocheckpoint"
	"LIMBO/limboconf"
	"LIMBO/limbonet"
	"LIMBO/limboterm"
	"LIMBO/limbowal"
)

var (
	configPath string
	mode       string
	instanceID string
	quorum     int
	timeout    time.Duration
	grpcAddr   string
	walDir     string
	debug      bool

	benchClients  int
	benchDuration time.Duration
	benchReplica  string
)

func usage() {
	flag.PrintDefaults()
}

func init() {
	flag.StringVar(&configPath, "config", "", "path to a limbo JSON config file (overlaid by the flags below)")
	flag.StringVar(&mode, "mode", "serve", "the mode to run: 'serve' or 'bench'")
	flag.StringVar(&instanceID, "id", "", "this instance's replica id")
	flag.IntVar(&quorum, "quorum", 0, "quorum size, 0 to use the config/default")
	flag.DurationVar(&timeout, "timeout", 0, "replication ack timeout, 0 to use the config/default")
	flag.StringVar(&grpcAddr, "addr", "", "gRPC listen address, overrides the config")
	flag.StringVar(&walDir, "wal-dir", "", "WAL segment directory, overrides the config")
	flag.BoolVar(&debug, "debug", false, "enable debug/trace logging")

	flag.IntVar(&benchClients, "bench-clients", 8, "bench mode: number of concurrent clients")
	flag.DurationVar(&benchDuration, "bench-duration", 10*time.Second, "bench mode: how long to run")
	flag.StringVar(&benchReplica, "bench-replica", "", "bench mode: replica id to simulate acks from")

	flag.Usage = usage
}

func main() {
	flag.Parse()

	limboconf.ShowDebugInfo = debug
	limboconf.ShowTestInfo = debug
	limboconf.ShowWarnings = debug

	cfg := limboconf.Default()
	if configPath != "" {
		loaded, err := limboconf.Load(configPath)
		if err != nil {
			log.Fatalf("limbod: %v", err)
		}
		cfg = loaded
	}
	if instanceID != "" {
		cfg.InstanceID = instanceID
	}
	if quorum > 0 {
		cfg.Quorum = quorum
	}
	if timeout > 0 {
		cfg.ReplicationTimeout = timeout
	}
	if grpcAddr != "" {
		cfg.GRPCAddress = grpcAddr
	}
	if walDir != "" {
		cfg.WALDir = walDir
	}
	if cfg.InstanceID == "" {
		log.Fatal("limbod: -id (or config.instance_id) is required")
	}

	switch mode {
	case "serve":
		runServe(cfg)
	case "bench":
		runBench(cfg)
	default:
		log.Fatalf("limbod: invalid -mode %q, want 'serve' or 'bench'", mode)
	}
}

func newLimbo(cfg *limboconf.Config) *limbo.Limbo {
	journal, err := limbowal.Open(cfg.WALDir, 64, cfg.ConfirmBatchWindow)
	if err != nil {
		log.Fatalf("limbod: opening wal: %v", err)
	}
	return limbo.New(limbo.Config{
		InstanceID:    cfg.InstanceID,
		Quorum:        cfg.Quorum,
		Timeout:       cfg.ReplicationTimeout,
		MaxSize:       cfg.MaxQueueSize,
		ConfirmWindow: cfg.ConfirmBatchWindow,
		Journal:       journal,
		Term:          limboterm.NewTracker(1),
		Replicas:      cfg.Replicas,
	})
}

func newCheckpointBackend(ctx context.Context, cfg *limboconf.Config) limbocheckpoint.Backend {
	switch cfg.CheckpointBackend {
	case "mongo":
		b, err := limbocheckpoint.NewMongoBackend(ctx, cfg.MongoURI)
		if err != nil {
			log.Fatalf("limbod: mongo checkpoint backend: %v", err)
		}
		return b
	default:
		return limbocheckpoint.NewFileBackend(fmt.Sprintf("%s/checkpoint.json", cfg.WALDir))
	}
}

func runServe(cfg *limboconf.Config) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	l := newLimbo(cfg)
	defer l.Shutdown()

	cp := newCheckpointBackend(ctx, cfg)
	defer cp.Close()
	if saved, err := cp.Load(ctx); err != nil {
		log.Fatalf("limbod: loading checkpoint: %v", err)
	} else {
		l.RestoreCheckpoint(saved)
	}
	l.Init(cfg.InstanceID)

	lis, err := net.Listen("tcp", cfg.GRPCAddress)
	if err != nil {
		log.Fatalf("limbod: listen %s: %v", cfg.GRPCAddress, err)
	}
	gs := grpc.NewServer()
	limbonet.Register(gs, &limbonet.Server{L: l})

	go func() {
		limboconf.Debugf("limbod: serving on %s", cfg.GRPCAddress)
		if err := gs.Serve(lis); err != nil {
			limboconf.Warnf(false, "limbod: serve: %v", err)
		}
	}()

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, os.Interrupt, syscall.SIGTERM)
	<-stop

	limboconf.Debugf("limbod: shutting down")
	if err := cp.Save(context.Background(), l.Checkpoint()); err != nil {
		limboconf.Warnf(false, "limbod: saving checkpoint: %v", err)
	}
	gs.GracefulStop()
}

func runBench(cfg *limboconf.Config) {
	l := newLimbo(cfg)
	defer l.Shutdown()
	l.Init(cfg.InstanceID)

	ctx, cancel := context.WithTimeout(context.Background(), benchDuration+time.Second)
	defer cancel()
	if err := l.WritePromote(ctx, cfg.InstanceID, 0, 1); err != nil {
		log.Fatalf("limbod: claiming ownership: %v", err)
	}

	replicas := cfg.Replicas
	if benchReplica != "" {
		replicas = []string{benchReplica}
	}
	stat := limbobench.Run(ctx, l, limbobench.Config{
		Clients:  benchClients,
		Duration: benchDuration,
		Replicas: replicas,
	})
	fmt.Println(stat.Log(benchDuration))
}
