// Command repldefd is a long-running replication peer daemon: it loads a
// config.PeerConfig, opens its local connection, installs or upgrades its
// own metadata schema, and runs Coordinator.Pull on a timer. Real
// peer-to-peer transport is left to the host: this binary wires a
// Transport-shaped set of closures that a deployment fills in with its own
// wire protocol.
package main

import (
	"context"
	"fmt"
	"log"
	"os"
	"time"

	"github.com/google/uuid"
	"github.com/jessevdk/go-flags"

	"github.com/repldef/repldef/config"
	"github.com/repldef/repldef/coordinator"
	"github.com/repldef/repldef/enginedb"
	"github.com/repldef/repldef/pager"
	"github.com/repldef/repldef/repllog"
	"github.com/repldef/repldef/synclog"
	"github.com/repldef/repldef/util"
)

type options struct {
	Config       string `long:"config" description:"Peer YAML config file" required:"true" value-name:"peer.yaml"`
	SyncInterval int    `long:"sync-interval" description:"Seconds between sync attempts" default:"10"`
	Once         bool   `long:"once" description:"Run a single sync pass and exit, instead of looping"`
}

func parseOptions(args []string) options {
	var opts options
	if _, err := flags.ParseArgs(&opts, args); err != nil {
		log.Fatal(err)
	}
	return opts
}

func main() {
	util.InitSlog()
	opts := parseOptions(os.Args[1:])

	cfg, err := config.Load(opts.Config)
	if err != nil {
		log.Fatal(err)
	}

	conn, err := config.Dial(cfg.Local)
	if err != nil {
		log.Fatal(err)
	}
	defer conn.Close()

	if err := installSchema(context.Background(), conn); err != nil {
		log.Fatal(err)
	}

	state, err := synclog.LoadState(context.Background(), conn)
	if err != nil {
		log.Fatal(err)
	}
	if state.OriginID == "" {
		state.OriginID = uuid.NewString()
		if err := synclog.SaveStateValue(context.Background(), conn, "origin_id", state.OriginID); err != nil {
			log.Fatal(err)
		}
	}

	coord := &coordinator.Coordinator{
		Conn:          conn,
		LocalOriginID: state.OriginID,
		BatchConfig:   pager.Config{BatchSize: cfg.BatchSize, ComputeHash: true},
		MaxPasses:     cfg.MaxPasses,
		Logger:        repllog.Default(),
	}

	logger := repllog.Default()
	logger.Printf("repldefd: peer %s ready as origin %s", cfg.Name, state.OriginID)

	if opts.Once {
		if err := runOnce(context.Background(), coord); err != nil {
			log.Fatal(err)
		}
		return
	}

	ticker := time.NewTicker(time.Duration(opts.SyncInterval) * time.Second)
	defer ticker.Stop()
	for range ticker.C {
		if err := runOnce(context.Background(), coord); err != nil {
			logger.Printf("repldefd: sync error: %v", err)
		}
	}
}

// runOnce is where a real deployment would plug in its transport; this
// demonstrates the call shape against a no-op remote with zero entries
// rather than assuming any particular network stack.
func runOnce(ctx context.Context, coord *coordinator.Coordinator) error {
	fetchRemote := func(ctx context.Context, fromVersion int64, limit int) ([]synclog.Entry, error) {
		return nil, nil
	}
	applyLocal := func(ctx context.Context, entry synclog.Entry) (bool, error) {
		return true, nil
	}
	commitPull := func(ctx context.Context, version int64) error { return nil }

	state, err := synclog.LoadState(ctx, coord.Conn)
	if err != nil {
		return err
	}

	stats, err := coord.Pull(ctx, state.LastServerVersion, fetchRemote, applyLocal, commitPull)
	if err != nil {
		return err
	}
	if stats.ToVersion != state.LastServerVersion {
		if err := synclog.SaveStateValue(ctx, coord.Conn, "last_server_version", fmt.Sprintf("%d", stats.ToVersion)); err != nil {
			return err
		}
	}
	return nil
}

func installSchema(ctx context.Context, conn *enginedb.Conn) error {
	for _, ddl := range synclog.CreateTablesSQL(conn.Engine()) {
		if _, err := conn.DB().ExecContext(ctx, ddl); err != nil {
			return err
		}
	}
	return nil
}
