// Command zkstate-node runs a single application's state-transition
// node: it owns the durable state store, proves each transition, and
// posts the resulting blob to a DA layer.
package main

import (
	"context"
	"flag"
	"fmt"
	"os"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"github.com/muridata/zkstate/pkg/config"
	"github.com/muridata/zkstate/pkg/da"
	"github.com/muridata/zkstate/pkg/da/memda"
	"github.com/muridata/zkstate/pkg/da/rpcda"
	"github.com/muridata/zkstate/pkg/host"
	"github.com/muridata/zkstate/pkg/host/gnarkprover"
	"github.com/muridata/zkstate/pkg/host/localharness"
	"github.com/muridata/zkstate/pkg/node"
	"github.com/muridata/zkstate/pkg/statestore"
)

func main() {
	memDA := flag.Bool("mem-da", false, "use an in-memory DA client instead of the configured RPC endpoint")
	gnarkProve := flag.Bool("gnark-prove", false, "prove transitions with a real Groth16 circuit instead of the no-proof local harness (runs a fresh dev setup at startup, NOT for production keys)")
	verbose := flag.Bool("v", false, "enable debug logging")
	flag.Parse()

	if *verbose {
		zerolog.SetGlobalLevel(zerolog.DebugLevel)
	} else {
		zerolog.SetGlobalLevel(zerolog.InfoLevel)
	}

	cfg, err := config.FromEnv()
	if err != nil {
		log.Fatal().Err(err).Msg("load config")
	}

	var daClient da.Client = rpcda.WithURL(cfg.DARPCURL)
	if *memDA {
		daClient = memda.New()
	}

	var nodeConfig node.Config
	nodeConfig.DataDir = cfg.DataDir
	nodeConfig.AppID = []byte(cfg.AppID)
	nodeConfig.Namespace = cfg.DANamespace()
	nodeConfig.PostingEnabled = cfg.PostingEnabled
	nodeConfig.ProvingEnabled = cfg.ProvingEnabled

	ctx := context.Background()

	metrics, err := node.NewMetrics(prometheus.DefaultRegisterer)
	if err != nil {
		log.Fatal().Err(err).Msg("register metrics")
	}

	var harness host.Harness = localharness.New()
	if *gnarkProve {
		log.Warn().Msg("gnark-prove: running a fresh Groth16 dev setup, not suitable for production keys")
		h, err := gnarkprover.DevSetup()
		if err != nil {
			log.Fatal().Err(err).Msg("gnark dev setup")
		}
		harness = h
	}

	n, err := node.Open(ctx, nodeConfig, daClient, harness, metrics)
	if err != nil {
		log.Fatal().Err(err).Msg("open node")
	}
	defer n.Close()

	log.Info().Str("root", n.Root().String()).Msg("zkstate-node started")

	if flag.NArg() == 0 {
		fmt.Println("usage: zkstate-node set <key> <value>")
		os.Exit(0)
	}

	switch flag.Arg(0) {
	case "set":
		if flag.NArg() != 3 {
			log.Fatal().Msg("usage: zkstate-node set <key> <value>")
		}
		result, err := n.ApplyTransition(ctx, []statestore.Op{
			statestore.InsertOp([]byte(flag.Arg(1)), []byte(flag.Arg(2))),
		}, nil, nil, nil)
		if err != nil {
			log.Fatal().Err(err).Msg("apply transition")
		}
		fmt.Printf("sequence=%d root=%s\n", result.Sequence, result.NewRoot)
	default:
		log.Fatal().Str("command", flag.Arg(0)).Msg("unknown command")
	}
}
