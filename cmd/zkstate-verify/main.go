// Command zkstate-verify independently re-verifies a posted transition
// chain straight from the DA layer, with no access to the node's own
// local state.
package main

import (
	"context"
	"flag"
	"fmt"
	"os"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"github.com/muridata/zkstate/pkg/chainverify"
	"github.com/muridata/zkstate/pkg/da"
	"github.com/muridata/zkstate/pkg/da/rpcda"
	"github.com/muridata/zkstate/pkg/host/localharness"
)

func main() {
	rpcURL := flag.String("da-rpc-url", rpcda.DefaultURL, "DA node JSON-RPC endpoint")
	namespace := flag.String("namespace", "zkapp", "DA namespace to verify")
	from := flag.Uint64("from", 1, "first DA height to verify")
	to := flag.Uint64("to", 0, "last DA height to verify (0 = head)")
	skipProof := flag.Bool("skip-proof", false, "check only root continuity and program hash, not proof validity")
	verbose := flag.Bool("v", false, "enable debug logging")
	flag.Parse()

	if *verbose {
		zerolog.SetGlobalLevel(zerolog.DebugLevel)
	} else {
		zerolog.SetGlobalLevel(zerolog.InfoLevel)
	}

	ctx := context.Background()
	client := rpcda.WithURL(*rpcURL)

	toHeight := *to
	if toHeight == 0 {
		head, err := client.GetHeadHeight(ctx)
		if err != nil {
			log.Fatal().Err(err).Msg("fetch head height")
		}
		toHeight = head
	}

	config := chainverify.VerifyConfig{
		Namespace:             da.NamespaceFromString(*namespace),
		SkipProofVerification: *skipProof,
	}

	result, err := chainverify.VerifyRange(ctx, client, localharness.New(), config, *from, toHeight)
	if err != nil {
		log.Fatal().Err(err).Msg("verification failed")
	}

	fmt.Printf("verified %d transitions, heights [%d, %d]\n", result.TotalTransitions, result.HeightRange[0], result.HeightRange[1])
	fmt.Printf("  first root:  %s (sequence %d)\n", result.FirstRoot, result.FirstSequence)
	fmt.Printf("  latest root: %s (sequence %d)\n", result.LatestRoot, result.LastSequence)
	if len(result.UnverifiedSequences) > 0 {
		fmt.Printf("  %d transitions had no proof attached: %v\n", len(result.UnverifiedSequences), result.UnverifiedSequences)
	}

	os.Exit(0)
}
