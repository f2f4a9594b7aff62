// Command nxtpctl is a thin CLI demo driver that requests one transfer
// quote against an in-memory message bus; it does not go on to prepare or
// fulfill. It is not
// part of the SDK's public surface (spec.md names no CLI); it exists the
// same way cmd/arcsign/main.go exists alongside the teacher's library
// packages, as a runnable demonstration of the wiring.
package main

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/spf13/pflag"

	"github.com/blockcoders/nxtp-sdk/internal/auction"
	"github.com/blockcoders/nxtp-sdk/internal/chaingate"
	"github.com/blockcoders/nxtp-sdk/internal/chainprovider"
	"github.com/blockcoders/nxtp-sdk/internal/eventmux"
	"github.com/blockcoders/nxtp-sdk/internal/indexergate"
	"github.com/blockcoders/nxtp-sdk/internal/messaging"
	"github.com/blockcoders/nxtp-sdk/internal/orchestrator"
	"github.com/blockcoders/nxtp-sdk/internal/registry"
	"github.com/blockcoders/nxtp-sdk/internal/telemetry"
	"github.com/blockcoders/nxtp-sdk/internal/types"
	"github.com/blockcoders/nxtp-sdk/internal/validation"
)

const version = "0.1.0"

func main() {
	var (
		sendingChain   = pflag.Int64("sending-chain", 1, "sending chain id")
		receivingChain = pflag.Int64("receiving-chain", 137, "receiving chain id")
		amount         = pflag.String("amount", "1000000", "transfer amount, base units")
		slippage       = pflag.String("slippage", "1.00", "slippage tolerance percent")
		showVersion    = pflag.Bool("version", false, "print version and exit")
	)
	pflag.Parse()

	if *showVersion {
		fmt.Printf("nxtpctl v%s\n", version)
		return
	}

	log, err := telemetry.NewLogger(true)
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to init logger: %v\n", err)
		os.Exit(1)
	}
	defer log.Sync()

	reg := registry.NewRegistry()
	providers := map[types.ChainId]chainprovider.Provider{}
	gate := chaingate.NewEVMGate(providers, reg, nil)
	idx := indexergate.NewSubgraphGate(reg, nil, providers)
	bus := messaging.NewInMemoryBus()
	auc := auction.NewClient(bus, gate)
	mux := eventmux.New()
	orch := orchestrator.New(gate, idx, auc, bus, mux, nil)

	watcher := indexergate.NewWatcher(idx, mux)
	go watcher.Run(context.Background(), types.ChainId(*receivingChain), types.Address{0x01}, 5*time.Second)

	amt, ok := types.ParseAmount(*amount)
	if !ok {
		fmt.Fprintln(os.Stderr, "invalid --amount")
		os.Exit(1)
	}

	params := validation.QuoteParams{
		SendingChainId:    types.ChainId(*sendingChain),
		ReceivingChainId:  types.ChainId(*receivingChain),
		Amount:            amt,
		ReceivingAddress:  "0x000000000000000000000000000000000000aa",
		SlippageTolerance: *slippage,
		CallData:          "0x",
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	log.Sugar().Infow("requesting quote", "sendingChain", *sendingChain, "receivingChain", *receivingChain, "amount", amt.String())
	_, err = orch.GetTransferQuote(ctx, params, types.Address{0x01}, auction.OpenAuction())
	if err != nil {
		fmt.Fprintf(os.Stderr, "quote failed: %v\n", err)
		os.Exit(1)
	}
	fmt.Println("quote accepted")
}
