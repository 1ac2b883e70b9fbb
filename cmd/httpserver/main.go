// The httpserver binary serves the credential registry API: issuance,
// verification, and revocation over HTTP backed by a content store and the
// on-chain registry.
package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"

	"github.com/ethereum/go-ethereum/accounts/abi/bind"
	ethcommon "github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/crypto"
	"github.com/ethereum/go-ethereum/ethclient"
	"github.com/urfave/cli/v2"

	"github.com/echain-id/credential-registry/cmd/flags"
	"github.com/echain-id/credential-registry/credential"
	"github.com/echain-id/credential-registry/httpserver"
	"github.com/echain-id/credential-registry/interfaces"
	"github.com/echain-id/credential-registry/metrics"
	"github.com/echain-id/credential-registry/registry"
	"github.com/echain-id/credential-registry/storage"
)

var listenAddrFlag = &cli.StringFlag{
	Name:  "listen-addr",
	Value: "127.0.0.1:8080",
	Usage: "address to listen on for API",
}

func main() {
	app := &cli.App{
		Name:  "credential-server",
		Usage: "Serve the credential registry API",
		Flags: append([]cli.Flag{
			listenAddrFlag,
			flags.RPCAddrFlag,
			flags.RegistryContractFlag,
			flags.PrivateKeyFlag,
		}, append(flags.StoreFlags, flags.CommonFlags...)...),
		Action: runServer,
	}

	if err := app.Run(os.Args); err != nil {
		log.Fatal(err)
	}
}

func runServer(cCtx *cli.Context) error {
	logger := flags.SetupLogger(cCtx)

	rpcAddress := cCtx.String(flags.RPCAddrFlag.Name)
	contractHex := cCtx.String(flags.RegistryContractFlag.Name)
	privateKeyHex := cCtx.String(flags.PrivateKeyFlag.Name)
	listenAddr := cCtx.String(listenAddrFlag.Name)
	storeURIs := cCtx.StringSlice(flags.StoreURIsFlag.Name)

	if _, err := interfaces.NewAddressFromHex(contractHex); err != nil {
		logger.Error("Invalid registry contract address", "err", err, "address", contractHex)
		return err
	}

	logger.Info("Connecting to Ethereum RPC", "address", rpcAddress)
	ethClient, err := ethclient.Dial(rpcAddress)
	if err != nil {
		logger.Error("Failed to dial RPC", "err", err)
		return err
	}

	registryClient := registry.NewOnchainRegistryClient(ethClient, ethcommon.HexToAddress(contractHex))

	// Without a key the server still serves verification; issue and revoke
	// fail with ErrNoSigner.
	if privateKeyHex != "" {
		key, err := crypto.HexToECDSA(privateKeyHex)
		if err != nil {
			logger.Error("Invalid private key", "err", err)
			return err
		}
		chainID, err := ethClient.ChainID(context.Background())
		if err != nil {
			logger.Error("Failed to query chain id", "err", err)
			return err
		}
		auth, err := bind.NewKeyedTransactorWithChainID(key, chainID)
		if err != nil {
			logger.Error("Failed to create transactor", "err", err)
			return err
		}
		registryClient.SetTransactOpts(auth)
		logger.Info("Signer configured", "address", auth.From.Hex(), "chainID", chainID.String())
	} else {
		logger.Warn("No private key configured, registry writes disabled")
	}

	m := metrics.New()

	storeOpts := flags.StoreOptions(cCtx)
	storeOpts.Metrics = m
	storeFactory := storage.NewStoreFactory(logger, storeOpts)
	store, err := storeFactory.CreateMirroredStore(storeURIs)
	if err != nil {
		logger.Error("Failed to create content store", "err", err, "uris", storeURIs)
		return err
	}
	logger.Info("Content store configured", "store", store.Name(), "location", store.LocationURI())

	workflow := credential.NewWorkflow(store, registryClient, logger)
	handler := httpserver.NewHandler(workflow, m, logger)

	server, err := httpserver.New(flags.ConfigureServer(cCtx, logger, listenAddr), handler)
	if err != nil {
		logger.Error("Failed to create server", "err", err)
		return err
	}

	server.RunInBackground()

	exit := make(chan os.Signal, 1)
	signal.Notify(exit, os.Interrupt, syscall.SIGTERM)

	logger.Info("Server is running, press Ctrl+C to stop")
	<-exit
	logger.Info("Shutdown signal received")

	server.Shutdown()
	logger.Info("Server shutdown complete")

	return nil
}
