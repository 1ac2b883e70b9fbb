// Package flags holds the CLI flag definitions and setup helpers shared by
// the service and client binaries.
package flags

import (
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/urfave/cli/v2"

	"github.com/echain-id/credential-registry/common"
	"github.com/echain-id/credential-registry/httpserver"
	"github.com/echain-id/credential-registry/storage"
)

// SetupLogger builds the process logger from the common log flags.
func SetupLogger(cCtx *cli.Context) (log *slog.Logger) {
	logJSON := cCtx.Bool(LogJSONFlag.Name)
	logDebug := cCtx.Bool(LogDebugFlag.Name)
	logUID := cCtx.Bool(LogUIDFlag.Name)
	logService := cCtx.String(LogServiceFlag.Name)

	logger := common.SetupLogger(&common.LoggingOpts{
		Debug:   logDebug,
		JSON:    logJSON,
		Service: logService,
		Version: common.Version,
	})

	if logUID {
		id := uuid.Must(uuid.NewRandom())
		logger = logger.With("uid", id.String())
	}
	return logger
}

// ConfigureServer builds the HTTP server config from the common server flags.
func ConfigureServer(cCtx *cli.Context, logger *slog.Logger, listenAddr string) *httpserver.HTTPServerConfig {
	metricsAddr := cCtx.String(MetricsAddrFlag.Name)
	enablePprof := cCtx.Bool(PprofFlag.Name)
	drainDuration := time.Duration(cCtx.Int64(DrainSecondsFlag.Name)) * time.Second

	return &httpserver.HTTPServerConfig{
		ListenAddr:               listenAddr,
		MetricsAddr:              metricsAddr,
		Log:                      logger,
		EnablePprof:              enablePprof,
		DrainDuration:            drainDuration,
		GracefulShutdownDuration: 30 * time.Second,
		ReadTimeout:              60 * time.Second,
		WriteTimeout:             30 * time.Second,
	}
}

// StoreOptions builds the content store options from the storage flags.
func StoreOptions(cCtx *cli.Context) storage.StoreOptions {
	return storage.StoreOptions{
		PinataJWT:      cCtx.String(PinataJWTFlag.Name),
		Gateways:       cCtx.StringSlice(GatewaysFlag.Name),
		GatewayTimeout: time.Duration(cCtx.Int64(GatewayTimeoutFlag.Name)) * time.Second,
	}
}

var RPCAddrFlag = &cli.StringFlag{
	Name:  "rpc-addr",
	Value: "http://127.0.0.1:8545",
	Usage: "address to connect to RPC",
}

var RegistryContractFlag = &cli.StringFlag{
	Name:     "registry-contract",
	Required: true,
	Usage:    "credential registry contract address, 0x-prefixed hex",
}

var StoreURIsFlag = &cli.StringSliceFlag{
	Name:  "store-uri",
	Value: cli.NewStringSlice("pinata://api.pinata.cloud"),
	Usage: "content store location URI (pinata://, ipfs://, s3://, file://); repeat for a mirrored store",
}

var PinataJWTFlag = &cli.StringFlag{
	Name:    "pinata-jwt",
	EnvVars: []string{"PINATA_JWT"},
	Usage:   "bearer JWT for the hosted pinning service",
}

var GatewaysFlag = &cli.StringSliceFlag{
	Name:  "gateway",
	Usage: "retrieval gateway URL template, %s replaced with the CID; repeat to override the default ordered list",
}

var GatewayTimeoutFlag = &cli.Int64Flag{
	Name:  "gateway-timeout",
	Value: 30,
	Usage: "seconds allowed for a single gateway fetch attempt",
}

var PrivateKeyFlag = &cli.StringFlag{
	Name:    "private-key",
	EnvVars: []string{"CREDENTIAL_PRIVATE_KEY"},
	Usage:   "hex private key used to sign registry transactions",
}

var LogJSONFlag = &cli.BoolFlag{
	Name:  "log-json",
	Value: false,
	Usage: "log in JSON format",
}
var LogDebugFlag = &cli.BoolFlag{
	Name:  "log-debug",
	Value: false,
	Usage: "log debug messages",
}
var LogUIDFlag = &cli.BoolFlag{
	Name:  "log-uid",
	Value: false,
	Usage: "generate a uuid and add to all log messages",
}
var LogServiceFlag = &cli.StringFlag{
	Name:  "log-service",
	Value: common.PackageName,
	Usage: "add 'service' tag to logs",
}

var PprofFlag = &cli.BoolFlag{
	Name:  "pprof",
	Value: false,
	Usage: "enable pprof debug endpoint",
}
var DrainSecondsFlag = &cli.Int64Flag{
	Name:  "drain-seconds",
	Value: 45,
	Usage: "seconds to wait in drain HTTP request",
}
var MetricsAddrFlag = &cli.StringFlag{
	Name:  "metrics-addr",
	Value: "127.0.0.1:8090",
	Usage: "address to listen on for Prometheus metrics",
}

var CommonFlags = []cli.Flag{
	LogJSONFlag,
	LogDebugFlag,
	LogUIDFlag,
	LogServiceFlag,
	PprofFlag,
	DrainSecondsFlag,
	MetricsAddrFlag,
}

var StoreFlags = []cli.Flag{
	StoreURIsFlag,
	PinataJWTFlag,
	GatewaysFlag,
	GatewayTimeoutFlag,
}
