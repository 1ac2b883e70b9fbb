// The credential_client binary drives the credential workflow directly from
// the command line: issue a document, verify a content ID, or revoke a
// digest.
package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log"
	"log/slog"
	"os"
	"strings"

	"github.com/ethereum/go-ethereum/accounts/abi/bind"
	ethcommon "github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/crypto"
	"github.com/ethereum/go-ethereum/ethclient"
	"github.com/urfave/cli/v2"

	"github.com/echain-id/credential-registry/cmd/flags"
	"github.com/echain-id/credential-registry/credential"
	"github.com/echain-id/credential-registry/interfaces"
	"github.com/echain-id/credential-registry/registry"
	"github.com/echain-id/credential-registry/storage"
)

var fieldFlag = &cli.StringSliceFlag{
	Name:  "field",
	Usage: "credential field as key=value; repeat per field",
}

var documentFlag = &cli.StringFlag{
	Name:  "document",
	Usage: "path to a JSON document of string fields, '-' for stdin",
}

var issuerFlag = &cli.StringFlag{
	Name:  "issuer",
	Usage: "issuer address, 0x-prefixed hex; defaults to the signer address",
}

var cidFlag = &cli.StringFlag{
	Name:     "cid",
	Required: true,
	Usage:    "content ID to verify",
}

var digestFlag = &cli.StringFlag{
	Name:     "digest",
	Required: true,
	Usage:    "credential digest to revoke, 0x-prefixed hex",
}

func main() {
	commonFlags := append([]cli.Flag{
		flags.RPCAddrFlag,
		flags.RegistryContractFlag,
		flags.PrivateKeyFlag,
	}, flags.StoreFlags...)
	commonFlags = append(commonFlags,
		flags.LogJSONFlag, flags.LogDebugFlag, flags.LogUIDFlag, flags.LogServiceFlag)

	app := &cli.App{
		Name:  "credential-client",
		Usage: "Issue, verify, and revoke credentials against the on-chain registry",
		Commands: []*cli.Command{
			{
				Name:   "issue",
				Usage:  "Canonicalize a document, pin it, and record its digest",
				Flags:  append([]cli.Flag{fieldFlag, documentFlag, issuerFlag}, commonFlags...),
				Action: runIssue,
			},
			{
				Name:   "verify",
				Usage:  "Fetch a content ID and check its digest against the registry",
				Flags:  append([]cli.Flag{cidFlag}, commonFlags...),
				Action: runVerify,
			},
			{
				Name:   "revoke",
				Usage:  "Revoke a previously issued credential digest",
				Flags:  append([]cli.Flag{digestFlag}, commonFlags...),
				Action: runRevoke,
			},
		},
	}

	if err := app.Run(os.Args); err != nil {
		log.Fatal(err)
	}
}

type clientEnv struct {
	workflow *credential.Workflow
	registry *registry.OnchainRegistryClient
	signer   *bind.TransactOpts
	log      *slog.Logger
}

func setup(cCtx *cli.Context) (*clientEnv, error) {
	logger := flags.SetupLogger(cCtx)

	contractHex := cCtx.String(flags.RegistryContractFlag.Name)
	if _, err := interfaces.NewAddressFromHex(contractHex); err != nil {
		return nil, fmt.Errorf("invalid registry contract address %q: %w", contractHex, err)
	}

	ethClient, err := ethclient.Dial(cCtx.String(flags.RPCAddrFlag.Name))
	if err != nil {
		return nil, fmt.Errorf("failed to dial RPC: %w", err)
	}

	registryClient := registry.NewOnchainRegistryClient(ethClient, ethcommon.HexToAddress(contractHex))

	env := &clientEnv{registry: registryClient, log: logger}

	if privateKeyHex := cCtx.String(flags.PrivateKeyFlag.Name); privateKeyHex != "" {
		key, err := crypto.HexToECDSA(strings.TrimPrefix(privateKeyHex, "0x"))
		if err != nil {
			return nil, fmt.Errorf("invalid private key: %w", err)
		}
		chainID, err := ethClient.ChainID(context.Background())
		if err != nil {
			return nil, fmt.Errorf("failed to query chain id: %w", err)
		}
		auth, err := bind.NewKeyedTransactorWithChainID(key, chainID)
		if err != nil {
			return nil, fmt.Errorf("failed to create transactor: %w", err)
		}
		registryClient.SetTransactOpts(auth)
		env.signer = auth
	}

	storeFactory := storage.NewStoreFactory(logger, flags.StoreOptions(cCtx))
	store, err := storeFactory.CreateMirroredStore(cCtx.StringSlice(flags.StoreURIsFlag.Name))
	if err != nil {
		return nil, fmt.Errorf("failed to create content store: %w", err)
	}

	env.workflow = credential.NewWorkflow(store, registryClient, logger)
	return env, nil
}

func runIssue(cCtx *cli.Context) error {
	env, err := setup(cCtx)
	if err != nil {
		return err
	}

	doc, err := loadDocument(cCtx)
	if err != nil {
		return err
	}

	issuer, err := resolveIssuer(cCtx, env)
	if err != nil {
		return err
	}

	cred, err := env.workflow.Issue(cCtx.Context, credential.IssueRequest{Document: doc, Issuer: issuer})
	if err != nil {
		fmt.Fprintln(os.Stderr, credential.StatusForError(err))
		return err
	}

	fmt.Printf("digest: %s\ncid:    %s\nstate:  %s\nstatus: %s\n",
		cred.Digest.String(), cred.CID.String(), cred.State, cred.Status)
	return nil
}

func runVerify(cCtx *cli.Context) error {
	env, err := setup(cCtx)
	if err != nil {
		return err
	}

	result, err := env.workflow.Verify(cCtx.Context, interfaces.ContentID(cCtx.String(cidFlag.Name)))
	if err != nil {
		fmt.Fprintln(os.Stderr, credential.StatusForError(err))
		return err
	}

	fmt.Printf("outcome: %s\ndigest:  %s\nstatus:  %s\n",
		result.Outcome, result.Digest.String(), result.Status)
	if result.Record.Exists() {
		fmt.Printf("issuer:  %s\nissued:  %d\n", result.Record.Issuer.String(), result.Record.Timestamp)
	}
	return nil
}

func runRevoke(cCtx *cli.Context) error {
	env, err := setup(cCtx)
	if err != nil {
		return err
	}

	digest, err := interfaces.NewDigestFromHex(cCtx.String(digestFlag.Name))
	if err != nil {
		return fmt.Errorf("invalid digest: %w", err)
	}

	tx, err := env.workflow.Revoke(cCtx.Context, digest)
	if err != nil {
		fmt.Fprintln(os.Stderr, credential.StatusForError(err))
		return err
	}

	fmt.Printf("digest: %s\ntx:     %s\nstatus: revocation submitted\n", digest.String(), tx.Hash().Hex())
	return nil
}

// loadDocument builds the credential document from --document or --field.
func loadDocument(cCtx *cli.Context) (interfaces.CredentialDocument, error) {
	doc := interfaces.CredentialDocument{Fields: map[string]string{}}

	if path := cCtx.String(documentFlag.Name); path != "" {
		var data []byte
		var err error
		if path == "-" {
			data, err = io.ReadAll(os.Stdin)
		} else {
			data, err = os.ReadFile(path)
		}
		if err != nil {
			return doc, fmt.Errorf("failed to read document: %w", err)
		}
		if err := json.Unmarshal(data, &doc.Fields); err != nil {
			return doc, fmt.Errorf("document must be a JSON object of string fields: %w", err)
		}
	}

	for _, kv := range cCtx.StringSlice(fieldFlag.Name) {
		key, value, found := strings.Cut(kv, "=")
		if !found || key == "" {
			return doc, fmt.Errorf("invalid --field %q, expected key=value", kv)
		}
		doc.Fields[key] = value
	}

	if len(doc.Fields) == 0 {
		return doc, fmt.Errorf("no document fields; use --document or --field")
	}
	return doc, nil
}

// resolveIssuer prefers --issuer, falling back to the signer address.
func resolveIssuer(cCtx *cli.Context, env *clientEnv) (interfaces.Address, error) {
	if issuerHex := cCtx.String(issuerFlag.Name); issuerHex != "" {
		return interfaces.NewAddressFromHex(issuerHex)
	}
	if env.signer != nil {
		return interfaces.NewAddressFromBytes(env.signer.From.Bytes())
	}
	return interfaces.Address{}, fmt.Errorf("no issuer: provide --issuer or --private-key")
}
