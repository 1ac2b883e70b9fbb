package registry

import (
	"strings"

	"github.com/ethereum/go-ethereum/accounts/abi"
	"github.com/ethereum/go-ethereum/accounts/abi/bind"
	"github.com/ethereum/go-ethereum/common"
)

// registryABI is the credential registry contract interface: an append-only
// mapping of credential digests to issuance metadata. A record with a zero
// timestamp does not exist; revocation flips the revoked flag and preserves
// the original issuance timestamp.
const registryABI = `[
  {
    "type": "function",
    "name": "issueCredential",
    "stateMutability": "nonpayable",
    "inputs": [
      {"name": "credentialHash", "type": "bytes32"},
      {"name": "cid", "type": "string"},
      {"name": "issuer", "type": "address"}
    ],
    "outputs": []
  },
  {
    "type": "function",
    "name": "getCredential",
    "stateMutability": "view",
    "inputs": [
      {"name": "credentialHash", "type": "bytes32"}
    ],
    "outputs": [
      {"name": "issuer", "type": "address"},
      {"name": "cid", "type": "string"},
      {"name": "timestamp", "type": "uint256"},
      {"name": "revoked", "type": "bool"}
    ]
  },
  {
    "type": "function",
    "name": "revokeCredential",
    "stateMutability": "nonpayable",
    "inputs": [
      {"name": "credentialHash", "type": "bytes32"}
    ],
    "outputs": []
  }
]`

// parsedRegistryABI caches the parsed contract ABI.
var parsedRegistryABI = func() abi.ABI {
	parsed, err := abi.JSON(strings.NewReader(registryABI))
	if err != nil {
		panic("registry: invalid embedded ABI: " + err.Error())
	}
	return parsed
}()

// bindRegistry binds the registry ABI to a deployed contract address.
func bindRegistry(address common.Address, backend bind.ContractBackend) *bind.BoundContract {
	return bind.NewBoundContract(address, parsedRegistryABI, backend, backend, backend)
}
