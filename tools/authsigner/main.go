// Command authsigner signs purchase authorizations with the trusted
// signer's private key. It is the off-chain half of the authorization
// scheme: the resulting signature is what a buyer submits with a
// signature-gated purchase.
package main

import (
	"flag"
	"fmt"
	"math/big"
	"os"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/common/hexutil"
	"github.com/ethereum/go-ethereum/crypto"

	"github.com/feral-file/ff-boxoffice/internal/authorizer"
	"github.com/feral-file/ff-boxoffice/internal/domain"
)

var (
	keyHex   = flag.String("key", "", "Trusted signer private key (hex, no 0x prefix)")
	contract = flag.String("contract", "", "Sale contract address")
	chainID  = flag.Uint64("chain-id", 1, "Chain id")
	buyer    = flag.String("buyer", "", "Buyer address")
	boxID    = flag.Uint64("box-id", 0, "Box identifier")
	nonceStr = flag.String("nonce", "", "One-time nonce (decimal)")
)

func main() {
	flag.Parse()

	if *keyHex == "" || *contract == "" || *buyer == "" || *boxID == 0 || *nonceStr == "" {
		flag.Usage()
		os.Exit(2)
	}
	if !common.IsHexAddress(*contract) {
		fatalf("invalid contract address: %s", *contract)
	}
	if !common.IsHexAddress(*buyer) {
		fatalf("invalid buyer address: %s", *buyer)
	}
	nonce, ok := new(big.Int).SetString(*nonceStr, 10)
	if !ok || nonce.Sign() < 0 {
		fatalf("invalid nonce: %s", *nonceStr)
	}

	key, err := crypto.HexToECDSA(*keyHex)
	if err != nil {
		fatalf("invalid private key: %v", err)
	}

	auth := authorizer.New(common.HexToAddress(*contract), new(big.Int).SetUint64(*chainID))
	sig, err := auth.Sign(key, common.HexToAddress(*buyer), domain.BoxID(*boxID), nonce)
	if err != nil {
		fatalf("failed to sign: %v", err)
	}

	fmt.Printf("signer:    %s\n", crypto.PubkeyToAddress(key.PublicKey).Hex())
	fmt.Printf("signature: %s\n", hexutil.Encode(sig))
}

func fatalf(format string, args ...any) {
	fmt.Fprintf(os.Stderr, format+"\n", args...)
	os.Exit(1)
}
