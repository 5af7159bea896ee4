// Command gen-admin-token generates an admin token and the Argon2id hash to
// put in ADMIN_TOKEN_HASH. The plaintext token is shown once; only the hash
// is stored anywhere.
package main

import (
	"encoding/json"
	"flag"
	"fmt"
	"os"

	"github.com/scriptgate/scriptgate/internal/auth"
)

type output struct {
	Token string `json:"token"`
	Hash  string `json:"hash"`
}

func main() {
	format := flag.String("format", "plain", "Output format: plain or json")
	flag.Parse()

	token, hash, err := auth.GenerateToken()
	if err != nil {
		fmt.Fprintln(os.Stderr, "generate token:", err)
		os.Exit(1)
	}

	switch *format {
	case "json":
		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		if err := enc.Encode(output{Token: token, Hash: hash}); err != nil {
			fmt.Fprintln(os.Stderr, "encode output:", err)
			os.Exit(1)
		}
	default:
		fmt.Println("Admin token (store securely, shown once):")
		fmt.Println("  " + token)
		fmt.Println("ADMIN_TOKEN_HASH:")
		fmt.Println("  " + hash)
	}
}
