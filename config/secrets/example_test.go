package secrets_test

import (
	"fmt"
	"log"
	"os"
	"path/filepath"

	"github.com/lone-faerie/cfstats/config/secrets"
)

func Example() {
	// Setup secret file for testing
	dir, err := os.MkdirTemp("", "secrets")
	if err != nil {
		log.Fatal(err)
	}
	defer os.RemoveAll(dir)
	secrets.Dir = dir

	err = os.WriteFile(filepath.Join(dir, "cf_token"), []byte("0123456789abcdef\n"), 0600)
	if err != nil {
		log.Fatal(err)
	}

	// Get secret
	s := "!secret cf_token"
	s, ok := secrets.CutPrefix(s)
	if !ok {
		log.Fatal(s, "is not a secret")
	}
	secret, err := secrets.Read(s)
	if err != nil {
		log.Fatal(err)
	}
	fmt.Println(secret)
	// Output: 0123456789abcdef
}
