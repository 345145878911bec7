//go:build ignore

// generate_hash.go prints an argon2id hash for an API token.
//
//	go run scripts/generate_hash.go [token]
//
// Without an argument a random token is generated and printed too. Put the
// hash into KIOSK_TOKEN_HASH or ADMIN_TOKEN_HASH; the kiosk or the admin
// client sends the token as "Authorization: Bearer <token>".
package main

import (
	"crypto/rand"
	"encoding/base64"
	"encoding/hex"
	"fmt"
	"os"

	"golang.org/x/crypto/argon2"
)

const (
	memory      uint32 = 64 * 1024 // KiB
	iterations  uint32 = 3
	parallelism uint8  = 2
	keyLength   uint32 = 32
	saltLength         = 16
)

func main() {
	token := ""
	if len(os.Args) > 1 {
		token = os.Args[1]
	} else {
		raw := make([]byte, 24)
		if _, err := rand.Read(raw); err != nil {
			fail("generate token: %v", err)
		}
		token = hex.EncodeToString(raw)
		fmt.Println("token:", token)
	}

	salt := make([]byte, saltLength)
	if _, err := rand.Read(salt); err != nil {
		fail("generate salt: %v", err)
	}

	key := argon2.IDKey([]byte(token), salt, iterations, memory, parallelism, keyLength)
	fmt.Printf("hash:  $argon2id$v=%d$m=%d,t=%d,p=%d$%s$%s\n",
		argon2.Version, memory, iterations, parallelism,
		base64.RawStdEncoding.EncodeToString(salt),
		base64.RawStdEncoding.EncodeToString(key))
}

func fail(format string, args ...any) {
	fmt.Fprintf(os.Stderr, format+"\n", args...)
	os.Exit(1)
}
