// Command devtoken mints identity-provider tokens for local development.
// The server accepts them when started with the same secret.
package main

import (
	"flag"
	"fmt"
	"log"
	"os"
	"time"

	"github.com/dmitrijs2005/dualcal/internal/server/auth"
)

func main() {
	uid := flag.String("uid", "", "account uid")
	email := flag.String("email", "", "verified email")
	secret := flag.String("secret", os.Getenv("DUALCAL_SECRET_KEY"), "signing secret")
	ttl := flag.Duration("ttl", time.Hour, "token lifetime")
	flag.Parse()

	if *uid == "" || *secret == "" {
		flag.Usage()
		os.Exit(2)
	}

	token, err := auth.GenerateToken(auth.Identity{UID: *uid, Email: *email}, []byte(*secret), *ttl)
	if err != nil {
		log.Fatalf("%v", err)
	}
	fmt.Println(token)
}
