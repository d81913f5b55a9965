package main

import (
	"flag"
	"fmt"
	"net/http"
	"os"
	"strings"

	"github.com/maxplatform/signin-front/internal/devidp"
	"github.com/maxplatform/signin-front/internal/log"
)

func main() {
	addr := flag.String("addr", ":9090", "listen address")
	clientID := flag.String("client-id", "maxplatform", "OAuth client ID to accept")
	redirectURIs := flag.String("redirect-uris", "http://localhost:8080/oauth/callback", "comma-separated allowed redirect URIs")
	scopes := flag.String("scopes", "openid,profile", "comma-separated scopes the client may request")
	subject := flag.String("subject", "dev-user", "subject issued in every session")
	flag.Parse()

	srv, err := devidp.New(devidp.Config{
		ClientID:     *clientID,
		RedirectURIs: strings.Split(*redirectURIs, ","),
		Scopes:       strings.Split(*scopes, ","),
		Subject:      *subject,
	})
	if err != nil {
		log.LogError("Failed to build dev authorization server: %v", err)
		os.Exit(1)
	}

	log.LogInfoWithFields("devidp", "Dev authorization server listening", map[string]any{
		"addr":      *addr,
		"client_id": *clientID,
	})
	fmt.Printf("authorization endpoint: http://localhost%s/oauth2/auth\n", *addr)
	fmt.Printf("token endpoint:         http://localhost%s/oauth2/token\n", *addr)

	if err := http.ListenAndServe(*addr, srv.Handler()); err != nil {
		log.LogError("Server error: %v", err)
		os.Exit(1)
	}
}
