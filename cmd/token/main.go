// Package main mints development access tokens.
// Usage: token -user alice -perms stock:read,stock:write -branches Main,Harbor
package main

import (
	"flag"
	"fmt"
	"os"
	"strings"
	"time"

	"bakehouse/internal/config"
	"bakehouse/internal/domain/auth"
)

func main() {
	var (
		user     = flag.String("user", "dev", "user id")
		email    = flag.String("email", "", "email claim")
		perms    = flag.String("perms", "", "comma-separated permissions")
		branches = flag.String("branches", "", "comma-separated branch codes")
		roles    = flag.String("roles", "", "comma-separated roles")
		admin    = flag.Bool("admin", false, "grant every permission and branch")
		ttl      = flag.Duration("ttl", 0, "token lifetime (default JWT_TOKEN_TTL)")
	)
	flag.Parse()

	// Only the JWT settings matter here, so validation errors are ignored.
	cfg, err := config.Load()
	if cfg == nil {
		fmt.Fprintf(os.Stderr, "load configuration: %v\n", err)
		os.Exit(1)
	}

	jwtCfg := auth.DefaultJWTConfig(cfg.JWT.Secret)
	jwtCfg.Issuer = cfg.JWT.Issuer
	jwtCfg.AccessTokenTTL = cfg.JWT.TokenTTL
	if *ttl > 0 {
		jwtCfg.AccessTokenTTL = *ttl
	}

	token, expiresAt, err := auth.NewJWTService(jwtCfg).GenerateAccessToken(auth.Subject{
		UserID:      *user,
		Email:       *email,
		Roles:       splitList(*roles),
		Permissions: splitList(*perms),
		Branches:    splitList(*branches),
		IsAdmin:     *admin,
	})
	if err != nil {
		fmt.Fprintf(os.Stderr, "mint token: %v\n", err)
		os.Exit(1)
	}

	fmt.Fprintf(os.Stderr, "expires at %s\n", expiresAt.Format(time.RFC3339))
	fmt.Println(token)
}

func splitList(s string) []string {
	var out []string
	for _, part := range strings.Split(s, ",") {
		if p := strings.TrimSpace(part); p != "" {
			out = append(out, p)
		}
	}
	return out
}
