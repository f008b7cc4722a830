// Command token mints a bearer token for a principal, signed with the
// server's JWT settings. It is meant for local setups and tests.
package main

import (
	"flag"
	"fmt"
	"os"
	"time"

	"github.com/google/uuid"

	jwttoken "mandate/internal/jwt_token"
	"mandate/internal/platform/config"
	id "mandate/pkg/domain"
	"mandate/pkg/requestcontext"
)

func main() {
	var (
		role    = flag.String("role", string(requestcontext.RoleAgent), "authority or agent")
		subject = flag.String("subject", "", "principal UUID; a new one is generated when empty")
		ttl     = flag.Duration("ttl", 0, "token lifetime (default 24h)")
	)
	flag.Parse()

	if err := run(*role, *subject, *ttl); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func run(role, subject string, ttl time.Duration) error {
	cfg, err := config.Load()
	if err != nil {
		return err
	}
	principal := id.PrincipalID(uuid.New())
	if subject != "" {
		if principal, err = id.ParsePrincipalID(subject); err != nil {
			return err
		}
	}
	if ttl <= 0 {
		ttl = 24 * time.Hour
	}

	tokens := jwttoken.NewJWTService(cfg.Server.JWTSigningKey, cfg.Server.JWTIssuer, cfg.Server.JWTAudience)
	token, err := tokens.GenerateAccessToken(principal, requestcontext.Role(role), ttl)
	if err != nil {
		return err
	}
	fmt.Fprintf(os.Stderr, "subject: %s\nrole: %s\n", principal, role)
	fmt.Println(token)
	return nil
}
