// Command devauth runs a local signing authority: it prints a token carrying
// the requested permissions and serves the matching JWKS until interrupted.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"log"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"coffeeshop/internal/issuer"
)

var osExit = os.Exit

type options struct {
	addr        string
	issuer      string
	audience    string
	subject     string
	permissions []string
	ttl         time.Duration
	printOnly   bool
}

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	if err := run(ctx, os.Args[1:], os.Stdout); err != nil {
		log.Print(err)
		osExit(1)
	}
}

func run(ctx context.Context, args []string, out io.Writer) error {
	opts, err := parseFlags(args)
	if err != nil {
		return err
	}

	authority, err := issuer.New(opts.issuer, opts.audience, nil)
	if err != nil {
		return fmt.Errorf("new authority: %w", err)
	}
	token, err := authority.Issue(opts.subject, opts.permissions, opts.ttl)
	if err != nil {
		return fmt.Errorf("issue token: %w", err)
	}

	jwksURL := strings.TrimSuffix(opts.issuer, "/") + issuer.JWKSPath
	fmt.Fprintf(out, "CS_JWKS_URL=%s\n", jwksURL)
	fmt.Fprintf(out, "CS_TOKEN_ISSUER=%s\n", opts.issuer)
	fmt.Fprintf(out, "CS_API_AUDIENCE=%s\n", opts.audience)
	fmt.Fprintf(out, "TOKEN=%s\n", token)
	if opts.printOnly {
		return nil
	}

	server := &http.Server{
		Addr:              opts.addr,
		Handler:           authority.Handler(),
		ReadHeaderTimeout: 5 * time.Second,
	}
	errCh := make(chan error, 1)
	go func() {
		errCh <- server.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	case <-ctx.Done():
	}
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	return server.Shutdown(shutdownCtx)
}

func parseFlags(args []string) (options, error) {
	fs := flag.NewFlagSet("devauth", flag.ContinueOnError)
	fs.SetOutput(io.Discard)
	addr := fs.String("addr", "127.0.0.1:5200", "listen address for the JWKS endpoint")
	iss := fs.String("issuer", "", "token issuer, defaults to http://<addr>/")
	audience := fs.String("audience", "coffee-api", "token audience")
	subject := fs.String("subject", "dev|barista", "token subject")
	permissions := fs.String("permissions", "get:drinks-detail,post:drinks,patch:drinks,delete:drinks", "comma separated permissions")
	ttl := fs.Duration("ttl", time.Hour, "token lifetime")
	printOnly := fs.Bool("print-only", false, "print the token and exit without serving")
	if err := fs.Parse(args); err != nil {
		return options{}, err
	}
	if *ttl <= 0 {
		return options{}, errors.New("ttl must be positive")
	}

	opts := options{
		addr:      *addr,
		issuer:    *iss,
		audience:  *audience,
		subject:   *subject,
		ttl:       *ttl,
		printOnly: *printOnly,
	}
	if opts.issuer == "" {
		opts.issuer = "http://" + opts.addr + "/"
	}
	opts.permissions = []string{}
	for _, part := range strings.Split(*permissions, ",") {
		if part = strings.TrimSpace(part); part != "" {
			opts.permissions = append(opts.permissions, part)
		}
	}
	return opts, nil
}
