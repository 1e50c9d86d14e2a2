// Package main provides a CLI tool for working with idmcore tokens and OTP
// credentials during local development. It uses the dev defaults from the
// server configuration unless overridden.
package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"os"
	"time"

	"github.com/pquerna/otp"
	"github.com/pquerna/otp/totp"

	otpcred "idmcore/internal/credential/otp"
	"idmcore/internal/credreset/token"
	"idmcore/internal/platform/config"
)

const resetTokenIssuer = "idmcore"

type output struct {
	Type   string            `json:"type"`
	Values map[string]string `json:"values"`
	Usage  map[string]string `json:"usage,omitempty"`
}

func main() {
	cfg, err := config.FromEnv()
	if err != nil {
		fail("Error loading config: %v", err)
	}

	enrollCmd := flag.NewFlagSet("otp-enroll", flag.ExitOnError)
	codeCmd := flag.NewFlagSet("otp-code", flag.ExitOnError)
	resetCmd := flag.NewFlagSet("reset-inspect", flag.ExitOnError)
	adminCmd := flag.NewFlagSet("admin", flag.ExitOnError)

	enrollAccount := enrollCmd.String("account", "", "Account name shown in the authenticator app")
	enrollJSON := enrollCmd.Bool("json", false, "Output as JSON")

	codeSecret := codeCmd.String("secret", "", "Base32 OTP secret")
	codeAt := codeCmd.Duration("offset", 0, "Generate the code for now+offset")
	codeJSON := codeCmd.Bool("json", false, "Output as JSON")

	resetToken := resetCmd.String("token", "", "Reset session token from /credreset/start")
	resetJSON := resetCmd.Bool("json", false, "Output as JSON")

	adminJSON := adminCmd.Bool("json", false, "Output as JSON")

	if len(os.Args) < 2 {
		printUsage()
		os.Exit(1)
	}

	switch os.Args[1] {
	case "otp-enroll":
		_ = enrollCmd.Parse(os.Args[2:])
		enrollOTP(cfg, *enrollAccount, *enrollJSON)
	case "otp-code":
		_ = codeCmd.Parse(os.Args[2:])
		currentCode(cfg, *codeSecret, *codeAt, *codeJSON)
	case "reset-inspect":
		_ = resetCmd.Parse(os.Args[2:])
		inspectReset(cfg, *resetToken, *resetJSON)
	case "admin":
		_ = adminCmd.Parse(os.Args[2:])
		showAdminToken(cfg, *adminJSON)
	case "help", "-h", "--help":
		printUsage()
	default:
		fmt.Fprintf(os.Stderr, "Unknown command: %s\n\n", os.Args[1])
		printUsage()
		os.Exit(1)
	}
}

func printUsage() {
	fmt.Println(`tokengen - development helper for idmcore

WARNING: Uses the configured (by default dev) keys. Only use for local
         development and testing.

Usage:
  tokengen <command> [flags]

Commands:
  otp-enroll     Generate an OTP secret and otpauth:// URL
  otp-code       Print the current code for an OTP secret
  reset-inspect  Validate a credential reset token and print its session id
  admin          Show the admin API token

Examples:
  tokengen otp-enroll -account alice
  tokengen otp-code -secret JBSWY3DPEHPK3PXP
  tokengen reset-inspect -token "$(cat token.txt)"
  tokengen admin -json

Use "tokengen <command> -h" for more information about a command.`)
}

func otpDefinition(cfg config.Server) otpcred.Definition {
	return otpcred.Definition{
		Issuer: cfg.OTP.Issuer,
		Params: otpcred.Params{
			CodeLength: cfg.OTP.CodeLength,
			Period:     int(cfg.OTP.Period / time.Second),
			Algorithm:  otpcred.HashAlgorithm(cfg.OTP.Algorithm),
		},
		AllowedDriftSteps: cfg.OTP.AllowedDriftSteps,
	}
}

func enrollOTP(cfg config.Server, account string, jsonOutput bool) {
	if account == "" {
		fail("-account is required")
	}
	v, err := otpcred.New(otpcred.TypeID, otpDefinition(cfg), nil)
	if err != nil {
		fail("Error building OTP credential: %v", err)
	}
	enrollment, err := v.NewEnrollment(account)
	if err != nil {
		fail("Error generating secret: %v", err)
	}

	if jsonOutput {
		printJSON(output{
			Type: "otp_enrollment",
			Values: map[string]string{
				"secret": enrollment.Secret,
				"url":    enrollment.URL,
			},
			Usage: map[string]string{
				"credential": fmt.Sprintf(`{"secret":%q,"otpParams":{"codeLength":%d,"period":%d,"algorithm":%q}}`,
					enrollment.Secret, cfg.OTP.CodeLength, int(cfg.OTP.Period/time.Second), cfg.OTP.Algorithm),
			},
		})
		return
	}
	fmt.Println("OTP Enrollment")
	fmt.Println("==============")
	fmt.Printf("Account: %s\n", account)
	fmt.Printf("Secret:  %s\n", enrollment.Secret)
	fmt.Printf("URL:     %s\n", enrollment.URL)
}

func currentCode(cfg config.Server, secret string, offset time.Duration, jsonOutput bool) {
	if secret == "" {
		fail("-secret is required")
	}
	def := otpDefinition(cfg)
	alg := otp.AlgorithmSHA1
	switch def.Params.Algorithm {
	case otpcred.SHA256:
		alg = otp.AlgorithmSHA256
	case otpcred.SHA512:
		alg = otp.AlgorithmSHA512
	}
	at := time.Now().Add(offset)
	code, err := totp.GenerateCodeCustom(secret, at, totp.ValidateOpts{
		Period:    uint(def.Params.Period),
		Digits:    otp.Digits(def.Params.CodeLength),
		Algorithm: alg,
	})
	if err != nil {
		fail("Error generating code: %v", err)
	}

	if jsonOutput {
		printJSON(output{
			Type:   "otp_code",
			Values: map[string]string{"code": code, "at": at.UTC().Format(time.RFC3339)},
			Usage:  map[string]string{"endpoint": "POST /otp/verify"},
		})
		return
	}
	fmt.Println(code)
}

func inspectReset(cfg config.Server, raw string, jsonOutput bool) {
	if raw == "" {
		fail("-token is required")
	}
	signer := token.NewSigner(cfg.Reset.TokenSigningKey, resetTokenIssuer, cfg.Reset.SessionTTL)
	sessionID, err := signer.Parse(context.Background(), raw)
	if err != nil {
		fail("Invalid reset token: %v", err)
	}

	if jsonOutput {
		printJSON(output{
			Type:   "reset_session",
			Values: map[string]string{"session_id": sessionID.String()},
		})
		return
	}
	fmt.Printf("Session ID: %s\n", sessionID)
}

func showAdminToken(cfg config.Server, jsonOutput bool) {
	if jsonOutput {
		printJSON(output{
			Type:   "admin_token",
			Values: map[string]string{"token": cfg.AdminToken},
			Usage:  map[string]string{"header": "X-Admin-Token: " + cfg.AdminToken},
		})
		return
	}
	fmt.Println("Admin API Token")
	fmt.Println("===============")
	fmt.Printf("Token: %s\n", cfg.AdminToken)
	fmt.Println()
	fmt.Println("Usage:")
	fmt.Println("  curl -H \"X-Admin-Token: " + cfg.AdminToken + "\" http://localhost:8080/admin/bulk/rules")
}

func printJSON(v any) {
	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	if err := enc.Encode(v); err != nil {
		fail("Error encoding JSON: %v", err)
	}
}

func fail(format string, args ...any) {
	fmt.Fprintf(os.Stderr, format+"\n", args...)
	os.Exit(1)
}
