// Package main provides the credseal CLI: key generation, sealing and opening of credential
// tokens, and credential submission to an authentication service.
package main

import (
	"bufio"
	"crypto/rand"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/awnumar/memguard"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"golang.org/x/crypto/argon2"

	"github.com/rbaliyan/credseal"
	"github.com/rbaliyan/credseal/internal/logging"
	"github.com/rbaliyan/credseal/submit"
)

var (
	version = "0.1.0"
	commit  = "dev"
)

// argon2id parameters for passphrase-derived secrets.
const (
	argonTime    = 3
	argonMemory  = 64 * 1024
	argonThreads = 4
	minSaltLen   = 16
)

func main() {
	memguard.CatchInterrupt()
	defer memguard.Purge()

	if err := newRootCmd().Execute(); err != nil {
		memguard.SafeExit(1)
	}
}

func newRootCmd() *cobra.Command {
	rootCmd := &cobra.Command{
		Use:   "credseal",
		Short: "Seal credential fields with AES-256-GCM before transmission",
		Long: `credseal seals a credential (typically a password) into a single base64 token:
nonce(12) || ciphertext || tag(16), under a 32-byte key given as base64 in
configuration or in the CREDSEAL_SECRET environment variable.`,
		SilenceUsage: true,
	}
	rootCmd.PersistentFlags().String("config", "", "YAML config file")
	rootCmd.PersistentFlags().String("log-level", "warn", "Log level (debug, info, warn, error)")

	rootCmd.AddCommand(&cobra.Command{
		Use:   "version",
		Short: "Print version information",
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Fprintf(cmd.OutOrStdout(), "credseal v%s (%s)\n", version, commit)
		},
	})

	keygenCmd := &cobra.Command{
		Use:   "keygen",
		Short: "Generate a base64 secret",
		Long:  "Generate a random 32-byte secret, or derive one from a passphrase with argon2id.",
		Args:  cobra.NoArgs,
		RunE:  runKeygen,
	}
	keygenCmd.Flags().String("passphrase-env", "", "Environment variable holding a passphrase to derive the secret from")
	keygenCmd.Flags().String("salt", "", "Salt for passphrase derivation (at least 16 bytes)")
	rootCmd.AddCommand(keygenCmd)

	rootCmd.AddCommand(&cobra.Command{
		Use:   "seal",
		Short: "Seal the plaintext read from stdin and print the token",
		Args:  cobra.NoArgs,
		RunE:  runSeal,
	})

	rootCmd.AddCommand(&cobra.Command{
		Use:   "open [token]",
		Short: "Open a token and print the plaintext",
		Args:  cobra.ExactArgs(1),
		RunE:  runOpen,
	})

	for _, op := range []string{"signup", "login"} {
		c := &cobra.Command{
			Use:   op,
			Short: fmt.Sprintf("Submit credentials to the %s endpoint; the password is read from stdin", op),
			Args:  cobra.NoArgs,
			RunE:  runSubmit(op),
		}
		c.Flags().String("email", "", "Account email (sent in cleartext)")
		c.Flags().String("base-url", "", "Authentication service base URL (overrides base_url)")
		_ = c.MarkFlagRequired("email")
		rootCmd.AddCommand(c)
	}

	return rootCmd
}

// setup loads configuration and builds the logger and sealer shared by the subcommands.
func setup(cmd *cobra.Command) (fileConfig, *credseal.Sealer, *zap.Logger, error) {
	path, _ := cmd.Flags().GetString("config")
	level, _ := cmd.Flags().GetString("log-level")

	logger, err := logging.New(level)
	if err != nil {
		return fileConfig{}, nil, nil, err
	}
	cfg, err := loadConfig(path)
	if err != nil {
		return fileConfig{}, nil, nil, err
	}
	sealer, err := credseal.NewSealerFromConfig(cfg.Config, credseal.WithLogger(logger))
	if err != nil {
		return fileConfig{}, nil, nil, err
	}
	return cfg, sealer, logger, nil
}

func runKeygen(cmd *cobra.Command, args []string) error {
	passEnv, _ := cmd.Flags().GetString("passphrase-env")
	salt, _ := cmd.Flags().GetString("salt")

	var key []byte
	if passEnv == "" {
		key = make([]byte, 32)
		if _, err := io.ReadFull(rand.Reader, key); err != nil {
			return fmt.Errorf("generate key: %w", err)
		}
	} else {
		passphrase := os.Getenv(passEnv)
		if passphrase == "" {
			return fmt.Errorf("environment variable %s is empty", passEnv)
		}
		if len(salt) < minSaltLen {
			return fmt.Errorf("salt must be at least %d bytes", minSaltLen)
		}
		key = argon2.IDKey([]byte(passphrase), []byte(salt), argonTime, argonMemory, argonThreads, 32)
	}
	defer memguard.WipeBytes(key)

	fmt.Fprintln(cmd.OutOrStdout(), credseal.EncodeSecret(key))
	return nil
}

func runSeal(cmd *cobra.Command, args []string) error {
	_, sealer, _, err := setup(cmd)
	if err != nil {
		return err
	}
	plaintext, err := readLine(cmd.InOrStdin())
	if err != nil {
		return err
	}
	token, err := sealer.Seal(cmd.Context(), plaintext)
	if err != nil {
		return err
	}
	fmt.Fprintln(cmd.OutOrStdout(), token)
	return nil
}

func runOpen(cmd *cobra.Command, args []string) error {
	_, sealer, _, err := setup(cmd)
	if err != nil {
		return err
	}
	plaintext, err := sealer.Open(cmd.Context(), strings.TrimSpace(args[0]))
	if err != nil {
		return err
	}
	fmt.Fprintln(cmd.OutOrStdout(), plaintext)
	return nil
}

func runSubmit(op string) func(*cobra.Command, []string) error {
	return func(cmd *cobra.Command, args []string) error {
		cfg, sealer, logger, err := setup(cmd)
		if err != nil {
			return err
		}
		email, _ := cmd.Flags().GetString("email")
		baseURL, _ := cmd.Flags().GetString("base-url")
		if baseURL == "" {
			baseURL = cfg.BaseURL
		}
		if baseURL == "" {
			return errors.New("no base URL: set --base-url or base_url in the config file")
		}

		client, err := submit.New(sealer, baseURL, submit.WithLogger(logger))
		if err != nil {
			return err
		}
		password, err := readLine(cmd.InOrStdin())
		if err != nil {
			return err
		}

		var res submit.Result
		switch op {
		case "signup":
			res, err = client.Signup(cmd.Context(), email, password)
		default:
			res, err = client.Login(cmd.Context(), email, password)
		}
		if err != nil {
			fmt.Fprintln(cmd.ErrOrStderr(), submit.UserMessage(err))
			return err
		}
		fmt.Fprintf(cmd.OutOrStdout(), "%s: HTTP %d\n", op, res.StatusCode)
		return nil
	}
}

// readLine reads a single line, without its line terminator.
func readLine(r io.Reader) (string, error) {
	line, err := bufio.NewReader(r).ReadString('\n')
	if err != nil && !errors.Is(err, io.EOF) {
		return "", fmt.Errorf("read input: %w", err)
	}
	return strings.TrimRight(line, "\r\n"), nil
}
