package main

import (
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/spf13/cobra"

	"github.com/jonathan/campus-agents/internal/config"
	"github.com/jonathan/campus-agents/internal/server"
)

var tokenCmd = &cobra.Command{
	Use:   "token",
	Short: "Create service credentials for the HTTP API",
}

var (
	tokenSubject string
	tokenCost    int
)

var tokenJWTCmd = &cobra.Command{
	Use:   "jwt",
	Short: "Mint a service JWT signed with AI_SERVICE_JWT_SECRET",
	Args:  cobra.NoArgs,
	RunE:  runTokenJWT,
}

var tokenHashCmd = &cobra.Command{
	Use:   "hash [token]",
	Short: "Print the bcrypt hash of a service token for AI_SERVICE_TOKEN_HASH",
	Long: `Print the bcrypt hash of a service token. The token is read from the
argument, or from stdin when no argument is given.`,
	Args: cobra.MaximumNArgs(1),
	RunE: runTokenHash,
}

func init() {
	tokenJWTCmd.Flags().StringVar(&tokenSubject, "subject", "backend", "Subject claim of the token")
	tokenHashCmd.Flags().IntVar(&tokenCost, "cost", config.DefaultBcryptCost, "bcrypt cost")
	tokenCmd.AddCommand(tokenJWTCmd, tokenHashCmd)
	rootCmd.AddCommand(tokenCmd)
}

func runTokenJWT(cmd *cobra.Command, _ []string) error {
	cfg, err := config.Load()
	if err != nil {
		return err
	}
	if cfg.Service.JWT == nil {
		return errors.New("AI_SERVICE_JWT_SECRET is not set")
	}

	token, err := server.NewJWTService(cfg.Service.JWT).GenerateToken(tokenSubject)
	if err != nil {
		return err
	}
	_, err = fmt.Fprintln(cmd.OutOrStdout(), token)
	return err
}

func runTokenHash(cmd *cobra.Command, args []string) error {
	var token string
	if len(args) == 1 {
		token = args[0]
	} else {
		raw, err := io.ReadAll(cmd.InOrStdin())
		if err != nil {
			return fmt.Errorf("failed to read token: %w", err)
		}
		token = strings.TrimSpace(string(raw))
	}
	if token == "" {
		return errors.New("token is empty")
	}

	hash, err := config.HashToken(token, tokenCost)
	if err != nil {
		return err
	}
	_, err = fmt.Fprintln(cmd.OutOrStdout(), hash)
	return err
}
