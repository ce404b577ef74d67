package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/jonathan/ontology-api/internal/config"
	"github.com/jonathan/ontology-api/internal/server"
)

var tokenRole string

var tokenCmd = &cobra.Command{
	Use:   "token",
	Short: "Mint a JWT for the admin endpoints",
	Long:  `Generate a signed JWT using JWT_SECRET from the environment. Pass the token as "Authorization: Bearer <token>".`,
	RunE:  runToken,
}

var hashKeyCmd = &cobra.Command{
	Use:   "hash-key <key>",
	Short: "Hash an admin API key for ADMIN_KEY_HASH",
	Args:  cobra.ExactArgs(1),
	RunE:  runHashKey,
}

func init() {
	tokenCmd.Flags().StringVar(&tokenRole, "role", "admin", "Role claim to embed in the token")
	rootCmd.AddCommand(tokenCmd)
	rootCmd.AddCommand(hashKeyCmd)
}

func runToken(cmd *cobra.Command, _ []string) error {
	jwtCfg, err := config.NewJWTConfig()
	if err != nil {
		return err
	}
	token, err := server.NewJWTService(jwtCfg).GenerateToken(tokenRole)
	if err != nil {
		return err
	}
	fmt.Fprintln(cmd.OutOrStdout(), token)
	return nil
}

func runHashKey(cmd *cobra.Command, args []string) error {
	hash, err := config.HashAdminKey(args[0])
	if err != nil {
		return err
	}
	fmt.Fprintln(cmd.OutOrStdout(), hash)
	return nil
}
